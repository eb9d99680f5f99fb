package tracks

import (
	"strings"
)

// FormatType is the normalised container/codec family of an encoding.
type FormatType int

const (
	FormatUnknown FormatType = iota
	AudioMP4
	AudioWebM
	AudioMPEG
	AudioOgg
	VideoMP4
	VideoWebM
	Video3GPP
)

var formatNames = map[FormatType]string{
	FormatUnknown: "unknown",
	AudioMP4:      "audio/mp4",
	AudioWebM:     "audio/webm",
	AudioMPEG:     "audio/mpeg",
	AudioOgg:      "audio/ogg",
	VideoMP4:      "video/mp4",
	VideoWebM:     "video/webm",
	Video3GPP:     "video/3gpp",
}

func (f FormatType) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return "unknown"
}

// IsVideo reports whether the format carries a video stream.
func (f FormatType) IsVideo() bool {
	return f == VideoMP4 || f == VideoWebM || f == Video3GPP
}

// MarshalText encodes the type as its mime string.
func (f FormatType) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// ParseMime maps a mime type, with or without codec parameters, to a FormatType.
// `audio/ogg; codecs="opus"` and SoundCloud's `audio/opus` are both AudioOgg.
func ParseMime(mime string) FormatType {
	base, _, _ := strings.Cut(strings.ToLower(mime), ";")
	switch strings.TrimSpace(base) {
	case "audio/mp4", "audio/m4a", "audio/x-m4a", "audio/aac":
		return AudioMP4
	case "audio/webm":
		return AudioWebM
	case "audio/mpeg", "audio/mp3":
		return AudioMPEG
	case "audio/ogg", "audio/opus":
		return AudioOgg
	case "video/mp4":
		return VideoMP4
	case "video/webm":
		return VideoWebM
	case "video/3gpp":
		return Video3GPP
	}
	return FormatUnknown
}

// Quality is an ordered audio quality tier. QualityUnset sorts lowest.
type Quality int

const (
	QualityUnset Quality = iota
	QualityLow
	QualityMedium
	QualityHigh
)

func (q Quality) String() string {
	switch q {
	case QualityLow:
		return "low"
	case QualityMedium:
		return "medium"
	case QualityHigh:
		return "high"
	}
	return ""
}

// MarshalText encodes the tier name.
func (q Quality) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// ParseAudioQuality maps YouTube's audioQuality values
// (AUDIO_QUALITY_LOW, ..._MEDIUM, ..._HIGH) and plain tier names.
func ParseAudioQuality(s string) Quality {
	s = strings.ToLower(strings.TrimPrefix(strings.ToUpper(s), "AUDIO_QUALITY_"))
	switch s {
	case "low", "ultralow":
		return QualityLow
	case "medium":
		return QualityMedium
	case "high":
		return QualityHigh
	}
	return QualityUnset
}

// Streaming protocols.
const (
	ProtocolHLS         = "hls"
	ProtocolProgressive = "progressive"
)

// TrackFormat is one playable encoding of a track.
type TrackFormat struct {
	Type       FormatType `json:"type"`
	Quality    Quality    `json:"quality,omitempty"`
	SampleRate int        `json:"sample_rate,omitempty"`
	Protocol   string     `json:"protocol,omitempty"`
	// URL is either a direct URL or, when StreamReady is false, the
	// scrambled cipher query string.
	URL         string `json:"-"`
	StreamReady bool   `json:"stream_ready"`
}

// BestTieredFormat picks the highest quality tier, breaking ties by sample
// rate; the first of equal formats wins. Video and tierless formats are only
// considered with includeVideo, which is tried automatically when no audio
// candidate exists.
func BestTieredFormat(formats []TrackFormat, includeVideo bool) (TrackFormat, error) {
	if best, ok := bestTiered(formats, includeVideo); ok {
		return best, nil
	}
	if !includeVideo {
		if best, ok := bestTiered(formats, true); ok {
			return best, nil
		}
	}
	return TrackFormat{}, ErrNoApplicableFormat
}

func bestTiered(formats []TrackFormat, includeVideo bool) (TrackFormat, bool) {
	var best TrackFormat
	found := false
	for _, f := range formats {
		if f.Type == FormatUnknown {
			continue
		}
		if f.Type.IsVideo() && !includeVideo {
			continue
		}
		if f.Quality == QualityUnset && !includeVideo {
			continue
		}
		switch {
		case !found:
			best, found = f, true
		case f.Quality > best.Quality:
			best = f
		case f.Quality == best.Quality && f.SampleRate > best.SampleRate:
			best = f
		}
	}
	return best, found
}

// BestRankedFormat prefers HLS over progressive delivery and, for equal
// protocol preference, Ogg/Opus over other containers. The first format seeds
// the choice and only a strictly preferred one replaces it.
func BestRankedFormat(formats []TrackFormat) (TrackFormat, error) {
	var best TrackFormat
	found := false
	for _, f := range formats {
		if f.URL == "" {
			continue
		}
		if !found {
			best, found = f, true
			continue
		}
		if rankedBetter(f, best) {
			best = f
		}
	}
	if !found {
		return TrackFormat{}, ErrNoApplicableFormat
	}
	return best, nil
}

func rankedBetter(a, b TrackFormat) bool {
	pa, pb := a.Protocol == ProtocolHLS, b.Protocol == ProtocolHLS
	if pa != pb {
		return pa
	}
	return a.Type == AudioOgg && b.Type != AudioOgg
}
