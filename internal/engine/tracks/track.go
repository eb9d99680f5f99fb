// Package tracks holds the source-agnostic track model: tracks, formats,
// paged track lists with their cursor bookkeeping, format selection and the
// stream retry loop.
package tracks

import (
	"context"
	"sync"
	"time"
)

// Source is the two-letter tag identifying the backend that owns a track.
type Source string

const (
	YouTube    Source = "yt"
	SoundCloud Source = "sc"
)

// Name returns a human-readable source name for messages.
func (s Source) Name() string {
	switch s {
	case YouTube:
		return "youtube"
	case SoundCloud:
		return "soundcloud"
	}
	return string(s)
}

// Streamer resolves playable URLs for tracks of one source.
type Streamer interface {
	// ResolveStream refreshes the track info and builds a candidate URL.
	ResolveStream(ctx context.Context, t *Track) (*Stream, error)
	// ValidateStream checks that url actually serves bytes.
	ValidateStream(ctx context.Context, url string) error
}

// Track is one search result. All fields are fixed at construction; only the
// TrackInfo is refreshed by the owning source during stream resolution.
type Track struct {
	Source     Source        `json:"source"`
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Duration   time.Duration `json:"duration"`
	URL        string        `json:"url"`
	Channel    string        `json:"channel,omitempty"`
	ChannelURL string        `json:"channel_url,omitempty"`
	Views      int64         `json:"views,omitempty"`
	Thumbnail  string        `json:"thumbnail,omitempty"`

	mu       sync.Mutex
	info     *TrackInfo
	streamer Streamer
}

// TrackInfo is the per-resolution metadata a source fetches for a track.
type TrackInfo struct {
	Formats []TrackFormat
	// ScriptURL locates the player script for scrambled formats.
	ScriptURL string
}

// Stream is a resolved, playable URL.
type Stream struct {
	URL      string      `json:"url"`
	Format   TrackFormat `json:"format"`
	Attempts int         `json:"attempts"`
}

// Bind attaches the owning source's streamer.
func (t *Track) Bind(s Streamer) *Track {
	t.streamer = s
	return t
}

// Equal compares tracks by canonical URL only.
func (t *Track) Equal(o *Track) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.URL == o.URL
}

// Info returns the most recently fetched track info, or nil.
func (t *Track) Info() *TrackInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.info
}

// SetInfo replaces the track info.
func (t *Track) SetInfo(info *TrackInfo) {
	t.mu.Lock()
	t.info = info
	t.mu.Unlock()
}

// Stream makes a single resolution attempt without validation.
func (t *Track) Stream(ctx context.Context) (*Stream, error) {
	if t.streamer == nil {
		return nil, &SourceError{Source: t.Source, Op: "stream", Err: ErrNoSourcesSelected}
	}
	s, err := t.streamer.ResolveStream(ctx, t)
	if err != nil {
		return nil, err
	}
	s.Attempts = 1
	return s, nil
}

// StreamRetry resolves and validates the stream, retrying the full
// resolution up to retries times.
func (t *Track) StreamRetry(ctx context.Context, retries int) (*Stream, error) {
	if t.streamer == nil {
		return nil, &SourceError{Source: t.Source, Op: "stream", Err: ErrNoSourcesSelected}
	}
	return ResolveWithRetry(ctx, t.streamer, t, retries)
}
