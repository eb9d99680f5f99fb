package trackserver

import (
	"github.com/anatolykoptev/go_tracks/internal/engine/multi"
	"github.com/anatolykoptev/go_tracks/internal/engine/tracks"
)

// SearchInput is the input for track_search.
type SearchInput struct {
	Query   string   `json:"query" jsonschema:"Search terms"`
	Sources []string `json:"sources,omitempty" jsonschema:"Sources to query: yt/youtube, sc/soundcloud or all (default all)"`
}

// NextInput is the input for track_next.
type NextInput struct {
	Cursor map[string]string `json:"cursor" jsonschema:"Cursor returned by track_search or a previous track_next"`
}

// LookupInput is the input for track_lookup.
type LookupInput struct {
	URL string `json:"url" jsonschema:"YouTube watch/short URL or SoundCloud permalink"`
}

// StreamInput is the input for track_stream.
type StreamInput struct {
	URL     string `json:"url" jsonschema:"Track URL as returned by track_search or track_lookup"`
	Retries *int   `json:"retries,omitempty" jsonschema:"Extra resolution attempts after the first (default from STREAM_RETRIES)"`
}

// TrackItem is one track in tool output.
type TrackItem struct {
	Source      string `json:"source"`
	ID          string `json:"id"`
	Title       string `json:"title"`
	DurationSec int64  `json:"duration_sec,omitempty"`
	URL         string `json:"url"`
	Channel     string `json:"channel,omitempty"`
	ChannelURL  string `json:"channel_url,omitempty"`
	Views       int64  `json:"views,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
}

// TrackListOutput is a page of tracks plus the cursor for track_next.
type TrackListOutput struct {
	Tracks  []TrackItem       `json:"tracks"`
	Cursor  map[string]string `json:"cursor,omitempty"`
	HasMore bool              `json:"has_more"`
}

// StreamOutput is the result of track_stream.
type StreamOutput struct {
	Track      TrackItem `json:"track"`
	StreamURL  string    `json:"stream_url"`
	Format     string    `json:"format"`
	Quality    string    `json:"quality,omitempty"`
	Protocol   string    `json:"protocol,omitempty"`
	SampleRate int       `json:"sample_rate,omitempty"`
	Attempts   int       `json:"attempts"`
}

func toItem(t *tracks.Track) TrackItem {
	return TrackItem{
		Source:      string(t.Source),
		ID:          t.ID,
		Title:       t.Title,
		DurationSec: int64(t.Duration.Seconds()),
		URL:         t.URL,
		Channel:     t.Channel,
		ChannelURL:  t.ChannelURL,
		Views:       t.Views,
		Thumbnail:   t.Thumbnail,
	}
}

func toListOutput(agg *multi.Aggregator, l *tracks.TrackList) TrackListOutput {
	out := TrackListOutput{Tracks: make([]TrackItem, 0, l.Len())}
	for _, t := range l.Tracks {
		out.Tracks = append(out.Tracks, toItem(t))
	}
	if !l.Query.Pageable() {
		return out
	}
	out.Cursor = l.Query.Clone()
	for _, src := range agg.Sources() {
		if c, ok := agg.Client(src); ok && c.HasPagingValues(l) {
			out.HasMore = true
			break
		}
	}
	return out
}
