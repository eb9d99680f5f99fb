package sources

// YouTube implementation is split across files by responsibility:
//   youtube.go          : client, URL ownership, lookup
//   youtube_innertube.go: Innertube client context and POST primitive
//   youtube_search.go   : ytInitialData scraping and continuation pages
//   youtube_stream.go   : player response, formats and signature descrambling

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_tracks/internal/engine"
	"github.com/anatolykoptev/go_tracks/internal/engine/signature"
	"github.com/anatolykoptev/go_tracks/internal/engine/tracks"
)

var videoIDRE = regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:.*&)?v=|shorts/|embed/|live/)|youtu\.be/)([a-zA-Z0-9_-]{11})`)

// extractVideoID pulls the 11-char video ID from any YouTube URL format.
func extractVideoID(rawURL string) string {
	m := videoIDRE.FindStringSubmatch(rawURL)
	if len(m) >= 2 {
		return m[1]
	}
	return ""
}

// YouTubeClient searches YouTube and resolves audio streams, descrambling
// ciphered signatures with the player script.
type YouTubeClient struct {
	transport   engine.Transport
	descrambler signature.Descrambler
	baseURL     string
	limit       int
}

// NewYouTube builds a YouTube client from the engine configuration.
func NewYouTube(t engine.Transport, d signature.Descrambler, c engine.Config) *YouTubeClient {
	base := strings.TrimRight(c.YouTubeURL, "/")
	if base == "" {
		base = engine.DefaultConfig().YouTubeURL
	}
	return &YouTubeClient{transport: t, descrambler: d, baseURL: base, limit: c.SearchLimit}
}

// Source implements the aggregator client contract.
func (y *YouTubeClient) Source() tracks.Source { return tracks.YouTube }

// Owns reports whether rawURL points at a YouTube video.
func (y *YouTubeClient) Owns(rawURL string) bool {
	if extractVideoID(rawURL) != "" {
		return true
	}
	h := hostOf(rawURL)
	return h != "" && h == hostOf(y.baseURL) && strings.Contains(rawURL, "v=")
}

// HasPagingValues reports whether l still has a YouTube continuation.
func (y *YouTubeClient) HasPagingValues(l *tracks.TrackList) bool {
	return l != nil && l.Query.HasPagingValues(tracks.YouTube)
}

// ValidateStream implements tracks.Streamer.
func (y *YouTubeClient) ValidateStream(ctx context.Context, streamURL string) error {
	return validateStream(ctx, y.transport, streamURL)
}

// canonicalURL is the watch URL used for track identity.
func (y *YouTubeClient) canonicalURL(id string) string {
	return y.baseURL + "/watch?v=" + id
}

// videoID returns the ID of rawURL, accepting bare IDs and URLs on the
// configured base host.
func (y *YouTubeClient) videoID(rawURL string) string {
	if id := extractVideoID(rawURL); id != "" {
		return id
	}
	if len(rawURL) == 11 && !strings.ContainsAny(rawURL, "/?=") {
		return rawURL
	}
	if _, after, ok := strings.Cut(rawURL, "v="); ok && len(after) >= 11 {
		return after[:11]
	}
	return ""
}

// Lookup fetches a single video by URL.
func (y *YouTubeClient) Lookup(ctx context.Context, rawURL string) (*tracks.TrackList, error) {
	id := y.videoID(rawURL)
	if id == "" {
		return nil, fmt.Errorf("youtube lookup: %w: no video id in %q", tracks.ErrParse, rawURL)
	}
	p, err := y.fetchPlayer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("youtube lookup: %w", err)
	}
	t := p.track(y)
	t.SetInfo(p.info())

	q := tracks.QueryInfo{
		tracks.KeyQuery:     rawURL,
		tracks.KeyQueryType: tracks.QueryLookup,
	}
	return tracks.NewTrackList([]*tracks.Track{t}, q, y.Next), nil
}
