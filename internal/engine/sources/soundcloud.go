package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/anatolykoptev/go_tracks/internal/engine"
	"github.com/anatolykoptev/go_tracks/internal/engine/tracks"
	"github.com/anatolykoptev/go_tracks/internal/engine/tree"
)

var scClientIDRe = regexp.MustCompile(`client_id\s*[:=]\s*"([a-zA-Z0-9]{16,})"`)

// SoundCloudClient searches SoundCloud's v2 API. The public client_id is
// scraped from the site's script bundles unless configured.
type SoundCloudClient struct {
	transport engine.Transport
	siteURL   string
	apiURL    string
	limit     int

	mu       sync.Mutex
	clientID string
	fixedID  bool
}

// NewSoundCloud builds a SoundCloud client from the engine configuration.
func NewSoundCloud(t engine.Transport, c engine.Config) *SoundCloudClient {
	def := engine.DefaultConfig()
	s := &SoundCloudClient{
		transport: t,
		siteURL:   strings.TrimRight(c.SoundCloudURL, "/"),
		apiURL:    strings.TrimRight(c.SoundCloudAPIURL, "/"),
		limit:     c.SearchLimit,
		clientID:  c.SoundCloudClientID,
		fixedID:   c.SoundCloudClientID != "",
	}
	if s.siteURL == "" {
		s.siteURL = def.SoundCloudURL
	}
	if s.apiURL == "" {
		s.apiURL = def.SoundCloudAPIURL
	}
	if s.limit <= 0 {
		s.limit = def.SearchLimit
	}
	return s
}

// Source implements the aggregator client contract.
func (s *SoundCloudClient) Source() tracks.Source { return tracks.SoundCloud }

// Owns reports whether rawURL is a SoundCloud permalink.
func (s *SoundCloudClient) Owns(rawURL string) bool {
	h := hostOf(rawURL)
	if h == "" {
		return false
	}
	return h == "soundcloud.com" || h == "m.soundcloud.com" || h == hostOf(s.siteURL)
}

// HasPagingValues reports whether l still has a SoundCloud next_href.
func (s *SoundCloudClient) HasPagingValues(l *tracks.TrackList) bool {
	return l != nil && l.Query.HasPagingValues(tracks.SoundCloud)
}

// ValidateStream implements tracks.Streamer.
func (s *SoundCloudClient) ValidateStream(ctx context.Context, streamURL string) error {
	return validateStream(ctx, s.transport, streamURL)
}

// Search queries /search/tracks for the first page.
func (s *SoundCloudClient) Search(ctx context.Context, query string) (*tracks.TrackList, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(s.limit))
	params.Set("offset", "0")
	params.Set("linked_partitioning", "1")

	root, err := s.api(ctx, s.apiURL+"/search/tracks?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("soundcloud search: %w", err)
	}
	items, token := s.parseCollection(root)
	slog.Debug("soundcloud: search page", slog.String("query", query),
		slog.Int("tracks", len(items)), slog.Bool("more", token != ""))
	return tracks.NewTrackList(items, firstPage(tracks.SoundCloud, query, len(items), token), s.Next), nil
}

// Next follows the next_href recorded in the list.
func (s *SoundCloudClient) Next(ctx context.Context, l *tracks.TrackList) (*tracks.TrackList, error) {
	if err := checkNext(l, tracks.SoundCloud); err != nil {
		return nil, fmt.Errorf("soundcloud next: %w", err)
	}
	root, err := s.api(ctx, l.Query[tracks.TokenKey(tracks.SoundCloud)])
	if err != nil {
		return nil, fmt.Errorf("soundcloud next: %w", err)
	}
	items, token := s.parseCollection(root)
	return tracks.NewTrackList(items, nextPage(tracks.SoundCloud, l.Query, len(items), token), s.Next), nil
}

// Lookup resolves a permalink to its track.
func (s *SoundCloudClient) Lookup(ctx context.Context, rawURL string) (*tracks.TrackList, error) {
	root, err := s.api(ctx, s.apiURL+"/resolve?url="+url.QueryEscape(rawURL))
	if err != nil {
		return nil, fmt.Errorf("soundcloud lookup: %w", err)
	}
	if kind := root.Str("kind"); kind != "" && kind != "track" {
		return nil, fmt.Errorf("soundcloud lookup: %w: %q is a %s", tracks.ErrParse, rawURL, kind)
	}
	t := s.track(root)
	if t == nil {
		return nil, fmt.Errorf("soundcloud lookup: %w: no track id", tracks.ErrParse)
	}
	q := tracks.QueryInfo{
		tracks.KeyQuery:     rawURL,
		tracks.KeyQueryType: tracks.QueryLookup,
	}
	return tracks.NewTrackList([]*tracks.Track{t}, q, s.Next), nil
}

// ResolveStream refreshes the transcodings, picks the best one and resolves
// it to its media URL.
func (s *SoundCloudClient) ResolveStream(ctx context.Context, t *tracks.Track) (*tracks.Stream, error) {
	engine.IncrStreamResolution()
	root, err := s.api(ctx, s.apiURL+"/tracks/"+url.PathEscape(t.ID))
	if err != nil {
		return nil, fmt.Errorf("soundcloud stream %s: %w", t.ID, err)
	}
	info := &tracks.TrackInfo{Formats: scFormats(root)}
	t.SetInfo(info)

	f, err := tracks.BestRankedFormat(info.Formats)
	if err != nil {
		return nil, fmt.Errorf("soundcloud stream %s: %w", t.ID, err)
	}
	endpoint := f.URL
	if auth := root.Str("track_authorization"); auth != "" {
		endpoint = engine.AppendQuery(endpoint, "track_authorization", url.QueryEscape(auth))
	}
	media, err := s.api(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("soundcloud stream %s: %w", t.ID, err)
	}
	streamURL, ok := media.AsString("url")
	if !ok || streamURL == "" {
		return nil, fmt.Errorf("soundcloud stream %s: %w: transcoding without url", t.ID, tracks.ErrParse)
	}
	return &tracks.Stream{URL: streamURL, Format: f}, nil
}

// api GETs an API URL with the client_id appended and parses the JSON body.
// An auth failure drops a scraped client_id so the next call rediscovers it.
func (s *SoundCloudClient) api(ctx context.Context, rawURL string) (tree.Node, error) {
	id, err := s.ClientID(ctx)
	if err != nil {
		return tree.Null(), err
	}
	if !strings.Contains(rawURL, "client_id=") {
		rawURL = engine.AppendQuery(rawURL, "client_id", id)
	}

	engine.IncrSoundCloud()
	status, body, err := s.transport.Get(ctx, rawURL, map[string]string{"accept": "application/json"})
	if err != nil {
		return tree.Null(), err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		s.forgetClientID(id)
	}
	if status != http.StatusOK {
		return tree.Null(), statusErr("soundcloud api", status)
	}
	root, err := tree.ParseJSON(body)
	if err != nil {
		return tree.Null(), parseErr("soundcloud api", err)
	}
	return root, nil
}

// ClientID returns the configured client_id or discovers one from the
// site's script bundles. A discovered id is cached for the process lifetime.
// Discovery runs without the lock; concurrent discoveries store the same id
// and the last writer wins.
func (s *SoundCloudClient) ClientID(ctx context.Context) (string, error) {
	s.mu.Lock()
	id := s.clientID
	s.mu.Unlock()
	if id != "" {
		return id, nil
	}

	id, err := s.discoverClientID(ctx)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.clientID = id
	s.mu.Unlock()
	return id, nil
}

func (s *SoundCloudClient) discoverClientID(ctx context.Context) (string, error) {
	engine.IncrSoundCloud()
	status, body, err := s.transport.Get(ctx, s.siteURL+"/", nil)
	if err != nil {
		return "", fmt.Errorf("soundcloud client id: %w", err)
	}
	if status != http.StatusOK {
		return "", statusErr("soundcloud client id", status)
	}
	doc, err := tree.ParseHTML(body)
	if err != nil {
		return "", parseErr("soundcloud client id", err)
	}

	// The app bundle defining client_id is usually the last script.
	scripts := doc.ScriptSources()
	slices.Reverse(scripts)
	for _, src := range scripts {
		engine.IncrSoundCloud()
		st, js, err := s.transport.Get(ctx, resolveRef(s.siteURL+"/", src), nil)
		if err != nil || st != http.StatusOK {
			continue
		}
		if m := scClientIDRe.FindSubmatch(js); m != nil {
			slog.Debug("soundcloud: discovered client id", slog.String("script", src))
			return string(m[1]), nil
		}
	}
	return "", parseErr("soundcloud client id", errors.New("client_id not found in script bundles"))
}

func (s *SoundCloudClient) forgetClientID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fixedID && s.clientID == id {
		s.clientID = ""
	}
}

// parseCollection maps a search page to tracks and its next_href.
func (s *SoundCloudClient) parseCollection(root tree.Node) ([]*tracks.Track, string) {
	var items []*tracks.Track
	for item := range root.Path("collection").Elements() {
		if kind := item.Str("kind"); kind != "" && kind != "track" {
			continue
		}
		if t := s.track(item); t != nil {
			items = append(items, t)
		}
	}
	return items, root.Str("next_href")
}

// track maps an API track object; nil when it has no id.
func (s *SoundCloudClient) track(n tree.Node) *tracks.Track {
	id, ok := n.AsString("id")
	if !ok || id == "" {
		return nil
	}
	ms, _ := n.Path("full_duration").OrElse(n.Path("duration")).AsLong()
	plays, _ := n.AsLong("playback_count")
	return (&tracks.Track{
		Source:     tracks.SoundCloud,
		ID:         id,
		Title:      engine.CleanHTML(n.Str("title")),
		Duration:   time.Duration(ms) * time.Millisecond,
		URL:        n.Str("permalink_url"),
		Channel:    n.Str("user", "username"),
		ChannelURL: n.Str("user", "permalink_url"),
		Views:      plays,
		Thumbnail:  n.Path("artwork_url").OrElse(n.Path("user", "avatar_url")).Str(),
	}).Bind(s)
}

// scFormats maps media.transcodings. Encrypted HLS and preview snippets are
// not playable and are dropped.
func scFormats(root tree.Node) []tracks.TrackFormat {
	var out []tracks.TrackFormat
	for tc := range root.Path("media", "transcodings").Elements() {
		protocol := tc.Str("format", "protocol")
		if strings.Contains(protocol, "encrypted") {
			continue
		}
		if snipped, _ := tc.AsString("snipped"); snipped == "true" {
			continue
		}
		q := tracks.QualityLow
		if tc.Str("quality") == "hq" {
			q = tracks.QualityHigh
		}
		out = append(out, tracks.TrackFormat{
			Type:     tracks.ParseMime(tc.Str("format", "mime_type")),
			Quality:  q,
			Protocol: protocol,
			URL:      tc.Str("url"),
		})
	}
	return out
}
