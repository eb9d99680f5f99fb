package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/anatolykoptev/go_tracks/internal/engine"
	"github.com/anatolykoptev/go_tracks/internal/engine/tracks"
	"github.com/anatolykoptev/go_tracks/internal/engine/tree"
)

var (
	ytPlayerMarkers = []string{"var ytInitialPlayerResponse", "ytInitialPlayerResponse"}
	jsURLRe         = regexp.MustCompile(`"jsUrl"\s*:\s*"([^"]+)"`)
)

// ytPlayer is the parsed player response of a watch page.
type ytPlayer struct {
	root      tree.Node
	scriptURL string
	pageTitle string
}

// fetchPlayer loads the watch page and extracts the player response and the
// player script location.
func (y *YouTubeClient) fetchPlayer(ctx context.Context, id string) (*ytPlayer, error) {
	watchURL := y.canonicalURL(id) + "&bpctr=9999999999&has_verified=1"
	engine.IncrYouTube()
	status, body, err := y.transport.Get(ctx, watchURL, map[string]string{
		"accept-language": "en-US,en;q=0.9",
	})
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}
	if status != http.StatusOK {
		return nil, statusErr("watch page", status)
	}

	doc, err := tree.ParseHTML(body)
	if err != nil {
		return nil, parseErr("watch page", err)
	}
	root, err := initialFromDoc(doc, ytPlayerMarkers...)
	if err != nil {
		return nil, err
	}

	p := &ytPlayer{root: root, pageTitle: doc.Meta("og:title")}
	if m := jsURLRe.FindSubmatch(body); m != nil {
		p.scriptURL = resolveRef(y.baseURL, string(m[1]))
	} else {
		for _, src := range doc.ScriptSources() {
			if strings.Contains(src, "/player/") && strings.HasSuffix(src, "base.js") {
				p.scriptURL = resolveRef(y.baseURL, src)
				break
			}
		}
	}

	if st := root.Str("playabilityStatus", "status"); st != "" && st != "OK" {
		return p, fmt.Errorf("%w: playability %s: %s", tracks.ErrNoApplicableFormat, st, root.Str("playabilityStatus", "reason"))
	}
	if !root.Has("videoDetails") {
		return p, parseErr("player response", errors.New("no videoDetails"))
	}
	return p, nil
}

// initialFromDoc returns the JSON object assigned after the first matching
// marker in any inline script.
func initialFromDoc(doc *tree.Document, markers ...string) (tree.Node, error) {
	for _, script := range doc.InlineScripts() {
		for _, m := range markers {
			if root, err := tree.ExtractJSONObject(script, m); err == nil {
				return root, nil
			}
		}
	}
	return tree.Null(), parseErr("initial data", errors.New("no marker "+markers[0]))
}

// track builds a track from videoDetails.
func (p *ytPlayer) track(y *YouTubeClient) *tracks.Track {
	d := p.root.Path("videoDetails")
	id := d.Str("videoId")
	secs, _ := d.AsLong("lengthSeconds")
	views, _ := d.AsLong("viewCount")
	t := &tracks.Track{
		Source:    tracks.YouTube,
		ID:        id,
		Title:     d.Str("title"),
		Duration:  time.Duration(secs) * time.Second,
		URL:       y.canonicalURL(id),
		Channel:   d.Str("author"),
		Views:     views,
		Thumbnail: d.Path("thumbnail", "thumbnails").Last().Str("url"),
	}
	if t.Title == "" {
		t.Title = p.pageTitle
	}
	if ch := d.Str("channelId"); ch != "" {
		t.ChannelURL = y.baseURL + "/channel/" + ch
	}
	return t.Bind(y)
}

// info collects every adaptive and muxed format.
func (p *ytPlayer) info() *tracks.TrackInfo {
	sd := p.root.Path("streamingData")
	var formats []tracks.TrackFormat
	for _, list := range []tree.Node{sd.Path("adaptiveFormats"), sd.Path("formats")} {
		for f := range list.Elements() {
			tf, ok := parseYouTubeFormat(f)
			if ok {
				formats = append(formats, tf)
			}
		}
	}
	return &tracks.TrackInfo{Formats: formats, ScriptURL: p.scriptURL}
}

func parseYouTubeFormat(f tree.Node) (tracks.TrackFormat, bool) {
	rate, _ := f.AsLong("audioSampleRate")
	tf := tracks.TrackFormat{
		Type:       tracks.ParseMime(f.Str("mimeType")),
		Quality:    tracks.ParseAudioQuality(f.Str("audioQuality")),
		SampleRate: int(rate),
		Protocol:   tracks.ProtocolProgressive,
	}
	if u, ok := f.AsString("url"); ok && u != "" {
		tf.URL, tf.StreamReady = u, true
		return tf, true
	}
	cipher := f.Path("signatureCipher").OrElse(f.Path("cipher")).Str()
	if cipher == "" {
		return tf, false
	}
	tf.URL = cipher
	return tf, true
}

// ResolveStream refreshes the track's formats, picks the best audio format
// and descrambles its signature when needed.
func (y *YouTubeClient) ResolveStream(ctx context.Context, t *tracks.Track) (*tracks.Stream, error) {
	engine.IncrStreamResolution()
	id := t.ID
	if id == "" {
		id = y.videoID(t.URL)
	}
	p, err := y.fetchPlayer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("youtube stream %s: %w", id, err)
	}
	info := p.info()
	t.SetInfo(info)

	f, err := tracks.BestTieredFormat(info.Formats, false)
	if err != nil {
		return nil, fmt.Errorf("youtube stream %s: %w", id, err)
	}
	if f.StreamReady {
		return &tracks.Stream{URL: f.URL, Format: f}, nil
	}

	streamURL, err := y.descrambleURL(ctx, info.ScriptURL, f.URL)
	if err != nil {
		return nil, fmt.Errorf("youtube stream %s: %w", id, err)
	}
	return &tracks.Stream{URL: streamURL, Format: f}, nil
}

// descrambleURL decodes a signatureCipher query (s, sp, url) and appends the
// recovered signature to its URL.
func (y *YouTubeClient) descrambleURL(ctx context.Context, scriptURL, cipher string) (string, error) {
	vals, err := url.ParseQuery(cipher)
	if err != nil {
		return "", parseErr("signature cipher", err)
	}
	s, base := vals.Get("s"), vals.Get("url")
	if s == "" || base == "" {
		return "", parseErr("signature cipher", errors.New("missing s or url"))
	}
	sp := vals.Get("sp")
	if sp == "" {
		sp = "signature"
	}
	if scriptURL == "" {
		return "", fmt.Errorf("%w: player script url not found", tracks.ErrDescramblingFailed)
	}
	sig, err := y.descrambler.Descramble(ctx, scriptURL, s)
	if err != nil {
		return "", err
	}
	return engine.AppendQuery(base, sp, url.QueryEscape(sig)), nil
}
