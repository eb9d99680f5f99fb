package sources

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_tracks/internal/engine"
	"github.com/anatolykoptev/go_tracks/internal/engine/signature"
	"github.com/anatolykoptev/go_tracks/internal/engine/tracks"
)

const ytPlayerPath = "/s/player/abc123/player_ias.vflset/en_US/base.js"

const ytPlayerScript = `var Xy={xA:function(a){a.reverse()},` +
	`Vb:function(a,b){a.splice(0,b)},` +
	`qk:function(a,b){var c=a[0];a[0]=a[b%a.length];a[b%a.length]=c}};` +
	`Ol=function(a){a=a.split("");Xy.Vb(a,2);Xy.qk(a,3);Xy.xA(a,47);return a.join("")};`

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func ytVideo(id, title string) map[string]any {
	return map[string]any{"videoRenderer": map[string]any{
		"videoId": id,
		"title":   map[string]any{"runs": []any{map[string]any{"text": title}}},
		"ownerText": map[string]any{"runs": []any{map[string]any{
			"text": "Channel " + id,
			"navigationEndpoint": map[string]any{
				"browseEndpoint": map[string]any{"canonicalBaseUrl": "/@chan" + id},
			},
		}}},
		"lengthText":    map[string]any{"simpleText": "3:32"},
		"viewCountText": map[string]any{"simpleText": "1,234 views"},
		"thumbnail": map[string]any{"thumbnails": []any{
			map[string]any{"url": "https://i.ytimg.com/" + id + "/small.jpg"},
			map[string]any{"url": "https://i.ytimg.com/" + id + "/large.jpg"},
		}},
	}}
}

func ytSections(token string, videos ...map[string]any) []any {
	contents := make([]any, 0, len(videos))
	for _, v := range videos {
		contents = append(contents, v)
	}
	sections := []any{map[string]any{"itemSectionRenderer": map[string]any{"contents": contents}}}
	if token != "" {
		sections = append(sections, map[string]any{"continuationItemRenderer": map[string]any{
			"continuationEndpoint": map[string]any{"continuationCommand": map[string]any{"token": token}},
		}})
	}
	return sections
}

type ytFixture struct {
	t          *testing.T
	srv        *httptest.Server
	scriptHits atomic.Int32
	formats    []any
	playable   string
	details    bool
	blankTitle bool
}

func newYTFixture(t *testing.T) *ytFixture {
	f := &ytFixture{t: t, playable: "OK", details: true}
	mux := http.NewServeMux()
	mux.HandleFunc("/results", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "lofi beats", r.URL.Query().Get("search_query"))
		data := map[string]any{"contents": map[string]any{"twoColumnSearchResultsRenderer": map[string]any{
			"primaryContents": map[string]any{"sectionListRenderer": map[string]any{
				"contents": ytSections("CONT1",
					ytVideo("aaaaaaaaaaa", "First"),
					map[string]any{"playlistRenderer": map[string]any{"playlistId": "PL"}},
					ytVideo("bbbbbbbbbbb", "Second")),
			}},
		}}}
		_, _ = io.WriteString(w, `<html><body><script>var ytInitialData = `+mustJSON(data)+`;</script></body></html>`)
	})
	mux.HandleFunc("/youtubei/v1/search", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		var data map[string]any
		switch body["continuation"] {
		case "CONT1":
			data = map[string]any{"onResponseReceivedCommands": []any{map[string]any{
				"appendContinuationItemsAction": map[string]any{
					"continuationItems": ytSections("CONT2", ytVideo("ccccccccccc", "Third")),
				},
			}}}
		default:
			data = map[string]any{"onResponseReceivedCommands": []any{map[string]any{
				"appendContinuationItemsAction": map[string]any{
					"continuationItems": ytSections("", ytVideo("ddddddddddd", "Last")),
				},
			}}}
		}
		_, _ = io.WriteString(w, mustJSON(data))
	})
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("v")
		title := "Watched " + id
		if f.blankTitle {
			title = ""
		}
		player := map[string]any{
			"playabilityStatus": map[string]any{"status": f.playable, "reason": "unavailable"},
			"streamingData":     map[string]any{"adaptiveFormats": f.formats},
		}
		if f.details {
			player["videoDetails"] = map[string]any{
				"videoId": id, "title": title, "lengthSeconds": "212",
				"author": "Uploader", "channelId": "UC123", "viewCount": "9876",
			}
		}
		_, _ = io.WriteString(w, `<html><head><meta property="og:title" content="Page title">`+
			`<script src="`+ytPlayerPath+`"></script>`+
			`<script>ytcfg.set({"jsUrl":"`+ytPlayerPath+`"});</script>`+
			`<script>var ytInitialPlayerResponse = `+mustJSON(player)+`;</script></head></html>`)
	})
	mux.HandleFunc(ytPlayerPath, func(w http.ResponseWriter, r *http.Request) {
		f.scriptHits.Add(1)
		_, _ = io.WriteString(w, ytPlayerScript)
	})
	mux.HandleFunc("/videoplayback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("bad") == "" && (q.Get("sig") == "cedf" || q.Get("ready") != "") {
			w.WriteHeader(http.StatusPartialContent)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *ytFixture) config() engine.Config {
	c := engine.DefaultConfig()
	c.YouTubeURL = f.srv.URL
	c.HTTPClient = &http.Client{Timeout: 5 * time.Second}
	return c
}

func (f *ytFixture) client(d signature.Descrambler) *YouTubeClient {
	c := f.config()
	tr := engine.NewTransport(c)
	if d == nil {
		d = signature.NewScriptDescrambler(tr, 4)
	}
	return NewYouTube(tr, d, c)
}

func TestYouTubeSearchAndNext(t *testing.T) {
	f := newYTFixture(t)
	yt := f.client(nil)
	ctx := context.Background()

	l, err := yt.Search(ctx, "lofi beats")
	require.NoError(t, err)
	require.Equal(t, 2, l.Len())

	first := l.Tracks[0]
	assert.Equal(t, tracks.YouTube, first.Source)
	assert.Equal(t, "First", first.Title)
	assert.Equal(t, f.srv.URL+"/watch?v=aaaaaaaaaaa", first.URL)
	assert.Equal(t, 212*time.Second, first.Duration)
	assert.Equal(t, "Channel aaaaaaaaaaa", first.Channel)
	assert.Equal(t, f.srv.URL+"/@chanaaaaaaaaaaa", first.ChannelURL)
	assert.Equal(t, int64(1234), first.Views)
	assert.Equal(t, "https://i.ytimg.com/aaaaaaaaaaa/large.jpg", first.Thumbnail)

	assert.Equal(t, tracks.QuerySearch, l.Query[tracks.KeyQueryType])
	assert.Equal(t, "0", l.Query["ytPosition"])
	assert.Equal(t, "2", l.Query["ytOffset"])
	assert.Equal(t, "CONT1", l.Query["ytToken"])
	assert.True(t, yt.HasPagingValues(l))

	next, err := l.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, next.Len())
	assert.Equal(t, "Third", next.Tracks[0].Title)
	assert.Equal(t, tracks.QueryNext, next.Query[tracks.KeyQueryType])
	assert.Equal(t, "2", next.Query["ytPosition"])
	assert.Equal(t, "3", next.Query["ytOffset"])
	assert.Equal(t, "lofi beats", next.Query[tracks.KeyQuery])

	last, err := next.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Last", last.Tracks[0].Title)
	assert.False(t, yt.HasPagingValues(last), "no continuation means exhausted")

	_, err = last.Next(ctx)
	assert.True(t, errors.Is(err, tracks.ErrMissingPagingValues))
}

func TestYouTubeNextRejectsLookupLists(t *testing.T) {
	yt := newYTFixture(t).client(nil)
	l := tracks.NewTrackList(nil, tracks.QueryInfo{
		tracks.KeyQueryType: tracks.QueryLookup,
		"ytPosition":        "0",
		"ytOffset":          "1",
		"ytToken":           "x",
	}, nil)
	_, err := yt.Next(context.Background(), l)
	assert.True(t, errors.Is(err, tracks.ErrUnsupportedQueryType))
}

func cipherFormat(mime, quality string, rate int, base string) map[string]any {
	return map[string]any{
		"mimeType":        mime,
		"audioQuality":    quality,
		"audioSampleRate": rate,
		"signatureCipher": "s=abcdef&sp=sig&url=" + url.QueryEscape(base),
	}
}

func TestYouTubeResolveStreamDescrambles(t *testing.T) {
	f := newYTFixture(t)
	f.formats = []any{
		map[string]any{"mimeType": `audio/mp4; codecs="mp4a.40.2"`, "audioQuality": "AUDIO_QUALITY_LOW", "audioSampleRate": "44100", "url": f.srv.URL + "/videoplayback?ready=1"},
		cipherFormat(`audio/webm; codecs="opus"`, "AUDIO_QUALITY_MEDIUM", 48000, f.srv.URL+"/videoplayback?id=1"),
		map[string]any{"mimeType": `video/mp4; codecs="avc1"`, "url": f.srv.URL + "/videoplayback?ready=video"},
	}
	yt := f.client(nil)

	tr := (&tracks.Track{Source: tracks.YouTube, ID: "aaaaaaaaaaa", URL: f.srv.URL + "/watch?v=aaaaaaaaaaa"}).Bind(yt)
	st, err := tr.StreamRetry(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, f.srv.URL+"/videoplayback?id=1&sig=cedf", st.URL)
	assert.Equal(t, tracks.AudioWebM, st.Format.Type)
	assert.Equal(t, 1, st.Attempts)

	info := tr.Info()
	require.NotNil(t, info)
	assert.Len(t, info.Formats, 3)
	assert.Equal(t, f.srv.URL+ytPlayerPath, info.ScriptURL)

	_, err = tr.Stream(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.scriptHits.Load(), "player script parsed once")
}

type countingDescrambler struct{ calls atomic.Int32 }

func (c *countingDescrambler) Descramble(context.Context, string, string) (string, error) {
	c.calls.Add(1)
	return "", errors.New("should not be called")
}

func TestYouTubeStreamReadyUsedVerbatim(t *testing.T) {
	f := newYTFixture(t)
	ready := f.srv.URL + "/videoplayback?ready=1&sparams=ip%2Cipbits"
	f.formats = []any{
		map[string]any{"mimeType": "audio/mp4", "audioQuality": "AUDIO_QUALITY_MEDIUM", "url": ready},
	}
	d := &countingDescrambler{}
	yt := f.client(d)

	st, err := yt.ResolveStream(context.Background(), &tracks.Track{Source: tracks.YouTube, ID: "aaaaaaaaaaa"})
	require.NoError(t, err)
	assert.Equal(t, ready, st.URL)
	assert.Zero(t, d.calls.Load())
}

func TestYouTubeResolveStreamErrors(t *testing.T) {
	f := newYTFixture(t)
	yt := f.client(nil)
	tr := &tracks.Track{Source: tracks.YouTube, ID: "aaaaaaaaaaa"}

	f.formats = nil
	_, err := yt.ResolveStream(context.Background(), tr)
	assert.True(t, errors.Is(err, tracks.ErrNoApplicableFormat))

	f.formats = []any{map[string]any{"mimeType": "audio/mp4", "audioQuality": "AUDIO_QUALITY_LOW", "signatureCipher": "sp=sig"}}
	_, err = yt.ResolveStream(context.Background(), tr)
	assert.True(t, errors.Is(err, tracks.ErrParse))

	f.playable = "LOGIN_REQUIRED"
	_, err = yt.ResolveStream(context.Background(), tr)
	assert.True(t, errors.Is(err, tracks.ErrNoApplicableFormat))
}

func TestYouTubeStreamRetryExhausted(t *testing.T) {
	f := newYTFixture(t)
	// Signature is never accepted by /videoplayback.
	f.formats = []any{cipherFormat("audio/webm", "AUDIO_QUALITY_MEDIUM", 48000, f.srv.URL+"/videoplayback?bad=1")}
	old := tracks.StreamRetryWait
	tracks.StreamRetryWait = time.Millisecond
	defer func() { tracks.StreamRetryWait = old }()

	yt := f.client(nil)
	_, err := (&tracks.Track{Source: tracks.YouTube, ID: "aaaaaaaaaaa"}).Bind(yt).StreamRetry(context.Background(), 2)
	var nse *tracks.NoStreamError
	require.True(t, errors.As(err, &nse))
	assert.Equal(t, 3, nse.Attempts)
}

func TestYouTubeLookup(t *testing.T) {
	f := newYTFixture(t)
	yt := f.client(nil)

	l, err := yt.Lookup(context.Background(), "https://youtu.be/aaaaaaaaaaa")
	require.NoError(t, err)
	require.Equal(t, 1, l.Len())
	tr := l.Tracks[0]
	assert.Equal(t, "Watched aaaaaaaaaaa", tr.Title)
	assert.Equal(t, 212*time.Second, tr.Duration)
	assert.Equal(t, int64(9876), tr.Views)
	assert.Equal(t, f.srv.URL+"/channel/UC123", tr.ChannelURL)
	assert.Equal(t, tracks.QueryLookup, l.Query[tracks.KeyQueryType])

	_, err = l.Next(context.Background())
	assert.True(t, errors.Is(err, tracks.ErrUnsupportedQueryType))

	_, err = yt.Lookup(context.Background(), "https://example.com/nothing")
	assert.True(t, errors.Is(err, tracks.ErrParse))
}

func TestYouTubeLookupPlayerShapes(t *testing.T) {
	f := newYTFixture(t)
	yt := f.client(nil)
	ctx := context.Background()

	f.blankTitle = true
	l, err := yt.Lookup(ctx, "https://youtu.be/aaaaaaaaaaa")
	require.NoError(t, err)
	assert.Equal(t, "Page title", l.Tracks[0].Title, "falls back to og:title")

	f.details = false
	_, err = yt.Lookup(ctx, "https://youtu.be/aaaaaaaaaaa")
	assert.True(t, errors.Is(err, tracks.ErrParse), "player response without videoDetails")
}

func TestYouTubeOwns(t *testing.T) {
	yt := NewYouTube(nil, nil, engine.DefaultConfig())
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", true},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", true},
		{"https://music.youtube.com/watch?v=dQw4w9WgXcQ&list=RD", true},
		{"https://soundcloud.com/artist/track", false},
		{"not a url", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, yt.Owns(tt.url), tt.url)
	}
}
