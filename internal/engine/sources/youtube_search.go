package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/anatolykoptev/go_tracks/internal/engine"
	"github.com/anatolykoptev/go_tracks/internal/engine/tracks"
	"github.com/anatolykoptev/go_tracks/internal/engine/tree"
)

const ytSearchFilter = "EgIQAQ%3D%3D" // videos-only filter param

var ytInitialDataMarkers = []string{"var ytInitialData", `window["ytInitialData"]`}

// Search scrapes the first results page and its continuation token.
func (y *YouTubeClient) Search(ctx context.Context, query string) (*tracks.TrackList, error) {
	searchURL := y.baseURL + "/results?search_query=" + url.QueryEscape(query) + "&sp=" + ytSearchFilter

	engine.IncrYouTube()
	status, body, err := y.transport.Get(ctx, searchURL, map[string]string{
		"accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"accept-language": "en-US,en;q=0.9",
	})
	if err != nil {
		return nil, fmt.Errorf("youtube search page: %w", err)
	}
	if status != http.StatusOK {
		return nil, statusErr("youtube search page", status)
	}

	root, err := extractInitial(body, ytInitialDataMarkers...)
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}
	items, token, err := y.parseResults(root)
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}
	slog.Debug("youtube: search page", slog.String("query", query),
		slog.Int("tracks", len(items)), slog.Bool("more", token != ""))
	return tracks.NewTrackList(items, firstPage(tracks.YouTube, query, len(items), token), y.Next), nil
}

// Next fetches the continuation page of a search through Innertube.
func (y *YouTubeClient) Next(ctx context.Context, l *tracks.TrackList) (*tracks.TrackList, error) {
	if err := checkNext(l, tracks.YouTube); err != nil {
		return nil, fmt.Errorf("youtube next: %w", err)
	}
	root, err := y.postInnertube(ctx, ytSearchPath, map[string]any{
		"continuation": l.Query[tracks.TokenKey(tracks.YouTube)],
	})
	if err != nil {
		return nil, fmt.Errorf("youtube next: %w", err)
	}
	items, token, err := y.parseResults(root)
	if err != nil {
		return nil, fmt.Errorf("youtube next: %w", err)
	}
	return tracks.NewTrackList(items, nextPage(tracks.YouTube, l.Query, len(items), token), y.Next), nil
}

// extractInitial parses page and returns the JSON object assigned after
// one of the markers.
func extractInitial(page []byte, markers ...string) (tree.Node, error) {
	doc, err := tree.ParseHTML(page)
	if err != nil {
		return tree.Null(), parseErr("html", err)
	}
	return initialFromDoc(doc, markers...)
}

// parseResults reads video renderers from a results page or a continuation
// response. Both shapes carry item sections plus a continuation item.
func (y *YouTubeClient) parseResults(root tree.Node) ([]*tracks.Track, string, error) {
	sections := root.Path("contents", "twoColumnSearchResultsRenderer", "primaryContents", "sectionListRenderer", "contents").
		OrElse(root.Path("onResponseReceivedCommands", "0", "appendContinuationItemsAction", "continuationItems")).
		OrElse(root.Path("onResponseReceivedActions", "0", "appendContinuationItemsAction", "continuationItems"))
	if sections.IsNull() {
		return nil, "", parseErr("results", errors.New("no result sections"))
	}

	var (
		items []*tracks.Track
		token string
	)
	for sec := range sections.Elements() {
		for item := range sec.Path("itemSectionRenderer", "contents").Elements() {
			if t := y.videoTrack(item.Path("videoRenderer")); t != nil {
				items = append(items, t)
			}
		}
		if tok, ok := sec.AsString("continuationItemRenderer", "continuationEndpoint", "continuationCommand", "token"); ok {
			token = tok
		}
	}
	return items, token, nil
}

// videoTrack maps a videoRenderer to a track; nil when it has no video id.
func (y *YouTubeClient) videoTrack(vr tree.Node) *tracks.Track {
	id, ok := vr.AsString("videoId")
	if !ok || id == "" {
		return nil
	}
	owner := vr.Path("ownerText").
		OrElse(vr.Path("longBylineText")).
		OrElse(vr.Path("shortBylineText"))
	channelPath := owner.Path("runs", "0", "navigationEndpoint", "browseEndpoint", "canonicalBaseUrl").
		OrElse(owner.Path("runs", "0", "navigationEndpoint", "commandMetadata", "webCommandMetadata", "url")).
		Str()
	length := vr.Path("lengthText").
		OrElse(vr.Path("thumbnailOverlays", "0", "thumbnailOverlayTimeStatusRenderer", "text"))

	t := &tracks.Track{
		Source:    tracks.YouTube,
		ID:        id,
		Title:     engine.TruncateRunes(engine.CleanHTML(vr.Text("title")), 300, "..."),
		Duration:  parseClock(length.Text()),
		URL:       y.canonicalURL(id),
		Channel:   owner.Text(),
		Views:     parseCount(vr.Text("viewCountText")),
		Thumbnail: vr.Path("thumbnail", "thumbnails").Last().Str("url"),
	}
	if channelPath != "" {
		t.ChannelURL = resolveRef(y.baseURL, channelPath)
	}
	return t.Bind(y)
}
