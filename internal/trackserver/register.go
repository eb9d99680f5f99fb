// Package trackserver exposes the track engine as MCP tools.
package trackserver

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_tracks/internal/engine/multi"
)

// handlers binds the tool callbacks to one aggregator.
type handlers struct {
	agg        *multi.Aggregator
	retries    int
	maxRetries int
}

// RegisterTools registers the track tools on the given MCP server:
// track_search, track_next, track_lookup, track_stream. retries is the
// track_stream default when the caller does not set one; caller-supplied
// values are capped at maxRetries.
func RegisterTools(server *mcp.Server, agg *multi.Aggregator, retries, maxRetries int) {
	h := &handlers{agg: agg, retries: retries, maxRetries: maxRetries}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "track_search",
		Description: "Search YouTube and SoundCloud for tracks. Returns tracks (source, title, duration, url, channel, views) merged across sources plus a cursor. Pass the cursor to track_next for the following page.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, h.search)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "track_next",
		Description: "Fetch the next page of a track_search result. Only sources whose cursor is still live are queried. has_more=false means every source is exhausted.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, h.next)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "track_lookup",
		Description: "Look up a single track by URL (YouTube watch/shorts/youtu.be link or SoundCloud permalink).",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, h.lookup)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "track_stream",
		Description: "Resolve a playable audio stream URL for a track URL. Picks the best audio format, descrambles YouTube signatures, and validates the URL, retrying the whole resolution on failure.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, h.stream)
}
