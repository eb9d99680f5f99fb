package trackserver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_tracks/internal/engine/tracks"
	"github.com/anatolykoptev/go_tracks/internal/toolutil"
)

func (h *handlers) search(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, TrackListOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, TrackListOutput{}, fmt.Errorf("query is required")
	}
	srcs, err := toolutil.ParseSources(input.Sources)
	if err != nil {
		return nil, TrackListOutput{}, err
	}
	if srcs == nil {
		srcs = h.agg.Sources()
	}

	l, err := h.agg.SearchSources(ctx, query, srcs...)
	if err != nil {
		slog.Warn("track_search failed", slog.String("query", query), slog.Any("error", err))
		return nil, TrackListOutput{}, fmt.Errorf("search %q: %w", query, err)
	}
	slog.Info("track_search", slog.String("query", query), slog.Int("tracks", l.Len()))
	return nil, toListOutput(h.agg, l), nil
}

func (h *handlers) next(ctx context.Context, req *mcp.CallToolRequest, input NextInput) (*mcp.CallToolResult, TrackListOutput, error) {
	if len(input.Cursor) == 0 {
		return nil, TrackListOutput{}, fmt.Errorf("cursor is required")
	}
	prev := (&tracks.TrackList{Query: tracks.QueryInfo(input.Cursor).Clone()}).Rebind(h.agg.Next)
	l, err := prev.Next(ctx)
	if err != nil {
		return nil, TrackListOutput{}, fmt.Errorf("next page: %w", err)
	}
	return nil, toListOutput(h.agg, l), nil
}

func (h *handlers) lookup(ctx context.Context, req *mcp.CallToolRequest, input LookupInput) (*mcp.CallToolResult, TrackItem, error) {
	t, err := h.lookupTrack(ctx, input.URL)
	if err != nil {
		return nil, TrackItem{}, err
	}
	return nil, toItem(t), nil
}

func (h *handlers) stream(ctx context.Context, req *mcp.CallToolRequest, input StreamInput) (*mcp.CallToolResult, StreamOutput, error) {
	t, err := h.lookupTrack(ctx, input.URL)
	if err != nil {
		return nil, StreamOutput{}, err
	}
	retries := toolutil.NormRetries(input.Retries, h.retries, h.maxRetries)
	st, err := h.agg.ResolveStream(ctx, t, retries)
	if err != nil {
		slog.Warn("track_stream failed", slog.String("url", t.URL), slog.Int("retries", retries), slog.Any("error", err))
		return nil, StreamOutput{}, fmt.Errorf("stream %s: %w", t.URL, err)
	}
	return nil, StreamOutput{
		Track:      toItem(t),
		StreamURL:  st.URL,
		Format:     st.Format.Type.String(),
		Quality:    st.Format.Quality.String(),
		Protocol:   st.Format.Protocol,
		SampleRate: st.Format.SampleRate,
		Attempts:   st.Attempts,
	}, nil
}

func (h *handlers) lookupTrack(ctx context.Context, rawURL string) (*tracks.Track, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("url is required")
	}
	l, err := h.agg.Lookup(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", rawURL, err)
	}
	if l.Len() == 0 {
		return nil, fmt.Errorf("lookup %s: %w: empty result", rawURL, tracks.ErrParse)
	}
	return l.Tracks[0], nil
}
