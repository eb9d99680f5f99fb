// Package sources implements the per-backend track clients.
package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go_tracks/internal/engine"
	"github.com/anatolykoptev/go_tracks/internal/engine/tracks"
)

// parseErr tags a tree parse failure as a document shape problem.
func parseErr(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", tracks.ErrParse, what, err)
}

// statusErr reports an unexpected HTTP status. It is retryable by the stream
// resolver since backends flap between 200 and 403 on the same request.
func statusErr(what string, status int) error {
	return fmt.Errorf("%w: %s: status %d", engine.ErrTransport, what, status)
}

// validateStream issues a two-byte range request against a stream URL and
// accepts 200 or 206.
func validateStream(ctx context.Context, t engine.Transport, streamURL string) error {
	status, err := t.HeadRange(ctx, streamURL)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusPartialContent {
		return statusErr("validate stream", status)
	}
	return nil
}

// checkNext rejects lists that cannot be paged for src.
func checkNext(l *tracks.TrackList, src tracks.Source) error {
	if l == nil || !l.Query.Pageable() {
		return tracks.ErrUnsupportedQueryType
	}
	if !l.Query.HasPagingValues(src) {
		return tracks.ErrMissingPagingValues
	}
	return nil
}

// firstPage builds the query info of an initial search page.
func firstPage(src tracks.Source, query string, count int, token string) tracks.QueryInfo {
	q := tracks.QueryInfo{
		tracks.KeyQuery:     query,
		tracks.KeyQueryType: tracks.QuerySearch,
	}
	q.SetInt(tracks.PositionKey(src), 0)
	q.SetInt(tracks.OffsetKey(src), count)
	if token != "" {
		q[tracks.TokenKey(src)] = token
	}
	return q
}

// nextPage builds the query info of a follow-up page and stamps its
// position/offset relative to prev.
func nextPage(src tracks.Source, prev tracks.QueryInfo, count int, token string) tracks.QueryInfo {
	q := tracks.QueryInfo{
		tracks.KeyQuery:     prev[tracks.KeyQuery],
		tracks.KeyQueryType: tracks.QueryNext,
	}
	q.SetInt(tracks.OffsetKey(src), count)
	if token != "" {
		q[tracks.TokenKey(src)] = token
	}
	tracks.StampPaging(prev, q, src)
	return q
}

// resolveRef resolves ref against base, returning ref unchanged on failure.
func resolveRef(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// hostOf returns the lower-cased host[:port] of rawURL without a www. prefix.
func hostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

// parseClock parses "3:32" or "1:02:03" durations.
func parseClock(s string) time.Duration {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) == 0 || len(parts) > 3 {
		return 0
	}
	var secs int
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0
		}
		secs = secs*60 + n
	}
	return time.Duration(secs) * time.Second
}

// parseCount extracts the digits of a display count such as "1,234 views".
func parseCount(s string) int64 {
	var n int64
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n = n*10 + int64(r-'0')
		}
	}
	return n
}
