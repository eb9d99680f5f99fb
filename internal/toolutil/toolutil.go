// Package toolutil provides input normalisation shared by the MCP tools and
// the trackctl command.
package toolutil

import (
	"fmt"
	"strings"

	"github.com/anatolykoptev/go_tracks/internal/engine/tracks"
)

var sourceAliases = map[string]tracks.Source{
	"yt":         tracks.YouTube,
	"youtube":    tracks.YouTube,
	"sc":         tracks.SoundCloud,
	"soundcloud": tracks.SoundCloud,
}

// ParseSources maps user-facing source names to tags. Empty input and "all"
// select every source and yield nil. Duplicates are dropped.
func ParseSources(names []string) ([]tracks.Source, error) {
	var out []tracks.Source
	seen := make(map[tracks.Source]bool, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if name == "all" {
			return nil, nil
		}
		src, ok := sourceAliases[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown source %q", tracks.ErrNoSourcesSelected, name)
		}
		if !seen[src] {
			seen[src] = true
			out = append(out, src)
		}
	}
	return out, nil
}

// NormRetries returns *r, or def when r is nil, clamped to [0, limit].
func NormRetries(r *int, def, limit int) int {
	n := def
	if r != nil {
		n = *r
	}
	return min(max(n, 0), max(limit, 0))
}
