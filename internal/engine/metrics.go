package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	HTTPRequests       atomic.Int64
	ValidationRequests atomic.Int64
	SearchRequests     atomic.Int64
	NextRequests       atomic.Int64
	YouTubeRequests    atomic.Int64
	SoundCloudRequests atomic.Int64
	StreamResolutions  atomic.Int64
	StreamRetries      atomic.Int64
	StreamFailures     atomic.Int64
	Descrambles        atomic.Int64
	DescrambleFailures atomic.Int64
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"http_requests":       metrics.HTTPRequests.Load(),
		"validation_requests": metrics.ValidationRequests.Load(),
		"search_requests":     metrics.SearchRequests.Load(),
		"next_requests":       metrics.NextRequests.Load(),
		"youtube_requests":    metrics.YouTubeRequests.Load(),
		"soundcloud_requests": metrics.SoundCloudRequests.Load(),
		"stream_resolutions":  metrics.StreamResolutions.Load(),
		"stream_retries":      metrics.StreamRetries.Load(),
		"stream_failures":     metrics.StreamFailures.Load(),
		"descrambles":         metrics.Descrambles.Load(),
		"descramble_failures": metrics.DescrambleFailures.Load(),
		"cache_hits":          hits,
		"cache_misses":        misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"http_requests", "validation_requests",
		"search_requests", "next_requests",
		"youtube_requests", "soundcloud_requests",
		"stream_resolutions", "stream_retries", "stream_failures",
		"descrambles", "descramble_failures",
		"cache_hits", "cache_misses",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for sub-packages.
func IncrSearch()            { metrics.SearchRequests.Add(1) }
func IncrNext()              { metrics.NextRequests.Add(1) }
func IncrYouTube()           { metrics.YouTubeRequests.Add(1) }
func IncrSoundCloud()        { metrics.SoundCloudRequests.Add(1) }
func IncrStreamResolution()  { metrics.StreamResolutions.Add(1) }
func IncrStreamRetry()       { metrics.StreamRetries.Add(1) }
func IncrStreamFailure()     { metrics.StreamFailures.Add(1) }
func IncrDescramble()        { metrics.Descrambles.Add(1) }
func IncrDescrambleFailure() { metrics.DescrambleFailures.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
