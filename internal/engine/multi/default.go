package multi

import (
	"github.com/anatolykoptev/go_tracks/internal/engine"
	"github.com/anatolykoptev/go_tracks/internal/engine/signature"
	"github.com/anatolykoptev/go_tracks/internal/engine/sources"
	"github.com/anatolykoptev/go_tracks/internal/engine/tracks"
)

// NewDefault wires the YouTube and SoundCloud clients over one transport,
// YouTube first, and applies the stream retry settings of c.
func NewDefault(c engine.Config) *Aggregator {
	if c.StreamRetryWait >= 0 {
		tracks.StreamRetryWait = c.StreamRetryWait
	}
	if c.MaxStreamRetries > 0 {
		tracks.MaxStreamRetries = c.MaxStreamRetries
	}

	transport := engine.NewTransport(c)
	descrambler := signature.NewScriptDescrambler(transport, c.ScriptCacheSize)
	return New(
		sources.NewYouTube(transport, descrambler, c),
		sources.NewSoundCloud(transport, c),
	)
}
