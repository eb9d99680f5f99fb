package signature

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/anatolykoptev/go_tracks/internal/engine"
)

// Descrambler turns a scrambled signature into a valid one using the player
// script at scriptURL.
type Descrambler interface {
	Descramble(ctx context.Context, scriptURL, cipher string) (string, error)
}

// ScriptDescrambler fetches player scripts through a transport and caches the
// parsed operations per script URL.
type ScriptDescrambler struct {
	transport engine.Transport
	cache     *engine.Ring[[]Part]
}

// NewScriptDescrambler returns a descrambler caching up to capacity scripts.
func NewScriptDescrambler(t engine.Transport, capacity int) *ScriptDescrambler {
	return &ScriptDescrambler{transport: t, cache: engine.NewRing[[]Part](capacity)}
}

// Descramble implements Descrambler.
func (d *ScriptDescrambler) Descramble(ctx context.Context, scriptURL, cipher string) (string, error) {
	engine.IncrDescramble()
	parts, err := d.Parts(ctx, scriptURL)
	if err != nil {
		engine.IncrDescrambleFailure()
		return "", err
	}
	return Apply(parts, cipher), nil
}

// Parts returns the operation sequence for scriptURL, fetching and parsing
// the script on a cache miss. Concurrent misses may both load; the last
// writer wins since the parsed result is the same.
func (d *ScriptDescrambler) Parts(ctx context.Context, scriptURL string) ([]Part, error) {
	return d.cache.GetOrLoad(scriptURL, func() ([]Part, error) {
		status, body, err := d.transport.Get(ctx, scriptURL, nil)
		if err != nil {
			return nil, fmt.Errorf("fetch player script: %w", err)
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("%w: player script status %d", engine.ErrTransport, status)
		}
		parts, err := Parse(string(body))
		if err != nil {
			if errors.Is(err, ErrLayout) {
				slog.Warn("signature: player script layout changed",
					slog.String("script", scriptURL), slog.Any("error", err))
			}
			return nil, err
		}
		slog.Debug("signature: parsed player script",
			slog.String("script", scriptURL), slog.Int("parts", len(parts)))
		return parts, nil
	})
}
