package tracks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

var (
	// StreamRetryWait is the pause between full resolution attempts.
	StreamRetryWait = 250 * time.Millisecond
	// MaxStreamRetries caps the retries ResolveWithRetry accepts.
	MaxStreamRetries = 10
)

var errValidation = errors.New("stream validation failed")

// ResolveWithRetry resolves t through s and validates the result, retrying
// the whole resolution on transport and validation failures. A fresh attempt
// re-fetches the track info, since the backend may serve a differently
// scrambled response each time. At most retries+1 attempts are made, with
// retries clamped to [0, MaxStreamRetries].
func ResolveWithRetry(ctx context.Context, s Streamer, t *Track, retries int) (*Stream, error) {
	retries = min(max(retries, 0), max(MaxStreamRetries, 0))
	attempts := 0

	operation := func() (*Stream, error) {
		attempts++
		st, err := s.ResolveStream(ctx, t)
		if err != nil {
			if Permanent(err) {
				return nil, backoff.Permanent(err)
			}
			slog.Debug("stream: resolve failed", slog.String("track", t.URL),
				slog.Int("attempt", attempts), slog.Any("error", err))
			return nil, err
		}
		if err := s.ValidateStream(ctx, st.URL); err != nil {
			slog.Debug("stream: validation failed", slog.String("track", t.URL),
				slog.Int("attempt", attempts), slog.Any("error", err))
			return nil, fmt.Errorf("%w: %w", errValidation, err)
		}
		st.Attempts = attempts
		return st, nil
	}

	st, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(StreamRetryWait)),
		backoff.WithMaxTries(uint(retries+1)),
	)
	if err == nil {
		return st, nil
	}
	if Permanent(err) {
		return nil, err
	}
	return nil, &NoStreamError{Attempts: attempts, Err: err}
}
