package engine

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"
)

// ErrTransport marks network and IO failures. Everything else a source
// returns is a response it understood well enough to reject.
var ErrTransport = errors.New("transport error")

// Transport is the HTTP surface the sources and the descrambler consume.
// Non-2xx statuses are returned, not treated as errors, except retryable
// statuses that are still failing after the retry budget.
type Transport interface {
	Get(ctx context.Context, rawURL string, headers map[string]string) (int, []byte, error)
	Post(ctx context.Context, rawURL string, headers map[string]string, body []byte) (int, []byte, error)
	// HeadRange issues a two-byte range request and reports the status.
	HeadRange(ctx context.Context, rawURL string) (int, error)
}

// HTTPTransport sends requests through the stealth browser client when one is
// configured, otherwise through a plain http.Client.
type HTTPTransport struct {
	client  *http.Client
	browser *BrowserClient
	limiter *rate.Limiter
	maxBody int64
	tries   uint
	wait    time.Duration
}

// NewTransport builds a transport from the engine configuration.
func NewTransport(c Config) *HTTPTransport {
	t := &HTTPTransport{
		client:  c.HTTPClient,
		browser: c.BrowserClient,
		maxBody: c.MaxBodyBytes,
		tries:   3,
		wait:    500 * time.Millisecond,
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: c.FetchTimeout}
	}
	if t.client.Jar == nil {
		// Consent and visitor cookies must survive across calls.
		jar, _ := cookiejar.New(nil)
		client := *t.client
		client.Jar = jar
		t.client = &client
	}
	if t.maxBody <= 0 {
		t.maxBody = DefaultConfig().MaxBodyBytes
	}
	if c.RequestsPerSecond > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(c.RequestsPerSecond), 1)
	}
	return t
}

// Get fetches rawURL with browser-like headers.
func (t *HTTPTransport) Get(ctx context.Context, rawURL string, headers map[string]string) (int, []byte, error) {
	metrics.HTTPRequests.Add(1)
	return t.do(ctx, http.MethodGet, rawURL, headers, nil)
}

// Post sends body to rawURL.
func (t *HTTPTransport) Post(ctx context.Context, rawURL string, headers map[string]string, body []byte) (int, []byte, error) {
	metrics.HTTPRequests.Add(1)
	return t.do(ctx, http.MethodPost, rawURL, headers, body)
}

// HeadRange fetches the first two bytes of rawURL. It is not retried: the
// stream resolver owns the retry loop for validation.
func (t *HTTPTransport) HeadRange(ctx context.Context, rawURL string) (int, error) {
	metrics.ValidationRequests.Add(1)
	headers := map[string]string{"range": "bytes=0-1"}
	status, _, err := t.once(ctx, http.MethodGet, rawURL, headers, nil)
	return status, err
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d", e.code)
}

// do performs a request with retry on retryable statuses using exponential backoff.
func (t *HTTPTransport) do(ctx context.Context, method, rawURL string, headers map[string]string, body []byte) (int, []byte, error) {
	type result struct {
		status int
		body   []byte
	}

	operation := func() (result, error) {
		status, data, err := t.once(ctx, method, rawURL, headers, body)
		if err != nil {
			return result{}, backoff.Permanent(err)
		}
		if IsRetryableStatus(status) {
			return result{status: status, body: data}, &statusError{code: status}
		}
		return result{status: status, body: data}, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = t.wait
	bo.MaxInterval = 5 * time.Second

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(t.tries),
		backoff.WithMaxElapsedTime(30*time.Second),
	)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return se.code, res.body, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, rawURL, err)
		}
		if errors.Is(err, ErrTransport) {
			return 0, nil, err
		}
		return 0, nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, rawURL, err)
	}
	return res.status, res.body, nil
}

// once sends a single request and reads the (possibly gzipped) body.
func (t *HTTPTransport) once(ctx context.Context, method, rawURL string, headers map[string]string, body []byte) (int, []byte, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return 0, nil, fmt.Errorf("%w: rate wait: %w", ErrTransport, err)
		}
	}

	h := ChromeHeaders()
	h["accept-encoding"] = "gzip"
	for k, v := range headers {
		h[k] = v
	}

	if t.browser != nil {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		data, _, status, err := t.browser.Do(method, rawURL, h, rd)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %w", ErrTransport, err)
		}
		return status, data, nil
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}
	for k, v := range h {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := readResponseBody(resp, t.maxBody)
	if err != nil {
		slog.Debug("transport: body read failed", slog.String("url", rawURL), slog.Any("error", err))
		return resp.StatusCode, nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}
	return resp.StatusCode, data, nil
}

// readResponseBody reads the response body, handling gzip decompression if needed.
func readResponseBody(resp *http.Response, limit int64) ([]byte, error) {
	var r io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	return io.ReadAll(io.LimitReader(r, limit))
}
