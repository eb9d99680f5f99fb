package tracks

import (
	"errors"
	"fmt"
)

var (
	// ErrParse marks a document whose shape the scraper no longer understands.
	ErrParse = errors.New("unexpected document shape")
	// ErrNoApplicableFormat means the track has metadata but no usable encoding.
	ErrNoApplicableFormat = errors.New("no applicable format")
	// ErrDescramblingFailed means the player script layout was not recognised.
	ErrDescramblingFailed = errors.New("signature descrambling failed")
	// ErrMissingPagingValues means the list carries no live cursor for the source.
	ErrMissingPagingValues = errors.New("missing paging values")
	// ErrUnsupportedQueryType means the list was not produced by a search or next call.
	ErrUnsupportedQueryType = errors.New("unsupported query type")
	ErrNoSourcesSelected    = errors.New("no sources selected")
	ErrPartialFailure       = errors.New("one or more sources failed")
	ErrNoStreamAfterRetries = errors.New("no stream after retries")
)

// SourceError attributes a failure to the source and operation that raised it.
type SourceError struct {
	Source Source
	Op     string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Source.Name(), e.Op, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// NoStreamError is returned once every stream resolution attempt failed.
type NoStreamError struct {
	Attempts int
	Err      error
}

func (e *NoStreamError) Error() string {
	return fmt.Sprintf("%v after %d attempts: %v", ErrNoStreamAfterRetries, e.Attempts, e.Err)
}

func (e *NoStreamError) Unwrap() []error {
	return []error{ErrNoStreamAfterRetries, e.Err}
}

// Permanent reports whether err must not be retried by the stream resolver.
func Permanent(err error) bool {
	return errors.Is(err, ErrParse) ||
		errors.Is(err, ErrNoApplicableFormat) ||
		errors.Is(err, ErrDescramblingFailed)
}
