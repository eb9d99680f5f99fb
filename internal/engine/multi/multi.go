// Package multi fans searches and page requests out to every track source
// and merges their results and cursors.
package multi

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/anatolykoptev/go_tracks/internal/engine"
	"github.com/anatolykoptev/go_tracks/internal/engine/tracks"
)

// Client is the capability set the aggregator needs from a source.
type Client interface {
	tracks.Streamer
	Source() tracks.Source
	Owns(rawURL string) bool
	Search(ctx context.Context, query string) (*tracks.TrackList, error)
	HasPagingValues(l *tracks.TrackList) bool
	Next(ctx context.Context, l *tracks.TrackList) (*tracks.TrackList, error)
	Lookup(ctx context.Context, rawURL string) (*tracks.TrackList, error)
}

// Aggregator routes requests to source clients by tag.
type Aggregator struct {
	order   []tracks.Source
	clients map[tracks.Source]Client
}

// New builds an aggregator. Dispatch order follows argument order; a later
// client with the same tag replaces the earlier one.
func New(clients ...Client) *Aggregator {
	a := &Aggregator{clients: make(map[tracks.Source]Client, len(clients))}
	for _, c := range clients {
		src := c.Source()
		if _, dup := a.clients[src]; !dup {
			a.order = append(a.order, src)
		}
		a.clients[src] = c
	}
	return a
}

// Sources returns the registered tags in dispatch order.
func (a *Aggregator) Sources() []tracks.Source {
	return append([]tracks.Source(nil), a.order...)
}

// Client returns the client registered for src.
func (a *Aggregator) Client(src tracks.Source) (Client, bool) {
	c, ok := a.clients[src]
	return c, ok
}

// Search queries every source.
func (a *Aggregator) Search(ctx context.Context, query string) (*tracks.TrackList, error) {
	return a.SearchSources(ctx, query, a.order...)
}

// SearchSources queries the given sources in parallel. Unknown tags are
// ignored; an empty selection fails with ErrNoSourcesSelected.
func (a *Aggregator) SearchSources(ctx context.Context, query string, srcs ...tracks.Source) (*tracks.TrackList, error) {
	engine.IncrSearch()
	var selected []Client
	seen := make(map[tracks.Source]bool, len(srcs))
	for _, src := range srcs {
		c, ok := a.clients[src]
		if !ok || seen[src] {
			continue
		}
		seen[src] = true
		selected = append(selected, c)
	}
	if len(selected) == 0 {
		return nil, tracks.ErrNoSourcesSelected
	}

	lists, err := dispatch(ctx, "search", selected, func(ctx context.Context, c Client) (*tracks.TrackList, error) {
		return c.Search(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	merged := a.merge(lists)
	merged.Query[tracks.KeyQuery] = query
	merged.Query[tracks.KeyQueryType] = tracks.QuerySearch
	return merged, nil
}

// Next fetches the following page from every source whose cursor in l is
// still live. Drained sources are skipped.
func (a *Aggregator) Next(ctx context.Context, l *tracks.TrackList) (*tracks.TrackList, error) {
	engine.IncrNext()
	if l == nil || !l.Query.Pageable() {
		return nil, tracks.ErrUnsupportedQueryType
	}
	var selected []Client
	for _, src := range a.order {
		if c := a.clients[src]; c.HasPagingValues(l) {
			selected = append(selected, c)
		}
	}
	if len(selected) == 0 {
		return nil, tracks.ErrMissingPagingValues
	}

	lists, err := dispatch(ctx, "next", selected, func(ctx context.Context, c Client) (*tracks.TrackList, error) {
		return c.Next(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	merged := a.merge(lists)
	merged.Query[tracks.KeyQuery] = l.Query[tracks.KeyQuery]
	merged.Query[tracks.KeyQueryType] = tracks.QueryNext
	return merged, nil
}

// Lookup routes rawURL to the first source that owns it.
func (a *Aggregator) Lookup(ctx context.Context, rawURL string) (*tracks.TrackList, error) {
	for _, src := range a.order {
		c := a.clients[src]
		if !c.Owns(rawURL) {
			continue
		}
		l, err := c.Lookup(ctx, rawURL)
		if err != nil {
			return nil, &tracks.SourceError{Source: src, Op: "lookup", Err: err}
		}
		return l, nil
	}
	return nil, fmt.Errorf("%w: no source owns %q", tracks.ErrNoSourcesSelected, rawURL)
}

// ResolveStream resolves t through the client owning its source tag,
// validating and retrying up to retries times.
func (a *Aggregator) ResolveStream(ctx context.Context, t *tracks.Track, retries int) (*tracks.Stream, error) {
	c, ok := a.clients[t.Source]
	if !ok {
		return nil, &tracks.SourceError{Source: t.Source, Op: "stream", Err: tracks.ErrNoSourcesSelected}
	}
	st, err := tracks.ResolveWithRetry(ctx, c, t, retries)
	if err != nil {
		engine.IncrStreamFailure()
		return nil, &tracks.SourceError{Source: t.Source, Op: "stream", Err: err}
	}
	for i := 1; i < st.Attempts; i++ {
		engine.IncrStreamRetry()
	}
	return st, nil
}

// dispatch runs op once per client on a pool sized to the clients. Every task
// is awaited; siblings are not cancelled when one fails.
func dispatch(ctx context.Context, op string, clients []Client, fn func(context.Context, Client) (*tracks.TrackList, error)) ([]*tracks.TrackList, error) {
	lists := make([]*tracks.TrackList, len(clients))
	errs := make([]error, len(clients))

	var g errgroup.Group
	g.SetLimit(len(clients))
	for i, c := range clients {
		g.Go(func() error {
			err := engine.TrackOperation(ctx, op+" "+c.Source().Name(), func(ctx context.Context) error {
				l, err := fn(ctx, c)
				lists[i] = l
				return err
			})
			if err != nil {
				lists[i] = nil
				errs[i] = &tracks.SourceError{Source: c.Source(), Op: op, Err: err}
			}
			return nil
		})
	}
	_ = g.Wait()

	var merr *multierror.Error
	for _, err := range errs {
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		slog.Warn("multi: source failure", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", tracks.ErrPartialFailure, err)
	}
	return lists, nil
}

// merge concatenates lists in dispatch order. The first list to set a key
// keeps it; aggregate keys are recomputed from the merged per-source keys.
func (a *Aggregator) merge(lists []*tracks.TrackList) *tracks.TrackList {
	var items []*tracks.Track
	q := tracks.QueryInfo{}
	for _, l := range lists {
		if l == nil {
			continue
		}
		items = append(items, l.Tracks...)
		q.MergeFrom(l.Query)
	}
	q.RecomputeAggregate()
	return tracks.NewTrackList(items, q, a.Next)
}
