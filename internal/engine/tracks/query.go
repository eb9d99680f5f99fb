package tracks

import (
	"context"
	"strconv"
	"strings"
)

// Query information keys.
const (
	KeyQuery     = "query"
	KeyQueryType = "queryType"

	SuffixPosition = "Position"
	SuffixOffset   = "Offset"
	SuffixToken    = "Token"

	KeyMultiPosition = "multiPosition"
	KeyMultiOffset   = "multiOffset"
)

// Query types.
const (
	QuerySearch = "search"
	QueryNext   = "next"
	QueryLookup = "lookup"
)

// QueryInfo is the cursor bag attached to a TrackList. Per-source keys are
// prefixed with the source tag, e.g. ytOffset.
type QueryInfo map[string]string

// PositionKey returns the namespaced position key for src.
func PositionKey(src Source) string { return string(src) + SuffixPosition }

// OffsetKey returns the namespaced offset key for src.
func OffsetKey(src Source) string { return string(src) + SuffixOffset }

// TokenKey returns the namespaced continuation token key for src.
func TokenKey(src Source) string { return string(src) + SuffixToken }

// Int returns the integer stored under key.
func (q QueryInfo) Int(key string) (int, bool) {
	v, ok := q[key]
	if !ok || v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// SetInt stores n under key.
func (q QueryInfo) SetInt(key string, n int) {
	q[key] = strconv.Itoa(n)
}

// HasPagingValues reports whether src has a position, offset and
// continuation token recorded.
func (q QueryInfo) HasPagingValues(src Source) bool {
	for _, k := range []string{PositionKey(src), OffsetKey(src), TokenKey(src)} {
		if q[k] == "" {
			return false
		}
	}
	return true
}

// Pageable reports whether the query type allows fetching a next page.
func (q QueryInfo) Pageable() bool {
	t := q[KeyQueryType]
	return t == QuerySearch || t == QueryNext
}

// Clone returns an independent copy.
func (q QueryInfo) Clone() QueryInfo {
	out := make(QueryInfo, len(q))
	for k, v := range q {
		out[k] = v
	}
	return out
}

// MergeFrom copies keys from other that q does not already have. The
// aggregate keys are skipped; call RecomputeAggregate afterwards.
func (q QueryInfo) MergeFrom(other QueryInfo) {
	for k, v := range other {
		if k == KeyMultiPosition || k == KeyMultiOffset {
			continue
		}
		if _, exists := q[k]; !exists {
			q[k] = v
		}
	}
}

// RecomputeAggregate sets multiPosition and multiOffset to the sums of every
// per-source position and offset value present.
func (q QueryInfo) RecomputeAggregate() {
	var pos, off int
	for k := range q {
		if k == KeyMultiPosition || k == KeyMultiOffset {
			continue
		}
		n, ok := q.Int(k)
		if !ok {
			continue
		}
		switch {
		case strings.HasSuffix(k, SuffixPosition):
			pos += n
		case strings.HasSuffix(k, SuffixOffset):
			off += n
		}
	}
	q.SetInt(KeyMultiPosition, pos)
	q.SetInt(KeyMultiOffset, off)
}

// StampPaging converts the batch offset a source reported in next into
// running position/offset values relative to prev: the new position is the
// previous offset and the new offset adds the batch size. When either offset
// is unknown both are reset to zero.
func StampPaging(prev, next QueryInfo, src Source) {
	prevOff, ok1 := prev.Int(OffsetKey(src))
	batch, ok2 := next.Int(OffsetKey(src))
	if !ok1 || !ok2 {
		next.SetInt(PositionKey(src), 0)
		next.SetInt(OffsetKey(src), 0)
		return
	}
	next.SetInt(PositionKey(src), prevOff)
	next.SetInt(OffsetKey(src), prevOff+batch)
}

// TrackList is one page of results plus the cursor needed to fetch the next.
type TrackList struct {
	Tracks []*Track  `json:"tracks"`
	Query  QueryInfo `json:"query"`
	next   NextFunc
}

// NextFunc fetches the page following a list.
type NextFunc func(ctx context.Context, l *TrackList) (*TrackList, error)

// NewTrackList builds a list bound to the function that pages it.
func NewTrackList(items []*Track, q QueryInfo, next NextFunc) *TrackList {
	if q == nil {
		q = QueryInfo{}
	}
	return &TrackList{Tracks: items, Query: q, next: next}
}

// Next fetches the following page.
func (l *TrackList) Next(ctx context.Context) (*TrackList, error) {
	if l.next == nil {
		return nil, ErrUnsupportedQueryType
	}
	return l.next(ctx, l)
}

// Rebind replaces the next-page function, used when a list is rebuilt from a
// serialised cursor.
func (l *TrackList) Rebind(next NextFunc) *TrackList {
	l.next = next
	return l
}

// Len returns the number of tracks.
func (l *TrackList) Len() int { return len(l.Tracks) }
