package engine

import (
	"sync"
	"sync/atomic"
)

// Cache hit and miss counters.
var (
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
)

// Ring is a fixed-capacity map with insertion-order eviction.
// Keys live in a ring buffer; inserting into a full ring evicts the oldest key.
// Safe for concurrent use. Values are expected to be immutable once stored,
// so a racing Put for an existing key simply replaces the value.
type Ring[V any] struct {
	mu    sync.Mutex
	keys  []string
	next  int
	full  bool
	items map[string]V
}

// NewRing returns a ring holding at most capacity entries (minimum 1).
func NewRing[V any](capacity int) *Ring[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[V]{
		keys:  make([]string, capacity),
		items: make(map[string]V, capacity),
	}
}

// Get returns the value stored under key.
func (r *Ring[V]) Get(key string) (V, bool) {
	r.mu.Lock()
	v, ok := r.items[key]
	r.mu.Unlock()
	if ok {
		cacheHits.Add(1)
	} else {
		cacheMisses.Add(1)
	}
	return v, ok
}

// Put stores value under key. Existing keys keep their ring slot.
func (r *Ring[V]) Put(key string, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[key]; ok {
		r.items[key] = value
		return
	}
	if r.full {
		delete(r.items, r.keys[r.next])
	}
	r.keys[r.next] = key
	r.items[key] = value
	r.next++
	if r.next == len(r.keys) {
		r.next = 0
		r.full = true
	}
}

// GetOrLoad returns the cached value or calls load and stores its result.
// Concurrent loads for the same key may both run; the last writer wins.
func (r *Ring[V]) GetOrLoad(key string, load func() (V, error)) (V, error) {
	if v, ok := r.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		var zero V
		return zero, err
	}
	r.Put(key, v)
	return v, nil
}

// Len returns the number of cached entries.
func (r *Ring[V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// CacheStats returns current cache hit/miss counters.
func CacheStats() (hits, misses int64) {
	return cacheHits.Load(), cacheMisses.Load()
}
