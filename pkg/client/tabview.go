package client

import (
	"context"
	"sync"
)

// TabView holds the latest listing of one tab. Every load is tagged with a
// generation; a result whose generation was superseded is dropped.
type TabView[T any] struct {
	mu      sync.Mutex
	gen     uint64
	current T
	loaded  bool
}

// Begin starts a new load and returns its generation. Earlier loads become stale.
func (v *TabView[T]) Begin() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	return v.gen
}

// Commit stores value if gen is still the newest load and reports whether it did.
func (v *TabView[T]) Commit(gen uint64, value T) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		return false
	}
	v.current = value
	v.loaded = true
	return true
}

// Invalidate forgets the current value and makes every in-flight load stale.
func (v *TabView[T]) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	var zero T
	v.current = zero
	v.loaded = false
}

func (v *TabView[T]) Current() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current, v.loaded
}

// Load runs fetch as a new generation. applied is false when a newer load or an
// invalidation overtook this one; the returned value is then the fetched one, not stored.
func (v *TabView[T]) Load(ctx context.Context, fetch func(ctx context.Context) (T, error)) (value T, applied bool, err error) {
	gen := v.Begin()
	value, err = fetch(ctx)
	if err != nil {
		return value, false, err
	}
	return value, v.Commit(gen, value), nil
}
