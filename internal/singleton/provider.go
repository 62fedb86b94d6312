// Package singleton provides a lazy, concurrency-safe one-shot constructor
// for process-wide instances.
package singleton

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Provider builds a single *T on first demand. Construction runs at most once
// across all goroutines; a failed build leaves the provider unconstructed so
// a later Get may retry.
type Provider[T any] struct {
	mu    sync.Mutex
	ready atomic.Pointer[T]
	build func() (*T, error)
}

// New returns a Provider that constructs its instance with build.
func New[T any](build func() (*T, error)) *Provider[T] {
	return &Provider[T]{build: build}
}

// Get returns the instance, constructing it on the first call. The fast path
// is a single atomic load; the construction path re-checks under the lock so
// racing callers never build twice.
func (p *Provider[T]) Get() (*T, error) {
	if v := p.ready.Load(); v != nil {
		return v, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if v := p.ready.Load(); v != nil {
		return v, nil
	}
	if p.build == nil {
		return nil, fmt.Errorf("singleton: no builder configured")
	}

	v, err := p.build()
	if err != nil {
		return nil, fmt.Errorf("singleton: construction failed: %w", err)
	}
	if v == nil {
		return nil, fmt.Errorf("singleton: builder returned nil instance")
	}

	p.ready.Store(v)
	return v, nil
}

// Built reports whether the instance has been constructed.
func (p *Provider[T]) Built() bool {
	return p.ready.Load() != nil
}

// Reset discards the constructed instance so the next Get builds a fresh one.
// Test isolation only; must not run concurrently with production traffic.
func (p *Provider[T]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ready.Store(nil)
}
