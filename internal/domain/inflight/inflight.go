// Package inflight tracks keys with an operation currently in progress.
package inflight

import (
	"context"
	"sync"
	"sync/atomic"
)

// Guard admits at most one holder per key.
type Guard interface {
	// TryAcquire marks key as busy. It returns false when key is already
	// held or the guard is at capacity.
	TryAcquire(ctx context.Context, key string) bool

	// Release frees key. Releasing a key that is not held is a no-op.
	Release(ctx context.Context, key string)

	// Held reports whether key is currently busy.
	Held(key string) bool

	Size() int64
}

// inMemoryGuard implements Guard with a set guarded by a mutex.
// maxKeys <= 0 means unbounded.
type inMemoryGuard struct {
	mu      sync.Mutex
	held    map[string]struct{}
	maxKeys int
	size    atomic.Int64
}

// NewGuard creates an in-memory guard.
func NewGuard(opts ...Option) Guard {
	g := &inMemoryGuard{
		maxKeys: 1024,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.held = make(map[string]struct{})
	return g
}

func (g *inMemoryGuard) TryAcquire(_ context.Context, key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.held[key]; busy {
		return false
	}
	if g.maxKeys > 0 && len(g.held) >= g.maxKeys {
		return false
	}
	g.held[key] = struct{}{}
	g.size.Add(1)
	return true
}

func (g *inMemoryGuard) Release(_ context.Context, key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.held[key]; busy {
		delete(g.held, key)
		g.size.Add(-1)
	}
}

func (g *inMemoryGuard) Held(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.held[key]
	return busy
}

// Size returns the number of keys currently held.
func (g *inMemoryGuard) Size() int64 {
	return g.size.Load()
}
