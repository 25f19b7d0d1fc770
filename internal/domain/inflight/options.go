package inflight

// Option applies a configuration option to the in-memory guard.
type Option func(*inMemoryGuard)

// WithMaxKeys caps the number of keys held at once.
// If maxKeys <= 0 the guard is unbounded.
func WithMaxKeys(maxKeys int) Option {
	return func(g *inMemoryGuard) {
		g.maxKeys = maxKeys
	}
}
