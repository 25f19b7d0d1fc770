package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithClock overrides the timestamp source for new records.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDFunc overrides how metric record ids are generated.
func WithIDFunc(fn func() string) Option {
	return func(s *MemoryStore) {
		if fn != nil {
			s.newID = fn
		}
	}
}
