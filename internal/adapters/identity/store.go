// Package identity persists the active identity outside process memory.
package identity

import (
	"context"
	"fmt"
	"io"

	"github.com/okian/wellness/internal/config"
	"github.com/okian/wellness/internal/domain/model"
)

// Store holds at most one identity. The only validation applied is that
// the email is non-empty.
type Store interface {
	// Set replaces the stored identity.
	Set(ctx context.Context, id model.Identity) error
	// Get returns the stored identity and whether one is present.
	Get(ctx context.Context) (model.Identity, bool, error)
	// Clear removes the stored identity. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// Watcher is implemented by stores that can observe external changes.
type Watcher interface {
	Watch(ctx context.Context, fn func(model.Identity, bool)) error
}

// Open builds the store selected by backend. path is ignored by the memory
// backend; an empty path selects the platform default location.
func Open(backend, path string) (Store, error) {
	switch backend {
	case config.IdentityBackendFile, "":
		if path == "" {
			p, err := DefaultPath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		return NewFileStore(path), nil
	case config.IdentityBackendSQLite:
		if path == "" {
			p, err := DefaultSQLitePath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		return OpenSQLStore(path)
	case config.IdentityBackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// Close releases resources held by s when it has any.
func Close(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
