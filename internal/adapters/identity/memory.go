package identity

import (
	"context"
	"sync"

	"github.com/okian/wellness/internal/domain/model"
)

// MemoryStore keeps the identity in process memory.
type MemoryStore struct {
	mu  sync.RWMutex
	id  model.Identity
	set bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Set(_ context.Context, id model.Identity) error {
	if err := id.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id, m.set = id, true
	return nil
}

func (m *MemoryStore) Get(_ context.Context) (model.Identity, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.id, m.set, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id, m.set = model.Identity{}, false
	return nil
}
