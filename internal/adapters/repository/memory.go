package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]*User
	metrics map[int64][]Record
	nextID  int64
	now     func() time.Time
	newID   func() string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		users:   make(map[string]*User),
		metrics: make(map[int64][]Record),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *MemoryStore) CreateUser(_ context.Context, name, email string) (User, error) {
	key := normalize(email)
	if key == "" {
		return User{}, ErrEmptyEmail
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[key]; exists {
		return User{}, ErrDuplicateEmail
	}
	s.nextID++
	u := &User{ID: s.nextID, Name: strings.TrimSpace(name), Email: strings.TrimSpace(email)}
	s.users[key] = u
	return *u, nil
}

func (s *MemoryStore) AddMetric(_ context.Context, email string, r Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[normalize(email)]
	if !ok {
		return Record{}, ErrNotFound
	}
	r.ID = s.newID()
	r.UserID = u.ID
	r.CreatedAt = s.now().UTC()
	r.WellnessScore = nil
	s.metrics[u.ID] = append(s.metrics[u.ID], r)
	return r, nil
}

func (s *MemoryStore) Metrics(_ context.Context, email string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[normalize(email)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]Record, len(s.metrics[u.ID]))
	copy(out, s.metrics[u.ID])
	return out, nil
}

func (s *MemoryStore) DeleteMetrics(_ context.Context, email string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[normalize(email)]
	if !ok {
		return 0, ErrNotFound
	}
	n := len(s.metrics[u.ID])
	delete(s.metrics, u.ID)
	return n, nil
}

func (s *MemoryStore) SetLatestScore(_ context.Context, email string, score float64) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[normalize(email)]
	if !ok {
		return Record{}, ErrNotFound
	}
	records := s.metrics[u.ID]
	if len(records) == 0 {
		return Record{}, ErrNoMetrics
	}
	last := &records[len(records)-1]
	v := score
	last.WellnessScore = &v
	return *last, nil
}

func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
