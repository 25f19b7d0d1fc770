package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/okian/wellness/internal/domain/model"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// identityKey is the fixed row name. It matches the browser storage key the
// web client used for the same value.
const identityKey = "userEmail"

const schema = `CREATE TABLE IF NOT EXISTS identity (
	key          TEXT PRIMARY KEY,
	email        TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	updated_at   INTEGER NOT NULL
)`

// SQLStore keeps the identity in a single sqlite row.
type SQLStore struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// OpenSQLStore opens (or creates) the sqlite database at path. Use
// ":memory:" for a throwaway database.
func OpenSQLStore(path string) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		clean := filepath.Clean(path)
		if err := os.MkdirAll(filepath.Dir(clean), dirPermissions); err != nil {
			return nil, fmt.Errorf("create identity dir: %w", err)
		}
		dsn = clean + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps ":memory:" databases stable and serialises writes.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Close closes the database handle. It is safe to call more than once.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *SQLStore) Set(ctx context.Context, id model.Identity) error {
	if err := id.Validate(); err != nil {
		return err
	}
	if err := s.check(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO identity (key, email, display_name, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   email = excluded.email,
		   display_name = excluded.display_name,
		   updated_at = excluded.updated_at`,
		identityKey, id.Email, id.DisplayName, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("store identity: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context) (model.Identity, bool, error) {
	if err := s.check(ctx); err != nil {
		return model.Identity{}, false, err
	}
	var id model.Identity
	err := s.db.QueryRowContext(ctx,
		`SELECT email, display_name FROM identity WHERE key = ?`, identityKey,
	).Scan(&id.Email, &id.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Identity{}, false, nil
	}
	if err != nil {
		return model.Identity{}, false, fmt.Errorf("load identity: %w", err)
	}
	if id.IsZero() {
		return model.Identity{}, false, nil
	}
	return id, true, nil
}

func (s *SQLStore) Clear(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM identity WHERE key = ?`, identityKey); err != nil {
		return fmt.Errorf("clear identity: %w", err)
	}
	return nil
}
