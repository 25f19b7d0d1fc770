package identity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/okian/wellness/internal/domain/model"
	"gopkg.in/yaml.v3"
)

const (
	appDirName      = "wellness"
	identityFile    = "identity.yaml"
	identityDBFile  = "identity.db"
	watchDebounce   = 100 * time.Millisecond
	filePermissions = 0o600
	dirPermissions  = 0o700
)

// document is the on-disk form. user_email mirrors the key the web client
// kept in browser storage.
type document struct {
	UserEmail   string `yaml:"user_email"`
	DisplayName string `yaml:"display_name,omitempty"`
}

// DefaultPath returns the identity file under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, appDirName, identityFile), nil
}

// DefaultSQLitePath returns the sqlite database under the user's config directory.
func DefaultSQLitePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, appDirName, identityDBFile), nil
}

// FileStore keeps the identity in a small YAML document.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path. The file is created on the
// first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: filepath.Clean(path)}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Set(ctx context.Context, id model.Identity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := id.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(document{UserEmail: id.Email, DisplayName: id.DisplayName})
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.path, data)
}

func (s *FileStore) Get(ctx context.Context) (model.Identity, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.Identity{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove identity: %w", err)
	}
	return nil
}

func (s *FileStore) read() (model.Identity, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.Identity{}, false, nil
	}
	if err != nil {
		return model.Identity{}, false, fmt.Errorf("read identity: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return model.Identity{}, false, nil
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return model.Identity{}, false, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	id := model.Identity{
		DisplayName: strings.TrimSpace(doc.DisplayName),
		Email:       strings.TrimSpace(doc.UserEmail),
	}
	if id.IsZero() {
		return model.Identity{}, false, nil
	}
	return id, true, nil
}

// Watch calls fn whenever the file changes on disk, including changes made
// by other processes. It blocks until ctx is done; fn is never called after
// Watch returns.
func (s *FileStore) Watch(ctx context.Context, fn func(model.Identity, bool)) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory so atomic renames are seen.
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}

	// cbMu serialises fn with shutdown: once stopped is set no callback
	// starts, and Watch does not return while one is running.
	var (
		cbMu     sync.Mutex
		stopped  bool
		debounce *time.Timer
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
		cbMu.Lock()
		stopped = true
		cbMu.Unlock()
	}()
	notify := func() {
		cbMu.Lock()
		defer cbMu.Unlock()
		if stopped || ctx.Err() != nil {
			return
		}
		s.mu.Lock()
		id, ok, err := s.read()
		s.mu.Unlock()
		if err != nil {
			return
		}
		fn(id, ok)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, notify)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch identity: %w", err)
		}
	}
}

// writeAtomic writes data to a temp file in the same directory and renames
// it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, filePermissions); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace identity: %w", err)
	}
	return nil
}
