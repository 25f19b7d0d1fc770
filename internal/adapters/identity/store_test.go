package identity_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/wellness/internal/adapters/identity"
	"github.com/okian/wellness/internal/config"
	"github.com/okian/wellness/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]identity.Store {
	t.Helper()
	sqlStore, err := identity.OpenSQLStore(filepath.Join(t.TempDir(), "identity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlStore.Close() })

	return map[string]identity.Store{
		"memory": identity.NewMemoryStore(),
		"file":   identity.NewFileStore(filepath.Join(t.TempDir(), "wellness", "identity.yaml")),
		"sqlite": sqlStore,
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := store.Get(ctx)
			require.NoError(t, err)
			assert.False(t, ok, "fresh store must be empty")

			ada := model.Identity{DisplayName: "Ada", Email: "ada@example.com"}
			require.NoError(t, store.Set(ctx, ada))
			got, ok, err := store.Get(ctx)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, ada, got)

			grace := model.Identity{DisplayName: "Grace", Email: "grace@example.com"}
			require.NoError(t, store.Set(ctx, grace))
			got, _, err = store.Get(ctx)
			require.NoError(t, err)
			assert.Equal(t, grace, got, "Set replaces the previous identity")

			err = store.Set(ctx, model.Identity{DisplayName: "Nobody"})
			assert.ErrorIs(t, err, model.ErrEmptyEmail)
			got, _, _ = store.Get(ctx)
			assert.Equal(t, grace, got, "rejected Set leaves the store untouched")

			require.NoError(t, store.Clear(ctx))
			_, ok, err = store.Get(ctx)
			require.NoError(t, err)
			assert.False(t, ok)

			assert.NoError(t, store.Clear(ctx), "clearing an empty store is fine")
		})
	}
}

func TestFileStoreLayout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "identity.yaml")
	store := identity.NewFileStore(path)

	require.NoError(t, store.Set(ctx, model.Identity{DisplayName: "Ada", Email: "ada@example.com"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "user_email: ada@example.com")
	assert.Contains(t, string(data), "display_name: Ada")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are renamed away")
}

func TestFileStoreSharedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "identity.yaml")

	require.NoError(t, identity.NewFileStore(path).Set(ctx, model.Identity{Email: "ada@example.com"}))

	got, ok, err := identity.NewFileStore(path).Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ada@example.com", got.Email)
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.yaml")
	require.NoError(t, os.WriteFile(path, []byte("user_email: [unterminated"), 0o600))

	_, _, err := identity.NewFileStore(path).Get(context.Background())
	assert.ErrorIs(t, err, identity.ErrCorrupt)
}

func TestFileStoreEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.yaml")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o600))

	_, ok, err := identity.NewFileStore(path).Get(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoreWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.yaml")
	store := identity.NewFileStore(path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type change struct {
		id model.Identity
		ok bool
	}
	changes := make(chan change, 8)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, func(id model.Identity, ok bool) {
			changes <- change{id, ok}
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	other := identity.NewFileStore(path)
	require.NoError(t, other.Set(context.Background(), model.Identity{Email: "ada@example.com"}))

	select {
	case c := <-changes:
		assert.True(t, c.ok)
		assert.Equal(t, "ada@example.com", c.id.Email)
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestFileStoreWatchStopsCallbacks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.yaml")
	store := identity.NewFileStore(path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, func(model.Identity, bool) { calls.Add(1) })
	}()
	time.Sleep(100 * time.Millisecond)

	// Cancel inside the debounce window so a notification is still scheduled.
	other := identity.NewFileStore(path)
	require.NoError(t, other.Set(context.Background(), model.Identity{Email: "ada@example.com"}))
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}

	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, calls.Load(), "callback ran after Watch returned")
}

func TestSQLStoreClosed(t *testing.T) {
	store, err := identity.OpenSQLStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, _, err = store.Get(context.Background())
	assert.ErrorIs(t, err, identity.ErrClosed)
}

func TestSQLStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "identity.db")

	first, err := identity.OpenSQLStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, model.Identity{DisplayName: "Ada", Email: "ada@example.com"}))
	require.NoError(t, first.Close())

	second, err := identity.OpenSQLStore(path)
	require.NoError(t, err)
	defer second.Close()

	got, ok, err := second.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Ada", got.DisplayName)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := identity.Open(config.IdentityBackendMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &identity.MemoryStore{}, s)

	s, err = identity.Open(config.IdentityBackendFile, filepath.Join(dir, "id.yaml"))
	require.NoError(t, err)
	fs, ok := s.(*identity.FileStore)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "id.yaml"), fs.Path())
	_, watches := s.(identity.Watcher)
	assert.True(t, watches)

	s, err = identity.Open(config.IdentityBackendSQLite, filepath.Join(dir, "id.db"))
	require.NoError(t, err)
	assert.NoError(t, identity.Close(s))

	_, err = identity.Open("etcd", "")
	assert.ErrorIs(t, err, identity.ErrUnknownBackend)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := identity.NewFileStore(filepath.Join(t.TempDir(), "identity.yaml"))
	assert.ErrorIs(t, store.Set(ctx, model.Identity{Email: "ada@example.com"}), context.Canceled)
}
