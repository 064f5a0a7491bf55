// Package testutil provides shared test helpers for archives and folders.
package testutil

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/nisabo/internal/storage"
	"github.com/starford/nisabo/internal/store"
)

// Clock is a deterministic clock that advances one second per reading.
// It is safe for concurrent use.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

// NewClock returns a Clock starting at a fixed instant.
func NewClock() *Clock {
	return &Clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now advances the clock and returns the new time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// ArchivePath returns a fresh database path inside a test temp dir.
func ArchivePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "archive.db")
}

// TestStore opens a pure-Go archive at a temporary path that is closed
// automatically.
func TestStore(t *testing.T) *store.Store {
	t.Helper()
	return OpenStore(t, ArchivePath(t))
}

// OpenStore opens the archive at path with a deterministic clock.
func OpenStore(t *testing.T, path string) *store.Store {
	t.Helper()
	st, err := store.Open(path, store.WithDriver(store.DriverPure), store.WithClock(NewClock().Now))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// TestFolder creates a temporary folder with a storage.Provider.
func TestFolder(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}
