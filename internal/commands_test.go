package internal

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/nisabo/internal/store"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Archive.Path = filepath.Join(t.TempDir(), "data", "archive.db")
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRunImportThenExport(t *testing.T) {
	cfg := testConfig(t)
	opts := []Option{WithConfig(cfg), WithLogOutput(io.Discard)}
	ctx := context.Background()

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "Garden.md"), []byte("tomatoes need sun"), 0o644))

	imported, err := RunImport(ctx, src, opts...)
	require.NoError(t, err)
	require.Len(t, imported.Notes, 1)

	out := t.TempDir()
	exported, err := RunExport(ctx, out, "", opts...)
	require.NoError(t, err)
	assert.Len(t, exported.Files, 2)
	assert.Contains(t, exported.Files, "README_0.md")

	st, err := store.Open(cfg.Archive.Path, store.WithDriver(cfg.SQLite.Driver))
	require.NoError(t, err)
	defer st.Close()
	hits, err := st.Search(ctx, "tomatoes", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, imported.Notes[0].NoteID, hits[0].ID)
}

func TestArchiveOpener_FreshConnectionPerCall(t *testing.T) {
	cfg := testConfig(t)
	open := archiveOpener(cfg, nil)

	first, err := open()
	require.NoError(t, err)
	second, err := open()
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	require.NoError(t, first.Close())

	_, err = second.GetAllNotes(context.Background())
	assert.NoError(t, err, "closing one connection leaves the other usable")
	require.NoError(t, second.Close())
}

func TestRunImport_RequiresConfig(t *testing.T) {
	_, err := RunImport(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, errConfigRequired)
}
