package importer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/nisabo/internal/apperr"
	"github.com/starford/nisabo/internal/models"
	"github.com/starford/nisabo/internal/store"
	"github.com/starford/nisabo/internal/testutil"
)

var quiet = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestImporter(t *testing.T) (*Importer, *store.Store) {
	t.Helper()
	main := testutil.TestStore(t)
	im := New(func() (store.NoteStore, error) { return main.Reopen() }, quiet)
	return im, main
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
}

func noteNames(t *testing.T, st *store.Store) map[string]*models.Note {
	t.Helper()
	all, err := st.GetAllNotes(context.Background())
	require.NoError(t, err)
	out := make(map[string]*models.Note, len(all))
	for i := range all {
		out[all[i].Name] = &all[i]
	}
	return out
}

func TestImport(t *testing.T) {
	im, main := newTestImporter(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"alpha.md":    "Alpha links to [[beta]] and [[Gamma Title|g]] and [[missing]].",
		"beta.md":     "Plain beta.",
		"gamma.md":    "---\ntitle: Gamma Title\n---\nGamma body",
		"notes.txt":   "ignored",
		"sub/skip.md": "",
	})

	progress := make(chan Progress, 10)
	res, err := im.Import(context.Background(), dir, progress)
	require.NoError(t, err)
	close(progress)

	require.Len(t, res.Notes, 3)
	assert.Equal(t, 2, res.Links)

	var reports []Progress
	for p := range progress {
		reports = append(reports, p)
	}
	require.Len(t, reports, 3)
	assert.Equal(t, "alpha.md", reports[0].Path)
	assert.InDelta(t, 1.0/3, reports[0].Fraction, 1e-9)
	assert.Equal(t, 3, reports[2].Done)
	assert.Equal(t, 1.0, reports[2].Fraction)

	notes := noteNames(t, main)
	require.Contains(t, notes, "alpha")
	require.Contains(t, notes, "beta")
	require.Contains(t, notes, "Gamma Title")
	assert.Equal(t, "Gamma body", notes["Gamma Title"].Body())

	links, err := main.GetNoteLinks(context.Background(), notes["alpha"].ID)
	require.NoError(t, err)
	require.Len(t, links, 2)
	for _, l := range links {
		assert.Equal(t, models.LinkRelated, l.Type)
		assert.Equal(t, notes["alpha"].ID, l.SourceID)
	}

	hits, err := main.Search(context.Background(), "body", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestImport_Busy(t *testing.T) {
	im, _ := newTestImporter(t)
	require.True(t, im.sem.TryAcquire(1))

	_, err := im.Import(context.Background(), t.TempDir(), nil)
	assert.ErrorIs(t, err, apperr.ErrBusy)
	_, err = im.Start(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, apperr.ErrBusy)

	im.sem.Release(1)
	_, err = im.Import(context.Background(), t.TempDir(), nil)
	assert.NoError(t, err)
}

func TestImport_MissingDir(t *testing.T) {
	im, _ := newTestImporter(t)
	_, err := im.Import(context.Background(), filepath.Join(t.TempDir(), "nope"), nil)
	require.Error(t, err)

	// the guard is released after a failed start
	_, err = im.Import(context.Background(), t.TempDir(), nil)
	assert.NoError(t, err)
}

func TestStart(t *testing.T) {
	im, main := newTestImporter(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.md": "a", "b.md": "b"})

	ch, err := im.Start(context.Background(), dir)
	require.NoError(t, err)

	var reports []Progress
	for p := range ch {
		reports = append(reports, p)
	}
	require.Len(t, reports, 2)
	assert.Equal(t, 2, reports[1].Done)

	notes := noteNames(t, main)
	assert.Contains(t, notes, "a")
	assert.Contains(t, notes, "b")

	// the run released the guard
	_, err = im.Import(context.Background(), t.TempDir(), nil)
	assert.NoError(t, err)
}

// failingStore rejects the second insert.
type failingStore struct {
	store.NoteStore
	mu      sync.Mutex
	inserts int
}

func (f *failingStore) InsertNote(ctx context.Context, name string, content *string) (int64, error) {
	f.mu.Lock()
	f.inserts++
	n := f.inserts
	f.mu.Unlock()
	if n == 2 {
		return 0, apperr.ErrStorage
	}
	return f.NoteStore.InsertNote(ctx, name, content)
}

func TestImport_StopsOnFirstFailure(t *testing.T) {
	main := testutil.TestStore(t)
	im := New(func() (store.NoteStore, error) {
		st, err := main.Reopen()
		if err != nil {
			return nil, err
		}
		return &failingStore{NoteStore: st}, nil
	}, quiet)

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"1.md": "one", "2.md": "two", "3.md": "three"})

	progress := make(chan Progress, 10)
	res, err := im.Import(context.Background(), dir, progress)
	assert.ErrorIs(t, err, apperr.ErrStorage)
	require.NotNil(t, res)
	assert.Len(t, res.Notes, 1)
	close(progress)

	var reports []Progress
	for p := range progress {
		reports = append(reports, p)
	}
	require.Len(t, reports, 2)
	assert.Equal(t, "2.md", reports[1].Path)
	assert.NotEmpty(t, reports[1].Error)

	notes := noteNames(t, main)
	assert.Contains(t, notes, "1")
	assert.NotContains(t, notes, "3")
}

func TestWatch_ImportsAndMoves(t *testing.T) {
	im, main := newTestImporter(t)
	inbox := filepath.Join(t.TempDir(), "inbox")
	require.NoError(t, os.MkdirAll(inbox, 0o755))
	writeFiles(t, inbox, map[string]string{"waiting.md": "was here first"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var runs []*Result
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = im.Watch(ctx, inbox, func(r *Result) {
			mu.Lock()
			runs = append(runs, r)
			mu.Unlock()
		})
	}()

	time.Sleep(100 * time.Millisecond)
	writeFiles(t, inbox, map[string]string{"dropped.md": "dropped later", "ignore.txt": "x"})

	require.Eventually(t, func() bool {
		all, err := main.GetAllNotes(context.Background())
		if err != nil {
			return false
		}
		seen := map[string]bool{}
		for _, n := range all {
			seen[n.Name] = true
		}
		return seen["waiting"] && seen["dropped"]
	}, 5*time.Second, 50*time.Millisecond, "inbox files not imported")

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(inbox, ImportedDir, "dropped.md"))
		return err == nil
	}, 2*time.Second, 50*time.Millisecond, "imported file not moved")

	_, err := os.Stat(filepath.Join(inbox, "waiting.md"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(inbox, "ignore.txt"))
	assert.NoError(t, err)

	cancel()
	<-done
	mu.Lock()
	defer mu.Unlock()
	assert.NotEmpty(t, runs)
}

func TestArchiveName(t *testing.T) {
	dir, fs := testutil.TestFolder(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ImportedDir), 0o755))
	assert.Equal(t, filepath.Join(ImportedDir, "n.md"), archiveName(fs, "n.md"))

	writeFiles(t, filepath.Join(dir, ImportedDir), map[string]string{"n.md": "", "n.1.md": ""})
	assert.Equal(t, filepath.Join(ImportedDir, "n.2.md"), archiveName(fs, "n.md"))
}
