// Package importer loads folders of Markdown files into the archive.
//
// Every import runs on its own store connection and reports one Progress
// per file. Only one import runs at a time.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"github.com/starford/nisabo/internal/apperr"
	"github.com/starford/nisabo/internal/models"
	"github.com/starford/nisabo/internal/parser"
	"github.com/starford/nisabo/internal/storage"
	"github.com/starford/nisabo/internal/store"
)

// Opener opens a dedicated store connection for one import run.
type Opener func() (store.NoteStore, error)

// Progress reports one processed file.
type Progress struct {
	Done     int     `json:"done"`
	Total    int     `json:"total"`
	Fraction float64 `json:"fraction"`
	Path     string  `json:"path"`
	NoteID   int64   `json:"note_id,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// Imported is a file that became a note.
type Imported struct {
	Path   string `json:"path"`
	NoteID int64  `json:"note_id"`
}

// Result summarizes an import run.
type Result struct {
	Notes []Imported `json:"notes"`
	Links int        `json:"links"`
}

// Importer imports Markdown folders into the archive.
type Importer struct {
	open   Opener
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// New creates an importer.
func New(open Opener, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{open: open, sem: semaphore.NewWeighted(1), logger: logger}
}

// Import imports every .md file directly inside dir and blocks until done.
// progress may be nil. It stops at the first file that fails; notes
// imported before the failure are kept.
func (im *Importer) Import(ctx context.Context, dir string, progress chan<- Progress) (*Result, error) {
	if !im.sem.TryAcquire(1) {
		return nil, fmt.Errorf("importer: %w", apperr.ErrBusy)
	}
	defer im.sem.Release(1)

	src, entries, err := listFolder(dir)
	if err != nil {
		return nil, err
	}
	return im.run(ctx, src, entries, progress)
}

// Start imports dir in the background. The returned channel receives one
// Progress per file and is closed when the run ends.
func (im *Importer) Start(ctx context.Context, dir string) (<-chan Progress, error) {
	if !im.sem.TryAcquire(1) {
		return nil, fmt.Errorf("importer: %w", apperr.ErrBusy)
	}
	src, entries, err := listFolder(dir)
	if err != nil {
		im.sem.Release(1)
		return nil, err
	}

	ch := make(chan Progress, max(len(entries), 1))
	go func() {
		defer im.sem.Release(1)
		defer close(ch)
		res, err := im.run(ctx, src, entries, ch)
		if err != nil {
			im.logger.Error("import failed", slog.String("dir", dir), slog.String("error", err.Error()))
			return
		}
		im.logger.Info("import finished",
			slog.String("dir", dir),
			slog.Int("notes", len(res.Notes)),
			slog.Int("links", res.Links))
	}()
	return ch, nil
}

func listFolder(dir string) (*storage.FS, []storage.Entry, error) {
	src, err := storage.NewFS(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("importer: %w", err)
	}
	entries, err := src.List("")
	if err != nil {
		return nil, nil, fmt.Errorf("importer: %w", err)
	}
	return src, entries, nil
}

func (im *Importer) run(ctx context.Context, src storage.Provider, entries []storage.Entry, progress chan<- Progress) (*Result, error) {
	st, err := im.open()
	if err != nil {
		return nil, fmt.Errorf("importer: open store: %w", err)
	}
	defer st.Close()

	res := &Result{Notes: []Imported{}}
	byName := make(map[string]int64, len(entries))
	wikilinks := make(map[int64][]string, len(entries))
	total := len(entries)

	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		id, name, links, err := importFile(ctx, st, src, e)
		if err != nil {
			im.send(ctx, progress, Progress{
				Done: i, Total: total, Fraction: fraction(i, total), Path: e.Path, Error: err.Error(),
			})
			return res, fmt.Errorf("importer: %s: %w", e.Path, err)
		}
		res.Notes = append(res.Notes, Imported{Path: e.Path, NoteID: id})
		byName[e.Stem] = id
		byName[name] = id
		wikilinks[id] = links
		im.logger.Debug("import: note created", slog.String("path", e.Path), slog.Int64("id", id))
		im.send(ctx, progress, Progress{
			Done: i + 1, Total: total, Fraction: fraction(i+1, total), Path: e.Path, NoteID: id,
		})
	}

	res.Links = im.linkBatch(ctx, st, res.Notes, byName, wikilinks)
	return res, nil
}

// importFile inserts one file as a note named after its front-matter title,
// or its file stem when there is none.
func importFile(ctx context.Context, st store.NoteStore, src storage.Provider, e storage.Entry) (int64, string, []string, error) {
	data, err := src.Read(e.Path)
	if err != nil {
		return 0, "", nil, err
	}
	doc, err := parser.Parse(data)
	if err != nil {
		return 0, "", nil, err
	}
	name := doc.Title
	if name == "" {
		name = e.Stem
	}
	body := doc.Body
	id, err := st.InsertNote(ctx, name, &body)
	if err != nil {
		return 0, "", nil, err
	}
	return id, name, doc.Links, nil
}

// linkBatch turns [[wikilinks]] between notes of the same batch into
// related links and returns how many were created.
func (im *Importer) linkBatch(ctx context.Context, st store.NoteStore, notes []Imported, byName map[string]int64, wikilinks map[int64][]string) int {
	created := 0
	for _, n := range notes {
		for _, target := range wikilinks[n.NoteID] {
			tid, ok := byName[target]
			if !ok || tid == n.NoteID {
				continue
			}
			err := st.AddNoteLink(ctx, n.NoteID, tid, models.LinkRelated)
			switch {
			case err == nil:
				created++
			case errors.Is(err, apperr.ErrConstraint):
				// already linked
			default:
				im.logger.Warn("import: link failed",
					slog.Int64("source", n.NoteID),
					slog.Int64("target", tid),
					slog.String("error", err.Error()))
			}
		}
	}
	return created
}

func (im *Importer) send(ctx context.Context, progress chan<- Progress, p Progress) {
	if progress == nil {
		return
	}
	select {
	case progress <- p:
	case <-ctx.Done():
	}
}

func fraction(done, total int) float64 {
	if total == 0 {
		return 1
	}
	return float64(done) / float64(total)
}
