package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/nisabo/internal/apperr"
	"github.com/starford/nisabo/internal/storage"
)

// ImportedDir is the inbox subdirectory processed files are moved to.
const ImportedDir = "imported"

const inboxQuiet = 200 * time.Millisecond

// Watch imports Markdown files dropped into inbox until ctx is cancelled.
// Files are picked up after a short quiet period, so a burst of writes
// becomes one import, and are moved to inbox/imported afterwards. cb, if
// non-nil, is called after every run that created notes.
func (im *Importer) Watch(ctx context.Context, inbox string, cb func(*Result)) error {
	src, err := storage.EnsureFS(inbox)
	if err != nil {
		return fmt.Errorf("importer: inbox: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("importer: inbox: %w", err)
	}
	defer w.Close()
	if err := w.Add(src.Root()); err != nil {
		return fmt.Errorf("importer: inbox: %w", err)
	}

	im.logger.Info("inbox: started", slog.String("dir", src.Root()))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(inboxQuiet)
			fire = timer.C
		} else {
			timer.Reset(inboxQuiet)
		}
	}

	// Files that were waiting before the watcher started.
	schedule()

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			im.logger.Info("inbox: stopped")
			return nil

		case <-fire:
			res, err := im.drainInbox(ctx, src)
			if errors.Is(err, apperr.ErrBusy) {
				schedule()
				continue
			}
			if err != nil {
				im.logger.Error("inbox: import failed", slog.String("error", err.Error()))
			}
			if res != nil && len(res.Notes) > 0 {
				im.logger.Info("inbox: imported", slog.Int("notes", len(res.Notes)))
				if cb != nil {
					cb(res)
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if strings.HasPrefix(name, ".") || !storage.IsMarkdown(name) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				schedule()
			}

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			im.logger.Error("inbox: watcher error", slog.String("error", werr.Error()))
		}
	}
}

// drainInbox imports every file currently in the inbox and moves the
// imported ones out of the way.
func (im *Importer) drainInbox(ctx context.Context, src *storage.FS) (*Result, error) {
	if !im.sem.TryAcquire(1) {
		return nil, fmt.Errorf("importer: %w", apperr.ErrBusy)
	}
	defer im.sem.Release(1)

	entries, err := src.List("")
	if err != nil {
		return nil, fmt.Errorf("importer: %w", err)
	}
	if len(entries) == 0 {
		return &Result{Notes: []Imported{}}, nil
	}

	res, runErr := im.run(ctx, src, entries, nil)
	if res != nil {
		for _, n := range res.Notes {
			dst := archiveName(src, n.Path)
			if err := src.Move(n.Path, dst); err != nil {
				im.logger.Warn("inbox: move failed", slog.String("path", n.Path), slog.String("error", err.Error()))
			}
		}
	}
	return res, runErr
}

// archiveName picks a free name for rel under ImportedDir.
func archiveName(src *storage.FS, rel string) string {
	base := filepath.Base(rel)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	dst := filepath.Join(ImportedDir, base)
	for i := 1; ; i++ {
		if _, err := os.Stat(filepath.Join(src.Root(), dst)); err != nil {
			return dst
		}
		dst = filepath.Join(ImportedDir, fmt.Sprintf("%s.%d%s", stem, i, ext))
	}
}
