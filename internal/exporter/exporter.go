// Package exporter writes every note of the archive to a folder, as
// Markdown with YAML front matter or as standalone HTML pages.
package exporter

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/starford/nisabo/internal/apperr"
	"github.com/starford/nisabo/internal/models"
	"github.com/starford/nisabo/internal/parser"
	"github.com/starford/nisabo/internal/storage"
	"github.com/starford/nisabo/internal/store"
)

// Format is an export file format.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

// ParseFormat converts s to a Format. An empty string means Markdown.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatMarkdown:
		return FormatMarkdown, nil
	case FormatHTML:
		return FormatHTML, nil
	}
	return "", fmt.Errorf("exporter: unknown format %q", s)
}

// OutDir is the subdirectory of the target folder that receives the files.
const OutDir = "exported"

const (
	maxNameLen = 100
	workers    = 4
)

// Opener opens a dedicated store connection for one export run.
type Opener func() (store.NoteStore, error)

// Progress reports one written file.
type Progress struct {
	Done     int     `json:"done"`
	Total    int     `json:"total"`
	Fraction float64 `json:"fraction"`
	Path     string  `json:"path"`
}

// Result summarizes an export run.
type Result struct {
	Dir   string   `json:"dir"`
	Files []string `json:"files"`
}

// Exporter exports the archive to a folder.
type Exporter struct {
	open   Opener
	sem    *semaphore.Weighted
	md     goldmark.Markdown
	logger *slog.Logger
}

// New creates an exporter.
func New(open Opener, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		open:   open,
		sem:    semaphore.NewWeighted(1),
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger: logger,
	}
}

// Export writes every note, trashed ones included, to dir/exported as
// <name>_<i>.<format>. progress may be nil. Only one export runs at a time.
func (ex *Exporter) Export(ctx context.Context, dir string, format Format, progress chan<- Progress) (*Result, error) {
	if !ex.sem.TryAcquire(1) {
		return nil, fmt.Errorf("exporter: %w", apperr.ErrBusy)
	}
	defer ex.sem.Release(1)

	st, err := ex.open()
	if err != nil {
		return nil, fmt.Errorf("exporter: open store: %w", err)
	}
	defer st.Close()

	notes, err := st.GetAllNotes(ctx)
	if err != nil {
		return nil, err
	}
	out, err := storage.EnsureFS(filepath.Join(dir, OutDir))
	if err != nil {
		return nil, fmt.Errorf("exporter: %w", err)
	}

	files := make([]string, len(notes))
	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, n := range notes {
		name := fmt.Sprintf("%s_%d.%s", Sanitize(n.Name), i, format)
		files[i] = name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := ex.render(n, format)
			if err != nil {
				return fmt.Errorf("exporter: render note %d: %w", n.ID, err)
			}
			if err := out.Write(name, data); err != nil {
				return fmt.Errorf("exporter: %w", err)
			}

			mu.Lock()
			done++
			p := Progress{Done: done, Total: len(notes), Fraction: float64(done) / float64(len(notes)), Path: name}
			mu.Unlock()
			if progress != nil {
				select {
				case progress <- p:
				case <-gctx.Done():
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		ex.logger.Error("export failed", slog.String("dir", out.Root()), slog.String("error", err.Error()))
		return nil, err
	}

	ex.logger.Info("export finished", slog.String("dir", out.Root()), slog.Int("notes", len(notes)))
	return &Result{Dir: out.Root(), Files: files}, nil
}

func (ex *Exporter) render(n models.Note, format Format) ([]byte, error) {
	if format == FormatHTML {
		return ex.renderHTML(n)
	}
	return parser.Compose(frontMatter(n), n.Body())
}

func frontMatter(n models.Note) parser.FrontMatter {
	fm := parser.FrontMatter{
		Title:   n.Name,
		Date:    n.CreatedAt.Format(time.RFC3339),
		Updated: n.UpdatedAt.Format(time.RFC3339),
	}
	if n.DeletedAt != nil {
		fm.Deleted = n.DeletedAt.Format(time.RFC3339)
	}
	return fm
}

func (ex *Exporter) renderHTML(n models.Note) ([]byte, error) {
	var body bytes.Buffer
	if err := ex.md.Convert([]byte(n.Body()), &body); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n", html.EscapeString(n.Name))
	fmt.Fprintf(&buf, "<meta name=\"date\" content=\"%s\">\n", n.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&buf, "<meta name=\"updated\" content=\"%s\">\n</head>\n<body>\n", n.UpdatedAt.Format(time.RFC3339))
	buf.Write(body.Bytes())
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}

// Sanitize turns a note name into a file name stem: path separators and
// spaces become underscores, non-ASCII characters are dropped, and the
// result is cut to 100 bytes.
func Sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == ' ' || r == '\\':
			b.WriteByte('_')
		case r < 0x20 || r == 0x7f:
			// control characters are dropped
		case r < 0x80:
			b.WriteRune(r)
		}
		if b.Len() >= maxNameLen {
			break
		}
	}
	s := b.String()
	if len(s) > maxNameLen {
		s = s[:maxNameLen]
	}
	if strings.Trim(s, "._") == "" {
		return "note"
	}
	return s
}
