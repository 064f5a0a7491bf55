// Package store provides the SQLite-backed note archive: notes, parent and
// related links, trash, full-text search and the per-note version log.
package store

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/starford/nisabo/internal/models"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverCGO  = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPure = "sqlite"  // modernc.org/sqlite
)

// NoteStore is the repository surface used by the service, importer and exporter.
type NoteStore interface {
	InsertNote(ctx context.Context, name string, content *string) (int64, error)
	AddNewNote(ctx context.Context, name string) (int64, error)
	AddChildNote(ctx context.Context, parentID int64, name string, content *string) (int64, error)
	GetNotes(ctx context.Context) ([]*models.NoteNode, error)
	GetNote(ctx context.Context, id int64) (*models.Note, error)
	GetAllNotes(ctx context.Context) ([]models.Note, error)
	UpdateNoteName(ctx context.Context, id int64, name string) error
	UpdateNoteContent(ctx context.Context, id int64, content string) error

	DeleteNoteAndChildrenSoft(ctx context.Context, id int64) error
	RestoreNote(ctx context.Context, id int64) error
	DeleteNoteHard(ctx context.Context, id int64) error
	EmptyTrash(ctx context.Context) (int64, error)
	GetTrash(ctx context.Context) ([]models.NoteIDName, error)

	AddNoteLink(ctx context.Context, sourceID, targetID int64, linkType models.LinkType) error
	GetNoteLinks(ctx context.Context, id int64) ([]models.NoteLink, error)

	Search(ctx context.Context, query string, limit int) ([]models.Note, error)

	RecordChange(ctx context.Context, noteID int64, before, after string) (*models.NoteDiff, error)
	ListVersions(ctx context.Context, noteID int64) ([]models.VersionInfo, error)
	GetVersion(ctx context.Context, diffID int64) (*models.NoteDiff, error)
	ContentAtVersion(ctx context.Context, noteID int64, version int) (string, error)

	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	Close() error
}

// Verify *Store satisfies NoteStore at compile time.
var _ NoteStore = (*Store)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx. Repository helpers take
// a querier so that work started inside WithTx never reaches for the pool,
// which holds a single connection.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store wraps a single-connection sql.DB holding one archive.
type Store struct {
	db     *sql.DB
	path   string
	driver string
	now    func() time.Time
	logger *slog.Logger
	fts    ftsMode
	noFTS5 bool
}

// Option configures a Store.
type Option func(*Store)

// WithDriver selects the database/sql driver (DriverCGO or DriverPure).
// DriverPure is the default.
func WithDriver(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.driver = name
		}
	}
}

// WithClock replaces the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// withoutFTS5 makes a new index use the LIKE fallback even when FTS5 is
// compiled in.
func withoutFTS5() Option {
	return func(s *Store) { s.noFTS5 = true }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Connection pragmas, spelled per driver. They ride on the DSN so every
// connection the pool opens gets them, not just the first.
const (
	cgoParams  = "_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	pureParams = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
)

func dsn(driver, path string) string {
	if driver == DriverPure {
		return path + "?" + pureParams
	}
	return path + "?" + cgoParams
}

// Open opens (or creates) the archive at path and brings its schema up to date.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:   path,
		driver: DriverPure,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open(s.driver, dsn(s.driver, path))
	if err != nil {
		return nil, classify("open db", err)
	}
	db.SetMaxOpenConns(1)
	s.db = db

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, classify("ping", err)
	}
	if err := s.Initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Reopen opens an independent connection to the same database file with
// the same options. Background jobs use it so they never share the
// foreground connection.
func (s *Store) Reopen() (*Store, error) {
	opts := []Option{WithDriver(s.driver), WithClock(s.now), WithLogger(s.logger)}
	if s.noFTS5 {
		opts = append(opts, withoutFTS5())
	}
	return Open(s.path, opts...)
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string { return s.path }

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) nowMillis() int64 {
	return s.now().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
