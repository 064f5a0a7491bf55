package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
)

// ftsMode is the kind of full-text index backing note_fts.
type ftsMode int

const (
	ftsFallback ftsMode = iota // plain shadow table searched with LIKE
	ftsFull                    // FTS5 external-content table
)

func (m ftsMode) String() string {
	if m == ftsFull {
		return "fts5"
	}
	return "like"
}

const fts5SchemaSQL = `
CREATE VIRTUAL TABLE IF NOT EXISTS note_fts USING fts5(
	name,
	content,
	content = 'note',
	content_rowid = 'id',
	tokenize = 'unicode61 remove_diacritics 2'
);

CREATE TRIGGER IF NOT EXISTS note_fts_ai AFTER INSERT ON note BEGIN
	INSERT INTO note_fts (rowid, name, content) VALUES (new.id, new.name, new.content);
END;

CREATE TRIGGER IF NOT EXISTS note_fts_au AFTER UPDATE OF name, content ON note BEGIN
	INSERT INTO note_fts (note_fts, rowid, name, content) VALUES ('delete', old.id, old.name, old.content);
	INSERT INTO note_fts (rowid, name, content) VALUES (new.id, new.name, new.content);
END;

CREATE TRIGGER IF NOT EXISTS note_fts_ad AFTER DELETE ON note BEGIN
	INSERT INTO note_fts (note_fts, rowid, name, content) VALUES ('delete', old.id, old.name, old.content);
END;
`

const fts5RebuildSQL = `INSERT INTO note_fts (note_fts) VALUES ('rebuild')`

const fallbackSchemaSQL = `
CREATE TABLE IF NOT EXISTS note_fts (
	id      INTEGER PRIMARY KEY,
	name    TEXT NOT NULL,
	content TEXT
);

CREATE TRIGGER IF NOT EXISTS note_fts_ai AFTER INSERT ON note BEGIN
	INSERT OR REPLACE INTO note_fts (id, name, content) VALUES (new.id, new.name, new.content);
END;

CREATE TRIGGER IF NOT EXISTS note_fts_au AFTER UPDATE OF name, content ON note BEGIN
	DELETE FROM note_fts WHERE id = old.id;
	INSERT INTO note_fts (id, name, content) VALUES (new.id, new.name, new.content);
END;

CREATE TRIGGER IF NOT EXISTS note_fts_ad AFTER DELETE ON note BEGIN
	DELETE FROM note_fts WHERE id = old.id;
END;
`

const fallbackRebuildSQL = `INSERT OR REPLACE INTO note_fts (id, name, content) SELECT id, name, content FROM note`

const dropFTSSQL = `
DROP TRIGGER IF EXISTS note_fts_ai;
DROP TRIGGER IF EXISTS note_fts_au;
DROP TRIGGER IF EXISTS note_fts_ad;
DROP TABLE IF EXISTS note_fts;
`

// initFTS creates note_fts and its triggers. A new index uses FTS5 when the
// linked SQLite was compiled with it. An existing FTS5 index is kept, and a
// plain fallback index is replaced by FTS5 once the module is available.
func (s *Store) initFTS(ctx context.Context, q querier) (ftsMode, error) {
	existing, existed, err := detectFTS(ctx, q)
	if err != nil {
		return ftsFallback, classify("detect fts", err)
	}

	mode := existing
	if !existed || existing == ftsFallback {
		available, err := s.fts5Available(ctx, q)
		if err != nil {
			return ftsFallback, classify("detect fts", err)
		}
		if available {
			mode = ftsFull
		} else {
			mode = ftsFallback
		}
	}

	rebuild := !existed
	if existed && existing != mode {
		if _, err := q.ExecContext(ctx, dropFTSSQL); err != nil {
			return existing, classify("drop fts", err)
		}
		s.logger.Info("upgrading search index", slog.String("from", existing.String()), slog.String("to", mode.String()))
		rebuild = true
	}

	schema, rebuildSQL := fallbackSchemaSQL, fallbackRebuildSQL
	if mode == ftsFull {
		schema, rebuildSQL = fts5SchemaSQL, fts5RebuildSQL
	}
	if _, err := q.ExecContext(ctx, schema); err != nil {
		return mode, classify("apply fts schema", err)
	}
	if rebuild {
		if _, err := q.ExecContext(ctx, rebuildSQL); err != nil {
			return mode, classify("rebuild fts", err)
		}
	}
	return mode, nil
}

// detectFTS reports the kind of an existing note_fts, if any.
func detectFTS(ctx context.Context, q querier) (mode ftsMode, existed bool, err error) {
	var ddl sql.NullString
	err = q.QueryRowContext(ctx, `SELECT sql FROM sqlite_master WHERE name = 'note_fts'`).Scan(&ddl)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ftsFallback, false, nil
	case err != nil:
		return ftsFallback, false, err
	}
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(ddl.String)), "CREATE VIRTUAL TABLE") {
		return ftsFull, true, nil
	}
	return ftsFallback, true, nil
}

func (s *Store) fts5Available(ctx context.Context, q querier) (bool, error) {
	if s.noFTS5 {
		return false, nil
	}
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT count(*) FROM pragma_compile_options WHERE compile_options = 'ENABLE_FTS5'`).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
