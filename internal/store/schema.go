package store

import (
	"context"
	"database/sql"
	"log/slog"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS note (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT    NOT NULL CHECK (length(trim(name)) > 0),
	content    TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	deleted_at INTEGER,
	CHECK (updated_at >= created_at),
	CHECK (deleted_at IS NULL OR deleted_at >= updated_at)
);

CREATE INDEX IF NOT EXISTS idx_note_deleted_at ON note(deleted_at);
CREATE INDEX IF NOT EXISTS idx_note_updated_at ON note(updated_at);

CREATE TABLE IF NOT EXISTS note_link (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	source_note_id INTEGER NOT NULL REFERENCES note(id) ON DELETE CASCADE,
	target_note_id INTEGER NOT NULL REFERENCES note(id) ON DELETE CASCADE,
	link_type      TEXT    NOT NULL CHECK (link_type IN ('parent', 'related')),
	created_at     INTEGER NOT NULL,
	UNIQUE (source_note_id, target_note_id, link_type)
);

CREATE INDEX IF NOT EXISTS idx_note_link_target ON note_link(target_note_id, link_type);

CREATE TABLE IF NOT EXISTS note_diff (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	note_id    INTEGER NOT NULL REFERENCES note(id) ON DELETE CASCADE,
	version    INTEGER NOT NULL,
	diff       TEXT    NOT NULL,
	changed_at INTEGER NOT NULL,
	UNIQUE (note_id, version)
);
`

const (
	seedName    = "README"
	seedContent = "# Welcome to nisabo"
)

// Initialize creates any missing tables, indexes and triggers, and seeds
// the starter note when the archive is new. It is safe to call repeatedly.
func (s *Store) Initialize(ctx context.Context) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		existed, err := tableExists(ctx, tx, "note")
		if err != nil {
			return classify("initialize", err)
		}
		if _, err := tx.ExecContext(ctx, coreSchemaSQL); err != nil {
			return classify("apply core schema", err)
		}

		mode, err := s.initFTS(ctx, tx)
		if err != nil {
			return err
		}
		s.fts = mode

		if !existed {
			content := seedContent
			if _, err := insertNote(ctx, tx, seedName, &content, s.nowMillis()); err != nil {
				return err
			}
		}
		s.logger.Debug("store: initialized",
			slog.String("path", s.path),
			slog.String("driver", s.driver),
			slog.String("fts", mode.String()),
			slog.Bool("created", !existed),
		)
		return nil
	})
}

func tableExists(ctx context.Context, q querier, name string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	return n > 0, err
}
