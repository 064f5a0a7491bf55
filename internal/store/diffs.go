package store

import (
	"context"
	"database/sql"

	"github.com/starford/nisabo/internal/history"
	"github.com/starford/nisabo/internal/models"
)

// RecordChange appends a version to the note's history holding the line
// diff from before to after. The version number is one above the note's
// latest, or 1 for the first change. An empty diff is still recorded.
func (s *Store) RecordChange(ctx context.Context, noteID int64, before, after string) (*models.NoteDiff, error) {
	const op = "record change"
	payload, err := history.Encode(history.Compute(before, after))
	if err != nil {
		return nil, err
	}

	var d *models.NoteDiff
	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		if err := requireNotes(ctx, tx, op, noteID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO note_diff (note_id, version, diff, changed_at)
			SELECT ?, coalesce(max(version), 0) + 1, ?, ?
			FROM note_diff WHERE note_id = ?
		`, noteID, payload, s.nowMillis(), noteID)
		if err != nil {
			return classify(op, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return classify(op, err)
		}
		d, err = getVersion(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListVersions returns the note's versions in ascending order.
func (s *Store) ListVersions(ctx context.Context, noteID int64) ([]models.VersionInfo, error) {
	const op = "list versions"
	out := []models.VersionInfo{}
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		if err := requireNotes(ctx, tx, op, noteID); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx,
			`SELECT id, version, changed_at FROM note_diff WHERE note_id = ? ORDER BY version`, noteID)
		if err != nil {
			return classify(op, err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				v       models.VersionInfo
				changed int64
			)
			if err := rows.Scan(&v.ID, &v.Version, &changed); err != nil {
				return classify(op, err)
			}
			v.ChangedAt = fromMillis(changed)
			out = append(out, v)
		}
		return classify(op, rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetVersion returns one history entry by its id.
func (s *Store) GetVersion(ctx context.Context, diffID int64) (*models.NoteDiff, error) {
	return getVersion(ctx, s.db, diffID)
}

func getVersion(ctx context.Context, q querier, diffID int64) (*models.NoteDiff, error) {
	var (
		d       models.NoteDiff
		changed int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, note_id, version, diff, changed_at FROM note_diff WHERE id = ?`, diffID,
	).Scan(&d.ID, &d.NoteID, &d.Version, &d.Payload, &changed)
	if err != nil {
		return nil, classify("get version", err)
	}
	d.ChangedAt = fromMillis(changed)
	return &d, nil
}

// ContentAtVersion reconstructs the note's content as it was right after
// the given version was recorded, by reverting newer versions from the
// current content. Version 0 is the content before the first recorded change.
func (s *Store) ContentAtVersion(ctx context.Context, noteID int64, version int) (string, error) {
	const op = "content at version"
	var content string
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := getNote(ctx, tx, noteID)
		if err != nil {
			return err
		}

		var latest int
		if err := tx.QueryRowContext(ctx,
			`SELECT coalesce(max(version), 0) FROM note_diff WHERE note_id = ?`, noteID,
		).Scan(&latest); err != nil {
			return classify(op, err)
		}
		if version < 0 || version > latest {
			return notFound(op, "note %d has no version %d", noteID, version)
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT diff FROM note_diff WHERE note_id = ? AND version > ? ORDER BY version DESC`,
			noteID, version)
		if err != nil {
			return classify(op, err)
		}
		defer rows.Close()

		content = n.Body()
		for rows.Next() {
			var payload string
			if err := rows.Scan(&payload); err != nil {
				return classify(op, err)
			}
			cs, err := history.Decode(payload)
			if err != nil {
				return err
			}
			content = history.Revert(content, cs)
		}
		return classify(op, rows.Err())
	})
	if err != nil {
		return "", err
	}
	return content, nil
}
