package store

import (
	"context"
	"database/sql"

	"github.com/starford/nisabo/internal/models"
)

// trashSQL moves notes to the trash. Notes already in the trash keep their
// earlier deleted_at.
const trashSQL = `UPDATE note SET deleted_at = coalesce(deleted_at, max(updated_at, ?))`

// DeleteNoteAndChildrenSoft moves a note and its direct children to the trash.
// Grandchildren are left untouched.
func (s *Store) DeleteNoteAndChildrenSoft(ctx context.Context, id int64) error {
	const op = "soft delete note"
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		now := s.nowMillis()
		res, err := tx.ExecContext(ctx, trashSQL+` WHERE id = ?`, now, id)
		if err != nil {
			return classify(op, err)
		}
		if err := mustAffect(op, res, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, trashSQL+` WHERE id IN (
			SELECT target_note_id FROM note_link
			WHERE source_note_id = ? AND link_type = 'parent'
		)`, now, id)
		return classify(op, err)
	})
}

// RestoreNote takes a note out of the trash. Its links are not touched.
func (s *Store) RestoreNote(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE note SET deleted_at = NULL WHERE id = ?`, id)
	if err != nil {
		return classify("restore note", err)
	}
	return mustAffect("restore note", res, id)
}

// DeleteNoteHard removes a note permanently together with its links and history.
func (s *Store) DeleteNoteHard(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM note WHERE id = ?`, id)
	if err != nil {
		return classify("delete note", err)
	}
	return mustAffect("delete note", res, id)
}

// EmptyTrash permanently removes every trashed note and returns how many
// were removed.
func (s *Store) EmptyTrash(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM note WHERE deleted_at IS NOT NULL`)
	if err != nil {
		return 0, classify("empty trash", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify("empty trash", err)
	}
	return n, nil
}

// GetTrash lists trashed notes, most recently trashed first.
func (s *Store) GetTrash(ctx context.Context) ([]models.NoteIDName, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name FROM note
		WHERE deleted_at IS NOT NULL
		ORDER BY deleted_at DESC, id DESC
	`)
	if err != nil {
		return nil, classify("get trash", err)
	}
	defer rows.Close()

	out := []models.NoteIDName{}
	for rows.Next() {
		var item models.NoteIDName
		if err := rows.Scan(&item.ID, &item.Name); err != nil {
			return nil, classify("get trash", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("get trash", err)
	}
	return out, nil
}
