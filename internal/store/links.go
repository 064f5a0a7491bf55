package store

import (
	"context"
	"database/sql"

	"github.com/starford/nisabo/internal/models"
)

// AddNoteLink creates a directed edge from sourceID to targetID. For
// LinkParent the target becomes a child of the source; a note may have at
// most one parent.
func (s *Store) AddNoteLink(ctx context.Context, sourceID, targetID int64, linkType models.LinkType) error {
	const op = "add note link"
	if _, err := models.ParseLinkType(string(linkType)); err != nil {
		return constraint(op, "%v", err)
	}
	if sourceID == targetID {
		return constraint(op, "note %d cannot link to itself", sourceID)
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if err := requireNotes(ctx, tx, op, sourceID, targetID); err != nil {
			return err
		}
		if linkType == models.LinkParent {
			var parents int
			err := tx.QueryRowContext(ctx,
				`SELECT count(*) FROM note_link WHERE target_note_id = ? AND link_type = 'parent'`,
				targetID).Scan(&parents)
			if err != nil {
				return classify(op, err)
			}
			if parents > 0 {
				return constraint(op, "note %d already has a parent", targetID)
			}
		}
		return insertLink(ctx, tx, sourceID, targetID, linkType, s.nowMillis())
	})
}

func insertLink(ctx context.Context, q querier, sourceID, targetID int64, linkType models.LinkType, now int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO note_link (source_note_id, target_note_id, link_type, created_at) VALUES (?, ?, ?, ?)`,
		sourceID, targetID, string(linkType), now)
	return classify("insert link", err)
}

// GetNoteLinks returns the outgoing and incoming links of a note, oldest first.
func (s *Store) GetNoteLinks(ctx context.Context, id int64) ([]models.NoteLink, error) {
	const op = "get note links"
	out := []models.NoteLink{}
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		if err := requireNotes(ctx, tx, op, id); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, `
			SELECT id, source_note_id, target_note_id, link_type, created_at
			FROM note_link
			WHERE source_note_id = ? OR target_note_id = ?
			ORDER BY id
		`, id, id)
		if err != nil {
			return classify(op, err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				l       models.NoteLink
				typ     string
				created int64
			)
			if err := rows.Scan(&l.ID, &l.SourceID, &l.TargetID, &typ, &created); err != nil {
				return classify(op, err)
			}
			l.Type = models.LinkType(typ)
			l.CreatedAt = fromMillis(created)
			out = append(out, l)
		}
		return classify(op, rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
