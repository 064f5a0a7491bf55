package store

import (
	"context"
	"database/sql"

	"github.com/starford/nisabo/internal/models"
)

// GetNotes returns the live notes as a forest. Siblings and roots are
// ordered most recently updated first.
//
// A note hangs under the source of its first parent link (by link id) when
// that source is live; otherwise it is a root. A link that would close a
// cycle is ignored and the note stays a root.
func (s *Store) GetNotes(ctx context.Context) ([]*models.NoteNode, error) {
	const op = "get notes"
	var (
		nodes []*models.NoteNode
		edges = map[int64]int64{} // child -> parent
	)
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT `+noteColumns+` FROM note
			WHERE deleted_at IS NULL
			ORDER BY updated_at DESC, id DESC`)
		if err != nil {
			return classify(op, err)
		}
		for rows.Next() {
			n, err := scanNote(rows)
			if err != nil {
				rows.Close()
				return classify(op, err)
			}
			nodes = append(nodes, &models.NoteNode{Note: *n, Children: []*models.NoteNode{}})
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return classify(op, err)
		}

		rows, err = tx.QueryContext(ctx, `
			SELECT l.source_note_id, l.target_note_id
			FROM note_link l
			JOIN note src ON src.id = l.source_note_id AND src.deleted_at IS NULL
			WHERE l.link_type = 'parent'
			ORDER BY l.id
		`)
		if err != nil {
			return classify(op, err)
		}
		defer rows.Close()
		for rows.Next() {
			var parent, child int64
			if err := rows.Scan(&parent, &child); err != nil {
				return classify(op, err)
			}
			if _, seen := edges[child]; !seen {
				edges[child] = parent
			}
		}
		return classify(op, rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return buildForest(nodes, edges), nil
}

// buildForest attaches nodes to their parents in slice order. An edge is
// accepted only if the chain of already accepted edges above the parent
// does not reach the child.
func buildForest(nodes []*models.NoteNode, parentOf map[int64]int64) []*models.NoteNode {
	byID := make(map[int64]*models.NoteNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	accepted := make(map[int64]int64, len(parentOf))
	for _, n := range nodes {
		p, ok := parentOf[n.ID]
		if !ok || byID[p] == nil || closesCycle(accepted, n.ID, p) {
			continue
		}
		accepted[n.ID] = p
	}

	roots := []*models.NoteNode{}
	for _, n := range nodes {
		if p, ok := accepted[n.ID]; ok {
			n.HasParent = true
			byID[p].Children = append(byID[p].Children, n)
			continue
		}
		roots = append(roots, n)
	}
	return roots
}

func closesCycle(accepted map[int64]int64, child, parent int64) bool {
	for cur, ok := parent, true; ok; cur, ok = accepted[cur] {
		if cur == child {
			return true
		}
	}
	return false
}
