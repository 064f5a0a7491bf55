package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/nisabo/internal/models"
)

const noteColumns = `id, name, content, created_at, updated_at, deleted_at`

// InsertNote creates a live note and returns its id. A nil content leaves
// the note unwritten.
func (s *Store) InsertNote(ctx context.Context, name string, content *string) (int64, error) {
	return insertNote(ctx, s.db, name, content, s.nowMillis())
}

// AddNewNote creates an empty live note.
func (s *Store) AddNewNote(ctx context.Context, name string) (int64, error) {
	return s.InsertNote(ctx, name, nil)
}

// AddChildNote creates a note under parentID. A nil content leaves the
// note empty.
func (s *Store) AddChildNote(ctx context.Context, parentID int64, name string, content *string) (int64, error) {
	var id int64
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		now := s.nowMillis()
		if err := requireNotes(ctx, tx, "add child note", parentID); err != nil {
			return err
		}
		var err error
		if id, err = insertNote(ctx, tx, name, content, now); err != nil {
			return err
		}
		return insertLink(ctx, tx, parentID, id, models.LinkParent, now)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func insertNote(ctx context.Context, q querier, name string, content *string, now int64) (int64, error) {
	if err := validateName("insert note", name); err != nil {
		return 0, err
	}
	res, err := q.ExecContext(ctx,
		`INSERT INTO note (name, content, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		name, content, now, now)
	if err != nil {
		return 0, classify("insert note", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, classify("insert note", err)
	}
	return id, nil
}

func validateName(op, name string) error {
	if err := validation.Validate(strings.TrimSpace(name), validation.Required); err != nil {
		return constraint(op, "name %v", err)
	}
	return nil
}

// updateStampsSQL advances updated_at, and deleted_at for trashed notes,
// to at least the given time. max() keeps both from moving backwards.
const updateStampsSQL = `
	updated_at = max(updated_at, ?),
	deleted_at = CASE WHEN deleted_at IS NULL THEN NULL ELSE max(deleted_at, updated_at, ?) END`

// UpdateNoteName renames a note.
func (s *Store) UpdateNoteName(ctx context.Context, id int64, name string) error {
	if err := validateName("update note name", name); err != nil {
		return err
	}
	now := s.nowMillis()
	res, err := s.db.ExecContext(ctx,
		`UPDATE note SET name = ?, `+updateStampsSQL+` WHERE id = ?`,
		name, now, now, id)
	if err != nil {
		return classify("update note name", err)
	}
	return mustAffect("update note name", res, id)
}

// UpdateNoteContent replaces a note's content. It does not record history.
func (s *Store) UpdateNoteContent(ctx context.Context, id int64, content string) error {
	now := s.nowMillis()
	res, err := s.db.ExecContext(ctx,
		`UPDATE note SET content = ?, `+updateStampsSQL+` WHERE id = ?`,
		content, now, now, id)
	if err != nil {
		return classify("update note content", err)
	}
	return mustAffect("update note content", res, id)
}

// GetNote returns a note by id, whether live or trashed.
func (s *Store) GetNote(ctx context.Context, id int64) (*models.Note, error) {
	return getNote(ctx, s.db, id)
}

func getNote(ctx context.Context, q querier, id int64) (*models.Note, error) {
	row := q.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM note WHERE id = ?`, id)
	n, err := scanNote(row)
	if err != nil {
		return nil, classify("get note", err)
	}
	return n, nil
}

// GetAllNotes returns every note, trashed ones included, ordered by id.
func (s *Store) GetAllNotes(ctx context.Context) ([]models.Note, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+noteColumns+` FROM note ORDER BY id`)
	if err != nil {
		return nil, classify("get all notes", err)
	}
	defer rows.Close()

	out := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, classify("get all notes", err)
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("get all notes", err)
	}
	return out, nil
}

// requireNotes fails with ErrNotFound unless every id exists.
func requireNotes(ctx context.Context, q querier, op string, ids ...int64) error {
	for _, id := range ids {
		var one int
		err := q.QueryRowContext(ctx, `SELECT 1 FROM note WHERE id = ?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound(op, "note %d", id)
		}
		if err != nil {
			return classify(op, err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(sc scanner) (*models.Note, error) {
	var (
		n                models.Note
		content          sql.NullString
		created, updated int64
		deleted          sql.NullInt64
	)
	if err := sc.Scan(&n.ID, &n.Name, &content, &created, &updated, &deleted); err != nil {
		return nil, err
	}
	if content.Valid {
		c := content.String
		n.Content = &c
	}
	n.CreatedAt = fromMillis(created)
	n.UpdatedAt = fromMillis(updated)
	if deleted.Valid {
		d := fromMillis(deleted.Int64)
		n.DeletedAt = &d
	}
	return &n, nil
}
