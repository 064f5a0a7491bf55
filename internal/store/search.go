package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/nisabo/internal/models"
)

const defaultSearchLimit = 50

// Search returns live notes matching every whitespace-separated term of
// query. Only ID, Name and Content are set on the results.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]models.Note, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return []models.Note{}, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var (
		stmt string
		args []any
	)
	if s.fts == ftsFull {
		stmt, args = fts5Query(terms, limit)
	} else {
		stmt, args = likeQuery(terms, limit)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, classify("search", err)
	}
	defer rows.Close()

	out := []models.Note{}
	for rows.Next() {
		var (
			n       models.Note
			content *string
		)
		if err := rows.Scan(&n.ID, &n.Name, &content); err != nil {
			return nil, classify("search", err)
		}
		n.Content = content
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("search", err)
	}
	return out, nil
}

func fts5Query(terms []string, limit int) (string, []any) {
	return `
		SELECT note.id, note.name, note.content
		FROM note_fts
		JOIN note ON note.id = note_fts.rowid
		WHERE note_fts MATCH ? AND note.deleted_at IS NULL
		ORDER BY rank
		LIMIT ?
	`, []any{ftsEscape(terms), limit}
}

// ftsEscape quotes each term so FTS5 operators in user input are matched
// literally. Quoted terms are implicitly AND-ed.
func ftsEscape(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}

func likeQuery(terms []string, limit int) (string, []any) {
	var (
		where   []string
		inName  []string
		args    []any
		rankArg []any
	)
	for _, t := range terms {
		pat := "%" + likeEscape(t) + "%"
		where = append(where, `(f.name LIKE ? ESCAPE '\' OR f.content LIKE ? ESCAPE '\')`)
		args = append(args, pat, pat)
		inName = append(inName, `f.name LIKE ? ESCAPE '\'`)
		rankArg = append(rankArg, pat)
	}
	stmt := fmt.Sprintf(`
		SELECT note.id, note.name, note.content
		FROM note_fts f
		JOIN note ON note.id = f.id
		WHERE note.deleted_at IS NULL AND %s
		ORDER BY (%s) DESC, note.updated_at DESC, note.id DESC
		LIMIT ?
	`, strings.Join(where, " AND "), strings.Join(inName, " AND "))
	args = append(args, rankArg...)
	return stmt, append(args, limit)
}

func likeEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
