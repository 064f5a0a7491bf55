package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/starford/nisabo/internal/apperr"
)

// classify wraps err as "store: op: <sentinel>: <cause>". Errors that
// already carry an apperr sentinel are returned unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{apperr.ErrNotFound, apperr.ErrConstraint, apperr.ErrStorage, apperr.ErrSerialization} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("store: %s: %w: %w", op, kindOf(err), err)
}

func kindOf(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound
	}

	var ce sqlite3.Error
	if errors.As(err, &ce) {
		if ce.Code != sqlite3.ErrConstraint {
			return apperr.ErrStorage
		}
		if ce.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return apperr.ErrNotFound
		}
		return apperr.ErrConstraint
	}

	var pe *sqlite.Error
	if errors.As(err, &pe) {
		code := pe.Code()
		if code&0xff != sqlitelib.SQLITE_CONSTRAINT {
			return apperr.ErrStorage
		}
		if code == sqlitelib.SQLITE_CONSTRAINT_FOREIGNKEY {
			return apperr.ErrNotFound
		}
		return apperr.ErrConstraint
	}

	return apperr.ErrStorage
}

func notFound(op string, format string, args ...any) error {
	return fmt.Errorf("store: %s: %w: %s", op, apperr.ErrNotFound, fmt.Sprintf(format, args...))
}

func constraint(op string, format string, args ...any) error {
	return fmt.Errorf("store: %s: %w: %s", op, apperr.ErrConstraint, fmt.Sprintf(format, args...))
}

// mustAffect turns a zero-row result into ErrNotFound.
func mustAffect(op string, res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return classify(op, err)
	}
	if n == 0 {
		return notFound(op, "note %d", id)
	}
	return nil
}
