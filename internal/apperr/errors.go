// Package apperr defines the sentinel errors shared by the store and its callers.
package apperr

import "errors"

var (
	// ErrNotFound: the referenced note, link or version does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConstraint: a required field is empty or a uniqueness rule was broken.
	ErrConstraint = errors.New("constraint violation")
	// ErrStorage: the underlying database engine failed.
	ErrStorage = errors.New("storage failure")
	// ErrSerialization: a diff payload could not be encoded or decoded.
	ErrSerialization = errors.New("serialization failure")

	ErrConflict = errors.New("conflict")
	ErrBusy     = errors.New("operation already in progress")
)
