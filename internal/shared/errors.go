package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrMissingRequiredField indicates a document is missing a field the
	// operation depends on (division, mode, project).
	ErrMissingRequiredField = errors.New("missing required field")
	// ErrConflict indicates a unique constraint rejected the write.
	ErrConflict = errors.New("already exists")
)
