package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the addressed document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned for input the store refuses to write.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when a unique constraint (student email) is hit.
	ErrConflict = errors.New("conflict")
)

// PersistenceError wraps a failure of the underlying store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistence reports whether err is, or wraps, a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

type conflictError struct{ email string }

func (e *conflictError) Error() string { return "student with email " + e.email + " already exists" }
func (e *conflictError) Unwrap() error { return ErrConflict }

func conflict(email string) error { return &conflictError{email: email} }
