package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// PersistenceError wraps a failed storage operation so callers can tell
// storage failures apart from validation or platform failures.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
