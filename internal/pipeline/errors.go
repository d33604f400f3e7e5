package pipeline

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed submission. No job is created.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// PersistenceError reports a job store failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ErrVideoNotLaunched is returned when the detached video stage could not be started.
var ErrVideoNotLaunched = errors.New("pipeline: video stage could not be launched")
