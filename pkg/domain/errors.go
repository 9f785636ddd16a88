package domain

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned when a property or method cannot be introspected.
var ErrUnavailable = errors.New("value unavailable")

// ErrNotAllowed is returned when a debug call is blacklisted for a type.
var ErrNotAllowed = errors.New("call not allowed")

// ErrIterationAborted is returned when driving an iterator failed midway.
var ErrIterationAborted = errors.New("iteration aborted")

// RecoveredError wraps a panic caught while reading, calling or iterating user values.
type RecoveredError struct {
	Op    string // What was being done, e.g. "call (*app.User).String"
	Value any    // The recovered panic value
}

func (e *RecoveredError) Error() string {
	return fmt.Sprintf("%s: recovered from panic: %v", e.Op, e.Value)
}

// Unwrap exposes a panic value that was itself an error.
func (e *RecoveredError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
