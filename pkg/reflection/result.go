package reflection

import (
	"fmt"
	"reflect"

	"github.com/aretw0/probe/pkg/domain"
)

// Result is either a readable value or the reason it is unavailable.
type Result struct {
	value reflect.Value
	err   error
}

// Readable wraps a readable value.
func Readable(v reflect.Value) Result {
	return Result{value: v}
}

// Unavailable wraps the reason a value could not be read. The error always
// matches domain.ErrUnavailable with errors.Is.
func Unavailable(reason error) Result {
	return Result{err: fmt.Errorf("%w: %w", domain.ErrUnavailable, reason)}
}

// Available reports whether the value could be read.
func (r Result) Available() bool {
	return r.err == nil
}

// Value returns the value; the zero Value when unavailable.
func (r Result) Value() reflect.Value {
	return r.value
}

// Err returns the reason the value is unavailable.
func (r Result) Err() error {
	return r.err
}
