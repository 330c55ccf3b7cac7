package wrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/sghaida/decor/decl"
)

// ErrTimeout matches every *TimeoutError via errors.Is.
var ErrTimeout = errors.New("wrap: timeout")

// TimeoutError is returned when a call does not complete before its deadline.
// The inner call keeps running; its result is discarded.
type TimeoutError struct {
	ID    decl.ID
	After time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	// Example: wrap: app.SomeService.DoSlowly timed out after 1s
	return "wrap: " + e.ID.String() + " timed out after " + e.After.String()
}

// Is reports whether target is ErrTimeout.
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// SafeWrapError describes a failure swallowed by Safe. It is logged, never
// returned to the caller.
type SafeWrapError struct {
	ID decl.ID

	// Err is the error returned by the inner call, or nil after a panic.
	Err error

	// Panic is the recovered value when the inner call panicked.
	Panic any
}

// Error implements the error interface.
func (e *SafeWrapError) Error() string {
	if e.Err != nil {
		return "wrap: " + e.ID.String() + " failed: " + e.Err.Error()
	}
	return fmt.Sprintf("wrap: %s panicked: %v", e.ID, e.Panic)
}

// Unwrap returns the inner error.
func (e *SafeWrapError) Unwrap() error { return e.Err }
