package params

import (
	"errors"
	"strconv"

	"github.com/sghaida/decor/decl"
)

var (
	// ErrNotMember is returned when rules are attached to an ID that is not member-level.
	ErrNotMember = errors.New("params: rules attach to member-level declarations")

	// ErrNilRule is returned when a rule has no function.
	ErrNilRule = errors.New("params: nil rule function")
)

// InvalidIndexError is returned when a rule targets a negative parameter position.
type InvalidIndexError struct {
	ID    decl.ID
	Index int
}

// Error implements the error interface.
func (e InvalidIndexError) Error() string {
	return "params: invalid parameter index " + strconv.Itoa(e.Index) + " for " + e.ID.String()
}

// ValidationError reports a parameter that failed a declared rule.
// The wrapped call never runs when Run returns a ValidationError.
type ValidationError struct {
	// ID is the member the rule is declared on.
	ID decl.ID

	// Index is the failing parameter position.
	Index int

	// Rule is the rule name, e.g. "required" or "greaterThan(0)".
	Rule string

	// Value is the argument as seen by the rule (after transforms).
	Value any

	// Err is the rule's own error.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msg := "params: parameter " + strconv.Itoa(e.Index) + " of " + e.ID.String() + " failed " + strconv.Quote(e.Rule)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the rule's error.
func (e *ValidationError) Unwrap() error { return e.Err }

// SignatureError reports fewer runtime arguments than the declared rules expect.
// By default it is logged as a warning and the call proceeds with nil in the
// missing positions.
type SignatureError struct {
	ID   decl.ID
	Want int
	Got  int
}

// Error implements the error interface.
func (e *SignatureError) Error() string {
	return "params: argument count mismatch for " + e.ID.String() +
		": expected at least " + strconv.Itoa(e.Want) + ", got " + strconv.Itoa(e.Got)
}
