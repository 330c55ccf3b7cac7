package decor

import (
	"errors"
	"strconv"

	"github.com/sghaida/decor/decl"
)

var (
	// ErrNotStructPointer is returned when a target is not a non-nil pointer to a struct.
	ErrNotStructPointer = errors.New("decor: target must be a non-nil pointer to a struct")

	// ErrNilFactory is returned when registering a named factory that is nil.
	ErrNilFactory = errors.New("decor: nil factory")
)

// UnknownNameError is returned when no factory is registered under a name.
type UnknownNameError struct {
	Group string
	Name  string
}

// Error implements the error interface.
func (e UnknownNameError) Error() string {
	// Example: decor: unknown parser "xml"
	return "decor: unknown " + e.Group + " " + strconv.Quote(e.Name)
}

// DuplicateNameError is returned when a name is registered twice in a group.
type DuplicateNameError struct {
	Group string
	Name  string
}

// Error implements the error interface.
func (e DuplicateNameError) Error() string {
	return "decor: duplicate " + e.Group + " " + strconv.Quote(e.Name)
}

// UnknownFieldError is returned when a declaration names a missing struct field.
type UnknownFieldError struct{ ID decl.ID }

// Error implements the error interface.
func (e UnknownFieldError) Error() string {
	return "decor: no field " + e.ID.String()
}

// TypeMismatchError is returned when a field value does not have its declared type.
type TypeMismatchError struct {
	ID   decl.ID
	Want string
	Got  string
}

// Error implements the error interface.
func (e TypeMismatchError) Error() string {
	// Example: decor: invalid type: app.User.Name is not of type string, got int
	return "decor: invalid type: " + e.ID.String() + " is not of type " + e.Want + ", got " + e.Got
}
