package lifecycle

import (
	"errors"
	"reflect"
	"strconv"

	"github.com/sghaida/decor/decl"
	"github.com/sghaida/decor/di"
)

var (
	// ErrNilConstructor is returned when defining an owner with a nil constructor.
	ErrNilConstructor = errors.New("lifecycle: nil constructor")

	// ErrNilOwner is returned when an owner type is nil.
	ErrNilOwner = errors.New("lifecycle: nil owner type")
)

func ownerName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return decl.ClassOf(t).String()
}

// UnknownOwnerError is returned when creating an owner that was never defined.
type UnknownOwnerError struct{ Owner reflect.Type }

// Error implements the error interface.
func (e UnknownOwnerError) Error() string {
	// Example: lifecycle: unknown owner "app.Calculator"
	return "lifecycle: unknown owner " + strconv.Quote(ownerName(e.Owner))
}

// AlreadyDefinedError is returned when an owner is defined twice.
type AlreadyDefinedError struct{ Owner reflect.Type }

// Error implements the error interface.
func (e AlreadyDefinedError) Error() string {
	return "lifecycle: owner " + strconv.Quote(ownerName(e.Owner)) + " already defined"
}

// InvalidIndexError is returned when an injection targets a negative position.
type InvalidIndexError struct {
	Owner reflect.Type
	Index int
}

// Error implements the error interface.
func (e InvalidIndexError) Error() string {
	return "lifecycle: invalid constructor parameter " + strconv.Itoa(e.Index) + " for " + ownerName(e.Owner)
}

// DependencyResolutionError reports a constructor parameter whose token could
// not be resolved. The real constructor is not called.
type DependencyResolutionError struct {
	Owner reflect.Type
	Index int
	Token di.Token
	Err   error
}

// Error implements the error interface.
func (e *DependencyResolutionError) Error() string {
	// Example: lifecycle: parameter 0 of app.Service (token "db"): di: unknown token "db"
	return "lifecycle: parameter " + strconv.Itoa(e.Index) + " of " + ownerName(e.Owner) +
		" (token " + strconv.Quote(string(e.Token)) + "): " + e.Err.Error()
}

// Unwrap returns the container error.
func (e *DependencyResolutionError) Unwrap() error { return e.Err }

// ConstructorTypeError is returned by Create[T] when the constructor produced
// a value that is not a *T.
type ConstructorTypeError struct {
	Owner   reflect.Type
	GotType string
}

// Error implements the error interface.
func (e ConstructorTypeError) Error() string {
	return "lifecycle: constructor of " + ownerName(e.Owner) + " returned " + e.GotType
}
