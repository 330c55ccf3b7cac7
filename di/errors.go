package di

import (
	"errors"
	"strconv"
)

var (
	// ErrNilTarget is returned when an injector is applied to a nil service
	// or a service with a nil Val.
	ErrNilTarget = errors.New("di: nil target service")

	// ErrNilContainer is returned when an injector has no container to resolve from.
	ErrNilContainer = errors.New("di: nil container")

	// ErrEmptyToken is returned when registering under an empty token.
	ErrEmptyToken = errors.New("di: empty token")

	// ErrRegistryPanic is returned if a registry implementation panics internally.
	ErrRegistryPanic = errors.New("registry: panic during Resolve")
)

// UnknownTokenError is returned when resolving a token that has no binding.
type UnknownTokenError struct{ Token Token }

// Error implements the error interface.
func (e UnknownTokenError) Error() string {
	// Example: di: unknown token "MyService"
	return "di: unknown token " + strconv.Quote(string(e.Token))
}

// FactoryError wraps an error returned by a binding's factory.
// Failed factories are not cached; the next Resolve calls the factory again.
type FactoryError struct {
	Token Token
	Err   error
}

// Error implements the error interface.
func (e *FactoryError) Error() string {
	return "di: factory for " + strconv.Quote(string(e.Token)) + " failed: " + e.Err.Error()
}

// Unwrap returns the factory's error.
func (e *FactoryError) Unwrap() error { return e.Err }

// DuplicateKeyError is returned when an injector attempts to record a dependency
// under a token that already exists in the target Service.
type DuplicateKeyError struct{ Token Token }

// Error implements the error interface.
func (e DuplicateKeyError) Error() string {
	// Example: di: duplicate dependency key "db"
	return "di: duplicate dependency key " + strconv.Quote(string(e.Token))
}

// MissingDependencyError is returned when a dependency token is not present
// in a Service's Deps.
type MissingDependencyError struct{ Token Token }

// Error implements the error interface.
func (e MissingDependencyError) Error() string {
	// Example: di: dependency "db" missing
	return "di: dependency " + strconv.Quote(string(e.Token)) + " missing"
}

// WrongTypeDependencyError is returned when a dependency exists but is of a different type.
type WrongTypeDependencyError struct {
	// Token is the dependency token requested.
	Token Token

	// GotType is reflect.TypeOf(raw).String() for the stored value.
	GotType string
}

// Error implements the error interface.
func (e WrongTypeDependencyError) Error() string {
	// Example: di: dependency "db" has wrong type (*mypkg.Logger)
	return "di: dependency " + strconv.Quote(string(e.Token)) + " has wrong type (" + e.GotType + ")"
}

// NilBindError indicates a nil bind function for a specific token.
type NilBindError struct{ Token Token }

// Error implements the error interface.
func (e NilBindError) Error() string {
	// Example: di: nil bind function for key "db"
	return "di: nil bind function for key " + strconv.Quote(string(e.Token))
}
