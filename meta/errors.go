package meta

import (
	"strconv"

	"github.com/sghaida/decor/decl"
)

// MissingEntryError is returned by GetAs when no entry exists.
type MissingEntryError struct {
	ID   decl.ID
	Kind Kind
}

// Error implements the error interface.
func (e MissingEntryError) Error() string {
	// Example: meta: no "cache:value" entry for app.User.Name
	return "meta: no " + strconv.Quote(string(e.Kind)) + " entry for " + e.ID.String()
}

// WrongTypeError is returned by GetAs when the stored value has another type.
type WrongTypeError struct {
	ID   decl.ID
	Kind Kind

	// GotType is reflect.TypeOf(raw).String() for the stored value.
	GotType string
}

// Error implements the error interface.
func (e WrongTypeError) Error() string {
	return "meta: " + strconv.Quote(string(e.Kind)) + " entry for " + e.ID.String() + " has wrong type (" + e.GotType + ")"
}
