package params

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Lowercase lowercases a string argument.
func Lowercase() Transform {
	return Transform{Name: "lowercase", Fn: stringTransform(strings.ToLower)}
}

// Trim strips leading and trailing white space from a string argument.
func Trim() Transform {
	return Transform{Name: "trim", Fn: stringTransform(strings.TrimSpace)}
}

// Mask wraps a string argument as "***value***".
func Mask() Transform {
	return Transform{Name: "mask", Fn: stringTransform(func(s string) string { return "***" + s + "***" })}
}

func stringTransform(fn func(string) string) func(any) (any, error) {
	return func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return fn(s), nil
	}
}

// Required rejects nil arguments, including typed nil pointers, maps,
// slices, channels, funcs and interfaces.
func Required() Validation {
	return Validation{Name: "required", Fn: func(v any) error {
		if isNil(v) {
			return errors.New("is required, got <nil>")
		}
		return nil
	}}
}

// GreaterThan requires a numeric argument strictly greater than n.
func GreaterThan(n float64) Validation {
	name := "greaterThan(" + strconv.FormatFloat(n, 'g', -1, 64) + ")"
	return Validation{Name: name, Fn: func(v any) error {
		f, ok := toFloat(v)
		if !ok {
			return fmt.Errorf("must be a number, got %T", v)
		}
		if f <= n {
			return fmt.Errorf("must be greater than %v, got %v", n, v)
		}
		return nil
	}}
}

// Tag validates an argument with a go-playground/validator tag such as
// "email", "min=3" or "oneof=json csv tsv".
func Tag(tag string) Validation {
	return Validation{Name: tag, Fn: func(v any) error {
		if err := validate.Var(v, tag); err != nil {
			return formatValidatorError(err)
		}
		return nil
	}}
}

// Func wraps fn as a named validation.
func Func(name string, fn func(any) error) Validation {
	return Validation{Name: name, Fn: fn}
}

func formatValidatorError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	e := fieldErrs[0]
	switch e.Tag() {
	case "required":
		return errors.New("is required")
	case "min":
		return fmt.Errorf("must be at least %s", e.Param())
	case "max":
		return fmt.Errorf("must be at most %s", e.Param())
	case "email":
		return errors.New("must be a valid email")
	case "oneof":
		return fmt.Errorf("must be one of: %s", e.Param())
	default:
		return fmt.Errorf("failed %q", e.Tag())
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}
