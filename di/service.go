package di

import (
	"context"
)

// Service wraps a constructed instance plus the dependencies injected into it.
//
// Val is the constructed value.
// Deps stores each injected dependency keyed by the token it was resolved from,
// for introspection and tests.
//
// Typed retrieval is available via GetAs / TryGetAs / MustGetAs.
type Service[T any] struct {
	Val  *T
	Deps map[Token]any
}

// Init constructs a Service by calling ctor and initializing the dependency bag.
func Init[T any](ctor func() *T) *Service[T] {
	return &Service[T]{Val: ctor(), Deps: make(map[Token]any)}
}

// Wrap returns a Service around an existing instance.
func Wrap[T any](v *T) *Service[T] {
	return &Service[T]{Val: v, Deps: make(map[Token]any)}
}

// Value returns the constructed value pointer.
func (s *Service[T]) Value() *T { return s.Val }

// Injector mutates a Service in-place and returns an error if wiring fails.
//
// Injectors are applied via (*Service[T]).With or WithAll.
type Injector[T any] func(ctx context.Context, s *Service[T]) error

// With applies a single injector to the Service.
//
// If inj is nil, With is a no-op and returns (s, nil).
func (s *Service[T]) With(ctx context.Context, inj Injector[T]) (*Service[T], error) {
	if inj == nil {
		return s, nil
	}
	if err := inj(ctx, s); err != nil {
		return s, err
	}
	return s, nil
}

// WithAll applies multiple injectors in order.
//
// It stops at the first error and returns that error.
func (s *Service[T]) WithAll(ctx context.Context, deps ...Injector[T]) (*Service[T], error) {
	for _, inj := range deps {
		if _, err := s.With(ctx, inj); err != nil {
			return s, err
		}
	}
	return s, nil
}

// Injecting builds an Injector that resolves token from c and binds it into
// the target.
//
// It records the resolved dependency in s.Deps[token], then calls bind to
// attach it to the target instance.
//
// The returned injector fails if:
//   - the target service (or its Val) is nil (ErrNilTarget)
//   - c is nil (ErrNilContainer)
//   - bind is nil (NilBindError)
//   - token already exists in the target's Deps (DuplicateKeyError)
//   - the token cannot be resolved (UnknownTokenError, *FactoryError)
//   - the resolved value is not a D (WrongTypeDependencyError)
func Injecting[T any, D any](c *Container, token Token, bind func(target *T, dependency D)) Injector[T] {
	return func(ctx context.Context, s *Service[T]) error {
		if s == nil || s.Val == nil {
			return ErrNilTarget
		}
		if c == nil {
			return ErrNilContainer
		}
		if bind == nil {
			return NilBindError{Token: token}
		}
		if s.Deps == nil {
			s.Deps = make(map[Token]any)
		}
		if _, exists := s.Deps[token]; exists {
			return DuplicateKeyError{Token: token}
		}

		d, err := ResolveAs[D](ctx, c, token)
		if err != nil {
			return err
		}
		s.Deps[token] = d
		bind(s.Val, d)
		return nil
	}
}

// Has reports whether a dependency exists for the token (regardless of type).
func (s *Service[T]) Has(token Token) bool {
	if s == nil || s.Deps == nil {
		return false
	}
	_, ok := s.Deps[token]
	return ok
}

// GetAny returns the raw stored dependency value without type assertions.
func (s *Service[T]) GetAny(token Token) (any, bool) {
	if s == nil || s.Deps == nil {
		return nil, false
	}
	v, ok := s.Deps[token]
	return v, ok
}

// GetAs returns the dependency typed as D.
//
// ok is false if the token is missing or the stored value is not a D.
func GetAs[T any, D any](s *Service[T], token Token) (D, bool) {
	var zero D
	if s == nil || s.Deps == nil {
		return zero, false
	}
	raw, ok := s.Deps[token]
	if !ok || raw == nil {
		return zero, false
	}
	d, ok := raw.(D)
	return d, ok
}

// TryGetAs returns the dependency typed as D.
//
// It returns:
//   - MissingDependencyError if the token is not present
//   - WrongTypeDependencyError if the token exists but is not a D
func TryGetAs[T any, D any](s *Service[T], token Token) (D, error) {
	var zero D
	if s == nil || s.Deps == nil {
		return zero, MissingDependencyError{Token: token}
	}
	raw, ok := s.Deps[token]
	if !ok || raw == nil {
		return zero, MissingDependencyError{Token: token}
	}
	d, ok := raw.(D)
	if !ok {
		return zero, WrongTypeDependencyError{Token: token, GotType: typeName(raw)}
	}
	return d, nil
}

// MustGetAs returns the dependency typed as D or panics.
func MustGetAs[T any, D any](s *Service[T], token Token) D {
	d, err := TryGetAs[T, D](s, token)
	if err != nil {
		panic(err)
	}
	return d
}

// Clone returns a shallow copy of the Service.
//
// Val is shared. Deps is copied so further wiring does not mutate the
// original Service's Deps.
func (s *Service[T]) Clone() *Service[T] {
	if s == nil {
		return nil
	}
	cp := &Service[T]{Val: s.Val, Deps: make(map[Token]any, len(s.Deps))}
	for k, v := range s.Deps {
		cp.Deps[k] = v
	}
	return cp
}

// Apply wraps an existing target and runs injs against it. It is the
// property-injection entry point for values not built through Init.
func Apply[T any](ctx context.Context, target *T, injs ...Injector[T]) (*Service[T], error) {
	if target == nil {
		return nil, ErrNilTarget
	}
	return Wrap(target).WithAll(ctx, injs...)
}
