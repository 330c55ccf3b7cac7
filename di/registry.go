package di

import (
	"context"
	"errors"
	"fmt"
)

// Registry provides optional dependencies at construction time.
//
// It is intentionally:
// - read-only
// - side effect free from the caller's point of view
//
// Expected usage:
//
//	val, ok, err := reg.Resolve(cfg, "some.key")
type Registry interface {
	Resolve(cfg any, key string) (val any, ok bool, err error)
}

// containerRegistry adapts a Container to Registry: unknown tokens are
// reported as ok=false instead of an error.
type containerRegistry struct {
	c   *Container
	ctx context.Context
}

// AsRegistry returns a read-only Registry view of c. Factories run with ctx.
func (c *Container) AsRegistry(ctx context.Context) Registry {
	return &containerRegistry{c: c, ctx: ctx}
}

// Resolve implements Registry and defensively converts panics into errors.
func (r *containerRegistry) Resolve(_ any, key string) (val any, ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			val = nil
			ok = false
			err = fmt.Errorf("%w: %v", ErrRegistryPanic, rec)
		}
	}()

	v, err := r.c.Resolve(r.ctx, Token(key))
	if err != nil {
		var unknown UnknownTokenError
		if errors.As(err, &unknown) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}
