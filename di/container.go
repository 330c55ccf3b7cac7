package di

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Token names a binding in a Container.
//
// Tokens are typically package-level constants:
//
//	const TokenDB di.Token = "db"
type Token string

// Factory builds the instance bound to a token.
type Factory func(ctx context.Context) (any, error)

type binding struct {
	factory  Factory
	instance any
	resolved bool
}

// Container is a token-keyed registry of factories and instances.
//
// Factory bindings are invoked on first resolution and the result is cached
// for every later resolution of the same token. If two goroutines resolve an
// unresolved token at the same time both may run the factory; the first
// result stored wins and is returned to both.
//
// The container does not detect cycles: a factory that resolves a token that
// leads back to itself recurses until the stack is exhausted.
type Container struct {
	mu       sync.RWMutex
	bindings map[Token]*binding
	logger   *zap.Logger
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the container's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Container) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewContainer returns an empty Container.
func NewContainer(opts ...Option) *Container {
	c := &Container{bindings: map[Token]*binding{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register binds token to factoryOrInstance.
//
// A value of type Factory, func(context.Context) (any, error), func() (any, error)
// or func() any is treated as a factory. Any other value, including nil, is
// bound as a ready instance. Registering a token again replaces its binding,
// including an instance already resolved from the old one.
func (c *Container) Register(token Token, factoryOrInstance any) error {
	if token == "" {
		return ErrEmptyToken
	}

	b := &binding{}
	if f := asFactory(factoryOrInstance); f != nil {
		b.factory = f
	} else {
		b.instance = factoryOrInstance
		b.resolved = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, replaced := c.bindings[token]
	c.bindings[token] = b

	c.logger.Debug("binding registered",
		zap.String("token", string(token)),
		zap.Bool("factory", b.factory != nil),
		zap.Bool("replaced", replaced),
	)
	return nil
}

// MustRegister is Register that panics on error. Useful in composition roots.
func (c *Container) MustRegister(token Token, factoryOrInstance any) *Container {
	if err := c.Register(token, factoryOrInstance); err != nil {
		panic(err)
	}
	return c
}

func asFactory(v any) Factory {
	switch f := v.(type) {
	case Factory:
		return f
	case func(context.Context) (any, error):
		return f
	case func() (any, error):
		return func(context.Context) (any, error) { return f() }
	case func() any:
		return func(context.Context) (any, error) { return f(), nil }
	default:
		return nil
	}
}

// Provide registers a typed factory for token.
func Provide[T any](c *Container, token Token, factory func(ctx context.Context) (T, error)) error {
	if factory == nil {
		return c.Register(token, nil)
	}
	return c.Register(token, Factory(func(ctx context.Context) (any, error) {
		return factory(ctx)
	}))
}

// Resolve returns the instance bound to token, running its factory on first use.
//
// Factories run without the container lock held. Concurrent first calls may
// run a factory more than once; the first stored result wins. Cycles between
// factories are not detected.
func (c *Container) Resolve(ctx context.Context, token Token) (any, error) {
	c.mu.RLock()
	b, ok := c.bindings[token]
	var (
		instance any
		resolved bool
		factory  Factory
	)
	if ok {
		instance, resolved, factory = b.instance, b.resolved, b.factory
	}
	c.mu.RUnlock()

	if !ok {
		c.logger.Debug("unknown token", zap.String("token", string(token)))
		return nil, UnknownTokenError{Token: token}
	}
	if resolved {
		return instance, nil
	}

	v, err := factory(ctx)
	if err != nil {
		c.logger.Warn("factory failed", zap.String("token", string(token)), zap.Error(err))
		return nil, &FactoryError{Token: token, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if b.resolved {
		return b.instance, nil
	}
	b.instance, b.resolved = v, true
	return v, nil
}

// Has reports whether token is bound.
func (c *Container) Has(token Token) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.bindings[token]
	return ok
}

// Tokens returns the bound tokens, sorted.
func (c *Container) Tokens() []Token {
	c.mu.RLock()
	out := make([]Token, 0, len(c.bindings))
	for t := range c.bindings {
		out = append(out, t)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Preload resolves tokens concurrently so that factories run eagerly.
// With no tokens, every binding is preloaded. The first error is returned.
func (c *Container) Preload(ctx context.Context, tokens ...Token) error {
	if len(tokens) == 0 {
		tokens = c.Tokens()
	}

	eg, egctx := errgroup.WithContext(ctx)
	for _, token := range tokens {
		token := token
		eg.Go(func() error {
			_, err := c.Resolve(egctx, token)
			return err
		})
	}
	return eg.Wait()
}

// ResolveAs resolves token and asserts the instance to T.
func ResolveAs[T any](ctx context.Context, c *Container, token Token) (T, error) {
	var zero T
	raw, err := c.Resolve(ctx, token)
	if err != nil {
		return zero, err
	}
	v, ok := raw.(T)
	if !ok {
		return zero, WrongTypeDependencyError{Token: token, GotType: typeName(raw)}
	}
	return v, nil
}

// MustResolveAs is ResolveAs that panics on error.
func MustResolveAs[T any](ctx context.Context, c *Container, token Token) T {
	v, err := ResolveAs[T](ctx, c, token)
	if err != nil {
		panic(err)
	}
	return v
}

func typeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}
