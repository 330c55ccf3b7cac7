// Package intercept composes ordered interceptor chains around callables.
//
// A chain belongs to one declaration (decl.ID) and has a fixed composition
// Mode:
//
//   - StackOrder: the last attached interceptor is outermost. Stacked
//     annotations are attached in evaluation order, nearest to the declaration
//     first, so the annotation written on top runs first.
//   - DeclarationOrder: the first attached interceptor is outermost, matching
//     class-level wiring that applies interceptors in listing order.
//
// The two modes are never mixed inside one chain.
//
// Chains are built once with Builder.Build and are sealed afterwards.
package intercept

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/sghaida/decor/decl"
	"go.uber.org/zap"
)

// Mode selects how a chain nests its interceptors.
type Mode int

const (
	// StackOrder folds right-to-left over attach order: last attached is outermost.
	StackOrder Mode = iota + 1
	// DeclarationOrder folds left-to-right over attach order: first attached is outermost.
	DeclarationOrder
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case StackOrder:
		return "stackOrder"
	case DeclarationOrder:
		return "declarationOrder"
	default:
		return "mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// Invocation carries one call through a chain.
//
// Interceptors may rewrite Args before calling next.
type Invocation struct {
	// ID is the declaration being invoked.
	ID decl.ID

	// Receiver is the instance the member is invoked on, or nil for free functions.
	Receiver any

	// Args are the call arguments in positional order.
	Args []any

	// CallID correlates log lines of a single call. Invoke assigns a fresh one.
	CallID string
}

// Arg returns Args[i] or nil when i is out of range.
func (inv *Invocation) Arg(i int) any {
	if inv == nil || i < 0 || i >= len(inv.Args) {
		return nil
	}
	return inv.Args[i]
}

// Callable is the unit wrapped by interceptors.
//
// A Callable blocks until its work completes; asynchronous work is modelled
// by the callable waiting for it.
type Callable func(ctx context.Context, inv *Invocation) (any, error)

// Interceptor wraps next. It may inspect or mutate inv.Args, replace the
// result, skip next entirely, or translate the error returned by next.
type Interceptor func(ctx context.Context, inv *Invocation, next Callable) (any, error)

var (
	// ErrChainSealed is returned when attaching to a chain that was already built.
	ErrChainSealed = errors.New("intercept: chain already built")

	// ErrNilInterceptor is returned when attaching a nil interceptor.
	ErrNilInterceptor = errors.New("intercept: nil interceptor")

	// ErrInvalidMode is returned for modes other than StackOrder and DeclarationOrder.
	ErrInvalidMode = errors.New("intercept: invalid mode")
)

// ModeConflictError is returned when an interceptor is attached with a mode
// different from the one the chain was created with.
type ModeConflictError struct {
	ID   decl.ID
	Have Mode
	Want Mode
}

// Error implements the error interface.
func (e ModeConflictError) Error() string {
	return "intercept: chain for " + e.ID.String() + " uses " + e.Have.String() + ", cannot attach with " + e.Want.String()
}

// Chain is the ordered list of interceptors attached to one declaration.
type Chain struct {
	id           decl.ID
	mode         Mode
	interceptors []Interceptor
	sealed       bool
}

// ID returns the declaration the chain belongs to.
func (c *Chain) ID() decl.ID { return c.id }

// Mode returns the chain's composition mode.
func (c *Chain) Mode() Mode { return c.mode }

// Len returns the number of attached interceptors.
func (c *Chain) Len() int { return len(c.interceptors) }

// Sealed reports whether the chain has been built.
func (c *Chain) Sealed() bool { return c.sealed }

// Builder collects chains keyed by declaration.
type Builder struct {
	mu     sync.Mutex
	chains map[decl.ID]*Chain
	logger *zap.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the builder's logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder returns an empty Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{chains: map[decl.ID]*Chain{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach appends ic to the chain for id under mode.
//
// The first Attach for an id fixes the chain's mode.
func (b *Builder) Attach(id decl.ID, ic Interceptor, mode Mode) error {
	if ic == nil {
		return ErrNilInterceptor
	}
	if mode != StackOrder && mode != DeclarationOrder {
		return ErrInvalidMode
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.chains[id]
	if !ok {
		c = &Chain{id: id, mode: mode}
		b.chains[id] = c
	}
	if c.sealed {
		return ErrChainSealed
	}
	if c.mode != mode {
		return ModeConflictError{ID: id, Have: c.mode, Want: mode}
	}
	c.interceptors = append(c.interceptors, ic)

	b.logger.Debug("interceptor attached",
		zap.Stringer("id", id),
		zap.Stringer("mode", mode),
		zap.Int("position", len(c.interceptors)-1),
	)
	return nil
}

// Chain returns the chain attached to id, if any.
func (b *Builder) Chain(id decl.ID) (*Chain, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.chains[id]
	return c, ok
}

// Build seals the chain for id and returns base wrapped by it.
//
// With no chain attached, Build returns base unchanged. Build may be called
// more than once for the same id; each call wraps the given base with the
// same, now immutable, interceptor list.
func (b *Builder) Build(id decl.ID, base Callable) Callable {
	b.mu.Lock()
	c, ok := b.chains[id]
	if !ok {
		c = &Chain{id: id, mode: StackOrder}
		b.chains[id] = c
	}
	c.sealed = true
	interceptors := append([]Interceptor(nil), c.interceptors...)
	mode := c.mode
	b.mu.Unlock()

	return Compose(mode, base, interceptors...)
}

// Compose wraps base with interceptors according to mode, independent of any Builder.
//
// Compose(StackOrder, f, a, b) behaves like b(a(f)); Compose(DeclarationOrder, f, a, b)
// behaves like a(b(f)).
func Compose(mode Mode, base Callable, interceptors ...Interceptor) Callable {
	if base == nil {
		base = func(context.Context, *Invocation) (any, error) { return nil, nil }
	}

	wrapped := base
	switch mode {
	case DeclarationOrder:
		for i := len(interceptors) - 1; i >= 0; i-- {
			wrapped = wrap(interceptors[i], wrapped)
		}
	default:
		for _, ic := range interceptors {
			wrapped = wrap(ic, wrapped)
		}
	}
	return wrapped
}

func wrap(ic Interceptor, next Callable) Callable {
	return func(ctx context.Context, inv *Invocation) (any, error) {
		return ic(ctx, inv, next)
	}
}

// Invoke runs fn for id with args, assigning a CallID.
func Invoke(ctx context.Context, fn Callable, id decl.ID, receiver any, args ...any) (any, error) {
	inv := &Invocation{ID: id, Receiver: receiver, Args: args, CallID: uuid.NewString()}
	return fn(ctx, inv)
}
