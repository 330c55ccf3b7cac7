// Package params runs per-parameter transforms and validations before a call.
//
// Rules are attached to a member declaration and a parameter position:
//
//	p := params.New(store)
//	setEmail := decl.Member[Registration]("SetEmail")
//	_ = p.AttachTransform(setEmail, 0, params.Trim())
//	_ = p.AttachTransform(setEmail, 0, params.Lowercase())
//
// Rules for one position are attached nearest-annotation-first and run in
// attach order, so the annotation closest to the parameter runs first. In
// the example above Trim runs before Lowercase.
//
// Run applies every transform (ascending position) and then every validation
// over the transformed arguments. The first failing validation aborts with a
// *ValidationError.
package params

import (
	"context"
	"sort"

	"github.com/sghaida/decor/decl"
	"github.com/sghaida/decor/intercept"
	"github.com/sghaida/decor/meta"
	"go.uber.org/zap"
)

// KindRules is the metadata kind holding a member's []Rule.
var KindRules = meta.NewKind("params", "rules")

// Transform rewrites one argument.
type Transform struct {
	Name string
	Fn   func(v any) (any, error)
}

// Validation checks one argument.
type Validation struct {
	Name string
	Fn   func(v any) error
}

// Rule is one attached transform or validation. Exactly one of Transform or
// Validate is set.
type Rule struct {
	Index     int
	Name      string
	Transform func(v any) (any, error)
	Validate  func(v any) error
}

// Pipeline attaches and runs parameter rules. Rules live in the metadata store.
type Pipeline struct {
	store  *meta.Store
	logger *zap.Logger
	strict bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for signature warnings.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithStrictSignature makes argument-count mismatches fail the call with a
// *SignatureError instead of logging a warning.
func WithStrictSignature() Option {
	return func(p *Pipeline) { p.strict = true }
}

// New returns a Pipeline storing its rules in store.
func New(store *meta.Store, opts ...Option) *Pipeline {
	p := &Pipeline{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AttachTransform attaches t to parameter index of member id.
func (p *Pipeline) AttachTransform(id decl.ID, index int, t Transform) error {
	if t.Fn == nil {
		return ErrNilRule
	}
	return p.attach(id, Rule{Index: index, Name: t.Name, Transform: t.Fn})
}

// AttachValidation attaches v to parameter index of member id.
func (p *Pipeline) AttachValidation(id decl.ID, index int, v Validation) error {
	if v.Fn == nil {
		return ErrNilRule
	}
	return p.attach(id, Rule{Index: index, Name: v.Name, Validate: v.Fn})
}

func (p *Pipeline) attach(id decl.ID, r Rule) error {
	if id.Level() != decl.LevelMember {
		return ErrNotMember
	}
	if r.Index < 0 {
		return InvalidIndexError{ID: id, Index: r.Index}
	}
	meta.Append(p.store, id, KindRules, r)
	return nil
}

// Rules returns the rules attached to id in attach order.
func (p *Pipeline) Rules(id decl.ID) []Rule {
	return meta.List[Rule](p.store, id, KindRules)
}

// Run applies the rules of id to args and returns the transformed arguments.
//
// args is never modified; the returned slice is a copy, padded with nil when
// fewer arguments than declared positions were supplied.
func (p *Pipeline) Run(ctx context.Context, id decl.ID, args []any) ([]any, error) {
	rules := p.Rules(id)
	if len(rules) == 0 {
		return args, nil
	}

	want := 0
	for _, r := range rules {
		if r.Index+1 > want {
			want = r.Index + 1
		}
	}

	out := make([]any, max(len(args), want))
	copy(out, args)

	if len(args) < want {
		sigErr := &SignatureError{ID: id, Want: want, Got: len(args)}
		if p.strict {
			return nil, sigErr
		}
		p.logger.Warn("parameter rules expect more arguments",
			zap.Stringer("id", id),
			zap.Int("want", want),
			zap.Int("got", len(args)),
			zap.Error(sigErr),
		)
	}

	order := executionOrder(rules)

	for _, i := range order {
		r := rules[i]
		if r.Transform == nil {
			continue
		}
		v, err := r.Transform(out[r.Index])
		if err != nil {
			return nil, &ValidationError{ID: id, Index: r.Index, Rule: r.Name, Value: out[r.Index], Err: err}
		}
		out[r.Index] = v
	}

	for _, i := range order {
		r := rules[i]
		if r.Validate == nil {
			continue
		}
		if err := r.Validate(out[r.Index]); err != nil {
			return nil, &ValidationError{ID: id, Index: r.Index, Rule: r.Name, Value: out[r.Index], Err: err}
		}
	}

	return out, nil
}

// executionOrder sorts rule positions by parameter index ascending and, for
// one index, by attach order.
func executionOrder(rules []Rule) []int {
	order := make([]int, len(rules))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rules[order[a]].Index < rules[order[b]].Index
	})
	return order
}

// Interceptor returns a chain step that runs the rules of id against the
// invocation's arguments and replaces them with the transformed ones.
func (p *Pipeline) Interceptor(id decl.ID) intercept.Interceptor {
	return func(ctx context.Context, inv *intercept.Invocation, next intercept.Callable) (any, error) {
		args, err := p.Run(ctx, id, inv.Args)
		if err != nil {
			p.logger.Debug("parameter rules rejected call", zap.Stringer("id", id), zap.Error(err))
			return nil, err
		}
		inv.Args = args
		return next(ctx, inv)
	}
}
