package decor

import (
	"context"
	"reflect"

	"github.com/sghaida/decor/decl"
	"github.com/sghaida/decor/di"
	"github.com/sghaida/decor/intercept"
	"github.com/sghaida/decor/lifecycle"
	"github.com/sghaida/decor/meta"
	"github.com/sghaida/decor/params"
	"go.uber.org/zap"
)

// Registry wires the metadata store, interceptor builder, parameter pipeline,
// dependency container and lifecycle manager together.
type Registry struct {
	logger    *zap.Logger
	store     *meta.Store
	builder   *intercept.Builder
	pipeline  *params.Pipeline
	container *di.Container
	manager   *lifecycle.Manager
}

type settings struct {
	logger *zap.Logger
	strict bool
}

// Option configures a Registry.
type Option func(*settings)

// WithLogger sets the logger shared by every component.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStrictSignature makes parameter count mismatches fail calls instead of
// being logged.
func WithStrictSignature() Option {
	return func(s *settings) { s.strict = true }
}

// New returns an empty Registry.
func New(opts ...Option) *Registry {
	s := settings{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}

	store := meta.New(meta.WithLogger(s.logger.Named("meta")))
	container := di.NewContainer(di.WithLogger(s.logger.Named("di")))

	pipelineOpts := []params.Option{params.WithLogger(s.logger.Named("params"))}
	if s.strict {
		pipelineOpts = append(pipelineOpts, params.WithStrictSignature())
	}

	return &Registry{
		logger:    s.logger,
		store:     store,
		builder:   intercept.NewBuilder(intercept.WithLogger(s.logger.Named("intercept"))),
		pipeline:  params.New(store, pipelineOpts...),
		container: container,
		manager:   lifecycle.New(store, container, lifecycle.WithLogger(s.logger.Named("lifecycle"))),
	}
}

// Store returns the metadata store.
func (r *Registry) Store() *meta.Store { return r.store }

// Logger returns the registry logger.
func (r *Registry) Logger() *zap.Logger { return r.logger }

// Container returns the dependency container.
func (r *Registry) Container() *di.Container { return r.container }

// Lifecycle returns the lifecycle manager.
func (r *Registry) Lifecycle() *lifecycle.Manager { return r.manager }

// Pipeline returns the parameter pipeline.
func (r *Registry) Pipeline() *params.Pipeline { return r.pipeline }

// DeclareMetadata records value under (id, kind), replacing any previous value.
func (r *Registry) DeclareMetadata(id decl.ID, kind meta.Kind, value any) {
	r.store.Set(id, kind, value)
}

// ReadMetadata returns the value under (id, kind); ok is false when absent.
func (r *Registry) ReadMetadata(id decl.ID, kind meta.Kind) (any, bool) {
	return r.store.Get(id, kind)
}

// Intercept attaches ic to the chain of id.
func (r *Registry) Intercept(id decl.ID, ic intercept.Interceptor, mode intercept.Mode) error {
	return r.builder.Attach(id, ic, mode)
}

// ParameterRule is a transform, a validation, or both, for one parameter.
// A rule with both runs the transform first.
type ParameterRule struct {
	Transform params.Transform
	Validate  params.Validation
}

// Transform returns a ParameterRule holding t.
func Transform(t params.Transform) ParameterRule { return ParameterRule{Transform: t} }

// Validate returns a ParameterRule holding v.
func Validate(v params.Validation) ParameterRule { return ParameterRule{Validate: v} }

// OnParameter attaches rule to parameter index of member id.
func (r *Registry) OnParameter(id decl.ID, index int, rule ParameterRule) error {
	if rule.Transform.Fn == nil && rule.Validate.Fn == nil {
		return params.ErrNilRule
	}
	if rule.Transform.Fn != nil {
		if err := r.pipeline.AttachTransform(id, index, rule.Transform); err != nil {
			return err
		}
	}
	if rule.Validate.Fn != nil {
		if err := r.pipeline.AttachValidation(id, index, rule.Validate); err != nil {
			return err
		}
	}
	return nil
}

// Method builds the callable for member id: the interceptor chain of id
// around the parameter pipeline around base. Building seals the chain.
func (r *Registry) Method(id decl.ID, base intercept.Callable) intercept.Callable {
	inner := intercept.Compose(intercept.StackOrder, base, r.pipeline.Interceptor(id))
	return r.builder.Build(id, inner)
}

// Call builds the callable for id and invokes it once.
func (r *Registry) Call(ctx context.Context, id decl.ID, base intercept.Callable, receiver any, args ...any) (any, error) {
	return intercept.Invoke(ctx, r.Method(id, base), id, receiver, args...)
}

// MarkSingleton tags owner as a singleton.
func (r *Registry) MarkSingleton(owner reflect.Type) error {
	return r.manager.MarkSingleton(owner)
}

// Provide binds token to a factory or instance in the container.
func (r *Registry) Provide(token di.Token, factoryOrInstance any) error {
	return r.container.Register(token, factoryOrInstance)
}

// Resolve returns the instance bound to token.
func (r *Registry) Resolve(ctx context.Context, token di.Token) (any, error) {
	return r.container.Resolve(ctx, token)
}

// Define registers the real constructor of owner.
func (r *Registry) Define(owner reflect.Type, ctor lifecycle.Constructor) error {
	return r.manager.Define(owner, ctor)
}

// Inject resolves constructor parameter index of owner from token.
func (r *Registry) Inject(owner reflect.Type, index int, token di.Token) error {
	return r.manager.Inject(owner, index, token)
}

// Create constructs owner through the lifecycle manager.
func (r *Registry) Create(ctx context.Context, owner reflect.Type, args ...any) (any, error) {
	return r.manager.Create(ctx, owner, args...)
}

// Define registers a typed constructor for T.
func Define[T any](r *Registry, ctor func(ctx context.Context, args []any) (*T, error)) error {
	return lifecycle.Define(r.manager, ctor)
}

// Create constructs T through the lifecycle manager.
func Create[T any](ctx context.Context, r *Registry, args ...any) (*T, error) {
	return lifecycle.Create[T](ctx, r.manager, args...)
}
