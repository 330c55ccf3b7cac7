// Package decor attaches metadata to declarations and uses it at call and
// construction time.
//
// A Registry is the composition root. It owns one metadata store, one
// interceptor builder, one parameter pipeline, one dependency container and
// one lifecycle manager:
//
//	r := decor.New(decor.WithLogger(logger))
//
//	id := decl.Member[SomeService]("DoSomething")
//	_ = r.Intercept(id, wrap.Timeout(time.Second), intercept.StackOrder)
//	_ = r.OnParameter(id, 0, decor.Validate(params.Required()))
//	call := r.Method(id, base)
//
//	_ = r.Provide("db", openDB)
//	_ = decor.Define(r, NewTodoService)
//	_ = r.Inject(reflect.TypeFor[TodoService](), 0, "db")
//	svc, err := decor.Create[TodoService](ctx, r)
//
// Declarations happen in an explicit registration phase, typically in an
// init-style function of the owning package or in code produced by annogen.
// There is no package-level registry.
//
// Subpackages:
//   - decl: declaration identity
//   - meta: metadata store
//   - intercept: interceptor chains
//   - params: parameter transforms and validations
//   - di: dependency container and injectors
//   - lifecycle: singleton and injected construction
//   - wrap: ready-made interceptors
//   - cmd/annogen, cmd/decor: code generator and demo CLI
package decor
