// Package di is a small token-keyed dependency container plus explicit
// injector helpers.
//
// A Container maps a Token to either a ready instance or a Factory. Factories
// run lazily on first Resolve and their result is cached, so every later
// resolution of the token yields the same instance.
//
//	c := di.NewContainer()
//	_ = c.Register("db", func() (any, error) { return openDB() })
//	db, err := di.ResolveAs[*DB](ctx, c, "db")
//
// Service[T] and Injector[T] wire resolved dependencies into a constructed
// value and record them in Deps for introspection:
//
//	svc, err := di.Init(NewUserService).WithAll(ctx,
//	    di.Injecting(c, "db", func(u *UserService, d *DB) { u.DB = d }),
//	)
//
// The container does not detect dependency cycles.
//
// Import
//
//	"github.com/sghaida/decor/di"
package di
