package di_test

import (
	"context"
	"testing"

	"github.com/sghaida/decor/di"
)

func BenchmarkResolve_Instance(b *testing.B) {
	c := newWiredContainer(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Resolve(ctx, dbToken); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkResolve_CachedFactory(b *testing.B) {
	c := di.NewContainer()
	c.MustRegister(dbToken, func() (any, error) { return &db{}, nil })
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Resolve(ctx, dbToken); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkResolve_Unknown(b *testing.B) {
	c := di.NewContainer()
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Resolve(ctx, "missing"); err == nil {
			b.Fatal("expected error")
		}
	}
}

func BenchmarkWithAll_TwoInjectors(b *testing.B) {
	c := newWiredContainer(b)
	ctx := context.Background()
	injDB := di.Injecting(c, dbToken, func(u *userService, d *db) { u.DB = d })
	injLogger := di.Injecting(c, loggerToken, func(u *userService, l *logger) { u.Logger = l })

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		user := di.Init(func() *userService { return &userService{} })
		if _, err := user.WithAll(ctx, injDB, injLogger); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTryGetAs_Missing(b *testing.B) {
	user := di.Init(func() *userService { return &userService{} })

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := di.TryGetAs[userService, *db](user, dbToken); err == nil {
			b.Fatal("expected error")
		}
	}
}
