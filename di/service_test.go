package di_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sghaida/decor/di"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	dbToken     di.Token = "db"
	loggerToken di.Token = "logger"
)

func newWiredContainer(t testing.TB) *di.Container {
	t.Helper()
	c := di.NewContainer()
	c.MustRegister(dbToken, &db{DSN: "postgres://"}).
		MustRegister(loggerToken, &logger{Level: "info"})
	return c
}

func TestInitAndValue(t *testing.T) {
	t.Parallel()

	svc := di.Init(func() *userService { return &userService{} })

	require.NotNil(t, svc)
	require.NotNil(t, svc.Value())
	require.NotNil(t, svc.Deps)
	assert.Empty(t, svc.Deps)

	u := &userService{}
	assert.Same(t, u, di.Wrap(u).Value())
}

func TestWith_NilInjector_NoOp(t *testing.T) {
	t.Parallel()

	svc := di.Init(func() *userService { return &userService{} })
	before := svc.Value()

	got, err := svc.With(context.Background(), nil)
	require.NoError(t, err)
	assert.Same(t, svc, got)
	assert.Same(t, before, got.Value())
}

func TestWithAll_AppliesInOrderAndStopsOnError(t *testing.T) {
	t.Parallel()

	c := newWiredContainer(t)
	user := di.Init(func() *userService { return &userService{} })

	injDB := di.Injecting(c, dbToken, func(u *userService, d *db) { u.DB = d })
	injLogger := di.Injecting(c, loggerToken, func(u *userService, l *logger) { u.Logger = l })

	_, err := user.WithAll(context.Background(), injDB, injDB, injLogger)
	require.Error(t, err)

	var dup di.DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, dbToken, dup.Token)

	require.NotNil(t, user.Value().DB)
	assert.Nil(t, user.Value().Logger)
	assert.True(t, user.Has(dbToken))
	assert.False(t, user.Has(loggerToken))
}

func TestInjecting_Success(t *testing.T) {
	t.Parallel()

	c := newWiredContainer(t)
	user := &di.Service[userService]{Val: &userService{}}

	_, err := user.WithAll(context.Background(),
		di.Injecting(c, dbToken, func(u *userService, d *db) { u.DB = d }),
		di.Injecting(c, loggerToken, func(u *userService, l *logger) { u.Logger = l }),
	)
	require.NoError(t, err)
	require.NotNil(t, user.Deps)

	dep := di.MustResolveAs[*db](context.Background(), c, dbToken)
	assert.Same(t, dep, user.Val.DB)
	assert.Equal(t, "info", user.Val.Logger.Level)
}

func TestInjecting_Errors(t *testing.T) {
	t.Parallel()

	c := newWiredContainer(t)
	bind := func(u *userService, d *db) { u.DB = d }

	cases := []struct {
		name   string
		c      *di.Container
		target *di.Service[userService]
		token  di.Token
		bind   func(*userService, *db)
		check  func(t *testing.T, err error)
	}{
		{
			name:   "nil target service",
			c:      c,
			token:  dbToken,
			bind:   bind,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, di.ErrNilTarget) },
		},
		{
			name:   "nil target value",
			c:      c,
			target: &di.Service[userService]{},
			token:  dbToken,
			bind:   bind,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, di.ErrNilTarget) },
		},
		{
			name:   "nil container",
			target: di.Init(func() *userService { return &userService{} }),
			token:  dbToken,
			bind:   bind,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, di.ErrNilContainer) },
		},
		{
			name:   "nil bind",
			c:      c,
			target: di.Init(func() *userService { return &userService{} }),
			token:  dbToken,
			check: func(t *testing.T, err error) {
				var nb di.NilBindError
				require.True(t, errors.As(err, &nb))
				assert.Equal(t, dbToken, nb.Token)
			},
		},
		{
			name:   "unknown token",
			c:      c,
			target: di.Init(func() *userService { return &userService{} }),
			token:  "cache",
			bind:   bind,
			check: func(t *testing.T, err error) {
				var unk di.UnknownTokenError
				assert.True(t, errors.As(err, &unk))
			},
		},
		{
			name:   "wrong type",
			c:      c,
			target: di.Init(func() *userService { return &userService{} }),
			token:  loggerToken,
			bind:   bind,
			check: func(t *testing.T, err error) {
				var wt di.WrongTypeDependencyError
				require.True(t, errors.As(err, &wt))
				assert.Equal(t, "*di_test.logger", wt.GotType)
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := di.Injecting(tc.c, tc.token, tc.bind)(context.Background(), tc.target)
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestAccessors(t *testing.T) {
	t.Parallel()

	c := newWiredContainer(t)
	user := di.Init(func() *userService { return &userService{} })
	_, err := user.With(context.Background(), di.Injecting(c, dbToken, func(u *userService, d *db) { u.DB = d }))
	require.NoError(t, err)

	raw, ok := user.GetAny(dbToken)
	require.True(t, ok)
	assert.IsType(t, &db{}, raw)

	d, ok := di.GetAs[userService, *db](user, dbToken)
	require.True(t, ok)
	assert.Equal(t, "postgres://", d.DSN)

	_, ok = di.GetAs[userService, *logger](user, dbToken)
	assert.False(t, ok)

	_, err = di.TryGetAs[userService, *db](user, loggerToken)
	var missing di.MissingDependencyError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, `di: dependency "logger" missing`, err.Error())

	_, err = di.TryGetAs[userService, *logger](user, dbToken)
	var wt di.WrongTypeDependencyError
	require.True(t, errors.As(err, &wt))
	assert.Equal(t, `di: dependency "db" has wrong type (*di_test.db)`, err.Error())

	assert.NotPanics(t, func() { di.MustGetAs[userService, *db](user, dbToken) })
	assert.Panics(t, func() { di.MustGetAs[userService, *db](user, loggerToken) })

	var nilSvc *di.Service[userService]
	assert.False(t, nilSvc.Has(dbToken))
	_, ok = nilSvc.GetAny(dbToken)
	assert.False(t, ok)
	assert.Nil(t, nilSvc.Clone())
}

func TestClone_CopiesDeps(t *testing.T) {
	t.Parallel()

	c := newWiredContainer(t)
	user := di.Init(func() *userService { return &userService{} })
	_, err := user.With(context.Background(), di.Injecting(c, dbToken, func(u *userService, d *db) { u.DB = d }))
	require.NoError(t, err)

	cp := user.Clone()
	assert.Same(t, user.Val, cp.Val)

	_, err = cp.With(context.Background(), di.Injecting(c, loggerToken, func(u *userService, l *logger) { u.Logger = l }))
	require.NoError(t, err)
	assert.True(t, cp.Has(loggerToken))
	assert.False(t, user.Has(loggerToken))
}

func TestApply(t *testing.T) {
	t.Parallel()

	c := newWiredContainer(t)
	u := &userService{}
	svc, err := di.Apply(context.Background(), u,
		di.Injecting(c, dbToken, func(u *userService, d *db) { u.DB = d }),
	)
	require.NoError(t, err)
	assert.Same(t, u, svc.Value())
	assert.Equal(t, "postgres://", u.DB.DSN)

	_, err = di.Apply[userService](context.Background(), nil)
	assert.ErrorIs(t, err, di.ErrNilTarget)
}
