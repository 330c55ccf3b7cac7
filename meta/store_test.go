package meta_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/sghaida/decor/decl"
	"github.com/sghaida/decor/meta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type user struct{}

type account struct{}

var (
	kindTable = meta.NewKind("model", "table")
	kindCache = meta.NewKind("cache", "value")
)

func TestNewKind_Feature(t *testing.T) {
	t.Parallel()

	assert.Equal(t, meta.Kind("model:table"), kindTable)
	assert.Equal(t, "model", kindTable.Feature())
	assert.Equal(t, "", meta.Kind("plain").Feature())
}

func TestSetGetDelete(t *testing.T) {
	t.Parallel()

	s := meta.New()
	id := decl.Class[user]()

	_, ok := s.Get(id, kindTable)
	require.False(t, ok)
	assert.False(t, s.Has(id, kindTable))

	s.Set(id, kindTable, "users")
	got, ok := s.Get(id, kindTable)
	require.True(t, ok)
	assert.Equal(t, "users", got)
	assert.True(t, s.Has(id, kindTable))

	s.Delete(id, kindTable)
	_, ok = s.Get(id, kindTable)
	assert.False(t, ok)

	// deleting twice is a no-op
	s.Delete(id, kindTable)
	assert.Equal(t, 0, s.Len())
}

func TestSet_OverwriteReplaces(t *testing.T) {
	t.Parallel()

	s := meta.New()
	id := decl.Member[user]("Name")

	s.Set(id, kindCache, 1)
	s.Set(id, kindCache, 2)

	got, ok := s.Get(id, kindCache)
	require.True(t, ok)
	assert.Equal(t, 2, got)
	assert.Equal(t, 1, s.Len())
}

func TestKindsDoNotClash(t *testing.T) {
	t.Parallel()

	s := meta.New()
	id := decl.Class[user]()

	s.Set(id, kindTable, "users")
	s.Set(id, kindCache, "users")
	s.Delete(id, kindCache)

	got, ok := s.Get(id, kindTable)
	require.True(t, ok)
	assert.Equal(t, "users", got)
}

func TestSameNameDifferentOwnerDoesNotClash(t *testing.T) {
	t.Parallel()

	s := meta.New()
	s.Set(decl.Member[user]("ID"), kindTable, "a")
	s.Set(decl.Member[account]("ID"), kindTable, "b")

	a, _ := s.Get(decl.Member[user]("ID"), kindTable)
	b, _ := s.Get(decl.Member[account]("ID"), kindTable)
	assert.Equal(t, "a", a)
	assert.Equal(t, "b", b)
}

func TestGetAs(t *testing.T) {
	t.Parallel()

	s := meta.New()
	id := decl.Class[user]()

	_, err := meta.GetAs[string](s, id, kindTable)
	var missing meta.MissingEntryError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, kindTable, missing.Kind)
	assert.Contains(t, err.Error(), `"model:table"`)

	s.Set(id, kindTable, 42)
	_, err = meta.GetAs[string](s, id, kindTable)
	var wrong meta.WrongTypeError
	require.True(t, errors.As(err, &wrong))
	assert.Equal(t, "int", wrong.GotType)

	s.Set(id, kindTable, nil)
	_, err = meta.GetAs[string](s, id, kindTable)
	require.True(t, errors.As(err, &wrong))
	assert.Equal(t, "<nil>", wrong.GotType)

	s.Set(id, kindTable, "users")
	got, err := meta.GetAs[string](s, id, kindTable)
	require.NoError(t, err)
	assert.Equal(t, "users", got)
}

func TestAppendAndList_CopyOnWrite(t *testing.T) {
	t.Parallel()

	s := meta.New()
	id := decl.Member[user]("Set")

	assert.Nil(t, meta.List[int](s, id, kindTable))

	meta.Append(s, id, kindTable, 1)
	first := meta.List[int](s, id, kindTable)
	meta.Append(s, id, kindTable, 2)

	assert.Equal(t, []int{1}, first)
	assert.Equal(t, []int{1, 2}, meta.List[int](s, id, kindTable))
}

func TestSetIfAbsent(t *testing.T) {
	t.Parallel()

	s := meta.New()
	id := decl.Class[user]()

	v, stored := s.SetIfAbsent(id, kindTable, "first")
	assert.True(t, stored)
	assert.Equal(t, "first", v)

	v, stored = s.SetIfAbsent(id, kindTable, "second")
	assert.False(t, stored)
	assert.Equal(t, "first", v)
}

func TestUpdateExisting(t *testing.T) {
	t.Parallel()

	s := meta.New()
	id := decl.Class[user]()

	assert.False(t, s.UpdateExisting(id, kindTable, func(old any) any { return "x" }))
	assert.False(t, s.Has(id, kindTable))

	s.Set(id, kindTable, 1)
	assert.True(t, s.UpdateExisting(id, kindTable, func(old any) any { return old.(int) + 1 }))
	v, _ := s.Get(id, kindTable)
	assert.Equal(t, 2, v)
}

func TestEntriesKindsByKindReset(t *testing.T) {
	t.Parallel()

	s := meta.New()
	uid := decl.Class[user]()
	aid := decl.Class[account]()

	s.Set(uid, kindTable, "users")
	s.Set(uid, kindCache, true)
	s.Set(aid, kindTable, "accounts")

	assert.Equal(t, []meta.Kind{kindCache, kindTable}, s.Kinds(uid))

	byKind := s.ByKind(kindTable)
	require.Len(t, byKind, 2)
	assert.Equal(t, "accounts", byKind[0].Value)
	assert.Equal(t, "users", byKind[1].Value)

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Entries(uid))
}

func TestWithLogger_LogsMutations(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	s := meta.New(meta.WithLogger(zap.New(core)), meta.WithLogger(nil))
	id := decl.Class[user]()

	s.Set(id, kindTable, "users")
	s.Delete(id, kindTable)
	s.Delete(id, kindTable)

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "metadata set", logs.All()[0].Message)
	assert.Equal(t, "metadata deleted", logs.All()[1].Message)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := meta.New()
	id := decl.Member[user]("Counter")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			meta.Append(s, id, kindTable, 1)
			_, _ = s.Get(id, kindTable)
			_ = s.Entries(id)
		}()
	}
	wg.Wait()

	assert.Len(t, meta.List[int](s, id, kindTable), 50)
}
