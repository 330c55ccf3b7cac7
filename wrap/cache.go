package wrap

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"unsafe"
	"weak"

	"github.com/sghaida/decor/decl"
	"github.com/sghaida/decor/intercept"
	"github.com/sghaida/decor/meta"
	"golang.org/x/sync/singleflight"
)

// KindCache holds a member's memoized results.
var KindCache = meta.NewKind("cache", "results")

// receiverKey is the map key of one receiver. Pointer-like receivers are
// keyed by type and address, comparable values by themselves and anything
// else by its %#v rendering.
type receiverKey struct {
	typ  reflect.Type
	addr uintptr
	val  any
	repr string
}

// receiver identifies an invocation's receiver. ref is set for pointer-like
// receivers; two refs are equal only when made from the same live object, so
// an object allocated later at a reused address never matches.
type receiver struct {
	key receiverKey
	ref weak.Pointer[byte]
	ptr *byte
}

func identify(r any) receiver {
	if r == nil {
		return receiver{key: receiverKey{repr: "<nil>"}}
	}
	v := reflect.ValueOf(r)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan:
		if v.IsNil() {
			return receiver{key: receiverKey{typ: v.Type(), repr: "<nil>"}}
		}
		p := (*byte)(v.UnsafePointer())
		return receiver{
			key: receiverKey{typ: v.Type(), addr: uintptr(unsafe.Pointer(p))},
			ref: weak.Make(p),
			ptr: p,
		}
	case reflect.Func, reflect.UnsafePointer:
		return receiver{key: receiverKey{typ: v.Type(), addr: v.Pointer()}}
	default:
		if v.Comparable() {
			return receiver{key: receiverKey{typ: v.Type(), val: r}}
		}
		return receiver{key: receiverKey{typ: v.Type(), repr: fmt.Sprintf("%#v", r)}}
	}
}

// flightKey names one in-flight call. The receiver is alive while its call
// runs, so its address cannot be reused inside one flight.
func (rc receiver) flightKey(args string) string {
	return fmt.Sprintf("%v@%x:%#v:%q|%s", rc.key.typ, rc.key.addr, rc.key.val, rc.key.repr, args)
}

type receiverMemo struct {
	ref    weak.Pointer[byte]
	values map[string]any
}

type memo struct {
	mu        sync.Mutex
	receivers map[receiverKey]*receiverMemo
	group     singleflight.Group
}

func newMemo() *memo {
	return &memo{receivers: map[receiverKey]*receiverMemo{}}
}

func (m *memo) get(rc receiver, args string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.receivers[rc.key]
	if !ok || e.ref != rc.ref {
		return nil, false
	}
	v, ok := e.values[args]
	return v, ok
}

func (m *memo) put(rc receiver, args string, v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.receivers[rc.key]
	if !ok || e.ref != rc.ref {
		e = &receiverMemo{ref: rc.ref, values: map[string]any{}}
		m.receivers[rc.key] = e
		if rc.ptr != nil {
			runtime.AddCleanup(rc.ptr, m.forget, receiver{key: rc.key, ref: rc.ref})
		}
	}
	e.values[args] = v
}

// forget drops the entry of rc unless a newer receiver already replaced it.
func (m *memo) forget(rc receiver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.receivers[rc.key]; ok && e.ref == rc.ref {
		delete(m.receivers, rc.key)
	}
}

func (m *memo) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.receivers)
}

// Cache memoizes successful results per receiver and argument list.
// Concurrent misses for the same key run the inner call once.
// Errors are not cached.
//
// Results live in store under (inv.ID, KindCache) and are dropped once a
// pointer receiver is garbage collected. Deleting that entry, or calling
// InvalidateAll, clears every receiver; Invalidate clears one.
func Cache(store *meta.Store) intercept.Interceptor {
	return func(ctx context.Context, inv *intercept.Invocation, next intercept.Callable) (any, error) {
		m := memoFor(store, inv.ID)
		rc := identify(inv.Receiver)
		args := argsKey(inv.Args)

		if v, ok := m.get(rc, args); ok {
			return v, nil
		}

		v, err, _ := m.group.Do(rc.flightKey(args), func() (any, error) {
			if v, ok := m.get(rc, args); ok {
				return v, nil
			}
			v, err := next(ctx, inv)
			if err != nil {
				return nil, err
			}
			m.put(rc, args, v)
			return v, nil
		})
		return v, err
	}
}

func memoFor(store *meta.Store, id decl.ID) *memo {
	if v, ok := store.Get(id, KindCache); ok {
		if m, ok := v.(*memo); ok {
			return m
		}
	}
	actual, _ := store.SetIfAbsent(id, KindCache, newMemo())
	if m, ok := actual.(*memo); ok {
		return m
	}
	m := newMemo()
	store.Set(id, KindCache, m)
	return m
}

// Invalidate drops the cached results of member id for recv.
func Invalidate(store *meta.Store, id decl.ID, recv any) {
	v, ok := store.Get(id, KindCache)
	if !ok {
		return
	}
	if m, ok := v.(*memo); ok {
		m.forget(identify(recv))
	}
}

// InvalidateAll drops the cached results of member id for every receiver.
func InvalidateAll(store *meta.Store, id decl.ID) {
	store.Delete(id, KindCache)
}

// CachedReceivers reports how many receivers of member id hold results.
func CachedReceivers(store *meta.Store, id decl.ID) int {
	v, ok := store.Get(id, KindCache)
	if !ok {
		return 0
	}
	if m, ok := v.(*memo); ok {
		return m.len()
	}
	return 0
}

func argsKey(args []any) string {
	if len(args) == 0 {
		return ""
	}
	return fmt.Sprintf("%#v", args)
}
