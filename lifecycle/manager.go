// Package lifecycle governs construction of defined owner types.
//
// A Manager runs an owner's real constructor with dependency-injected
// arguments and, for owners marked as singletons, substitutes the canonical
// instance for the freshly constructed one.
//
// Singleton owners still run their constructor on every Create. The first
// completed result becomes canonical and later results are discarded, so
// constructor side effects repeat. Constructions reports how many times the
// real constructor ran.
package lifecycle

import (
	"context"
	"reflect"
	"sort"
	"strconv"
	"sync"
	"time"
	"weak"

	"github.com/sghaida/decor/decl"
	"github.com/sghaida/decor/di"
	"github.com/sghaida/decor/meta"
	"go.uber.org/zap"
)

var (
	// KindSingleton holds an owner's SingletonRecord at its class ID.
	KindSingleton = meta.NewKind("lifecycle", "singleton")

	// KindInject holds the di.Token injected at a constructor parameter ID.
	KindInject = meta.NewKind("di", "inject")
)

// State is an owner's construction state.
type State int

const (
	Unregistered State = iota
	Constructing
	Ready
)

func (s State) String() string {
	switch s {
	case Unregistered:
		return "unregistered"
	case Constructing:
		return "constructing"
	case Ready:
		return "ready"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Constructor is an owner's real constructor. args holds the caller's
// arguments merged with injected dependencies.
type Constructor func(ctx context.Context, args []any) (any, error)

// Hook observes every construction of an owner. instance is the value Create
// returns, which for a Ready singleton is the canonical instance.
type Hook func(ctx context.Context, owner reflect.Type, instance any)

// SingletonRecord is the metadata entry of a singleton owner.
type SingletonRecord struct {
	Instance  any
	Ready     bool
	CreatedAt time.Time
}

// Injection is one injected constructor parameter.
type Injection struct {
	Index int
	Token di.Token
}

type owner struct {
	typ           reflect.Type
	ctor          Constructor
	state         State
	inFlight      int
	constructions int
	hooks         []Hook
	track         func(any) func() bool
	live          []func() bool
}

// Manager defines owners and constructs them.
type Manager struct {
	store     *meta.Store
	container *di.Container
	logger    *zap.Logger
	now       func() time.Time

	mu     sync.RWMutex
	owners map[decl.ID]*owner
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// New returns a Manager recording metadata in store and resolving injected
// parameters from container.
func New(store *meta.Store, container *di.Container, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		container: container,
		logger:    zap.NewNop(),
		now:       time.Now,
		owners:    map[decl.ID]*owner{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Define registers ctor as the real constructor of owner.
func (m *Manager) Define(typ reflect.Type, ctor Constructor) error {
	return m.define(typ, ctor, nil)
}

// Define registers a typed constructor for T. Instances of T built through it
// are counted by LiveInstances.
func Define[T any](m *Manager, ctor func(ctx context.Context, args []any) (*T, error)) error {
	if ctor == nil {
		return ErrNilConstructor
	}
	track := func(v any) func() bool {
		p, ok := v.(*T)
		if !ok || p == nil {
			return nil
		}
		w := weak.Make(p)
		return func() bool { return w.Value() != nil }
	}
	return m.define(reflect.TypeFor[T](), func(ctx context.Context, args []any) (any, error) {
		return ctor(ctx, args)
	}, track)
}

func (m *Manager) define(typ reflect.Type, ctor Constructor, track func(any) func() bool) error {
	if typ == nil {
		return ErrNilOwner
	}
	if ctor == nil {
		return ErrNilConstructor
	}

	id := decl.ClassOf(typ)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.owners[id]; ok {
		return AlreadyDefinedError{Owner: typ}
	}
	m.owners[id] = &owner{typ: id.Owner(), ctor: ctor, track: track}
	m.logger.Debug("owner defined", zap.Stringer("owner", id))
	return nil
}

// MarkSingleton tags owner as a singleton. It may be called before or after
// Define; marking twice keeps the existing record.
func (m *Manager) MarkSingleton(typ reflect.Type) error {
	if typ == nil {
		return ErrNilOwner
	}
	m.store.Update(decl.ClassOf(typ), KindSingleton, func(old any, ok bool) any {
		if ok {
			return old
		}
		return SingletonRecord{}
	})
	return nil
}

// IsSingleton reports whether owner is tagged as a singleton.
func (m *Manager) IsSingleton(typ reflect.Type) bool {
	return typ != nil && m.store.Has(decl.ClassOf(typ), KindSingleton)
}

// Instance returns the canonical instance of a Ready singleton.
func (m *Manager) Instance(typ reflect.Type) (any, bool) {
	if typ == nil {
		return nil, false
	}
	rec, err := meta.GetAs[SingletonRecord](m.store, decl.ClassOf(typ), KindSingleton)
	if err != nil || !rec.Ready {
		return nil, false
	}
	return rec.Instance, true
}

// Inject records that constructor parameter index of owner is resolved from
// token when the caller does not supply it.
func (m *Manager) Inject(typ reflect.Type, index int, token di.Token) error {
	if typ == nil {
		return ErrNilOwner
	}
	if index < 0 {
		return InvalidIndexError{Owner: typ, Index: index}
	}
	m.store.Set(decl.ParamOf(typ, decl.ConstructorMember, index), KindInject, token)
	return nil
}

// Injections returns owner's injected constructor parameters by ascending index.
func (m *Manager) Injections(typ reflect.Type) []Injection {
	if typ == nil {
		return nil
	}
	class := decl.ClassOf(typ)

	var out []Injection
	for _, e := range m.store.ByKind(KindInject) {
		if e.ID.Owner() != class.Owner() || e.ID.Member() != decl.ConstructorMember {
			continue
		}
		idx, ok := e.ID.Param()
		tok, isTok := e.Value.(di.Token)
		if !ok || !isTok {
			continue
		}
		out = append(out, Injection{Index: idx, Token: tok})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// OnConstruct adds a hook run after every successful Create of owner.
func (m *Manager) OnConstruct(typ reflect.Type, h Hook) error {
	o, err := m.lookup(typ)
	if err != nil {
		return err
	}
	if h == nil {
		return nil
	}
	m.mu.Lock()
	o.hooks = append(o.hooks, h)
	m.mu.Unlock()
	return nil
}

// State returns owner's construction state. Undefined owners are Unregistered.
func (m *Manager) State(typ reflect.Type) State {
	if typ == nil {
		return Unregistered
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.owners[decl.ClassOf(typ)]
	if !ok {
		return Unregistered
	}
	return o.state
}

// Constructions returns how many times owner's real constructor has run.
func (m *Manager) Constructions(typ reflect.Type) int {
	if typ == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if o, ok := m.owners[decl.ClassOf(typ)]; ok {
		return o.constructions
	}
	return 0
}

// LiveInstances returns how many values built by owner's constructor are
// still reachable. Only owners defined with the generic Define are tracked.
// Unreachable values are counted until the garbage collector reclaims them.
func (m *Manager) LiveInstances(typ reflect.Type) int {
	if typ == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.owners[decl.ClassOf(typ)]
	if !ok {
		return 0
	}
	alive := o.live[:0]
	for _, isAlive := range o.live {
		if isAlive() {
			alive = append(alive, isAlive)
		}
	}
	clear(o.live[len(alive):])
	o.live = alive
	return len(alive)
}

func (m *Manager) lookup(typ reflect.Type) (*owner, error) {
	if typ == nil {
		return nil, ErrNilOwner
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.owners[decl.ClassOf(typ)]
	if !ok {
		return nil, UnknownOwnerError{Owner: typ}
	}
	return o, nil
}

// Create constructs owner.
//
// Each injected parameter whose argument is missing or nil is resolved from
// the container first; a failure returns *DependencyResolutionError without
// calling the constructor. The real constructor then runs with the merged
// arguments. For a singleton owner the first completed result is stored as
// canonical and returned from every Create, including this one.
func (m *Manager) Create(ctx context.Context, typ reflect.Type, args ...any) (any, error) {
	o, err := m.lookup(typ)
	if err != nil {
		return nil, err
	}

	merged, err := m.merge(ctx, o.typ, args)
	if err != nil {
		m.logger.Warn("dependency resolution failed", zap.Stringer("owner", decl.ClassOf(o.typ)), zap.Error(err))
		return nil, err
	}

	m.mu.Lock()
	if o.state == Unregistered {
		o.state = Constructing
	}
	o.inFlight++
	o.constructions++
	ctor := o.ctor
	m.mu.Unlock()

	v, err := ctor(ctx, merged)

	m.mu.Lock()
	o.inFlight--
	if err != nil {
		if o.state == Constructing && o.inFlight == 0 {
			o.state = Unregistered
		}
		m.mu.Unlock()
		m.logger.Warn("constructor failed", zap.Stringer("owner", decl.ClassOf(o.typ)), zap.Error(err))
		return nil, err
	}
	o.state = Ready
	if o.track != nil {
		if isAlive := o.track(v); isAlive != nil {
			o.live = append(o.live, isAlive)
		}
	}
	hooks := append([]Hook(nil), o.hooks...)
	m.mu.Unlock()

	out := m.canonical(o.typ, v)
	for _, h := range hooks {
		h(ctx, o.typ, out)
	}
	return out, nil
}

// canonical stores v as the singleton instance if none is stored yet and
// returns the instance Create hands back.
func (m *Manager) canonical(typ reflect.Type, v any) any {
	id := decl.ClassOf(typ)
	out := v
	substituted := false
	m.store.UpdateExisting(id, KindSingleton, func(old any) any {
		rec, _ := old.(SingletonRecord)
		if rec.Ready {
			out, substituted = rec.Instance, true
			return rec
		}
		return SingletonRecord{Instance: v, Ready: true, CreatedAt: m.now()}
	})
	if substituted {
		m.logger.Debug("singleton instance substituted", zap.Stringer("owner", id))
	}
	return out
}

func (m *Manager) merge(ctx context.Context, typ reflect.Type, args []any) ([]any, error) {
	injections := m.Injections(typ)
	if len(injections) == 0 {
		return append([]any(nil), args...), nil
	}

	n := len(args)
	if last := injections[len(injections)-1].Index + 1; last > n {
		n = last
	}
	merged := make([]any, n)
	copy(merged, args)

	for _, inj := range injections {
		if merged[inj.Index] != nil {
			continue
		}
		if m.container == nil {
			return nil, &DependencyResolutionError{Owner: typ, Index: inj.Index, Token: inj.Token, Err: di.ErrNilContainer}
		}
		v, err := m.container.Resolve(ctx, inj.Token)
		if err != nil {
			return nil, &DependencyResolutionError{Owner: typ, Index: inj.Index, Token: inj.Token, Err: err}
		}
		merged[inj.Index] = v
	}
	return merged, nil
}

// Create constructs T and asserts the result to *T.
func Create[T any](ctx context.Context, m *Manager, args ...any) (*T, error) {
	typ := reflect.TypeFor[T]()
	v, err := m.Create(ctx, typ, args...)
	if err != nil {
		return nil, err
	}
	p, ok := v.(*T)
	if !ok {
		got := "<nil>"
		if v != nil {
			got = reflect.TypeOf(v).String()
		}
		return nil, ConstructorTypeError{Owner: typ, GotType: got}
	}
	return p, nil
}
