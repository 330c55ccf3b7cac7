package meta

import (
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/sghaida/decor/decl"
	"go.uber.org/zap"
)

// Kind names a class of metadata. Kinds are namespaced by the feature that
// owns them ("cache:value", "params:rules", "design:type") so unrelated
// features never clash even when they store values of the same Go type.
type Kind string

// NewKind builds a namespaced kind "feature:name".
func NewKind(feature, name string) Kind {
	return Kind(feature + ":" + name)
}

// Feature returns the namespace part of k, or "" if k is not namespaced.
func (k Kind) Feature() string {
	if i := strings.IndexByte(string(k), ':'); i >= 0 {
		return string(k[:i])
	}
	return ""
}

// Entry is a single (id, kind) -> value association.
type Entry struct {
	ID    decl.ID
	Kind  Kind
	Value any
}

type key struct {
	id   decl.ID
	kind Kind
}

// Store is an associative metadata store keyed by (declaration, kind).
//
// Entries live until deleted or the store is Reset. A Store is safe for
// concurrent use; the lock is never held while user callbacks run, except
// inside Update where fn must not call back into the same Store.
type Store struct {
	mu      sync.RWMutex
	entries map[key]any
	logger  *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for debug traces of store mutation.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{entries: map[key]any{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set stores value under (id, kind), replacing any previous value.
func (s *Store) Set(id decl.ID, kind Kind, value any) {
	s.mu.Lock()
	s.entries[key{id, kind}] = value
	s.mu.Unlock()

	s.logger.Debug("metadata set", zap.Stringer("id", id), zap.String("kind", string(kind)))
}

// Get returns the value under (id, kind). ok is false when absent.
func (s *Store) Get(id decl.ID, kind Kind) (value any, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok = s.entries[key{id, kind}]
	return value, ok
}

// Has reports whether an entry exists for (id, kind).
func (s *Store) Has(id decl.ID, kind Kind) bool {
	_, ok := s.Get(id, kind)
	return ok
}

// Delete removes the entry for (id, kind). Deleting an absent entry is a no-op.
func (s *Store) Delete(id decl.ID, kind Kind) {
	s.mu.Lock()
	_, existed := s.entries[key{id, kind}]
	delete(s.entries, key{id, kind})
	s.mu.Unlock()

	if existed {
		s.logger.Debug("metadata deleted", zap.Stringer("id", id), zap.String("kind", string(kind)))
	}
}

// Update atomically replaces the value under (id, kind) with fn(old, ok).
//
// fn runs with the store locked and must not call back into s.
func (s *Store) Update(id decl.ID, kind Kind, fn func(old any, ok bool) any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.entries[key{id, kind}]
	s.entries[key{id, kind}] = fn(old, ok)
}

// UpdateExisting replaces an existing entry with fn(old) and reports whether
// an entry was present. Absent entries stay absent.
//
// fn runs with the store locked and must not call back into s.
func (s *Store) UpdateExisting(id decl.ID, kind Kind, fn func(old any) any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.entries[key{id, kind}]
	if !ok {
		return false
	}
	s.entries[key{id, kind}] = fn(old)
	return true
}

// SetIfAbsent stores value only when no entry exists and returns the value
// that is stored after the call together with whether value was the one stored.
func (s *Store) SetIfAbsent(id decl.ID, kind Kind, value any) (actual any, stored bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[key{id, kind}]; ok {
		return old, false
	}
	s.entries[key{id, kind}] = value
	return value, true
}

// Entries returns a snapshot of all entries for id, sorted by kind.
func (s *Store) Entries(id decl.ID) []Entry {
	s.mu.RLock()
	out := make([]Entry, 0, 4)
	for k, v := range s.entries {
		if k.id == id {
			out = append(out, Entry{ID: k.id, Kind: k.kind, Value: v})
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// Kinds returns the kinds present for id, sorted.
func (s *Store) Kinds(id decl.ID) []Kind {
	entries := s.Entries(id)
	kinds := make([]Kind, len(entries))
	for i, e := range entries {
		kinds[i] = e.Kind
	}
	return kinds
}

// ByKind returns every entry of kind across all declarations, sorted by ID string.
func (s *Store) ByKind(kind Kind) []Entry {
	s.mu.RLock()
	out := make([]Entry, 0, 4)
	for k, v := range s.entries {
		if k.kind == kind {
			out = append(out, Entry{ID: k.id, Kind: k.kind, Value: v})
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Reset removes every entry.
func (s *Store) Reset() {
	s.mu.Lock()
	s.entries = map[key]any{}
	s.mu.Unlock()
}

// GetAs returns the value under (id, kind) typed as V.
//
// It returns MissingEntryError when absent and WrongTypeError when the
// stored value is not a V.
func GetAs[V any](s *Store, id decl.ID, kind Kind) (V, error) {
	var zero V
	raw, ok := s.Get(id, kind)
	if !ok {
		return zero, MissingEntryError{ID: id, Kind: kind}
	}
	v, ok := raw.(V)
	if !ok {
		got := "<nil>"
		if raw != nil {
			got = reflect.TypeOf(raw).String()
		}
		return zero, WrongTypeError{ID: id, Kind: kind, GotType: got}
	}
	return v, nil
}

// Append appends item to the []V list stored under (id, kind).
func Append[V any](s *Store, id decl.ID, kind Kind, item V) {
	s.Update(id, kind, func(old any, ok bool) any {
		var list []V
		if ok {
			list, _ = old.([]V)
		}
		next := make([]V, len(list), len(list)+1)
		copy(next, list)
		return append(next, item)
	})
}

// List returns the []V list stored under (id, kind), or nil.
func List[V any](s *Store, id decl.ID, kind Kind) []V {
	raw, ok := s.Get(id, kind)
	if !ok {
		return nil
	}
	list, _ := raw.([]V)
	return list
}
