package decor

import (
	"sort"

	"github.com/sghaida/decor/decl"
	"github.com/sghaida/decor/meta"
)

// KindNamed holds a group's name -> factory map.
var KindNamed = meta.NewKind("registry", "named")

// RegisterNamed registers factory under name in group, e.g. a parser per
// format. The group lives in the metadata store at decl.Func(group).
func (r *Registry) RegisterNamed(group, name string, factory func() any) error {
	if factory == nil {
		return ErrNilFactory
	}

	var dup bool
	r.store.Update(decl.Func(group), KindNamed, func(old any, ok bool) any {
		prev, _ := old.(map[string]func() any)
		if _, exists := prev[name]; exists {
			dup = true
			return prev
		}
		next := make(map[string]func() any, len(prev)+1)
		for k, v := range prev {
			next[k] = v
		}
		next[name] = factory
		return next
	})
	if dup {
		return DuplicateNameError{Group: group, Name: name}
	}
	return nil
}

// NewNamed builds a fresh value from the factory registered under name.
func (r *Registry) NewNamed(group, name string) (any, error) {
	factories, _ := meta.GetAs[map[string]func() any](r.store, decl.Func(group), KindNamed)
	f, ok := factories[name]
	if !ok {
		return nil, UnknownNameError{Group: group, Name: name}
	}
	return f(), nil
}

// Names returns the names registered in group, sorted.
func (r *Registry) Names(group string) []string {
	factories, _ := meta.GetAs[map[string]func() any](r.store, decl.Func(group), KindNamed)
	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Named builds the value registered under name and asserts it to T.
func Named[T any](r *Registry, group, name string) (T, error) {
	var zero T
	v, err := r.NewNamed(group, name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, TypeMismatchError{ID: decl.Func(group), Want: typeString(zero), Got: typeString(v)}
	}
	return t, nil
}
