package decor

import (
	"context"
	"reflect"
	"sort"

	"github.com/sghaida/decor/decl"
	"github.com/sghaida/decor/meta"
	"go.uber.org/zap"
)

var (
	// KindComponent marks a field as a component input when its value is "input".
	KindComponent = meta.NewKind("component", "type")

	// KindDesignType holds the declared reflect.Type of a field.
	KindDesignType = meta.NewKind("design", "type")
)

// MarkInput declares field of owner as an input that ApplyInputs may set.
func (r *Registry) MarkInput(owner reflect.Type, field string) error {
	id := decl.MemberOf(owner, field)
	if _, err := structField(id); err != nil {
		return err
	}
	r.store.Set(id, KindComponent, "input")
	return nil
}

// IsInput reports whether field of owner is declared as an input.
func (r *Registry) IsInput(owner reflect.Type, field string) bool {
	v, ok := r.store.Get(decl.MemberOf(owner, field), KindComponent)
	return ok && v == "input"
}

// ApplyInputs assigns inputs to the input fields of target, a pointer to a
// struct. Keys that are not declared inputs are skipped.
func (r *Registry) ApplyInputs(target any, inputs map[string]any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrNotStructPointer
	}
	owner := rv.Elem().Type()

	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !r.IsInput(owner, k) {
			r.logger.Debug("skipping non-input key", zap.String("owner", owner.String()), zap.String("key", k))
			continue
		}
		f := rv.Elem().FieldByName(k)
		if !f.IsValid() || !f.CanSet() {
			return UnknownFieldError{ID: decl.MemberOf(owner, k)}
		}
		v := inputs[k]
		if v == nil {
			f.Set(reflect.Zero(f.Type()))
			continue
		}
		val := reflect.ValueOf(v)
		if !val.Type().AssignableTo(f.Type()) {
			return TypeMismatchError{ID: decl.MemberOf(owner, k), Want: f.Type().String(), Got: val.Type().String()}
		}
		f.Set(val)
	}
	return nil
}

// Instantiate creates T through the lifecycle manager and applies inputs.
func Instantiate[T any](ctx context.Context, r *Registry, inputs map[string]any, args ...any) (*T, error) {
	v, err := Create[T](ctx, r, args...)
	if err != nil {
		return nil, err
	}
	if err := r.ApplyInputs(v, inputs); err != nil {
		return nil, err
	}
	return v, nil
}

// DeclareType records the expected dynamic type of field of owner.
func (r *Registry) DeclareType(owner reflect.Type, field string, typ reflect.Type) error {
	id := decl.MemberOf(owner, field)
	if _, err := structField(id); err != nil {
		return err
	}
	r.store.Set(id, KindDesignType, typ)
	return nil
}

// CheckType verifies that field of target, a pointer to a struct, holds a
// value of its declared type. Fields without a declared type always pass.
func (r *Registry) CheckType(target any, field string) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrNotStructPointer
	}
	id := decl.MemberOf(rv.Elem().Type(), field)

	want, err := meta.GetAs[reflect.Type](r.store, id, KindDesignType)
	if err != nil {
		return nil
	}

	f := rv.Elem().FieldByName(field)
	if !f.IsValid() {
		return UnknownFieldError{ID: id}
	}
	got := f.Type()
	if f.Kind() == reflect.Interface {
		if f.IsNil() {
			return TypeMismatchError{ID: id, Want: want.String(), Got: "<nil>"}
		}
		got = f.Elem().Type()
	}
	if got != want {
		return TypeMismatchError{ID: id, Want: want.String(), Got: got.String()}
	}
	return nil
}

func structField(id decl.ID) (reflect.StructField, error) {
	t := id.Owner()
	if t == nil || t.Kind() != reflect.Struct {
		return reflect.StructField{}, ErrNotStructPointer
	}
	f, ok := t.FieldByName(id.Member())
	if !ok || !f.IsExported() {
		return reflect.StructField{}, UnknownFieldError{ID: id}
	}
	return f, nil
}

func typeString(v any) string {
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}
