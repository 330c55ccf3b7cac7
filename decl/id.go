// Package decl identifies declaration sites: a type, a member of a type, or a
// parameter position of a member.
//
// An ID is derived from static type information only, never from an instance,
// so metadata registered against an ID applies to every instance of the owner.
// IDs are comparable and can be used directly as map keys.
package decl

import (
	"reflect"
	"strconv"
)

// Level reports how specific an ID is.
type Level int

const (
	// LevelClass identifies a type as a whole.
	LevelClass Level = iota
	// LevelMember identifies a method, accessor or field of a type.
	LevelMember
	// LevelParam identifies a parameter position of a member.
	LevelParam
)

// String implements fmt.Stringer.
func (l Level) String() string {
	switch l {
	case LevelClass:
		return "class"
	case LevelMember:
		return "member"
	case LevelParam:
		return "param"
	default:
		return "level(" + strconv.Itoa(int(l)) + ")"
	}
}

// ConstructorMember is the member name used for constructor parameters.
const ConstructorMember = "new"

// ID is an immutable declaration-site identifier.
//
// Two IDs are equal iff owner, member and parameter position are equal.
// The zero ID is not valid; use the constructors below.
type ID struct {
	owner    reflect.Type
	member   string
	param    int
	hasParam bool
}

// Class returns the class-level ID for T.
//
// Pointer types are normalized to their element type so Class[*User] and
// Class[User] name the same declaration.
func Class[T any]() ID {
	return ClassOf(reflect.TypeFor[T]())
}

// Member returns the member-level ID for the named member of T.
func Member[T any](name string) ID {
	return MemberOf(reflect.TypeFor[T](), name)
}

// Param returns the parameter-level ID for position index of member on T.
func Param[T any](member string, index int) ID {
	return ParamOf(reflect.TypeFor[T](), member, index)
}

// Constructor returns the ID of constructor parameter index on T.
func Constructor[T any](index int) ID {
	return ParamOf(reflect.TypeFor[T](), ConstructorMember, index)
}

// ClassOf is the non-generic form of Class.
func ClassOf(t reflect.Type) ID {
	return ID{owner: normalize(t)}
}

// MemberOf is the non-generic form of Member.
func MemberOf(t reflect.Type, name string) ID {
	return ID{owner: normalize(t), member: name}
}

// ParamOf is the non-generic form of Param.
func ParamOf(t reflect.Type, member string, index int) ID {
	return ID{owner: normalize(t), member: member, param: index, hasParam: true}
}

// Func returns an ID for a free function. Its owner is nil.
func Func(name string) ID {
	return ID{member: name}
}

// FuncParam returns the ID of parameter index of the free function name.
func FuncParam(name string, index int) ID {
	return ID{member: name, param: index, hasParam: true}
}

func normalize(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// Owner returns the owning type, or nil for free functions.
func (id ID) Owner() reflect.Type { return id.owner }

// Member returns the member name, or "" for class-level IDs.
func (id ID) Member() string { return id.member }

// Param returns the parameter position and whether the ID is parameter-level.
func (id ID) Param() (int, bool) { return id.param, id.hasParam }

// Level reports the specificity of id.
func (id ID) Level() Level {
	switch {
	case id.hasParam:
		return LevelParam
	case id.member != "":
		return LevelMember
	default:
		return LevelClass
	}
}

// Parent returns the enclosing declaration: param -> member -> class.
// The parent of a class-level ID is the ID itself.
func (id ID) Parent() ID {
	switch id.Level() {
	case LevelParam:
		return ID{owner: id.owner, member: id.member}
	case LevelMember:
		return ID{owner: id.owner}
	default:
		return id
	}
}

// WithParam returns the parameter-level ID for position index of id's member.
func (id ID) WithParam(index int) ID {
	return ID{owner: id.owner, member: id.member, param: index, hasParam: true}
}

// IsZero reports whether id carries neither an owner nor a member.
func (id ID) IsZero() bool {
	return id.owner == nil && id.member == "" && !id.hasParam
}

// String renders id as "pkg.Type.member[index]".
func (id ID) String() string {
	s := ""
	if id.owner != nil {
		s = id.owner.String()
	}
	if id.member != "" {
		if s != "" {
			s += "."
		}
		s += id.member
	}
	if id.hasParam {
		s += "[" + strconv.Itoa(id.param) + "]"
	}
	if s == "" {
		return "<zero>"
	}
	return s
}
