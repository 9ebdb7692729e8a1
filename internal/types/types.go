// Package types implements the bidirectional checker's type model: a
// closed variant set of Int, Float, Bool, String, Nil, Void, List,
// Dict, Struct, Enum, Error, Function, Optional, Generic, and Unknown.
package types

import "strings"

// Type is any member of the closed Type variant set.
type Type interface {
	String() string
	IsType()
}

// PrimitiveKind enumerates sarn's scalar and sentinel primitive types.
type PrimitiveKind string

const (
	Int    PrimitiveKind = "Int"
	Float  PrimitiveKind = "Float"
	Bool   PrimitiveKind = "Bool"
	String PrimitiveKind = "String"
	Nil    PrimitiveKind = "Nil"
	Void   PrimitiveKind = "Void"
)

// Primitive is one of Int/Float/Bool/String/Nil/Void.
type Primitive struct {
	Kind PrimitiveKind
}

func (p *Primitive) String() string { return string(p.Kind) }
func (p *Primitive) IsType()        {}

var (
	TypeInt    = &Primitive{Kind: Int}
	TypeFloat  = &Primitive{Kind: Float}
	TypeBool   = &Primitive{Kind: Bool}
	TypeString = &Primitive{Kind: String}
	TypeNil    = &Primitive{Kind: Nil}
	TypeVoid   = &Primitive{Kind: Void}
)

// Unknown marks a type the checker couldn't determine, usually following
// an earlier diagnostic; it unifies with anything so one mistake doesn't
// cascade into a wall of follow-on errors.
type Unknown struct{}

func (*Unknown) String() string { return "<unknown>" }
func (*Unknown) IsType()        {}

// TypeUnknown is the shared Unknown instance.
var TypeUnknown = &Unknown{}

// List is a homogeneous, growable sequence.
type List struct {
	Elem Type
}

func (l *List) String() string { return "List[" + l.Elem.String() + "]" }
func (l *List) IsType()        {}

// Dict is a homogeneous key/value map.
type Dict struct {
	Key   Type
	Value Type
}

func (d *Dict) String() string { return "Dict[" + d.Key.String() + ", " + d.Value.String() + "]" }
func (d *Dict) IsType()        {}

// Field is one named, typed struct member.
type Field struct {
	Name string
	Type Type
}

// Struct is a nominal product type, optionally generic.
type Struct struct {
	Name       string
	TypeParams []*GenericParam
	Fields     []Field
}

func (s *Struct) String() string { return s.Name }
func (s *Struct) IsType()        {}

// FieldType looks up a field's declared type by name.
func (s *Struct) FieldType(name string) (Type, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

// Variant is one enum or error alternative, with an optional positional
// payload. Error variants may name their payload slots ("" when unnamed).
type Variant struct {
	Name         string
	Payload      []Type
	PayloadNames []string
}

// Enum is a nominal sum type, optionally generic.
type Enum struct {
	Name       string
	TypeParams []*GenericParam
	Variants   []Variant
}

func (e *Enum) String() string { return e.Name }
func (e *Enum) IsType()        {}

// VariantByName looks up a variant by name.
func (e *Enum) VariantByName(name string) (Variant, int, bool) {
	for i, v := range e.Variants {
		if v.Name == name {
			return v, i, true
		}
	}
	return Variant{}, -1, false
}

// ErrorType is a nominal error sum declared with `error Name { ... }`:
// structurally identical to Enum but kept as its own kind so
// the checker can enforce that only error types appear in a throws clause
// and only error values flow through catch.
type ErrorType struct {
	Name     string
	Variants []Variant
}

func (e *ErrorType) String() string { return e.Name }
func (e *ErrorType) IsType()        {}

func (e *ErrorType) VariantByName(name string) (Variant, int, bool) {
	for i, v := range e.Variants {
		if v.Name == name {
			return v, i, true
		}
	}
	return Variant{}, -1, false
}

// Function is a function's signature: parameter types, return type, and
// the set of error types it may throw (`-> T ! E1, E2`).
type Function struct {
	TypeParams []*GenericParam
	Params     []Type
	Return     Type
	Throws     []*ErrorType
}

func (f *Function) String() string {
	var params []string
	for _, p := range f.Params {
		params = append(params, p.String())
	}
	ret := "Void"
	if f.Return != nil {
		ret = f.Return.String()
	}
	sig := "(" + strings.Join(params, ", ") + ") -> " + ret
	if len(f.Throws) > 0 {
		var names []string
		for _, e := range f.Throws {
			names = append(names, e.Name)
		}
		sig += " ! " + strings.Join(names, ", ")
	}
	return sig
}
func (f *Function) IsType() {}

// Optional wraps a type that may be nil (`T?`).
type Optional struct {
	Inner Type
}

func (o *Optional) String() string { return o.Inner.String() + "?" }
func (o *Optional) IsType()        {}

// Unwrap returns t's inner type if t is Optional, else t itself.
func Unwrap(t Type) Type {
	if o, ok := t.(*Optional); ok {
		return o.Inner
	}
	return t
}
