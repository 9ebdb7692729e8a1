// Package runtime is the VM's boxed value model plus the C-ABI surface
// the LLVM backend emits calls against. Heap-allocated compound values
// (strings are immutable and live as Go strings; lists, dicts, structs,
// enum/error values, closures) are reference-counted; cycles are
// unreachable in the surface syntax, so no collector backs the counts.
package runtime

import (
	"fmt"
)

// Value is any sarn runtime value.
type Value interface {
	valueNode()
}

// Int is a 64-bit integer value.
type Int int64

func (Int) valueNode() {}

// Float is a double value.
type Float float64

func (Float) valueNode() {}

// Bool is a boolean value.
type Bool bool

func (Bool) valueNode() {}

// String is an immutable string value.
type String string

func (String) valueNode() {}

// Nil is the nil singleton (also the absent case of an Optional).
type Nil struct{}

func (Nil) valueNode() {}

// NilValue is the shared Nil instance.
var NilValue = Nil{}

// refCounted is embedded by every heap compound kind.
type refCounted struct {
	refs int32
}

// List is a growable sequence.
type List struct {
	refCounted
	Elems []Value
}

func (*List) valueNode() {}

// NewList allocates a list with one reference.
func NewList(elems []Value) *List {
	return &List{refCounted: refCounted{refs: 1}, Elems: elems}
}

// Dict is an insertion-ordered map with Int, String, or Bool keys.
type Dict struct {
	refCounted
	Order []Value
	Items map[Value]Value
}

func (*Dict) valueNode() {}

// NewDict allocates a dict with one reference.
func NewDict() *Dict {
	return &Dict{refCounted: refCounted{refs: 1}, Items: make(map[Value]Value)}
}

// Set inserts or updates a key.
func (d *Dict) Set(key, value Value) {
	if _, exists := d.Items[key]; !exists {
		d.Order = append(d.Order, key)
	}
	d.Items[key] = value
}

// Get reads a key; the ok result is false when absent.
func (d *Dict) Get(key Value) (Value, bool) {
	v, ok := d.Items[key]
	return v, ok
}

// Struct is a nominal product value; Fields is in declaration order.
type Struct struct {
	refCounted
	Name       string
	FieldNames []string
	Fields     []Value
}

func (*Struct) valueNode() {}

// NewStruct allocates a struct value with one reference.
func NewStruct(name string, fieldNames []string, fields []Value) *Struct {
	return &Struct{refCounted: refCounted{refs: 1}, Name: name, FieldNames: fieldNames, Fields: fields}
}

// FieldByName reads a field.
func (s *Struct) FieldByName(name string) (Value, bool) {
	for i, fn := range s.FieldNames {
		if fn == name {
			return s.Fields[i], true
		}
	}
	return nil, false
}

// Enum is an enum or error value: nominal type, interned variant tag,
// and positional payload.
type Enum struct {
	refCounted
	TypeName string
	Variant  string
	Tag      int
	Payload  []Value
}

func (*Enum) valueNode() {}

// NewEnum allocates an enum/error value with one reference.
func NewEnum(typeName, variant string, tag int, payload []Value) *Enum {
	return &Enum{refCounted: refCounted{refs: 1}, TypeName: typeName, Variant: variant, Tag: tag, Payload: payload}
}

// Closure pairs a function with its captured environment blob.
// FuncIndex addresses the VM's function table; FuncName carries the
// symbol for diagnostics.
type Closure struct {
	refCounted
	FuncName  string
	FuncIndex int
	Captures  []Value
}

func (*Closure) valueNode() {}

// NewClosure allocates a closure with one reference.
func NewClosure(name string, index int, captures []Value) *Closure {
	return &Closure{refCounted: refCounted{refs: 1}, FuncName: name, FuncIndex: index, Captures: captures}
}

// Cell boxes a by-reference capture: the closure and the enclosing
// frame share the cell, so reassignment on either side is visible to
// both.
type Cell struct {
	refCounted
	V Value
}

func (*Cell) valueNode() {}

// NewCell allocates a cell with one reference.
func NewCell(v Value) *Cell {
	return &Cell{refCounted: refCounted{refs: 1}, V: v}
}

// Retain increments a compound value's reference count; scalars pass
// through untouched.
func Retain(v Value) Value {
	if rc := counted(v); rc != nil {
		rc.refs++
	}
	return v
}

// Release decrements a compound value's reference count, releasing its
// children when the count reaches zero.
func Release(v Value) {
	rc := counted(v)
	if rc == nil {
		return
	}
	rc.refs--
	if rc.refs > 0 {
		return
	}
	switch c := v.(type) {
	case *List:
		for _, e := range c.Elems {
			Release(e)
		}
		c.Elems = nil
	case *Dict:
		for _, k := range c.Order {
			Release(c.Items[k])
		}
		c.Order, c.Items = nil, nil
	case *Struct:
		for _, f := range c.Fields {
			Release(f)
		}
		c.Fields = nil
	case *Enum:
		for _, p := range c.Payload {
			Release(p)
		}
		c.Payload = nil
	case *Closure:
		for _, cv := range c.Captures {
			Release(cv)
		}
		c.Captures = nil
	case *Cell:
		Release(c.V)
		c.V = nil
	}
}

func counted(v Value) *refCounted {
	switch c := v.(type) {
	case *List:
		return &c.refCounted
	case *Dict:
		return &c.refCounted
	case *Struct:
		return &c.refCounted
	case *Enum:
		return &c.refCounted
	case *Closure:
		return &c.refCounted
	case *Cell:
		return &c.refCounted
	default:
		return nil
	}
}

// Equal is structural equality over runtime values: scalar by value,
// lists element-wise, dicts entry-wise, structs field-wise, enum/error
// values by tag then payload.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Nil:
		_, ok := b.(Nil)
		return ok
	case *List:
		bv, ok := b.(*List)
		if !ok || len(av.Elems) != len(bv.Elems) {
			return false
		}
		for i := range av.Elems {
			if !Equal(av.Elems[i], bv.Elems[i]) {
				return false
			}
		}
		return true
	case *Dict:
		bv, ok := b.(*Dict)
		if !ok || len(av.Order) != len(bv.Order) {
			return false
		}
		for k, v := range av.Items {
			other, exists := bv.Items[k]
			if !exists || !Equal(v, other) {
				return false
			}
		}
		return true
	case *Struct:
		bv, ok := b.(*Struct)
		if !ok || av.Name != bv.Name || len(av.Fields) != len(bv.Fields) {
			return false
		}
		for i := range av.Fields {
			if !Equal(av.Fields[i], bv.Fields[i]) {
				return false
			}
		}
		return true
	case *Enum:
		bv, ok := b.(*Enum)
		if !ok || av.TypeName != bv.TypeName || av.Tag != bv.Tag || len(av.Payload) != len(bv.Payload) {
			return false
		}
		for i := range av.Payload {
			if !Equal(av.Payload[i], bv.Payload[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// TypeTag names a value's kind for runtime fault messages.
func TypeTag(v Value) string {
	switch v.(type) {
	case Int:
		return "Int"
	case Float:
		return "Float"
	case Bool:
		return "Bool"
	case String:
		return "String"
	case Nil:
		return "Nil"
	case *List:
		return "List"
	case *Dict:
		return "Dict"
	case *Struct:
		return "Struct"
	case *Enum:
		return "Enum"
	case *Closure:
		return "Func"
	case *Cell:
		return "Cell"
	default:
		return fmt.Sprintf("%T", v)
	}
}
