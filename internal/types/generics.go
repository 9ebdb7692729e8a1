package types

import (
	"fmt"
	"strings"
)

// GenericParam is a bare generic type parameter. It carries no trait
// bounds; sarn has no traits.
type GenericParam struct {
	Name string
}

func (g *GenericParam) String() string { return g.Name }
func (g *GenericParam) IsType()        {}

// GenericInstance is a concrete instantiation of a generic Struct, Enum,
// or Function (e.g. `Box[Int]`), recorded in a module's monomorphization
// table keyed by (symbol, type-arg tuple).
type GenericInstance struct {
	Base Type
	Args []Type
}

func (g *GenericInstance) String() string {
	var args []string
	for _, a := range g.Args {
		args = append(args, a.String())
	}
	return g.Base.String() + "[" + strings.Join(args, ", ") + "]"
}
func (g *GenericInstance) IsType() {}

// Key returns a stable monomorphization-table key for this instantiation.
func (g *GenericInstance) Key() string {
	var args []string
	for _, a := range g.Args {
		args = append(args, a.String())
	}
	return g.Base.String() + "[" + strings.Join(args, ",") + "]"
}

// Substitute replaces every GenericParam in t with its value from subst,
// recursing through every compound Type kind.
func Substitute(t Type, subst map[string]Type) Type {
	if t == nil {
		return nil
	}

	switch t := t.(type) {
	case *GenericParam:
		if replacement, ok := subst[t.Name]; ok {
			return replacement
		}
		return t
	case *GenericInstance:
		args := substituteAll(t.Args, subst)
		return &GenericInstance{Base: t.Base, Args: args}
	case *List:
		return &List{Elem: Substitute(t.Elem, subst)}
	case *Dict:
		return &Dict{Key: Substitute(t.Key, subst), Value: Substitute(t.Value, subst)}
	case *Optional:
		return &Optional{Inner: Substitute(t.Inner, subst)}
	case *Function:
		return &Function{
			TypeParams: t.TypeParams,
			Params:     substituteAll(t.Params, subst),
			Return:     Substitute(t.Return, subst),
			Throws:     t.Throws,
		}
	default:
		return t
	}
}

func substituteAll(ts []Type, subst map[string]Type) []Type {
	if ts == nil {
		return nil
	}
	out := make([]Type, len(ts))
	for i, t := range ts {
		out[i] = Substitute(t, subst)
	}
	return out
}

// Unify finds a substitution making t1 and t2 structurally equal,
// binding GenericParam occurrences along the way. The checker's
// argument-type inference at call sites and struct literals runs the same
// unify; explicit type arguments are substituted without unification.
func Unify(t1, t2 Type) (map[string]Type, error) {
	subst := make(map[string]Type)
	if err := unify(t1, t2, subst); err != nil {
		return nil, err
	}
	return subst, nil
}

func unify(t1, t2 Type, subst map[string]Type) error {
	if _, ok := t1.(*Unknown); ok {
		return nil
	}
	if _, ok := t2.(*Unknown); ok {
		return nil
	}

	t1 = Substitute(t1, subst)
	t2 = Substitute(t2, subst)

	if p, ok := t1.(*GenericParam); ok {
		return bind(p.Name, t2, subst)
	}
	if p, ok := t2.(*GenericParam); ok {
		return bind(p.Name, t1, subst)
	}

	switch a := t1.(type) {
	case *Primitive:
		if b, ok := t2.(*Primitive); ok && a.Kind == b.Kind {
			return nil
		}
	case *List:
		if b, ok := t2.(*List); ok {
			return unify(a.Elem, b.Elem, subst)
		}
	case *Dict:
		if b, ok := t2.(*Dict); ok {
			if err := unify(a.Key, b.Key, subst); err != nil {
				return err
			}
			return unify(a.Value, b.Value, subst)
		}
	case *Optional:
		if b, ok := t2.(*Optional); ok {
			return unify(a.Inner, b.Inner, subst)
		}
	case *GenericInstance:
		if b, ok := t2.(*GenericInstance); ok {
			if a.Base != b.Base {
				return fmt.Errorf("cannot unify %s with %s", a, b)
			}
			if len(a.Args) != len(b.Args) {
				return fmt.Errorf("arity mismatch: %s vs %s", a, b)
			}
			for i := range a.Args {
				if err := unify(a.Args[i], b.Args[i], subst); err != nil {
					return err
				}
			}
			return nil
		}
	case *Function:
		if b, ok := t2.(*Function); ok {
			if len(a.Params) != len(b.Params) {
				return fmt.Errorf("arity mismatch: %s vs %s", a, b)
			}
			for i := range a.Params {
				if err := unify(a.Params[i], b.Params[i], subst); err != nil {
					return err
				}
			}
			return unify(a.Return, b.Return, subst)
		}
	case *Struct:
		if b, ok := t2.(*Struct); ok && a == b {
			return nil
		}
	case *Enum:
		if b, ok := t2.(*Enum); ok && a == b {
			return nil
		}
	case *ErrorType:
		if b, ok := t2.(*ErrorType); ok && a == b {
			return nil
		}
	}
	return fmt.Errorf("cannot unify %s with %s", t1, t2)
}

func bind(name string, t Type, subst map[string]Type) error {
	subst[name] = t
	return nil
}

// Equal reports structural equality between two resolved types — used
// for literal inference and assignability checks where no substitution
// is involved.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if _, ok := a.(*Unknown); ok {
		return true
	}
	if _, ok := b.(*Unknown); ok {
		return true
	}

	switch x := a.(type) {
	case *Primitive:
		y, ok := b.(*Primitive)
		return ok && x.Kind == y.Kind
	case *List:
		y, ok := b.(*List)
		return ok && Equal(x.Elem, y.Elem)
	case *Dict:
		y, ok := b.(*Dict)
		return ok && Equal(x.Key, y.Key) && Equal(x.Value, y.Value)
	case *Optional:
		y, ok := b.(*Optional)
		return ok && Equal(x.Inner, y.Inner)
	case *Struct:
		y, ok := b.(*Struct)
		return ok && x == y
	case *Enum:
		y, ok := b.(*Enum)
		return ok && x == y
	case *ErrorType:
		y, ok := b.(*ErrorType)
		return ok && x == y
	case *GenericParam:
		y, ok := b.(*GenericParam)
		return ok && x.Name == y.Name
	case *GenericInstance:
		y, ok := b.(*GenericInstance)
		if !ok || x.Base != y.Base || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	case *Function:
		y, ok := b.(*Function)
		if !ok || len(x.Params) != len(y.Params) || !Equal(x.Return, y.Return) {
			return false
		}
		for i := range x.Params {
			if !Equal(x.Params[i], y.Params[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
