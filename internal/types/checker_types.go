package types

import (
	"github.com/sarn-lang/sarn/internal/ast"
	"github.com/sarn-lang/sarn/internal/diag"
	"github.com/sarn-lang/sarn/internal/lexer"
)

// resolveType turns a parsed type expression into a Type, resolving
// named references against generic parameters in scope first, then
// struct/enum/error declarations, then builtin primitives/List/Dict.
func (c *Checker) resolveType(te ast.TypeExpr, tpScope map[string]*GenericParam) Type {
	switch t := te.(type) {
	case *ast.NamedType:
		return c.resolveNamedType(t.Name.Name, t.Span(), tpScope)
	case *ast.GenericType:
		return c.resolveGenericType(t, tpScope)
	case *ast.OptionalType:
		return &Optional{Inner: c.resolveType(t.Inner, tpScope)}
	case *ast.FunctionType:
		return c.resolveFunctionType(t, tpScope)
	default:
		return TypeUnknown
	}
}

func (c *Checker) resolveTypes(tes []ast.TypeExpr, tpScope map[string]*GenericParam) []Type {
	if tes == nil {
		return nil
	}
	out := make([]Type, len(tes))
	for i, te := range tes {
		out[i] = c.resolveType(te, tpScope)
	}
	return out
}

func (c *Checker) resolveNamedType(name string, span lexer.Span, tpScope map[string]*GenericParam) Type {
	t := c.resolveNamedTypeByName(name, tpScope)
	if _, unknown := t.(*Unknown); unknown {
		c.errorf(span, diag.CodeTypeMismatch, "unknown type %q", name)
	}
	return t
}

func (c *Checker) resolveNamedTypeByName(name string, tpScope map[string]*GenericParam) Type {
	switch name {
	case "Int":
		return TypeInt
	case "Float":
		return TypeFloat
	case "Bool":
		return TypeBool
	case "String":
		return TypeString
	case "Nil":
		return TypeNil
	case "Void":
		return TypeVoid
	case "List":
		return &List{Elem: TypeUnknown}
	case "Dict":
		return &Dict{Key: TypeUnknown, Value: TypeUnknown}
	}
	if tpScope != nil {
		if gp, ok := tpScope[name]; ok {
			return gp
		}
	}
	if st, ok := c.Structs[name]; ok {
		return st
	}
	if en, ok := c.Enums[name]; ok {
		return en
	}
	if et, ok := c.ErrorTypes[name]; ok {
		return et
	}
	return TypeUnknown
}

func (c *Checker) resolveGenericType(t *ast.GenericType, tpScope map[string]*GenericParam) Type {
	base, ok := t.Base.(*ast.NamedType)
	if !ok {
		return TypeUnknown
	}
	args := c.resolveTypes(t.Args, tpScope)

	switch base.Name.Name {
	case "List":
		if len(args) == 1 {
			return &List{Elem: args[0]}
		}
		c.errorf(t.Span(), diag.CodeTypeArityMismatch, "List takes 1 type argument, got %d", len(args))
		return TypeUnknown
	case "Dict":
		if len(args) == 2 {
			c.checkDictKeyType(args[0], t.Args[0].Span())
			return &Dict{Key: args[0], Value: args[1]}
		}
		c.errorf(t.Span(), diag.CodeTypeArityMismatch, "Dict takes 2 type arguments, got %d", len(args))
		return TypeUnknown
	}

	baseType := c.resolveNamedType(base.Name.Name, base.Span(), tpScope)
	switch bt := baseType.(type) {
	case *Struct:
		if len(args) != len(bt.TypeParams) {
			c.errorf(t.Span(), diag.CodeTypeArityMismatch,
				"%s takes %d type arguments, got %d", bt.Name, len(bt.TypeParams), len(args))
			return TypeUnknown
		}
	case *Enum:
		if len(args) != len(bt.TypeParams) {
			c.errorf(t.Span(), diag.CodeTypeArityMismatch,
				"%s takes %d type arguments, got %d", bt.Name, len(bt.TypeParams), len(args))
			return TypeUnknown
		}
	}
	return &GenericInstance{Base: baseType, Args: args}
}

// checkDictKeyType enforces the dict key restriction: only Int, String,
// and Bool have the well-defined structural equality a key needs.
func (c *Checker) checkDictKeyType(k Type, span lexer.Span) {
	switch t := k.(type) {
	case *Unknown, *GenericParam:
		return
	case *Primitive:
		if t.Kind == Int || t.Kind == String || t.Kind == Bool {
			return
		}
	}
	c.errorf(span, diag.CodeTypeInvalidDictKey, "%s cannot be a Dict key; keys must be Int, String, or Bool", k)
}

func (c *Checker) resolveFunctionType(t *ast.FunctionType, tpScope map[string]*GenericParam) Type {
	fn := &Function{
		Params: c.resolveTypes(t.Params, tpScope),
	}
	if t.Return != nil {
		fn.Return = c.resolveType(t.Return, tpScope)
	} else {
		fn.Return = TypeVoid
	}
	for _, te := range t.Throws {
		if named, ok := te.(*ast.NamedType); ok {
			if et, ok := c.ErrorTypes[named.Name.Name]; ok {
				fn.Throws = append(fn.Throws, et)
				continue
			}
			c.errorf(te.Span(), diag.CodeTypeMismatch, "%q is not a declared error type", named.Name.Name)
		}
	}
	return fn
}

// assignable reports whether a value of type from may be used where a
// value of type to is expected: exact structural equality, plus the two
// Optional-specific widenings (T assignable to T?, nil assignable to T?).
func assignable(to, from Type) bool {
	if Equal(to, from) {
		return true
	}
	if _, ok := to.(*Unknown); ok {
		return true
	}
	if _, ok := from.(*Unknown); ok {
		return true
	}
	if opt, ok := to.(*Optional); ok {
		if p, isPrim := from.(*Primitive); isPrim && p.Kind == Nil {
			return true
		}
		return assignable(opt.Inner, from)
	}
	return false
}

// mismatch records the standard "expected T, found U" diagnostic.
func (c *Checker) mismatch(span lexer.Span, expected, actual Type) {
	c.errorf(span, diag.CodeTypeMismatch, "expected %s, found %s", expected, actual)
}
