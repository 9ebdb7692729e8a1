package types

import (
	"github.com/sarn-lang/sarn/internal/ast"
	"github.com/sarn-lang/sarn/internal/diag"
	"github.com/sarn-lang/sarn/internal/lexer"
)

// inferExpr checks e with no expected type.
func (c *Checker) inferExpr(e ast.Expr, scope *Scope) Type {
	return c.checkExpr(e, scope, nil)
}

// checkExpr is the bidirectional core: when expected is non-nil the
// expression is checked against it, otherwise its type is inferred. The
// result is recorded into the expression's type slot either way.
func (c *Checker) checkExpr(e ast.Expr, scope *Scope, expected Type) Type {
	t := c.checkExprInner(e, scope, expected)
	if t == nil {
		t = TypeVoid
	}
	// Implicit Optional introduction: T or Nil where T? is expected.
	if expected != nil {
		if opt, ok := expected.(*Optional); ok {
			if Equal(opt.Inner, t) || isNilType(t) {
				t = opt
			}
		}
	}
	c.Types[e] = t
	if expected != nil && !assignable(expected, t) {
		c.mismatch(e.Span(), expected, t)
	}
	return t
}

func isNilType(t Type) bool {
	p, ok := t.(*Primitive)
	return ok && p.Kind == Nil
}

func (c *Checker) checkExprInner(e ast.Expr, scope *Scope, expected Type) Type {
	switch ex := e.(type) {
	case *ast.IntegerLit:
		// An integer literal is always Int; it does not take a Float type
		// from the checked-against context.
		return TypeInt
	case *ast.FloatLit:
		return TypeFloat
	case *ast.BoolLit:
		return TypeBool
	case *ast.StringLit:
		return TypeString
	case *ast.NilLit:
		return TypeNil
	case *ast.TemplateLit:
		for _, sub := range ex.Exprs {
			c.inferExpr(sub, scope)
		}
		return TypeString
	case *ast.Ident:
		return c.checkIdent(ex, scope)
	case *ast.PrefixExpr:
		return c.checkPrefix(ex, scope)
	case *ast.PostfixExpr:
		return c.checkPostfix(ex, scope)
	case *ast.InfixExpr:
		return c.checkInfix(ex, scope, expected)
	case *ast.CoalesceExpr:
		return c.checkCoalesce(ex, scope)
	case *ast.AssignExpr:
		return c.checkAssign(ex, scope)
	case *ast.RangeExpr:
		return c.checkRange(ex, scope)
	case *ast.CallExpr:
		return c.checkCall(ex, scope)
	case *ast.CatchExpr:
		return c.checkCatch(ex, scope, expected)
	case *ast.IndexExpr:
		return c.checkIndex(ex, scope)
	case *ast.FieldExpr:
		return c.checkField(ex, scope)
	case *ast.ListLiteral:
		return c.checkListLiteral(ex, scope, expected)
	case *ast.DictLiteral:
		return c.checkDictLiteral(ex, scope, expected)
	case *ast.StructLiteral:
		return c.checkStructLiteral(ex, scope)
	case *ast.FunctionLiteral:
		return c.checkFunctionLiteral(ex, scope, expected)
	case *ast.IfExpr:
		return c.checkIfExpr(ex, scope, expected)
	case *ast.MatchExpr:
		return c.checkMatchExpr(ex, scope, expected)
	case *ast.BlockExpr:
		inner := NewScope(scope)
		tail := c.checkBlock(ex, inner, expected)
		if tail == nil {
			return TypeVoid
		}
		return tail
	default:
		return TypeUnknown
	}
}

func (c *Checker) checkIdent(e *ast.Ident, scope *Scope) Type {
	if sym := scope.Lookup(e.Name); sym != nil {
		if sym.Type == nil {
			return TypeUnknown
		}
		return sym.Type
	}
	// Enum/error type names used as values surface through FieldExpr
	// (`Option.Some`); a bare type name is not a value.
	c.errorf(e.Span(), diag.CodeTypeMismatch, "unknown name %q", e.Name)
	return TypeUnknown
}

func (c *Checker) checkPrefix(e *ast.PrefixExpr, scope *Scope) Type {
	switch e.Op {
	case lexer.MINUS:
		t := c.inferExpr(e.Expr, scope)
		if !isNumeric(t) && !isUnknown(t) {
			c.errorf(e.Span(), diag.CodeTypeMismatch, "unary - needs Int or Float, found %s", t)
			return TypeUnknown
		}
		return t
	case lexer.NOT, lexer.BANG:
		c.checkExpr(e.Expr, scope, TypeBool)
		return TypeBool
	default:
		c.inferExpr(e.Expr, scope)
		return TypeUnknown
	}
}

func (c *Checker) checkPostfix(e *ast.PostfixExpr, scope *Scope) Type {
	t := c.inferExpr(e.Expr, scope)
	if e.Op != lexer.BANG {
		return TypeUnknown
	}
	if opt, ok := t.(*Optional); ok {
		return opt.Inner
	}
	if isUnknown(t) {
		return TypeUnknown
	}
	c.errorf(e.Span(), diag.CodeTypeMismatch, "force-unwrap needs an Optional, found %s", t)
	return TypeUnknown
}

func isNumeric(t Type) bool {
	p, ok := t.(*Primitive)
	return ok && (p.Kind == Int || p.Kind == Float)
}

func isUnknown(t Type) bool {
	_, ok := t.(*Unknown)
	return ok
}

func (c *Checker) checkInfix(e *ast.InfixExpr, scope *Scope, expected Type) Type {
	switch e.Op {
	case lexer.PLUS:
		left := c.checkExpr(e.Left, scope, nil)
		right := c.checkExpr(e.Right, scope, left)
		switch lt := left.(type) {
		case *Primitive:
			if lt.Kind == Int || lt.Kind == Float || lt.Kind == String {
				return left
			}
		case *List:
			return left
		case *Unknown:
			return right
		}
		c.errorf(e.Span(), diag.CodeTypeMismatch,
			"+ needs two Ints, two Floats, two Strings, or two Lists of the same element type, found %s", left)
		return TypeUnknown

	case lexer.MINUS, lexer.ASTERISK, lexer.SLASH, lexer.PERCENT:
		left := c.checkExpr(e.Left, scope, nil)
		c.checkExpr(e.Right, scope, left)
		if isNumeric(left) || isUnknown(left) {
			return left
		}
		c.errorf(e.Span(), diag.CodeTypeMismatch,
			"%s needs both operands of the same numeric type, found %s", e.Op, left)
		return TypeUnknown

	case lexer.EQ, lexer.NOT_EQ:
		left := c.checkExpr(e.Left, scope, nil)
		c.checkExpr(e.Right, scope, left)
		return TypeBool

	case lexer.LT, lexer.LE, lexer.GT, lexer.GE:
		left := c.checkExpr(e.Left, scope, nil)
		c.checkExpr(e.Right, scope, left)
		if !isOrdered(left) && !isUnknown(left) {
			c.errorf(e.Span(), diag.CodeTypeMismatch,
				"%s needs Int, Float, or String operands, found %s", e.Op, left)
		}
		return TypeBool

	case lexer.AMP_AMP, lexer.AND, lexer.PIPE_PIPE, lexer.OR:
		c.checkExpr(e.Left, scope, TypeBool)
		c.checkExpr(e.Right, scope, TypeBool)
		return TypeBool

	default:
		c.inferExpr(e.Left, scope)
		c.inferExpr(e.Right, scope)
		return TypeUnknown
	}
}

func isOrdered(t Type) bool {
	p, ok := t.(*Primitive)
	return ok && (p.Kind == Int || p.Kind == Float || p.Kind == String)
}

func (c *Checker) checkCoalesce(e *ast.CoalesceExpr, scope *Scope) Type {
	left := c.inferExpr(e.Left, scope)
	opt, ok := left.(*Optional)
	if !ok {
		if !isUnknown(left) {
			c.errorf(e.Left.Span(), diag.CodeTypeMismatch,
				"?? needs an Optional on the left, found %s", left)
		}
		c.inferExpr(e.Right, scope)
		return TypeUnknown
	}
	c.checkExpr(e.Right, scope, opt.Inner)
	return opt.Inner
}

func (c *Checker) checkAssign(e *ast.AssignExpr, scope *Scope) Type {
	target := c.inferExpr(e.Target, scope)
	switch e.Target.(type) {
	case *ast.Ident, *ast.FieldExpr, *ast.IndexExpr:
	default:
		c.errorf(e.Target.Span(), diag.CodeTypeMismatch, "cannot assign to this expression")
	}
	c.checkExpr(e.Value, scope, target)
	return target
}

// checkRange types a range outside an index position: both endpoints are
// Int and the value is an eagerly-built List[Int].
func (c *Checker) checkRange(e *ast.RangeExpr, scope *Scope) Type {
	if e.Start != nil {
		c.checkExpr(e.Start, scope, TypeInt)
	}
	if e.End != nil {
		c.checkExpr(e.End, scope, TypeInt)
	}
	if e.Start == nil || e.End == nil {
		c.errorf(e.Span(), diag.CodeTypeMismatch,
			"a range value needs both endpoints; open ranges are only valid as slice indices")
	}
	return &List{Elem: TypeInt}
}

func (c *Checker) checkIndex(e *ast.IndexExpr, scope *Scope) Type {
	target := c.inferExpr(e.Target, scope)

	if r, isRange := e.Index.(*ast.RangeExpr); isRange {
		// Slice: `[a..b]` / `[a...b]` on List/String yields the same kind.
		if r.Start != nil {
			c.checkExpr(r.Start, scope, TypeInt)
		}
		if r.End != nil {
			c.checkExpr(r.End, scope, TypeInt)
		}
		c.Types[e.Index] = target
		switch target.(type) {
		case *List, *Unknown:
			return target
		case *Primitive:
			if target.(*Primitive).Kind == String {
				return target
			}
		}
		c.errorf(e.Span(), diag.CodeTypeMismatch, "cannot slice %s", target)
		return TypeUnknown
	}

	switch t := target.(type) {
	case *List:
		c.checkExpr(e.Index, scope, TypeInt)
		return t.Elem
	case *Dict:
		c.checkExpr(e.Index, scope, t.Key)
		return t.Value
	case *Primitive:
		if t.Kind == String {
			c.checkExpr(e.Index, scope, TypeInt)
			return TypeString
		}
	case *Unknown:
		c.inferExpr(e.Index, scope)
		return TypeUnknown
	}
	c.inferExpr(e.Index, scope)
	c.errorf(e.Span(), diag.CodeTypeMismatch, "cannot index %s", target)
	return TypeUnknown
}

// checkField types `target.field`: module-alias member access, enum or
// error variant references, and struct field access.
func (c *Checker) checkField(e *ast.FieldExpr, scope *Scope) Type {
	if ident, ok := e.Target.(*ast.Ident); ok {
		// Module alias: `alias.symbol`.
		if c.IntrinsicAliases[ident.Name] {
			if fn, ok := c.Builtins[e.Field.Name]; ok {
				c.Types[e.Target] = TypeVoid
				return fn
			}
			c.errorf(e.Field.Span(), diag.CodeTypeUnknownIntrinsic,
				"no intrinsic named %q", e.Field.Name)
			return TypeUnknown
		}
		if env, ok := c.ModuleAliases[ident.Name]; ok {
			if sym := env.GlobalScope.Lookup(e.Field.Name); sym != nil {
				c.Types[e.Target] = TypeVoid
				return sym.Type
			}
			c.errorf(e.Field.Span(), diag.CodeTypeMismatch,
				"module %q has no symbol %q", ident.Name, e.Field.Name)
			return TypeUnknown
		}
		// Enum/error variant reference: `Option.Some`, `E.NotFound`.
		if en, ok := c.Enums[ident.Name]; ok {
			return c.variantRefType(e, en.Name, en.TypeParams, en.Variants, enumVariantOwner{enum: en})
		}
		if et, ok := c.ErrorTypes[ident.Name]; ok {
			return c.variantRefType(e, et.Name, nil, et.Variants, enumVariantOwner{errType: et})
		}
	}

	target := c.inferExpr(e.Target, scope)
	switch t := Unwrap(target).(type) {
	case *Struct:
		if ft, ok := t.FieldType(e.Field.Name); ok {
			return ft
		}
		c.errorf(e.Field.Span(), diag.CodeTypeMismatch,
			"%s has no field %q", t.Name, e.Field.Name)
	case *GenericInstance:
		if st, ok := t.Base.(*Struct); ok {
			if ft, ok := st.FieldType(e.Field.Name); ok {
				return Substitute(ft, substFor(st.TypeParams, t.Args))
			}
			c.errorf(e.Field.Span(), diag.CodeTypeMismatch,
				"%s has no field %q", st.Name, e.Field.Name)
		}
	case *ErrorType:
		// Error payload access inside a catch body (`err.path`): the
		// single-payload variants expose their fields by declared name.
		if ft, ok := errorPayloadField(t, e.Field.Name); ok {
			return ft
		}
		c.errorf(e.Field.Span(), diag.CodeTypeMismatch,
			"%s has no payload field %q", t.Name, e.Field.Name)
	case *Unknown:
		return TypeUnknown
	default:
		c.errorf(e.Span(), diag.CodeTypeMismatch, "%s has no fields", target)
	}
	return TypeUnknown
}

// errorPayloadField finds a payload slot by field name across an error
// type's variants. Error variants declare named fields
// (`NotFound(path: String)`); the parser stores only the types, so
// variant payload names live in PayloadNames when present.
func errorPayloadField(t *ErrorType, name string) (Type, bool) {
	for _, v := range t.Variants {
		for i, pn := range v.PayloadNames {
			if pn == name && i < len(v.Payload) {
				return v.Payload[i], true
			}
		}
	}
	return nil, false
}

type enumVariantOwner struct {
	enum    *Enum
	errType *ErrorType
}

// variantRefType types `Type.Variant`: a payload-free variant is a value
// of the enum/error type; a payload-carrying variant is a constructor
// function from payload types to the enum/error type.
func (c *Checker) variantRefType(e *ast.FieldExpr, name string, tps []*GenericParam, variants []Variant, owner enumVariantOwner) Type {
	var found *Variant
	for i := range variants {
		if variants[i].Name == e.Field.Name {
			found = &variants[i]
			break
		}
	}
	if found == nil {
		c.errorf(e.Field.Span(), diag.CodeTypeMismatch,
			"%s has no variant %q", name, e.Field.Name)
		return TypeUnknown
	}
	var self Type
	if owner.enum != nil {
		self = owner.enum
		if len(tps) > 0 {
			args := make([]Type, len(tps))
			for i, tp := range tps {
				args[i] = tp
			}
			self = &GenericInstance{Base: owner.enum, Args: args}
		}
	} else {
		self = owner.errType
	}
	if len(found.Payload) == 0 {
		return self
	}
	return &Function{TypeParams: tps, Params: found.Payload, Return: self}
}

func substFor(params []*GenericParam, args []Type) map[string]Type {
	m := make(map[string]Type, len(params))
	for i, p := range params {
		if i < len(args) {
			m[p.Name] = args[i]
		}
	}
	return m
}

func (c *Checker) checkListLiteral(e *ast.ListLiteral, scope *Scope, expected Type) Type {
	var elem Type
	if e.Type != nil {
		elem = c.resolveType(e.Type, nil)
	} else if lt, ok := expected.(*List); ok {
		elem = lt.Elem
	}
	for _, el := range e.Elements {
		t := c.checkExpr(el, scope, elem)
		if elem == nil {
			elem = t
		}
	}
	if elem == nil {
		c.errorf(e.Span(), diag.CodeTypeMissingAnnotation,
			"cannot infer the element type of an empty list; annotate it")
		elem = TypeUnknown
	}
	return &List{Elem: elem}
}

func (c *Checker) checkDictLiteral(e *ast.DictLiteral, scope *Scope, expected Type) Type {
	var key, val Type
	if dt, ok := expected.(*Dict); ok {
		key, val = dt.Key, dt.Value
	}
	for _, entry := range e.Entries {
		kt := c.checkExpr(entry.Key, scope, key)
		vt := c.checkExpr(entry.Value, scope, val)
		if key == nil {
			key = kt
			c.checkDictKeyType(key, entry.Key.Span())
		}
		if val == nil {
			val = vt
		}
	}
	if key == nil {
		c.errorf(e.Span(), diag.CodeTypeMissingAnnotation,
			"cannot infer the key/value types of an empty dict; annotate it")
		key, val = TypeUnknown, TypeUnknown
	}
	return &Dict{Key: key, Value: val}
}

func (c *Checker) checkStructLiteral(e *ast.StructLiteral, scope *Scope) Type {
	name, explicitArgs := c.structLiteralName(e, scope)
	if name == "" {
		for _, f := range e.Fields {
			c.inferExpr(f.Value, scope)
		}
		return TypeUnknown
	}
	st, ok := c.Structs[name]
	if !ok {
		c.errorf(e.Span(), diag.CodeTypeMismatch, "unknown struct %q", name)
		for _, f := range e.Fields {
			c.inferExpr(f.Value, scope)
		}
		return TypeUnknown
	}

	if len(st.TypeParams) == 0 {
		c.checkStructFields(e, st, nil, scope)
		return st
	}

	subst := make(map[string]Type)
	if explicitArgs != nil {
		if len(explicitArgs) != len(st.TypeParams) {
			c.errorf(e.Span(), diag.CodeTypeArityMismatch,
				"%s takes %d type arguments, got %d", st.Name, len(st.TypeParams), len(explicitArgs))
			return TypeUnknown
		}
		for i, tp := range st.TypeParams {
			subst[tp.Name] = explicitArgs[i]
		}
		c.checkStructFields(e, st, subst, scope)
	} else {
		// Infer the type arguments by unifying declared field types
		// against the literal's field values.
		for _, f := range e.Fields {
			declared, ok := st.FieldType(f.Name.Name)
			if !ok {
				continue
			}
			got := c.inferExpr(f.Value, scope)
			if err := unify(declared, got, subst); err != nil {
				c.mismatch(f.Value.Span(), Substitute(declared, subst), got)
			}
		}
		c.checkMissingStructFields(e, st)
	}

	args := make([]Type, len(st.TypeParams))
	for i, tp := range st.TypeParams {
		a, ok := subst[tp.Name]
		if !ok {
			c.errorf(e.Span(), diag.CodeTypeMismatch,
				"cannot infer type parameter %s of %s", tp.Name, st.Name)
			a = TypeUnknown
		}
		args[i] = a
	}
	c.RecordInstantiation(st.Name, args)
	return &GenericInstance{Base: st, Args: args}
}

func (c *Checker) structLiteralName(e *ast.StructLiteral, scope *Scope) (string, []Type) {
	switch n := e.Name.(type) {
	case *ast.Ident:
		return n.Name, nil
	case *ast.IndexExpr:
		base, ok := n.Target.(*ast.Ident)
		if !ok {
			return "", nil
		}
		arg, ok := c.exprAsType(n.Index)
		if !ok {
			return base.Name, nil
		}
		return base.Name, []Type{arg}
	default:
		return "", nil
	}
}

func (c *Checker) checkStructFields(e *ast.StructLiteral, st *Struct, subst map[string]Type, scope *Scope) {
	for _, f := range e.Fields {
		declared, ok := st.FieldType(f.Name.Name)
		if !ok {
			c.errorf(f.Name.Span(), diag.CodeTypeMismatch,
				"%s has no field %q", st.Name, f.Name.Name)
			c.inferExpr(f.Value, scope)
			continue
		}
		if subst != nil {
			declared = Substitute(declared, subst)
		}
		c.checkExpr(f.Value, scope, declared)
	}
	c.checkMissingStructFields(e, st)
}

func (c *Checker) checkMissingStructFields(e *ast.StructLiteral, st *Struct) {
	provided := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		provided[f.Name.Name] = true
	}
	for _, f := range st.Fields {
		if !provided[f.Name] {
			c.errorf(e.Span(), diag.CodeTypeMismatch,
				"missing field %q in %s literal", f.Name, st.Name)
		}
	}
}

// exprAsType reinterprets an expression parsed in value position as a
// type (the callee of `id[Int](7)` parses as an index expression).
func (c *Checker) exprAsType(e ast.Expr) (Type, bool) {
	switch ex := e.(type) {
	case *ast.Ident:
		t := c.resolveNamedTypeByName(ex.Name, nil)
		if _, unknown := t.(*Unknown); unknown {
			return nil, false
		}
		return t, true
	case *ast.IndexExpr:
		base, ok := ex.Target.(*ast.Ident)
		if !ok {
			return nil, false
		}
		arg, ok := c.exprAsType(ex.Index)
		if !ok {
			return nil, false
		}
		switch base.Name {
		case "List":
			return &List{Elem: arg}, true
		}
		bt := c.resolveNamedTypeByName(base.Name, nil)
		if _, unknown := bt.(*Unknown); unknown {
			return nil, false
		}
		return &GenericInstance{Base: bt, Args: []Type{arg}}, true
	default:
		return nil, false
	}
}

func (c *Checker) checkFunctionLiteral(e *ast.FunctionLiteral, scope *Scope, expected Type) Type {
	expectedFn, _ := expected.(*Function)
	fn := &Function{}
	inner := NewScope(scope)
	for i, p := range e.Params {
		var pt Type
		if p.Type != nil {
			pt = c.resolveType(p.Type, nil)
		} else if expectedFn != nil && i < len(expectedFn.Params) {
			pt = expectedFn.Params[i]
		} else {
			c.errorf(p.Span(), diag.CodeTypeMissingAnnotation,
				"lambda parameter %q needs a type annotation", p.Name.Name)
			pt = TypeUnknown
		}
		fn.Params = append(fn.Params, pt)
		c.Types[p] = pt
		inner.Insert(p.Name.Name, &Symbol{Name: p.Name.Name, Type: pt, DefNode: p})
	}
	var want Type
	if expectedFn != nil {
		want = expectedFn.Return
	}
	fn.Return = c.checkExpr(e.Body, inner, want)
	return fn
}

func (c *Checker) checkIfExpr(e *ast.IfExpr, scope *Scope, expected Type) Type {
	var result Type = expected
	for _, clause := range e.Clauses {
		c.checkExpr(clause.Condition, scope, TypeBool)
		t := c.checkBlock(clause.Body, NewScope(scope), result)
		if result == nil {
			result = t
		}
	}
	if e.Else == nil {
		c.errorf(e.Span(), diag.CodeTypeMismatch,
			"an if used as an expression needs an else branch")
		return TypeUnknown
	}
	t := c.checkBlock(e.Else, NewScope(scope), result)
	if result == nil {
		result = t
	}
	if result == nil {
		result = TypeVoid
	}
	return result
}

func (c *Checker) checkCall(e *ast.CallExpr, scope *Scope) Type {
	// Explicit type arguments: `id[Int](7)` parses the callee as an
	// index expression over the function name.
	if idx, ok := e.Callee.(*ast.IndexExpr); ok {
		if fnIdent, ok := idx.Target.(*ast.Ident); ok {
			if sym := scope.Lookup(fnIdent.Name); sym != nil {
				if fn, ok := sym.Type.(*Function); ok && len(fn.TypeParams) > 0 {
					if arg, ok := c.exprAsType(idx.Index); ok {
						c.Types[e.Callee] = fn
						c.Types[idx.Target] = fn
						return c.checkGenericCall(e, fnIdent.Name, fn, []Type{arg}, scope)
					}
				}
			}
		}
	}

	calleeType := c.inferExpr(e.Callee, scope)
	fn, ok := calleeType.(*Function)
	if !ok {
		if !isUnknown(calleeType) {
			c.errorf(e.Callee.Span(), diag.CodeTypeMismatch, "%s is not callable", calleeType)
		}
		for _, a := range e.Args {
			c.inferExpr(a, scope)
		}
		return TypeUnknown
	}

	// Record the flat callee name for alias-qualified calls so the
	// backends emit a direct call.
	if fe, ok := e.Callee.(*ast.FieldExpr); ok {
		if tgt, ok := fe.Target.(*ast.Ident); ok {
			if c.IntrinsicAliases[tgt.Name] || c.ModuleAliases[tgt.Name] != nil {
				c.ResolvedCallees[e] = fe.Field.Name
			}
		}
	}

	if len(fn.TypeParams) > 0 {
		name := callSymbolName(e)
		// A generic enum's variant constructor records its instantiation
		// under the enum's own name.
		if fe, ok := e.Callee.(*ast.FieldExpr); ok {
			if tgt, ok := fe.Target.(*ast.Ident); ok {
				if _, isEnum := c.Enums[tgt.Name]; isEnum {
					name = tgt.Name
				}
			}
		}
		return c.checkGenericCall(e, name, fn, nil, scope)
	}

	if len(e.Args) != len(fn.Params) {
		c.errorf(e.Span(), diag.CodeTypeArityMismatch,
			"call takes %d arguments, got %d", len(fn.Params), len(e.Args))
		for _, a := range e.Args {
			c.inferExpr(a, scope)
		}
		return fn.Return
	}
	for i, a := range e.Args {
		c.checkExpr(a, scope, fn.Params[i])
	}
	c.checkThrowsHandled(e, fn)
	return fn.Return
}

func callSymbolName(e *ast.CallExpr) string {
	switch callee := e.Callee.(type) {
	case *ast.Ident:
		return callee.Name
	case *ast.FieldExpr:
		return callee.Field.Name
	default:
		return ""
	}
}

// checkGenericCall types a call to a generic function, either with
// explicit type arguments or by unifying declared parameter types with
// the call-site argument types, and records the concrete instantiation.
func (c *Checker) checkGenericCall(e *ast.CallExpr, name string, fn *Function, explicit []Type, scope *Scope) Type {
	if len(e.Args) != len(fn.Params) {
		c.errorf(e.Span(), diag.CodeTypeArityMismatch,
			"call takes %d arguments, got %d", len(fn.Params), len(e.Args))
		for _, a := range e.Args {
			c.inferExpr(a, scope)
		}
		return TypeUnknown
	}

	subst := make(map[string]Type)
	if explicit != nil {
		if len(explicit) != len(fn.TypeParams) {
			c.errorf(e.Span(), diag.CodeTypeArityMismatch,
				"%s takes %d type arguments, got %d", name, len(fn.TypeParams), len(explicit))
			return TypeUnknown
		}
		for i, tp := range fn.TypeParams {
			subst[tp.Name] = explicit[i]
		}
		for i, a := range e.Args {
			c.checkExpr(a, scope, Substitute(fn.Params[i], subst))
		}
	} else {
		for i, a := range e.Args {
			got := c.inferExpr(a, scope)
			if err := unify(fn.Params[i], got, subst); err != nil {
				c.mismatch(a.Span(), Substitute(fn.Params[i], subst), got)
			}
		}
	}

	args := make([]Type, len(fn.TypeParams))
	for i, tp := range fn.TypeParams {
		a, ok := subst[tp.Name]
		if !ok {
			c.errorf(e.Span(), diag.CodeTypeMismatch,
				"cannot infer type parameter %s of %s", tp.Name, name)
			a = TypeUnknown
		}
		args[i] = a
	}
	if name != "" {
		c.RecordInstantiation(name, args)
	}
	c.CallTypeArgs[e] = args
	c.checkThrowsHandled(e, fn)
	return Substitute(fn.Return, subst)
}

// checkThrowsHandled enforces the declared-error contract: a call to a
// function that throws must either sit under a catch or be inside a
// function that propagates every thrown error type.
func (c *Checker) checkThrowsHandled(e *ast.CallExpr, fn *Function) {
	if len(fn.Throws) == 0 || c.inCatchTarget {
		return
	}
	for _, thrown := range fn.Throws {
		handled := false
		for _, declared := range c.currentThrows {
			if declared == thrown {
				handled = true
				break
			}
		}
		if !handled {
			c.errorf(e.Span(), diag.CodeTypeUnhandledError,
				"call may throw %s; handle it with catch or declare `! %s`", thrown.Name, thrown.Name)
		}
	}
}

func (c *Checker) checkCatch(e *ast.CatchExpr, scope *Scope, expected Type) Type {
	prev := c.inCatchTarget
	c.inCatchTarget = true
	target := c.checkExpr(e.Target, scope, expected)
	c.inCatchTarget = prev

	// Bind the error name to the thrown error type inside the body.
	var errType Type = TypeUnknown
	if call, ok := e.Target.(*ast.CallExpr); ok {
		if calleeType, ok := c.Types[call.Callee]; ok {
			if fn, ok := calleeType.(*Function); ok {
				switch len(fn.Throws) {
				case 0:
					c.errorf(e.Target.Span(), diag.CodeTypeMismatch,
						"catch target cannot throw")
				case 1:
					errType = fn.Throws[0]
				default:
					// Multiple declared error types: the handler matches
					// on the value to recover the concrete one.
					errType = TypeUnknown
				}
			}
		}
	}

	inner := NewScope(scope)
	inner.Insert(e.ErrName.Name, &Symbol{Name: e.ErrName.Name, Type: errType})
	body := c.checkBlock(e.Body, inner, target)
	if body != nil && !assignable(target, body) {
		c.mismatch(e.Body.Span(), target, body)
	}
	return target
}
