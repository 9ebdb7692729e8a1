package types

import (
	"strings"

	"github.com/sarn-lang/sarn/internal/ast"
	"github.com/sarn-lang/sarn/internal/diag"
)

// checkBlock checks every statement in a block, then its tail expression
// against expected (nil when the block's value is unused). It returns
// the tail's type, or nil when the block has no tail.
func (c *Checker) checkBlock(block *ast.BlockExpr, scope *Scope, expected Type) Type {
	if block == nil {
		return nil
	}
	for _, stmt := range block.Stmts {
		c.checkStmt(stmt, scope)
	}
	if block.Tail != nil {
		return c.checkExpr(block.Tail, scope, expected)
	}
	return nil
}

func (c *Checker) checkStmt(stmt ast.Stmt, scope *Scope) {
	switch s := stmt.(type) {
	case *ast.VarStmt:
		var t Type
		if s.Type != nil {
			t = c.resolveType(s.Type, nil)
			c.checkExpr(s.Value, scope, t)
		} else {
			t = c.inferExpr(s.Value, scope)
		}
		c.Types[s.Name] = t
		scope.Insert(s.Name.Name, &Symbol{Name: s.Name.Name, Type: t, DefNode: s})

	case *ast.ReturnStmt:
		if s.Value == nil {
			if c.currentReturn != nil && !isVoid(c.currentReturn) && !isUnknown(c.currentReturn) {
				c.errorf(s.Span(), diag.CodeTypeMismatch,
					"bare return in a function returning %s", c.currentReturn)
			}
			return
		}
		var want Type
		if c.currentReturn != nil && !isUnknown(c.currentReturn) {
			want = c.currentReturn
		}
		c.checkExpr(s.Value, scope, want)

	case *ast.ThrowStmt:
		t := c.inferExpr(s.Value, scope)
		et, ok := Unwrap(t).(*ErrorType)
		if !ok {
			if !isUnknown(t) {
				c.errorf(s.Value.Span(), diag.CodeTypeMismatch,
					"throw needs an error value, found %s", t)
			}
			return
		}
		for _, declared := range c.currentThrows {
			if declared == et {
				return
			}
		}
		c.errorf(s.Span(), diag.CodeTypeUnhandledError,
			"this function does not declare `! %s`", et.Name)

	case *ast.ExprStmt:
		c.inferExpr(s.Expr, scope)

	case *ast.IfStmt:
		for _, clause := range s.Clauses {
			c.checkExpr(clause.Condition, scope, TypeBool)
			c.checkBlock(clause.Body, NewScope(scope), nil)
		}
		if s.Else != nil {
			c.checkBlock(s.Else, NewScope(scope), nil)
		}

	case *ast.UnlessStmt:
		c.checkExpr(s.Condition, scope, TypeBool)
		c.checkBlock(s.Body, NewScope(scope), nil)
		if s.Else != nil {
			c.checkBlock(s.Else, NewScope(scope), nil)
		}

	case *ast.WhileStmt:
		c.checkExpr(s.Condition, scope, TypeBool)
		c.checkBlock(s.Body, NewScope(scope), nil)

	case *ast.UntilStmt:
		c.checkExpr(s.Condition, scope, TypeBool)
		c.checkBlock(s.Body, NewScope(scope), nil)
	}
}

// checkMatchExpr types a match: the subject is inferred, every arm's
// pattern is bound against it, and arm bodies unify to the match's type.
// Exhaustiveness over the subject's type is enforced.
func (c *Checker) checkMatchExpr(e *ast.MatchExpr, scope *Scope, expected Type) Type {
	subject := c.inferExpr(e.Subject, scope)

	result := expected
	for _, arm := range e.Arms {
		inner := NewScope(scope)
		c.bindPattern(arm.Pattern, subject, inner)
		if arm.Guard != nil {
			c.checkGuard(arm.Guard, subject, inner)
		}
		t := c.checkBlock(arm.Body, inner, result)
		if result == nil {
			result = t
		}
	}

	c.checkExhaustive(e, subject)

	if result == nil {
		result = TypeVoid
	}
	return result
}

// checkGuard types an `is` guard. A guard naming an enum/error variant
// path is a type test (Bool); any other guard must itself be Bool.
func (c *Checker) checkGuard(guard ast.Expr, subject Type, scope *Scope) {
	if fe, ok := guard.(*ast.FieldExpr); ok {
		if ident, ok := fe.Target.(*ast.Ident); ok {
			if _, isEnum := c.Enums[ident.Name]; isEnum {
				c.Types[guard] = TypeBool
				return
			}
			if _, isErr := c.ErrorTypes[ident.Name]; isErr {
				c.Types[guard] = TypeBool
				return
			}
		}
	}
	c.checkExpr(guard, scope, TypeBool)
}

// bindPattern checks a pattern against the subject type, declaring every
// bound identifier with its matched type.
func (c *Checker) bindPattern(pat ast.Pattern, subject Type, scope *Scope) {
	switch p := pat.(type) {
	case *ast.PatternWild:

	case *ast.PatternIdent:
		scope.Insert(p.Name.Name, &Symbol{Name: p.Name.Name, Type: subject})
		c.Types[p.Name] = subject

	case *ast.PatternLiteral:
		c.checkExpr(p.Expr, scope, subject)

	case *ast.PatternRange:
		if p.Start != nil {
			c.checkExpr(p.Start, scope, subject)
		}
		if p.End != nil {
			c.checkExpr(p.End, scope, subject)
		}

	case *ast.PatternPath:
		c.checkVariantPattern(p, nil, subject, scope)

	case *ast.PatternEnum:
		c.checkVariantPattern(p.Path, p.Elements, subject, scope)

	case *ast.PatternStruct:
		st, subst := structOf(subject)
		if st == nil {
			if !isUnknown(subject) {
				c.errorf(p.Span(), diag.CodeTypeMismatch,
					"cannot destructure %s as a struct", subject)
			}
			return
		}
		for _, f := range p.Fields {
			ft, ok := st.FieldType(f.Name.Name)
			if !ok {
				c.errorf(f.Name.Span(), diag.CodeTypeMismatch,
					"%s has no field %q", st.Name, f.Name.Name)
				continue
			}
			if subst != nil {
				ft = Substitute(ft, subst)
			}
			if f.Shorthand {
				scope.Insert(f.Name.Name, &Symbol{Name: f.Name.Name, Type: ft})
				c.Types[f.Name] = ft
				continue
			}
			c.bindPattern(f.Pattern, ft, scope)
		}

	case *ast.PatternSlice:
		lt, ok := subject.(*List)
		if !ok {
			if !isUnknown(subject) {
				c.errorf(p.Span(), diag.CodeTypeMismatch,
					"cannot destructure %s as a list", subject)
			}
			return
		}
		for _, elem := range p.Elements {
			if rest, isRest := elem.(*ast.PatternRest); isRest {
				if rest.Binding != nil {
					c.bindPattern(rest.Binding, lt, scope)
				}
				continue
			}
			c.bindPattern(elem, lt.Elem, scope)
		}

	case *ast.PatternRest:
		if p.Binding != nil {
			c.bindPattern(p.Binding, subject, scope)
		}

	case *ast.PatternOr:
		for _, alt := range p.Patterns {
			c.bindPattern(alt, subject, scope)
		}

	case *ast.PatternParen:
		c.bindPattern(p.Pattern, subject, scope)
	}
}

// checkVariantPattern checks an enum/error variant path (with optional
// payload destructuring) against the subject's variant set.
func (c *Checker) checkVariantPattern(path *ast.PatternPath, elements []ast.Pattern, subject Type, scope *Scope) {
	variantName := path.Segments[len(path.Segments)-1].Name

	var variants []Variant
	var subst map[string]Type
	switch t := Unwrap(subject).(type) {
	case *Enum:
		variants = t.Variants
	case *ErrorType:
		variants = t.Variants
	case *GenericInstance:
		if en, ok := t.Base.(*Enum); ok {
			variants = en.Variants
			subst = substFor(en.TypeParams, t.Args)
		}
	case *Unknown:
		for _, el := range elements {
			c.bindPattern(el, TypeUnknown, scope)
		}
		return
	}
	if variants == nil {
		c.errorf(path.Span(), diag.CodeTypeMismatch,
			"cannot match variants of %s", subject)
		return
	}

	var found *Variant
	for i := range variants {
		if variants[i].Name == variantName {
			found = &variants[i]
			break
		}
	}
	if found == nil {
		c.errorf(path.Span(), diag.CodeTypeMismatch,
			"%s has no variant %q", subject, variantName)
		return
	}
	if len(elements) > len(found.Payload) {
		c.errorf(path.Span(), diag.CodeTypeArityMismatch,
			"variant %s carries %d payload values, pattern binds %d",
			variantName, len(found.Payload), len(elements))
		return
	}
	for i, el := range elements {
		pt := found.Payload[i]
		if subst != nil {
			pt = Substitute(pt, subst)
		}
		c.bindPattern(el, pt, scope)
	}
}

func structOf(t Type) (*Struct, map[string]Type) {
	switch tt := Unwrap(t).(type) {
	case *Struct:
		return tt, nil
	case *GenericInstance:
		if st, ok := tt.Base.(*Struct); ok {
			return st, substFor(st.TypeParams, tt.Args)
		}
	}
	return nil, nil
}

// checkExhaustive enforces match exhaustiveness: enum/error subjects
// must cover every variant, Bool subjects both literals, and anything
// else needs a catch-all arm. Missing variants are listed.
func (c *Checker) checkExhaustive(e *ast.MatchExpr, subject Type) {
	covered := make(map[string]bool)
	catchAll := false
	for _, arm := range e.Arms {
		if arm.Guard != nil {
			// A guarded arm doesn't cover its pattern unconditionally.
			continue
		}
		collectCoverage(arm.Pattern, covered, &catchAll)
	}
	if catchAll {
		return
	}

	var variants []Variant
	switch t := Unwrap(subject).(type) {
	case *Enum:
		variants = t.Variants
	case *ErrorType:
		variants = t.Variants
	case *GenericInstance:
		if en, ok := t.Base.(*Enum); ok {
			variants = en.Variants
		}
	case *Primitive:
		if t.Kind == Bool {
			if !covered["true"] || !covered["false"] {
				c.errorf(e.Span(), diag.CodeTypeNonExhaustiveMatch,
					"match on Bool must cover true and false or add a _ arm")
			}
			return
		}
		c.errorf(e.Span(), diag.CodeTypeNonExhaustiveMatch,
			"match on %s needs a _ catch-all arm", subject)
		return
	case *Unknown:
		return
	default:
		c.errorf(e.Span(), diag.CodeTypeNonExhaustiveMatch,
			"match on %s needs a _ catch-all arm", subject)
		return
	}

	var missing []string
	for _, v := range variants {
		if !covered[v.Name] {
			missing = append(missing, v.Name)
		}
	}
	if len(missing) > 0 {
		c.errorf(e.Span(), diag.CodeTypeNonExhaustiveMatch,
			"match is not exhaustive; missing variants: %s", strings.Join(missing, ", "))
	}
}

func collectCoverage(pat ast.Pattern, covered map[string]bool, catchAll *bool) {
	switch p := pat.(type) {
	case *ast.PatternWild, *ast.PatternIdent:
		*catchAll = true
	case *ast.PatternPath:
		covered[p.Segments[len(p.Segments)-1].Name] = true
	case *ast.PatternEnum:
		covered[p.Path.Segments[len(p.Path.Segments)-1].Name] = true
	case *ast.PatternLiteral:
		if b, ok := p.Expr.(*ast.BoolLit); ok {
			if b.Value {
				covered["true"] = true
			} else {
				covered["false"] = true
			}
		}
	case *ast.PatternOr:
		for _, alt := range p.Patterns {
			collectCoverage(alt, covered, catchAll)
		}
	case *ast.PatternParen:
		collectCoverage(p.Pattern, covered, catchAll)
	}
}
