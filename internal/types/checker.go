// Package types also hosts the Checker: the bidirectional type checker
// that walks a resolved file, annotating every expression and recording
// generic instantiations into a monomorphization table.
package types

import (
	"strings"

	"github.com/sarn-lang/sarn/internal/ast"
	"github.com/sarn-lang/sarn/internal/diag"
	"github.com/sarn-lang/sarn/internal/lexer"
)

// Instantiation is one recorded use of a generic symbol at a concrete
// type-argument tuple. Equal tuples intern to exactly one entry.
type Instantiation struct {
	Symbol   string
	TypeArgs []Type
}

// InstantiationKey returns the monomorphization-table key for symbol at args.
func InstantiationKey(symbol string, args []Type) string {
	var parts []string
	for _, a := range args {
		parts = append(parts, a.String())
	}
	return symbol + "[" + strings.Join(parts, ",") + "]"
}

// Checker holds the whole-module type environment: declared struct/enum/
// error shapes, the module-scope symbol table, and the monomorphization
// table the checker seeds for later specialization.
type Checker struct {
	Diags *diag.Bag

	GlobalScope *Scope

	Structs    map[string]*Struct
	Enums      map[string]*Enum
	ErrorTypes map[string]*ErrorType

	// Types is the inferred-type slot for every expression (and the
	// signature slot for every function declaration). After a non-errored
	// run no expression maps to Unknown.
	Types map[ast.Node]Type

	// CallTypeArgs records, for each call of a generic function, the
	// concrete type-argument tuple in declaration order.
	CallTypeArgs map[*ast.CallExpr][]Type

	// ResolvedCallees maps alias-qualified or type-argument-applied call
	// callees back to the flat symbol name the backends emit against.
	ResolvedCallees map[*ast.CallExpr]string

	// Monomorphizations is the module's monomorphization table: a
	// generic symbol's call/use site, keyed by (symbol, type-arg tuple),
	// mapped to the concrete instantiation the backends specialize
	// against. Equal type-arg tuples intern to exactly one entry.
	Monomorphizations map[string]*Instantiation

	// Builtins are intrinsic signatures injected by the driver from the
	// intrinsic registry; the checker itself stays below the registry in
	// the dependency order.
	Builtins map[string]*Function

	// ModuleAliases maps an import alias to the checked environment of
	// the module it names; IntrinsicAliases marks aliases bound to the
	// pre-registered std.intrinsics module.
	ModuleAliases    map[string]*Checker
	IntrinsicAliases map[string]bool

	currentThrows []*ErrorType
	currentReturn Type
	inCatchTarget bool
}

// NewChecker builds a Checker with an empty global scope.
func NewChecker(diags *diag.Bag) *Checker {
	return &Checker{
		Diags:             diags,
		GlobalScope:       NewScope(nil),
		Structs:           make(map[string]*Struct),
		Enums:             make(map[string]*Enum),
		ErrorTypes:        make(map[string]*ErrorType),
		Types:             make(map[ast.Node]Type),
		CallTypeArgs:      make(map[*ast.CallExpr][]Type),
		ResolvedCallees:   make(map[*ast.CallExpr]string),
		Monomorphizations: make(map[string]*Instantiation),
		Builtins:          make(map[string]*Function),
		ModuleAliases:     make(map[string]*Checker),
		IntrinsicAliases:  make(map[string]bool),
	}
}

// DeclareBuiltin registers an intrinsic signature under name. The driver
// calls this once per registry entry before Check runs.
func (c *Checker) DeclareBuiltin(name string, fn *Function) {
	c.Builtins[name] = fn
	c.GlobalScope.Insert(name, &Symbol{Name: name, Type: fn})
}

// BindModule makes alias resolve to the already-checked module env.
func (c *Checker) BindModule(alias string, env *Checker) {
	c.ModuleAliases[alias] = env
}

// BindIntrinsicModule makes alias resolve to the intrinsic registry.
func (c *Checker) BindIntrinsicModule(alias string) {
	c.IntrinsicAliases[alias] = true
}

// RecordInstantiation interns (symbol, args) into the monomorphization
// table, returning its key.
func (c *Checker) RecordInstantiation(symbol string, args []Type) string {
	key := InstantiationKey(symbol, args)
	if _, ok := c.Monomorphizations[key]; !ok {
		c.Monomorphizations[key] = &Instantiation{Symbol: symbol, TypeArgs: args}
	}
	return key
}

// Check runs the full checking pipeline over file: declare every
// struct/enum/error shape, then every function/const signature, then
// check every declaration's body. Splitting declaration from body
// checking lets forward references between top-level declarations
// resolve regardless of source order.
func (c *Checker) Check(file *ast.File) {
	for _, decl := range file.Decls {
		c.declareShape(decl)
	}
	for _, decl := range file.Decls {
		c.declareSignature(decl)
	}
	for _, decl := range file.Decls {
		c.checkDeclBody(decl)
	}
}

func (c *Checker) declareShape(decl ast.Decl) {
	switch d := decl.(type) {
	case *ast.StructDecl:
		st := &Struct{Name: d.Name.Name}
		for _, tp := range d.TypeParams {
			st.TypeParams = append(st.TypeParams, &GenericParam{Name: tp.Name.Name})
		}
		c.Structs[st.Name] = st
	case *ast.EnumDecl:
		en := &Enum{Name: d.Name.Name}
		for _, tp := range d.TypeParams {
			en.TypeParams = append(en.TypeParams, &GenericParam{Name: tp.Name.Name})
		}
		c.Enums[en.Name] = en
	case *ast.ErrorDecl:
		c.ErrorTypes[d.Name.Name] = &ErrorType{Name: d.Name.Name}
	}
}

// declareSignature fills in the bodies of shapes declared in the first
// pass (struct fields reference other structs; enum/error variants
// reference payload types) and declares function/const symbols in the
// global scope.
func (c *Checker) declareSignature(decl ast.Decl) {
	switch d := decl.(type) {
	case *ast.StructDecl:
		st := c.Structs[d.Name.Name]
		tpScope := typeParamScope(st.TypeParams)
		for _, f := range d.Fields {
			st.Fields = append(st.Fields, Field{Name: f.Name.Name, Type: c.resolveType(f.Type, tpScope)})
		}
	case *ast.EnumDecl:
		en := c.Enums[d.Name.Name]
		tpScope := typeParamScope(en.TypeParams)
		for _, v := range d.Variants {
			en.Variants = append(en.Variants, Variant{Name: v.Name.Name, Payload: c.resolveTypes(v.Payloads, tpScope)})
		}
	case *ast.ErrorDecl:
		et := c.ErrorTypes[d.Name.Name]
		for _, v := range d.Variants {
			et.Variants = append(et.Variants, Variant{
				Name:         v.Name.Name,
				Payload:      c.resolveTypes(v.Payloads, nil),
				PayloadNames: v.PayloadNames,
			})
		}
	case *ast.FnDecl:
		fn := c.functionType(d)
		c.Types[d] = fn
		c.GlobalScope.Insert(d.Name.Name, &Symbol{Name: d.Name.Name, Type: fn, DefNode: d})
	case *ast.ConstDecl:
		var t Type
		if d.Type != nil {
			t = c.resolveType(d.Type, nil)
		} else {
			t = c.inferExpr(d.Value, c.GlobalScope)
		}
		c.GlobalScope.Insert(d.Name.Name, &Symbol{Name: d.Name.Name, Type: t, DefNode: d})
	}
}

func (c *Checker) functionType(d *ast.FnDecl) *Function {
	fn := &Function{}
	for _, tp := range d.TypeParams {
		fn.TypeParams = append(fn.TypeParams, &GenericParam{Name: tp.Name.Name})
	}
	tpScope := typeParamScope(fn.TypeParams)
	for _, p := range d.Params {
		if p.Type == nil {
			c.errorf(p.Span(), diag.CodeTypeMissingAnnotation,
				"parameter %q needs a type annotation", p.Name.Name)
			fn.Params = append(fn.Params, TypeUnknown)
			continue
		}
		fn.Params = append(fn.Params, c.resolveType(p.Type, tpScope))
	}
	if d.ReturnType != nil {
		fn.Return = c.resolveType(d.ReturnType, tpScope)
	} else if d.Body != nil && len(d.Body.Stmts) == 0 && d.Body.Tail != nil {
		// Single trailing expression: the return type is inferred from it
		// during body checking; leave a placeholder the body pass fills.
		fn.Return = TypeUnknown
	} else {
		fn.Return = TypeVoid
	}
	for _, te := range d.Throws {
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

func (c *Checker) checkDeclBody(decl ast.Decl) {
	switch d := decl.(type) {
	case *ast.FnDecl:
		c.checkFnBody(d)
	case *ast.ConstDecl:
		symType := c.GlobalScope.Lookup(d.Name.Name).Type
		c.checkExpr(d.Value, c.GlobalScope, symType)
	case *ast.TestDecl:
		prevRet := c.currentReturn
		c.currentReturn = TypeVoid
		c.checkBlock(d.Body, NewScope(c.GlobalScope), nil)
		c.currentReturn = prevRet
	}
}

func (c *Checker) checkFnBody(d *ast.FnDecl) {
	sym := c.GlobalScope.Lookup(d.Name.Name)
	fn, _ := sym.Type.(*Function)
	if fn == nil {
		return
	}

	scope := NewScope(c.GlobalScope)
	for i, p := range d.Params {
		scope.Insert(p.Name.Name, &Symbol{Name: p.Name.Name, Type: fn.Params[i], DefNode: p})
		c.Types[p] = fn.Params[i]
	}

	prevThrows, prevReturn := c.currentThrows, c.currentReturn
	c.currentThrows = fn.Throws
	c.currentReturn = fn.Return
	var expectedTail Type
	if fn.Return != nil && !isVoid(fn.Return) {
		if _, unknown := fn.Return.(*Unknown); !unknown {
			expectedTail = fn.Return
		}
	}
	tail := c.checkBlock(d.Body, scope, expectedTail)
	c.currentThrows, c.currentReturn = prevThrows, prevReturn

	if _, unknown := fn.Return.(*Unknown); unknown && d.ReturnType == nil {
		// Trailing-expression return-type inference.
		if tail != nil {
			fn.Return = tail
		} else {
			fn.Return = TypeVoid
		}
		return
	}

	if fn.Return != nil && !isVoid(fn.Return) && tail != nil && !assignable(fn.Return, tail) {
		c.errorf(d.Body.Span(), diag.CodeTypeMismatch,
			"function %q returns %s but its body produces %s", d.Name.Name, fn.Return, tail)
	}
}

func isVoid(t Type) bool {
	p, ok := t.(*Primitive)
	return ok && p.Kind == Void
}

func typeParamScope(params []*GenericParam) map[string]*GenericParam {
	if len(params) == 0 {
		return nil
	}
	m := make(map[string]*GenericParam, len(params))
	for _, p := range params {
		m[p.Name] = p
	}
	return m
}

func (c *Checker) errorf(span lexer.Span, code diag.Code, format string, args ...any) {
	c.Diags.Errorf(diag.StageTypeCheck, code, diagSpan(span), format, args...)
}

func diagSpan(span lexer.Span) diag.Span {
	return diag.Span{
		Filename: span.Filename,
		Line:     span.Line,
		Column:   span.Column,
		Start:    span.Start,
		End:      span.End,
	}
}
