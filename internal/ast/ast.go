package ast

import "github.com/sarn-lang/sarn/internal/lexer"

// Node represents any AST node with an associated source span.
type Node interface {
	Span() lexer.Span
	SetSpan(span lexer.Span)
}

// Expr represents an expression node. Every expression carries an
// inferred-type slot, empty until the type checker fills it.
type Expr interface {
	Node
	exprNode()
}

// Stmt represents a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Decl represents a top-level declaration.
type Decl interface {
	Node
	declNode()
}

// TypeExpr represents a type annotation expression.
type TypeExpr interface {
	Node
	typeNode()
}

// File represents a parsed compilation unit.
type File struct {
	Uses  []*UseDecl
	Decls []Decl
	span  lexer.Span
}

// Span returns the span covering the entire file.
func (f *File) Span() lexer.Span { return f.span }

// NewFile constructs a file node with the provided span.
func NewFile(span lexer.Span) *File {
	return &File{span: span}
}

// SetSpan updates the file span.
func (f *File) SetSpan(span lexer.Span) { f.span = span }

// UseDecl represents a `use alias = "path"` import.
type UseDecl struct {
	Alias *Ident
	Path  *StringLit
	span  lexer.Span
}

// Span returns the declaration span.
func (d *UseDecl) Span() lexer.Span { return d.span }

// SetSpan updates the use declaration span.
func (d *UseDecl) SetSpan(span lexer.Span) { d.span = span }

// NewUseDecl constructs a use declaration node.
func NewUseDecl(alias *Ident, path *StringLit, span lexer.Span) *UseDecl {
	return &UseDecl{Alias: alias, Path: path, span: span}
}

func (*UseDecl) declNode() {}

// TypeParam represents a generic type parameter (function
// or struct declared with type parameters).
type TypeParam struct {
	Name *Ident
	span lexer.Span
}

// Span returns the type parameter span.
func (p *TypeParam) Span() lexer.Span { return p.span }

// SetSpan updates the type parameter span.
func (p *TypeParam) SetSpan(span lexer.Span) { p.span = span }

// NewTypeParam constructs a type parameter node.
func NewTypeParam(name *Ident, span lexer.Span) *TypeParam {
	return &TypeParam{Name: name, span: span}
}

// Param represents a function parameter; annotated types are required.
type Param struct {
	Name *Ident
	Type TypeExpr
	span lexer.Span
}

// Span returns the parameter span.
func (p *Param) Span() lexer.Span { return p.span }

// SetSpan updates the parameter span.
func (p *Param) SetSpan(span lexer.Span) { p.span = span }

// NewParam constructs a parameter node.
func NewParam(name *Ident, typ TypeExpr, span lexer.Span) *Param {
	return &Param{Name: name, Type: typ, span: span}
}

// FnDecl represents a function declaration: `def name(params) -> ret ! E end`.
type FnDecl struct {
	Pub        bool
	Name       *Ident
	TypeParams []*TypeParam
	Params     []*Param
	ReturnType TypeExpr // nil when the body's trailing expression supplies it
	Throws     []TypeExpr
	Body       *BlockExpr
	span       lexer.Span
}

// Span returns the declaration span.
func (d *FnDecl) Span() lexer.Span { return d.span }

// SetSpan updates the function declaration span.
func (d *FnDecl) SetSpan(span lexer.Span) { d.span = span }

// NewFnDecl constructs a function declaration node.
func NewFnDecl(isPub bool, name *Ident, typeParams []*TypeParam, params []*Param, returnType TypeExpr, throws []TypeExpr, body *BlockExpr, span lexer.Span) *FnDecl {
	return &FnDecl{
		Pub:        isPub,
		Name:       name,
		TypeParams: typeParams,
		Params:     params,
		ReturnType: returnType,
		Throws:     throws,
		Body:       body,
		span:       span,
	}
}

func (*FnDecl) declNode() {}

// BlockExpr represents a block of statements with an implicit
// trailing-expression-returns rule.
type BlockExpr struct {
	Stmts []Stmt
	Tail  Expr
	span  lexer.Span
}

// Span returns the block span.
func (b *BlockExpr) Span() lexer.Span { return b.span }

// SetSpan updates the block span.
func (b *BlockExpr) SetSpan(span lexer.Span) { b.span = span }

// NewBlockExpr constructs a block expression node.
func NewBlockExpr(stmts []Stmt, tail Expr, span lexer.Span) *BlockExpr {
	return &BlockExpr{Stmts: stmts, Tail: tail, span: span}
}

func (*BlockExpr) exprNode() {}

// VarStmt represents a `var name = value` binding. Unlike ConstDecl,
// the bound name may be reassigned.
type VarStmt struct {
	Name  *Ident
	Type  TypeExpr
	Value Expr
	span  lexer.Span
}

// Span returns the statement span.
func (s *VarStmt) Span() lexer.Span { return s.span }

// SetSpan updates the var statement span.
func (s *VarStmt) SetSpan(span lexer.Span) { s.span = span }

// NewVarStmt constructs a var statement node.
func NewVarStmt(name *Ident, typ TypeExpr, value Expr, span lexer.Span) *VarStmt {
	return &VarStmt{Name: name, Type: typ, Value: value, span: span}
}

func (*VarStmt) stmtNode() {}

// StructDecl represents a struct declaration with fields.
type StructDecl struct {
	Pub        bool
	Name       *Ident
	TypeParams []*TypeParam
	Fields     []*StructField
	span       lexer.Span
}

// Span returns the declaration span.
func (d *StructDecl) Span() lexer.Span { return d.span }

// SetSpan updates the struct declaration span.
func (d *StructDecl) SetSpan(span lexer.Span) { d.span = span }

// NewStructDecl constructs a struct declaration node.
func NewStructDecl(isPub bool, name *Ident, typeParams []*TypeParam, fields []*StructField, span lexer.Span) *StructDecl {
	return &StructDecl{Pub: isPub, Name: name, TypeParams: typeParams, Fields: fields, span: span}
}

func (*StructDecl) declNode() {}

// StructField represents a field within a struct declaration.
type StructField struct {
	Name *Ident
	Type TypeExpr
	span lexer.Span
}

// Span returns the struct field span.
func (f *StructField) Span() lexer.Span { return f.span }

// SetSpan updates the struct field span.
func (f *StructField) SetSpan(span lexer.Span) { f.span = span }

// NewStructField constructs a struct field node.
func NewStructField(name *Ident, typ TypeExpr, span lexer.Span) *StructField {
	return &StructField{Name: name, Type: typ, span: span}
}

// EnumVariant represents a single enum or error variant. Payloads are
// positional (Enum(id, type_args) has no named-field variant);
// error variants may additionally name their payload slots
// (`NotFound(path: String)`), recorded in PayloadNames ("" when unnamed).
type EnumVariant struct {
	Name         *Ident
	Payloads     []TypeExpr
	PayloadNames []string
	span         lexer.Span
}

// Span returns the enum variant span.
func (v *EnumVariant) Span() lexer.Span { return v.span }

// SetSpan updates the enum variant span.
func (v *EnumVariant) SetSpan(span lexer.Span) { v.span = span }

// NewEnumVariant constructs an enum variant node.
func NewEnumVariant(name *Ident, payloads []TypeExpr, span lexer.Span) *EnumVariant {
	return &EnumVariant{Name: name, Payloads: payloads, span: span}
}

// EnumDecl represents an enum declaration with variants.
type EnumDecl struct {
	Pub        bool
	Name       *Ident
	TypeParams []*TypeParam
	Variants   []*EnumVariant
	span       lexer.Span
}

// Span returns the enum declaration span.
func (d *EnumDecl) Span() lexer.Span { return d.span }

// SetSpan updates the enum declaration span.
func (d *EnumDecl) SetSpan(span lexer.Span) { d.span = span }

// NewEnumDecl constructs an enum declaration node.
func NewEnumDecl(isPub bool, name *Ident, typeParams []*TypeParam, variants []*EnumVariant, span lexer.Span) *EnumDecl {
	return &EnumDecl{Pub: isPub, Name: name, TypeParams: typeParams, Variants: variants, span: span}
}

func (*EnumDecl) declNode() {}

// ErrorDecl represents a nominal error sum type: `error Name { Variant, Variant(fields) }`
//. Functions declare `-> T ! E1, E2` against error decls like this one.
type ErrorDecl struct {
	Pub      bool
	Name     *Ident
	Variants []*EnumVariant
	span     lexer.Span
}

// Span returns the error declaration span.
func (d *ErrorDecl) Span() lexer.Span { return d.span }

// SetSpan updates the error declaration span.
func (d *ErrorDecl) SetSpan(span lexer.Span) { d.span = span }

// NewErrorDecl constructs an error declaration node.
func NewErrorDecl(isPub bool, name *Ident, variants []*EnumVariant, span lexer.Span) *ErrorDecl {
	return &ErrorDecl{Pub: isPub, Name: name, Variants: variants, span: span}
}

func (*ErrorDecl) declNode() {}

// ConstDecl represents an immutable module-level binding (// any later assignment to a const is a diagnostic).
type ConstDecl struct {
	Pub   bool
	Name  *Ident
	Type  TypeExpr
	Value Expr
	span  lexer.Span
}

// Span returns the const declaration span.
func (d *ConstDecl) Span() lexer.Span { return d.span }

// SetSpan updates the const declaration span.
func (d *ConstDecl) SetSpan(span lexer.Span) { d.span = span }

// NewConstDecl constructs a const declaration node.
func NewConstDecl(isPub bool, name *Ident, typ TypeExpr, value Expr, span lexer.Span) *ConstDecl {
	return &ConstDecl{Pub: isPub, Name: name, Type: typ, Value: value, span: span}
}

func (*ConstDecl) declNode() {}

// TestDecl represents an inline test block: `test "name" ... end`. The
// test harness that runs these lives outside the compiler core.
type TestDecl struct {
	Name *StringLit
	Body *BlockExpr
	span lexer.Span
}

// Span returns the test declaration span.
func (d *TestDecl) Span() lexer.Span { return d.span }

// SetSpan updates the test declaration span.
func (d *TestDecl) SetSpan(span lexer.Span) { d.span = span }

// NewTestDecl constructs a test declaration node.
func NewTestDecl(name *StringLit, body *BlockExpr, span lexer.Span) *TestDecl {
	return &TestDecl{Name: name, Body: body, span: span}
}

func (*TestDecl) declNode() {}

// ReturnStmt represents a return statement.
type ReturnStmt struct {
	Value Expr
	span  lexer.Span
}

// Span returns the statement span.
func (s *ReturnStmt) Span() lexer.Span { return s.span }

// SetSpan updates the return statement span.
func (s *ReturnStmt) SetSpan(span lexer.Span) { s.span = span }

// NewReturnStmt constructs a return statement node.
func NewReturnStmt(value Expr, span lexer.Span) *ReturnStmt {
	return &ReturnStmt{Value: value, span: span}
}

func (*ReturnStmt) stmtNode() {}

// ThrowStmt represents a `throw` statement raising a declared error variant.
type ThrowStmt struct {
	Value Expr
	span  lexer.Span
}

// Span returns the statement span.
func (s *ThrowStmt) Span() lexer.Span { return s.span }

// SetSpan updates the throw statement span.
func (s *ThrowStmt) SetSpan(span lexer.Span) { s.span = span }

// NewThrowStmt constructs a throw statement node.
func NewThrowStmt(value Expr, span lexer.Span) *ThrowStmt {
	return &ThrowStmt{Value: value, span: span}
}

func (*ThrowStmt) stmtNode() {}

// ExprStmt represents an expression statement.
type ExprStmt struct {
	Expr Expr
	span lexer.Span
}

// Span returns the statement span.
func (s *ExprStmt) Span() lexer.Span { return s.span }

// SetSpan updates the expression statement span.
func (s *ExprStmt) SetSpan(span lexer.Span) { s.span = span }

// NewExprStmt constructs an expression statement node.
func NewExprStmt(expr Expr, span lexer.Span) *ExprStmt {
	return &ExprStmt{Expr: expr, span: span}
}

func (*ExprStmt) stmtNode() {}

// IfClause represents a single conditional branch within an if chain.
type IfClause struct {
	Condition Expr
	Body      *BlockExpr
	span      lexer.Span
}

// Span returns the clause span.
func (c *IfClause) Span() lexer.Span { return c.span }

// SetSpan updates the clause span.
func (c *IfClause) SetSpan(span lexer.Span) { c.span = span }

// NewIfClause constructs an if clause node.
func NewIfClause(condition Expr, body *BlockExpr, span lexer.Span) *IfClause {
	return &IfClause{Condition: condition, Body: body, span: span}
}

// IfExpr represents an if / else-if / else expression chain, used when
// the trailing value of the block is the if's result.
type IfExpr struct {
	Clauses []*IfClause
	Else    *BlockExpr
	span    lexer.Span
}

// Span returns the expression span.
func (e *IfExpr) Span() lexer.Span { return e.span }

// SetSpan updates the expression span.
func (e *IfExpr) SetSpan(span lexer.Span) { e.span = span }

// NewIfExpr constructs an if expression node.
func NewIfExpr(clauses []*IfClause, elseBlock *BlockExpr, span lexer.Span) *IfExpr {
	return &IfExpr{Clauses: clauses, Else: elseBlock, span: span}
}

func (*IfExpr) exprNode() {}

// IfStmt represents an if / else-if / else statement chain.
type IfStmt struct {
	Clauses []*IfClause
	Else    *BlockExpr
	span    lexer.Span
}

// Span returns the statement span.
func (s *IfStmt) Span() lexer.Span { return s.span }

// SetSpan updates the statement span.
func (s *IfStmt) SetSpan(span lexer.Span) { s.span = span }

// NewIfStmt constructs an if statement node.
func NewIfStmt(clauses []*IfClause, elseBlock *BlockExpr, span lexer.Span) *IfStmt {
	return &IfStmt{Clauses: clauses, Else: elseBlock, span: span}
}

func (*IfStmt) stmtNode() {}

// UnlessStmt represents `unless cond ... else ... end`, the negated
// counterpart of if (keyword list).
type UnlessStmt struct {
	Condition Expr
	Body      *BlockExpr
	Else      *BlockExpr
	span      lexer.Span
}

// Span returns the statement span.
func (s *UnlessStmt) Span() lexer.Span { return s.span }

// SetSpan updates the unless statement span.
func (s *UnlessStmt) SetSpan(span lexer.Span) { s.span = span }

// NewUnlessStmt constructs an unless statement node.
func NewUnlessStmt(condition Expr, body, elseBlock *BlockExpr, span lexer.Span) *UnlessStmt {
	return &UnlessStmt{Condition: condition, Body: body, Else: elseBlock, span: span}
}

func (*UnlessStmt) stmtNode() {}

// WhileStmt represents a `while cond ... end` loop.
type WhileStmt struct {
	Condition Expr
	Body      *BlockExpr
	span      lexer.Span
}

// Span returns the statement span.
func (s *WhileStmt) Span() lexer.Span { return s.span }

// SetSpan updates the while statement span.
func (s *WhileStmt) SetSpan(span lexer.Span) { s.span = span }

// NewWhileStmt constructs a while loop node.
func NewWhileStmt(condition Expr, body *BlockExpr, span lexer.Span) *WhileStmt {
	return &WhileStmt{Condition: condition, Body: body, span: span}
}

func (*WhileStmt) stmtNode() {}

// UntilStmt represents an `until cond ... end` loop: the negated
// counterpart of while, looping while the condition is false.
type UntilStmt struct {
	Condition Expr
	Body      *BlockExpr
	span      lexer.Span
}

// Span returns the statement span.
func (s *UntilStmt) Span() lexer.Span { return s.span }

// SetSpan updates the until statement span.
func (s *UntilStmt) SetSpan(span lexer.Span) { s.span = span }

// NewUntilStmt constructs an until loop node.
func NewUntilStmt(condition Expr, body *BlockExpr, span lexer.Span) *UntilStmt {
	return &UntilStmt{Condition: condition, Body: body, span: span}
}

func (*UntilStmt) stmtNode() {}

// MatchArm represents a single match arm: `case Pattern [is Guard] body`,
// whose body runs up to the next `case` or the match's `end`. The guard is
// a variant path (a type test) or any Bool expression.
type MatchArm struct {
	Pattern Pattern
	Guard   Expr
	Body    *BlockExpr
	span    lexer.Span
}

// Span returns the arm span.
func (a *MatchArm) Span() lexer.Span { return a.span }

// SetSpan updates the arm span.
func (a *MatchArm) SetSpan(span lexer.Span) { a.span = span }

// NewMatchArm constructs a match arm node.
func NewMatchArm(pattern Pattern, guard Expr, body *BlockExpr, span lexer.Span) *MatchArm {
	return &MatchArm{Pattern: pattern, Guard: guard, Body: body, span: span}
}

// MatchExpr represents a match expression. Exhaustiveness over the
// subject's type is enforced by the type checker.
type MatchExpr struct {
	Subject Expr
	Arms    []*MatchArm
	span    lexer.Span
}

// Span returns the expression span.
func (e *MatchExpr) Span() lexer.Span { return e.span }

// SetSpan updates the expression span.
func (e *MatchExpr) SetSpan(span lexer.Span) { e.span = span }

// NewMatchExpr constructs a match expression node.
func NewMatchExpr(subject Expr, arms []*MatchArm, span lexer.Span) *MatchExpr {
	return &MatchExpr{Subject: subject, Arms: arms, span: span}
}

func (*MatchExpr) exprNode() {}

// Ident represents an identifier.
type Ident struct {
	Name string
	span lexer.Span
}

// Span returns the identifier span.
func (i *Ident) Span() lexer.Span { return i.span }

// SetSpan updates the identifier span.
func (i *Ident) SetSpan(span lexer.Span) { i.span = span }

// NewIdent constructs an identifier node.
func NewIdent(name string, span lexer.Span) *Ident {
	return &Ident{Name: name, span: span}
}

func (*Ident) exprNode() {}

// IntegerLit represents an integer literal.
type IntegerLit struct {
	Text string
	span lexer.Span
}

// Span returns the literal span.
func (l *IntegerLit) Span() lexer.Span { return l.span }

// SetSpan updates the literal span.
func (l *IntegerLit) SetSpan(span lexer.Span) { l.span = span }

// NewIntegerLit constructs an integer literal node.
func NewIntegerLit(text string, span lexer.Span) *IntegerLit {
	return &IntegerLit{Text: text, span: span}
}

func (*IntegerLit) exprNode() {}

// StringLit represents a plain double-quoted string literal.
type StringLit struct {
	Value string
	span  lexer.Span
}

// Span returns the literal span.
func (l *StringLit) Span() lexer.Span { return l.span }

// SetSpan updates the literal span.
func (l *StringLit) SetSpan(span lexer.Span) { l.span = span }

// NewStringLit constructs a string literal node.
func NewStringLit(value string, span lexer.Span) *StringLit {
	return &StringLit{Value: value, span: span}
}

func (*StringLit) exprNode() {}

// TemplateLit represents a backtick template string: an alternating
// sequence of literal fragments and interpolated expressions.
// len(Fragments) == len(Exprs)+1.
type TemplateLit struct {
	Fragments []string
	Exprs     []Expr
	span      lexer.Span
}

// Span returns the template literal span.
func (l *TemplateLit) Span() lexer.Span { return l.span }

// SetSpan updates the template literal span.
func (l *TemplateLit) SetSpan(span lexer.Span) { l.span = span }

// NewTemplateLit constructs a template literal node.
func NewTemplateLit(fragments []string, exprs []Expr, span lexer.Span) *TemplateLit {
	return &TemplateLit{Fragments: fragments, Exprs: exprs, span: span}
}

func (*TemplateLit) exprNode() {}

// BoolLit represents a boolean literal.
type BoolLit struct {
	Value bool
	span  lexer.Span
}

// Span returns the literal span.
func (l *BoolLit) Span() lexer.Span { return l.span }

// SetSpan updates the literal span.
func (l *BoolLit) SetSpan(span lexer.Span) { l.span = span }

// NewBoolLit constructs a boolean literal node.
func NewBoolLit(value bool, span lexer.Span) *BoolLit {
	return &BoolLit{Value: value, span: span}
}

func (*BoolLit) exprNode() {}

// FloatLit represents a floating-point literal.
type FloatLit struct {
	Text string
	span lexer.Span
}

// Span returns the literal span.
func (l *FloatLit) Span() lexer.Span { return l.span }

// SetSpan updates the literal span.
func (l *FloatLit) SetSpan(span lexer.Span) { l.span = span }

// NewFloatLit constructs a float literal node.
func NewFloatLit(text string, span lexer.Span) *FloatLit {
	return &FloatLit{Text: text, span: span}
}

func (*FloatLit) exprNode() {}

// NilLit represents the nil literal.
type NilLit struct {
	span lexer.Span
}

// Span returns the literal span.
func (l *NilLit) Span() lexer.Span { return l.span }

// SetSpan updates the literal span.
func (l *NilLit) SetSpan(span lexer.Span) { l.span = span }

// NewNilLit constructs a nil literal node.
func NewNilLit(span lexer.Span) *NilLit {
	return &NilLit{span: span}
}

func (*NilLit) exprNode() {}

// ListLiteral represents a list literal (`[1, 2, 3]`).
type ListLiteral struct {
	Type     TypeExpr // Optional explicit element type, for an empty literal
	Elements []Expr
	span     lexer.Span
}

// Span returns the literal span.
func (a *ListLiteral) Span() lexer.Span { return a.span }

// SetSpan updates the literal span.
func (a *ListLiteral) SetSpan(span lexer.Span) { a.span = span }

// NewListLiteral constructs a list literal node.
func NewListLiteral(elements []Expr, span lexer.Span) *ListLiteral {
	return &ListLiteral{Elements: elements, span: span}
}

// NewTypedListLiteral constructs a list literal node with an explicit
// element type (needed for an empty literal, whose type can't be inferred
// from its elements).
func NewTypedListLiteral(typ TypeExpr, elements []Expr, span lexer.Span) *ListLiteral {
	return &ListLiteral{Type: typ, Elements: elements, span: span}
}

func (*ListLiteral) exprNode() {}

// DictEntry represents a key-value pair in a dict literal.
type DictEntry struct {
	Key   Expr
	Value Expr
	span  lexer.Span
}

// Span returns the entry span.
func (e *DictEntry) Span() lexer.Span { return e.span }

// SetSpan updates the entry span.
func (e *DictEntry) SetSpan(span lexer.Span) { e.span = span }

// NewDictEntry constructs a dict literal entry node.
func NewDictEntry(key Expr, value Expr, span lexer.Span) *DictEntry {
	return &DictEntry{Key: key, Value: value, span: span}
}

// DictLiteral represents a dict literal (`{"k": v}`, or the `{symbol:
// value}` sugar for Dict[String,V] keys).
type DictLiteral struct {
	Entries []*DictEntry
	span    lexer.Span
}

// Span returns the literal span.
func (m *DictLiteral) Span() lexer.Span { return m.span }

// SetSpan updates the literal span.
func (m *DictLiteral) SetSpan(span lexer.Span) { m.span = span }

// NewDictLiteral constructs a dict literal node.
func NewDictLiteral(entries []*DictEntry, span lexer.Span) *DictLiteral {
	return &DictLiteral{Entries: entries, span: span}
}

func (*DictLiteral) exprNode() {}

// PrefixExpr represents a prefix expression (`-x`, `not x`, `!x`).
type PrefixExpr struct {
	Op   lexer.TokenType
	Expr Expr
	span lexer.Span
}

// Span returns the expression span.
func (e *PrefixExpr) Span() lexer.Span { return e.span }

// SetSpan updates the prefix expression span.
func (e *PrefixExpr) SetSpan(span lexer.Span) { e.span = span }

// NewPrefixExpr constructs a prefix expression node.
func NewPrefixExpr(op lexer.TokenType, expr Expr, span lexer.Span) *PrefixExpr {
	return &PrefixExpr{Op: op, Expr: expr, span: span}
}

func (*PrefixExpr) exprNode() {}

// PostfixExpr represents a postfix expression, currently only `!`
// force-unwrap of an Optional.
type PostfixExpr struct {
	Op   lexer.TokenType
	Expr Expr
	span lexer.Span
}

// Span returns the expression span.
func (e *PostfixExpr) Span() lexer.Span { return e.span }

// SetSpan updates the postfix expression span.
func (e *PostfixExpr) SetSpan(span lexer.Span) { e.span = span }

// NewPostfixExpr constructs a postfix expression node.
func NewPostfixExpr(op lexer.TokenType, expr Expr, span lexer.Span) *PostfixExpr {
	return &PostfixExpr{Op: op, Expr: expr, span: span}
}

func (*PostfixExpr) exprNode() {}

// InfixExpr represents an infix binary expression.
type InfixExpr struct {
	Op    lexer.TokenType
	Left  Expr
	Right Expr
	span  lexer.Span
}

// Span returns the expression span.
func (e *InfixExpr) Span() lexer.Span { return e.span }

// SetSpan updates the infix expression span.
func (e *InfixExpr) SetSpan(span lexer.Span) { e.span = span }

// NewInfixExpr constructs a binary expression node.
func NewInfixExpr(op lexer.TokenType, left, right Expr, span lexer.Span) *InfixExpr {
	return &InfixExpr{Op: op, Left: left, Right: right, span: span}
}

func (*InfixExpr) exprNode() {}

// CoalesceExpr represents nil-coalescing (`left ?? right`).
type CoalesceExpr struct {
	Left  Expr
	Right Expr
	span  lexer.Span
}

// Span returns the expression span.
func (e *CoalesceExpr) Span() lexer.Span { return e.span }

// SetSpan updates the expression span.
func (e *CoalesceExpr) SetSpan(span lexer.Span) { e.span = span }

// NewCoalesceExpr constructs a nil-coalescing expression node.
func NewCoalesceExpr(left, right Expr, span lexer.Span) *CoalesceExpr {
	return &CoalesceExpr{Left: left, Right: right, span: span}
}

func (*CoalesceExpr) exprNode() {}

// AssignExpr represents an assignment expression: right-associative,
// and a function literal binds tighter than it.
type AssignExpr struct {
	Target Expr
	Value  Expr
	span   lexer.Span
}

// Span returns the expression span.
func (e *AssignExpr) Span() lexer.Span { return e.span }

// SetSpan updates the assignment expression span.
func (e *AssignExpr) SetSpan(span lexer.Span) { e.span = span }

// NewAssignExpr constructs an assignment expression node.
func NewAssignExpr(target, value Expr, span lexer.Span) *AssignExpr {
	return &AssignExpr{Target: target, Value: value, span: span}
}

func (*AssignExpr) exprNode() {}

// CallExpr represents a function call.
type CallExpr struct {
	Callee Expr
	Args   []Expr
	span   lexer.Span
}

// Span returns the expression span.
func (e *CallExpr) Span() lexer.Span { return e.span }

// SetSpan updates the call expression span.
func (e *CallExpr) SetSpan(span lexer.Span) { e.span = span }

// NewCallExpr constructs a call expression node.
func NewCallExpr(callee Expr, args []Expr, span lexer.Span) *CallExpr {
	return &CallExpr{Callee: callee, Args: args, span: span}
}

func (*CallExpr) exprNode() {}

// CatchExpr represents `expr catch err ... end`: a call to a
// potentially-throwing function handled inline.
type CatchExpr struct {
	Target  Expr
	ErrName *Ident
	Body    *BlockExpr
	span    lexer.Span
}

// Span returns the expression span.
func (e *CatchExpr) Span() lexer.Span { return e.span }

// SetSpan updates the catch expression span.
func (e *CatchExpr) SetSpan(span lexer.Span) { e.span = span }

// NewCatchExpr constructs a catch expression node.
func NewCatchExpr(target Expr, errName *Ident, body *BlockExpr, span lexer.Span) *CatchExpr {
	return &CatchExpr{Target: target, ErrName: errName, Body: body, span: span}
}

func (*CatchExpr) exprNode() {}

// FunctionLiteral represents a lambda: `|params| => body`.
type FunctionLiteral struct {
	Params []*Param
	Body   Expr
	span   lexer.Span
}

// Span returns the expression span.
func (e *FunctionLiteral) Span() lexer.Span { return e.span }

// SetSpan updates the function literal span.
func (e *FunctionLiteral) SetSpan(span lexer.Span) { e.span = span }

// NewFunctionLiteral constructs a function literal node.
func NewFunctionLiteral(params []*Param, body Expr, span lexer.Span) *FunctionLiteral {
	return &FunctionLiteral{Params: params, Body: body, span: span}
}

func (*FunctionLiteral) exprNode() {}

// FieldExpr represents a field access expression (`target.field`).
type FieldExpr struct {
	Target Expr
	Field  *Ident
	span   lexer.Span
}

// Span returns the expression span.
func (e *FieldExpr) Span() lexer.Span { return e.span }

// SetSpan updates the field expression span.
func (e *FieldExpr) SetSpan(span lexer.Span) { e.span = span }

// NewFieldExpr constructs a field access expression node.
func NewFieldExpr(target Expr, field *Ident, span lexer.Span) *FieldExpr {
	return &FieldExpr{Target: target, Field: field, span: span}
}

func (*FieldExpr) exprNode() {}

// IndexExpr represents an indexing operation (`target[index]`), where
// index may be a RangeExpr for a slice.
type IndexExpr struct {
	Target Expr
	Index  Expr
	span   lexer.Span
}

// Span returns the expression span.
func (e *IndexExpr) Span() lexer.Span { return e.span }

// SetSpan updates the index expression span.
func (e *IndexExpr) SetSpan(span lexer.Span) { e.span = span }

// NewIndexExpr constructs an index expression node.
func NewIndexExpr(target Expr, index Expr, span lexer.Span) *IndexExpr {
	return &IndexExpr{Target: target, Index: index, span: span}
}

func (*IndexExpr) exprNode() {}

// NamedType represents a named type reference (`Int`, `MyStruct`).
type NamedType struct {
	Name *Ident
	span lexer.Span
}

// Span returns the type span.
func (t *NamedType) Span() lexer.Span { return t.span }

// SetSpan updates the named type span.
func (t *NamedType) SetSpan(span lexer.Span) { t.span = span }

// NewNamedType constructs a named type node.
func NewNamedType(name *Ident, span lexer.Span) *NamedType {
	return &NamedType{Name: name, span: span}
}

func (*NamedType) typeNode() {}

// GenericType represents a generic type application, covering both
// user generics (`Box[Int]`) and the builtin `List[T]`/`Dict[K,V]`.
type GenericType struct {
	Base TypeExpr
	Args []TypeExpr
	span lexer.Span
}

// Span returns the generic type span.
func (t *GenericType) Span() lexer.Span { return t.span }

// SetSpan updates the generic type span.
func (t *GenericType) SetSpan(span lexer.Span) { t.span = span }

// NewGenericType constructs a generic type node.
func NewGenericType(base TypeExpr, args []TypeExpr, span lexer.Span) *GenericType {
	return &GenericType{Base: base, Args: args, span: span}
}

func (*GenericType) typeNode() {}

// OptionalType represents `T?`, the Optional(Type) variant.
type OptionalType struct {
	Inner TypeExpr
	span  lexer.Span
}

// Span returns the optional type span.
func (t *OptionalType) Span() lexer.Span { return t.span }

// SetSpan updates the optional type span.
func (t *OptionalType) SetSpan(span lexer.Span) { t.span = span }

// NewOptionalType constructs an optional type node.
func NewOptionalType(inner TypeExpr, span lexer.Span) *OptionalType {
	return &OptionalType{Inner: inner, span: span}
}

func (*OptionalType) typeNode() {}

// FunctionType represents a function type annotation: `(A, B) -> C ! E1, E2`.
type FunctionType struct {
	Params []TypeExpr
	Return TypeExpr
	Throws []TypeExpr
	span   lexer.Span
}

// Span returns the function type span.
func (t *FunctionType) Span() lexer.Span { return t.span }

// SetSpan updates the function type span.
func (t *FunctionType) SetSpan(span lexer.Span) { t.span = span }

// NewFunctionType constructs a function type node.
func NewFunctionType(params []TypeExpr, ret TypeExpr, throws []TypeExpr, span lexer.Span) *FunctionType {
	return &FunctionType{Params: params, Return: ret, Throws: throws, span: span}
}

func (*FunctionType) typeNode() {}

// StructLiteralField represents a field assignment in a struct literal.
type StructLiteralField struct {
	Name  *Ident
	Value Expr
	span  lexer.Span
}

// Span returns the field span.
func (f *StructLiteralField) Span() lexer.Span { return f.span }

// SetSpan updates the field span.
func (f *StructLiteralField) SetSpan(span lexer.Span) { f.span = span }

// NewStructLiteralField constructs a struct literal field node.
func NewStructLiteralField(name *Ident, value Expr, span lexer.Span) *StructLiteralField {
	return &StructLiteralField{Name: name, Value: value, span: span}
}

// StructLiteral represents a struct instantiation. Name may be an
// *Ident or a *GenericType-shaped expression when type arguments are
// given explicitly (`Box[Int]{ value: 1 }`).
type StructLiteral struct {
	Name   Expr
	Fields []*StructLiteralField
	span   lexer.Span
}

// Span returns the literal span.
func (l *StructLiteral) Span() lexer.Span { return l.span }

// SetSpan updates the literal span.
func (l *StructLiteral) SetSpan(span lexer.Span) { l.span = span }

// NewStructLiteral constructs a struct literal node.
func NewStructLiteral(name Expr, fields []*StructLiteralField, span lexer.Span) *StructLiteral {
	return &StructLiteral{Name: name, Fields: fields, span: span}
}

func (*StructLiteral) exprNode() {}
