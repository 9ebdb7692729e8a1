package ast

import "github.com/sarn-lang/sarn/internal/lexer"

// Pattern represents a match pattern node (`match`/`case`
// arms, required to be exhaustive over the matched type).
type Pattern interface {
	Node
	patternNode()
}

// PatternWild represents the `_` catch-all arm.
type PatternWild struct {
	span lexer.Span
}

// NewPatternWild constructs a wildcard pattern.
func NewPatternWild(span lexer.Span) *PatternWild {
	return &PatternWild{span: span}
}

// Span returns the wildcard span.
func (p *PatternWild) Span() lexer.Span { return p.span }

// SetSpan updates the wildcard span.
func (p *PatternWild) SetSpan(span lexer.Span) { p.span = span }

func (*PatternWild) patternNode() {}

// PatternIdent represents a plain binding (`x`).
type PatternIdent struct {
	Name *Ident
	span lexer.Span
}

// NewPatternIdent constructs an identifier pattern.
func NewPatternIdent(name *Ident, span lexer.Span) *PatternIdent {
	return &PatternIdent{Name: name, span: span}
}

// Span returns the identifier span.
func (p *PatternIdent) Span() lexer.Span { return p.span }

// SetSpan updates the identifier span.
func (p *PatternIdent) SetSpan(span lexer.Span) { p.span = span }

func (*PatternIdent) patternNode() {}

// PatternPath represents an enum/error variant path (`Option.Some`).
type PatternPath struct {
	Segments []*Ident
	span     lexer.Span
}

// NewPatternPath constructs a path pattern.
func NewPatternPath(segments []*Ident, span lexer.Span) *PatternPath {
	return &PatternPath{Segments: segments, span: span}
}

// Span returns the path span.
func (p *PatternPath) Span() lexer.Span { return p.span }

// SetSpan updates the path span.
func (p *PatternPath) SetSpan(span lexer.Span) { p.span = span }

func (*PatternPath) patternNode() {}

// PatternLiteral matches a literal value (Int/Float/String/Bool/Nil).
type PatternLiteral struct {
	Expr Expr
	span lexer.Span
}

// NewPatternLiteral constructs a literal pattern wrapping a literal expression.
func NewPatternLiteral(expr Expr, span lexer.Span) *PatternLiteral {
	return &PatternLiteral{Expr: expr, span: span}
}

// Span returns the literal pattern span.
func (p *PatternLiteral) Span() lexer.Span { return p.span }

// SetSpan updates the literal pattern span.
func (p *PatternLiteral) SetSpan(span lexer.Span) { p.span = span }

func (*PatternLiteral) patternNode() {}

// PatternRange matches an Int/Float/String falling within [Start, End)
// or [Start, End] depending on Inclusive (range tokens).
type PatternRange struct {
	Start     Expr
	End       Expr
	Inclusive bool
	span      lexer.Span
}

// NewPatternRange constructs a range pattern.
func NewPatternRange(start Expr, end Expr, inclusive bool, span lexer.Span) *PatternRange {
	return &PatternRange{Start: start, End: end, Inclusive: inclusive, span: span}
}

// Span returns the range span.
func (p *PatternRange) Span() lexer.Span { return p.span }

// SetSpan updates the range span.
func (p *PatternRange) SetSpan(span lexer.Span) { p.span = span }

func (*PatternRange) patternNode() {}

// PatternStructField represents a single field pattern within a
// PatternStruct (`name: pattern`, or the shorthand `name`).
type PatternStructField struct {
	Name      *Ident
	Pattern   Pattern
	Shorthand bool
	span      lexer.Span
}

// NewPatternStructField constructs a struct field pattern.
func NewPatternStructField(name *Ident, pat Pattern, shorthand bool, span lexer.Span) *PatternStructField {
	return &PatternStructField{Name: name, Pattern: pat, Shorthand: shorthand, span: span}
}

// Span returns the struct field span.
func (f *PatternStructField) Span() lexer.Span { return f.span }

// SetSpan updates the struct field span.
func (f *PatternStructField) SetSpan(span lexer.Span) { f.span = span }

// PatternStruct destructures a struct value field-by-field.
type PatternStruct struct {
	Name     *Ident
	Fields   []*PatternStructField
	HasRest  bool
	RestSpan lexer.Span
	span     lexer.Span
}

// NewPatternStruct constructs a struct pattern.
func NewPatternStruct(name *Ident, fields []*PatternStructField, hasRest bool, restSpan lexer.Span, span lexer.Span) *PatternStruct {
	return &PatternStruct{Name: name, Fields: fields, HasRest: hasRest, RestSpan: restSpan, span: span}
}

// Span returns the struct pattern span.
func (p *PatternStruct) Span() lexer.Span { return p.span }

// SetSpan updates the struct pattern span.
func (p *PatternStruct) SetSpan(span lexer.Span) { p.span = span }

func (*PatternStruct) patternNode() {}

// PatternEnum matches an enum or error variant, destructuring its
// positional payload (`Option.Some(x)`, `Shape.Circle(r)`).
type PatternEnum struct {
	Path     *PatternPath
	Elements []Pattern
	span     lexer.Span
}

// NewPatternEnum constructs an enum/error variant pattern.
func NewPatternEnum(path *PatternPath, elements []Pattern, span lexer.Span) *PatternEnum {
	return &PatternEnum{Path: path, Elements: elements, span: span}
}

// Span returns the enum pattern span.
func (p *PatternEnum) Span() lexer.Span { return p.span }

// SetSpan updates the enum pattern span.
func (p *PatternEnum) SetSpan(span lexer.Span) { p.span = span }

func (*PatternEnum) patternNode() {}

// PatternRest represents the `..` rest marker inside a slice or struct
// pattern, optionally binding the remainder.
type PatternRest struct {
	Binding Pattern
	span    lexer.Span
}

// NewPatternRest constructs a rest pattern.
func NewPatternRest(binding Pattern, span lexer.Span) *PatternRest {
	return &PatternRest{Binding: binding, span: span}
}

// Span returns the rest span.
func (p *PatternRest) Span() lexer.Span { return p.span }

// SetSpan updates the rest span.
func (p *PatternRest) SetSpan(span lexer.Span) { p.span = span }

func (*PatternRest) patternNode() {}

// PatternSlice matches a List value element-by-element (`[head, ..tail]`).
type PatternSlice struct {
	Elements []Pattern
	span     lexer.Span
}

// NewPatternSlice constructs a slice pattern.
func NewPatternSlice(elements []Pattern, span lexer.Span) *PatternSlice {
	return &PatternSlice{Elements: elements, span: span}
}

// Span returns the slice pattern span.
func (p *PatternSlice) Span() lexer.Span { return p.span }

// SetSpan updates the slice pattern span.
func (p *PatternSlice) SetSpan(span lexer.Span) { p.span = span }

func (*PatternSlice) patternNode() {}

// PatternOr represents alternation (`p1 | p2`): the arm matches if any
// alternative matches.
type PatternOr struct {
	Patterns []Pattern
	span     lexer.Span
}

// NewPatternOr constructs an alternation pattern.
func NewPatternOr(patterns []Pattern, span lexer.Span) *PatternOr {
	return &PatternOr{Patterns: patterns, span: span}
}

// Span returns the alternation span.
func (p *PatternOr) Span() lexer.Span { return p.span }

// SetSpan updates the alternation span.
func (p *PatternOr) SetSpan(span lexer.Span) { p.span = span }

func (*PatternOr) patternNode() {}

// PatternParen represents a parenthesized pattern, used only for grouping.
type PatternParen struct {
	Pattern Pattern
	span    lexer.Span
}

// NewPatternParen constructs a parenthesized pattern.
func NewPatternParen(pat Pattern, span lexer.Span) *PatternParen {
	return &PatternParen{Pattern: pat, span: span}
}

// Span returns the parenthesized pattern span.
func (p *PatternParen) Span() lexer.Span { return p.span }

// SetSpan updates the parenthesized pattern span.
func (p *PatternParen) SetSpan(span lexer.Span) { p.span = span }

func (*PatternParen) patternNode() {}
