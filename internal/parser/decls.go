package parser

import (
	"github.com/sarn-lang/sarn/internal/ast"
	"github.com/sarn-lang/sarn/internal/lexer"
)

// parseUseDecl parses `use alias = "path"`. Called only while
// curTok == USE, at the head of the file where every use must precede decls.
func (p *Parser) parseUseDecl() *ast.UseDecl {
	start := p.curTok.Span

	if !p.expect(lexer.IDENT) {
		return nil
	}
	alias := ast.NewIdent(p.curTok.Raw, p.curTok.Span)

	if !p.expect(lexer.ASSIGN) {
		return nil
	}
	if !p.expect(lexer.STRING) {
		return nil
	}
	path := ast.NewStringLit(p.curTok.Value, p.curTok.Span)

	use := ast.NewUseDecl(alias, path, mergeSpan(start, p.curTok.Span))
	p.nextToken() // move past the path string, to the next decl/use
	return use
}

// parseDecl dispatches a single top-level declaration.
func (p *Parser) parseDecl() ast.Decl {
	isPub := false
	if p.curTok.Type == lexer.PUB {
		isPub = true
		p.nextToken()
	}

	switch p.curTok.Type {
	case lexer.DEF:
		if d := p.parseFnDecl(isPub); d != nil {
			return d
		}
		return nil
	case lexer.STRUCT:
		if d := p.parseStructDecl(isPub); d != nil {
			return d
		}
		return nil
	case lexer.ENUM:
		if d := p.parseEnumDecl(isPub); d != nil {
			return d
		}
		return nil
	case lexer.ERROR:
		if d := p.parseErrorDecl(isPub); d != nil {
			return d
		}
		return nil
	case lexer.CONST:
		if d := p.parseConstDecl(isPub); d != nil {
			return d
		}
		return nil
	case lexer.TEST:
		if isPub {
			p.reportError("'test' declarations cannot be 'pub'", p.curTok.Span)
		}
		if d := p.parseTestDecl(); d != nil {
			return d
		}
		return nil
	default:
		p.reportError("expected a declaration ('def', 'struct', 'enum', 'error', 'const', or 'test')", p.curTok.Span)
		return nil
	}
}

// parseOptionalTypeParams parses an optional `[T, U]` type-parameter list.
func (p *Parser) parseOptionalTypeParams() []*ast.TypeParam {
	if p.peekTok.Type != lexer.LBRACKET {
		return nil
	}
	p.nextToken() // move to '['
	p.nextToken() // move to first type param

	res, ok := parseDelimited[*ast.TypeParam](p, delimitedConfig{
		Closing:             lexer.RBRACKET,
		Separator:           lexer.COMMA,
		MissingElementMsg:   "expected type parameter",
		MissingSeparatorMsg: "expected ',' or ']' in type parameter list",
	}, func(int) (*ast.TypeParam, bool) {
		if p.curTok.Type != lexer.IDENT {
			return nil, false
		}
		name := ast.NewIdent(p.curTok.Raw, p.curTok.Span)
		return ast.NewTypeParam(name, name.Span()), true
	})
	if !ok {
		return nil
	}
	return res.Items
}

// parseParamList parses a parenthesized, fully-annotated parameter list.
func (p *Parser) parseParamList() ([]*ast.Param, bool) {
	if !p.expect(lexer.LPAREN) {
		return nil, false
	}

	var params []*ast.Param
	if p.peekTok.Type == lexer.RPAREN {
		p.nextToken()
		return params, true
	}

	p.nextToken()
	res, ok := parseDelimited[*ast.Param](p, delimitedConfig{
		Closing:             lexer.RPAREN,
		Separator:           lexer.COMMA,
		MissingElementMsg:   "expected parameter",
		MissingSeparatorMsg: "expected ',' or ')' in parameter list",
	}, func(int) (*ast.Param, bool) {
		return p.parseParam()
	})
	if !ok {
		return nil, false
	}
	return res.Items, true
}

// parseThrowsClause parses the optional `! E1, E2` trailing a return type.
func (p *Parser) parseThrowsClause() []ast.TypeExpr {
	if p.peekTok.Type != lexer.BANG {
		return nil
	}
	p.nextToken() // move to '!'
	p.nextToken() // move to first error type

	var throws []ast.TypeExpr
	for {
		t := p.parseType()
		if t == nil {
			return throws
		}
		throws = append(throws, t)

		if p.peekTok.Type == lexer.COMMA {
			p.nextToken()
			p.nextToken()
			continue
		}
		break
	}
	return throws
}

// parseFnDecl parses `def name(params) -> ret ! E1, E2 ... end`.
func (p *Parser) parseFnDecl(isPub bool) *ast.FnDecl {
	start := p.curTok.Span

	if !p.expect(lexer.IDENT) {
		return nil
	}
	name := ast.NewIdent(p.curTok.Raw, p.curTok.Span)

	typeParams := p.parseOptionalTypeParams()

	params, ok := p.parseParamList()
	if !ok {
		return nil
	}

	var retType ast.TypeExpr
	if p.peekTok.Type == lexer.ARROW {
		p.nextToken() // move to '->'
		p.nextToken() // move to return type start
		retType = p.parseType()
		if retType == nil {
			return nil
		}
	}

	throws := p.parseThrowsClause()

	body := p.parseKeywordBlock()
	if body == nil {
		return nil
	}

	return ast.NewFnDecl(isPub, name, typeParams, params, retType, throws, body, mergeSpan(start, body.Span()))
}

func (p *Parser) parseStructDecl(isPub bool) *ast.StructDecl {
	start := p.curTok.Span

	if !p.expect(lexer.IDENT) {
		return nil
	}
	name := ast.NewIdent(p.curTok.Raw, p.curTok.Span)

	typeParams := p.parseOptionalTypeParams()

	if !p.expect(lexer.LBRACE) {
		return nil
	}

	var fields []*ast.StructField
	if p.peekTok.Type != lexer.RBRACE {
		p.nextToken()
		res, ok := parseDelimited[*ast.StructField](p, delimitedConfig{
			Closing:             lexer.RBRACE,
			Separator:           lexer.COMMA,
			MissingElementMsg:   "expected struct field",
			MissingSeparatorMsg: "expected ',' or '}' in struct body",
		}, func(int) (*ast.StructField, bool) {
			if p.curTok.Type != lexer.IDENT {
				return nil, false
			}
			fname := ast.NewIdent(p.curTok.Raw, p.curTok.Span)
			if !p.expect(lexer.COLON) {
				return nil, false
			}
			p.nextToken()
			ftype := p.parseType()
			if ftype == nil {
				return nil, false
			}
			return ast.NewStructField(fname, ftype, mergeSpan(fname.Span(), ftype.Span())), true
		})
		if !ok {
			return nil
		}
		fields = res.Items
	} else {
		p.nextToken()
	}

	return ast.NewStructDecl(isPub, name, typeParams, fields, mergeSpan(start, p.curTok.Span))
}

// parseVariantList parses the shared `{ Variant, Variant(T, U) }` body used
// by both enum and error declarations.
func (p *Parser) parseVariantList() ([]*ast.EnumVariant, bool) {
	if !p.expect(lexer.LBRACE) {
		return nil, false
	}

	var variants []*ast.EnumVariant
	if p.peekTok.Type != lexer.RBRACE {
		p.nextToken()
		res, ok := parseDelimited[*ast.EnumVariant](p, delimitedConfig{
			Closing:             lexer.RBRACE,
			Separator:           lexer.COMMA,
			MissingElementMsg:   "expected variant",
			MissingSeparatorMsg: "expected ',' or '}' in variant list",
		}, func(int) (*ast.EnumVariant, bool) {
			return p.parseEnumVariant()
		})
		if !ok {
			return nil, false
		}
		variants = res.Items
	} else {
		p.nextToken()
	}

	return variants, true
}

func (p *Parser) parseEnumVariant() (*ast.EnumVariant, bool) {
	if p.curTok.Type != lexer.IDENT {
		return nil, false
	}
	name := ast.NewIdent(p.curTok.Raw, p.curTok.Span)

	if p.peekTok.Type != lexer.LPAREN {
		return ast.NewEnumVariant(name, nil, name.Span()), true
	}

	p.nextToken() // move to '('

	type payloadSlot struct {
		name string
		typ  ast.TypeExpr
	}
	var slots []payloadSlot
	if p.peekTok.Type != lexer.RPAREN {
		p.nextToken()
		res, ok := parseDelimited[payloadSlot](p, delimitedConfig{
			Closing:             lexer.RPAREN,
			Separator:           lexer.COMMA,
			MissingElementMsg:   "expected type expression in variant payload",
			MissingSeparatorMsg: "expected ',' or ')' in variant payload",
		}, func(int) (payloadSlot, bool) {
			// A payload slot is either a bare type or `name: Type`.
			var slot payloadSlot
			if p.curTok.Type == lexer.IDENT && p.peekTok.Type == lexer.COLON {
				slot.name = p.curTok.Raw
				p.nextToken() // move to ':'
				p.nextToken() // move to the type
			}
			t := p.parseType()
			if t == nil {
				return slot, false
			}
			slot.typ = t
			return slot, true
		})
		if !ok {
			return nil, false
		}
		slots = res.Items
	} else {
		p.nextToken()
	}

	var payloads []ast.TypeExpr
	var names []string
	for _, slot := range slots {
		payloads = append(payloads, slot.typ)
		names = append(names, slot.name)
	}
	variant := ast.NewEnumVariant(name, payloads, mergeSpan(name.Span(), p.curTok.Span))
	variant.PayloadNames = names
	return variant, true
}

func (p *Parser) parseEnumDecl(isPub bool) *ast.EnumDecl {
	start := p.curTok.Span

	if !p.expect(lexer.IDENT) {
		return nil
	}
	name := ast.NewIdent(p.curTok.Raw, p.curTok.Span)

	typeParams := p.parseOptionalTypeParams()

	variants, ok := p.parseVariantList()
	if !ok {
		return nil
	}

	return ast.NewEnumDecl(isPub, name, typeParams, variants, mergeSpan(start, p.curTok.Span))
}

// parseErrorDecl parses `error Name { Variant, Variant(fields) }`:
// a nominal error sum, shaped identically to an enum but with no generics
// and checked against `! E1, E2` throws clauses instead of match subjects.
func (p *Parser) parseErrorDecl(isPub bool) *ast.ErrorDecl {
	start := p.curTok.Span

	if !p.expect(lexer.IDENT) {
		return nil
	}
	name := ast.NewIdent(p.curTok.Raw, p.curTok.Span)

	variants, ok := p.parseVariantList()
	if !ok {
		return nil
	}

	return ast.NewErrorDecl(isPub, name, variants, mergeSpan(start, p.curTok.Span))
}

func (p *Parser) parseConstDecl(isPub bool) *ast.ConstDecl {
	start := p.curTok.Span

	if !p.expect(lexer.IDENT) {
		return nil
	}
	name := ast.NewIdent(p.curTok.Raw, p.curTok.Span)

	var typ ast.TypeExpr
	if p.peekTok.Type == lexer.COLON {
		p.nextToken()
		p.nextToken()
		typ = p.parseType()
		if typ == nil {
			return nil
		}
	}

	if !p.expect(lexer.ASSIGN) {
		return nil
	}
	p.nextToken()

	value := p.parseExpr(precedenceLowest)
	if value == nil {
		return nil
	}

	decl := ast.NewConstDecl(isPub, name, typ, value, mergeSpan(start, value.Span()))
	p.nextToken()
	return decl
}

// parseTestDecl parses `test "name" ... end` (inline test blocks).
func (p *Parser) parseTestDecl() *ast.TestDecl {
	start := p.curTok.Span

	if !p.expect(lexer.STRING) {
		return nil
	}
	name := ast.NewStringLit(p.curTok.Value, p.curTok.Span)

	body := p.parseKeywordBlock()
	if body == nil {
		return nil
	}

	return ast.NewTestDecl(name, body, mergeSpan(start, body.Span()))
}
