package parser

import (
	"github.com/sarn-lang/sarn/internal/ast"
	"github.com/sarn-lang/sarn/internal/lexer"
)

// parseExpr parses an expression at or above the given precedence, following
// the usual Pratt/precedence-climbing shape: a prefix parse produces the
// left operand, then infix parse functions fold in everything that binds
// at least as tightly as precedence.
func (p *Parser) parseExpr(precedence int) ast.Expr {
	prefix, ok := p.prefixFns[p.curTok.Type]
	if !ok {
		p.reportError("unexpected token '"+string(p.curTok.Type)+"' in expression", p.curTok.Span)
		return nil
	}

	left := prefix()
	if left == nil {
		return nil
	}

	for p.peekTok.Type != lexer.EOF && precedence < p.peekPrecedence() {
		infix, ok := p.infixFns[p.peekTok.Type]
		if !ok {
			return left
		}

		p.nextToken()
		left = infix(left)
		if left == nil {
			return nil
		}
	}

	return left
}

func (p *Parser) parseIdentifier() ast.Expr {
	tok := p.curTok
	ident := ast.NewIdent(tok.Raw, tok.Span)

	if !p.restrictStructLiteral && p.peekTok.Type == lexer.LBRACE {
		return p.parseStructLiteral(ident)
	}

	return ident
}

func (p *Parser) parseIntegerLiteral() ast.Expr {
	tok := p.curTok
	return ast.NewIntegerLit(tok.Raw, tok.Span)
}

func (p *Parser) parseFloatLiteral() ast.Expr {
	tok := p.curTok
	return ast.NewFloatLit(tok.Raw, tok.Span)
}

func (p *Parser) parseStringLiteral() ast.Expr {
	tok := p.curTok
	return ast.NewStringLit(tok.Value, tok.Span)
}

func (p *Parser) parseBoolLiteral() ast.Expr {
	tok := p.curTok
	return ast.NewBoolLit(tok.Type == lexer.TRUE, tok.Span)
}

func (p *Parser) parseNilLiteral() ast.Expr {
	return ast.NewNilLit(p.curTok.Span)
}

// parseTemplateLiteral consumes a full backtick template: the opening
// backtick, alternating TEMPLATE_FRAGMENT/INTERP_START-expr-INTERP_END
// runs, and the closing backtick, delegating interpolated-expression
// parsing back to parseExpr.
func (p *Parser) parseTemplateLiteral() ast.Expr {
	start := p.curTok.Span

	var fragments []string
	var exprs []ast.Expr

	p.nextToken() // move past opening backtick

	for {
		switch p.curTok.Type {
		case lexer.TEMPLATE_FRAGMENT:
			fragments = append(fragments, p.curTok.Value)
			p.nextToken()
		case lexer.INTERP_START:
			if len(fragments) == len(exprs) {
				fragments = append(fragments, "")
			}
			p.nextToken() // move to expr start
			expr := p.parseExpr(precedenceLowest)
			if expr == nil {
				return nil
			}
			exprs = append(exprs, expr)
			if !p.expect(lexer.INTERP_END) {
				return nil
			}
			p.nextToken()
		case lexer.BACKTICK:
			if len(fragments) == len(exprs) {
				fragments = append(fragments, "")
			}
			span := mergeSpan(start, p.curTok.Span)
			return ast.NewTemplateLit(fragments, exprs, span)
		default:
			p.reportError("unterminated template literal", p.curTok.Span)
			return nil
		}
	}
}

func (p *Parser) parsePrefixExpr() ast.Expr {
	op := p.curTok.Type
	start := p.curTok.Span

	p.nextToken()

	right := p.parseExpr(precedencePrefix)
	if right == nil {
		return nil
	}

	return ast.NewPrefixExpr(op, right, mergeSpan(start, right.Span()))
}

// parsePostfixExpr handles the postfix force-unwrap `!`, registered as an
// infix function that consumes no right-hand operand.
func (p *Parser) parsePostfixExpr(left ast.Expr) ast.Expr {
	span := mergeSpan(left.Span(), p.curTok.Span)
	return ast.NewPostfixExpr(lexer.BANG, left, span)
}

func (p *Parser) parseGroupedExpr() ast.Expr {
	start := p.curTok.Span
	p.nextToken()

	expr := p.parseExpr(precedenceLowest)
	if expr == nil {
		return nil
	}

	if !p.expect(lexer.RPAREN) {
		return nil
	}

	expr.SetSpan(mergeSpan(start, p.curTok.Span))
	return expr
}

func (p *Parser) parseInfixExpr(left ast.Expr) ast.Expr {
	op := p.curTok.Type
	precedence := p.curPrecedence()

	p.nextToken()

	right := p.parseExpr(precedence)
	if right == nil {
		return nil
	}

	return ast.NewInfixExpr(op, left, right, mergeSpan(left.Span(), right.Span()))
}

func (p *Parser) parseCoalesceExpr(left ast.Expr) ast.Expr {
	precedence := p.curPrecedence()
	p.nextToken()

	right := p.parseExpr(precedence)
	if right == nil {
		return nil
	}

	return ast.NewCoalesceExpr(left, right, mergeSpan(left.Span(), right.Span()))
}

// parseAssignExpr is right-associative: `a = b = c` parses as `a = (b = c)`.
func (p *Parser) parseAssignExpr(left ast.Expr) ast.Expr {
	p.nextToken()

	right := p.parseExpr(precedenceAssign - 1)
	if right == nil {
		return nil
	}

	return ast.NewAssignExpr(left, right, mergeSpan(left.Span(), right.Span()))
}

func (p *Parser) parseCallExpr(callee ast.Expr) ast.Expr {
	start := callee.Span()

	var args []ast.Expr

	if p.peekTok.Type != lexer.RPAREN {
		p.nextToken()

		argRes, ok := parseDelimited[ast.Expr](p, delimitedConfig{
			Closing:             lexer.RPAREN,
			Separator:           lexer.COMMA,
			MissingElementMsg:   "expected expression in argument list",
			MissingSeparatorMsg: "expected ',' or ')' in argument list",
		}, func(int) (ast.Expr, bool) {
			arg := p.parseExpr(precedenceLowest)
			if arg == nil {
				return nil, false
			}
			return arg, true
		})
		if !ok {
			return nil
		}
		args = argRes.Items
	} else {
		p.nextToken() // move to ')'
	}

	return ast.NewCallExpr(callee, args, mergeSpan(start, p.curTok.Span))
}

// parseIndexExpr parses `target[index]`, where index may itself be a
// RangeExpr to express slicing.
func (p *Parser) parseIndexExpr(target ast.Expr) ast.Expr {
	start := target.Span()

	p.nextToken()
	index := p.parseExpr(precedenceLowest)
	if index == nil {
		return nil
	}

	if !p.expect(lexer.RBRACKET) {
		return nil
	}

	return ast.NewIndexExpr(target, index, mergeSpan(start, p.curTok.Span))
}

func (p *Parser) parseFieldExpr(target ast.Expr) ast.Expr {
	start := target.Span()

	if !p.expect(lexer.IDENT) {
		return nil
	}

	field := ast.NewIdent(p.curTok.Raw, p.curTok.Span)
	return ast.NewFieldExpr(target, field, mergeSpan(start, field.Span()))
}

// parseCatchExpr parses `target catch err ... end`: a call to
// a potentially-throwing function, handled inline instead of propagated.
func (p *Parser) parseCatchExpr(target ast.Expr) ast.Expr {
	start := target.Span()

	if !p.expect(lexer.IDENT) {
		return nil
	}
	errName := ast.NewIdent(p.curTok.Raw, p.curTok.Span)

	body := p.parseKeywordBlock()
	if body == nil {
		return nil
	}

	return ast.NewCatchExpr(target, errName, body, mergeSpan(start, body.Span()))
}

func (p *Parser) parsePrefixRangeExpr() ast.Expr {
	op := p.curTok.Type
	start := p.curTok.Span

	if !rangeEndFollows(p.peekTok.Type) {
		return ast.NewRangeExpr(nil, nil, op == lexer.DOTDOTDOT, start)
	}

	p.nextToken()
	end := p.parseExpr(precedenceRange)
	if end == nil {
		return nil
	}

	return ast.NewRangeExpr(nil, end, op == lexer.DOTDOTDOT, mergeSpan(start, end.Span()))
}

func (p *Parser) parseInfixRangeExpr(left ast.Expr) ast.Expr {
	op := p.curTok.Type

	if !rangeEndFollows(p.peekTok.Type) {
		return ast.NewRangeExpr(left, nil, op == lexer.DOTDOTDOT, left.Span())
	}

	p.nextToken()
	end := p.parseExpr(precedenceRange)
	if end == nil {
		return nil
	}

	return ast.NewRangeExpr(left, end, op == lexer.DOTDOTDOT, mergeSpan(left.Span(), end.Span()))
}

// rangeEndFollows reports whether tt can begin the end-operand of a range;
// used to support open-ended ranges (`start..`, `..end`).
func rangeEndFollows(tt lexer.TokenType) bool {
	switch tt {
	case lexer.SEMICOLON, lexer.RBRACE, lexer.RPAREN, lexer.RBRACKET, lexer.COMMA, lexer.EOF, lexer.END:
		return false
	default:
		return true
	}
}

// parseFunctionLiteral parses a lambda: `|params| => body`.
func (p *Parser) parseFunctionLiteral() ast.Expr {
	start := p.curTok.Span

	var params []*ast.Param

	if p.peekTok.Type != lexer.PIPE {
		p.nextToken()

		paramRes, ok := parseDelimited[*ast.Param](p, delimitedConfig{
			Closing:             lexer.PIPE,
			Separator:           lexer.COMMA,
			MissingElementMsg:   "expected parameter",
			MissingSeparatorMsg: "expected ',' or '|' in lambda parameter list",
		}, func(int) (*ast.Param, bool) {
			return p.parseParam()
		})
		if !ok {
			return nil
		}
		params = paramRes.Items
	} else {
		p.nextToken() // move to closing '|'
	}

	if !p.expect(lexer.FATARROW) {
		return nil
	}
	p.nextToken() // move to body start

	body := p.parseExpr(precedenceAssign)
	if body == nil {
		return nil
	}

	return ast.NewFunctionLiteral(params, body, mergeSpan(start, body.Span()))
}

// parseParam parses a single `name: Type` parameter. Lambda parameters may
// omit the annotation, leaving Type nil for the checker to infer from the
// call site.
func (p *Parser) parseParam() (*ast.Param, bool) {
	if p.curTok.Type != lexer.IDENT {
		return nil, false
	}
	name := ast.NewIdent(p.curTok.Raw, p.curTok.Span)

	if p.peekTok.Type != lexer.COLON {
		return ast.NewParam(name, nil, name.Span()), true
	}

	p.nextToken() // move to ':'
	p.nextToken() // move to type start

	typ := p.parseType()
	if typ == nil {
		return nil, false
	}

	return ast.NewParam(name, typ, mergeSpan(name.Span(), typ.Span())), true
}

func (p *Parser) parseListLiteral() ast.Expr {
	start := p.curTok.Span

	var elements []ast.Expr

	if p.peekTok.Type != lexer.RBRACKET {
		p.nextToken()

		res, ok := parseDelimited[ast.Expr](p, delimitedConfig{
			Closing:             lexer.RBRACKET,
			Separator:           lexer.COMMA,
			MissingElementMsg:   "expected expression in list literal",
			MissingSeparatorMsg: "expected ',' or ']' in list literal",
		}, func(int) (ast.Expr, bool) {
			elem := p.parseExpr(precedenceLowest)
			if elem == nil {
				return nil, false
			}
			return elem, true
		})
		if !ok {
			return nil
		}
		elements = res.Items
	} else {
		p.nextToken() // move to ']'
	}

	return ast.NewListLiteral(elements, mergeSpan(start, p.curTok.Span))
}

// parseDictLiteral parses `{key: value, ...}`, with the `{symbol: value}`
// sugar: a bare identifier key is treated as a string-literal key.
func (p *Parser) parseDictLiteral() ast.Expr {
	start := p.curTok.Span

	var entries []*ast.DictEntry

	if p.peekTok.Type != lexer.RBRACE {
		p.nextToken()

		res, ok := parseDelimited[*ast.DictEntry](p, delimitedConfig{
			Closing:             lexer.RBRACE,
			Separator:           lexer.COMMA,
			MissingElementMsg:   "expected dict entry",
			MissingSeparatorMsg: "expected ',' or '}' in dict literal",
		}, func(int) (*ast.DictEntry, bool) {
			return p.parseDictEntry()
		})
		if !ok {
			return nil
		}
		entries = res.Items
	} else {
		p.nextToken() // move to '}'
	}

	return ast.NewDictLiteral(entries, mergeSpan(start, p.curTok.Span))
}

func (p *Parser) parseDictEntry() (*ast.DictEntry, bool) {
	var key ast.Expr

	if p.curTok.Type == lexer.IDENT && p.peekTok.Type == lexer.COLON {
		key = ast.NewStringLit(p.curTok.Raw, p.curTok.Span)
	} else {
		key = p.parseExpr(precedenceLowest)
		if key == nil {
			return nil, false
		}
	}

	if !p.expect(lexer.COLON) {
		return nil, false
	}
	p.nextToken() // move to value start

	value := p.parseExpr(precedenceLowest)
	if value == nil {
		return nil, false
	}

	return ast.NewDictEntry(key, value, mergeSpan(key.Span(), value.Span())), true
}

// parseStructLiteral parses `Name{ field: value, ... }`, entered once the
// parser has already produced the leading identifier and confirmed the
// following token is '{'.
func (p *Parser) parseStructLiteral(name ast.Expr) ast.Expr {
	p.nextToken() // move to '{'
	start := name.Span()

	var fields []*ast.StructLiteralField

	if p.peekTok.Type != lexer.RBRACE {
		p.nextToken()

		res, ok := parseDelimited[*ast.StructLiteralField](p, delimitedConfig{
			Closing:             lexer.RBRACE,
			Separator:           lexer.COMMA,
			MissingElementMsg:   "expected struct field",
			MissingSeparatorMsg: "expected ',' or '}' in struct literal",
		}, func(int) (*ast.StructLiteralField, bool) {
			return p.parseStructLiteralField()
		})
		if !ok {
			return nil
		}
		fields = res.Items
	} else {
		p.nextToken() // move to '}'
	}

	return ast.NewStructLiteral(name, fields, mergeSpan(start, p.curTok.Span))
}

func (p *Parser) parseStructLiteralField() (*ast.StructLiteralField, bool) {
	if p.curTok.Type != lexer.IDENT {
		return nil, false
	}
	name := ast.NewIdent(p.curTok.Raw, p.curTok.Span)

	if !p.expect(lexer.COLON) {
		return nil, false
	}
	p.nextToken() // move to value start

	value := p.parseExpr(precedenceLowest)
	if value == nil {
		return nil, false
	}

	return ast.NewStructLiteralField(name, value, mergeSpan(name.Span(), value.Span())), true
}
