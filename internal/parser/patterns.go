package parser

import (
	"github.com/sarn-lang/sarn/internal/ast"
	"github.com/sarn-lang/sarn/internal/lexer"
)

// parsePattern parses a full match-arm pattern, including `|`-alternation
// at the outermost level.
func (p *Parser) parsePattern() ast.Pattern {
	start := p.curTok.Span

	first := p.parsePatternBinding()
	if first == nil {
		return nil
	}

	if p.peekTok.Type != lexer.PIPE {
		return first
	}

	alts := []ast.Pattern{first}
	for p.peekTok.Type == lexer.PIPE {
		p.nextToken() // move to '|'
		p.nextToken() // move to next alternative start
		alt := p.parsePatternBinding()
		if alt == nil {
			return nil
		}
		alts = append(alts, alt)
	}

	return ast.NewPatternOr(alts, mergeSpan(start, p.curTok.Span))
}

// parsePatternBinding parses a single alternation member. sarn's lexer has
// no '@' token, so the `name @ subpattern` binding form ast.PatternBinding
// models has no surface syntax to parse; a plain identifier pattern already
// binds its matched value to that name.
func (p *Parser) parsePatternBinding() ast.Pattern {
	return p.parsePatternPrimary()
}

func (p *Parser) parsePatternPrimary() ast.Pattern {
	switch p.curTok.Type {
	case lexer.IDENT:
		return p.parsePatternIdentOrPath()
	case lexer.LBRACKET:
		return p.parsePatternSlice()
	case lexer.LPAREN:
		return p.parsePatternParen()
	case lexer.INT, lexer.FLOAT, lexer.STRING, lexer.TRUE, lexer.FALSE, lexer.NIL, lexer.MINUS:
		return p.parsePatternLiteralOrRange()
	default:
		p.reportError("expected a pattern", p.curTok.Span)
		return nil
	}
}

func (p *Parser) parsePatternIdentOrPath() ast.Pattern {
	start := p.curTok.Span

	if p.curTok.Raw == "_" {
		return ast.NewPatternWild(start)
	}

	first := ast.NewIdent(p.curTok.Raw, start)
	segments := []*ast.Ident{first}

	for p.peekTok.Type == lexer.DOT {
		p.nextToken() // move to '.'
		if !p.expect(lexer.IDENT) {
			return nil
		}
		segments = append(segments, ast.NewIdent(p.curTok.Raw, p.curTok.Span))
	}

	if p.peekTok.Type == lexer.LPAREN {
		path := ast.NewPatternPath(segments, mergeSpan(start, p.curTok.Span))
		return p.parsePatternEnumElements(path)
	}

	if p.peekTok.Type == lexer.LBRACE {
		if len(segments) != 1 {
			p.reportError("struct pattern name must not be a qualified path", p.peekTok.Span)
			return nil
		}
		return p.parsePatternStruct(first)
	}

	if len(segments) == 1 {
		return ast.NewPatternIdent(first, first.Span())
	}

	return ast.NewPatternPath(segments, mergeSpan(start, p.curTok.Span))
}

// parsePatternEnumElements parses the positional payload of an enum/error
// variant pattern: `Path(p1, p2, ...)`.
func (p *Parser) parsePatternEnumElements(path *ast.PatternPath) ast.Pattern {
	p.nextToken() // move to '('

	var elements []ast.Pattern
	if p.peekTok.Type != lexer.RPAREN {
		p.nextToken()
		res, ok := parseDelimited[ast.Pattern](p, delimitedConfig{
			Closing:             lexer.RPAREN,
			Separator:           lexer.COMMA,
			MissingElementMsg:   "expected pattern in variant payload",
			MissingSeparatorMsg: "expected ',' or ')' in variant payload",
		}, func(int) (ast.Pattern, bool) {
			elem := p.parsePattern()
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
		p.nextToken()
	}

	return ast.NewPatternEnum(path, elements, mergeSpan(path.Span(), p.curTok.Span))
}

// parsePatternStruct parses `Name{ field: pattern, ..other, .. }`.
func (p *Parser) parsePatternStruct(name *ast.Ident) ast.Pattern {
	p.nextToken() // move to '{'

	var fields []*ast.PatternStructField
	hasRest := false
	var restSpan lexer.Span

	if p.peekTok.Type != lexer.RBRACE {
		p.nextToken()
		for {
			if p.curTok.Type == lexer.DOTDOT {
				hasRest = true
				restSpan = p.curTok.Span
				p.nextToken() // move to '}'
				break
			}

			if p.curTok.Type != lexer.IDENT {
				p.reportError("expected struct pattern field", p.curTok.Span)
				return nil
			}
			fname := ast.NewIdent(p.curTok.Raw, p.curTok.Span)

			if p.peekTok.Type == lexer.COLON {
				p.nextToken() // move to ':'
				p.nextToken() // move to subpattern start
				sub := p.parsePattern()
				if sub == nil {
					return nil
				}
				fields = append(fields, ast.NewPatternStructField(fname, sub, false, mergeSpan(fname.Span(), sub.Span())))
			} else {
				fields = append(fields, ast.NewPatternStructField(fname, ast.NewPatternIdent(fname, fname.Span()), true, fname.Span()))
			}

			if p.peekTok.Type == lexer.COMMA {
				p.nextToken()
				p.nextToken()
				continue
			}
			if p.peekTok.Type == lexer.RBRACE {
				p.nextToken()
				break
			}
			p.reportError("expected ',' or '}' in struct pattern", p.peekTok.Span)
			return nil
		}
	} else {
		p.nextToken() // move to '}'
	}

	return ast.NewPatternStruct(name, fields, hasRest, restSpan, mergeSpan(name.Span(), p.curTok.Span))
}

func (p *Parser) parsePatternSlice() ast.Pattern {
	start := p.curTok.Span

	var elements []ast.Pattern
	if p.peekTok.Type != lexer.RBRACKET {
		p.nextToken()
		res, ok := parseDelimited[ast.Pattern](p, delimitedConfig{
			Closing:             lexer.RBRACKET,
			Separator:           lexer.COMMA,
			MissingElementMsg:   "expected pattern in slice pattern",
			MissingSeparatorMsg: "expected ',' or ']' in slice pattern",
		}, func(int) (ast.Pattern, bool) {
			return p.parseSlicePatternElement()
		})
		if !ok {
			return nil
		}
		elements = res.Items
	} else {
		p.nextToken()
	}

	return ast.NewPatternSlice(elements, mergeSpan(start, p.curTok.Span))
}

func (p *Parser) parseSlicePatternElement() (ast.Pattern, bool) {
	if p.curTok.Type == lexer.DOTDOT {
		start := p.curTok.Span
		if p.peekTok.Type == lexer.IDENT && p.peekTok.Raw != "_" {
			p.nextToken()
			binding := ast.NewPatternIdent(ast.NewIdent(p.curTok.Raw, p.curTok.Span), p.curTok.Span)
			return ast.NewPatternRest(binding, mergeSpan(start, p.curTok.Span)), true
		}
		return ast.NewPatternRest(nil, start), true
	}

	pat := p.parsePattern()
	if pat == nil {
		return nil, false
	}
	return pat, true
}

func (p *Parser) parsePatternParen() ast.Pattern {
	start := p.curTok.Span
	p.nextToken()

	inner := p.parsePattern()
	if inner == nil {
		return nil
	}

	if !p.expect(lexer.RPAREN) {
		return nil
	}

	return ast.NewPatternParen(inner, mergeSpan(start, p.curTok.Span))
}

// parsePatternLiteralOrRange parses a literal pattern and, if followed by a
// range operator, extends it into a PatternRange (range tokens).
func (p *Parser) parsePatternLiteralOrRange() ast.Pattern {
	startExpr := p.parseLiteralPatternOperand()
	if startExpr == nil {
		return nil
	}

	if p.peekTok.Type != lexer.DOTDOT && p.peekTok.Type != lexer.DOTDOTDOT {
		return ast.NewPatternLiteral(startExpr, startExpr.Span())
	}

	inclusive := p.peekTok.Type == lexer.DOTDOTDOT
	p.nextToken() // move to range operator
	p.nextToken() // move to end operand

	endExpr := p.parseLiteralPatternOperand()
	if endExpr == nil {
		return nil
	}

	return ast.NewPatternRange(startExpr, endExpr, inclusive, mergeSpan(startExpr.Span(), endExpr.Span()))
}

// parseLiteralPatternOperand parses a single literal, including a leading
// unary minus on numeric literals.
func (p *Parser) parseLiteralPatternOperand() ast.Expr {
	if p.curTok.Type == lexer.MINUS {
		start := p.curTok.Span
		p.nextToken()
		inner := p.parseLiteralPatternOperand()
		if inner == nil {
			return nil
		}
		return ast.NewPrefixExpr(lexer.MINUS, inner, mergeSpan(start, inner.Span()))
	}

	switch p.curTok.Type {
	case lexer.INT:
		return ast.NewIntegerLit(p.curTok.Raw, p.curTok.Span)
	case lexer.FLOAT:
		return ast.NewFloatLit(p.curTok.Raw, p.curTok.Span)
	case lexer.STRING:
		return ast.NewStringLit(p.curTok.Value, p.curTok.Span)
	case lexer.TRUE, lexer.FALSE:
		return ast.NewBoolLit(p.curTok.Type == lexer.TRUE, p.curTok.Span)
	case lexer.NIL:
		return ast.NewNilLit(p.curTok.Span)
	default:
		p.reportError("expected a literal pattern", p.curTok.Span)
		return nil
	}
}
