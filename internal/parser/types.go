package parser

import "github.com/sarn-lang/sarn/internal/ast"
import "github.com/sarn-lang/sarn/internal/lexer"

// parseType parses a type expression and any trailing `?` Optional markers.
func (p *Parser) parseType() ast.TypeExpr {
	var typ ast.TypeExpr

	switch p.curTok.Type {
	case lexer.IDENT:
		typ = p.parseNamedOrGenericType()
	case lexer.LPAREN:
		typ = p.parseFunctionType()
	default:
		p.reportError("expected type expression", p.curTok.Span)
		return nil
	}

	if typ == nil {
		return nil
	}

	for p.peekTok.Type == lexer.QUESTION {
		p.nextToken()
		typ = ast.NewOptionalType(typ, mergeSpan(typ.Span(), p.curTok.Span))
	}

	return typ
}

func (p *Parser) parseNamedOrGenericType() ast.TypeExpr {
	nameTok := p.curTok
	name := ast.NewIdent(nameTok.Raw, nameTok.Span)
	named := ast.NewNamedType(name, nameTok.Span)

	if p.peekTok.Type != lexer.LBRACKET {
		return named
	}

	p.nextToken() // move to '['

	if p.peekTok.Type == lexer.RBRACKET {
		p.reportError("expected type expression in generic argument list", p.peekTok.Span)
		return nil
	}

	p.nextToken()

	argRes, ok := parseDelimited[ast.TypeExpr](p, delimitedConfig{
		Closing:             lexer.RBRACKET,
		Separator:           lexer.COMMA,
		MissingElementMsg:   "expected type expression in generic argument list",
		MissingSeparatorMsg: "expected ',' or ']' in generic argument list",
	}, func(int) (ast.TypeExpr, bool) {
		arg := p.parseType()
		if arg == nil {
			return nil, false
		}
		return arg, true
	})
	if !ok {
		return nil
	}

	span := mergeSpan(named.Span(), p.curTok.Span)

	return ast.NewGenericType(named, argRes.Items, span)
}

// parseFunctionType parses `(A, B) -> C ! E1, E2`.
func (p *Parser) parseFunctionType() ast.TypeExpr {
	start := p.curTok.Span

	if p.curTok.Type != lexer.LPAREN {
		p.reportError("expected '(' to start function type", p.curTok.Span)
		return nil
	}

	var params []ast.TypeExpr

	if p.peekTok.Type != lexer.RPAREN {
		p.nextToken()

		paramRes, ok := parseDelimited[ast.TypeExpr](p, delimitedConfig{
			Closing:             lexer.RPAREN,
			Separator:           lexer.COMMA,
			MissingElementMsg:   "expected type expression",
			MissingSeparatorMsg: "expected ',' or ')' in function type",
		}, func(int) (ast.TypeExpr, bool) {
			param := p.parseType()
			if param == nil {
				return nil, false
			}
			return param, true
		})
		if !ok {
			return nil
		}
		params = paramRes.Items
	} else {
		p.nextToken() // move to ')'
	}

	if !p.expect(lexer.ARROW) {
		return nil
	}
	p.nextToken() // move to return type start

	ret := p.parseType()
	if ret == nil {
		return nil
	}

	var throws []ast.TypeExpr
	if p.peekTok.Type == lexer.BANG {
		p.nextToken() // move to '!'
		p.nextToken() // move to first error type

		for {
			errType := p.parseType()
			if errType == nil {
				return nil
			}
			throws = append(throws, errType)

			if p.peekTok.Type == lexer.COMMA {
				p.nextToken()
				p.nextToken()
				continue
			}
			break
		}
	}

	span := mergeSpan(start, p.curTok.Span)

	return ast.NewFunctionType(params, ret, throws, span)
}
