package parser

import (
	"github.com/sarn-lang/sarn/internal/ast"
	"github.com/sarn-lang/sarn/internal/lexer"
)

// blockTerminators are the tokens that end a statement sequence without
// being consumed by parseBlockBody itself; the caller decides what to do
// next (close the block, start an else-arm, start the next match case).
func isBlockTerminator(tt lexer.TokenType) bool {
	switch tt {
	case lexer.END, lexer.ELSE, lexer.CASE, lexer.EOF:
		return true
	default:
		return false
	}
}

// parseBlockBody parses statements up to (but not consuming) a block
// terminator, implementing the trailing-expression-returns rule: a final
// bare expression statement immediately preceding the terminator becomes
// the block's Tail instead of an ExprStmt.
func (p *Parser) parseBlockBody() *ast.BlockExpr {
	start := p.curTok.Span
	block := ast.NewBlockExpr(nil, nil, start)

	for !isBlockTerminator(p.curTok.Type) {
		prevTok := p.curTok

		if stmt, tail, ok := p.parseStmtOrTail(); ok {
			if tail != nil {
				block.Tail = tail
				break
			}
			// An if chain with an else arm sitting directly before the
			// block terminator is the block's value, not a statement.
			if ifStmt, isIf := stmt.(*ast.IfStmt); isIf && ifStmt.Else != nil && isBlockTerminator(p.curTok.Type) {
				block.Tail = ast.NewIfExpr(ifStmt.Clauses, ifStmt.Else, ifStmt.Span())
				break
			}
			if stmt != nil {
				block.Stmts = append(block.Stmts, stmt)
			}
			continue
		}

		if isBlockTerminator(p.curTok.Type) {
			break
		}
		p.recoverStatement(prevTok)
	}

	block.SetSpan(mergeSpan(start, p.curTok.Span))
	return block
}

// parseKeywordBlock parses a block body and consumes the closing `end`,
// for the single-terminator bodies of def/while/until/match/test/catch.
func (p *Parser) parseKeywordBlock() *ast.BlockExpr {
	block := p.parseBlockBody()
	if !p.expect(lexer.END) {
		return nil
	}
	block.SetSpan(mergeSpan(block.Span(), p.curTok.Span))
	return block
}

// parseStmtOrTail parses exactly one statement. When the statement is a
// bare expression immediately followed by a block terminator, it is
// returned as tail instead of stmt.
func (p *Parser) parseStmtOrTail() (stmt ast.Stmt, tail ast.Expr, ok bool) {
	switch p.curTok.Type {
	case lexer.VAR:
		return p.parseVarStmt(), nil, true
	case lexer.RETURN:
		return p.parseReturnStmt(), nil, true
	case lexer.THROW:
		return p.parseThrowStmt(), nil, true
	case lexer.IF:
		return p.parseIfStmt(), nil, true
	case lexer.UNLESS:
		return p.parseUnlessStmt(), nil, true
	case lexer.WHILE:
		return p.parseWhileStmt(), nil, true
	case lexer.UNTIL:
		return p.parseUntilStmt(), nil, true
	default:
		return p.parseExprStmtOrTail()
	}
}

func (p *Parser) parseVarStmt() ast.Stmt {
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

	stmt := ast.NewVarStmt(name, typ, value, mergeSpan(start, value.Span()))
	p.nextToken()
	return stmt
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	start := p.curTok.Span

	if isBlockTerminator(p.peekTok.Type) {
		p.nextToken()
		return ast.NewReturnStmt(nil, start)
	}

	p.nextToken()
	value := p.parseExpr(precedenceLowest)
	if value == nil {
		return nil
	}

	stmt := ast.NewReturnStmt(value, mergeSpan(start, value.Span()))
	p.nextToken()
	return stmt
}

func (p *Parser) parseThrowStmt() ast.Stmt {
	start := p.curTok.Span

	p.nextToken()
	value := p.parseExpr(precedenceLowest)
	if value == nil {
		return nil
	}

	stmt := ast.NewThrowStmt(value, mergeSpan(start, value.Span()))
	p.nextToken()
	return stmt
}

func (p *Parser) parseExprStmtOrTail() (ast.Stmt, ast.Expr, bool) {
	start := p.curTok.Span

	expr := p.parseExpr(precedenceLowest)
	if expr == nil {
		return nil, nil, false
	}

	if isBlockTerminator(p.peekTok.Type) {
		p.nextToken()
		return nil, expr, true
	}

	p.nextToken()
	return ast.NewExprStmt(expr, mergeSpan(start, expr.Span())), nil, true
}

// parseIfClauses parses the shared `if cond ... (else if cond ...)* (else ...)?`
// structure, leaving curTok positioned on the terminating `end`. Used by both
// the statement and expression forms of if.
func (p *Parser) parseIfClauses() ([]*ast.IfClause, *ast.BlockExpr, bool) {
	var clauses []*ast.IfClause

	for {
		start := p.curTok.Span
		p.nextToken() // move past 'if'/'else if'-second keyword

		p.restrictStructLiteral = true
		cond := p.parseExpr(precedenceLowest)
		p.restrictStructLiteral = false
		if cond == nil {
			return nil, nil, false
		}

		p.nextToken() // move to first body token
		body := p.parseBlockBody()

		clauses = append(clauses, ast.NewIfClause(cond, body, mergeSpan(start, body.Span())))

		if p.curTok.Type == lexer.ELSE && p.peekTok.Type == lexer.IF {
			p.nextToken() // move to 'if'
			continue
		}
		break
	}

	var elseBlock *ast.BlockExpr
	if p.curTok.Type == lexer.ELSE {
		p.nextToken() // move past 'else'
		elseBlock = p.parseBlockBody()
	}

	if !p.expect(lexer.END) {
		return nil, nil, false
	}

	return clauses, elseBlock, true
}

func (p *Parser) parseIfStmt() ast.Stmt {
	start := p.curTok.Span
	clauses, elseBlock, ok := p.parseIfClauses()
	if !ok {
		return nil
	}
	return ast.NewIfStmt(clauses, elseBlock, mergeSpan(start, p.curTok.Span))
}

func (p *Parser) parseIfExpr() ast.Expr {
	start := p.curTok.Span
	clauses, elseBlock, ok := p.parseIfClauses()
	if !ok {
		return nil
	}
	return ast.NewIfExpr(clauses, elseBlock, mergeSpan(start, p.curTok.Span))
}

// parseUnlessStmt parses `unless cond ... (else ...)? end`: the
// negated counterpart of if, with no else-if chaining.
func (p *Parser) parseUnlessStmt() ast.Stmt {
	start := p.curTok.Span
	p.nextToken()

	p.restrictStructLiteral = true
	cond := p.parseExpr(precedenceLowest)
	p.restrictStructLiteral = false
	if cond == nil {
		return nil
	}

	p.nextToken()
	body := p.parseBlockBody()

	var elseBlock *ast.BlockExpr
	if p.curTok.Type == lexer.ELSE {
		p.nextToken()
		elseBlock = p.parseBlockBody()
	}

	if !p.expect(lexer.END) {
		return nil
	}

	return ast.NewUnlessStmt(cond, body, elseBlock, mergeSpan(start, p.curTok.Span))
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	start := p.curTok.Span
	p.nextToken()

	p.restrictStructLiteral = true
	cond := p.parseExpr(precedenceLowest)
	p.restrictStructLiteral = false
	if cond == nil {
		return nil
	}

	p.nextToken()
	body := p.parseKeywordBlock()
	if body == nil {
		return nil
	}

	return ast.NewWhileStmt(cond, body, mergeSpan(start, body.Span()))
}

// parseUntilStmt parses `until cond ... end`: loops while cond
// is false, the negated counterpart of while.
func (p *Parser) parseUntilStmt() ast.Stmt {
	start := p.curTok.Span
	p.nextToken()

	p.restrictStructLiteral = true
	cond := p.parseExpr(precedenceLowest)
	p.restrictStructLiteral = false
	if cond == nil {
		return nil
	}

	p.nextToken()
	body := p.parseKeywordBlock()
	if body == nil {
		return nil
	}

	return ast.NewUntilStmt(cond, body, mergeSpan(start, body.Span()))
}

// parseMatchExpr parses `match subject case Pattern [is Type] ... end`.
func (p *Parser) parseMatchExpr() ast.Expr {
	start := p.curTok.Span
	p.nextToken()

	p.restrictStructLiteral = true
	subject := p.parseExpr(precedenceLowest)
	p.restrictStructLiteral = false
	if subject == nil {
		return nil
	}

	p.nextToken()

	var arms []*ast.MatchArm
	for p.curTok.Type == lexer.CASE {
		arm := p.parseMatchArm()
		if arm == nil {
			return nil
		}
		arms = append(arms, arm)
	}

	if !p.expect(lexer.END) {
		return nil
	}

	return ast.NewMatchExpr(subject, arms, mergeSpan(start, p.curTok.Span))
}

func (p *Parser) parseMatchArm() *ast.MatchArm {
	start := p.curTok.Span
	p.nextToken() // move past 'case'

	// `case is E.NotFound` is the bare type-test spelling: the `is`
	// introduces the variant path directly.
	if p.curTok.Type == lexer.IS {
		p.nextToken()
	}

	pattern := p.parsePattern()
	if pattern == nil {
		return nil
	}

	var guard ast.Expr
	if p.peekTok.Type == lexer.IS {
		p.nextToken() // move to 'is'
		p.nextToken() // move to guard type/expr start
		guard = p.parseExpr(precedenceLowest)
		if guard == nil {
			return nil
		}
	}

	// An arm body may be introduced by `=>` for the one-expression form.
	if p.peekTok.Type == lexer.FATARROW {
		p.nextToken()
	}

	p.nextToken() // move to first body token
	body := p.parseBlockBody()

	return ast.NewMatchArm(pattern, guard, body, mergeSpan(start, body.Span()))
}
