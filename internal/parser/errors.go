package parser

import (
	"github.com/sarn-lang/sarn/internal/diag"
	"github.com/sarn-lang/sarn/internal/lexer"
)

// ParseError captures a recoverable parsing error with location context,
// convertible to a diag.Diagnostic without this package needing to know
// how diag.Bag callers want it staged (mirrors lexer.LexerError's shape).
type ParseError struct {
	Message  string
	Span     lexer.Span
	Severity diag.Severity
}

// ToDiagnostic converts a ParseError into a diag.Diagnostic.
func (e ParseError) ToDiagnostic() diag.Diagnostic {
	code := diag.CodeParserUnexpectedToken
	if e.Severity != diag.SeverityError {
		code = diag.CodeParserExpected
	}
	return diag.Diagnostic{
		Stage:    diag.StageParser,
		Severity: e.Severity,
		Code:     code,
		Message:  e.Message,
		Span: diag.Span{
			Filename: e.Span.Filename,
			Line:     e.Span.Line,
			Column:   e.Span.Column,
			Start:    e.Span.Start,
			End:      e.Span.End,
		},
	}
}

func (p *Parser) emitParseDiagnostic(msg string, span lexer.Span, severity diag.Severity) {
	span = p.spanWithFilename(span)
	p.errors = append(p.errors, ParseError{Message: msg, Span: span, Severity: severity})
}

func (p *Parser) spanWithFilename(span lexer.Span) lexer.Span {
	if span.Filename == "" && p.filename != "" {
		span.Filename = p.filename
	}
	return span
}

func (p *Parser) reportError(msg string, span lexer.Span) {
	p.emitParseDiagnostic(msg, span, diag.SeverityError)
}

func (p *Parser) reportWarning(msg string, span lexer.Span) {
	p.emitParseDiagnostic(msg, span, diag.SeverityWarning)
}

// sameTokenPosition reports whether two tokens occupy the same source span,
// used to detect a stalled recovery loop (curTok failed to advance).
func sameTokenPosition(a, b lexer.Token) bool {
	return a.Type == b.Type && a.Span.Start == b.Span.Start && a.Span.End == b.Span.End
}

// isTopLevelDeclStart reports whether tt begins a top-level declaration,
// used as a recovery sync point after a malformed declaration.
func isTopLevelDeclStart(tt lexer.TokenType) bool {
	switch tt {
	case lexer.USE, lexer.CONST, lexer.VAR, lexer.PUB, lexer.DEF, lexer.STRUCT, lexer.ENUM, lexer.ERROR, lexer.TEST:
		return true
	default:
		return false
	}
}

// recoverDecl skips tokens until the next top-level declaration start or EOF,
// so one malformed declaration doesn't cascade into spurious errors for the rest
// of the file.
func (p *Parser) recoverDecl(prev lexer.Token) {
	if p.curTok.Type == lexer.EOF {
		return
	}
	if sameTokenPosition(p.curTok, prev) {
		p.nextToken()
	}
	for p.curTok.Type != lexer.EOF {
		if isTopLevelDeclStart(p.curTok.Type) {
			return
		}
		p.nextToken()
	}
}

// recoverStatement skips tokens until a statement-starting keyword or a
// block terminator (end/else/case), so a malformed statement doesn't take
// down the rest of its enclosing block.
func (p *Parser) recoverStatement(prev lexer.Token) {
	if p.curTok.Type == lexer.EOF {
		return
	}
	if sameTokenPosition(p.curTok, prev) {
		p.nextToken()
	}
	for p.curTok.Type != lexer.EOF {
		switch p.curTok.Type {
		case lexer.END, lexer.ELSE, lexer.CASE:
			return
		case lexer.CONST, lexer.VAR, lexer.IF, lexer.UNLESS, lexer.WHILE, lexer.UNTIL,
			lexer.RETURN, lexer.THROW, lexer.MATCH, lexer.DEF:
			return
		}
		p.nextToken()
	}
}
