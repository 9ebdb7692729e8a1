package parser

import (
	"github.com/sarn-lang/sarn/internal/ast"
	"github.com/sarn-lang/sarn/internal/lexer"
)

type (
	prefixParseFn func() ast.Expr
	infixParseFn  func(ast.Expr) ast.Expr
)

type Option func(*options)

type options struct {
	filename string
}

// WithFilename configures the parser to attribute all emitted spans to the provided filename.
func WithFilename(name string) Option {
	return func(o *options) {
		o.filename = name
	}
}

const (
	precedenceLowest = iota
	precedenceAssign
	precedenceCoalesce
	precedenceOr
	precedenceAnd
	precedenceEquality
	precedenceComparison
	precedenceRange
	precedenceSum
	precedenceProduct
	precedencePrefix
	precedencePostfix
)

var precedences = map[lexer.TokenType]int{
	lexer.ASSIGN:     precedenceAssign,
	lexer.QQ:         precedenceCoalesce,
	lexer.PIPE_PIPE:  precedenceOr,
	lexer.OR:         precedenceOr,
	lexer.AMP_AMP:    precedenceAnd,
	lexer.AND:        precedenceAnd,
	lexer.EQ:         precedenceEquality,
	lexer.NOT_EQ:     precedenceEquality,
	lexer.LT:         precedenceComparison,
	lexer.LE:         precedenceComparison,
	lexer.GT:         precedenceComparison,
	lexer.GE:         precedenceComparison,
	lexer.DOTDOT:     precedenceRange,
	lexer.DOTDOTDOT:  precedenceRange,
	lexer.PLUS:       precedenceSum,
	lexer.MINUS:      precedenceSum,
	lexer.ASTERISK:   precedenceProduct,
	lexer.SLASH:      precedenceProduct,
	lexer.PERCENT:    precedenceProduct,
	lexer.BANG:       precedencePostfix,
	lexer.LPAREN:     precedencePostfix,
	lexer.LBRACKET:   precedencePostfix,
	lexer.DOT:        precedencePostfix,
	lexer.CATCH:      precedencePostfix,
}

// Parser implements a Pratt-style recursive descent parser for sarn.
// Invariants:
//   - Lookahead: curTok always reflects the token currently under examination;
//     peekTok mirrors the next token pulled from the lexer. The pair forms the
//     parser's sole lookahead window and is only mutated via nextToken.
//   - Diagnostics: errors is an append-only accumulator of recoverable
//     diagnostics; callers consult Errors() after ParseFile to surface them.
//   - Spans: AST node spans are monotonic and composed via mergeSpan so that
//     tail.End is never less than head.End.
//   - Blocks: keyword-introduced blocks (def/if/while/unless/until/match/test)
//     close with `end`, not a brace; struct/enum/error bodies close with `}`.
type Parser struct {
	lx      *lexer.Lexer
	curTok  lexer.Token
	peekTok lexer.Token

	errors []ParseError

	filename string

	prefixFns map[lexer.TokenType]prefixParseFn
	infixFns  map[lexer.TokenType]infixParseFn

	// restrictStructLiteral suppresses `Name{...}` struct-literal parsing
	// while parsing an if/unless/while/until condition or a match subject,
	// so `if cond { ... }`-shaped ambiguity never arises (sarn has no such
	// brace block, but a bare condition followed by a dict/struct literal
	// would otherwise be ambiguous with the arm/body that follows).
	restrictStructLiteral bool
}

// New returns a parser initialised with the provided source input.
func New(input string, opts ...Option) *Parser {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Parser{
		lx:        lexer.New(cfg.filename, input),
		prefixFns: make(map[lexer.TokenType]prefixParseFn),
		infixFns:  make(map[lexer.TokenType]infixParseFn),
		filename:  cfg.filename,
	}

	p.registerPrefix(lexer.IDENT, p.parseIdentifier)
	p.registerPrefix(lexer.INT, p.parseIntegerLiteral)
	p.registerPrefix(lexer.FLOAT, p.parseFloatLiteral)
	p.registerPrefix(lexer.STRING, p.parseStringLiteral)
	p.registerPrefix(lexer.BACKTICK, p.parseTemplateLiteral)
	p.registerPrefix(lexer.TRUE, p.parseBoolLiteral)
	p.registerPrefix(lexer.FALSE, p.parseBoolLiteral)
	p.registerPrefix(lexer.NIL, p.parseNilLiteral)
	p.registerPrefix(lexer.MINUS, p.parsePrefixExpr)
	p.registerPrefix(lexer.BANG, p.parsePrefixExpr)
	p.registerPrefix(lexer.NOT, p.parsePrefixExpr)
	p.registerPrefix(lexer.LPAREN, p.parseGroupedExpr)
	p.registerPrefix(lexer.LBRACKET, p.parseListLiteral)
	p.registerPrefix(lexer.LBRACE, p.parseDictLiteral)
	p.registerPrefix(lexer.PIPE, p.parseFunctionLiteral)
	p.registerPrefix(lexer.IF, p.parseIfExpr)
	p.registerPrefix(lexer.MATCH, p.parseMatchExpr)
	p.registerPrefix(lexer.DOTDOT, p.parsePrefixRangeExpr)
	p.registerPrefix(lexer.DOTDOTDOT, p.parsePrefixRangeExpr)

	p.registerInfix(lexer.ASSIGN, p.parseAssignExpr)
	p.registerInfix(lexer.PLUS, p.parseInfixExpr)
	p.registerInfix(lexer.MINUS, p.parseInfixExpr)
	p.registerInfix(lexer.ASTERISK, p.parseInfixExpr)
	p.registerInfix(lexer.SLASH, p.parseInfixExpr)
	p.registerInfix(lexer.PERCENT, p.parseInfixExpr)
	p.registerInfix(lexer.AND, p.parseInfixExpr)
	p.registerInfix(lexer.OR, p.parseInfixExpr)
	p.registerInfix(lexer.AMP_AMP, p.parseInfixExpr)
	p.registerInfix(lexer.PIPE_PIPE, p.parseInfixExpr)
	p.registerInfix(lexer.QQ, p.parseCoalesceExpr)
	p.registerInfix(lexer.EQ, p.parseInfixExpr)
	p.registerInfix(lexer.NOT_EQ, p.parseInfixExpr)
	p.registerInfix(lexer.LT, p.parseInfixExpr)
	p.registerInfix(lexer.LE, p.parseInfixExpr)
	p.registerInfix(lexer.GT, p.parseInfixExpr)
	p.registerInfix(lexer.GE, p.parseInfixExpr)
	p.registerInfix(lexer.DOTDOT, p.parseInfixRangeExpr)
	p.registerInfix(lexer.DOTDOTDOT, p.parseInfixRangeExpr)
	p.registerInfix(lexer.LPAREN, p.parseCallExpr)
	p.registerInfix(lexer.LBRACKET, p.parseIndexExpr)
	p.registerInfix(lexer.DOT, p.parseFieldExpr)
	p.registerInfix(lexer.BANG, p.parsePostfixExpr)
	p.registerInfix(lexer.CATCH, p.parseCatchExpr)

	// Seed curTok/peekTok.
	p.nextToken()
	p.nextToken()

	return p
}

// Errors returns all recoverable parse errors that were encountered.
func (p *Parser) Errors() []ParseError {
	return p.errors
}

// ParseFile parses a full compilation unit and returns its AST.
func (p *Parser) ParseFile() *ast.File {
	start := p.curTok.Span
	file := ast.NewFile(start)

	for p.curTok.Type != lexer.EOF && p.curTok.Type == lexer.USE {
		use := p.parseUseDecl()
		if use != nil {
			file.Uses = append(file.Uses, use)
		}
	}

	for p.curTok.Type != lexer.EOF {
		prevTok := p.curTok
		decl := p.parseDecl()
		if decl != nil {
			file.Decls = append(file.Decls, decl)
			file.SetSpan(mergeSpan(file.Span(), decl.Span()))
			continue
		}

		if p.curTok.Type == lexer.EOF {
			break
		}

		p.recoverDecl(prevTok)
	}

	file.SetSpan(mergeSpan(file.Span(), p.curTok.Span))

	return file
}

// nextToken advances the parser's token window, skipping trivia tokens since
// the lexer is constructed without NewWithTrivia here.
func (p *Parser) nextToken() {
	p.curTok = p.peekTok
	p.peekTok = p.lx.NextToken()
}

// expect asserts that the peek token matches the provided type.
// On success it promotes peekTok into curTok; on failure curTok is unchanged.
func (p *Parser) expect(tt lexer.TokenType) bool {
	if p.peekTok.Type == tt {
		p.nextToken()
		return true
	}

	msg := "expected '" + string(tt) + "'"
	p.reportError(msg, p.peekTok.Span)
	return false
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekTok.Type]; ok {
		return pr
	}
	return precedenceLowest
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.curTok.Type]; ok {
		return pr
	}
	return precedenceLowest
}

func (p *Parser) registerPrefix(tokenType lexer.TokenType, fn prefixParseFn) {
	p.prefixFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType lexer.TokenType, fn infixParseFn) {
	p.infixFns[tokenType] = fn
}
