package lexer

import "testing"

func TestNextToken_Basic(t *testing.T) {
	input := `var x = 10`

	tests := []struct {
		expectedType TokenType
		expectedRaw  string
	}{
		{VAR, "var"},
		{IDENT, "x"},
		{ASSIGN, "="},
		{INT, "10"},
		{EOF, ""},
	}

	l := New("t.sarn", input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - type wrong. expected=%q, got=%q", i, tt.expectedType, tok.Type)
		}
		if tok.Raw != tt.expectedRaw {
			t.Fatalf("tests[%d] - raw wrong. expected=%q, got=%q", i, tt.expectedRaw, tok.Raw)
		}
	}
}

func TestNextToken_Keywords(t *testing.T) {
	input := `use const var pub def struct enum error if else unless while until match case is return throw catch test end true false nil not and or`

	expected := []TokenType{
		USE, CONST, VAR, PUB, DEF, STRUCT, ENUM, ERROR, IF, ELSE, UNLESS,
		WHILE, UNTIL, MATCH, CASE, IS, RETURN, THROW, CATCH, TEST, END,
		TRUE, FALSE, NIL, NOT, AND, OR, EOF,
	}

	l := New("t.sarn", input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("tests[%d] - expected %q, got %q (%q)", i, want, tok.Type, tok.Raw)
		}
	}
}

func TestNextToken_Operators(t *testing.T) {
	input := `= => + - ! * / % && || | ? ?? < > == != <= >= -> .. ...`

	tests := []TokenType{
		ASSIGN, FATARROW, PLUS, MINUS, BANG, ASTERISK, SLASH, PERCENT,
		AMP_AMP, PIPE_PIPE, PIPE, QUESTION, QQ, LT, GT, EQ, NOT_EQ, LE, GE,
		ARROW, DOTDOT, DOTDOTDOT, EOF,
	}

	l := New("t.sarn", input)
	for i, want := range tests {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("tests[%d] - expected %q, got %q (%q)", i, want, tok.Type, tok.Raw)
		}
	}
}

func TestNextToken_Punctuation(t *testing.T) {
	input := `, ; : . ( ) { } [ ]`
	tests := []TokenType{
		COMMA, SEMICOLON, COLON, DOT, LPAREN, RPAREN, LBRACE, RBRACE,
		LBRACKET, RBRACKET, EOF,
	}
	l := New("t.sarn", input)
	for i, want := range tests {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("tests[%d] - expected %q, got %q (%q)", i, want, tok.Type, tok.Raw)
		}
	}
}

func TestRangeOperators_LongestMatchPreference(t *testing.T) {
	l := New("t.sarn", `0..10 0...10`)

	expected := []struct {
		typ TokenType
		raw string
	}{
		{INT, "0"}, {DOTDOT, ".."}, {INT, "10"},
		{INT, "0"}, {DOTDOTDOT, "..."}, {INT, "10"},
		{EOF, ""},
	}
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want.typ || tok.Raw != want.raw {
			t.Fatalf("tests[%d] - expected %q %q, got %q %q", i, want.typ, want.raw, tok.Type, tok.Raw)
		}
	}
}

func TestNumericLiterals(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		raw   string
	}{
		{"10", INT, "10"},
		{"1_000_000", INT, "1_000_000"},
		{"0xFF", INT, "0xFF"},
		{"0b1010", INT, "0b1010"},
		{"3.14", FLOAT, "3.14"},
		{".5", FLOAT, ".5"},
		{"1e10", FLOAT, "1e10"},
		{"1.5e-3", FLOAT, "1.5e-3"},
	}
	for _, tt := range tests {
		l := New("t.sarn", tt.input)
		tok := l.NextToken()
		if tok.Type != tt.typ {
			t.Fatalf("input %q: expected type %q, got %q", tt.input, tt.typ, tok.Type)
		}
		if tok.Raw != tt.raw {
			t.Fatalf("input %q: expected raw %q, got %q", tt.input, tt.raw, tok.Raw)
		}
	}
}

func TestLineComment_ElidedToEOL(t *testing.T) {
	l := New("t.sarn", "var x = 1 # trailing comment\nvar y = 2")
	expected := []TokenType{VAR, IDENT, ASSIGN, INT, VAR, IDENT, ASSIGN, INT, EOF}
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("tests[%d] - expected %q, got %q", i, want, tok.Type)
		}
	}
}

func TestStringLiteral_Escapes(t *testing.T) {
	l := New("t.sarn", `"a\nb\tc\"d"`)
	tok := l.NextToken()
	if tok.Type != STRING {
		t.Fatalf("expected STRING, got %q", tok.Type)
	}
	want := "a\nb\tc\"d"
	if tok.Value != want {
		t.Fatalf("expected value %q, got %q", want, tok.Value)
	}
}

func TestTemplateString_PlainFragment(t *testing.T) {
	l := New("t.sarn", "`hello world`")
	expected := []struct {
		typ TokenType
		raw string
	}{
		{BACKTICK, "`"},
		{TEMPLATE_FRAGMENT, "hello world"},
		{BACKTICK, "`"},
		{EOF, ""},
	}
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want.typ || tok.Raw != want.raw {
			t.Fatalf("tests[%d] - expected %q %q, got %q %q", i, want.typ, want.raw, tok.Type, tok.Raw)
		}
	}
}

func TestTemplateString_DollarBraceInterpolation(t *testing.T) {
	l := New("t.sarn", "`hi ${name}!`")

	expected := []struct {
		typ TokenType
		raw string
	}{
		{BACKTICK, "`"},
		{TEMPLATE_FRAGMENT, "hi "},
		{INTERP_START, "${"},
		{IDENT, "name"},
		{INTERP_END, "}"},
		{TEMPLATE_FRAGMENT, "!"},
		{BACKTICK, "`"},
		{EOF, ""},
	}
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want.typ || tok.Raw != want.raw {
			t.Fatalf("tests[%d] - expected %q %q, got %q %q (value %q)", i, want.typ, want.raw, tok.Type, tok.Raw, tok.Value)
		}
	}
}

func TestTemplateString_NestedBraceInsideInterpolation(t *testing.T) {
	// The dict literal `{x: 1}` inside the interpolation hole must not be
	// mistaken for the hole's closing brace.
	l := New("t.sarn", "`val: ${ {x: 1} }`")

	expected := []struct {
		typ TokenType
		raw string
	}{
		{BACKTICK, "`"},
		{TEMPLATE_FRAGMENT, "val: "},
		{INTERP_START, "${"},
		{LBRACE, "{"},
		{IDENT, "x"},
		{COLON, ":"},
		{INT, "1"},
		{RBRACE, "}"},
		{INTERP_END, "}"},
		{TEMPLATE_FRAGMENT, ""},
		{BACKTICK, "`"},
		{EOF, ""},
	}
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want.typ || tok.Raw != want.raw {
			t.Fatalf("tests[%d] - expected %q %q, got %q %q", i, want.typ, want.raw, tok.Type, tok.Raw)
		}
	}
}

func TestTemplateString_BareBraceInterpolation(t *testing.T) {
	l := New("t.sarn", "`hi {name}`")
	expected := []struct {
		typ TokenType
		raw string
	}{
		{BACKTICK, "`"},
		{TEMPLATE_FRAGMENT, "hi "},
		{INTERP_START, "{"},
		{IDENT, "name"},
		{INTERP_END, "}"},
		{TEMPLATE_FRAGMENT, ""},
		{BACKTICK, "`"},
		{EOF, ""},
	}
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want.typ || tok.Raw != want.raw {
			t.Fatalf("tests[%d] - expected %q %q, got %q %q", i, want.typ, want.raw, tok.Type, tok.Raw)
		}
	}
}

func TestTriviaMode_EmitsWhitespace(t *testing.T) {
	l := NewWithTrivia("t.sarn", "var x")
	expected := []TokenType{VAR, WHITESPACE, IDENT, EOF}
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("step %d - expected token %q, got %q", i, want, tok.Type)
		}
	}
}
