package parser

import (
	"testing"

	"github.com/sarn-lang/sarn/internal/ast"
)

func parseFile(t *testing.T, src string) *ast.File {
	t.Helper()
	p := New(src, WithFilename("test.sarn"))
	file := p.ParseFile()
	if len(p.Errors()) > 0 {
		for _, e := range p.Errors() {
			t.Errorf("parse error: %s at %v", e.Message, e.Span)
		}
	}
	if file == nil {
		t.Fatal("ParseFile returned nil")
	}
	return file
}

func TestParseUseDecl(t *testing.T) {
	file := parseFile(t, `use math = "std/math"`)
	if len(file.Uses) != 1 {
		t.Fatalf("expected 1 use decl, got %d", len(file.Uses))
	}
	if file.Uses[0].Alias.Name != "math" {
		t.Errorf("expected alias 'math', got %q", file.Uses[0].Alias.Name)
	}
	if file.Uses[0].Path.Value != "std/math" {
		t.Errorf("expected path 'std/math', got %q", file.Uses[0].Path.Value)
	}
}

func TestParseFnDecl_Basic(t *testing.T) {
	file := parseFile(t, `
def add(a: Int, b: Int) -> Int
  a + b
end
`)
	if len(file.Decls) != 1 {
		t.Fatalf("expected 1 decl, got %d", len(file.Decls))
	}
	fn, ok := file.Decls[0].(*ast.FnDecl)
	if !ok {
		t.Fatalf("expected *ast.FnDecl, got %T", file.Decls[0])
	}
	if fn.Name.Name != "add" {
		t.Errorf("expected name 'add', got %q", fn.Name.Name)
	}
	if len(fn.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(fn.Params))
	}
	if fn.Body.Tail == nil {
		t.Fatal("expected trailing expression as block tail")
	}
	if _, ok := fn.Body.Tail.(*ast.InfixExpr); !ok {
		t.Errorf("expected tail to be *ast.InfixExpr, got %T", fn.Body.Tail)
	}
}

func TestParseFnDecl_WithThrowsAndGenerics(t *testing.T) {
	file := parseFile(t, `
def first[T](list: List[T]) -> T ! EmptyList
  return list[0]
end
`)
	fn := file.Decls[0].(*ast.FnDecl)
	if len(fn.TypeParams) != 1 || fn.TypeParams[0].Name.Name != "T" {
		t.Fatalf("expected type param T, got %+v", fn.TypeParams)
	}
	if len(fn.Throws) != 1 {
		t.Fatalf("expected 1 throws entry, got %d", len(fn.Throws))
	}
}

func TestParseStructDecl(t *testing.T) {
	file := parseFile(t, `
struct Point {
  x: Int,
  y: Int
}
`)
	decl := file.Decls[0].(*ast.StructDecl)
	if decl.Name.Name != "Point" {
		t.Errorf("expected name 'Point', got %q", decl.Name.Name)
	}
	if len(decl.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(decl.Fields))
	}
}

func TestParseEnumDecl(t *testing.T) {
	file := parseFile(t, `
enum Shape {
  Circle(Float),
  Rectangle(Float, Float),
  Point
}
`)
	decl := file.Decls[0].(*ast.EnumDecl)
	if len(decl.Variants) != 3 {
		t.Fatalf("expected 3 variants, got %d", len(decl.Variants))
	}
	if len(decl.Variants[0].Payloads) != 1 {
		t.Errorf("expected Circle to have 1 payload, got %d", len(decl.Variants[0].Payloads))
	}
	if decl.Variants[2].Payloads != nil {
		t.Errorf("expected Point to have no payload")
	}
}

func TestParseErrorDecl(t *testing.T) {
	file := parseFile(t, `
error ParseFailure {
  UnexpectedEOF,
  InvalidToken(String)
}
`)
	decl := file.Decls[0].(*ast.ErrorDecl)
	if decl.Name.Name != "ParseFailure" {
		t.Errorf("expected name 'ParseFailure', got %q", decl.Name.Name)
	}
	if len(decl.Variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(decl.Variants))
	}
}

func TestParseConstDecl(t *testing.T) {
	file := parseFile(t, `const MaxSize: Int = 100`)
	decl := file.Decls[0].(*ast.ConstDecl)
	if decl.Name.Name != "MaxSize" {
		t.Errorf("expected name 'MaxSize', got %q", decl.Name.Name)
	}
	if _, ok := decl.Value.(*ast.IntegerLit); !ok {
		t.Errorf("expected value to be *ast.IntegerLit, got %T", decl.Value)
	}
}

func TestParseTestDecl(t *testing.T) {
	file := parseFile(t, `
test "addition works"
  var x = 1 + 1
end
`)
	decl := file.Decls[0].(*ast.TestDecl)
	if decl.Name.Value != "addition works" {
		t.Errorf("expected name 'addition works', got %q", decl.Name.Value)
	}
}

func TestParseIfExprAsTail(t *testing.T) {
	file := parseFile(t, `
def classify(n: Int) -> String
  if n < 0
    "negative"
  else if n == 0
    "zero"
  else
    "positive"
  end
end
`)
	fn := file.Decls[0].(*ast.FnDecl)
	ifExpr, ok := fn.Body.Tail.(*ast.IfExpr)
	if !ok {
		t.Fatalf("expected tail to be *ast.IfExpr, got %T", fn.Body.Tail)
	}
	if len(ifExpr.Clauses) != 2 {
		t.Fatalf("expected 2 if-clauses, got %d", len(ifExpr.Clauses))
	}
	if ifExpr.Else == nil {
		t.Fatal("expected an else block")
	}
}

func TestParseUnlessStmt(t *testing.T) {
	file := parseFile(t, `
def guard(ok: Bool) -> Int
  unless ok
    return 0
  end
  return 1
end
`)
	fn := file.Decls[0].(*ast.FnDecl)
	if len(fn.Body.Stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(fn.Body.Stmts))
	}
	if _, ok := fn.Body.Stmts[0].(*ast.UnlessStmt); !ok {
		t.Errorf("expected first stmt to be *ast.UnlessStmt, got %T", fn.Body.Stmts[0])
	}
}

func TestParseWhileAndUntilStmt(t *testing.T) {
	file := parseFile(t, `
def count(n: Int) -> Int
  var i = 0
  while i < n
    i = i + 1
  end
  until i == 0
    i = i - 1
  end
  return i
end
`)
	fn := file.Decls[0].(*ast.FnDecl)
	var sawWhile, sawUntil bool
	for _, s := range fn.Body.Stmts {
		switch s.(type) {
		case *ast.WhileStmt:
			sawWhile = true
		case *ast.UntilStmt:
			sawUntil = true
		}
	}
	if !sawWhile || !sawUntil {
		t.Errorf("expected both while and until statements, got while=%v until=%v", sawWhile, sawUntil)
	}
}

func TestParseMatchExpr(t *testing.T) {
	file := parseFile(t, `
def describe(shape: Shape) -> String
  match shape
  case Shape.Circle(r)
    "circle"
  case Shape.Rectangle(w, h)
    "rectangle"
  case _
    "other"
  end
end
`)
	fn := file.Decls[0].(*ast.FnDecl)
	m, ok := fn.Body.Tail.(*ast.MatchExpr)
	if !ok {
		t.Fatalf("expected tail to be *ast.MatchExpr, got %T", fn.Body.Tail)
	}
	if len(m.Arms) != 3 {
		t.Fatalf("expected 3 arms, got %d", len(m.Arms))
	}
	enumPat, ok := m.Arms[0].Pattern.(*ast.PatternEnum)
	if !ok {
		t.Fatalf("expected first arm pattern to be *ast.PatternEnum, got %T", m.Arms[0].Pattern)
	}
	if len(enumPat.Elements) != 1 {
		t.Errorf("expected 1 element in Circle pattern, got %d", len(enumPat.Elements))
	}
	if _, ok := m.Arms[2].Pattern.(*ast.PatternWild); !ok {
		t.Errorf("expected last arm pattern to be *ast.PatternWild, got %T", m.Arms[2].Pattern)
	}
}

func TestParseCatchExpr(t *testing.T) {
	file := parseFile(t, `
def safeDiv(a: Int, b: Int) -> Int
  return divide(a, b) catch err
    0
  end
end
`)
	fn := file.Decls[0].(*ast.FnDecl)
	ret := fn.Body.Stmts[0].(*ast.ReturnStmt)
	catchExpr, ok := ret.Value.(*ast.CatchExpr)
	if !ok {
		t.Fatalf("expected *ast.CatchExpr, got %T", ret.Value)
	}
	if catchExpr.ErrName.Name != "err" {
		t.Errorf("expected error binding 'err', got %q", catchExpr.ErrName.Name)
	}
}

func TestParseListAndDictLiterals(t *testing.T) {
	file := parseFile(t, `
const Items = [1, 2, 3]
const Config = {name: "sarn", version: 1}
`)
	list := file.Decls[0].(*ast.ConstDecl).Value.(*ast.ListLiteral)
	if len(list.Elements) != 3 {
		t.Fatalf("expected 3 list elements, got %d", len(list.Elements))
	}
	dict := file.Decls[1].(*ast.ConstDecl).Value.(*ast.DictLiteral)
	if len(dict.Entries) != 2 {
		t.Fatalf("expected 2 dict entries, got %d", len(dict.Entries))
	}
	if _, ok := dict.Entries[0].Key.(*ast.StringLit); !ok {
		t.Errorf("expected bare-ident dict key sugar to produce *ast.StringLit, got %T", dict.Entries[0].Key)
	}
}

func TestParseStructLiteral(t *testing.T) {
	file := parseFile(t, `const Origin = Point{x: 0, y: 0}`)
	lit := file.Decls[0].(*ast.ConstDecl).Value.(*ast.StructLiteral)
	if len(lit.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(lit.Fields))
	}
}

func TestParseFunctionLiteral(t *testing.T) {
	file := parseFile(t, `const Square = |x: Int| => x * x`)
	lit := file.Decls[0].(*ast.ConstDecl).Value.(*ast.FunctionLiteral)
	if len(lit.Params) != 1 {
		t.Fatalf("expected 1 param, got %d", len(lit.Params))
	}
	if _, ok := lit.Body.(*ast.InfixExpr); !ok {
		t.Errorf("expected body to be *ast.InfixExpr, got %T", lit.Body)
	}
}

func TestParseRangeExprInclusiveAndExclusive(t *testing.T) {
	file := parseFile(t, `
const A = 1..10
const B = 1...10
`)
	a := file.Decls[0].(*ast.ConstDecl).Value.(*ast.RangeExpr)
	if a.Inclusive {
		t.Error("expected '..' to be exclusive")
	}
	b := file.Decls[1].(*ast.ConstDecl).Value.(*ast.RangeExpr)
	if !b.Inclusive {
		t.Error("expected '...' to be inclusive")
	}
}

func TestParseOptionalTypeAndCoalesce(t *testing.T) {
	file := parseFile(t, `
def firstOrDefault(list: List[Int]) -> Int
  var maybe: Int? = nil
  return maybe ?? 0
end
`)
	fn := file.Decls[0].(*ast.FnDecl)
	if len(fn.Params) != 1 {
		t.Fatalf("expected 1 param, got %d", len(fn.Params))
	}
	varStmt := fn.Body.Stmts[0].(*ast.VarStmt)
	if _, ok := varStmt.Type.(*ast.OptionalType); !ok {
		t.Errorf("expected var type to be *ast.OptionalType, got %T", varStmt.Type)
	}
	ret := fn.Body.Stmts[1].(*ast.ReturnStmt)
	if _, ok := ret.Value.(*ast.CoalesceExpr); !ok {
		t.Errorf("expected return value to be *ast.CoalesceExpr, got %T", ret.Value)
	}
}

func TestParseTemplateLiteral(t *testing.T) {
	file := parseFile(t, "const Greeting = `hello ${name}!`")
	tpl := file.Decls[0].(*ast.ConstDecl).Value.(*ast.TemplateLit)
	if len(tpl.Fragments) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(tpl.Fragments))
	}
	if len(tpl.Exprs) != 1 {
		t.Fatalf("expected 1 interpolated expr, got %d", len(tpl.Exprs))
	}
	if _, ok := tpl.Exprs[0].(*ast.Ident); !ok {
		t.Errorf("expected interpolated expr to be *ast.Ident, got %T", tpl.Exprs[0])
	}
}

func TestParseAssignExprRightAssociative(t *testing.T) {
	file := parseFile(t, `
def chain() -> Int
  var a = 0
  var b = 0
  a = b = 5
  return a
end
`)
	fn := file.Decls[0].(*ast.FnDecl)
	exprStmt := fn.Body.Stmts[2].(*ast.ExprStmt)
	assign, ok := exprStmt.Expr.(*ast.AssignExpr)
	if !ok {
		t.Fatalf("expected *ast.AssignExpr, got %T", exprStmt.Expr)
	}
	if _, ok := assign.Value.(*ast.AssignExpr); !ok {
		t.Errorf("expected right-associative nested assign, got %T", assign.Value)
	}
}

func TestParseIndexAndFieldExpr(t *testing.T) {
	file := parseFile(t, `
def access(p: Point, list: List[Int]) -> Int
  return p.x + list[0]
end
`)
	fn := file.Decls[0].(*ast.FnDecl)
	ret := fn.Body.Stmts[0].(*ast.ReturnStmt)
	infix := ret.Value.(*ast.InfixExpr)
	if _, ok := infix.Left.(*ast.FieldExpr); !ok {
		t.Errorf("expected left to be *ast.FieldExpr, got %T", infix.Left)
	}
	if _, ok := infix.Right.(*ast.IndexExpr); !ok {
		t.Errorf("expected right to be *ast.IndexExpr, got %T", infix.Right)
	}
}

func TestParseRecoversFromMalformedDecl(t *testing.T) {
	p := New(`
def broken(
const Okay: Int = 5
`, WithFilename("test.sarn"))
	file := p.ParseFile()
	if len(p.Errors()) == 0 {
		t.Fatal("expected at least one parse error")
	}
	found := false
	for _, d := range file.Decls {
		if c, ok := d.(*ast.ConstDecl); ok && c.Name.Name == "Okay" {
			found = true
		}
	}
	if !found {
		t.Error("expected parser to recover and still parse the following const decl")
	}
}
