package mir_test

import (
	"strings"
	"testing"

	"github.com/go-test/deep"

	"github.com/sarn-lang/sarn/internal/diag"
	"github.com/sarn-lang/sarn/internal/mir"
	"github.com/sarn-lang/sarn/internal/parser"
	"github.com/sarn-lang/sarn/internal/types"
)

var testIntrinsics = map[string]int{"print": 0, "len": 1, "str": 2, "push": 3}

func lower(t *testing.T, src string) *mir.Module {
	t.Helper()
	bag := diag.NewBag()
	p := parser.New(src, parser.WithFilename("test.sarn"))
	file := p.ParseFile()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	checker := types.NewChecker(bag)
	checker.DeclareBuiltin("print", &types.Function{Params: []types.Type{types.TypeUnknown}, Return: types.TypeVoid})
	checker.DeclareBuiltin("len", &types.Function{Params: []types.Type{types.TypeUnknown}, Return: types.TypeInt})
	checker.DeclareBuiltin("str", &types.Function{Params: []types.Type{types.TypeUnknown}, Return: types.TypeString})
	checker.DeclareBuiltin("push", &types.Function{Params: []types.Type{types.TypeUnknown, types.TypeUnknown}, Return: types.TypeVoid})
	checker.Check(file)
	if bag.HasErrors() {
		t.Fatalf("type errors: %v", bag.All())
	}
	lowerer := mir.NewLowerer(checker, testIntrinsics)
	module, err := lowerer.LowerModule(file)
	if err != nil {
		t.Fatalf("lowering: %v", err)
	}
	return module
}

func TestLoopLowersToCondBodyExit(t *testing.T) {
	module := lower(t, `
def count()
  var i = 0
  while i < 10
    i = i + 1
  end
end
`)
	fn := module.FunctionByName("count")
	if fn == nil {
		t.Fatal("missing function count")
	}
	text := mir.PrettyFunction(fn)
	for _, label := range []string{"loop_cond", "loop_body", "loop_end"} {
		if !strings.Contains(text, label) {
			t.Errorf("missing %s block:\n%s", label, text)
		}
	}
	// The back edge re-enters the condition block.
	if strings.Count(text, "goto loop_cond") < 2 {
		t.Errorf("expected pre-header and back-edge jumps to the condition:\n%s", text)
	}
}

func TestUntilNegatesTheBranch(t *testing.T) {
	module := lower(t, `
def count()
  var i = 0
  until i >= 3
    i = i + 1
  end
end
`)
	text := mir.PrettyFunction(module.FunctionByName("count"))
	// until branches to the exit when the condition holds.
	if !strings.Contains(text, "? loop_end") {
		t.Errorf("until must branch true to the exit:\n%s", text)
	}
}

func TestConstPromotedIntoUseSite(t *testing.T) {
	module := lower(t, `
const LIMIT = 10

def check(n: Int) -> Bool
  n < LIMIT
end
`)
	text := mir.PrettyFunction(module.FunctionByName("check"))
	if !strings.Contains(text, "lt %") || !strings.Contains(text, "10") {
		t.Errorf("const value must appear inline:\n%s", text)
	}
	if len(module.Consts) != 1 || module.Consts[0].Name != "LIMIT" {
		t.Errorf("module consts: %v", module.Consts)
	}
}

func TestShortCircuitProducesBranches(t *testing.T) {
	module := lower(t, `
def both(a: Bool, b: Bool) -> Bool
  a and b
end
`)
	text := mir.PrettyFunction(module.FunctionByName("both"))
	if !strings.Contains(text, "sc_rhs") || !strings.Contains(text, "sc_end") {
		t.Errorf("and must lower to control flow:\n%s", text)
	}
}

func TestLambdaLiftsWithCaptures(t *testing.T) {
	module := lower(t, `
def make_adder(base: Int) -> (Int) -> Int
  |v: Int| => base + v
end
`)
	var lifted *mir.Function
	for _, fn := range module.Functions {
		if fn.IsClosure {
			lifted = fn
		}
	}
	if lifted == nil {
		t.Fatal("lambda was not lifted to a module function")
	}
	want := []mir.Capture{{Name: "base", Type: types.TypeInt, ByRef: false}}
	if diff := deep.Equal(lifted.Captures, want); diff != nil {
		// base is never reassigned after the lambda, so it captures by value.
		t.Fatalf("captures differ: %v", diff)
	}

	outer := module.FunctionByName("make_adder")
	text := mir.PrettyFunction(outer)
	if !strings.Contains(text, "closure @"+lifted.Name) {
		t.Errorf("outer function must build the closure:\n%s", text)
	}
}

func TestReassignedCaptureIsByRef(t *testing.T) {
	module := lower(t, `
def counter() -> (Int) -> Int
  var total = 0
  var f = |v: Int| => total + v
  total = 5
  f
end
`)
	var lifted *mir.Function
	for _, fn := range module.Functions {
		if fn.IsClosure {
			lifted = fn
		}
	}
	if lifted == nil {
		t.Fatal("lambda was not lifted")
	}
	if len(lifted.Captures) != 1 || !lifted.Captures[0].ByRef {
		t.Errorf("a binding reassigned after the lambda must capture by reference: %+v", lifted.Captures)
	}
}

func TestMatchLowersToTagCascade(t *testing.T) {
	module := lower(t, `
enum Shape {
  Circle(Int),
  Square(Int)
}

def area(s: Shape) -> Int
  match s
  case Shape.Circle(r) => r * r
  case Shape.Square(w) => w * w
  end
end
`)
	text := mir.PrettyFunction(module.FunctionByName("area"))
	if strings.Count(text, "= tag ") < 2 {
		t.Errorf("each arm tests the discriminant:\n%s", text)
	}
	if !strings.Contains(text, "payload") {
		t.Errorf("arm bodies must extract the payload:\n%s", text)
	}
	if !strings.Contains(text, "unreachable") {
		t.Errorf("the exhaustive-match miss block is unreachable:\n%s", text)
	}
}

func TestCatchRoutesThroughHandler(t *testing.T) {
	module := lower(t, `
error E {
  Boom
}

def explode() -> Int ! E
  throw E.Boom
end

def recover() -> Int
  explode() catch err
    0
  end
end
`)
	text := mir.PrettyFunction(module.FunctionByName("recover"))
	if !strings.Contains(text, "catch catch") && !strings.Contains(text, "call explode() catch") {
		t.Errorf("the call must carry its handler edge:\n%s", text)
	}
}

func TestTemplateLowersToConcat(t *testing.T) {
	module := lower(t, "def greet(name: String) -> String\n  `hi ${name}!`\nend\n")
	text := mir.PrettyFunction(module.FunctionByName("greet"))
	if strings.Count(text, "add") < 2 {
		t.Errorf("template must concatenate fragments:\n%s", text)
	}
}
