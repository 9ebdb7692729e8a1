package types_test

import (
	"strings"
	"testing"

	"github.com/sarn-lang/sarn/internal/diag"
	"github.com/sarn-lang/sarn/internal/parser"
	"github.com/sarn-lang/sarn/internal/types"
)

func check(t *testing.T, src string) (*types.Checker, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag()
	p := parser.New(src, parser.WithFilename("test.sarn"))
	file := p.ParseFile()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	checker := types.NewChecker(bag)
	checker.DeclareBuiltin("print", &types.Function{
		Params: []types.Type{types.TypeUnknown},
		Return: types.TypeVoid,
	})
	checker.Check(file)
	return checker, bag
}

func errorCodes(bag *diag.Bag) []diag.Code {
	var codes []diag.Code
	for _, d := range bag.All() {
		codes = append(codes, d.Code)
	}
	return codes
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.All() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestWellTypedProgramHasNoDiagnostics(t *testing.T) {
	_, bag := check(t, `
def add(a: Int, b: Int) -> Int
  a + b
end

def main()
  print(add(1, 2))
end
`)
	if bag.HasErrors() {
		t.Errorf("unexpected diagnostics: %v", errorCodes(bag))
	}
}

func TestMixedNumericOperandsRejected(t *testing.T) {
	_, bag := check(t, `
def main()
  print(1 + 2.0)
end
`)
	if !hasCode(bag, diag.CodeTypeMismatch) {
		t.Errorf("Int + Float must not widen implicitly, got %v", errorCodes(bag))
	}
}

func TestLogicalOperatorsRequireBool(t *testing.T) {
	_, bag := check(t, `
def main()
  print(1 and 2)
end
`)
	if !hasCode(bag, diag.CodeTypeMismatch) {
		t.Errorf("and over Ints must fail, got %v", errorCodes(bag))
	}
}

func TestArityMismatch(t *testing.T) {
	_, bag := check(t, `
def pair(a: Int, b: Int) -> Int
  a + b
end

def main()
  print(pair(1))
end
`)
	if !hasCode(bag, diag.CodeTypeArityMismatch) {
		t.Errorf("expected arity diagnostic, got %v", errorCodes(bag))
	}
}

func TestGenericInstantiationsRecorded(t *testing.T) {
	checker, bag := check(t, `
def id[T](x: T) -> T
  x
end

def main()
  print(id[Int](7))
  print(id[String]("ok"))
  print(id[Int](8))
end
`)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errorCodes(bag))
	}
	var idInstances int
	for _, inst := range checker.Monomorphizations {
		if inst.Symbol == "id" {
			idInstances++
		}
	}
	// Equal type-argument tuples intern to one entry.
	if idInstances != 2 {
		t.Errorf("expected exactly 2 instantiations of id, got %d", idInstances)
	}
}

func TestGenericInferenceFromArguments(t *testing.T) {
	checker, bag := check(t, `
def first[T](xs: List[T]) -> T
  xs[0]
end

def main()
  print(first([1, 2, 3]))
end
`)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errorCodes(bag))
	}
	key := types.InstantiationKey("first", []types.Type{types.TypeInt})
	if _, ok := checker.Monomorphizations[key]; !ok {
		t.Errorf("expected inferred instantiation %s, table: %v", key, checker.Monomorphizations)
	}
}

func TestNonExhaustiveMatchListsMissingVariants(t *testing.T) {
	_, bag := check(t, `
enum Color {
  Red,
  Green,
  Blue
}

def name(c: Color) -> String
  match c
  case Color.Red => "red"
  end
end

def main()
  print(name(Color.Red))
end
`)
	if !hasCode(bag, diag.CodeTypeNonExhaustiveMatch) {
		t.Fatalf("expected exhaustiveness diagnostic, got %v", errorCodes(bag))
	}
	var message string
	for _, d := range bag.All() {
		if d.Code == diag.CodeTypeNonExhaustiveMatch {
			message = d.Message
		}
	}
	if !strings.Contains(message, "Green") || !strings.Contains(message, "Blue") {
		t.Errorf("missing variants must be listed, got %q", message)
	}
}

func TestWildcardMakesMatchExhaustive(t *testing.T) {
	_, bag := check(t, `
enum Color {
  Red,
  Green
}

def name(c: Color) -> String
  match c
  case Color.Red => "red"
  case _ => "other"
  end
end

def main()
  print(name(Color.Green))
end
`)
	if bag.HasErrors() {
		t.Errorf("unexpected diagnostics: %v", errorCodes(bag))
	}
}

func TestUnhandledThrowRequiresDeclaration(t *testing.T) {
	_, bag := check(t, `
error E {
  Boom
}

def explode() -> Int ! E
  throw E.Boom
end

def main()
  print(explode())
end
`)
	if !hasCode(bag, diag.CodeTypeUnhandledError) {
		t.Errorf("call to throwing function without catch must fail, got %v", errorCodes(bag))
	}
}

func TestCatchSatisfiesThrowsContract(t *testing.T) {
	_, bag := check(t, `
error E {
  Boom
}

def explode() -> Int ! E
  throw E.Boom
end

def main()
  var n = explode() catch err
    0
  end
  print(n)
end
`)
	if bag.HasErrors() {
		t.Errorf("unexpected diagnostics: %v", errorCodes(bag))
	}
}

func TestThrowOutsideDeclaredSetRejected(t *testing.T) {
	_, bag := check(t, `
error E {
  Boom
}

def quiet() -> Int
  throw E.Boom
end

def main()
  print(quiet())
end
`)
	if !hasCode(bag, diag.CodeTypeUnhandledError) {
		t.Errorf("throw without a declared error set must fail, got %v", errorCodes(bag))
	}
}

func TestDictKeyRestriction(t *testing.T) {
	_, bag := check(t, `
def main()
  var d: Dict[Float, Int] = {}
  print(d)
end
`)
	if !hasCode(bag, diag.CodeTypeInvalidDictKey) {
		t.Errorf("Float dict keys must be rejected, got %v", errorCodes(bag))
	}
}

func TestOptionalWidening(t *testing.T) {
	_, bag := check(t, `
def pick(flag: Bool) -> Int?
  if flag
    7
  else
    nil
  end
end

def main()
  print(pick(true) ?? 0)
end
`)
	if bag.HasErrors() {
		t.Errorf("unexpected diagnostics: %v", errorCodes(bag))
	}
}

func TestCoalesceRequiresOptionalLeft(t *testing.T) {
	_, bag := check(t, `
def main()
  print(1 ?? 2)
end
`)
	if !hasCode(bag, diag.CodeTypeMismatch) {
		t.Errorf("?? over a non-Optional must fail, got %v", errorCodes(bag))
	}
}

func TestLambdaParameterInference(t *testing.T) {
	_, bag := check(t, `
def apply(f: (Int) -> Int, v: Int) -> Int
  f(v)
end

def main()
  print(apply(|x| => x + 1, 41))
end
`)
	if bag.HasErrors() {
		t.Errorf("lambda parameters should infer from the expected type, got %v", errorCodes(bag))
	}
}

func TestEveryExpressionGetsATypeSlot(t *testing.T) {
	checker, bag := check(t, `
def main()
  var n = 1 + 2
  print(n)
end
`)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errorCodes(bag))
	}
	for node, typ := range checker.Types {
		if typ == nil {
			t.Errorf("node %T has an empty type slot", node)
		}
		if _, unknown := typ.(*types.Unknown); unknown {
			t.Errorf("node %T stayed Unknown in an error-free unit", node)
		}
	}
}
