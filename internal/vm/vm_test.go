package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sarn-lang/sarn/internal/bytecode"
	"github.com/sarn-lang/sarn/internal/diag"
	"github.com/sarn-lang/sarn/internal/intrinsics"
	"github.com/sarn-lang/sarn/internal/mir"
	"github.com/sarn-lang/sarn/internal/parser"
	"github.com/sarn-lang/sarn/internal/types"
	"github.com/sarn-lang/sarn/internal/vm"
)

// compile runs the full front end over src and emits bytecode.
func compile(t *testing.T, src string) *bytecode.Program {
	t.Helper()

	bag := diag.NewBag()
	p := parser.New(src, parser.WithFilename("test.sarn"))
	file := p.ParseFile()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}

	checker := types.NewChecker(bag)
	for i := range intrinsics.Table {
		checker.DeclareBuiltin(intrinsics.Table[i].Name, intrinsics.Table[i].Signature())
	}
	checker.Check(file)
	if bag.HasErrors() {
		t.Fatalf("type errors: %v", bag.All())
	}

	lowerer := mir.NewLowerer(checker, intrinsics.Kinds())
	module, err := lowerer.LowerModule(file)
	if err != nil {
		t.Fatalf("lowering: %v", err)
	}
	module, err = mir.Monomorphize(module)
	if err != nil {
		t.Fatalf("monomorphize: %v", err)
	}

	program, err := bytecode.Emit(module)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	return program
}

func run(t *testing.T, src string) string {
	t.Helper()
	program := compile(t, src)
	var out bytes.Buffer
	machine := vm.New(program, &out, strings.NewReader(""))
	if err := machine.Run("main"); err != nil {
		t.Fatalf("run: %v", err)
	}
	return out.String()
}

func TestRecursiveFibonacci(t *testing.T) {
	got := run(t, `
def fib(n: Int) -> Int
  if n < 2
    n
  else
    fib(n - 1) + fib(n - 2)
  end
end

def main()
  print(fib(20))
end
`)
	if got != "6765\n" {
		t.Errorf("fib(20) printed %q, want %q", got, "6765\n")
	}
}

func TestSummationLoop(t *testing.T) {
	got := run(t, `
def main()
  var total = 0
  var i = 1
  while i <= 1000
    total = total + i
    i = i + 1
  end
  print(total)
end
`)
	if got != "500500\n" {
		t.Errorf("summation printed %q, want %q", got, "500500\n")
	}
}

func TestUntilLoop(t *testing.T) {
	got := run(t, `
def main()
  var i = 0
  until i >= 3
    print(i)
    i = i + 1
  end
end
`)
	if got != "0\n1\n2\n" {
		t.Errorf("until printed %q", got)
	}
}

func TestGenericIdentity(t *testing.T) {
	src := `
def id[T](x: T) -> T
  x
end

def main()
  print(id[Int](7))
  print(id[String]("ok"))
end
`
	got := run(t, src)
	if got != "7\nok\n" {
		t.Errorf("generic identity printed %q, want %q", got, "7\nok\n")
	}

	// The program's function table carries exactly the two
	// specializations, never a third for a repeated tuple.
	program := compile(t, src)
	var specialized []string
	for _, fn := range program.Functions {
		if strings.HasPrefix(fn.Name, "id$") {
			specialized = append(specialized, fn.Name)
		}
	}
	if len(specialized) != 2 {
		t.Errorf("expected 2 specializations of id, got %v", specialized)
	}
}

func TestErrorRoundTrip(t *testing.T) {
	got := run(t, `
error E {
  NotFound(path: String)
}

def fetch(path: String) -> String ! E
  throw E.NotFound(path)
end

def main()
  var result = fetch("/etc/x") catch err
    match err
    case is E.NotFound => err.path
    end
  end
  print(result)
end
`)
	if got != "/etc/x\n" {
		t.Errorf("error round trip printed %q, want %q", got, "/etc/x\n")
	}
}

func TestLambdaCapture(t *testing.T) {
	got := run(t, `
def make_adder(base: Int) -> (Int) -> Int
  |v: Int| => base + v
end

def main()
  var add = make_adder(10)
  print(add(5))
end
`)
	if got != "15\n" {
		t.Errorf("lambda capture printed %q, want %q", got, "15\n")
	}
}

func TestIntegerOverflowWraps(t *testing.T) {
	got := run(t, `
def main()
  var big = 9223372036854775807
  print(big + 1)
end
`)
	if got != "-9223372036854775808\n" {
		t.Errorf("overflow printed %q, want two's-complement wrap", got)
	}
}

func TestDivisionByZeroIsRuntimeError(t *testing.T) {
	program := compile(t, `
def main()
  var zero = 0
  print(1 / zero)
end
`)
	var out bytes.Buffer
	machine := vm.New(program, &out, strings.NewReader(""))
	err := machine.Run("main")
	if err == nil {
		t.Fatal("expected a runtime error for division by zero")
	}
	if !strings.Contains(err.Error(), "division by zero") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestUncaughtThrowTerminates(t *testing.T) {
	program := compile(t, `
error E {
  Boom
}

def explode() -> Int ! E
  throw E.Boom
end

def main() ! E
  print(explode())
end
`)
	var out bytes.Buffer
	machine := vm.New(program, &out, strings.NewReader(""))
	err := machine.Run("main")
	if err == nil {
		t.Fatal("expected an uncaught-error failure")
	}
	if !strings.Contains(err.Error(), "uncaught error") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestListAndSlice(t *testing.T) {
	got := run(t, `
def main()
  var xs = [10, 20, 30, 40]
  print(xs[1])
  print(len(xs[1..3]))
  print(len(xs[1...3]))
end
`)
	if got != "20\n2\n3\n" {
		t.Errorf("list/slice printed %q", got)
	}
}

func TestEmptySliceOfEmptyList(t *testing.T) {
	got := run(t, `
def main()
  var xs: List[Int] = []
  print(len(xs))
  print(len(xs[0..0]))
end
`)
	if got != "0\n0\n" {
		t.Errorf("empty slice printed %q", got)
	}
}

func TestStringSliceIsCharIndexed(t *testing.T) {
	got := run(t, `
def main()
  var s = "héllo"
  print(s[1])
  print(s[1..3])
end
`)
	if got != "é\nél\n" {
		t.Errorf("string slice printed %q", got)
	}
}

func TestRangeValueIsEagerList(t *testing.T) {
	got := run(t, `
def main()
  var r = 1...5
  print(len(r))
  print(r[4])
end
`)
	if got != "5\n5\n" {
		t.Errorf("range value printed %q", got)
	}
}

func TestDictOperations(t *testing.T) {
	got := run(t, `
def main()
  var d = {"a": 1, "b": 2}
  d["c"] = 3
  print(d["c"])
  print(len(d))
end
`)
	// Inserting a new key grows the dict.
	if got != "3\n3\n" {
		t.Errorf("dict printed %q, want %q", got, "3\n3\n")
	}
}

func TestMatchEnumWithPayload(t *testing.T) {
	got := run(t, `
enum Shape {
  Circle(Int),
  Square(Int)
}

def area(s: Shape) -> Int
  match s
  case Shape.Circle(r) => r * r * 3
  case Shape.Square(w) => w * w
  end
end

def main()
  print(area(Shape.Circle(2)))
  print(area(Shape.Square(3)))
end
`)
	if got != "12\n9\n" {
		t.Errorf("match printed %q", got)
	}
}

func TestTemplateString(t *testing.T) {
	got := run(t, "def main()\n  var n = 4\n  print(`n is ${n}!`)\nend\n")
	if got != "n is 4!\n" {
		t.Errorf("template printed %q", got)
	}
}

func TestCoalesceAndUnwrap(t *testing.T) {
	got := run(t, `
def pick(flag: Bool) -> Int?
  if flag
    7
  else
    nil
  end
end

def main()
  print(pick(false) ?? 42)
  print(pick(true)!)
end
`)
	if got != "42\n7\n" {
		t.Errorf("optional printed %q", got)
	}
}

func TestShortCircuitEvaluation(t *testing.T) {
	got := run(t, `
def noisy(v: Bool) -> Bool
  print("evaluated")
  v
end

def main()
  if false and noisy(true)
    print("then")
  else
    print("else")
  end
end
`)
	if got != "else\n" {
		t.Errorf("short circuit printed %q; right operand must not evaluate", got)
	}
}

func TestStructFieldAccess(t *testing.T) {
	got := run(t, `
struct Point {
  x: Int,
  y: Int
}

def main()
  var p = Point{ x: 3, y: 4 }
  p.y = 5
  print(p.x + p.y)
end
`)
	if got != "8\n" {
		t.Errorf("struct printed %q", got)
	}
}

func TestConstPromotion(t *testing.T) {
	got := run(t, `
const SCALE = 100

def main()
  print(SCALE * 3)
end
`)
	if got != "300\n" {
		t.Errorf("const printed %q", got)
	}
}

func TestFloatDivisionByZeroIsError(t *testing.T) {
	program := compile(t, `
def main()
  var zero = 0.0
  print(1.0 / zero)
end
`)
	var out bytes.Buffer
	machine := vm.New(program, &out, strings.NewReader(""))
	err := machine.Run("main")
	if err == nil {
		t.Fatal("float division by zero must not return NaN")
	}
}
