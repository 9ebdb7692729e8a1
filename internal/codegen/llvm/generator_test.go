package llvm_test

import (
	"strings"
	"testing"

	"github.com/sarn-lang/sarn/internal/codegen/llvm"
	"github.com/sarn-lang/sarn/internal/diag"
	"github.com/sarn-lang/sarn/internal/intrinsics"
	"github.com/sarn-lang/sarn/internal/mir"
	"github.com/sarn-lang/sarn/internal/parser"
	"github.com/sarn-lang/sarn/internal/types"
)

func generate(t *testing.T, src string) string {
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

	gen := llvm.NewGenerator(module, bag)
	ir, err := gen.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return ir
}

const summationSrc = `
def main()
  var total = 0
  var i = 1
  while i <= 1000
    total = total + i
    i = i + 1
  end
  print(total)
end
`

// The hot loop must carry its accumulator in a φ node, with no alloca
// anywhere in the function.
func TestLoopAccumulatorIsPhiPromoted(t *testing.T) {
	ir := generate(t, summationSrc)
	if !strings.Contains(ir, "phi i64") {
		t.Errorf("expected a phi i64 for the loop accumulator; IR:\n%s", ir)
	}
	if strings.Contains(ir, "alloca") {
		t.Errorf("scalar loop must not spill to a stack slot; IR:\n%s", ir)
	}
}

// No block inside the loop may load and store the same address for a
// loop-mutated variable: with φ promotion there are no loads or stores
// at all for scalar locals.
func TestLoopBodyHasNoLoadStorePairs(t *testing.T) {
	ir := generate(t, summationSrc)
	if strings.Contains(ir, "load i64") || strings.Contains(ir, "store i64") {
		t.Errorf("loop-mutated scalars must stay in registers; IR:\n%s", ir)
	}
}

func TestRecursiveFunctionLowers(t *testing.T) {
	ir := generate(t, `
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
	if !strings.Contains(ir, "define i64 @sarn.fib(i64 %arg0, ptr %__env)") {
		t.Errorf("missing fib definition; IR:\n%s", ir)
	}
	if !strings.Contains(ir, "call i64 @sarn.fib") {
		t.Errorf("missing recursive call; IR:\n%s", ir)
	}
	if !strings.Contains(ir, "call void @sarn_print_int") {
		t.Errorf("print must dispatch to the Int-specialized helper; IR:\n%s", ir)
	}
}

// Constant operands fold eagerly, through the same arith rules the VM
// evaluates with.
func TestConstantFolding(t *testing.T) {
	ir := generate(t, `
def main()
  print(2 + 3)
end
`)
	if !strings.Contains(ir, "call void @sarn_print_int(i64 5)") {
		t.Errorf("2 + 3 must fold to 5; IR:\n%s", ir)
	}
	if strings.Contains(ir, "add i64 2, 3") {
		t.Errorf("folded operation must not also be emitted; IR:\n%s", ir)
	}
}

// Module consts never materialize as globals; their values appear
// directly at use sites.
func TestConstGlobalPromotion(t *testing.T) {
	ir := generate(t, `
const SCALE = 100

def main()
  var n = 3
  print(SCALE * n)
end
`)
	if strings.Contains(ir, "@SCALE") {
		t.Errorf("const must not become a global; IR:\n%s", ir)
	}
	if !strings.Contains(ir, "mul i64 100,") && !strings.Contains(ir, "mul i64 %") {
		t.Errorf("const value must thread into the use site; IR:\n%s", ir)
	}
}

// Division emits an explicit zero check branching to the runtime fault,
// never a bare sdiv that could produce poison.
func TestDivisionGuardsAgainstZero(t *testing.T) {
	ir := generate(t, `
def halve(n: Int, d: Int) -> Int
  n / d
end

def main()
  print(halve(10, 2))
end
`)
	if !strings.Contains(ir, "icmp eq i64") || !strings.Contains(ir, "@sarn_fault") {
		t.Errorf("missing division-by-zero guard; IR:\n%s", ir)
	}
}

// The closure blob holds a by-value capture; the lifted lambda reads it
// back through the capture accessor.
func TestClosureCaptureByValue(t *testing.T) {
	ir := generate(t, `
def make_adder(base: Int) -> (Int) -> Int
  |v: Int| => base + v
end

def main()
  var add = make_adder(10)
  print(add(5))
end
`)
	if !strings.Contains(ir, "@sarn_closure_new") {
		t.Errorf("missing closure construction; IR:\n%s", ir)
	}
	if !strings.Contains(ir, "@sarn_closure_capture") {
		t.Errorf("lifted lambda must load its capture; IR:\n%s", ir)
	}
	if !strings.Contains(ir, "@sarn_box_int") {
		t.Errorf("an Int capture boxes by value into the blob; IR:\n%s", ir)
	}
}

// A function that cannot throw carries the no-throw attribute group; a
// small leaf gets the always-inline group.
func TestFunctionAttributes(t *testing.T) {
	ir := generate(t, `
def double(n: Int) -> Int
  n * 2
end

def main()
  print(double(21))
end
`)
	if !strings.Contains(ir, "@sarn.double(i64 %arg0, ptr %__env) #0") {
		t.Errorf("small pure leaf must be #0 (alwaysinline); IR:\n%s", ir)
	}
	if !strings.Contains(ir, "attributes #0 = { alwaysinline nounwind }") {
		t.Errorf("missing attribute groups; IR:\n%s", ir)
	}
}

// Throwing callees are followed by a pending-error check that either
// enters the catch handler or re-propagates.
func TestErrorPropagationChecksPending(t *testing.T) {
	ir := generate(t, `
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
	if !strings.Contains(ir, "@sarn_error_pending") {
		t.Errorf("missing pending-error check; IR:\n%s", ir)
	}
	if !strings.Contains(ir, "@sarn_error_take") {
		t.Errorf("handler must take the raised error; IR:\n%s", ir)
	}
	if !strings.Contains(ir, "@sarn_error_raise") {
		t.Errorf("throw must raise through the runtime; IR:\n%s", ir)
	}
}

func TestEntryPointWrapsUserMain(t *testing.T) {
	ir := generate(t, `
def main()
  print(1)
end
`)
	if !strings.Contains(ir, "define i32 @main()") {
		t.Errorf("missing C entry point; IR:\n%s", ir)
	}
	if !strings.Contains(ir, "@sarn_uncaught_error") {
		t.Errorf("entry point must trap pending errors; IR:\n%s", ir)
	}
}
