package resolver

import (
	"testing"

	"github.com/sarn-lang/sarn/internal/diag"
	"github.com/sarn-lang/sarn/internal/parser"
)

func resolveSource(t *testing.T, src string) (*Module, *diag.Bag) {
	t.Helper()
	p := parser.New(src, parser.WithFilename("main.sarn"))
	file := p.ParseFile()
	if len(p.Errors()) > 0 {
		t.Fatalf("unexpected parse errors: %+v", p.Errors())
	}
	bag := diag.NewBag()
	r := New(NewLoader(), bag)
	mod := r.ResolveFile(file, "main.sarn", ".")
	return mod, bag
}

func TestResolveSimpleFunctionBody(t *testing.T) {
	_, bag := resolveSource(t, `
def add(a: Int, b: Int) -> Int
  a + b
end
`)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.All())
	}
}

func TestResolveUnknownSymbol(t *testing.T) {
	_, bag := resolveSource(t, `
def broken() -> Int
  return undeclaredName
end
`)
	if !bag.HasErrors() {
		t.Fatal("expected an unknown-symbol error")
	}
	found := false
	for _, d := range bag.All() {
		if d.Code == diag.CodeResolverUnknownSymbol {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a %s diagnostic, got %+v", diag.CodeResolverUnknownSymbol, bag.All())
	}
}

func TestResolveDuplicateTopLevelSymbol(t *testing.T) {
	_, bag := resolveSource(t, `
def thing() -> Int
  return 1
end

const thing: Int = 2
`)
	found := false
	for _, d := range bag.All() {
		if d.Code == diag.CodeResolverDuplicateSymbol {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a %s diagnostic, got %+v", diag.CodeResolverDuplicateSymbol, bag.All())
	}
}

func TestResolveAssignToConstIsRejected(t *testing.T) {
	_, bag := resolveSource(t, `
const Limit: Int = 10

def tryMutate() -> Int
  Limit = 20
  return Limit
end
`)
	found := false
	for _, d := range bag.All() {
		if d.Code == diag.CodeResolverAssignToConst {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a %s diagnostic, got %+v", diag.CodeResolverAssignToConst, bag.All())
	}
}

func TestResolveMatchArmBindsPatternIdents(t *testing.T) {
	_, bag := resolveSource(t, `
enum Shape {
  Circle(Float),
  Point
}

def radiusOrZero(shape: Shape) -> Float
  match shape
  case Shape.Circle(r)
    r
  case _
    0.0
  end
end
`)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.All())
	}
}

func TestResolveUseDeclDeclaresModuleAlias(t *testing.T) {
	loader := NewLoader()
	loader.RegisterStd(StdModule{
		Path:   "std.math",
		Source: "pub def square(x: Int) -> Int\n  x * x\nend\n",
	})

	p := parser.New(`
use math = "std.math"

def area(side: Int) -> Int
  math.square(side)
end
`, parser.WithFilename("main.sarn"))
	file := p.ParseFile()
	if len(p.Errors()) > 0 {
		t.Fatalf("unexpected parse errors: %+v", p.Errors())
	}

	bag := diag.NewBag()
	r := New(loader, bag)
	mod := r.ResolveFile(file, "main.sarn", ".")

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.All())
	}
	if mod.Scope.LookupLocal("math") == nil {
		t.Fatal("expected alias 'math' to be declared in module scope")
	}
	if mod.Imports["math"] != "std.math" {
		t.Errorf("expected math -> std.math import, got %+v", mod.Imports)
	}
}

func TestResolveImportCycleIsDetected(t *testing.T) {
	loader := NewLoader()
	loader.RegisterStd(StdModule{
		Path:   "a",
		Source: `use b = "b"` + "\n",
	})
	loader.RegisterStd(StdModule{
		Path:   "b",
		Source: `use a = "a"` + "\n",
	})

	bag := diag.NewBag()
	r := New(loader, bag)
	r.Resolve("a")

	found := false
	for _, d := range bag.All() {
		if d.Code == diag.CodeResolverImportCycle {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a %s diagnostic, got %+v", diag.CodeResolverImportCycle, bag.All())
	}
}

func TestResolveSharedDependencyAliasesAreRenamedHygienically(t *testing.T) {
	loader := NewLoader()
	loader.RegisterStd(StdModule{
		Path:   "dep",
		Source: "pub def helper() -> Int\n  1\nend\n",
	})
	loader.RegisterStd(StdModule{
		Path:   "a",
		Source: "use util = \"dep\"\n\npub def from_a() -> Int\n  util.helper()\nend\n",
	})
	loader.RegisterStd(StdModule{
		Path:   "b",
		Source: "use util = \"dep\"\n\npub def from_b() -> Int\n  util.helper()\nend\n",
	})

	p := parser.New(`
use a = "a"
use b = "b"

def main()
  a.from_a()
  b.from_b()
end
`, parser.WithFilename("main.sarn"))
	file := p.ParseFile()
	if len(p.Errors()) > 0 {
		t.Fatalf("unexpected parse errors: %+v", p.Errors())
	}

	bag := diag.NewBag()
	r := New(loader, bag)
	mod := r.ResolveFile(file, "main.sarn", ".")

	// Two imports sharing the `util` alias must not collide.
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.All())
	}
	if mod.Scope.LookupLocal("__module_a__util") == nil {
		t.Error("expected a's util alias spliced in as __module_a__util")
	}
	if mod.Scope.LookupLocal("__module_b__util") == nil {
		t.Error("expected b's util alias spliced in as __module_b__util")
	}
	if mod.Scope.LookupLocal("util") != nil {
		t.Error("no reference to the original alias may survive the merge")
	}
}
