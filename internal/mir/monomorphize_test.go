package mir_test

import (
	"strings"
	"testing"

	"github.com/sarn-lang/sarn/internal/mir"
)

func monomorphized(t *testing.T, src string) *mir.Module {
	t.Helper()
	module := lower(t, src)
	out, err := mir.Monomorphize(module)
	if err != nil {
		t.Fatalf("monomorphize: %v", err)
	}
	return out
}

func TestEqualTuplesInternToOneSpecialization(t *testing.T) {
	module := monomorphized(t, `
def id[T](x: T) -> T
  x
end

def main()
  print(id[Int](1))
  print(id[Int](2))
  print(id[String]("s"))
end
`)
	var names []string
	for _, fn := range module.Functions {
		if strings.HasPrefix(fn.Name, "id$") {
			names = append(names, fn.Name)
		}
		if fn.Name == "id" {
			t.Error("the generic template must not survive monomorphization")
		}
	}
	if len(names) != 2 {
		t.Errorf("expected 2 specializations, got %v", names)
	}
}

func TestSpecializationSubstitutesTypes(t *testing.T) {
	module := monomorphized(t, `
def id[T](x: T) -> T
  x
end

def main()
  print(id[String]("s"))
end
`)
	fn := module.FunctionByName("id$String")
	if fn == nil {
		t.Fatal("missing id$String")
	}
	if fn.Params[0].Type.String() != "String" {
		t.Errorf("parameter type not substituted: %s", fn.Params[0].Type)
	}
	if fn.ReturnType.String() != "String" {
		t.Errorf("return type not substituted: %s", fn.ReturnType)
	}
}

func TestCallSitesRewrittenToMangledNames(t *testing.T) {
	module := monomorphized(t, `
def id[T](x: T) -> T
  x
end

def main()
  print(id[Int](1))
end
`)
	text := mir.PrettyFunction(module.FunctionByName("main"))
	if !strings.Contains(text, "call id$Int(") {
		t.Errorf("call site must target the specialization:\n%s", text)
	}
}

func TestGenericCallingGeneric(t *testing.T) {
	module := monomorphized(t, `
def inner[T](x: T) -> T
  x
end

def outer[T](x: T) -> T
  inner(x)
end

def main()
  print(outer[Int](1))
end
`)
	if module.FunctionByName("outer$Int") == nil {
		t.Error("missing outer$Int")
	}
	if module.FunctionByName("inner$Int") == nil {
		t.Error("transitive specialization missing: inner$Int")
	}
}
