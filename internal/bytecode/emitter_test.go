package bytecode_test

import (
	"testing"

	"github.com/sarn-lang/sarn/internal/bytecode"
	"github.com/sarn-lang/sarn/internal/mir"
	"github.com/sarn-lang/sarn/internal/types"
)

// addFn builds: entry { r = a + b } -> return r.
func addFn() *mir.Function {
	a := mir.Local{ID: 0, Name: "a", Type: types.TypeInt}
	b := mir.Local{ID: 1, Name: "b", Type: types.TypeInt}
	r := mir.Local{ID: 2, Type: types.TypeInt}
	entry := &mir.BasicBlock{
		Label: "entry",
		Statements: []mir.Statement{
			&mir.BinOp{Result: r, Op: mir.BinAdd, Left: &mir.LocalRef{Local: a}, Right: &mir.LocalRef{Local: b}},
		},
		Terminator: &mir.Return{Value: &mir.LocalRef{Local: r}},
	}
	return &mir.Function{
		Name:       "add",
		Params:     []mir.Local{a, b},
		ReturnType: types.TypeInt,
		Locals:     []mir.Local{a, b, r},
		Blocks:     []*mir.BasicBlock{entry},
		Entry:      entry,
	}
}

func TestEmitSimpleFunction(t *testing.T) {
	program, err := bytecode.Emit(&mir.Module{Functions: []*mir.Function{addFn()}})
	if err != nil {
		t.Fatal(err)
	}
	if len(program.Functions) != 1 {
		t.Fatalf("function table: %d entries", len(program.Functions))
	}
	fn := program.Functions[0]
	if fn.Name != "add" || fn.NumParams != 2 {
		t.Errorf("function info: %+v", fn)
	}

	// load a, load b, binop, store r, load r, return-with-value
	wantOps := []bytecode.Opcode{
		bytecode.OpLoadLocal, bytecode.OpLoadLocal, bytecode.OpBinOp,
		bytecode.OpStoreLocal, bytecode.OpLoadLocal, bytecode.OpReturn,
	}
	if len(fn.Code) != len(wantOps) {
		t.Fatalf("code length %d, want %d", len(fn.Code), len(wantOps))
	}
	for i, want := range wantOps {
		if fn.Code[i].Op != want {
			t.Errorf("instr %d is %d, want %d", i, fn.Code[i].Op, want)
		}
	}
	if fn.Code[2].A != int(bytecode.BinAdd) || fn.Code[2].B != int(bytecode.ClassInt) {
		t.Errorf("binop operands: %+v", fn.Code[2])
	}
	if fn.Code[5].A != 1 {
		t.Error("return must carry a value")
	}
}

func TestBranchTargetsArePatched(t *testing.T) {
	cond := mir.Local{ID: 0, Type: types.TypeBool}
	thenBlock := &mir.BasicBlock{Label: "then", Terminator: &mir.Return{}}
	elseBlock := &mir.BasicBlock{Label: "else", Terminator: &mir.Return{}}
	entry := &mir.BasicBlock{
		Label: "entry",
		Statements: []mir.Statement{
			&mir.Assign{Result: cond, Value: &mir.Literal{Type: types.TypeBool, Value: true}},
		},
		Terminator: &mir.Branch{Condition: &mir.LocalRef{Local: cond}, True: thenBlock, False: elseBlock},
	}
	fn := &mir.Function{
		Name:       "f",
		ReturnType: types.TypeVoid,
		Locals:     []mir.Local{cond},
		Blocks:     []*mir.BasicBlock{entry, thenBlock, elseBlock},
		Entry:      entry,
	}
	program, err := bytecode.Emit(&mir.Module{Functions: []*mir.Function{fn}})
	if err != nil {
		t.Fatal(err)
	}
	code := program.Functions[0].Code
	for _, in := range code {
		if in.Op == bytecode.OpJump || in.Op == bytecode.OpJumpIfFalse {
			if in.A <= 0 || in.A > len(code) {
				t.Errorf("unpatched jump target %d", in.A)
			}
		}
	}
}

func TestConstantPoolInterns(t *testing.T) {
	r1 := mir.Local{ID: 0, Type: types.TypeInt}
	r2 := mir.Local{ID: 1, Type: types.TypeInt}
	entry := &mir.BasicBlock{
		Label: "entry",
		Statements: []mir.Statement{
			&mir.Assign{Result: r1, Value: &mir.Literal{Type: types.TypeInt, Value: int64(42)}},
			&mir.Assign{Result: r2, Value: &mir.Literal{Type: types.TypeInt, Value: int64(42)}},
		},
		Terminator: &mir.Return{Value: &mir.LocalRef{Local: r2}},
	}
	fn := &mir.Function{
		Name: "f", ReturnType: types.TypeInt,
		Locals: []mir.Local{r1, r2},
		Blocks: []*mir.BasicBlock{entry}, Entry: entry,
	}
	program, err := bytecode.Emit(&mir.Module{Functions: []*mir.Function{fn}})
	if err != nil {
		t.Fatal(err)
	}
	if len(program.Consts) != 1 {
		t.Errorf("equal constants must intern to one pool entry, got %d", len(program.Consts))
	}
}

func TestCatchEmitsHandlerWindow(t *testing.T) {
	errLocal := mir.Local{ID: 0, Type: types.TypeUnknown}
	result := mir.Local{ID: 1, Type: types.TypeInt}

	handler := &mir.BasicBlock{Label: "catch"}
	merge := &mir.BasicBlock{Label: "merge", Terminator: &mir.Return{Value: &mir.LocalRef{Local: result}}}
	handler.Statements = []mir.Statement{
		&mir.Assign{Result: result, Value: &mir.Literal{Type: types.TypeInt, Value: int64(0)}},
	}
	handler.Terminator = &mir.Goto{Target: merge}

	throwing := &mir.Function{
		Name:       "explode",
		ReturnType: types.TypeInt,
		Throws:     []*types.ErrorType{{Name: "E"}},
	}
	throwingEntry := &mir.BasicBlock{Label: "entry", Terminator: &mir.Return{Value: &mir.Literal{Type: types.TypeInt, Value: int64(1)}}}
	throwing.Blocks = []*mir.BasicBlock{throwingEntry}
	throwing.Entry = throwingEntry

	entry := &mir.BasicBlock{
		Label: "entry",
		Statements: []mir.Statement{
			&mir.Call{Result: &result, Callee: "explode", CanThrow: true, Handler: handler, ErrLocal: &errLocal},
		},
		Terminator: &mir.Goto{Target: merge},
	}
	caller := &mir.Function{
		Name:       "recover",
		ReturnType: types.TypeInt,
		Locals:     []mir.Local{errLocal, result},
		Blocks:     []*mir.BasicBlock{entry, handler, merge},
		Entry:      entry,
	}

	program, err := bytecode.Emit(&mir.Module{Functions: []*mir.Function{throwing, caller}})
	if err != nil {
		t.Fatal(err)
	}
	var recover *bytecode.FuncInfo
	for _, fn := range program.Functions {
		if fn.Name == "recover" {
			recover = fn
		}
		if fn.Name == "explode" && !fn.MayThrow {
			t.Error("explode must be marked may-throw")
		}
	}
	var sawEnter, sawLeave bool
	for _, in := range recover.Code {
		switch in.Op {
		case bytecode.OpCatchEnter:
			sawEnter = true
		case bytecode.OpCatchLeave:
			sawLeave = true
		}
	}
	if !sawEnter || !sawLeave {
		t.Error("a handled call is bracketed by catch-enter/leave")
	}
}
