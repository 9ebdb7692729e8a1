package optimize_test

import (
	"strings"
	"testing"

	"github.com/sarn-lang/sarn/internal/mir"
	"github.com/sarn-lang/sarn/internal/mir/optimize"
	"github.com/sarn-lang/sarn/internal/types"
)

func intLit(v int64) *mir.Literal {
	return &mir.Literal{Type: types.TypeInt, Value: v}
}

func local(id int) mir.Local {
	return mir.Local{ID: id, Type: types.TypeInt}
}

func TestConstantPropagationFoldsLiterals(t *testing.T) {
	result := local(0)
	block := &mir.BasicBlock{
		Label: "entry",
		Statements: []mir.Statement{
			&mir.BinOp{Result: result, Op: mir.BinAdd, Left: intLit(2), Right: intLit(3)},
		},
		Terminator: &mir.Return{Value: &mir.LocalRef{Local: result}},
	}
	fn := &mir.Function{Name: "f", ReturnType: types.TypeInt, Blocks: []*mir.BasicBlock{block}, Entry: block}

	optimize.ConstantPropagation(fn)

	assign, ok := block.Statements[0].(*mir.Assign)
	if !ok {
		t.Fatalf("expected folded assign, got %T", block.Statements[0])
	}
	lit, ok := assign.Value.(*mir.Literal)
	if !ok || lit.Value.(int64) != 5 {
		t.Errorf("2 + 3 must fold to 5, got %v", assign.Value)
	}
}

func TestConstantPropagationLeavesDivisionByZero(t *testing.T) {
	result := local(0)
	block := &mir.BasicBlock{
		Label: "entry",
		Statements: []mir.Statement{
			&mir.BinOp{Result: result, Op: mir.BinDiv, Left: intLit(1), Right: intLit(0)},
		},
		Terminator: &mir.Return{Value: &mir.LocalRef{Local: result}},
	}
	fn := &mir.Function{Name: "f", ReturnType: types.TypeInt, Blocks: []*mir.BasicBlock{block}, Entry: block}

	optimize.ConstantPropagation(fn)

	if _, still := block.Statements[0].(*mir.BinOp); !still {
		t.Errorf("a faulting division must stay for the runtime, got %T", block.Statements[0])
	}
}

func TestConstantBranchBecomesGoto(t *testing.T) {
	thenBlock := &mir.BasicBlock{Label: "then", Terminator: &mir.Return{}}
	elseBlock := &mir.BasicBlock{Label: "else", Terminator: &mir.Return{}}
	entry := &mir.BasicBlock{
		Label:      "entry",
		Terminator: &mir.Branch{Condition: &mir.Literal{Type: types.TypeBool, Value: true}, True: thenBlock, False: elseBlock},
	}
	fn := &mir.Function{Name: "f", ReturnType: types.TypeVoid, Blocks: []*mir.BasicBlock{entry, thenBlock, elseBlock}, Entry: entry}

	optimize.ConstantPropagation(fn)

	g, ok := entry.Terminator.(*mir.Goto)
	if !ok || g.Target != thenBlock {
		t.Errorf("branch on true must become goto then, got %v", entry.Terminator)
	}
}

func TestDeadCodeEliminationDropsUnusedPureDefs(t *testing.T) {
	dead := local(0)
	live := local(1)
	block := &mir.BasicBlock{
		Label: "entry",
		Statements: []mir.Statement{
			&mir.Assign{Result: dead, Value: intLit(1)},
			&mir.Assign{Result: live, Value: intLit(2)},
		},
		Terminator: &mir.Return{Value: &mir.LocalRef{Local: live}},
	}
	fn := &mir.Function{Name: "f", ReturnType: types.TypeInt, Blocks: []*mir.BasicBlock{block}, Entry: block}

	optimize.DeadCodeElimination(fn)

	if len(block.Statements) != 1 {
		t.Fatalf("expected 1 surviving statement, got %d", len(block.Statements))
	}
	if result, _ := block.Statements[0].(*mir.Assign); result.Result.ID != live.ID {
		t.Errorf("the live definition must survive")
	}
}

func TestDeadCodeEliminationKeepsCalls(t *testing.T) {
	unused := local(0)
	block := &mir.BasicBlock{
		Label: "entry",
		Statements: []mir.Statement{
			&mir.Call{Result: &unused, Callee: "effectful"},
		},
		Terminator: &mir.Return{},
	}
	fn := &mir.Function{Name: "f", ReturnType: types.TypeVoid, Blocks: []*mir.BasicBlock{block}, Entry: block}

	optimize.DeadCodeElimination(fn)

	if len(block.Statements) != 1 {
		t.Errorf("calls have effects and must survive DCE")
	}
}

func TestDeadCodeEliminationRemovesUnreachableBlocks(t *testing.T) {
	entry := &mir.BasicBlock{Label: "entry", Terminator: &mir.Return{}}
	orphan := &mir.BasicBlock{Label: "orphan", Terminator: &mir.Return{}}
	fn := &mir.Function{Name: "f", ReturnType: types.TypeVoid, Blocks: []*mir.BasicBlock{entry, orphan}, Entry: entry}

	optimize.DeadCodeElimination(fn)

	if len(fn.Blocks) != 1 || fn.Blocks[0] != entry {
		t.Errorf("orphan block must be removed, blocks: %d", len(fn.Blocks))
	}
}

func TestLICMHoistsInvariantComputation(t *testing.T) {
	// preheader -> header -> body -> header; body computes an invariant.
	invariant := local(0)
	counter := local(1)
	limit := local(2)

	preheader := &mir.BasicBlock{Label: "preheader"}
	header := &mir.BasicBlock{Label: "header"}
	body := &mir.BasicBlock{Label: "body"}
	exit := &mir.BasicBlock{Label: "exit", Terminator: &mir.Return{}}

	preheader.Statements = []mir.Statement{
		&mir.Assign{Result: limit, Value: intLit(100)},
		&mir.Assign{Result: counter, Value: intLit(0)},
	}
	preheader.Terminator = &mir.Goto{Target: header}

	condReg := local(3)
	header.Statements = []mir.Statement{
		&mir.BinOp{Result: condReg, Op: mir.BinLt, Left: &mir.LocalRef{Local: counter}, Right: &mir.LocalRef{Local: limit}},
	}
	header.Terminator = &mir.Branch{Condition: &mir.LocalRef{Local: condReg}, True: body, False: exit}

	body.Statements = []mir.Statement{
		// Invariant: both operands defined outside the loop.
		&mir.BinOp{Result: invariant, Op: mir.BinMul, Left: &mir.LocalRef{Local: limit}, Right: intLit(2)},
		&mir.BinOp{Result: counter, Op: mir.BinAdd, Left: &mir.LocalRef{Local: counter}, Right: &mir.LocalRef{Local: invariant}},
	}
	body.Terminator = &mir.Goto{Target: header}

	fn := &mir.Function{
		Name:       "f",
		ReturnType: types.TypeVoid,
		Blocks:     []*mir.BasicBlock{preheader, header, body, exit},
		Entry:      preheader,
	}

	optimize.LoopInvariantCodeMotion(fn)

	hoisted := false
	for _, stmt := range preheader.Statements {
		if b, ok := stmt.(*mir.BinOp); ok && b.Result.ID == invariant.ID {
			hoisted = true
		}
	}
	if !hoisted {
		t.Errorf("invariant multiply must hoist to the preheader:\n%s", mir.PrettyFunction(fn))
	}
	for _, stmt := range body.Statements {
		if b, ok := stmt.(*mir.BinOp); ok && b.Result.ID == invariant.ID {
			t.Errorf("hoisted statement must leave the body")
		}
	}
	if !strings.Contains(mir.PrettyFunction(fn), "mul") {
		t.Errorf("the multiply must still exist somewhere")
	}
}
