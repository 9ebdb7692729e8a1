package optimize

import (
	"github.com/sarn-lang/sarn/internal/mir"
)

// DeadCodeElimination removes side-effect-free statements whose result
// is never read, plus blocks unreachable from the entry. It iterates
// until nothing changes, since removing one dead definition can orphan
// another.
func DeadCodeElimination(fn *mir.Function) {
	removeUnreachableBlocks(fn)
	for removeDeadStatements(fn) {
	}
}

func removeDeadStatements(fn *mir.Function) bool {
	used := make(map[int]bool)
	mark := func(op mir.Operand) {
		if ref, ok := op.(*mir.LocalRef); ok {
			used[ref.Local.ID] = true
		}
	}

	for _, block := range fn.Blocks {
		for _, stmt := range block.Statements {
			for _, op := range stmtOperands(stmt) {
				mark(op)
			}
		}
		switch term := block.Terminator.(type) {
		case *mir.Return:
			mark(term.Value)
		case *mir.Branch:
			mark(term.Condition)
		case *mir.Throw:
			mark(term.Value)
		}
	}

	changed := false
	for _, block := range fn.Blocks {
		kept := block.Statements[:0]
		for _, stmt := range block.Statements {
			result, defines := stmtResult(stmt)
			if defines && !used[result.ID] && isPure(stmt) {
				changed = true
				continue
			}
			kept = append(kept, stmt)
		}
		block.Statements = kept
	}
	return changed
}

// isPure reports whether removing an unused statement is unobservable.
// Calls, intrinsics, stores, and anything that can fault at runtime
// (division, indexing, unwrap, slice) must stay.
func isPure(stmt mir.Statement) bool {
	switch s := stmt.(type) {
	case *mir.Assign, *mir.Phi, *mir.LoadField,
		*mir.ConstructStruct, *mir.ConstructList, *mir.ConstructDict,
		*mir.ConstructEnum, *mir.Discriminant, *mir.AccessVariantPayload,
		*mir.ConstructRange, *mir.MakeClosure, *mir.IsNil:
		return true
	case *mir.UnOp:
		return true
	case *mir.BinOp:
		// Integer/float division and modulo fault on zero divisors.
		return s.Op != mir.BinDiv && s.Op != mir.BinMod
	default:
		return false
	}
}

func removeUnreachableBlocks(fn *mir.Function) {
	if fn.Entry == nil {
		return
	}
	reachable := make(map[*mir.BasicBlock]bool)
	stack := []*mir.BasicBlock{fn.Entry}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reachable[b] {
			continue
		}
		reachable[b] = true
		stack = append(stack, b.Successors()...)
	}
	kept := fn.Blocks[:0]
	for _, b := range fn.Blocks {
		if reachable[b] {
			kept = append(kept, b)
		}
	}
	fn.Blocks = kept
}

// stmtOperands returns every operand a statement reads.
func stmtOperands(stmt mir.Statement) []mir.Operand {
	switch s := stmt.(type) {
	case *mir.Assign:
		return []mir.Operand{s.Value}
	case *mir.BinOp:
		return []mir.Operand{s.Left, s.Right}
	case *mir.UnOp:
		return []mir.Operand{s.Operand}
	case *mir.Phi:
		out := make([]mir.Operand, 0, len(s.Inputs))
		for _, op := range s.Inputs {
			out = append(out, op)
		}
		return out
	case *mir.Call:
		out := append([]mir.Operand{}, s.Args...)
		if s.CalleeOperand != nil {
			out = append(out, s.CalleeOperand)
		}
		return out
	case *mir.CallIntrinsic:
		return s.Args
	case *mir.LoadField:
		return []mir.Operand{s.Target}
	case *mir.StoreField:
		return []mir.Operand{s.Target, s.Value}
	case *mir.LoadIndex:
		return []mir.Operand{s.Target, s.Index}
	case *mir.StoreIndex:
		return []mir.Operand{s.Target, s.Index, s.Value}
	case *mir.ConstructStruct:
		out := make([]mir.Operand, 0, len(s.Fields))
		for _, f := range s.Fields {
			out = append(out, f.Value)
		}
		return out
	case *mir.ConstructList:
		return s.Elements
	case *mir.ConstructDict:
		return append(append([]mir.Operand{}, s.Keys...), s.Values...)
	case *mir.ConstructEnum:
		return s.Values
	case *mir.Discriminant:
		return []mir.Operand{s.Target}
	case *mir.AccessVariantPayload:
		return []mir.Operand{s.Target}
	case *mir.ConstructRange:
		return []mir.Operand{s.Start, s.End}
	case *mir.Slice:
		out := []mir.Operand{s.Target}
		if s.Start != nil {
			out = append(out, s.Start)
		}
		if s.End != nil {
			out = append(out, s.End)
		}
		return out
	case *mir.MakeClosure:
		return s.Captures
	case *mir.UnwrapOptional:
		return []mir.Operand{s.Operand}
	case *mir.IsNil:
		return []mir.Operand{s.Operand}
	default:
		return nil
	}
}
