// Package optimize holds the optional MIR passes: constant propagation,
// dead-code elimination, and loop-invariant code motion. None of them
// change observable behavior; the driver enables them per optimization
// level.
package optimize

import (
	"github.com/sarn-lang/sarn/internal/mir"
)

// ConstantPropagation folds binary/unary operations over literal
// operands and forwards single-assignment literal locals into their
// uses. Folding goes through the same arith semantics as the VM, so a
// fold can never disagree with runtime evaluation; operations that
// would fault at runtime (division by zero) are left in place for the
// backends to materialize the fault.
func ConstantPropagation(fn *mir.Function) {
	for changed := true; changed; {
		changed = false

		literals := singleAssignedLiterals(fn)

		for _, block := range fn.Blocks {
			for i, stmt := range block.Statements {
				switch s := stmt.(type) {
				case *mir.BinOp:
					left := resolveLiteral(s.Left, literals)
					right := resolveLiteral(s.Right, literals)
					if left == nil || right == nil {
						continue
					}
					folded, err := mir.FoldBinOp(s.Op, left, right)
					if err != nil {
						continue
					}
					block.Statements[i] = &mir.Assign{Result: s.Result, Value: folded}
					changed = true

				case *mir.UnOp:
					operand := resolveLiteral(s.Operand, literals)
					if operand == nil {
						continue
					}
					if folded := foldUnOp(s.Op, operand); folded != nil {
						block.Statements[i] = &mir.Assign{Result: s.Result, Value: folded}
						changed = true
					}
				}
			}

			// A branch on a known condition becomes a goto.
			if br, ok := block.Terminator.(*mir.Branch); ok {
				if cond := resolveLiteral(br.Condition, literals); cond != nil {
					if v, ok := cond.Value.(bool); ok {
						target := br.False
						if v {
							target = br.True
						}
						block.Terminator = &mir.Goto{Target: target}
						changed = true
					}
				}
			}
		}
	}
}

func foldUnOp(op mir.UnKind, lit *mir.Literal) *mir.Literal {
	switch op {
	case mir.UnNeg:
		switch v := lit.Value.(type) {
		case int64:
			return &mir.Literal{Type: lit.Type, Value: -v}
		case float64:
			return &mir.Literal{Type: lit.Type, Value: -v}
		}
	case mir.UnNot:
		if v, ok := lit.Value.(bool); ok {
			return &mir.Literal{Type: lit.Type, Value: !v}
		}
	}
	return nil
}

// singleAssignedLiterals finds locals assigned exactly once in the whole
// function, with a literal value. Only those forward safely without a
// dataflow analysis.
func singleAssignedLiterals(fn *mir.Function) map[int]*mir.Literal {
	counts := make(map[int]int)
	value := make(map[int]*mir.Literal)
	for _, block := range fn.Blocks {
		for _, stmt := range block.Statements {
			result, ok := stmtResult(stmt)
			if !ok {
				continue
			}
			counts[result.ID]++
			if assign, ok := stmt.(*mir.Assign); ok {
				if lit, ok := assign.Value.(*mir.Literal); ok {
					value[result.ID] = lit
				}
			}
		}
	}
	out := make(map[int]*mir.Literal)
	for id, lit := range value {
		if counts[id] == 1 {
			out[id] = lit
		}
	}
	return out
}

func resolveLiteral(op mir.Operand, literals map[int]*mir.Literal) *mir.Literal {
	switch o := op.(type) {
	case *mir.Literal:
		return o
	case *mir.LocalRef:
		return literals[o.Local.ID]
	default:
		return nil
	}
}

// stmtResult returns the local a statement defines, when it defines one.
func stmtResult(stmt mir.Statement) (mir.Local, bool) {
	switch s := stmt.(type) {
	case *mir.Assign:
		return s.Result, true
	case *mir.BinOp:
		return s.Result, true
	case *mir.UnOp:
		return s.Result, true
	case *mir.Phi:
		return s.Result, true
	case *mir.Call:
		if s.Result != nil {
			return *s.Result, true
		}
	case *mir.CallIntrinsic:
		if s.Result != nil {
			return *s.Result, true
		}
	case *mir.LoadField:
		return s.Result, true
	case *mir.LoadIndex:
		return s.Result, true
	case *mir.ConstructStruct:
		return s.Result, true
	case *mir.ConstructList:
		return s.Result, true
	case *mir.ConstructDict:
		return s.Result, true
	case *mir.ConstructEnum:
		return s.Result, true
	case *mir.Discriminant:
		return s.Result, true
	case *mir.AccessVariantPayload:
		return s.Result, true
	case *mir.ConstructRange:
		return s.Result, true
	case *mir.Slice:
		return s.Result, true
	case *mir.MakeClosure:
		return s.Result, true
	case *mir.UnwrapOptional:
		return s.Result, true
	case *mir.IsNil:
		return s.Result, true
	}
	return mir.Local{}, false
}
