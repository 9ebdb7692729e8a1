package optimize

import (
	"github.com/sarn-lang/sarn/internal/mir"
	"github.com/sarn-lang/sarn/internal/mir/ssa"
)

// LoopInvariantCodeMotion hoists pure statements out of natural loops
// when every operand is defined outside the loop and the result local
// has exactly one definition in the function. Hoisted statements land in
// the loop's preheader (the unique non-back-edge predecessor of the
// header); loops without one are left alone.
func LoopInvariantCodeMotion(fn *mir.Function) {
	loops := ssa.FindLoops(fn)
	if len(loops) == 0 {
		return
	}

	defCounts := make(map[int]int)
	for _, block := range fn.Blocks {
		for _, stmt := range block.Statements {
			if result, ok := stmtResult(stmt); ok {
				defCounts[result.ID]++
			}
		}
	}

	preds := ssa.Predecessors(fn)

	for _, loop := range loops {
		preheader := findPreheader(loop, preds)
		if preheader == nil {
			continue
		}

		definedInLoop := make(map[int]bool)
		for block := range loop.Blocks {
			for _, stmt := range block.Statements {
				if result, ok := stmtResult(stmt); ok {
					definedInLoop[result.ID] = true
				}
			}
		}

		for changed := true; changed; {
			changed = false
			for block := range loop.Blocks {
				kept := block.Statements[:0]
				for _, stmt := range block.Statements {
					if canHoist(stmt, definedInLoop, defCounts) {
						insertBeforeTerminator(preheader, stmt)
						if result, ok := stmtResult(stmt); ok {
							delete(definedInLoop, result.ID)
						}
						changed = true
						continue
					}
					kept = append(kept, stmt)
				}
				block.Statements = kept
			}
		}
	}
}

func canHoist(stmt mir.Statement, definedInLoop map[int]bool, defCounts map[int]int) bool {
	if !isPure(stmt) {
		return false
	}
	if _, isPhi := stmt.(*mir.Phi); isPhi {
		return false
	}
	result, ok := stmtResult(stmt)
	if !ok || defCounts[result.ID] != 1 {
		return false
	}
	for _, op := range stmtOperands(stmt) {
		if ref, isRef := op.(*mir.LocalRef); isRef && definedInLoop[ref.Local.ID] {
			return false
		}
	}
	return true
}

// findPreheader returns the unique predecessor of the loop header that
// sits outside the loop and jumps to it unconditionally.
func findPreheader(loop *ssa.Loop, preds map[*mir.BasicBlock][]*mir.BasicBlock) *mir.BasicBlock {
	var preheader *mir.BasicBlock
	for _, pred := range preds[loop.Header] {
		if loop.Blocks[pred] {
			continue
		}
		if preheader != nil {
			return nil
		}
		preheader = pred
	}
	if preheader == nil {
		return nil
	}
	if g, ok := preheader.Terminator.(*mir.Goto); !ok || g.Target != loop.Header {
		return nil
	}
	return preheader
}

func insertBeforeTerminator(block *mir.BasicBlock, stmt mir.Statement) {
	block.Statements = append(block.Statements, stmt)
}
