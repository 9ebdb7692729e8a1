// Package ssa holds the CFG analyses under the LLVM emitter's φ
// promotion: dominators, dominance frontiers, and natural-loop
// discovery via back edges.
package ssa

import (
	"github.com/sarn-lang/sarn/internal/mir"
)

// Predecessors maps each block to its predecessor blocks.
func Predecessors(fn *mir.Function) map[*mir.BasicBlock][]*mir.BasicBlock {
	preds := make(map[*mir.BasicBlock][]*mir.BasicBlock, len(fn.Blocks))
	for _, block := range fn.Blocks {
		preds[block] = nil
	}
	for _, block := range fn.Blocks {
		for _, succ := range block.Successors() {
			preds[succ] = append(preds[succ], block)
		}
	}
	return preds
}

// ComputeDominators computes each block's immediate dominator by
// iteration to a fixed point (the entry maps to nil).
func ComputeDominators(fn *mir.Function) map[*mir.BasicBlock]*mir.BasicBlock {
	idom := make(map[*mir.BasicBlock]*mir.BasicBlock)
	if fn.Entry == nil || len(fn.Blocks) == 0 {
		return idom
	}
	preds := Predecessors(fn)
	idom[fn.Entry] = nil

	changed := true
	for changed {
		changed = false
		for _, block := range fn.Blocks {
			if block == fn.Entry {
				continue
			}
			var newDom *mir.BasicBlock
			for _, pred := range preds[block] {
				if _, processed := idom[pred]; !processed && pred != fn.Entry {
					continue
				}
				if newDom == nil {
					newDom = pred
				} else {
					newDom = intersect(pred, newDom, idom)
				}
			}
			if newDom != nil && idom[block] != newDom {
				idom[block] = newDom
				changed = true
			}
		}
	}
	return idom
}

// intersect walks both blocks up the dominator tree to their common
// ancestor.
func intersect(b1, b2 *mir.BasicBlock, idom map[*mir.BasicBlock]*mir.BasicBlock) *mir.BasicBlock {
	onPath := make(map[*mir.BasicBlock]bool)
	for cur := b1; cur != nil; cur = idom[cur] {
		onPath[cur] = true
	}
	for cur := b2; cur != nil; cur = idom[cur] {
		if onPath[cur] {
			return cur
		}
	}
	return nil
}

// Dominates reports whether a dominates b (reflexively).
func Dominates(a, b *mir.BasicBlock, idom map[*mir.BasicBlock]*mir.BasicBlock) bool {
	for cur := b; cur != nil; cur = idom[cur] {
		if cur == a {
			return true
		}
	}
	return false
}

// ComputeDominanceFrontier computes each block's dominance frontier:
// the blocks where its definitions stop dominating, which is exactly
// where φ nodes go.
func ComputeDominanceFrontier(fn *mir.Function) map[*mir.BasicBlock][]*mir.BasicBlock {
	idom := ComputeDominators(fn)
	preds := Predecessors(fn)
	frontiers := make(map[*mir.BasicBlock][]*mir.BasicBlock, len(fn.Blocks))

	for _, block := range fn.Blocks {
		if len(preds[block]) < 2 {
			continue
		}
		for _, pred := range preds[block] {
			runner := pred
			for runner != nil && runner != idom[block] {
				frontiers[runner] = appendUnique(frontiers[runner], block)
				runner = idom[runner]
			}
		}
	}
	return frontiers
}

func appendUnique(blocks []*mir.BasicBlock, b *mir.BasicBlock) []*mir.BasicBlock {
	for _, existing := range blocks {
		if existing == b {
			return blocks
		}
	}
	return append(blocks, b)
}

// Loop is one natural loop: its header and member blocks.
type Loop struct {
	Header *mir.BasicBlock
	Blocks map[*mir.BasicBlock]bool
}

// FindLoops discovers natural loops from back edges (an edge whose
// target dominates its source). Loops sharing a header merge.
func FindLoops(fn *mir.Function) []*Loop {
	idom := ComputeDominators(fn)
	preds := Predecessors(fn)

	byHeader := make(map[*mir.BasicBlock]*Loop)
	var order []*mir.BasicBlock

	for _, block := range fn.Blocks {
		for _, succ := range block.Successors() {
			if !Dominates(succ, block, idom) {
				continue
			}
			loop := byHeader[succ]
			if loop == nil {
				loop = &Loop{Header: succ, Blocks: map[*mir.BasicBlock]bool{succ: true}}
				byHeader[succ] = loop
				order = append(order, succ)
			}
			// Walk predecessors backward from the latch to the header.
			stack := []*mir.BasicBlock{block}
			for len(stack) > 0 {
				b := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if loop.Blocks[b] {
					continue
				}
				loop.Blocks[b] = true
				stack = append(stack, preds[b]...)
			}
		}
	}

	loops := make([]*Loop, 0, len(order))
	for _, header := range order {
		loops = append(loops, byHeader[header])
	}
	return loops
}
