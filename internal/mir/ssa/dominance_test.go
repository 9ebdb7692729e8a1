package ssa_test

import (
	"testing"

	"github.com/sarn-lang/sarn/internal/mir"
	"github.com/sarn-lang/sarn/internal/mir/ssa"
	"github.com/sarn-lang/sarn/internal/types"
)

// diamond builds entry -> (left | right) -> merge.
func diamond() (*mir.Function, *mir.BasicBlock, *mir.BasicBlock, *mir.BasicBlock, *mir.BasicBlock) {
	entry := &mir.BasicBlock{Label: "entry"}
	left := &mir.BasicBlock{Label: "left"}
	right := &mir.BasicBlock{Label: "right"}
	merge := &mir.BasicBlock{Label: "merge"}

	cond := &mir.Literal{Type: types.TypeBool, Value: true}
	entry.Terminator = &mir.Branch{Condition: cond, True: left, False: right}
	left.Terminator = &mir.Goto{Target: merge}
	right.Terminator = &mir.Goto{Target: merge}
	merge.Terminator = &mir.Return{}

	fn := &mir.Function{
		Name:       "diamond",
		ReturnType: types.TypeVoid,
		Blocks:     []*mir.BasicBlock{entry, left, right, merge},
		Entry:      entry,
	}
	return fn, entry, left, right, merge
}

func TestDominatorsOfDiamond(t *testing.T) {
	fn, entry, left, right, merge := diamond()
	idom := ssa.ComputeDominators(fn)

	if idom[left] != entry || idom[right] != entry {
		t.Errorf("branch arms must be dominated by entry")
	}
	if idom[merge] != entry {
		t.Errorf("merge's immediate dominator is entry, got %v", idom[merge])
	}
}

func TestDominanceFrontierOfDiamond(t *testing.T) {
	fn, _, left, right, merge := diamond()
	frontiers := ssa.ComputeDominanceFrontier(fn)

	for _, arm := range []*mir.BasicBlock{left, right} {
		found := false
		for _, b := range frontiers[arm] {
			if b == merge {
				found = true
			}
		}
		if !found {
			t.Errorf("%s's dominance frontier must contain merge", arm.Label)
		}
	}
}

func TestFindLoopsDiscoversNaturalLoop(t *testing.T) {
	entry := &mir.BasicBlock{Label: "entry"}
	header := &mir.BasicBlock{Label: "header"}
	body := &mir.BasicBlock{Label: "body"}
	exit := &mir.BasicBlock{Label: "exit"}

	cond := &mir.Literal{Type: types.TypeBool, Value: true}
	entry.Terminator = &mir.Goto{Target: header}
	header.Terminator = &mir.Branch{Condition: cond, True: body, False: exit}
	body.Terminator = &mir.Goto{Target: header}
	exit.Terminator = &mir.Return{}

	fn := &mir.Function{
		Name:       "loop",
		ReturnType: types.TypeVoid,
		Blocks:     []*mir.BasicBlock{entry, header, body, exit},
		Entry:      entry,
	}

	loops := ssa.FindLoops(fn)
	if len(loops) != 1 {
		t.Fatalf("expected 1 loop, got %d", len(loops))
	}
	loop := loops[0]
	if loop.Header != header {
		t.Errorf("loop header is %s", loop.Header.Label)
	}
	if !loop.Blocks[body] || !loop.Blocks[header] {
		t.Errorf("loop must contain header and body")
	}
	if loop.Blocks[entry] || loop.Blocks[exit] {
		t.Errorf("loop must not contain entry or exit")
	}
}
