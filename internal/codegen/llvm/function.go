package llvm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sarn-lang/sarn/internal/mir"
	"github.com/sarn-lang/sarn/internal/mir/ssa"
	"github.com/sarn-lang/sarn/internal/runtime"
	"github.com/sarn-lang/sarn/internal/types"
)

// fnEmitter lowers one function. Every local is promoted: a binding
// with a single definition becomes a plain SSA value; a mutated binding
// gets φ nodes at its iterated dominance frontier and is renamed along
// the dominator tree. No scalar local ever touches memory — loop
// accumulators live in registers with a φ in the loop header, which is
// the whole point of the pass. Only by-reference captures take the
// pointer variant, as heap cells shared with the closure.
type fnEmitter struct {
	g  *Generator
	fn *mir.Function

	regSeq   int
	labelSeq int

	localTypes map[int]types.Type
	mutated    map[int]bool
	ssaVals    map[int]string // single-definition locals
	cellPtr    map[int]string // by-ref-captured locals -> cell pointer

	phiRegs  map[*mir.BasicBlock]map[int]string
	phiOrder map[*mir.BasicBlock][]int

	defs map[int]string // current renaming state during the dominator walk

	edges []edgeRec

	blockText map[*mir.BasicBlock]*strings.Builder
	emitOrder []*mir.BasicBlock
	cur       *strings.Builder
	curLabel  string

	idom     map[*mir.BasicBlock]*mir.BasicBlock
	children map[*mir.BasicBlock][]*mir.BasicBlock
}

// edgeRec is one CFG edge as actually emitted, with the renaming state
// crossing it; φ incoming lists are assembled from these.
type edgeRec struct {
	fromLabel string
	to        *mir.BasicBlock
	defs      map[int]string
}

func (g *Generator) emitFunction(fn *mir.Function) error {
	e := &fnEmitter{
		g:          g,
		fn:         fn,
		localTypes: make(map[int]types.Type),
		mutated:    make(map[int]bool),
		ssaVals:    make(map[int]string),
		cellPtr:    make(map[int]string),
		phiRegs:    make(map[*mir.BasicBlock]map[int]string),
		phiOrder:   make(map[*mir.BasicBlock][]int),
		defs:       make(map[int]string),
		blockText:  make(map[*mir.BasicBlock]*strings.Builder),
	}
	return e.emit()
}

func (e *fnEmitter) emit() error {
	fn := e.fn
	for _, l := range fn.Locals {
		e.localTypes[l.ID] = l.Type
	}
	for _, p := range fn.Params {
		e.localTypes[p.ID] = p.Type
	}

	e.analyzeMutation()
	e.findCellLocals()
	e.placePhis()

	e.idom = ssa.ComputeDominators(fn)
	e.children = make(map[*mir.BasicBlock][]*mir.BasicBlock)
	for _, b := range fn.Blocks {
		if parent := e.idom[b]; parent != nil {
			e.children[parent] = append(e.children[parent], b)
		}
	}

	if err := e.walk(fn.Entry, e.defs); err != nil {
		return err
	}

	e.assemble()
	return nil
}

// analyzeMutation counts definitions per local: parameters and capture
// materializations define once at entry, then every defining statement
// and every call error-edge adds one. A single definition keeps the
// binding as a plain SSA value.
func (e *fnEmitter) analyzeMutation() {
	counts := make(map[int]int)
	for _, p := range e.fn.Params {
		counts[p.ID]++
	}
	for _, cl := range e.fn.CaptureLocals {
		counts[cl.ID]++
	}
	for _, b := range e.fn.Blocks {
		for _, stmt := range b.Statements {
			if result, ok := stmtResult(stmt); ok {
				counts[result.ID]++
			}
			if call, ok := stmt.(*mir.Call); ok && call.Handler != nil && call.ErrLocal != nil {
				counts[call.ErrLocal.ID]++
			}
		}
	}
	for id, n := range counts {
		if n > 1 {
			e.mutated[id] = true
		}
	}
}

// findCellLocals marks this function's locals captured by reference by
// a closure it creates, plus its own by-ref capture locals.
func (e *fnEmitter) findCellLocals() {
	for i, cap := range e.fn.Captures {
		if cap.ByRef {
			e.cellPtr[e.fn.CaptureLocals[i].ID] = "" // filled in the prologue
		}
	}
	for _, b := range e.fn.Blocks {
		for _, stmt := range b.Statements {
			mk, ok := stmt.(*mir.MakeClosure)
			if !ok {
				continue
			}
			lifted := e.g.module.FunctionByName(mk.Func)
			if lifted == nil {
				continue
			}
			for i, cap := range lifted.Captures {
				if !cap.ByRef || i >= len(mk.Captures) {
					continue
				}
				if ref, ok := mk.Captures[i].(*mir.LocalRef); ok {
					e.cellPtr[ref.Local.ID] = ""
				}
			}
		}
	}
}

func (e *fnEmitter) isCell(id int) bool {
	_, ok := e.cellPtr[id]
	return ok
}

// placePhis inserts φ placeholders for every mutated local at the
// iterated dominance frontier of its definition blocks.
func (e *fnEmitter) placePhis() {
	frontiers := ssa.ComputeDominanceFrontier(e.fn)

	defBlocks := make(map[int][]*mir.BasicBlock)
	note := func(id int, b *mir.BasicBlock) {
		defBlocks[id] = append(defBlocks[id], b)
	}
	for _, p := range e.fn.Params {
		note(p.ID, e.fn.Entry)
	}
	for _, cl := range e.fn.CaptureLocals {
		note(cl.ID, e.fn.Entry)
	}
	for _, b := range e.fn.Blocks {
		for _, stmt := range b.Statements {
			if result, ok := stmtResult(stmt); ok {
				note(result.ID, b)
			}
			if call, ok := stmt.(*mir.Call); ok && call.Handler != nil && call.ErrLocal != nil {
				note(call.ErrLocal.ID, b)
			}
		}
	}

	// Deterministic order: the IR text feeds the content-addressed
	// artifact cache, so equal input must emit byte-equal output.
	ids := make([]int, 0, len(defBlocks))
	for id := range defBlocks {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		blocks := defBlocks[id]
		if !e.mutated[id] || e.isCell(id) {
			continue
		}
		work := append([]*mir.BasicBlock{}, blocks...)
		placed := make(map[*mir.BasicBlock]bool)
		for len(work) > 0 {
			b := work[0]
			work = work[1:]
			for _, df := range frontiers[b] {
				if placed[df] {
					continue
				}
				placed[df] = true
				if e.phiRegs[df] == nil {
					e.phiRegs[df] = make(map[int]string)
				}
				e.phiRegs[df][id] = e.reg()
				e.phiOrder[df] = append(e.phiOrder[df], id)
				work = append(work, df)
			}
		}
	}
}

func (e *fnEmitter) reg() string {
	e.regSeq++
	return fmt.Sprintf("%%t%d", e.regSeq)
}

func (e *fnEmitter) label(hint string) string {
	e.labelSeq++
	return fmt.Sprintf("%s.%d", hint, e.labelSeq)
}

func (e *fnEmitter) line(format string, args ...any) {
	fmt.Fprintf(e.cur, "  "+format+"\n", args...)
}

// openLabel starts an inline basic block inside the current MIR block's
// text (fault paths, error-pending checks); later φ edges from this MIR
// block reference the label current at branch time.
func (e *fnEmitter) openLabel(label string) {
	fmt.Fprintf(e.cur, "%s:\n", label)
	e.curLabel = label
}

func (e *fnEmitter) edge(to *mir.BasicBlock) {
	snapshot := make(map[int]string, len(e.defs))
	for k, v := range e.defs {
		snapshot[k] = v
	}
	e.edges = append(e.edges, edgeRec{fromLabel: e.curLabel, to: to, defs: snapshot})
}

// setDef records a new definition of a local.
func (e *fnEmitter) setDef(local mir.Local, value string) {
	if e.isCell(local.ID) {
		e.storeCell(local, value)
		return
	}
	if e.mutated[local.ID] {
		e.defs[local.ID] = value
		return
	}
	e.ssaVals[local.ID] = value
}

// readLocal resolves a local to its current value.
func (e *fnEmitter) readLocal(local mir.Local) string {
	if e.isCell(local.ID) {
		return e.loadCell(local)
	}
	if e.mutated[local.ID] {
		if v, ok := e.defs[local.ID]; ok {
			return v
		}
		return zeroValue(local.Type)
	}
	if v, ok := e.ssaVals[local.ID]; ok {
		return v
	}
	return zeroValue(local.Type)
}

func (e *fnEmitter) loadCell(local mir.Local) string {
	e.g.declare(runtime.SymCellGet, "ptr @"+runtime.SymCellGet+"(ptr)")
	boxed := e.reg()
	e.line("%s = call ptr @%s(ptr %s)", boxed, runtime.SymCellGet, e.cellPtr[local.ID])
	return e.unbox(boxed, local.Type)
}

func (e *fnEmitter) storeCell(local mir.Local, value string) {
	e.g.declare(runtime.SymCellSet, "void @"+runtime.SymCellSet+"(ptr, ptr)")
	boxed := e.box(value, local.Type)
	e.line("call void @%s(ptr %s, ptr %s)", runtime.SymCellSet, e.cellPtr[local.ID], boxed)
}

// walk emits blocks in dominator-tree preorder, carrying the renaming
// state; each child starts from its dominator's end state plus its own
// φ definitions.
func (e *fnEmitter) walk(b *mir.BasicBlock, inherited map[int]string) error {
	e.defs = inherited
	e.cur = &strings.Builder{}
	e.blockText[b] = e.cur
	e.emitOrder = append(e.emitOrder, b)
	e.curLabel = b.Label

	for _, id := range e.phiOrder[b] {
		e.defs[id] = e.phiRegs[b][id]
	}

	if b == e.fn.Entry {
		e.prologue()
	}

	for _, stmt := range b.Statements {
		if err := e.emitStmt(stmt); err != nil {
			return err
		}
	}
	if err := e.emitTerminator(b.Terminator); err != nil {
		return err
	}

	endState := e.defs
	for _, child := range e.children[b] {
		cloned := make(map[int]string, len(endState))
		for k, v := range endState {
			cloned[k] = v
		}
		if err := e.walk(child, cloned); err != nil {
			return err
		}
	}
	return nil
}

// prologue binds parameters, materializes captures, and allocates cells
// for by-ref-captured locals.
func (e *fnEmitter) prologue() {
	for i, p := range e.fn.Params {
		reg := fmt.Sprintf("%%arg%d", i)
		if e.isCell(p.ID) {
			e.allocCell(p.ID)
			e.storeCell(p, reg)
			continue
		}
		e.setDef(p, reg)
	}

	if e.fn.IsClosure {
		e.g.declare(runtime.SymClosureCapture, "ptr @"+runtime.SymClosureCapture+"(ptr, i64)")
		for i, cl := range e.fn.CaptureLocals {
			boxed := e.reg()
			e.line("%s = call ptr @%s(ptr %%__env, i64 %d)", boxed, runtime.SymClosureCapture, i)
			if e.fn.Captures[i].ByRef {
				// The capture slot holds the shared cell itself.
				e.cellPtr[cl.ID] = boxed
				continue
			}
			e.setDef(cl, e.unbox(boxed, cl.Type))
		}
	}

	// Cells for locals a closure created here captures by reference.
	for _, l := range e.fn.Locals {
		if e.isCell(l.ID) && e.cellPtr[l.ID] == "" && !isParamID(e.fn, l.ID) {
			e.allocCell(l.ID)
		}
	}
}

func isParamID(fn *mir.Function, id int) bool {
	for _, p := range fn.Params {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (e *fnEmitter) allocCell(id int) {
	e.g.declare(runtime.SymCellNew, "ptr @"+runtime.SymCellNew+"(ptr)")
	cell := e.reg()
	e.line("%s = call ptr @%s(ptr null)", cell, runtime.SymCellNew)
	e.cellPtr[id] = cell
}

// assemble writes the function definition: signature, blocks in
// emission order, φ lines resolved from the recorded edges.
func (e *fnEmitter) assemble() {
	fn := e.fn
	out := &e.g.body

	var params []string
	for i, p := range fn.Params {
		params = append(params, fmt.Sprintf("%s %%arg%d", llvmType(p.Type), i))
	}
	params = append(params, "ptr %__env")

	attr := e.attrFor(fn)
	fmt.Fprintf(out, "define %s @%s(%s)%s {\n",
		llvmType(fn.ReturnType), symbolFor(fn.Name), strings.Join(params, ", "), attr)

	for _, b := range e.emitOrder {
		fmt.Fprintf(out, "%s:\n", b.Label)
		for _, id := range e.phiOrder[b] {
			t := llvmType(e.localTypes[id])
			var incoming []string
			for _, edge := range e.edges {
				if edge.to != b {
					continue
				}
				v, ok := edge.defs[id]
				if !ok {
					v = zeroValue(e.localTypes[id])
				}
				incoming = append(incoming, fmt.Sprintf("[ %s, %%%s ]", v, edge.fromLabel))
			}
			fmt.Fprintf(out, "  %s = phi %s %s\n", e.phiRegs[b][id], t, strings.Join(incoming, ", "))
		}
		out.WriteString(e.blockText[b].String())
	}
	out.WriteString("}\n\n")
}

// attrFor picks the attribute group: always-inline for small, leaf,
// pure functions; no-throw for functions that cannot raise.
func (e *fnEmitter) attrFor(fn *mir.Function) string {
	if fn.MayThrow() {
		return ""
	}
	stmts, leaf, pure := 0, true, true
	for _, b := range fn.Blocks {
		stmts += len(b.Statements)
		for _, s := range b.Statements {
			switch s.(type) {
			case *mir.Call:
				leaf = false
			case *mir.CallIntrinsic, *mir.StoreField, *mir.StoreIndex, *mir.MakeClosure:
				pure = false
			}
		}
	}
	if leaf && pure && stmts <= 8 {
		return " #0"
	}
	return " #1"
}

// stmtResult mirrors the optimize package's view of which statements
// define a local.
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
