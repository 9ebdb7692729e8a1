package bytecode

import (
	"fmt"

	"github.com/sarn-lang/sarn/internal/mir"
	"github.com/sarn-lang/sarn/internal/runtime"
	"github.com/sarn-lang/sarn/internal/types"
)

// Emitter lowers a MIR module to a Program.
type Emitter struct {
	program    *Program
	funcIndex  map[string]int
	constIndex map[string]int
	shapeIndex map[string]int

	// Per-function state.
	module     *mir.Module
	fn         *mir.Function
	info       *FuncInfo
	slots      map[int]int
	cellLocals map[int]bool
	blockPC    map[*mir.BasicBlock]int
	patches    []patch
	handlerErr map[*mir.BasicBlock]*mir.Local
}

type patch struct {
	pc     int
	target *mir.BasicBlock
}

// NewEmitter creates an emitter.
func NewEmitter() *Emitter {
	return &Emitter{
		program:    &Program{},
		funcIndex:  make(map[string]int),
		constIndex: make(map[string]int),
		shapeIndex: make(map[string]int),
	}
}

// Emit lowers a monomorphized MIR module.
func Emit(module *mir.Module) (*Program, error) {
	e := NewEmitter()
	return e.emitModule(module)
}

func (e *Emitter) emitModule(module *mir.Module) (*Program, error) {
	e.module = module

	// The function table is built before any body so direct calls can
	// reference their table index in one pass.
	for _, fn := range module.Functions {
		info := &FuncInfo{
			Name:        fn.Name,
			NumParams:   len(fn.Params),
			NumCaptures: len(fn.Captures),
			MayThrow:    fn.MayThrow(),
		}
		e.funcIndex[fn.Name] = len(e.program.Functions)
		e.program.Functions = append(e.program.Functions, info)
	}

	for i, fn := range module.Functions {
		if err := e.emitFunction(fn, e.program.Functions[i]); err != nil {
			return nil, fmt.Errorf("emit %s: %w", fn.Name, err)
		}
	}
	return e.program, nil
}

func (e *Emitter) emitFunction(fn *mir.Function, info *FuncInfo) error {
	e.fn = fn
	e.info = info
	e.slots = make(map[int]int)
	e.blockPC = make(map[*mir.BasicBlock]int)
	e.patches = nil
	e.cellLocals = e.findCellLocals(fn)
	e.handlerErr = make(map[*mir.BasicBlock]*mir.Local)

	for _, p := range fn.Params {
		e.slot(p.ID)
	}

	// Captures materialize into local slots in blob order; by-ref
	// captures stay as cells, loads and stores go through them.
	for i, cl := range fn.CaptureLocals {
		if fn.Captures[i].ByRef {
			e.cellLocals[cl.ID] = true
		}
		e.code(OpLoadCapture, i, 0)
		e.code(OpStoreLocal, e.slot(cl.ID), 0)
	}

	// Locals captured by reference in a closure created here hold cells
	// for their whole lifetime; params box their incoming value.
	for _, p := range fn.Params {
		if e.cellLocals[p.ID] {
			e.code(OpLoadLocal, e.slot(p.ID), 0)
			e.code(OpCellNew, 0, 0)
			e.code(OpStoreLocal, e.slot(p.ID), 0)
		}
	}
	seen := make(map[int]bool)
	for _, p := range fn.Params {
		seen[p.ID] = true
	}
	for _, cl := range fn.CaptureLocals {
		seen[cl.ID] = true
	}
	for _, l := range fn.Locals {
		if e.cellLocals[l.ID] && !seen[l.ID] {
			e.code(OpNil, 0, 0)
			e.code(OpCellNew, 0, 0)
			e.code(OpStoreLocal, e.slot(l.ID), 0)
		}
	}

	// Handler blocks receive the raised error on the stack; they store
	// it into the call's error local first.
	for _, block := range fn.Blocks {
		for _, stmt := range block.Statements {
			if call, ok := stmt.(*mir.Call); ok && call.Handler != nil && call.ErrLocal != nil {
				e.handlerErr[call.Handler] = call.ErrLocal
			}
		}
	}

	for _, block := range fn.Blocks {
		e.blockPC[block] = len(info.Code)
		if errLocal, ok := e.handlerErr[block]; ok {
			e.storeLocal(*errLocal)
		}
		for _, stmt := range block.Statements {
			if err := e.emitStmt(stmt); err != nil {
				return err
			}
		}
		if err := e.emitTerminator(block.Terminator); err != nil {
			return err
		}
	}

	for _, p := range e.patches {
		pc, ok := e.blockPC[p.target]
		if !ok {
			return fmt.Errorf("jump to unemitted block %s", p.target.Label)
		}
		info.Code[p.pc].A = pc
	}

	info.NumLocals = len(e.slots)
	return nil
}

// findCellLocals marks locals of fn captured by reference by a closure
// it creates.
func (e *Emitter) findCellLocals(fn *mir.Function) map[int]bool {
	cells := make(map[int]bool)
	for _, block := range fn.Blocks {
		for _, stmt := range block.Statements {
			mk, ok := stmt.(*mir.MakeClosure)
			if !ok {
				continue
			}
			lifted := e.module.FunctionByName(mk.Func)
			if lifted == nil {
				continue
			}
			for i, cap := range lifted.Captures {
				if !cap.ByRef || i >= len(mk.Captures) {
					continue
				}
				if ref, ok := mk.Captures[i].(*mir.LocalRef); ok {
					cells[ref.Local.ID] = true
				}
			}
		}
	}
	return cells
}

func (e *Emitter) slot(localID int) int {
	if s, ok := e.slots[localID]; ok {
		return s
	}
	s := len(e.slots)
	e.slots[localID] = s
	return s
}

func (e *Emitter) code(op Opcode, a, b int) int {
	e.info.Code = append(e.info.Code, Instr{Op: op, A: a, B: b})
	return len(e.info.Code) - 1
}

func (e *Emitter) jumpTo(op Opcode, target *mir.BasicBlock) {
	pc := e.code(op, 0, 0)
	e.patches = append(e.patches, patch{pc: pc, target: target})
}

// pushOperand emits code leaving the operand's value on the stack.
func (e *Emitter) pushOperand(op mir.Operand) error {
	switch o := op.(type) {
	case *mir.LocalRef:
		e.code(OpLoadLocal, e.slot(o.Local.ID), 0)
		if e.cellLocals[o.Local.ID] {
			e.code(OpCellGet, 0, 0)
		}
		return nil
	case *mir.Literal:
		if o.Value == nil {
			e.code(OpNil, 0, 0)
			return nil
		}
		e.code(OpConst, e.constant(o), 0)
		return nil
	case *mir.FuncRef:
		index, ok := e.funcIndex[o.Name]
		if !ok {
			return fmt.Errorf("reference to unknown function %q", o.Name)
		}
		e.code(OpClosureNew, index, 0)
		return nil
	default:
		return fmt.Errorf("unsupported operand %T", op)
	}
}

// pushCell pushes the cell boxing a by-ref-captured local, not its value.
func (e *Emitter) pushCell(op mir.Operand) error {
	ref, ok := op.(*mir.LocalRef)
	if !ok || !e.cellLocals[ref.Local.ID] {
		return e.pushOperand(op)
	}
	e.code(OpLoadLocal, e.slot(ref.Local.ID), 0)
	return nil
}

// storeLocal stores the stack top into a local, through its cell when
// the local is by-ref captured.
func (e *Emitter) storeLocal(local mir.Local) {
	if e.cellLocals[local.ID] {
		// Stack holds the value; fetch the cell and store through it.
		e.code(OpLoadLocal, e.slot(local.ID), 0)
		e.code(OpCellSet, 0, 0)
		return
	}
	e.code(OpStoreLocal, e.slot(local.ID), 0)
}

func (e *Emitter) constant(lit *mir.Literal) int {
	var v runtime.Value
	var key string
	switch val := lit.Value.(type) {
	case int64:
		v = runtime.Int(val)
		key = fmt.Sprintf("i:%d", val)
	case float64:
		v = runtime.Float(val)
		key = fmt.Sprintf("f:%b", val)
	case bool:
		v = runtime.Bool(val)
		key = fmt.Sprintf("b:%v", val)
	case string:
		v = runtime.String(val)
		key = "s:" + val
	default:
		v = runtime.NilValue
		key = "nil"
	}
	if index, ok := e.constIndex[key]; ok {
		return index
	}
	index := len(e.program.Consts)
	e.program.Consts = append(e.program.Consts, v)
	e.constIndex[key] = index
	return index
}

func (e *Emitter) shape(s Shape) int {
	key := fmt.Sprintf("%s/%s/%d/%v", s.TypeName, s.Variant, s.Tag, s.FieldNames)
	if index, ok := e.shapeIndex[key]; ok {
		return index
	}
	index := len(e.program.Shapes)
	e.program.Shapes = append(e.program.Shapes, s)
	e.shapeIndex[key] = index
	return index
}

func binKindOf(op mir.BinKind) BinKind {
	switch op {
	case mir.BinAdd:
		return BinAdd
	case mir.BinSub:
		return BinSub
	case mir.BinMul:
		return BinMul
	case mir.BinDiv:
		return BinDiv
	case mir.BinMod:
		return BinMod
	case mir.BinEq:
		return BinEq
	case mir.BinNe:
		return BinNe
	case mir.BinLt:
		return BinLt
	case mir.BinLe:
		return BinLe
	case mir.BinGt:
		return BinGt
	default:
		return BinGe
	}
}

func classOf(t types.Type) TypeClass {
	switch tt := types.Unwrap(t).(type) {
	case *types.Primitive:
		switch tt.Kind {
		case types.Int:
			return ClassInt
		case types.Float:
			return ClassFloat
		case types.String:
			return ClassString
		case types.Bool:
			return ClassBool
		}
	case *types.List:
		return ClassList
	}
	return ClassGeneric
}

func (e *Emitter) emitStmt(stmt mir.Statement) error {
	switch s := stmt.(type) {
	case *mir.Assign:
		if err := e.pushOperand(s.Value); err != nil {
			return err
		}
		e.storeLocal(s.Result)
		return nil

	case *mir.BinOp:
		if err := e.pushOperand(s.Left); err != nil {
			return err
		}
		if err := e.pushOperand(s.Right); err != nil {
			return err
		}
		e.code(OpBinOp, int(binKindOf(s.Op)), int(classOf(s.Left.OperandType())))
		e.storeLocal(s.Result)
		return nil

	case *mir.UnOp:
		if err := e.pushOperand(s.Operand); err != nil {
			return err
		}
		kind := UnNeg
		if s.Op == mir.UnNot {
			kind = UnNot
		}
		e.code(OpUnOp, int(kind), int(classOf(s.Operand.OperandType())))
		e.storeLocal(s.Result)
		return nil

	case *mir.Call:
		return e.emitCall(s)

	case *mir.CallIntrinsic:
		for _, arg := range s.Args {
			if err := e.pushOperand(arg); err != nil {
				return err
			}
		}
		e.code(OpCallIntrinsic, s.Kind, len(s.Args))
		if s.Result != nil {
			e.storeLocal(*s.Result)
		} else {
			e.code(OpPop, 0, 0)
		}
		return nil

	case *mir.LoadField:
		if err := e.pushOperand(s.Target); err != nil {
			return err
		}
		e.code(OpStructGet, s.Index, 0)
		e.storeLocal(s.Result)
		return nil

	case *mir.StoreField:
		if err := e.pushOperand(s.Target); err != nil {
			return err
		}
		if err := e.pushOperand(s.Value); err != nil {
			return err
		}
		e.code(OpStructSet, s.Index, 0)
		return nil

	case *mir.LoadIndex:
		if err := e.pushOperand(s.Target); err != nil {
			return err
		}
		if err := e.pushOperand(s.Index); err != nil {
			return err
		}
		e.code(OpIndexGet, 0, 0)
		e.storeLocal(s.Result)
		return nil

	case *mir.StoreIndex:
		if err := e.pushOperand(s.Target); err != nil {
			return err
		}
		if err := e.pushOperand(s.Index); err != nil {
			return err
		}
		if err := e.pushOperand(s.Value); err != nil {
			return err
		}
		e.code(OpIndexSet, 0, 0)
		return nil

	case *mir.ConstructStruct:
		names := make([]string, len(s.Fields))
		for i, f := range s.Fields {
			names[i] = f.Name
			if err := e.pushOperand(f.Value); err != nil {
				return err
			}
		}
		shape := e.shape(Shape{TypeName: structTypeName(s.Type), FieldNames: names})
		e.code(OpStructNew, shape, len(s.Fields))
		e.storeLocal(s.Result)
		return nil

	case *mir.ConstructList:
		for _, el := range s.Elements {
			if err := e.pushOperand(el); err != nil {
				return err
			}
		}
		e.code(OpListNew, len(s.Elements), 0)
		e.storeLocal(s.Result)
		return nil

	case *mir.ConstructDict:
		for i := range s.Keys {
			if err := e.pushOperand(s.Keys[i]); err != nil {
				return err
			}
			if err := e.pushOperand(s.Values[i]); err != nil {
				return err
			}
		}
		e.code(OpDictNew, len(s.Keys), 0)
		e.storeLocal(s.Result)
		return nil

	case *mir.ConstructEnum:
		for _, v := range s.Values {
			if err := e.pushOperand(v); err != nil {
				return err
			}
		}
		shape := e.shape(Shape{TypeName: s.TypeName, Variant: s.Variant, Tag: s.VariantIndex})
		e.code(OpEnumNew, shape, len(s.Values))
		e.storeLocal(s.Result)
		return nil

	case *mir.Discriminant:
		if err := e.pushOperand(s.Target); err != nil {
			return err
		}
		e.code(OpEnumTag, 0, 0)
		e.storeLocal(s.Result)
		return nil

	case *mir.AccessVariantPayload:
		if err := e.pushOperand(s.Target); err != nil {
			return err
		}
		e.code(OpEnumField, s.MemberIndex, 0)
		e.storeLocal(s.Result)
		return nil

	case *mir.ConstructRange:
		if err := e.pushOperand(s.Start); err != nil {
			return err
		}
		if err := e.pushOperand(s.End); err != nil {
			return err
		}
		inclusive := 0
		if s.Inclusive {
			inclusive = 1
		}
		e.code(OpRangeNew, inclusive, 0)
		e.storeLocal(s.Result)
		return nil

	case *mir.Slice:
		if err := e.pushOperand(s.Target); err != nil {
			return err
		}
		flags := 0
		if s.Start != nil {
			flags |= 1
			if err := e.pushOperand(s.Start); err != nil {
				return err
			}
		}
		if s.End != nil {
			flags |= 2
			if err := e.pushOperand(s.End); err != nil {
				return err
			}
		}
		if s.Inclusive {
			flags |= 4
		}
		e.code(OpSlice, flags, 0)
		e.storeLocal(s.Result)
		return nil

	case *mir.MakeClosure:
		lifted := e.module.FunctionByName(s.Func)
		for i, cap := range s.Captures {
			byRef := lifted != nil && i < len(lifted.Captures) && lifted.Captures[i].ByRef
			if byRef {
				if err := e.pushCell(cap); err != nil {
					return err
				}
			} else if err := e.pushOperand(cap); err != nil {
				return err
			}
		}
		index, ok := e.funcIndex[s.Func]
		if !ok {
			return fmt.Errorf("closure over unknown function %q", s.Func)
		}
		e.code(OpClosureNew, index, len(s.Captures))
		e.storeLocal(s.Result)
		return nil

	case *mir.UnwrapOptional:
		if err := e.pushOperand(s.Operand); err != nil {
			return err
		}
		e.code(OpUnwrap, 0, 0)
		e.storeLocal(s.Result)
		return nil

	case *mir.IsNil:
		if err := e.pushOperand(s.Operand); err != nil {
			return err
		}
		e.code(OpIsNil, 0, 0)
		e.storeLocal(s.Result)
		return nil

	case *mir.Phi:
		return fmt.Errorf("phi reached the bytecode emitter")

	default:
		return fmt.Errorf("unsupported statement %T", stmt)
	}
}

func structTypeName(t types.Type) string {
	switch tt := types.Unwrap(t).(type) {
	case *types.Struct:
		return tt.Name
	case *types.GenericInstance:
		return tt.String()
	default:
		return t.String()
	}
}

func (e *Emitter) emitCall(s *mir.Call) error {
	// The handler window opens before any operands are pushed so the
	// recorded stack depth is the state unwinding must restore.
	if s.Handler != nil {
		catchPC := e.code(OpCatchEnter, 0, 0)
		e.patches = append(e.patches, patch{pc: catchPC, target: s.Handler})
	}

	indirect := s.Callee == ""
	if indirect {
		if err := e.pushOperand(s.CalleeOperand); err != nil {
			return err
		}
	}
	for _, arg := range s.Args {
		if err := e.pushOperand(arg); err != nil {
			return err
		}
	}

	if indirect {
		e.code(OpCallClosure, 0, len(s.Args))
	} else {
		index, ok := e.funcIndex[s.Callee]
		if !ok {
			return fmt.Errorf("call to unknown function %q", s.Callee)
		}
		e.code(OpCall, index, len(s.Args))
	}

	if s.Handler != nil {
		e.code(OpCatchLeave, 0, 0)
	}

	if s.Result != nil {
		e.storeLocal(*s.Result)
	} else {
		e.code(OpPop, 0, 0)
	}
	return nil
}

func (e *Emitter) emitTerminator(t mir.Terminator) error {
	switch term := t.(type) {
	case *mir.Return:
		if term.Value != nil {
			if err := e.pushOperand(term.Value); err != nil {
				return err
			}
			e.code(OpReturn, 1, 0)
			return nil
		}
		e.code(OpReturn, 0, 0)
		return nil
	case *mir.Goto:
		// A direct jump into a handler block must balance the error
		// value the handler's prologue pops.
		if errLocal, ok := e.handlerErr[term.Target]; ok {
			if err := e.pushOperand(&mir.LocalRef{Local: *errLocal}); err != nil {
				return err
			}
		}
		e.jumpTo(OpJump, term.Target)
		return nil
	case *mir.Branch:
		if err := e.pushOperand(term.Condition); err != nil {
			return err
		}
		e.jumpTo(OpJumpIfFalse, term.False)
		e.jumpTo(OpJump, term.True)
		return nil
	case *mir.Throw:
		if err := e.pushOperand(term.Value); err != nil {
			return err
		}
		e.code(OpThrow, 0, 0)
		return nil
	case *mir.Unreachable:
		e.code(OpUnreachable, 0, 0)
		return nil
	case nil:
		return fmt.Errorf("block without terminator")
	default:
		return fmt.Errorf("unsupported terminator %T", t)
	}
}
