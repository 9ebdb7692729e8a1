// Package bytecode lowers MIR to the stack machine the VM executes: a
// constant pool, a function table, and per-function instruction
// streams. The Program lives in memory only; nothing persists it.
package bytecode

import (
	"fmt"

	"github.com/sarn-lang/sarn/internal/runtime"
)

// Opcode enumerates the stack machine's instructions.
type Opcode byte

const (
	OpConst Opcode = iota // push constant pool[A]
	OpNil                 // push nil
	OpPop                 // drop top of stack
	OpLoadLocal           // push locals[A]
	OpStoreLocal          // locals[A] = pop
	OpLoadCapture         // push captures[A] of the running closure

	// OpBinOp applies binary operation A over operand-type class B
	// (see TypeClass). Pops right then left, pushes the result.
	OpBinOp
	OpUnOp // unary operation A

	OpJump        // ip = A
	OpJumpIfFalse // if !pop: ip = A

	OpCall          // call function table[A] with B args
	OpCallClosure   // call closure under its B args
	OpCallIntrinsic // dispatch intrinsic kind A with B args

	OpReturn      // return; A=1 pops a return value first
	OpThrow       // raise popped error value
	OpCatchEnter  // push handler at pc A onto the frame's handler chain
	OpCatchLeave  // pop the innermost handler

	OpStructNew // shape pool[A], B field values on the stack
	OpStructGet // push field A of popped struct
	OpStructSet // pops value then struct; struct.field[A] = value
	OpEnumNew   // shape pool[A], B payload values on the stack
	OpEnumTag   // push tag of popped enum/error value
	OpEnumField // push payload member A of popped enum/error value

	OpListNew  // build list from A stacked elements
	OpListPush // pops value then list; appends
	OpDictNew  // build dict from A stacked key/value pairs
	OpIndexGet // pops index then target; pushes element
	OpIndexSet // pops value, index, target; stores

	OpRangeNew // pops end then start; A!=0 marks inclusive
	OpSlice    // pops bounds per flag bits in A (hasStart|hasEnd<<1|inclusive<<2) then target

	OpUnwrap // force-unwrap popped optional; nil faults
	OpIsNil  // push whether popped value is nil

	OpClosureNew // closure over function table[A] with B stacked captures
	OpCellNew    // box top of stack into a cell
	OpCellGet    // push boxed value of popped cell
	OpCellSet    // pops cell then value; stores the value into the cell

	OpUnreachable // compiler-bug trap
)

// TypeClass parameterizes OpBinOp: arithmetic dispatches by static type
// so the VM never guesses at operand kinds.
type TypeClass byte

const (
	ClassInt TypeClass = iota
	ClassFloat
	ClassString
	ClassBool
	ClassList
	ClassGeneric // structural equality over any value
)

// BinKind mirrors mir.BinKind as a dense operand index.
type BinKind byte

const (
	BinAdd BinKind = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
)

// UnKind mirrors mir.UnKind.
type UnKind byte

const (
	UnNeg UnKind = iota
	UnNot
)

// Instr is one instruction; A and B are operands whose meaning is per
// opcode.
type Instr struct {
	Op Opcode
	A  int
	B  int
}

// Shape describes a struct or enum constructor in the constant pool.
type Shape struct {
	TypeName   string
	FieldNames []string // struct field order
	Variant    string   // enum/error variant
	Tag        int
}

// FuncInfo is one function-table entry.
type FuncInfo struct {
	Name        string
	NumParams   int
	NumLocals   int
	NumCaptures int
	MayThrow    bool
	Code        []Instr
}

// Program is a complete compiled unit.
type Program struct {
	Consts    []runtime.Value
	Shapes    []Shape
	Functions []*FuncInfo
}

// FunctionIndex finds a function-table index by name.
func (p *Program) FunctionIndex(name string) (int, error) {
	for i, fn := range p.Functions {
		if fn.Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no function %q in program", name)
}
