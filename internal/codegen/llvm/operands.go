package llvm

import (
	"fmt"
	"math"

	"github.com/sarn-lang/sarn/internal/mir"
	"github.com/sarn-lang/sarn/internal/runtime"
	"github.com/sarn-lang/sarn/internal/types"
)

// operand resolves a MIR operand to an LLVM value string of its own
// static type.
func (e *fnEmitter) operand(op mir.Operand) (string, error) {
	switch o := op.(type) {
	case *mir.LocalRef:
		return e.readLocal(o.Local), nil
	case *mir.Literal:
		return e.literal(o)
	case *mir.FuncRef:
		e.g.declare(runtime.SymClosureNew, "ptr @"+runtime.SymClosureNew+"(ptr, i64, ...)")
		reg := e.reg()
		e.line("%s = call ptr (ptr, i64, ...) @%s(ptr @%s, i64 0)", reg, runtime.SymClosureNew, symbolFor(o.Name))
		return reg, nil
	case nil:
		return "null", nil
	default:
		return "", fmt.Errorf("unsupported operand %T", op)
	}
}

// literal renders a constant: scalars inline, strings as interned
// globals materialized through the runtime, nil as null.
func (e *fnEmitter) literal(lit *mir.Literal) (string, error) {
	switch v := lit.Value.(type) {
	case int64:
		return fmt.Sprintf("%d", v), nil
	case float64:
		// Hex float spelling round-trips exactly.
		return fmt.Sprintf("0x%016X", math.Float64bits(v)), nil
	case bool:
		if v {
			return "true", nil
		}
		return "false", nil
	case string:
		global, length := e.g.stringConstant(v)
		e.g.declare(runtime.SymStringNew, "ptr @"+runtime.SymStringNew+"(ptr, i64)")
		reg := e.reg()
		e.line("%s = call ptr @%s(ptr %s, i64 %d)", reg, runtime.SymStringNew, global, length)
		return reg, nil
	case nil:
		return "null", nil
	default:
		return "", fmt.Errorf("unsupported literal %T", lit.Value)
	}
}

// box wraps a scalar into a runtime pointer; pointer-typed values pass
// through.
func (e *fnEmitter) box(value string, t types.Type) string {
	var symbol, argType string
	switch llvmType(t) {
	case "i64":
		symbol, argType = runtime.SymBoxInt, "i64"
	case "double":
		symbol, argType = runtime.SymBoxFloat, "double"
	case "i1":
		symbol, argType = runtime.SymBoxBool, "i1"
	default:
		return value
	}
	e.g.declare(symbol, "ptr @"+symbol+"("+argType+")")
	reg := e.reg()
	e.line("%s = call ptr @%s(%s %s)", reg, symbol, argType, value)
	return reg
}

// unbox recovers a scalar from a runtime pointer; pointer-typed values
// pass through.
func (e *fnEmitter) unbox(value string, t types.Type) string {
	var symbol, retType string
	switch llvmType(t) {
	case "i64":
		symbol, retType = runtime.SymUnboxInt, "i64"
	case "double":
		symbol, retType = runtime.SymUnboxFloat, "double"
	case "i1":
		symbol, retType = runtime.SymUnboxBool, "i1"
	default:
		return value
	}
	e.g.declare(symbol, retType+" @"+symbol+"(ptr)")
	reg := e.reg()
	e.line("%s = call %s @%s(ptr %s)", reg, retType, symbol, value)
	return reg
}

// typedOperand resolves an operand and coerces it to the target type's
// representation, boxing or unboxing across the scalar/pointer line.
func (e *fnEmitter) typedOperand(op mir.Operand, target types.Type) (string, error) {
	value, err := e.operand(op)
	if err != nil {
		return "", err
	}
	from := llvmType(op.OperandType())
	to := llvmType(target)
	if from == to {
		return value, nil
	}
	if to == "ptr" {
		return e.box(value, op.OperandType()), nil
	}
	if from == "ptr" {
		return e.unbox(value, target), nil
	}
	return value, nil
}

// fault emits the runtime-fault path: print the message, exit non-zero.
func (e *fnEmitter) fault(message string) {
	global, length := e.g.stringConstant(message)
	e.g.declare(runtime.SymFault, "void @"+runtime.SymFault+"(ptr, i64)")
	e.line("call void @%s(ptr %s, i64 %d)", runtime.SymFault, global, length)
	e.line("unreachable")
}
