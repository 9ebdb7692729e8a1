package llvm

import (
	"fmt"
	"strings"

	"github.com/sarn-lang/sarn/internal/intrinsics"
	"github.com/sarn-lang/sarn/internal/mir"
	"github.com/sarn-lang/sarn/internal/runtime"
	"github.com/sarn-lang/sarn/internal/types"
)

func (e *fnEmitter) emitStmt(stmt mir.Statement) error {
	switch s := stmt.(type) {
	case *mir.Assign:
		value, err := e.typedOperand(s.Value, s.Result.Type)
		if err != nil {
			return err
		}
		e.setDef(s.Result, value)
		return nil

	case *mir.BinOp:
		return e.emitBinOp(s)

	case *mir.UnOp:
		return e.emitUnOp(s)

	case *mir.Call:
		return e.emitCall(s)

	case *mir.CallIntrinsic:
		return e.emitIntrinsic(s)

	case *mir.LoadField:
		target, err := e.operand(s.Target)
		if err != nil {
			return err
		}
		e.g.declare(runtime.SymStructGet, "ptr @"+runtime.SymStructGet+"(ptr, i64)")
		boxed := e.reg()
		e.line("%s = call ptr @%s(ptr %s, i64 %d)", boxed, runtime.SymStructGet, target, s.Index)
		e.setDef(s.Result, e.unbox(boxed, s.Result.Type))
		return nil

	case *mir.StoreField:
		target, err := e.operand(s.Target)
		if err != nil {
			return err
		}
		value, err := e.operand(s.Value)
		if err != nil {
			return err
		}
		e.g.declare(runtime.SymStructSet, "void @"+runtime.SymStructSet+"(ptr, i64, ptr)")
		e.line("call void @%s(ptr %s, i64 %d, ptr %s)",
			runtime.SymStructSet, target, s.Index, e.box(value, s.Value.OperandType()))
		return nil

	case *mir.LoadIndex:
		return e.emitLoadIndex(s)

	case *mir.StoreIndex:
		return e.emitStoreIndex(s)

	case *mir.ConstructStruct:
		return e.emitConstructStruct(s)

	case *mir.ConstructList:
		values := make([]string, 0, len(s.Elements))
		for _, el := range s.Elements {
			v, err := e.operand(el)
			if err != nil {
				return err
			}
			values = append(values, "ptr "+e.box(v, el.OperandType()))
		}
		e.g.declare(runtime.SymListNew, "ptr @"+runtime.SymListNew+"(i64, ...)")
		reg := e.reg()
		args := strings.Join(append([]string{fmt.Sprintf("i64 %d", len(values))}, values...), ", ")
		e.line("%s = call ptr (i64, ...) @%s(%s)", reg, runtime.SymListNew, args)
		e.setDef(s.Result, reg)
		return nil

	case *mir.ConstructDict:
		e.g.declare(runtime.SymDictNew, "ptr @"+runtime.SymDictNew+"()")
		e.g.declare(runtime.SymDictSet, "void @"+runtime.SymDictSet+"(ptr, ptr, ptr)")
		dict := e.reg()
		e.line("%s = call ptr @%s()", dict, runtime.SymDictNew)
		for i := range s.Keys {
			k, err := e.operand(s.Keys[i])
			if err != nil {
				return err
			}
			v, err := e.operand(s.Values[i])
			if err != nil {
				return err
			}
			e.line("call void @%s(ptr %s, ptr %s, ptr %s)", runtime.SymDictSet, dict,
				e.box(k, s.Keys[i].OperandType()), e.box(v, s.Values[i].OperandType()))
		}
		e.setDef(s.Result, dict)
		return nil

	case *mir.ConstructEnum:
		typeName, _ := e.g.stringConstant(s.TypeName)
		variant, _ := e.g.stringConstant(s.Variant)
		values := make([]string, 0, len(s.Values))
		for _, v := range s.Values {
			op, err := e.operand(v)
			if err != nil {
				return err
			}
			values = append(values, "ptr "+e.box(op, v.OperandType()))
		}
		e.g.declare(runtime.SymEnumNew, "ptr @"+runtime.SymEnumNew+"(ptr, ptr, i64, i64, ...)")
		reg := e.reg()
		prefix := fmt.Sprintf("ptr %s, ptr %s, i64 %d, i64 %d", typeName, variant, s.VariantIndex, len(values))
		args := strings.Join(append([]string{prefix}, values...), ", ")
		e.line("%s = call ptr (ptr, ptr, i64, i64, ...) @%s(%s)", reg, runtime.SymEnumNew, args)
		e.setDef(s.Result, reg)
		return nil

	case *mir.Discriminant:
		target, err := e.operand(s.Target)
		if err != nil {
			return err
		}
		e.g.declare(runtime.SymEnumTag, "i64 @"+runtime.SymEnumTag+"(ptr)")
		reg := e.reg()
		e.line("%s = call i64 @%s(ptr %s)", reg, runtime.SymEnumTag, target)
		e.setDef(s.Result, reg)
		return nil

	case *mir.AccessVariantPayload:
		target, err := e.operand(s.Target)
		if err != nil {
			return err
		}
		e.g.declare(runtime.SymEnumField, "ptr @"+runtime.SymEnumField+"(ptr, i64)")
		boxed := e.reg()
		e.line("%s = call ptr @%s(ptr %s, i64 %d)", boxed, runtime.SymEnumField, target, s.MemberIndex)
		e.setDef(s.Result, e.unbox(boxed, s.Result.Type))
		return nil

	case *mir.ConstructRange:
		start, err := e.typedOperand(s.Start, types.TypeInt)
		if err != nil {
			return err
		}
		end, err := e.typedOperand(s.End, types.TypeInt)
		if err != nil {
			return err
		}
		e.g.declare(runtime.SymRangeNew, "ptr @"+runtime.SymRangeNew+"(i64, i64, i1)")
		reg := e.reg()
		e.line("%s = call ptr @%s(i64 %s, i64 %s, i1 %v)", reg, runtime.SymRangeNew, start, end, s.Inclusive)
		e.setDef(s.Result, reg)
		return nil

	case *mir.Slice:
		return e.emitSlice(s)

	case *mir.MakeClosure:
		return e.emitMakeClosure(s)

	case *mir.UnwrapOptional:
		operand, err := e.operand(s.Operand)
		if err != nil {
			return err
		}
		boxed := e.box(operand, s.Operand.OperandType())
		e.g.declare(runtime.SymOptionalIsNil, "i1 @"+runtime.SymOptionalIsNil+"(ptr)")
		e.g.declare(runtime.SymOptionalUnwrap, "ptr @"+runtime.SymOptionalUnwrap+"(ptr)")
		isNil := e.reg()
		e.line("%s = call i1 @%s(ptr %s)", isNil, runtime.SymOptionalIsNil, boxed)
		faultLabel := e.label("unwrap.fault")
		okLabel := e.label("unwrap.ok")
		e.line("br i1 %s, label %%%s, label %%%s", isNil, faultLabel, okLabel)
		e.openLabel(faultLabel)
		e.fault("force-unwrap of nil")
		e.openLabel(okLabel)
		payload := e.reg()
		e.line("%s = call ptr @%s(ptr %s)", payload, runtime.SymOptionalUnwrap, boxed)
		e.setDef(s.Result, e.unbox(payload, s.Result.Type))
		return nil

	case *mir.IsNil:
		operand, err := e.operand(s.Operand)
		if err != nil {
			return err
		}
		boxed := e.box(operand, s.Operand.OperandType())
		e.g.declare(runtime.SymOptionalIsNil, "i1 @"+runtime.SymOptionalIsNil+"(ptr)")
		reg := e.reg()
		e.line("%s = call i1 @%s(ptr %s)", reg, runtime.SymOptionalIsNil, boxed)
		e.setDef(s.Result, reg)
		return nil

	case *mir.Phi:
		return fmt.Errorf("source-level phi reached the emitter")

	default:
		return fmt.Errorf("unsupported statement %T", stmt)
	}
}

// emitBinOp folds eagerly when both operands are compile-time constants
// (through the same arith rules the VM runs), then falls back to typed
// instruction selection with explicit divide-by-zero checks.
func (e *fnEmitter) emitBinOp(s *mir.BinOp) error {
	if left, ok := s.Left.(*mir.Literal); ok {
		if right, ok := s.Right.(*mir.Literal); ok {
			if folded, err := mir.FoldBinOp(s.Op, left, right); err == nil {
				value, err := e.literal(folded)
				if err != nil {
					return err
				}
				e.setDef(s.Result, value)
				return nil
			}
			// Folding faulted (division by zero): emit the runtime form
			// so the fault surfaces at runtime exactly like the VM's.
		}
	}

	left, err := e.operand(s.Left)
	if err != nil {
		return err
	}
	right, err := e.typedOperand(s.Right, s.Left.OperandType())
	if err != nil {
		return err
	}

	switch t := types.Unwrap(s.Left.OperandType()).(type) {
	case *types.Primitive:
		switch t.Kind {
		case types.Int:
			return e.intBinOp(s, left, right)
		case types.Float:
			return e.floatBinOp(s, left, right)
		case types.String:
			return e.stringBinOp(s, left, right)
		case types.Bool:
			reg := e.reg()
			cond := "eq"
			if s.Op == mir.BinNe {
				cond = "ne"
			}
			e.line("%s = icmp %s i1 %s, %s", reg, cond, left, right)
			e.setDef(s.Result, reg)
			return nil
		}
	case *types.List:
		return e.listBinOp(s, left, right)
	}

	// Structural equality over any compound value.
	e.g.declare(runtime.SymValueEq, "i1 @"+runtime.SymValueEq+"(ptr, ptr)")
	reg := e.reg()
	e.line("%s = call i1 @%s(ptr %s, ptr %s)", reg, runtime.SymValueEq, left, right)
	if s.Op == mir.BinNe {
		neg := e.reg()
		e.line("%s = xor i1 %s, true", neg, reg)
		reg = neg
	}
	e.setDef(s.Result, reg)
	return nil
}

var intCmp = map[mir.BinKind]string{
	mir.BinEq: "eq", mir.BinNe: "ne",
	mir.BinLt: "slt", mir.BinLe: "sle", mir.BinGt: "sgt", mir.BinGe: "sge",
}

func (e *fnEmitter) intBinOp(s *mir.BinOp, left, right string) error {
	var instr string
	switch s.Op {
	case mir.BinAdd:
		instr = "add"
	case mir.BinSub:
		instr = "sub"
	case mir.BinMul:
		instr = "mul"
	case mir.BinDiv:
		e.zeroCheck("i64", right, "icmp eq i64 %s, 0")
		instr = "sdiv"
	case mir.BinMod:
		e.zeroCheck("i64", right, "icmp eq i64 %s, 0")
		instr = "srem"
	default:
		reg := e.reg()
		e.line("%s = icmp %s i64 %s, %s", reg, intCmp[s.Op], left, right)
		e.setDef(s.Result, reg)
		return nil
	}
	reg := e.reg()
	e.line("%s = %s i64 %s, %s", reg, instr, left, right)
	e.setDef(s.Result, reg)
	return nil
}

var floatCmp = map[mir.BinKind]string{
	mir.BinEq: "oeq", mir.BinNe: "one",
	mir.BinLt: "olt", mir.BinLe: "ole", mir.BinGt: "ogt", mir.BinGe: "oge",
}

func (e *fnEmitter) floatBinOp(s *mir.BinOp, left, right string) error {
	var instr string
	switch s.Op {
	case mir.BinAdd:
		instr = "fadd"
	case mir.BinSub:
		instr = "fsub"
	case mir.BinMul:
		instr = "fmul"
	case mir.BinDiv:
		e.zeroCheck("double", right, "fcmp oeq double %s, 0.0")
		instr = "fdiv"
	case mir.BinMod:
		e.zeroCheck("double", right, "fcmp oeq double %s, 0.0")
		instr = "frem"
	default:
		reg := e.reg()
		e.line("%s = fcmp %s double %s, %s", reg, floatCmp[s.Op], left, right)
		e.setDef(s.Result, reg)
		return nil
	}
	reg := e.reg()
	e.line("%s = %s double %s, %s", reg, instr, left, right)
	e.setDef(s.Result, reg)
	return nil
}

// zeroCheck branches to a fault when the divisor is zero; division by
// zero must raise, never produce poison.
func (e *fnEmitter) zeroCheck(ty, value, cmpFormat string) {
	isZero := e.reg()
	e.line("%s = "+cmpFormat, isZero, value)
	faultLabel := e.label("div.fault")
	okLabel := e.label("div.ok")
	e.line("br i1 %s, label %%%s, label %%%s", isZero, faultLabel, okLabel)
	e.openLabel(faultLabel)
	e.fault("division by zero")
	e.openLabel(okLabel)
}

func (e *fnEmitter) stringBinOp(s *mir.BinOp, left, right string) error {
	switch s.Op {
	case mir.BinAdd:
		e.g.declare(runtime.SymStringConcat, "ptr @"+runtime.SymStringConcat+"(ptr, ptr)")
		reg := e.reg()
		e.line("%s = call ptr @%s(ptr %s, ptr %s)", reg, runtime.SymStringConcat, left, right)
		e.setDef(s.Result, reg)
		return nil
	case mir.BinEq, mir.BinNe:
		e.g.declare(runtime.SymStringEq, "i1 @"+runtime.SymStringEq+"(ptr, ptr)")
		reg := e.reg()
		e.line("%s = call i1 @%s(ptr %s, ptr %s)", reg, runtime.SymStringEq, left, right)
		if s.Op == mir.BinNe {
			neg := e.reg()
			e.line("%s = xor i1 %s, true", neg, reg)
			reg = neg
		}
		e.setDef(s.Result, reg)
		return nil
	default:
		e.g.declare(runtime.SymStringCmp, "i64 @"+runtime.SymStringCmp+"(ptr, ptr)")
		cmp := e.reg()
		e.line("%s = call i64 @%s(ptr %s, ptr %s)", cmp, runtime.SymStringCmp, left, right)
		reg := e.reg()
		e.line("%s = icmp %s i64 %s, 0", reg, intCmp[s.Op], cmp)
		e.setDef(s.Result, reg)
		return nil
	}
}

func (e *fnEmitter) listBinOp(s *mir.BinOp, left, right string) error {
	switch s.Op {
	case mir.BinAdd:
		e.g.declare(runtime.SymListConcat, "ptr @"+runtime.SymListConcat+"(ptr, ptr)")
		reg := e.reg()
		e.line("%s = call ptr @%s(ptr %s, ptr %s)", reg, runtime.SymListConcat, left, right)
		e.setDef(s.Result, reg)
		return nil
	default:
		e.g.declare(runtime.SymListEq, "i1 @"+runtime.SymListEq+"(ptr, ptr)")
		reg := e.reg()
		e.line("%s = call i1 @%s(ptr %s, ptr %s)", reg, runtime.SymListEq, left, right)
		if s.Op == mir.BinNe {
			neg := e.reg()
			e.line("%s = xor i1 %s, true", neg, reg)
			reg = neg
		}
		e.setDef(s.Result, reg)
		return nil
	}
}

func (e *fnEmitter) emitUnOp(s *mir.UnOp) error {
	operand, err := e.operand(s.Operand)
	if err != nil {
		return err
	}
	reg := e.reg()
	switch s.Op {
	case mir.UnNeg:
		if llvmType(s.Operand.OperandType()) == "double" {
			e.line("%s = fneg double %s", reg, operand)
		} else {
			e.line("%s = sub i64 0, %s", reg, operand)
		}
	case mir.UnNot:
		e.line("%s = xor i1 %s, true", reg, operand)
	}
	e.setDef(s.Result, reg)
	return nil
}

func (e *fnEmitter) emitLoadIndex(s *mir.LoadIndex) error {
	target, err := e.operand(s.Target)
	if err != nil {
		return err
	}
	switch t := types.Unwrap(s.Target.OperandType()).(type) {
	case *types.Dict:
		key, err := e.operand(s.Index)
		if err != nil {
			return err
		}
		e.g.declare(runtime.SymDictGet, "ptr @"+runtime.SymDictGet+"(ptr, ptr)")
		boxed := e.reg()
		e.line("%s = call ptr @%s(ptr %s, ptr %s)", boxed, runtime.SymDictGet, target, e.box(key, s.Index.OperandType()))
		e.setDef(s.Result, e.unbox(boxed, s.Result.Type))
		return nil
	case *types.Primitive:
		if t.Kind == types.String {
			index, err := e.typedOperand(s.Index, types.TypeInt)
			if err != nil {
				return err
			}
			e.g.declare(runtime.SymStringIndex, "ptr @"+runtime.SymStringIndex+"(ptr, i64)")
			reg := e.reg()
			e.line("%s = call ptr @%s(ptr %s, i64 %s)", reg, runtime.SymStringIndex, target, index)
			e.setDef(s.Result, reg)
			return nil
		}
	}
	index, err := e.typedOperand(s.Index, types.TypeInt)
	if err != nil {
		return err
	}
	e.g.declare(runtime.SymListIndex, "ptr @"+runtime.SymListIndex+"(ptr, i64)")
	boxed := e.reg()
	e.line("%s = call ptr @%s(ptr %s, i64 %s)", boxed, runtime.SymListIndex, target, index)
	e.setDef(s.Result, e.unbox(boxed, s.Result.Type))
	return nil
}

func (e *fnEmitter) emitStoreIndex(s *mir.StoreIndex) error {
	target, err := e.operand(s.Target)
	if err != nil {
		return err
	}
	value, err := e.operand(s.Value)
	if err != nil {
		return err
	}
	boxedValue := e.box(value, s.Value.OperandType())
	if _, isDict := types.Unwrap(s.Target.OperandType()).(*types.Dict); isDict {
		key, err := e.operand(s.Index)
		if err != nil {
			return err
		}
		e.g.declare(runtime.SymDictSet, "void @"+runtime.SymDictSet+"(ptr, ptr, ptr)")
		e.line("call void @%s(ptr %s, ptr %s, ptr %s)", runtime.SymDictSet, target,
			e.box(key, s.Index.OperandType()), boxedValue)
		return nil
	}
	index, err := e.typedOperand(s.Index, types.TypeInt)
	if err != nil {
		return err
	}
	e.g.declare(runtime.SymListStore, "void @"+runtime.SymListStore+"(ptr, i64, ptr)")
	e.line("call void @%s(ptr %s, i64 %s, ptr %s)", runtime.SymListStore, target, index, boxedValue)
	return nil
}

func (e *fnEmitter) emitConstructStruct(s *mir.ConstructStruct) error {
	// Keep the nominal type cached per monomorphized instantiation.
	switch t := types.Unwrap(s.Type).(type) {
	case *types.Struct:
		e.g.cacheStructType(t, nil)
	case *types.GenericInstance:
		if st, ok := t.Base.(*types.Struct); ok {
			e.g.cacheStructType(st, t.Args)
		}
	}

	name, _ := e.g.stringConstant(structTypeName(s.Type))
	values := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		v, err := e.operand(f.Value)
		if err != nil {
			return err
		}
		values = append(values, "ptr "+e.box(v, f.Value.OperandType()))
	}
	e.g.declare(runtime.SymStructNew, "ptr @"+runtime.SymStructNew+"(ptr, i64, ...)")
	reg := e.reg()
	prefix := fmt.Sprintf("ptr %s, i64 %d", name, len(values))
	args := strings.Join(append([]string{prefix}, values...), ", ")
	e.line("%s = call ptr (ptr, i64, ...) @%s(%s)", reg, runtime.SymStructNew, args)
	e.setDef(s.Result, reg)
	return nil
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

func (e *fnEmitter) emitSlice(s *mir.Slice) error {
	target, err := e.operand(s.Target)
	if err != nil {
		return err
	}
	start, end := "0", "0"
	hasStart, hasEnd := "false", "false"
	if s.Start != nil {
		if start, err = e.typedOperand(s.Start, types.TypeInt); err != nil {
			return err
		}
		hasStart = "true"
	}
	if s.End != nil {
		if end, err = e.typedOperand(s.End, types.TypeInt); err != nil {
			return err
		}
		hasEnd = "true"
	}
	symbol := runtime.SymListSlice
	if p, ok := types.Unwrap(s.Target.OperandType()).(*types.Primitive); ok && p.Kind == types.String {
		symbol = runtime.SymStringSlice
	}
	e.g.declare(symbol, "ptr @"+symbol+"(ptr, i64, i64, i1, i1, i1)")
	reg := e.reg()
	e.line("%s = call ptr @%s(ptr %s, i64 %s, i64 %s, i1 %s, i1 %s, i1 %v)",
		reg, symbol, target, start, end, hasStart, hasEnd, s.Inclusive)
	e.setDef(s.Result, reg)
	return nil
}

// emitMakeClosure builds the closure record: function pointer plus the
// captures blob, by-value captures boxed at creation, by-reference
// captures sharing the live cell.
func (e *fnEmitter) emitMakeClosure(s *mir.MakeClosure) error {
	lifted := e.g.module.FunctionByName(s.Func)
	values := make([]string, 0, len(s.Captures))
	for i, cap := range s.Captures {
		byRef := lifted != nil && i < len(lifted.Captures) && lifted.Captures[i].ByRef
		if byRef {
			ref, ok := cap.(*mir.LocalRef)
			if !ok {
				return fmt.Errorf("by-ref capture of non-local")
			}
			values = append(values, "ptr "+e.cellPtr[ref.Local.ID])
			continue
		}
		v, err := e.operand(cap)
		if err != nil {
			return err
		}
		values = append(values, "ptr "+e.box(v, cap.OperandType()))
	}
	e.g.declare(runtime.SymClosureNew, "ptr @"+runtime.SymClosureNew+"(ptr, i64, ...)")
	reg := e.reg()
	prefix := fmt.Sprintf("ptr @%s, i64 %d", symbolFor(s.Func), len(values))
	args := strings.Join(append([]string{prefix}, values...), ", ")
	e.line("%s = call ptr (ptr, i64, ...) @%s(%s)", reg, runtime.SymClosureNew, args)
	e.setDef(s.Result, reg)
	return nil
}

// emitCall lowers direct and indirect calls; a callee that may throw is
// followed by a pending-error check branching to the catch handler or
// re-propagating out of this function.
func (e *fnEmitter) emitCall(s *mir.Call) error {
	var paramTypes []types.Type
	var retType types.Type = types.TypeVoid
	if s.Callee != "" {
		if callee := e.g.module.FunctionByName(s.Callee); callee != nil {
			for _, p := range callee.Params {
				paramTypes = append(paramTypes, p.Type)
			}
			retType = callee.ReturnType
		}
	} else if fnType, ok := types.Unwrap(s.CalleeOperand.OperandType()).(*types.Function); ok {
		paramTypes = fnType.Params
		retType = fnType.Return
	}
	if s.Result != nil {
		retType = s.Result.Type
	}

	args := make([]string, 0, len(s.Args)+1)
	for i, arg := range s.Args {
		var target types.Type = arg.OperandType()
		if i < len(paramTypes) {
			target = paramTypes[i]
		}
		v, err := e.typedOperand(arg, target)
		if err != nil {
			return err
		}
		args = append(args, llvmType(target)+" "+v)
	}

	retTy := llvmType(retType)
	var result string
	if s.Callee != "" {
		args = append(args, "ptr null")
		if retTy == "void" {
			e.line("call void @%s(%s)", symbolFor(s.Callee), strings.Join(args, ", "))
		} else {
			result = e.reg()
			e.line("%s = call %s @%s(%s)", result, retTy, symbolFor(s.Callee), strings.Join(args, ", "))
		}
	} else {
		closure, err := e.operand(s.CalleeOperand)
		if err != nil {
			return err
		}
		e.g.declare(runtime.SymClosureFn, "ptr @"+runtime.SymClosureFn+"(ptr)")
		fnPtr := e.reg()
		e.line("%s = call ptr @%s(ptr %s)", fnPtr, runtime.SymClosureFn, closure)
		args = append(args, "ptr "+closure)
		var sigParams []string
		for i := range s.Args {
			var target types.Type = s.Args[i].OperandType()
			if i < len(paramTypes) {
				target = paramTypes[i]
			}
			sigParams = append(sigParams, llvmType(target))
		}
		sigParams = append(sigParams, "ptr")
		sig := fmt.Sprintf("%s (%s)", retTy, strings.Join(sigParams, ", "))
		if retTy == "void" {
			e.line("call %s %s(%s)", sig, fnPtr, strings.Join(args, ", "))
		} else {
			result = e.reg()
			e.line("%s = call %s %s(%s)", result, sig, fnPtr, strings.Join(args, ", "))
		}
	}

	if s.CanThrow {
		if err := e.emitPendingCheck(s); err != nil {
			return err
		}
	}

	if s.Result != nil && result != "" {
		e.setDef(*s.Result, result)
	}
	return nil
}

// emitPendingCheck branches on the runtime's pending-error flag: into
// the catch handler (taking the error value with it) when one is
// active, otherwise re-propagating by returning this function's zero
// value with the error still pending.
func (e *fnEmitter) emitPendingCheck(s *mir.Call) error {
	e.g.declare("sarn_error_pending", "i1 @sarn_error_pending()")
	pending := e.reg()
	e.line("%s = call i1 @sarn_error_pending()", pending)

	contLabel := e.label("call.cont")
	if s.Handler != nil {
		trampLabel := e.label("call.catch")
		e.line("br i1 %s, label %%%s, label %%%s", pending, trampLabel, contLabel)
		e.openLabel(trampLabel)
		e.g.declare(runtime.SymErrorTake, "ptr @"+runtime.SymErrorTake+"()")
		taken := e.reg()
		e.line("%s = call ptr @%s()", taken, runtime.SymErrorTake)

		// The error definition is visible only along this edge.
		saved, had := "", false
		if s.ErrLocal != nil {
			saved, had = e.defs[s.ErrLocal.ID], e.defs[s.ErrLocal.ID] != ""
			e.setDef(*s.ErrLocal, taken)
		}
		e.edge(s.Handler)
		e.line("br label %%%s", s.Handler.Label)
		if s.ErrLocal != nil {
			if had {
				e.defs[s.ErrLocal.ID] = saved
			} else {
				delete(e.defs, s.ErrLocal.ID)
			}
		}
	} else {
		propLabel := e.label("call.prop")
		e.line("br i1 %s, label %%%s, label %%%s", pending, propLabel, contLabel)
		e.openLabel(propLabel)
		if llvmType(e.fn.ReturnType) == "void" {
			e.line("ret void")
		} else {
			e.line("ret %s %s", llvmType(e.fn.ReturnType), zeroValue(e.fn.ReturnType))
		}
	}
	e.openLabel(contLabel)
	return nil
}

// emitIntrinsic dispatches through the registry: per-primitive print
// and length helpers where the static type names one, otherwise the
// entry's registered symbol with boxed arguments.
func (e *fnEmitter) emitIntrinsic(s *mir.CallIntrinsic) error {
	switch s.Name {
	case "print":
		arg, err := e.operand(s.Args[0])
		if err != nil {
			return err
		}
		t := s.Args[0].OperandType()
		switch llvmType(t) {
		case "i64":
			e.g.declare(runtime.SymPrintInt, "void @"+runtime.SymPrintInt+"(i64)")
			e.line("call void @%s(i64 %s)", runtime.SymPrintInt, arg)
		case "double":
			e.g.declare(runtime.SymPrintFloat, "void @"+runtime.SymPrintFloat+"(double)")
			e.line("call void @%s(double %s)", runtime.SymPrintFloat, arg)
		case "i1":
			e.g.declare(runtime.SymPrintBool, "void @"+runtime.SymPrintBool+"(i1)")
			e.line("call void @%s(i1 %s)", runtime.SymPrintBool, arg)
		default:
			if p, ok := types.Unwrap(t).(*types.Primitive); ok && p.Kind == types.String {
				e.g.declare(runtime.SymPrintString, "void @"+runtime.SymPrintString+"(ptr)")
				e.line("call void @%s(ptr %s)", runtime.SymPrintString, arg)
			} else {
				e.g.declare(runtime.SymPrintValue, "void @"+runtime.SymPrintValue+"(ptr)")
				e.line("call void @%s(ptr %s)", runtime.SymPrintValue, arg)
			}
		}
		return nil

	case "len":
		arg, err := e.operand(s.Args[0])
		if err != nil {
			return err
		}
		symbol := runtime.SymListLen
		switch t := types.Unwrap(s.Args[0].OperandType()).(type) {
		case *types.Primitive:
			if t.Kind == types.String {
				symbol = runtime.SymStringLen
			}
		case *types.Dict:
			symbol = runtime.SymDictLen
		}
		e.g.declare(symbol, "i64 @"+symbol+"(ptr)")
		reg := e.reg()
		e.line("%s = call i64 @%s(ptr %s)", reg, symbol, arg)
		if s.Result != nil {
			e.setDef(*s.Result, reg)
		}
		return nil

	case "push":
		list, err := e.operand(s.Args[0])
		if err != nil {
			return err
		}
		value, err := e.operand(s.Args[1])
		if err != nil {
			return err
		}
		e.g.declare(runtime.SymListPush, "void @"+runtime.SymListPush+"(ptr, ptr)")
		e.line("call void @%s(ptr %s, ptr %s)", runtime.SymListPush, list, e.box(value, s.Args[1].OperandType()))
		return nil

	default:
		entry, ok := intrinsics.ByKind(s.Kind)
		if !ok {
			return fmt.Errorf("unknown intrinsic kind %d", s.Kind)
		}
		args := make([]string, 0, len(s.Args))
		for _, a := range s.Args {
			v, err := e.operand(a)
			if err != nil {
				return err
			}
			args = append(args, "ptr "+e.box(v, a.OperandType()))
		}
		retTy := llvmType(entry.Return)
		var sigArgs []string
		for range args {
			sigArgs = append(sigArgs, "ptr")
		}
		e.g.declare(entry.Symbol, retTy+" @"+entry.Symbol+"("+strings.Join(sigArgs, ", ")+")")
		if retTy == "void" {
			e.line("call void @%s(%s)", entry.Symbol, strings.Join(args, ", "))
			return nil
		}
		reg := e.reg()
		e.line("%s = call %s @%s(%s)", reg, retTy, entry.Symbol, strings.Join(args, ", "))
		if s.Result != nil {
			e.setDef(*s.Result, reg)
		}
		return nil
	}
}

func (e *fnEmitter) emitTerminator(t mir.Terminator) error {
	switch term := t.(type) {
	case *mir.Return:
		if term.Value == nil || llvmType(e.fn.ReturnType) == "void" {
			e.line("ret void")
			return nil
		}
		value, err := e.typedOperand(term.Value, e.fn.ReturnType)
		if err != nil {
			return err
		}
		e.line("ret %s %s", llvmType(e.fn.ReturnType), value)
		return nil

	case *mir.Goto:
		e.edge(term.Target)
		e.line("br label %%%s", term.Target.Label)
		return nil

	case *mir.Branch:
		cond, err := e.operand(term.Condition)
		if err != nil {
			return err
		}
		e.edge(term.True)
		e.edge(term.False)
		e.line("br i1 %s, label %%%s, label %%%s", cond, term.True.Label, term.False.Label)
		return nil

	case *mir.Throw:
		value, err := e.operand(term.Value)
		if err != nil {
			return err
		}
		e.g.declare(runtime.SymErrorRaise, "void @"+runtime.SymErrorRaise+"(ptr)")
		e.line("call void @%s(ptr %s)", runtime.SymErrorRaise, e.box(value, term.Value.OperandType()))
		if llvmType(e.fn.ReturnType) == "void" {
			e.line("ret void")
		} else {
			e.line("ret %s %s", llvmType(e.fn.ReturnType), zeroValue(e.fn.ReturnType))
		}
		return nil

	case *mir.Unreachable:
		e.line("unreachable")
		return nil

	case nil:
		return fmt.Errorf("block without terminator")

	default:
		return fmt.Errorf("unsupported terminator %T", t)
	}
}
