package mir

import (
	"fmt"

	"github.com/sarn-lang/sarn/internal/ast"
	"github.com/sarn-lang/sarn/internal/types"
)

func (l *Lowerer) lowerCallExpr(e *ast.CallExpr) (Operand, error) {
	// Enum/error variant construction: `Option.Some(1)`, `E.NotFound(p)`.
	if fe, ok := e.Callee.(*ast.FieldExpr); ok {
		if ident, ok := fe.Target.(*ast.Ident); ok {
			if _, resolved := l.Info.ResolvedCallees[e]; !resolved {
				if en, ok := l.Info.Enums[ident.Name]; ok {
					return l.lowerVariantConstruction(e, en.Name, en.Variants, fe.Field.Name)
				}
				if et, ok := l.Info.ErrorTypes[ident.Name]; ok {
					return l.lowerVariantConstruction(e, et.Name, et.Variants, fe.Field.Name)
				}
			}
		}
	}

	name, calleeOperand, fnType, err := l.resolveCallee(e)
	if err != nil {
		return nil, err
	}

	args := make([]Operand, 0, len(e.Args))
	for _, arg := range e.Args {
		op, err := l.lowerExpr(arg)
		if err != nil {
			return nil, err
		}
		args = append(args, op)
	}

	// Intrinsics dispatch by numeric kind, direct calls by name,
	// indirect calls through the closure operand. A module-declared
	// function shadows the intrinsic of the same name.
	if name != "" && calleeOperand == nil {
		if kind, ok := l.intrinsicKind(name); ok {
			sym := l.Info.GlobalScope.Lookup(name)
			if sym == nil || sym.DefNode == nil {
				return l.emitIntrinsic(e, name, kind, args)
			}
		}
	}

	var result *Local
	retType := l.typeOf(e)
	if !isVoidType(retType) {
		r := l.newLocal(retType)
		result = &r
	}

	call := &Call{
		Result:        result,
		Callee:        name,
		CalleeOperand: calleeOperand,
		Args:          args,
		TypeArgs:      l.Info.CallTypeArgs[e],
	}
	if fnType != nil && len(fnType.Throws) > 0 {
		call.CanThrow = true
		call.Handler = l.catchHandler
		call.ErrLocal = l.catchErrLocal
	}
	l.emit(call)

	if result == nil {
		return nil, nil
	}
	return &LocalRef{Local: *result}, nil
}

func (l *Lowerer) emitIntrinsic(e *ast.CallExpr, name string, kind int, args []Operand) (Operand, error) {
	retType := l.typeOf(e)
	var result *Local
	if !isVoidType(retType) {
		r := l.newLocal(retType)
		result = &r
	}
	l.emit(&CallIntrinsic{Result: result, Name: name, Kind: kind, Args: args})
	if result == nil {
		return nil, nil
	}
	return &LocalRef{Local: *result}, nil
}

// resolveCallee classifies a call's callee: a flat function name for
// direct calls (possibly alias-qualified or type-argument-applied), or
// an operand for indirect closure calls.
func (l *Lowerer) resolveCallee(e *ast.CallExpr) (string, Operand, *types.Function, error) {
	fnType, _ := l.typeOf(e.Callee).(*types.Function)

	if flat, ok := l.Info.ResolvedCallees[e]; ok {
		return flat, nil, fnType, nil
	}

	switch callee := e.Callee.(type) {
	case *ast.Ident:
		// A local binding holding a closure calls indirectly; anything
		// else is a direct call by name.
		if local, ok := l.lookup(callee.Name); ok {
			return "", &LocalRef{Local: local}, fnType, nil
		}
		if l.capturing != nil {
			if local, ok := l.capturing.capture(l, callee.Name); ok {
				return "", &LocalRef{Local: local}, fnType, nil
			}
		}
		return callee.Name, nil, fnType, nil

	case *ast.IndexExpr:
		// Explicit type arguments: `id[Int](7)`.
		if ident, ok := callee.Target.(*ast.Ident); ok {
			if _, isLocal := l.lookup(ident.Name); !isLocal {
				return ident.Name, nil, fnType, nil
			}
		}

	case *ast.FieldExpr:
		// A closure stored in a struct field.
		op, err := l.lowerExpr(callee)
		if err != nil {
			return "", nil, nil, err
		}
		return "", op, fnType, nil
	}

	op, err := l.lowerExpr(e.Callee)
	if err != nil {
		return "", nil, nil, err
	}
	return "", op, fnType, nil
}

func (l *Lowerer) lowerVariantConstruction(e *ast.CallExpr, typeName string, variants []types.Variant, variantName string) (Operand, error) {
	index := -1
	for i, v := range variants {
		if v.Name == variantName {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, fmt.Errorf("no variant %s.%s", typeName, variantName)
	}

	values := make([]Operand, 0, len(e.Args))
	for _, arg := range e.Args {
		op, err := l.lowerExpr(arg)
		if err != nil {
			return nil, err
		}
		values = append(values, op)
	}

	result := l.newLocal(l.typeOf(e))
	l.emit(&ConstructEnum{
		Result:       result,
		Type:         l.typeOf(e),
		TypeName:     typeName,
		Variant:      variantName,
		VariantIndex: index,
		Values:       values,
	})
	return &LocalRef{Local: result}, nil
}

// lowerCatchExpr lowers `expr catch err ... end`: the target's thrown
// errors divert to a handler block binding err, and both paths merge on
// a shared result local.
func (l *Lowerer) lowerCatchExpr(e *ast.CatchExpr) (Operand, error) {
	resultType := l.typeOf(e)
	result := l.newNamedLocal("", resultType, true)

	handler := l.newBlock("catch")
	merge := l.newBlock("catch_end")
	errLocal := l.newNamedLocal(e.ErrName.Name, l.errTypeOfCatch(e), false)

	prevHandler, prevErr := l.catchHandler, l.catchErrLocal
	l.catchHandler, l.catchErrLocal = handler, &errLocal
	target, err := l.lowerExpr(e.Target)
	l.catchHandler, l.catchErrLocal = prevHandler, prevErr
	if err != nil {
		return nil, err
	}
	if target != nil {
		l.emit(&Assign{Result: result, Value: target})
	}
	l.currentBlock.Terminator = &Goto{Target: merge}

	l.currentBlock = handler
	l.pushScope()
	l.bind(e.ErrName.Name, errLocal)
	body, err := l.lowerBlock(e.Body)
	l.popScope()
	if err != nil {
		return nil, err
	}
	if l.currentBlock.Terminator == nil {
		if body != nil {
			l.emit(&Assign{Result: result, Value: body})
		}
		l.currentBlock.Terminator = &Goto{Target: merge}
	}

	l.currentBlock = merge
	return &LocalRef{Local: result}, nil
}

// errTypeOfCatch recovers the error type bound by a catch from the
// target call's signature.
func (l *Lowerer) errTypeOfCatch(e *ast.CatchExpr) types.Type {
	if call, ok := e.Target.(*ast.CallExpr); ok {
		if fnType, ok := l.typeOf(call.Callee).(*types.Function); ok && len(fnType.Throws) == 1 {
			return fnType.Throws[0]
		}
	}
	return types.TypeUnknown
}
