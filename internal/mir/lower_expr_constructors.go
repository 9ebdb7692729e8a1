package mir

import (
	"fmt"

	"github.com/sarn-lang/sarn/internal/ast"
	"github.com/sarn-lang/sarn/internal/types"
)

func (l *Lowerer) lowerStructLiteral(e *ast.StructLiteral) (Operand, error) {
	structType := l.typeOf(e)
	st, _ := structOfType(structType)
	if st == nil {
		return nil, fmt.Errorf("struct literal without a struct type")
	}

	// Evaluate field values in source order, then construct in
	// declaration order so both backends agree on layout.
	bySource := make(map[string]Operand, len(e.Fields))
	for _, f := range e.Fields {
		op, err := l.lowerExpr(f.Value)
		if err != nil {
			return nil, err
		}
		bySource[f.Name.Name] = op
	}

	fields := make([]FieldInit, 0, len(st.Fields))
	for _, f := range st.Fields {
		op, ok := bySource[f.Name]
		if !ok {
			return nil, fmt.Errorf("missing field %q in %s literal", f.Name, st.Name)
		}
		fields = append(fields, FieldInit{Name: f.Name, Value: op})
	}

	result := l.newLocal(structType)
	l.emit(&ConstructStruct{Result: result, Type: structType, Fields: fields})
	return &LocalRef{Local: result}, nil
}

func (l *Lowerer) lowerListLiteral(e *ast.ListLiteral) (Operand, error) {
	listType, _ := l.typeOf(e).(*types.List)
	var elemType types.Type = types.TypeUnknown
	if listType != nil {
		elemType = listType.Elem
	}

	elements := make([]Operand, 0, len(e.Elements))
	for _, el := range e.Elements {
		op, err := l.lowerExpr(el)
		if err != nil {
			return nil, err
		}
		elements = append(elements, op)
	}

	result := l.newLocal(l.typeOf(e))
	l.emit(&ConstructList{Result: result, ElemType: elemType, Elements: elements})
	return &LocalRef{Local: result}, nil
}

func (l *Lowerer) lowerDictLiteral(e *ast.DictLiteral) (Operand, error) {
	dictType, _ := l.typeOf(e).(*types.Dict)

	keys := make([]Operand, 0, len(e.Entries))
	values := make([]Operand, 0, len(e.Entries))
	for _, entry := range e.Entries {
		k, err := l.lowerExpr(entry.Key)
		if err != nil {
			return nil, err
		}
		v, err := l.lowerExpr(entry.Value)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
		values = append(values, v)
	}

	result := l.newLocal(l.typeOf(e))
	l.emit(&ConstructDict{Result: result, Type: dictType, Keys: keys, Values: values})
	return &LocalRef{Local: result}, nil
}

// lowerFunctionLiteral lifts a lambda into a module-level function and
// builds a closure record over its captured environment. Captures are
// collected while lowering the lambda body: any name missing from the
// lambda's own scopes resolves against the enclosing function instead.
func (l *Lowerer) lowerFunctionLiteral(e *ast.FunctionLiteral) (Operand, error) {
	fnType, _ := l.typeOf(e).(*types.Function)
	if fnType == nil {
		return nil, fmt.Errorf("lambda without a function type")
	}

	l.lambdaSeq++
	name := fmt.Sprintf("%s$lambda%d", l.currentFunc.Name, l.lambdaSeq)

	lifted := &Function{
		Name:       name,
		ReturnType: fnType.Return,
		IsClosure:  true,
	}

	// Save the enclosing lowering state; the lifted function lowers in
	// its own local/block numbering.
	outerFunc, outerBlock := l.currentFunc, l.currentBlock
	outerScopes := l.scopes
	outerLocals, outerBlocks := l.localCounter, l.blockCounter
	outerCapturing := l.capturing

	l.currentFunc = lifted
	l.localCounter, l.blockCounter = 0, 0
	l.scopes = []map[string]Local{make(map[string]Local)}
	l.capturing = &captureSet{
		outer:  outerScopes,
		locals: make(map[string]Local),
		byRef:  l.reassignedAfter(e, outerScopes),
	}

	for i, param := range e.Params {
		var pt types.Type = types.TypeUnknown
		if i < len(fnType.Params) {
			pt = fnType.Params[i]
		}
		local := l.newNamedLocal(param.Name.Name, pt, true)
		lifted.Params = append(lifted.Params, local)
		l.bind(param.Name.Name, local)
	}

	entry := l.newBlock("entry")
	lifted.Entry = entry
	l.currentBlock = entry

	body, err := l.lowerExpr(e.Body)
	if err != nil {
		return nil, err
	}
	if l.currentBlock.Terminator == nil {
		if body != nil && !isVoidType(fnType.Return) {
			l.currentBlock.Terminator = &Return{Value: body}
		} else {
			l.currentBlock.Terminator = &Return{}
		}
	}

	captureNames := l.capturing.names

	l.currentFunc, l.currentBlock = outerFunc, outerBlock
	l.scopes = outerScopes
	l.localCounter, l.blockCounter = outerLocals, outerBlocks
	l.capturing = outerCapturing

	l.module.Functions = append(l.module.Functions, lifted)

	// Capture operands evaluate in the enclosing function, in blob order.
	captures := make([]Operand, 0, len(captureNames))
	for _, cn := range captureNames {
		local, ok := l.lookup(cn)
		if !ok {
			return nil, fmt.Errorf("captured name %q not in scope", cn)
		}
		captures = append(captures, &LocalRef{Local: local})
	}

	result := l.newLocal(fnType)
	l.emit(&MakeClosure{Result: result, Func: name, Captures: captures})
	return &LocalRef{Local: result}, nil
}

// reassignedAfter reports, per outer binding name, whether any
// assignment to it occurs lexically after the lambda. Those captures box
// an indirect reference; everything else captures by value.
func (l *Lowerer) reassignedAfter(lambda *ast.FunctionLiteral, outerScopes []map[string]Local) map[string]bool {
	byRef := make(map[string]bool)
	if l.currentDecl == nil {
		return byRef
	}
	end := lambda.Span().End
	ast.Walk(l.currentDecl, func(n ast.Node) bool {
		assign, ok := n.(*ast.AssignExpr)
		if !ok {
			return true
		}
		ident, ok := assign.Target.(*ast.Ident)
		if !ok {
			return true
		}
		if assign.Span().Start >= end {
			byRef[ident.Name] = true
		}
		return true
	})
	return byRef
}
