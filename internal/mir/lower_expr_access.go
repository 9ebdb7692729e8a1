package mir

import (
	"fmt"

	"github.com/sarn-lang/sarn/internal/ast"
	"github.com/sarn-lang/sarn/internal/types"
)

func (l *Lowerer) lowerFieldExpr(e *ast.FieldExpr) (Operand, error) {
	// A module-alias-qualified or variant reference in value position:
	// unit variants construct here, module members resolve flat.
	if ident, ok := e.Target.(*ast.Ident); ok {
		if _, isLocal := l.lookup(ident.Name); !isLocal {
			if en, ok := l.Info.Enums[ident.Name]; ok {
				return l.lowerUnitVariant(e, en.Name, en.Variants, e.Field.Name)
			}
			if et, ok := l.Info.ErrorTypes[ident.Name]; ok {
				return l.lowerUnitVariant(e, et.Name, et.Variants, e.Field.Name)
			}
			if fnType, ok := l.typeOf(e).(*types.Function); ok {
				// Module-qualified function referenced as a value.
				return &FuncRef{Name: e.Field.Name, Type: fnType}, nil
			}
		}
	}

	target, err := l.lowerExpr(e.Target)
	if err != nil {
		return nil, err
	}

	targetType := types.Unwrap(target.OperandType())

	// Error payload access (`err.path`) reads the named payload slot of
	// the variant that declares it.
	if et, ok := targetType.(*types.ErrorType); ok {
		variantIndex, memberIndex, ok := errorPayloadSlot(et, e.Field.Name)
		if !ok {
			return nil, fmt.Errorf("%s has no payload field %q", et.Name, e.Field.Name)
		}
		result := l.newLocal(l.typeOf(e))
		l.emit(&AccessVariantPayload{
			Result:       result,
			Target:       target,
			VariantIndex: variantIndex,
			MemberIndex:  memberIndex,
		})
		return &LocalRef{Local: result}, nil
	}

	st, _ := structOfType(targetType)
	fieldIndex := 0
	if st != nil {
		for i, f := range st.Fields {
			if f.Name == e.Field.Name {
				fieldIndex = i
				break
			}
		}
	}

	result := l.newLocal(l.typeOf(e))
	l.emit(&LoadField{Result: result, Target: target, Field: e.Field.Name, Index: fieldIndex})
	return &LocalRef{Local: result}, nil
}

func (l *Lowerer) lowerUnitVariant(e *ast.FieldExpr, typeName string, variants []types.Variant, variantName string) (Operand, error) {
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
	result := l.newLocal(l.typeOf(e))
	l.emit(&ConstructEnum{
		Result:       result,
		Type:         l.typeOf(e),
		TypeName:     typeName,
		Variant:      variantName,
		VariantIndex: index,
	})
	return &LocalRef{Local: result}, nil
}

// errorPayloadSlot finds (variant index, member index) of a named
// payload field across an error type's variants.
func errorPayloadSlot(et *types.ErrorType, name string) (int, int, bool) {
	for vi, v := range et.Variants {
		for mi, pn := range v.PayloadNames {
			if pn == name {
				return vi, mi, true
			}
		}
	}
	return 0, 0, false
}

func structOfType(t types.Type) (*types.Struct, map[string]types.Type) {
	switch tt := types.Unwrap(t).(type) {
	case *types.Struct:
		return tt, nil
	case *types.GenericInstance:
		if st, ok := tt.Base.(*types.Struct); ok {
			subst := make(map[string]types.Type, len(st.TypeParams))
			for i, tp := range st.TypeParams {
				if i < len(tt.Args) {
					subst[tp.Name] = tt.Args[i]
				}
			}
			return st, subst
		}
	}
	return nil, nil
}

func (l *Lowerer) lowerIndexExpr(e *ast.IndexExpr) (Operand, error) {
	target, err := l.lowerExpr(e.Target)
	if err != nil {
		return nil, err
	}

	// A range index is a slice.
	if r, ok := e.Index.(*ast.RangeExpr); ok {
		var start, end Operand
		if r.Start != nil {
			if start, err = l.lowerExpr(r.Start); err != nil {
				return nil, err
			}
		}
		if r.End != nil {
			if end, err = l.lowerExpr(r.End); err != nil {
				return nil, err
			}
		}
		result := l.newLocal(l.typeOf(e))
		l.emit(&Slice{Result: result, Target: target, Start: start, End: end, Inclusive: r.Inclusive})
		return &LocalRef{Local: result}, nil
	}

	index, err := l.lowerExpr(e.Index)
	if err != nil {
		return nil, err
	}
	result := l.newLocal(l.typeOf(e))
	l.emit(&LoadIndex{Result: result, Target: target, Index: index})
	return &LocalRef{Local: result}, nil
}
