package mir

import (
	"fmt"

	"github.com/sarn-lang/sarn/internal/ast"
	"github.com/sarn-lang/sarn/internal/types"
)

// lowerIfExpr lowers an if used as an expression: each clause body
// assigns the shared result local, merged after the chain.
func (l *Lowerer) lowerIfExpr(e *ast.IfExpr) (Operand, error) {
	resultType := l.typeOf(e)
	result := l.newNamedLocal("", resultType, true)
	merge := l.newBlock("if_merge")

	for _, clause := range e.Clauses {
		cond, err := l.lowerExpr(clause.Condition)
		if err != nil {
			return nil, err
		}
		body := l.newBlock("if_then")
		next := l.newBlock("if_else")
		l.currentBlock.Terminator = &Branch{Condition: cond, True: body, False: next}

		l.currentBlock = body
		value, err := l.lowerBlock(clause.Body)
		if err != nil {
			return nil, err
		}
		if l.currentBlock.Terminator == nil {
			if value != nil {
				l.emit(&Assign{Result: result, Value: value})
			}
			l.currentBlock.Terminator = &Goto{Target: merge}
		}
		l.currentBlock = next
	}

	value, err := l.lowerBlock(e.Else)
	if err != nil {
		return nil, err
	}
	if l.currentBlock.Terminator == nil {
		if value != nil {
			l.emit(&Assign{Result: result, Value: value})
		}
		l.currentBlock.Terminator = &Goto{Target: merge}
	}

	l.currentBlock = merge
	return &LocalRef{Local: result}, nil
}

// lowerMatchExpr lowers a match to a cascade of typed comparisons: each
// arm tests in order, binding its pattern on the hit path. The final
// miss block is unreachable because the checker proved exhaustiveness.
func (l *Lowerer) lowerMatchExpr(e *ast.MatchExpr) (Operand, error) {
	subject, err := l.lowerExpr(e.Subject)
	if err != nil {
		return nil, err
	}

	resultType := l.typeOf(e)
	result := l.newNamedLocal("", resultType, true)
	merge := l.newBlock("match_end")

	for _, arm := range e.Arms {
		bodyBlock := l.newBlock("match_arm")
		nextBlock := l.newBlock("match_next")

		l.pushScope()
		cond, err := l.lowerPatternTest(arm.Pattern, subject)
		if err != nil {
			l.popScope()
			return nil, err
		}
		l.currentBlock.Terminator = &Branch{Condition: cond, True: bodyBlock, False: nextBlock}

		l.currentBlock = bodyBlock
		if err := l.lowerPatternBindings(arm.Pattern, subject); err != nil {
			l.popScope()
			return nil, err
		}
		if arm.Guard != nil {
			guard, err := l.lowerGuard(arm.Guard, subject)
			if err != nil {
				l.popScope()
				return nil, err
			}
			guardBody := l.newBlock("match_guarded")
			l.currentBlock.Terminator = &Branch{Condition: guard, True: guardBody, False: nextBlock}
			l.currentBlock = guardBody
		}
		value, err := l.lowerBlock(arm.Body)
		l.popScope()
		if err != nil {
			return nil, err
		}
		if l.currentBlock.Terminator == nil {
			if value != nil {
				l.emit(&Assign{Result: result, Value: value})
			}
			l.currentBlock.Terminator = &Goto{Target: merge}
		}

		l.currentBlock = nextBlock
	}

	// Exhaustiveness was checked; the fall-through block cannot execute.
	l.currentBlock.Terminator = &Unreachable{}

	l.currentBlock = merge
	return &LocalRef{Local: result}, nil
}

// lowerGuard lowers an `is` guard: a variant path is a tag test against
// the subject, anything else is an ordinary Bool expression.
func (l *Lowerer) lowerGuard(guard ast.Expr, subject Operand) (Operand, error) {
	if fe, ok := guard.(*ast.FieldExpr); ok {
		if ident, ok := fe.Target.(*ast.Ident); ok {
			if en, ok := l.Info.Enums[ident.Name]; ok {
				if _, idx, ok := en.VariantByName(fe.Field.Name); ok {
					return l.tagTest(subject, idx), nil
				}
			}
			if et, ok := l.Info.ErrorTypes[ident.Name]; ok {
				if _, idx, ok := et.VariantByName(fe.Field.Name); ok {
					return l.tagTest(subject, idx), nil
				}
			}
		}
	}
	return l.lowerExpr(guard)
}

// lowerPatternTest emits the Bool test deciding whether a pattern
// matches the subject, without binding anything.
func (l *Lowerer) lowerPatternTest(pat ast.Pattern, subject Operand) (Operand, error) {
	switch p := pat.(type) {
	case *ast.PatternWild, *ast.PatternIdent:
		return &Literal{Type: types.TypeBool, Value: true}, nil

	case *ast.PatternLiteral:
		lit, err := l.lowerExpr(p.Expr)
		if err != nil {
			return nil, err
		}
		result := l.newLocal(types.TypeBool)
		l.emit(&BinOp{Result: result, Op: BinEq, Left: subject, Right: lit})
		return &LocalRef{Local: result}, nil

	case *ast.PatternRange:
		return l.lowerRangeTest(p, subject)

	case *ast.PatternPath:
		idx, err := l.variantIndexFor(subject, p.Segments[len(p.Segments)-1].Name)
		if err != nil {
			return nil, err
		}
		return l.tagTest(subject, idx), nil

	case *ast.PatternEnum:
		idx, err := l.variantIndexFor(subject, p.Path.Segments[len(p.Path.Segments)-1].Name)
		if err != nil {
			return nil, err
		}
		return l.tagTest(subject, idx), nil

	case *ast.PatternOr:
		// Alternation: any alternative matching selects the arm.
		var acc Operand
		for _, alt := range p.Patterns {
			test, err := l.lowerPatternTest(alt, subject)
			if err != nil {
				return nil, err
			}
			if acc == nil {
				acc = test
				continue
			}
			merged := l.newNamedLocal("", types.TypeBool, true)
			l.emit(&Assign{Result: merged, Value: acc})
			rhs := l.newBlock("or_pat")
			done := l.newBlock("or_pat_end")
			l.currentBlock.Terminator = &Branch{Condition: acc, True: done, False: rhs}
			l.currentBlock = rhs
			l.emit(&Assign{Result: merged, Value: test})
			l.currentBlock.Terminator = &Goto{Target: done}
			l.currentBlock = done
			acc = &LocalRef{Local: merged}
		}
		if acc == nil {
			acc = &Literal{Type: types.TypeBool, Value: false}
		}
		return acc, nil

	case *ast.PatternParen:
		return l.lowerPatternTest(p.Pattern, subject)

	case *ast.PatternSlice:
		return l.lowerSliceTest(p, subject)

	default:
		return nil, fmt.Errorf("unsupported pattern %T", pat)
	}
}

// lowerSliceTest matches a list by length: exact without a rest marker,
// at-least with one.
func (l *Lowerer) lowerSliceTest(p *ast.PatternSlice, subject Operand) (Operand, error) {
	fixed := 0
	hasRest := false
	for _, elem := range p.Elements {
		if _, ok := elem.(*ast.PatternRest); ok {
			hasRest = true
			continue
		}
		fixed++
	}
	length := l.newLocal(types.TypeInt)
	kind, _ := l.intrinsicKind("len")
	l.emit(&CallIntrinsic{Result: &length, Name: "len", Kind: kind, Args: []Operand{subject}})
	result := l.newLocal(types.TypeBool)
	op := BinEq
	if hasRest {
		op = BinGe
	}
	l.emit(&BinOp{
		Result: result,
		Op:     op,
		Left:   &LocalRef{Local: length},
		Right:  &Literal{Type: types.TypeInt, Value: int64(fixed)},
	})
	return &LocalRef{Local: result}, nil
}

func (l *Lowerer) lowerRangeTest(p *ast.PatternRange, subject Operand) (Operand, error) {
	start, err := l.lowerExpr(p.Start)
	if err != nil {
		return nil, err
	}
	end, err := l.lowerExpr(p.End)
	if err != nil {
		return nil, err
	}
	ge := l.newLocal(types.TypeBool)
	l.emit(&BinOp{Result: ge, Op: BinGe, Left: subject, Right: start})
	le := l.newLocal(types.TypeBool)
	upperOp := BinLt
	if p.Inclusive {
		upperOp = BinLe
	}
	l.emit(&BinOp{Result: le, Op: upperOp, Left: subject, Right: end})

	// The result takes the upper-bound test only on the branch where the
	// lower-bound test held.
	result := l.newNamedLocal("", types.TypeBool, true)
	l.emit(&Assign{Result: result, Value: &LocalRef{Local: ge}})
	rhs := l.newBlock("range_hi")
	done := l.newBlock("range_done")
	l.currentBlock.Terminator = &Branch{Condition: &LocalRef{Local: ge}, True: rhs, False: done}
	l.currentBlock = rhs
	l.emit(&Assign{Result: result, Value: &LocalRef{Local: le}})
	l.currentBlock.Terminator = &Goto{Target: done}
	l.currentBlock = done
	return &LocalRef{Local: result}, nil
}

// tagTest compares the subject's discriminant against an interned
// variant index.
func (l *Lowerer) tagTest(subject Operand, variantIndex int) Operand {
	tag := l.newLocal(types.TypeInt)
	l.emit(&Discriminant{Result: tag, Target: subject})
	result := l.newLocal(types.TypeBool)
	l.emit(&BinOp{
		Result: result,
		Op:     BinEq,
		Left:   &LocalRef{Local: tag},
		Right:  &Literal{Type: types.TypeInt, Value: int64(variantIndex)},
	})
	return &LocalRef{Local: result}
}

func (l *Lowerer) variantIndexFor(subject Operand, variantName string) (int, error) {
	switch t := types.Unwrap(subject.OperandType()).(type) {
	case *types.Enum:
		if _, idx, ok := t.VariantByName(variantName); ok {
			return idx, nil
		}
	case *types.ErrorType:
		if _, idx, ok := t.VariantByName(variantName); ok {
			return idx, nil
		}
	case *types.GenericInstance:
		if en, ok := t.Base.(*types.Enum); ok {
			if _, idx, ok := en.VariantByName(variantName); ok {
				return idx, nil
			}
		}
	}
	return 0, fmt.Errorf("no variant %q on %s", variantName, subject.OperandType())
}

// lowerPatternBindings declares the names a matched pattern binds,
// extracting payloads on the arm's hit path.
func (l *Lowerer) lowerPatternBindings(pat ast.Pattern, subject Operand) error {
	switch p := pat.(type) {
	case *ast.PatternWild, *ast.PatternLiteral, *ast.PatternRange, *ast.PatternPath:
		return nil

	case *ast.PatternIdent:
		local := l.newNamedLocal(p.Name.Name, subject.OperandType(), false)
		l.bind(p.Name.Name, local)
		l.emit(&Assign{Result: local, Value: subject})
		return nil

	case *ast.PatternEnum:
		idx, err := l.variantIndexFor(subject, p.Path.Segments[len(p.Path.Segments)-1].Name)
		if err != nil {
			return err
		}
		payload := l.variantPayloadTypes(subject, idx)
		for i, elem := range p.Elements {
			var pt types.Type = types.TypeUnknown
			if i < len(payload) {
				pt = payload[i]
			}
			value := l.newLocal(pt)
			l.emit(&AccessVariantPayload{Result: value, Target: subject, VariantIndex: idx, MemberIndex: i})
			if err := l.lowerPatternBindings(elem, &LocalRef{Local: value}); err != nil {
				return err
			}
		}
		return nil

	case *ast.PatternStruct:
		st, subst := structOfType(subject.OperandType())
		if st == nil {
			return fmt.Errorf("struct pattern on non-struct %s", subject.OperandType())
		}
		for _, f := range p.Fields {
			var ft types.Type = types.TypeUnknown
			fieldIndex := 0
			for i, sf := range st.Fields {
				if sf.Name == f.Name.Name {
					ft = sf.Type
					fieldIndex = i
					break
				}
			}
			if subst != nil {
				ft = types.Substitute(ft, subst)
			}
			value := l.newLocal(ft)
			l.emit(&LoadField{Result: value, Target: subject, Field: f.Name.Name, Index: fieldIndex})
			if f.Shorthand {
				local := l.newNamedLocal(f.Name.Name, ft, false)
				l.bind(f.Name.Name, local)
				l.emit(&Assign{Result: local, Value: &LocalRef{Local: value}})
				continue
			}
			if err := l.lowerPatternBindings(f.Pattern, &LocalRef{Local: value}); err != nil {
				return err
			}
		}
		return nil

	case *ast.PatternOr:
		// Alternatives bind the same names; bind through the first.
		if len(p.Patterns) > 0 {
			return l.lowerPatternBindings(p.Patterns[0], subject)
		}
		return nil

	case *ast.PatternSlice:
		lt, _ := types.Unwrap(subject.OperandType()).(*types.List)
		var elemType types.Type = types.TypeUnknown
		if lt != nil {
			elemType = lt.Elem
		}
		for i, elem := range p.Elements {
			if rest, ok := elem.(*ast.PatternRest); ok {
				if rest.Binding != nil {
					tail := l.newLocal(subject.OperandType())
					l.emit(&Slice{
						Result: tail,
						Target: subject,
						Start:  &Literal{Type: types.TypeInt, Value: int64(i)},
					})
					if err := l.lowerPatternBindings(rest.Binding, &LocalRef{Local: tail}); err != nil {
						return err
					}
				}
				continue
			}
			value := l.newLocal(elemType)
			l.emit(&LoadIndex{
				Result: value,
				Target: subject,
				Index:  &Literal{Type: types.TypeInt, Value: int64(i)},
			})
			if err := l.lowerPatternBindings(elem, &LocalRef{Local: value}); err != nil {
				return err
			}
		}
		return nil

	case *ast.PatternParen:
		return l.lowerPatternBindings(p.Pattern, subject)

	default:
		return fmt.Errorf("unsupported pattern %T", pat)
	}
}

func (l *Lowerer) variantPayloadTypes(subject Operand, variantIndex int) []types.Type {
	switch t := types.Unwrap(subject.OperandType()).(type) {
	case *types.Enum:
		return t.Variants[variantIndex].Payload
	case *types.ErrorType:
		return t.Variants[variantIndex].Payload
	case *types.GenericInstance:
		if en, ok := t.Base.(*types.Enum); ok {
			subst := make(map[string]types.Type, len(en.TypeParams))
			for i, tp := range en.TypeParams {
				if i < len(t.Args) {
					subst[tp.Name] = t.Args[i]
				}
			}
			out := make([]types.Type, len(en.Variants[variantIndex].Payload))
			for i, pt := range en.Variants[variantIndex].Payload {
				out[i] = types.Substitute(pt, subst)
			}
			return out
		}
	}
	return nil
}
