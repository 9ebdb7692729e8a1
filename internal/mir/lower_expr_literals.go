package mir

import (
	"strconv"
	"strings"

	"github.com/sarn-lang/sarn/internal/ast"
	"github.com/sarn-lang/sarn/internal/types"
)

func (l *Lowerer) lowerIntegerLit(e *ast.IntegerLit) (Operand, error) {
	v, err := strconv.ParseInt(strings.ReplaceAll(e.Text, "_", ""), 10, 64)
	if err != nil {
		return nil, err
	}
	return &Literal{Type: types.TypeInt, Value: v}, nil
}

func (l *Lowerer) lowerFloatLit(e *ast.FloatLit) (Operand, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(e.Text, "_", ""), 64)
	if err != nil {
		return nil, err
	}
	return &Literal{Type: types.TypeFloat, Value: v}, nil
}

func (l *Lowerer) lowerBoolLit(e *ast.BoolLit) (Operand, error) {
	return &Literal{Type: types.TypeBool, Value: e.Value}, nil
}

func (l *Lowerer) lowerStringLit(e *ast.StringLit) (Operand, error) {
	return &Literal{Type: types.TypeString, Value: e.Value}, nil
}

func (l *Lowerer) lowerNilLit(e *ast.NilLit) (Operand, error) {
	return &Literal{Type: types.TypeNil, Value: nil}, nil
}

// lowerTemplateLit lowers a backtick template to a left-to-right string
// concatenation: each hole stringifies through the str intrinsic, so
// both backends share one formatting rule.
func (l *Lowerer) lowerTemplateLit(e *ast.TemplateLit) (Operand, error) {
	var acc Operand = &Literal{Type: types.TypeString, Value: e.Fragments[0]}
	for i, sub := range e.Exprs {
		op, err := l.lowerExpr(sub)
		if err != nil {
			return nil, err
		}
		str := l.stringify(op)
		acc = l.concat(acc, str)
		if frag := e.Fragments[i+1]; frag != "" {
			acc = l.concat(acc, &Literal{Type: types.TypeString, Value: frag})
		}
	}
	return acc, nil
}

func (l *Lowerer) stringify(op Operand) Operand {
	if p, ok := op.OperandType().(*types.Primitive); ok && p.Kind == types.String {
		return op
	}
	result := l.newLocal(types.TypeString)
	kind, _ := l.intrinsicKind("str")
	l.emit(&CallIntrinsic{Result: &result, Name: "str", Kind: kind, Args: []Operand{op}})
	return &LocalRef{Local: result}
}

func (l *Lowerer) concat(a, b Operand) Operand {
	result := l.newLocal(types.TypeString)
	l.emit(&BinOp{Result: result, Op: BinAdd, Left: a, Right: b})
	return &LocalRef{Local: result}
}
