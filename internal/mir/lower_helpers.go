package mir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sarn-lang/sarn/internal/arith"
	"github.com/sarn-lang/sarn/internal/ast"
	"github.com/sarn-lang/sarn/internal/lexer"
	"github.com/sarn-lang/sarn/internal/types"
)

// foldConstExpr evaluates a module-level const initializer to a literal.
// Module consts must be compile-time constant so const-global promotion
// can thread their values into every use site; the folding rules are the
// shared arith semantics, so promoted values agree with runtime
// evaluation bit-for-bit.
func (l *Lowerer) foldConstExpr(e ast.Expr) (*Literal, error) {
	switch ex := e.(type) {
	case *ast.IntegerLit:
		v, err := strconv.ParseInt(strings.ReplaceAll(ex.Text, "_", ""), 10, 64)
		if err != nil {
			return nil, err
		}
		return &Literal{Type: types.TypeInt, Value: v}, nil
	case *ast.FloatLit:
		v, err := strconv.ParseFloat(strings.ReplaceAll(ex.Text, "_", ""), 64)
		if err != nil {
			return nil, err
		}
		return &Literal{Type: types.TypeFloat, Value: v}, nil
	case *ast.BoolLit:
		return &Literal{Type: types.TypeBool, Value: ex.Value}, nil
	case *ast.StringLit:
		return &Literal{Type: types.TypeString, Value: ex.Value}, nil
	case *ast.NilLit:
		return &Literal{Type: types.TypeNil, Value: nil}, nil
	case *ast.Ident:
		if lit, ok := l.consts[ex.Name]; ok {
			return lit, nil
		}
		return nil, fmt.Errorf("%q is not a constant", ex.Name)
	case *ast.PrefixExpr:
		return l.foldPrefix(ex)
	case *ast.InfixExpr:
		return l.foldInfix(ex)
	default:
		return nil, fmt.Errorf("initializer is not a compile-time constant")
	}
}

func (l *Lowerer) foldPrefix(e *ast.PrefixExpr) (*Literal, error) {
	inner, err := l.foldConstExpr(e.Expr)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case lexer.MINUS:
		switch v := inner.Value.(type) {
		case int64:
			return &Literal{Type: types.TypeInt, Value: -v}, nil
		case float64:
			return &Literal{Type: types.TypeFloat, Value: -v}, nil
		}
	case lexer.NOT, lexer.BANG:
		if v, ok := inner.Value.(bool); ok {
			return &Literal{Type: types.TypeBool, Value: !v}, nil
		}
	}
	return nil, fmt.Errorf("cannot fold prefix %s", e.Op)
}

func (l *Lowerer) foldInfix(e *ast.InfixExpr) (*Literal, error) {
	left, err := l.foldConstExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := l.foldConstExpr(e.Right)
	if err != nil {
		return nil, err
	}
	kind, ok := binKindFor(e.Op)
	if !ok {
		return nil, fmt.Errorf("cannot fold operator %s", e.Op)
	}
	return FoldBinOp(kind, left, right)
}

// FoldBinOp folds a binary operation over two literals with the shared
// arith semantics. The LLVM emitter's eager constant folding calls this
// too, which is what keeps folding and runtime evaluation agreed.
func FoldBinOp(op BinKind, left, right *Literal) (*Literal, error) {
	switch lv := left.Value.(type) {
	case int64:
		rv, ok := right.Value.(int64)
		if !ok {
			return nil, fmt.Errorf("mixed operand types in fold")
		}
		switch op {
		case BinAdd:
			return intLit(arith.AddInt(lv, rv)), nil
		case BinSub:
			return intLit(arith.SubInt(lv, rv)), nil
		case BinMul:
			return intLit(arith.MulInt(lv, rv)), nil
		case BinDiv:
			v, err := arith.DivInt(lv, rv)
			if err != nil {
				return nil, err
			}
			return intLit(v), nil
		case BinMod:
			v, err := arith.ModInt(lv, rv)
			if err != nil {
				return nil, err
			}
			return intLit(v), nil
		default:
			return boolLit(compareSatisfies(op, arith.CompareInt(lv, rv))), nil
		}
	case float64:
		rv, ok := right.Value.(float64)
		if !ok {
			return nil, fmt.Errorf("mixed operand types in fold")
		}
		switch op {
		case BinAdd:
			return floatLit(arith.AddFloat(lv, rv)), nil
		case BinSub:
			return floatLit(arith.SubFloat(lv, rv)), nil
		case BinMul:
			return floatLit(arith.MulFloat(lv, rv)), nil
		case BinDiv:
			v, err := arith.DivFloat(lv, rv)
			if err != nil {
				return nil, err
			}
			return floatLit(v), nil
		case BinMod:
			v, err := arith.ModFloat(lv, rv)
			if err != nil {
				return nil, err
			}
			return floatLit(v), nil
		default:
			return boolLit(compareSatisfies(op, arith.CompareFloat(lv, rv))), nil
		}
	case string:
		rv, ok := right.Value.(string)
		if !ok {
			return nil, fmt.Errorf("mixed operand types in fold")
		}
		if op == BinAdd {
			return &Literal{Type: types.TypeString, Value: arith.ConcatString(lv, rv)}, nil
		}
		return boolLit(compareSatisfies(op, arith.CompareString(lv, rv))), nil
	case bool:
		rv, ok := right.Value.(bool)
		if !ok {
			return nil, fmt.Errorf("mixed operand types in fold")
		}
		switch op {
		case BinEq:
			return boolLit(lv == rv), nil
		case BinNe:
			return boolLit(lv != rv), nil
		}
	}
	return nil, fmt.Errorf("cannot fold %s over %s", op, left.Type)
}

func compareSatisfies(op BinKind, cmp int) bool {
	switch op {
	case BinEq:
		return cmp == 0
	case BinNe:
		return cmp != 0
	case BinLt:
		return cmp < 0
	case BinLe:
		return cmp <= 0
	case BinGt:
		return cmp > 0
	case BinGe:
		return cmp >= 0
	default:
		return false
	}
}

func intLit(v int64) *Literal { return &Literal{Type: types.TypeInt, Value: v} }

func floatLit(v float64) *Literal { return &Literal{Type: types.TypeFloat, Value: v} }

func boolLit(v bool) *Literal { return &Literal{Type: types.TypeBool, Value: v} }
