package mir

import (
	"fmt"

	"github.com/sarn-lang/sarn/internal/ast"
	"github.com/sarn-lang/sarn/internal/lexer"
	"github.com/sarn-lang/sarn/internal/types"
)

// binKindFor maps an infix token to its MIR operation. Logical and/or
// are absent: they lower to control flow for short-circuiting.
func binKindFor(op lexer.TokenType) (BinKind, bool) {
	switch op {
	case lexer.PLUS:
		return BinAdd, true
	case lexer.MINUS:
		return BinSub, true
	case lexer.ASTERISK:
		return BinMul, true
	case lexer.SLASH:
		return BinDiv, true
	case lexer.PERCENT:
		return BinMod, true
	case lexer.EQ:
		return BinEq, true
	case lexer.NOT_EQ:
		return BinNe, true
	case lexer.LT:
		return BinLt, true
	case lexer.LE:
		return BinLe, true
	case lexer.GT:
		return BinGt, true
	case lexer.GE:
		return BinGe, true
	default:
		return "", false
	}
}

func (l *Lowerer) lowerInfixExpr(e *ast.InfixExpr) (Operand, error) {
	switch e.Op {
	case lexer.AMP_AMP, lexer.AND:
		return l.lowerShortCircuit(e, true)
	case lexer.PIPE_PIPE, lexer.OR:
		return l.lowerShortCircuit(e, false)
	}

	kind, ok := binKindFor(e.Op)
	if !ok {
		return nil, fmt.Errorf("unsupported infix operator %s", e.Op)
	}

	left, err := l.lowerExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := l.lowerExpr(e.Right)
	if err != nil {
		return nil, err
	}

	result := l.newLocal(l.typeOf(e))
	l.emit(&BinOp{Result: result, Op: kind, Left: left, Right: right})
	return &LocalRef{Local: result}, nil
}

// lowerShortCircuit lowers && / || to control flow: the right operand
// evaluates only when the left doesn't decide the result.
func (l *Lowerer) lowerShortCircuit(e *ast.InfixExpr, isAnd bool) (Operand, error) {
	left, err := l.lowerExpr(e.Left)
	if err != nil {
		return nil, err
	}
	result := l.newNamedLocal("", types.TypeBool, true)
	l.emit(&Assign{Result: result, Value: left})

	rhs := l.newBlock("sc_rhs")
	merge := l.newBlock("sc_end")
	if isAnd {
		l.currentBlock.Terminator = &Branch{Condition: left, True: rhs, False: merge}
	} else {
		l.currentBlock.Terminator = &Branch{Condition: left, True: merge, False: rhs}
	}

	l.currentBlock = rhs
	right, err := l.lowerExpr(e.Right)
	if err != nil {
		return nil, err
	}
	l.emit(&Assign{Result: result, Value: right})
	l.currentBlock.Terminator = &Goto{Target: merge}

	l.currentBlock = merge
	return &LocalRef{Local: result}, nil
}

func (l *Lowerer) lowerPrefixExpr(e *ast.PrefixExpr) (Operand, error) {
	operand, err := l.lowerExpr(e.Expr)
	if err != nil {
		return nil, err
	}
	var kind UnKind
	switch e.Op {
	case lexer.MINUS:
		kind = UnNeg
	case lexer.NOT, lexer.BANG:
		kind = UnNot
	default:
		return nil, fmt.Errorf("unsupported prefix operator %s", e.Op)
	}
	result := l.newLocal(l.typeOf(e))
	l.emit(&UnOp{Result: result, Op: kind, Operand: operand})
	return &LocalRef{Local: result}, nil
}

// lowerPostfixExpr lowers `!` force-unwrap, which faults at runtime on
// nil rather than producing a type error.
func (l *Lowerer) lowerPostfixExpr(e *ast.PostfixExpr) (Operand, error) {
	operand, err := l.lowerExpr(e.Expr)
	if err != nil {
		return nil, err
	}
	result := l.newLocal(l.typeOf(e))
	l.emit(&UnwrapOptional{Result: result, Operand: operand})
	return &LocalRef{Local: result}, nil
}

// lowerCoalesceExpr lowers `a ?? b`: the right side evaluates only when
// the left is nil.
func (l *Lowerer) lowerCoalesceExpr(e *ast.CoalesceExpr) (Operand, error) {
	left, err := l.lowerExpr(e.Left)
	if err != nil {
		return nil, err
	}
	resultType := l.typeOf(e)
	result := l.newNamedLocal("", resultType, true)

	isNil := l.newLocal(types.TypeBool)
	l.emit(&IsNil{Result: isNil, Operand: left})

	rhsBlock := l.newBlock("coalesce_nil")
	someBlock := l.newBlock("coalesce_some")
	merge := l.newBlock("coalesce_end")
	l.currentBlock.Terminator = &Branch{Condition: &LocalRef{Local: isNil}, True: rhsBlock, False: someBlock}

	l.currentBlock = someBlock
	unwrapped := l.newLocal(resultType)
	l.emit(&UnwrapOptional{Result: unwrapped, Operand: left})
	l.emit(&Assign{Result: result, Value: &LocalRef{Local: unwrapped}})
	l.currentBlock.Terminator = &Goto{Target: merge}

	l.currentBlock = rhsBlock
	right, err := l.lowerExpr(e.Right)
	if err != nil {
		return nil, err
	}
	l.emit(&Assign{Result: result, Value: right})
	l.currentBlock.Terminator = &Goto{Target: merge}

	l.currentBlock = merge
	return &LocalRef{Local: result}, nil
}

// lowerRangeExpr lowers a range in value position to its eager
// List[Int] (range literals are eager, never lazy).
func (l *Lowerer) lowerRangeExpr(e *ast.RangeExpr) (Operand, error) {
	start, err := l.lowerExpr(e.Start)
	if err != nil {
		return nil, err
	}
	end, err := l.lowerExpr(e.End)
	if err != nil {
		return nil, err
	}
	result := l.newLocal(&types.List{Elem: types.TypeInt})
	l.emit(&ConstructRange{Result: result, Start: start, End: end, Inclusive: e.Inclusive})
	return &LocalRef{Local: result}, nil
}
