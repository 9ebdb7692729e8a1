package mir

import (
	"fmt"

	"github.com/sarn-lang/sarn/internal/ast"
	"github.com/sarn-lang/sarn/internal/types"
)

func (l *Lowerer) lowerStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.VarStmt:
		return l.lowerVarStmt(s)
	case *ast.ReturnStmt:
		return l.lowerReturnStmt(s)
	case *ast.ThrowStmt:
		return l.lowerThrowStmt(s)
	case *ast.ExprStmt:
		_, err := l.lowerExpr(s.Expr)
		return err
	case *ast.IfStmt:
		return l.lowerIfStmt(s)
	case *ast.UnlessStmt:
		return l.lowerUnlessStmt(s)
	case *ast.WhileStmt:
		return l.lowerLoop(s.Condition, s.Body, false)
	case *ast.UntilStmt:
		return l.lowerLoop(s.Condition, s.Body, true)
	default:
		return fmt.Errorf("unsupported statement type: %T", stmt)
	}
}

func (l *Lowerer) lowerVarStmt(s *ast.VarStmt) error {
	value, err := l.lowerExpr(s.Value)
	if err != nil {
		return err
	}
	t := l.typeOf(s.Name)
	if _, unknown := t.(*types.Unknown); unknown && value != nil {
		t = value.OperandType()
	}
	local := l.newNamedLocal(s.Name.Name, t, true)
	l.bind(s.Name.Name, local)
	l.emit(&Assign{Result: local, Value: value})
	return nil
}

func (l *Lowerer) lowerReturnStmt(s *ast.ReturnStmt) error {
	if s.Value == nil {
		l.currentBlock.Terminator = &Return{}
		return nil
	}
	value, err := l.lowerExpr(s.Value)
	if err != nil {
		return err
	}
	l.currentBlock.Terminator = &Return{Value: value}
	return nil
}

func (l *Lowerer) lowerThrowStmt(s *ast.ThrowStmt) error {
	value, err := l.lowerExpr(s.Value)
	if err != nil {
		return err
	}
	l.lowerThrowValue(value)
	return nil
}

// lowerThrowValue routes a raised error either to the active catch
// handler or out of the function.
func (l *Lowerer) lowerThrowValue(value Operand) {
	if l.catchHandler != nil {
		l.emit(&Assign{Result: *l.catchErrLocal, Value: value})
		l.currentBlock.Terminator = &Goto{Target: l.catchHandler}
		return
	}
	l.currentBlock.Terminator = &Throw{Value: value}
}

func (l *Lowerer) lowerIfStmt(s *ast.IfStmt) error {
	exit := l.newBlock("if_end")
	for _, clause := range s.Clauses {
		cond, err := l.lowerExpr(clause.Condition)
		if err != nil {
			return err
		}
		body := l.newBlock("if_then")
		next := l.newBlock("if_else")
		l.currentBlock.Terminator = &Branch{Condition: cond, True: body, False: next}

		l.currentBlock = body
		if _, err := l.lowerBlock(clause.Body); err != nil {
			return err
		}
		if l.currentBlock.Terminator == nil {
			l.currentBlock.Terminator = &Goto{Target: exit}
		}
		l.currentBlock = next
	}
	if s.Else != nil {
		if _, err := l.lowerBlock(s.Else); err != nil {
			return err
		}
	}
	if l.currentBlock.Terminator == nil {
		l.currentBlock.Terminator = &Goto{Target: exit}
	}
	l.currentBlock = exit
	return nil
}

// lowerUnlessStmt lowers `unless` as an if with the arms swapped.
func (l *Lowerer) lowerUnlessStmt(s *ast.UnlessStmt) error {
	cond, err := l.lowerExpr(s.Condition)
	if err != nil {
		return err
	}
	body := l.newBlock("unless_then")
	elseBlock := l.newBlock("unless_else")
	exit := l.newBlock("unless_end")
	l.currentBlock.Terminator = &Branch{Condition: cond, True: elseBlock, False: body}

	l.currentBlock = body
	if _, err := l.lowerBlock(s.Body); err != nil {
		return err
	}
	if l.currentBlock.Terminator == nil {
		l.currentBlock.Terminator = &Goto{Target: exit}
	}

	l.currentBlock = elseBlock
	if s.Else != nil {
		if _, err := l.lowerBlock(s.Else); err != nil {
			return err
		}
	}
	if l.currentBlock.Terminator == nil {
		l.currentBlock.Terminator = &Goto{Target: exit}
	}

	l.currentBlock = exit
	return nil
}

// lowerLoop lowers while (negate=false) and until (negate=true): a
// condition block re-entered from the back edge, a body block, and an
// exit block. Loop-mutated locals keep their IDs across the back edge;
// the LLVM emitter's promotion pass turns them into φs.
func (l *Lowerer) lowerLoop(condition ast.Expr, body *ast.BlockExpr, negate bool) error {
	condBlock := l.newBlock("loop_cond")
	bodyBlock := l.newBlock("loop_body")
	exitBlock := l.newBlock("loop_end")

	l.currentBlock.Terminator = &Goto{Target: condBlock}

	l.currentBlock = condBlock
	cond, err := l.lowerExpr(condition)
	if err != nil {
		return err
	}
	if negate {
		l.currentBlock.Terminator = &Branch{Condition: cond, True: exitBlock, False: bodyBlock}
	} else {
		l.currentBlock.Terminator = &Branch{Condition: cond, True: bodyBlock, False: exitBlock}
	}

	l.currentBlock = bodyBlock
	if _, err := l.lowerBlock(body); err != nil {
		return err
	}
	if l.currentBlock.Terminator == nil {
		l.currentBlock.Terminator = &Goto{Target: condBlock}
	}

	l.currentBlock = exitBlock
	return nil
}
