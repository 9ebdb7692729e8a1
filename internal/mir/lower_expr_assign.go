package mir

import (
	"fmt"

	"github.com/sarn-lang/sarn/internal/ast"
)

// lowerAssignExpr lowers assignment to a local, field, or index target.
// Reassigning a local keeps its ID: MIR stays non-SSA and the LLVM
// emitter's promotion pass chooses φ or stack slot per binding.
func (l *Lowerer) lowerAssignExpr(e *ast.AssignExpr) (Operand, error) {
	value, err := l.lowerExpr(e.Value)
	if err != nil {
		return nil, err
	}

	switch target := e.Target.(type) {
	case *ast.Ident:
		local, ok := l.lookup(target.Name)
		if !ok {
			return nil, fmt.Errorf("assignment to unresolved name %q", target.Name)
		}
		l.emit(&Assign{Result: local, Value: value})
		return value, nil

	case *ast.FieldExpr:
		obj, err := l.lowerExpr(target.Target)
		if err != nil {
			return nil, err
		}
		st, _ := structOfType(obj.OperandType())
		fieldIndex := 0
		if st != nil {
			for i, f := range st.Fields {
				if f.Name == target.Field.Name {
					fieldIndex = i
					break
				}
			}
		}
		l.emit(&StoreField{Target: obj, Field: target.Field.Name, Index: fieldIndex, Value: value})
		return value, nil

	case *ast.IndexExpr:
		obj, err := l.lowerExpr(target.Target)
		if err != nil {
			return nil, err
		}
		index, err := l.lowerExpr(target.Index)
		if err != nil {
			return nil, err
		}
		l.emit(&StoreIndex{Target: obj, Index: index, Value: value})
		return value, nil

	default:
		return nil, fmt.Errorf("unsupported assignment target %T", e.Target)
	}
}
