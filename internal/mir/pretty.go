package mir

import (
	"fmt"
	"sort"
	"strings"
)

// Pretty renders a module in a stable textual form for tests and
// debugging dumps.
func Pretty(m *Module) string {
	var sb strings.Builder
	for _, c := range m.Consts {
		fmt.Fprintf(&sb, "const %s: %s = %v\n", c.Name, c.Type, c.Value.Value)
	}
	for _, fn := range m.Functions {
		sb.WriteString(PrettyFunction(fn))
	}
	return sb.String()
}

// PrettyFunction renders one function.
func PrettyFunction(fn *Function) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "fn %s(", fn.Name)
	for i, p := range fn.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %s", localName(p), p.Type)
	}
	fmt.Fprintf(&sb, ") -> %s", fn.ReturnType)
	if len(fn.Throws) > 0 {
		var names []string
		for _, t := range fn.Throws {
			names = append(names, t.Name)
		}
		fmt.Fprintf(&sb, " ! %s", strings.Join(names, ", "))
	}
	sb.WriteString(" {\n")
	for _, b := range fn.Blocks {
		fmt.Fprintf(&sb, "%s:\n", b.Label)
		for _, stmt := range b.Statements {
			fmt.Fprintf(&sb, "  %s\n", prettyStmt(stmt))
		}
		fmt.Fprintf(&sb, "  %s\n", prettyTerminator(b.Terminator))
	}
	sb.WriteString("}\n")
	return sb.String()
}

func localName(l Local) string {
	if l.Name != "" {
		return fmt.Sprintf("%%%s.%d", l.Name, l.ID)
	}
	return fmt.Sprintf("%%%d", l.ID)
}

func prettyOperand(op Operand) string {
	switch o := op.(type) {
	case *LocalRef:
		return localName(o.Local)
	case *Literal:
		if s, ok := o.Value.(string); ok {
			return fmt.Sprintf("%q", s)
		}
		if o.Value == nil {
			return "nil"
		}
		return fmt.Sprintf("%v", o.Value)
	case *FuncRef:
		return "@" + o.Name
	case nil:
		return "_"
	default:
		return fmt.Sprintf("%v", op)
	}
}

func prettyOperands(ops []Operand) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = prettyOperand(op)
	}
	return strings.Join(parts, ", ")
}

func prettyStmt(stmt Statement) string {
	switch s := stmt.(type) {
	case *Assign:
		return fmt.Sprintf("%s = %s", localName(s.Result), prettyOperand(s.Value))
	case *BinOp:
		return fmt.Sprintf("%s = %s %s, %s", localName(s.Result), s.Op, prettyOperand(s.Left), prettyOperand(s.Right))
	case *UnOp:
		return fmt.Sprintf("%s = %s %s", localName(s.Result), s.Op, prettyOperand(s.Operand))
	case *Phi:
		var parts []string
		for block, op := range s.Inputs {
			parts = append(parts, fmt.Sprintf("[%s, %s]", prettyOperand(op), block.Label))
		}
		sort.Strings(parts)
		return fmt.Sprintf("%s = phi %s", localName(s.Result), strings.Join(parts, " "))
	case *Call:
		target := s.Callee
		if target == "" {
			target = prettyOperand(s.CalleeOperand)
		}
		prefix := ""
		if s.Result != nil {
			prefix = localName(*s.Result) + " = "
		}
		suffix := ""
		if s.CanThrow {
			if s.Handler != nil {
				suffix = " catch " + s.Handler.Label
			} else {
				suffix = " rethrow"
			}
		}
		return fmt.Sprintf("%scall %s(%s)%s", prefix, target, prettyOperands(s.Args), suffix)
	case *CallIntrinsic:
		prefix := ""
		if s.Result != nil {
			prefix = localName(*s.Result) + " = "
		}
		return fmt.Sprintf("%sintrinsic %s#%d(%s)", prefix, s.Name, s.Kind, prettyOperands(s.Args))
	case *LoadField:
		return fmt.Sprintf("%s = field %s.%s", localName(s.Result), prettyOperand(s.Target), s.Field)
	case *StoreField:
		return fmt.Sprintf("field %s.%s = %s", prettyOperand(s.Target), s.Field, prettyOperand(s.Value))
	case *LoadIndex:
		return fmt.Sprintf("%s = index %s[%s]", localName(s.Result), prettyOperand(s.Target), prettyOperand(s.Index))
	case *StoreIndex:
		return fmt.Sprintf("index %s[%s] = %s", prettyOperand(s.Target), prettyOperand(s.Index), prettyOperand(s.Value))
	case *ConstructStruct:
		var parts []string
		for _, f := range s.Fields {
			parts = append(parts, fmt.Sprintf("%s: %s", f.Name, prettyOperand(f.Value)))
		}
		return fmt.Sprintf("%s = struct %s{%s}", localName(s.Result), s.Type, strings.Join(parts, ", "))
	case *ConstructList:
		return fmt.Sprintf("%s = list [%s]", localName(s.Result), prettyOperands(s.Elements))
	case *ConstructDict:
		var parts []string
		for i := range s.Keys {
			parts = append(parts, fmt.Sprintf("%s: %s", prettyOperand(s.Keys[i]), prettyOperand(s.Values[i])))
		}
		return fmt.Sprintf("%s = dict {%s}", localName(s.Result), strings.Join(parts, ", "))
	case *ConstructEnum:
		return fmt.Sprintf("%s = enum %s.%s#%d(%s)", localName(s.Result), s.TypeName, s.Variant, s.VariantIndex, prettyOperands(s.Values))
	case *Discriminant:
		return fmt.Sprintf("%s = tag %s", localName(s.Result), prettyOperand(s.Target))
	case *AccessVariantPayload:
		return fmt.Sprintf("%s = payload %s#%d.%d", localName(s.Result), prettyOperand(s.Target), s.VariantIndex, s.MemberIndex)
	case *ConstructRange:
		op := ".."
		if s.Inclusive {
			op = "..."
		}
		return fmt.Sprintf("%s = range %s%s%s", localName(s.Result), prettyOperand(s.Start), op, prettyOperand(s.End))
	case *Slice:
		op := ".."
		if s.Inclusive {
			op = "..."
		}
		return fmt.Sprintf("%s = slice %s[%s%s%s]", localName(s.Result), prettyOperand(s.Target), prettyOperand(s.Start), op, prettyOperand(s.End))
	case *MakeClosure:
		return fmt.Sprintf("%s = closure @%s[%s]", localName(s.Result), s.Func, prettyOperands(s.Captures))
	case *UnwrapOptional:
		return fmt.Sprintf("%s = unwrap %s", localName(s.Result), prettyOperand(s.Operand))
	case *IsNil:
		return fmt.Sprintf("%s = isnil %s", localName(s.Result), prettyOperand(s.Operand))
	default:
		return fmt.Sprintf("%T", stmt)
	}
}

func prettyTerminator(t Terminator) string {
	switch term := t.(type) {
	case *Return:
		if term.Value == nil {
			return "return"
		}
		return "return " + prettyOperand(term.Value)
	case *Goto:
		return "goto " + term.Target.Label
	case *Branch:
		return fmt.Sprintf("branch %s ? %s : %s", prettyOperand(term.Condition), term.True.Label, term.False.Label)
	case *Throw:
		return "throw " + prettyOperand(term.Value)
	case *Unreachable:
		return "unreachable"
	case nil:
		return "<no terminator>"
	default:
		return fmt.Sprintf("%T", t)
	}
}
