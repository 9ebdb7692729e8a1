package runtime

import (
	"strings"

	"github.com/sarn-lang/sarn/internal/arith"
)

// Format renders a value the way print shows it: a top-level String
// prints raw, everything else through the one shared spelling per kind.
// The native runtime's print helpers implement the same rules, which is
// what keeps the two backends' output byte-identical.
func Format(v Value) string {
	if s, ok := v.(String); ok {
		return string(s)
	}
	return formatNested(v)
}

// formatNested renders a value inside a container, where strings are
// quoted.
func formatNested(v Value) string {
	switch val := v.(type) {
	case Int:
		return arith.FormatInt(int64(val))
	case Float:
		return arith.FormatFloat(float64(val))
	case Bool:
		return arith.FormatBool(bool(val))
	case String:
		return "\"" + string(val) + "\""
	case Nil:
		return "nil"
	case *List:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, e := range val.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(formatNested(e))
		}
		sb.WriteByte(']')
		return sb.String()
	case *Dict:
		var sb strings.Builder
		sb.WriteByte('{')
		for i, k := range val.Order {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(formatNested(k))
			sb.WriteString(": ")
			sb.WriteString(formatNested(val.Items[k]))
		}
		sb.WriteByte('}')
		return sb.String()
	case *Struct:
		var sb strings.Builder
		sb.WriteString(val.Name)
		sb.WriteByte('{')
		for i, name := range val.FieldNames {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(name)
			sb.WriteString(": ")
			sb.WriteString(formatNested(val.Fields[i]))
		}
		sb.WriteByte('}')
		return sb.String()
	case *Enum:
		var sb strings.Builder
		sb.WriteString(val.TypeName)
		sb.WriteByte('.')
		sb.WriteString(val.Variant)
		if len(val.Payload) > 0 {
			sb.WriteByte('(')
			for i, p := range val.Payload {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(formatNested(p))
			}
			sb.WriteByte(')')
		}
		return sb.String()
	case *Closure:
		return "<func " + val.FuncName + ">"
	case *Cell:
		return formatNested(val.V)
	default:
		return "<unknown>"
	}
}
