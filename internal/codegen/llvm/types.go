package llvm

import (
	"github.com/sarn-lang/sarn/internal/types"
)

// llvmType maps a sarn type to its LLVM representation: Int is a 64-bit
// integer, Float a double, Bool a 1-bit integer, Void becomes void, and
// everything else (Nil, String, List, Dict, Struct, Enum, Function,
// Optional) is an opaque pointer to a runtime-managed object.
func llvmType(t types.Type) string {
	switch tt := t.(type) {
	case *types.Primitive:
		switch tt.Kind {
		case types.Int:
			return "i64"
		case types.Float:
			return "double"
		case types.Bool:
			return "i1"
		case types.Void:
			return "void"
		default:
			return "ptr"
		}
	default:
		return "ptr"
	}
}

// isScalar reports whether a type lowers to an unboxed register value.
func isScalar(t types.Type) bool {
	switch llvmType(t) {
	case "i64", "double", "i1":
		return true
	default:
		return false
	}
}

// zeroValue is the literal a function returns when it bails out on a
// propagating error.
func zeroValue(t types.Type) string {
	switch llvmType(t) {
	case "i64":
		return "0"
	case "double":
		return "0.0"
	case "i1":
		return "false"
	default:
		return "null"
	}
}
