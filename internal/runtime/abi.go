package runtime

// The C-ABI surface the LLVM backend emits calls against. The native
// runtime library provides these symbols; the emitter declares each one
// lazily on first use. Convention: compound values pass as pointers,
// primitives by native width, strings as (ptr, length) handles.
const (
	// Allocation / release per compound kind.
	SymStringNew  = "sarn_string_new"
	SymListNew    = "sarn_list_new"
	SymDictNew    = "sarn_dict_new"
	SymStructNew  = "sarn_struct_new"
	SymEnumNew    = "sarn_enum_new"
	SymClosureNew = "sarn_closure_new"
	SymCellNew    = "sarn_cell_new"
	SymRetain     = "sarn_retain"
	SymRelease    = "sarn_release"

	// Container operations.
	SymStringConcat = "sarn_string_concat"
	SymStringIndex  = "sarn_string_index"
	SymStringSlice  = "sarn_string_slice"
	SymStringCmp    = "sarn_string_cmp"
	SymStringEq     = "sarn_string_eq"
	SymStringLen    = "sarn_string_len"
	SymListPush     = "sarn_list_push"
	SymListIndex    = "sarn_list_index"
	SymListStore    = "sarn_list_store"
	SymListSlice    = "sarn_list_slice"
	SymListLen      = "sarn_list_len"
	SymListConcat   = "sarn_list_concat"
	SymListEq       = "sarn_list_eq"
	SymRangeNew     = "sarn_range_new"
	SymDictGet      = "sarn_dict_get"
	SymDictSet      = "sarn_dict_set"
	SymDictLen      = "sarn_dict_len"
	SymValueEq      = "sarn_value_eq"

	// Struct / enum access.
	SymStructGet = "sarn_struct_get"
	SymStructSet = "sarn_struct_set"
	SymEnumTag   = "sarn_enum_tag"
	SymEnumField = "sarn_enum_field"

	// Optionals and scalar boxing: scalars box to pointers at Optional
	// and capture boundaries, and unbox on the way back out.
	SymOptionalUnwrap = "sarn_optional_unwrap"
	SymOptionalIsNil  = "sarn_optional_is_nil"
	SymBoxInt         = "sarn_box_int"
	SymBoxFloat       = "sarn_box_float"
	SymBoxBool        = "sarn_box_bool"
	SymUnboxInt       = "sarn_unbox_int"
	SymUnboxFloat     = "sarn_unbox_float"
	SymUnboxBool      = "sarn_unbox_bool"

	// Closure access.
	SymClosureFn      = "sarn_closure_fn"
	SymClosureCapture = "sarn_closure_capture"
	SymCellGet        = "sarn_cell_get"
	SymCellSet        = "sarn_cell_set"

	// Print helpers, specialized per primitive and per compound shape.
	SymPrintInt    = "sarn_print_int"
	SymPrintFloat  = "sarn_print_float"
	SymPrintBool   = "sarn_print_bool"
	SymPrintString = "sarn_print_string"
	SymPrintValue  = "sarn_print_value"

	// Error propagation.
	SymErrorRaise   = "sarn_error_raise"
	SymErrorTag     = "sarn_error_tag"
	SymErrorUnwrap  = "sarn_error_unwrap"
	SymErrorPending = "sarn_error_pending"
	SymErrorTake    = "sarn_error_take"

	// Runtime faults (division by zero, index out of bounds, nil
	// unwrap); each prints its message and exits non-zero.
	SymFault = "sarn_fault"

	// Unhandled-error trap at the program's outermost frame.
	SymUncaught = "sarn_uncaught_error"
)
