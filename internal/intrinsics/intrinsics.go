// Package intrinsics is the single declarative table binding each
// intrinsic name to its kind, arity, types, VM implementation, and the
// external symbol the LLVM backend declares. Both backends derive their
// dispatch from this one table; adding an intrinsic touches the table
// plus one implementation and nothing else.
package intrinsics

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/sarn-lang/sarn/internal/runtime"
	"github.com/sarn-lang/sarn/internal/types"
)

// Env is the ambient I/O an intrinsic implementation runs against; the
// VM owns one per execution so tests can capture output.
type Env struct {
	Stdout io.Writer
	Stdin  *bufio.Reader
}

// Impl is a VM-side intrinsic implementation.
type Impl func(env *Env, args []runtime.Value) (runtime.Value, error)

// Entry is one registry row.
type Entry struct {
	Name    string
	Kind    int
	Arity   int
	Variadic bool

	// Params are the declared parameter types; a nil slot accepts any
	// type (the backends dispatch on the argument's static type).
	Params []types.Type
	Return types.Type

	// Impl executes the intrinsic in the VM; Symbol is the external
	// function the LLVM emitter declares for native dispatch.
	Impl   Impl
	Symbol string
}

// Table is the registry, in kind order. The Kind field of each entry is
// its index; ByKind and the VM's dispatch both rely on that.
var Table = []Entry{
	{
		Name:   "print",
		Kind:   0,
		Arity:  1,
		Params: []types.Type{nil},
		Return: types.TypeVoid,
		Impl: func(env *Env, args []runtime.Value) (runtime.Value, error) {
			fmt.Fprintln(env.Stdout, runtime.Format(args[0]))
			return runtime.NilValue, nil
		},
		Symbol: runtime.SymPrintValue,
	},
	{
		Name:   "len",
		Kind:   1,
		Arity:  1,
		Params: []types.Type{nil},
		Return: types.TypeInt,
		Impl: func(env *Env, args []runtime.Value) (runtime.Value, error) {
			switch v := args[0].(type) {
			case runtime.String:
				return runtime.Int(int64(len([]rune(string(v))))), nil
			case *runtime.List:
				return runtime.Int(int64(len(v.Elems))), nil
			case *runtime.Dict:
				return runtime.Int(int64(len(v.Order))), nil
			default:
				return nil, fmt.Errorf("len: unsupported type %s", runtime.TypeTag(args[0]))
			}
		},
		Symbol: "sarn_len",
	},
	{
		Name:   "str",
		Kind:   2,
		Arity:  1,
		Params: []types.Type{nil},
		Return: types.TypeString,
		Impl: func(env *Env, args []runtime.Value) (runtime.Value, error) {
			return runtime.String(runtime.Format(args[0])), nil
		},
		Symbol: "sarn_str",
	},
	{
		Name:   "push",
		Kind:   3,
		Arity:  2,
		Params: []types.Type{nil, nil},
		Return: types.TypeVoid,
		Impl: func(env *Env, args []runtime.Value) (runtime.Value, error) {
			list, ok := args[0].(*runtime.List)
			if !ok {
				return nil, fmt.Errorf("push: expected List, found %s", runtime.TypeTag(args[0]))
			}
			list.Elems = append(list.Elems, runtime.Retain(args[1]))
			return runtime.NilValue, nil
		},
		Symbol: runtime.SymListPush,
	},
	{
		Name:   "assert",
		Kind:   4,
		Arity:  1,
		Params: []types.Type{types.TypeBool},
		Return: types.TypeVoid,
		Impl: func(env *Env, args []runtime.Value) (runtime.Value, error) {
			if b, ok := args[0].(runtime.Bool); !ok || !bool(b) {
				return nil, fmt.Errorf("assertion failed")
			}
			return runtime.NilValue, nil
		},
		Symbol: "sarn_assert",
	},
	{
		Name:   "read_line",
		Kind:   5,
		Arity:  0,
		Return: types.TypeString,
		Impl: func(env *Env, args []runtime.Value) (runtime.Value, error) {
			line, err := env.Stdin.ReadString('\n')
			if err != nil && line == "" {
				return runtime.String(""), nil
			}
			return runtime.String(strings.TrimRight(line, "\n")), nil
		},
		Symbol: "sarn_read_line",
	},
}

// Lookup finds an entry by name.
func Lookup(name string) (*Entry, bool) {
	for i := range Table {
		if Table[i].Name == name {
			return &Table[i], true
		}
	}
	return nil, false
}

// ByKind finds an entry by numeric kind.
func ByKind(kind int) (*Entry, bool) {
	if kind < 0 || kind >= len(Table) {
		return nil, false
	}
	return &Table[kind], true
}

// Names returns every intrinsic name, for pre-declaring builtins in the
// resolver.
func Names() []string {
	out := make([]string, len(Table))
	for i := range Table {
		out[i] = Table[i].Name
	}
	return out
}

// Kinds returns the name-to-kind map the MIR lowerer dispatches on.
func Kinds() map[string]int {
	out := make(map[string]int, len(Table))
	for i := range Table {
		out[Table[i].Name] = Table[i].Kind
	}
	return out
}

// Signature builds the checker-facing function type of an entry. Nil
// parameter slots become Unknown, which unifies with any argument type.
func (e *Entry) Signature() *types.Function {
	fn := &types.Function{Return: e.Return}
	for _, p := range e.Params {
		if p == nil {
			fn.Params = append(fn.Params, types.TypeUnknown)
			continue
		}
		fn.Params = append(fn.Params, p)
	}
	return fn
}
