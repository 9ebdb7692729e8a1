package vm

import (
	"fmt"

	"github.com/sarn-lang/sarn/internal/arith"
	"github.com/sarn-lang/sarn/internal/bytecode"
	"github.com/sarn-lang/sarn/internal/runtime"
)

// binOp evaluates a typed binary operation through the shared arith
// semantics. A mismatched value tag is a runtime fault (compiler-bug
// class when it escapes the type checker).
func (vm *VM) binOp(op bytecode.BinKind, class bytecode.TypeClass, left, right runtime.Value) (runtime.Value, error) {
	switch class {
	case bytecode.ClassInt:
		a, ok1 := left.(runtime.Int)
		b, ok2 := right.(runtime.Int)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("Int operation on %s and %s", runtime.TypeTag(left), runtime.TypeTag(right))
		}
		return intBinOp(op, int64(a), int64(b))

	case bytecode.ClassFloat:
		a, ok1 := left.(runtime.Float)
		b, ok2 := right.(runtime.Float)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("Float operation on %s and %s", runtime.TypeTag(left), runtime.TypeTag(right))
		}
		return floatBinOp(op, float64(a), float64(b))

	case bytecode.ClassString:
		a, ok1 := left.(runtime.String)
		b, ok2 := right.(runtime.String)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("String operation on %s and %s", runtime.TypeTag(left), runtime.TypeTag(right))
		}
		if op == bytecode.BinAdd {
			return runtime.String(arith.ConcatString(string(a), string(b))), nil
		}
		return compareResult(op, arith.CompareString(string(a), string(b)))

	case bytecode.ClassBool:
		a, ok1 := left.(runtime.Bool)
		b, ok2 := right.(runtime.Bool)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("Bool operation on %s and %s", runtime.TypeTag(left), runtime.TypeTag(right))
		}
		switch op {
		case bytecode.BinEq:
			return runtime.Bool(a == b), nil
		case bytecode.BinNe:
			return runtime.Bool(a != b), nil
		}
		return nil, fmt.Errorf("unsupported Bool operation")

	case bytecode.ClassList:
		a, ok1 := left.(*runtime.List)
		b, ok2 := right.(*runtime.List)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("List operation on %s and %s", runtime.TypeTag(left), runtime.TypeTag(right))
		}
		switch op {
		case bytecode.BinAdd:
			elems := make([]runtime.Value, 0, len(a.Elems)+len(b.Elems))
			for _, e := range a.Elems {
				elems = append(elems, runtime.Retain(e))
			}
			for _, e := range b.Elems {
				elems = append(elems, runtime.Retain(e))
			}
			return runtime.NewList(elems), nil
		case bytecode.BinEq:
			return runtime.Bool(runtime.Equal(a, b)), nil
		case bytecode.BinNe:
			return runtime.Bool(!runtime.Equal(a, b)), nil
		}
		return nil, fmt.Errorf("unsupported List operation")

	default:
		switch op {
		case bytecode.BinEq:
			return runtime.Bool(runtime.Equal(left, right)), nil
		case bytecode.BinNe:
			return runtime.Bool(!runtime.Equal(left, right)), nil
		}
		return nil, fmt.Errorf("unsupported operation on %s", runtime.TypeTag(left))
	}
}

func intBinOp(op bytecode.BinKind, a, b int64) (runtime.Value, error) {
	switch op {
	case bytecode.BinAdd:
		return runtime.Int(arith.AddInt(a, b)), nil
	case bytecode.BinSub:
		return runtime.Int(arith.SubInt(a, b)), nil
	case bytecode.BinMul:
		return runtime.Int(arith.MulInt(a, b)), nil
	case bytecode.BinDiv:
		v, err := arith.DivInt(a, b)
		if err != nil {
			return nil, err
		}
		return runtime.Int(v), nil
	case bytecode.BinMod:
		v, err := arith.ModInt(a, b)
		if err != nil {
			return nil, err
		}
		return runtime.Int(v), nil
	default:
		return compareResult(op, arith.CompareInt(a, b))
	}
}

func floatBinOp(op bytecode.BinKind, a, b float64) (runtime.Value, error) {
	switch op {
	case bytecode.BinAdd:
		return runtime.Float(arith.AddFloat(a, b)), nil
	case bytecode.BinSub:
		return runtime.Float(arith.SubFloat(a, b)), nil
	case bytecode.BinMul:
		return runtime.Float(arith.MulFloat(a, b)), nil
	case bytecode.BinDiv:
		v, err := arith.DivFloat(a, b)
		if err != nil {
			return nil, err
		}
		return runtime.Float(v), nil
	case bytecode.BinMod:
		v, err := arith.ModFloat(a, b)
		if err != nil {
			return nil, err
		}
		return runtime.Float(v), nil
	default:
		return compareResult(op, arith.CompareFloat(a, b))
	}
}

func compareResult(op bytecode.BinKind, cmp int) (runtime.Value, error) {
	switch op {
	case bytecode.BinEq:
		return runtime.Bool(cmp == 0), nil
	case bytecode.BinNe:
		return runtime.Bool(cmp != 0), nil
	case bytecode.BinLt:
		return runtime.Bool(cmp < 0), nil
	case bytecode.BinLe:
		return runtime.Bool(cmp <= 0), nil
	case bytecode.BinGt:
		return runtime.Bool(cmp > 0), nil
	case bytecode.BinGe:
		return runtime.Bool(cmp >= 0), nil
	default:
		return nil, fmt.Errorf("unsupported comparison")
	}
}

func indexGet(target, index runtime.Value) (runtime.Value, error) {
	switch t := target.(type) {
	case *runtime.List:
		i, ok := index.(runtime.Int)
		if !ok {
			return nil, fmt.Errorf("list index must be Int, found %s", runtime.TypeTag(index))
		}
		if err := arith.CheckIndex(int64(i), int64(len(t.Elems))); err != nil {
			return nil, err
		}
		return t.Elems[i], nil
	case *runtime.Dict:
		v, ok := t.Get(index)
		if !ok {
			return nil, fmt.Errorf("missing dict key %s", runtime.Format(index))
		}
		return v, nil
	case runtime.String:
		i, ok := index.(runtime.Int)
		if !ok {
			return nil, fmt.Errorf("string index must be Int, found %s", runtime.TypeTag(index))
		}
		runes := []rune(string(t))
		if err := arith.CheckIndex(int64(i), int64(len(runes))); err != nil {
			return nil, err
		}
		return runtime.String(runes[i]), nil
	default:
		return nil, fmt.Errorf("cannot index %s", runtime.TypeTag(target))
	}
}

func indexSet(target, index, value runtime.Value) error {
	switch t := target.(type) {
	case *runtime.List:
		i, ok := index.(runtime.Int)
		if !ok {
			return fmt.Errorf("list index must be Int, found %s", runtime.TypeTag(index))
		}
		if err := arith.CheckIndex(int64(i), int64(len(t.Elems))); err != nil {
			return err
		}
		runtime.Release(t.Elems[i])
		t.Elems[i] = runtime.Retain(value)
		return nil
	case *runtime.Dict:
		t.Set(index, runtime.Retain(value))
		return nil
	default:
		return fmt.Errorf("cannot index-assign %s", runtime.TypeTag(target))
	}
}

// sliceValue slices a list or string; bounds are char-indexed for
// strings and validated by the shared rule 0 <= start <= end <= len.
func sliceValue(target runtime.Value, start, end int64, hasStart, hasEnd, inclusive bool) (runtime.Value, error) {
	switch t := target.(type) {
	case *runtime.List:
		s, e, err := arith.SliceBounds(start, end, hasStart, hasEnd, inclusive, int64(len(t.Elems)))
		if err != nil {
			return nil, err
		}
		elems := make([]runtime.Value, 0, e-s)
		for _, el := range t.Elems[s:e] {
			elems = append(elems, runtime.Retain(el))
		}
		return runtime.NewList(elems), nil
	case runtime.String:
		runes := []rune(string(t))
		s, e, err := arith.SliceBounds(start, end, hasStart, hasEnd, inclusive, int64(len(runes)))
		if err != nil {
			return nil, err
		}
		return runtime.String(runes[s:e]), nil
	default:
		return nil, fmt.Errorf("cannot slice %s", runtime.TypeTag(target))
	}
}
