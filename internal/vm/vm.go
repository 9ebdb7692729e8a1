// Package vm executes bytecode Programs: a single-threaded stack
// machine with one operand stack and one call-frame stack. Intrinsics
// dispatch by numeric kind through the shared registry; thrown errors
// unwind frames until a handler matches, and an unhandled error
// terminates the run with its tag and message.
package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/sarn-lang/sarn/internal/arith"
	"github.com/sarn-lang/sarn/internal/bytecode"
	"github.com/sarn-lang/sarn/internal/intrinsics"
	"github.com/sarn-lang/sarn/internal/runtime"
)

// RuntimeError is a user-visible runtime failure: a thrown error value
// or a fault (division by zero, index out of bounds, nil unwrap).
type RuntimeError struct {
	Value   runtime.Value // non-nil for thrown errors
	Message string
}

func (e *RuntimeError) Error() string {
	if e.Value != nil {
		return "uncaught error: " + runtime.Format(e.Value)
	}
	return "runtime error: " + e.Message
}

type handler struct {
	pc         int
	stackDepth int
}

type frame struct {
	fn       *bytecode.FuncInfo
	closure  *runtime.Closure
	ip       int
	locals   []runtime.Value
	base     int // operand-stack depth at entry
	handlers []handler
}

// VM executes one Program.
type VM struct {
	program *bytecode.Program
	env     *intrinsics.Env
	stack   []runtime.Value
	frames  []frame
}

// New builds a VM over program writing to stdout and reading stdin.
func New(program *bytecode.Program, stdout io.Writer, stdin io.Reader) *VM {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stdin == nil {
		stdin = os.Stdin
	}
	return &VM{
		program: program,
		env:     &intrinsics.Env{Stdout: stdout, Stdin: bufio.NewReader(stdin)},
	}
}

// Run executes the named entry function with no arguments.
func (vm *VM) Run(entry string) error {
	index, err := vm.program.FunctionIndex(entry)
	if err != nil {
		return err
	}
	vm.pushFrame(vm.program.Functions[index], nil, 0)
	return vm.loop()
}

func (vm *VM) pushFrame(fn *bytecode.FuncInfo, closure *runtime.Closure, argc int) {
	locals := make([]runtime.Value, fn.NumLocals+fn.NumParams+fn.NumCaptures+8)
	base := len(vm.stack) - argc
	for i := argc - 1; i >= 0; i-- {
		locals[i] = vm.stack[base+i]
	}
	vm.stack = vm.stack[:base]
	vm.frames = append(vm.frames, frame{fn: fn, closure: closure, locals: locals, base: base})
}

func (vm *VM) push(v runtime.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() runtime.Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) top() *frame { return &vm.frames[len(vm.frames)-1] }

// raise unwinds frames until a handler is found; without one it stops
// the run.
func (vm *VM) raise(err *RuntimeError) error {
	for len(vm.frames) > 0 {
		f := vm.top()
		if n := len(f.handlers); n > 0 {
			h := f.handlers[n-1]
			f.handlers = f.handlers[:n-1]
			vm.stack = vm.stack[:h.stackDepth]
			if err.Value != nil {
				vm.push(err.Value)
			} else {
				vm.push(runtime.String(err.Message))
			}
			f.ip = h.pc
			return nil
		}
		vm.frames = vm.frames[:len(vm.frames)-1]
		vm.stack = vm.stack[:f.base]
	}
	return err
}

func (vm *VM) fault(format string, args ...any) error {
	return vm.raise(&RuntimeError{Message: fmt.Sprintf(format, args...)})
}

func (vm *VM) loop() error {
	for len(vm.frames) > 0 {
		f := vm.top()
		if f.ip >= len(f.fn.Code) {
			// Falling off the end is a void return.
			vm.frames = vm.frames[:len(vm.frames)-1]
			vm.stack = vm.stack[:f.base]
			vm.push(runtime.NilValue)
			continue
		}
		in := f.fn.Code[f.ip]
		f.ip++

		switch in.Op {
		case bytecode.OpConst:
			vm.push(vm.program.Consts[in.A])
		case bytecode.OpNil:
			vm.push(runtime.NilValue)
		case bytecode.OpPop:
			vm.pop()
		case bytecode.OpLoadLocal:
			v := f.locals[in.A]
			if v == nil {
				v = runtime.NilValue
			}
			vm.push(v)
		case bytecode.OpStoreLocal:
			f.locals[in.A] = vm.pop()
		case bytecode.OpLoadCapture:
			vm.push(f.closure.Captures[in.A])

		case bytecode.OpBinOp:
			right := vm.pop()
			left := vm.pop()
			result, err := vm.binOp(bytecode.BinKind(in.A), bytecode.TypeClass(in.B), left, right)
			if err != nil {
				if e := vm.raise(&RuntimeError{Message: err.Error()}); e != nil {
					return e
				}
				continue
			}
			vm.push(result)

		case bytecode.OpUnOp:
			operand := vm.pop()
			switch bytecode.UnKind(in.A) {
			case bytecode.UnNeg:
				switch v := operand.(type) {
				case runtime.Int:
					vm.push(runtime.Int(-v))
				case runtime.Float:
					vm.push(runtime.Float(-v))
				default:
					if e := vm.fault("cannot negate %s", runtime.TypeTag(operand)); e != nil {
						return e
					}
					continue
				}
			case bytecode.UnNot:
				b, ok := operand.(runtime.Bool)
				if !ok {
					if e := vm.fault("not on non-Bool %s", runtime.TypeTag(operand)); e != nil {
						return e
					}
					continue
				}
				vm.push(runtime.Bool(!b))
			}

		case bytecode.OpJump:
			f.ip = in.A
		case bytecode.OpJumpIfFalse:
			cond := vm.pop()
			b, ok := cond.(runtime.Bool)
			if !ok {
				if e := vm.fault("branch on non-Bool %s", runtime.TypeTag(cond)); e != nil {
					return e
				}
				continue
			}
			if !b {
				f.ip = in.A
			}

		case bytecode.OpCall:
			callee := vm.program.Functions[in.A]
			vm.pushFrame(callee, nil, in.B)

		case bytecode.OpCallClosure:
			argc := in.B
			calleeIndex := len(vm.stack) - argc - 1
			closure, ok := vm.stack[calleeIndex].(*runtime.Closure)
			if !ok {
				if e := vm.fault("call of non-function %s", runtime.TypeTag(vm.stack[calleeIndex])); e != nil {
					return e
				}
				continue
			}
			copy(vm.stack[calleeIndex:], vm.stack[calleeIndex+1:])
			vm.stack = vm.stack[:len(vm.stack)-1]
			vm.pushFrame(vm.program.Functions[closure.FuncIndex], closure, argc)

		case bytecode.OpCallIntrinsic:
			entry, ok := intrinsics.ByKind(in.A)
			if !ok {
				return fmt.Errorf("unknown intrinsic kind %d", in.A)
			}
			args := make([]runtime.Value, in.B)
			for i := in.B - 1; i >= 0; i-- {
				args[i] = vm.pop()
			}
			result, err := entry.Impl(vm.env, args)
			if err != nil {
				if e := vm.raise(&RuntimeError{Message: err.Error()}); e != nil {
					return e
				}
				continue
			}
			vm.push(result)

		case bytecode.OpReturn:
			var result runtime.Value = runtime.NilValue
			if in.A == 1 {
				result = vm.pop()
			}
			vm.frames = vm.frames[:len(vm.frames)-1]
			vm.stack = vm.stack[:f.base]
			vm.push(result)

		case bytecode.OpThrow:
			value := vm.pop()
			if e := vm.raise(&RuntimeError{Value: value}); e != nil {
				return e
			}

		case bytecode.OpCatchEnter:
			f.handlers = append(f.handlers, handler{pc: in.A, stackDepth: len(vm.stack)})
		case bytecode.OpCatchLeave:
			f.handlers = f.handlers[:len(f.handlers)-1]

		case bytecode.OpStructNew:
			shape := vm.program.Shapes[in.A]
			fields := make([]runtime.Value, in.B)
			for i := in.B - 1; i >= 0; i-- {
				fields[i] = vm.pop()
			}
			vm.push(runtime.NewStruct(shape.TypeName, shape.FieldNames, fields))

		case bytecode.OpStructGet:
			target, ok := vm.pop().(*runtime.Struct)
			if !ok {
				if e := vm.fault("field access on non-struct"); e != nil {
					return e
				}
				continue
			}
			vm.push(target.Fields[in.A])

		case bytecode.OpStructSet:
			value := vm.pop()
			target, ok := vm.pop().(*runtime.Struct)
			if !ok {
				if e := vm.fault("field store on non-struct"); e != nil {
					return e
				}
				continue
			}
			runtime.Release(target.Fields[in.A])
			target.Fields[in.A] = runtime.Retain(value)

		case bytecode.OpEnumNew:
			shape := vm.program.Shapes[in.A]
			payload := make([]runtime.Value, in.B)
			for i := in.B - 1; i >= 0; i-- {
				payload[i] = vm.pop()
			}
			vm.push(runtime.NewEnum(shape.TypeName, shape.Variant, shape.Tag, payload))

		case bytecode.OpEnumTag:
			target, ok := vm.pop().(*runtime.Enum)
			if !ok {
				if e := vm.fault("tag read on non-enum"); e != nil {
					return e
				}
				continue
			}
			vm.push(runtime.Int(int64(target.Tag)))

		case bytecode.OpEnumField:
			target, ok := vm.pop().(*runtime.Enum)
			if !ok {
				if e := vm.fault("payload read on non-enum"); e != nil {
					return e
				}
				continue
			}
			vm.push(target.Payload[in.A])

		case bytecode.OpListNew:
			elems := make([]runtime.Value, in.A)
			for i := in.A - 1; i >= 0; i-- {
				elems[i] = vm.pop()
			}
			vm.push(runtime.NewList(elems))

		case bytecode.OpListPush:
			value := vm.pop()
			list, ok := vm.pop().(*runtime.List)
			if !ok {
				if e := vm.fault("push on non-list"); e != nil {
					return e
				}
				continue
			}
			list.Elems = append(list.Elems, runtime.Retain(value))

		case bytecode.OpDictNew:
			dict := runtime.NewDict()
			pairs := make([]runtime.Value, in.A*2)
			for i := in.A*2 - 1; i >= 0; i-- {
				pairs[i] = vm.pop()
			}
			for i := 0; i < in.A; i++ {
				dict.Set(pairs[i*2], pairs[i*2+1])
			}
			vm.push(dict)

		case bytecode.OpIndexGet:
			index := vm.pop()
			target := vm.pop()
			result, err := indexGet(target, index)
			if err != nil {
				if e := vm.raise(&RuntimeError{Message: err.Error()}); e != nil {
					return e
				}
				continue
			}
			vm.push(result)

		case bytecode.OpIndexSet:
			value := vm.pop()
			index := vm.pop()
			target := vm.pop()
			if err := indexSet(target, index, value); err != nil {
				if e := vm.raise(&RuntimeError{Message: err.Error()}); e != nil {
					return e
				}
				continue
			}

		case bytecode.OpRangeNew:
			end := vm.pop()
			start := vm.pop()
			s, ok1 := start.(runtime.Int)
			en, ok2 := end.(runtime.Int)
			if !ok1 || !ok2 {
				if e := vm.fault("range endpoints must be Int"); e != nil {
					return e
				}
				continue
			}
			n := arith.RangeLength(int64(s), int64(en), in.A != 0)
			elems := make([]runtime.Value, 0, n)
			for i := int64(0); i < n; i++ {
				elems = append(elems, runtime.Int(int64(s)+i))
			}
			vm.push(runtime.NewList(elems))

		case bytecode.OpSlice:
			var start, end int64
			hasStart := in.A&1 != 0
			hasEnd := in.A&2 != 0
			inclusive := in.A&4 != 0
			if hasEnd {
				end = int64(vm.pop().(runtime.Int))
			}
			if hasStart {
				start = int64(vm.pop().(runtime.Int))
			}
			target := vm.pop()
			result, err := sliceValue(target, start, end, hasStart, hasEnd, inclusive)
			if err != nil {
				if e := vm.raise(&RuntimeError{Message: err.Error()}); e != nil {
					return e
				}
				continue
			}
			vm.push(result)

		case bytecode.OpUnwrap:
			value := vm.pop()
			if _, isNil := value.(runtime.Nil); isNil {
				if e := vm.fault("force-unwrap of nil"); e != nil {
					return e
				}
				continue
			}
			vm.push(value)

		case bytecode.OpIsNil:
			_, isNil := vm.pop().(runtime.Nil)
			vm.push(runtime.Bool(isNil))

		case bytecode.OpClosureNew:
			captures := make([]runtime.Value, in.B)
			for i := in.B - 1; i >= 0; i-- {
				captures[i] = vm.pop()
			}
			fn := vm.program.Functions[in.A]
			vm.push(runtime.NewClosure(fn.Name, in.A, captures))

		case bytecode.OpCellNew:
			vm.push(runtime.NewCell(vm.pop()))
		case bytecode.OpCellGet:
			cell, ok := vm.pop().(*runtime.Cell)
			if !ok {
				if e := vm.fault("cell read on non-cell"); e != nil {
					return e
				}
				continue
			}
			vm.push(cell.V)
		case bytecode.OpCellSet:
			cell, ok := vm.pop().(*runtime.Cell)
			if !ok {
				if e := vm.fault("cell store on non-cell"); e != nil {
					return e
				}
				continue
			}
			cell.V = vm.pop()

		case bytecode.OpUnreachable:
			return fmt.Errorf("internal: reached unreachable code in %s", f.fn.Name)

		default:
			return fmt.Errorf("internal: unknown opcode %d", in.Op)
		}
	}
	return nil
}
