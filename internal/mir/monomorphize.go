package mir

import (
	"fmt"
	"strings"

	"github.com/sarn-lang/sarn/internal/types"
)

// Monomorphize specializes every generic function per concrete
// type-argument tuple, driven by a work set rather than recursion so
// mutually recursive generic functions can't grow the stack. Equal
// tuples yield exactly one specialized function; generic templates are
// dropped from the result.
func Monomorphize(module *Module) (*Module, error) {
	generics := make(map[string]*Function)
	out := &Module{
		Structs: module.Structs,
		Enums:   module.Enums,
		Errors:  module.Errors,
		Consts:  module.Consts,
	}

	for _, fn := range module.Functions {
		if len(fn.TypeParams) > 0 {
			generics[fn.Name] = fn
			continue
		}
		out.Functions = append(out.Functions, fn)
	}

	type workItem struct {
		name string
		args []types.Type
	}
	var queue []workItem
	done := make(map[string]bool)

	// Seed the queue from generic calls in concrete functions, rewriting
	// each call site to its mangled specialization name.
	collect := func(fn *Function) {
		for _, block := range fn.Blocks {
			for _, stmt := range block.Statements {
				call, ok := stmt.(*Call)
				if !ok || len(call.TypeArgs) == 0 {
					continue
				}
				mangled := MangledName(call.Callee, call.TypeArgs)
				if !done[mangled] {
					done[mangled] = true
					queue = append(queue, workItem{name: call.Callee, args: call.TypeArgs})
				}
				call.Callee = mangled
				call.TypeArgs = nil
			}
		}
	}
	for _, fn := range out.Functions {
		collect(fn)
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		template, ok := generics[item.name]
		if !ok {
			return nil, fmt.Errorf("call to unknown generic function %q", item.name)
		}
		if len(item.args) != len(template.TypeParams) {
			return nil, fmt.Errorf("%s takes %d type arguments, got %d",
				item.name, len(template.TypeParams), len(item.args))
		}

		subst := make(map[string]types.Type, len(template.TypeParams))
		for i, tp := range template.TypeParams {
			subst[tp] = item.args[i]
		}

		specialized := cloneFunction(template, MangledName(item.name, item.args), subst)
		collect(specialized)
		out.Functions = append(out.Functions, specialized)
	}

	return out, nil
}

// MangledName builds the specialized symbol for a generic function at a
// type-argument tuple, kept stable so equal tuples intern to one name.
func MangledName(name string, args []types.Type) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = sanitizeTypeName(a.String())
	}
	return name + "$" + strings.Join(parts, "$")
}

func sanitizeTypeName(s string) string {
	r := strings.NewReplacer("[", ".", "]", "", ",", ".", " ", "", "?", "opt", "(", ".", ")", "", "->", ".")
	return r.Replace(s)
}

// cloneFunction deep-copies a function, substituting type parameters
// throughout locals, operands, and statements.
func cloneFunction(fn *Function, name string, subst map[string]types.Type) *Function {
	clone := &Function{
		Name:       name,
		ReturnType: types.Substitute(fn.ReturnType, subst),
		Throws:     fn.Throws,
		IsClosure:  fn.IsClosure,
	}
	for _, p := range fn.Params {
		clone.Params = append(clone.Params, cloneLocal(p, subst))
	}
	for _, l := range fn.Locals {
		clone.Locals = append(clone.Locals, cloneLocal(l, subst))
	}
	for _, c := range fn.Captures {
		clone.Captures = append(clone.Captures, Capture{Name: c.Name, Type: types.Substitute(c.Type, subst), ByRef: c.ByRef})
	}
	for _, cl := range fn.CaptureLocals {
		clone.CaptureLocals = append(clone.CaptureLocals, cloneLocal(cl, subst))
	}

	blockMap := make(map[*BasicBlock]*BasicBlock, len(fn.Blocks))
	for _, b := range fn.Blocks {
		nb := &BasicBlock{Index: b.Index, Label: b.Label}
		blockMap[b] = nb
		clone.Blocks = append(clone.Blocks, nb)
	}
	clone.Entry = blockMap[fn.Entry]

	for _, b := range fn.Blocks {
		nb := blockMap[b]
		for _, stmt := range b.Statements {
			nb.Statements = append(nb.Statements, cloneStmt(stmt, subst, blockMap))
		}
		nb.Terminator = cloneTerminator(b.Terminator, subst, blockMap)
	}
	return clone
}

func cloneLocal(l Local, subst map[string]types.Type) Local {
	l.Type = types.Substitute(l.Type, subst)
	return l
}

func cloneLocalPtr(l *Local, subst map[string]types.Type) *Local {
	if l == nil {
		return nil
	}
	c := cloneLocal(*l, subst)
	return &c
}

func cloneOperand(op Operand, subst map[string]types.Type) Operand {
	switch o := op.(type) {
	case *LocalRef:
		return &LocalRef{Local: cloneLocal(o.Local, subst)}
	case *Literal:
		return &Literal{Type: types.Substitute(o.Type, subst), Value: o.Value}
	case *FuncRef:
		t, _ := types.Substitute(o.Type, subst).(*types.Function)
		return &FuncRef{Name: o.Name, Type: t}
	case nil:
		return nil
	default:
		return op
	}
}

func cloneOperands(ops []Operand, subst map[string]types.Type) []Operand {
	if ops == nil {
		return nil
	}
	out := make([]Operand, len(ops))
	for i, op := range ops {
		out[i] = cloneOperand(op, subst)
	}
	return out
}

func cloneStmt(stmt Statement, subst map[string]types.Type, blocks map[*BasicBlock]*BasicBlock) Statement {
	switch s := stmt.(type) {
	case *Assign:
		return &Assign{Result: cloneLocal(s.Result, subst), Value: cloneOperand(s.Value, subst)}
	case *BinOp:
		return &BinOp{Result: cloneLocal(s.Result, subst), Op: s.Op, Left: cloneOperand(s.Left, subst), Right: cloneOperand(s.Right, subst)}
	case *UnOp:
		return &UnOp{Result: cloneLocal(s.Result, subst), Op: s.Op, Operand: cloneOperand(s.Operand, subst)}
	case *Phi:
		inputs := make(map[*BasicBlock]Operand, len(s.Inputs))
		for b, op := range s.Inputs {
			inputs[blocks[b]] = cloneOperand(op, subst)
		}
		return &Phi{Result: cloneLocal(s.Result, subst), Inputs: inputs}
	case *Call:
		args := make([]types.Type, len(s.TypeArgs))
		for i, a := range s.TypeArgs {
			args[i] = types.Substitute(a, subst)
		}
		if len(args) == 0 {
			args = nil
		}
		return &Call{
			Result:        cloneLocalPtr(s.Result, subst),
			Callee:        s.Callee,
			CalleeOperand: cloneOperand(s.CalleeOperand, subst),
			Args:          cloneOperands(s.Args, subst),
			TypeArgs:      args,
			CanThrow:      s.CanThrow,
			Handler:       blocks[s.Handler],
			ErrLocal:      cloneLocalPtr(s.ErrLocal, subst),
		}
	case *CallIntrinsic:
		return &CallIntrinsic{Result: cloneLocalPtr(s.Result, subst), Name: s.Name, Kind: s.Kind, Args: cloneOperands(s.Args, subst)}
	case *LoadField:
		return &LoadField{Result: cloneLocal(s.Result, subst), Target: cloneOperand(s.Target, subst), Field: s.Field, Index: s.Index}
	case *StoreField:
		return &StoreField{Target: cloneOperand(s.Target, subst), Field: s.Field, Index: s.Index, Value: cloneOperand(s.Value, subst)}
	case *LoadIndex:
		return &LoadIndex{Result: cloneLocal(s.Result, subst), Target: cloneOperand(s.Target, subst), Index: cloneOperand(s.Index, subst)}
	case *StoreIndex:
		return &StoreIndex{Target: cloneOperand(s.Target, subst), Index: cloneOperand(s.Index, subst), Value: cloneOperand(s.Value, subst)}
	case *ConstructStruct:
		fields := make([]FieldInit, len(s.Fields))
		for i, f := range s.Fields {
			fields[i] = FieldInit{Name: f.Name, Value: cloneOperand(f.Value, subst)}
		}
		return &ConstructStruct{Result: cloneLocal(s.Result, subst), Type: types.Substitute(s.Type, subst), Fields: fields}
	case *ConstructList:
		return &ConstructList{Result: cloneLocal(s.Result, subst), ElemType: types.Substitute(s.ElemType, subst), Elements: cloneOperands(s.Elements, subst)}
	case *ConstructDict:
		t, _ := types.Substitute(s.Type, subst).(*types.Dict)
		return &ConstructDict{Result: cloneLocal(s.Result, subst), Type: t, Keys: cloneOperands(s.Keys, subst), Values: cloneOperands(s.Values, subst)}
	case *ConstructEnum:
		return &ConstructEnum{
			Result:       cloneLocal(s.Result, subst),
			Type:         types.Substitute(s.Type, subst),
			TypeName:     s.TypeName,
			Variant:      s.Variant,
			VariantIndex: s.VariantIndex,
			Values:       cloneOperands(s.Values, subst),
		}
	case *Discriminant:
		return &Discriminant{Result: cloneLocal(s.Result, subst), Target: cloneOperand(s.Target, subst)}
	case *AccessVariantPayload:
		return &AccessVariantPayload{Result: cloneLocal(s.Result, subst), Target: cloneOperand(s.Target, subst), VariantIndex: s.VariantIndex, MemberIndex: s.MemberIndex}
	case *ConstructRange:
		return &ConstructRange{Result: cloneLocal(s.Result, subst), Start: cloneOperand(s.Start, subst), End: cloneOperand(s.End, subst), Inclusive: s.Inclusive}
	case *Slice:
		return &Slice{Result: cloneLocal(s.Result, subst), Target: cloneOperand(s.Target, subst), Start: cloneOperand(s.Start, subst), End: cloneOperand(s.End, subst), Inclusive: s.Inclusive}
	case *MakeClosure:
		return &MakeClosure{Result: cloneLocal(s.Result, subst), Func: s.Func, Captures: cloneOperands(s.Captures, subst)}
	case *UnwrapOptional:
		return &UnwrapOptional{Result: cloneLocal(s.Result, subst), Operand: cloneOperand(s.Operand, subst)}
	case *IsNil:
		return &IsNil{Result: cloneLocal(s.Result, subst), Operand: cloneOperand(s.Operand, subst)}
	default:
		return stmt
	}
}

func cloneTerminator(t Terminator, subst map[string]types.Type, blocks map[*BasicBlock]*BasicBlock) Terminator {
	switch term := t.(type) {
	case *Return:
		return &Return{Value: cloneOperand(term.Value, subst)}
	case *Goto:
		return &Goto{Target: blocks[term.Target]}
	case *Branch:
		return &Branch{Condition: cloneOperand(term.Condition, subst), True: blocks[term.True], False: blocks[term.False]}
	case *Throw:
		return &Throw{Value: cloneOperand(term.Value, subst)}
	case *Unreachable:
		return &Unreachable{}
	default:
		return t
	}
}
