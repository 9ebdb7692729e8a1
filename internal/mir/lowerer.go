package mir

import (
	"fmt"
	"sort"

	"github.com/sarn-lang/sarn/internal/ast"
	"github.com/sarn-lang/sarn/internal/types"
)

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lowerer converts a type-checked file to MIR. It reads the checker's
// expression-type slots, call type arguments, and declared shapes; it
// never re-infers anything.
type Lowerer struct {
	Info *types.Checker

	// Intrinsics maps intrinsic name to its numeric dispatch kind. The
	// driver fills it from the registry; tests pass a literal map.
	Intrinsics map[string]int

	module *Module
	consts map[string]*Literal

	currentFunc  *Function
	currentBlock *BasicBlock
	currentDecl  ast.Node
	localCounter int
	blockCounter int
	lambdaSeq    int

	// scopes is a shadowing stack of name -> local bindings.
	scopes []map[string]Local

	// catchHandler is the active catch target while lowering the target
	// expression of a catch; nil means thrown errors re-propagate.
	catchHandler  *BasicBlock
	catchErrLocal *Local

	// capturing, when non-nil, collects free variables while lowering a
	// lambda body: names that miss every lambda-local scope are resolved
	// in the enclosing function's scopes instead and recorded here.
	capturing *captureSet
}

type captureSet struct {
	outer  []map[string]Local // the enclosing function's scopes
	names  []string
	locals map[string]Local // capture name -> local in the lifted fn
	byRef  map[string]bool
}

// NewLowerer creates a lowerer over a checked module's type information.
func NewLowerer(info *types.Checker, intrinsics map[string]int) *Lowerer {
	return &Lowerer{
		Info:       info,
		Intrinsics: intrinsics,
		consts:     make(map[string]*Literal),
	}
}

// LowerModule lowers an entire file to MIR.
func (l *Lowerer) LowerModule(file *ast.File) (*Module, error) {
	module := &Module{}
	l.module = module

	// Stable name order: the LLVM backend's output feeds a
	// content-addressed cache, so map iteration order must not leak in.
	for _, name := range sortedKeys(l.Info.Structs) {
		module.Structs = append(module.Structs, l.Info.Structs[name])
	}
	for _, name := range sortedKeys(l.Info.Enums) {
		module.Enums = append(module.Enums, l.Info.Enums[name])
	}
	for _, name := range sortedKeys(l.Info.ErrorTypes) {
		module.Errors = append(module.Errors, l.Info.ErrorTypes[name])
	}

	// Fold module-level consts first so function bodies can thread their
	// values into use sites (const-global promotion).
	for _, decl := range file.Decls {
		cd, ok := decl.(*ast.ConstDecl)
		if !ok {
			continue
		}
		lit, err := l.foldConstExpr(cd.Value)
		if err != nil {
			return nil, fmt.Errorf("const %s: %w", cd.Name.Name, err)
		}
		l.consts[cd.Name.Name] = lit
		module.Consts = append(module.Consts, Const{Name: cd.Name.Name, Type: lit.Type, Value: lit})
	}

	for _, decl := range file.Decls {
		fnDecl, ok := decl.(*ast.FnDecl)
		if !ok {
			continue
		}
		fn, err := l.LowerFunction(fnDecl)
		if err != nil {
			return nil, fmt.Errorf("failed to lower function %s: %w", fnDecl.Name.Name, err)
		}
		module.Functions = append(module.Functions, fn)
	}

	return module, nil
}

// LowerFunction lowers one function declaration to MIR.
func (l *Lowerer) LowerFunction(decl *ast.FnDecl) (*Function, error) {
	fnType, _ := l.Info.Types[decl].(*types.Function)

	fn := &Function{Name: decl.Name.Name}
	for _, tp := range decl.TypeParams {
		fn.TypeParams = append(fn.TypeParams, tp.Name.Name)
	}
	if fnType != nil {
		fn.ReturnType = fnType.Return
		fn.Throws = fnType.Throws
	} else {
		fn.ReturnType = types.TypeVoid
	}

	l.resetFor(fn)
	l.currentDecl = decl

	for i, param := range decl.Params {
		var pt types.Type = types.TypeUnknown
		if fnType != nil && i < len(fnType.Params) {
			pt = fnType.Params[i]
		}
		local := l.newNamedLocal(param.Name.Name, pt, true)
		fn.Params = append(fn.Params, local)
		l.bind(param.Name.Name, local)
	}

	entry := l.newBlock("entry")
	fn.Entry = entry
	l.currentBlock = entry

	if err := l.lowerFunctionBody(decl.Body, fn); err != nil {
		return nil, err
	}
	return fn, nil
}

func (l *Lowerer) lowerFunctionBody(body *ast.BlockExpr, fn *Function) error {
	if body == nil {
		l.currentBlock.Terminator = &Return{}
		return nil
	}
	result, err := l.lowerBlock(body)
	if err != nil {
		return err
	}
	if l.currentBlock.Terminator == nil {
		if result != nil && !isVoidType(fn.ReturnType) {
			l.currentBlock.Terminator = &Return{Value: result}
		} else {
			l.currentBlock.Terminator = &Return{}
		}
	}
	return nil
}

func (l *Lowerer) resetFor(fn *Function) {
	l.currentFunc = fn
	l.currentBlock = nil
	l.localCounter = 0
	l.blockCounter = 0
	l.scopes = []map[string]Local{make(map[string]Local)}
}

// lowerBlock lowers a block's statements, then its tail expression,
// whose operand is the block's value.
func (l *Lowerer) lowerBlock(block *ast.BlockExpr) (Operand, error) {
	l.pushScope()
	defer l.popScope()

	for _, stmt := range block.Stmts {
		if err := l.lowerStmt(stmt); err != nil {
			return nil, err
		}
		if l.currentBlock.Terminator != nil {
			// Unreachable trailing code after return/throw.
			return nil, nil
		}
	}
	if block.Tail != nil {
		return l.lowerExpr(block.Tail)
	}
	return nil, nil
}

// lowerExpr lowers an expression to an operand.
func (l *Lowerer) lowerExpr(expr ast.Expr) (Operand, error) {
	switch e := expr.(type) {
	case *ast.Ident:
		return l.lowerIdent(e)
	case *ast.IntegerLit:
		return l.lowerIntegerLit(e)
	case *ast.FloatLit:
		return l.lowerFloatLit(e)
	case *ast.BoolLit:
		return l.lowerBoolLit(e)
	case *ast.StringLit:
		return l.lowerStringLit(e)
	case *ast.NilLit:
		return l.lowerNilLit(e)
	case *ast.TemplateLit:
		return l.lowerTemplateLit(e)
	case *ast.InfixExpr:
		return l.lowerInfixExpr(e)
	case *ast.PrefixExpr:
		return l.lowerPrefixExpr(e)
	case *ast.PostfixExpr:
		return l.lowerPostfixExpr(e)
	case *ast.CoalesceExpr:
		return l.lowerCoalesceExpr(e)
	case *ast.RangeExpr:
		return l.lowerRangeExpr(e)
	case *ast.AssignExpr:
		return l.lowerAssignExpr(e)
	case *ast.CallExpr:
		return l.lowerCallExpr(e)
	case *ast.CatchExpr:
		return l.lowerCatchExpr(e)
	case *ast.FieldExpr:
		return l.lowerFieldExpr(e)
	case *ast.IndexExpr:
		return l.lowerIndexExpr(e)
	case *ast.StructLiteral:
		return l.lowerStructLiteral(e)
	case *ast.ListLiteral:
		return l.lowerListLiteral(e)
	case *ast.DictLiteral:
		return l.lowerDictLiteral(e)
	case *ast.FunctionLiteral:
		return l.lowerFunctionLiteral(e)
	case *ast.IfExpr:
		return l.lowerIfExpr(e)
	case *ast.MatchExpr:
		return l.lowerMatchExpr(e)
	case *ast.BlockExpr:
		return l.lowerBlock(e)
	default:
		return nil, fmt.Errorf("unsupported expression type: %T", expr)
	}
}

// lowerIdent resolves a name: lexical local, captured outer binding,
// promoted module const, or named function value.
func (l *Lowerer) lowerIdent(e *ast.Ident) (Operand, error) {
	if local, ok := l.lookup(e.Name); ok {
		return &LocalRef{Local: local}, nil
	}
	if l.capturing != nil {
		if local, ok := l.capturing.capture(l, e.Name); ok {
			return &LocalRef{Local: local}, nil
		}
	}
	if lit, ok := l.consts[e.Name]; ok {
		// Const-global promotion: the folded value threads into the use
		// site; no global is ever materialized.
		return lit, nil
	}
	if sym := l.Info.GlobalScope.Lookup(e.Name); sym != nil {
		if fnType, ok := sym.Type.(*types.Function); ok {
			return &FuncRef{Name: e.Name, Type: fnType}, nil
		}
	}
	return nil, fmt.Errorf("unresolved name %q", e.Name)
}

// capture resolves name in the enclosing function's scopes and registers
// it as a captured binding of the lambda being lowered.
func (cs *captureSet) capture(l *Lowerer, name string) (Local, bool) {
	if local, ok := cs.locals[name]; ok {
		return local, true
	}
	for i := len(cs.outer) - 1; i >= 0; i-- {
		outer, ok := cs.outer[i][name]
		if !ok {
			continue
		}
		capLocal := l.newNamedLocal(name, outer.Type, false)
		cs.names = append(cs.names, name)
		cs.locals[name] = capLocal
		l.currentFunc.Captures = append(l.currentFunc.Captures, Capture{
			Name:  name,
			Type:  outer.Type,
			ByRef: cs.byRef[name],
		})
		l.currentFunc.CaptureLocals = append(l.currentFunc.CaptureLocals, capLocal)
		l.bind(name, capLocal)
		return capLocal, true
	}
	return Local{}, false
}

func (l *Lowerer) pushScope() {
	l.scopes = append(l.scopes, make(map[string]Local))
}

func (l *Lowerer) popScope() {
	l.scopes = l.scopes[:len(l.scopes)-1]
}

func (l *Lowerer) bind(name string, local Local) {
	l.scopes[len(l.scopes)-1][name] = local
}

func (l *Lowerer) lookup(name string) (Local, bool) {
	for i := len(l.scopes) - 1; i >= 0; i-- {
		if local, ok := l.scopes[i][name]; ok {
			return local, true
		}
	}
	return Local{}, false
}

func (l *Lowerer) newLocal(t types.Type) Local {
	return l.newNamedLocal("", t, false)
}

func (l *Lowerer) newNamedLocal(name string, t types.Type, mutable bool) Local {
	local := Local{ID: l.localCounter, Name: name, Type: t, Mutable: mutable}
	l.localCounter++
	l.currentFunc.Locals = append(l.currentFunc.Locals, local)
	return local
}

func (l *Lowerer) newBlock(hint string) *BasicBlock {
	b := &BasicBlock{
		Index: l.blockCounter,
		Label: fmt.Sprintf("%s%d", hint, l.blockCounter),
	}
	l.blockCounter++
	l.currentFunc.Blocks = append(l.currentFunc.Blocks, b)
	return b
}

func (l *Lowerer) emit(stmt Statement) {
	l.currentBlock.Statements = append(l.currentBlock.Statements, stmt)
}

// typeOf reads an expression's checker-filled type slot.
func (l *Lowerer) typeOf(e ast.Expr) types.Type {
	if t, ok := l.Info.Types[e]; ok {
		return t
	}
	return types.TypeUnknown
}

func isVoidType(t types.Type) bool {
	p, ok := t.(*types.Primitive)
	return ok && p.Kind == types.Void
}

func (l *Lowerer) intrinsicKind(name string) (int, bool) {
	kind, ok := l.Intrinsics[name]
	return kind, ok
}
