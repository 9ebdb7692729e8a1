package resolver

import (
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/xrash/smetrics"

	"github.com/sarn-lang/sarn/internal/ast"
	"github.com/sarn-lang/sarn/internal/diag"
	"github.com/sarn-lang/sarn/internal/lexer"
	"github.com/sarn-lang/sarn/internal/parser"
)

// Resolver walks a parsed file, building its scope tree and expanding
// `use` declarations into an import-closed Module.
type Resolver struct {
	loader *Loader
	diags  *diag.Bag

	// visiting is the cycle-detection set: paths currently being
	// resolved on the current import chain. A path re-entering this set
	// is an import cycle.
	visiting map[string]bool

	// resolved caches already-resolved modules by path so a diamond
	// import (two modules importing a shared dependency) parses and
	// resolves that dependency once. Bounded so a pathological import
	// graph can't grow it unboundedly within one process lifetime.
	resolved *lru.Cache[string, *Module]

	// builtins are intrinsic names injected by the driver; references to
	// them resolve without a declaration in any module.
	builtins map[string]bool
}

// DeclareBuiltins registers intrinsic names that resolve everywhere.
func (r *Resolver) DeclareBuiltins(names []string) {
	for _, n := range names {
		r.builtins[n] = true
	}
}

// Resolved returns an already-resolved module by path, for consumers
// (the type checker) walking the import graph after resolution.
func (r *Resolver) Resolved(path string) (*Module, bool) {
	return r.resolved.Get(path)
}

// New builds a Resolver that reports diagnostics into diags and loads
// module sources through loader.
func New(loader *Loader, diags *diag.Bag) *Resolver {
	cache, err := lru.New[string, *Module](256)
	if err != nil {
		// Only returns an error for a non-positive size, which 256 never is.
		panic(err)
	}
	r := &Resolver{
		loader:   loader,
		diags:    diags,
		visiting: make(map[string]bool),
		resolved: cache,
		builtins: make(map[string]bool),
	}
	// Builtin type names resolve everywhere; they also appear in
	// expression position as explicit type arguments (`id[Int](7)`).
	for _, name := range []string{"Int", "Float", "Bool", "String", "Nil", "Void", "List", "Dict"} {
		r.builtins[name] = true
	}
	return r
}

// ResolveFile resolves an already-parsed entry file. path identifies it
// for cycle detection and caching; dir is the directory used to resolve
// its own relative `use` paths.
func (r *Resolver) ResolveFile(file *ast.File, path, dir string) *Module {
	return r.resolveModule(file, path, dir)
}

// Resolve parses and resolves the file at path from scratch.
func (r *Resolver) Resolve(path string) *Module {
	src, stdVersion, err := r.loader.Load(path, filepath.Dir(path))
	if err != nil {
		r.diags.Errorf(diag.StageResolver, diag.CodeResolverUnresolvedModule, dspan(lexer.Span{}),
			"cannot resolve module %q: %v", path, err)
		return nil
	}
	if stdVersion != nil && CompilerStdlibVersion.Major < stdVersion.Major {
		r.diags.Errorf(diag.StageResolver, diag.CodeResolverIncompatibleVersion, dspan(lexer.Span{}),
			"module %q requires stdlib contract v%d.%d.%d, compiler supports v%d.%d.%d",
			path, stdVersion.Major, stdVersion.Minor, stdVersion.Patch,
			CompilerStdlibVersion.Major, CompilerStdlibVersion.Minor, CompilerStdlibVersion.Patch)
		return nil
	}

	p := parser.New(src, parser.WithFilename(path))
	file := p.ParseFile()
	for _, perr := range p.Errors() {
		r.diags.Add(perr.ToDiagnostic())
	}

	return r.resolveModule(file, path, filepath.Dir(path))
}

func (r *Resolver) resolveModule(file *ast.File, path, dir string) *Module {
	if cached, ok := r.resolved.Get(path); ok {
		return cached
	}

	if r.visiting[path] {
		r.diags.Errorf(diag.StageResolver, diag.CodeResolverImportCycle, dspan(file.Span()),
			"import cycle detected at module %q", path)
		return nil
	}
	r.visiting[path] = true
	defer delete(r.visiting, path)

	mod := &Module{
		Path:    path,
		File:    file,
		Scope:   NewScope(nil),
		Exports: make(map[string]*Symbol),
		Imports: make(map[string]string),
	}

	r.resolveUses(mod, file, dir)
	r.declareTopLevel(mod, file)
	r.resolveBodies(mod, file)

	r.resolved.Add(path, mod)
	return mod
}

// resolveUses expands every `use alias = "path"` declaration: it loads
// and resolves the target module, declares a module-alias symbol for it
// in the root scope, and splices the target's own imports in under
// hygienically-renamed aliases so transitive imports never collide.
func (r *Resolver) resolveUses(mod *Module, file *ast.File, dir string) {
	for _, use := range file.Uses {
		if use.Alias == nil || use.Path == nil {
			continue
		}
		alias := use.Alias.Name
		path := use.Path.Value

		if existing := mod.Scope.LookupLocal(alias); existing != nil {
			r.diags.Errorf(diag.StageResolver, diag.CodeResolverDuplicateSymbol, dspan(use.Span()),
				"alias %q already declared in this module", alias)
			continue
		}

		src, stdVersion, err := r.loader.Load(path, dir)
		if err != nil {
			r.diags.Errorf(diag.StageResolver, diag.CodeResolverUnresolvedModule, dspan(use.Span()),
				"cannot resolve module %q: %v", path, err)
			continue
		}
		if stdVersion != nil && CompilerStdlibVersion.Major < stdVersion.Major {
			r.diags.Errorf(diag.StageResolver, diag.CodeResolverIncompatibleVersion, dspan(use.Span()),
				"module %q requires stdlib contract v%d.%d.%d, compiler supports v%d.%d.%d",
				path, stdVersion.Major, stdVersion.Minor, stdVersion.Patch,
				CompilerStdlibVersion.Major, CompilerStdlibVersion.Minor, CompilerStdlibVersion.Patch)
			continue
		}

		sub := parser.New(src, parser.WithFilename(path))
		subFile := sub.ParseFile()
		for _, perr := range sub.Errors() {
			r.diags.Add(perr.ToDiagnostic())
		}

		subMod := r.resolveModule(subFile, path, filepath.Dir(path))
		if subMod == nil {
			continue
		}

		// Splice the submodule's own imports into this module's scope,
		// renamed so they can never collide with an alias this module
		// (or a sibling import) already declared.
		renames := make(map[string]string, len(subMod.Imports))
		for subAlias, subPath := range subMod.Imports {
			fresh := freshAliasName(alias, subAlias)
			renames[subAlias] = fresh
			if mod.Scope.LookupLocal(fresh) == nil {
				mod.Scope.Declare(&Symbol{
					Name: fresh, Kind: KindModuleAlias, Span: use.Span(), ModulePath: subPath,
				})
				mod.Imports[fresh] = subPath
			}
		}
		renameAliases(subMod.File, renames)

		mod.Scope.Declare(&Symbol{
			Name: alias, Kind: KindModuleAlias, Span: use.Span(), ModulePath: path,
		})
		mod.Imports[alias] = path
	}
}

// declareTopLevel declares every top-level declaration's name in the
// module's root scope, recording `pub` ones as exports too.
func (r *Resolver) declareTopLevel(mod *Module, file *ast.File) {
	for _, decl := range file.Decls {
		sym := symbolForDecl(decl)
		if sym == nil {
			continue
		}
		if !mod.Scope.Declare(sym) {
			r.diags.Errorf(diag.StageResolver, diag.CodeResolverDuplicateSymbol, dspan(sym.Span),
				"%q is already declared in this module", sym.Name)
			continue
		}
		if declIsPub(decl) {
			mod.Exports[sym.Name] = sym
		}
	}
}

func symbolForDecl(decl ast.Decl) *Symbol {
	switch d := decl.(type) {
	case *ast.FnDecl:
		return &Symbol{Name: d.Name.Name, Kind: KindFunction, Span: d.Span(), DeclNode: d}
	case *ast.StructDecl:
		return &Symbol{Name: d.Name.Name, Kind: KindStruct, Span: d.Span(), DeclNode: d}
	case *ast.EnumDecl:
		return &Symbol{Name: d.Name.Name, Kind: KindEnum, Span: d.Span(), DeclNode: d}
	case *ast.ErrorDecl:
		return &Symbol{Name: d.Name.Name, Kind: KindError, Span: d.Span(), DeclNode: d}
	case *ast.ConstDecl:
		return &Symbol{Name: d.Name.Name, Kind: KindConst, Mutable: false, Span: d.Span(), DeclNode: d}
	default:
		// *ast.TestDecl has no name to declare: tests run by file order,
		// not by reference.
		return nil
	}
}

func declIsPub(decl ast.Decl) bool {
	switch d := decl.(type) {
	case *ast.FnDecl:
		return d.Pub
	case *ast.StructDecl:
		return d.Pub
	case *ast.EnumDecl:
		return d.Pub
	case *ast.ErrorDecl:
		return d.Pub
	case *ast.ConstDecl:
		return d.Pub
	default:
		return false
	}
}

// resolveBodies walks every declaration's body, building nested function
// scopes, binding parameters and `var`/`const` locals, and resolving
// every identifier reference against the resulting scope chain.
func (r *Resolver) resolveBodies(mod *Module, file *ast.File) {
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FnDecl)
		if !ok || fn.Body == nil {
			continue
		}
		scope := NewScope(mod.Scope)
		for _, tp := range fn.TypeParams {
			scope.Declare(&Symbol{Name: tp.Name.Name, Kind: KindStruct, Span: tp.Name.Span()})
		}
		for _, param := range fn.Params {
			scope.Declare(&Symbol{Name: param.Name.Name, Kind: KindVariable, Mutable: true, Span: param.Name.Span()})
		}
		r.resolveBlock(mod, scope, fn.Body)
	}
}

func (r *Resolver) resolveBlock(mod *Module, scope *Scope, block *ast.BlockExpr) {
	if block == nil {
		return
	}
	inner := NewScope(scope)
	for _, stmt := range block.Stmts {
		r.resolveStmt(mod, inner, stmt)
	}
	if block.Tail != nil {
		r.resolveExpr(mod, inner, block.Tail)
	}
}

func (r *Resolver) resolveStmt(mod *Module, scope *Scope, stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.VarStmt:
		if s.Value != nil {
			r.resolveExpr(mod, scope, s.Value)
		}
		scope.Declare(&Symbol{Name: s.Name.Name, Kind: KindVariable, Mutable: true, Span: s.Name.Span()})
	case *ast.ReturnStmt:
		if s.Value != nil {
			r.resolveExpr(mod, scope, s.Value)
		}
	case *ast.ThrowStmt:
		if s.Value != nil {
			r.resolveExpr(mod, scope, s.Value)
		}
	case *ast.ExprStmt:
		r.resolveExpr(mod, scope, s.Expr)
	case *ast.IfStmt:
		for _, clause := range s.Clauses {
			r.resolveExpr(mod, scope, clause.Condition)
			r.resolveBlock(mod, scope, clause.Body)
		}
		r.resolveBlock(mod, scope, s.Else)
	case *ast.UnlessStmt:
		r.resolveExpr(mod, scope, s.Condition)
		r.resolveBlock(mod, scope, s.Body)
		r.resolveBlock(mod, scope, s.Else)
	case *ast.WhileStmt:
		r.resolveExpr(mod, scope, s.Condition)
		r.resolveBlock(mod, scope, s.Body)
	case *ast.UntilStmt:
		r.resolveExpr(mod, scope, s.Condition)
		r.resolveBlock(mod, scope, s.Body)
	}
}

func (r *Resolver) resolveExpr(mod *Module, scope *Scope, expr ast.Expr) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *ast.Ident:
		r.resolveIdent(mod, scope, e)
	case *ast.AssignExpr:
		r.resolveAssignTarget(mod, scope, e.Target)
		r.resolveExpr(mod, scope, e.Value)
	case *ast.InfixExpr:
		r.resolveExpr(mod, scope, e.Left)
		r.resolveExpr(mod, scope, e.Right)
	case *ast.CoalesceExpr:
		r.resolveExpr(mod, scope, e.Left)
		r.resolveExpr(mod, scope, e.Right)
	case *ast.PrefixExpr:
		r.resolveExpr(mod, scope, e.Expr)
	case *ast.PostfixExpr:
		r.resolveExpr(mod, scope, e.Expr)
	case *ast.RangeExpr:
		r.resolveExpr(mod, scope, e.Start)
		r.resolveExpr(mod, scope, e.End)
	case *ast.CallExpr:
		r.resolveExpr(mod, scope, e.Callee)
		for _, arg := range e.Args {
			r.resolveExpr(mod, scope, arg)
		}
		r.seedMonomorph(mod, scope, e, e.Callee)
	case *ast.CatchExpr:
		r.resolveExpr(mod, scope, e.Target)
		inner := NewScope(scope)
		inner.Declare(&Symbol{Name: e.ErrName.Name, Kind: KindVariable, Span: e.ErrName.Span()})
		r.resolveBlock(mod, inner, e.Body)
	case *ast.IndexExpr:
		r.resolveExpr(mod, scope, e.Target)
		r.resolveExpr(mod, scope, e.Index)
	case *ast.FieldExpr:
		// Module-alias targets (`alias.symbol`) are resolved by the type
		// checker against the target module's export table, not here;
		// a bare local/struct-valued target still needs resolving.
		r.resolveExpr(mod, scope, e.Target)
	case *ast.StructLiteral:
		for _, f := range e.Fields {
			r.resolveExpr(mod, scope, f.Value)
		}
		r.seedMonomorph(mod, scope, e, e.Name)
	case *ast.ListLiteral:
		for _, elem := range e.Elements {
			r.resolveExpr(mod, scope, elem)
		}
	case *ast.DictLiteral:
		for _, entry := range e.Entries {
			r.resolveExpr(mod, scope, entry.Key)
			r.resolveExpr(mod, scope, entry.Value)
		}
	case *ast.TemplateLit:
		for _, sub := range e.Exprs {
			r.resolveExpr(mod, scope, sub)
		}
	case *ast.FunctionLiteral:
		inner := NewScope(scope)
		for _, param := range e.Params {
			inner.Declare(&Symbol{Name: param.Name.Name, Kind: KindVariable, Mutable: true, Span: param.Name.Span()})
		}
		r.resolveExpr(mod, inner, e.Body)
	case *ast.IfExpr:
		for _, clause := range e.Clauses {
			r.resolveExpr(mod, scope, clause.Condition)
			r.resolveBlock(mod, scope, clause.Body)
		}
		r.resolveBlock(mod, scope, e.Else)
	case *ast.MatchExpr:
		r.resolveExpr(mod, scope, e.Subject)
		for _, arm := range e.Arms {
			inner := NewScope(scope)
			declarePatternBindings(inner, arm.Pattern)
			if arm.Guard != nil {
				r.resolveExpr(mod, inner, arm.Guard)
			}
			r.resolveBlock(mod, inner, arm.Body)
		}
	}
}

// seedMonomorph records a reference to a generic function or struct in
// the module's monomorphization worklist; the type checker fills in the
// concrete type-argument tuples once inference has run.
func (r *Resolver) seedMonomorph(mod *Module, scope *Scope, site ast.Node, target ast.Expr) {
	// Explicit type arguments parse as an index over the symbol.
	if idx, ok := target.(*ast.IndexExpr); ok {
		target = idx.Target
	}
	ident, ok := target.(*ast.Ident)
	if !ok {
		return
	}
	sym := scope.Lookup(ident.Name)
	if sym == nil {
		return
	}
	switch decl := sym.DeclNode.(type) {
	case *ast.FnDecl:
		if len(decl.TypeParams) > 0 {
			mod.MonomorphWorklist = append(mod.MonomorphWorklist, MonomorphSeed{SymbolName: ident.Name, Site: site})
		}
	case *ast.StructDecl:
		if len(decl.TypeParams) > 0 {
			mod.MonomorphWorklist = append(mod.MonomorphWorklist, MonomorphSeed{SymbolName: ident.Name, Site: site})
		}
	}
}

func (r *Resolver) resolveAssignTarget(mod *Module, scope *Scope, target ast.Expr) {
	switch t := target.(type) {
	case *ast.Ident:
		sym := scope.Lookup(t.Name)
		if sym == nil {
			r.resolveIdent(mod, scope, t)
			return
		}
		if sym.Kind == KindConst {
			r.diags.Errorf(diag.StageResolver, diag.CodeResolverAssignToConst, dspan(t.Span()),
				"cannot assign to const %q", t.Name)
		}
	default:
		r.resolveExpr(mod, scope, target)
	}
}

func (r *Resolver) resolveIdent(mod *Module, scope *Scope, ident *ast.Ident) {
	if scope.Lookup(ident.Name) != nil || r.builtins[ident.Name] {
		return
	}
	r.diags.Add(r.unknownSymbolDiagnostic(scope, ident))
}

// unknownSymbolDiagnostic builds a RESOLVER_UNKNOWN_SYMBOL diagnostic,
// attaching a "did you mean" help string for the closest in-scope name by
// Jaro-Winkler similarity when one is close enough to be worth a suggestion.
func (r *Resolver) unknownSymbolDiagnostic(scope *Scope, ident *ast.Ident) diag.Diagnostic {
	d := diag.Diagnostic{
		Stage:    diag.StageResolver,
		Severity: diag.SeverityError,
		Code:     diag.CodeResolverUnknownSymbol,
		Message:  "unknown symbol " + ident.Name,
		Span: diag.Span{
			Filename: ident.Span().Filename,
			Line:     ident.Span().Line,
			Column:   ident.Span().Column,
			Start:    ident.Span().Start,
			End:      ident.Span().End,
		},
	}

	best, bestScore := "", 0.0
	for _, name := range scope.Names() {
		score := smetrics.JaroWinkler(ident.Name, name, 0.7, 4)
		if score > bestScore {
			best, bestScore = name, score
		}
	}
	if bestScore >= 0.85 {
		d.Help = "did you mean " + best + "?"
	}
	return d
}

// declarePatternBindings declares every identifier a pattern binds
// (plain identifiers, and the bound name of a slice-pattern `..rest`)
// into scope, so match-arm guards and bodies can reference them.
func declarePatternBindings(scope *Scope, pat ast.Pattern) {
	switch p := pat.(type) {
	case *ast.PatternIdent:
		scope.Declare(&Symbol{Name: p.Name.Name, Kind: KindVariable, Span: p.Name.Span()})
	case *ast.PatternEnum:
		for _, elem := range p.Elements {
			declarePatternBindings(scope, elem)
		}
	case *ast.PatternStruct:
		for _, field := range p.Fields {
			declarePatternBindings(scope, field.Pattern)
		}
	case *ast.PatternSlice:
		for _, elem := range p.Elements {
			declarePatternBindings(scope, elem)
		}
	case *ast.PatternRest:
		if p.Binding != nil {
			declarePatternBindings(scope, p.Binding)
		}
	case *ast.PatternParen:
		declarePatternBindings(scope, p.Pattern)
	case *ast.PatternOr:
		for _, alt := range p.Patterns {
			declarePatternBindings(scope, alt)
		}
	}
}

// dspan converts a lexer span into the diag package's span shape.
func dspan(s lexer.Span) diag.Span {
	return diag.Span{
		Filename: s.Filename,
		Line:     s.Line,
		Column:   s.Column,
		Start:    s.Start,
		End:      s.End,
	}
}
