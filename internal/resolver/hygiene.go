package resolver

import "github.com/sarn-lang/sarn/internal/ast"

// renameAliases rewrites every reference to an old module alias name
// within file to its hygienic replacement, per the {old -> new} map. This
// is a pure AST-to-AST rewrite over a single file (no global symbol table
// mutation): the merged module is built in one pass by splicing already-
// renamed imported files into the caller.
//
// An alias is only ever referenced as the target of a field access
// (`alias.Symbol`) or bare identifier in a use-path reference, so renaming
// walks every FieldExpr/CallExpr target and every UseDecl alias looking
// for a bare *ast.Ident matching an old name.
func renameAliases(file *ast.File, renames map[string]string) {
	if len(renames) == 0 {
		return
	}

	for _, use := range file.Uses {
		if use.Alias != nil {
			if newName, ok := renames[use.Alias.Name]; ok {
				use.Alias.Name = newName
			}
		}
	}

	for _, decl := range file.Decls {
		ast.Walk(decl, func(n ast.Node) bool {
			switch expr := n.(type) {
			case *ast.FieldExpr:
				renameIdentTarget(expr.Target, renames)
			case *ast.CallExpr:
				renameIdentTarget(expr.Callee, renames)
			}
			return true
		})
	}
}

// renameIdentTarget renames target in place if it is a bare identifier
// naming an old alias. Targets that are themselves field/call/index
// expressions are left for Walk to reach their own leaf identifiers.
func renameIdentTarget(target ast.Expr, renames map[string]string) {
	ident, ok := target.(*ast.Ident)
	if !ok {
		return
	}
	if newName, ok := renames[ident.Name]; ok {
		ident.Name = newName
	}
}

// freshAliasName builds the `__module_<caller-alias>__<original-alias>`
// scheme used when splicing an imported module's own imports into a
// caller's scope, so two imports sharing a transitive dependency never
// collide on alias name.
func freshAliasName(callerAlias, originalAlias string) string {
	return "__module_" + callerAlias + "__" + originalAlias
}
