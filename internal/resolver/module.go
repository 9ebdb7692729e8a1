package resolver

import "github.com/sarn-lang/sarn/internal/ast"

// Module is the resolver's output for one compilation unit: an expanded,
// renamed, import-closed file plus its resolved scope tree and export
// table. After resolution every use-statement target is resolved (or a
// diagnostic was emitted) and every alias in scope is unique within the
// module.
type Module struct {
	Path string
	File *ast.File

	// Scope is the module's root scope; it has no parent.
	Scope *Scope

	// Exports holds only the symbols declared `pub` at module scope.
	Exports map[string]*Symbol

	// Imports maps each (possibly hygienically renamed) alias in this
	// module's root scope to the path of the module it refers to.
	Imports map[string]string

	// MonomorphWorklist seeds the type checker/monomorphizer's work
	// queue: every generic symbol reference discovered during resolution
	// that a concrete type-argument tuple will later need to specialize.
	MonomorphWorklist []MonomorphSeed
}

// MonomorphSeed names a generic symbol use discovered before type
// checking has run; the type checker fills in the concrete type-argument
// tuple once inference completes and re-keys these into the monomorphization
// table.
type MonomorphSeed struct {
	SymbolName string
	Site       ast.Node
}
