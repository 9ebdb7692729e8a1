// Package resolver walks a parsed file, builds its scope tree, expands
// `use alias = "path"` declarations into an import-closed module, and
// hygienically renames aliases pulled in from merged imports.
package resolver

import (
	"github.com/sarn-lang/sarn/internal/ast"
	"github.com/sarn-lang/sarn/internal/lexer"
)

// Kind classifies what a Symbol names.
type Kind string

const (
	KindVariable    Kind = "variable"
	KindConst       Kind = "const"
	KindFunction    Kind = "function"
	KindStruct      Kind = "struct"
	KindEnum        Kind = "enum"
	KindError       Kind = "error"
	KindModuleAlias Kind = "module-alias"
)

// Symbol is a named entity recorded in a scope: (name, kind, mutability,
// scope depth, declaring span, declared-type-or-typeof-initializer node).
type Symbol struct {
	Name     string
	Kind     Kind
	Mutable  bool
	Depth    int
	Span     lexer.Span
	DeclNode ast.Node

	// ModulePath is set only for KindModuleAlias symbols: the resolved
	// path the alias refers to.
	ModulePath string
}
