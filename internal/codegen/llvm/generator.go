// Package llvm lowers MIR to textual LLVM IR. This is the
// performance-critical backend: scalar locals are promoted to SSA
// values with φ nodes at control-flow merges (no alloca anywhere in a
// scalar loop), module consts thread their folded values into use
// sites, and compound values flow as opaque pointers managed by the
// C-ABI runtime. Runtime declarations are emitted lazily on first use.
package llvm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sarn-lang/sarn/internal/diag"
	"github.com/sarn-lang/sarn/internal/mir"
	"github.com/sarn-lang/sarn/internal/types"
)

// Generator emits one LLVM module per compilation unit.
type Generator struct {
	module *mir.Module

	header  strings.Builder // type cache + string constants
	body    strings.Builder // function definitions
	globals map[string]bool // emitted string-constant names

	// declared runtime symbols -> declaration text, emitted lazily.
	declared map[string]string

	// structTypes caches nominal LLVM struct definitions keyed by
	// (nominal id, monomorphized type-args).
	structTypes map[string]bool

	stringSeq int

	// TargetTriple defaults to the host when left empty.
	TargetTriple string

	Diags *diag.Bag
}

// NewGenerator creates a generator for module.
func NewGenerator(module *mir.Module, diags *diag.Bag) *Generator {
	return &Generator{
		module:      module,
		globals:     make(map[string]bool),
		declared:    make(map[string]string),
		structTypes: make(map[string]bool),
		Diags:       diags,
	}
}

// Generate emits the whole module as textual IR. Internal failures are
// compiler bugs: they surface as CODEGEN_INTERNAL diagnostics naming
// the offending function, never as a panic.
func (g *Generator) Generate() (string, error) {
	for _, st := range g.module.Structs {
		g.cacheStructType(st, nil)
	}

	hasMain := false
	for _, fn := range g.module.Functions {
		if fn.Name == "main" {
			hasMain = true
		}
		if err := g.emitFunction(fn); err != nil {
			g.Diags.Errorf(diag.StageCodegen, diag.CodeCodegenInternal, diag.Span{},
				"internal error lowering %s: %v", fn.Name, err)
			return "", err
		}
	}
	if hasMain {
		g.emitEntryPoint()
	}

	var out strings.Builder
	if g.TargetTriple != "" {
		fmt.Fprintf(&out, "target triple = %q\n\n", g.TargetTriple)
	}
	out.WriteString(g.header.String())
	out.WriteByte('\n')

	decls := make([]string, 0, len(g.declared))
	for _, d := range g.declared {
		decls = append(decls, d)
	}
	sort.Strings(decls)
	for _, d := range decls {
		out.WriteString(d)
		out.WriteByte('\n')
	}
	out.WriteByte('\n')
	out.WriteString(g.attrGroups())
	out.WriteByte('\n')
	out.WriteString(g.body.String())
	return out.String(), nil
}

// declare records a runtime declaration on first use.
func (g *Generator) declare(symbol, signature string) string {
	if _, ok := g.declared[symbol]; !ok {
		g.declared[symbol] = "declare " + signature
	}
	return symbol
}

// stringConstant interns a string literal as a private global, returning
// (global name, byte length).
func (g *Generator) stringConstant(s string) (string, int) {
	name := fmt.Sprintf("@.str.%d", g.stringSeq)
	g.stringSeq++
	encoded := encodeStringLiteral(s)
	fmt.Fprintf(&g.header, "%s = private unnamed_addr constant [%d x i8] c\"%s\"\n",
		name, len(s)+1, encoded)
	return name, len(s)
}

func encodeStringLiteral(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c < 0x7f && c != '"' && c != '\\' {
			sb.WriteByte(c)
			continue
		}
		fmt.Fprintf(&sb, "\\%02X", c)
	}
	sb.WriteString("\\00")
	return sb.String()
}

// cacheStructType emits the nominal LLVM struct definition once per
// (nominal id, type-args) key. Values flow as runtime-managed pointers;
// the named type records the layout the runtime allocates.
func (g *Generator) cacheStructType(st *types.Struct, args []types.Type) string {
	key := st.Name
	if len(args) > 0 {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.String()
		}
		key += "." + strings.Join(parts, ".")
	}
	key = sanitizeIdent(key)
	if g.structTypes[key] {
		return "%struct." + key
	}
	g.structTypes[key] = true

	subst := make(map[string]types.Type)
	for i, tp := range st.TypeParams {
		if i < len(args) {
			subst[tp.Name] = args[i]
		}
	}
	fields := make([]string, len(st.Fields))
	for i, f := range st.Fields {
		fields[i] = llvmType(types.Substitute(f.Type, subst))
	}
	fmt.Fprintf(&g.header, "%%struct.%s = type { %s }\n", key, strings.Join(fields, ", "))
	return "%struct." + key
}

func sanitizeIdent(s string) string {
	r := strings.NewReplacer("[", ".", "]", "", ",", ".", " ", "", "?", "opt", "(", ".", ")", "", "->", ".")
	return r.Replace(s)
}

// attrGroups emits the shared function-attribute groups: #0 for small
// leaf pure functions (always-inline hint), #1 for functions that
// cannot throw.
func (g *Generator) attrGroups() string {
	return "attributes #0 = { alwaysinline nounwind }\nattributes #1 = { nounwind }\n"
}

// emitEntryPoint wraps the user main: run it, then trap on a pending
// uncaught error with a non-zero exit code.
func (g *Generator) emitEntryPoint() {
	userMain := "@" + symbolFor("main")
	g.declare("sarn_error_pending", "i1 @sarn_error_pending()")
	g.declare("sarn_uncaught_error", "void @sarn_uncaught_error()")

	g.body.WriteString("define i32 @main() {\nentry:\n")
	fmt.Fprintf(&g.body, "  call void %s(ptr null)\n", userMain)
	g.body.WriteString("  %pending = call i1 @sarn_error_pending()\n")
	g.body.WriteString("  br i1 %pending, label %uncaught, label %ok\nuncaught:\n")
	g.body.WriteString("  call void @sarn_uncaught_error()\n  ret i32 1\nok:\n  ret i32 0\n}\n")
}

// symbolFor mangles a sarn function name into its native symbol. The
// user main keeps its own symbol clear of the C main.
func symbolFor(name string) string {
	return "sarn." + sanitizeIdent(name)
}
