// Package driver orchestrates the pipeline: lex/parse through the
// resolver, type checker, MIR lowering, monomorphization, optional
// optimization, and one of the two backends. Each compilation unit owns
// its diagnostic bag and module state; stages run in dependency order
// and downstream stages are skipped once a stage records an error.
package driver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/sarn-lang/sarn/internal/bytecode"
	"github.com/sarn-lang/sarn/internal/codegen/llvm"
	"github.com/sarn-lang/sarn/internal/diag"
	"github.com/sarn-lang/sarn/internal/intrinsics"
	"github.com/sarn-lang/sarn/internal/mir"
	"github.com/sarn-lang/sarn/internal/mir/optimize"
	"github.com/sarn-lang/sarn/internal/resolver"
	"github.com/sarn-lang/sarn/internal/source"
	"github.com/sarn-lang/sarn/internal/types"
	"github.com/sarn-lang/sarn/internal/vm"
)

var logger = loggo.GetLogger("sarn.driver")

// Result is a finished compilation: the diagnostic bag plus whichever
// backend artifact the configuration asked for.
type Result struct {
	Diags   *diag.Bag
	Module  *mir.Module
	Program *bytecode.Program
	IR      string
}

// Compile runs the front half of the pipeline (through MIR and
// monomorphization) and then the configured backend's emitter. A nil
// error with Diags.HasErrors() set means a user-program failure; a
// non-nil error is an internal one.
func Compile(cfg *Config, path string) (*Result, error) {
	bag := diag.NewBag()
	result := &Result{Diags: bag}

	// Register the entry file in the unit's source map so every
	// diagnostic against it resolves full line/column/endcolumn
	// positions, whichever stage produced it.
	srcMap := source.New()
	if text, readErr := os.ReadFile(path); readErr == nil {
		id := srcMap.AddFile(path, string(text))
		defer resolveEndPositions(bag, srcMap, path, id)
	}

	loader := resolver.NewLoader()
	loader.SetStdlibRoot(cfg.StdlibRoot)
	loader.RegisterStd(resolver.StdModule{Path: "std.intrinsics", Source: ""})

	res := resolver.New(loader, bag)
	res.DeclareBuiltins(intrinsics.Names())
	mod := res.Resolve(path)
	if bag.HasErrors() || mod == nil {
		return result, nil
	}

	checkers := make(map[string]*types.Checker)
	checker := checkModule(res, mod, bag, checkers)
	if bag.HasErrors() {
		return result, nil
	}

	lowerer := mir.NewLowerer(checker, intrinsics.Kinds())
	mirModule, err := lowerer.LowerModule(mod.File)
	if err != nil {
		bag.Errorf(diag.StageCodegen, diag.CodeCodegenInternal, diag.Span{},
			"internal error lowering module: %v", err)
		return result, nil
	}

	mirModule, err = mir.Monomorphize(mirModule)
	if err != nil {
		bag.Errorf(diag.StageMonomorph, diag.CodeMonomorphUnsatisfiableConstraint, diag.Span{},
			"monomorphization failed: %v", err)
		return result, nil
	}

	if cfg.OptLevel > 0 {
		for _, fn := range mirModule.Functions {
			optimize.ConstantPropagation(fn)
			optimize.DeadCodeElimination(fn)
			if cfg.OptLevel > 1 {
				optimize.LoopInvariantCodeMotion(fn)
			}
		}
	}
	result.Module = mirModule

	switch cfg.Backend {
	case BackendNative:
		gen := llvm.NewGenerator(mirModule, bag)
		gen.TargetTriple = cfg.TargetTriple
		ir, err := gen.Generate()
		if err != nil {
			return result, nil // already recorded as a codegen diagnostic
		}
		result.IR = ir
	default:
		program, err := bytecode.Emit(mirModule)
		if err != nil {
			bag.Errorf(diag.StageCodegen, diag.CodeCodegenInternal, diag.Span{},
				"internal error emitting bytecode: %v", err)
			return result, nil
		}
		result.Program = program
	}
	return result, nil
}

// checkModule type-checks a resolved module and, first, every module it
// imports (post-order over the import DAG), wiring each alias to its
// checked environment.
func checkModule(res *resolver.Resolver, mod *resolver.Module, bag *diag.Bag, memo map[string]*types.Checker) *types.Checker {
	if existing, ok := memo[mod.Path]; ok {
		return existing
	}
	checker := types.NewChecker(bag)
	memo[mod.Path] = checker

	for _, entry := range intrinsics.Table {
		checker.DeclareBuiltin(entry.Name, entry.Signature())
	}

	for alias, importPath := range mod.Imports {
		if importPath == "std.intrinsics" {
			checker.BindIntrinsicModule(alias)
			continue
		}
		sub, ok := res.Resolved(importPath)
		if !ok {
			continue
		}
		checker.BindModule(alias, checkModule(res, sub, bag, memo))
	}

	checker.Check(mod.File)
	return checker
}

// RunVM compiles for the VM backend and executes main.
func RunVM(cfg *Config, path string, stdout io.Writer, stdin io.Reader) (*diag.Bag, error) {
	result, err := Compile(cfg, path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if result.Diags.HasErrors() {
		return result.Diags, nil
	}
	machine := vm.New(result.Program, stdout, stdin)
	if err := machine.Run("main"); err != nil {
		return result.Diags, errors.Trace(err)
	}
	return result.Diags, nil
}

// BuildNative compiles to LLVM IR and either writes it out (-emit-ir)
// or assembles and links a standalone executable through the scoped
// subprocess steps.
func BuildNative(cfg *Config, path string) (*diag.Bag, error) {
	result, err := Compile(cfg, path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if result.Diags.HasErrors() {
		return result.Diags, nil
	}

	output := cfg.Output
	if output == "" {
		base := filepath.Base(path)
		output = base[:len(base)-len(filepath.Ext(base))]
		if cfg.EmitIR {
			output += ".ll"
		}
	}

	if cfg.EmitIR {
		if err := writeFileAtomic(output, []byte(result.IR)); err != nil {
			return result.Diags, errors.Annotate(err, "writing IR")
		}
		logger.Infof("wrote %s", output)
		return result.Diags, nil
	}

	if err := assembleAndLink(cfg, result.IR, output); err != nil {
		return result.Diags, errors.Trace(err)
	}
	return result.Diags, nil
}

// resolveEndPositions fills the end line/column of every diagnostic
// against the registered file from its byte offsets.
func resolveEndPositions(bag *diag.Bag, srcMap *source.Map, path string, id source.FileID) {
	file := srcMap.File(id)
	if file == nil {
		return
	}
	diags := bag.All()
	for i := range diags {
		span := &diags[i].Span
		if span.Filename != path || span.End <= span.Start {
			continue
		}
		if span.Line == 0 {
			span.Line, span.Column = file.Position(span.Start)
		}
		if span.EndLine == 0 {
			span.EndLine, span.EndCol = file.Position(span.End)
		}
	}
}

// Describe returns the one-line artifact summary for verbose output.
func Describe(result *Result) string {
	if result.Program != nil {
		return fmt.Sprintf("%d functions, %d constants",
			len(result.Program.Functions), len(result.Program.Consts))
	}
	if result.Module != nil {
		return fmt.Sprintf("%d functions", len(result.Module.Functions))
	}
	return "no artifact"
}
