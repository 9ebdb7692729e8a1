package driver

import (
	"flag"
	"os"
	"path/filepath"
)

// Backend selects which code generator runs a compiled unit.
type Backend string

const (
	BackendVM     Backend = "vm"
	BackendNative Backend = "native"
)

// Config is the driver's knobs: the stdlib search root and cache
// directory come from flags with environment fallback, everything else
// from flags alone.
type Config struct {
	StdlibRoot string
	CacheDir   string

	Backend      Backend
	TargetTriple string
	CPU          string
	OptLevel     int
	Output       string
	EmitIR       bool

	// RuntimeLib is the path of the native runtime archive the link
	// step adds; empty means `-lsarnrt` from the default search path.
	RuntimeLib string

	Color bool
}

// ParseFlags populates a Config from args. Unset flags fall back to
// SARN_STDLIB_ROOT and SARN_CACHE_DIR, then to built-in defaults.
func ParseFlags(args []string) (*Config, []string, error) {
	cfg := &Config{}
	fs := flag.NewFlagSet("sarnc", flag.ContinueOnError)
	fs.StringVar(&cfg.StdlibRoot, "stdlib", "", "stdlib search root (defaults to $SARN_STDLIB_ROOT)")
	fs.StringVar(&cfg.CacheDir, "cache", "", "artifact cache directory (defaults to $SARN_CACHE_DIR)")
	backend := fs.String("backend", string(BackendVM), "execution backend: vm or native")
	fs.StringVar(&cfg.TargetTriple, "target", "", "LLVM target triple (defaults to the host)")
	fs.StringVar(&cfg.CPU, "mcpu", "", "CPU tuning string passed to llc")
	fs.IntVar(&cfg.OptLevel, "O", 0, "optimization level (0-2)")
	fs.StringVar(&cfg.Output, "o", "", "output path (native backend)")
	fs.BoolVar(&cfg.EmitIR, "emit-ir", false, "write textual LLVM IR instead of an executable")
	fs.StringVar(&cfg.RuntimeLib, "runtime", "", "path to the native runtime library")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if cfg.StdlibRoot == "" {
		cfg.StdlibRoot = os.Getenv("SARN_STDLIB_ROOT")
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = os.Getenv("SARN_CACHE_DIR")
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(os.TempDir(), "sarn-cache")
	}
	cfg.Backend = Backend(*backend)
	return cfg, fs.Args(), nil
}
