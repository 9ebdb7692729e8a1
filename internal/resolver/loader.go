package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maloquacious/semver"
)

// CompilerStdlibVersion is the stdlib contract version this resolver
// implements. A pre-registered standard module that declares a higher
// MinVersion than this can't be satisfied, and resolution fails with
// CodeResolverIncompatibleVersion rather than silently miscompiling
// against a newer stdlib shape.
var CompilerStdlibVersion = semver.Version{Major: 1, Minor: 0, Patch: 0}

// StdModule is one pre-registered standard module: its source text plus
// the minimum stdlib contract version it requires.
type StdModule struct {
	Path       string
	Source     string
	MinVersion semver.Version
}

// Loader resolves a use-path to source text in three tiers:
// pre-registered standard module, stdlib search root for "std." paths,
// else a relative file path.
type Loader struct {
	std        map[string]StdModule
	stdlibRoot string
}

// NewLoader builds a Loader with no standard modules registered and no
// stdlib search root; callers add both via RegisterStd/SetStdlibRoot.
func NewLoader() *Loader {
	return &Loader{std: make(map[string]StdModule)}
}

// RegisterStd adds a pre-registered standard module, addressable by its
// own path with no filesystem lookup required.
func (l *Loader) RegisterStd(mod StdModule) {
	l.std[mod.Path] = mod
}

// SetStdlibRoot configures the directory searched for "std."-prefixed
// paths that aren't pre-registered (path "std.io.file" -> "<root>/io/file.sarn").
func (l *Loader) SetStdlibRoot(dir string) {
	l.stdlibRoot = dir
}

// Load resolves path relative to fromDir (the directory of the importing
// file) and returns its source text. It never itself returns a version
// error; callers check MinVersion against CompilerStdlibVersion
// separately so the version mismatch can carry its own diagnostic span.
func (l *Loader) Load(path, fromDir string) (source string, stdVersion *semver.Version, err error) {
	if mod, ok := l.std[path]; ok {
		v := mod.MinVersion
		return mod.Source, &v, nil
	}

	if strings.HasPrefix(path, "std.") {
		if l.stdlibRoot == "" {
			return "", nil, fmt.Errorf("no stdlib search root configured for %q", path)
		}
		rel := strings.ReplaceAll(strings.TrimPrefix(path, "std."), ".", string(filepath.Separator))
		full := filepath.Join(l.stdlibRoot, rel+".sarn")
		b, readErr := os.ReadFile(full)
		if readErr != nil {
			return "", nil, fmt.Errorf("stdlib module %q not found under %s: %w", path, l.stdlibRoot, readErr)
		}
		return string(b), nil, nil
	}

	full := filepath.Join(fromDir, path)
	if !strings.HasSuffix(full, ".sarn") {
		full += ".sarn"
	}
	b, readErr := os.ReadFile(full)
	if readErr != nil {
		return "", nil, fmt.Errorf("module %q not found at %s: %w", path, full, readErr)
	}
	return string(b), nil, nil
}
