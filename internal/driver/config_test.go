package driver

import (
	"testing"
)

func TestParseFlagsDefaults(t *testing.T) {
	t.Setenv("SARN_STDLIB_ROOT", "")
	t.Setenv("SARN_CACHE_DIR", "")

	cfg, rest, err := ParseFlags([]string{"prog.sarn"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != BackendVM {
		t.Errorf("default backend is the VM, got %s", cfg.Backend)
	}
	if cfg.CacheDir == "" {
		t.Error("cache dir must default to a writable path")
	}
	if len(rest) != 1 || rest[0] != "prog.sarn" {
		t.Errorf("positional args: %v", rest)
	}
}

func TestParseFlagsEnvFallback(t *testing.T) {
	t.Setenv("SARN_STDLIB_ROOT", "/opt/sarn/std")
	t.Setenv("SARN_CACHE_DIR", "/var/cache/sarn")

	cfg, _, err := ParseFlags([]string{"prog.sarn"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StdlibRoot != "/opt/sarn/std" {
		t.Errorf("stdlib root fallback: %q", cfg.StdlibRoot)
	}
	if cfg.CacheDir != "/var/cache/sarn" {
		t.Errorf("cache dir fallback: %q", cfg.CacheDir)
	}
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("SARN_STDLIB_ROOT", "/opt/sarn/std")

	cfg, _, err := ParseFlags([]string{"-stdlib", "/explicit", "-backend", "native", "-O", "2", "prog.sarn"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StdlibRoot != "/explicit" {
		t.Errorf("flag must win over env: %q", cfg.StdlibRoot)
	}
	if cfg.Backend != BackendNative || cfg.OptLevel != 2 {
		t.Errorf("cfg: %+v", cfg)
	}
}
