package driver

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"github.com/juju/errors"

	"github.com/sarn-lang/sarn/internal/cache"
)

// assembleAndLink turns textual IR into an executable: llc to an object
// file (through the artifact cache), then the system linker against the
// native runtime. Every temporary is committed to its final path or
// removed on error, and each subprocess is scoped: output captured,
// exit code checked.
func assembleAndLink(cfg *Config, ir, output string) error {
	store, err := cache.Open(cfg.CacheDir)
	if err != nil {
		return errors.Trace(err)
	}
	defer store.Close()

	key := cache.Key([]byte(ir), cfg.TargetTriple, cfg.OptLevel)
	objBytes, hit, err := store.Get(key)
	if err != nil {
		return errors.Trace(err)
	}

	workDir := filepath.Join(cfg.CacheDir, "tmp")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return errors.Annotate(err, "creating temp directory")
	}
	stamp := uuid.NewString()
	llPath := filepath.Join(workDir, stamp+".ll")
	objPath := filepath.Join(workDir, stamp+".o")
	defer os.Remove(llPath)
	defer os.Remove(objPath)

	if hit {
		if err := os.WriteFile(objPath, objBytes, 0o644); err != nil {
			return errors.Annotate(err, "restoring cached object")
		}
	} else {
		if err := os.WriteFile(llPath, []byte(ir), 0o644); err != nil {
			return errors.Annotate(err, "writing IR")
		}
		llc, err := findTool("llc")
		if err != nil {
			return errors.Trace(err)
		}
		args := []string{"-filetype=obj", fmt.Sprintf("-O%d", cfg.OptLevel)}
		if cfg.TargetTriple != "" {
			args = append(args, "-mtriple="+cfg.TargetTriple)
		}
		if cfg.CPU != "" {
			args = append(args, "-mcpu="+cfg.CPU)
		}
		args = append(args, llPath, "-o", objPath)
		if err := runScoped(llc, args); err != nil {
			return errors.Annotate(err, "assembling object")
		}
		objBytes, err = os.ReadFile(objPath)
		if err != nil {
			return errors.Annotate(err, "reading object")
		}
		if err := store.Put(key, objBytes); err != nil {
			return errors.Trace(err)
		}
	}

	linker, err := findTool("cc")
	if err != nil {
		return errors.Trace(err)
	}
	linkArgs := []string{objPath, "-o", output}
	if cfg.RuntimeLib != "" {
		linkArgs = append(linkArgs, cfg.RuntimeLib)
	} else {
		linkArgs = append(linkArgs, "-lsarnrt")
	}
	if err := runScoped(linker, linkArgs); err != nil {
		os.Remove(output)
		return errors.Annotate(err, "linking")
	}

	if size, err := store.Size(); err == nil {
		logger.Debugf("artifact cache holds %s", humanize.Bytes(size))
	}
	return nil
}

// runScoped executes one subprocess with captured output and a short
// backoff retry for transient failures (an editor or AV scanner holding
// the output file, a racing temp cleaner).
func runScoped(tool string, args []string) error {
	b := &backoff.Backoff{Min: 50 * time.Millisecond, Max: time.Second, Factor: 2}
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			time.Sleep(b.Duration())
		}
		var stdout, stderr bytes.Buffer
		cmd := exec.Command(tool, args...)
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		err := cmd.Run()
		if err == nil {
			return nil
		}
		lastErr = errors.Annotatef(err, "%s failed: %s", tool, stderr.String())
		logger.Warningf("%s attempt %d failed: %v", tool, attempt+1, err)
	}
	return lastErr
}

// findTool locates a toolchain binary, accepting version-suffixed llc
// installs the way distro packages ship them.
func findTool(name string) (string, error) {
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}
	if name == "llc" {
		for _, suffix := range []string{"-18", "-17", "-16", "-15", "-14"} {
			if path, err := exec.LookPath(name + suffix); err == nil {
				return path, nil
			}
		}
	}
	return "", errors.Errorf("%s not found in PATH", name)
}

// writeFileAtomic commits content to path through a uniquely named
// sibling so a failed write never leaves a truncated artifact.
func writeFileAtomic(path string, content []byte) error {
	tmp := path + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return errors.Trace(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Trace(err)
	}
	return nil
}
