// Command sarnc compiles and runs sarn source files. This entry point
// is intentionally thin: flag parsing here covers only the driver's own
// configuration; subcommand UX lives outside the compiler core.
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/sarn-lang/sarn/internal/diag"
	"github.com/sarn-lang/sarn/internal/driver"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, rest, err := driver.ParseFlags(args)
	if err != nil {
		return 2
	}
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "usage: sarnc [flags] <file.sarn>")
		return 2
	}
	cfg.Color = isatty.IsTerminal(os.Stderr.Fd())
	path := rest[0]

	var bag *diag.Bag
	if cfg.Backend == driver.BackendNative || cfg.EmitIR {
		cfg.Backend = driver.BackendNative
		bag, err = driver.BuildNative(cfg, path)
	} else {
		bag, err = driver.RunVM(cfg, path, os.Stdout, os.Stdin)
	}

	if bag != nil && len(bag.All()) > 0 {
		formatter := diag.NewStderrFormatter(cfg.Color)
		for _, d := range bag.All() {
			formatter.Format(d)
		}
		formatter.Summary(bag)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if bag != nil && bag.HasErrors() {
		return 1
	}
	return 0
}
