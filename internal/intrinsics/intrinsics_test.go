package intrinsics_test

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/sarn-lang/sarn/internal/intrinsics"
	"github.com/sarn-lang/sarn/internal/runtime"
)

func env(out *bytes.Buffer, in string) *intrinsics.Env {
	return &intrinsics.Env{Stdout: out, Stdin: bufio.NewReader(strings.NewReader(in))}
}

// The table is the single source of truth: kinds are dense indices and
// every entry resolves by both name and kind to itself.
func TestTableKindsAreDenseIndices(t *testing.T) {
	for i, entry := range intrinsics.Table {
		if entry.Kind != i {
			t.Errorf("entry %s has kind %d at index %d", entry.Name, entry.Kind, i)
		}
		byName, ok := intrinsics.Lookup(entry.Name)
		if !ok || byName.Kind != entry.Kind {
			t.Errorf("Lookup(%s) disagrees with the table", entry.Name)
		}
		byKind, ok := intrinsics.ByKind(entry.Kind)
		if !ok || byKind.Name != entry.Name {
			t.Errorf("ByKind(%d) disagrees with the table", entry.Kind)
		}
		if entry.Symbol == "" {
			t.Errorf("entry %s has no native symbol", entry.Name)
		}
		if entry.Impl == nil {
			t.Errorf("entry %s has no VM implementation", entry.Name)
		}
	}
}

func TestPrintAppendsNewline(t *testing.T) {
	var out bytes.Buffer
	entry, _ := intrinsics.Lookup("print")
	if _, err := entry.Impl(env(&out, ""), []runtime.Value{runtime.Int(7)}); err != nil {
		t.Fatal(err)
	}
	if out.String() != "7\n" {
		t.Errorf("print wrote %q", out.String())
	}
}

func TestLenDispatchesByValueKind(t *testing.T) {
	entry, _ := intrinsics.Lookup("len")
	var out bytes.Buffer

	got, err := entry.Impl(env(&out, ""), []runtime.Value{runtime.String("héllo")})
	if err != nil || got.(runtime.Int) != 5 {
		t.Errorf("len of a string is char-counted: %v, %v", got, err)
	}

	list := runtime.NewList([]runtime.Value{runtime.Int(1), runtime.Int(2)})
	got, err = entry.Impl(env(&out, ""), []runtime.Value{list})
	if err != nil || got.(runtime.Int) != 2 {
		t.Errorf("len of list: %v, %v", got, err)
	}

	if _, err = entry.Impl(env(&out, ""), []runtime.Value{runtime.Int(3)}); err == nil {
		t.Error("len of Int must fail")
	}
}

func TestPushAppends(t *testing.T) {
	entry, _ := intrinsics.Lookup("push")
	list := runtime.NewList(nil)
	var out bytes.Buffer
	if _, err := entry.Impl(env(&out, ""), []runtime.Value{list, runtime.Int(9)}); err != nil {
		t.Fatal(err)
	}
	if len(list.Elems) != 1 || list.Elems[0].(runtime.Int) != 9 {
		t.Errorf("push result: %v", list.Elems)
	}
}

func TestAssertFailsOnFalse(t *testing.T) {
	entry, _ := intrinsics.Lookup("assert")
	var out bytes.Buffer
	if _, err := entry.Impl(env(&out, ""), []runtime.Value{runtime.Bool(true)}); err != nil {
		t.Errorf("assert(true): %v", err)
	}
	if _, err := entry.Impl(env(&out, ""), []runtime.Value{runtime.Bool(false)}); err == nil {
		t.Error("assert(false) must fail")
	}
}

func TestReadLineStripsNewline(t *testing.T) {
	entry, _ := intrinsics.Lookup("read_line")
	var out bytes.Buffer
	got, err := entry.Impl(env(&out, "hello\nrest"), nil)
	if err != nil || got.(runtime.String) != "hello" {
		t.Errorf("read_line: %v, %v", got, err)
	}
}
