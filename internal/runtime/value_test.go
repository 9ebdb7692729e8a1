package runtime_test

import (
	"testing"

	"github.com/sarn-lang/sarn/internal/runtime"
)

func TestFormatTopLevelStringIsRaw(t *testing.T) {
	if got := runtime.Format(runtime.String("ok")); got != "ok" {
		t.Errorf("top-level string printed %q", got)
	}
	list := runtime.NewList([]runtime.Value{runtime.String("a"), runtime.Int(1)})
	if got := runtime.Format(list); got != `["a", 1]` {
		t.Errorf("nested strings quote: %q", got)
	}
}

func TestFormatScalars(t *testing.T) {
	cases := map[string]struct {
		v    runtime.Value
		want string
	}{
		"int":   {runtime.Int(42), "42"},
		"float": {runtime.Float(2), "2.0"},
		"bool":  {runtime.Bool(true), "true"},
		"nil":   {runtime.NilValue, "nil"},
	}
	for name, tc := range cases {
		if got := runtime.Format(tc.v); got != tc.want {
			t.Errorf("%s printed %q, want %q", name, got, tc.want)
		}
	}
}

func TestFormatEnum(t *testing.T) {
	plain := runtime.NewEnum("Color", "Red", 0, nil)
	if got := runtime.Format(plain); got != "Color.Red" {
		t.Errorf("unit variant printed %q", got)
	}
	payload := runtime.NewEnum("E", "NotFound", 0, []runtime.Value{runtime.String("/x")})
	if got := runtime.Format(payload); got != `E.NotFound("/x")` {
		t.Errorf("payload variant printed %q", got)
	}
}

func TestRetainReleaseCountsReferences(t *testing.T) {
	inner := runtime.NewList([]runtime.Value{runtime.Int(1)})
	outer := runtime.NewList([]runtime.Value{inner})

	runtime.Retain(inner) // outer's reference
	runtime.Release(outer)

	// The outer list released its reference; ours keeps inner alive.
	if inner.Elems == nil {
		t.Error("inner list freed while still referenced")
	}
	runtime.Release(inner)
}

func TestEqualIsStructural(t *testing.T) {
	a := runtime.NewList([]runtime.Value{runtime.Int(1), runtime.Int(2)})
	b := runtime.NewList([]runtime.Value{runtime.Int(1), runtime.Int(2)})
	if !runtime.Equal(a, b) {
		t.Error("equal lists must compare equal")
	}
	c := runtime.NewList([]runtime.Value{runtime.Int(1)})
	if runtime.Equal(a, c) {
		t.Error("different lengths must differ")
	}
	if runtime.Equal(runtime.Int(1), runtime.Float(1)) {
		t.Error("Int and Float never compare equal")
	}

	e1 := runtime.NewEnum("E", "A", 0, nil)
	e2 := runtime.NewEnum("E", "A", 0, nil)
	e3 := runtime.NewEnum("E", "B", 1, nil)
	if !runtime.Equal(e1, e2) || runtime.Equal(e1, e3) {
		t.Error("enum equality is tag-then-payload")
	}
}

func TestDictPreservesInsertionOrder(t *testing.T) {
	d := runtime.NewDict()
	d.Set(runtime.String("b"), runtime.Int(2))
	d.Set(runtime.String("a"), runtime.Int(1))
	d.Set(runtime.String("b"), runtime.Int(3)) // update, not reorder

	if got := runtime.Format(d); got != `{"b": 3, "a": 1}` {
		t.Errorf("dict printed %q", got)
	}
}
