package source_test

import (
	"testing"

	"github.com/sarn-lang/sarn/internal/source"
)

func TestPositionIsRuneColumned(t *testing.T) {
	m := source.New()
	id := m.AddFile("a.sarn", "héllo\nworld\n")
	f := m.File(id)

	line, col := f.Position(0)
	if line != 1 || col != 1 {
		t.Errorf("offset 0 at %d:%d", line, col)
	}

	// "é" is two bytes but one column.
	line, col = f.Position(len("hél"))
	if line != 1 || col != 4 {
		t.Errorf("offset after hél at %d:%d, want 1:4", line, col)
	}

	line, col = f.Position(len("héllo\nwo"))
	if line != 2 || col != 3 {
		t.Errorf("second line offset at %d:%d, want 2:3", line, col)
	}
}

func TestLine(t *testing.T) {
	m := source.New()
	id := m.AddFile("a.sarn", "one\r\ntwo\nthree")
	f := m.File(id)

	if got := f.Line(1); got != "one" {
		t.Errorf("line 1 = %q", got)
	}
	if got := f.Line(2); got != "two" {
		t.Errorf("line 2 = %q", got)
	}
	if got := f.Line(3); got != "three" {
		t.Errorf("line 3 = %q", got)
	}
	if got := f.Line(9); got != "" {
		t.Errorf("out-of-range line = %q", got)
	}
}

func TestUnionContainsBoth(t *testing.T) {
	a := source.Span{File: 0, Start: 4, End: 9}
	b := source.Span{File: 0, Start: 1, End: 6}
	u := source.Union(a, b)
	if u.Start != 1 || u.End != 9 {
		t.Errorf("union = %+v", u)
	}
}

func TestResolveFormat(t *testing.T) {
	m := source.New()
	id := m.AddFile("a.sarn", "var x = 1\n")
	got := m.Resolve(source.Span{File: id, Start: 4, End: 5})
	if got != "a.sarn:1:5:6" {
		t.Errorf("resolved %q", got)
	}
}
