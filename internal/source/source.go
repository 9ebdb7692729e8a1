// Package source implements the compiler's source map: the translation
// between a byte offset into a registered file and a (file, line, column)
// triple.
package source

import (
	"fmt"
	"strings"
)

// FileID identifies a registered source file within one compilation unit.
type FileID int

// InvalidFileID marks a span with no associated file (synthetic nodes).
const InvalidFileID FileID = -1

// File holds the raw bytes of a registered source file plus the byte
// offsets at which each line begins, so byte->line/column lookups are
// O(log n) instead of O(n) per query.
type File struct {
	ID         FileID
	Name       string
	Text       string
	lineStarts []int
}

func newFile(id FileID, name, text string) *File {
	f := &File{ID: id, Name: name, Text: text}
	f.lineStarts = []int{0}
	for i, r := range text {
		if r == '\n' {
			f.lineStarts = append(f.lineStarts, i+1)
		}
	}
	return f
}

// Position resolves a byte offset to a 1-based (line, column) pair.
// Column counts runes, not bytes, so multi-byte code points advance the
// column by one.
func (f *File) Position(offset int) (line, col int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(f.Text) {
		offset = len(f.Text)
	}
	// Binary search for the line containing offset.
	lo, hi := 0, len(f.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if f.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	line = lo + 1
	lineStart := f.lineStarts[lo]
	col = 1 + len([]rune(f.Text[lineStart:offset]))
	return line, col
}

// Line returns the text of a single 1-based line number, without its
// trailing newline.
func (f *File) Line(n int) string {
	if n < 1 || n > len(f.lineStarts) {
		return ""
	}
	start := f.lineStarts[n-1]
	end := len(f.Text)
	if n < len(f.lineStarts) {
		end = f.lineStarts[n] - 1
	}
	if end < start {
		end = start
	}
	return strings.TrimSuffix(f.Text[start:end], "\r")
}

// Span is a half-open byte range within a registered file. It is the
// span carried by every token and AST node.
type Span struct {
	File  FileID
	Start int
	End   int
}

// Union returns the smallest span containing both a and b. Per the
// tree invariant, a parent node's span must contain
// every child's span; parsers build parent spans by unioning children.
func Union(a, b Span) Span {
	if a.File != b.File {
		return a
	}
	s := a.Start
	if b.Start < s {
		s = b.Start
	}
	e := a.End
	if b.End > e {
		e = b.End
	}
	return Span{File: a.File, Start: s, End: e}
}

// Map owns the registered files for one compilation unit. It is written
// once per file (at load time) and read-only thereafter, matching the
// single-writer ownership the pipeline model requires.
type Map struct {
	files []*File
}

// New creates an empty source map.
func New() *Map {
	return &Map{}
}

// AddFile registers source text under name and returns its FileID. Names
// need not be unique (synthetic units created for REPL-style evaluation
// may reuse a placeholder name); the returned FileID is what callers must
// key spans on.
func (m *Map) AddFile(name, text string) FileID {
	id := FileID(len(m.files))
	m.files = append(m.files, newFile(id, name, text))
	return id
}

// File returns the registered file for id, or nil if id is out of range.
func (m *Map) File(id FileID) *File {
	if int(id) < 0 || int(id) >= len(m.files) {
		return nil
	}
	return m.files[id]
}

// Resolve renders a span as "file:line:column:endcolumn", the format
// diagnostics carry.
func (m *Map) Resolve(s Span) string {
	f := m.File(s.File)
	if f == nil {
		return "<unknown>"
	}
	startLine, startCol := f.Position(s.Start)
	_, endCol := f.Position(s.End)
	return fmt.Sprintf("%s:%d:%d:%d", f.Name, startLine, startCol, endCol)
}
