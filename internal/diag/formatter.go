package diag

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// Formatter renders diagnostics in a Rust-style format with source code
// snippets underlined beneath the offending span.
type Formatter struct {
	out         io.Writer
	sourceCache map[string]string
	color       bool
}

// NewFormatter creates a formatter writing to w. color enables ANSI
// severity coloring; cmd/sarnc decides this with mattn/go-isatty
// before constructing the formatter.
func NewFormatter(w io.Writer, color bool) *Formatter {
	return &Formatter{out: w, sourceCache: make(map[string]string), color: color}
}

// NewStderrFormatter is a convenience constructor for diagnostics printed
// directly to the process's stderr.
func NewStderrFormatter(color bool) *Formatter {
	return NewFormatter(os.Stderr, color)
}

// LoadSource loads and caches source text for a file so repeated
// diagnostics against the same file don't re-read it from disk.
func (f *Formatter) LoadSource(filename string) (string, error) {
	if filename == "" {
		return "", nil
	}
	if src, ok := f.sourceCache[filename]; ok {
		return src, nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	src := string(data)
	f.sourceCache[filename] = src
	return src, nil
}

// Format renders a single diagnostic.
func (f *Formatter) Format(d Diagnostic) {
	spans := f.collectSpans(d)
	if len(spans) == 0 {
		f.formatSimple(d)
		return
	}

	spansByFile := make(map[string][]LabeledSpan)
	for _, span := range spans {
		filename := span.Span.Filename
		if filename == "" {
			filename = "<unknown>"
		}
		spansByFile[filename] = append(spansByFile[filename], span)
	}

	f.printHeader(d)

	for filename, fileSpans := range spansByFile {
		src, err := f.LoadSource(filename)
		if err != nil {
			f.formatSimple(d)
			return
		}
		f.printFileSpans(filename, src, fileSpans)
	}

	f.printHelp(d)
}

// Summary renders a one-line "N errors, M warnings" footer; with no
// errors it lists only the warnings, and with neither it prints nothing.
func (f *Formatter) Summary(b *Bag) {
	errs, warns, _ := b.Counts()
	switch {
	case errs == 0 && warns == 0:
		return
	case errs > 0:
		fmt.Fprintf(f.out, "%s, %s\n", pluralize(errs, "error"), pluralize(warns, "warning"))
	default:
		fmt.Fprintf(f.out, "%s\n", pluralize(warns, "warning"))
	}
}

// ArtifactSummary reports the size of a generated artifact in the same
// humanized form used for cache reporting (internal/driver).
func (f *Formatter) ArtifactSummary(path string, bytes uint64) {
	fmt.Fprintf(f.out, "wrote %s (%s)\n", path, humanize.Bytes(bytes))
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func (f *Formatter) collectSpans(d Diagnostic) []LabeledSpan {
	if len(d.LabeledSpans) > 0 {
		return d.LabeledSpans
	}
	if d.Span.IsValid() {
		return []LabeledSpan{{Span: d.Span, Style: "primary"}}
	}
	return nil
}

func (f *Formatter) printHeader(d Diagnostic) {
	severity := string(d.Severity)
	if severity == "" {
		severity = "error"
	}
	if f.color {
		severity = colorFor(d.Severity) + severity + colorReset
	}
	if d.Code != "" {
		fmt.Fprintf(f.out, "%s[%s]: %s\n", severity, d.Code, d.Message)
	} else {
		fmt.Fprintf(f.out, "%s: %s\n", severity, d.Message)
	}
}

const colorReset = "\x1b[0m"

func colorFor(sev Severity) string {
	switch sev {
	case SeverityError:
		return "\x1b[31m"
	case SeverityWarning:
		return "\x1b[33m"
	default:
		return "\x1b[36m"
	}
}

func (f *Formatter) printFileSpans(filename string, src string, spans []LabeledSpan) {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Span.Line != spans[j].Span.Line {
			return spans[i].Span.Line < spans[j].Span.Line
		}
		return spans[i].Span.Column < spans[j].Span.Column
	})

	spansByLine := make(map[int][]LabeledSpan)
	lines := strings.Split(src, "\n")
	maxLine := len(lines)

	for _, span := range spans {
		line := span.Span.Line
		if line > 0 && line <= maxLine {
			spansByLine[line] = append(spansByLine[line], span)
		}
	}

	lineNumbers := make([]int, 0, len(spansByLine))
	for line := range spansByLine {
		lineNumbers = append(lineNumbers, line)
	}
	sort.Ints(lineNumbers)
	if len(lineNumbers) == 0 {
		return
	}

	startLine := lineNumbers[0]
	endLine := lineNumbers[len(lineNumbers)-1]
	contextStart := maxInt(1, startLine-2)
	contextEnd := minInt(maxLine, endLine+2)
	lineNumWidth := len(fmt.Sprintf("%d", contextEnd))

	fmt.Fprintf(f.out, "  --> %s\n", filename)
	fmt.Fprintf(f.out, "   %s |\n", strings.Repeat(" ", lineNumWidth))

	hasPrimary := make(map[int]bool)
	for _, span := range spans {
		if span.Style == "primary" {
			hasPrimary[span.Span.Line] = true
		}
	}

	for lineNum := contextStart; lineNum <= contextEnd; lineNum++ {
		lineSpans := spansByLine[lineNum]
		lineContent := ""
		if lineNum <= len(lines) {
			lineContent = lines[lineNum-1]
		}
		lineNumStr := fmt.Sprintf("%*d", lineNumWidth, lineNum)
		fmt.Fprintf(f.out, " %s | %s\n", lineNumStr, lineContent)
		if len(lineSpans) > 0 {
			f.printUnderlines(lineNumWidth, lineContent, lineSpans)
		}
	}

	fmt.Fprintf(f.out, "   %s |\n", strings.Repeat(" ", lineNumWidth))
}

func (f *Formatter) printUnderlines(lineNumWidth int, lineContent string, spans []LabeledSpan) {
	underline := make([]byte, len(lineContent))
	for i := range underline {
		underline[i] = ' '
	}

	sort.Slice(spans, func(i, j int) bool {
		return spans[i].Span.Column < spans[j].Span.Column
	})

	for _, span := range spans {
		if span.Style == "primary" {
			start := maxInt(0, span.Span.Column-1)
			end := minInt(len(underline), span.Span.Column-1+maxInt(1, span.Span.End-span.Span.Start))
			for i := start; i < end && i < len(underline); i++ {
				underline[i] = '^'
			}
		}
	}
	for _, span := range spans {
		if span.Style == "secondary" {
			start := maxInt(0, span.Span.Column-1)
			end := minInt(len(underline), span.Span.Column-1+maxInt(1, span.Span.End-span.Span.Start))
			for i := start; i < end && i < len(underline); i++ {
				if underline[i] == ' ' {
					underline[i] = '~'
				}
			}
		}
	}

	rightmost := -1
	for i := len(underline) - 1; i >= 0; i-- {
		if underline[i] != ' ' {
			rightmost = i
			break
		}
	}
	if rightmost == -1 {
		return
	}

	fmt.Fprintf(f.out, "   %s | %s", strings.Repeat(" ", lineNumWidth), string(underline))

	primaryLabel := ""
	var secondaryLabels []string
	for _, span := range spans {
		if span.Label == "" {
			continue
		}
		if span.Style == "primary" {
			primaryLabel = span.Label
		} else {
			secondaryLabels = append(secondaryLabels, span.Label)
		}
	}
	if primaryLabel != "" {
		fmt.Fprintf(f.out, " %s", primaryLabel)
	}
	fmt.Fprintln(f.out)

	for _, label := range secondaryLabels {
		fmt.Fprintf(f.out, "   %s |", strings.Repeat(" ", lineNumWidth))
		labelPos := maxInt(len(lineContent)+1, rightmost+2)
		if labelPos > len(lineContent) {
			fmt.Fprint(f.out, strings.Repeat(" ", labelPos-len(lineContent)))
		}
		fmt.Fprintf(f.out, " %s\n", label)
	}
}

func (f *Formatter) printHelp(d Diagnostic) {
	for _, note := range d.Notes {
		fmt.Fprintln(f.out)
		if note.Span.IsValid() {
			fmt.Fprintf(f.out, "  = note: %s\n", note.Message)
			fmt.Fprintf(f.out, "           at %s\n", note.Span.String())
		} else {
			fmt.Fprintf(f.out, "  = note: %s\n", note.Message)
		}
	}
	if d.Help != "" {
		fmt.Fprintln(f.out)
		fmt.Fprintf(f.out, "help: %s\n", d.Help)
	}
}

func (f *Formatter) formatSimple(d Diagnostic) {
	f.printHeader(d)
	if d.Span.IsValid() {
		fmt.Fprintf(f.out, "  --> %s\n", d.Span.String())
	}
	f.printHelp(d)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
