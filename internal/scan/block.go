// Package scan locates the textual span of an indented code block without
// parsing the target language. Indentation depth stands in for block
// structure, the same rule Python itself uses for scope, so no parser for
// the patched source is needed at patch time.
package scan

import "strings"

const docstringDelimiter = `"""`

// Span is a half-open line range [Start, End) within a split file.
type Span struct {
	Start int
	End   int
}

// Len returns the number of lines covered by the span.
func (s Span) Len() int {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

// SplitLines splits file text on newlines. A trailing newline yields a
// final empty element so that a later Join reproduces the original text.
func SplitLines(text string) []string {
	return strings.Split(text, "\n")
}

// JoinLines is the inverse of SplitLines.
func JoinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

// IndentWidth counts the leading whitespace characters of a line.
func IndentWidth(line string) int {
	for i, r := range line {
		if r != ' ' && r != '\t' {
			return i
		}
	}
	return len(line)
}

// IndentPrefix returns the literal leading whitespace of a line.
func IndentPrefix(line string) string {
	return line[:IndentWidth(line)]
}

// FindBlock locates the full span of the block opened by the first line
// containing openingMarker. The marker line's indent width becomes the
// reference depth; the block consumes every following line until one is
// non-blank, indented at or above the reference depth, and is not a
// docstring delimiter line. If the file ends first, the block runs to EOF.
//
// Docstring detection is a literal prefix check on the trimmed line, not
// balanced-quote tracking, so a malformed or deeply nested docstring can
// still produce a wrong boundary. Known limitation.
func FindBlock(lines []string, openingMarker string) (Span, bool) {
	start := -1
	for i, line := range lines {
		if strings.Contains(line, openingMarker) {
			start = i
			break
		}
	}
	if start < 0 {
		return Span{}, false
	}
	depth := IndentWidth(lines[start])
	for i := start + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if IndentWidth(lines[i]) <= depth && !strings.HasPrefix(trimmed, docstringDelimiter) {
			return Span{Start: start, End: i}, true
		}
	}
	return Span{Start: start, End: len(lines)}, true
}

// FindBlockText is the text-level convenience form of FindBlock.
func FindBlockText(text, openingMarker string) (Span, bool) {
	return FindBlock(SplitLines(text), openingMarker)
}
