package signature

import (
	"strings"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// line converts a tree-sitter row to a 1-based line number.
func line(p sitter.Point) int {
	return int(p.Row) + 1
}

// slice returns source[start:end] as a valid UTF-8 string.
func slice(source []byte, start, end uint) string {
	if end > uint(len(source)) {
		end = uint(len(source))
	}
	if start >= end {
		return ""
	}
	b := source[start:end]
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "�")
}

func nodeText(n *sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	return slice(source, n.StartByte(), n.EndByte())
}

// compact collapses every whitespace run to a single space.
func compact(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// lineEnd returns the offset of the newline ending the line that contains offset.
func lineEnd(source []byte, offset uint) uint {
	for offset < uint(len(source)) && source[offset] != '\n' {
		offset++
	}
	return offset
}

// cleanStringDocstring strips string prefixes, quote delimiters and common
// indentation from a Python string literal.
func cleanStringDocstring(s string) string {
	s = strings.TrimLeft(s, "rRuUbBfF")
	for _, delim := range []string{`"""`, `'''`, `"`, `'`} {
		if len(s) >= 2*len(delim) && strings.HasPrefix(s, delim) && strings.HasSuffix(s, delim) {
			s = s[len(delim) : len(s)-len(delim)]
			break
		}
	}
	return dedent(s)
}

// cleanCommentDocstring strips /** */ delimiters and leading asterisks.
func cleanCommentDocstring(s string) string {
	s = strings.TrimPrefix(s, "/**")
	s = strings.TrimSuffix(s, "*/")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		l = strings.TrimSpace(l)
		l = strings.TrimPrefix(l, "*")
		lines[i] = strings.TrimPrefix(l, " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// dedent removes the smallest indentation shared by the continuation lines.
// The first line is trimmed separately since it follows the opening quotes.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	if len(lines) == 1 {
		return strings.TrimSpace(s)
	}
	minIndent := -1
	for _, l := range lines[1:] {
		trimmed := strings.TrimLeft(l, " \t")
		if trimmed == "" {
			continue
		}
		if indent := len(l) - len(trimmed); minIndent < 0 || indent < minIndent {
			minIndent = indent
		}
	}
	lines[0] = strings.TrimSpace(lines[0])
	for i := 1; i < len(lines); i++ {
		if minIndent > 0 && len(lines[i]) >= minIndent {
			lines[i] = lines[i][minIndent:]
		} else {
			lines[i] = strings.TrimLeft(lines[i], " \t")
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Undecodable reports whether source is binary (a NUL byte near the start) or
// not valid UTF-8.
func Undecodable(source []byte) bool {
	probe := source
	if len(probe) > 8000 {
		probe = probe[:8000]
	}
	for _, b := range probe {
		if b == 0 {
			return true
		}
	}
	return !utf8.Valid(source)
}
