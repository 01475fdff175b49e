package binding

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Assignment shape matching is a narrow text step over variable signature
// text only. Call sites never go through it.
var (
	declModifiers = regexp.MustCompile(`^(?:(?:export|default|declare|const|let|var|static|readonly|private|public|protected|override)\s+)+`)
	targetName    = regexp.MustCompile(`^[A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)*$`)
	constructor   = regexp.MustCompile(`^(?:new\s+)?([A-Z][A-Za-z0-9_]*)\s*(?:<[^()]*>)?\s*\(`)
)

type instantiation struct {
	target string
	class  string
}

// parseAssignment returns every `target = ClassName(...)` pair in an
// assignment statement. Chains (a = b = C()) bind every target; tuple
// targets pair positionally with a tuple of values.
func parseAssignment(text string) []instantiation {
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, ";")
	text = declModifiers.ReplaceAllString(text, "")

	parts := splitTopLevel(text, '=')
	if len(parts) < 2 {
		return nil
	}
	values := splitTopLevel(unwrap(parts[len(parts)-1]), ',')

	var out []instantiation
	for _, lhs := range parts[:len(parts)-1] {
		targets := splitTopLevel(unwrap(lhs), ',')
		if len(values) == 1 {
			// commas inside an annotation (m: Map<K, V>) are not tuple separators
			targets = []string{lhs}
		}
		if len(targets) != len(values) {
			continue
		}
		for i, t := range targets {
			target := cleanTarget(t)
			if target == "" {
				continue
			}
			m := constructor.FindStringSubmatch(strings.TrimSpace(values[i]))
			if m == nil {
				continue
			}
			out = append(out, instantiation{target: target, class: m[1]})
		}
	}
	return out
}

// cleanTarget strips a type annotation and splat marker and returns the
// target if it is a plain or dotted name.
func cleanTarget(t string) string {
	if i := strings.IndexByte(t, ':'); i >= 0 {
		t = t[:i]
	}
	t = strings.TrimSpace(t)
	t = strings.TrimLeft(t, "*")
	t = strings.TrimSuffix(t, "!")
	if !targetName.MatchString(t) {
		return ""
	}
	return t
}

// unwrap removes one pair of enclosing parentheses or brackets.
func unwrap(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '(' && s[len(s)-1] == ')') || (s[0] == '[' && s[len(s)-1] == ']') {
			inner := s[1 : len(s)-1]
			if balanced(inner) {
				return strings.TrimSpace(inner)
			}
		}
	}
	return s
}

func balanced(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// splitTopLevel splits s on sep outside brackets and string literals. When
// sep is '=', comparison and arrow operators (==, !=, <=, >=, =>) and
// augmented assignments (+=) are not split points.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case sep:
			if depth != 0 {
				continue
			}
			if sep == '=' && !isAssignOp(s, i) {
				continue
			}
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func isAssignOp(s string, i int) bool {
	if i+1 < len(s) && (s[i+1] == '=' || s[i+1] == '>') {
		return false
	}
	if i > 0 && strings.IndexByte("=!<>+-*/%&|^:~@", s[i-1]) >= 0 {
		return false
	}
	return true
}

// isClassName reports whether a symbol looks like a class (capitalized).
func isClassName(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return r != utf8.RuneError && unicode.IsUpper(r)
}

// isQualified reports whether target is an attribute (self.x) rather than a plain name.
func isQualified(target string) bool {
	return strings.Contains(target, ".")
}
