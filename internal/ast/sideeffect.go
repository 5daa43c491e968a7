package ast

import "strings"

// HasPossibleSideEffect implements the deliberately conservative heuristic
// from spec.md §4.2: if the initializer text contains a call-shaped
// expression (an identifier or member access followed, optionally after
// spaces, by a balanced open parenthesis), inline refuses to proceed. It
// will produce false positives on side-effect-free call-shaped code such
// as a constructor or a cast (`Some(x)`, `int(x)`); that is intentional
// and must not be silently weakened (spec.md §9).
func HasPossibleSideEffect(initializer string) bool {
	isIdentByte := func(b byte) bool {
		return b == '_' || b == '.' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
	}

	for i := 0; i < len(initializer); i++ {
		if initializer[i] != '(' {
			continue
		}
		j := i - 1
		for j >= 0 && initializer[j] == ' ' {
			j--
		}
		if j < 0 || !isIdentByte(initializer[j]) {
			continue
		}
		// Walk left to confirm there is an identifier-shaped token, not a
		// bare keyword like "if"/"return" immediately preceding a group.
		start := j
		for start >= 0 && isIdentByte(initializer[start]) {
			start--
		}
		token := initializer[start+1 : j+1]
		if isKeyword(token) {
			continue
		}
		if isBalanced(initializer[i:]) {
			return true
		}
	}
	return false
}

func isKeyword(token string) bool {
	switch token {
	case "if", "for", "while", "switch", "return", "catch", "sizeof", "function":
		return true
	default:
		return false
	}
}

// isBalanced reports whether the parenthesized group opening at s[0]=='('
// is balanced within s.
func isBalanced(s string) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

// needsParens reports whether wrapping initializer in parentheses is
// required before substituting it into a reference site: true when it
// contains an infix operator or a whitespace-separated token at its top
// level (spec.md §4.7 step 5).
func needsParens(initializer string) bool {
	trimmed := strings.TrimSpace(initializer)
	if trimmed == "" {
		return false
	}
	if trimmed[0] == '(' {
		// Already wrapped only if the opening parenthesis closes at the
		// very end; "(a)+(b)" still has a top-level operator.
		open := 0
		for i := 0; i < len(trimmed); i++ {
			if trimmed[i] == '(' {
				open++
			} else if trimmed[i] == ')' {
				open--
				if open == 0 {
					if i == len(trimmed)-1 {
						return false
					}
					break
				}
			}
		}
	}
	depth := 0
	for i, r := range trimmed {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		}
		if depth != 0 {
			continue
		}
		if r == ' ' || r == '\t' {
			return true
		}
		if strings.ContainsRune("+-*/%<>=&|^!", r) && i > 0 {
			return true
		}
	}
	return false
}

// WrapIfNeeded parenthesizes initializer when needsParens says it must be
// to preserve precedence at the substitution site.
func WrapIfNeeded(initializer string) string {
	if needsParens(initializer) {
		return "(" + initializer + ")"
	}
	return initializer
}
