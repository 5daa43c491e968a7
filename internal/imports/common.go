package imports

import "strings"

// lineEnding detects the file's dominant line terminator so inserted
// imports match the existing separator style (spec.md §4.3 "Convention").
func lineEnding(src string) string {
	if strings.Contains(src, "\r\n") {
		return "\r\n"
	}
	return "\n"
}

// topInsertionPoint returns the byte offset immediately after a leading
// shebang or block/line comment, or 0 if there is none.
func topInsertionPoint(src string) int {
	i := 0
	if strings.HasPrefix(src, "#!") {
		if nl := strings.IndexByte(src, '\n'); nl >= 0 {
			i = nl + 1
		} else {
			return len(src)
		}
	}
	rest := strings.TrimLeft(src[i:], " \t\r\n")
	skipped := len(src[i:]) - len(rest)
	if strings.HasPrefix(rest, "//") {
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			return i + skipped + nl + 1
		}
	}
	if strings.HasPrefix(rest, "/*") {
		if end := strings.Index(rest, "*/"); end >= 0 {
			return i + skipped + end + 2
		}
	}
	return i
}

func indexOf(names []string, target string) int {
	for i, n := range names {
		if n == target {
			return i
		}
	}
	return -1
}

// replaceWholeWord replaces the first standalone occurrence of old with
// next within s, leaving substrings like "username" untouched when old is
// "user".
func replaceWholeWord(s, old, next string) string {
	for i := 0; i+len(old) <= len(s); i++ {
		if s[i:i+len(old)] != old {
			continue
		}
		if i > 0 && isWordByte(s[i-1]) {
			continue
		}
		end := i + len(old)
		if end < len(s) && isWordByte(s[end]) {
			continue
		}
		return s[:i] + next + s[end:]
	}
	return s
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// removeWholeLine deletes the statement spanning [start,end) from src,
// along with its line terminator, so blank lines around it collapse
// cleanly rather than leaving an empty line behind.
func removeWholeLine(src string, start, end int) string {
	lineStart := start
	for lineStart > 0 && src[lineStart-1] != '\n' {
		lineStart--
	}
	lineEnd := end
	for lineEnd < len(src) && src[lineEnd] != '\n' {
		lineEnd++
	}
	if lineEnd < len(src) {
		lineEnd++
	}
	return src[:lineStart] + src[lineEnd:]
}

// removeNamedImport removes one entry from a `{ a, b, c }` named-import
// list, keeping remaining entries and their separators intact.
func removeNamedImport(raw, name string) string {
	open := strings.Index(raw, "{")
	closeIdx := strings.Index(raw, "}")
	if open < 0 || closeIdx < open {
		return raw
	}
	parts := strings.Split(raw[open+1:closeIdx], ",")
	var kept []string
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		base := trimmed
		if as := strings.Index(trimmed, " as "); as >= 0 {
			base = strings.TrimSpace(trimmed[:as])
		}
		if base == name {
			continue
		}
		kept = append(kept, trimmed)
	}
	return raw[:open+1] + " " + strings.Join(kept, ", ") + " " + raw[closeIdx:]
}
