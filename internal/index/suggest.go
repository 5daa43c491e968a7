package index

import (
	"strings"

	edlib "github.com/hbollon/go-edlib"
)

// suggestNearestIdentifier looks at the local symbol names recorded for doc
// and, on a SymbolAtPosition miss, returns the one with the smallest edit
// distance to whatever token sits at (line0, col0) on disk, or "" when
// even that one's Levenshtein similarity is below 0.6. This never
// changes refactoring behavior; it only improves the SymbolNotFound
// message for agent consumers (SPEC_FULL.md domain stack).
func suggestNearestIdentifier(path string, doc *docRecord, line0, col0 int) string {
	if doc == nil || len(doc.localSymbols) == 0 {
		return ""
	}
	line, ok := readLine(path, line0)
	if !ok || col0 < 0 || col0 > len(line) {
		return ""
	}
	token := tokenAt(line, col0)
	if token == "" {
		return ""
	}

	best := ""
	var bestScore float32 = -1
	for _, sym := range doc.localSymbols {
		name := sym.ID
		score, err := edlib.StringsSimilarity(token, name, edlib.Levenshtein)
		if err != nil {
			continue
		}
		if score > bestScore {
			bestScore = score
			best = name
		}
	}
	if bestScore < 0.6 {
		return ""
	}
	return best
}

// tokenAt extracts the identifier-shaped run of characters touching col in
// line, expanding left and right from col.
func tokenAt(line string, col int) string {
	isIdent := func(r rune) bool {
		return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
	}
	if col >= len(line) {
		col = len(line) - 1
	}
	if col < 0 {
		return ""
	}
	start, end := col, col
	for start > 0 && isIdent(rune(line[start-1])) {
		start--
	}
	for end < len(line) && isIdent(rune(line[end])) {
		end++
	}
	return strings.TrimSpace(line[start:end])
}
