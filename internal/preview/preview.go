// Package preview renders a set of staged changes into the structured,
// human- and machine-readable report described in spec.md §4.5. Preview is
// a pure function of staged changes and on-disk state; it never writes to
// disk.
package preview

import (
	"strings"

	"github.com/standardbeagle/lci-refactor/internal/types"
)

// CodeChange is one textual edit inside a file.
type CodeChange struct {
	Line        int
	Original    string
	Replacement string
	Kind        types.ChangeKind
}

// ImportChange is one import-statement-level edit inside a file.
type ImportChange struct {
	Module string
	Kind   types.ChangeKind
}

// FileChange groups every edit made to one file.
type FileChange struct {
	Path    string
	Changes []CodeChange
	Imports []ImportChange
}

// Summary is the preview's top-level roll-up.
type Summary struct {
	TotalFiles     int
	TotalChanges   int
	ImportsAdded   int
	ImportsRemoved int
	Risk           types.RiskTier
}

// Preview is the complete structured report for one transaction.
type Preview struct {
	Files   []FileChange
	Summary Summary
}

// Input is one staged file: its on-disk content before the change, its
// staged content after, and the kind tag the refactoring that produced it
// wants attached to each derived code change.
type Input struct {
	Path       string
	Before     string
	After      string
	Kind       types.ChangeKind
	Imports    []ImportChange
}

// CriticalGlobs configures the risk-tier rule's "critical file" set
// (spec.md §4.5); callers pass config.DefaultCriticalGlobs or an override.
func Render(inputs []Input, criticalGlobs []string) Preview {
	var p Preview
	for _, in := range inputs {
		fc := FileChange{
			Path:    in.Path,
			Changes: diffLines(in.Before, in.After, in.Kind),
			Imports: in.Imports,
		}
		p.Files = append(p.Files, fc)
	}
	p.Summary = summarize(p.Files, criticalGlobs)
	return p
}

func summarize(files []FileChange, criticalGlobs []string) Summary {
	var s Summary
	s.TotalFiles = len(files)
	highFromCount := false
	mediumFromCount := false
	anyImportRemoved := false
	highFromCritical := false

	for _, f := range files {
		s.TotalChanges += len(f.Changes)
		if len(f.Changes) > 50 {
			highFromCount = true
		}
		if len(f.Changes) > 10 {
			mediumFromCount = true
		}
		for _, ic := range f.Imports {
			switch ic.Kind {
			case types.ChangeImportAdd:
				s.ImportsAdded++
			case types.ChangeImportRemove:
				s.ImportsRemoved++
				anyImportRemoved = true
				if matchesAny(f.Path, criticalGlobs) {
					highFromCritical = true
				}
			}
		}
	}

	switch {
	case highFromCount || highFromCritical:
		s.Risk = types.RiskHigh
	case mediumFromCount || anyImportRemoved:
		s.Risk = types.RiskMedium
	default:
		s.Risk = types.RiskLow
	}
	return s
}

func matchesAny(path string, globs []string) bool {
	base := path
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		base = path[idx+1:]
	}
	for _, g := range globs {
		if globMatchBase(g, base) {
			return true
		}
	}
	return false
}

// globMatchBase matches simple "name.*" / "name" critical-file globs
// against a base file name (no directory component, no '**').
func globMatchBase(pattern, base string) bool {
	if !strings.Contains(pattern, "*") {
		return pattern == base
	}
	prefix, suffix, _ := strings.Cut(pattern, "*")
	return strings.HasPrefix(base, prefix) && strings.HasSuffix(base, suffix)
}
