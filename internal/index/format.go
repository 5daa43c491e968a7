// Package index implements the Index Reader: it loads one or more
// pre-built, per-language cross-file index files from a project root and
// answers symbol-at-position, find-definition and find-references
// queries.
//
// The on-disk index file format is produced by indexer subprocesses
// (scip-typescript, scip-python, rust-analyzer, scip-clang) that are
// explicitly out of scope for this kernel (spec.md §1); this package only
// needs a stable decode target, so it defines a small JSON envelope that a
// real scip-to-JSON bridge would emit. Coordinates in the on-disk format
// are 0-based, matching the upstream SCIP convention; every exported
// Reader method converts to/from the 1-based coordinates the rest of the
// system uses.
package index

import "github.com/standardbeagle/lci-refactor/internal/types"

// fileOccurrence is the on-disk, 0-based representation of one Occurrence.
type fileOccurrence struct {
	Symbol    string `json:"symbol"`
	Role      string `json:"role"`
	Name      string `json:"name"`
	Line      int    `json:"line"`       // 0-based
	Column    int    `json:"column"`     // 0-based
	EndLine   int    `json:"end_line"`   // 0-based
	EndColumn int    `json:"end_column"` // 0-based
	StartByte int    `json:"start_byte"`
	EndByte   int    `json:"end_byte"`
}

// fileDocument is the on-disk representation of one Document.
type fileDocument struct {
	RelPath      string           `json:"path"`
	Occurrences  []fileOccurrence `json:"occurrences"`
	LocalSymbols []string         `json:"local_symbols,omitempty"`
}

// fileIndex is the top-level on-disk envelope for one index.<lang>.scip
// file (or the legacy index.scip).
type fileIndex struct {
	Language  string         `json:"language"`
	Documents []fileDocument `json:"documents"`
}

func roleFromString(s string) types.Role {
	switch s {
	case string(types.RoleDefinition):
		return types.RoleDefinition
	case string(types.RoleWrite):
		return types.RoleWrite
	case string(types.RoleImport):
		return types.RoleImport
	default:
		return types.RoleRead
	}
}

func languageFromString(s string) types.Language {
	switch types.Language(s) {
	case types.LangTypeScript, types.LangJavaScript, types.LangPython, types.LangRust, types.LangCPP:
		return types.Language(s)
	default:
		return types.LangUnknown
	}
}
