// Package imports implements the per-language Import Analyzer: find, add,
// remove and rewrite import/include statements while preserving
// surrounding whitespace and ordering conventions (spec.md §4.3).
package imports

import (
	"github.com/standardbeagle/lci-refactor/internal/ast"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

// Analyzer is the closed capability set every language plugin implements.
type Analyzer interface {
	// Find returns every import statement in content, in document order.
	Find(content []byte) ([]types.ImportStatement, error)

	// Rename rewrites every import that names oldIdent among its
	// imported names, replacing oldIdent with newIdent in place. It
	// reports whether any rewrite happened.
	Rename(content []byte, oldIdent, newIdent string) (string, bool, error)

	// Add inserts a new import after the last existing import, or at the
	// top (after a leading comment/shebang) if none exists. The position
	// does not depend on kind: the new import follows the last import of
	// any kind, not the last one of its own kind.
	Add(content []byte, module string, names []string, kind types.ImportKind) (string, error)

	// Remove deletes importedName from whatever import statement carries
	// it; if that statement's name list becomes empty, the whole
	// statement is removed, preserving surrounding blank lines.
	Remove(content []byte, importedName string) (string, bool, error)

	// UpdateModulePath changes only the module designator of the import
	// that currently points at oldModule.
	UpdateModulePath(content []byte, oldModule, newModule string) (string, error)
}

// For returns the Analyzer implementation for lang.
func For(lang types.Language, svc *ast.Service) Analyzer {
	switch lang {
	case types.LangJavaScript, types.LangTypeScript:
		return &jsAnalyzer{svc: svc, lang: lang}
	case types.LangPython:
		return &pythonAnalyzer{svc: svc}
	case types.LangRust:
		return &rustAnalyzer{svc: svc}
	case types.LangCPP:
		return &cppAnalyzer{svc: svc}
	default:
		return nil
	}
}
