// Package refactor implements the three user-facing refactorings built on
// top of the kernel: rename-symbol, inline-variable and batch-replace
// (spec.md §4.6-§4.8). Each operation stages its edits into a
// *txn.Transaction and leaves the Preview/Commit decision to the caller.
package refactor

import (
	"os"
	"sort"

	"github.com/standardbeagle/lci-refactor/internal/ast"
	refactorerrors "github.com/standardbeagle/lci-refactor/internal/errors"
	"github.com/standardbeagle/lci-refactor/internal/imports"
	"github.com/standardbeagle/lci-refactor/internal/index"
	"github.com/standardbeagle/lci-refactor/internal/preview"
	"github.com/standardbeagle/lci-refactor/internal/txn"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

// Engine wires the kernel components a refactoring needs: the Index
// Reader for cross-file symbol resolution and the AST Service for
// per-language parsing and import rewriting.
type Engine struct {
	Index *index.Reader
	AST   *ast.Service
}

// New constructs an Engine over an already-loaded index and AST service.
func New(idx *index.Reader, svc *ast.Service) *Engine {
	return &Engine{Index: idx, AST: svc}
}

// RenameSymbol resolves the symbol at loc, validates newName for its
// language, rewrites every occurrence across every file the index knows
// about, and stages the result. It does not commit; the caller previews
// or commits the returned transaction.
func (e *Engine) RenameSymbol(loc types.Location, newName string) (*txn.Transaction, error) {
	lang := e.Index.DocumentLanguage(loc.Path)
	if err := validateIdentifier(lang, newName); err != nil {
		return nil, err
	}

	symbol, err := e.Index.SymbolAtPosition(loc)
	if err != nil {
		return nil, err
	}

	occurrences, err := e.Index.FindReferences(symbol, true)
	if err != nil {
		return nil, err
	}

	oldName := occurrences[0].Name
	if oldName == newName {
		return nil, refactorerrors.New(refactorerrors.KindInvalidName, "refactor.RenameSymbol", "new name is identical to the current name")
	}

	byFile := make(map[string][]types.Occurrence)
	var files []string
	for _, occ := range occurrences {
		if _, ok := byFile[occ.Location.Path]; !ok {
			files = append(files, occ.Location.Path)
		}
		byFile[occ.Location.Path] = append(byFile[occ.Location.Path], occ)
	}
	sort.Strings(files)

	tr := txn.New(false)
	for _, path := range files {
		newContent, importChanges, err := e.renameInFile(path, byFile[path], oldName, newName)
		if err != nil {
			return nil, err
		}
		if err := tr.Stage(path, newContent, types.ChangeRename, importChanges); err != nil {
			return nil, err
		}
	}
	return tr, nil
}

// renameInFile applies every occurrence rewrite for one file in
// descending byte-offset order so earlier offsets in the same file stay
// valid as later splices shift the string, then asks the Import Analyzer
// to catch up any import statement still naming the symbol under its old
// name (spec.md §4.6 step 6).
func (e *Engine) renameInFile(path string, occs []types.Occurrence, oldName, newName string) (string, []preview.ImportChange, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", nil, refactorerrors.Wrap(refactorerrors.KindIO, "refactor.renameInFile", err)
	}
	content := string(raw)

	sort.Slice(occs, func(i, j int) bool { return occs[i].StartByte > occs[j].StartByte })

	for _, occ := range occs {
		if occ.StartByte < 0 || occ.EndByte > len(content) || occ.StartByte > occ.EndByte {
			return "", nil, refactorerrors.New(refactorerrors.KindSymbolNotFound, "refactor.renameInFile", "occurrence range out of bounds in "+path)
		}
		if content[occ.StartByte:occ.EndByte] != occ.Name {
			return "", nil, refactorerrors.New(refactorerrors.KindSymbolNotFound, "refactor.renameInFile",
				"file content changed since indexing: "+path).WithFiles(path)
		}
		content = content[:occ.StartByte] + newName + content[occ.EndByte:]
	}

	lang := e.Index.DocumentLanguage(path)
	analyzer := imports.For(lang, e.AST)
	if analyzer == nil {
		return content, nil, nil
	}

	before, err := analyzer.Find([]byte(content))
	if err != nil {
		return content, nil, nil
	}
	rewritten, changed, err := analyzer.Rename([]byte(content), oldName, newName)
	if err != nil || !changed {
		return content, nil, nil
	}

	var importChanges []preview.ImportChange
	for _, stmt := range before {
		if indexOf(stmt.ImportedNames, oldName) >= 0 {
			importChanges = append(importChanges, preview.ImportChange{Module: stmt.Module, Kind: types.ChangeImportUpdate})
		}
	}
	return rewritten, importChanges, nil
}

func indexOf(names []string, want string) int {
	for i, n := range names {
		if n == want {
			return i
		}
	}
	return -1
}
