package refactor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lci-refactor/internal/ast"
	"github.com/standardbeagle/lci-refactor/internal/errors"
	"github.com/standardbeagle/lci-refactor/internal/index"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

// fileOccurrenceFixture mirrors index's unexported on-disk occurrence shape
// so tests can build a realistic index.typescript.scip fixture without
// reaching into the index package's internals.
type fileOccurrenceFixture struct {
	Symbol    string `json:"symbol"`
	Role      string `json:"role"`
	Name      string `json:"name"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"end_line"`
	EndColumn int    `json:"end_column"`
	StartByte int    `json:"start_byte"`
	EndByte   int    `json:"end_byte"`
}

type fileDocumentFixture struct {
	RelPath     string                  `json:"path"`
	Occurrences []fileOccurrenceFixture `json:"occurrences"`
}

type fileIndexFixture struct {
	Language  string                `json:"language"`
	Documents []fileDocumentFixture `json:"documents"`
}

// occurrenceAt locates the nth (0-based) occurrence of name in content and
// returns a fixture occurrence for it with the given role.
func occurrenceAt(t *testing.T, content, name string, occurrenceIndex int, role, symbol string) fileOccurrenceFixture {
	t.Helper()
	start := -1
	from := 0
	for i := 0; i <= occurrenceIndex; i++ {
		idx := strings.Index(content[from:], name)
		require.GreaterOrEqualf(t, idx, 0, "occurrence %d of %q not found", i, name)
		start = from + idx
		from = start + len(name)
	}
	line, col := lineColAt(content, start)
	return fileOccurrenceFixture{
		Symbol: symbol, Role: role, Name: name,
		Line: line, Column: col, EndLine: line, EndColumn: col + len(name),
		StartByte: start, EndByte: start + len(name),
	}
}

func lineColAt(content string, byteOffset int) (line, col int) {
	for i := 0; i < byteOffset; i++ {
		if content[i] == '\n' {
			line++
			col = 0
		} else {
			col++
		}
	}
	return
}

func writeIndexFixture(t *testing.T, root, lang string, fi fileIndexFixture) {
	t.Helper()
	raw, err := json.Marshal(fi)
	require.NoError(t, err)
	path := filepath.Join(root, "index."+lang+".scip")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
}

func TestRenameSymbol_AcrossTwoFiles(t *testing.T) {
	root := t.TempDir()

	aContent := "export const oldName = 1;\nconsole.log(oldName);\n"
	bContent := "import { oldName } from './a';\noldName();\n"

	aPath := filepath.Join(root, "a.ts")
	bPath := filepath.Join(root, "b.ts")
	require.NoError(t, os.WriteFile(aPath, []byte(aContent), 0o644))
	require.NoError(t, os.WriteFile(bPath, []byte(bContent), 0o644))

	writeIndexFixture(t, root, "typescript", fileIndexFixture{
		Language: "typescript",
		Documents: []fileDocumentFixture{
			{
				RelPath: "a.ts",
				Occurrences: []fileOccurrenceFixture{
					occurrenceAt(t, aContent, "oldName", 0, "definition", "sym-1"),
					occurrenceAt(t, aContent, "oldName", 1, "read", "sym-1"),
				},
			},
			{
				RelPath: "b.ts",
				Occurrences: []fileOccurrenceFixture{
					occurrenceAt(t, bContent, "oldName", 0, "import", "sym-1"),
					occurrenceAt(t, bContent, "oldName", 1, "read", "sym-1"),
				},
			},
		},
	})

	idx, err := index.Load(root)
	require.NoError(t, err)

	eng := New(idx, ast.NewService())

	loc := types.Location{Path: aPath, Line: 1, Column: 14} // points at "oldName" in "export const oldName"
	tr, err := eng.RenameSymbol(loc, "newName")
	require.NoError(t, err)

	res, err := tr.Commit()
	require.NoError(t, err)
	assert.Equal(t, 2, res.FilesWritten)

	gotA, err := os.ReadFile(aPath)
	require.NoError(t, err)
	assert.Equal(t, "export const newName = 1;\nconsole.log(newName);\n", string(gotA))

	gotB, err := os.ReadFile(bPath)
	require.NoError(t, err)
	assert.Equal(t, "import { newName } from './a';\nnewName();\n", string(gotB))
}

func TestRenameSymbol_InvalidNewNameRejected(t *testing.T) {
	root := t.TempDir()
	aContent := "export const oldName = 1;\n"
	aPath := filepath.Join(root, "a.ts")
	require.NoError(t, os.WriteFile(aPath, []byte(aContent), 0o644))

	writeIndexFixture(t, root, "typescript", fileIndexFixture{
		Language: "typescript",
		Documents: []fileDocumentFixture{
			{RelPath: "a.ts", Occurrences: []fileOccurrenceFixture{
				occurrenceAt(t, aContent, "oldName", 0, "definition", "sym-1"),
			}},
		},
	})

	idx, err := index.Load(root)
	require.NoError(t, err)
	eng := New(idx, ast.NewService())

	loc := types.Location{Path: aPath, Line: 1, Column: 14}
	_, err = eng.RenameSymbol(loc, "123abc")
	require.Error(t, err)
	assert.Equal(t, errors.KindInvalidName, err.(*errors.RefactorError).Kind)
}

func TestRenameSymbol_NoSymbolAtPositionIsSymbolNotFound(t *testing.T) {
	root := t.TempDir()
	aContent := "export const oldName = 1;\n"
	aPath := filepath.Join(root, "a.ts")
	require.NoError(t, os.WriteFile(aPath, []byte(aContent), 0o644))

	writeIndexFixture(t, root, "typescript", fileIndexFixture{
		Language: "typescript",
		Documents: []fileDocumentFixture{
			{RelPath: "a.ts", Occurrences: []fileOccurrenceFixture{
				occurrenceAt(t, aContent, "oldName", 0, "definition", "sym-1"),
			}},
		},
	})

	idx, err := index.Load(root)
	require.NoError(t, err)
	eng := New(idx, ast.NewService())

	loc := types.Location{Path: aPath, Line: 1, Column: 1} // points at "export", not an identifier occurrence
	_, err = eng.RenameSymbol(loc, "newName")
	require.Error(t, err)
	assert.Equal(t, errors.KindSymbolNotFound, err.(*errors.RefactorError).Kind)
}
