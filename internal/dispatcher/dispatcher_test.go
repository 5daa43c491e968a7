package dispatcher

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lci-refactor/internal/config"
	refactorerrors "github.com/standardbeagle/lci-refactor/internal/errors"
	"github.com/standardbeagle/lci-refactor/internal/refactor"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

// fileOccurrenceFixture mirrors index's unexported on-disk occurrence
// shape, matching internal/refactor's test fixtures so index fixtures can
// be authored without reaching into the index package's internals.
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
	require.NoError(t, os.WriteFile(filepath.Join(root, "index."+lang+".scip"), raw, 0o644))
}

func TestRenameSymbol_PreviewDoesNotWrite(t *testing.T) {
	root := t.TempDir()
	content := "export const oldName = 1;\n"
	path := filepath.Join(root, "a.ts")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	writeIndexFixture(t, root, "typescript", fileIndexFixture{
		Language: "typescript",
		Documents: []fileDocumentFixture{
			{RelPath: "a.ts", Occurrences: []fileOccurrenceFixture{
				occurrenceAt(t, content, "oldName", 0, "definition", "sym-1"),
			}},
		},
	})

	d := New(root, config.Default(root), nil)
	loc := types.Location{Path: path, Line: 1, Column: 14}

	result, err := d.RenameSymbol(context.Background(), loc, "newName", true)
	require.NoError(t, err)
	require.NotNil(t, result.Preview)
	assert.Nil(t, result.Committed)

	unchanged, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(unchanged))
}

func TestRenameSymbol_CommitWrites(t *testing.T) {
	root := t.TempDir()
	content := "export const oldName = 1;\n"
	path := filepath.Join(root, "a.ts")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	writeIndexFixture(t, root, "typescript", fileIndexFixture{
		Language: "typescript",
		Documents: []fileDocumentFixture{
			{RelPath: "a.ts", Occurrences: []fileOccurrenceFixture{
				occurrenceAt(t, content, "oldName", 0, "definition", "sym-1"),
			}},
		},
	})

	d := New(root, config.Default(root), nil)
	loc := types.Location{Path: path, Line: 1, Column: 14}

	result, err := d.RenameSymbol(context.Background(), loc, "newName", false)
	require.NoError(t, err)
	require.NotNil(t, result.Committed)
	assert.Equal(t, 1, result.Committed.FilesWritten)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "export const newName = 1;\n", string(got))
}

func TestBatchReplace_PreviewCoversEveryMatchingFile(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 3; i++ {
		name := filepath.Join(root, string(rune('a'+i))+".ts")
		require.NoError(t, os.WriteFile(name, []byte("var x = 1;\n"), 0o644))
	}

	d := New(root, config.Default(root), nil)
	req := refactor.BatchReplaceRequest{Glob: "*.ts", Pattern: regexp.MustCompile("var "), Template: "let "}

	result, err := d.BatchReplace(context.Background(), req, true)
	require.NoError(t, err)
	require.NotNil(t, result.Preview)
	assert.Len(t, result.Preview.Files, 3)
}

func TestFindReferences_Pagination(t *testing.T) {
	root := t.TempDir()
	content := "const shared = 1;\nconsole.log(shared, shared, shared);\n"
	path := filepath.Join(root, "a.ts")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	writeIndexFixture(t, root, "typescript", fileIndexFixture{
		Language: "typescript",
		Documents: []fileDocumentFixture{
			{RelPath: "a.ts", Occurrences: []fileOccurrenceFixture{
				occurrenceAt(t, content, "shared", 0, "definition", "sym-1"),
				occurrenceAt(t, content, "shared", 1, "read", "sym-1"),
				occurrenceAt(t, content, "shared", 2, "read", "sym-1"),
				occurrenceAt(t, content, "shared", 3, "read", "sym-1"),
			}},
		},
	})

	d := New(root, config.Default(root), nil)
	loc := types.Location{Path: path, Line: 1, Column: 7}

	items, page, err := d.FindReferences(context.Background(), loc, 2, 0)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, Page{Limit: 2, Offset: 0, Count: 4, HasMore: true}, page)

	rest, page2, err := d.FindReferences(context.Background(), loc, 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 2)
	assert.False(t, page2.HasMore)
}

func TestListFunctions_WalksGlobAndParses(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.ts"), []byte("function hello() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.py"), []byte("def world():\n    pass\n"), 0o644))

	d := New(root, config.Default(root), nil)
	items, page, err := d.ListFunctions(context.Background(), "**/*", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)

	var names []string
	for _, it := range items {
		names = append(names, it.Name)
	}
	assert.Contains(t, names, "hello")
	assert.Contains(t, names, "world")
}

func TestPaginate_DefaultsAndHasMore(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page1, meta1 := paginate(items, 0, 0)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, page1)
	assert.Equal(t, Page{Limit: DefaultLimit, Offset: 0, Count: 5, HasMore: false}, meta1)

	page2, meta2 := paginate(items, 2, 1)
	assert.Equal(t, []int{2, 3}, page2)
	assert.True(t, meta2.HasMore)

	page3, meta3 := paginate(items, 2, 10)
	assert.Empty(t, page3)
	assert.False(t, meta3.HasMore)
}

func TestCommitMutex_SerializesConcurrentCommits(t *testing.T) {
	root := t.TempDir()
	d := New(root, config.Default(root), nil)

	const n = 8
	var wg sync.WaitGroup
	var succeeded int32
	var mu sync.Mutex

	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			path := filepath.Join(root, "f"+string(rune('0'+i))+".ts")
			require.NoError(t, os.WriteFile(path, []byte("var x = 1;\n"), 0o644))
			req := refactor.BatchReplaceRequest{Glob: filepath.Base(path), Pattern: regexp.MustCompile("var "), Template: "let "}
			result, err := d.BatchReplace(context.Background(), req, false)
			if err == nil && result.Committed != nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, n, succeeded)
}

func TestRenameSymbol_CancelledContextAbortsBeforeCommit(t *testing.T) {
	root := t.TempDir()
	content := "export const oldName = 1;\n"
	path := filepath.Join(root, "a.ts")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	writeIndexFixture(t, root, "typescript", fileIndexFixture{
		Language: "typescript",
		Documents: []fileDocumentFixture{
			{RelPath: "a.ts", Occurrences: []fileOccurrenceFixture{
				occurrenceAt(t, content, "oldName", 0, "definition", "sym-1"),
			}},
		},
	})

	d := New(root, config.Default(root), nil)
	loc := types.Location{Path: path, Line: 1, Column: 14}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.RenameSymbol(ctx, loc, "newName", false)
	require.Error(t, err)
	assert.Equal(t, refactorerrors.KindCancelled, err.(*refactorerrors.RefactorError).Kind)

	unchanged, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(unchanged))
}

func TestIndexProject_NoDetectedLanguagesErrors(t *testing.T) {
	root := t.TempDir()
	d := New(root, config.Default(root), nil)

	_, err := d.IndexProject(context.Background(), nil)
	require.Error(t, err)
}
