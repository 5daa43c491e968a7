package txn

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lci-refactor/internal/errors"
	"github.com/standardbeagle/lci-refactor/internal/preview"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTransactionCommit_WritesAllStagedFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.ts", "const a = 1;\n")
	b := writeTemp(t, dir, "b.ts", "const b = 2;\n")

	tr := New(false)
	require.NoError(t, tr.Stage(a, "const renamed = 1;\n", types.ChangeRename, nil))
	require.NoError(t, tr.Stage(b, "const renamed2 = 2;\n", types.ChangeRename, nil))

	res, err := tr.Commit()
	require.NoError(t, err)
	assert.Equal(t, 2, res.FilesWritten)
	assert.False(t, res.DryRun)

	gotA, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "const renamed = 1;\n", string(gotA))

	gotB, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, "const renamed2 = 2;\n", string(gotB))
}

func TestTransactionStage_DuplicatePathRejected(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.ts", "const a = 1;\n")

	tr := New(false)
	require.NoError(t, tr.Stage(a, "const a = 2;\n", types.ChangeRename, nil))

	err := tr.Stage(a, "const a = 3;\n", types.ChangeRename, nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindIO, err.(*errors.RefactorError).Kind)
}

func TestTransactionCommit_OverwritesFileEditedAfterStage(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.ts", "const a = 1;\n")
	b := writeTemp(t, dir, "b.ts", "const b = 2;\n")

	tr := New(false)
	require.NoError(t, tr.Stage(a, "const renamed = 1;\n", types.ChangeRename, nil))
	require.NoError(t, tr.Stage(b, "const renamed2 = 2;\n", types.ChangeRename, nil))

	// A third party (the user's editor) lands a concurrent edit between
	// Stage and Commit. No defense is provided against this (spec.md §5):
	// Commit silently overwrites it with the staged content.
	require.NoError(t, os.WriteFile(a, []byte("const a = 999; // edited elsewhere\n"), 0o644))

	res, err := tr.Commit()
	require.NoError(t, err)
	assert.Equal(t, 2, res.FilesWritten)

	gotA, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "const renamed = 1;\n", string(gotA))

	gotB, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, "const renamed2 = 2;\n", string(gotB))
}

func TestTransactionCommit_DryRunDoesNotWrite(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.ts", "const a = 1;\n")

	tr := New(true)
	require.NoError(t, tr.Stage(a, "const renamed = 1;\n", types.ChangeRename, nil))

	res, err := tr.Commit()
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.FilesWritten)

	got, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "const a = 1;\n", string(got))
}

func TestTransactionPreview_RendersDiffAndRisk(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.ts", "const oldName = 1;\nconsole.log(oldName);\n")

	tr := New(false)
	require.NoError(t, tr.Stage(a, "const newName = 1;\nconsole.log(newName);\n", types.ChangeRename, nil))

	p, err := tr.Preview(nil)
	require.NoError(t, err)
	require.Len(t, p.Files, 1)
	assert.Equal(t, a, p.Files[0].Path)
	assert.NotEmpty(t, p.Files[0].Changes)
	assert.Equal(t, types.RiskLow, p.Summary.Risk)
}

func TestTransactionPreview_ImportRemovalFromCriticalFileIsHighRisk(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "index.ts", "import { used } from './used';\nused();\n")

	tr := New(false)
	require.NoError(t, tr.Stage(a, "used();\n", types.ChangeRename, []preview.ImportChange{
		{Module: "./used", Kind: types.ChangeImportRemove},
	}))

	p, err := tr.Preview([]string{"index.*"})
	require.NoError(t, err)
	assert.Equal(t, types.RiskHigh, p.Summary.Risk)
}
