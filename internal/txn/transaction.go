// Package txn implements the Transaction Engine: atomic, all-or-nothing
// multi-file rewrite with rollback (spec.md §4.4). A Transaction
// accumulates staged per-file content replacements and either commits all
// of them or discards them; it never partially applies a refactoring.
package txn

import (
	"os"
	"sort"
	"sync"

	refactorerrors "github.com/standardbeagle/lci-refactor/internal/errors"
	"github.com/standardbeagle/lci-refactor/internal/preview"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

// entry is one staged file's replacement content plus the metadata Preview
// needs to tag and risk-score it.
type entry struct {
	newContent string
	kind       types.ChangeKind
	imports    []preview.ImportChange
	staged     types.StagedChange
}

// Transaction accumulates staged changes for a single refactoring
// invocation. It is not safe for concurrent Stage/Commit calls from
// multiple goroutines belonging to different invocations: spec.md §4.4/§5
// make commit a single, process-wide exclusive operation.
type Transaction struct {
	mu     sync.Mutex
	staged map[string]*entry
	order  []string
	dryRun bool
}

// New creates an empty transaction. dryRun mode makes Commit a no-op that
// still reports the counts that would have been written.
func New(dryRun bool) *Transaction {
	return &Transaction{staged: make(map[string]*entry), dryRun: dryRun}
}

// Stage records a (path, new content) pair. Staging the same path twice in
// one transaction is a caller error (spec.md §3 "a given file path appears
// at most once").
func (t *Transaction) Stage(path, newContent string, kind types.ChangeKind, importChanges []preview.ImportChange) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.staged[path]; exists {
		return refactorerrors.New(refactorerrors.KindIO, "txn.Stage", "file already staged in this transaction: "+path).WithFiles(path)
	}

	staged := types.StagedChange{Path: path, NewContent: newContent}
	t.staged[path] = &entry{newContent: newContent, kind: kind, imports: importChanges, staged: staged}
	t.order = append(t.order, path)
	return nil
}

// Paths returns the staged file paths in stage order.
func (t *Transaction) Paths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Preview compares each staged new content to the current on-disk content
// and produces a structured diff. It performs no writes.
func (t *Transaction) Preview(criticalGlobs []string) (preview.Preview, error) {
	t.mu.Lock()
	paths := append([]string(nil), t.order...)
	staged := make(map[string]*entry, len(t.staged))
	for k, v := range t.staged {
		staged[k] = v
	}
	t.mu.Unlock()

	sort.Strings(paths)
	var inputs []preview.Input
	for _, path := range paths {
		e := staged[path]
		before, err := os.ReadFile(path)
		beforeStr := ""
		if err == nil {
			beforeStr = string(before)
		}
		inputs = append(inputs, preview.Input{
			Path:    path,
			Before:  beforeStr,
			After:   e.newContent,
			Kind:    e.kind,
			Imports: e.imports,
		})
	}
	return preview.Render(inputs, criticalGlobs), nil
}

// Result is the outcome of a Commit call.
type Result struct {
	FilesWritten int
	DryRun       bool
}

// Commit writes every staged file. Each file's current on-disk content is
// read into an in-memory backup map before any write begins; no defense is
// provided against a third party (the user's editor, a concurrent watcher
// re-index) modifying a file between Stage and Commit, and such a change is
// silently overwritten (spec.md §5). If a write itself fails partway
// through, all previously written files in this commit are restored from
// the backup map, in reverse write order. On full success the backups are
// discarded.
func (t *Transaction) Commit() (Result, error) {
	t.mu.Lock()
	paths := append([]string(nil), t.order...)
	staged := make(map[string]*entry, len(t.staged))
	for k, v := range t.staged {
		staged[k] = v
	}
	t.mu.Unlock()

	if t.dryRun {
		return Result{FilesWritten: len(paths), DryRun: true}, nil
	}

	backups := make(map[string][]byte)
	for _, path := range paths {
		if current, err := os.ReadFile(path); err == nil {
			backups[path] = current
		}
	}

	var written []string
	for _, path := range paths {
		if err := os.WriteFile(path, []byte(staged[path].newContent), 0o644); err != nil {
			rollback(written, backups)
			return Result{}, refactorerrors.Wrap(refactorerrors.KindCommitFailed, "txn.Commit", err).WithFiles(written...)
		}
		written = append(written, path)
	}

	return Result{FilesWritten: len(written)}, nil
}

// rollback restores every path in written from backups, in reverse write
// order, so the final on-disk state equals the pre-commit state
// regardless of commit ordering (spec.md §4.4 "Ordering").
func rollback(written []string, backups map[string][]byte) {
	for i := len(written) - 1; i >= 0; i-- {
		path := written[i]
		backup := backups[path]
		if backup == nil {
			os.Remove(path)
			continue
		}
		_ = os.WriteFile(path, backup, 0o644)
	}
}
