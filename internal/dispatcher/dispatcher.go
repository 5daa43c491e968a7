// Package dispatcher implements the Request Dispatcher: it turns external
// requests — CLI subcommands or RPC tool calls — into refactoring kernel
// invocations and shapes the results for output (spec.md §4.10). It owns
// the single process-wide commit mutex (§5 "only one transaction may
// commit at a time") and the pagination envelope used by every
// list-style operation.
package dispatcher

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/singleflight"

	"github.com/standardbeagle/lci-refactor/internal/ast"
	"github.com/standardbeagle/lci-refactor/internal/config"
	refactorerrors "github.com/standardbeagle/lci-refactor/internal/errors"
	"github.com/standardbeagle/lci-refactor/internal/index"
	"github.com/standardbeagle/lci-refactor/internal/preview"
	"github.com/standardbeagle/lci-refactor/internal/refactor"
	"github.com/standardbeagle/lci-refactor/internal/txn"
	"github.com/standardbeagle/lci-refactor/internal/types"
	"github.com/standardbeagle/lci-refactor/internal/watcher"
)

// DefaultLimit and DefaultOffset are the pagination defaults for every
// list-style operation (spec.md §4.10).
const (
	DefaultLimit  = 100
	DefaultOffset = 0
)

// Page is the pagination envelope attached to every list-style response.
type Page struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Count   int  `json:"count"`
	HasMore bool `json:"has_more"`
}

func paginate[T any](items []T, limit, offset int) ([]T, Page) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if offset < 0 {
		offset = DefaultOffset
	}
	count := len(items)
	if offset > count {
		offset = count
	}
	end := offset + limit
	if end > count {
		end = count
	}
	page := Page{Limit: limit, Offset: offset, Count: count, HasMore: end < count}
	return items[offset:end], page
}

// OperationResult is the outcome of a write-capable operation: exactly one
// of Preview or Committed is set, depending on the caller's preview flag.
type OperationResult struct {
	Preview   *preview.Preview `json:"preview,omitempty"`
	Committed *txn.Result      `json:"committed,omitempty"`
}

// Dispatcher wires the kernel components behind every operation named in
// spec.md §4.10. One Dispatcher is constructed per project root and
// reused across requests; its Index Reader is loaded lazily on first use
// and reloaded explicitly by IndexProject.
type Dispatcher struct {
	root   string
	cfg    *config.Config
	logger *log.Logger

	mu    sync.RWMutex
	idx   *index.Reader
	loadG singleflight.Group

	astSvc *ast.Service
	engine *refactor.Engine

	// commitMu is the process-wide commit mutex from spec.md §5: only one
	// transaction may commit at a time, across every operation.
	commitMu sync.Mutex

	watchMu sync.Mutex
	watch   *watcher.Watcher
}

// New constructs a Dispatcher for root. cfg must not be nil; pass
// config.Default(root) for zero-config behavior. A nil logger defaults to
// one writing to stderr, matching the teacher's per-component
// diagnosticLogger pattern.
func New(root string, cfg *config.Config, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New(os.Stderr, "dispatcher: ", log.LstdFlags)
	}
	svc := ast.NewService()
	return &Dispatcher{
		root:   root,
		cfg:    cfg,
		logger: logger,
		astSvc: svc,
		engine: refactor.New(nil, svc),
	}
}

// ensureIndex lazily loads the Index Reader on first use by any operation
// that needs cross-file symbol data. Concurrent first-use callers (racing
// readers arriving before any load has completed) are collapsed onto a
// single index.Load call via singleflight, so a burst of requests against
// a freshly started Dispatcher triggers one disk read, not one per caller.
func (d *Dispatcher) ensureIndex() (*index.Reader, error) {
	d.mu.RLock()
	if d.idx != nil {
		idx := d.idx
		d.mu.RUnlock()
		return idx, nil
	}
	d.mu.RUnlock()

	v, err, _ := d.loadG.Do("load", func() (any, error) {
		d.mu.RLock()
		if d.idx != nil {
			idx := d.idx
			d.mu.RUnlock()
			return idx, nil
		}
		d.mu.RUnlock()

		idx, err := index.Load(d.root)
		if err != nil {
			return nil, err
		}
		d.mu.Lock()
		d.idx = idx
		d.engine.Index = idx
		d.mu.Unlock()
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*index.Reader), nil
}

// checkCancelled reports ctx's cancellation as a RefactorError, or nil if
// ctx is still live. op names the caller for the error's Operation field.
func checkCancelled(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return refactorerrors.Wrap(refactorerrors.KindCancelled, op, err)
	}
	return nil
}

// commitOrPreview applies the write-capable operation's preview flag
// (spec.md §4.10 "defaults to true"): preview renders a structured diff
// without writing, commit acquires the process-wide commit mutex and
// writes every staged file. ctx is checked immediately before the commit
// write itself — the last point at which dropping the transaction instead
// of writing it is still possible (spec.md §5 "the transaction is dropped
// without commit" on caller cancellation). A caller that cancels during
// preview rendering gets the preview anyway, since nothing has been staged
// to disk yet either way.
func (d *Dispatcher) commitOrPreview(ctx context.Context, tr *txn.Transaction, doPreview bool) (*OperationResult, error) {
	if doPreview {
		p, err := tr.Preview(d.cfg.CriticalGlobs)
		if err != nil {
			return nil, err
		}
		return &OperationResult{Preview: &p}, nil
	}

	d.commitMu.Lock()
	defer d.commitMu.Unlock()
	if err := checkCancelled(ctx, "dispatcher.Commit"); err != nil {
		return nil, err
	}
	res, err := tr.Commit()
	if err != nil {
		return nil, err
	}
	return &OperationResult{Committed: &res}, nil
}

// RenameSymbol resolves the symbol at loc, renames it to newName across
// every file the Index Reader knows about, and either previews or commits
// the result.
func (d *Dispatcher) RenameSymbol(ctx context.Context, loc types.Location, newName string, doPreview bool) (*OperationResult, error) {
	if err := checkCancelled(ctx, "dispatcher.RenameSymbol"); err != nil {
		return nil, err
	}
	if _, err := d.ensureIndex(); err != nil {
		return nil, err
	}
	tr, err := d.engine.RenameSymbol(loc, newName)
	if err != nil {
		return nil, err
	}
	return d.commitOrPreview(ctx, tr, doPreview)
}

// InlineVariable inlines the immutable local variable declared at loc.
// Unlike RenameSymbol it never touches the Index Reader (spec.md §4.7).
func (d *Dispatcher) InlineVariable(ctx context.Context, loc types.Location, doPreview bool) (*OperationResult, error) {
	if err := checkCancelled(ctx, "dispatcher.InlineVariable"); err != nil {
		return nil, err
	}
	tr, err := d.engine.InlineVariable(loc)
	if err != nil {
		return nil, err
	}
	return d.commitOrPreview(ctx, tr, doPreview)
}

// BatchReplace applies a regex-driven multi-file rewrite.
func (d *Dispatcher) BatchReplace(ctx context.Context, req refactor.BatchReplaceRequest, doPreview bool) (*OperationResult, error) {
	if err := checkCancelled(ctx, "dispatcher.BatchReplace"); err != nil {
		return nil, err
	}
	if req.ProjectRoot == "" {
		req.ProjectRoot = d.root
	}
	if req.IgnorePatterns == nil {
		req.IgnorePatterns = d.cfg.IgnorePatterns
	}
	tr, err := d.engine.BatchReplace(req)
	if err != nil {
		return nil, err
	}
	return d.commitOrPreview(ctx, tr, doPreview)
}

// GotoDefinition resolves the symbol at loc and returns its definition
// occurrence.
func (d *Dispatcher) GotoDefinition(ctx context.Context, loc types.Location) (*types.Occurrence, error) {
	if err := checkCancelled(ctx, "dispatcher.GotoDefinition"); err != nil {
		return nil, err
	}
	idx, err := d.ensureIndex()
	if err != nil {
		return nil, err
	}
	symbol, err := idx.SymbolAtPosition(loc)
	if err != nil {
		return nil, err
	}
	occ, err := idx.FindDefinition(symbol)
	if err != nil {
		return nil, err
	}
	return &occ, nil
}

// FindReferences resolves the symbol at loc and returns a paginated slice
// of every reference to it.
func (d *Dispatcher) FindReferences(ctx context.Context, loc types.Location, limit, offset int) ([]types.Occurrence, Page, error) {
	if err := checkCancelled(ctx, "dispatcher.FindReferences"); err != nil {
		return nil, Page{}, err
	}
	idx, err := d.ensureIndex()
	if err != nil {
		return nil, Page{}, err
	}
	symbol, err := idx.SymbolAtPosition(loc)
	if err != nil {
		return nil, Page{}, err
	}
	occs, err := idx.FindReferences(symbol, true)
	if err != nil {
		return nil, Page{}, err
	}
	items, page := paginate(occs, limit, offset)
	return items, page, nil
}

// DeclarationResult is one function or class declaration found by
// ListFunctions/ListClasses, tagged with the file it was found in.
type DeclarationResult struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Line int    `json:"line"`
	Kind string `json:"kind"`
}

// ListFunctions walks every recognized source file matching glob (default
// "**/*") under the project root and collects function-shaped
// declarations, in path-then-line order.
func (d *Dispatcher) ListFunctions(ctx context.Context, glob string, limit, offset int) ([]DeclarationResult, Page, error) {
	return d.listDeclarations(ctx, glob, ast.FunctionKindsFor, limit, offset)
}

// ListClasses is ListFunctions' counterpart for class-shaped declarations
// (struct/enum/trait stand in for "class" in languages without the
// keyword, per internal/ast's classNodeKinds table).
func (d *Dispatcher) ListClasses(ctx context.Context, glob string, limit, offset int) ([]DeclarationResult, Page, error) {
	return d.listDeclarations(ctx, glob, ast.ClassKindsFor, limit, offset)
}

func (d *Dispatcher) listDeclarations(ctx context.Context, glob string, kindsFor func(types.Language) []string, limit, offset int) ([]DeclarationResult, Page, error) {
	if err := checkCancelled(ctx, "dispatcher.listDeclarations"); err != nil {
		return nil, Page{}, err
	}
	files, err := d.walkFiles(glob)
	if err != nil {
		return nil, Page{}, err
	}

	var out []DeclarationResult
	for _, rel := range files {
		if err := checkCancelled(ctx, "dispatcher.listDeclarations"); err != nil {
			return nil, Page{}, err
		}
		abs := filepath.Join(d.root, rel)
		lang := ast.LanguageFromPath(abs)
		kinds := kindsFor(lang)
		if len(kinds) == 0 {
			continue
		}
		content, err := os.ReadFile(abs)
		if err != nil {
			d.logger.Printf("dispatcher: skipping %s: %v", abs, err)
			continue
		}
		tree, err := d.astSvc.Parse(lang, content)
		if err != nil {
			// Propagation policy (spec.md §7): a parse error on a file
			// that is not required by the operation is logged and skipped.
			d.logger.Printf("dispatcher: parse error in %s: %v", abs, err)
			continue
		}
		for _, decl := range ast.FindDeclarations(tree.RootNode(), content, kinds) {
			out = append(out, DeclarationResult{Path: abs, Name: decl.Name, Line: decl.Line, Kind: decl.Kind})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Line < out[j].Line
	})
	items, page := paginate(out, limit, offset)
	return items, page, nil
}

// MatchResult is one structural match produced by SearchAST.
type MatchResult struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// SearchAST walks every recognized file matching glob and returns every
// node whose tree-sitter kind equals nodeKind, across all five
// languages — a raw structural query that doesn't go through the
// function/class taxonomy (spec.md §4.2 "named queries").
func (d *Dispatcher) SearchAST(ctx context.Context, glob, nodeKind string, limit, offset int) ([]MatchResult, Page, error) {
	if err := checkCancelled(ctx, "dispatcher.SearchAST"); err != nil {
		return nil, Page{}, err
	}
	files, err := d.walkFiles(glob)
	if err != nil {
		return nil, Page{}, err
	}

	var out []MatchResult
	for _, rel := range files {
		if err := checkCancelled(ctx, "dispatcher.SearchAST"); err != nil {
			return nil, Page{}, err
		}
		abs := filepath.Join(d.root, rel)
		lang := ast.LanguageFromPath(abs)
		if lang == types.LangUnknown {
			continue
		}
		content, err := os.ReadFile(abs)
		if err != nil {
			d.logger.Printf("dispatcher: skipping %s: %v", abs, err)
			continue
		}
		tree, err := d.astSvc.Parse(lang, content)
		if err != nil {
			d.logger.Printf("dispatcher: parse error in %s: %v", abs, err)
			continue
		}
		for _, m := range ast.FindNodesOfKind(tree.RootNode(), content, nodeKind) {
			out = append(out, MatchResult{Path: abs, Line: m.Line, Text: m.Text})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Line < out[j].Line
	})
	items, page := paginate(out, limit, offset)
	return items, page, nil
}

// walkFiles enumerates project-relative paths matching glob (default
// "**/*"), skipping directories, ignored paths, and files with no
// recognized language.
func (d *Dispatcher) walkFiles(glob string) ([]string, error) {
	if glob == "" {
		glob = "**/*"
	}
	matches, err := doublestar.Glob(os.DirFS(d.root), glob)
	if err != nil {
		return nil, refactorerrors.Wrap(refactorerrors.KindIO, "dispatcher.walkFiles", err)
	}

	var out []string
	for _, rel := range matches {
		if d.isIgnored(rel) {
			continue
		}
		abs := filepath.Join(d.root, rel)
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			continue
		}
		if ast.LanguageFromPath(abs) == types.LangUnknown {
			continue
		}
		out = append(out, rel)
	}
	return out, nil
}

func (d *Dispatcher) isIgnored(rel string) bool {
	for _, pattern := range d.cfg.IgnorePatterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// IndexProjectResult reports the languages that were (re)indexed.
type IndexProjectResult struct {
	Languages []types.Language `json:"languages"`
}

// IndexProject runs the indexer subprocess for each requested language
// (or every language detected in the project, if langs is empty), then
// swaps in a freshly loaded Index Reader (spec.md SUPPLEMENTED FEATURES
// "explicit on-demand re-index trigger").
func (d *Dispatcher) IndexProject(ctx context.Context, langs []types.Language) (*IndexProjectResult, error) {
	if len(langs) == 0 {
		langs = config.DetectLanguages(d.root)
	}
	if len(langs) == 0 {
		return nil, refactorerrors.New(refactorerrors.KindIO, "dispatcher.IndexProject", "no recognized project languages detected under "+d.root)
	}

	w := d.watcherInstance()
	if err := w.RunLanguages(ctx, langs); err != nil {
		return nil, err
	}

	idx, err := index.Load(d.root)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.idx = idx
	d.engine.Index = idx
	d.mu.Unlock()

	return &IndexProjectResult{Languages: langs}, nil
}

func (d *Dispatcher) watcherInstance() *watcher.Watcher {
	d.watchMu.Lock()
	defer d.watchMu.Unlock()
	if d.watch == nil {
		d.watch = watcher.New(d.root, d.cfg)
	}
	return d.watch
}

// WatcherStart starts the background file watcher, if it isn't already
// running.
func (d *Dispatcher) WatcherStart() error {
	return d.watcherInstance().Start()
}

// WatcherStop stops the background file watcher, blocking until any
// in-flight indexer invocation finishes.
func (d *Dispatcher) WatcherStop() error {
	return d.watcherInstance().Stop()
}

// GetWatcherStatus reports the watcher's current activity snapshot.
func (d *Dispatcher) GetWatcherStatus() watcher.Status {
	return d.watcherInstance().StatusSnapshot()
}

// ProjectStats reports per-loaded-index counts, backing the stats CLI
// subcommand (spec.md SUPPLEMENTED FEATURES).
func (d *Dispatcher) ProjectStats() (index.Stats, error) {
	idx, err := d.ensureIndex()
	if err != nil {
		return index.Stats{}, err
	}
	return idx.Stats(), nil
}
