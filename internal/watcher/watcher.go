// Package watcher implements the File Watcher: it observes a project tree
// for filesystem changes, debounces bursts of events, and spawns the
// per-language indexer subprocess that refreshes one index.<lang>.scip
// file at a time (spec.md §4.9). Grounded on the teacher's
// internal/indexing/watcher.go fsnotify + debounce design.
package watcher

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/lci-refactor/internal/ast"
	"github.com/standardbeagle/lci-refactor/internal/config"
	refactorerrors "github.com/standardbeagle/lci-refactor/internal/errors"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

// indexerBinaries names the external indexer subprocess the watcher spawns
// per language. These binaries are out of scope for this module; the
// watcher only knows how to invoke them (spec.md §1, §4.9).
var indexerBinaries = map[types.Language]string{
	types.LangTypeScript: "scip-typescript",
	types.LangJavaScript: "scip-typescript",
	types.LangPython:     "scip-python",
	types.LangRust:       "rust-analyzer",
	types.LangCPP:        "scip-clang",
}

// Runner abstracts indexer subprocess invocation so tests can substitute a
// fake without spawning a real external binary.
type Runner interface {
	Run(ctx context.Context, lang types.Language, root string, files []string) error
}

// execRunner invokes the real indexer binaries via os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, lang types.Language, root string, files []string) error {
	binary, ok := indexerBinaries[lang]
	if !ok {
		return refactorerrors.New(refactorerrors.KindIndexerMissing, "watcher.Run", "no indexer configured for "+string(lang))
	}
	if _, err := exec.LookPath(binary); err != nil {
		return refactorerrors.Wrap(refactorerrors.KindIndexerMissing, "watcher.Run", err)
	}
	cmd := exec.CommandContext(ctx, binary, "index", "--root", root)
	cmd.Dir = root
	return cmd.Run()
}

// Status is a point-in-time snapshot of watcher activity, surfaced by the
// get_watcher_status RPC.
type Status struct {
	Running          bool
	LastDebounceTime time.Time
	LastInvocation   map[types.Language]time.Time
	InFlight         []types.Language
}

// Watcher watches one project root and keeps its per-language indexes
// fresh. Zero value is not usable; construct with New.
type Watcher struct {
	root    string
	cfg     *config.Config
	runner  Runner
	onBatch func(langs []types.Language) // test/observability hook, may be nil

	fsw    *fsnotify.Watcher
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer

	langLocks sync.Map // types.Language -> *sync.Mutex, serializes same-language runs

	statusMu sync.Mutex
	status   Status
}

// New constructs a Watcher for root using cfg's debounce window and ignore
// patterns. The real indexer subprocesses are used unless overridden via
// WithRunner.
func New(root string, cfg *config.Config) *Watcher {
	return &Watcher{
		root:    root,
		cfg:     cfg,
		runner:  execRunner{},
		pending: make(map[string]bool),
		status:  Status{LastInvocation: make(map[types.Language]time.Time)},
	}
}

// WithRunner overrides the indexer invocation strategy, for tests.
func (w *Watcher) WithRunner(r Runner) *Watcher {
	w.runner = r
	return w
}

// WithBatchHook registers a callback invoked synchronously at the end of
// each debounced flush, after indexer invocations complete, naming the
// languages that were (re)indexed. Intended for tests to synchronize on.
func (w *Watcher) WithBatchHook(fn func(langs []types.Language)) *Watcher {
	w.onBatch = fn
	return w
}

// Start begins watching w.root and its subdirectories, skipping anything
// matching the configured ignore patterns.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw
	w.ctx, w.cancel = context.WithCancel(context.Background())

	if err := w.addWatches(w.root); err != nil {
		fsw.Close()
		return err
	}

	w.wg.Add(1)
	go w.processEvents()

	w.statusMu.Lock()
	w.status.Running = true
	w.statusMu.Unlock()
	return nil
}

// Stop cancels the debounce timer and blocks until any in-flight indexer
// invocation finishes before returning (spec.md §4.9 "Cancellation").
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	var err error
	if w.fsw != nil {
		err = w.fsw.Close()
	}

	w.mu.Lock()
	if w.timer != nil && w.timer.Stop() {
		// Nothing was in flight yet for this debounce window; the
		// cancelled callback will never run, so it never reaches its
		// own wg.Done.
		w.wg.Done()
	}
	w.mu.Unlock()

	w.wg.Wait()

	w.statusMu.Lock()
	w.status.Running = false
	w.statusMu.Unlock()
	return err
}

// StatusSnapshot returns a copy of the watcher's current status.
func (w *Watcher) StatusSnapshot() Status {
	w.statusMu.Lock()
	defer w.statusMu.Unlock()
	s := Status{Running: w.status.Running, LastDebounceTime: w.status.LastDebounceTime}
	s.LastInvocation = make(map[types.Language]time.Time, len(w.status.LastInvocation))
	for k, v := range w.status.LastInvocation {
		s.LastInvocation[k] = v
	}
	s.InFlight = append(s.InFlight, w.status.InFlight...)
	return s
}

func (w *Watcher) addWatches(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && w.isIgnored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			log.Printf("watcher: failed to watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) isIgnored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.cfg.IgnorePatterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watcher: fsnotify error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	if w.isIgnored(path) {
		return
	}

	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		if event.Op&fsnotify.Create != 0 && !w.isIgnored(path) {
			if addErr := w.fsw.Add(path); addErr != nil {
				log.Printf("watcher: failed to watch new directory %s: %v", path, addErr)
			}
		}
		return
	}

	if ast.LanguageFromPath(path) == types.LangUnknown {
		return
	}

	w.mu.Lock()
	w.pending[path] = true
	if w.timer != nil && w.timer.Stop() {
		// Canceled before firing: the flush it would have run never
		// starts, so undo the wg.Add it was scheduled under.
		w.wg.Done()
	}
	w.wg.Add(1)
	w.timer = time.AfterFunc(time.Duration(w.cfg.DebounceMs)*time.Millisecond, func() {
		defer w.wg.Done()
		w.flush()
	})
	w.mu.Unlock()
}

// flush partitions the pending file set by language and spawns one
// indexer invocation per affected language, running different languages
// concurrently via errgroup while serializing repeated runs of the same
// language through a per-language mutex (spec.md §4.9).
func (w *Watcher) flush() {
	w.mu.Lock()
	files := w.pending
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	if len(files) == 0 {
		return
	}

	w.statusMu.Lock()
	w.status.LastDebounceTime = time.Now()
	w.statusMu.Unlock()

	byLang := make(map[types.Language][]string)
	for path := range files {
		lang := ast.LanguageFromPath(path)
		byLang[lang] = append(byLang[lang], path)
	}

	var langs []types.Language
	for lang := range byLang {
		langs = append(langs, lang)
		sort.Strings(byLang[lang])
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })

	eg, ctx := errgroup.WithContext(w.ctx)
	for _, lang := range langs {
		lang := lang
		langFiles := byLang[lang]
		eg.Go(func() error {
			return w.runForLanguage(ctx, lang, langFiles)
		})
	}
	if err := eg.Wait(); err != nil {
		log.Printf("watcher: indexer invocation failed: %v", err)
	}

	if w.onBatch != nil {
		w.onBatch(langs)
	}
}

// RunLanguages runs the indexer subprocess for each of langs immediately,
// without waiting for a filesystem event, backing the index_project
// dispatcher operation (spec.md §4.9/§4.10: an explicit re-index distinct
// from the watcher's automatic debounced one). It walks w.root itself
// rather than relying on any pending event set, so it works even when the
// watcher has never been started.
func (w *Watcher) RunLanguages(ctx context.Context, langs []types.Language) error {
	want := make(map[types.Language]bool, len(langs))
	for _, l := range langs {
		want[l] = true
	}

	byLang := make(map[types.Language][]string)
	err := filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if path != w.root && w.isIgnored(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.isIgnored(path) {
			return nil
		}
		lang := ast.LanguageFromPath(path)
		if !want[lang] {
			return nil
		}
		byLang[lang] = append(byLang[lang], path)
		return nil
	})
	if err != nil {
		return refactorerrors.Wrap(refactorerrors.KindIO, "watcher.RunLanguages", err)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for lang, files := range byLang {
		lang := lang
		files := files
		sort.Strings(files)
		eg.Go(func() error {
			return w.runForLanguage(egCtx, lang, files)
		})
	}
	return eg.Wait()
}

// runForLanguage serializes invocations for one language using a
// per-language mutex so a new batch for an already-running language
// queues rather than running concurrently with it.
func (w *Watcher) runForLanguage(ctx context.Context, lang types.Language, files []string) error {
	lockIface, _ := w.langLocks.LoadOrStore(lang, &sync.Mutex{})
	lock := lockIface.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	w.statusMu.Lock()
	w.status.InFlight = appendUnique(w.status.InFlight, lang)
	w.statusMu.Unlock()
	defer func() {
		w.statusMu.Lock()
		w.status.InFlight = removeLang(w.status.InFlight, lang)
		w.status.LastInvocation[lang] = time.Now()
		w.statusMu.Unlock()
	}()

	if w.skipIfUnchanged(lang, files) {
		return nil
	}
	if err := w.runner.Run(ctx, lang, w.root, files); err != nil {
		return err
	}
	return w.writeMetadata(lang, files)
}

func appendUnique(langs []types.Language, lang types.Language) []types.Language {
	for _, l := range langs {
		if l == lang {
			return langs
		}
	}
	return append(langs, lang)
}

func removeLang(langs []types.Language, lang types.Language) []types.Language {
	out := langs[:0]
	for _, l := range langs {
		if l != lang {
			out = append(out, l)
		}
	}
	return out
}

// metadataRecord is the sibling .meta file written alongside each
// index.<lang>.scip, used to derive staleness without re-running the
// indexer (spec.md §4.9 "Metadata").
type metadataRecord struct {
	CreatedAt time.Time `json:"created_at"`
	FileCount int       `json:"file_count"`
	InputHash uint64    `json:"input_hash"`
}

func (w *Watcher) metaPath(lang types.Language) string {
	return filepath.Join(w.root, "index."+string(lang)+".meta")
}

// skipIfUnchanged compares a cheap xxhash of the affected file set's
// sizes and modification times to the previous run's recorded hash; an
// unchanged hash means the watcher can skip spawning the indexer.
func (w *Watcher) skipIfUnchanged(lang types.Language, files []string) bool {
	prev, err := readMetadata(w.metaPath(lang))
	if err != nil {
		return false
	}
	return prev.InputHash == inputHash(files) && prev.FileCount == len(files)
}

func (w *Watcher) writeMetadata(lang types.Language, files []string) error {
	rec := metadataRecord{CreatedAt: time.Now(), FileCount: len(files), InputHash: inputHash(files)}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	tmp := w.metaPath(lang) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, w.metaPath(lang))
}

func readMetadata(path string) (*metadataRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec metadataRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
