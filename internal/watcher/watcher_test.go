package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/lci-refactor/internal/config"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

// TestMain ensures the fsnotify goroutine started by Start is always
// joined by Stop before the test binary exits.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("time.Sleep"),
	)
}

// fakeRunner records every indexer invocation instead of spawning a real
// subprocess, and lets tests block until a batch of invocations lands.
type fakeRunner struct {
	mu    sync.Mutex
	calls []types.Language
	done  chan struct{}
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{done: make(chan struct{}, 16)}
}

func (f *fakeRunner) Run(ctx context.Context, lang types.Language, root string, files []string) error {
	f.mu.Lock()
	f.calls = append(f.calls, lang)
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func (f *fakeRunner) Calls() []types.Language {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Language(nil), f.calls...)
}

func TestWatcher_DebouncesAndPartitionsByLanguage(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte("{}"), 0o644))

	cfg := config.Default(root)
	cfg.DebounceMs = 30

	runner := newFakeRunner()
	w := New(root, cfg).WithRunner(runner)
	require.NoError(t, w.Start())
	defer w.Stop()

	aPath := filepath.Join(root, "a.ts")
	bPath := filepath.Join(root, "b.rs")
	require.NoError(t, os.WriteFile(aPath, []byte("const a = 1;\n"), 0o644))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, os.WriteFile(bPath, []byte("fn main() {}\n"), 0o644))

	select {
	case <-runner.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first indexer invocation")
	}
	select {
	case <-runner.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for second indexer invocation")
	}

	calls := runner.Calls()
	assert.Len(t, calls, 2)
	assert.Contains(t, calls, types.LangTypeScript)
	assert.Contains(t, calls, types.LangRust)
}

func TestWatcher_IgnoresConfiguredPatterns(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))

	cfg := config.Default(root)
	cfg.DebounceMs = 20

	runner := newFakeRunner()
	w := New(root, cfg).WithRunner(runner)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "vendored.ts"), []byte("export {};\n"), 0o644))

	select {
	case <-runner.done:
		t.Fatal("indexer should not have run for an ignored path")
	case <-time.After(200 * time.Millisecond):
	}
	assert.Empty(t, runner.Calls())
}

func TestWatcher_StopJoinsGoroutinesAndClearsRunning(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default(root)
	w := New(root, cfg).WithRunner(newFakeRunner())
	require.NoError(t, w.Start())
	require.NoError(t, w.Stop())

	assert.False(t, w.StatusSnapshot().Running)
}

// slowRunner simulates an indexer invocation that takes long enough to
// still be running when a test calls Stop, so the test can assert Stop
// actually blocks until it finishes.
type slowRunner struct {
	delay    time.Duration
	mu       sync.Mutex
	finished bool
}

func (r *slowRunner) Run(ctx context.Context, lang types.Language, root string, files []string) error {
	time.Sleep(r.delay)
	r.mu.Lock()
	r.finished = true
	r.mu.Unlock()
	return nil
}

func (r *slowRunner) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}

func TestWatcher_StopWaitsForInFlightFlush(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte("{}"), 0o644))

	cfg := config.Default(root)
	cfg.DebounceMs = 10

	runner := &slowRunner{delay: 150 * time.Millisecond}
	w := New(root, cfg).WithRunner(runner)
	require.NoError(t, w.Start())

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.ts"), []byte("const a = 1;\n"), 0o644))
	// Give the debounce timer time to fire and runForLanguage to call
	// into the slow runner before Stop races it.
	time.Sleep(40 * time.Millisecond)

	require.NoError(t, w.Stop())
	assert.True(t, runner.Finished(), "Stop returned before the in-flight indexer invocation completed")
}

func TestRunLanguages_IndexesWithoutRequiringStart(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("x = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.rs"), []byte("fn main() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "c.ts"), []byte("const c = 1;\n"), 0o644))

	runner := newFakeRunner()
	w := New(root, config.Default(root)).WithRunner(runner)

	err := w.RunLanguages(context.Background(), []types.Language{types.LangPython, types.LangRust})
	require.NoError(t, err)

	calls := runner.Calls()
	assert.Len(t, calls, 2)
	assert.Contains(t, calls, types.LangPython)
	assert.Contains(t, calls, types.LangRust)
	assert.NotContains(t, calls, types.LangTypeScript)
}

func TestRunLanguages_SkipsUnchangedInputOnSecondRun(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("x = 1\n"), 0o644))

	runner := newFakeRunner()
	w := New(root, config.Default(root)).WithRunner(runner)

	require.NoError(t, w.RunLanguages(context.Background(), []types.Language{types.LangPython}))
	require.NoError(t, w.RunLanguages(context.Background(), []types.Language{types.LangPython}))

	assert.Len(t, runner.Calls(), 1)
}
