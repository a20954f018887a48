package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/javalens/internal/events"
	"github.com/mvp-joe/javalens/internal/watcher"
)

// Test Plan for the event pipeline:
// - Quiesce and RequestCompile fail before Start
// - Start queues a class index rebuild over source roots and output directories
// - A modify event invalidates the cached unit; with eager reparse it is parsed again
// - A create event queues a parse; non-Java changes are ignored
// - A branch switch clears parsed units and still rebuilds the index
// - Compile on change compiles only changed, non-deleted Java files
// - A successful compile rebuilds the index; a failed one does not
// - Watching covers existing source roots only, survives a missing git
//   checkout, routes callbacks into the pipeline and stops on Shutdown

type fakeFileWatcher struct {
	mu       sync.Mutex
	dirs     []string
	callback func([]watcher.Change)
	paused   int
	resumed  int
	stopped  bool
}

func (f *fakeFileWatcher) Start(ctx context.Context, callback func([]watcher.Change)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callback = callback
	return nil
}

func (f *fakeFileWatcher) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func (f *fakeFileWatcher) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused++
}

func (f *fakeFileWatcher) Resume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumed++
}

func (f *fakeFileWatcher) fire(changes ...watcher.Change) {
	f.mu.Lock()
	cb := f.callback
	f.mu.Unlock()
	cb(changes)
}

type fakeGitWatcher struct {
	callback func(oldBranch, newBranch string)
	stopped  bool
}

func (g *fakeGitWatcher) Start(ctx context.Context, callback func(oldBranch, newBranch string)) error {
	g.callback = callback
	return nil
}

func (g *fakeGitWatcher) Stop() error {
	g.stopped = true
	return nil
}

func quiesce(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, s.Quiesce(ctx))
}

func startedHarness(t *testing.T, configure func(*Options)) *harness {
	t.Helper()
	h := newHarness(t, defaultFiles(), configure)
	require.NoError(t, h.s.Start(context.Background()))
	quiesce(t, h.s)
	return h
}

func TestPipeline_NotStarted(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultFiles(), nil)

	assert.ErrorIs(t, h.s.Quiesce(context.Background()), ErrNotStarted)
	assert.ErrorIs(t, h.s.RequestCompile(fooPath), ErrNotStarted)
}

func TestPipeline_StartRebuildsIndex(t *testing.T) {
	t.Parallel()

	h := startedHarness(t, nil)

	for _, fqcn := range []string{"p.Foo", "p.Helper", "com.a.Bar", "com.b.Bar"} {
		assert.True(t, h.s.Index().Contains(fqcn), fqcn)
	}
	assert.FileExists(t, h.s.projects.Location(h.root))

	// Starting twice is a no-op
	require.NoError(t, h.s.Start(context.Background()))
}

func TestPipeline_ModifyInvalidates(t *testing.T) {
	t.Parallel()

	h := startedHarness(t, nil)
	ctx := context.Background()

	_, err := h.s.ParseFile(ctx, fooPath)
	require.NoError(t, err)
	_, ok := h.s.Units().Peek(h.abs(fooPath))
	require.True(t, ok)

	h.s.FilesChanged(ctx, []watcher.Change{{Path: h.abs(fooPath), Kind: events.Modify}})
	quiesce(t, h.s)

	_, ok = h.s.Units().Peek(h.abs(fooPath))
	assert.False(t, ok)
}

func TestPipeline_EagerReparse(t *testing.T) {
	t.Parallel()

	h := startedHarness(t, func(o *Options) { o.Config.Session.EagerReparse = true })
	ctx := context.Background()

	before, err := h.s.Units().Get(ctx, h.abs(fooPath))
	require.NoError(t, err)

	h.s.FilesChanged(ctx, []watcher.Change{{Path: h.abs(fooPath), Kind: events.Modify}})
	quiesce(t, h.s)

	after, ok := h.s.Units().Peek(h.abs(fooPath))
	require.True(t, ok, "modified file is parsed again")
	assert.NotSame(t, before, after)
}

func TestPipeline_CreateParses(t *testing.T) {
	t.Parallel()

	h := startedHarness(t, nil)
	ctx := context.Background()

	created := "src/main/java/p/Baz.java"
	writeTree(t, h.root, map[string]string{created: "package p;\n\npublic class Baz {\n}\n"})

	h.s.FilesChanged(ctx, []watcher.Change{
		{Path: h.abs(created), Kind: events.Create},
		{Path: h.abs("src/main/resources/app.property"), Kind: events.Modify},
	})
	quiesce(t, h.s)

	unit, ok := h.s.Units().Peek(h.abs(created))
	require.True(t, ok)
	assert.Equal(t, []string{"Baz"}, unit.Types)
	assert.Equal(t, 1, h.s.Units().Len())
}

func TestPipeline_BranchSwitch(t *testing.T) {
	t.Parallel()

	h := startedHarness(t, nil)
	ctx := context.Background()

	_, err := h.s.WarmUp(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 4, h.s.Units().Len())

	// The checkout removed a class; the rebuild drops it from the index
	require.NoError(t, os.Remove(h.abs("src/main/java/com/b/Bar.java")))
	h.s.BranchSwitched(ctx, "main", "feature")
	assert.Equal(t, 0, h.s.Units().Len())

	quiesce(t, h.s)
	assert.False(t, h.s.Index().Contains("com.b.Bar"))
	assert.True(t, h.s.Index().Contains("com.a.Bar"))
}

func TestPipeline_CompileOnChange(t *testing.T) {
	t.Parallel()

	h := startedHarness(t, func(o *Options) { o.CompileOnChange = true })
	ctx := context.Background()

	h.s.FilesChanged(ctx, []watcher.Change{
		{Path: h.abs(fooPath), Kind: events.Modify},
		{Path: h.abs("src/main/java/p/Helper.java"), Kind: events.Delete},
		{Path: h.abs("src/main/resources/app.property"), Kind: events.Modify},
	})
	quiesce(t, h.s)

	reqs := h.compiler.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{h.abs(fooPath)}, reqs[0].Sources)
	assert.Equal(t, h.abs("build/classes"), reqs[0].OutputDir)
}

func TestPipeline_RequestCompileRebuildsIndex(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultFiles(), nil)
	h.compiler.emit = []string{"p/Generated.class"}
	require.NoError(t, h.s.Start(context.Background()))
	quiesce(t, h.s)
	require.False(t, h.s.Index().Contains("p.Generated"))

	require.NoError(t, h.s.RequestCompile(fooPath))
	quiesce(t, h.s)

	reqs := h.compiler.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{h.abs(fooPath)}, reqs[0].Sources)
	assert.True(t, h.s.Index().Contains("p.Generated"))
}

func TestPipeline_FailedCompileSkipsRebuild(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultFiles(), nil)
	h.compiler.emit = []string{"p/Generated.class"}
	h.compiler.setFailOn("build")
	require.NoError(t, h.s.Start(context.Background()))
	quiesce(t, h.s)

	// The class exists on disk but only a rebuild would pick it up
	writeTree(t, h.root, map[string]string{"build/classes/p/Stale.class": "x"})

	require.NoError(t, h.s.RequestCompile(fooPath))
	quiesce(t, h.s)

	require.Len(t, h.compiler.Requests(), 1)
	assert.False(t, h.s.Index().Contains("p.Stale"))
}

func TestPipeline_Watching(t *testing.T) {
	t.Parallel()

	fw := &fakeFileWatcher{}
	var gotOpts watcher.Options
	h := newHarness(t, defaultFiles(), func(o *Options) {
		o.Config.Watch.Enabled = true
		o.Config.Watch.Git = true
		o.NewFileWatcher = func(dirs []string, opts watcher.Options) (watcher.FileWatcher, error) {
			fw.dirs = dirs
			gotOpts = opts
			return fw, nil
		}
		o.NewGitWatcher = func(root string) (watcher.GitWatcher, error) {
			return nil, fmt.Errorf("%w: %s", watcher.ErrNotGitRepository, root)
		}
	})
	ctx := context.Background()

	require.NoError(t, h.s.Start(ctx))
	quiesce(t, h.s)
	assert.Equal(t, []string{h.abs("src/main/java")}, fw.dirs, "missing test root is not watched")
	assert.Equal(t, h.s.cfg.ToWatchOptions(), gotOpts)

	_, err := h.s.ParseFile(ctx, fooPath)
	require.NoError(t, err)
	fw.fire(watcher.Change{Path: h.abs(fooPath), Kind: events.Modify})
	quiesce(t, h.s)
	_, ok := h.s.Units().Peek(h.abs(fooPath))
	assert.False(t, ok)

	require.NoError(t, h.s.Shutdown(5*time.Second))
	assert.True(t, fw.stopped)
	assert.ErrorIs(t, h.s.Start(ctx), events.ErrBusClosed)
}

func TestPipeline_WatchingBranchSwitch(t *testing.T) {
	t.Parallel()

	fw := &fakeFileWatcher{}
	git := &fakeGitWatcher{}
	h := newHarness(t, defaultFiles(), func(o *Options) {
		o.Config.Watch.Enabled = true
		o.Config.Watch.Git = true
		o.NewFileWatcher = func(dirs []string, opts watcher.Options) (watcher.FileWatcher, error) {
			return fw, nil
		}
		o.NewGitWatcher = func(root string) (watcher.GitWatcher, error) {
			return git, nil
		}
	})
	ctx := context.Background()

	require.NoError(t, h.s.Start(ctx))
	quiesce(t, h.s)
	_, err := h.s.ParseFile(ctx, fooPath)
	require.NoError(t, err)

	git.callback("main", "feature")
	quiesce(t, h.s)

	assert.Equal(t, 0, h.s.Units().Len())
	assert.Equal(t, 1, fw.paused)
	assert.Equal(t, 1, fw.resumed)

	require.NoError(t, h.s.Shutdown(5*time.Second))
	assert.True(t, git.stopped)
}

func TestPipeline_WatcherFactoryError(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultFiles(), func(o *Options) {
		o.Config.Watch.Enabled = true
		o.NewFileWatcher = func(dirs []string, opts watcher.Options) (watcher.FileWatcher, error) {
			return nil, errors.New("too many open files")
		}
	})

	err := h.s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create file watcher")
}
