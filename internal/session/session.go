// Package session is the controller in front of the analysis caches. A
// Session owns one project's parse cache, project model, event bus, class
// index, compiler and navigation service, and serializes client operations
// with a single lock while background subscribers keep the caches fresh.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/mvp-joe/javalens/internal/classindex"
	"github.com/mvp-joe/javalens/internal/compiler"
	"github.com/mvp-joe/javalens/internal/config"
	"github.com/mvp-joe/javalens/internal/events"
	"github.com/mvp-joe/javalens/internal/metrics"
	"github.com/mvp-joe/javalens/internal/navigation"
	"github.com/mvp-joe/javalens/internal/parsecache"
	"github.com/mvp-joe/javalens/internal/parser"
	"github.com/mvp-joe/javalens/internal/project"
	"github.com/mvp-joe/javalens/internal/source"
	"github.com/mvp-joe/javalens/internal/watcher"
)

// ErrNotStarted indicates an operation that needs the background pipeline
// was called before Start.
var ErrNotStarted = errors.New("session not started")

// classIndexFile is the class table kept next to the persisted project model.
const classIndexFile = "classes.db"

// FileWatcherFactory creates the watcher over the project's source roots.
type FileWatcherFactory func(dirs []string, opts watcher.Options) (watcher.FileWatcher, error)

// GitWatcherFactory creates the branch watcher for the project root.
type GitWatcherFactory func(root string) (watcher.GitWatcher, error)

// Options configures a Session. Zero values select the defaults.
type Options struct {
	Config   *config.Config
	Global   *config.GlobalConfig
	CacheDir string // overrides Global.CacheDir

	Parser   parsecache.Parser
	Compiler compiler.Compiler
	Loaders  map[project.Kind]project.Loader

	NewFileWatcher FileWatcherFactory
	NewGitWatcher  GitWatcherFactory

	// CompileOnChange queues a compile of every changed file reported by
	// the watcher.
	CompileOnChange bool
}

// Session is one open project.
type Session struct {
	cfg      *config.Config
	cacheDir string

	model    *project.Model
	projects *project.Cache
	units    *parsecache.Cache
	bus      *events.Bus
	index    *classindex.Index
	compiler compiler.Compiler
	nav      *navigation.Service
	history  *navigation.History

	newFileWatcher  FileWatcherFactory
	newGitWatcher   GitWatcherFactory
	compileOnChange bool
	coordinator     *watcher.Coordinator
	include         []glob.Glob

	// mu serializes client operations. Bus subscribers never take it.
	mu      sync.Mutex
	started bool
	closed  bool
	stop    chan struct{}
	sweeper sync.WaitGroup
}

// New opens the project containing start. A missing project descriptor is
// project.ErrProjectNotFound and a loader failure project.ErrProjectLoadFailed;
// both abort session creation.
func New(ctx context.Context, start string, opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	global := opts.Global
	if global == nil {
		global = &config.GlobalConfig{}
	}

	root, kind, _, err := project.FindProject(start)
	if err != nil {
		return nil, err
	}

	cacheDir := opts.CacheDir
	if cacheDir == "" {
		cacheDir = global.CacheDir(cfg)
	}
	if cacheDir == "" {
		cacheDir = filepath.Join(root, config.DirName, "cache")
	}

	loaders := opts.Loaders
	if loaders == nil {
		loaders = project.DefaultLoaders(global.Maven.Repository)
	}
	projects := project.NewCache(cacheDir,
		project.WithFastBoot(cfg.Session.FastBoot),
		project.WithOverlay(cfg.ToOverlay()),
		project.WithLoaders(loaders),
	)
	model, err := projects.Load(ctx, root, kind)
	if err != nil {
		return nil, err
	}

	// Each project gets its own directory under the shared cache root.
	projectCache := filepath.Dir(projects.Location(root))
	index, err := openIndex(cfg, filepath.Join(projectCache, classIndexFile))
	if err != nil {
		return nil, err
	}
	registerSources(index, model)

	p := opts.Parser
	if p == nil {
		p = parser.NewJavaParser()
	}
	units := parsecache.New(p, parsecache.WithIdleTimeout(cfg.Session.IdleEviction))

	comp := opts.Compiler
	if comp == nil {
		comp = &compiler.Javac{
			Binary:  global.Javac(cfg),
			Release: cfg.Compiler.Release,
			Args:    cfg.Compiler.Args,
			Timeout: cfg.Compiler.Timeout,
		}
	}

	s := &Session{
		cfg:             cfg,
		cacheDir:        projectCache,
		model:           model,
		projects:        projects,
		units:           units,
		bus:             events.NewBus(events.Options{QueueSize: cfg.Session.QueueSize, ParseWorkers: cfg.Session.ParseWorkers}),
		index:           index,
		compiler:        comp,
		nav:             navigation.NewService(units, model.AllSourceDirs()),
		history:         navigation.NewHistory(cfg.Session.HistoryCapacity),
		newFileWatcher:  opts.NewFileWatcher,
		newGitWatcher:   opts.NewGitWatcher,
		compileOnChange: opts.CompileOnChange,
		include:         compileIncludes(cfg.Project.Include),
		stop:            make(chan struct{}),
	}
	if s.newFileWatcher == nil {
		s.newFileWatcher = watcher.NewFileWatcher
	}
	if s.newGitWatcher == nil {
		s.newGitWatcher = watcher.NewGitWatcher
	}
	return s, nil
}

func openIndex(cfg *config.Config, dbPath string) (*classindex.Index, error) {
	var opts []classindex.Option
	var store *classindex.Store
	if cfg.Cache.ClassIndex {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		var err error
		store, err = classindex.OpenStore(dbPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, classindex.WithStore(store))
	}

	index, err := classindex.New(opts...)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	if n, err := index.Load(); err != nil {
		log.Printf("Warning: ignoring persisted class index: %v", err)
	} else if n > 0 {
		log.Printf("Loaded %d classes from %s", n, dbPath)
	}
	return index, nil
}

// registerSources adds class locations to the index. Output directories come
// first so compiled classes shadow jars.
func registerSources(index *classindex.Index, m *project.Model) {
	for _, dir := range []string{m.OutputDir, m.TestOutputDir} {
		if dir != "" {
			index.AddDirectory(dir)
		}
	}
	for _, mod := range m.Modules {
		if mod.OutputDir != "" {
			index.AddDirectory(mod.OutputDir)
		}
	}
	for _, dir := range m.AllSourceDirs() {
		index.AddDirectory(dir)
	}
	for _, jar := range m.Jars(true) {
		index.AddJar(jar)
	}
}

// Start registers the bus subscribers, starts the bus and the file watcher,
// and queues the initial class index build. Calling Start twice is a no-op.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return events.ErrBusClosed
	}
	if s.started {
		return nil
	}

	if err := s.subscribe(); err != nil {
		return err
	}
	if err := s.bus.Start(); err != nil {
		return err
	}

	if s.cfg.Watch.Enabled {
		if err := s.startWatching(ctx); err != nil {
			s.bus.Shutdown(s.cfg.Session.ShutdownTimeout)
			return err
		}
	}

	s.started = true
	s.sweeper.Add(1)
	go s.sweep()

	return s.bus.CacheRebuild.Publish(events.NewRebuildRequest("start", uuid.Nil))
}

func (s *Session) startWatching(ctx context.Context) error {
	var dirs []string
	for _, dir := range s.model.AllSourceDirs() {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
	}
	if len(dirs) == 0 {
		log.Printf("Warning: no source directories to watch under %s", s.model.Root)
		return nil
	}

	files, err := s.newFileWatcher(dirs, s.cfg.ToWatchOptions())
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	var git watcher.GitWatcher
	if s.cfg.Watch.Git {
		git, err = s.newGitWatcher(s.model.Root)
		if err != nil {
			// Not a git checkout; branch switches simply go unnoticed.
			if !errors.Is(err, watcher.ErrNotGitRepository) {
				log.Printf("Warning: branch watching disabled: %v", err)
			}
			git = nil
		}
	}

	s.coordinator = watcher.NewCoordinator(files, git, s)
	return s.coordinator.Start(ctx)
}

// sweep evicts idle units between accesses.
func (s *Session) sweep() {
	defer s.sweeper.Done()
	ticker := time.NewTicker(s.cfg.Session.IdleEviction)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.units.Sweep(); n > 0 {
				log.Printf("Evicted %d idle units", n)
			}
		}
	}
}

// Shutdown stops the watcher, drains the bus for at most timeout and closes
// the class index.
func (s *Session) Shutdown(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.coordinator != nil {
		s.coordinator.Stop()
	}
	if s.started {
		close(s.stop)
		s.sweeper.Wait()
	}

	var errs []error
	if err := s.bus.Shutdown(timeout); err != nil {
		errs = append(errs, err)
	}
	if err := s.index.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close class index: %w", err))
	}
	return errors.Join(errs...)
}

// Quiesce waits until every queued event has been handled.
func (s *Session) Quiesce(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return ErrNotStarted
	}
	return s.bus.Quiesce(ctx)
}

// Root returns the project root.
func (s *Session) Root() string {
	return s.model.Root
}

// CacheDir returns the project's own directory under the cache root, holding
// the persisted model and class table.
func (s *Session) CacheDir() string {
	return s.cacheDir
}

// Project returns a copy of the loaded project model.
func (s *Session) Project() *project.Model {
	return s.model.Clone()
}

// Units exposes the parse cache.
func (s *Session) Units() *parsecache.Cache {
	return s.units
}

// Index exposes the class index.
func (s *Session) Index() *classindex.Index {
	return s.index
}

// classIndex returns the class index, building it first when the project
// has never been indexed. A failed build is logged and whatever the index
// holds is used.
func (s *Session) classIndex(ctx context.Context) *classindex.Index {
	if err := s.index.EnsureBuilt(ctx); err != nil {
		log.Printf("Warning: class index build failed: %v", err)
	}
	return s.index
}

// DependentJars returns every resolved dependency jar, test scope included.
func (s *Session) DependentJars() []string {
	return s.model.Jars(true)
}

// OutputDirectory returns the main class output directory.
func (s *Session) OutputDirectory() string {
	return s.model.OutputDir
}

// TestOutputDirectory returns the test class output directory.
func (s *Session) TestOutputDirectory() string {
	return s.model.TestOutputDir
}

// ClearCache drops every parsed unit, the jump history and the persisted
// project model. The in-memory model stays loaded.
func (s *Session) ClearCache() error {
	defer s.track("clear_cache")()

	s.units.Clear()
	s.history.Clear()
	if err := s.projects.Clear(s.model.Root); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear project cache: %w", err)
	}
	return nil
}

// normalize resolves path against the project root. Cache keys are always
// clean absolute paths.
func (s *Session) normalize(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.model.Root, path)
	}
	return filepath.Clean(path)
}

// javaFile normalizes path and reports whether it names a Java source.
func (s *Session) javaFile(path string) (string, bool) {
	path = s.normalize(path)
	return path, source.IsJavaFile(path)
}

// track takes the session lock and records the operation's latency. Use as
// defer s.track("op")().
func (s *Session) track(op string) func() {
	s.mu.Lock()
	start := time.Now()
	return func() {
		metrics.SessionOperations.WithLabelValues(op).Observe(time.Since(start).Seconds())
		s.mu.Unlock()
	}
}
