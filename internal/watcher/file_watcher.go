package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/mvp-joe/javalens/internal/events"
)

// DefaultDebounce is the quiet period before a batch is delivered.
const DefaultDebounce = 200 * time.Millisecond

// Options configures a FileWatcher.
type Options struct {
	Debounce   time.Duration
	Extensions []string // default .java
	// Ignore holds glob patterns matched against slash-separated paths
	// relative to the watched directory, and against base names.
	Ignore []string
}

// fileWatcher implements FileWatcher interface.
type fileWatcher struct {
	watcher      *fsnotify.Watcher
	roots        []string
	extensions   map[string]bool
	ignore       []glob.Glob
	debounceTime time.Duration
	callback     func(changes []Change)
	ctx          context.Context
	cancel       context.CancelFunc

	pausedMu sync.RWMutex
	paused   bool

	accumulatedMu sync.Mutex
	accumulated   map[string]events.ChangeKind

	timerMu       sync.Mutex
	debounceTimer *time.Timer

	stopOnce sync.Once
	doneCh   chan struct{}
}

// NewFileWatcher creates a watcher over dirs, each watched recursively.
func NewFileWatcher(dirs []string, opts Options) (FileWatcher, error) {
	ignore, err := compileGlobs(opts.Ignore)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	exts := opts.Extensions
	if len(exts) == 0 {
		exts = []string{".java"}
	}
	extMap := make(map[string]bool, len(exts))
	for _, ext := range exts {
		extMap[ext] = true
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw := &fileWatcher{
		watcher:      watcher,
		extensions:   extMap,
		ignore:       ignore,
		debounceTime: debounce,
		accumulated:  make(map[string]events.ChangeKind),
		doneCh:       make(chan struct{}),
	}

	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			watcher.Close()
			return nil, err
		}
		fw.roots = append(fw.roots, abs)
		if err := fw.addDirectoriesRecursively(abs); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	return fw, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// Start begins watching for file changes.
func (fw *fileWatcher) Start(ctx context.Context, callback func(changes []Change)) error {
	if callback == nil {
		return nil
	}

	fw.callback = callback
	fw.ctx, fw.cancel = context.WithCancel(ctx)

	go fw.watch()
	return nil
}

// Stop stops the file watcher.
func (fw *fileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		if fw.cancel != nil {
			fw.cancel()
			<-fw.doneCh
		} else {
			close(fw.doneCh)
		}
		err = fw.watcher.Close()
	})
	return err
}

// Pause stops firing callbacks but continues accumulating changes.
func (fw *fileWatcher) Pause() {
	fw.pausedMu.Lock()
	defer fw.pausedMu.Unlock()
	fw.paused = true
}

// Resume resumes firing callbacks, delivering anything accumulated meanwhile.
func (fw *fileWatcher) Resume() {
	fw.pausedMu.Lock()
	wasPaused := fw.paused
	fw.paused = false
	fw.pausedMu.Unlock()

	if wasPaused {
		fw.flush()
	}
}

func (fw *fileWatcher) watch() {
	defer close(fw.doneCh)

	flushCh := make(chan struct{}, 1)

	for {
		select {
		case <-fw.ctx.Done():
			fw.stopDebounceTimer()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !fw.ignored(event.Name) {
						if err := fw.addDirectoriesRecursively(event.Name); err != nil {
							log.Printf("Warning: failed to watch new directory %s: %v", event.Name, err)
						}
					}
					continue
				}
			}

			kind, ok := fw.classify(event)
			if !ok {
				continue
			}

			fw.accumulatedMu.Lock()
			fw.record(event.Name, kind)
			fw.accumulatedMu.Unlock()

			fw.resetDebounceTimer(flushCh)

		case <-flushCh:
			fw.pausedMu.RLock()
			paused := fw.paused
			fw.pausedMu.RUnlock()
			if !paused {
				fw.flush()
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Warning: file watcher error: %v", err)
		}
	}
}

// record folds kind into the pending change for path. Caller holds accumulatedMu.
func (fw *fileWatcher) record(path string, kind events.ChangeKind) {
	prev, seen := fw.accumulated[path]
	if !seen {
		fw.accumulated[path] = kind
		return
	}
	switch {
	case prev == events.Create && kind == events.Delete:
		// Transient file; nothing to report.
		delete(fw.accumulated, path)
	case prev == events.Create:
		// Still new to observers.
	case prev == events.Delete && kind != events.Delete:
		fw.accumulated[path] = events.Modify
	default:
		fw.accumulated[path] = kind
	}
}

func (fw *fileWatcher) flush() {
	fw.accumulatedMu.Lock()
	if len(fw.accumulated) == 0 {
		fw.accumulatedMu.Unlock()
		return
	}
	changes := make([]Change, 0, len(fw.accumulated))
	for path, kind := range fw.accumulated {
		changes = append(changes, Change{Path: path, Kind: kind})
	}
	fw.accumulated = make(map[string]events.ChangeKind)
	fw.accumulatedMu.Unlock()

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })

	if fw.callback != nil {
		fw.callback(changes)
	}
}

func (fw *fileWatcher) resetDebounceTimer(flushCh chan struct{}) {
	fw.timerMu.Lock()
	defer fw.timerMu.Unlock()

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}
	fw.debounceTimer = time.AfterFunc(fw.debounceTime, func() {
		select {
		case flushCh <- struct{}{}:
		default:
		}
	})
}

func (fw *fileWatcher) stopDebounceTimer() {
	fw.timerMu.Lock()
	defer fw.timerMu.Unlock()

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
		fw.debounceTimer = nil
	}
}

// classify maps an fsnotify event to a change kind. Renames report the old
// name as deleted; the new name arrives as its own create.
func (fw *fileWatcher) classify(event fsnotify.Event) (events.ChangeKind, bool) {
	if !fw.extensions[filepath.Ext(event.Name)] || fw.ignored(event.Name) {
		return 0, false
	}
	switch {
	case event.Op&fsnotify.Create != 0:
		return events.Create, true
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return events.Delete, true
	case event.Op&fsnotify.Write != 0:
		return events.Modify, true
	default:
		return 0, false
	}
}

func (fw *fileWatcher) ignored(path string) bool {
	if len(fw.ignore) == 0 {
		return false
	}
	base := filepath.Base(path)
	for _, root := range fw.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = filepath.ToSlash(rel)
		for _, g := range fw.ignore {
			if g.Match(rel) || g.Match(base) {
				return true
			}
		}
		return false
	}
	for _, g := range fw.ignore {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (fw *fileWatcher) addDirectoriesRecursively(rootPath string) error {
	return filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == rootPath {
				return err
			}
			log.Printf("Warning: error accessing %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != rootPath && fw.ignored(path) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to watch directory %s: %v", path, err)
		}
		return nil
	})
}
