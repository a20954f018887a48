package watcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ErrNotGitRepository indicates no git metadata was found for a project root.
var ErrNotGitRepository = errors.New("not a git working tree")

// DetachedHead is reported as the branch name when HEAD points at a commit.
const DetachedHead = "detached"

type gitWatcher struct {
	gitDir   string
	headPath string
	watcher  *fsnotify.Watcher

	mu     sync.Mutex
	branch string

	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
	stopOnce sync.Once
}

// NewGitWatcher watches the HEAD of the working tree rooted at root. A
// .git file (linked worktree or submodule) is followed to its gitdir.
func NewGitWatcher(root string) (GitWatcher, error) {
	gitDir, err := FindGitDir(root)
	if err != nil {
		return nil, err
	}
	headPath := filepath.Join(gitDir, "HEAD")

	branch, err := readBranch(headPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", headPath, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &gitWatcher{
		gitDir:   gitDir,
		headPath: headPath,
		watcher:  w,
		branch:   branch,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// FindGitDir resolves the git metadata directory for root.
func FindGitDir(root string) (string, error) {
	dotGit := filepath.Join(root, ".git")
	info, err := os.Stat(dotGit)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotGitRepository, root)
	}
	if info.IsDir() {
		return dotGit, nil
	}

	data, err := os.ReadFile(dotGit)
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(string(data))
	if !strings.HasPrefix(line, "gitdir:") {
		return "", fmt.Errorf("%w: malformed %s", ErrNotGitRepository, dotGit)
	}
	dir := strings.TrimSpace(strings.TrimPrefix(line, "gitdir:"))
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	return filepath.Clean(dir), nil
}

// Start watches the git directory rather than HEAD itself, since git
// replaces HEAD by rename.
func (gw *gitWatcher) Start(ctx context.Context, callback func(oldBranch, newBranch string)) error {
	if err := gw.watcher.Add(gw.gitDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", gw.gitDir, err)
	}
	gw.mu.Lock()
	gw.started = true
	gw.mu.Unlock()

	go gw.watch(ctx, callback)
	return nil
}

func (gw *gitWatcher) Stop() error {
	var err error
	gw.stopOnce.Do(func() {
		close(gw.stopCh)
		gw.mu.Lock()
		started := gw.started
		gw.mu.Unlock()
		if started {
			<-gw.doneCh
		}
		err = gw.watcher.Close()
	})
	return err
}

func (gw *gitWatcher) watch(ctx context.Context, callback func(oldBranch, newBranch string)) {
	defer close(gw.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-gw.stopCh:
			return

		case event, ok := <-gw.watcher.Events:
			if !ok {
				return
			}
			if event.Name != gw.headPath || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			gw.check(callback)

		case err, ok := <-gw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Warning: git watcher error: %v", err)
		}
	}
}

func (gw *gitWatcher) check(callback func(oldBranch, newBranch string)) {
	next, err := readBranch(gw.headPath)
	if err != nil {
		log.Printf("Warning: failed to read %s: %v", gw.headPath, err)
		return
	}

	gw.mu.Lock()
	prev := gw.branch
	gw.branch = next
	gw.mu.Unlock()
	if prev == next {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Warning: branch switch callback panic: %v", r)
		}
	}()
	callback(prev, next)
}

func readBranch(headPath string) (string, error) {
	content, err := os.ReadFile(headPath)
	if err != nil {
		return "", err
	}
	return parseBranch(string(content)), nil
}

// parseBranch returns the branch named by HEAD content, or DetachedHead.
func parseBranch(content string) string {
	line := strings.TrimSpace(content)
	if ref, ok := strings.CutPrefix(line, "ref:"); ok {
		ref = strings.TrimSpace(ref)
		return strings.TrimPrefix(ref, "refs/heads/")
	}
	if isCommitHash(line) {
		return DetachedHead
	}
	return line
}

func isCommitHash(s string) bool {
	if len(s) != 40 && len(s) != 64 {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}
