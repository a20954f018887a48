package watcher

import (
	"context"

	"github.com/mvp-joe/javalens/internal/events"
)

// Change is one coalesced file-system change.
type Change struct {
	Path string
	Kind events.ChangeKind
}

// FileWatcher monitors source files for changes with debouncing and pause/resume support.
type FileWatcher interface {
	// Start begins watching source directories, calling callback with debounced changes.
	Start(ctx context.Context, callback func(changes []Change)) error

	// Stop stops the file watcher and cleans up resources.
	Stop() error

	// Pause stops firing callbacks but continues accumulating changes.
	Pause()

	// Resume resumes firing callbacks. If changes accumulated during pause, fires immediately.
	Resume()
}

// GitWatcher reports branch switches in a git working tree.
type GitWatcher interface {
	Start(ctx context.Context, callback func(oldBranch, newBranch string)) error
	Stop() error
}

// Sink receives what the coordinator observes.
type Sink interface {
	// FilesChanged is called with each debounced batch of changes.
	FilesChanged(ctx context.Context, changes []Change)

	// BranchSwitched is called while file callbacks are paused, so changes
	// caused by the checkout are delivered afterwards as one batch.
	BranchSwitched(ctx context.Context, oldBranch, newBranch string)
}
