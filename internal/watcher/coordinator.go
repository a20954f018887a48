package watcher

import (
	"context"
	"fmt"
	"log"
)

// Coordinator routes file changes and branch switches to a Sink. During a
// branch switch the file watcher is paused so the checkout's churn arrives
// as a single batch after the sink has reacted to the switch.
type Coordinator struct {
	files FileWatcher
	git   GitWatcher // optional
	sink  Sink

	ctx context.Context
}

// NewCoordinator creates a coordinator. git may be nil.
func NewCoordinator(files FileWatcher, git GitWatcher, sink Sink) *Coordinator {
	return &Coordinator{files: files, git: git, sink: sink}
}

// Start starts both watchers. It does not block; call Stop to release them.
func (c *Coordinator) Start(ctx context.Context) error {
	c.ctx = ctx

	if err := c.files.Start(ctx, c.handleFileChange); err != nil {
		return fmt.Errorf("file watcher: %w", err)
	}
	if c.git != nil {
		if err := c.git.Start(ctx, c.handleBranchSwitch); err != nil {
			c.Stop()
			return fmt.Errorf("git watcher: %w", err)
		}
	}
	return nil
}

// Stop stops both watchers, logging failures.
func (c *Coordinator) Stop() {
	if c.git != nil {
		if err := c.git.Stop(); err != nil {
			log.Printf("Warning: git watcher stop failed: %v", err)
		}
	}
	if err := c.files.Stop(); err != nil {
		log.Printf("Warning: file watcher stop failed: %v", err)
	}
}

func (c *Coordinator) handleBranchSwitch(oldBranch, newBranch string) {
	log.Printf("Branch switch detected: %s -> %s", oldBranch, newBranch)

	c.files.Pause()
	defer c.files.Resume()

	c.sink.BranchSwitched(c.ctx, oldBranch, newBranch)
}

func (c *Coordinator) handleFileChange(changes []Change) {
	if len(changes) == 0 {
		return
	}
	c.sink.FilesChanged(c.ctx, changes)
}
