package session

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/mvp-joe/javalens/internal/events"
	"github.com/mvp-joe/javalens/internal/metrics"
	"github.com/mvp-joe/javalens/internal/source"
	"github.com/mvp-joe/javalens/internal/watcher"
)

var _ watcher.Sink = (*Session)(nil)

// subscribe wires the caches to the bus. Handlers run on topic workers and
// must never take the session lock.
func (s *Session) subscribe() error {
	if err := s.bus.FileWatch.Subscribe(s.onFileEvent); err != nil {
		return err
	}
	if err := s.bus.Parse.Subscribe(s.onParse); err != nil {
		return err
	}
	if err := s.bus.Compile.Subscribe(s.onCompile); err != nil {
		return err
	}
	return s.bus.CacheRebuild.Subscribe(s.onRebuild)
}

// onFileEvent drops the stale unit before any reparse is queued, so a parse
// request for a file always observes its invalidation.
func (s *Session) onFileEvent(ctx context.Context, ev events.FileEvent) error {
	if !source.IsJavaFile(ev.Path) {
		return nil
	}
	s.units.Invalidate(ev.Path)

	if ev.Kind == events.Create || (ev.Kind == events.Modify && s.cfg.Session.EagerReparse) {
		return s.bus.Parse.Publish(events.NewParseRequest(ev.Path, ev.ID))
	}
	return nil
}

func (s *Session) onParse(ctx context.Context, req events.ParseRequest) error {
	_, err := s.units.Get(ctx, req.Path)
	return err
}

func (s *Session) onCompile(ctx context.Context, req events.CompileRequest) error {
	var plan []compileStep
	if req.Project() {
		var err error
		if plan, err = s.projectPlan(); err != nil {
			return err
		}
	} else {
		plan = s.filePlan(req.Paths)
	}

	res, err := s.runPlan(ctx, plan)
	if err != nil {
		return err
	}
	if !res.Success {
		log.Printf("Compile %s failed with %d errors", req.ID, len(res.Errors()))
		return nil
	}
	return s.requestRebuild("compile", req.ID)
}

func (s *Session) onRebuild(ctx context.Context, req events.RebuildRequest) error {
	if err := s.index.CreateClassIndexes(ctx); err != nil {
		return fmt.Errorf("class index rebuild (%s): %w", req.Reason, err)
	}
	if err := s.projects.Save(); err != nil {
		return fmt.Errorf("failed to save project model: %w", err)
	}
	return nil
}

func (s *Session) requestRebuild(reason string, cause uuid.UUID) error {
	return s.bus.CacheRebuild.Publish(events.NewRebuildRequest(reason, cause))
}

// FilesChanged publishes one file-watch event per change.
func (s *Session) FilesChanged(ctx context.Context, changes []watcher.Change) {
	var changed []string
	for _, c := range changes {
		if err := s.bus.FileWatch.Publish(events.NewFileEvent(c.Path, c.Kind)); err != nil {
			log.Printf("Warning: dropping change to %s: %v", c.Path, err)
			continue
		}
		if c.Kind != events.Delete && source.IsJavaFile(c.Path) {
			changed = append(changed, c.Path)
		}
	}

	if s.compileOnChange && len(changed) > 0 {
		if err := s.bus.Compile.Publish(events.NewCompileRequest(changed...)); err != nil {
			log.Printf("Warning: failed to queue compile: %v", err)
		}
	}
}

// BranchSwitched drops every parsed unit and rebuilds the class index, since
// a checkout can rewrite any file.
func (s *Session) BranchSwitched(ctx context.Context, oldBranch, newBranch string) {
	metrics.BranchSwitches.Inc()
	s.units.Clear()
	if err := s.requestRebuild(fmt.Sprintf("branch %s -> %s", oldBranch, newBranch), uuid.Nil); err != nil {
		log.Printf("Warning: failed to queue rebuild after branch switch: %v", err)
	}
}
