package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrShutdownTimeout indicates queued events were still being delivered
// when the shutdown timeout expired.
var ErrShutdownTimeout = errors.New("event bus shutdown timed out")

// Topic names, also used as metric labels.
const (
	TopicFileWatch    = "file_watch"
	TopicParse        = "parse"
	TopicCompile      = "compile"
	TopicCacheRebuild = "cache_rebuild"
)

// Options sizes the bus.
type Options struct {
	QueueSize    int // per topic; default 256
	ParseWorkers int // default 4
}

// Bus owns the four session topics. FileWatch, Compile and CacheRebuild
// deliver with a single worker, so their events are handled in publish
// order. Parse uses several workers.
type Bus struct {
	FileWatch    *Topic[FileEvent]
	Parse        *Topic[ParseRequest]
	Compile      *Topic[CompileRequest]
	CacheRebuild *Topic[RebuildRequest]

	pending *pending
	ctx     context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewBus creates a bus with no subscribers.
func NewBus(opts Options) *Bus {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.ParseWorkers <= 0 {
		opts.ParseWorkers = 4
	}

	p := &pending{}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		FileWatch:    newTopic[FileEvent](TopicFileWatch, 1, opts.QueueSize, p),
		Parse:        newTopic[ParseRequest](TopicParse, opts.ParseWorkers, opts.QueueSize, p),
		Compile:      newTopic[CompileRequest](TopicCompile, 1, opts.QueueSize, p),
		CacheRebuild: newTopic[RebuildRequest](TopicCacheRebuild, 1, opts.QueueSize, p),
		pending:      p,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start launches the topic workers. Subscriptions are frozen from here on.
func (b *Bus) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	if b.started {
		return nil
	}
	b.started = true

	b.FileWatch.start(b.ctx)
	b.Parse.start(b.ctx)
	b.Compile.start(b.ctx)
	b.CacheRebuild.start(b.ctx)
	return nil
}

// Quiesce blocks until every published event, including events published
// by subscribers while handling others, has been delivered.
func (b *Bus) Quiesce(ctx context.Context) error {
	return b.pending.wait(ctx)
}

// Shutdown stops accepting events and drains the topics in pipeline order
// (file watch, parse, compile, cache rebuild) so follow-up events published
// during the drain are still delivered. It waits at most timeout; on expiry
// handlers' contexts are cancelled and ErrShutdownTimeout is returned.
func (b *Bus) Shutdown(timeout time.Duration) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.FileWatch.close()
		b.FileWatch.wait()
		b.Parse.close()
		b.Parse.wait()
		b.Compile.close()
		b.Compile.wait()
		b.CacheRebuild.close()
		b.CacheRebuild.wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		b.cancel()
		return nil
	case <-timer.C:
		b.cancel()
		return fmt.Errorf("%w after %s", ErrShutdownTimeout, timeout)
	}
}
