package events

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/mvp-joe/javalens/internal/metrics"
)

var (
	// ErrBusStarted indicates a subscription after the bus started
	ErrBusStarted = errors.New("event bus already started")

	// ErrBusClosed indicates a publish after shutdown
	ErrBusClosed = errors.New("event bus closed")
)

// Handler processes one event. Returned errors are logged and counted; they
// never stop delivery to other subscribers or later events.
type Handler[E any] func(ctx context.Context, event E) error

// Topic is one typed channel of the bus.
type Topic[E any] struct {
	name    string
	workers int
	queue   chan E
	pending *pending

	mu       sync.RWMutex
	handlers []Handler[E]
	started  bool
	closed   bool

	wg sync.WaitGroup
}

func newTopic[E any](name string, workers, queueSize int, p *pending) *Topic[E] {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Topic[E]{
		name:    name,
		workers: workers,
		queue:   make(chan E, queueSize),
		pending: p,
	}
}

// Name returns the topic name.
func (t *Topic[E]) Name() string {
	return t.name
}

// Subscribe registers h. Subscriptions must be made before the bus starts.
func (t *Topic[E]) Subscribe(h Handler[E]) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started || t.closed {
		return fmt.Errorf("%w: cannot subscribe to %s", ErrBusStarted, t.name)
	}
	t.handlers = append(t.handlers, h)
	return nil
}

// Publish enqueues event. Events published before the bus starts are held
// until it does. Publish blocks while the queue is full.
func (t *Topic[E]) Publish(event E) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return fmt.Errorf("%w: %s", ErrBusClosed, t.name)
	}
	t.pending.add()
	t.queue <- event
	metrics.EventsPublished.WithLabelValues(t.name).Inc()
	return nil
}

func (t *Topic[E]) start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return
	}
	t.started = true
	handlers := append([]Handler[E](nil), t.handlers...)

	for i := 0; i < t.workers; i++ {
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			for event := range t.queue {
				t.deliver(ctx, handlers, event)
				t.pending.done()
			}
		}()
	}
}

func (t *Topic[E]) deliver(ctx context.Context, handlers []Handler[E], event E) {
	for _, h := range handlers {
		if err := t.invoke(ctx, h, event); err != nil {
			metrics.SubscriberErrors.WithLabelValues(t.name).Inc()
			log.Printf("Warning: %s subscriber failed: %v", t.name, err)
		}
	}
}

func (t *Topic[E]) invoke(ctx context.Context, h Handler[E], event E) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, event)
}

// close stops accepting events. Queued events are still delivered.
func (t *Topic[E]) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	close(t.queue)
	if !t.started {
		// Nobody will drain the queue; release its pending count.
		for range t.queue {
			t.pending.done()
		}
	}
}

// wait blocks until the workers have drained the queue.
func (t *Topic[E]) wait() {
	t.wg.Wait()
}

// pending counts events published but not yet fully delivered, across all
// topics. A handler that publishes a follow-up event does so before its own
// event is marked done, so the count cannot reach zero mid-cascade.
type pending struct {
	mu      sync.Mutex
	n       int
	waiters []chan struct{}
}

func (p *pending) add() {
	p.mu.Lock()
	p.n++
	p.mu.Unlock()
}

func (p *pending) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n--
	if p.n == 0 {
		for _, w := range p.waiters {
			close(w)
		}
		p.waiters = nil
	}
}

func (p *pending) wait(ctx context.Context) error {
	p.mu.Lock()
	if p.n == 0 {
		p.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	p.waiters = append(p.waiters, ch)
	p.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
