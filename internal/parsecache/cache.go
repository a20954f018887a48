// Package parsecache keeps one parsed source.Unit per file.
//
// Loads are single-flight per key: concurrent Get calls for the same path
// share one read+parse while different paths load in parallel. Entries
// expire after an idle window; expiry is checked passively on access and by
// Sweep, never by timers.
package parsecache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mvp-joe/javalens/internal/metrics"
	"github.com/mvp-joe/javalens/internal/source"
)

var (
	// ErrIO indicates the file could not be read
	ErrIO = errors.New("source file unreadable")

	// ErrParseFailed indicates the parser rejected the file content
	ErrParseFailed = errors.New("parse failed")
)

// DefaultIdleTimeout is how long an untouched unit stays cached.
const DefaultIdleTimeout = 15 * time.Minute

// Parser produces a unit from file contents.
type Parser interface {
	Parse(ctx context.Context, path string, src []byte) (*source.Unit, error)
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Loads     uint64
	Evictions uint64
	Entries   int
}

type entry struct {
	unit       *source.Unit
	lastAccess time.Time
}

// Cache maps normalized absolute paths to parsed units.
type Cache struct {
	parser     Parser
	idle       time.Duration
	sweepEvery time.Duration
	now        func() time.Time
	readFile   func(string) ([]byte, error)

	mu        sync.Mutex
	entries   map[string]*entry
	gens      map[string]uint64 // bumped by Invalidate; loads started under an older gen are not stored
	flights   map[string]int    // loads in progress; gens entries live only while a key has one
	lastSweep time.Time

	group   singleflight.Group
	version atomic.Uint64

	hits      atomic.Uint64
	misses    atomic.Uint64
	loads     atomic.Uint64
	evictions atomic.Uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithIdleTimeout sets the idle window after which entries are evicted.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.idle = d
		}
	}
}

// WithClock replaces time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithReadFile replaces os.ReadFile (tests).
func WithReadFile(read func(string) ([]byte, error)) Option {
	return func(c *Cache) { c.readFile = read }
}

// New creates a cache backed by parser.
func New(parser Parser, opts ...Option) *Cache {
	c := &Cache{
		parser:   parser,
		idle:     DefaultIdleTimeout,
		now:      time.Now,
		readFile: os.ReadFile,
		entries:  make(map[string]*entry),
		gens:     make(map[string]uint64),
		flights:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.sweepEvery = c.idle / 4
	c.lastSweep = c.now()
	return c
}

// Get returns the unit for path, loading it on a miss.
func (c *Cache) Get(ctx context.Context, path string) (*source.Unit, error) {
	key := filepath.Clean(path)

	c.mu.Lock()
	now := c.now()
	c.maybeSweepLocked(now)
	if e, ok := c.entries[key]; ok {
		if c.expired(e, now) {
			c.evictLocked(key, "idle")
		} else {
			e.lastAccess = now
			c.mu.Unlock()
			c.hits.Add(1)
			metrics.ParseCacheHits.Inc()
			return e.unit, nil
		}
	}
	c.mu.Unlock()

	c.misses.Add(1)
	metrics.ParseCacheMisses.Inc()

	// The first caller's context drives the load; waiters share its result.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.load(loadCtx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*source.Unit), nil
}

func (c *Cache) load(ctx context.Context, key string) (*source.Unit, error) {
	c.mu.Lock()
	// A previous flight may have stored the unit between our miss and Do.
	if e, ok := c.entries[key]; ok && !c.expired(e, c.now()) {
		e.lastAccess = c.now()
		c.mu.Unlock()
		return e.unit, nil
	}
	gen := c.gens[key]
	c.flights[key]++
	c.mu.Unlock()

	start := time.Now()
	unit, err := c.parse(ctx, key)
	metrics.ParsingDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ParseFailures.Inc()
		c.mu.Lock()
		c.landLocked(key)
		c.mu.Unlock()
		return nil, err
	}

	c.loads.Add(1)
	unit.Version = c.version.Add(1)

	c.mu.Lock()
	if c.gens[key] == gen {
		c.entries[key] = &entry{unit: unit, lastAccess: c.now()}
	}
	c.landLocked(key)
	c.mu.Unlock()
	return unit, nil
}

// landLocked ends one load of key. The generation is forgotten with the
// last load since only loads in progress compare against it.
func (c *Cache) landLocked(key string) {
	c.flights[key]--
	if c.flights[key] <= 0 {
		delete(c.flights, key)
		delete(c.gens, key)
	}
}

func (c *Cache) parse(ctx context.Context, key string) (*source.Unit, error) {
	src, err := c.readFile(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrIO, key, err)
	}
	unit, err := c.parser.Parse(ctx, key, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	if unit == nil {
		return nil, fmt.Errorf("%w: %s: parser returned no unit", ErrParseFailed, key)
	}
	unit.Path = key
	return unit, nil
}

// Peek returns a cached unit without loading or touching its access time.
func (c *Cache) Peek(path string) (*source.Unit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[filepath.Clean(path)]
	if !ok || c.expired(e, c.now()) {
		return nil, false
	}
	return e.unit, true
}

// Invalidate drops any cached unit for path and detaches in-flight loads so
// the next Get parses afresh. It is idempotent.
func (c *Cache) Invalidate(path string) {
	key := filepath.Clean(path)

	c.mu.Lock()
	if c.flights[key] > 0 {
		c.gens[key]++
	}
	if _, ok := c.entries[key]; ok {
		c.evictLocked(key, "invalidate")
	}
	// Forget under mu so no Get can join the stale flight after this returns.
	c.group.Forget(key)
	c.mu.Unlock()
}

// Clear invalidates every entry.
func (c *Cache) Clear() {
	for _, p := range c.Paths() {
		c.Invalidate(p)
	}
}

// Sweep evicts every entry idle past the window and returns how many.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.now())
}

// Len returns the number of cached units.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Paths returns cached keys, sorted.
func (c *Cache) Paths() []string {
	c.mu.Lock()
	paths := make([]string, 0, len(c.entries))
	for p := range c.entries {
		paths = append(paths, p)
	}
	c.mu.Unlock()
	sort.Strings(paths)
	return paths
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Loads:     c.loads.Load(),
		Evictions: c.evictions.Load(),
		Entries:   c.Len(),
	}
}

func (c *Cache) expired(e *entry, now time.Time) bool {
	return now.Sub(e.lastAccess) >= c.idle
}

func (c *Cache) maybeSweepLocked(now time.Time) {
	if now.Sub(c.lastSweep) < c.sweepEvery {
		return
	}
	c.sweepLocked(now)
}

func (c *Cache) sweepLocked(now time.Time) int {
	c.lastSweep = now
	n := 0
	for key, e := range c.entries {
		if c.expired(e, now) {
			c.evictLocked(key, "idle")
			n++
		}
	}
	return n
}

func (c *Cache) evictLocked(key, reason string) {
	delete(c.entries, key)
	c.evictions.Add(1)
	metrics.ParseCacheEvictions.WithLabelValues(reason).Inc()
}
