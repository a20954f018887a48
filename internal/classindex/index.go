// Package classindex answers "which classes are called X" over the project's
// output directories, source roots and dependency jars.
//
// The index is rebuilt wholesale by CreateClassIndexes. Searches read an
// immutable snapshot, so a rebuild never blocks readers for longer than a
// pointer swap.
package classindex

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/maypok86/otter"

	"github.com/mvp-joe/javalens/internal/metrics"
	"github.com/mvp-joe/javalens/internal/source"
)

// Class is one indexed class and where it was found.
type Class struct {
	FQCN   string
	Origin string // directory or jar
}

// SimpleName returns the last segment of the class name.
func (c Class) SimpleName() string {
	return source.SimpleName(c.FQCN)
}

// Package returns the leading lowercase segments of the name, which is the
// package for conventionally named classes.
func (c Class) Package() string {
	parts := strings.Split(c.FQCN, ".")
	i := 0
	for i < len(parts)-1 && parts[i] != "" && !isUpper(parts[i][0]) {
		i++
	}
	return strings.Join(parts[:i], ".")
}

func isUpper(b byte) bool {
	return b >= 'A' && b <= 'Z'
}

// snapshot is an immutable view of the index.
type snapshot struct {
	gen       uint64
	classes   map[string]string   // fqcn -> origin
	bySimple  map[string][]string // simple name -> sorted fqcns
	byPackage map[string][]string // package -> sorted fqcns
	names     []string            // sorted distinct simple names
}

func newSnapshot(gen uint64, classes map[string]string) *snapshot {
	s := &snapshot{
		gen:       gen,
		classes:   classes,
		bySimple:  make(map[string][]string),
		byPackage: make(map[string][]string),
	}
	for fqcn, origin := range classes {
		c := Class{FQCN: fqcn, Origin: origin}
		simple := c.SimpleName()
		if _, ok := s.bySimple[simple]; !ok {
			s.names = append(s.names, simple)
		}
		s.bySimple[simple] = append(s.bySimple[simple], fqcn)
		if pkg := c.Package(); source.Qualify(pkg, simple) == fqcn {
			s.byPackage[pkg] = append(s.byPackage[pkg], fqcn)
		}
	}
	for _, v := range s.bySimple {
		sort.Strings(v)
	}
	for _, v := range s.byPackage {
		sort.Strings(v)
	}
	sort.Strings(s.names)
	return s
}

// Index is the class-name index. Sources are registered with AddDirectory
// and AddJar and scanned by CreateClassIndexes.
type Index struct {
	mu   sync.Mutex
	dirs []string
	jars []string

	rebuild sync.Mutex
	viewMu  sync.RWMutex
	view    *snapshot
	builtAt time.Time // zero until built or loaded from a built store

	store *Store
	memo  otter.Cache[string, []string]
}

// Option configures an Index.
type Option func(*options)

type options struct {
	store   *Store
	memoTTL time.Duration
	memoCap int
}

// WithStore persists rebuilt indexes and allows Load.
func WithStore(s *Store) Option {
	return func(o *options) { o.store = s }
}

// WithMemo sizes the search-result memo.
func WithMemo(capacity int, ttl time.Duration) Option {
	return func(o *options) {
		if capacity > 0 {
			o.memoCap = capacity
		}
		if ttl > 0 {
			o.memoTTL = ttl
		}
	}
}

// New creates an empty index.
func New(opts ...Option) (*Index, error) {
	o := options{memoCap: 1024, memoTTL: 5 * time.Minute}
	for _, opt := range opts {
		opt(&o)
	}

	memo, err := otter.MustBuilder[string, []string](o.memoCap).
		WithTTL(o.memoTTL).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build search memo: %w", err)
	}

	return &Index{
		view:  newSnapshot(0, map[string]string{}),
		store: o.store,
		memo:  memo,
	}, nil
}

// AddDirectory registers a class or source directory. Duplicates are
// ignored; nothing is scanned until CreateClassIndexes.
func (x *Index) AddDirectory(dir string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.dirs = addUnique(x.dirs, dir)
}

// AddJar registers a jar file.
func (x *Index) AddJar(path string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.jars = addUnique(x.jars, path)
}

func addUnique(list []string, item string) []string {
	for _, v := range list {
		if v == item {
			return list
		}
	}
	return append(list, item)
}

// Sources returns the registered directories and jars.
func (x *Index) Sources() (dirs, jars []string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]string(nil), x.dirs...), append([]string(nil), x.jars...)
}

// CreateClassIndexes rescans every registered source and replaces the index.
// Unreadable jars are logged and skipped. With a store the result is
// persisted; a persistence failure is returned after the in-memory index has
// already been replaced.
func (x *Index) CreateClassIndexes(ctx context.Context) error {
	x.rebuild.Lock()
	defer x.rebuild.Unlock()
	return x.build(ctx)
}

// EnsureBuilt builds the index unless it has already been built or loaded
// from a store that holds a finished build. Concurrent callers share one
// build.
func (x *Index) EnsureBuilt(ctx context.Context) error {
	x.rebuild.Lock()
	defer x.rebuild.Unlock()
	if _, ok := x.BuiltAt(); ok {
		return nil
	}
	return x.build(ctx)
}

func (x *Index) build(ctx context.Context) error {
	dirs, jars := x.Sources()
	classes := make(map[string]string)
	emit := func(fqcn, origin string) {
		// First registration wins so output directories shadow jars.
		if _, ok := classes[fqcn]; !ok {
			classes[fqcn] = origin
		}
	}

	for _, dir := range dirs {
		if err := scanDirectory(ctx, dir, emit); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("Warning: failed to scan %s: %v", dir, err)
		}
	}
	for _, jar := range jars {
		if err := scanJar(ctx, jar, emit); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("Warning: skipping jar %s: %v", jar, err)
		}
	}

	x.swap(classes, time.Now())

	if x.store != nil {
		if err := x.store.ReplaceAll(x.Classes()); err != nil {
			return fmt.Errorf("failed to persist class index: %w", err)
		}
	}
	return nil
}

// Load fills the index from the store and returns how many classes it
// read. Without a store it does nothing.
func (x *Index) Load() (int, error) {
	if x.store == nil {
		return 0, nil
	}
	stored, err := x.store.All()
	if err != nil {
		return 0, err
	}
	classes := make(map[string]string, len(stored))
	for _, c := range stored {
		classes[c.FQCN] = c.Origin
	}
	// A store that was never filled leaves the index unbuilt.
	builtAt, _ := x.store.BuiltAt()
	x.swap(classes, builtAt)
	return len(classes), nil
}

// BuiltAt reports when the current contents were built, possibly by an
// earlier session whose result was loaded from the store.
func (x *Index) BuiltAt() (time.Time, bool) {
	x.viewMu.RLock()
	defer x.viewMu.RUnlock()
	return x.builtAt, !x.builtAt.IsZero()
}

func (x *Index) swap(classes map[string]string, builtAt time.Time) {
	x.viewMu.Lock()
	x.view = newSnapshot(x.view.gen+1, classes)
	x.builtAt = builtAt
	x.viewMu.Unlock()
	x.memo.Clear()
	metrics.ClassIndexSize.Set(float64(len(classes)))
}

func (x *Index) current() *snapshot {
	x.viewMu.RLock()
	defer x.viewMu.RUnlock()
	return x.view
}

// Search returns the fqcns whose simple name is name, sorted.
func (x *Index) Search(name string) []string {
	return append([]string(nil), x.current().bySimple[name]...)
}

// SearchPrefix returns fqcns whose simple name starts with prefix, ordered by
// simple name then fqcn, at most limit results (limit <= 0 means all).
func (x *Index) SearchPrefix(prefix string, limit int) []string {
	snap := x.current()
	// Keys carry the snapshot generation so results from a replaced index are never served.
	key := fmt.Sprintf("%d\x00%s\x00%d", snap.gen, prefix, limit)
	if v, ok := x.memo.Get(key); ok {
		return append([]string(nil), v...)
	}

	start := sort.SearchStrings(snap.names, prefix)
	var out []string
	for _, name := range snap.names[start:] {
		if !strings.HasPrefix(name, prefix) {
			break
		}
		out = append(out, snap.bySimple[name]...)
		if limit > 0 && len(out) >= limit {
			out = out[:limit]
			break
		}
	}

	x.memo.Set(key, out)
	return append([]string(nil), out...)
}

// InPackage returns the classes declared directly in pkg.
func (x *Index) InPackage(pkg string) []string {
	return append([]string(nil), x.current().byPackage[pkg]...)
}

// Contains reports whether fqcn is indexed.
func (x *Index) Contains(fqcn string) bool {
	_, ok := x.current().classes[fqcn]
	return ok
}

// Origin returns where fqcn was found.
func (x *Index) Origin(fqcn string) (string, bool) {
	origin, ok := x.current().classes[fqcn]
	return origin, ok
}

// Len returns the number of indexed classes.
func (x *Index) Len() int {
	return len(x.current().classes)
}

// Classes returns every indexed class sorted by fqcn.
func (x *Index) Classes() []Class {
	snap := x.current()
	out := make([]Class, 0, len(snap.classes))
	for fqcn, origin := range snap.classes {
		out = append(out, Class{FQCN: fqcn, Origin: origin})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FQCN < out[j].FQCN })
	return out
}

// Close releases the memo and the store.
func (x *Index) Close() error {
	x.memo.Close()
	if x.store != nil {
		return x.store.Close()
	}
	return nil
}
