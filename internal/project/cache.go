package project

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/mvp-joe/javalens/internal/metrics"
)

// Cache loads project models, reusing a persisted copy when its identity
// still matches the project on disk.
type Cache struct {
	cacheRoot string
	loaders   map[Kind]Loader
	fastBoot  bool
	overlay   Overlay

	mu    sync.Mutex
	base  *Model // last loaded model, before the overlay
	store *Store
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithFastBoot enables reading and writing the persisted model.
func WithFastBoot(enabled bool) CacheOption {
	return func(c *Cache) { c.fastBoot = enabled }
}

// WithOverlay sets the configuration merged over every loaded model.
func WithOverlay(o Overlay) CacheOption {
	return func(c *Cache) { c.overlay = o }
}

// WithLoaders replaces the loaders used on a cache miss.
func WithLoaders(loaders map[Kind]Loader) CacheOption {
	return func(c *Cache) { c.loaders = loaders }
}

// NewCache creates a project cache persisting under cacheRoot. Fast boot is
// on by default.
func NewCache(cacheRoot string, opts ...CacheOption) *Cache {
	c := &Cache{
		cacheRoot: cacheRoot,
		loaders:   DefaultLoaders(""),
		fastBoot:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load returns the model for root. With fast boot a persisted model whose
// identity matches is returned without invoking the loader; a corrupt or
// stale persisted model is logged and rebuilt. Loader failures are returned
// as ErrProjectLoadFailed.
func (c *Cache) Load(ctx context.Context, root string, kind Kind) (*Model, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProjectLoadFailed, err)
	}

	descriptor, err := DescriptorPath(root, kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProjectLoadFailed, err)
	}
	id, err := Identity(root, descriptor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProjectLoadFailed, err)
	}

	store := NewStore(c.cacheRoot, root)

	if c.fastBoot {
		if model, err := c.readPersisted(store, id); err == nil {
			metrics.ProjectCacheLoads.WithLabelValues("hit").Inc()
			return c.remember(store, model), nil
		} else if !errors.Is(err, os.ErrNotExist) {
			log.Printf("Warning: discarding persisted project model %s: %v", store.Path(), err)
		}
	}
	metrics.ProjectCacheLoads.WithLabelValues("miss").Inc()

	loader, ok := c.loaders[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no loader for %s projects", ErrProjectLoadFailed, kind)
	}
	model, err := loader.Load(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProjectLoadFailed, err)
	}
	if model == nil {
		return nil, fmt.Errorf("%w: loader returned no model", ErrProjectLoadFailed)
	}
	model.ID = id
	model.Kind = kind
	model.Root = root
	model.Descriptor = descriptor

	if c.fastBoot {
		if err := store.Write(model); err != nil {
			log.Printf("Warning: failed to persist project model: %v", err)
		}
	}
	return c.remember(store, model), nil
}

func (c *Cache) readPersisted(store *Store, id string) (*Model, error) {
	model, err := store.Read()
	if err != nil {
		if errors.Is(err, ErrCacheCorrupt) {
			metrics.ProjectCacheLoads.WithLabelValues("corrupt").Inc()
		}
		return nil, err
	}
	if model.ID != id {
		metrics.ProjectCacheLoads.WithLabelValues("mismatch").Inc()
		return nil, fmt.Errorf("%w: persisted %.12s, current %.12s", ErrIdentityMismatch, model.ID, id)
	}
	return model, nil
}

func (c *Cache) remember(store *Store, model *Model) *Model {
	c.mu.Lock()
	c.base = model
	c.store = store
	c.mu.Unlock()
	return model.Merge(c.overlay)
}

// Save persists the last loaded model. It does nothing when fast boot is
// off or nothing has been loaded.
func (c *Cache) Save() error {
	if !c.fastBoot {
		return nil
	}
	c.mu.Lock()
	base, store := c.base, c.store
	c.mu.Unlock()
	if base == nil {
		return nil
	}
	return store.Write(base)
}

// Clear removes the persisted model of root.
func (c *Cache) Clear(root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	return NewStore(c.cacheRoot, root).Remove()
}

// Location returns the persisted file for root.
func (c *Cache) Location(root string) string {
	root, _ = filepath.Abs(root)
	return NewStore(c.cacheRoot, root).Path()
}
