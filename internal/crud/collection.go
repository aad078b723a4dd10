// Package crud keeps the admin list views: a fetched list of records that
// can shrink by deletion.
package crud

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/atikulmunna/pulse/internal/api"
	"github.com/atikulmunna/pulse/internal/model"
)

// Backend is the subset of the API client a Collection needs.
type Backend interface {
	GetJSON(ctx context.Context, path string, out any) error
	Delete(ctx context.Context, path string) error
}

// Collection is one list view backed by path.
type Collection[T model.Identified] struct {
	backend Backend
	path    string
	logger  *zap.Logger

	mu     sync.RWMutex
	items  []T
	gen    uint64
	loaded bool
}

// NewCollection creates an empty view of path.
func NewCollection[T model.Identified](b Backend, path string, logger *zap.Logger) *Collection[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collection[T]{backend: b, path: path, logger: logger}
}

// Path returns the collection endpoint.
func (c *Collection[T]) Path() string { return c.path }

// Load fetches the list. When a newer Load started meanwhile, this result
// is dropped. On error the previous list is kept.
func (c *Collection[T]) Load(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	var items []T
	if err := c.backend.GetJSON(ctx, c.path, &items); err != nil {
		return fmt.Errorf("load %s: %w", c.path, err)
	}
	if items == nil {
		items = []T{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.logger.Debug("discarding superseded load", zap.String("path", c.path))
		return nil
	}
	c.items = items
	c.loaded = true
	return nil
}

// Items returns a copy of the current list.
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Loaded reports whether a Load has succeeded.
func (c *Collection[T]) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Empty reports whether the list has no items.
func (c *Collection[T]) Empty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items) == 0
}

// Delete removes id on the server and, only once that succeeds, from the
// local list. Every item carrying id is removed.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	if err := c.backend.Delete(ctx, api.ItemPath(c.path, id)); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.items[:0:0]
	for _, it := range c.items {
		if it.Key() != id {
			kept = append(kept, it)
		}
	}
	c.items = kept
	c.logger.Info("record deleted", zap.String("path", c.path), zap.String("id", id))
	return nil
}
