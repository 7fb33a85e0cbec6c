// Package testutil provides backend doubles for tests.
package testutil

import (
	"context"
	"iter"
	"sync"

	"github.com/roach88/stash/internal/backend"
)

// CountingBackend wraps a Backend and counts calls per operation.
//
// Thread-safety: counters are guarded by a mutex; the wrapped backend
// provides its own guarantees.
type CountingBackend struct {
	backend.Backend

	mu      sync.Mutex
	loads   int
	saves   int
	deletes int
	lists   int
}

// NewCountingBackend wraps inner. A nil inner gets a fresh backend.Memory.
func NewCountingBackend(inner backend.Backend) *CountingBackend {
	if inner == nil {
		inner = backend.NewMemory()
	}
	return &CountingBackend{Backend: inner}
}

// Load implements backend.Backend.
func (c *CountingBackend) Load(ctx context.Context, kind string, id int64) ([]byte, bool, error) {
	c.mu.Lock()
	c.loads++
	c.mu.Unlock()
	return c.Backend.Load(ctx, kind, id)
}

// Save implements backend.Backend.
func (c *CountingBackend) Save(ctx context.Context, kind string, id int64, payload []byte) error {
	c.mu.Lock()
	c.saves++
	c.mu.Unlock()
	return c.Backend.Save(ctx, kind, id, payload)
}

// Delete implements backend.Backend.
func (c *CountingBackend) Delete(ctx context.Context, kind string, id int64) error {
	c.mu.Lock()
	c.deletes++
	c.mu.Unlock()
	return c.Backend.Delete(ctx, kind, id)
}

// List implements backend.Backend.
func (c *CountingBackend) List(ctx context.Context, kind string) iter.Seq2[int64, error] {
	c.mu.Lock()
	c.lists++
	c.mu.Unlock()
	return c.Backend.List(ctx, kind)
}

// Loads returns the number of Load calls.
func (c *CountingBackend) Loads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}

// Saves returns the number of Save calls.
func (c *CountingBackend) Saves() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}

// Deletes returns the number of Delete calls.
func (c *CountingBackend) Deletes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deletes
}

// Lists returns the number of List calls.
func (c *CountingBackend) Lists() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lists
}

// ResetCounts zeroes every counter.
func (c *CountingBackend) ResetCounts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loads, c.saves, c.deletes, c.lists = 0, 0, 0, 0
}

// FailingBackend wraps a Backend and returns configured errors instead of
// delegating. A nil error field delegates that operation.
type FailingBackend struct {
	backend.Backend

	LoadErr   error
	SaveErr   error
	DeleteErr error
	ListErr   error
}

// NewFailingBackend wraps inner. A nil inner gets a fresh backend.Memory.
func NewFailingBackend(inner backend.Backend) *FailingBackend {
	if inner == nil {
		inner = backend.NewMemory()
	}
	return &FailingBackend{Backend: inner}
}

// Name implements backend.Backend.
func (f *FailingBackend) Name() string { return "failing" }

// Load implements backend.Backend.
func (f *FailingBackend) Load(ctx context.Context, kind string, id int64) ([]byte, bool, error) {
	if f.LoadErr != nil {
		return nil, false, f.LoadErr
	}
	return f.Backend.Load(ctx, kind, id)
}

// Save implements backend.Backend.
func (f *FailingBackend) Save(ctx context.Context, kind string, id int64, payload []byte) error {
	if f.SaveErr != nil {
		return f.SaveErr
	}
	return f.Backend.Save(ctx, kind, id, payload)
}

// Delete implements backend.Backend.
func (f *FailingBackend) Delete(ctx context.Context, kind string, id int64) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	return f.Backend.Delete(ctx, kind, id)
}

// List implements backend.Backend.
func (f *FailingBackend) List(ctx context.Context, kind string) iter.Seq2[int64, error] {
	if f.ListErr != nil {
		err := f.ListErr
		return func(yield func(int64, error) bool) { yield(0, err) }
	}
	return f.Backend.List(ctx, kind)
}

var (
	_ backend.Backend = (*CountingBackend)(nil)
	_ backend.Backend = (*FailingBackend)(nil)
)
