package backend

import (
	"context"
	"iter"
	"slices"
	"sync"
)

// Memory is a map-backed Backend. It is safe for concurrent use and is the
// backend of choice for tests and harness scenarios.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string]map[int64][]byte
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string]map[int64][]byte)}
}

// Name implements Backend.
func (m *Memory) Name() string { return "memory" }

// Load implements Backend.
func (m *Memory) Load(ctx context.Context, kind string, id int64) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	payload, ok := m.blobs[kind][id]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(payload), true, nil
}

// Save implements Backend.
func (m *Memory) Save(ctx context.Context, kind string, id int64, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	byID := m.blobs[kind]
	if byID == nil {
		byID = make(map[int64][]byte)
		m.blobs[kind] = byID
	}
	byID[id] = slices.Clone(payload)
	return nil
}

// Delete implements Backend.
func (m *Memory) Delete(ctx context.Context, kind string, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.blobs[kind], id)
	return nil
}

// List implements Backend. The id set is snapshotted when iteration starts.
func (m *Memory) List(ctx context.Context, kind string) iter.Seq2[int64, error] {
	return func(yield func(int64, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(0, err)
			return
		}
		m.mu.RLock()
		ids := make([]int64, 0, len(m.blobs[kind]))
		for id := range m.blobs[kind] {
			ids = append(ids, id)
		}
		m.mu.RUnlock()

		slices.Sort(ids)
		for _, id := range ids {
			if !yield(id, nil) {
				return
			}
		}
	}
}

// Kinds implements KindLister.
func (m *Memory) Kinds(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	kinds := make([]string, 0, len(m.blobs))
	for kind, blobs := range m.blobs {
		if len(blobs) > 0 {
			kinds = append(kinds, kind)
		}
	}
	m.mu.RUnlock()

	slices.Sort(kinds)
	return kinds, nil
}

// Len returns the number of records stored for kind.
func (m *Memory) Len(kind string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs[kind])
}

// Close implements Backend. The contents are kept.
func (m *Memory) Close() error { return nil }

var _ Backend = (*Memory)(nil)
