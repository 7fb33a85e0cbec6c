package manager

import (
	"context"
	"errors"
	"fmt"
)

// DeferSync queues r to be synced by the next RunDeferredWork.
func (m *Manager[T]) DeferSync(r T) error {
	if !m.Contains(r) {
		return m.notOwned(r, "defer sync")
	}
	m.pendingSync.Push(r.Meta().h)
	return nil
}

// DeferDelete queues r to be deleted by the next RunDeferredWork. The
// backing copy is kept.
func (m *Manager[T]) DeferDelete(r T) error {
	if !m.Contains(r) {
		return m.notOwned(r, "defer delete")
	}
	m.pendingDelete.Push(r.Meta().h)
	return nil
}

// Pending returns the number of queued syncs and deletes.
func (m *Manager[T]) Pending() (syncs, deletes int) {
	return m.pendingSync.Len(), m.pendingDelete.Len()
}

// RunDeferredWork drains the sync queue, then the delete queue, in FIFO
// order. Records that were removed since they were queued are skipped.
// Syncs use the manager's configured table; their failures are joined
// into the returned error without stopping the drain.
func (m *Manager[T]) RunDeferredWork(ctx context.Context) error {
	var errs []error

	for {
		h, ok := m.pendingSync.TryPop()
		if !ok {
			break
		}
		r, ok := m.arena.get(h)
		if !ok {
			continue
		}
		if err := m.Sync(ctx, r, m.table); err != nil {
			errs = append(errs, fmt.Errorf("deferred sync %s %d: %w", m.kind, r.Meta().persistentID, err))
		}
	}

	deleted := 0
	for {
		h, ok := m.pendingDelete.TryPop()
		if !ok {
			break
		}
		r, ok := m.arena.get(h)
		if !ok {
			continue
		}
		if err := m.Delete(ctx, r, false); err != nil {
			errs = append(errs, err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		m.logger.Debug("deferred work drained", "deleted", deleted)
	}
	return errors.Join(errs...)
}
