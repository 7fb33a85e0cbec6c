package manager

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/stash/internal/backend"
	"github.com/roach88/stash/internal/fault"
)

var (
	// ErrNoBackend is returned by persistence operations on a manager
	// configured without backends.
	ErrNoBackend = errors.New("manager has no backend")

	// ErrTransient is returned when saving a record with persistent id 0.
	ErrTransient = errors.New("record has no persistent id")
)

// Encode returns r's serialized envelope.
func (m *Manager[T]) Encode(r T) ([]byte, error) {
	env, err := Envelope(m.kind, r)
	if err != nil {
		return nil, err
	}
	return m.serializer.Encode(env)
}

// loadFromBackends tries each backend in priority order. Failures are
// logged and the next backend is tried; exhausting the list is a miss.
func (m *Manager[T]) loadFromBackends(ctx context.Context, id int64) (T, bool) {
	var zero T
	for _, b := range m.backends {
		if ctx.Err() != nil {
			return zero, false
		}
		r, err := m.loadFrom(ctx, b, id)
		if err != nil {
			m.logger.Warn("lazy load failed", "persistent_id", id, "backend", b.Name(), "code", fault.CodeOf(err), "error", err)
			continue
		}
		if r == nil {
			continue
		}
		rec := *r
		m.adopt(rec)
		m.logger.Debug("record loaded", "persistent_id", rec.Meta().persistentID, "runtime_id", rec.Meta().runtimeID, "backend", b.Name())
		return rec, true
	}
	return zero, false
}

// loadFrom reads and decodes one record without adopting it. A miss
// returns (nil, nil).
func (m *Manager[T]) loadFrom(ctx context.Context, b backend.Backend, id int64) (*T, error) {
	payload, ok, err := b.Load(ctx, m.kind, id)
	if err != nil {
		return nil, fault.IOFailure(m.kind, id, "load from "+b.Name(), err)
	}
	if !ok {
		return nil, nil
	}

	env, err := m.serializer.Decode(payload)
	if err != nil {
		return nil, fault.ParseFailure(m.kind, id, err)
	}
	r := m.build()
	if err := populate(m.kind, r, env, id); err != nil {
		return nil, fault.ParseFailure(m.kind, id, err)
	}

	if pid := r.Meta().persistentID; pid != id {
		if _, resident := m.LookupByPersistentID(ctx, pid, true); resident {
			return nil, fault.Duplicate(m.kind, pid)
		}
	}
	return &r, nil
}

// Save persists r through the primary backend.
func (m *Manager[T]) Save(ctx context.Context, r T) error {
	if !m.Contains(r) {
		return m.notOwned(r, "save")
	}
	primary := m.primary()
	if primary == nil {
		return ErrNoBackend
	}
	return m.saveTo(ctx, primary, r)
}

func (m *Manager[T]) saveTo(ctx context.Context, b backend.Backend, r T) error {
	id := r.Meta().persistentID
	if id == 0 {
		return ErrTransient
	}
	payload, err := m.Encode(r)
	if err != nil {
		return fmt.Errorf("encode %s %d: %w", m.kind, id, err)
	}
	if err := b.Save(ctx, m.kind, id, payload); err != nil {
		return fault.IOFailure(m.kind, id, "save to "+b.Name(), err)
	}
	return nil
}

// SaveAll persists every resident record with a non-zero persistent id
// through the primary backend. It keeps going after a failure and returns
// the number of records saved alongside the joined errors.
func (m *Manager[T]) SaveAll(ctx context.Context) (int, error) {
	primary := m.primary()
	if primary == nil {
		return 0, ErrNoBackend
	}
	return m.SaveAllTo(ctx, primary)
}

// SaveAllTo is SaveAll against an arbitrary backend, used to copy a
// working set into another store.
func (m *Manager[T]) SaveAllTo(ctx context.Context, b backend.Backend) (int, error) {
	saved := 0
	var errs []error
	for r := range m.All() {
		if r.Meta().persistentID == 0 {
			continue
		}
		if err := m.saveTo(ctx, b, r); err != nil {
			errs = append(errs, err)
			continue
		}
		saved++
	}
	m.logger.Info("records saved", "backend", b.Name(), "saved", saved, "failed", len(errs))
	return saved, errors.Join(errs...)
}

// LoadAll loads every record any backend lists that is not yet resident.
// With the table's DeleteOnMemoryPresent option the manager is Reset first;
// otherwise a manager that is already fully loaded returns immediately.
func (m *Manager[T]) LoadAll(ctx context.Context) (int, error) {
	return m.loadAll(ctx, m.table.DeleteOnMemoryPresent)
}

func (m *Manager[T]) loadAll(ctx context.Context, reset bool) (int, error) {
	if reset {
		m.Reset(ctx)
	} else if m.allLoaded {
		return 0, nil
	}

	loaded := 0
	var errs []error
	for _, b := range m.backends {
		for id, err := range b.List(ctx, m.kind) {
			if err != nil {
				errs = append(errs, fault.IOFailure(m.kind, 0, "list "+b.Name(), err))
				break
			}
			if _, ok := m.LookupByPersistentID(ctx, id, true); ok {
				continue
			}
			if _, ok := m.loadFromBackends(ctx, id); ok {
				loaded++
			}
		}
	}

	if len(errs) > 0 {
		return loaded, errors.Join(errs...)
	}
	m.allLoaded = true
	m.logger.Info("all records loaded", "loaded", loaded, "count", m.arena.count)
	return loaded, nil
}

// Renumber assigns persistent ids 1, 2, 3, ... in list order.
//
// With persist set the manager first loads everything and syncs it, so
// resolved references follow their targets to the new ids, then saves
// every record and deletes backing copies whose old ids are no longer
// in use. References that were not resolved keep their old ids.
func (m *Manager[T]) Renumber(ctx context.Context, persist bool) error {
	primary := m.primary()
	if persist {
		if primary == nil {
			return ErrNoBackend
		}
		if _, err := m.loadAll(ctx, false); err != nil {
			return fmt.Errorf("renumber: %w", err)
		}
		if err := m.SyncAll(ctx, m.table); err != nil {
			m.logger.Warn("renumber: some references did not resolve", "error", err)
		}
	}

	var old []int64
	next := int64(1)
	for r := range m.All() {
		b := r.Meta()
		if b.persistentID != 0 {
			old = append(old, b.persistentID)
		}
		b.persistentID = next
		next++
	}
	m.logger.Info("persistent ids renumbered", "count", next-1, "persist", persist)

	if !persist {
		return nil
	}
	if _, err := m.SaveAll(ctx); err != nil {
		return fmt.Errorf("renumber: %w", err)
	}
	for _, id := range old {
		if id < next {
			continue
		}
		if err := primary.Delete(ctx, m.kind, id); err != nil {
			return fault.IOFailure(m.kind, id, "renumber: delete stale copy from "+primary.Name(), err)
		}
	}
	return nil
}
