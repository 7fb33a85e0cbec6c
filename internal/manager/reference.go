package manager

import (
	"context"

	"github.com/roach88/stash/internal/fault"
)

// RefState is the observable state of a Reference.
type RefState int

const (
	// RefUnset has no target id.
	RefUnset RefState = iota
	// RefPending has a target id that is not resolved yet.
	RefPending
	// RefResolved points at a live record.
	RefResolved
	// RefGivenUp failed to resolve and will not retry until reset.
	RefGivenUp
)

// String returns the state name.
func (s RefState) String() string {
	switch s {
	case RefUnset:
		return "unset"
	case RefPending:
		return "pending"
	case RefResolved:
		return "resolved"
	case RefGivenUp:
		return "given_up"
	default:
		return "unknown"
	}
}

// Reference is a weak, lazily resolved link to a record of type T,
// identified by persistent id. It never owns its target: the cached
// record is re-validated against its manager before every use, so an
// evicted or deleted target simply makes the reference pending again.
//
// The zero value is an Unset reference.
type Reference[T Record] struct {
	target  int64
	pending int64

	cached T
	h      handle

	synched bool
	changed bool
	giveUp  bool
}

// live returns the cached target if it is still owned and still occupies
// the slot it was resolved in.
func (r *Reference[T]) live() (T, bool) {
	var zero T
	if r.h.isZero() {
		return zero, false
	}
	b := r.cached.Meta()
	if b.owner == nil || b.h != r.h {
		return zero, false
	}
	return r.cached, true
}

func (r *Reference[T]) dropCache() {
	var zero T
	r.cached = zero
	r.h = handle{}
}

// State reports the reference's state.
func (r *Reference[T]) State() RefState {
	switch {
	case r.giveUp:
		return RefGivenUp
	case !r.h.isZero():
		if _, ok := r.live(); ok {
			return RefResolved
		}
		return RefPending
	case r.target != 0 || r.pending != 0:
		return RefPending
	default:
		return RefUnset
	}
}

// TargetID returns the resolved (or last requested) persistent id.
func (r *Reference[T]) TargetID() int64 { return r.target }

// PendingID returns the requested-but-unresolved persistent id.
func (r *Reference[T]) PendingID() int64 { return r.pending }

// StoredID is the id an encoder should persist: a requested pending id
// first, then the live target's current id (so renumbering is followed),
// otherwise the target id.
func (r *Reference[T]) StoredID() int64 {
	if r.pending != 0 {
		return r.pending
	}
	if t, ok := r.live(); ok {
		return t.Meta().persistentID
	}
	return r.target
}

// IsSynched reports whether the last resolution succeeded.
func (r *Reference[T]) IsSynched() bool { return r.synched && !r.giveUp }

// GivenUp reports whether the reference is in the terminal failed state.
func (r *Reference[T]) GivenUp() bool { return r.giveUp }

// Changed reports whether a new target was requested since the last
// successful resolution.
func (r *Reference[T]) Changed() bool { return r.changed }

// Target returns the resolved record, if it is still live.
func (r *Reference[T]) Target() (T, bool) { return r.live() }

// SetPersistentID requests a new target. Setting 0 clears the reference.
// Setting the id of the already resolved target is a no-op. Any other id
// becomes pending and lifts a previous give-up.
func (r *Reference[T]) SetPersistentID(id int64) {
	if id == 0 {
		r.Clear()
		return
	}
	t, resolved := r.live()
	if !resolved {
		r.target = id
		r.pending = id
	} else if t.Meta().persistentID == id {
		return
	} else {
		r.pending = id
	}
	r.changed = true
	r.giveUp = false
	r.synched = false
}

// SetByPointer points the reference at rec, which must be owned by m.
// The target id is always taken from rec. The record itself is cached
// only when it is already synched or ignoreSynched is set; otherwise the
// next Resolve looks it up by id.
func (r *Reference[T]) SetByPointer(m *Manager[T], rec T, ignoreSynched bool) error {
	if !m.Contains(rec) {
		return m.notOwned(rec, "set reference")
	}
	r.Clear()

	b := rec.Meta()
	r.target = b.persistentID
	if b.Has(StatusSynched) || ignoreSynched {
		r.cached = rec
		r.h = b.h
		r.synched = b.Has(StatusSynched)
	}
	r.changed = false
	r.giveUp = false
	return nil
}

// CopyFrom points r at the same persistent id as other.
func (r *Reference[T]) CopyFrom(other *Reference[T]) {
	r.SetPersistentID(other.StoredID())
}

// Release unpins and forgets the resolved target but keeps the target id,
// so a later Resolve can find it again. A give-up is lifted.
func (r *Reference[T]) Release() {
	if t, ok := r.live(); ok {
		SetNeeded(t, false)
	}
	r.dropCache()
	r.pending = 0
	r.changed = false
	r.giveUp = false
	r.synched = false
}

// Clear releases the reference and forgets the target id.
func (r *Reference[T]) Clear() {
	r.Release()
	r.target = 0
}

// Unsync forwards an unsync to the resolved target.
func (r *Reference[T]) Unsync(ctx context.Context, table SyncTable) error {
	t, ok := r.live()
	if !ok {
		return nil
	}
	if err := t.Unsync(ctx, table); err != nil {
		return err
	}
	t.Meta().SetStatus(StatusSynched, false)
	r.synched = false
	return nil
}

// SetNext re-points the reference at the record after its target in m's
// list, or clears it when the target is the tail. An unresolved reference
// moves to m's first primary record.
func (r *Reference[T]) SetNext(m *Manager[T], ignoreSynched bool) error {
	return r.step(m, ignoreSynched, m.arena.next, m.FirstListing)
}

// SetPrev re-points the reference at the record before its target in m's
// list, or clears it when the target is the head. An unresolved reference
// moves to m's last primary record.
func (r *Reference[T]) SetPrev(m *Manager[T], ignoreSynched bool) error {
	return r.step(m, ignoreSynched, m.arena.prev, m.LastListing)
}

func (r *Reference[T]) step(m *Manager[T], ignoreSynched bool, neighbor func(handle) handle, fallback func() (T, bool)) error {
	if t, ok := r.live(); ok && m.Contains(t) {
		n, ok := m.arena.get(neighbor(r.h))
		if !ok {
			r.Clear()
			return nil
		}
		return r.SetByPointer(m, n, ignoreSynched)
	}
	rec, ok := fallback()
	if !ok {
		return fault.NotFound(m.kind, 0, "reference navigation: no listing record")
	}
	return r.SetByPointer(m, rec, ignoreSynched)
}

// Resolve turns the reference's persistent id into a live, synched record
// of m.
//
//  1. forced lifts a previous give-up.
//  2. ContentUnsync releases the target and succeeds.
//  3. A synched reference whose target is still live succeeds without any
//     lookup unless the table bypasses the cache; the target is re-pinned.
//  4. A given-up reference fails without a lookup.
//  5. Otherwise the pending (or target) id is looked up, loading from the
//     backends if needed. The new target is pinned and the old one unpinned.
//  6. The target's own Sync runs, unless the target is already being
//     synced further up the call stack.
//
// Any failure leaves the reference given up until SetPersistentID, a
// forced Resolve, Release or Clear.
func (r *Reference[T]) Resolve(ctx context.Context, m *Manager[T], table SyncTable, forced bool) error {
	if forced {
		r.giveUp = false
	}

	if table.ContentUnsync {
		if err := r.Unsync(ctx, table); err != nil {
			m.logger.Warn("reference unsync failed", "target", r.target, "error", err)
		}
		r.Release()
		return nil
	}

	t, resolved := r.live()
	if resolved && !m.Contains(t) {
		resolved = false
	}
	if !resolved && !r.h.isZero() {
		// Target was evicted or deleted; look it up again.
		r.dropCache()
		r.synched = false
	}

	if resolved && r.synched && !r.giveUp && !table.bypassesCache() {
		SetNeeded(t, true)
		r.target = t.Meta().persistentID
		return nil
	}

	if r.giveUp {
		return fault.Unresolvable(m.kind, r.StoredID(), "reference has given up")
	}
	if r.target == 0 && r.pending == 0 {
		r.giveUp = true
		return fault.Unresolvable(m.kind, 0, "reference has no target")
	}

	if !resolved || r.changed || table.Resync {
		id := r.target
		if (r.pending != 0 && !table.Resync) || id == 0 {
			id = r.pending
		}

		rec, ok := m.LookupByPersistentID(ctx, id, false)
		if !ok {
			r.giveUp = true
			return fault.Unresolvable(m.kind, id, "target not found")
		}

		r.target = rec.Meta().persistentID
		r.pending = 0
		if resolved {
			SetNeeded(t, false)
		}
		r.cached = rec
		r.h = rec.Meta().h
		SetNeeded(rec, true)
		r.changed = false
		t = rec
	}

	b := t.Meta()
	key := trailKeyOf(m.kind, b)
	if onTrail(ctx, key) {
		r.synched = true
	} else if err := t.Sync(withTrail(ctx, key), table); err != nil {
		b.SetStatus(StatusSynched, false)
		r.synched = false
		r.giveUp = true
		return &fault.Error{
			Code:    fault.CodeUnresolvable,
			Message: "target sync failed",
			Kind:    m.kind,
			ID:      b.persistentID,
			Err:     err,
		}
	} else {
		b.SetStatus(StatusSynched, true)
		r.synched = true
	}

	return nil
}
