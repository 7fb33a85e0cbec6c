package manager

// MarkAllUnneeded sets every record's Needed bit to value. It is phase one
// of the eviction sweep: call it with false, let a resolution pass re-pin
// whatever is still referenced, then call EvictUnneeded.
func (m *Manager[T]) MarkAllUnneeded(value bool) {
	for r := range m.All() {
		SetNeeded(r, value)
	}
}

// EvictUnneeded removes every record that is not Needed or is marked
// DeleteNode, after giving it RuntimeClear. Records that stay get
// DeleteUnneededContent. Backing copies are never touched. It returns the
// number of records removed.
//
// The victims are chosen before any hook runs: a victim's RuntimeClear may
// release references and so unpin records that are still referenced from
// records that stay.
func (m *Manager[T]) EvictUnneeded() int {
	var victims, kept []T
	for r := range m.All() {
		b := r.Meta()
		if !b.Has(StatusNeeded) || b.Has(StatusDeleteNode) {
			victims = append(victims, r)
		} else {
			kept = append(kept, r)
		}
	}

	for _, r := range victims {
		r.RuntimeClear()
		m.release(r)
	}
	for _, r := range kept {
		r.DeleteUnneededContent()
	}

	evicted := len(victims)
	if evicted > 0 {
		m.allLoaded = false
	}

	m.logger.Debug("eviction sweep", "evicted", evicted, "remaining", m.arena.count)
	return evicted
}
