package manager

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/stash/internal/backend"
	"github.com/roach88/stash/internal/codec"
	"github.com/roach88/stash/internal/fault"
)

// Manager owns every in-memory record of one kind.
//
// Records live in a generation-checked arena threaded by a doubly linked
// list in creation order. The manager assigns runtime ids, tracks a
// current-selection cursor, lazily loads records from its backends, and
// evicts records no reference still pins.
//
// Thread-safety: a Manager is not safe for concurrent use. All operations
// run to completion on the caller's goroutine, and record hooks may
// re-enter the manager (lookups during Sync), which is why deletion and
// resync requested mid-traversal go through DeferSync/DeferDelete.
type Manager[T Record] struct {
	kind    string
	factory func() T
	init    func(T)
	tag     *managerTag

	arena arena[T]
	clock runtimeClock

	current          handle
	previousCurrent  handle
	selectionChanged bool
	allLoaded        bool

	pendingSync   deferQueue
	pendingDelete deferQueue

	backends   []backend.Backend
	serializer codec.Serializer
	table      SyncTable

	baseLogger *slog.Logger
	logger     *slog.Logger
	session    string
}

// New creates a manager for records of kind built by factory.
// factory must return a fresh, non-nil record on every call.
func New[T Record](kind string, factory func() T, opts ...Option) *Manager[T] {
	o := options{
		serializer: codec.JSON{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager[T]{
		kind:       kind,
		factory:    factory,
		tag:        &managerTag{kind: kind},
		arena:      newArena[T](),
		backends:   o.backends,
		serializer: o.serializer,
		table:      o.table,
		baseLogger: o.logger,
	}
	if o.init != nil {
		fn, ok := o.init.(func(T))
		if !ok {
			panic(fmt.Sprintf("manager %q: WithInit hook has type %T", kind, o.init))
		}
		m.init = fn
	}
	m.newSession()
	return m
}

func (m *Manager[T]) newSession() {
	m.session = uuid.Must(uuid.NewV7()).String()
	m.logger = m.baseLogger.With("kind", m.kind, "session", m.session)
}

// Kind returns the record kind this manager owns.
func (m *Manager[T]) Kind() string { return m.kind }

// Session returns the current session token. It changes on Reset.
func (m *Manager[T]) Session() string { return m.session }

// Count returns the number of resident records.
func (m *Manager[T]) Count() int { return m.arena.count }

// AllLoaded reports whether LoadAll has completed since the last eviction
// or reset.
func (m *Manager[T]) AllLoaded() bool { return m.allLoaded }

// SyncTable returns the manager's configured table.
func (m *Manager[T]) SyncTable() SyncTable { return m.table }

// Contains reports whether r is currently owned by this manager. O(1).
func (m *Manager[T]) Contains(r T) bool {
	b := r.Meta()
	if b.owner != m.tag {
		return false
	}
	rec, ok := m.arena.get(b.h)
	return ok && rec.Meta() == b
}

func (m *Manager[T]) notOwned(r T, op string) error {
	b := r.Meta()
	return fault.NotFound(m.kind, b.persistentID, op+": record not owned by this manager")
}

// build makes a detached record and runs the init hook.
func (m *Manager[T]) build() T {
	r := m.factory()
	if m.init != nil {
		m.init(r)
	}
	return r
}

// adopt appends a built record and gives it a runtime id and fresh status.
func (m *Manager[T]) adopt(r T) {
	h := m.arena.push(r)
	b := r.Meta()
	b.attach(m.tag, h, m.clock.Next())
	b.SetStatus(StatusToDelete|StatusDeleteNode|StatusSynched, false)
	SetNeeded(r, true)
}

// Create appends a new transient record (persistent id 0) at the tail.
func (m *Manager[T]) Create() T {
	r := m.build()
	m.adopt(r)
	m.logger.Debug("record created", "runtime_id", r.Meta().runtimeID)
	return r
}

// CreatePersistent appends a new record with persistent id
// NextFreePersistentID.
func (m *Manager[T]) CreatePersistent(ctx context.Context) (T, error) {
	id, err := m.NextFreePersistentID(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	r := m.build()
	r.Meta().persistentID = id
	m.adopt(r)
	m.logger.Debug("record created", "runtime_id", r.Meta().runtimeID, "persistent_id", id)
	return r, nil
}

// NextFreePersistentID returns one more than the largest persistent id in
// use. Until LoadAll has run, ids stored in the primary backend count too,
// so a new record never shadows one that is not resident yet.
func (m *Manager[T]) NextFreePersistentID(ctx context.Context) (int64, error) {
	var highest int64
	for r := range m.All() {
		highest = max(highest, r.Meta().persistentID)
	}
	if primary := m.primary(); primary != nil && !m.allLoaded {
		for id, err := range primary.List(ctx, m.kind) {
			if err != nil {
				return 0, fault.IOFailure(m.kind, 0, "list "+primary.Name(), err)
			}
			highest = max(highest, id)
		}
	}
	return highest + 1, nil
}

// AssignPersistentID gives r an explicit persistent id. It fails with
// Duplicate when another resident record already uses id. Assigning 0
// makes the record transient.
func (m *Manager[T]) AssignPersistentID(r T, id int64) error {
	if !m.Contains(r) {
		return m.notOwned(r, "assign persistent id")
	}
	b := r.Meta()
	if id != 0 && id != b.persistentID {
		if other, ok := m.LookupByPersistentID(context.Background(), id, true); ok && other.Meta() != b {
			return fault.Duplicate(m.kind, id)
		}
	}
	b.persistentID = id
	return nil
}

// Delete removes r from the manager. With alsoDeleteBacking the primary
// backend's copy is deleted first; if that fails the record is kept and
// an IoFailure is returned.
func (m *Manager[T]) Delete(ctx context.Context, r T, alsoDeleteBacking bool) error {
	if !m.Contains(r) {
		return m.notOwned(r, "delete")
	}
	b := r.Meta()

	if alsoDeleteBacking && b.persistentID != 0 {
		if primary := m.primary(); primary != nil {
			if err := primary.Delete(ctx, m.kind, b.persistentID); err != nil {
				return fault.IOFailure(m.kind, b.persistentID, "delete from "+primary.Name(), err)
			}
		}
	}

	Sanitize(r)
	m.release(r)
	m.logger.Debug("record deleted", "runtime_id", b.runtimeID, "persistent_id", b.persistentID, "backing", alsoDeleteBacking)
	return nil
}

// release unlinks an owned record and clears cursors pointing at it.
func (m *Manager[T]) release(r T) {
	b := r.Meta()
	h := b.h
	if m.current == h {
		m.current = handle{}
		m.selectionChanged = true
	}
	if m.previousCurrent == h {
		m.previousCurrent = handle{}
	}
	m.arena.remove(h)
	b.detach()
}

// DeleteByRuntimeID deletes the resident record with runtime id id.
func (m *Manager[T]) DeleteByRuntimeID(ctx context.Context, id int64, alsoDeleteBacking bool) error {
	r, ok := m.LookupByRuntimeID(id)
	if !ok {
		return fault.NotFound(m.kind, 0, fmt.Sprintf("delete: no record with runtime id %d", id))
	}
	return m.Delete(ctx, r, alsoDeleteBacking)
}

// DeleteByPersistentID deletes the resident record with persistent id id.
// Records that are not resident are not loaded first.
func (m *Manager[T]) DeleteByPersistentID(ctx context.Context, id int64, alsoDeleteBacking bool) error {
	r, ok := m.LookupByPersistentID(ctx, id, true)
	if !ok {
		return fault.NotFound(m.kind, id, "delete: record not resident")
	}
	return m.Delete(ctx, r, alsoDeleteBacking)
}

// DeleteCurrent deletes the current record.
func (m *Manager[T]) DeleteCurrent(ctx context.Context, alsoDeleteBacking bool) error {
	r, ok := m.Current()
	if !ok {
		return fault.NotFound(m.kind, 0, "delete: no current record")
	}
	return m.Delete(ctx, r, alsoDeleteBacking)
}

// LookupByRuntimeID scans the list for runtime id id.
func (m *Manager[T]) LookupByRuntimeID(id int64) (T, bool) {
	if id != 0 {
		for r := range m.All() {
			if r.Meta().runtimeID == id {
				return r, true
			}
		}
	}
	var zero T
	return zero, false
}

// LookupByPersistentID scans the list for persistent id id. Unless
// inMemoryOnly is set, a miss falls through to the backends in priority
// order and a successfully loaded record is appended before returning.
// Backend and decode failures are logged and reported as a miss.
func (m *Manager[T]) LookupByPersistentID(ctx context.Context, id int64, inMemoryOnly bool) (T, bool) {
	var zero T
	if id == 0 {
		return zero, false
	}
	for r := range m.All() {
		if r.Meta().persistentID == id {
			return r, true
		}
	}
	if inMemoryOnly {
		return zero, false
	}
	return m.loadFromBackends(ctx, id)
}

// First returns the head of the list.
func (m *Manager[T]) First() (T, bool) { return m.arena.get(m.arena.head()) }

// Last returns the tail of the list.
func (m *Manager[T]) Last() (T, bool) { return m.arena.get(m.arena.tail()) }

// NthFromFirst returns the record n steps after the head (0 is the head).
func (m *Manager[T]) NthFromFirst(n int) (T, bool) {
	h := m.arena.head()
	for i := 0; i < n && !h.isZero(); i++ {
		h = m.arena.next(h)
	}
	return m.arena.get(h)
}

// NthFromLast returns the record n steps before the tail (0 is the tail).
func (m *Manager[T]) NthFromLast(n int) (T, bool) {
	h := m.arena.tail()
	for i := 0; i < n && !h.isZero(); i++ {
		h = m.arena.prev(h)
	}
	return m.arena.get(h)
}

// All iterates every record in list order. The yielded record may be
// deleted during iteration; other structural changes are not safe.
func (m *Manager[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for h := m.arena.head(); !h.isZero(); {
			r, ok := m.arena.get(h)
			if !ok {
				return
			}
			next := m.arena.next(h)
			if !yield(r) {
				return
			}
			h = next
		}
	}
}

// Listing iterates the primary (listing) records in list order.
func (m *Manager[T]) Listing() iter.Seq[T] {
	return func(yield func(T) bool) {
		for r := range m.All() {
			if r.IsListingItem() && !yield(r) {
				return
			}
		}
	}
}

// Backward iterates every record from the tail.
func (m *Manager[T]) Backward() iter.Seq[T] {
	return func(yield func(T) bool) {
		for h := m.arena.tail(); !h.isZero(); {
			r, ok := m.arena.get(h)
			if !ok {
				return
			}
			prev := m.arena.prev(h)
			if !yield(r) {
				return
			}
			h = prev
		}
	}
}

func (m *Manager[T]) walk(from handle, step func(handle) handle, includeAuxiliary bool) (T, bool) {
	for h := step(from); !h.isZero(); h = step(h) {
		r, _ := m.arena.get(h)
		if includeAuxiliary || r.IsListingItem() {
			return r, true
		}
	}
	var zero T
	return zero, false
}

// Next returns the record after r, skipping auxiliary records unless
// includeAuxiliary is set.
func (m *Manager[T]) Next(r T, includeAuxiliary bool) (T, bool) {
	if !m.Contains(r) {
		var zero T
		return zero, false
	}
	return m.walk(r.Meta().h, m.arena.next, includeAuxiliary)
}

// Prev returns the record before r, skipping auxiliary records unless
// includeAuxiliary is set.
func (m *Manager[T]) Prev(r T, includeAuxiliary bool) (T, bool) {
	if !m.Contains(r) {
		var zero T
		return zero, false
	}
	return m.walk(r.Meta().h, m.arena.prev, includeAuxiliary)
}

// FirstListing returns the first primary record.
func (m *Manager[T]) FirstListing() (T, bool) {
	return m.seekListing(m.arena.head(), m.arena.next)
}

// LastListing returns the last primary record.
func (m *Manager[T]) LastListing() (T, bool) {
	return m.seekListing(m.arena.tail(), m.arena.prev)
}

func (m *Manager[T]) seekListing(start handle, step func(handle) handle) (T, bool) {
	for h := start; !h.isZero(); h = step(h) {
		r, _ := m.arena.get(h)
		if r.IsListingItem() {
			return r, true
		}
	}
	var zero T
	return zero, false
}

// Current returns the current record.
func (m *Manager[T]) Current() (T, bool) { return m.arena.get(m.current) }

// PreviousCurrent returns the record that was current before the last
// selection change.
func (m *Manager[T]) PreviousCurrent() (T, bool) { return m.arena.get(m.previousCurrent) }

// SelectionChanged reports whether the selection moved since AckSelection.
func (m *Manager[T]) SelectionChanged() bool { return m.selectionChanged }

// AckSelection clears the selection-changed flag.
func (m *Manager[T]) AckSelection() { m.selectionChanged = false }

// SetCurrent makes r the current record. The previous current record
// gets LostFocus, r gets GainedFocus.
func (m *Manager[T]) SetCurrent(r T) error {
	if !m.Contains(r) {
		return m.notOwned(r, "set current")
	}
	m.moveCurrent(r.Meta().h)
	return nil
}

// ClearCurrent empties the selection.
func (m *Manager[T]) ClearCurrent() {
	m.moveCurrent(handle{})
}

func (m *Manager[T]) moveCurrent(h handle) {
	if old, ok := m.arena.get(m.current); ok {
		old.LostFocus()
	}
	m.previousCurrent = m.current
	m.current = h
	if r, ok := m.arena.get(h); ok {
		r.GainedFocus()
	}
	m.selectionChanged = true
}

// CurrentToNext moves the selection to the next primary record, or to the
// first one when nothing is selected. It reports whether the selection moved.
func (m *Manager[T]) CurrentToNext() bool {
	var (
		r  T
		ok bool
	)
	if cur, has := m.Current(); has {
		r, ok = m.Next(cur, false)
	} else {
		r, ok = m.FirstListing()
	}
	if ok {
		m.moveCurrent(r.Meta().h)
	}
	return ok
}

// CurrentToPrev moves the selection to the previous primary record, or to
// the last one when nothing is selected. It reports whether the selection moved.
func (m *Manager[T]) CurrentToPrev() bool {
	var (
		r  T
		ok bool
	)
	if cur, has := m.Current(); has {
		r, ok = m.Prev(cur, false)
	} else {
		r, ok = m.LastListing()
	}
	if ok {
		m.moveCurrent(r.Meta().h)
	}
	return ok
}

// Sync runs r's Sync hook with r on the cycle trail and records the
// outcome in r's Synched bit.
func (m *Manager[T]) Sync(ctx context.Context, r T, table SyncTable) error {
	if !m.Contains(r) {
		return m.notOwned(r, "sync")
	}
	b := r.Meta()
	err := r.Sync(withTrail(ctx, trailKeyOf(m.kind, b)), table)
	b.SetStatus(StatusSynched, err == nil)
	return err
}

// SyncAll syncs every resident record. Failures do not stop the sweep;
// they are joined into the returned error.
func (m *Manager[T]) SyncAll(ctx context.Context, table SyncTable) error {
	var errs []error
	for r := range m.All() {
		if err := m.Sync(ctx, r, table); err != nil {
			errs = append(errs, fmt.Errorf("sync %s %d: %w", m.kind, r.Meta().persistentID, err))
		}
	}
	return errors.Join(errs...)
}

// UnsyncAll releases every resident record's references.
func (m *Manager[T]) UnsyncAll(ctx context.Context, table SyncTable) error {
	var errs []error
	for r := range m.All() {
		if err := r.Unsync(ctx, table); err != nil {
			errs = append(errs, fmt.Errorf("unsync %s %d: %w", m.kind, r.Meta().persistentID, err))
			continue
		}
		r.Meta().SetStatus(StatusSynched, false)
	}
	return errors.Join(errs...)
}

// Reset drops every record and starts a new session: runtime ids restart
// at 1, the selection and deferred queues are emptied and the manager no
// longer counts as fully loaded.
func (m *Manager[T]) Reset(ctx context.Context) {
	dropped := m.arena.count
	for r := range m.All() {
		if err := r.Unsync(ctx, SyncTable{ContentUnsync: true}); err != nil {
			m.logger.Warn("unsync during reset failed", "runtime_id", r.Meta().runtimeID, "error", err)
		}
		Sanitize(r)
		m.release(r)
	}
	m.current, m.previousCurrent = handle{}, handle{}
	m.selectionChanged = false
	m.allLoaded = false
	m.pendingSync.Drop()
	m.pendingDelete.Drop()
	m.clock.Reset()

	old := m.session
	m.newSession()
	m.logger.Info("manager reset", "dropped", dropped, "previous_session", old)
}

func (m *Manager[T]) primary() backend.Backend {
	if len(m.backends) == 0 {
		return nil
	}
	return m.backends[0]
}
