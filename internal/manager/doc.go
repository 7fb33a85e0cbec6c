// Package manager is the object store core: it keeps a working set of
// typed records in memory, lazily loads missing ones from pluggable
// backends, resolves references between records and evicts what nothing
// references any more.
//
// # Records
//
// A record kind is any type implementing Record, normally a struct that
// embeds Base. Base carries the runtime id (session-local, assigned in
// creation order), the persistent id (the backend key, 0 for transient
// records), a status bit-set and host-defined flags.
//
// # Managers
//
// A Manager[T] owns every resident record of one kind in a
// generation-checked arena threaded by a doubly linked list. Handles into
// the arena go stale when their record is removed, so cursors and
// references never dangle.
//
// # References and resolution
//
// A Reference[T] names its target by persistent id. Resolve looks the id
// up (loading it if needed), pins the target with StatusNeeded and
// recursively syncs it. A failed resolution gives up and stays given up
// until the reference is re-targeted or resolved with forced set.
//
// # Eviction
//
// Eviction is a mark-and-sweep over the Needed bit:
//
//	m.MarkAllUnneeded(false)
//	m.SyncAll(ctx, manager.SyncTable{}) // references re-pin their targets
//	m.EvictUnneeded()
//
// Needed is a single bit, not a count. If two references pin the same
// record and one of them is re-targeted or released, the record is
// unpinned although the other reference still uses it. A full
// mark/resolve pass always restores the correct pins.
package manager
