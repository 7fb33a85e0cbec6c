package manager

import (
	"context"

	"github.com/roach88/stash/internal/ir"
)

// Status is the lifecycle bit-set the manager keeps on every record.
type Status uint8

const (
	// StatusNeeded pins a record against eviction.
	StatusNeeded Status = 1 << iota

	// StatusToDelete marks a record the host intends to delete.
	StatusToDelete

	// StatusDeleteNode makes the next eviction sweep remove the record
	// even if it is pinned.
	StatusDeleteNode

	// StatusSynched marks that the record's last sync succeeded.
	StatusSynched
)

// Info is the descriptive block every record carries and persists.
type Info struct {
	Name    string
	Summary string
	Memo    string
}

// IsZero reports whether all fields are empty.
func (i Info) IsZero() bool {
	return i == Info{}
}

// Record is a managed entity. Concrete kinds embed Base, which supplies
// the identity fields and no-op defaults for every hook, and override
// the hooks they care about.
type Record interface {
	// Meta returns the embedded Base.
	Meta() *Base

	// IsListingItem classifies the record as primary (true) or auxiliary.
	// Auxiliary records are skipped by listing navigation.
	IsListingItem() bool

	// Sync resolves the record's outgoing references.
	Sync(ctx context.Context, table SyncTable) error

	// Unsync releases the record's outgoing references.
	Unsync(ctx context.Context, table SyncTable) error

	// RuntimeClear drops runtime-only derived state.
	RuntimeClear()

	// Clear resets domain content.
	Clear()

	// SetUnneededContent is told when the Needed bit flips so large owned
	// sub-objects can release or reacquire bulk data.
	SetUnneededContent(unneeded bool)

	// DeleteUnneededContent frees bulk data during an eviction sweep that
	// keeps the record itself.
	DeleteUnneededContent()

	// GainedFocus is called when the record becomes the manager's current record.
	GainedFocus()

	// LostFocus is called when the record stops being current.
	LostFocus()

	// MarshalFields returns the kind-specific persisted fields.
	MarshalFields() (ir.Object, error)

	// UnmarshalFields populates the record from persisted fields.
	UnmarshalFields(fields ir.Object) error
}

// Base carries identity and status. Embed it by value in concrete records.
type Base struct {
	runtimeID    int64
	persistentID int64
	status       Status

	// SecondaryID is an opaque key for an alternate backend.
	SecondaryID int64

	// Flags are host-defined bits persisted with the record.
	Flags uint64

	Info Info

	owner *managerTag
	h     handle
}

// managerTag identifies the manager owning a record. It is never empty so
// distinct tags never share an address.
type managerTag struct {
	kind string
}

// Meta implements Record.
func (b *Base) Meta() *Base { return b }

// RuntimeID returns the session-local id, 0 if the record is not owned.
func (b *Base) RuntimeID() int64 { return b.runtimeID }

// PersistentID returns the backing-store key, 0 if transient.
func (b *Base) PersistentID() int64 { return b.persistentID }

// Status returns the lifecycle bits.
func (b *Base) Status() Status { return b.status }

// Has reports whether every bit in s is set.
func (b *Base) Has(s Status) bool { return b.status&s == s }

// SetStatus sets or clears bits. Use SetNeeded for StatusNeeded so the
// content hook fires.
func (b *Base) SetStatus(s Status, on bool) {
	if on {
		b.status |= s
	} else {
		b.status &^= s
	}
}

// Owned reports whether the record currently belongs to a manager.
func (b *Base) Owned() bool { return b.owner != nil }

func (b *Base) attach(owner *managerTag, h handle, runtimeID int64) {
	b.owner = owner
	b.h = h
	b.runtimeID = runtimeID
}

func (b *Base) detach() {
	b.owner = nil
	b.h = handle{}
}

// IsListingItem implements Record. Records are primary by default.
func (b *Base) IsListingItem() bool { return true }

// Sync implements Record.
func (b *Base) Sync(context.Context, SyncTable) error { return nil }

// Unsync implements Record.
func (b *Base) Unsync(context.Context, SyncTable) error { return nil }

// RuntimeClear implements Record.
func (b *Base) RuntimeClear() {}

// Clear implements Record.
func (b *Base) Clear() {}

// SetUnneededContent implements Record.
func (b *Base) SetUnneededContent(bool) {}

// DeleteUnneededContent implements Record.
func (b *Base) DeleteUnneededContent() {}

// GainedFocus implements Record.
func (b *Base) GainedFocus() {}

// LostFocus implements Record.
func (b *Base) LostFocus() {}

// MarshalFields implements Record.
func (b *Base) MarshalFields() (ir.Object, error) { return nil, nil }

// UnmarshalFields implements Record.
func (b *Base) UnmarshalFields(ir.Object) error { return nil }

// SetNeeded sets the Needed bit and forwards the inverse to
// SetUnneededContent.
func SetNeeded(r Record, needed bool) {
	r.Meta().SetStatus(StatusNeeded, needed)
	r.SetUnneededContent(!needed)
}

// Sanitize runs RuntimeClear then Clear. The manager calls it before a
// record is released.
func Sanitize(r Record) {
	r.RuntimeClear()
	r.Clear()
}
