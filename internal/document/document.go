// Package document provides Document, a general-purpose record kind with
// free-form fields and named links to other documents of the same kind.
//
// The CLI and the scenario harness operate on documents, so any stored
// kind can be inspected without a dedicated Go type.
package document

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/stash/internal/ir"
	"github.com/roach88/stash/internal/manager"
)

// Field keys inside the envelope's "fields" object.
const (
	keyData      = "data"
	keyLinks     = "links"
	keyAuxiliary = "auxiliary"
)

// Manager is a manager of documents.
type Manager = manager.Manager[*Document]

// Ref is a reference to a document.
type Ref = manager.Reference[*Document]

// Document is a record whose content is an arbitrary ir.Object.
type Document struct {
	manager.Base

	// Data is the document's content.
	Data ir.Object

	// Links maps a link name to a reference to another document.
	Links map[string]*Ref

	// Auxiliary documents are skipped by listing navigation.
	Auxiliary bool

	store *Manager
}

// NewManager returns a manager for documents of kind. Documents it creates
// or loads resolve their links through it.
func NewManager(kind string, opts ...manager.Option) *Manager {
	var m *Manager
	opts = append(opts, manager.WithInit(func(d *Document) { d.store = m }))
	m = manager.New(kind, func() *Document { return &Document{} }, opts...)
	return m
}

// Link points the named link at persistent id id, creating it if needed.
// An id of 0 removes the link.
func (d *Document) Link(name string, id int64) *Ref {
	if id == 0 {
		d.Unlink(name)
		return nil
	}
	if d.Links == nil {
		d.Links = make(map[string]*Ref)
	}
	ref, ok := d.Links[name]
	if !ok {
		ref = &Ref{}
		d.Links[name] = ref
	}
	ref.SetPersistentID(id)
	return ref
}

// Unlink removes the named link and unpins its target.
func (d *Document) Unlink(name string) {
	if ref, ok := d.Links[name]; ok {
		ref.Clear()
		delete(d.Links, name)
	}
}

// LinkNames returns the link names in sorted order.
func (d *Document) LinkNames() []string {
	names := make([]string, 0, len(d.Links))
	for name := range d.Links {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// BrokenLinks returns the names of links that have given up resolving.
func (d *Document) BrokenLinks() []string {
	var broken []string
	for _, name := range d.LinkNames() {
		if d.Links[name].GivenUp() {
			broken = append(broken, name)
		}
	}
	return broken
}

// IsListingItem implements manager.Record.
func (d *Document) IsListingItem() bool { return !d.Auxiliary }

// Sync resolves every link in name order. All links are attempted; the
// failures are joined.
func (d *Document) Sync(ctx context.Context, table manager.SyncTable) error {
	if len(d.Links) == 0 {
		return nil
	}
	if d.store == nil {
		return errors.New("document is not attached to a manager")
	}
	var errs []error
	for _, name := range d.LinkNames() {
		if err := d.Links[name].Resolve(ctx, d.store, table, false); err != nil {
			errs = append(errs, fmt.Errorf("link %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Unsync releases every link.
func (d *Document) Unsync(ctx context.Context, table manager.SyncTable) error {
	for _, ref := range d.Links {
		ref.Release()
	}
	return nil
}

// RuntimeClear drops resolved link targets; the link ids are kept.
func (d *Document) RuntimeClear() {
	for _, ref := range d.Links {
		ref.Release()
	}
}

// Clear drops all content.
func (d *Document) Clear() {
	for _, ref := range d.Links {
		ref.Clear()
	}
	d.Data = nil
	d.Links = nil
	d.Auxiliary = false
}

// MarshalFields implements manager.Record.
func (d *Document) MarshalFields() (ir.Object, error) {
	out := ir.Object{}
	if len(d.Data) > 0 {
		out[keyData] = d.Data.Clone()
	}
	if len(d.Links) > 0 {
		links := ir.Object{}
		for name, ref := range d.Links {
			if id := ref.StoredID(); id != 0 {
				links[name] = ir.Int(id)
			}
		}
		out[keyLinks] = links
	}
	if d.Auxiliary {
		out[keyAuxiliary] = ir.Bool(true)
	}
	return out, nil
}

// UnmarshalFields implements manager.Record.
func (d *Document) UnmarshalFields(fields ir.Object) error {
	if v, ok := fields[keyData]; ok {
		data, isObject := v.(ir.Object)
		if !isObject {
			return fmt.Errorf("%s: want object, got %T", keyData, v)
		}
		d.Data = data.Clone()
	}
	if v, ok := fields[keyLinks]; ok {
		links, isObject := v.(ir.Object)
		if !isObject {
			return fmt.Errorf("%s: want object, got %T", keyLinks, v)
		}
		for _, name := range links.SortedKeys() {
			id, isInt := links[name].(ir.Int)
			if !isInt {
				return fmt.Errorf("%s.%s: want integer id, got %T", keyLinks, name, links[name])
			}
			d.Link(name, int64(id))
		}
	}
	d.Auxiliary = fields.Flag(keyAuxiliary)
	return nil
}

var _ manager.Record = (*Document)(nil)
