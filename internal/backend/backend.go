// Package backend defines the persistence capability records are stored
// through, plus an in-memory implementation.
//
// A Backend is a key/value blob store keyed by (kind, persistent id). It
// never interprets payloads. Concrete stores live in subpackages:
// filestore, sqlite and s3store.
package backend

import (
	"context"
	"fmt"
	"iter"
	"slices"
)

// Backend stores serialized records.
type Backend interface {
	// Name identifies the backend in logs and errors ("memory", "file", ...).
	Name() string

	// Load returns the payload stored for (kind, id).
	// A missing record is reported as (nil, false, nil), never as an error.
	Load(ctx context.Context, kind string, id int64) ([]byte, bool, error)

	// Save stores payload under (kind, id), replacing any previous payload.
	Save(ctx context.Context, kind string, id int64, payload []byte) error

	// Delete removes (kind, id). Deleting a missing record is not an error.
	Delete(ctx context.Context, kind string, id int64) error

	// List yields every stored id of kind in ascending order.
	// The sequence is finite and may be ranged over more than once.
	// Iteration stops after the first non-nil error is yielded.
	List(ctx context.Context, kind string) iter.Seq2[int64, error]

	// Close releases the backend's resources.
	Close() error
}

// KindLister is implemented by backends that can enumerate the kinds they
// hold records for.
type KindLister interface {
	// Kinds returns every kind with at least one stored record, sorted.
	Kinds(ctx context.Context) ([]string, error)
}

// Kinds merges the kinds of every backend in bs that implements
// KindLister. Other backends are skipped.
func Kinds(ctx context.Context, bs ...Backend) ([]string, error) {
	var all []string
	for _, b := range bs {
		kl, ok := b.(KindLister)
		if !ok {
			continue
		}
		kinds, err := kl.Kinds(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		all = append(all, kinds...)
	}
	slices.Sort(all)
	return slices.Compact(all), nil
}

// Collect drains a List sequence into a slice.
func Collect(seq iter.Seq2[int64, error]) ([]int64, error) {
	var ids []int64
	for id, err := range seq {
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
