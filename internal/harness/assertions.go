package harness

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/stash/internal/backend"
)

// EvaluateAssertions checks every assertion and returns the failure
// messages; an empty slice means all passed.
func EvaluateAssertions(ctx context.Context, h *Harness, result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if msg := evaluate(ctx, h, result, &a); msg != "" {
			errs = append(errs, fmt.Sprintf("assertions[%d] %s: %s", i, a.Type, msg))
		}
	}
	return errs
}

func evaluate(ctx context.Context, h *Harness, result *Result, a *Assertion) string {
	switch a.Type {
	case AssertResident:
		var got []int64
		for d := range h.mgr.All() {
			got = append(got, d.PersistentID())
		}
		return compareIDs(a.IDs, got)

	case AssertCount:
		if got := h.mgr.Count(); got != a.Count {
			return fmt.Sprintf("expected %d records, got %d", a.Count, got)
		}

	case AssertCurrent:
		var got int64
		if cur, ok := h.mgr.Current(); ok {
			got = cur.PersistentID()
		}
		if got != a.ID {
			return fmt.Sprintf("expected current %d, got %d", a.ID, got)
		}

	case AssertStored:
		got, err := backend.Collect(h.backend.Backend.List(ctx, h.kind))
		if err != nil {
			return fmt.Sprintf("list backend: %v", err)
		}
		return compareIDs(a.IDs, got)

	case AssertLoads:
		if got := h.backend.Loads(); got != a.Count {
			return fmt.Sprintf("expected %d backend loads, got %d", a.Count, got)
		}

	case AssertBrokenLinks:
		d, ok := h.mgr.LookupByPersistentID(ctx, a.ID, true)
		if !ok {
			return fmt.Sprintf("record %d is not resident", a.ID)
		}
		if got := d.BrokenLinks(); !slices.Equal(a.Names, got) {
			return fmt.Sprintf("expected broken links %v, got %v", a.Names, got)
		}

	case AssertTraceCount:
		got := 0
		for _, op := range result.Ops() {
			if op == a.Op {
				got++
			}
		}
		if got != a.Count {
			return fmt.Sprintf("expected %d %q steps, got %d", a.Count, a.Op, got)
		}

	case AssertTraceOrder:
		ops := result.Ops()
		pos := 0
		for _, want := range a.Ops {
			idx := slices.Index(ops[pos:], want)
			if idx < 0 {
				return fmt.Sprintf("%q not found in order (ops: %v)", want, ops)
			}
			pos += idx + 1
		}

	default:
		return fmt.Sprintf("unknown assertion type %q", a.Type)
	}
	return ""
}

func compareIDs(want, got []int64) string {
	if len(want) == 0 && len(got) == 0 {
		return ""
	}
	if !slices.Equal(want, got) {
		return fmt.Sprintf("expected ids %v, got %v", want, got)
	}
	return ""
}
