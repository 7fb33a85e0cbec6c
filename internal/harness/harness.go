package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/stash/internal/backend"
	"github.com/roach88/stash/internal/document"
	"github.com/roach88/stash/internal/fault"
	"github.com/roach88/stash/internal/ir"
	"github.com/roach88/stash/internal/manager"
	"github.com/roach88/stash/internal/testutil"
)

// Harness executes one scenario against a fresh manager.
type Harness struct {
	kind    string
	mgr     *document.Manager
	backend *testutil.CountingBackend
	refs    map[string]*document.Ref
	seq     int64
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario gets its own in-memory backend and manager, so runs are
// isolated and produce identical traces every time.
//
// Execution flow:
//  1. Store the seed records in the backend and zero its counters
//  2. Execute flow steps, checking expect clauses
//  3. Evaluate assertions against the final state and trace
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	table, err := decodeTable(scenario.Sync)
	if err != nil {
		return nil, fmt.Errorf("sync table: %w", err)
	}

	store := testutil.NewCountingBackend(backend.NewMemory())
	if err := seedBackend(ctx, scenario, store, logger); err != nil {
		return nil, fmt.Errorf("failed to seed backend: %w", err)
	}
	store.ResetCounts()

	h := &Harness{
		kind:    scenario.Kind,
		backend: store,
		refs:    make(map[string]*document.Ref),
		logger:  logger,
		mgr: document.NewManager(scenario.Kind,
			manager.WithBackends(store),
			manager.WithSyncTable(table),
			manager.WithLogger(logger),
		),
	}

	result := NewResult()
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	for _, msg := range EvaluateAssertions(ctx, h, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// seedBackend writes the scenario's seed records through a throwaway
// manager so they carry real envelopes.
func seedBackend(ctx context.Context, scenario *Scenario, b backend.Backend, logger *slog.Logger) error {
	m := document.NewManager(scenario.Kind, manager.WithBackends(b), manager.WithLogger(logger))
	for _, rec := range scenario.Seed {
		d := m.Create()
		if err := m.AssignPersistentID(d, rec.ID); err != nil {
			return err
		}
		data, err := ir.FromNative(rec.Data)
		if err != nil {
			return fmt.Errorf("seed %d data: %w", rec.ID, err)
		}
		if obj, ok := data.(ir.Object); ok && len(obj) > 0 {
			d.Data = obj
		}
		d.Info.Name = rec.Name
		d.Auxiliary = rec.Auxiliary
		for name, to := range rec.Links {
			d.Link(name, to)
		}
		if err := m.Save(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// executeFlow runs every step. Each step adds an invocation and a
// completion to the trace; the completion's case is "ok" or the error's
// fault code.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		native, err := ir.FromNative(step.Args)
		if err != nil {
			return fmt.Errorf("flow step %d: failed to convert args: %w", i, err)
		}
		args, _ := native.(ir.Object)

		h.seq++
		result.AddInvocationTrace(step.Op, args, h.seq)

		out, opErr := operations[step.Op](ctx, h, args)
		var argErr *argError
		if errors.As(opErr, &argErr) {
			return fmt.Errorf("flow step %d (%s): %w", i, step.Op, opErr)
		}

		outputCase := outcome(opErr)
		if out == nil {
			out = ir.Object{}
		}
		out["records"] = h.residentIDs()

		h.seq++
		result.AddCompletionTrace(outputCase, out, h.seq)

		h.logger.Debug("flow step completed", "step", i, "op", step.Op, "case", outputCase)

		if step.Expect != nil {
			for _, msg := range checkExpect(i, step, outputCase, out) {
				result.AddError(msg)
			}
		}
	}
	return nil
}

// outcome maps an operation error to an output case.
func outcome(err error) string {
	if err == nil {
		return CaseOK
	}
	if code := fault.CodeOf(err); code != "" {
		return string(code)
	}
	return CaseError
}

func checkExpect(index int, step FlowStep, outputCase string, got ir.Object) []string {
	var errs []string
	if step.Expect.Case != outputCase {
		errs = append(errs, fmt.Sprintf("flow[%d] %s: expected case %q, got %q", index, step.Op, step.Expect.Case, outputCase))
	}
	if len(step.Expect.Result) == 0 {
		return errs
	}
	native, err := ir.FromNative(step.Expect.Result)
	if err != nil {
		return append(errs, fmt.Sprintf("flow[%d] %s: bad expected result: %v", index, step.Op, err))
	}
	want, _ := native.(ir.Object)
	for _, key := range want.SortedKeys() {
		if !valuesEqual(want[key], got[key]) {
			errs = append(errs, fmt.Sprintf("flow[%d] %s: result.%s: expected %s, got %s",
				index, step.Op, key, render(want[key]), render(got[key])))
		}
	}
	return errs
}

func valuesEqual(a, b ir.Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ab, errA := ir.MarshalCanonical(a)
	bb, errB := ir.MarshalCanonical(b)
	return errA == nil && errB == nil && string(ab) == string(bb)
}

func render(v ir.Value) string {
	if v == nil {
		return "<missing>"
	}
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// residentIDs returns the resident persistent ids in list order.
func (h *Harness) residentIDs() ir.Array {
	ids := ir.Array{}
	for d := range h.mgr.All() {
		ids = append(ids, ir.Int(d.PersistentID()))
	}
	return ids
}

// resident returns the resident record with persistent id id.
func (h *Harness) resident(ctx context.Context, id int64) (*document.Document, error) {
	d, ok := h.mgr.LookupByPersistentID(ctx, id, true)
	if !ok {
		return nil, fault.NotFound(h.kind, id, "record not resident")
	}
	return d, nil
}
