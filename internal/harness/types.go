package harness

import "github.com/roach88/stash/internal/ir"

// Output cases other than fault codes.
const (
	CaseOK    = "ok"
	CaseError = "ERROR"
)

// TraceEvent is one entry of a scenario trace. Every flow step produces an
// invocation followed by a completion.
type TraceEvent struct {
	Type       string    `json:"type"` // "invocation" or "completion"
	Op         string    `json:"op,omitempty"`
	Args       ir.Object `json:"args,omitempty"`
	OutputCase string    `json:"output_case,omitempty"`
	Result     ir.Object `json:"result,omitempty"`
	Seq        int64     `json:"seq"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace holds invocations and completions in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddInvocationTrace appends an invocation.
func (r *Result) AddInvocationTrace(op string, args ir.Object, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type: "invocation",
		Op:   op,
		Args: args,
		Seq:  seq,
	})
}

// AddCompletionTrace appends a completion.
func (r *Result) AddCompletionTrace(outputCase string, result ir.Object, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:       "completion",
		OutputCase: outputCase,
		Result:     result,
		Seq:        seq,
	})
}

// Ops returns the op of every invocation in trace order.
func (r *Result) Ops() []string {
	var ops []string
	for _, ev := range r.Trace {
		if ev.Type == "invocation" {
			ops = append(ops, ev.Op)
		}
	}
	return ops
}
