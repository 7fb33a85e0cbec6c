package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/stash/internal/ir"
)

// TraceSnapshot is the golden-file form of a scenario run.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// toObject converts the snapshot for canonical serialization. Empty args
// and results are omitted.
func (s *TraceSnapshot) toObject() ir.Object {
	trace := make(ir.Array, len(s.Trace))
	for i, event := range s.Trace {
		obj := ir.Object{
			"type": ir.String(event.Type),
			"seq":  ir.Int(event.Seq),
		}
		if event.Op != "" {
			obj["op"] = ir.String(event.Op)
		}
		if len(event.Args) > 0 {
			obj["args"] = event.Args
		}
		if event.OutputCase != "" {
			obj["output_case"] = ir.String(event.OutputCase)
		}
		if len(event.Result) > 0 {
			obj["result"] = event.Result
		}
		trace[i] = obj
	}
	return ir.Object{
		"scenario_name": ir.String(s.ScenarioName),
		"trace":         trace,
	}
}

// MarshalTrace returns the canonical JSON snapshot of a run.
func MarshalTrace(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{ScenarioName: name, Trace: result.Trace}
	return ir.MarshalCanonical(snapshot.toObject())
}

// RunWithGolden executes a scenario and compares its trace with
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace with its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
