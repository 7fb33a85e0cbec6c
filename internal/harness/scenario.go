package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultKind is the record kind used when a scenario names none.
const DefaultKind = "node"

// Scenario is a scripted sequence of manager operations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Kind is the record kind the manager owns.
	Kind string `yaml:"kind,omitempty"`

	// Sync is the manager's configured table, used by defer/drain.
	Sync map[string]any `yaml:"sync,omitempty"`

	// Seed records are stored in the backend before the flow runs.
	Seed []SeedRecord `yaml:"seed,omitempty"`

	// Flow is the sequence of operations.
	Flow []FlowStep `yaml:"flow"`

	// Assertions check the final state and the trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// SeedRecord is a stored document.
type SeedRecord struct {
	ID        int64            `yaml:"id"`
	Name      string           `yaml:"name,omitempty"`
	Data      map[string]any   `yaml:"data,omitempty"`
	Links     map[string]int64 `yaml:"links,omitempty"`
	Auxiliary bool             `yaml:"auxiliary,omitempty"`
}

// FlowStep is one operation.
type FlowStep struct {
	// Op names the operation (see package documentation).
	Op string `yaml:"op"`

	// Args are the operation's arguments.
	Args map[string]any `yaml:"args,omitempty"`

	// Expect, if set, is checked against the completion.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected completion.
type ExpectClause struct {
	// Case is "ok" or a fault code such as UNRESOLVABLE.
	Case string `yaml:"case"`

	// Result is a subset match against the completion result.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion checks final state or the trace.
type Assertion struct {
	Type  string   `yaml:"type"`
	IDs   []int64  `yaml:"ids,omitempty"`
	ID    int64    `yaml:"id,omitempty"`
	Count int      `yaml:"count,omitempty"`
	Names []string `yaml:"names,omitempty"`
	Op    string   `yaml:"op,omitempty"`
	Ops   []string `yaml:"ops,omitempty"`
}

// Assertion type constants.
const (
	AssertResident    = "resident"
	AssertCount       = "count"
	AssertCurrent     = "current"
	AssertStored      = "stored"
	AssertLoads       = "loads"
	AssertBrokenLinks = "broken_links"
	AssertTraceCount  = "trace_count"
	AssertTraceOrder  = "trace_order"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if scenario.Kind == "" {
		scenario.Kind = DefaultKind
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if _, err := decodeTable(s.Sync); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	seen := make(map[int64]bool, len(s.Seed))
	for i, rec := range s.Seed {
		if rec.ID <= 0 {
			return fmt.Errorf("seed[%d]: id must be positive", i)
		}
		if seen[rec.ID] {
			return fmt.Errorf("seed[%d]: duplicate id %d", i, rec.ID)
		}
		seen[rec.ID] = true
	}

	for i, step := range s.Flow {
		if _, ok := operations[step.Op]; !ok {
			return fmt.Errorf("flow[%d]: unknown op %q", i, step.Op)
		}
		if step.Expect != nil && step.Expect.Case == "" {
			return fmt.Errorf("flow[%d].expect: case is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertResident, AssertStored, AssertCount, AssertCurrent, AssertLoads:
	case AssertBrokenLinks:
		if a.ID == 0 {
			return fmt.Errorf("assertions[%d]: id is required for broken_links", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}
