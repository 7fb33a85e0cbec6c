package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario_Valid(t *testing.T) {
	data := []byte(`
name: parse
description: "Parses every section"
kind: note
sync:
  resync: true
seed:
  - id: 3
    name: three
    data: { title: three }
    links: { next: 4 }
    auxiliary: true
flow:
  - op: ref
    args: { name: r, to: 3 }
    expect:
      case: ok
      result: { state: pending }
assertions:
  - type: resident
    ids: [3]
  - type: trace_order
    ops: [ref]
`)

	scenario, err := ParseScenario(data)
	require.NoError(t, err)

	assert.Equal(t, "parse", scenario.Name)
	assert.Equal(t, "note", scenario.Kind)
	assert.Equal(t, map[string]any{"resync": true}, scenario.Sync)

	require.Len(t, scenario.Seed, 1)
	seed := scenario.Seed[0]
	assert.Equal(t, int64(3), seed.ID)
	assert.Equal(t, "three", seed.Name)
	assert.Equal(t, map[string]int64{"next": 4}, seed.Links)
	assert.True(t, seed.Auxiliary)

	require.Len(t, scenario.Flow, 1)
	step := scenario.Flow[0]
	assert.Equal(t, "ref", step.Op)
	require.NotNil(t, step.Expect)
	assert.Equal(t, CaseOK, step.Expect.Case)
	assert.Equal(t, "pending", step.Expect.Result["state"])

	require.Len(t, scenario.Assertions, 2)
	assert.Equal(t, []int64{3}, scenario.Assertions[0].IDs)
	assert.Equal(t, []string{"ref"}, scenario.Assertions[1].Ops)
}

func TestParseScenario_DefaultKind(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: k
description: d
flow:
  - op: create
`))
	require.NoError(t, err)
	assert.Equal(t, DefaultKind, scenario.Kind)
}

func TestParseScenario_RejectsUnknownFields(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: d
flow:
  - op: create
    argz: { id: 1 }
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nflow: [{op: create}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\nflow: [{op: create}]\n",
			want: "description is required",
		},
		{
			name: "empty flow",
			yaml: "name: n\ndescription: d\nflow: []\n",
			want: "flow list is required",
		},
		{
			name: "unknown op",
			yaml: "name: n\ndescription: d\nflow: [{op: explode}]\n",
			want: `unknown op "explode"`,
		},
		{
			name: "expect without case",
			yaml: "name: n\ndescription: d\nflow: [{op: create, expect: {result: {runtime_id: 1}}}]\n",
			want: "case is required",
		},
		{
			name: "unknown sync option",
			yaml: "name: n\ndescription: d\nsync: {eager: true}\nflow: [{op: create}]\n",
			want: `unknown option "eager"`,
		},
		{
			name: "non-boolean sync option",
			yaml: "name: n\ndescription: d\nsync: {resync: 1}\nflow: [{op: create}]\n",
			want: "must be a boolean",
		},
		{
			name: "seed id not positive",
			yaml: "name: n\ndescription: d\nseed: [{id: 0}]\nflow: [{op: create}]\n",
			want: "id must be positive",
		},
		{
			name: "duplicate seed id",
			yaml: "name: n\ndescription: d\nseed: [{id: 2}, {id: 2}]\nflow: [{op: create}]\n",
			want: "duplicate id 2",
		},
		{
			name: "assertion without type",
			yaml: "name: n\ndescription: d\nflow: [{op: create}]\nassertions: [{count: 1}]\n",
			want: "type is required",
		},
		{
			name: "unknown assertion",
			yaml: "name: n\ndescription: d\nflow: [{op: create}]\nassertions: [{type: vibes}]\n",
			want: `unknown assertion type "vibes"`,
		},
		{
			name: "broken_links without id",
			yaml: "name: n\ndescription: d\nflow: [{op: create}]\nassertions: [{type: broken_links}]\n",
			want: "id is required",
		},
		{
			name: "trace_count without op",
			yaml: "name: n\ndescription: d\nflow: [{op: create}]\nassertions: [{type: trace_count, count: 1}]\n",
			want: "op is required",
		},
		{
			name: "trace_order without ops",
			yaml: "name: n\ndescription: d\nflow: [{op: create}]\nassertions: [{type: trace_order}]\n",
			want: "ops list is required",
		},
		{
			name: "negative count",
			yaml: "name: n\ndescription: d\nflow: [{op: create}]\nassertions: [{type: count, count: -1}]\n",
			want: "count must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: f\ndescription: d\nflow: [{op: create}]\n"), 0o644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "f", scenario.Name)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadScenario_Testdata(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			require.NoError(t, err)
		})
	}
}
