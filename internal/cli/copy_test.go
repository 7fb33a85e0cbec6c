package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stash/internal/backend"
	"github.com/roach88/stash/internal/backend/sqlite"
	"github.com/roach88/stash/internal/config"
)

func TestCopyCommand_ToSQLite(t *testing.T) {
	cfg := fileConfig(t)
	seed(t, cfg, seedDoc{id: 1, name: "a"}, seedDoc{id: 5, name: "b", links: map[string]int64{"prev": 1}})
	dbPath := filepath.Join(t.TempDir(), "copy.db")

	out, err := execute(NewCopyCommand(testOptions(cfg, "text")), testKind, "--to", "sqlite", "--path", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Copied 2 record(s) of kind note to sqlite")

	st, err := sqlite.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ids, err := backend.Collect(st.List(context.Background(), testKind))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 5}, ids)

	payload, ok, err := st.Load(context.Background(), testKind, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(payload), `"links":{"prev":1}`)
}

func TestCopyCommand_ToFileJSON(t *testing.T) {
	cfg := fileConfig(t)
	seed(t, cfg, seedDoc{id: 2})
	dest := t.TempDir()

	out, err := execute(NewCopyCommand(testOptions(cfg, "json")), testKind, "--to", "file", "--path", dest)
	require.NoError(t, err)

	var resp struct {
		Data CopyResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, CopyResult{Kind: testKind, To: "file", Copied: 1}, resp.Data)

	destCfg := config.Default()
	destCfg.Backends = []config.BackendConfig{{Type: config.BackendFile, Path: dest}}
	assert.Equal(t, []int64{2}, storedIDs(t, destCfg))
}

func TestCopyCommand_InvalidDestination(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown type", []string{"--to", "tape"}},
		{"s3 without bucket", []string{"--to", "s3", "--region", "eu-west-1"}},
		{"file without path", []string{"--to", "file"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{testKind}, tt.args...)
			_, err := execute(NewCopyCommand(testOptions(fileConfig(t), "text")), args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), "invalid destination")

			var verr *config.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestCopyCommand_RequiresTo(t *testing.T) {
	_, err := execute(NewCopyCommand(testOptions(fileConfig(t), "text")), testKind)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "to" not set`)
}

func TestDestEntry(t *testing.T) {
	assert.Equal(t,
		map[string]any{"type": "s3", "bucket": "b", "prefix": "p"},
		destEntry(config.BackendConfig{Type: "s3", Bucket: "b", Prefix: "p"}))
	assert.Equal(t, map[string]any{"type": "memory"}, destEntry(config.BackendConfig{Type: "memory"}))
}
