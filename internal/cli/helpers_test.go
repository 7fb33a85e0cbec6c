package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stash/internal/backend"
	"github.com/roach88/stash/internal/config"
)

const testKind = "note"

type seedDoc struct {
	id    int64
	name  string
	aux   bool
	links map[string]int64
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fileConfig returns the default configuration with its file backend
// moved into a temporary directory.
func fileConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Backends = []config.BackendConfig{{Type: config.BackendFile, Path: t.TempDir()}}
	return cfg
}

func testOptions(cfg *config.Config, format string) *RootOptions {
	return &RootOptions{Format: format, Config: cfg, Logger: discardLogger()}
}

// seed stores docs through the configured primary backend.
func seed(t *testing.T, cfg *config.Config, docs ...seedDoc) {
	t.Helper()
	ctx := context.Background()

	stack, err := OpenStack(cfg, discardLogger())
	require.NoError(t, err)
	defer func() { require.NoError(t, stack.Close()) }()

	m := stack.Manager(testKind)
	for _, sd := range docs {
		d := m.Create()
		require.NoError(t, m.AssignPersistentID(d, sd.id))
		d.Info.Name = sd.name
		d.Auxiliary = sd.aux
		for name, to := range sd.links {
			d.Link(name, to)
		}
		require.NoError(t, m.Save(ctx, d))
	}
}

// storedIDs lists the primary backend's ids of testKind.
func storedIDs(t *testing.T, cfg *config.Config) []int64 {
	t.Helper()
	stack, err := OpenStack(cfg, discardLogger())
	require.NoError(t, err)
	defer func() { require.NoError(t, stack.Close()) }()

	ids, err := backend.Collect(stack.Backends[0].List(context.Background(), testKind))
	require.NoError(t, err)
	return ids
}

// execute runs cmd with args and returns its standard output.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	if args == nil {
		// cobra falls back to os.Args when given nil.
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
