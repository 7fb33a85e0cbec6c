package cli

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stash/internal/config"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "stash", cmd.Use)
	assert.Contains(t, cmd.Long, "stash.yaml")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"ls", "show", "rm", "renumber", "check", "copy", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestCopyCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	copyCmd, _, err := cmd.Find([]string{"copy"})
	require.NoError(t, err)

	for _, name := range []string{"to", "path", "bucket", "prefix", "region", "endpoint"} {
		assert.NotNil(t, copyCmd.Flags().Lookup(name), "flag %s", name)
	}
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	assert.NotNil(t, testCmd.Flags().Lookup("update"))
	assert.NotNil(t, testCmd.Flags().Lookup("filter"))
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(NewRootCommand(), "--format", "xml", "ls", testKind)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}

// restoreDefaultLogger undoes the root command's slog.SetDefault.
func restoreDefaultLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestRootCommand_ConfigFileEndToEnd(t *testing.T) {
	restoreDefaultLogger(t)
	dir := t.TempDir()
	configPath := filepath.Join(dir, "stash.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
version: 1
serializer: yaml
backends:
  - type: sqlite
    path: data/records.db
  - type: file
    path: archive
log:
  level: debug
  file: logs/stash.log
`), 0o644))

	cfg, _, err := config.Load(configPath)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
	seed(t, cfg, seedDoc{id: 1, name: "kept"})

	out, err := execute(NewRootCommand(), "--config", configPath, "ls", testKind)
	require.NoError(t, err)
	assert.Contains(t, out, "kept")
	assert.Contains(t, out, "1 record(s) of kind note")

	logData, err := os.ReadFile(filepath.Join(dir, "logs", "stash.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "all records loaded")
}

func TestRootCommand_EnvConfig(t *testing.T) {
	restoreDefaultLogger(t)
	dir := t.TempDir()
	configPath := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("backends:\n  - type: memory\n"), 0o644))
	t.Setenv(config.EnvConfigPath, configPath)

	out, err := execute(NewRootCommand(), "ls", testKind)
	require.NoError(t, err)
	assert.Contains(t, out, "0 record(s) of kind note")
}

func TestRootCommand_BadConfig(t *testing.T) {
	restoreDefaultLogger(t)
	configPath := filepath.Join(t.TempDir(), "stash.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("backends:\n  - type: tape\n"), 0o644))

	_, err := execute(NewRootCommand(), "--config", configPath, "ls", testKind)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}
