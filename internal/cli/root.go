package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/stash/internal/config"
	"github.com/roach88/stash/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Config is loaded on first use; tests may set it directly.
	Config *config.Config
	// Logger is configured by the root command; nil means slog.Default().
	Logger *slog.Logger

	logCloser io.Closer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the stash CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "stash",
		Short: "stash - inspect and maintain a record store",
		Long: `Inspect and maintain the records of an embedded object store.

Records are loaded through the backend stack named in the configuration
file (stash.yaml), with the first backend as the writable primary.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.setupLogging(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.closeLogging()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to stash.yaml (default: search $STASH_CONFIG, ./stash.yaml, ~/.config/stash)")

	cmd.AddCommand(NewLsCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewRmCommand(opts))
	cmd.AddCommand(NewRenumberCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewCopyCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// loadConfig returns the configuration, reading it on first use.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	if o.Config != nil {
		return o.Config, nil
	}
	cfg, path, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	o.Config = cfg
	o.logger().Debug("config loaded", "path", path, "backends", len(cfg.Backends))
	return cfg, nil
}

// setupLogging installs the process logger described by the config and
// the verbose flag.
func (o *RootOptions) setupLogging(stderr io.Writer) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	logger, closer, err := logging.New(logging.Options{
		Level:     cfg.Log.Level,
		Verbose:   o.Verbose,
		File:      cfg.Log.File,
		MaxSizeMB: cfg.Log.MaxSizeMB,
		MaxFiles:  cfg.Log.MaxFiles,
		Writer:    stderr,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure logging", err)
	}
	o.Logger, o.logCloser = logger, closer
	slog.SetDefault(logger)
	return nil
}

func (o *RootOptions) closeLogging() error {
	if o.logCloser == nil {
		return nil
	}
	err := o.logCloser.Close()
	o.logCloser = nil
	return err
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// formatter returns an OutputFormatter writing to cmd's streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
