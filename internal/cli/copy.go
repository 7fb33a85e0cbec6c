package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/stash/internal/config"
)

// CopyOptions holds flags for the copy command.
type CopyOptions struct {
	*RootOptions
	Dest config.BackendConfig
}

// CopyResult is the output of `stash copy`.
type CopyResult struct {
	Kind   string `json:"kind"`
	To     string `json:"to"`
	Copied int    `json:"copied"`
}

// NewCopyCommand creates the copy command.
func NewCopyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CopyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "copy <kind> --to <type>",
		Short: "Copy every record of a kind into another backend",
		Long: `Load every record of a kind from the configured backend stack and save
it into another backend. The destination is described with the same keys
as a backends entry in stash.yaml and checked against the same schema.

Examples:
  stash copy note --to sqlite --path ./notes.db
  stash copy note --to file --path ./export
  stash copy note --to s3 --bucket backups --prefix notes --region eu-west-1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCopy(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dest.Type, "to", "", "destination backend type (file|sqlite|s3|memory)")
	cmd.Flags().StringVar(&opts.Dest.Path, "path", "", "destination path (file, sqlite)")
	cmd.Flags().StringVar(&opts.Dest.Bucket, "bucket", "", "destination bucket (s3)")
	cmd.Flags().StringVar(&opts.Dest.Prefix, "prefix", "", "destination key prefix (s3)")
	cmd.Flags().StringVar(&opts.Dest.Region, "region", "", "destination region (s3)")
	cmd.Flags().StringVar(&opts.Dest.Endpoint, "endpoint", "", "destination endpoint for S3-compatible servers")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runCopy(opts *CopyOptions, kind string, cmd *cobra.Command) error {
	if err := config.Validate(map[string]any{"backends": []any{destEntry(opts.Dest)}}); err != nil {
		return WrapExitError(ExitCommandError, "invalid destination", err)
	}

	out := opts.formatter(cmd)
	m, stack, err := opts.openManager(kind)
	if err != nil {
		return err
	}
	defer opts.closeStack(stack)

	dest, err := OpenBackend(opts.Dest, stack.Serializer)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open destination", err)
	}
	defer func() {
		if err := dest.Close(); err != nil {
			opts.logger().Error("error closing destination", "backend", dest.Name(), "error", err)
		}
	}()

	ctx := commandContext(cmd)
	if _, err := m.LoadAll(ctx); err != nil {
		return out.Fail(ExitFailure, "failed to load records", err)
	}
	copied, err := m.SaveAllTo(ctx, dest)
	if err != nil {
		return out.Fail(ExitFailure, fmt.Sprintf("copied %d record(s) before failing", copied), err)
	}

	result := CopyResult{Kind: kind, To: dest.Name(), Copied: copied}
	return out.Report(result, func(w io.Writer) {
		fmt.Fprintf(w, "Copied %d record(s) of kind %s to %s\n", copied, kind, result.To)
	})
}

// destEntry renders the destination flags as a config backends entry,
// leaving out unset keys.
func destEntry(bc config.BackendConfig) map[string]any {
	entry := map[string]any{"type": bc.Type}
	for key, value := range map[string]string{
		"path":     bc.Path,
		"bucket":   bc.Bucket,
		"prefix":   bc.Prefix,
		"region":   bc.Region,
		"endpoint": bc.Endpoint,
	} {
		if value != "" {
			entry[key] = value
		}
	}
	return entry
}
