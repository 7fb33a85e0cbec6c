package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/stash/internal/manager"
)

// BrokenLink is a link whose target no backend holds.
type BrokenLink struct {
	PersistentID int64  `json:"persistent_id"`
	Link         string `json:"link"`
	Target       int64  `json:"target"`
}

// CheckResult is the output of `stash check`.
type CheckResult struct {
	Kind    string       `json:"kind"`
	Records int          `json:"records"`
	Broken  []BrokenLink `json:"broken"`
	Orphans []int64      `json:"orphans"`
}

// OK reports whether the check found no problems.
func (r CheckResult) OK() bool { return len(r.Broken) == 0 && len(r.Orphans) == 0 }

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <kind>",
		Short: "Report broken links and orphaned records",
		Long: `Load every record of a kind and resolve all of its links.

Reports links whose target cannot be found, and auxiliary records that
no link reaches (auxiliary records are only reachable through links).

Exit codes:
  0 - No problems found
  1 - Broken links or orphans found
  2 - Command error (bad config, unreachable backend, etc.)

Example:
  stash check note`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}
}

func runCheck(opts *RootOptions, kind string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	m, stack, err := opts.openManager(kind)
	if err != nil {
		return err
	}
	defer opts.closeStack(stack)

	ctx := commandContext(cmd)
	if _, err := m.LoadAll(ctx); err != nil {
		return out.Fail(ExitFailure, "failed to load records", err)
	}

	// Every resolved link target is re-pinned by the sync sweep.
	m.MarkAllUnneeded(false)
	if err := m.SyncAll(ctx, manager.SyncTable{}); err != nil {
		opts.logger().Debug("check: sync reported failures", "kind", kind, "error", err)
	}

	result := CheckResult{Kind: kind, Records: m.Count(), Broken: []BrokenLink{}, Orphans: []int64{}}
	for d := range m.All() {
		for _, name := range d.BrokenLinks() {
			result.Broken = append(result.Broken, BrokenLink{
				PersistentID: d.PersistentID(),
				Link:         name,
				Target:       d.Links[name].StoredID(),
			})
		}
		if d.Auxiliary && !d.Has(manager.StatusNeeded) {
			result.Orphans = append(result.Orphans, d.PersistentID())
		}
	}

	if result.OK() {
		return out.Report(result, func(w io.Writer) {
			fmt.Fprintf(w, "✓ %d record(s) of kind %s checked, no problems\n", result.Records, kind)
		})
	}

	message := fmt.Sprintf("%d broken link(s), %d orphan(s)", len(result.Broken), len(result.Orphans))
	if out.Format == "json" {
		if err := out.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: CodeCheck, Message: message},
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, message)
	}

	w := cmd.OutOrStdout()
	for _, b := range result.Broken {
		fmt.Fprintf(w, "✗ %s %d: link %q -> %d not found\n", kind, b.PersistentID, b.Link, b.Target)
	}
	for _, id := range result.Orphans {
		fmt.Fprintf(w, "✗ %s %d: auxiliary record is not linked from anywhere\n", kind, id)
	}
	fmt.Fprintf(w, "%d record(s) checked: %s\n", result.Records, message)
	return NewExitError(ExitFailure, message)
}
