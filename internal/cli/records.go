package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/stash/internal/backend"
	"github.com/roach88/stash/internal/document"
	"github.com/roach88/stash/internal/fault"
	"github.com/roach88/stash/internal/ir"
	"github.com/roach88/stash/internal/manager"
)

// RecordEntry is one line of `stash ls`.
type RecordEntry struct {
	PersistentID int64            `json:"persistent_id"`
	Name         string           `json:"name,omitempty"`
	Listed       bool             `json:"listed"`
	Links        map[string]int64 `json:"links,omitempty"`
}

// ListResult is the output of `stash ls`.
type ListResult struct {
	Kind    string        `json:"kind"`
	Records []RecordEntry `json:"records"`
}

// KindsResult is the output of `stash ls` without a kind.
type KindsResult struct {
	Kinds []string `json:"kinds"`
}

// NewLsCommand creates the ls command.
func NewLsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [kind]",
		Short: "List stored records of a kind, or the stored kinds",
		Long: `Load every record of a kind from the backend stack and list it.

Auxiliary records (those outside the primary listing) are marked "aux".
Without a kind, list the kinds the backends hold records for. Object
storage backends cannot enumerate kinds and are skipped.

Examples:
  stash ls
  stash ls note
  stash ls note --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runKinds(rootOpts, cmd)
			}
			return runList(rootOpts, args[0], cmd)
		},
	}
}

func runKinds(opts *RootOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	stack, err := opts.openStack()
	if err != nil {
		return err
	}
	defer opts.closeStack(stack)

	kinds, err := backend.Kinds(commandContext(cmd), stack.Backends...)
	if err != nil {
		return out.Fail(ExitFailure, "failed to list kinds", err)
	}
	result := KindsResult{Kinds: kinds}
	if result.Kinds == nil {
		result.Kinds = []string{}
	}

	return out.Report(result, func(w io.Writer) {
		for _, kind := range result.Kinds {
			fmt.Fprintln(w, kind)
		}
		fmt.Fprintf(w, "%d kind(s)\n", len(result.Kinds))
	})
}

func runList(opts *RootOptions, kind string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	m, stack, err := opts.openManager(kind)
	if err != nil {
		return err
	}
	defer opts.closeStack(stack)

	if _, err := m.LoadAll(commandContext(cmd)); err != nil {
		return out.Fail(ExitFailure, "failed to load records", err)
	}

	result := ListResult{Kind: kind, Records: make([]RecordEntry, 0, m.Count())}
	for d := range m.All() {
		result.Records = append(result.Records, entryOf(d))
	}

	return out.Report(result, func(w io.Writer) {
		for _, e := range result.Records {
			marker := ""
			if !e.Listed {
				marker = "aux"
			}
			fmt.Fprintf(w, "%6d  %-3s  %s\n", e.PersistentID, marker, e.Name)
		}
		fmt.Fprintf(w, "%d record(s) of kind %s\n", len(result.Records), kind)
	})
}

func entryOf(d *document.Document) RecordEntry {
	e := RecordEntry{
		PersistentID: d.PersistentID(),
		Name:         d.Info.Name,
		Listed:       d.IsListingItem(),
	}
	for _, name := range d.LinkNames() {
		if id := d.Links[name].StoredID(); id != 0 {
			if e.Links == nil {
				e.Links = make(map[string]int64)
			}
			e.Links[name] = id
		}
	}
	return e
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <kind> <id>",
		Short: "Print one record",
		Long: `Load one record and print its stored form.

Text output uses the configured serializer; JSON output embeds the
record envelope in the response.

Examples:
  stash show note 3
  stash show note 3 --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runShow(opts *RootOptions, kind, rawID string, cmd *cobra.Command) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	out := opts.formatter(cmd)
	m, stack, err := opts.openManager(kind)
	if err != nil {
		return err
	}
	defer opts.closeStack(stack)

	d, err := lookup(commandContext(cmd), m, kind, id)
	if err != nil {
		return out.Fail(ExitFailure, "failed to show record", err)
	}

	env, err := manager.Envelope(kind, d)
	if err != nil {
		return out.Fail(ExitFailure, "failed to encode record", err)
	}
	if out.Format == "json" {
		canonical, err := ir.MarshalCanonical(env)
		if err != nil {
			return out.Fail(ExitFailure, "failed to encode record", err)
		}
		return out.Success(json.RawMessage(canonical))
	}

	payload, err := m.Encode(d)
	if err != nil {
		return out.Fail(ExitFailure, "failed to encode record", err)
	}
	w := cmd.OutOrStdout()
	if _, err := w.Write(payload); err != nil {
		return err
	}
	if len(payload) > 0 && payload[len(payload)-1] != '\n' {
		fmt.Fprintln(w)
	}
	return nil
}

// NewRmCommand creates the rm command.
func NewRmCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <kind> <id>",
		Short: "Delete a record from the primary backend",
		Long: `Delete one record, including its copy in the primary backend.

Fallback backends are read-only and keep their copies.

Example:
  stash rm note 3`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runRemove(opts *RootOptions, kind, rawID string, cmd *cobra.Command) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	out := opts.formatter(cmd)
	m, stack, err := opts.openManager(kind)
	if err != nil {
		return err
	}
	defer opts.closeStack(stack)

	ctx := commandContext(cmd)
	d, err := lookup(ctx, m, kind, id)
	if err != nil {
		return out.Fail(ExitFailure, "failed to delete record", err)
	}
	if err := m.Delete(ctx, d, true); err != nil {
		return out.Fail(ExitFailure, "failed to delete record", err)
	}

	opts.logger().Info("record deleted", "kind", kind, "persistent_id", id)
	return out.Report(map[string]any{"kind": kind, "persistent_id": id}, func(w io.Writer) {
		fmt.Fprintf(w, "Deleted %s %d\n", kind, id)
	})
}

// NewRenumberCommand creates the renumber command.
func NewRenumberCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "renumber <kind>",
		Short: "Compact persistent ids to 1..n",
		Long: `Load every record of a kind, resolve its links, and renumber the
persistent ids to 1..n in list order. Links follow their targets to the
new ids. Records are written back to the primary backend and copies
under ids that are no longer used are deleted.

Example:
  stash renumber note`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRenumber(rootOpts, args[0], cmd)
		},
	}
}

func runRenumber(opts *RootOptions, kind string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	m, stack, err := opts.openManager(kind)
	if err != nil {
		return err
	}
	defer opts.closeStack(stack)

	if err := m.Renumber(commandContext(cmd), true); err != nil {
		return out.Fail(ExitFailure, "failed to renumber records", err)
	}

	count := m.Count()
	return out.Report(map[string]any{"kind": kind, "count": count}, func(w io.Writer) {
		fmt.Fprintf(w, "Renumbered %d record(s) of kind %s\n", count, kind)
	})
}

// lookup finds id in memory or the backend stack; a miss is NotFound.
func lookup(ctx context.Context, m *document.Manager, kind string, id int64) (*document.Document, error) {
	d, ok := m.LookupByPersistentID(ctx, id, false)
	if !ok {
		return nil, fault.NotFound(kind, id, "no backend holds the record")
	}
	return d, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid id %q: must be a positive integer", raw))
	}
	return id, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
