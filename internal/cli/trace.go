package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/relay/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	StoreID  string
	Action   string // optional - filter to one action type
}

// RunSummary is one traced store in the run listing.
type RunSummary struct {
	StoreID string `json:"store_id"`
	Label   string `json:"label,omitempty"`
	Actions int    `json:"actions"`
}

// TraceEvent is one recorded action in the timeline.
type TraceEvent struct {
	Seq          int64  `json:"seq"`
	Action       string `json:"action"`
	Payload      string `json:"payload"`
	StateHash    string `json:"state_hash"`
	StateChanged bool   `json:"state_changed"`
}

// TraceResult holds the timeline of one traced store.
type TraceResult struct {
	StoreID     string       `json:"store_id"`
	Label       string       `json:"label,omitempty"`
	InitialHash string       `json:"initial_hash"`
	Timeline    []TraceEvent `json:"timeline"`
	Stats       TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalActions int `json:"total_actions"`
	Shown        int `json:"shown"`
	StateChanges int `json:"state_changes"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded action traces",
		Long: `Inspect the action trace database written by "relay run".

Without --store, lists every traced store with its action count. With
--store, shows that store's timeline: each dispatched action with its
sequence number, the hash of the state it produced and whether the state
changed.

Examples:
  relay trace --db ./trace.db
  relay trace --db ./trace.db --store 0190... --action added
  relay trace --db ./trace.db --store 0190... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "trace database path (default: trace.database from config)")
	cmd.Flags().StringVar(&opts.StoreID, "store", "", "store id to show")
	cmd.Flags().StringVar(&opts.Action, "action", "", "filter to one action type")

	return cmd
}

// openTraceDB opens an existing trace database for inspection. It never
// creates or migrates the file.
func openTraceDB(flag string, opts *RootOptions) (*trace.DB, error) {
	path := flag
	if path == "" {
		path = opts.Config.Trace.Database
	}
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no trace database: pass --db or set trace.database").WithCode(CodeUsage)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "trace database not found", err).WithCode(CodeTrace)
	}
	db, err := trace.OpenExisting(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open trace database", err).WithCode(CodeTrace)
	}
	return db, nil
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	db, err := openTraceDB(opts.Database, opts.RootOptions)
	if err != nil {
		return err
	}
	defer db.Close()

	if opts.StoreID == "" {
		return listRuns(opts, cmd, db)
	}

	run, err := db.ReadRun(ctx, opts.StoreID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	records, err := db.ReadActions(ctx, opts.StoreID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read actions", err)
	}

	result := TraceResult{
		StoreID:     run.StoreID,
		Label:       run.Label,
		InitialHash: run.InitialHash,
		Timeline:    []TraceEvent{},
		Stats:       TraceStats{TotalActions: len(records)},
	}
	for _, rec := range records {
		if rec.StateChanged {
			result.Stats.StateChanges++
		}
		if opts.Action != "" && rec.ActionType != opts.Action {
			continue
		}
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:          rec.Seq,
			Action:       rec.ActionType,
			Payload:      rec.Payload,
			StateHash:    rec.StateHash,
			StateChanged: rec.StateChanged,
		})
	}
	result.Stats.Shown = len(result.Timeline)

	if opts.Format == "json" {
		return opts.formatter(cmd).JSON(CLIResponse{Status: "ok", Data: result, StoreID: result.StoreID})
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

func listRuns(opts *TraceOptions, cmd *cobra.Command, db *trace.DB) error {
	ctx := cmd.Context()

	runs, err := db.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	summaries := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		n, err := db.CountActions(ctx, run.StoreID, opts.Action)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to count actions", err)
		}
		summaries = append(summaries, RunSummary{StoreID: run.StoreID, Label: run.Label, Actions: n})
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).Success(summaries)
	}

	w := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No traced stores found.")
		return nil
	}
	fmt.Fprintf(w, "%-38s %-16s %s\n", "STORE", "LABEL", "ACTIONS")
	for _, s := range summaries {
		fmt.Fprintf(w, "%-38s %-16s %d\n", s.StoreID, s.Label, s.Actions)
	}
	return nil
}

func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Store: %s", result.StoreID)
	if result.Label != "" {
		fmt.Fprintf(w, " (%s)", result.Label)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Initial state: %s\n", shortHash(result.InitialHash))
	fmt.Fprintln(w)

	for _, e := range result.Timeline {
		marker := " "
		if e.StateChanged {
			marker = "*"
		}
		fmt.Fprintf(w, "[%d] %s %s %s\n", e.Seq, marker, shortHash(e.StateHash), e.Action)
		if verbose {
			fmt.Fprintf(w, "      %s\n", e.Payload)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Actions: %d (%d shown), state changes: %d\n",
		result.Stats.TotalActions, result.Stats.Shown, result.Stats.StateChanges)
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
