package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/relay/internal/demo"
	"github.com/roach88/relay/internal/trace"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	StoreID  string // optional - one store only
}

// ReplayRunResult holds the replay result for a single store.
type ReplayRunResult struct {
	StoreID       string            `json:"store_id"`
	Actions       int               `json:"actions"`
	Deterministic bool              `json:"deterministic"`
	Divergence    *trace.Divergence `json:"divergence,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-reduce recorded traces and verify determinism",
		Long: `Re-reduce every recorded action from the traced initial state with
the demo reducer and compare each resulting state hash with the recorded
one. Effects are not run; the actions they produced were recorded and are
replayed in order.

Exit codes:
  0 - Every run replayed to identical states
  1 - A run diverged
  2 - Command error (database not found, etc.)

Examples:
  relay replay --db ./trace.db
  relay replay --db ./trace.db --store 0190...
  relay replay --db ./trace.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "trace database path (default: trace.database from config)")
	cmd.Flags().StringVar(&opts.StoreID, "store", "", "replay one store only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	db, err := openTraceDB(opts.Database, opts.RootOptions)
	if err != nil {
		return err
	}
	defer db.Close()

	var storeIDs []string
	if opts.StoreID != "" {
		storeIDs = []string{opts.StoreID}
	} else {
		runs, err := db.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		for _, run := range runs {
			storeIDs = append(storeIDs, run.StoreID)
		}
	}

	cfg, _ := demo.NewConfig(demo.Env{}, demo.State{})
	reducer := demo.Reducer()

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(storeIDs)),
		TotalRuns:        len(storeIDs),
		AllDeterministic: true,
	}
	for _, id := range storeIDs {
		v, err := trace.Verify(ctx, db, id, reducer, cfg.Dependencies)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay store %s", id), err)
		}
		opts.formatter(cmd).VerboseLog("replayed %s: %d action(s)", id, v.Actions)

		result.Runs = append(result.Runs, ReplayRunResult{
			StoreID:       id,
			Actions:       v.Actions,
			Deterministic: v.OK(),
			Divergence:    v.Divergence,
		})
		if !v.OK() {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(opts, cmd, result)
	}
	return outputReplayText(cmd, result)
}

func outputReplayJSON(opts *ReplayOptions, cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    string(CodeDiverged),
			Message: "replay diverged from the recorded trace",
		}
	}
	if err := opts.formatter(cmd).JSON(response); err != nil {
		return err
	}
	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "replay diverged from the recorded trace").WithCode(CodeDiverged).markReported()
	}
	return nil
}

func outputReplayText(cmd *cobra.Command, result ReplayResult) error {
	w := cmd.OutOrStdout()

	if result.TotalRuns == 0 {
		fmt.Fprintln(w, "No traced stores found.")
		return nil
	}

	for _, run := range result.Runs {
		if run.Deterministic {
			fmt.Fprintf(w, "✓ %s (%d actions)\n", run.StoreID, run.Actions)
			continue
		}
		d := run.Divergence
		fmt.Fprintf(w, "✗ %s diverged at seq %d (%s): %s hash differs\n", run.StoreID, d.Seq, d.ActionType, d.Reason)
		fmt.Fprintf(w, "  recorded: %s\n", d.Recorded)
		fmt.Fprintf(w, "  replayed: %s\n", d.Replayed)
	}

	fmt.Fprintln(w)
	if !result.AllDeterministic {
		fmt.Fprintln(w, "✗ Determinism verification failed")
		return NewExitError(ExitFailure, "replay diverged from the recorded trace").WithCode(CodeDiverged)
	}
	fmt.Fprintf(w, "✓ All %d run(s) deterministic\n", result.TotalRuns)
	return nil
}
