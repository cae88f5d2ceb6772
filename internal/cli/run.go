package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/relay/internal/demo"
	"github.com/roach88/relay/internal/harness"
	"github.com/roach88/relay/internal/store"
	"github.com/roach88/relay/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Label    string
	Settle   time.Duration
}

// Script is the input of the run command.
//
//	initial_state:
//	  todos: [{ id: t1, state: { title: Milk } }]
//	actions:
//	  - { type: load }
//	  - { type: add, title: Tea }
type Script struct {
	InitialState *yaml.Node  `yaml:"initial_state,omitempty"`
	Actions      []yaml.Node `yaml:"actions"`
}

// RunResult is the outcome of a run.
type RunResult struct {
	StoreID    string     `json:"store_id"`
	Traced     bool       `json:"traced"`
	Sent       int        `json:"sent"`
	Dispatched []string   `json:"dispatched"`
	State      demo.State `json:"state"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [script.yaml]",
		Short: "Dispatch a YAML action script into the demo store",
		Long: `Dispatch a YAML action script into the demo todos store.

The script holds an optional initial state and a list of actions. Each
action is dispatched after the effects of the previous one have settled.
Actions sent by effects are dispatched as they arrive. With a trace
database every dispatched action is recorded and can be inspected with
"relay trace" or verified with "relay replay".

The script is read from stdin when no file (or "-") is given.

Example:
  relay run script.yaml
  relay run --db ./trace.db --label morning script.yaml
  cat script.yaml | relay run --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runScript(opts, path, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "trace database path (default: trace.database from config)")
	cmd.Flags().StringVar(&opts.Label, "label", "", "label stored with the traced run")
	cmd.Flags().DurationVar(&opts.Settle, "settle", 5*time.Second, "how long to wait for effects after each action")

	return cmd
}

func runScript(opts *RunOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger := opts.logger()

	data, err := readScript(path, cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read script", err).WithCode(CodeScript)
	}
	initial, actions, err := parseScript(data)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid script", err).WithCode(CodeScript)
	}

	id := store.UUIDv7Generator{}.Generate()
	env := demo.Env{
		Repository: demo.NewMemoryRepository(initial.Todos...),
		Log:        logger.With("store_id", id),
	}
	storeOpts := append(opts.Config.StoreOptions(), store.WithLogger(logger), store.WithIDGenerator(store.StaticID(id)))
	s := demo.New(env, initial, storeOpts...)
	defer s.Destroy()

	var (
		mu         sync.Mutex
		dispatched []string
	)
	unsubscribe := s.SubscribeToActions(func(a demo.Action, _ demo.State) {
		mu.Lock()
		defer mu.Unlock()
		dispatched = append(dispatched, store.ActionName(a))
	})
	defer unsubscribe()

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.Config.Trace.Database
	}
	var rec *trace.Recorder[demo.State, demo.Action]
	if dbPath != "" {
		db, err := trace.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open trace database", err).WithCode(CodeTrace)
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				logger.Error("error closing trace database", "error", closeErr)
			}
		}()

		rec, err = trace.Attach(ctx, db, s, opts.Label, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to attach trace recorder", err).WithCode(CodeTrace)
		}
		defer rec.Detach()
	}

	logger.Debug("running script", "store_id", s.ID(), "actions", len(actions))
	for _, a := range actions {
		s.Dispatch(a)
		if !settle(s, opts.Settle) {
			logger.Warn("effects still running", "action", store.ActionName(a), "settle", opts.Settle)
		}
	}

	if rec != nil {
		rec.Detach()
		if err := rec.Err(); err != nil {
			return WrapExitError(ExitCommandError, "failed to record trace", err).WithCode(CodeTrace)
		}
	}

	mu.Lock()
	result := RunResult{
		StoreID:    s.ID(),
		Traced:     rec != nil,
		Sent:       len(actions),
		Dispatched: append([]string{}, dispatched...),
		State:      s.State(),
	}
	mu.Unlock()

	if opts.Format == "json" {
		return opts.formatter(cmd).JSON(CLIResponse{Status: "ok", Data: result, StoreID: result.StoreID})
	}
	return outputRunText(cmd, result)
}

func readScript(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// parseScript decodes a script into the demo feature's types.
func parseScript(data []byte) (demo.State, []demo.Action, error) {
	var script Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&script); err != nil {
		return demo.State{}, nil, fmt.Errorf("parse YAML: %w", err)
	}

	var initial demo.State
	if script.InitialState != nil {
		if err := harness.DecodeNode(script.InitialState, &initial); err != nil {
			return demo.State{}, nil, fmt.Errorf("initial_state: %w", err)
		}
	}

	actions := make([]demo.Action, len(script.Actions))
	for i := range script.Actions {
		if err := harness.DecodeNode(&script.Actions[i], &actions[i]); err != nil {
			return demo.State{}, nil, fmt.Errorf("actions[%d]: %w", i, err)
		}
	}
	return initial, actions, nil
}

// settle waits until no effect is running or the timeout passes.
func settle(s *store.Store[demo.State, demo.Action, demo.Deps], timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.Idle():
		return true
	case <-timer.C:
		return false
	}
}

func outputRunText(cmd *cobra.Command, result RunResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Store: %s", result.StoreID)
	if result.Traced {
		fmt.Fprint(w, " (traced)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Sent %d action(s), dispatched %d:\n", result.Sent, len(result.Dispatched))
	for i, name := range result.Dispatched {
		fmt.Fprintf(w, "  %d. %s\n", i+1, name)
	}

	state, err := json.MarshalIndent(result.State, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	fmt.Fprintln(w, "Final state:")
	fmt.Fprintln(w, string(state))
	return nil
}
