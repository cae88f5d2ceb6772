package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/relay/internal/clock"
	"github.com/roach88/relay/internal/effect"
	"github.com/roach88/relay/internal/store"
	"github.com/roach88/relay/internal/teststore"
	"github.com/roach88/relay/internal/testutil"
)

// Feature builds the store config a scenario runs against.
type Feature[S, A, D any] struct {
	// New returns the config for a store starting at initial, and a bind
	// function the harness calls with the store's sender before the first
	// step. Effects that schedule work must use sched.
	New func(sched clock.Scheduler, initial S) (store.Config[S, A, D], func(effect.Send[A]))
}

// Option configures a scenario run.
type Option func(*runOptions)

type runOptions struct {
	timeout time.Duration
	logger  *slog.Logger
}

// WithReceiveTimeout bounds how long a receive step waits for an effect
// action.
func WithReceiveTimeout(d time.Duration) Option {
	return func(o *runOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger sets the store's logger. Runs are silent by default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *runOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Run executes a scenario against a fresh store and returns the result.
//
// Execution flow:
//  1. Decode the initial state and build the store on a virtual clock
//  2. Run each step, checking expect_state where given
//  3. Finish the test store (fails on unreceived effect actions)
//  4. Evaluate assertions against the trace and final state
//
// Step and assertion failures are reported in Result.Errors. An error is
// returned only if the scenario cannot be decoded into the feature's types.
func Run[S, A, D any](scenario *Scenario, feature Feature[S, A, D], opts ...Option) (*Result, error) {
	o := runOptions{
		timeout: teststore.DefaultTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}

	var initial S
	if scenario.InitialState != nil {
		if err := DecodeNode(scenario.InitialState, &initial); err != nil {
			return nil, fmt.Errorf("initial_state: %w", err)
		}
	}

	// Decode every step up front so a typo late in the file fails before
	// anything runs.
	actions := make([]A, len(scenario.Steps))
	advances := make([]time.Duration, len(scenario.Steps))
	for i, step := range scenario.Steps {
		if step.Advance != "" {
			d, err := time.ParseDuration(step.Advance)
			if err != nil {
				return nil, fmt.Errorf("steps[%d].advance: %w", i, err)
			}
			advances[i] = d
		}
		node := step.Send
		if node == nil {
			node = step.Receive
		}
		if node == nil {
			continue
		}
		if err := DecodeNode(node, &actions[i]); err != nil {
			return nil, fmt.Errorf("steps[%d].%s: %w", i, step.kind(), err)
		}
	}

	result := NewResult()
	tb := &collector{result: result}
	sched := testutil.NewManualScheduler()

	cfg, bind := feature.New(sched, initial)
	ts := teststore.New(tb, cfg,
		teststore.WithExhaustivity(teststore.StateOff),
		teststore.WithTimeout(o.timeout),
		teststore.WithStoreOptions(
			store.WithScheduler(sched),
			store.WithLogger(o.logger),
			store.WithIDGenerator(testutil.NewFixedIDGenerator("")),
		),
	)
	bind(ts.Store().Sender())

	seq := clock.NewClock()
	source := SourceSend
	unsubscribe := ts.Store().SubscribeToActions(func(a A, _ S) {
		tb.record(TraceEvent{
			Seq:     seq.Next(),
			Action:  store.ActionName(a),
			Source:  source,
			Payload: normalize(a),
		})
	})

	for i, step := range scenario.Steps {
		tb.prefix = fmt.Sprintf("steps[%d] %s", i, step.kind())
		switch {
		case step.Send != nil:
			source = SourceSend
			ts.Send(actions[i])
		case step.Receive != nil:
			source = SourceReceive
			ts.Receive(actions[i])
		case step.Advance != "":
			sched.Advance(advances[i])
		case step.SkipReceived:
			ts.SkipReceived()
		}
		if step.ExpectState != nil {
			if err := MatchSubset(normalize(step.ExpectState), normalize(ts.State())); err != nil {
				result.AddErrorf("%s: expect_state: %v", tb.prefix, err)
			}
		}
	}

	tb.prefix = "finish"
	tb.runCleanups()
	unsubscribe()

	result.Trace = tb.events()
	result.State = normalize(ts.State())

	for i, a := range scenario.Assertions {
		if err := evaluateAssertion(a, result); err != nil {
			result.AddErrorf("assertions[%d]: %v", i, err)
		}
	}

	return result, nil
}

// collector adapts the test store's failure reporting to a Result.
type collector struct {
	mu       sync.Mutex
	result   *Result
	prefix   string
	trace    []TraceEvent
	cleanups []func()
}

func (c *collector) Helper() {}

func (c *collector) Errorf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result.AddErrorf("%s: %s", c.prefix, fmt.Sprintf(format, args...))
}

func (c *collector) Cleanup(fn func()) {
	c.cleanups = append(c.cleanups, fn)
}

func (c *collector) runCleanups() {
	for i := len(c.cleanups) - 1; i >= 0; i-- {
		c.cleanups[i]()
	}
	c.cleanups = nil
}

func (c *collector) record(e TraceEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace = append(c.trace, e)
}

func (c *collector) events() []TraceEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]TraceEvent{}, c.trace...)
}

// normalize converts v to its JSON form: maps, slices, strings, bools,
// json.Number and nil.
func normalize(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<unencodable %T: %v>", v, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return fmt.Sprintf("<undecodable %T: %v>", v, err)
	}
	return out
}
