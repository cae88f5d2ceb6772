// Package teststore provides an exhaustive test harness around a store.
//
// A TestStore runs the real reducer and the real effect interpreter, but
// every action an effect sends is held in a queue instead of being
// dispatched. The test must name each of those actions with Receive, in
// order, before it may Send another action or finish. Every Send and
// Receive also checks the resulting state against the expectation built by
// the update functions.
//
// Usage:
//
//	ts := teststore.New(t, store.Config[State, Action, Deps]{...})
//	ts.Send(Action{Type: "load"}, func(s *State) { s.Loading = true })
//	ts.Receive(Action{Type: "loaded", Items: items}, func(s *State) {
//	    s.Loading = false
//	    s.Items = items
//	})
//
// Finish runs from t.Cleanup. It waits for running effects and fails on
// any action still queued.
package teststore

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/relay/internal/store"
)

// TB is the subset of testing.TB the test store reports through.
type TB interface {
	Helper()
	Errorf(format string, args ...any)
	Cleanup(func())
}

// FailureKind distinguishes the ways a test store assertion can fail.
// Each failure message starts with its kind.
type FailureKind string

const (
	// FailUnhandledReceived: effect actions were left unreceived before a
	// Send or at Finish.
	FailUnhandledReceived FailureKind = "unhandled received actions"

	// FailUnexpectedAction: Receive got a different action than expected.
	FailUnexpectedAction FailureKind = "unexpected action"

	// FailStateMismatch: state after Send/Receive differs from the expectation.
	FailStateMismatch FailureKind = "state mismatch"

	// FailNoAction: Receive timed out waiting for an action.
	FailNoAction FailureKind = "no action received"

	// FailEffectsRunning: executors were still running at Finish.
	FailEffectsRunning FailureKind = "effects still running"
)

// Exhaustivity controls how strictly state is checked.
type Exhaustivity int

const (
	// Exhaustive requires every state change to be described by an update.
	Exhaustive Exhaustivity = iota

	// StateOff skips state checks unless an update is given. Received
	// actions are still exhaustive.
	StateOff
)

// DefaultTimeout bounds how long Receive waits for an effect action and
// how long Finish waits for running effects.
const DefaultTimeout = time.Second

// Option configures a TestStore.
type Option func(*options)

type options struct {
	exhaustivity Exhaustivity
	timeout      time.Duration
	storeOpts    []store.Option
}

// WithExhaustivity sets the state-check mode.
func WithExhaustivity(e Exhaustivity) Option {
	return func(o *options) { o.exhaustivity = e }
}

// WithTimeout sets the Receive and Finish timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithStoreOptions passes options to the underlying store, typically
// store.WithScheduler with a virtual-time scheduler.
func WithStoreOptions(opts ...store.Option) Option {
	return func(o *options) { o.storeOpts = append(o.storeOpts, opts...) }
}

// TestStore wraps a store.Store and enforces exhaustive assertions.
//
// Thread-safety: Send, Receive, SkipReceived and Finish are meant to be
// called from the test goroutine. Effects may enqueue from any goroutine.
type TestStore[S, A, D any] struct {
	t            TB
	store        *store.Store[S, A, D]
	received     *receivedQueue[A]
	exhaustivity Exhaustivity
	timeout      time.Duration

	mu       sync.Mutex
	finished bool
}

// New creates a test store. cfg.OnEffectAction is replaced; every other
// field is used as given. Finish is registered with t.Cleanup.
func New[S, A, D any](t TB, cfg store.Config[S, A, D], opts ...Option) *TestStore[S, A, D] {
	t.Helper()

	o := options{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	ts := &TestStore[S, A, D]{
		t:            t,
		received:     newReceivedQueue[A](),
		exhaustivity: o.exhaustivity,
		timeout:      o.timeout,
	}
	cfg.OnEffectAction = func(a A) { ts.received.Enqueue(a) }
	ts.store = store.New(cfg, o.storeOpts...)

	t.Cleanup(func() { ts.Finish() })
	return ts
}

// Store returns the underlying store.
func (ts *TestStore[S, A, D]) Store() *store.Store[S, A, D] {
	return ts.store
}

// State returns the current state.
func (ts *TestStore[S, A, D]) State() S {
	return ts.store.State()
}

// Pending returns the effect actions not yet received.
func (ts *TestStore[S, A, D]) Pending() []A {
	return ts.received.Snapshot()
}

// Send dispatches action and checks the resulting state.
//
// The expected state is the previous state with every update applied in
// order. Updates receive a copy of the previous state; like reducers they
// must replace, not mutate, slices and maps they change. With no updates
// in Exhaustive mode, the state must not change.
//
// Send first waits until running effects finish or one of them queues an
// action, then fails without dispatching if effect actions are queued.
// Effects still running after the timeout with nothing queued, such as a
// long-lived cancellable, do not block the send.
// Returns true if every check passed.
func (ts *TestStore[S, A, D]) Send(action A, update ...func(*S)) bool {
	ts.t.Helper()

	ts.settle()
	if pending := ts.received.Snapshot(); len(pending) > 0 {
		ts.fail(FailUnhandledReceived,
			"must handle %d received action(s) before sending %s:\n%s",
			len(pending), store.ActionName(action), describe(pending))
		return false
	}

	before := ts.store.State()
	ts.store.Dispatch(action)
	return ts.checkState("send", action, before, update)
}

// Receive waits for the next effect action, requires it to equal expected,
// reduces it, and checks the resulting state like Send.
func (ts *TestStore[S, A, D]) Receive(expected A, update ...func(*S)) bool {
	ts.t.Helper()

	action, ok := ts.received.DequeueWithin(ts.timeout)
	if !ok {
		ts.fail(FailNoAction,
			"expected to receive %s, but no action was received within %s",
			store.ActionName(expected), ts.timeout)
		return false
	}

	if !assert.ObjectsAreEqual(expected, action) {
		ts.fail(FailUnexpectedAction,
			"received %s, expected %s\n%s",
			store.ActionName(action), store.ActionName(expected), diff(expected, action))
		return false
	}

	before := ts.store.State()
	ts.store.Dispatch(action)
	return ts.checkState("receive", action, before, update)
}

// SkipReceived waits for running effects, then discards every queued
// action without reducing it. Returns the discarded actions.
func (ts *TestStore[S, A, D]) SkipReceived() []A {
	ts.t.Helper()
	ts.waitIdle()
	return ts.received.Drain()
}

// Finish waits for running effects, fails on unreceived actions and
// destroys the store. Later calls are no-ops.
func (ts *TestStore[S, A, D]) Finish() {
	ts.t.Helper()

	ts.mu.Lock()
	if ts.finished {
		ts.mu.Unlock()
		return
	}
	ts.finished = true
	ts.mu.Unlock()

	defer func() {
		ts.received.Close()
		ts.store.Destroy()
	}()

	if !ts.waitIdle() {
		ts.fail(FailEffectsRunning, "effects still running after %s", ts.timeout)
	}

	if pending := ts.received.Snapshot(); len(pending) > 0 {
		ts.fail(FailUnhandledReceived,
			"must handle %d received action(s) before finishing:\n%s",
			len(pending), describe(pending))
	}
}

func (ts *TestStore[S, A, D]) waitIdle() bool {
	timer := time.NewTimer(ts.timeout)
	defer timer.Stop()
	select {
	case <-ts.store.Idle():
		return true
	case <-timer.C:
		return false
	}
}

// settle waits until no executor is running or an effect action is queued.
// Returns false if effects were still running with nothing queued when the
// timeout expired.
func (ts *TestStore[S, A, D]) settle() bool {
	timer := time.NewTimer(ts.timeout)
	defer timer.Stop()

	idle := ts.store.Idle()
	for ts.received.Len() == 0 {
		select {
		case <-idle:
			return true
		case _, ok := <-ts.received.signal:
			if !ok {
				return true
			}
		case <-timer.C:
			return false
		}
	}
	return true
}

func (ts *TestStore[S, A, D]) checkState(op string, action A, before S, update []func(*S)) bool {
	ts.t.Helper()

	if len(update) == 0 && ts.exhaustivity == StateOff {
		return true
	}

	expected := before
	for _, u := range update {
		u(&expected)
	}
	actual := ts.store.State()

	if assert.ObjectsAreEqual(expected, actual) {
		return true
	}
	ts.fail(FailStateMismatch, "after %s %s:\n%s", op, store.ActionName(action), diff(expected, actual))
	return false
}

func (ts *TestStore[S, A, D]) fail(kind FailureKind, format string, args ...any) {
	ts.t.Helper()
	ts.t.Errorf("%s: %s", kind, fmt.Sprintf(format, args...))
}

func describe[A any](actions []A) string {
	var b strings.Builder
	for i, a := range actions {
		fmt.Fprintf(&b, "  %d. %s %+v\n", i+1, store.ActionName(a), a)
	}
	return strings.TrimRight(b.String(), "\n")
}

// diffRecorder captures the message testify builds for a failed Equal.
type diffRecorder struct {
	msg string
}

func (r *diffRecorder) Errorf(format string, args ...any) {
	r.msg = fmt.Sprintf(format, args...)
}

// diff renders expected vs actual using testify's formatting.
func diff(expected, actual any) string {
	r := &diffRecorder{}
	assert.Equal(r, expected, actual)
	return strings.TrimSpace(r.msg)
}
