package store

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/relay/internal/clock"
	"github.com/roach88/relay/internal/effect"
)

// Reducer computes the next state and an effect from the current state,
// an action and the dependency bag. Reducers must be pure: the same inputs
// always produce the same outputs, and all side work goes into the effect.
type Reducer[S, A, D any] func(state S, action A, deps D) (S, effect.Effect[A])

// Config describes a store.
type Config[S, A, D any] struct {
	// InitialState is the state before the first dispatch.
	InitialState S

	// Reducer is required.
	Reducer Reducer[S, A, D]

	// Dependencies is passed to every reducer call.
	Dependencies D

	// MaxHistorySize bounds the action history. Oldest entries drop first.
	// Zero means unbounded.
	MaxHistorySize int

	// DisableHistory turns the action history off entirely.
	DisableHistory bool

	// Equal decides whether a reducer returned an unchanged state.
	// Defaults to identity for comparable types and reflect.DeepEqual otherwise.
	//
	// The DeepEqual fallback walks the whole state on every dispatch, and it
	// cannot see a change made by mutating a slice or map shared with the
	// previous state: both sides then hold the same backing data. For large
	// states use a pointer state type (a reducer returns a new pointer when
	// it changes something) or supply a cheaper Equal, e.g. a version
	// counter comparison.
	Equal func(a, b S) bool

	// OnEffectAction, when set, receives every action sent by an effect
	// instead of that action being dispatched. The test store uses this
	// to hold effect output until a test receives it.
	OnEffectAction func(action A)
}

// Entry is one record of the action history.
type Entry[A any] struct {
	Seq    int64
	Action A
}

type stateListener[S any] struct {
	id uint64
	fn func(S)
}

type actionListener[S, A any] struct {
	id uint64
	fn func(A, S)
}

// Store owns application state, the action history, listeners and the
// effect interpreter's bookkeeping.
//
// Thread-safety: every method is safe for concurrent use. Dispatches are
// serialized by the run-to-completion queue (see package documentation).
type Store[S, A, D any] struct {
	id             string
	reducer        Reducer[S, A, D]
	deps           D
	equal          func(a, b S) bool
	onEffectAction func(A)
	logger         *slog.Logger
	clock          *clock.Clock
	interp         *interpreter[A]

	mu              sync.Mutex
	state           S
	pending         []A
	draining        bool
	history         *history[A]
	listeners       []stateListener[S]
	actionListeners []actionListener[S, A]
	nextListenerID  uint64
	destroyed       bool
}

// New creates a store from cfg. It panics if cfg.Reducer is nil.
func New[S, A, D any](cfg Config[S, A, D], opts ...Option) *Store[S, A, D] {
	if cfg.Reducer == nil {
		panic("store: Config.Reducer is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	maxHistory := cfg.MaxHistorySize
	if o.maxHistorySize > 0 {
		maxHistory = o.maxHistorySize
	}

	equal := cfg.Equal
	if equal == nil {
		equal = defaultEqual[S]
	}

	id := o.ids.Generate()
	logger := o.logger.With("store_id", id)

	s := &Store[S, A, D]{
		id:             id,
		reducer:        cfg.Reducer,
		deps:           cfg.Dependencies,
		equal:          equal,
		onEffectAction: cfg.OnEffectAction,
		logger:         logger,
		clock:          clock.NewClock(),
		interp:         newInterpreter[A](logger, o.scheduler),
		state:          cfg.InitialState,
	}
	if !cfg.DisableHistory && !o.disableHistory {
		s.history = newHistory[A](maxHistory)
	}

	logger.Debug("store created", "max_history", maxHistory, "history", s.history != nil)
	return s
}

// ID returns the store instance ID.
func (s *Store[S, A, D]) ID() string {
	return s.id
}

// State returns the current state.
func (s *Store[S, A, D]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Select applies selector to the store's current state. No caching.
func Select[S, A, D, T any](s *Store[S, A, D], selector func(S) T) T {
	return selector(s.State())
}

// Dispatch sends an action through the reducer.
//
// When no other dispatch is in progress, Dispatch returns only after this
// action (and anything queued behind it) has been reduced, committed,
// announced to listeners and handed to the interpreter. When called while
// another dispatch is in progress (from a listener, or an effect goroutine),
// the action is queued and processed by that dispatch before it returns.
//
// A panicking reducer propagates to the caller. The state is left as it was.
func (s *Store[S, A, D]) Dispatch(action A) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		s.logger.Warn("dispatch after destroy dropped", "action", ActionName(action))
		return
	}

	s.pending = append(s.pending, action)
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()

	s.drain()
}

// drain processes queued actions until the queue is empty.
// Only the goroutine that set draining calls drain.
func (s *Store[S, A, D]) drain() {
	finished := false
	defer func() {
		if finished {
			return
		}
		// Reducer panicked. Release the queue so later dispatches proceed;
		// actions queued behind the failing one stay queued.
		s.mu.Lock()
		s.draining = false
		s.mu.Unlock()
	}()

	for {
		s.mu.Lock()
		if len(s.pending) == 0 || s.destroyed {
			s.pending = nil
			s.draining = false
			s.mu.Unlock()
			finished = true
			return
		}

		action := s.pending[0]
		var zero A
		s.pending[0] = zero
		s.pending = s.pending[1:]

		seq := s.clock.Next()
		if s.history != nil {
			s.history.add(Entry[A]{Seq: seq, Action: action})
		}
		prev := s.state
		s.mu.Unlock()

		next, eff := s.reducer(prev, action, s.deps)

		s.mu.Lock()
		changed := !s.equal(prev, next)
		current := prev
		var listeners []stateListener[S]
		if changed {
			s.state = next
			current = next
			listeners = s.listeners
		}
		actionListeners := s.actionListeners
		destroyed := s.destroyed
		s.mu.Unlock()

		s.logger.Debug("action reduced",
			"seq", seq,
			"action", ActionName(action),
			"changed", changed,
			"effect", eff.Kind().String(),
		)

		for _, l := range listeners {
			s.notifyState(l, current)
		}
		for _, l := range actionListeners {
			s.notifyAction(l, action, current)
		}

		if !eff.IsNone() && !destroyed {
			s.interp.execute(eff, s.effectSend)
		}
	}
}

// effectSend is the send handed to every executor.
func (s *Store[S, A, D]) effectSend(action A) {
	if s.onEffectAction != nil {
		s.onEffectAction(action)
		return
	}
	s.Dispatch(action)
}

// Sender returns the send function effects use. Actions sent through it
// take the same path as effect output, including OnEffectAction.
func (s *Store[S, A, D]) Sender() effect.Send[A] {
	return s.effectSend
}

// Subscribe registers a state listener and immediately calls it with the
// current state. The listener is called again after every dispatch that
// changes state. The returned function unsubscribes; it is idempotent.
func (s *Store[S, A, D]) Subscribe(fn func(S)) (unsubscribe func()) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return func() {}
	}
	s.nextListenerID++
	l := stateListener[S]{id: s.nextListenerID, fn: fn}
	s.listeners = append(s.listeners, l)
	current := s.state
	s.mu.Unlock()

	s.notifyState(l, current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.listeners = slices.DeleteFunc(slices.Clone(s.listeners), func(x stateListener[S]) bool {
				return x.id == l.id
			})
		})
	}
}

// SubscribeToActions registers a listener called with every dispatched
// action and the state after it was reduced, whether or not state changed.
func (s *Store[S, A, D]) SubscribeToActions(fn func(action A, state S)) (unsubscribe func()) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return func() {}
	}
	s.nextListenerID++
	l := actionListener[S, A]{id: s.nextListenerID, fn: fn}
	s.actionListeners = append(s.actionListeners, l)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.actionListeners = slices.DeleteFunc(slices.Clone(s.actionListeners), func(x actionListener[S, A]) bool {
				return x.id == l.id
			})
		})
	}
}

// History returns the recorded actions, oldest first.
// Returns nil when history is disabled.
func (s *Store[S, A, D]) History() []A {
	entries := s.Entries()
	if entries == nil {
		return nil
	}
	actions := make([]A, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	return actions
}

// Entries returns the recorded history with sequence numbers, oldest first.
func (s *Store[S, A, D]) Entries() []Entry[A] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history == nil {
		return nil
	}
	return s.history.list()
}

// Idle returns a channel that is closed while no effect executor is
// running. Pending timers and open subscriptions do not count as running.
func (s *Store[S, A, D]) Idle() <-chan struct{} {
	return s.interp.running.wait()
}

// Destroyed reports whether Destroy has been called.
func (s *Store[S, A, D]) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// Destroy tears down every pending timer, open subscription and in-flight
// effect and drops all listeners. Later dispatches and effect sends are
// no-ops. Destroy is idempotent.
func (s *Store[S, A, D]) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	s.pending = nil
	s.listeners = nil
	s.actionListeners = nil
	s.mu.Unlock()

	s.interp.destroy()
	s.logger.Debug("store destroyed")
}

func (s *Store[S, A, D]) notifyState(l stateListener[S], state S) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("state listener panicked",
				"listener", l.id,
				"error", newListenerPanic(r),
			)
		}
	}()
	l.fn(state)
}

func (s *Store[S, A, D]) notifyAction(l actionListener[S, A], action A, state S) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("action listener panicked",
				"listener", l.id,
				"action", ActionName(action),
				"error", newListenerPanic(r),
			)
		}
	}()
	l.fn(action, state)
}

// Named is implemented by actions that provide their own log/trace name.
type Named interface {
	ActionName() string
}

// ActionName returns a short name for an action: its ActionName() when it
// implements Named, otherwise its Go type.
func ActionName(action any) string {
	if n, ok := action.(Named); ok {
		return n.ActionName()
	}
	return fmt.Sprintf("%T", action)
}
