package effect

import (
	"context"
	"fmt"
	"time"
)

// Kind identifies an effect variant.
type Kind int

const (
	// KindNone performs no work. It is the zero value.
	KindNone Kind = iota
	// KindRun runs an executor once.
	KindRun
	// KindFireAndForget runs a thunk that produces no actions.
	KindFireAndForget
	// KindBatch runs every child effect independently.
	KindBatch
	// KindCancellable runs an executor, cancelling any in-flight run with the same ID first.
	KindCancellable
	// KindDebounced delays an executor; a newer effect with the same ID restarts the delay.
	KindDebounced
	// KindThrottled runs at most once per ID per window; excess requests are dropped.
	KindThrottled
	// KindAfterDelay runs an executor once after a delay.
	KindAfterDelay
	// KindSubscription keeps a long-lived source open until replaced, cancelled or destroyed.
	KindSubscription
	// KindCancel cancels whatever is registered under an ID.
	KindCancel
)

var kindNames = map[Kind]string{
	KindNone:          "none",
	KindRun:           "run",
	KindFireAndForget: "fire_and_forget",
	KindBatch:         "batch",
	KindCancellable:   "cancellable",
	KindDebounced:     "debounced",
	KindThrottled:     "throttled",
	KindAfterDelay:    "after_delay",
	KindSubscription:  "subscription",
	KindCancel:        "cancel",
}

// String returns the snake_case name used in logs.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Send delivers an action back to the store.
type Send[A any] func(action A)

// Executor performs asynchronous work and may send any number of actions.
//
// The context is cancelled when the effect is superseded (same ID),
// explicitly cancelled, or the store is destroyed. Actions sent after
// cancellation are dropped. A returned error is logged, never retried.
type Executor[A any] func(ctx context.Context, send Send[A]) error

// Thunk performs work that produces no actions.
type Thunk func(ctx context.Context) error

// Teardown releases a subscription.
type Teardown func()

// Setup starts a subscription and returns its teardown.
//
// Setup is called synchronously by the interpreter and must not block;
// long-lived sources start their own goroutine and watch ctx.
type Setup[A any] func(ctx context.Context, send Send[A]) (Teardown, error)

// Effect is an immutable description of side work producing actions of type A.
//
// The zero value is None.
type Effect[A any] struct {
	kind     Kind
	id       string
	delay    time.Duration
	run      Executor[A]
	thunk    Thunk
	setup    Setup[A]
	children []Effect[A]
}

// Kind returns the variant tag.
func (e Effect[A]) Kind() Kind { return e.kind }

// ID returns the cancellation/debounce/throttle/subscription key, or "".
func (e Effect[A]) ID() string { return e.id }

// Delay returns the debounce, throttle or after-delay duration.
func (e Effect[A]) Delay() time.Duration { return e.delay }

// Executor returns the executor for Run, Cancellable, Debounced, Throttled and AfterDelay.
func (e Effect[A]) Executor() Executor[A] { return e.run }

// Thunk returns the thunk of a FireAndForget effect.
func (e Effect[A]) Thunk() Thunk { return e.thunk }

// Setup returns the setup of a Subscription effect.
func (e Effect[A]) Setup() Setup[A] { return e.setup }

// Children returns a copy of a Batch's child effects.
func (e Effect[A]) Children() []Effect[A] {
	if len(e.children) == 0 {
		return nil
	}
	out := make([]Effect[A], len(e.children))
	copy(out, e.children)
	return out
}

// IsNone reports whether the effect performs no work.
func (e Effect[A]) IsNone() bool { return e.kind == KindNone }

// String describes the effect for logs and test failures.
func (e Effect[A]) String() string {
	switch e.kind {
	case KindBatch:
		return fmt.Sprintf("batch(%d)", len(e.children))
	case KindDebounced, KindThrottled:
		return fmt.Sprintf("%s(%q, %s)", e.kind, e.id, e.delay)
	case KindAfterDelay:
		return fmt.Sprintf("%s(%s)", e.kind, e.delay)
	case KindCancellable, KindSubscription, KindCancel:
		return fmt.Sprintf("%s(%q)", e.kind, e.id)
	default:
		return e.kind.String()
	}
}

// None returns an effect that does nothing.
func None[A any]() Effect[A] {
	return Effect[A]{}
}

// Run runs exec once on its own goroutine.
func Run[A any](exec Executor[A]) Effect[A] {
	if exec == nil {
		return None[A]()
	}
	return Effect[A]{kind: KindRun, run: exec}
}

// Just sends a single action as soon as the effect is interpreted.
func Just[A any](action A) Effect[A] {
	return Run(func(_ context.Context, send Send[A]) error {
		send(action)
		return nil
	})
}

// FireAndForget runs thunk and discards its outcome. Errors are logged.
func FireAndForget[A any](thunk Thunk) Effect[A] {
	if thunk == nil {
		return None[A]()
	}
	return Effect[A]{kind: KindFireAndForget, thunk: thunk}
}

// Batch runs every effect independently. No ordering is promised between
// children. None children are dropped, nested batches are flattened, and a
// batch with a single remaining child collapses to that child.
func Batch[A any](effects ...Effect[A]) Effect[A] {
	var children []Effect[A]
	for _, e := range effects {
		switch e.kind {
		case KindNone:
		case KindBatch:
			children = append(children, e.children...)
		default:
			children = append(children, e)
		}
	}
	switch len(children) {
	case 0:
		return None[A]()
	case 1:
		return children[0]
	}
	return Effect[A]{kind: KindBatch, children: children}
}

// Cancellable runs exec, first cancelling any in-flight effect registered under id.
func Cancellable[A any](id string, exec Executor[A]) Effect[A] {
	if exec == nil {
		return None[A]()
	}
	return Effect[A]{kind: KindCancellable, id: id, run: exec}
}

// Debounced starts exec after d. Another Debounced effect with the same id
// arriving before d elapses discards this one and restarts the delay.
func Debounced[A any](id string, d time.Duration, exec Executor[A]) Effect[A] {
	if exec == nil {
		return None[A]()
	}
	return Effect[A]{kind: KindDebounced, id: id, delay: d, run: exec}
}

// Throttled runs exec immediately unless another run with the same id
// started less than d ago, in which case the request is dropped.
func Throttled[A any](id string, d time.Duration, exec Executor[A]) Effect[A] {
	if exec == nil {
		return None[A]()
	}
	return Effect[A]{kind: KindThrottled, id: id, delay: d, run: exec}
}

// AfterDelay runs exec once after d. Only store teardown cancels it.
func AfterDelay[A any](d time.Duration, exec Executor[A]) Effect[A] {
	if exec == nil {
		return None[A]()
	}
	return Effect[A]{kind: KindAfterDelay, delay: d, run: exec}
}

// Subscription opens a long-lived source under id, tearing down any
// previous subscription with the same id first.
func Subscription[A any](id string, setup Setup[A]) Effect[A] {
	if setup == nil {
		return None[A]()
	}
	return Effect[A]{kind: KindSubscription, id: id, setup: setup}
}

// Cancel cancels the in-flight cancellable run, pending debounce and open
// subscription registered under id.
func Cancel[A any](id string) Effect[A] {
	return Effect[A]{kind: KindCancel, id: id}
}
