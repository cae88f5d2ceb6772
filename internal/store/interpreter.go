package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/relay/internal/clock"
	"github.com/roach88/relay/internal/effect"
)

// interpreter executes effects for one store.
//
// All registries are keyed by effect id and guarded by mu. Tokens tell a
// registration apart from a newer one under the same id, so a finishing
// executor or firing timer never removes its replacement.
//
// User code (executors, setups, teardowns) never runs while mu is held.
type interpreter[A any] struct {
	logger    *slog.Logger
	scheduler clock.Scheduler
	root      context.Context
	cancel    context.CancelFunc
	running   *tracker

	mu            sync.Mutex
	destroyed     bool
	nextToken     uint64
	cancellables  map[string]inflight
	debounces     map[string]pendingTimer
	throttles     map[string]time.Time
	delays        map[uint64]clock.Timer
	subscriptions map[string]subscription
}

type inflight struct {
	token  uint64
	cancel context.CancelFunc
}

type pendingTimer struct {
	token uint64
	timer clock.Timer
}

type subscription struct {
	token    uint64
	teardown effect.Teardown
	cancel   context.CancelFunc
}

func newInterpreter[A any](logger *slog.Logger, scheduler clock.Scheduler) *interpreter[A] {
	root, cancel := context.WithCancel(context.Background())
	return &interpreter[A]{
		logger:        logger,
		scheduler:     scheduler,
		root:          root,
		cancel:        cancel,
		running:       newTracker(),
		cancellables:  make(map[string]inflight),
		debounces:     make(map[string]pendingTimer),
		throttles:     make(map[string]time.Time),
		delays:        make(map[uint64]clock.Timer),
		subscriptions: make(map[string]subscription),
	}
}

// execute interprets eff. Batches recurse; everything else either spawns
// an executor goroutine, arms a timer or updates a registry.
func (in *interpreter[A]) execute(eff effect.Effect[A], send effect.Send[A]) {
	if in.isDestroyed() {
		return
	}

	switch eff.Kind() {
	case effect.KindNone:
	case effect.KindRun:
		in.spawn(eff, in.root, nil, send)
	case effect.KindBatch:
		for _, child := range eff.Children() {
			in.execute(child, send)
		}
	case effect.KindCancellable:
		in.runCancellable(eff, send)
	case effect.KindDebounced:
		in.debounce(eff, send)
	case effect.KindThrottled:
		in.throttle(eff, send)
	case effect.KindAfterDelay:
		in.afterDelay(eff, send)
	case effect.KindSubscription:
		in.subscribe(eff, send)
	case effect.KindFireAndForget:
		in.fireAndForget(eff)
	case effect.KindCancel:
		in.cancelID(eff.ID())
	default:
		in.logger.Error("unknown effect kind", "kind", eff.Kind().String())
	}
}

func (in *interpreter[A]) isDestroyed() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.destroyed
}

// spawn runs the effect's executor on a new goroutine. done, if non-nil,
// runs after the executor returns.
func (in *interpreter[A]) spawn(eff effect.Effect[A], ctx context.Context, done func(), send effect.Send[A]) {
	exec := eff.Executor()
	kind, id := eff.Kind().String(), eff.ID()

	in.running.add()
	go func() {
		defer in.running.done()
		if done != nil {
			defer done()
		}
		defer in.recoverEffect(kind, id)

		err := exec(ctx, in.guard(ctx, kind, id, send))
		switch {
		case err == nil:
		case ctx.Err() != nil && errors.Is(err, ctx.Err()):
			in.logger.Debug("effect cancelled", "kind", kind, "id", id)
		default:
			in.logger.Error("effect failed",
				"kind", kind,
				"id", id,
				"error", NewEffectError(kind, id, err),
			)
		}
	}()
}

// guard drops sends after ctx is cancelled.
func (in *interpreter[A]) guard(ctx context.Context, kind, id string, send effect.Send[A]) effect.Send[A] {
	return func(action A) {
		if ctx.Err() != nil {
			in.logger.Debug("send after cancellation dropped",
				"kind", kind,
				"id", id,
				"action", ActionName(action),
			)
			return
		}
		send(action)
	}
}

func (in *interpreter[A]) recoverEffect(kind, id string) {
	if r := recover(); r != nil {
		in.logger.Error("effect panicked",
			"kind", kind,
			"id", id,
			"error", NewPanicError(kind, id, r),
		)
	}
}

// runCancellable cancels any in-flight effect under the same id and starts
// this one. The newest registration wins.
func (in *interpreter[A]) runCancellable(eff effect.Effect[A], send effect.Send[A]) {
	id := eff.ID()
	ctx, cancel := context.WithCancel(in.root)

	in.mu.Lock()
	if in.destroyed {
		in.mu.Unlock()
		cancel()
		return
	}
	if prev, ok := in.cancellables[id]; ok {
		prev.cancel()
		in.logger.Debug("in-flight effect cancelled", "kind", "cancellable", "id", id)
	}
	in.nextToken++
	token := in.nextToken
	in.cancellables[id] = inflight{token: token, cancel: cancel}
	in.mu.Unlock()

	in.spawn(eff, ctx, func() {
		in.mu.Lock()
		if cur, ok := in.cancellables[id]; ok && cur.token == token {
			delete(in.cancellables, id)
		}
		in.mu.Unlock()
		cancel()
	}, send)
}

// debounce replaces any pending timer under the same id. The executor runs
// only when a timer survives its full delay.
func (in *interpreter[A]) debounce(eff effect.Effect[A], send effect.Send[A]) {
	id := eff.ID()

	in.mu.Lock()
	defer in.mu.Unlock()
	if in.destroyed {
		return
	}
	if prev, ok := in.debounces[id]; ok {
		prev.timer.Stop()
		in.logger.Debug("pending debounce replaced", "kind", "debounced", "id", id)
	}
	in.nextToken++
	token := in.nextToken

	// The registry entry is written before mu is released, so a timer that
	// fires immediately still finds it.
	timer := in.scheduler.AfterFunc(eff.Delay(), func() {
		in.mu.Lock()
		cur, ok := in.debounces[id]
		if !ok || cur.token != token || in.destroyed {
			in.mu.Unlock()
			return
		}
		delete(in.debounces, id)
		in.mu.Unlock()

		in.spawn(eff, in.root, nil, send)
	})
	in.debounces[id] = pendingTimer{token: token, timer: timer}
}

// throttle runs the executor unless one under the same id started less
// than the throttle window ago. Dropped calls are not replayed.
func (in *interpreter[A]) throttle(eff effect.Effect[A], send effect.Send[A]) {
	id := eff.ID()
	now := in.scheduler.Now()

	in.mu.Lock()
	if in.destroyed {
		in.mu.Unlock()
		return
	}
	if last, ok := in.throttles[id]; ok && now.Sub(last) < eff.Delay() {
		in.mu.Unlock()
		in.logger.Debug("throttled effect dropped", "kind", "throttled", "id", id)
		return
	}
	in.throttles[id] = now
	in.mu.Unlock()

	in.spawn(eff, in.root, nil, send)
}

// afterDelay runs the executor once after the delay. Destroy stops it.
func (in *interpreter[A]) afterDelay(eff effect.Effect[A], send effect.Send[A]) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.destroyed {
		return
	}
	in.nextToken++
	token := in.nextToken

	timer := in.scheduler.AfterFunc(eff.Delay(), func() {
		in.mu.Lock()
		_, ok := in.delays[token]
		delete(in.delays, token)
		destroyed := in.destroyed
		in.mu.Unlock()
		if !ok || destroyed {
			return
		}
		in.spawn(eff, in.root, nil, send)
	})
	in.delays[token] = timer
}

// subscribe tears down any subscription under the same id, then runs the
// setup synchronously and registers its teardown.
func (in *interpreter[A]) subscribe(eff effect.Effect[A], send effect.Send[A]) {
	id := eff.ID()

	in.mu.Lock()
	if in.destroyed {
		in.mu.Unlock()
		return
	}
	prev, hadPrev := in.subscriptions[id]
	delete(in.subscriptions, id)
	in.mu.Unlock()

	if hadPrev {
		in.release(id, prev)
		in.logger.Debug("subscription replaced", "kind", "subscription", "id", id)
	}

	ctx, cancel := context.WithCancel(in.root)
	teardown, err := in.setup(eff, ctx, send)
	if err != nil {
		cancel()
		in.logger.Error("subscription failed",
			"kind", "subscription",
			"id", id,
			"error", NewSubscriptionError(id, err),
		)
		return
	}

	in.mu.Lock()
	if in.destroyed {
		in.mu.Unlock()
		in.release(id, subscription{teardown: teardown, cancel: cancel})
		return
	}
	in.nextToken++
	in.subscriptions[id] = subscription{token: in.nextToken, teardown: teardown, cancel: cancel}
	in.mu.Unlock()
}

func (in *interpreter[A]) setup(eff effect.Effect[A], ctx context.Context, send effect.Send[A]) (teardown effect.Teardown, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPanicError("subscription", eff.ID(), r)
		}
	}()
	return eff.Setup()(ctx, in.guard(ctx, "subscription", eff.ID(), send))
}

// release cancels a subscription's context and runs its teardown.
func (in *interpreter[A]) release(id string, sub subscription) {
	sub.cancel()
	if sub.teardown == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			in.logger.Error("subscription teardown panicked",
				"kind", "subscription",
				"id", id,
				"error", NewPanicError("subscription", id, r),
			)
		}
	}()
	sub.teardown()
}

func (in *interpreter[A]) fireAndForget(eff effect.Effect[A]) {
	thunk := eff.Thunk()
	kind := eff.Kind().String()

	in.running.add()
	go func() {
		defer in.running.done()
		defer in.recoverEffect(kind, "")
		if err := thunk(in.root); err != nil {
			in.logger.Error("effect failed", "kind", kind, "error", NewEffectError(kind, "", err))
		}
	}()
}

// cancelID cancels the in-flight cancellable, the pending debounce and the
// open subscription registered under id. Unknown ids are a no-op.
func (in *interpreter[A]) cancelID(id string) {
	in.mu.Lock()
	c, hasC := in.cancellables[id]
	delete(in.cancellables, id)
	d, hasD := in.debounces[id]
	delete(in.debounces, id)
	sub, hasS := in.subscriptions[id]
	delete(in.subscriptions, id)
	in.mu.Unlock()

	if hasC {
		c.cancel()
	}
	if hasD {
		d.timer.Stop()
	}
	if hasS {
		in.release(id, sub)
	}
	if hasC || hasD || hasS {
		in.logger.Debug("effect cancelled by id", "id", id)
	}
}

// destroy stops every timer, tears down every subscription and cancels the
// root context. Later execute calls are no-ops.
func (in *interpreter[A]) destroy() {
	in.mu.Lock()
	if in.destroyed {
		in.mu.Unlock()
		return
	}
	in.destroyed = true
	cancellables := in.cancellables
	debounces := in.debounces
	delays := in.delays
	subs := in.subscriptions
	in.cancellables = make(map[string]inflight)
	in.debounces = make(map[string]pendingTimer)
	in.delays = make(map[uint64]clock.Timer)
	in.subscriptions = make(map[string]subscription)
	in.throttles = make(map[string]time.Time)
	in.mu.Unlock()

	in.cancel()
	for _, d := range debounces {
		d.timer.Stop()
	}
	for _, t := range delays {
		t.Stop()
	}
	for _, c := range cancellables {
		c.cancel()
	}
	for id, sub := range subs {
		in.release(id, sub)
	}
}

// tracker counts running executor goroutines.
//
// wait returns a channel closed while the count is zero. A new channel is
// made each time the count leaves zero, so callers never observe a stale
// idle signal.
type tracker struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

func newTracker() *tracker {
	ch := make(chan struct{})
	close(ch)
	return &tracker{idle: ch}
}

func (t *tracker) add() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.n == 0 {
		t.idle = make(chan struct{})
	}
	t.n++
}

func (t *tracker) done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n--
	if t.n == 0 {
		close(t.idle)
	}
}

func (t *tracker) wait() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.idle
}
