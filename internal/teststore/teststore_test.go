package teststore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relay/internal/effect"
	"github.com/roach88/relay/internal/store"
	"github.com/roach88/relay/internal/testutil"
)

// fakeTB records failures instead of failing the real test.
type fakeTB struct {
	mu       sync.Mutex
	errors   []string
	cleanups []func()
}

func (f *fakeTB) Helper() {}

func (f *fakeTB) Errorf(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, fmt.Sprintf(format, args...))
}

func (f *fakeTB) Cleanup(fn func()) {
	f.cleanups = append(f.cleanups, fn)
}

func (f *fakeTB) finish() {
	for i := len(f.cleanups) - 1; i >= 0; i-- {
		f.cleanups[i]()
	}
	f.cleanups = nil
}

func (f *fakeTB) failures() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.errors...)
}

func (f *fakeTB) failedWith(kind FailureKind) bool {
	for _, e := range f.failures() {
		if strings.HasPrefix(e, string(kind)+":") {
			return true
		}
	}
	return false
}

type state struct {
	Count   int
	Query   string
	Results []string
}

type action struct {
	Type    string
	Query   string
	Results []string
}

func (a action) ActionName() string { return a.Type }

type deps struct{}

func reducer(s state, a action, _ deps) (state, effect.Effect[action]) {
	switch a.Type {
	case "increment":
		s.Count++
	case "load":
		return s, effect.Just(action{Type: "loaded", Results: []string{"milk"}})
	case "loaded":
		s.Results = a.Results
	case "load_twice":
		return s, effect.Run(func(_ context.Context, send effect.Send[action]) error {
			send(action{Type: "increment"})
			send(action{Type: "increment"})
			return nil
		})
	case "search":
		s.Query = a.Query
		q := a.Query
		return s, effect.Debounced("search", 300*time.Millisecond, func(_ context.Context, send effect.Send[action]) error {
			send(action{Type: "loaded", Results: []string{q + " results"}})
			return nil
		})
	case "watch":
		return s, effect.Cancellable("watch", func(ctx context.Context, _ effect.Send[action]) error {
			<-ctx.Done()
			return ctx.Err()
		})
	case "stop":
		return s, effect.Cancel[action]("watch")
	case "hang":
		return s, effect.Run(func(ctx context.Context, _ effect.Send[action]) error {
			<-ctx.Done()
			return ctx.Err()
		})
	}
	return s, effect.None[action]()
}

func newTestStore(tb TB, opts ...Option) *TestStore[state, action, deps] {
	logger, _ := testutil.NewLogger()
	opts = append([]Option{
		WithTimeout(100 * time.Millisecond),
		WithStoreOptions(store.WithLogger(logger)),
	}, opts...)
	return New(tb, store.Config[state, action, deps]{Reducer: reducer}, opts...)
}

func TestTestStore_SendIncrement(t *testing.T) {
	tb := &fakeTB{}
	ts := newTestStore(tb)

	ok := ts.Send(action{Type: "increment"}, func(s *state) { s.Count = 1 })
	tb.finish()

	assert.True(t, ok)
	assert.Empty(t, tb.failures())
	assert.Empty(t, ts.Pending())
}

func TestTestStore_WithRealT(t *testing.T) {
	ts := newTestStore(t)

	ts.Send(action{Type: "load"})
	ts.Receive(action{Type: "loaded", Results: []string{"milk"}}, func(s *state) {
		s.Results = []string{"milk"}
	})
}

func TestTestStore_UnreceivedActionFailsFinish(t *testing.T) {
	tb := &fakeTB{}
	ts := newTestStore(tb)

	ts.Send(action{Type: "load"})
	tb.finish()

	require.Len(t, tb.failures(), 1)
	assert.True(t, tb.failedWith(FailUnhandledReceived))
	assert.Contains(t, tb.failures()[0], "loaded")
}

func TestTestStore_SendBeforeReceiveFails(t *testing.T) {
	tb := &fakeTB{}
	ts := newTestStore(tb)

	ts.Send(action{Type: "load"})
	ok := ts.Send(action{Type: "increment"})

	assert.False(t, ok)
	assert.True(t, tb.failedWith(FailUnhandledReceived))
	assert.Equal(t, 0, ts.State().Count, "action is not dispatched")
	ts.SkipReceived()
	tb.finish()
}

func TestTestStore_SendRightAfterEffectAlwaysFails(t *testing.T) {
	accepted := 0
	for i := 0; i < 100; i++ {
		tb := &fakeTB{}
		ts := newTestStore(tb)

		ts.Send(action{Type: "load"})
		if ts.Send(action{Type: "increment"}, func(s *state) { s.Count = 1 }) {
			accepted++
		}
		ts.SkipReceived()
		tb.finish()
	}

	assert.Zero(t, accepted, "second send accepted with an unreceived effect action")
}

func TestTestStore_SendWhileLongLivedEffectRuns(t *testing.T) {
	tb := &fakeTB{}
	ts := newTestStore(tb, WithTimeout(20*time.Millisecond))

	ok := ts.Send(action{Type: "watch"})
	require.True(t, ok)
	ok = ts.Send(action{Type: "stop"})
	tb.finish()

	assert.True(t, ok)
	assert.Empty(t, tb.failures())
}

func TestTestStore_UnexpectedAction(t *testing.T) {
	tb := &fakeTB{}
	ts := newTestStore(tb)

	ts.Send(action{Type: "load"})
	ok := ts.Receive(action{Type: "loaded", Results: []string{"eggs"}})
	tb.finish()

	assert.False(t, ok)
	require.True(t, tb.failedWith(FailUnexpectedAction))
	assert.Contains(t, tb.failures()[0], "Diff")
}

func TestTestStore_NoActionReceived(t *testing.T) {
	tb := &fakeTB{}
	ts := newTestStore(tb, WithTimeout(20*time.Millisecond))

	ts.Send(action{Type: "increment"}, func(s *state) { s.Count = 1 })
	ok := ts.Receive(action{Type: "loaded"})
	tb.finish()

	assert.False(t, ok)
	assert.True(t, tb.failedWith(FailNoAction))
}

func TestTestStore_StateMismatch(t *testing.T) {
	tb := &fakeTB{}
	ts := newTestStore(tb)

	ok := ts.Send(action{Type: "increment"}, func(s *state) { s.Count = 2 })
	tb.finish()

	assert.False(t, ok)
	require.True(t, tb.failedWith(FailStateMismatch))
	assert.Contains(t, tb.failures()[0], "after send increment")
}

func TestTestStore_UndescribedChangeFails(t *testing.T) {
	tb := &fakeTB{}
	ts := newTestStore(tb)

	ts.Send(action{Type: "increment"})
	tb.finish()

	assert.True(t, tb.failedWith(FailStateMismatch))
}

func TestTestStore_StateOff(t *testing.T) {
	tb := &fakeTB{}
	ts := newTestStore(tb, WithExhaustivity(StateOff))

	ts.Send(action{Type: "increment"})
	ts.Send(action{Type: "load_twice"})
	ts.Receive(action{Type: "increment"})
	ts.Receive(action{Type: "increment"}, func(s *state) { s.Count = 3 })
	tb.finish()

	assert.Empty(t, tb.failures())
}

func TestTestStore_ReceiveOrder(t *testing.T) {
	tb := &fakeTB{}
	ts := newTestStore(tb)

	ts.Send(action{Type: "load_twice"})
	ts.Receive(action{Type: "increment"}, func(s *state) { s.Count = 1 })
	ts.Receive(action{Type: "increment"}, func(s *state) { s.Count = 2 })
	tb.finish()

	assert.Empty(t, tb.failures())
}

func TestTestStore_SkipReceived(t *testing.T) {
	tb := &fakeTB{}
	ts := newTestStore(tb)

	ts.Send(action{Type: "load_twice"})
	skipped := ts.SkipReceived()
	tb.finish()

	assert.Len(t, skipped, 2)
	assert.Equal(t, 0, ts.State().Count, "skipped actions are not reduced")
	assert.Empty(t, tb.failures())
}

func TestTestStore_DebouncedSearch(t *testing.T) {
	tb := &fakeTB{}
	sched := testutil.NewManualScheduler()
	ts := newTestStore(tb, WithStoreOptions(store.WithScheduler(sched)))

	ts.Send(action{Type: "search", Query: "m"}, func(s *state) { s.Query = "m" })
	sched.Advance(50 * time.Millisecond)
	ts.Send(action{Type: "search", Query: "mi"}, func(s *state) { s.Query = "mi" })
	sched.Advance(299 * time.Millisecond)
	assert.Empty(t, ts.Pending())

	sched.Advance(time.Millisecond)
	ts.Receive(action{Type: "loaded", Results: []string{"mi results"}}, func(s *state) {
		s.Results = []string{"mi results"}
	})
	tb.finish()

	assert.Empty(t, tb.failures())
}

func TestTestStore_EffectsStillRunning(t *testing.T) {
	tb := &fakeTB{}
	ts := newTestStore(tb, WithTimeout(20*time.Millisecond))

	ts.Send(action{Type: "hang"})
	tb.finish()

	assert.True(t, tb.failedWith(FailEffectsRunning))
	assert.True(t, ts.Store().Destroyed())
}

func TestTestStore_FinishIsIdempotent(t *testing.T) {
	tb := &fakeTB{}
	ts := newTestStore(tb)

	ts.Send(action{Type: "load"})
	ts.Finish()
	tb.finish()

	assert.Len(t, tb.failures(), 1)
}

func TestReceivedQueue_FIFO(t *testing.T) {
	q := newReceivedQueue[string]()

	for _, s := range []string{"A", "B", "C"} {
		require.True(t, q.Enqueue(s))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"A", "B", "C"} {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestReceivedQueue_DequeueWithinWaits(t *testing.T) {
	q := newReceivedQueue[int]()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(42)
	}()

	got, ok := q.DequeueWithin(time.Second)
	require.True(t, ok)
	assert.Equal(t, 42, got)
}

func TestReceivedQueue_DequeueWithinTimesOut(t *testing.T) {
	q := newReceivedQueue[int]()

	_, ok := q.DequeueWithin(10 * time.Millisecond)
	assert.False(t, ok)
}

func TestReceivedQueue_Close(t *testing.T) {
	q := newReceivedQueue[int]()
	q.Close()
	q.Close()

	assert.False(t, q.Enqueue(1))
	_, ok := q.DequeueWithin(time.Second)
	assert.False(t, ok)
}
