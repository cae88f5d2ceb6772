package teststore

import (
	"sync"
	"time"
)

// receivedQueue is a thread-safe FIFO of actions sent by effects and not
// yet received by the test.
//
// Effects enqueue from their own goroutines while the test goroutine
// dequeues. The queue uses a channel for signaling so a Receive can wait
// for an action with a deadline.
type receivedQueue[A any] struct {
	mu      sync.Mutex
	actions []A
	closed  bool
	signal  chan struct{} // Signals action availability (buffered, size 1)
}

func newReceivedQueue[A any]() *receivedQueue[A] {
	return &receivedQueue[A]{
		actions: make([]A, 0, 8),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue adds an action to the back of the queue.
// Returns false if the queue is closed.
func (q *receivedQueue[A]) Enqueue(a A) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.actions = append(q.actions, a)

	// Non-blocking: the buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes and returns the front action without blocking.
func (q *receivedQueue[A]) TryDequeue() (A, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero A
	if len(q.actions) == 0 {
		return zero, false
	}

	a := q.actions[0]
	q.actions[0] = zero

	if len(q.actions) == 1 {
		q.actions = q.actions[:0]
	} else {
		q.actions = q.actions[1:]
	}

	return a, true
}

// DequeueWithin waits up to d for an action.
// Returns false if none arrived in time or the queue was closed empty.
func (q *receivedQueue[A]) DequeueWithin(d time.Duration) (A, bool) {
	deadline := time.NewTimer(d)
	defer deadline.Stop()

	for {
		if a, ok := q.TryDequeue(); ok {
			return a, true
		}

		q.mu.Lock()
		closed := q.closed
		q.mu.Unlock()
		if closed {
			var zero A
			return zero, false
		}

		select {
		case <-q.signal:
		case <-deadline.C:
			return q.TryDequeue()
		}
	}
}

// Snapshot returns a copy of the queued actions, front first.
func (q *receivedQueue[A]) Snapshot() []A {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]A, len(q.actions))
	copy(out, q.actions)
	return out
}

// Drain removes and returns every queued action.
func (q *receivedQueue[A]) Drain() []A {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.actions
	q.actions = make([]A, 0, 8)
	return out
}

// Len returns the current queue length.
func (q *receivedQueue[A]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// Close stops accepting actions and wakes any waiter.
func (q *receivedQueue[A]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
