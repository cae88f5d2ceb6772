// Package clock provides the two notions of time the runtime uses.
//
// Clock is a logical sequence counter. Every dispatched action is stamped
// with the next value so history and traces have a total order that never
// depends on wall time.
//
// Scheduler is wall time for effects that wait: debounce, throttle and
// after-delay. Production code uses System; tests substitute a virtual
// scheduler they advance by hand.
package clock

import "sync/atomic"

// Clock is a monotonic logical clock.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used when a trace is resumed from its last recorded position.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
// Each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
