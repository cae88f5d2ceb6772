package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/roach88/relay/internal/clock"
)

// epoch is the fixed starting instant of every ManualScheduler.
var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// ManualScheduler is a virtual-time clock.Scheduler for tests.
//
// Time only moves when Advance is called. Timers whose deadline falls
// inside the advanced window fire in deadline order (creation order breaks
// ties) on the goroutine calling Advance. Timers scheduled by a firing
// callback also fire if their deadline is still inside the window.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
// Callbacks run without the mutex held.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
	nextID int64
}

type manualTimer struct {
	s       *ManualScheduler
	id      int64
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

// NewManualScheduler creates a scheduler frozen at a fixed epoch.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{now: epoch}
}

// Now returns the current virtual time.
func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// AfterFunc schedules f to run once virtual time reaches Now()+d.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) clock.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	t := &manualTimer{s: s, id: s.nextID, at: s.now.Add(d), f: f}
	s.timers = append(s.timers, t)
	return t
}

// Advance moves virtual time forward by d, firing every timer that becomes due.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()

	for {
		t := s.popDue(target)
		if t == nil {
			return
		}
		t.f()
	}
}

// popDue removes and returns the earliest timer due at or before target,
// moving the clock to its deadline. When nothing is due the clock moves to
// target and nil is returned.
func (s *ManualScheduler) popDue(target time.Time) *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()

	sort.SliceStable(s.timers, func(i, j int) bool {
		if s.timers[i].at.Equal(s.timers[j].at) {
			return s.timers[i].id < s.timers[j].id
		}
		return s.timers[i].at.Before(s.timers[j].at)
	})

	if len(s.timers) == 0 || s.timers[0].at.After(target) {
		s.now = target
		return nil
	}

	t := s.timers[0]
	s.timers[0] = nil
	s.timers = s.timers[1:]
	t.fired = true
	if t.at.After(s.now) {
		s.now = t.at
	}
	return t
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels the timer. Returns false if it already fired or was stopped.
func (t *manualTimer) Stop() bool {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	for i, pending := range s.timers {
		if pending == t {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			break
		}
	}
	return true
}
