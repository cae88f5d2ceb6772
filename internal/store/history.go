package store

// history is a ring buffer of dispatched actions.
// A max of zero or less means unbounded.
type history[A any] struct {
	max     int
	entries []Entry[A]
	start   int
}

func newHistory[A any](max int) *history[A] {
	return &history[A]{max: max}
}

func (h *history[A]) add(e Entry[A]) {
	if h.max <= 0 || len(h.entries) < h.max {
		h.entries = append(h.entries, e)
		return
	}
	h.entries[h.start] = e
	h.start = (h.start + 1) % h.max
}

// list returns the entries oldest first.
func (h *history[A]) list() []Entry[A] {
	out := make([]Entry[A], 0, len(h.entries))
	out = append(out, h.entries[h.start:]...)
	out = append(out, h.entries[:h.start]...)
	return out
}
