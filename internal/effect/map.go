package effect

import "context"

// Map re-tags an effect so every action it sends passes through f.
//
// Scheduling metadata (kind, id, delay) is preserved, so a mapped
// Cancellable still cancels by the same id. Thunks produce no actions and
// are carried over unchanged.
func Map[A, B any](e Effect[A], f func(A) B) Effect[B] {
	return FilterMap(e, func(a A) (B, bool) { return f(a), true })
}

// FilterMap is Map for conversions that can fail: actions for which f
// returns false are not sent.
func FilterMap[A, B any](e Effect[A], f func(A) (B, bool)) Effect[B] {
	out := Effect[B]{
		kind:  e.kind,
		id:    e.id,
		delay: e.delay,
		thunk: e.thunk,
	}

	forward := func(send Send[B]) Send[A] {
		return func(a A) {
			if b, ok := f(a); ok {
				send(b)
			}
		}
	}

	if e.run != nil {
		run := e.run
		out.run = func(ctx context.Context, send Send[B]) error {
			return run(ctx, forward(send))
		}
	}

	if e.setup != nil {
		setup := e.setup
		out.setup = func(ctx context.Context, send Send[B]) (Teardown, error) {
			return setup(ctx, forward(send))
		}
	}

	if len(e.children) > 0 {
		out.children = make([]Effect[B], len(e.children))
		for i, child := range e.children {
			out.children[i] = FilterMap(child, f)
		}
	}

	return out
}
