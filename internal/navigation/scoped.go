package navigation

import (
	"context"

	"github.com/roach88/relay/internal/effect"
)

// Parent is the part of a store a scoped facade reads from and writes to.
// *store.Store satisfies it.
type Parent[S, A any] interface {
	State() S
	Dispatch(action A)
}

// ScopedStore is a facade over one child of a parent store. It holds no
// state or listeners of its own: State re-reads the parent on every call,
// and observers subscribe to the parent.
type ScopedStore[S, A any] struct {
	state    func() (S, bool)
	dispatch func(A)
	dismiss  func()
}

// State returns the child's current state, or false if the child is absent.
func (s *ScopedStore[S, A]) State() (S, bool) {
	return s.state()
}

// Dispatch wraps action in the routing envelope and sends it to the parent.
func (s *ScopedStore[S, A]) Dispatch(action A) {
	s.dispatch(action)
}

// Dismiss sends the envelope's dismissal to the parent.
func (s *ScopedStore[S, A]) Dismiss() {
	s.dismiss()
}

// ScopeToElement builds a facade over the stack screen at index.
func ScopeToElement[PS, PA, S, A any](
	parent Parent[PS, PA],
	getStack func(PS) []S,
	index int,
	wrap func(StackAction[S, A]) PA,
) *ScopedStore[S, A] {
	return &ScopedStore[S, A]{
		state: func() (S, bool) {
			stack := getStack(parent.State())
			if index < 0 || index >= len(stack) {
				var zero S
				return zero, false
			}
			return stack[index], true
		},
		dispatch: func(action A) {
			parent.Dispatch(wrap(ElementAt[S](index, Present(action))))
		},
		dismiss: func() {
			parent.Dispatch(wrap(ElementAt[S](index, Dismiss[A]())))
		},
	}
}

// ScopeToDestination builds a facade over the destination of case c. Its
// state is absent when nothing is presented or another case is.
func ScopeToDestination[PS, PA any, C comparable, S, A any](
	parent Parent[PS, PA],
	getDestination func(PS) *Destination[C, S],
	c C,
	wrap func(PresentationAction[DestinationAction[C, A]]) PA,
) *ScopedStore[S, A] {
	return &ScopedStore[S, A]{
		state: func() (S, bool) {
			dest := getDestination(parent.State())
			if dest == nil || dest.Case != c {
				var zero S
				return zero, false
			}
			return dest.State, true
		},
		dispatch: func(action A) {
			parent.Dispatch(wrap(Present(DestinationAction[C, A]{Case: c, Action: action})))
		},
		dismiss: func() {
			parent.Dispatch(wrap(Dismiss[DestinationAction[C, A]]()))
		},
	}
}

// NewDismiss returns a capability a child reducer can keep in its
// dependencies. Calling it yields an effect that, when interpreted, sends
// wrap(Dismiss()) through dispatch. The child never sees the parent's
// state or action types.
//
// dispatch should be the parent store's effect send (store.Sender) so that
// a test store intercepts the dismissal like any other effect output.
func NewDismiss[PA, CA any](dispatch func(PA), wrap func(PresentationAction[CA]) PA) func() effect.Effect[CA] {
	return func() effect.Effect[CA] {
		return effect.Run(func(_ context.Context, _ effect.Send[CA]) error {
			dispatch(wrap(Dismiss[CA]()))
			return nil
		})
	}
}
