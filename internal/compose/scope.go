package compose

import (
	"github.com/roach88/relay/internal/effect"
	"github.com/roach88/relay/internal/store"
)

// Scope lifts a reducer over an always-present child slice of parent state.
//
// For a parent action that toChildAction does not recognize, the parent
// state is returned unchanged with no effect. Otherwise the child reducer
// runs on toChildState(parent), the result is written back with
// fromChildState, and the child effect is re-tagged with fromChildAction.
func Scope[PS, PA, CS, CA, D any](
	toChildState func(PS) CS,
	fromChildState func(PS, CS) PS,
	toChildAction func(PA) (CA, bool),
	fromChildAction func(CA) PA,
	child store.Reducer[CS, CA, D],
) store.Reducer[PS, PA, D] {
	return func(state PS, action PA, deps D) (PS, effect.Effect[PA]) {
		ca, ok := toChildAction(action)
		if !ok {
			return state, effect.None[PA]()
		}
		next, eff := child(toChildState(state), ca, deps)
		return fromChildState(state, next), effect.Map(eff, fromChildAction)
	}
}

// IfLet lifts a reducer over an optional child slice of parent state.
//
// The child reducer receives the current non-nil *CS and may return nil to
// remove itself. Child reducers must not mutate the pointee; return a new
// pointer for a new state. An action for an absent child is dropped.
func IfLet[PS, PA, CS, CA, D any](
	toChildState func(PS) *CS,
	fromChildState func(PS, *CS) PS,
	toChildAction func(PA) (CA, bool),
	fromChildAction func(CA) PA,
	child store.Reducer[*CS, CA, D],
) store.Reducer[PS, PA, D] {
	return func(state PS, action PA, deps D) (PS, effect.Effect[PA]) {
		ca, ok := toChildAction(action)
		if !ok {
			return state, effect.None[PA]()
		}
		cs := toChildState(state)
		if cs == nil {
			LogDropped(deps, "ifLet", ca, "reason", "child state absent")
			return state, effect.None[PA]()
		}
		next, eff := child(cs, ca, deps)
		return fromChildState(state, next), effect.Map(eff, fromChildAction)
	}
}

// Combine runs reducers in order over the same action, threading state
// through each, and batches their effects.
func Combine[S, A, D any](reducers ...store.Reducer[S, A, D]) store.Reducer[S, A, D] {
	return func(state S, action A, deps D) (S, effect.Effect[A]) {
		effects := make([]effect.Effect[A], 0, len(reducers))
		for _, r := range reducers {
			var eff effect.Effect[A]
			state, eff = r(state, action, deps)
			effects = append(effects, eff)
		}
		return state, effect.Batch(effects...)
	}
}
