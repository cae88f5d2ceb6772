package navigation

import (
	"fmt"
	"maps"

	"github.com/roach88/relay/internal/compose"
	"github.com/roach88/relay/internal/effect"
	"github.com/roach88/relay/internal/store"
)

// Destination is a presented child feature: which case it is and its state.
// A nil *Destination means nothing is presented.
type Destination[C comparable, S any] struct {
	Case  C `json:"case" yaml:"case"`
	State S `json:"state" yaml:"state"`
}

// DestinationAction addresses an action to the destination of case Case.
type DestinationAction[C comparable, A any] struct {
	Case   C `json:"case" yaml:"case"`
	Action A `json:"action" yaml:"action"`
}

// ActionName names the case and payload.
func (d DestinationAction[C, A]) ActionName() string {
	return fmt.Sprintf("%v/%s", d.Case, store.ActionName(d.Action))
}

// DestinationReducer routes a DestinationAction to the reducer registered
// for the destination's current case and rebuilds the destination with the
// case preserved.
//
// Drops (logged, state unchanged): no destination presented, an action
// tagged for another case, or a case with no registered reducer.
func DestinationReducer[C comparable, S, A, D any](reducers map[C]store.Reducer[S, A, D]) store.Reducer[*Destination[C, S], DestinationAction[C, A], D] {
	reducers = maps.Clone(reducers)

	return func(dest *Destination[C, S], action DestinationAction[C, A], deps D) (*Destination[C, S], effect.Effect[DestinationAction[C, A]]) {
		if dest == nil {
			compose.LogDropped(deps, "destination", action, "reason", "no destination presented")
			return dest, effect.None[DestinationAction[C, A]]()
		}
		if action.Case != dest.Case {
			compose.LogDropped(deps, "destination", action,
				"reason", "case mismatch",
				"presented", fmt.Sprint(dest.Case),
			)
			return dest, effect.None[DestinationAction[C, A]]()
		}
		reducer, ok := reducers[dest.Case]
		if !ok {
			compose.LogDropped(deps, "destination", action, "reason", "unknown destination case")
			return dest, effect.None[DestinationAction[C, A]]()
		}

		next, eff := reducer(dest.State, action.Action, deps)
		c := dest.Case
		return &Destination[C, S]{Case: c, State: next}, effect.Map(eff, func(a A) DestinationAction[C, A] {
			return DestinationAction[C, A]{Case: c, Action: a}
		})
	}
}

// CaseReducer adapts a reducer over one concrete case state and action
// type to the interface-typed state and action of a DestinationReducer.
// State or action of the wrong dynamic type is dropped. A child state or
// effect action that does not convert back to S or A is a wiring mistake;
// it is logged and dropped too, leaving the state unchanged.
func CaseReducer[S, A, CS, CA, D any](child store.Reducer[CS, CA, D]) store.Reducer[S, A, D] {
	return func(state S, action A, deps D) (S, effect.Effect[A]) {
		cs, ok := any(state).(CS)
		if !ok {
			compose.LogDropped(deps, "destination", action, "reason", fmt.Sprintf("state is %T", state))
			return state, effect.None[A]()
		}
		ca, ok := any(action).(CA)
		if !ok {
			compose.LogDropped(deps, "destination", action, "reason", fmt.Sprintf("action is %T", action))
			return state, effect.None[A]()
		}

		next, eff := child(cs, ca, deps)
		ns, ok := any(next).(S)
		if !ok {
			compose.LogDropped(deps, "destination", action, "reason", fmt.Sprintf("%T does not convert to the destination state", next))
			return state, effect.None[A]()
		}
		return ns, mapCase[CA, A](eff, deps)
	}
}

// mapCase re-tags a case effect into the destination action type.
// Actions that do not convert are logged and never sent.
func mapCase[CA, A any](eff effect.Effect[CA], deps any) effect.Effect[A] {
	return effect.FilterMap(eff, func(a CA) (A, bool) {
		wrapped, ok := any(a).(A)
		if !ok {
			compose.LogDropped(deps, "destination", a, "reason", fmt.Sprintf("effect action %T does not convert to the destination action", a))
		}
		return wrapped, ok
	})
}
