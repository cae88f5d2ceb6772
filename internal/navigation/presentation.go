package navigation

import (
	"fmt"

	"github.com/roach88/relay/internal/compose"
	"github.com/roach88/relay/internal/effect"
	"github.com/roach88/relay/internal/store"
)

// PresentationKind tells a presented child action from a dismissal.
type PresentationKind int

const (
	// Presented carries an action for the presented child.
	Presented PresentationKind = iota
	// Dismissed removes the presented child.
	Dismissed
)

func (k PresentationKind) String() string {
	if k == Dismissed {
		return "dismissed"
	}
	return "presented"
}

// MarshalText encodes the kind by name.
func (k PresentationKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes "presented" or "dismissed".
func (k *PresentationKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "presented":
		*k = Presented
	case "dismissed":
		*k = Dismissed
	default:
		return fmt.Errorf("unknown presentation kind %q", text)
	}
	return nil
}

// PresentationAction wraps an action for an optional child.
type PresentationAction[A any] struct {
	Kind   PresentationKind `json:"kind" yaml:"kind"`
	Action A                `json:"action,omitempty" yaml:"action,omitempty"`
}

// Present wraps a child action.
func Present[A any](action A) PresentationAction[A] {
	return PresentationAction[A]{Kind: Presented, Action: action}
}

// Dismiss returns the dismissal envelope.
func Dismiss[A any]() PresentationAction[A] {
	return PresentationAction[A]{Kind: Dismissed}
}

// ActionName names the envelope and, when presented, its payload.
func (p PresentationAction[A]) ActionName() string {
	if p.Kind == Dismissed {
		return "dismiss"
	}
	return "presented/" + store.ActionName(p.Action)
}

// IfLetPresented is IfLet driven by PresentationAction.
//
// A Dismissed action sets the child slot to nil without running the child
// reducer (and is a no-op when the slot is already nil). A Presented action
// for an absent child is dropped. Otherwise the child reducer runs and its
// effect actions are wrapped back into Presented.
func IfLetPresented[PS, PA, CS, CA, D any](
	toChildState func(PS) *CS,
	fromChildState func(PS, *CS) PS,
	toPresentation func(PA) (PresentationAction[CA], bool),
	fromPresentation func(PresentationAction[CA]) PA,
	child store.Reducer[*CS, CA, D],
) store.Reducer[PS, PA, D] {
	return func(state PS, action PA, deps D) (PS, effect.Effect[PA]) {
		pa, ok := toPresentation(action)
		if !ok {
			return state, effect.None[PA]()
		}

		cs := toChildState(state)
		if pa.Kind == Dismissed {
			if cs == nil {
				return state, effect.None[PA]()
			}
			return fromChildState(state, nil), effect.None[PA]()
		}

		if cs == nil {
			compose.LogDropped(deps, "ifLetPresented", pa.Action, "reason", "child state absent")
			return state, effect.None[PA]()
		}

		next, eff := child(cs, pa.Action, deps)
		return fromChildState(state, next), effect.Map(eff, func(a CA) PA {
			return fromPresentation(Present(a))
		})
	}
}
