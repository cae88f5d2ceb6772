package demo

import (
	"github.com/roach88/relay/internal/effect"
	"github.com/roach88/relay/internal/navigation"
	"github.com/roach88/relay/internal/store"
)

// NewConfig returns the store config for the feature and a bind function.
// bind must be called with the store's Sender (store.Store.Sender) before
// the first dispatch; the Dismiss capability sends through it.
func NewConfig(env Env, initial State) (cfg store.Config[State, Action, Deps], bind func(effect.Send[Action])) {
	var send effect.Send[Action]

	deps := Deps{
		Env: env.withDefaults(),
		Dismiss: navigation.NewDismiss(
			func(a Action) { send(a) },
			func(navigation.PresentationAction[DestinationAction]) Action { return DismissDestination() },
		),
	}

	cfg = store.Config[State, Action, Deps]{
		InitialState: initial,
		Reducer:      Reducer(),
		Dependencies: deps,
	}
	return cfg, func(s effect.Send[Action]) { send = s }
}

// New creates a bound store for the feature.
func New(env Env, initial State, opts ...store.Option) *store.Store[State, Action, Deps] {
	cfg, bind := NewConfig(env, initial)
	s := store.New(cfg, opts...)
	bind(s.Sender())
	return s
}
