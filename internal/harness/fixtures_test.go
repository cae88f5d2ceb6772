package harness

import (
	"context"
	"errors"
	"time"

	"github.com/roach88/relay/internal/clock"
	"github.com/roach88/relay/internal/effect"
	"github.com/roach88/relay/internal/store"
)

type counterState struct {
	Count int    `json:"count"`
	Label string `json:"label"`
}

type counterAction struct {
	Type string `json:"type"`
	By   int    `json:"by,omitempty"`
}

func (a counterAction) ActionName() string { return a.Type }

type counterDeps struct {
	sched clock.Scheduler
}

func counterReducer(s counterState, a counterAction, _ counterDeps) (counterState, effect.Effect[counterAction]) {
	switch a.Type {
	case "increment":
		if a.By == 0 {
			a.By = 1
		}
		s.Count += a.By
	case "increment_later":
		return s, effect.AfterDelay(time.Second, func(_ context.Context, send effect.Send[counterAction]) error {
			send(counterAction{Type: "increment"})
			return nil
		})
	case "load":
		return s, effect.Run(func(_ context.Context, send effect.Send[counterAction]) error {
			send(counterAction{Type: "increment", By: 10})
			return nil
		})
	case "fail":
		return s, effect.Run(func(context.Context, effect.Send[counterAction]) error {
			return errors.New("boom")
		})
	}
	return s, effect.None[counterAction]()
}

func counterFeature() Feature[counterState, counterAction, counterDeps] {
	return Feature[counterState, counterAction, counterDeps]{
		New: func(sched clock.Scheduler, initial counterState) (store.Config[counterState, counterAction, counterDeps], func(effect.Send[counterAction])) {
			return store.Config[counterState, counterAction, counterDeps]{
				InitialState: initial,
				Reducer:      counterReducer,
				Dependencies: counterDeps{sched: sched},
			}, func(effect.Send[counterAction]) {}
		},
	}
}

func mustParse(t interface {
	Helper()
	Fatalf(string, ...any)
}, data string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(data))
	if err != nil {
		t.Fatalf("ParseScenario: %v", err)
	}
	return s
}
