package demo

import (
	"fmt"

	"github.com/roach88/relay/internal/clock"
	"github.com/roach88/relay/internal/effect"
	"github.com/roach88/relay/internal/harness"
	"github.com/roach88/relay/internal/store"
)

// Feature returns the feature for scenario runs. Each run gets a memory
// repository seeded with the initial todos and ids "todo-1", "todo-2", ...
func Feature() harness.Feature[State, Action, Deps] {
	return harness.Feature[State, Action, Deps]{
		New: func(sched clock.Scheduler, initial State) (store.Config[State, Action, Deps], func(effect.Send[Action])) {
			n := 0
			return NewConfig(Env{
				Repository: NewMemoryRepository(initial.Todos...),
				NewID: func() string {
					n++
					return fmt.Sprintf("todo-%d", n)
				},
				Scheduler: sched,
			}, initial)
		},
	}
}
