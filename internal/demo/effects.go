package demo

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/relay/internal/clock"
	"github.com/roach88/relay/internal/effect"
)

// Effect ids.
const (
	loadID   = "todos/load"
	saveID   = "todos/save"
	searchID = "todos/search"
	tickerID = "todos/ticker"
)

// loadTodos fetches the saved list. A newer load replaces an in-flight one.
func loadTodos(d Deps) effect.Effect[Action] {
	return effect.Cancellable(loadID, func(ctx context.Context, send effect.Send[Action]) error {
		todos, err := d.Repository.Load(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			send(Action{Type: "load_failed", Error: err.Error()})
			return nil
		}
		send(Action{Type: "loaded", Todos: todos})
		return nil
	})
}

// assignID turns an add request into an added action carrying a fresh id.
func assignID(d Deps, title string) effect.Effect[Action] {
	return effect.Run(func(_ context.Context, send effect.Send[Action]) error {
		send(Action{Type: "added", ID: d.NewID(), Title: title})
		return nil
	})
}

// saveTodos persists a snapshot of todos, at most once per SaveThrottle.
func saveTodos(d Deps, todos []TodoElement) effect.Effect[Action] {
	snapshot := slices.Clone(todos)
	return effect.Throttled(saveID, d.SaveThrottle, func(ctx context.Context, send effect.Send[Action]) error {
		if err := d.Repository.Save(ctx, snapshot); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			send(Action{Type: "save_failed", Error: err.Error()})
			return nil
		}
		send(Action{Type: "saved"})
		return nil
	})
}

func dismissToastLater(d Deps) effect.Effect[Action] {
	return effect.AfterDelay(d.ToastDuration, func(_ context.Context, send effect.Send[Action]) error {
		send(Action{Type: "toast_dismissed"})
		return nil
	})
}

// search queries the repository once the query has been stable for
// SearchDebounce.
func search(d Deps, query string) effect.Effect[SearchAction] {
	return effect.Debounced(searchID, d.SearchDebounce, func(ctx context.Context, send effect.Send[SearchAction]) error {
		results, err := d.Repository.Search(ctx, query)
		if err != nil {
			return err
		}
		send(SearchAction{Type: "results", Query: query, Results: results})
		return nil
	})
}

// ticker sends a tick every TickInterval until torn down.
func ticker(d Deps) effect.Setup[Action] {
	return func(_ context.Context, send effect.Send[Action]) (effect.Teardown, error) {
		var (
			mu      sync.Mutex
			timer   clock.Timer
			stopped bool
		)

		var arm func()
		arm = func() {
			mu.Lock()
			defer mu.Unlock()
			if stopped {
				return
			}
			timer = d.Scheduler.AfterFunc(d.TickInterval, func() {
				send(Action{Type: "tick"})
				arm()
			})
		}
		arm()

		return func() {
			mu.Lock()
			defer mu.Unlock()
			stopped = true
			timer.Stop()
		}, nil
	}
}
