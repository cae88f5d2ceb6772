package demo

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/relay/internal/compose"
	"github.com/roach88/relay/internal/effect"
	"github.com/roach88/relay/internal/navigation"
	"github.com/roach88/relay/internal/store"
)

// Reducer returns the root reducer.
func Reducer() store.Reducer[State, Action, Deps] {
	return compose.Combine(
		core,
		searchPanel,
		todoRows,
		destinations,
		detailPath,
		autosave,
	)
}

var searchPanel = compose.Scope(
	func(s State) SearchState { return s.Search },
	func(s State, search SearchState) State { s.Search = search; return s },
	func(a Action) (SearchAction, bool) {
		if a.Search == nil {
			return SearchAction{}, false
		}
		return *a.Search, true
	},
	func(a SearchAction) Action { return Action{Search: &a} },
	searchReducer,
)

var todoRows = compose.ForEach(
	func(s State) []TodoElement { return s.Todos },
	func(s State, todos []TodoElement) State { s.Todos = todos; return s },
	func(a Action) (TodoEnvelope, bool) {
		if a.Todo == nil {
			return TodoEnvelope{}, false
		}
		return *a.Todo, true
	},
	func(e TodoEnvelope) Action { return Action{Todo: &e} },
	todoReducer,
)

var destinations = navigation.IfLetPresented(
	func(s State) *Destination { return s.Destination },
	func(s State, d *Destination) State { s.Destination = d; return s },
	func(a Action) (DestinationEnvelope, bool) {
		if a.Destination == nil {
			return DestinationEnvelope{}, false
		}
		return *a.Destination, true
	},
	WrapDestination,
	navigation.DestinationReducer(map[DestinationCase]store.Reducer[DestinationState, DestinationAction, Deps]{
		CaseAlert: navigation.CaseReducer[DestinationState, DestinationAction](alertReducer),
		CaseEdit:  navigation.CaseReducer[DestinationState, DestinationAction](editReducer),
	}),
)

var detailPath = navigation.ForEachStack(
	func(s State) []DetailState { return s.Path },
	func(s State, path []DetailState) State { s.Path = path; return s },
	func(a Action) (PathAction, bool) {
		if a.Path == nil {
			return PathAction{}, false
		}
		return *a.Path, true
	},
	WrapPath,
	detailReducer,
)

func core(s State, a Action, d Deps) (State, effect.Effect[Action]) {
	if a.Destination != nil {
		return confirmDestination(s, *a.Destination), effect.None[Action]()
	}

	switch a.Type {
	case "load":
		s.Loading = true
		return s, loadTodos(d)

	case "loaded":
		s.Loading = false
		s.Todos = a.Todos

	case "load_failed":
		s.Loading = false
		s.Toast = "Load failed: " + a.Error

	case "cancel_load":
		s.Loading = false
		return s, effect.Cancel[Action](loadID)

	case "add":
		title := strings.TrimSpace(a.Title)
		if title == "" {
			return s, effect.None[Action]()
		}
		return s, assignID(d, title)

	case "added":
		if _, exists := s.Todo(a.ID); exists {
			return s, effect.None[Action]()
		}
		s.Todos = append(slices.Clip(s.Todos), TodoElement{ID: a.ID, State: Todo{Title: a.Title}})

	case "delete":
		todo, ok := s.Todo(a.ID)
		if !ok {
			return s, effect.None[Action]()
		}
		s.Destination = &Destination{
			Case:  CaseAlert,
			State: AlertState{TodoID: a.ID, Message: fmt.Sprintf("Delete %q?", todo.Title)},
		}

	case "edit":
		todo, ok := s.Todo(a.ID)
		if !ok {
			return s, effect.None[Action]()
		}
		s.Destination = &Destination{
			Case:  CaseEdit,
			State: EditState{TodoID: a.ID, Draft: todo.Title},
		}

	case "open_detail":
		todo, ok := s.Todo(a.ID)
		if !ok {
			return s, effect.None[Action]()
		}
		s.Path, _ = navigation.HandleStackAction(s.Path,
			navigation.Push[DetailState, DetailAction](DetailState{TodoID: a.ID, Title: todo.Title}),
			detailReducer, d)

	case "saved":
		s.Toast = "Saved"
		return s, dismissToastLater(d)

	case "save_failed":
		s.Toast = "Save failed: " + a.Error

	case "toast_dismissed":
		s.Toast = ""

	case "start_ticker":
		return s, effect.Subscription(tickerID, ticker(d))

	case "stop_ticker":
		return s, effect.Cancel[Action](tickerID)

	case "tick":
		s.Ticks++
	}

	return s, effect.None[Action]()
}

// confirmDestination applies a confirmed alert or edit to the todos. It
// runs before the destination reducer, which then dismisses itself.
func confirmDestination(s State, env DestinationEnvelope) State {
	if env.Kind != navigation.Presented || env.Action.Action.Type != "confirm" || s.Destination == nil {
		return s
	}
	if s.Destination.Case != env.Action.Case {
		return s
	}

	switch dest := s.Destination.State.(type) {
	case AlertState:
		s.Todos = slices.DeleteFunc(slices.Clone(s.Todos), func(e TodoElement) bool {
			return e.ID == dest.TodoID
		})
	case EditState:
		title := strings.TrimSpace(dest.Draft)
		if title == "" {
			return s
		}
		s.Todos = slices.Clone(s.Todos)
		for i := range s.Todos {
			if s.Todos[i].ID == dest.TodoID {
				s.Todos[i].State.Title = title
			}
		}
	}
	return s
}

// autosave runs last and saves after any action that changed the todos.
func autosave(s State, a Action, d Deps) (State, effect.Effect[Action]) {
	if !changesTodos(a) {
		return s, effect.None[Action]()
	}
	return s, saveTodos(d, s.Todos)
}

func changesTodos(a Action) bool {
	switch {
	case a.Todo != nil:
		return true
	case a.Destination != nil:
		return a.Destination.Kind == navigation.Presented && a.Destination.Action.Action.Type == "confirm"
	default:
		return a.Type == "added"
	}
}

func searchReducer(s SearchState, a SearchAction, d Deps) (SearchState, effect.Effect[SearchAction]) {
	switch a.Type {
	case "query_changed":
		s.Query = a.Query
		if strings.TrimSpace(a.Query) == "" {
			s.Results = nil
			return s, effect.Cancel[SearchAction](searchID)
		}
		return s, search(d, a.Query)

	case "results":
		// Results for an older query arrive after a cancel race; keep the
		// current query's results.
		if a.Query != s.Query {
			return s, effect.None[SearchAction]()
		}
		s.Results = a.Results

	case "clear":
		return SearchState{}, effect.Cancel[SearchAction](searchID)
	}
	return s, effect.None[SearchAction]()
}

func todoReducer(t Todo, a TodoAction, _ Deps) (Todo, effect.Effect[TodoAction]) {
	switch a.Type {
	case "toggle":
		t.Done = !t.Done
	case "rename":
		if title := strings.TrimSpace(a.Title); title != "" {
			t.Title = title
		}
	}
	return t, effect.None[TodoAction]()
}

func alertReducer(s AlertState, a DestinationAction, d Deps) (AlertState, effect.Effect[DestinationAction]) {
	switch a.Type {
	case "confirm", "cancel":
		return s, dismiss(d)
	}
	return s, effect.None[DestinationAction]()
}

func editReducer(s EditState, a DestinationAction, d Deps) (EditState, effect.Effect[DestinationAction]) {
	switch a.Type {
	case "set_draft":
		s.Draft = a.Text
	case "confirm", "cancel":
		return s, dismiss(d)
	}
	return s, effect.None[DestinationAction]()
}

func detailReducer(s DetailState, a DetailAction, _ Deps) (DetailState, effect.Effect[DetailAction]) {
	if a.Type == "set_notes" {
		s.Notes = a.Notes
	}
	return s, effect.None[DetailAction]()
}

func dismiss(d Deps) effect.Effect[DestinationAction] {
	if d.Dismiss == nil {
		return effect.None[DestinationAction]()
	}
	return d.Dismiss()
}
