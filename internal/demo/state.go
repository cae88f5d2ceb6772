package demo

import (
	"fmt"

	"github.com/roach88/relay/internal/compose"
	"github.com/roach88/relay/internal/navigation"
	"github.com/roach88/relay/internal/store"
)

// Todo is one row of the list.
type Todo struct {
	Title string `json:"title" yaml:"title"`
	Done  bool   `json:"done" yaml:"done"`
}

// TodoElement is a todo with its id.
type TodoElement = compose.Element[string, Todo]

// SearchState is the search panel.
type SearchState struct {
	Query   string   `json:"query" yaml:"query"`
	Results []string `json:"results" yaml:"results"`
}

// DetailState is one screen on the navigation path.
type DetailState struct {
	TodoID string `json:"todo_id" yaml:"todo_id"`
	Title  string `json:"title" yaml:"title"`
	Notes  string `json:"notes" yaml:"notes"`
}

// DestinationCase names a presented destination.
type DestinationCase string

const (
	CaseAlert DestinationCase = "alert"
	CaseEdit  DestinationCase = "edit"
)

// DestinationState is the state of whichever destination is presented.
type DestinationState interface {
	DestinationCase() DestinationCase
}

// AlertState asks to confirm deleting a todo.
type AlertState struct {
	TodoID  string `json:"todo_id"`
	Message string `json:"message"`
}

// DestinationCase implements DestinationState.
func (AlertState) DestinationCase() DestinationCase { return CaseAlert }

// EditState is the edit sheet's draft title.
type EditState struct {
	TodoID string `json:"todo_id"`
	Draft  string `json:"draft"`
}

// DestinationCase implements DestinationState.
func (EditState) DestinationCase() DestinationCase { return CaseEdit }

// Destination is the presented alert or edit sheet.
type Destination = navigation.Destination[DestinationCase, DestinationState]

// State is the whole feature.
type State struct {
	Todos       []TodoElement `json:"todos" yaml:"todos"`
	Loading     bool          `json:"loading" yaml:"loading"`
	Toast       string        `json:"toast" yaml:"toast"`
	Ticks       int           `json:"ticks" yaml:"ticks"`
	Search      SearchState   `json:"search" yaml:"search"`
	Destination *Destination  `json:"destination,omitempty" yaml:"destination,omitempty"`
	Path        []DetailState `json:"path" yaml:"path"`
}

// Todo returns the todo with id.
func (s State) Todo(id string) (Todo, bool) {
	for _, e := range s.Todos {
		if e.ID == id {
			return e.State, true
		}
	}
	return Todo{}, false
}

// TodoAction is handled by a single row.
type TodoAction struct {
	Type  string `json:"type" yaml:"type"` // toggle, rename
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
}

// ActionName implements store.Named.
func (a TodoAction) ActionName() string { return a.Type }

// SearchAction is handled by the search panel.
type SearchAction struct {
	Type    string   `json:"type" yaml:"type"` // query_changed, results, clear
	Query   string   `json:"query,omitempty" yaml:"query,omitempty"`
	Results []string `json:"results,omitempty" yaml:"results,omitempty"`
}

// ActionName implements store.Named.
func (a SearchAction) ActionName() string { return a.Type }

// DestinationAction is handled by the presented alert or edit sheet.
type DestinationAction struct {
	Type string `json:"type" yaml:"type"` // confirm, cancel, set_draft
	Text string `json:"text,omitempty" yaml:"text,omitempty"`
}

// ActionName implements store.Named.
func (a DestinationAction) ActionName() string { return a.Type }

// DetailAction is handled by a detail screen.
type DetailAction struct {
	Type  string `json:"type" yaml:"type"` // set_notes
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// ActionName implements store.Named.
func (a DetailAction) ActionName() string { return a.Type }

type (
	// TodoEnvelope routes a TodoAction to one row.
	TodoEnvelope = compose.ElementAction[string, TodoAction]

	// DestinationEnvelope presents to or dismisses the destination.
	DestinationEnvelope = navigation.PresentationAction[navigation.DestinationAction[DestinationCase, DestinationAction]]

	// PathAction drives the detail screen stack.
	PathAction = navigation.StackAction[DetailState, DetailAction]
)

// Action is every action the feature handles. Exactly one of Type, Search,
// Todo, Destination or Path is set.
//
// Core action types: load, loaded, load_failed, cancel_load, add, added,
// delete, edit, open_detail, saved, save_failed, toast_dismissed,
// start_ticker, stop_ticker, tick.
type Action struct {
	Type  string        `json:"type,omitempty" yaml:"type,omitempty"`
	ID    string        `json:"id,omitempty" yaml:"id,omitempty"`
	Title string        `json:"title,omitempty" yaml:"title,omitempty"`
	Todos []TodoElement `json:"todos,omitempty" yaml:"todos,omitempty"`
	Error string        `json:"error,omitempty" yaml:"error,omitempty"`

	Search      *SearchAction        `json:"search,omitempty" yaml:"search,omitempty"`
	Todo        *TodoEnvelope        `json:"todo,omitempty" yaml:"todo,omitempty"`
	Destination *DestinationEnvelope `json:"destination,omitempty" yaml:"destination,omitempty"`
	Path        *PathAction          `json:"path,omitempty" yaml:"path,omitempty"`
}

// ActionName implements store.Named. Routed actions are named by their
// envelope, e.g. "todo/t1/toggle" or "destination/presented/alert/confirm".
func (a Action) ActionName() string {
	switch {
	case a.Search != nil:
		return "search/" + a.Search.ActionName()
	case a.Todo != nil:
		return fmt.Sprintf("todo/%s/%s", a.Todo.ID, store.ActionName(a.Todo.Action))
	case a.Destination != nil:
		return "destination/" + a.Destination.ActionName()
	case a.Path != nil:
		return "path/" + a.Path.ActionName()
	case a.Type != "":
		return a.Type
	default:
		return "empty"
	}
}

// Constructors for routed actions.

// SearchFor changes the search query.
func SearchFor(query string) Action {
	return Action{Search: &SearchAction{Type: "query_changed", Query: query}}
}

// ForTodo routes a row action to the todo with id.
func ForTodo(id string, a TodoAction) Action {
	return Action{Todo: &TodoEnvelope{ID: id, Action: a}}
}

// ForDestination routes a destination action to case c.
func ForDestination(c DestinationCase, a DestinationAction) Action {
	env := navigation.Present(navigation.DestinationAction[DestinationCase, DestinationAction]{Case: c, Action: a})
	return Action{Destination: &env}
}

// DismissDestination dismisses whatever is presented.
func DismissDestination() Action {
	return WrapDestination(navigation.Dismiss[navigation.DestinationAction[DestinationCase, DestinationAction]]())
}

// WrapDestination embeds a destination envelope.
func WrapDestination(p DestinationEnvelope) Action {
	return Action{Destination: &p}
}

// WrapPath embeds a stack action.
func WrapPath(p PathAction) Action {
	return Action{Path: &p}
}
