package navigation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relay/internal/effect"
	"github.com/roach88/relay/internal/store"
	"github.com/roach88/relay/internal/testutil"
)

type noDeps struct{}

type screen struct {
	Name  string
	Count int
}

type screenAction struct{ Type string }

func screenReducer(s screen, a screenAction, _ noDeps) (screen, effect.Effect[screenAction]) {
	switch a.Type {
	case "increment":
		s.Count++
	case "increment_later":
		return s, effect.Just(screenAction{Type: "increment"})
	}
	return s, effect.None[screenAction]()
}

func runActions[A any](t *testing.T, eff effect.Effect[A]) []A {
	t.Helper()
	if eff.IsNone() {
		return nil
	}
	require.Equal(t, effect.KindRun, eff.Kind())
	var out []A
	require.NoError(t, eff.Executor()(context.Background(), func(a A) { out = append(out, a) }))
	return out
}

// Presentation

type sheetParent struct {
	Sheet *screen
	Other int
}

type sheetParentAction struct {
	Sheet *PresentationAction[screenAction]
}

func sheetReducer(calls *int) store.Reducer[sheetParent, sheetParentAction, noDeps] {
	return IfLetPresented(
		func(p sheetParent) *screen { return p.Sheet },
		func(p sheetParent, s *screen) sheetParent { p.Sheet = s; return p },
		func(a sheetParentAction) (PresentationAction[screenAction], bool) {
			if a.Sheet == nil {
				return PresentationAction[screenAction]{}, false
			}
			return *a.Sheet, true
		},
		func(pa PresentationAction[screenAction]) sheetParentAction { return sheetParentAction{Sheet: &pa} },
		func(s *screen, a screenAction, d noDeps) (*screen, effect.Effect[screenAction]) {
			*calls++
			next, eff := screenReducer(*s, a, d)
			return &next, eff
		},
	)
}

func present(a screenAction) sheetParentAction {
	pa := Present(a)
	return sheetParentAction{Sheet: &pa}
}

func dismissSheet() sheetParentAction {
	pa := Dismiss[screenAction]()
	return sheetParentAction{Sheet: &pa}
}

func TestIfLetPresented_AbsentChildIsNoOp(t *testing.T) {
	logs := testutil.CaptureDefaultLogger(t)
	calls := 0
	reducer := sheetReducer(&calls)
	state := sheetParent{Other: 9}

	next, eff := reducer(state, present(screenAction{Type: "x"}), noDeps{})

	assert.Equal(t, state, next)
	assert.True(t, eff.IsNone())
	assert.Zero(t, calls)
	assert.True(t, logs.Contains("action dropped", "operator=ifLetPresented"))
}

func TestIfLetPresented_DismissResetsToNil(t *testing.T) {
	calls := 0
	reducer := sheetReducer(&calls)

	next, eff := reducer(sheetParent{Sheet: &screen{Name: "edit"}}, dismissSheet(), noDeps{})

	assert.Nil(t, next.Sheet)
	assert.True(t, eff.IsNone())
	assert.Zero(t, calls, "child reducer is not invoked on dismiss")
}

func TestIfLetPresented_DismissAbsentIsNoOp(t *testing.T) {
	calls := 0
	reducer := sheetReducer(&calls)
	state := sheetParent{Other: 1}

	next, eff := reducer(state, dismissSheet(), noDeps{})

	assert.Equal(t, state, next)
	assert.True(t, eff.IsNone())
}

func TestIfLetPresented_RewrapsChildEffect(t *testing.T) {
	calls := 0
	reducer := sheetReducer(&calls)

	next, eff := reducer(sheetParent{Sheet: &screen{}}, present(screenAction{Type: "increment_later"}), noDeps{})

	assert.Equal(t, 1, calls)
	require.NotNil(t, next.Sheet)
	actions := runActions(t, eff)
	require.Len(t, actions, 1)
	require.NotNil(t, actions[0].Sheet)
	assert.Equal(t, Presented, actions[0].Sheet.Kind)
	assert.Equal(t, "increment", actions[0].Sheet.Action.Type)
}

func TestPresentationAction_ActionName(t *testing.T) {
	assert.Equal(t, "dismiss", Dismiss[screenAction]().ActionName())
	assert.Equal(t, "presented/navigation.screenAction", Present(screenAction{}).ActionName())
}

// Destinations

type destCase string

const (
	caseAlert destCase = "alert"
	caseEdit  destCase = "edit"
	caseGhost destCase = "ghost"
)

type destState interface{ isDest() }

type alertState struct{ Message string }
type editState struct{ Text string }

func (alertState) isDest() {}
func (editState) isDest()  {}

type destAction any

type editAction struct{ Text string }

func editReducer(s editState, a editAction, _ noDeps) (editState, effect.Effect[editAction]) {
	s.Text = a.Text
	return s, effect.Just(editAction{Text: a.Text + "!"})
}

func newDestinationReducer() store.Reducer[*Destination[destCase, destState], DestinationAction[destCase, destAction], noDeps] {
	return DestinationReducer(map[destCase]store.Reducer[destState, destAction, noDeps]{
		caseEdit: CaseReducer[destState, destAction](editReducer),
		caseAlert: func(s destState, a destAction, _ noDeps) (destState, effect.Effect[destAction]) {
			return s, effect.None[destAction]()
		},
	})
}

func TestDestinationReducer_RunsCaseReducer(t *testing.T) {
	reducer := newDestinationReducer()
	dest := &Destination[destCase, destState]{Case: caseEdit, State: editState{}}

	next, eff := reducer(dest, DestinationAction[destCase, destAction]{Case: caseEdit, Action: editAction{Text: "milk"}}, noDeps{})

	require.NotNil(t, next)
	assert.Equal(t, caseEdit, next.Case, "case tag preserved")
	assert.Equal(t, editState{Text: "milk"}, next.State)

	actions := runActions(t, eff)
	require.Len(t, actions, 1)
	assert.Equal(t, caseEdit, actions[0].Case)
	assert.Equal(t, editAction{Text: "milk!"}, actions[0].Action)
}

func TestDestinationReducer_UnknownCaseIsNoOp(t *testing.T) {
	logs := testutil.CaptureDefaultLogger(t)
	reducer := newDestinationReducer()
	dest := &Destination[destCase, destState]{Case: caseGhost, State: alertState{}}

	next, eff := reducer(dest, DestinationAction[destCase, destAction]{Case: caseGhost, Action: editAction{}}, noDeps{})

	assert.Same(t, dest, next)
	assert.True(t, eff.IsNone())
	assert.True(t, logs.Contains("action dropped", "unknown destination case"))
}

func TestDestinationReducer_CaseMismatchIsNoOp(t *testing.T) {
	logs := testutil.CaptureDefaultLogger(t)
	reducer := newDestinationReducer()
	dest := &Destination[destCase, destState]{Case: caseAlert, State: alertState{Message: "hi"}}

	next, eff := reducer(dest, DestinationAction[destCase, destAction]{Case: caseEdit, Action: editAction{}}, noDeps{})

	assert.Same(t, dest, next)
	assert.True(t, eff.IsNone())
	assert.True(t, logs.Contains("action dropped", "case mismatch", "presented=alert"))
}

func TestDestinationReducer_NilDestinationIsNoOp(t *testing.T) {
	testutil.CaptureDefaultLogger(t)
	reducer := newDestinationReducer()

	next, eff := reducer(nil, DestinationAction[destCase, destAction]{Case: caseEdit, Action: editAction{}}, noDeps{})

	assert.Nil(t, next)
	assert.True(t, eff.IsNone())
}

func TestCaseReducer_WrongActionTypeIsNoOp(t *testing.T) {
	logs := testutil.CaptureDefaultLogger(t)
	reducer := CaseReducer[destState, destAction](editReducer)

	next, eff := reducer(editState{Text: "a"}, "not an edit action", noDeps{})

	assert.Equal(t, editState{Text: "a"}, next)
	assert.True(t, eff.IsNone())
	assert.True(t, logs.Contains("action dropped", "action is string"))
}

type namedAction interface{ ActionName() string }

type renameAction struct{ Name string }

func (renameAction) ActionName() string { return "rename" }

func TestCaseReducer_UnconvertibleStateIsNoOp(t *testing.T) {
	logs := testutil.CaptureDefaultLogger(t)
	reducer := CaseReducer[destState, destAction](func(_ any, _ editAction, _ noDeps) (any, effect.Effect[editAction]) {
		return 42, effect.Just(editAction{Text: "lost"})
	})

	next, eff := reducer(editState{Text: "a"}, editAction{Text: "b"}, noDeps{})

	assert.Equal(t, editState{Text: "a"}, next)
	assert.True(t, eff.IsNone())
	assert.True(t, logs.Contains("action dropped", "int does not convert"))
}

func TestCaseReducer_UnconvertibleEffectActionNotSent(t *testing.T) {
	logs := testutil.CaptureDefaultLogger(t)
	reducer := CaseReducer[destState, namedAction](func(s editState, _ any, _ noDeps) (editState, effect.Effect[any]) {
		return s, effect.Run(func(_ context.Context, send effect.Send[any]) error {
			send(renameAction{Name: "kept"})
			send("bare string")
			return nil
		})
	})

	_, eff := reducer(editState{}, renameAction{Name: "x"}, noDeps{})

	actions := runActions(t, eff)
	assert.Equal(t, []namedAction{renameAction{Name: "kept"}}, actions)
	assert.True(t, logs.Contains("action dropped", "effect action string does not convert"))
}

// Stack

func stackOf(names ...string) []screen {
	out := make([]screen, len(names))
	for i, n := range names {
		out[i] = screen{Name: n}
	}
	return out
}

func TestHandleStackAction_Push(t *testing.T) {
	stack := stackOf("root")

	next, eff := HandleStackAction(stack, Push[screen, screenAction](screen{Name: "detail"}), screenReducer, noDeps{})

	assert.Equal(t, stackOf("root", "detail"), next)
	assert.Len(t, stack, 1)
	assert.True(t, eff.IsNone())
}

func TestHandleStackAction_Pop(t *testing.T) {
	next, _ := HandleStackAction(stackOf("s0", "s1"), Pop[screen, screenAction](), screenReducer, noDeps{})
	assert.Equal(t, stackOf("s0"), next)

	root := stackOf("s0")
	next, _ = HandleStackAction(root, Pop[screen, screenAction](), screenReducer, noDeps{})
	assert.Equal(t, root, next, "pop never removes the root")
}

func TestHandleStackAction_PopToRoot(t *testing.T) {
	next, _ := HandleStackAction(stackOf("s0", "s1", "s2"), PopToRoot[screen, screenAction](), screenReducer, noDeps{})
	assert.Equal(t, stackOf("s0"), next)

	next, _ = HandleStackAction([]screen{}, PopToRoot[screen, screenAction](), screenReducer, noDeps{})
	assert.Empty(t, next)
}

func TestHandleStackAction_SetPath(t *testing.T) {
	path := stackOf("a", "b")

	next, _ := HandleStackAction(stackOf("root"), SetPath[screen, screenAction](path), screenReducer, noDeps{})

	assert.Equal(t, path, next)
	path[0].Name = "mutated"
	assert.Equal(t, "a", next[0].Name, "path is copied")
}

func TestHandleStackAction_ElementDismissRemovesAbove(t *testing.T) {
	stack := stackOf("s0", "s1", "s2")

	next, _ := HandleStackAction(stack, ElementAt[screen](1, Dismiss[screenAction]()), screenReducer, noDeps{})

	assert.Equal(t, stackOf("s0"), next)
	assert.Equal(t, len(stack)-1, len(stack)-len(next), "removes length - index screens")
	assert.Len(t, stack, 3)
}

func TestHandleStackAction_ElementPresented(t *testing.T) {
	stack := stackOf("s0", "s1")

	next, eff := HandleStackAction(stack, ElementAt[screen](1, Present(screenAction{Type: "increment_later"})), screenReducer, noDeps{})

	assert.Equal(t, stack, next)
	actions := runActions(t, eff)
	require.Len(t, actions, 1)
	assert.Equal(t, StackElement, actions[0].Kind)
	assert.Equal(t, 1, actions[0].Index)
	assert.Equal(t, Present(screenAction{Type: "increment"}), actions[0].Element)

	next, _ = HandleStackAction(stack, actions[0], screenReducer, noDeps{})
	assert.Equal(t, 1, next[1].Count)
	assert.Equal(t, 0, stack[1].Count, "input stack is not modified")
}

func TestHandleStackAction_ElementOutOfRange(t *testing.T) {
	logs := testutil.CaptureDefaultLogger(t)
	stack := stackOf("s0")

	for _, index := range []int{-1, 1, 5} {
		next, eff := HandleStackAction(stack, ElementAt[screen](index, Present(screenAction{Type: "increment"})), screenReducer, noDeps{})
		assert.Equal(t, stack, next)
		assert.True(t, eff.IsNone())
	}
	assert.True(t, logs.Contains("action dropped", "operator=stack", "index out of range"))
}

type navState struct {
	Path  []screen
	Title string
}

type navAction struct {
	Path *StackAction[screen, screenAction]
}

func navReducer() store.Reducer[navState, navAction, noDeps] {
	return ForEachStack(
		func(s navState) []screen { return s.Path },
		func(s navState, path []screen) navState { s.Path = path; return s },
		func(a navAction) (StackAction[screen, screenAction], bool) {
			if a.Path == nil {
				return StackAction[screen, screenAction]{}, false
			}
			return *a.Path, true
		},
		func(sa StackAction[screen, screenAction]) navAction { return navAction{Path: &sa} },
		screenReducer,
	)
}

func stackAction(sa StackAction[screen, screenAction]) navAction {
	return navAction{Path: &sa}
}

func TestForEachStack_NoOpReturnsStateUnchanged(t *testing.T) {
	reducer := navReducer()
	state := navState{Path: stackOf("root"), Title: "t"}

	next, eff := reducer(state, stackAction(Pop[screen, screenAction]()), noDeps{})

	assert.Same(t, &state.Path[0], &next.Path[0])
	assert.True(t, eff.IsNone())
}

func TestForEachStack_MapsScreenEffect(t *testing.T) {
	reducer := navReducer()
	state := navState{Path: stackOf("root", "detail")}

	_, eff := reducer(state, stackAction(ElementAt[screen](1, Present(screenAction{Type: "increment_later"}))), noDeps{})

	actions := runActions(t, eff)
	require.Len(t, actions, 1)
	require.NotNil(t, actions[0].Path)
	assert.Equal(t, 1, actions[0].Path.Index)
}

// Scoped stores

func newNavStore(t *testing.T) *store.Store[navState, navAction, noDeps] {
	t.Helper()
	logger, _ := testutil.NewLogger()
	s := store.New(store.Config[navState, navAction, noDeps]{
		InitialState: navState{Path: stackOf("root", "detail", "more")},
		Reducer:      navReducer(),
	}, store.WithLogger(logger), store.WithScheduler(testutil.NewManualScheduler()))
	t.Cleanup(s.Destroy)
	return s
}

func TestScopeToElement(t *testing.T) {
	parent := newNavStore(t)
	scoped := ScopeToElement(parent, func(s navState) []screen { return s.Path }, 1, stackAction)

	state, ok := scoped.State()
	require.True(t, ok)
	assert.Equal(t, "detail", state.Name)

	scoped.Dispatch(screenAction{Type: "increment"})
	state, _ = scoped.State()
	assert.Equal(t, 1, state.Count, "state is re-read from the parent")

	scoped.Dismiss()
	assert.Equal(t, stackOf("root"), parent.State().Path)

	_, ok = scoped.State()
	assert.False(t, ok)
}

type modalState struct {
	Destination *Destination[destCase, destState]
}

type modalAction struct {
	Destination *PresentationAction[DestinationAction[destCase, destAction]]
}

func TestScopeToDestination(t *testing.T) {
	reducer := IfLetPresented(
		func(s modalState) *Destination[destCase, destState] { return s.Destination },
		func(s modalState, d *Destination[destCase, destState]) modalState { s.Destination = d; return s },
		func(a modalAction) (PresentationAction[DestinationAction[destCase, destAction]], bool) {
			if a.Destination == nil {
				return PresentationAction[DestinationAction[destCase, destAction]]{}, false
			}
			return *a.Destination, true
		},
		func(pa PresentationAction[DestinationAction[destCase, destAction]]) modalAction {
			return modalAction{Destination: &pa}
		},
		newDestinationReducer(),
	)

	logger, _ := testutil.NewLogger()
	parent := store.New(store.Config[modalState, modalAction, noDeps]{
		InitialState: modalState{Destination: &Destination[destCase, destState]{Case: caseEdit, State: editState{}}},
		Reducer:      reducer,
		OnEffectAction: func(modalAction) {
			// effect output is not under test here
		},
	}, store.WithLogger(logger))
	t.Cleanup(parent.Destroy)

	wrap := func(pa PresentationAction[DestinationAction[destCase, destAction]]) modalAction {
		return modalAction{Destination: &pa}
	}
	edit := ScopeToDestination[modalState, modalAction, destCase, destState, destAction](
		parent, func(s modalState) *Destination[destCase, destState] { return s.Destination }, caseEdit, wrap)
	alert := ScopeToDestination[modalState, modalAction, destCase, destState, destAction](
		parent, func(s modalState) *Destination[destCase, destState] { return s.Destination }, caseAlert, wrap)

	_, ok := alert.State()
	assert.False(t, ok, "another case is presented")

	edit.Dispatch(editAction{Text: "eggs"})
	state, ok := edit.State()
	require.True(t, ok)
	assert.Equal(t, editState{Text: "eggs"}, state)

	edit.Dismiss()
	assert.Nil(t, parent.State().Destination)
	_, ok = edit.State()
	assert.False(t, ok)
}

func TestNewDismiss(t *testing.T) {
	var dispatched []sheetParentAction
	dismiss := NewDismiss(
		func(a sheetParentAction) { dispatched = append(dispatched, a) },
		func(pa PresentationAction[screenAction]) sheetParentAction { return sheetParentAction{Sheet: &pa} },
	)

	eff := dismiss()
	assert.Empty(t, dispatched, "building the effect does nothing")

	sent := runActions(t, eff)
	assert.Empty(t, sent, "dismissal goes to the parent, not the child")
	require.Len(t, dispatched, 1)
	assert.Equal(t, Dismissed, dispatched[0].Sheet.Kind)
}
