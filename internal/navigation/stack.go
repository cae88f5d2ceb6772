package navigation

import (
	"fmt"
	"slices"

	"github.com/roach88/relay/internal/compose"
	"github.com/roach88/relay/internal/effect"
	"github.com/roach88/relay/internal/store"
)

// StackActionKind enumerates stack operations.
type StackActionKind int

const (
	StackPush StackActionKind = iota
	StackPop
	StackPopToRoot
	StackSetPath
	StackElement
)

var stackActionNames = map[StackActionKind]string{
	StackPush:      "push",
	StackPop:       "pop",
	StackPopToRoot: "popToRoot",
	StackSetPath:   "setPath",
	StackElement:   "element",
}

func (k StackActionKind) String() string {
	if name, ok := stackActionNames[k]; ok {
		return name
	}
	return fmt.Sprintf("stack(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k StackActionKind) MarshalText() ([]byte, error) {
	if _, ok := stackActionNames[k]; !ok {
		return nil, fmt.Errorf("unknown stack action kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name such as "push" or "element".
func (k *StackActionKind) UnmarshalText(text []byte) error {
	for kind, name := range stackActionNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown stack action kind %q", text)
}

// StackAction drives a stack of screen states S whose reducers take A.
// Only the fields of the action's Kind are meaningful.
type StackAction[S, A any] struct {
	Kind StackActionKind `json:"kind" yaml:"kind"`

	// State is the screen pushed by StackPush.
	State S `json:"state" yaml:"state,omitempty"`

	// Path replaces the stack for StackSetPath.
	Path []S `json:"path,omitempty" yaml:"path,omitempty"`

	// Index and Element address one screen for StackElement.
	Index   int                   `json:"index" yaml:"index,omitempty"`
	Element PresentationAction[A] `json:"element" yaml:"element,omitempty"`
}

// ActionName names the operation and, for element actions, the index and payload.
func (a StackAction[S, A]) ActionName() string {
	if a.Kind == StackElement {
		return fmt.Sprintf("element[%d]/%s", a.Index, a.Element.ActionName())
	}
	return a.Kind.String()
}

// Push appends a screen.
func Push[S, A any](state S) StackAction[S, A] {
	return StackAction[S, A]{Kind: StackPush, State: state}
}

// Pop removes the top screen. The root screen is never popped.
func Pop[S, A any]() StackAction[S, A] {
	return StackAction[S, A]{Kind: StackPop}
}

// PopToRoot removes every screen but the first.
func PopToRoot[S, A any]() StackAction[S, A] {
	return StackAction[S, A]{Kind: StackPopToRoot}
}

// SetPath replaces the whole stack.
func SetPath[S, A any](path []S) StackAction[S, A] {
	return StackAction[S, A]{Kind: StackSetPath, Path: path}
}

// ElementAt addresses the screen at index.
func ElementAt[S, A any](index int, action PresentationAction[A]) StackAction[S, A] {
	return StackAction[S, A]{Kind: StackElement, Index: index, Element: action}
}

// HandleStackAction applies action to stack, running screen for element
// actions. The input slice is never modified.
//
//   - push appends
//   - pop removes the last screen; no-op on a stack of length <= 1
//   - popToRoot keeps only the first screen; no-op on an empty stack
//   - setPath replaces the stack
//   - element(i, dismiss) removes screen i and everything above it
//   - element(i, presented(a)) runs screen on stack[i] and re-tags its
//     effect as element(i, presented(·))
//
// An element action with an index outside [0, len) is dropped.
func HandleStackAction[S, A, D any](stack []S, action StackAction[S, A], screen store.Reducer[S, A, D], deps D) ([]S, effect.Effect[StackAction[S, A]]) {
	next, eff, _ := handleStack(stack, action, screen, deps)
	return next, eff
}

// handleStack reports whether the stack was touched, so callers can return
// the parent state as-is for no-ops.
func handleStack[S, A, D any](stack []S, action StackAction[S, A], screen store.Reducer[S, A, D], deps D) ([]S, effect.Effect[StackAction[S, A]], bool) {
	none := effect.None[StackAction[S, A]]()

	switch action.Kind {
	case StackPush:
		return append(slices.Clip(stack), action.State), none, true

	case StackPop:
		if len(stack) <= 1 {
			return stack, none, false
		}
		return slices.Clip(stack[:len(stack)-1]), none, true

	case StackPopToRoot:
		if len(stack) <= 1 {
			return stack, none, false
		}
		return slices.Clip(stack[:1]), none, true

	case StackSetPath:
		return slices.Clone(action.Path), none, true

	case StackElement:
		i := action.Index
		if i < 0 || i >= len(stack) {
			compose.LogDropped(deps, "stack", action, "index", i, "length", len(stack), "reason", "index out of range")
			return stack, none, false
		}
		if action.Element.Kind == Dismissed {
			return slices.Clip(stack[:i]), none, true
		}

		state, eff := screen(stack[i], action.Element.Action, deps)
		next := slices.Clone(stack)
		next[i] = state
		return next, effect.Map(eff, func(a A) StackAction[S, A] {
			return ElementAt[S](i, Present(a))
		}), true

	default:
		compose.LogDropped(deps, "stack", action, "reason", "unknown stack action")
		return stack, none, false
	}
}

// ForEachStack lifts a screen reducer over a stack held in parent state.
// Stack actions that leave the stack untouched return the parent state
// unchanged.
func ForEachStack[PS, PA, S, A, D any](
	getStack func(PS) []S,
	setStack func(PS, []S) PS,
	toStackAction func(PA) (StackAction[S, A], bool),
	fromStackAction func(StackAction[S, A]) PA,
	screen store.Reducer[S, A, D],
) store.Reducer[PS, PA, D] {
	return func(state PS, action PA, deps D) (PS, effect.Effect[PA]) {
		sa, ok := toStackAction(action)
		if !ok {
			return state, effect.None[PA]()
		}
		next, eff, changed := handleStack(getStack(state), sa, screen, deps)
		if !changed {
			return state, effect.None[PA]()
		}
		return setStack(state, next), effect.Map(eff, fromStackAction)
	}
}
