package compose

import (
	"slices"

	"github.com/roach88/relay/internal/effect"
	"github.com/roach88/relay/internal/store"
)

// Element is one identified member of a collection.
// IDs are expected to be unique within a collection at any instant.
type Element[ID comparable, S any] struct {
	ID    ID `json:"id" yaml:"id"`
	State S  `json:"state" yaml:"state"`
}

// ElementAction addresses an action to the collection element with ID.
type ElementAction[ID comparable, A any] struct {
	ID     ID `json:"id" yaml:"id"`
	Action A  `json:"action" yaml:"action"`
}

// ForEach lifts an element reducer over a collection of identified elements.
//
// The element is found by linear scan on ID. When it is missing (removed
// while an effect was in flight) the action is dropped. Otherwise the
// collection is copied, exactly one slot replaced, and the element effect
// re-tagged with the element's ID.
func ForEach[PS, PA any, ID comparable, ES, EA, D any](
	getElements func(PS) []Element[ID, ES],
	setElements func(PS, []Element[ID, ES]) PS,
	toElementAction func(PA) (ElementAction[ID, EA], bool),
	fromElementAction func(ElementAction[ID, EA]) PA,
	element store.Reducer[ES, EA, D],
) store.Reducer[PS, PA, D] {
	return func(state PS, action PA, deps D) (PS, effect.Effect[PA]) {
		ea, ok := toElementAction(action)
		if !ok {
			return state, effect.None[PA]()
		}

		elements := getElements(state)
		i := slices.IndexFunc(elements, func(e Element[ID, ES]) bool { return e.ID == ea.ID })
		if i < 0 {
			LogDropped(deps, "forEach", ea.Action, "id", ea.ID, "reason", "element not found")
			return state, effect.None[PA]()
		}

		nextState, eff := element(elements[i].State, ea.Action, deps)

		next := slices.Clone(elements)
		next[i] = Element[ID, ES]{ID: ea.ID, State: nextState}

		id := ea.ID
		return setElements(state, next), effect.Map(eff, func(a EA) PA {
			return fromElementAction(ElementAction[ID, EA]{ID: id, Action: a})
		})
	}
}
