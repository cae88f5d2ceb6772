// Package effect defines effects as data.
//
// An Effect describes side work a reducer wants performed: running an
// executor, debouncing it, keeping a subscription open. Constructing an
// Effect never performs that work. The store's interpreter is the only
// place executors, thunks and subscription setups are ever called.
//
// The variant set is closed. Interpreters switch on Kind:
//
//	switch eff.Kind() {
//	case effect.KindNone:
//	case effect.KindRun:
//	    ...
//	}
//
// Effects carry the action type they produce. Composition operators use
// Map to re-tag a child's effect into its parent's action type.
package effect
