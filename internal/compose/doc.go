// Package compose builds parent reducers out of child reducers.
//
// Each operator narrows the parent state to a child slice, routes the
// parent action to a child action, runs the child reducer, re-embeds the
// child state and maps the child effect's actions back into parent actions.
//
//   - Scope: the child is always present.
//   - IfLet: the child is optional (*CS); nil means absent.
//   - ForEach: the child is one element of an identified collection.
//   - Combine: several reducers over the same state and action.
//
// Actions addressed to a child that is not there (absent IfLet child,
// unknown ForEach id) are dropped. Every drop is logged at WARN through
// LogDropped and the parent state is returned unchanged with no effect.
// Effects can legitimately race with removal, so a drop is never an error.
// Drops go to the logger carried by the dependency value when it implements
// Logging, and to slog.Default() otherwise.
package compose
