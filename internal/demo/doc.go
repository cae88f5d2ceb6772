// Package demo is a todo list feature built from every runtime operator.
//
// The root reducer is a Combine of:
//   - core: loading, adding, deleting, toasts and the ticker
//   - Scope: the always-present search panel (debounced search)
//   - ForEach: one reducer per todo row
//   - IfLetPresented + DestinationReducer: the delete-confirmation alert
//     and the edit sheet, each adapted with CaseReducer
//   - ForEachStack: detail screens pushed on the navigation path
//   - autosave: throttled saves after any change to the todos
//
// Effects cover each kind the interpreter runs: a cancellable load, a
// debounced search, a throttled save, an after-delay toast dismissal and a
// ticker subscription. Destination reducers dismiss themselves through the
// Dismiss capability in Deps.
//
// Reducers never generate ids or read the clock; an "add" is turned into an
// "added" carrying its id by an effect, so recorded traces replay exactly.
package demo
