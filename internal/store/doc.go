// Package store implements the relay runtime: a store holding application
// state, a pure reducer computing the next state and an effect, and the
// interpreter that executes effects.
//
// ARCHITECTURE:
//
// Run-to-Completion Dispatch:
// Dispatch appends the action to a FIFO queue. If no dispatch is in
// progress the caller becomes the drainer and processes the queue until it
// is empty; otherwise the action waits for the current drainer. Every
// action goes through the full cycle before the next one starts:
//
//  1. Append to history (unless disabled)
//  2. reducer(state, action, deps) -> (next, effect)
//  3. If next differs from state: commit, notify state listeners
//  4. Notify action listeners (always)
//  5. Hand the effect to the interpreter (unless None)
//
// This gives the same guarantee a single-threaded event loop gives: a
// dispatch issued from a listener, or from an effect goroutine, never
// interleaves with an in-progress notification pass.
//
// Effect Interpretation:
// Executors run on their own goroutines with a context derived from the
// store's root context. Cancellation is id-keyed and explicit: a newer
// Cancellable or Subscription with the same id replaces the older one, and
// Destroy cancels the root. Debounce, throttle and after-delay timing comes
// from an injected clock.Scheduler, so tests can run in virtual time.
//
// Failure Policy:
//   - Reducer panics propagate to the Dispatch caller; nothing is committed.
//   - Listener panics are recovered per listener and logged.
//   - Executor errors and panics are logged with the effect kind and id,
//     never retried and never turned into actions.
//
// Every table the runtime mutates (queue, history, listeners, registries)
// belongs to one Store instance. There is no package-level state.
package store
