// Package harness runs YAML scenarios against a feature through the test
// store and checks the resulting action trace.
//
// # Scenario Format
//
//	name: add_todo
//	description: "Adding a todo assigns an id and saves"
//	initial_state:
//	  todos: []
//	steps:
//	  - send: { type: add, title: Milk }
//	  - receive: { type: added, id: new-1, title: Milk }
//	    expect_state: { todos: [{ id: new-1 }] }
//	  - advance: 2s
//	  - skip_received: true
//	assertions:
//	  - type: trace_contains
//	    action: added
//	    payload: { title: Milk }
//	  - type: trace_order
//	    actions: [add, added, saved]
//	  - type: trace_count
//	    action: saved
//	    count: 1
//	  - type: final_state
//	    expect: { toast: Saved }
//
// send and receive are decoded into the feature's action type. Effect
// output is exhaustive as in the test store: every action an effect sends
// must be received (or skipped) before the next send and before the end of
// the scenario. State is checked only where a step or assertion names it,
// by subset match on the state's JSON form.
//
// # Deterministic Testing
//
// Every scenario runs with a fresh store, a fixed store id and a virtual
// clock that only moves on advance steps, so traces are identical across
// runs and can be compared with golden files.
package harness
