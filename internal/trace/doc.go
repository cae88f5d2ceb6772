// Package trace provides SQLite-backed action traces for relay stores.
//
// A Recorder attaches to a store as an action listener and appends one
// record per dispatched action:
//   - Runs: one row per store instance, with its initial state
//   - Actions: seq, action type, canonical JSON payload and the SHA-256
//     hash of the state after the action was reduced
//
// Verify re-reduces a recorded run from its initial state and compares
// every state hash. Because reducers are pure and effects are data, the
// replay never executes an effect; a divergence means the reducer is not
// deterministic (or the trace was produced by a different reducer).
//
// # Patterns
//
// Logical time: records are ordered by seq (the recorder's logical clock),
// never by wall time, so traces are byte-identical across runs.
//
// Deterministic reads: every query orders by seq ASC, store_id ASC
// COLLATE BINARY.
//
// Canonical JSON: payloads and hashed states use RFC 8785 key ordering,
// NFC-normalized strings and no HTML escaping.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package trace
