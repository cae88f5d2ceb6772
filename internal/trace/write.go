package trace

import (
	"context"
	"fmt"
)

// Run is one traced store instance.
type Run struct {
	StoreID      string
	Label        string
	InitialState string // canonical JSON
	InitialHash  string
}

// Record is one traced action.
type Record struct {
	StoreID      string
	Seq          int64
	ActionType   string
	Payload      string // canonical JSON
	StateHash    string
	StateChanged bool

	// ActionHash is the domain-separated hash of Payload. Verify uses it
	// to detect payloads edited or truncated after recording.
	ActionHash string
}

// WriteRun inserts a run record.
// Uses ON CONFLICT(store_id) DO NOTHING so a resumed store keeps its
// original initial state.
func (d *DB) WriteRun(ctx context.Context, run Run) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO runs (store_id, label, initial_state, initial_hash)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(store_id) DO NOTHING
	`, run.StoreID, run.Label, run.InitialState, run.InitialHash)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteAction inserts an action record.
// Uses ON CONFLICT DO NOTHING for idempotency - rewriting the same
// (store_id, seq) is silently ignored.
//
// Note: The run referenced by StoreID must exist (foreign key constraint).
func (d *DB) WriteAction(ctx context.Context, rec Record) error {
	changed := 0
	if rec.StateChanged {
		changed = 1
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO actions (store_id, seq, action_type, payload, state_hash, state_changed, action_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, rec.StoreID, rec.Seq, rec.ActionType, rec.Payload, rec.StateHash, changed, rec.ActionHash)
	if err != nil {
		return fmt.Errorf("write action: %w", err)
	}
	return nil
}
