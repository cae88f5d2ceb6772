package trace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrRunNotFound is returned when no run exists for a store id.
var ErrRunNotFound = errors.New("run not found")

// ReadRun returns the run for storeID.
// Returns ErrRunNotFound (wrapped) if it does not exist.
func (d *DB) ReadRun(ctx context.Context, storeID string) (Run, error) {
	var run Run
	err := d.db.QueryRowContext(ctx, `
		SELECT store_id, label, initial_state, initial_hash
		FROM runs
		WHERE store_id = ?
	`, storeID).Scan(&run.StoreID, &run.Label, &run.InitialState, &run.InitialHash)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", storeID, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", storeID, err)
	}
	return run, nil
}

// ListRuns returns every run, ordered by store id.
func (d *DB) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT store_id, label, initial_state, initial_hash
		FROM runs
		ORDER BY store_id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.StoreID, &run.Label, &run.InitialState, &run.InitialHash); err != nil {
			return nil, fmt.Errorf("list runs: scan: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// ReadActions returns every action recorded for storeID, ordered by seq.
// Records from traces older than payload hashing have an empty ActionHash.
func (d *DB) ReadActions(ctx context.Context, storeID string) ([]Record, error) {
	actionHash := "''"
	if d.hasActionHashes() {
		actionHash = "action_hash"
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT store_id, seq, action_type, payload, state_hash, state_changed, `+actionHash+`
		FROM actions
		WHERE store_id = ?
		ORDER BY seq ASC
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("read actions %s: %w", storeID, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var changed int
		if err := rows.Scan(&rec.StoreID, &rec.Seq, &rec.ActionType, &rec.Payload, &rec.StateHash, &changed, &rec.ActionHash); err != nil {
			return nil, fmt.Errorf("read actions %s: scan: %w", storeID, err)
		}
		rec.StateChanged = changed != 0
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read actions %s: %w", storeID, err)
	}
	return records, nil
}

// CountActions returns how many actions of the given type were recorded
// for storeID. An empty actionType counts every action.
func (d *DB) CountActions(ctx context.Context, storeID, actionType string) (int, error) {
	query := `SELECT COUNT(*) FROM actions WHERE store_id = ?`
	args := []any{storeID}
	if actionType != "" {
		query += ` AND action_type = ?`
		args = append(args, actionType)
	}
	var n int
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count actions %s: %w", storeID, err)
	}
	return n, nil
}

// LastSeq returns the highest recorded seq for storeID, or 0 when the
// store has no recorded actions.
func (d *DB) LastSeq(ctx context.Context, storeID string) (int64, error) {
	var seq sql.NullInt64
	err := d.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM actions WHERE store_id = ?
	`, storeID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq %s: %w", storeID, err)
	}
	return seq.Int64, nil
}
