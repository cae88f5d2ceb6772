package trace

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/relay/internal/store"
)

// DivergenceReason says which recorded hash a replay failed to reproduce.
type DivergenceReason string

const (
	// DivergedInitialState: the stored initial state does not hash to the
	// recorded initial hash.
	DivergedInitialState DivergenceReason = "initial_state"

	// DivergedPayload: an action payload does not hash to its recorded
	// action hash.
	DivergedPayload DivergenceReason = "payload"

	// DivergedState: re-reducing an action produced a different state.
	DivergedState DivergenceReason = "state"
)

// Divergence describes the first record a replay could not reproduce.
// Recorded and Replayed are the two hashes that differ.
type Divergence struct {
	Seq        int64            `json:"seq"`
	ActionType string           `json:"action_type"`
	Reason     DivergenceReason `json:"reason"`
	Recorded   string           `json:"recorded"`
	Replayed   string           `json:"replayed"`
}

// VerifyResult is the outcome of re-reducing one recorded run.
type VerifyResult struct {
	StoreID    string
	Actions    int
	Divergence *Divergence
}

// OK reports whether every replayed state matched its record.
func (r VerifyResult) OK() bool {
	return r.Divergence == nil
}

// Verify re-reduces the recorded run of storeID and compares each state
// hash with the recorded one. Effects returned by the reducer are
// discarded; actions they produced were recorded and are replayed in
// order like any other.
//
// The initial state and payloads are decoded with encoding/json, so S and
// A must round-trip through JSON.
//
// Records carrying an action hash are checked against their payload
// before they are replayed, so an edited payload is reported as such
// rather than as a reducer difference.
//
// Returns an error only when the trace cannot be read or decoded. A
// divergence is reported in the result.
func Verify[S, A, D any](ctx context.Context, db *DB, storeID string, reducer store.Reducer[S, A, D], deps D) (VerifyResult, error) {
	result := VerifyResult{StoreID: storeID}

	run, err := db.ReadRun(ctx, storeID)
	if err != nil {
		return result, fmt.Errorf("verify: %w", err)
	}
	records, err := db.ReadActions(ctx, storeID)
	if err != nil {
		return result, fmt.Errorf("verify: %w", err)
	}

	var state S
	if err := json.Unmarshal([]byte(run.InitialState), &state); err != nil {
		return result, fmt.Errorf("verify %s: decode initial state: %w", storeID, err)
	}
	hash, err := StateHash(state)
	if err != nil {
		return result, fmt.Errorf("verify %s: %w", storeID, err)
	}
	if hash != run.InitialHash {
		result.Divergence = &Divergence{Seq: 0, Reason: DivergedInitialState, Recorded: run.InitialHash, Replayed: hash}
		return result, nil
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if rec.ActionHash != "" {
			if replayed := hashWithDomain(DomainAction, []byte(rec.Payload)); replayed != rec.ActionHash {
				result.Divergence = &Divergence{
					Seq:        rec.Seq,
					ActionType: rec.ActionType,
					Reason:     DivergedPayload,
					Recorded:   rec.ActionHash,
					Replayed:   replayed,
				}
				return result, nil
			}
		}

		var action A
		if err := json.Unmarshal([]byte(rec.Payload), &action); err != nil {
			return result, fmt.Errorf("verify %s: decode seq %d: %w", storeID, rec.Seq, err)
		}

		state, _ = reducer(state, action, deps)
		result.Actions++

		hash, err := StateHash(state)
		if err != nil {
			return result, fmt.Errorf("verify %s: seq %d: %w", storeID, rec.Seq, err)
		}
		if hash != rec.StateHash {
			result.Divergence = &Divergence{
				Seq:        rec.Seq,
				ActionType: rec.ActionType,
				Reason:     DivergedState,
				Recorded:   rec.StateHash,
				Replayed:   hash,
			}
			return result, nil
		}
	}

	return result, nil
}
