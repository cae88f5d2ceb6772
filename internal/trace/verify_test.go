package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordTally(t *testing.T, db *DB, actions ...tallyAction) string {
	t.Helper()
	s := newTallyStore(t, "", tally{Tags: []string{"seed"}})
	rec, err := Attach(context.Background(), db, s, "verify", nil)
	require.NoError(t, err)
	for _, a := range actions {
		s.Dispatch(a)
	}
	<-s.Idle()
	rec.Detach()
	require.NoError(t, rec.Err())
	return s.ID()
}

func TestVerify_DeterministicReducer(t *testing.T) {
	db := openTestDB(t)
	id := recordTally(t, db,
		tallyAction{Type: "add"},
		tallyAction{Type: "tag", Tag: "x"},
		tallyAction{Type: "add_later"},
	)

	result, err := Verify(context.Background(), db, id, tallyReducer, tallyDeps{Step: 1})

	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Equal(t, 4, result.Actions, "effect output is replayed from the trace")
}

func TestVerify_ReportsFirstDivergence(t *testing.T) {
	db := openTestDB(t)
	id := recordTally(t, db,
		tallyAction{Type: "tag", Tag: "x"},
		tallyAction{Type: "add"},
		tallyAction{Type: "add"},
	)

	result, err := Verify(context.Background(), db, id, tallyReducer, tallyDeps{Step: 2})

	require.NoError(t, err)
	require.False(t, result.OK())
	assert.Equal(t, int64(2), result.Divergence.Seq)
	assert.Equal(t, "add", result.Divergence.ActionType)
	assert.Equal(t, DivergedState, result.Divergence.Reason)
	assert.NotEqual(t, result.Divergence.Recorded, result.Divergence.Replayed)
	assert.Equal(t, 2, result.Actions)
}

func TestVerify_UnknownStore(t *testing.T) {
	db := openTestDB(t)

	_, err := Verify(context.Background(), db, "missing", tallyReducer, tallyDeps{})

	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestVerify_BadPayload(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	hash, err := StateHash(tally{})
	require.NoError(t, err)
	require.NoError(t, db.WriteRun(ctx, Run{StoreID: "s", InitialState: `{"count":0,"tags":null}`, InitialHash: hash}))
	require.NoError(t, db.WriteAction(ctx, Record{StoreID: "s", Seq: 1, ActionType: "add", Payload: `[1]`, StateHash: "h"}))

	_, err = Verify(ctx, db, "s", tallyReducer, tallyDeps{})

	assert.ErrorContains(t, err, "decode seq 1")
}

func TestVerify_EditedPayload(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	id := recordTally(t, db, tallyAction{Type: "add"}, tallyAction{Type: "tag", Tag: "x"})

	records, err := db.ReadActions(ctx, id)
	require.NoError(t, err)
	require.Len(t, records, 2)
	want, err := ActionHash(tallyAction{Type: "tag", Tag: "x"})
	require.NoError(t, err)
	assert.Equal(t, want, records[1].ActionHash)

	edited, err := Canonical(tallyAction{Type: "tag", Tag: "y"})
	require.NoError(t, err)
	_, err = db.db.ExecContext(ctx, `UPDATE actions SET payload = ? WHERE store_id = ? AND seq = 2`, string(edited), id)
	require.NoError(t, err)

	result, err := Verify(ctx, db, id, tallyReducer, tallyDeps{Step: 1})

	require.NoError(t, err)
	require.False(t, result.OK())
	assert.Equal(t, int64(2), result.Divergence.Seq)
	assert.Equal(t, DivergedPayload, result.Divergence.Reason)
	assert.Equal(t, records[1].ActionHash, result.Divergence.Recorded)
	assert.Equal(t, 1, result.Actions)
}
