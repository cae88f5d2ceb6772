package trace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/relay/internal/clock"
	"github.com/roach88/relay/internal/store"
)

// Source is the part of a store a Recorder observes.
// *store.Store satisfies it.
type Source[S, A any] interface {
	ID() string
	State() S
	SubscribeToActions(fn func(action A, state S)) (unsubscribe func())
}

// Recorder writes every action a store dispatches to a trace database.
//
// Thread-safety: the store calls action listeners from one draining
// goroutine at a time; the recorder still serializes writes with a mutex
// so Detach and Err may be called from anywhere.
type Recorder[S, A any] struct {
	db      *DB
	ctx     context.Context
	storeID string
	logger  *slog.Logger
	clock   *clock.Clock

	mu       sync.Mutex
	lastHash string
	err      error
	detach   func()
	detached bool
}

// Attach records src into db under label. If src already has a run in db
// (same store id), recording resumes after its last seq.
//
// Write failures never reach the store: they are logged and the first one
// is kept for Err.
func Attach[S, A any](ctx context.Context, db *DB, src Source[S, A], label string, logger *slog.Logger) (*Recorder[S, A], error) {
	if logger == nil {
		logger = slog.Default()
	}
	storeID := src.ID()

	initial := src.State()
	initialJSON, err := Canonical(initial)
	if err != nil {
		return nil, fmt.Errorf("attach %s: initial state: %w", storeID, err)
	}
	initialHash := hashWithDomain(DomainState, initialJSON)

	if err := db.WriteRun(ctx, Run{
		StoreID:      storeID,
		Label:        label,
		InitialState: string(initialJSON),
		InitialHash:  initialHash,
	}); err != nil {
		return nil, fmt.Errorf("attach %s: %w", storeID, err)
	}

	lastSeq, err := db.LastSeq(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("attach %s: %w", storeID, err)
	}

	r := &Recorder[S, A]{
		db:       db,
		ctx:      ctx,
		storeID:  storeID,
		logger:   logger.With("store_id", storeID),
		clock:    clock.NewClockAt(lastSeq),
		lastHash: initialHash,
	}
	r.detach = src.SubscribeToActions(r.record)

	r.logger.Debug("trace recorder attached", "label", label, "resume_seq", lastSeq)
	return r, nil
}

// StoreID returns the id of the recorded store.
func (r *Recorder[S, A]) StoreID() string {
	return r.storeID
}

// Detach stops recording. Idempotent.
func (r *Recorder[S, A]) Detach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.detached {
		return
	}
	r.detached = true
	r.detach()
}

// Err returns the first write error, or nil.
func (r *Recorder[S, A]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder[S, A]) record(action A, state S) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.detached {
		return
	}

	rec, err := r.encode(action, state)
	if err == nil {
		err = r.db.WriteAction(r.ctx, rec)
	}
	if err != nil {
		r.logger.Error("trace write failed", "action", store.ActionName(action), "error", err)
		if r.err == nil {
			r.err = err
		}
		return
	}
	r.lastHash = rec.StateHash
}

func (r *Recorder[S, A]) encode(action A, state S) (Record, error) {
	payload, err := Canonical(action)
	if err != nil {
		return Record{}, fmt.Errorf("encode action: %w", err)
	}
	stateHash, err := StateHash(state)
	if err != nil {
		return Record{}, err
	}
	return Record{
		StoreID:      r.storeID,
		Seq:          r.clock.Next(),
		ActionType:   store.ActionName(action),
		Payload:      string(payload),
		StateHash:    stateHash,
		StateChanged: stateHash != r.lastHash,
		ActionHash:   hashWithDomain(DomainAction, payload),
	}, nil
}
