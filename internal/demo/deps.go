package demo

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/relay/internal/clock"
	"github.com/roach88/relay/internal/effect"
)

// Repository persists todos and answers searches.
type Repository interface {
	Load(ctx context.Context) ([]TodoElement, error)
	Save(ctx context.Context, todos []TodoElement) error
	Search(ctx context.Context, query string) ([]string, error)
}

// Env is what the feature needs from the outside world.
type Env struct {
	Repository Repository

	// NewID generates todo ids. Defaults to UUIDv7.
	NewID func() string

	// Scheduler drives the ticker. Pass the same scheduler given to the
	// store so tests control both with one clock.
	Scheduler clock.Scheduler

	// Log receives routing drops. Defaults to slog.Default(); pass the
	// store's logger so drops carry the same handler and store_id.
	Log *slog.Logger

	SearchDebounce time.Duration
	SaveThrottle   time.Duration
	ToastDuration  time.Duration
	TickInterval   time.Duration
}

// Default effect timings.
const (
	DefaultSearchDebounce = 300 * time.Millisecond
	DefaultSaveThrottle   = time.Second
	DefaultToastDuration  = 2 * time.Second
	DefaultTickInterval   = time.Second
)

func (e Env) withDefaults() Env {
	if e.Repository == nil {
		e.Repository = NewMemoryRepository()
	}
	if e.NewID == nil {
		e.NewID = func() string { return uuid.Must(uuid.NewV7()).String() }
	}
	if e.Scheduler == nil {
		e.Scheduler = clock.System{}
	}
	if e.SearchDebounce <= 0 {
		e.SearchDebounce = DefaultSearchDebounce
	}
	if e.SaveThrottle <= 0 {
		e.SaveThrottle = DefaultSaveThrottle
	}
	if e.ToastDuration <= 0 {
		e.ToastDuration = DefaultToastDuration
	}
	if e.TickInterval <= 0 {
		e.TickInterval = DefaultTickInterval
	}
	return e
}

// Deps is the reducer's dependency value.
type Deps struct {
	Env

	// Dismiss yields an effect that dismisses the presented destination.
	Dismiss func() effect.Effect[DestinationAction]
}

// Logger implements compose.Logging.
func (d Deps) Logger() *slog.Logger {
	return d.Log
}
