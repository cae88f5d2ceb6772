package store

import (
	"log/slog"

	"github.com/roach88/relay/internal/clock"
)

// Option configures runtime plumbing that is not part of Config:
// logging, time and identity.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	scheduler      clock.Scheduler
	ids            IDGenerator
	maxHistorySize int
	disableHistory bool
}

func defaultOptions() options {
	return options{
		logger:    slog.Default(),
		scheduler: clock.System{},
		ids:       UUIDv7Generator{},
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithScheduler sets the scheduler used for debounce, throttle and delays.
// Defaults to clock.System{}.
func WithScheduler(s clock.Scheduler) Option {
	return func(o *options) {
		if s != nil {
			o.scheduler = s
		}
	}
}

// WithIDGenerator sets the store ID generator.
// Use a fixed generator for deterministic traces.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) {
		if g != nil {
			o.ids = g
		}
	}
}

// WithMaxHistorySize overrides Config.MaxHistorySize when n > 0.
func WithMaxHistorySize(n int) Option {
	return func(o *options) {
		o.maxHistorySize = n
	}
}

// WithoutHistory disables the action history.
func WithoutHistory() Option {
	return func(o *options) {
		o.disableHistory = true
	}
}
