package compose

import (
	"log/slog"

	"github.com/roach88/relay/internal/store"
)

// Logging is implemented by dependency values that carry a logger.
// Routing operators report drops through it so drops land in the same
// handler, level and store_id context as the store's own logs.
type Logging interface {
	Logger() *slog.Logger
}

// LoggerFor returns the logger carried by deps, or slog.Default() when
// deps carries none.
func LoggerFor(deps any) *slog.Logger {
	if l, ok := deps.(Logging); ok {
		if logger := l.Logger(); logger != nil {
			return logger
		}
	}
	return slog.Default()
}

// LogDropped records an action that was routed to a child, element, screen
// or destination that is not there. All routing operators report drops
// through this one function so the policy stays uniform.
func LogDropped(deps any, operator string, action any, attrs ...any) {
	args := append([]any{"operator", operator, "action", store.ActionName(action)}, attrs...)
	LoggerFor(deps).Warn("action dropped", args...)
}
