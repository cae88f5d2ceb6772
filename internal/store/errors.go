package store

import (
	"errors"
	"fmt"
)

// RuntimeError represents a failure detected while running effects or
// notifying listeners.
//
// Runtime errors are logged, never returned to the dispatcher and never
// converted into actions:
//   - Effect failed: an executor returned a non-nil error
//   - Effect panicked: an executor or thunk panicked
//   - Listener panicked: a state or action listener panicked
//   - Subscription failed: a subscription setup returned an error or panicked
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// EffectKind is the kind of effect that failed, if any.
	EffectKind string

	// EffectID is the id of the effect that failed, if it had one.
	EffectID string

	// Err is the underlying error, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeEffectFailed indicates an executor returned an error.
	ErrCodeEffectFailed RuntimeErrorCode = "EFFECT_FAILED"

	// ErrCodeEffectPanicked indicates an executor or thunk panicked.
	ErrCodeEffectPanicked RuntimeErrorCode = "EFFECT_PANICKED"

	// ErrCodeListenerPanicked indicates a listener panicked.
	ErrCodeListenerPanicked RuntimeErrorCode = "LISTENER_PANICKED"

	// ErrCodeSubscriptionFailed indicates a subscription could not be set up.
	ErrCodeSubscriptionFailed RuntimeErrorCode = "SUBSCRIPTION_FAILED"

	// ErrCodeStoreDestroyed indicates an operation on a destroyed store.
	ErrCodeStoreDestroyed RuntimeErrorCode = "STORE_DESTROYED"
)

// ErrStoreDestroyed is returned by operations that require a live store.
var ErrStoreDestroyed = &RuntimeError{
	Code:    ErrCodeStoreDestroyed,
	Message: "store has been destroyed",
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.EffectKind != "" && e.EffectID != "" {
		msg = fmt.Sprintf("%s (kind=%s, id=%s)", msg, e.EffectKind, e.EffectID)
	} else if e.EffectKind != "" {
		msg = fmt.Sprintf("%s (kind=%s)", msg, e.EffectKind)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsEffectError returns true if err is an effect failure or panic.
// Uses errors.As to handle wrapped errors.
func IsEffectError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeEffectFailed || re.Code == ErrCodeEffectPanicked
	}
	return false
}

// IsPanicError returns true if err was built from a recovered panic.
func IsPanicError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeEffectPanicked || re.Code == ErrCodeListenerPanicked
	}
	return false
}

// NewEffectError creates a RuntimeError for an executor that returned err.
func NewEffectError(kind, id string, err error) *RuntimeError {
	return &RuntimeError{
		Code:       ErrCodeEffectFailed,
		Message:    "effect executor failed",
		EffectKind: kind,
		EffectID:   id,
		Err:        err,
	}
}

// NewPanicError creates a RuntimeError for an executor that panicked.
func NewPanicError(kind, id string, recovered any) *RuntimeError {
	return &RuntimeError{
		Code:       ErrCodeEffectPanicked,
		Message:    fmt.Sprintf("effect executor panicked: %v", recovered),
		EffectKind: kind,
		EffectID:   id,
	}
}

// NewSubscriptionError creates a RuntimeError for a failed subscription setup.
func NewSubscriptionError(id string, err error) *RuntimeError {
	return &RuntimeError{
		Code:       ErrCodeSubscriptionFailed,
		Message:    "subscription setup failed",
		EffectKind: "subscription",
		EffectID:   id,
		Err:        err,
	}
}

func newListenerPanic(recovered any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeListenerPanicked,
		Message: fmt.Sprintf("listener panicked: %v", recovered),
	}
}
