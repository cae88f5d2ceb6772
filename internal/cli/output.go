package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/relay/internal/trace"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Scenarios failed or a replay diverged
	ExitCommandError = 2 // Command error (invalid paths, bad config, unreadable trace, etc.)
)

// ErrorCode identifies a failure in JSON output. Scripts branch on it
// instead of parsing messages.
type ErrorCode string

const (
	CodeTestFailed  ErrorCode = "E_TEST_FAILED"   // scenarios failed or golden traces differ
	CodeDiverged    ErrorCode = "E_DIVERGED"      // a replay did not reproduce its trace
	CodeUsage       ErrorCode = "E_USAGE"         // bad flags or arguments
	CodeConfig      ErrorCode = "E_CONFIG"        // config file unreadable or invalid
	CodeScript      ErrorCode = "E_SCRIPT"        // action script unreadable or invalid
	CodeScenario    ErrorCode = "E_SCENARIO"      // scenario directory or file unusable
	CodeTrace       ErrorCode = "E_TRACE"         // trace database missing, foreign or unwritable
	CodeRunNotFound ErrorCode = "E_RUN_NOT_FOUND" // no traced run with that store id
	CodeInternal    ErrorCode = "E_INTERNAL"      // anything unclassified
)

// ExitError carries the process exit code and the JSON error code of a
// failed command.
type ExitError struct {
	Code    int       // Exit code (use ExitFailure or ExitCommandError)
	Message string    // Error message
	Err     error     // Underlying error (optional)
	ErrCode ErrorCode // JSON error code; derived from Err when empty

	// reported is set when the command already wrote its own JSON error
	// envelope, so Execute does not write a second document.
	reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WithCode sets the JSON error code.
func (e *ExitError) WithCode(code ErrorCode) *ExitError {
	e.ErrCode = code
	return e
}

func (e *ExitError) markReported() *ExitError {
	e.reported = true
	return e
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// GetErrorCode classifies err for JSON output: an explicit ExitError code
// wins, then known trace errors, then CodeInternal.
func GetErrorCode(err error) ErrorCode {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.ErrCode != "" {
		return exitErr.ErrCode
	}
	switch {
	case errors.Is(err, trace.ErrRunNotFound):
		return CodeRunNotFound
	case errors.Is(err, trace.ErrNotTraceDB), errors.Is(err, trace.ErrNewerSchema):
		return CodeTrace
	default:
		return CodeInternal
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the JSON document every command writes in --format json.
type CLIResponse struct {
	Status  string    `json:"status"`             // "ok" or "error"
	Data    any       `json:"data,omitempty"`     // success payload
	Error   *CLIError `json:"error,omitempty"`    // error details
	StoreID string    `json:"store_id,omitempty"` // traced store, when one was recorded
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // an ErrorCode
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.JSON(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// JSON writes resp as indented JSON.
func (f *OutputFormatter) JSON(resp CLIResponse) error {
	encoder := json.NewEncoder(f.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code ErrorCode, message string, details any) error {
	if f.Format == "json" {
		return f.JSON(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: string(code), Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports a command error. In JSON mode it writes an error envelope
// to Writer unless the command already wrote one; in text mode it writes
// the message to the diagnostic writer.
func (f *OutputFormatter) Fail(err error) {
	if f.Format == "json" {
		var exitErr *ExitError
		if errors.As(err, &exitErr) && exitErr.reported {
			return
		}
		if f.Error(GetErrorCode(err), err.Error(), nil) == nil {
			return
		}
	}
	fmt.Fprintln(f.GetErrWriter(), "Error:", err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
