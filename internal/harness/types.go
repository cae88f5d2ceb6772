package harness

import "fmt"

// Source says how an action entered the store.
type Source string

const (
	// SourceSend is an action sent by a send step.
	SourceSend Source = "send"

	// SourceReceive is an effect action reduced by a receive step.
	SourceReceive Source = "receive"
)

// TraceEvent is one reduced action.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Action  string `json:"action"`
	Source  Source `json:"source"`
	Payload any    `json:"payload"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every step and assertion succeeded.
	Pass bool `json:"pass"`

	// Trace lists every reduced action in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final state in its JSON form.
	State any `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddErrorf is AddError with formatting.
func (r *Result) AddErrorf(format string, args ...any) {
	r.AddError(fmt.Sprintf(format, args...))
}

// Names returns the action names of the trace in order.
func (r *Result) Names() []string {
	names := make([]string, len(r.Trace))
	for i, e := range r.Trace {
		names[i] = e.Action
	}
	return names
}
