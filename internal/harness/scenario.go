package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is one scripted run of a feature.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// InitialState is decoded into the feature's state type. Omitted means
	// the zero state.
	InitialState *yaml.Node `yaml:"initial_state,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	// Supported types: trace_contains, trace_order, trace_count, final_state
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one scenario step. Exactly one of Send, Receive, Advance or
// SkipReceived is set; ExpectState may accompany any of them or stand alone.
type Step struct {
	// Send dispatches an action.
	Send *yaml.Node `yaml:"send,omitempty"`

	// Receive requires the next effect action to equal this one, then
	// reduces it.
	Receive *yaml.Node `yaml:"receive,omitempty"`

	// Advance moves virtual time forward (a Go duration, e.g. "300ms").
	Advance string `yaml:"advance,omitempty"`

	// SkipReceived discards every queued effect action.
	SkipReceived bool `yaml:"skip_received,omitempty"`

	// ExpectState is subset-matched against the state after the step.
	ExpectState map[string]any `yaml:"expect_state,omitempty"`
}

func (s Step) kind() string {
	switch {
	case s.Send != nil:
		return "send"
	case s.Receive != nil:
		return "receive"
	case s.Advance != "":
		return "advance"
	case s.SkipReceived:
		return "skip_received"
	default:
		return "expect_state"
	}
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an action with this name (and payload subset) was dispatched
	// - "trace_order": actions appear in order, not necessarily adjacent
	// - "trace_count": an action was dispatched exactly Count times
	// - "final_state": the final state matches Expect (subset)
	Type string `yaml:"type"`

	// Action is the action name (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Payload is subset-matched against the action's JSON (trace_contains).
	Payload map[string]any `yaml:"payload,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected action order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Expect is subset-matched against the final state (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		set := 0
		for _, present := range []bool{step.Send != nil, step.Receive != nil, step.Advance != "", step.SkipReceived} {
			if present {
				set++
			}
		}
		if set > 1 {
			return fmt.Errorf("steps[%d]: only one of send, receive, advance, skip_received may be set", i)
		}
		if set == 0 && step.ExpectState == nil {
			return fmt.Errorf("steps[%d]: empty step", i)
		}
		if step.Advance != "" {
			d, err := time.ParseDuration(step.Advance)
			if err != nil {
				return fmt.Errorf("steps[%d]: advance: %w", i, err)
			}
			if d <= 0 {
				return fmt.Errorf("steps[%d]: advance must be positive", i)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// DecodeNode decodes a YAML node into out through its JSON form, so the
// target's json tags and text unmarshalers apply. Unknown fields are
// rejected.
func DecodeNode(node *yaml.Node, out any) error {
	var generic any
	if err := node.Decode(&generic); err != nil {
		return err
	}
	raw, err := json.Marshal(generic)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
