package harness

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Seq, event.Source, event.Action)
		}
	}

	return strings.TrimRight(buf.String(), "\n")
}

func evaluateAssertion(a Assertion, result *Result) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertFinalState:
		return assertFinalState(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertTraceContains checks that some action with the name matches the
// payload (subset match).
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	want := normalize(a.Payload)
	for _, event := range trace {
		if event.Action != a.Action {
			continue
		}
		if a.Payload == nil || MatchSubset(want, event.Payload) == nil {
			return nil
		}
	}

	expected := "action " + a.Action
	if a.Payload != nil {
		expected += fmt.Sprintf(" with payload %v", a.Payload)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the actions appear as a subsequence of the
// trace. Intervening actions are allowed.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(a.Actions) && event.Action == a.Actions[next] {
			next++
		}
	}
	if next == len(a.Actions) {
		return nil
	}

	actual := fmt.Sprintf("%s not found after %v", a.Actions[next], a.Actions[:next])
	if next == 0 {
		actual = fmt.Sprintf("%s not found", a.Actions[0])
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("actions in order: %v", a.Actions),
		Actual:   actual,
		Trace:    trace,
	}
}

// assertTraceCount checks the action appears exactly Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Action == a.Action {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%s dispatched %d time(s)", a.Action, a.Count),
		Actual:   fmt.Sprintf("dispatched %d time(s)", count),
		Trace:    trace,
	}
}

// assertFinalState subset-matches the final state.
func assertFinalState(result *Result, a Assertion) error {
	if err := MatchSubset(normalize(a.Expect), result.State); err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("state matching %v", a.Expect),
			Actual:   err.Error(),
		}
	}
	return nil
}

// MatchSubset reports whether actual contains expected. Both must be in
// JSON form (see normalize). Objects match if every expected key matches;
// arrays must have equal length and match element-wise; numbers compare by
// value.
func MatchSubset(expected, actual any) error {
	return matchAt("$", expected, actual)
}

func matchAt(path string, expected, actual any) error {
	switch want := expected.(type) {
	case map[string]any:
		got, ok := actual.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: expected object, got %s", path, describeValue(actual))
		}
		keys := make([]string, 0, len(want))
		for k := range want {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			child := path + "." + k
			v, present := got[k]
			if !present {
				return fmt.Errorf("%s: missing", child)
			}
			if err := matchAt(child, want[k], v); err != nil {
				return err
			}
		}
		return nil

	case []any:
		got, ok := actual.([]any)
		if !ok {
			return fmt.Errorf("%s: expected array, got %s", path, describeValue(actual))
		}
		if len(want) != len(got) {
			return fmt.Errorf("%s: expected %d element(s), got %d", path, len(want), len(got))
		}
		for i := range want {
			if err := matchAt(fmt.Sprintf("%s[%d]", path, i), want[i], got[i]); err != nil {
				return err
			}
		}
		return nil

	case json.Number:
		got, ok := actual.(json.Number)
		if !ok || !numbersEqual(want, got) {
			return fmt.Errorf("%s: expected %s, got %s", path, want, describeValue(actual))
		}
		return nil

	default:
		if expected != actual {
			return fmt.Errorf("%s: expected %s, got %s", path, describeValue(expected), describeValue(actual))
		}
		return nil
	}
}

func numbersEqual(a, b json.Number) bool {
	if a == b {
		return true
	}
	fa, errA := a.Float64()
	fb, errB := b.Float64()
	return errA == nil && errB == nil && fa == fb
}

func describeValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", v)
	case map[string]any:
		return "object"
	case []any:
		return fmt.Sprintf("array of %d", len(v))
	default:
		return fmt.Sprint(v)
	}
}
