package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/relay/internal/trace"
)

// TraceSnapshot captures the trace of a scenario run.
// It is serialized as canonical JSON for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
	State        any          `json:"state"`
}

// Snapshot returns the canonical JSON of a result's trace and final state.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	return trace.Canonical(TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		State:        result.State,
	})
}

// RunWithGolden executes a scenario and compares the trace against a golden
// file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run the test with -update.
//
// The scenario's own failures are reported through t. Returns an error if
// the scenario cannot be run.
func RunWithGolden[S, A, D any](t *testing.T, scenario *Scenario, feature Feature[S, A, D], opts ...Option) error {
	t.Helper()

	result, err := Run(scenario, feature, opts...)
	if err != nil {
		return err
	}
	for _, e := range result.Errors {
		t.Errorf("%s: %s", scenario.Name, e)
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares a result's trace against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snapshot)

	return nil
}
