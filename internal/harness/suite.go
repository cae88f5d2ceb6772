package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	Total    int                `json:"total"`
	Passed   int                `json:"passed"`
	Failed   int                `json:"failed"`
	Results  map[string]*Result `json:"-"`
	Failures []ScenarioFailure  `json:"failures,omitempty"`
}

// ScenarioFailure is one failed scenario.
type ScenarioFailure struct {
	Scenario string   `json:"scenario"`
	Path     string   `json:"path"`
	Errors   []string `json:"errors"`
}

// FindScenarios returns the .yaml and .yml files directly under dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// RunDir runs every scenario in dir. A scenario that cannot be loaded or
// decoded counts as failed; the rest still run. Scenario names must be
// unique across the directory.
func RunDir[S, A, D any](dir string, feature Feature[S, A, D], opts ...Option) (*SuiteResult, error) {
	paths, err := FindScenarios(dir)
	if err != nil {
		return nil, err
	}

	suite := &SuiteResult{Results: make(map[string]*Result)}
	seen := make(map[string]string)

	for _, path := range paths {
		suite.Total++

		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		fail := func(errs ...string) {
			suite.Failed++
			suite.Failures = append(suite.Failures, ScenarioFailure{Scenario: name, Path: path, Errors: errs})
		}

		scenario, err := LoadScenario(path)
		if err != nil {
			fail(err.Error())
			continue
		}
		name = scenario.Name
		if prev, dup := seen[name]; dup {
			fail(fmt.Sprintf("duplicate scenario name %q (also in %s)", name, prev))
			continue
		}
		seen[name] = path

		result, err := Run(scenario, feature, opts...)
		if err != nil {
			fail(err.Error())
			continue
		}
		suite.Results[name] = result
		if !result.Pass {
			fail(result.Errors...)
			continue
		}
		suite.Passed++
	}

	return suite, nil
}
