package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindScenarios(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755))

	paths, err := FindScenarios(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yml"), filepath.Join(dir, "b.yaml")}, paths)
}

func TestRunDir(t *testing.T) {
	suite, err := RunDir("testdata/scenarios", counterFeature())
	require.NoError(t, err)

	assert.Equal(t, 2, suite.Total)
	assert.Equal(t, 1, suite.Passed)
	assert.Equal(t, 1, suite.Failed)
	require.Len(t, suite.Failures, 1)
	assert.Equal(t, "counter_broken", suite.Failures[0].Scenario)
	assert.Contains(t, suite.Failures[0].Errors[0], "$.count: expected 7, got 1")
	assert.True(t, suite.Results["counter_basic"].Pass)
}

func TestRunDir_LoadFailuresAndDuplicates(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("a.yaml", "name: same\ndescription: d\nsteps: [{send: {type: increment}}]\n")
	write("b.yaml", "name: same\ndescription: d\nsteps: [{send: {type: increment}}]\n")
	write("c.yaml", "name: broken\n")

	suite, err := RunDir(dir, counterFeature())
	require.NoError(t, err)

	assert.Equal(t, 3, suite.Total)
	assert.Equal(t, 1, suite.Passed)
	require.Len(t, suite.Failures, 2)
	assert.Contains(t, suite.Failures[0].Errors[0], "duplicate scenario name")
	assert.Equal(t, "c", suite.Failures[1].Scenario)
}

func TestRunDir_MissingDir(t *testing.T) {
	_, err := RunDir(filepath.Join(t.TempDir(), "missing"), counterFeature())
	assert.Error(t, err)
}
