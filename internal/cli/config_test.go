package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCommand_Defaults(t *testing.T) {
	out, _, err := execute(t, "config")
	require.NoError(t, err)

	assert.Contains(t, out, "max_history_size: 1000")
	assert.Contains(t, out, "receive_timeout: 1s")
	assert.Contains(t, out, "level: info")
}

func TestConfigCommand_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "relay.yaml", "store:\n  max_history_size: 10\ntrace:\n  database: ./trace.db\n")

	out, _, err := execute(t, "config", "--config", path)
	require.NoError(t, err)

	assert.Contains(t, out, "max_history_size: 10")
	assert.Contains(t, out, "database: ./trace.db")
}

func TestConfigCommand_VerboseSetsDebug(t *testing.T) {
	out, _, err := execute(t, "config", "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "level: debug")
}

func TestConfigCommand_JSON(t *testing.T) {
	out, _, err := execute(t, "config", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Log struct {
				Format string `json:"format"`
			} `json:"log"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "text", resp.Data.Log.Format)
}
