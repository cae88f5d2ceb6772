package navigation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestStackAction_JSONUsesKindNames(t *testing.T) {
	action := ElementAt[screen](1, Present(screenAction{Type: "tap"}))

	out, err := json.Marshal(action)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"kind": "element",
		"state": {"Name": "", "Count": 0},
		"index": 1,
		"element": {"kind": "presented", "action": {"Type": "tap"}}
	}`, string(out))

	var back StackAction[screen, screenAction]
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, action, back)
}

func TestStackAction_YAML(t *testing.T) {
	var push StackAction[screen, screenAction]
	err := yaml.Unmarshal([]byte("kind: push\nstate:\n  name: detail\n  count: 2\n"), &push)

	require.NoError(t, err)
	assert.Equal(t, Push[screen, screenAction](screen{Name: "detail", Count: 2}), push)
}

func TestPresentationAction_YAMLDismiss(t *testing.T) {
	var p PresentationAction[DestinationAction[string, screenAction]]
	err := yaml.Unmarshal([]byte("kind: dismissed\n"), &p)

	require.NoError(t, err)
	assert.Equal(t, Dismiss[DestinationAction[string, screenAction]](), p)
}

func TestKinds_RejectUnknownNames(t *testing.T) {
	var pk PresentationKind
	assert.Error(t, pk.UnmarshalText([]byte("shown")))

	var sk StackActionKind
	assert.Error(t, sk.UnmarshalText([]byte("jump")))

	_, err := StackActionKind(99).MarshalText()
	assert.Error(t, err)
}
