package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marshalToMap(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestBlueprintJSONNormalMode(t *testing.T) {
	bp := Blueprint{Name: "n", Mode: ModeNormal, Plan: json.RawMessage(`[[{"plugin":"x"}]]`)}

	body := marshalToMap(t, bp)

	assert.Equal(t, []any{}, body["connections"])
	assert.NotContains(t, body, "plan")
	assert.NotContains(t, body, "timeAfter")
}

func TestBlueprintJSONAdvancedMode(t *testing.T) {
	after := time.Now()
	bp := Blueprint{
		Name:        "a",
		Mode:        ModeAdvanced,
		TimeAfter:   &after,
		Connections: []BlueprintConnection{{PluginName: "jira", ConnectionID: 1}},
	}

	body := marshalToMap(t, bp)

	assert.Equal(t, []any{[]any{}}, body["plan"])
	assert.NotContains(t, body, "connections")
	assert.NotContains(t, body, "timeAfter")
}

func TestBlueprintDecodesBackendShape(t *testing.T) {
	raw := `{"id":3,"name":"b","mode":"NORMAL","enable":true,"isManual":false,"cronConfig":"0 0 * * *",
		"skipOnFail":true,"timeAfter":"2023-09-01T00:00:00Z",
		"connections":[{"pluginName":"github","connectionId":2,"scopes":[{"scopeId":"384111310"}]}],
		"projectName":"p"}`

	var bp Blueprint
	require.NoError(t, json.Unmarshal([]byte(raw), &bp))

	assert.Equal(t, 3, bp.ID)
	assert.True(t, bp.BelongsToProject())
	conn, ok := bp.FindConnection("github", 2)
	require.True(t, ok)
	assert.Equal(t, "github-2", conn.Key())
	assert.Equal(t, "384111310", conn.Scopes[0].ScopeID)
}

func TestBlueprintCloneIsDeep(t *testing.T) {
	after := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bp := Blueprint{
		TimeAfter:   &after,
		Connections: []BlueprintConnection{{PluginName: "jira", ConnectionID: 1, Scopes: []BlueprintScope{{ScopeID: "1"}}}},
		Labels:      []string{"x"},
	}

	c := bp.Clone()
	c.Connections[0].Scopes[0].ScopeID = "changed"
	*c.TimeAfter = after.Add(time.Hour)
	c.Labels[0] = "y"

	assert.Equal(t, "1", bp.Connections[0].Scopes[0].ScopeID)
	assert.Equal(t, after, *bp.TimeAfter)
	assert.Equal(t, "x", bp.Labels[0])
}

func TestParseConnectionKey(t *testing.T) {
	plugin, id, err := ParseConnectionKey("github-12")
	require.NoError(t, err)
	assert.Equal(t, "github", plugin)
	assert.Equal(t, 12, id)

	for _, bad := range []string{"github", "-1", "github-", "github-x"} {
		_, _, err := ParseConnectionKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestAllTerminal(t *testing.T) {
	assert.True(t, AllTerminal(nil))
	assert.True(t, AllTerminal([]Pipeline{{Status: PipelineCompleted}, {Status: PipelineCancelled}}))
	assert.False(t, AllTerminal([]Pipeline{{Status: PipelineCompleted}, {Status: PipelineRerun}}))
}

func TestPipelineDuration(t *testing.T) {
	began := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	finished := began.Add(90 * time.Second)

	assert.Equal(t, time.Duration(0), Pipeline{}.Duration(began))
	assert.Equal(t, 90*time.Second, Pipeline{BeganAt: &began, FinishedAt: &finished}.Duration(began.Add(time.Hour)))
	assert.Equal(t, time.Minute, Pipeline{BeganAt: &began}.Duration(began.Add(time.Minute)))
}
