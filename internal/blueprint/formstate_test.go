package blueprint

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/lakeconsole/internal/model"
)

func normalBlueprint() model.Blueprint {
	after := time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC)
	return model.Blueprint{
		ID:         7,
		Name:       "team-a",
		Mode:       model.ModeNormal,
		Enable:     true,
		CronConfig: "0 0 * * *",
		SkipOnFail: true,
		TimeAfter:  &after,
		Connections: []model.BlueprintConnection{
			{PluginName: "jira", ConnectionID: 1, Scopes: []model.BlueprintScope{{ScopeID: "10"}}},
			{PluginName: "github", ConnectionID: 2, Scopes: []model.BlueprintScope{{ScopeID: "384111310"}}},
		},
	}
}

func TestRemoveConnection(t *testing.T) {
	src := normalBlueprint()
	fs := NewFormState(src)

	got, adv := fs.RemoveConnection("jira", 1)

	require.Len(t, got.Connections, 1)
	assert.Equal(t, "github", got.Connections[0].PluginName)
	assert.Equal(t, 2, got.Connections[0].ConnectionID)
	assert.Equal(t, RecollectAdvisory, adv)
	assert.NotEmpty(t, adv.Message())

	// the loaded blueprint is untouched
	assert.Len(t, src.Connections, 2)
}

func TestRemoveConnectionAbsent(t *testing.T) {
	fs := NewFormState(normalBlueprint())

	got, adv := fs.RemoveConnection("jira", 99)

	assert.Len(t, got.Connections, 2)
	assert.Equal(t, NoAdvisory, adv)
	assert.Empty(t, adv.Message())
}

func TestAddConnectionRejectsDuplicate(t *testing.T) {
	fs := NewFormState(normalBlueprint())

	err := fs.AddConnection(model.BlueprintConnection{PluginName: "jira", ConnectionID: 1})
	assert.True(t, errors.Is(err, ErrDuplicateConnection))

	require.NoError(t, fs.AddConnection(model.BlueprintConnection{PluginName: "gitlab", ConnectionID: 3}))
	assert.Len(t, fs.Blueprint().Connections, 3)
}

func TestSetScopes(t *testing.T) {
	fs := NewFormState(normalBlueprint())

	_, adv := fs.SetScopes("github", 2, []model.BlueprintScope{{ScopeID: "384111310"}})
	assert.Equal(t, NoAdvisory, adv)

	got, adv := fs.SetScopes("github", 2, []model.BlueprintScope{{ScopeID: "1"}, {ScopeID: "2"}})
	assert.Equal(t, RecollectAdvisory, adv)
	conn, ok := got.FindConnection("github", 2)
	require.True(t, ok)
	assert.Len(t, conn.Scopes, 2)

	_, adv = fs.SetScopes("github", 2, []model.BlueprintScope{{ScopeID: "1"}, {ScopeID: "1"}})
	assert.Equal(t, RecollectAdvisory, adv, "dropping scope 2 behind a duplicate is still a change")

	_, adv = fs.SetScopes("github", 2, []model.BlueprintScope{{ScopeID: "1"}})
	assert.Equal(t, NoAdvisory, adv)
}

func TestSetModeToAdvanced(t *testing.T) {
	fs := NewFormState(normalBlueprint())

	require.NoError(t, fs.SetMode(model.ModeAdvanced))

	bp := fs.Blueprint()
	assert.Equal(t, model.ModeAdvanced, bp.Mode)
	assert.JSONEq(t, `[[]]`, string(bp.Plan))
	assert.Nil(t, bp.Connections)
	assert.Nil(t, bp.TimeAfter)
}

func TestSetModeBackToNormalRejected(t *testing.T) {
	fs := NewFormState(normalBlueprint())
	require.NoError(t, fs.SetMode(model.ModeAdvanced))

	err := fs.SetMode(model.ModeNormal)

	assert.ErrorIs(t, err, ErrIrreversibleMode)
	assert.Equal(t, model.ModeAdvanced, fs.Blueprint().Mode)
}

func TestSetPolicy(t *testing.T) {
	fs := NewFormState(normalBlueprint())

	err := fs.SetPolicy(false, "61 * * * *", true, nil)
	assert.ErrorIs(t, err, ErrInvalidCron)
	assert.Equal(t, "0 0 * * *", fs.Blueprint().CronConfig)

	require.NoError(t, fs.SetPolicy(false, "30  6 * * 7", false, nil))
	assert.Equal(t, "30 6 * * 0", fs.Blueprint().CronConfig)

	// manual blueprints keep whatever expression they had
	require.NoError(t, fs.SetPolicy(true, "not a cron", false, nil))
	bp := fs.Blueprint()
	assert.True(t, bp.IsManual)
	assert.False(t, bp.SkipOnFail)
	assert.Nil(t, bp.TimeAfter)
}

func TestSetPlanJSON(t *testing.T) {
	fs := NewFormState(model.Blueprint{Name: "adv", Mode: model.ModeAdvanced})

	assert.ErrorIs(t, fs.SetPlanJSON(`{"plugin":"github"}`), ErrInvalidPlan)
	assert.ErrorIs(t, fs.SetPlanJSON(`[{"plugin":"github"}]`), ErrInvalidPlan)
	assert.ErrorIs(t, fs.SetPlanJSON(`[[`), ErrInvalidPlan)
	assert.ErrorIs(t, fs.SetPlanJSON(`null`), ErrInvalidPlan)
	assert.ErrorIs(t, fs.SetPlanJSON(`[null]`), ErrInvalidPlan)
	assert.ErrorIs(t, fs.SetPlanJSON(`[[], null]`), ErrInvalidPlan)

	require.NoError(t, fs.SetPlanJSON("[\n  [ {\"plugin\": \"github\"} ]\n]"))
	assert.Equal(t, `[[{"plugin":"github"}]]`, string(fs.Blueprint().Plan))
}

func TestValidate(t *testing.T) {
	fs := NewFormState(normalBlueprint())
	require.NoError(t, fs.Validate())

	fs.bp.Name = "  "
	assert.ErrorIs(t, fs.Validate(), ErrNameRequired)

	fs = NewFormState(normalBlueprint())
	fs.bp.CronConfig = "* * *"
	assert.ErrorIs(t, fs.Validate(), ErrInvalidCron)

	fs.bp.IsManual = true
	assert.NoError(t, fs.Validate())
}

func TestSnapshotRestore(t *testing.T) {
	fs := NewFormState(normalBlueprint())
	snap := fs.Snapshot()

	fs.RemoveConnection("jira", 1)
	require.NoError(t, fs.SetName("renamed"))
	fs.Restore(snap)

	bp := fs.Blueprint()
	assert.Equal(t, "team-a", bp.Name)
	assert.Len(t, bp.Connections, 2)
}

func TestToUpdatePayloadAdvanced(t *testing.T) {
	fs := NewFormState(normalBlueprint())
	require.NoError(t, fs.SetMode(model.ModeAdvanced))

	data, err := json.Marshal(fs.ToUpdatePayload())
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "ADVANCED", body["mode"])
	assert.Equal(t, []any{[]any{}}, body["plan"])
	assert.NotContains(t, body, "connections")
	assert.NotContains(t, body, "timeAfter")
}

func TestToUpdatePayloadNormal(t *testing.T) {
	fs := NewFormState(normalBlueprint())
	fs.RemoveConnection("jira", 1)
	fs.RemoveConnection("github", 2)

	data, err := json.Marshal(fs.ToUpdatePayload())
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, []any{}, body["connections"])
	assert.Equal(t, "2023-09-01T00:00:00Z", body["timeAfter"])
	assert.NotContains(t, body, "plan")
	assert.Equal(t, float64(7), body["id"])
}
