package blueprints

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/lakeconsole/internal/cronpolicy"
	"github.com/nhle/lakeconsole/internal/devlake"
	"github.com/nhle/lakeconsole/internal/keys"
	"github.com/nhle/lakeconsole/internal/model"
	"github.com/nhle/lakeconsole/internal/ui"
)

type fakeAPI struct {
	filters []devlake.BlueprintFilter
	list    *model.BlueprintList
	err     error
	created []model.Blueprint
}

func (f *fakeAPI) ListBlueprints(_ context.Context, flt devlake.BlueprintFilter) (*model.BlueprintList, error) {
	f.filters = append(f.filters, flt)
	return f.list, f.err
}

func (f *fakeAPI) CreateBlueprint(_ context.Context, bp model.Blueprint) (*model.Blueprint, error) {
	f.created = append(f.created, bp)
	bp.ID = 42
	return &bp, nil
}

var testNow = time.Date(2024, time.March, 14, 10, 30, 0, 0, time.UTC)

func newTestModel(api *fakeAPI) Model {
	m := New(api, keys.DefaultKeyMap(), 20, 120, 40)
	m.now = func() time.Time { return testNow }
	return m
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestRows(t *testing.T) {
	bps := []model.Blueprint{
		{
			Name: "normal", Mode: model.ModeNormal, Enable: true, CronConfig: "0 0 * * *",
			Connections: []model.BlueprintConnection{
				{PluginName: "github", ConnectionID: 1},
				{PluginName: "jira", ConnectionID: 2},
			},
			ProjectName: "proj",
		},
		{Name: "empty", Mode: model.ModeNormal, IsManual: true, CronConfig: "0 0 * * *"},
		{Name: "adv", Mode: model.ModeAdvanced, CronConfig: "*/5 * * * *"},
		{Name: "broken", Mode: model.ModeNormal, CronConfig: "nope"},
	}

	rows := Rows(bps, testNow)

	require.Len(t, rows, 4)
	assert.Equal(t, []string{"normal", "github-1, jira-2", "Daily", "2024-03-15 00:00", "proj", "Enabled"}, []string(rows[0]))
	assert.Equal(t, []string{"empty", "N/A", cronpolicy.LabelManual, cronpolicy.LabelManual, "N/A", "Disabled"}, []string(rows[1]))
	assert.Equal(t, "Advanced Mode", rows[2][1])
	assert.Equal(t, cronpolicy.LabelCustom, rows[2][2])
	assert.Equal(t, "2024-03-14 10:35", rows[2][3])
	assert.Equal(t, "Invalid cron", rows[3][3])
}

func TestInitLoadsFirstPage(t *testing.T) {
	api := &fakeAPI{list: &model.BlueprintList{
		Blueprints: []model.Blueprint{{ID: 7, Name: "bp"}},
		Count:      1,
	}}
	m := newTestModel(api)

	m, _ = m.Update(m.Init()())

	require.Len(t, api.filters, 1)
	assert.Equal(t, devlake.BlueprintFilter{Type: "ALL", Page: 1, PageSize: 20}, api.filters[0])
	bp, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, 7, bp.ID)
}

func TestTypeFilterCyclesAndResetsPage(t *testing.T) {
	api := &fakeAPI{list: &model.BlueprintList{Count: 100}}
	m := newTestModel(api)
	m.count = 100
	m.page = 3

	m, cmd := m.Update(keyMsg("f"))
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, "HOURLY", api.filters[0].Type)
	assert.Equal(t, 1, api.filters[0].Page)

	for i := 0; i < len(TypeFilters)-1; i++ {
		m, _ = m.Update(keyMsg("f"))
	}
	assert.Equal(t, "ALL", m.Filter().Type)
}

func TestPaging(t *testing.T) {
	api := &fakeAPI{list: &model.BlueprintList{Count: 45}}
	m := newTestModel(api)
	m.count = 45

	m, _ = m.Update(keyMsg("]"))
	m, _ = m.Update(keyMsg("]"))
	assert.Equal(t, 3, m.Filter().Page)

	m, cmd := m.Update(keyMsg("]"))
	assert.Nil(t, cmd)
	assert.Equal(t, 3, m.Filter().Page)

	m, _ = m.Update(keyMsg("["))
	assert.Equal(t, 2, m.Filter().Page)
}

func TestStaleResponseDropped(t *testing.T) {
	api := &fakeAPI{list: &model.BlueprintList{Count: 0}}
	m := newTestModel(api)

	first := m.Reload()
	second := m.Reload()

	api.list = &model.BlueprintList{Blueprints: []model.Blueprint{{ID: 2}}, Count: 1}
	m, _ = m.Update(second())
	api.list = &model.BlueprintList{Blueprints: []model.Blueprint{{ID: 1}}, Count: 1}
	m, _ = m.Update(first())

	bp, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, 2, bp.ID)
}

func TestLoadAuthErrorRequestsSetup(t *testing.T) {
	api := &fakeAPI{err: &devlake.APIError{Status: 401, Message: "unauthorized"}}
	m := newTestModel(api)

	m, cmd := m.Update(m.Init()())

	require.NotNil(t, cmd)
	msg, ok := cmd().(ui.AuthRequiredMsg)
	require.True(t, ok)
	assert.True(t, devlake.IsAuthError(msg.Err))
	assert.Contains(t, m.View(), "Error loading blueprints")
}

func TestCreatedBlueprintOpensDetail(t *testing.T) {
	api := &fakeAPI{list: &model.BlueprintList{}}
	m := newTestModel(api)

	payload := model.Blueprint{Name: "new", Mode: model.ModeNormal}
	msg := m.create(payload)()

	m, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	require.Len(t, api.created, 1)
	assert.Equal(t, "new", api.created[0].Name)
	assert.Equal(t, ModeList, m.Mode())
}

func TestCreateErrorShown(t *testing.T) {
	m := newTestModel(&fakeAPI{})

	m, _ = m.Update(blueprintCreatedInternalMsg{err: errors.New("boom")})

	assert.Contains(t, m.View(), "Error creating blueprint: boom")
}
