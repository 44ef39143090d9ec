package project

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/lakeconsole/internal/keys"
	"github.com/nhle/lakeconsole/internal/model"
)

type fakeAPI struct {
	project   model.Project
	updateErr error
	updates   map[string]model.Project
	deleted   []string
}

func (f *fakeAPI) GetProject(_ context.Context, name string) (*model.Project, error) {
	p := f.project
	p.Name = name
	return &p, nil
}

func (f *fakeAPI) UpdateProject(_ context.Context, name string, p model.Project) (*model.Project, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.updates == nil {
		f.updates = make(map[string]model.Project)
	}
	f.updates[name] = p
	return &p, nil
}

func (f *fakeAPI) DeleteProject(_ context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	return nil
}

func openProject(t *testing.T, api *fakeAPI, name string) Model {
	t.Helper()
	m := New(api, keys.DefaultKeyMap(), 100, 40)
	cmd := m.Open(name)
	m, _ = m.Update(cmd())
	require.NotNil(t, m.project)
	return m
}

func TestOpenShowsProject(t *testing.T) {
	api := &fakeAPI{project: model.Project{
		Metrics: []model.ProjectMetric{{PluginName: model.DoraPlugin, Enable: true}},
	}}
	m := openProject(t, api, "team/a")

	view := m.View()
	assert.Contains(t, view, "team/a")
	assert.Contains(t, view, "Enabled")
}

func TestRenameAndToggleDora(t *testing.T) {
	api := &fakeAPI{project: model.Project{Description: "desc"}}
	m := openProject(t, api, "old")
	m.mode = modeForm
	m.fb.name = "new-name"
	m.fb.dora = true

	m, cmd := m.saveProject()
	require.NotNil(t, cmd)
	m, cmd = m.Update(cmd())

	sent, ok := api.updates["old"]
	require.True(t, ok)
	assert.Equal(t, "new-name", sent.Name)
	assert.True(t, sent.MetricEnabled(model.DoraPlugin))
	assert.Equal(t, modeView, m.mode)
	assert.Equal(t, "new-name", m.name)
	require.NotNil(t, cmd)
	assert.Equal(t, ProjectChangedMsg{Name: "new-name"}, cmd())
}

func TestInvalidNameNotSent(t *testing.T) {
	api := &fakeAPI{}
	m := openProject(t, api, "old")
	m.mode = modeForm
	m.fb.name = "bad name!"

	m, _ = m.saveProject()

	assert.Empty(t, api.updates)
	assert.Equal(t, modeForm, m.mode)
	assert.Contains(t, m.statusMsg, "project name may only contain")
}

func TestSaveFailureReopensForm(t *testing.T) {
	api := &fakeAPI{updateErr: errors.New("name taken")}
	m := openProject(t, api, "old")
	m.mode = modeForm
	m.fb.name = "other"

	m, cmd := m.saveProject()
	m, _ = m.Update(cmd())

	assert.Equal(t, modeForm, m.mode)
	assert.Equal(t, "other", m.fb.name)
	assert.Equal(t, "Error saving project: name taken", m.statusMsg)
}

func TestDeleteProject(t *testing.T) {
	api := &fakeAPI{}
	m := openProject(t, api, "gone")
	m.mode = modeConfirmDelete

	cmd := m.deleteProject()
	_, cmd = m.Update(cmd())

	assert.Equal(t, []string{"gone"}, api.deleted)
	require.NotNil(t, cmd)
	assert.Equal(t, ProjectChangedMsg{Name: "gone", Deleted: true}, cmd())
}
