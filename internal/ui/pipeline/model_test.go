package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/lakeconsole/internal/devlake"
	"github.com/nhle/lakeconsole/internal/keys"
	"github.com/nhle/lakeconsole/internal/model"
	"github.com/nhle/lakeconsole/internal/ui"
)

type fakeAPI struct {
	pipeline model.Pipeline
	tasks    []model.PipelineTask
	err      error
	calls    int
}

func (f *fakeAPI) GetPipeline(_ context.Context, id int) (*model.Pipeline, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p := f.pipeline
	p.ID = id
	return &p, nil
}

func (f *fakeAPI) ListPipelineTasks(_ context.Context, _ int) (*model.PipelineTaskList, error) {
	return &model.PipelineTaskList{Tasks: f.tasks, Count: len(f.tasks)}, nil
}

func newTestModel(api *fakeAPI) Model {
	m := New(api, keys.DefaultKeyMap(), 100, 40)
	m.now = func() time.Time { return time.Date(2024, time.March, 14, 10, 30, 0, 0, time.UTC) }
	return m
}

func TestLoadRendersPipelineAndTasks(t *testing.T) {
	began := time.Date(2024, time.March, 14, 10, 0, 0, 0, time.UTC)
	api := &fakeAPI{
		pipeline: model.Pipeline{BlueprintID: 3, Status: model.PipelineCompleted, FinishedTasks: 2, TotalTasks: 2, BeganAt: &began},
		tasks: []model.PipelineTask{
			{ID: 1, Plugin: "github", Status: model.PipelineCompleted, Progress: 1},
			{ID: 2, Plugin: "dora", Status: model.PipelineCompleted, Progress: 1},
		},
	}
	m := newTestModel(api)
	m.Open(12)

	m, cmd := m.Update(m.load()())

	assert.Nil(t, cmd)
	assert.False(t, m.loading)
	content := m.renderContent()
	assert.Contains(t, content, "Pipeline #12")
	assert.Contains(t, content, "Succeeded")
	assert.Contains(t, content, "Tasks (2)")
	assert.Contains(t, content, "github")
	assert.Contains(t, content, "30m0s")
}

func TestRunningPipelineSchedulesRefresh(t *testing.T) {
	api := &fakeAPI{pipeline: model.Pipeline{Status: model.PipelineRunning}}
	m := newTestModel(api)
	m.Open(12)

	m, cmd := m.Update(m.load()())

	assert.NotNil(t, cmd)
	_, cmd = m.Update(tickMsg{gen: m.gen})
	require.NotNil(t, cmd)
	_, ok := cmd().(loadedMsg)
	assert.True(t, ok)
}

func TestStaleTickIgnoredAfterBack(t *testing.T) {
	api := &fakeAPI{pipeline: model.Pipeline{Status: model.PipelineRunning}}
	m := newTestModel(api)
	m.Open(12)
	gen := m.gen

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	_, ok := cmd().(BackMsg)
	assert.True(t, ok)

	_, cmd = m.Update(tickMsg{gen: gen})
	assert.Nil(t, cmd)
}

func TestLoadErrorShown(t *testing.T) {
	api := &fakeAPI{err: errors.New("boom")}
	m := newTestModel(api)
	m.Open(12)

	m, _ = m.Update(m.load()())

	assert.Contains(t, m.View(), "Error loading pipeline: boom")
}

func TestAuthErrorRequestsLogin(t *testing.T) {
	api := &fakeAPI{err: &devlake.APIError{Status: 401, Message: "unauthorized"}}
	m := newTestModel(api)
	m.Open(12)

	_, cmd := m.Update(m.load()())

	require.NotNil(t, cmd)
	_, ok := cmd().(ui.AuthRequiredMsg)
	assert.True(t, ok)
}
