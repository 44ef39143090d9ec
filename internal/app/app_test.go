package app

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/lakeconsole/internal/model"
	"github.com/nhle/lakeconsole/internal/ui"
	"github.com/nhle/lakeconsole/internal/ui/command"
	pipelineview "github.com/nhle/lakeconsole/internal/ui/pipeline"
	"github.com/nhle/lakeconsole/internal/ui/server"
	"github.com/nhle/lakeconsole/tests/testutil"
)

func newTestApp(t *testing.T, opts Options) Model {
	t.Helper()
	if opts.Config.Server.BaseURL == "" {
		opts.Config.Server.BaseURL = "http://127.0.0.1:1"
	}
	opts.Logger = zerolog.Nop()
	m := New(opts)
	t.Cleanup(m.poller.Stop)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestFirstRunOpensServerSetup(t *testing.T) {
	m := newTestApp(t, Options{FirstRun: true})
	assert.Equal(t, ViewServer, m.currentView)

	m, _ = update(t, m, server.ServerDoneMsg{})
	assert.Equal(t, ViewBlueprints, m.currentView)
	assert.False(t, m.firstRun)
}

func TestQuitFromList(t *testing.T) {
	m := newTestApp(t, Options{})

	_, cmd := update(t, m, runes("q"))

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestHelpToggle(t *testing.T) {
	m := newTestApp(t, Options{})

	m, _ = update(t, m, runes("?"))
	assert.Equal(t, ViewHelp, m.currentView)
	assert.Contains(t, m.View(), "DevLake Console")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewBlueprints, m.currentView)
}

func TestCommandPaletteOpensPipeline(t *testing.T) {
	m := newTestApp(t, Options{})

	m, _ = update(t, m, runes(":"))
	require.Equal(t, ViewCommand, m.currentView)

	// q is typed into the palette rather than quitting.
	m, cmd := update(t, m, runes("q"))
	if cmd != nil {
		_, quit := cmd().(tea.QuitMsg)
		assert.False(t, quit)
	}

	m, cmd = update(t, m, command.CommandMsg{Name: command.Pipeline, ID: 7})
	assert.Equal(t, ViewPipeline, m.currentView)
	assert.NotNil(t, cmd)
	assert.Equal(t, 7, m.pipelineView.PipelineID())

	m, _ = update(t, m, pipelineview.BackMsg{})
	assert.Equal(t, ViewBlueprints, m.currentView)
}

func TestCommandCancelReturns(t *testing.T) {
	m := newTestApp(t, Options{})
	m, _ = update(t, m, runes(":"))

	m, _ = update(t, m, command.CancelMsg{})

	assert.Equal(t, ViewBlueprints, m.currentView)
}

func TestAuthErrorOpensServerSetup(t *testing.T) {
	m := newTestApp(t, Options{})

	m, _ = update(t, m, ui.AuthRequiredMsg{})

	assert.Equal(t, ViewServer, m.currentView)
	assert.Contains(t, m.keyHints(), "API key rejected")

	m, _ = update(t, m, server.ServerDoneMsg{})
	assert.Equal(t, ViewBlueprints, m.currentView)
}

func TestServerSavedSwitchesBackend(t *testing.T) {
	m := newTestApp(t, Options{})
	cfg := m.cfg
	cfg.Server.BaseURL = "http://devlake.internal:8080"

	m, cmd := update(t, m, server.ServerSavedMsg{Config: cfg, Token: "secret"})

	assert.NotNil(t, cmd)
	assert.Equal(t, ViewBlueprints, m.currentView)
	assert.Equal(t, "http://devlake.internal:8080", m.client.BaseURL())
	assert.Equal(t, "devlake.internal:8080", m.session().Host())
}

func TestMarkBlueprintRead(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()
	for _, bpID := range []int{1, 1, 3} {
		require.NoError(t, st.CreateNotification(ctx, model.Notification{
			BlueprintID: bpID,
			Status:      model.PipelineCompleted,
		}))
	}

	m := newTestApp(t, Options{Store: st})

	msg := m.fetchUnreadCount()()
	assert.Equal(t, unreadCountMsg{count: 3}, msg)

	msg = m.markBlueprintRead(1)()
	assert.Equal(t, unreadCountMsg{count: 1}, msg)

	m, _ = update(t, m, msg)
	assert.Contains(t, m.View(), "[1 new]")

	assert.Equal(t, unreadCountMsg{count: 0}, m.markAllRead()())
}
