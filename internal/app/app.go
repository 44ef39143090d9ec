package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nhle/lakeconsole/internal/devlake"
	"github.com/nhle/lakeconsole/internal/keys"
	"github.com/nhle/lakeconsole/internal/model"
	"github.com/nhle/lakeconsole/internal/store"
	appsync "github.com/nhle/lakeconsole/internal/sync"
	"github.com/nhle/lakeconsole/internal/ui"
	"github.com/nhle/lakeconsole/internal/ui/blueprintdetail"
	"github.com/nhle/lakeconsole/internal/ui/blueprints"
	"github.com/nhle/lakeconsole/internal/ui/command"
	helpview "github.com/nhle/lakeconsole/internal/ui/help"
	pipelineview "github.com/nhle/lakeconsole/internal/ui/pipeline"
	projectview "github.com/nhle/lakeconsole/internal/ui/project"
	"github.com/nhle/lakeconsole/internal/ui/server"
	"github.com/nhle/lakeconsole/internal/ui/transformation"
)

// unreadCountMsg carries the number of unread notifications to the UI.
type unreadCountMsg struct {
	count int
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewBlueprints ViewState = iota
	ViewBlueprint
	ViewPipeline
	ViewTransformation
	ViewProject
	ViewServer
	ViewHelp
	ViewCommand
)

// Options are the dependencies the console is started with.
type Options struct {
	Config     model.AppConfig
	ConfigPath string
	Token      string

	// Store caches pipelines and notifications. It may be nil.
	Store  store.Store
	Logger zerolog.Logger

	// FirstRun opens server setup before anything is loaded.
	FirstRun bool
}

// Model is the root Bubble Tea model that manages view routing, layout and
// the shared backend client.
type Model struct {
	currentView  ViewState
	previousView ViewState
	frame        ui.Frame
	keys         *keys.KeyMap

	cfg        model.AppConfig
	configPath string
	token      string
	client     *devlake.Client
	store      store.Store
	poller     *appsync.PipelinePoller
	log        zerolog.Logger
	firstRun   bool

	blueprintList  blueprints.Model
	detail         blueprintdetail.Model
	pipelineView   pipelineview.Model
	transformView  transformation.Model
	projectView    projectview.Model
	serverView     server.Model
	helpView       helpview.Model
	commandView    command.Model
	ready          bool
	unreadCount    int
	authMessage    string
	pipelineStatus string
}

// New creates the root model. The backend client and the pipeline poller
// are built from opts.Config.
func New(opts Options) Model {
	k := keys.DefaultKeyMap()
	client := NewClient(opts.Config, opts.Token, opts.Logger)
	interval := time.Duration(opts.Config.Poll.IntervalSec) * time.Second

	m := Model{
		currentView: ViewBlueprints,
		keys:        k,
		cfg:         opts.Config,
		configPath:  opts.ConfigPath,
		token:       opts.Token,
		client:      client,
		store:       opts.Store,
		poller:      appsync.New(client, opts.Store, interval, opts.Logger),
		log:         opts.Logger.With().Str("component", "app").Logger(),
		firstRun:    opts.FirstRun,
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
	}
	m.buildViews(80, 24)
	m.serverView = server.New(m.cfg, m.configPath, m.token, k, 80, 24)
	if opts.FirstRun {
		m.currentView = ViewServer
	}
	return m
}

// NewClient builds a DevLake client from the server settings.
func NewClient(cfg model.AppConfig, token string, log zerolog.Logger) *devlake.Client {
	return devlake.NewClient(cfg.Server.BaseURL, token,
		devlake.WithTimeout(time.Duration(cfg.Server.TimeoutSec)*time.Second),
		devlake.WithLogger(log),
	)
}

// buildViews creates every view that talks to the backend.
func (m *Model) buildViews(width, height int) {
	m.blueprintList = blueprints.New(m.client, m.keys, m.cfg.Display.PageSize, width, height)
	m.detail = blueprintdetail.New(m.client, m.poller, m.keys, width, height)
	m.pipelineView = pipelineview.New(m.client, m.keys, width, height)
	m.transformView = transformation.New(m.client, m.keys, width, height)
	m.projectView = projectview.New(m.client, m.keys, width, height)
}

// Init loads the blueprint list and starts listening for poll results.
func (m Model) Init() tea.Cmd {
	if m.firstRun {
		return tea.Batch(m.serverView.Init(), m.poller.WaitForNextResult())
	}
	return tea.Batch(
		m.blueprintList.Init(),
		m.poller.WaitForNextResult(),
		m.fetchUnreadCount(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.frame = ui.NewFrame(msg.Width, msg.Height)
		m.ready = true
		w, h := m.frame.Body()
		m.blueprintList.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.pipelineView.SetSize(w, h)
		m.transformView.SetSize(w, h)
		m.projectView.SetSize(w, h)
		m.serverView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case appsync.PipelinesMsg:
		return m.handlePipelines(msg)

	case unreadCountMsg:
		m.unreadCount = msg.count
		return m, nil

	case ui.AuthRequiredMsg:
		m.log.Warn().Err(msg.Err).Msg("backend rejected the API key")
		m.authMessage = "API key rejected, update it to continue"
		cmd := m.openServer()
		return m, cmd

	case server.ServerSavedMsg:
		return m.applyServer(msg)

	case server.ServerDoneMsg:
		if m.firstRun {
			m.firstRun = false
			m.currentView = ViewBlueprints
			return m, tea.Batch(m.blueprintList.Init(), m.fetchUnreadCount())
		}
		m.currentView = m.previousView
		if m.currentView == ViewServer {
			m.currentView = ViewBlueprints
		}
		return m, nil

	case blueprints.SelectedBlueprintMsg:
		return m.openBlueprint(msg.ID)

	case blueprints.BlueprintCreatedMsg:
		return m.openBlueprint(msg.Blueprint.ID)

	case blueprintdetail.BackMsg:
		m.detail.Close()
		m.currentView = ViewBlueprints
		cmd := m.blueprintList.Reload()
		return m, cmd

	case blueprintdetail.BlueprintUpdatedMsg:
		m.log.Debug().Int("blueprint", msg.Blueprint.ID).Msg("blueprint saved")
		return m, nil

	case blueprintdetail.BlueprintDeletedMsg:
		m.poller.Unwatch(msg.ID)
		m.detail.Close()
		m.currentView = ViewBlueprints
		cmd := m.blueprintList.Reload()
		return m, cmd

	case blueprintdetail.OpenPipelineMsg:
		m.currentView = ViewPipeline
		cmd := m.pipelineView.Open(msg.ID)
		return m, cmd

	case pipelineview.BackMsg:
		m.currentView = m.detailOrList()
		return m, nil

	case blueprintdetail.OpenTransformationMsg:
		m.currentView = ViewTransformation
		cmd := m.transformView.Open(transformation.Target{
			Plugin:        msg.Plugin,
			ConnectionID:  msg.ConnectionID,
			ScopeID:       msg.ScopeID,
			ScopeConfigID: msg.ScopeConfigID,
		})
		return m, cmd

	case transformation.BackMsg:
		m.currentView = m.detailOrList()
		return m, nil

	case transformation.SavedMsg:
		m.log.Info().
			Str("plugin", msg.Target.Plugin).
			Int("scopeConfig", msg.Target.ScopeConfigID).
			Msg("transformation saved")
		return m, nil

	case blueprintdetail.OpenProjectMsg:
		m.currentView = ViewProject
		cmd := m.projectView.Open(msg.Name)
		return m, cmd

	case projectview.CloseMsg:
		m.currentView = m.detailOrList()
		return m, nil

	case projectview.ProjectChangedMsg:
		if msg.Deleted {
			m.detail.Close()
			m.currentView = ViewBlueprints
			cmd := m.blueprintList.Reload()
			return m, cmd
		}
		cmds := []tea.Cmd{m.blueprintList.Reload()}
		if m.detail.Active() {
			cmds = append(cmds, m.detail.Open(m.detail.BlueprintID()))
		}
		return m, tea.Batch(cmds...)

	case command.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		m.commandView.Reset()
		return m.executeCommand(msg)

	case tea.KeyMsg:
		if m.capturing() {
			if msg.String() == "ctrl+c" {
				m.poller.Stop()
				return m, tea.Quit
			}
			return m.updateActiveView(msg)
		}

		switch msg.String() {
		case "ctrl+c":
			m.poller.Stop()
			return m, tea.Quit

		case "q":
			if m.currentView == ViewBlueprints {
				m.poller.Stop()
				return m, tea.Quit
			}

		case "esc":
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}

		case "?":
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case ":":
			m.previousView = m.currentView
			m.currentView = ViewCommand
			cmd := m.commandView.Focus()
			return m, cmd

		case "S":
			if m.currentView == ViewBlueprints {
				m.authMessage = ""
				cmd := m.openServer()
				return m, cmd
			}
		}
	}

	cmd := m.updateBackground(msg)
	next, activeCmd := m.updateActiveView(msg)
	return next, tea.Batch(cmd, activeCmd)
}

// capturing reports whether the active view owns every keystroke, so that
// global keys like q and ? reach form inputs.
func (m Model) capturing() bool {
	switch m.currentView {
	case ViewBlueprints:
		return m.blueprintList.Capturing()
	case ViewBlueprint:
		return m.detail.Capturing()
	case ViewTransformation:
		return m.transformView.Capturing()
	case ViewProject:
		return m.projectView.Capturing()
	case ViewServer, ViewCommand:
		return true
	}
	return false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewBlueprints:
		m.blueprintList, cmd = m.blueprintList.Update(msg)
	case ViewBlueprint:
		m.detail, cmd = m.detail.Update(msg)
	case ViewPipeline:
		m.pipelineView, cmd = m.pipelineView.Update(msg)
	case ViewTransformation:
		m.transformView, cmd = m.transformView.Update(msg)
	case ViewProject:
		m.projectView, cmd = m.projectView.Update(msg)
	case ViewServer:
		m.serverView, cmd = m.serverView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// updateBackground delivers results of requests the blueprint detail view
// started before another view was opened on top of it.
func (m *Model) updateBackground(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(tea.KeyMsg); ok {
		return nil
	}
	if m.currentView == ViewBlueprint || !m.detail.Active() || m.detail.Capturing() {
		return nil
	}
	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return cmd
}

// handlePipelines forwards a poll result to the detail view, whether or not
// it is on screen, and keeps listening for the next one.
func (m Model) handlePipelines(msg appsync.PipelinesMsg) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.poller.WaitForNextResult()}

	switch {
	case msg.AuthError:
		m.pipelineStatus = "polling stopped"
		cmds = append(cmds, ui.CheckAuth(msg.Error))
	case msg.Stale:
		m.pipelineStatus = "backend unreachable"
	case msg.Error != nil:
		m.pipelineStatus = "poll failed"
	default:
		m.pipelineStatus = ""
	}

	if len(msg.Finished) > 0 {
		if m.currentView == ViewBlueprint && m.detail.BlueprintID() == msg.BlueprintID {
			cmds = append(cmds, m.markBlueprintRead(msg.BlueprintID))
		} else {
			cmds = append(cmds, m.fetchUnreadCount())
		}
	}

	if m.detail.Active() {
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// openBlueprint shows the detail view of a blueprint and marks its
// notifications as read.
func (m Model) openBlueprint(id int) (tea.Model, tea.Cmd) {
	m.currentView = ViewBlueprint
	cmd := m.detail.Open(id)
	return m, tea.Batch(cmd, m.markBlueprintRead(id))
}

// openServer switches to server setup, prefilled with the current settings.
func (m *Model) openServer() tea.Cmd {
	if m.currentView != ViewServer {
		m.previousView = m.currentView
	}
	m.currentView = ViewServer
	w, h := m.frame.Body()
	m.serverView = server.New(m.cfg, m.configPath, m.token, m.keys, w, h)
	return m.serverView.Init()
}

// applyServer points the console at the newly configured backend. Views
// holding the old client are rebuilt and the poller follows the new one.
func (m Model) applyServer(msg server.ServerSavedMsg) (tea.Model, tea.Cmd) {
	m.cfg = msg.Config
	m.token = msg.Token
	m.authMessage = ""
	m.firstRun = false
	m.client = NewClient(m.cfg, m.token, m.log)
	m.poller.SetSource(m.client)
	m.log.Info().Str("baseURL", m.cfg.Server.BaseURL).Msg("server configuration changed")

	m.detail.Close()
	m.buildViews(m.frame.Body())
	m.currentView = ViewBlueprints
	return m, tea.Batch(m.blueprintList.Init(), m.fetchUnreadCount())
}

// detailOrList is where secondary views return to.
func (m Model) detailOrList() ViewState {
	if m.detail.Active() {
		return ViewBlueprint
	}
	return ViewBlueprints
}
