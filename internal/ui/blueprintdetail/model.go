package blueprintdetail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nhle/lakeconsole/internal/blueprint"
	"github.com/nhle/lakeconsole/internal/keys"
	"github.com/nhle/lakeconsole/internal/model"
	appsync "github.com/nhle/lakeconsole/internal/sync"
	"github.com/nhle/lakeconsole/internal/ui"
)

// API is the part of the backend the detail view needs.
type API interface {
	GetBlueprint(ctx context.Context, id int) (*model.Blueprint, error)
	UpdateBlueprint(ctx context.Context, bp model.Blueprint) (*model.Blueprint, error)
	DeleteBlueprint(ctx context.Context, id int) error
	TriggerBlueprint(ctx context.Context, id int, opts model.TriggerOptions) (*model.Pipeline, error)
	GetConnection(ctx context.Context, plugin string, id int) (*model.Connection, error)
	GetScope(ctx context.Context, plugin string, connectionID int, scopeID string) (*model.Scope, error)
}

// Watcher starts pipeline polling for a blueprint.
type Watcher interface {
	Watch(blueprintID int)
}

// Panel is one half of the detail view.
type Panel int

const (
	PanelConfiguration Panel = iota
	PanelStatus
)

// DetailMode represents the current state of the detail view.
type DetailMode int

const (
	ModeView          DetailMode = iota // Browsing a panel
	ModeRename                          // Rename dialog
	ModePolicy                          // Sync policy dialog
	ModeAddConnection                   // Add connection dialog
	ModeScopes                          // Scope editor
	ModePlan                            // JSON plan editor
	ModeConfirm                         // Yes/no question
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// BlueprintUpdatedMsg is sent after the backend accepted a change.
type BlueprintUpdatedMsg struct {
	Blueprint model.Blueprint
}

// BlueprintDeletedMsg is sent after the blueprint was deleted.
type BlueprintDeletedMsg struct {
	ID int
}

// OpenPipelineMsg asks the app to show a pipeline.
type OpenPipelineMsg struct {
	ID int
}

// OpenTransformationMsg asks the app to edit a scope config.
type OpenTransformationMsg struct {
	Plugin        string
	ConnectionID  int
	ScopeID       string
	ScopeConfigID int
}

// OpenProjectMsg asks the app to show project settings.
type OpenProjectMsg struct {
	Name string
}

// Internal messages carry the generation of the view that issued them so
// that answers arriving after the view was closed or reloaded are dropped.
type blueprintLoadedMsg struct {
	gen int
	bp  *model.Blueprint
	err error
}

type blueprintSavedMsg struct {
	gen      int
	action   string
	snapshot model.Blueprint
	advisory blueprint.Advisory
	reopen   DetailMode
	bp       *model.Blueprint
	err      error
}

type triggeredMsg struct {
	gen      int
	opts     model.TriggerOptions
	pipeline *model.Pipeline
	err      error
}

type deletedMsg struct {
	gen int
	id  int
	err error
}

type connectionCheckedMsg struct {
	gen  int
	conn model.BlueprintConnection
	err  error
}

type connectionInfoMsg struct {
	gen  int
	key  string
	info connectionInfo
}

// connectionInfo holds display names resolved from the backend.
type connectionInfo struct {
	name   string
	scopes map[string]model.Scope
}

type confirmAction int

const (
	confirmNone confirmAction = iota
	confirmFullRefresh
	confirmDelete
	confirmRemoveConnection
	confirmRecollect
	confirmAdvanced
)

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	name string

	frequency  string
	cron       [5]string
	timeRange  string
	skipOnFail bool

	plugin       string
	connectionID string
	scopeIDs     string

	plan    string
	confirm bool
}

// Model is the blueprint detail view: a configuration panel and a status
// panel over one working copy.
type Model struct {
	mode    DetailMode
	panel   Panel
	api     API
	watcher Watcher
	keys    *keys.KeyMap

	id      int
	gen     int
	fs      *blueprint.FormState
	loading bool
	saving  bool
	loadErr error

	connCursor int
	connInfo   map[string]connectionInfo

	pipelines      []model.Pipeline
	pipeCursor     int
	pipelinesStale bool
	pipelineErr    error

	form          *huh.Form
	fb            *formBindings
	confirm       confirmAction
	confirmTarget model.BlueprintConnection

	now       func() time.Time
	statusMsg string
	width     int
	height    int
}

// New creates the detail view. Open loads a blueprint into it.
func New(api API, w Watcher, k *keys.KeyMap, width, height int) Model {
	return Model{
		api:      api,
		watcher:  w,
		keys:     k,
		fb:       &formBindings{},
		connInfo: make(map[string]connectionInfo),
		now:      time.Now,
		width:    width,
		height:   height,
	}
}

// Open shows blueprint id, discarding any previous working copy.
func (m *Model) Open(id int) tea.Cmd {
	m.gen++
	m.id = id
	m.mode = ModeView
	m.panel = PanelConfiguration
	m.fs = nil
	m.loading = true
	m.saving = false
	m.loadErr = nil
	m.connCursor = 0
	m.connInfo = make(map[string]connectionInfo)
	m.pipelines = nil
	m.pipeCursor = 0
	m.pipelinesStale = false
	m.pipelineErr = nil
	m.statusMsg = ""
	if m.watcher != nil {
		m.watcher.Watch(id)
	}
	return m.load()
}

// Close forgets the blueprint so late responses are ignored.
func (m *Model) Close() {
	m.gen++
	m.id = 0
	m.fs = nil
	m.mode = ModeView
}

// Active reports whether a blueprint is open.
func (m Model) Active() bool {
	return m.id != 0
}

// BlueprintID returns the open blueprint's id.
func (m Model) BlueprintID() int {
	return m.id
}

// Blueprint returns the current working copy.
func (m Model) Blueprint() (model.Blueprint, bool) {
	if m.fs == nil {
		return model.Blueprint{}, false
	}
	return m.fs.Blueprint(), true
}

// Mode returns the current mode.
func (m Model) Mode() DetailMode {
	return m.mode
}

// Capturing reports whether keystrokes belong to an open dialog.
func (m Model) Capturing() bool {
	return m.mode != ModeView
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) load() tea.Cmd {
	api, id, gen := m.api, m.id, m.gen
	return func() tea.Msg {
		bp, err := api.GetBlueprint(context.Background(), id)
		return blueprintLoadedMsg{gen: gen, bp: bp, err: err}
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case blueprintLoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.loadErr = msg.err
			m.statusMsg = fmt.Sprintf("Error loading blueprint: %v", msg.err)
			return m, ui.CheckAuth(msg.err)
		}
		m.fs = blueprint.NewFormState(*msg.bp)
		return m, m.loadConnectionInfo()

	case connectionInfoMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.connInfo[msg.key] = msg.info
		return m, nil

	case blueprintSavedMsg:
		return m.handleSaved(msg)

	case connectionCheckedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error adding connection: %v", msg.err)
			return m.reopen(ModeAddConnection)
		}
		conn := msg.conn
		return m.save("adding connection", ModeAddConnection, func(fs *blueprint.FormState) (blueprint.Advisory, error) {
			if err := fs.AddConnection(conn); err != nil {
				return blueprint.NoAdvisory, err
			}
			return blueprint.RecollectAdvisory, nil
		})

	case triggeredMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		label := blueprint.TriggerLabel(msg.opts)
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error starting %s: %v", label, msg.err)
			return m, ui.CheckAuth(msg.err)
		}
		m.statusMsg = fmt.Sprintf("%s started: pipeline #%d", label, msg.pipeline.ID)
		m.addPipeline(*msg.pipeline)
		m.panel = PanelStatus
		if m.watcher != nil {
			m.watcher.Watch(m.id)
		}
		return m, nil

	case deletedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error deleting blueprint: %v", msg.err)
			return m, ui.CheckAuth(msg.err)
		}
		id := msg.id
		m.Close()
		return m, func() tea.Msg { return BlueprintDeletedMsg{ID: id} }

	case appsync.PipelinesMsg:
		return m.handlePipelines(msg)

	case tea.KeyMsg:
		if m.mode == ModeView {
			return m.handleKeys(msg)
		}
	}

	if m.mode != ModeView {
		return m.updateForm(msg)
	}
	return m, nil
}

func (m Model) handlePipelines(msg appsync.PipelinesMsg) (Model, tea.Cmd) {
	if msg.BlueprintID != m.id || m.id == 0 {
		return m, nil
	}
	if msg.Error != nil {
		m.pipelineErr = msg.Error
		if msg.Stale {
			m.pipelines = msg.Pipelines
			m.pipelinesStale = true
		}
		m.clampPipeCursor()
		if msg.AuthError {
			return m, ui.CheckAuth(msg.Error)
		}
		return m, nil
	}
	m.pipelineErr = nil
	m.pipelinesStale = false
	m.pipelines = msg.Pipelines
	m.clampPipeCursor()
	return m, nil
}

func (m *Model) addPipeline(p model.Pipeline) {
	for _, existing := range m.pipelines {
		if existing.ID == p.ID {
			return
		}
	}
	m.pipelines = append([]model.Pipeline{p}, m.pipelines...)
}

func (m *Model) clampPipeCursor() {
	if m.pipeCursor >= len(m.pipelines) {
		m.pipeCursor = len(m.pipelines) - 1
	}
	if m.pipeCursor < 0 {
		m.pipeCursor = 0
	}
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return BackMsg{} }

	case key.Matches(msg, m.keys.Tab):
		if m.panel == PanelConfiguration {
			m.panel = PanelStatus
		} else {
			m.panel = PanelConfiguration
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		cmd := m.Open(m.id)
		return m, cmd
	}

	if m.fs == nil {
		return m, nil
	}

	// Actions available on both panels.
	switch {
	case key.Matches(msg, m.keys.Trigger):
		return m, m.trigger(blueprint.RunNow)
	case key.Matches(msg, m.keys.Project):
		bp := m.fs.Blueprint()
		if !bp.BelongsToProject() {
			m.statusMsg = "This blueprint does not belong to a project"
			return m, nil
		}
		return m, func() tea.Msg { return OpenProjectMsg{Name: bp.ProjectName} }
	}

	if m.panel == PanelStatus {
		return m.handleStatusKeys(msg)
	}
	return m.handleConfigKeys(msg)
}

func (m Model) handleConfigKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	bp := m.fs.Blueprint()

	switch {
	case key.Matches(msg, m.keys.Down):
		if n := len(bp.Connections); n > 0 {
			m.connCursor = (m.connCursor + 1) % n
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if n := len(bp.Connections); n > 0 {
			m.connCursor = (m.connCursor - 1 + n) % n
		}
		return m, nil

	case key.Matches(msg, m.keys.Rename):
		return m.openRename()

	case key.Matches(msg, m.keys.Policy):
		return m.openPolicy()

	case key.Matches(msg, m.keys.AddConnection):
		if bp.Mode != model.ModeNormal {
			m.statusMsg = "Connections can only be added in NORMAL mode"
			return m, nil
		}
		return m.openAddConnection()

	case key.Matches(msg, m.keys.RemoveConnection):
		conn, ok := m.selectedConnection()
		if !ok {
			return m, nil
		}
		m.confirmTarget = conn
		return m.openConfirm(confirmRemoveConnection)

	case key.Matches(msg, m.keys.Scopes):
		if _, ok := m.selectedConnection(); !ok {
			return m, nil
		}
		return m.openScopes()

	case key.Matches(msg, m.keys.Plan):
		if bp.Mode != model.ModeAdvanced {
			m.statusMsg = "Only ADVANCED blueprints have a JSON plan"
			return m, nil
		}
		return m.openPlan()

	case key.Matches(msg, m.keys.Advanced):
		if bp.Mode == model.ModeAdvanced {
			m.statusMsg = blueprint.ErrIrreversibleMode.Error()
			return m, nil
		}
		return m.openConfirm(confirmAdvanced)

	case key.Matches(msg, m.keys.Transformation):
		return m.openTransformation()
	}

	return m, nil
}

func (m Model) handleStatusKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	bp := m.fs.Blueprint()

	switch {
	case key.Matches(msg, m.keys.Down):
		if len(m.pipelines) > 0 {
			m.pipeCursor = (m.pipeCursor + 1) % len(m.pipelines)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if n := len(m.pipelines); n > 0 {
			m.pipeCursor = (m.pipeCursor - 1 + n) % n
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if len(m.pipelines) == 0 {
			return m, nil
		}
		id := m.pipelines[m.pipeCursor].ID
		return m, func() tea.Msg { return OpenPipelineMsg{ID: id} }

	case key.Matches(msg, m.keys.Retransform):
		return m, m.trigger(blueprint.Retransform)

	case key.Matches(msg, m.keys.FullRefresh):
		return m.openConfirm(confirmFullRefresh)

	case key.Matches(msg, m.keys.Enable):
		if bp.BelongsToProject() {
			m.statusMsg = fmt.Sprintf("Blueprint belongs to project %q; change it from the project settings", bp.ProjectName)
			return m, nil
		}
		enable := !bp.Enable
		action := "disabling blueprint"
		if enable {
			action = "enabling blueprint"
		}
		return m.save(action, ModeView, func(fs *blueprint.FormState) (blueprint.Advisory, error) {
			fs.SetEnable(enable)
			return blueprint.NoAdvisory, nil
		})

	case key.Matches(msg, m.keys.Delete):
		if bp.BelongsToProject() {
			m.statusMsg = fmt.Sprintf("Blueprint belongs to project %q; delete the project instead", bp.ProjectName)
			return m, nil
		}
		return m.openConfirm(confirmDelete)
	}

	return m, nil
}

func (m Model) selectedConnection() (model.BlueprintConnection, bool) {
	if m.fs == nil {
		return model.BlueprintConnection{}, false
	}
	bp := m.fs.Blueprint()
	if m.connCursor < 0 || m.connCursor >= len(bp.Connections) {
		return model.BlueprintConnection{}, false
	}
	return bp.Connections[m.connCursor], true
}

func (m Model) openTransformation() (Model, tea.Cmd) {
	conn, ok := m.selectedConnection()
	if !ok {
		return m, nil
	}
	info := m.connInfo[conn.Key()]
	for _, s := range conn.Scopes {
		scope, ok := info.scopes[s.ScopeID]
		if !ok || scope.ScopeConfig == nil || scope.ScopeConfig.ID == 0 {
			continue
		}
		open := OpenTransformationMsg{
			Plugin:        conn.PluginName,
			ConnectionID:  conn.ConnectionID,
			ScopeID:       s.ScopeID,
			ScopeConfigID: scope.ScopeConfig.ID,
		}
		return m, func() tea.Msg { return open }
	}
	m.statusMsg = fmt.Sprintf("No scope of %s has a transformation", conn.Key())
	return m, nil
}

// save applies mutate to the working copy and sends the result with
// PUT /blueprints/{id}. A rejected change is rolled back when the answer
// arrives; a change that fails validation is never sent.
func (m Model) save(action string, reopen DetailMode, mutate func(*blueprint.FormState) (blueprint.Advisory, error)) (Model, tea.Cmd) {
	if m.fs == nil {
		return m, nil
	}
	if m.saving {
		m.statusMsg = "A change is still being saved"
		return m, nil
	}

	snapshot := m.fs.Snapshot()
	advisory, err := mutate(m.fs)
	if err != nil {
		m.fs.Restore(snapshot)
		m.statusMsg = errorText(action, err)
		return m.reopen(reopen)
	}

	m.mode = ModeView
	m.saving = true
	payload := m.fs.ToUpdatePayload()
	api, gen := m.api, m.gen
	return m, func() tea.Msg {
		bp, err := api.UpdateBlueprint(context.Background(), payload)
		return blueprintSavedMsg{
			gen:      gen,
			action:   action,
			snapshot: snapshot,
			advisory: advisory,
			reopen:   reopen,
			bp:       bp,
			err:      err,
		}
	}
}

func (m Model) handleSaved(msg blueprintSavedMsg) (Model, tea.Cmd) {
	if msg.gen != m.gen || m.fs == nil {
		return m, nil
	}
	m.saving = false

	if msg.err != nil {
		m.fs.Restore(msg.snapshot)
		m.statusMsg = errorText(msg.action, msg.err)
		if cmd := ui.CheckAuth(msg.err); cmd != nil {
			return m, cmd
		}
		return m.reopen(msg.reopen)
	}

	m.fs = blueprint.NewFormState(*msg.bp)
	m.statusMsg = "Saved"
	if n := len(msg.bp.Connections); m.connCursor >= n {
		m.connCursor = max(n-1, 0)
	}
	updated := BlueprintUpdatedMsg{Blueprint: *msg.bp}
	cmds := []tea.Cmd{
		func() tea.Msg { return updated },
		m.loadConnectionInfo(),
	}

	if msg.advisory == blueprint.RecollectAdvisory {
		var cmd tea.Cmd
		m, cmd = m.openConfirm(confirmRecollect)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// reopen shows a dialog again with the values the operator entered.
func (m Model) reopen(mode DetailMode) (Model, tea.Cmd) {
	var f *huh.Form
	switch mode {
	case ModeRename:
		f = m.buildRenameForm()
	case ModePolicy:
		f = m.buildPolicyForm()
	case ModeAddConnection:
		f = m.buildAddConnectionForm()
	case ModeScopes:
		f = m.buildScopesForm()
	case ModePlan:
		f = m.buildPlanForm()
	default:
		m.mode = ModeView
		return m, nil
	}
	m.mode = mode
	m.form = f
	return m, f.Init()
}

func errorText(action string, err error) string {
	if errors.Is(err, blueprint.ErrInvalidCron) {
		return errInvalidCronInput.Error()
	}
	return fmt.Sprintf("Error %s: %v", action, err)
}

func (m Model) trigger(opts model.TriggerOptions) tea.Cmd {
	api, id, gen := m.api, m.id, m.gen
	return func() tea.Msg {
		p, err := api.TriggerBlueprint(context.Background(), id, opts)
		return triggeredMsg{gen: gen, opts: opts, pipeline: p, err: err}
	}
}

func (m Model) deleteBlueprint() tea.Cmd {
	api, id, gen := m.api, m.id, m.gen
	return func() tea.Msg {
		err := api.DeleteBlueprint(context.Background(), id)
		return deletedMsg{gen: gen, id: id, err: err}
	}
}

func (m Model) checkConnection(conn model.BlueprintConnection) tea.Cmd {
	api, gen := m.api, m.gen
	return func() tea.Msg {
		_, err := api.GetConnection(context.Background(), conn.PluginName, conn.ConnectionID)
		return connectionCheckedMsg{gen: gen, conn: conn, err: err}
	}
}

// loadConnectionInfo resolves connection and scope names for display.
// Lookups that fail leave the raw identifiers in place.
func (m Model) loadConnectionInfo() tea.Cmd {
	if m.fs == nil {
		return nil
	}
	api, gen := m.api, m.gen
	var cmds []tea.Cmd
	for _, conn := range m.fs.Blueprint().Connections {
		conn := conn
		cmds = append(cmds, func() tea.Msg {
			ctx := context.Background()
			info := connectionInfo{scopes: make(map[string]model.Scope)}
			if c, err := api.GetConnection(ctx, conn.PluginName, conn.ConnectionID); err == nil {
				info.name = c.Name
			}
			for _, s := range conn.Scopes {
				if scope, err := api.GetScope(ctx, conn.PluginName, conn.ConnectionID, s.ScopeID); err == nil {
					info.scopes[s.ScopeID] = *scope
				}
			}
			return connectionInfoMsg{gen: gen, key: conn.Key(), info: info}
		})
	}
	return tea.Batch(cmds...)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
