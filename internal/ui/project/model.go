package project

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/lakeconsole/internal/blueprint"
	"github.com/nhle/lakeconsole/internal/keys"
	"github.com/nhle/lakeconsole/internal/model"
	"github.com/nhle/lakeconsole/internal/theme"
	"github.com/nhle/lakeconsole/internal/ui"
)

// API is the part of the backend the project view needs.
type API interface {
	GetProject(ctx context.Context, name string) (*model.Project, error)
	UpdateProject(ctx context.Context, name string, p model.Project) (*model.Project, error)
	DeleteProject(ctx context.Context, name string) error
}

// CloseMsg signals the parent to close the project view.
type CloseMsg struct{}

// ProjectChangedMsg signals that the project was renamed, updated or deleted.
type ProjectChangedMsg struct {
	Name    string
	Deleted bool
}

type projectMode int

const (
	modeView projectMode = iota
	modeForm
	modeConfirmDelete
)

type formBindings struct {
	name    string
	dora    bool
	confirm bool
}

type projectLoadedMsg struct {
	gen     int
	project *model.Project
	err     error
}

type projectSavedMsg struct {
	gen     int
	project *model.Project
	err     error
}

type projectDeletedMsg struct {
	gen  int
	name string
	err  error
}

// Model shows and edits the settings of one project.
type Model struct {
	mode    projectMode
	api     API
	keys    *keys.KeyMap
	name    string
	gen     int
	project *model.Project
	loading bool
	form    *huh.Form
	fb      *formBindings

	statusMsg string
	width     int
	height    int
}

// New creates a new project settings model.
func New(api API, k *keys.KeyMap, width, height int) Model {
	return Model{
		mode:  modeView,
		api:   api,
		keys:  k,
		fb:    &formBindings{},
		width: width, height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Open loads the named project.
func (m *Model) Open(name string) tea.Cmd {
	m.gen++
	m.name = name
	m.project = nil
	m.loading = true
	m.mode = modeView
	m.statusMsg = ""
	return m.loadProject()
}

// Capturing reports whether keystrokes belong to an open dialog.
func (m Model) Capturing() bool {
	return m.mode != modeView
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case projectLoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error loading project: %v", msg.err)
			return m, ui.CheckAuth(msg.err)
		}
		m.project = msg.project
		return m, nil

	case projectSavedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error saving project: %v", msg.err)
			if cmd := ui.CheckAuth(msg.err); cmd != nil {
				m.mode = modeView
				return m, cmd
			}
			m.form = m.buildForm()
			m.mode = modeForm
			return m, m.form.Init()
		}
		m.statusMsg = "Project saved"
		m.mode = modeView
		m.project = msg.project
		m.name = msg.project.Name
		changed := ProjectChangedMsg{Name: m.name}
		return m, func() tea.Msg { return changed }

	case projectDeletedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.mode = modeView
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error deleting project: %v", msg.err)
			return m, ui.CheckAuth(msg.err)
		}
		changed := ProjectChangedMsg{Name: msg.name, Deleted: true}
		return m, func() tea.Msg { return changed }

	case tea.KeyMsg:
		if m.mode == modeView {
			return m.handleViewKey(msg)
		}
	}

	return m.updateForm(msg)
}

func (m Model) handleViewKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.gen++
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(msg, m.keys.Refresh):
		cmd := m.Open(m.name)
		return m, cmd
	}

	if m.project == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Rename):
		m.fb.name = m.project.Name
		m.fb.dora = m.project.MetricEnabled(model.DoraPlugin)
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Delete):
		m.fb.confirm = false
		m.form = m.buildConfirmForm()
		m.mode = modeConfirmDelete
		return m, m.form.Init()
	}
	return m, nil
}

func (m Model) buildForm() *huh.Form {
	return ui.NewForm(m.width,
		huh.NewGroup(
			huh.NewInput().
				Title("Project Name").
				Description("Letters, digits, '-', '_' and '/'").
				Value(&m.fb.name).
				Validate(blueprint.ValidProjectName),
			huh.NewConfirm().
				Title("DORA metrics").
				Description("Calculate deployment frequency, lead time, change failure rate and recovery time").
				Affirmative("Enabled").
				Negative("Disabled").
				Value(&m.fb.dora),
		),
	)
}

func (m Model) buildConfirmForm() *huh.Form {
	return ui.NewForm(m.width,
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete project %q?", m.project.Name)).
				Description("The project and its blueprint are removed.").
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	)
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil || m.mode == modeView {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State == huh.StateAborted {
		m.mode = modeView
		return m, nil
	}
	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if m.mode == modeConfirmDelete {
		if !m.fb.confirm {
			m.mode = modeView
			return m, nil
		}
		return m, m.deleteProject()
	}
	return m.saveProject()
}

func (m Model) saveProject() (Model, tea.Cmd) {
	payload, err := blueprint.ProjectUpdatePayload(*m.project, m.fb.name, m.fb.dora)
	if err != nil {
		m.statusMsg = fmt.Sprintf("Error saving project: %v", err)
		m.form = m.buildForm()
		return m, m.form.Init()
	}
	api, name, gen := m.api, m.project.Name, m.gen
	return m, func() tea.Msg {
		p, err := api.UpdateProject(context.Background(), name, payload)
		return projectSavedMsg{gen: gen, project: p, err: err}
	}
}

func (m Model) deleteProject() tea.Cmd {
	api, name, gen := m.api, m.project.Name, m.gen
	return func() tea.Msg {
		err := api.DeleteProject(context.Background(), name)
		return projectDeletedMsg{gen: gen, name: name, err: err}
	}
}

func (m Model) loadProject() tea.Cmd {
	api, name, gen := m.api, m.name, m.gen
	return func() tea.Msg {
		p, err := api.GetProject(context.Background(), name)
		return projectLoadedMsg{gen: gen, project: p, err: err}
	}
}

// View renders the project settings.
func (m Model) View() string {
	style := lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height)

	if m.mode != modeView && m.form != nil {
		parts := []string{}
		if m.statusMsg != "" && m.mode == modeForm {
			parts = append(parts, theme.ErrorStyle.Render(m.statusMsg), "")
		}
		parts = append(parts, m.form.View())
		return style.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
	}

	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	grayStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)

	b.WriteString(titleStyle.Render("Project: " + m.name))
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(grayStyle.Render("Loading project..."))
	case m.project != nil:
		p := m.project
		dora := "Disabled"
		if p.MetricEnabled(model.DoraPlugin) {
			dora = "Enabled"
		}
		b.WriteString(fmt.Sprintf("%s %s\n", grayStyle.Render("Name:       "), p.Name))
		if p.Description != "" {
			b.WriteString(fmt.Sprintf("%s %s\n", grayStyle.Render("Description:"), p.Description))
		}
		b.WriteString(fmt.Sprintf("%s %s\n",
			grayStyle.Render("DORA:       "),
			theme.EnabledStyle(p.MetricEnabled(model.DoraPlugin)).Render(dora)))
		if p.Blueprint != nil {
			b.WriteString(fmt.Sprintf("%s %s (#%d)\n", grayStyle.Render("Blueprint:  "), p.Blueprint.Name, p.Blueprint.ID))
		}
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		style := theme.SuccessStyle
		if strings.HasPrefix(m.statusMsg, "Error") {
			style = theme.ErrorStyle
		}
		b.WriteString(style.Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(grayStyle.Render("e edit | d delete | r refresh | esc back"))

	return style.Render(b.String())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
