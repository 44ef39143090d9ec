package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/lakeconsole/internal/keys"
	"github.com/nhle/lakeconsole/internal/model"
	"github.com/nhle/lakeconsole/internal/theme"
	"github.com/nhle/lakeconsole/internal/ui"
)

// refreshInterval paces reloads while the pipeline is still running.
const refreshInterval = 3 * time.Second

// API is the part of the backend the pipeline view needs.
type API interface {
	GetPipeline(ctx context.Context, id int) (*model.Pipeline, error)
	ListPipelineTasks(ctx context.Context, id int) (*model.PipelineTaskList, error)
}

// BackMsg signals the parent to navigate back to the blueprint.
type BackMsg struct{}

type loadedMsg struct {
	gen      int
	pipeline *model.Pipeline
	tasks    []model.PipelineTask
	err      error
}

type tickMsg struct {
	gen int
}

// Model is the read-only pipeline view: status, progress and tasks.
type Model struct {
	api      API
	keys     *keys.KeyMap
	viewport viewport.Model
	spinner  spinner.Model

	id       int
	gen      int
	pipeline *model.Pipeline
	tasks    []model.PipelineTask
	loading  bool
	err      error

	now    func() time.Time
	width  int
	height int
}

// New creates a new pipeline view model.
func New(api API, k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	return Model{
		api:      api,
		keys:     k,
		viewport: vp,
		spinner:  sp,
		now:      time.Now,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Open shows pipeline id.
func (m *Model) Open(id int) tea.Cmd {
	m.gen++
	m.id = id
	m.pipeline = nil
	m.tasks = nil
	m.err = nil
	m.loading = true
	m.viewport.SetContent("")
	m.viewport.GotoTop()
	return tea.Batch(m.load(), m.spinner.Tick)
}

// Close stops refreshing.
func (m *Model) Close() {
	m.gen++
	m.id = 0
}

// PipelineID returns the pipeline being shown.
func (m Model) PipelineID() int {
	return m.id
}

func (m Model) load() tea.Cmd {
	api, id, gen := m.api, m.id, m.gen
	return func() tea.Msg {
		ctx := context.Background()
		p, err := api.GetPipeline(ctx, id)
		if err != nil {
			return loadedMsg{gen: gen, err: err}
		}
		tasks, err := api.ListPipelineTasks(ctx, id)
		if err != nil {
			return loadedMsg{gen: gen, pipeline: p, err: err}
		}
		return loadedMsg{gen: gen, pipeline: p, tasks: tasks.Tasks}
	}
}

func (m Model) tick() tea.Cmd {
	gen := m.gen
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

// Update handles messages for the pipeline view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		if msg.pipeline != nil {
			m.pipeline = msg.pipeline
			m.tasks = msg.tasks
		}
		m.viewport.SetContent(m.renderContent())
		if msg.err != nil {
			return m, ui.CheckAuth(msg.err)
		}
		if !m.pipeline.Status.IsTerminal() {
			return m, m.tick()
		}
		return m, nil

	case tickMsg:
		if msg.gen != m.gen || m.id == 0 {
			return m, nil
		}
		return m, m.load()

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			m.Close()
			return m, func() tea.Msg { return BackMsg{} }
		case key.Matches(msg, m.keys.Refresh):
			m.gen++
			m.loading = true
			return m, tea.Batch(m.load(), m.spinner.Tick)
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the pipeline view.
func (m Model) View() string {
	if m.loading && m.pipeline == nil {
		loadingStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return loadingStyle.Render(m.spinner.View() + " Loading pipeline...")
	}
	if m.pipeline == nil && m.err != nil {
		errStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center)
		return errStyle.Render(theme.ErrorStyle.Render(fmt.Sprintf("Error loading pipeline: %v", m.err)))
	}
	return m.viewport.View()
}

// renderContent builds the full content string for the viewport.
func (m Model) renderContent() string {
	p := m.pipeline
	if p == nil {
		return ""
	}
	now := m.now()

	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(fmt.Sprintf("Pipeline #%d", p.ID)))
	sections = append(sections, theme.PipelineStatusStyle(string(p.Status)).Render(p.Status.Label()))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	row := func(label, value string) string {
		return fmt.Sprintf("%s %s", metaStyle.Render(fmt.Sprintf("%-10s", label+":")), valStyle.Render(value))
	}

	sections = append(sections, row("Blueprint", fmt.Sprintf("#%d", p.BlueprintID)))
	sections = append(sections, row("Progress", fmt.Sprintf("%d/%d tasks", p.FinishedTasks, p.TotalTasks)))
	if p.BeganAt != nil {
		sections = append(sections, row("Started", p.BeganAt.In(now.Location()).Format("2006-01-02 15:04:05")))
	}
	if p.FinishedAt != nil {
		sections = append(sections, row("Finished", p.FinishedAt.In(now.Location()).Format("2006-01-02 15:04:05")))
	}
	sections = append(sections, row("Duration", p.Duration(now).Round(time.Second).String()))
	if p.Message != "" {
		sections = append(sections, "", theme.ErrorStyle.Render(p.Message))
	}

	// Separator
	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "", separator, "")

	sections = append(sections, titleStyle.Render(fmt.Sprintf("Tasks (%d)", len(m.tasks))))
	sections = append(sections, "")
	if m.err != nil {
		sections = append(sections, theme.ErrorStyle.Render(fmt.Sprintf("Error loading tasks: %v", m.err)))
	}
	if len(m.tasks) == 0 && m.err == nil {
		sections = append(sections, metaStyle.Italic(true).Render("No tasks"))
	}
	for _, t := range m.tasks {
		sections = append(sections, renderTask(t))
	}

	sections = append(sections, "", metaStyle.Render("r refresh | esc back"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderTask(t model.PipelineTask) string {
	status := theme.PipelineStatusStyle(string(t.Status)).Render(fmt.Sprintf("%-15s", t.Status.Label()))
	line := fmt.Sprintf("#%-6d %-12s %s %3.0f%%", t.ID, t.Plugin, status, t.Progress*100)
	if t.Message != "" {
		line += "\n        " + theme.ErrorStyle.Render(t.Message)
	}
	return line
}

// SetSize updates the pipeline view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.viewport.SetContent(m.renderContent())
}
