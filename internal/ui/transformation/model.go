package transformation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/lakeconsole/internal/keys"
	"github.com/nhle/lakeconsole/internal/theme"
	tf "github.com/nhle/lakeconsole/internal/transformation"
	"github.com/nhle/lakeconsole/internal/ui"
)

// API is the part of the backend the transformation editors need.
type API interface {
	GetScopeConfig(ctx context.Context, plugin string, connectionID, id int) (tf.Document, error)
	UpdateScopeConfig(ctx context.Context, plugin string, connectionID, id int, doc tf.Document) (tf.Document, error)
	JiraIssueTypes(ctx context.Context, connectionID int) ([]tf.JiraIssueType, error)
	JiraFields(ctx context.Context, connectionID int) ([]tf.JiraField, error)
	TapdStoryCategories(ctx context.Context, connectionID int, workspaceID string) ([]tf.TapdStoryCategory, error)
	TapdStatusMap(ctx context.Context, connectionID int, workspaceID, system string) (map[string]string, error)
}

// Target identifies the scope config being edited.
type Target struct {
	Plugin        string
	ConnectionID  int
	ScopeID       string
	ScopeConfigID int
}

// EditorMode represents the current state of the editor.
type EditorMode int

const (
	ModeLoading  EditorMode = iota // Fetching the scope config and vendor metadata
	ModeOverview                   // Showing the current mappings
	ModeEditing                    // Walking through the pickers
	ModeSaving                     // PUT in flight
)

// BackMsg signals the parent to navigate back to the blueprint.
type BackMsg struct{}

// SavedMsg is sent after the backend accepted the scope config.
type SavedMsg struct {
	Target Target
}

type loadedMsg struct {
	gen  int
	data loadedData
	err  error
}

// loadedData is everything fetched when the editor opens.
type loadedData struct {
	doc         tf.Document
	typeItems   []tf.TapdItem
	statusItems []tf.TapdItem
	fields      []tf.JiraField
}

type savedMsg struct {
	gen int
	doc tf.Document
	err error
}

type stepKind int

const (
	stepCategory stepKind = iota
	stepStoryPoint
	stepGitHub
)

// step is one picker of the editing sequence.
type step struct {
	kind     stepKind
	table    int
	set      tf.CategorySet
	category tf.Category
}

// editState is the working copy of the mappings. It lives on the heap so
// that huh's Value() pointers remain valid across Bubble Tea model copies.
type editState struct {
	tables          [2]tf.MappingTable
	storyPointField string
	github          tf.GitHubScopeConfig

	selection []string
	choice    string
	patterns  [5]string
}

// Model edits the transformation rules of one scope config.
type Model struct {
	mode   EditorMode
	api    API
	keys   *keys.KeyMap
	target Target
	gen    int

	data    loadedData
	ed      *editState
	steps   []step
	stepIdx int
	form    *huh.Form

	statusMsg string
	width     int
	height    int
}

// New creates the editor. Open loads a scope config into it.
func New(api API, k *keys.KeyMap, width, height int) Model {
	return Model{
		api:    api,
		keys:   k,
		ed:     &editState{},
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Open starts editing target, discarding any previous state.
func (m *Model) Open(target Target) tea.Cmd {
	m.gen++
	m.target = target
	m.mode = ModeLoading
	m.data = loadedData{}
	m.ed = &editState{}
	m.steps = nil
	m.form = nil
	m.statusMsg = ""
	return m.load()
}

// Close drops the editor state; unsaved edits are discarded.
func (m *Model) Close() {
	m.gen++
	m.mode = ModeLoading
	m.form = nil
}

// Mode returns the current mode.
func (m Model) Mode() EditorMode {
	return m.mode
}

// Capturing reports whether keystrokes belong to an open picker.
func (m Model) Capturing() bool {
	return m.mode == ModeEditing
}

// Supported reports whether plugin has a transformation editor.
func Supported(plugin string) bool {
	switch plugin {
	case "jira", "tapd", "github":
		return true
	}
	return false
}

func (m Model) load() tea.Cmd {
	api, t, gen := m.api, m.target, m.gen
	return func() tea.Msg {
		data, err := fetch(context.Background(), api, t)
		return loadedMsg{gen: gen, data: data, err: err}
	}
}

// fetch loads the scope config and the vendor metadata its editor offers.
func fetch(ctx context.Context, api API, t Target) (loadedData, error) {
	var data loadedData
	doc, err := api.GetScopeConfig(ctx, t.Plugin, t.ConnectionID, t.ScopeConfigID)
	if err != nil {
		return data, fmt.Errorf("loading scope config: %w", err)
	}
	data.doc = doc

	switch t.Plugin {
	case "jira":
		types, err := api.JiraIssueTypes(ctx, t.ConnectionID)
		if err != nil {
			return data, fmt.Errorf("loading issue types: %w", err)
		}
		for _, name := range tf.UniqueIssueTypeNames(types) {
			data.typeItems = append(data.typeItems, tf.TapdItem{ID: name, Name: name})
		}
		if data.fields, err = api.JiraFields(ctx, t.ConnectionID); err != nil {
			return data, fmt.Errorf("loading fields: %w", err)
		}

	case "tapd":
		categories, err := api.TapdStoryCategories(ctx, t.ConnectionID, t.ScopeID)
		if err != nil {
			return data, fmt.Errorf("loading story categories: %w", err)
		}
		data.typeItems = tf.TapdTypeItems(categories)
		story, err := api.TapdStatusMap(ctx, t.ConnectionID, t.ScopeID, "story")
		if err != nil {
			return data, fmt.Errorf("loading story statuses: %w", err)
		}
		bug, err := api.TapdStatusMap(ctx, t.ConnectionID, t.ScopeID, "bug")
		if err != nil {
			return data, fmt.Errorf("loading bug statuses: %w", err)
		}
		data.statusItems = tf.TapdStatusItems(story, bug)
	}
	return data, nil
}

// reset rebuilds the working copy from the loaded document.
func (m *Model) reset() error {
	ed := &editState{}
	switch m.target.Plugin {
	case "jira":
		j, err := tf.DecodeJira(m.data.doc)
		if err != nil {
			return err
		}
		ed.tables[0] = tf.Restrict(j.Table(), tf.JiraTypes, tf.ItemIDs(m.data.typeItems))
		ed.storyPointField = j.StoryPointField
		m.steps = categorySteps(0, tf.JiraTypes)
		m.steps = append(m.steps, step{kind: stepStoryPoint})

	case "tapd":
		t, err := tf.DecodeTapd(m.data.doc)
		if err != nil {
			return err
		}
		ed.tables[0] = tf.Restrict(t.TypeTable(), tf.TapdTypes, tf.ItemIDs(m.data.typeItems))
		ed.tables[1] = tf.Restrict(t.StatusTable(), tf.TapdStatuses, tf.ItemIDs(m.data.statusItems))
		m.steps = append(categorySteps(0, tf.TapdTypes), categorySteps(1, tf.TapdStatuses)...)

	case "github":
		g, err := tf.DecodeGitHub(m.data.doc)
		if err != nil {
			return err
		}
		ed.github = g
		m.steps = []step{{kind: stepGitHub}}

	default:
		m.steps = nil
	}
	m.ed = ed
	return nil
}

func categorySteps(table int, set tf.CategorySet) []step {
	out := make([]step, len(set.Categories))
	for i, c := range set.Categories {
		out[i] = step{kind: stepCategory, table: table, set: set, category: c}
	}
	return out
}

// Update handles messages for the editor.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.mode = ModeOverview
		m.data = msg.data
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error %v", msg.err)
			return m, ui.CheckAuth(msg.err)
		}
		if err := m.reset(); err != nil {
			m.statusMsg = fmt.Sprintf("Error reading scope config: %v", err)
		}
		return m, nil

	case savedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.mode = ModeOverview
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error saving transformation: %v", msg.err)
			return m, ui.CheckAuth(msg.err)
		}
		m.data.doc = msg.doc
		if err := m.reset(); err != nil {
			m.statusMsg = fmt.Sprintf("Error reading scope config: %v", err)
			return m, nil
		}
		m.statusMsg = "Transformation saved"
		target := m.target
		return m, func() tea.Msg { return SavedMsg{Target: target} }

	case tea.KeyMsg:
		if m.mode == ModeOverview {
			return m.handleOverviewKeys(msg)
		}
		if m.mode == ModeLoading || m.mode == ModeSaving {
			if key.Matches(msg, m.keys.Back) {
				m.Close()
				return m, func() tea.Msg { return BackMsg{} }
			}
			return m, nil
		}
	}

	if m.mode == ModeEditing {
		return m.updateForm(msg)
	}
	return m, nil
}

func (m Model) handleOverviewKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.Close()
		return m, func() tea.Msg { return BackMsg{} }

	case key.Matches(msg, m.keys.Refresh):
		cmd := m.Open(m.target)
		return m, cmd

	case key.Matches(msg, m.keys.Select):
		if !Supported(m.target.Plugin) || len(m.steps) == 0 {
			m.statusMsg = fmt.Sprintf("No transformation editor for %s", m.target.Plugin)
			return m, nil
		}
		if m.data.doc == nil {
			return m, nil
		}
		m.statusMsg = ""
		m.stepIdx = 0
		return m.openStep()
	}
	return m, nil
}

// openStep shows the picker of the current step.
func (m Model) openStep() (Model, tea.Cmd) {
	s := m.steps[m.stepIdx]
	switch s.kind {
	case stepCategory:
		m.ed.selection = tf.Members(m.ed.tables[s.table], s.category)
	case stepStoryPoint:
		m.ed.choice = m.ed.storyPointField
	case stepGitHub:
		g := m.ed.github
		m.ed.patterns = [5]string{g.IssueTypeRequirement, g.IssueTypeBug, g.IssueTypeIncident, g.DeploymentPattern, g.ProductionPattern}
	}
	m.form = m.buildStepForm(s)
	m.mode = ModeEditing
	return m, m.form.Init()
}

func (m Model) items(table int) []tf.TapdItem {
	if table == 1 {
		return m.data.statusItems
	}
	return m.data.typeItems
}

func (m Model) buildStepForm(s step) *huh.Form {
	progress := fmt.Sprintf("Step %d of %d", m.stepIdx+1, len(m.steps))

	switch s.kind {
	case stepStoryPoint:
		opts := []huh.Option[string]{huh.NewOption("(none)", "")}
		for _, f := range m.data.fields {
			opts = append(opts, huh.NewOption(fmt.Sprintf("%s (%s)", f.Name, f.ID), f.ID))
		}
		return ui.NewForm(m.width, huh.NewGroup(
			huh.NewSelect[string]().
				Title("Story Point Field").
				Description(progress).
				Options(opts...).
				Value(&m.ed.choice),
		))

	case stepGitHub:
		titles := [5]string{"Requirement issue labels", "Bug issue labels", "Incident issue labels", "Deployment job pattern", "Production environment pattern"}
		fields := make([]huh.Field, len(titles))
		for i, title := range titles {
			fields[i] = huh.NewInput().
				Title(title).
				Description("Regular expression").
				Value(&m.ed.patterns[i]).
				Validate(validatePattern)
		}
		return ui.NewForm(m.width, huh.NewGroup(fields...))
	}

	labels := make(map[string]string)
	for _, it := range m.items(s.table) {
		labels[it.ID] = it.Name
	}
	available := tf.Available(m.ed.tables[s.table], s.set, s.category, tf.ItemIDs(m.items(s.table)))
	opts := make([]huh.Option[string], 0, len(available))
	for _, id := range available {
		opts = append(opts, huh.NewOption(labels[id], id))
	}
	return ui.NewForm(m.width, huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title(fmt.Sprintf("%s: %s", strings.ToUpper(s.set.Name[:1])+s.set.Name[1:], s.category)).
			Description(progress+". Items mapped to another category are not offered.").
			Options(opts...).
			Value(&m.ed.selection),
	))
}

func validatePattern(s string) error {
	_, err := regexp.Compile(strings.TrimSpace(s))
	return err
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		m.mode = ModeOverview
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m.completeStep()
	}
	if m.form.State == huh.StateAborted {
		m.form = nil
		if err := m.reset(); err != nil {
			m.statusMsg = fmt.Sprintf("Error reading scope config: %v", err)
		} else {
			m.statusMsg = "Changes discarded"
		}
		m.mode = ModeOverview
		return m, nil
	}

	return m, cmd
}

// completeStep applies the current picker and moves on; after the last
// picker the scope config is saved.
func (m Model) completeStep() (Model, tea.Cmd) {
	if err := m.applyStep(m.steps[m.stepIdx]); err != nil {
		m.statusMsg = fmt.Sprintf("Error in %v", err)
		m.form = m.buildStepForm(m.steps[m.stepIdx])
		return m, m.form.Init()
	}
	m.stepIdx++
	if m.stepIdx < len(m.steps) {
		return m.openStep()
	}
	return m.save()
}

func (m Model) applyStep(s step) error {
	switch s.kind {
	case stepCategory:
		table, err := tf.SetSelection(m.ed.tables[s.table], s.set, s.category, m.ed.selection)
		if err != nil {
			return err
		}
		m.ed.tables[s.table] = table
	case stepStoryPoint:
		m.ed.storyPointField = m.ed.choice
	case stepGitHub:
		p := m.ed.patterns
		g := tf.GitHubScopeConfig{
			IssueTypeRequirement: strings.TrimSpace(p[0]),
			IssueTypeBug:         strings.TrimSpace(p[1]),
			IssueTypeIncident:    strings.TrimSpace(p[2]),
			DeploymentPattern:    strings.TrimSpace(p[3]),
			ProductionPattern:    strings.TrimSpace(p[4]),
		}
		if err := g.Validate(); err != nil {
			return err
		}
		m.ed.github = g
	}
	return nil
}

// encode writes the working copy into the loaded document.
func (m Model) encode() (tf.Document, error) {
	switch m.target.Plugin {
	case "jira":
		j, err := tf.DecodeJira(m.data.doc)
		if err != nil {
			return nil, err
		}
		j = j.WithTable(m.ed.tables[0])
		j.StoryPointField = m.ed.storyPointField
		return tf.EncodeJira(m.data.doc, j)
	case "tapd":
		t, err := tf.DecodeTapd(m.data.doc)
		if err != nil {
			return nil, err
		}
		t = t.WithTypes(m.ed.tables[0]).WithStatuses(m.ed.tables[1])
		return tf.EncodeTapd(m.data.doc, t)
	case "github":
		return tf.EncodeGitHub(m.data.doc, m.ed.github)
	}
	return nil, fmt.Errorf("no transformation editor for %s", m.target.Plugin)
}

func (m Model) save() (Model, tea.Cmd) {
	m.form = nil
	doc, err := m.encode()
	if err != nil {
		m.mode = ModeOverview
		m.statusMsg = fmt.Sprintf("Error saving transformation: %v", err)
		return m, nil
	}
	m.mode = ModeSaving
	api, t, gen := m.api, m.target, m.gen
	return m, func() tea.Msg {
		out, err := api.UpdateScopeConfig(context.Background(), t.Plugin, t.ConnectionID, t.ScopeConfigID, doc)
		return savedMsg{gen: gen, doc: out, err: err}
	}
}

// View renders the editor.
func (m Model) View() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	grayStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)

	title := titleStyle.Render(fmt.Sprintf("Transformation: %s-%d / scope %s",
		m.target.Plugin, m.target.ConnectionID, m.target.ScopeID))
	if name := m.data.doc.Name(); name != "" {
		title += grayStyle.Render("  (" + name + ")")
	}

	switch m.mode {
	case ModeLoading:
		return style.Render(title + "\n\n" + grayStyle.Render("Loading scope config..."))
	case ModeEditing:
		if m.form != nil {
			parts := []string{title, ""}
			if m.statusMsg != "" {
				parts = append(parts, theme.ErrorStyle.Render(m.statusMsg), "")
			}
			parts = append(parts, m.form.View())
			return style.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
		}
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString(m.renderMappings())

	if m.mode == ModeSaving {
		b.WriteString("\n\n")
		b.WriteString(grayStyle.Italic(true).Render("Saving..."))
	}
	if m.statusMsg != "" {
		b.WriteString("\n\n")
		statusStyle := lipgloss.NewStyle().Foreground(theme.ColorYellow).Italic(true)
		b.WriteString(statusStyle.Render(m.statusMsg))
	}
	b.WriteString("\n\n")
	b.WriteString(grayStyle.Render("enter edit | r reload | esc back"))
	return style.Render(b.String())
}

func (m Model) renderMappings() string {
	labelStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	var lines []string

	section := func(table int, set tf.CategorySet) {
		names := make(map[string]string)
		for _, it := range m.items(table) {
			names[it.ID] = it.Name
		}
		for _, c := range set.Categories {
			members := tf.Members(m.ed.tables[table], c)
			for i, id := range members {
				if n := names[id]; n != "" {
					members[i] = n
				}
			}
			value := strings.Join(members, ", ")
			if value == "" {
				value = "-"
			}
			lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render(fmt.Sprintf("%-14s", string(c)+":")), value))
		}
	}

	switch m.target.Plugin {
	case "jira":
		lines = append(lines, "Issue types", "")
		section(0, tf.JiraTypes)
		sp := m.ed.storyPointField
		if sp == "" {
			sp = "-"
		}
		lines = append(lines, "", fmt.Sprintf("%s %s", labelStyle.Render("Story point field:"), sp))
	case "tapd":
		lines = append(lines, "Issue types", "")
		section(0, tf.TapdTypes)
		lines = append(lines, "", "Statuses", "")
		section(1, tf.TapdStatuses)
	case "github":
		g := m.ed.github
		for _, row := range [][2]string{
			{"Requirement", g.IssueTypeRequirement},
			{"Bug", g.IssueTypeBug},
			{"Incident", g.IssueTypeIncident},
			{"Deployment", g.DeploymentPattern},
			{"Production", g.ProductionPattern},
		} {
			v := row[1]
			if v == "" {
				v = "-"
			}
			lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render(fmt.Sprintf("%-12s", row[0]+":")), v))
		}
	default:
		lines = append(lines, labelStyle.Italic(true).Render(fmt.Sprintf("No transformation editor for %s", m.target.Plugin)))
	}
	return strings.Join(lines, "\n")
}

// SetSize updates the editor dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
