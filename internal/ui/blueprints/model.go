package blueprints

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/lakeconsole/internal/blueprint"
	"github.com/nhle/lakeconsole/internal/cronpolicy"
	"github.com/nhle/lakeconsole/internal/devlake"
	"github.com/nhle/lakeconsole/internal/keys"
	"github.com/nhle/lakeconsole/internal/model"
	"github.com/nhle/lakeconsole/internal/theme"
	"github.com/nhle/lakeconsole/internal/ui"
)

// API is the part of the backend the list view needs.
type API interface {
	ListBlueprints(ctx context.Context, f devlake.BlueprintFilter) (*model.BlueprintList, error)
	CreateBlueprint(ctx context.Context, bp model.Blueprint) (*model.Blueprint, error)
}

// ListMode represents the current state of the list view.
type ListMode int

const (
	ModeList   ListMode = iota // Browsing blueprints
	ModeCreate                 // Create dialog open
)

// SelectedBlueprintMsg asks the app to open a blueprint's detail view.
type SelectedBlueprintMsg struct {
	ID int
}

// BlueprintCreatedMsg is sent after the backend accepted a new blueprint.
type BlueprintCreatedMsg struct {
	Blueprint model.Blueprint
}

// blueprintsLoadedMsg carries one page of blueprints. seq identifies the
// request so that answers to superseded requests are dropped.
type blueprintsLoadedMsg struct {
	seq  int
	list *model.BlueprintList
	err  error
}

type blueprintCreatedInternalMsg struct {
	bp  *model.Blueprint
	err error
}

// TypeFilters are the entries cycled by the type filter, in order.
var TypeFilters = []string{"ALL", "Hourly", "Daily", "Weekly", "Monthly", cronpolicy.LabelManual, cronpolicy.LabelCustom}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	name string
	mode string
}

// Model is the blueprint list view.
type Model struct {
	mode ListMode
	api  API
	keys *keys.KeyMap

	table      table.Model
	blueprints []model.Blueprint
	count      int

	filterIdx int
	page      int
	pageSize  int
	seq       int
	loading   bool

	form *huh.Form
	fb   *formBindings

	now       func() time.Time
	statusMsg string
	width     int
	height    int
}

// New creates the list view.
func New(api API, k *keys.KeyMap, pageSize, width, height int) Model {
	if pageSize <= 0 {
		pageSize = 20
	}
	t := table.New(
		table.WithColumns(columns(width)),
		table.WithFocused(true),
		table.WithHeight(tableHeight(height)),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.ColorBorder).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(theme.ColorWhite).
		Background(theme.ColorBlue).
		Bold(false)
	t.SetStyles(styles)

	return Model{
		mode:     ModeList,
		api:      api,
		keys:     k,
		table:    t,
		page:     1,
		pageSize: pageSize,
		seq:      1,
		loading:  true,
		fb:       &formBindings{mode: string(model.ModeNormal)},
		now:      time.Now,
		width:    width,
		height:   height,
	}
}

// Init loads the first page.
func (m Model) Init() tea.Cmd {
	return m.fetch(m.seq)
}

// Reload re-requests the current page with the current filter.
func (m *Model) Reload() tea.Cmd {
	m.seq++
	m.loading = true
	return m.fetch(m.seq)
}

func (m Model) fetch(seq int) tea.Cmd {
	api := m.api
	f := m.Filter()
	return func() tea.Msg {
		list, err := api.ListBlueprints(context.Background(), f)
		return blueprintsLoadedMsg{seq: seq, list: list, err: err}
	}
}

// Filter is the request the list view currently shows.
func (m Model) Filter() devlake.BlueprintFilter {
	return devlake.BlueprintFilter{
		Type:     strings.ToUpper(TypeFilters[m.filterIdx]),
		Page:     m.page,
		PageSize: m.pageSize,
	}
}

// Update handles messages for the list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case blueprintsLoadedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error loading blueprints: %v", msg.err)
			return m, ui.CheckAuth(msg.err)
		}
		m.statusMsg = ""
		m.blueprints = msg.list.Blueprints
		m.count = msg.list.Count
		m.table.SetRows(Rows(m.blueprints, m.now()))
		if m.table.Cursor() >= len(m.blueprints) {
			m.table.SetCursor(0)
		}
		return m, nil

	case blueprintCreatedInternalMsg:
		m.mode = ModeList
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error creating blueprint: %v", msg.err)
			return m, ui.CheckAuth(msg.err)
		}
		created := *msg.bp
		m.statusMsg = fmt.Sprintf("Blueprint %q created", created.Name)
		reload := m.Reload()
		return m, tea.Batch(
			reload,
			func() tea.Msg { return BlueprintCreatedMsg{Blueprint: created} },
		)

	case tea.KeyMsg:
		if m.mode == ModeCreate {
			return m.updateCreateForm(msg)
		}
		return m.handleListKeys(msg)
	}

	if m.mode == ModeCreate {
		return m.updateCreateForm(msg)
	}
	return m, nil
}

func (m Model) handleListKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		bp, ok := m.Selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return SelectedBlueprintMsg{ID: bp.ID} }

	case key.Matches(msg, m.keys.New):
		m.fb.name = ""
		m.fb.mode = string(model.ModeNormal)
		m.form = m.buildCreateForm()
		m.mode = ModeCreate
		return m, m.form.Init()

	case key.Matches(msg, m.keys.TypeFilter):
		m.filterIdx = (m.filterIdx + 1) % len(TypeFilters)
		m.page = 1
		cmd := m.Reload()
		return m, cmd

	case key.Matches(msg, m.keys.NextPage):
		if m.page*m.pageSize >= m.count {
			return m, nil
		}
		m.page++
		cmd := m.Reload()
		return m, cmd

	case key.Matches(msg, m.keys.PrevPage):
		if m.page <= 1 {
			return m, nil
		}
		m.page--
		cmd := m.Reload()
		return m, cmd

	case key.Matches(msg, m.keys.Refresh):
		cmd := m.Reload()
		return m, cmd
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// --- Create dialog ---

func (m Model) buildCreateForm() *huh.Form {
	return ui.NewForm(m.width,
		huh.NewGroup(
			huh.NewInput().
				Title("Blueprint Name").
				Placeholder("My Blueprint").
				Value(&m.fb.name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return blueprint.ErrNameRequired
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Mode").
				Options(
					huh.NewOption("Normal - connections and scopes", string(model.ModeNormal)),
					huh.NewOption("Advanced - hand-written JSON plan", string(model.ModeAdvanced)),
				).
				Value(&m.fb.mode),
		),
	)
}

func (m Model) updateCreateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		m.mode = ModeList
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		bp, err := blueprint.NewCreatePayload(m.fb.name, model.BlueprintMode(m.fb.mode), m.now())
		if err != nil {
			m.mode = ModeList
			m.statusMsg = fmt.Sprintf("Error creating blueprint: %v", err)
			return m, nil
		}
		return m, m.create(bp)
	}
	if m.form.State == huh.StateAborted {
		m.mode = ModeList
		return m, nil
	}

	return m, cmd
}

func (m Model) create(bp model.Blueprint) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		created, err := api.CreateBlueprint(context.Background(), bp)
		return blueprintCreatedInternalMsg{bp: created, err: err}
	}
}

// --- View ---

// View renders the list view.
func (m Model) View() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	if m.mode == ModeCreate && m.form != nil {
		titleStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorWhite).
			MarginBottom(1)
		return style.Render(lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Create Blueprint"),
			m.form.View(),
		))
	}

	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	filterStyle := lipgloss.NewStyle().Foreground(theme.ColorBlue)
	grayStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)

	b.WriteString(titleStyle.Render("Blueprints"))
	b.WriteString("  ")
	b.WriteString(filterStyle.Render("type: " + TypeFilters[m.filterIdx]))
	b.WriteString("  ")
	b.WriteString(grayStyle.Render(m.pageLabel()))
	b.WriteString("\n\n")

	if len(m.blueprints) == 0 && !m.loading {
		b.WriteString(grayStyle.Italic(true).Render(
			"No blueprints found.\nPress 'n' to create one.",
		))
	} else {
		b.WriteString(m.table.View())
	}

	if m.statusMsg != "" {
		b.WriteString("\n\n")
		statusStyle := lipgloss.NewStyle().
			Foreground(theme.ColorYellow).
			Italic(true)
		b.WriteString(statusStyle.Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(grayStyle.Render(
		"enter open | n new | f type | [ ] page | r refresh",
	))

	return style.Render(b.String())
}

func (m Model) pageLabel() string {
	pages := (m.count + m.pageSize - 1) / m.pageSize
	if pages < 1 {
		pages = 1
	}
	return fmt.Sprintf("page %d/%d (%d total)", m.page, pages, m.count)
}

// Selected returns the blueprint under the cursor.
func (m Model) Selected() (model.Blueprint, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.blueprints) {
		return model.Blueprint{}, false
	}
	return m.blueprints[idx], true
}

// Mode returns the current mode.
func (m Model) Mode() ListMode {
	return m.mode
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetColumns(columns(width))
	m.table.SetHeight(tableHeight(height))
}

func tableHeight(height int) int {
	h := height - 10
	if h < 3 {
		h = 3
	}
	return h
}

func columns(width int) []table.Column {
	w := width - 8
	if w < 80 {
		w = 80
	}
	return []table.Column{
		{Title: "Name", Width: w * 22 / 100},
		{Title: "Data Connections", Width: w * 24 / 100},
		{Title: "Frequency", Width: w * 10 / 100},
		{Title: "Next Run", Width: w * 16 / 100},
		{Title: "Project", Width: w * 16 / 100},
		{Title: "Status", Width: w * 10 / 100},
	}
}

// Rows renders blueprints as table rows. Next runs are computed in now's
// location.
func Rows(bps []model.Blueprint, now time.Time) []table.Row {
	rows := make([]table.Row, len(bps))
	for i, bp := range bps {
		d := cronpolicy.Describe(bp.IsManual, bp.CronConfig, now)
		rows[i] = table.Row{
			bp.Name,
			ConnectionsLabel(bp),
			d.Label,
			NextRunLabel(d),
			valueOr(bp.ProjectName, "N/A"),
			EnabledLabel(bp.Enable),
		}
	}
	return rows
}

// ConnectionsLabel summarizes a blueprint's data connections.
func ConnectionsLabel(bp model.Blueprint) string {
	if bp.Mode == model.ModeAdvanced {
		return "Advanced Mode"
	}
	if len(bp.Connections) == 0 {
		return "N/A"
	}
	names := make([]string, len(bp.Connections))
	for i, c := range bp.Connections {
		names[i] = c.Key()
	}
	return strings.Join(names, ", ")
}

// NextRunLabel formats the next fire time of a schedule.
func NextRunLabel(d cronpolicy.Descriptor) string {
	switch {
	case d.Label == cronpolicy.LabelManual:
		return cronpolicy.LabelManual
	case !d.Valid:
		return "Invalid cron"
	default:
		return d.NextTime.Format("2006-01-02 15:04")
	}
}

// EnabledLabel is the text of the status column.
func EnabledLabel(enabled bool) string {
	if enabled {
		return "Enabled"
	}
	return "Disabled"
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// Capturing reports whether keystrokes belong to an open dialog.
func (m Model) Capturing() bool {
	return m.mode == ModeCreate
}
