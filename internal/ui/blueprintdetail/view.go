package blueprintdetail

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/lakeconsole/internal/cronpolicy"
	"github.com/nhle/lakeconsole/internal/model"
	"github.com/nhle/lakeconsole/internal/theme"
)

const timeFormat = "2006-01-02 15:04"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	metaStyle  = lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle   = lipgloss.NewStyle().Foreground(theme.ColorWhite)
	tabStyle   = lipgloss.NewStyle().Padding(0, 1).Foreground(theme.ColorGray)
	activeTab  = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(theme.ColorBlue).Underline(true)
)

// View renders the detail view.
func (m Model) View() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	if m.loading {
		return style.Foreground(theme.ColorGray).Render("Loading blueprint...")
	}
	if m.fs == nil {
		if m.loadErr != nil {
			return style.Render(theme.ErrorStyle.Render(m.statusMsg) + "\n\n" +
				metaStyle.Render("r retry | esc back"))
		}
		return style.Foreground(theme.ColorGray).Render("No blueprint selected")
	}

	bp := m.fs.Blueprint()

	if m.mode != ModeView && m.form != nil {
		parts := []string{titleStyle.MarginBottom(1).Render(m.dialogTitle(bp))}
		if m.statusMsg != "" {
			parts = append(parts, theme.ErrorStyle.Render(m.statusMsg), "")
		}
		parts = append(parts, m.form.View())
		if m.mode == ModePolicy {
			parts = append(parts, "", m.renderPolicyPreview())
		}
		return style.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
	}

	var b strings.Builder
	b.WriteString(m.renderHeader(bp))
	b.WriteString("\n\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")
	if m.panel == PanelStatus {
		b.WriteString(m.renderStatus(bp))
	} else {
		b.WriteString(m.renderConfiguration(bp))
	}

	if m.statusMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorYellow).Italic(true).Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(metaStyle.Render(m.hints(bp)))
	return style.Render(b.String())
}

func (m Model) dialogTitle(bp model.Blueprint) string {
	switch m.mode {
	case ModeRename:
		return "Rename Blueprint"
	case ModePolicy:
		return "Sync Policy"
	case ModeAddConnection:
		return "Add Connection"
	case ModeScopes:
		return "Edit Scopes"
	case ModePlan:
		return "JSON Plan"
	}
	return bp.Name
}

func (m Model) renderHeader(bp model.Blueprint) string {
	parts := []string{
		titleStyle.Render(bp.Name),
		theme.ModeLabelStyle(string(bp.Mode)).Render(string(bp.Mode)),
	}
	if bp.BelongsToProject() {
		parts = append(parts, metaStyle.Render("project: "+bp.ProjectName))
	}
	if m.saving {
		parts = append(parts, metaStyle.Italic(true).Render("saving..."))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderTabs() string {
	cfg, status := tabStyle.Render("Configuration"), tabStyle.Render("Status")
	if m.panel == PanelStatus {
		status = activeTab.Render("Status")
	} else {
		cfg = activeTab.Render("Configuration")
	}
	return cfg + " " + status
}

func field(label, value string) string {
	return fmt.Sprintf("%s %s", metaStyle.Render(fmt.Sprintf("%-16s", label+":")), valStyle.Render(value))
}

func (m Model) renderConfiguration(bp model.Blueprint) string {
	now := m.now()
	d := cronpolicy.Describe(bp.IsManual, bp.CronConfig, now)

	policy := d.Label
	if !bp.IsManual {
		policy = fmt.Sprintf("%s (%s)", d.Label, bp.CronConfig)
	}

	lines := []string{
		field("Name", bp.Name),
		field("Sync Policy", policy),
		field("Skip Failed", yesNo(bp.SkipOnFail)),
	}
	if bp.Mode == model.ModeNormal {
		since := "All time"
		if bp.TimeAfter != nil {
			since = bp.TimeAfter.In(now.Location()).Format("2006-01-02")
		}
		lines = append(lines, field("Data Since", since))
	}
	lines = append(lines, "")

	if bp.Mode == model.ModeAdvanced {
		lines = append(lines, titleStyle.Render("JSON Plan"), "", m.fs.PlanText())
		return strings.Join(lines, "\n")
	}

	lines = append(lines, titleStyle.Render("Data Connections"), "")
	if len(bp.Connections) == 0 {
		lines = append(lines, metaStyle.Italic(true).Render("No connections. Press 'a' to add one."))
		return strings.Join(lines, "\n")
	}
	for i, conn := range bp.Connections {
		lines = append(lines, m.renderConnection(conn, i == m.connCursor))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderConnection(conn model.BlueprintConnection, selected bool) string {
	info := m.connInfo[conn.Key()]
	title := conn.Key()
	if info.name != "" {
		title = fmt.Sprintf("%s (%s)", info.name, conn.Key())
	}

	var scopes []string
	for _, s := range conn.Scopes {
		name := s.ScopeName
		if scope, ok := info.scopes[s.ScopeID]; ok {
			name = scope.DisplayName()
			if scope.ScopeConfig != nil && scope.ScopeConfig.Name != "" {
				name += metaStyle.Render(" [" + scope.ScopeConfig.Name + "]")
			}
		}
		if name == "" {
			name = s.ScopeID
		}
		scopes = append(scopes, "  - "+name)
	}

	body := title
	if len(scopes) > 0 {
		body += "\n" + strings.Join(scopes, "\n")
	}
	if selected {
		return theme.SelectedItemStyle.Render(body)
	}
	return theme.ListItemStyle.Render(body)
}

func (m Model) renderStatus(bp model.Blueprint) string {
	now := m.now()
	d := cronpolicy.Describe(bp.IsManual, bp.CronConfig, now)

	next := "Manual"
	switch {
	case bp.IsManual:
	case !d.Valid:
		next = "Invalid cron"
	default:
		next = fmt.Sprintf("%s (UTC%s)", d.NextTime.Format(timeFormat), cronpolicy.UTCOffsetLabel(now))
	}

	enabled := "Disabled"
	if bp.Enable {
		enabled = "Enabled"
	}

	lines := []string{
		field("Next Run", next),
		field("Schedule", theme.EnabledStyle(bp.Enable).Render(enabled)),
		"",
	}

	if len(m.pipelines) > 0 {
		cur := m.pipelines[0]
		lines = append(lines,
			titleStyle.Render("Current Pipeline"),
			"",
			renderPipelineLine(cur, now),
			"",
		)
	}

	heading := titleStyle.Render("Historical Pipelines")
	if m.pipelinesStale {
		heading += metaStyle.Italic(true).Render("  (cached, backend unreachable)")
	}
	lines = append(lines, heading, "")

	if m.pipelineErr != nil && !m.pipelinesStale {
		lines = append(lines, theme.ErrorStyle.Render(fmt.Sprintf("Error loading pipelines: %v", m.pipelineErr)))
	}
	if len(m.pipelines) == 0 {
		lines = append(lines, metaStyle.Italic(true).Render("No pipelines yet. Press 't' to collect data."))
		return strings.Join(lines, "\n")
	}
	for i, p := range m.pipelines {
		line := renderPipelineLine(p, now)
		if i == m.pipeCursor {
			lines = append(lines, theme.SelectedItemStyle.Render(line))
		} else {
			lines = append(lines, theme.ListItemStyle.Render(line))
		}
	}
	return strings.Join(lines, "\n")
}

func renderPipelineLine(p model.Pipeline, now time.Time) string {
	status := theme.PipelineStatusStyle(string(p.Status)).Render(fmt.Sprintf("%-15s", p.Status.Label()))
	started := "-"
	if p.BeganAt != nil {
		started = p.BeganAt.In(now.Location()).Format(timeFormat)
	}
	dur := p.Duration(now).Round(time.Second)
	return fmt.Sprintf("#%-6d %s %d/%d tasks  %s  %s",
		p.ID, status, p.FinishedTasks, p.TotalTasks, started, dur)
}

// renderPolicyPreview shows the next runs of the policy being edited.
func (m Model) renderPolicyPreview() string {
	now := m.now()
	bp := m.fs.Blueprint()
	isManual, expr := m.policyExpression(bp.CronConfig)
	d := cronpolicy.Describe(isManual, expr, now)

	header := titleStyle.Render(fmt.Sprintf("Next Three Runs (UTC%s)", cronpolicy.UTCOffsetLabel(now)))
	switch {
	case isManual:
		return header + "\n" + metaStyle.Render("Manual: runs only when triggered")
	case !d.Valid:
		return header + "\n" + theme.ErrorStyle.Render(errInvalidCronInput.Error())
	}
	lines := []string{header}
	for _, t := range d.NextTimes {
		lines = append(lines, valStyle.Render("  "+t.Format(timeFormat)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) hints(bp model.Blueprint) string {
	if m.panel == PanelStatus {
		h := "tab config | t collect | R re-transform | F full refresh | enter pipeline"
		if !bp.BelongsToProject() {
			h += " | E enable | d delete"
		}
		return h + " | esc back"
	}
	if bp.Mode == model.ModeAdvanced {
		return "tab status | e rename | p policy | J plan | t collect | esc back"
	}
	return "tab status | e rename | p policy | a/x connection | s scopes | T transformation | M advanced | esc back"
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
