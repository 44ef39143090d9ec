package blueprintdetail

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nhle/lakeconsole/internal/blueprint"
	"github.com/nhle/lakeconsole/internal/cronpolicy"
	"github.com/nhle/lakeconsole/internal/model"
	"github.com/nhle/lakeconsole/internal/ui"
)

// --- Opening dialogs ---

func (m Model) openRename() (Model, tea.Cmd) {
	m.fb.name = m.fs.Blueprint().Name
	return m.reopen(ModeRename)
}

func (m Model) openPolicy() (Model, tea.Cmd) {
	bp := m.fs.Blueprint()
	m.fb.frequency = cronpolicy.SelectedLabel(bp.IsManual, bp.CronConfig)
	m.fb.cron = cronpolicy.Fields(bp.CronConfig)
	if m.fb.frequency != cronpolicy.LabelCustom {
		m.fb.cron = cronpolicy.Fields(cronpolicy.DefaultCustom)
	}
	m.fb.timeRange = ""
	m.fb.skipOnFail = bp.SkipOnFail
	return m.reopen(ModePolicy)
}

func (m Model) openAddConnection() (Model, tea.Cmd) {
	m.fb.plugin = ""
	m.fb.connectionID = ""
	m.fb.scopeIDs = ""
	return m.reopen(ModeAddConnection)
}

func (m Model) openScopes() (Model, tea.Cmd) {
	conn, _ := m.selectedConnection()
	ids := make([]string, len(conn.Scopes))
	for i, s := range conn.Scopes {
		ids[i] = s.ScopeID
	}
	m.fb.scopeIDs = strings.Join(ids, ", ")
	return m.reopen(ModeScopes)
}

func (m Model) openPlan() (Model, tea.Cmd) {
	m.fb.plan = m.fs.PlanText()
	return m.reopen(ModePlan)
}

func (m Model) openConfirm(action confirmAction) (Model, tea.Cmd) {
	m.confirm = action
	m.fb.confirm = false
	m.form = m.buildConfirmForm()
	m.mode = ModeConfirm
	return m, m.form.Init()
}

// --- Form builders ---

func (m Model) buildRenameForm() *huh.Form {
	return ui.NewForm(m.width,
		huh.NewGroup(
			huh.NewInput().
				Title("Blueprint Name").
				Value(&m.fb.name).
				Validate(validateRequired("Name")),
		),
	)
}

func (m Model) buildPolicyForm() *huh.Form {
	bp := m.fs.Blueprint()
	now := m.now()

	freqOpts := make([]huh.Option[string], 0, len(cronpolicy.Presets)+2)
	for _, o := range cronpolicy.Options() {
		label := o.Label
		if o.SubLabel != "" {
			label += " " + o.SubLabel
		}
		freqOpts = append(freqOpts, huh.NewOption(label, o.Label))
	}

	fields := []huh.Field{
		huh.NewSelect[string]().
			Title("Sync Frequency").
			Description("Times are shown in UTC" + cronpolicy.UTCOffsetLabel(now)).
			Options(freqOpts...).
			Value(&m.fb.frequency),
		huh.NewConfirm().
			Title("Skip failed tasks").
			Description("Keep running the pipeline when a task fails").
			Affirmative("Yes").
			Negative("No").
			Value(&m.fb.skipOnFail),
	}

	if bp.Mode == model.ModeNormal {
		keep := "Keep current"
		if bp.TimeAfter != nil {
			keep = fmt.Sprintf("Keep current (since %s)", bp.TimeAfter.In(now.Location()).Format("2006-01-02"))
		}
		rangeOpts := []huh.Option[string]{huh.NewOption(keep, "")}
		for _, o := range cronpolicy.TimeRangeOptions(now) {
			rangeOpts = append(rangeOpts, huh.NewOption(o.Label, cronpolicy.FormatTimeAfter(o.Date)))
		}
		fields = append(fields,
			huh.NewSelect[string]().
				Title("Data Time Range").
				Description("Collect data updated after this date").
				Options(rangeOpts...).
				Value(&m.fb.timeRange),
		)
	}

	cronFields := make([]huh.Field, 0, 5)
	for i, name := range cronpolicy.FieldNames {
		cronFields = append(cronFields,
			huh.NewInput().
				Title(name).
				Value(&m.fb.cron[i]).
				Validate(m.validateCronField(i)),
		)
	}

	fb := m.fb
	return ui.NewForm(m.width,
		huh.NewGroup(fields...),
		huh.NewGroup(cronFields...).
			Title("Custom Cron").
			Description("Minute Hour Day Month Week").
			WithHideFunc(func() bool { return fb.frequency != cronpolicy.LabelCustom }),
	)
}

var errInvalidCronInput = errors.New("Invalid Cron code, please enter again.")

// validateCronField rejects empty fields; the last field also checks the
// complete expression.
func (m Model) validateCronField(index int) func(string) error {
	fb := m.fb
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", cronpolicy.FieldNames[index])
		}
		if index != cronpolicy.FieldWeekday {
			return nil
		}
		expr := cronpolicy.SetField(cronpolicy.Join(fb.cron), index, strings.TrimSpace(s))
		if err := cronpolicy.Validate(expr); err != nil {
			return errInvalidCronInput
		}
		return nil
	}
}

func (m Model) buildAddConnectionForm() *huh.Form {
	return ui.NewForm(m.width,
		huh.NewGroup(
			huh.NewInput().
				Title("Plugin").
				Description("Data source plugin (e.g., github, jira, tapd)").
				Value(&m.fb.plugin).
				Validate(validatePlugin),
			huh.NewInput().
				Title("Connection ID").
				Value(&m.fb.connectionID).
				Validate(validateID),
			huh.NewInput().
				Title("Scope IDs").
				Description("Comma-separated; can be edited later").
				Value(&m.fb.scopeIDs),
		),
	)
}

func (m Model) buildScopesForm() *huh.Form {
	conn, _ := m.selectedConnection()
	return ui.NewForm(m.width,
		huh.NewGroup(
			huh.NewInput().
				Title("Scopes of "+conn.Key()).
				Description("Comma-separated scope IDs").
				Value(&m.fb.scopeIDs),
		),
	)
}

func (m Model) buildPlanForm() *huh.Form {
	return ui.NewForm(m.width,
		huh.NewGroup(
			huh.NewText().
				Title("JSON Plan").
				Description("An array of stages, each an array of tasks").
				Lines(12).
				CharLimit(0).
				Value(&m.fb.plan).
				Validate(func(s string) error {
					_, err := blueprint.ParsePlan(s)
					return err
				}),
		),
	)
}

func (m Model) buildConfirmForm() *huh.Form {
	var title, description, yes string
	switch m.confirm {
	case confirmFullRefresh:
		title = "Run a full refresh?"
		description = "Collected data is deleted and collected again from scratch."
		yes = "Yes, refresh"
	case confirmDelete:
		title = fmt.Sprintf("Delete blueprint %q?", m.fs.Blueprint().Name)
		description = "The blueprint and its schedule are removed."
		yes = "Yes, delete"
	case confirmRemoveConnection:
		title = fmt.Sprintf("Remove connection %s?", m.confirmTarget.Key())
		description = "Its scopes are no longer collected by this blueprint."
		yes = "Yes, remove"
	case confirmRecollect:
		title = blueprint.RecollectAdvisory.Message()
		yes = "Collect data"
	case confirmAdvanced:
		title = "Switch to advanced mode?"
		description = "Connections and the data time range are dropped. This cannot be undone."
		yes = "Yes, switch"
	}

	return ui.NewForm(m.width,
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative(yes).
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	)
}

// --- Form updates ---

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		m.mode = ModeView
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m.submit()
	}
	if m.form.State == huh.StateAborted {
		m.mode = ModeView
		m.confirm = confirmNone
		return m, nil
	}

	return m, cmd
}

func (m Model) submit() (Model, tea.Cmd) {
	switch m.mode {
	case ModeRename:
		return m.submitRename()
	case ModePolicy:
		return m.submitPolicy()
	case ModeAddConnection:
		return m.submitAddConnection()
	case ModeScopes:
		return m.submitScopes()
	case ModePlan:
		return m.submitPlan()
	case ModeConfirm:
		return m.submitConfirm()
	}
	m.mode = ModeView
	return m, nil
}

func (m Model) submitRename() (Model, tea.Cmd) {
	name := m.fb.name
	return m.save("renaming blueprint", ModeRename, func(fs *blueprint.FormState) (blueprint.Advisory, error) {
		return blueprint.NoAdvisory, fs.SetName(name)
	})
}

func (m Model) submitPolicy() (Model, tea.Cmd) {
	bp := m.fs.Blueprint()
	isManual, cron := m.policyExpression(bp.CronConfig)
	skipOnFail := m.fb.skipOnFail

	timeAfter := bp.TimeAfter
	if m.fb.timeRange != "" {
		t, err := time.Parse(cronpolicy.TimeAfterFormat, m.fb.timeRange)
		if err != nil {
			m.statusMsg = fmt.Sprintf("Error updating sync policy: %v", err)
			return m.reopen(ModePolicy)
		}
		timeAfter = &t
	}

	return m.save("updating sync policy", ModePolicy, func(fs *blueprint.FormState) (blueprint.Advisory, error) {
		return blueprint.NoAdvisory, fs.SetPolicy(isManual, cron, skipOnFail, timeAfter)
	})
}

// policyExpression resolves the frequency choice into (isManual, cron).
func (m Model) policyExpression(current string) (bool, string) {
	if m.fb.frequency == cronpolicy.LabelCustom {
		fields := m.fb.cron
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		return false, cronpolicy.Join(fields)
	}
	sel := cronpolicy.Select(m.fb.frequency, current)
	return sel.IsManual, sel.CronConfig
}

func (m Model) submitAddConnection() (Model, tea.Cmd) {
	id, err := strconv.Atoi(strings.TrimSpace(m.fb.connectionID))
	if err != nil {
		m.statusMsg = fmt.Sprintf("Error adding connection: %v", err)
		return m.reopen(ModeAddConnection)
	}
	conn := model.BlueprintConnection{
		PluginName:   strings.TrimSpace(m.fb.plugin),
		ConnectionID: id,
		Scopes:       parseScopeIDs(m.fb.scopeIDs, nil),
	}
	if _, dup := m.fs.Blueprint().FindConnection(conn.PluginName, conn.ConnectionID); dup {
		m.statusMsg = errorText("adding connection", fmt.Errorf("%w: %s", blueprint.ErrDuplicateConnection, conn.Key()))
		return m.reopen(ModeAddConnection)
	}
	m.mode = ModeView
	m.statusMsg = "Checking connection..."
	return m, m.checkConnection(conn)
}

func (m Model) submitScopes() (Model, tea.Cmd) {
	conn, ok := m.selectedConnection()
	if !ok {
		m.mode = ModeView
		return m, nil
	}
	scopes := parseScopeIDs(m.fb.scopeIDs, conn.Scopes)
	if len(scopes) == 0 {
		m.statusMsg = "A connection needs at least one scope; remove the connection instead"
		return m.reopen(ModeScopes)
	}

	trial := blueprint.NewFormState(m.fs.Blueprint())
	if _, adv := trial.SetScopes(conn.PluginName, conn.ConnectionID, scopes); adv == blueprint.NoAdvisory {
		m.mode = ModeView
		m.statusMsg = "Scopes unchanged"
		return m, nil
	}

	return m.save("updating scopes", ModeScopes, func(fs *blueprint.FormState) (blueprint.Advisory, error) {
		_, adv := fs.SetScopes(conn.PluginName, conn.ConnectionID, scopes)
		return adv, nil
	})
}

func (m Model) submitPlan() (Model, tea.Cmd) {
	plan := m.fb.plan
	return m.save("updating plan", ModePlan, func(fs *blueprint.FormState) (blueprint.Advisory, error) {
		return blueprint.NoAdvisory, fs.SetPlanJSON(plan)
	})
}

func (m Model) submitConfirm() (Model, tea.Cmd) {
	action := m.confirm
	m.confirm = confirmNone
	m.mode = ModeView
	if !m.fb.confirm {
		return m, nil
	}

	switch action {
	case confirmFullRefresh:
		return m, m.trigger(blueprint.FullRefresh)
	case confirmRecollect:
		return m, m.trigger(blueprint.RunNow)
	case confirmDelete:
		return m, m.deleteBlueprint()
	case confirmRemoveConnection:
		target := m.confirmTarget
		return m.save("removing connection", ModeView, func(fs *blueprint.FormState) (blueprint.Advisory, error) {
			_, adv := fs.RemoveConnection(target.PluginName, target.ConnectionID)
			return adv, nil
		})
	case confirmAdvanced:
		return m.save("switching to advanced mode", ModeView, func(fs *blueprint.FormState) (blueprint.Advisory, error) {
			return blueprint.NoAdvisory, fs.SetMode(model.ModeAdvanced)
		})
	}
	return m, nil
}

// parseScopeIDs splits a comma-separated list, keeping the names of scopes
// that were already known.
func parseScopeIDs(raw string, known []model.BlueprintScope) []model.BlueprintScope {
	names := make(map[string]string, len(known))
	for _, s := range known {
		names[s.ScopeID] = s.ScopeName
	}
	seen := make(map[string]bool)
	var out []model.BlueprintScope
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, model.BlueprintScope{ScopeID: id, ScopeName: names[id]})
	}
	return out
}

// --- Validators ---

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validatePlugin(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("plugin is required")
	}
	if strings.Contains(s, "-") {
		return fmt.Errorf("plugin names cannot contain '-'")
	}
	return nil
}

func validateID(s string) error {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return fmt.Errorf("must be a positive number")
	}
	return nil
}
