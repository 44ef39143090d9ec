// Package blueprint holds the editable working copy of a blueprint and the
// rules for turning it into create and update payloads.
package blueprint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/lakeconsole/internal/cronpolicy"
	"github.com/nhle/lakeconsole/internal/model"
)

// Advisory is a follow-up the console offers after an edit.
type Advisory int

const (
	// NoAdvisory means nothing needs to be suggested.
	NoAdvisory Advisory = iota

	// RecollectAdvisory suggests running a full collection because the set of
	// connections or scopes changed.
	RecollectAdvisory
)

// Message is the operator-facing text of the advisory.
func (a Advisory) Message() string {
	if a == RecollectAdvisory {
		return "Connections changed. Collect data again to refresh the project?"
	}
	return ""
}

// FormState is the working copy of one blueprint while it is being edited.
// It is owned by a single view and discarded when that view closes.
type FormState struct {
	bp model.Blueprint
}

// NewFormState starts a working copy of bp. bp itself is never modified.
func NewFormState(bp model.Blueprint) *FormState {
	fs := &FormState{bp: bp.Clone()}
	if fs.bp.Mode == "" {
		fs.bp.Mode = model.ModeNormal
	}
	return fs
}

// Blueprint returns a copy of the current working state.
func (f *FormState) Blueprint() model.Blueprint {
	return f.bp.Clone()
}

// Snapshot captures the state before an action so that a failed request can
// be rolled back with Restore.
func (f *FormState) Snapshot() model.Blueprint {
	return f.bp.Clone()
}

// Restore replaces the working copy with a snapshot.
func (f *FormState) Restore(snap model.Blueprint) {
	f.bp = snap.Clone()
}

// SetName updates the blueprint name.
func (f *FormState) SetName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	f.bp.Name = name
	return nil
}

// SetMode switches the blueprint mode. Going from NORMAL to ADVANCED drops
// connections and time range and seeds an empty plan. ADVANCED blueprints
// cannot go back.
func (f *FormState) SetMode(mode model.BlueprintMode) error {
	if mode == f.bp.Mode {
		return nil
	}
	switch mode {
	case model.ModeAdvanced:
		f.bp.Mode = model.ModeAdvanced
		f.bp.Connections = nil
		f.bp.TimeAfter = nil
		f.bp.Plan = append(json.RawMessage(nil), model.EmptyPlan...)
		return nil
	case model.ModeNormal:
		return ErrIrreversibleMode
	default:
		return fmt.Errorf("unknown blueprint mode %q", mode)
	}
}

// SetPolicy replaces the sync policy. The cron expression is only checked
// when the blueprint is not manual.
func (f *FormState) SetPolicy(isManual bool, cronConfig string, skipOnFail bool, timeAfter *time.Time) error {
	if !isManual {
		if err := cronpolicy.Validate(cronConfig); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCron, err)
		}
	}
	if !isManual {
		cronConfig = cronpolicy.Normalize(cronConfig)
	}
	f.bp.IsManual = isManual
	f.bp.CronConfig = cronConfig
	f.bp.SkipOnFail = skipOnFail
	if f.bp.Mode == model.ModeNormal {
		if timeAfter != nil {
			t := timeAfter.UTC()
			f.bp.TimeAfter = &t
		} else {
			f.bp.TimeAfter = nil
		}
	}
	return nil
}

// SetEnable toggles whether the backend schedules the blueprint.
func (f *FormState) SetEnable(enable bool) {
	f.bp.Enable = enable
}

// RemoveConnection drops the plugin connection and returns the resulting
// blueprint. Removing a connection that is not present changes nothing and
// asks for no follow-up.
func (f *FormState) RemoveConnection(plugin string, connectionID int) (model.Blueprint, Advisory) {
	kept := make([]model.BlueprintConnection, 0, len(f.bp.Connections))
	for _, c := range f.bp.Connections {
		if !c.Matches(plugin, connectionID) {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(f.bp.Connections) {
		return f.Blueprint(), NoAdvisory
	}
	f.bp.Connections = kept
	return f.Blueprint(), RecollectAdvisory
}

// AddConnection appends a plugin connection to a NORMAL blueprint.
func (f *FormState) AddConnection(conn model.BlueprintConnection) error {
	if f.bp.Mode != model.ModeNormal {
		return fmt.Errorf("connections can only be added in %s mode", model.ModeNormal)
	}
	if _, ok := f.bp.FindConnection(conn.PluginName, conn.ConnectionID); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateConnection, conn.Key())
	}
	conn.Scopes = append([]model.BlueprintScope(nil), conn.Scopes...)
	f.bp.Connections = append(f.bp.Connections, conn)
	return nil
}

// SetScopes replaces the scopes of one connection. Unknown connections are
// left alone.
func (f *FormState) SetScopes(plugin string, connectionID int, scopes []model.BlueprintScope) (model.Blueprint, Advisory) {
	for i, c := range f.bp.Connections {
		if !c.Matches(plugin, connectionID) {
			continue
		}
		if sameScopes(c.Scopes, scopes) {
			return f.Blueprint(), NoAdvisory
		}
		f.bp.Connections[i].Scopes = append([]model.BlueprintScope(nil), scopes...)
		return f.Blueprint(), RecollectAdvisory
	}
	return f.Blueprint(), NoAdvisory
}

func sameScopes(a, b []model.BlueprintScope) bool {
	as, bs := scopeSet(a), scopeSet(b)
	if len(as) != len(bs) {
		return false
	}
	for id := range bs {
		if _, ok := as[id]; !ok {
			return false
		}
	}
	return true
}

func scopeSet(scopes []model.BlueprintScope) map[string]struct{} {
	set := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		set[s.ScopeID] = struct{}{}
	}
	return set
}

// SetPlanJSON replaces the plan of an ADVANCED blueprint. raw must be a JSON
// array whose elements are arrays (stages of tasks).
func (f *FormState) SetPlanJSON(raw string) error {
	plan, err := ParsePlan(raw)
	if err != nil {
		return err
	}
	f.bp.Plan = plan
	return nil
}

// ParsePlan validates and compacts a plan document.
func ParsePlan(raw string) (json.RawMessage, error) {
	var stages []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &stages); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	if stages == nil {
		return nil, fmt.Errorf("%w: plan must be an array", ErrInvalidPlan)
	}
	for i, stage := range stages {
		var tasks []json.RawMessage
		if err := json.Unmarshal(stage, &tasks); err != nil || tasks == nil {
			return nil, fmt.Errorf("%w: stage %d is not an array", ErrInvalidPlan, i+1)
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(raw)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	return json.RawMessage(buf.Bytes()), nil
}

// PlanText pretty-prints the current plan for the editor.
func (f *FormState) PlanText() string {
	plan := f.bp.Plan
	if len(plan) == 0 {
		plan = model.EmptyPlan
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, plan, "", "  "); err != nil {
		return string(plan)
	}
	return buf.String()
}

// Validate checks everything the backend would otherwise reject.
func (f *FormState) Validate() error {
	if strings.TrimSpace(f.bp.Name) == "" {
		return ErrNameRequired
	}
	if !f.bp.IsManual {
		if err := cronpolicy.Validate(f.bp.CronConfig); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCron, err)
		}
	}
	if f.bp.Mode == model.ModeAdvanced {
		if _, err := ParsePlan(string(f.bp.Plan)); err != nil {
			return err
		}
	}
	return nil
}

// ToUpdatePayload returns the full object sent with PUT /blueprints/{id}.
// Fields that do not belong to the current mode are cleared.
func (f *FormState) ToUpdatePayload() model.Blueprint {
	bp := f.Blueprint()
	switch bp.Mode {
	case model.ModeAdvanced:
		bp.Connections = nil
		bp.TimeAfter = nil
		if len(bp.Plan) == 0 {
			bp.Plan = append(json.RawMessage(nil), model.EmptyPlan...)
		}
	default:
		bp.Plan = nil
		if bp.Connections == nil {
			bp.Connections = []model.BlueprintConnection{}
		}
	}
	return bp
}
