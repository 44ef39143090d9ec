package model

import (
	"encoding/json"
	"time"
)

// BlueprintMode selects how a blueprint describes its work.
type BlueprintMode string

const (
	// ModeNormal blueprints are built from connections and scopes.
	ModeNormal BlueprintMode = "NORMAL"

	// ModeAdvanced blueprints carry a hand-written JSON plan.
	ModeAdvanced BlueprintMode = "ADVANCED"
)

// EmptyPlan is the plan seeded into new ADVANCED blueprints: one empty stage.
var EmptyPlan = json.RawMessage(`[[]]`)

// BlueprintScope identifies a single scope within a blueprint connection.
type BlueprintScope struct {
	ScopeID   string `json:"scopeId" yaml:"scopeId"`
	ScopeName string `json:"scopeName,omitempty" yaml:"scopeName,omitempty"`
}

// BlueprintConnection associates a plugin connection with scopes in a blueprint.
type BlueprintConnection struct {
	PluginName   string           `json:"pluginName" yaml:"pluginName"`
	ConnectionID int              `json:"connectionId" yaml:"connectionId"`
	Scopes       []BlueprintScope `json:"scopes" yaml:"scopes"`
}

// Key returns the "plugin-id" form used to address a connection in the UI.
func (c BlueprintConnection) Key() string {
	return ConnectionKey(c.PluginName, c.ConnectionID)
}

// Matches reports whether the connection is the given plugin connection.
func (c BlueprintConnection) Matches(plugin string, connectionID int) bool {
	return c.PluginName == plugin && c.ConnectionID == connectionID
}

// Blueprint is a named, schedulable data-collection-and-transformation plan.
//
// In NORMAL mode Connections and TimeAfter are authoritative and Plan is
// unused. In ADVANCED mode Plan is authoritative and Connections/TimeAfter
// are left out of the wire payload.
type Blueprint struct {
	ID          int                   `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string                `json:"name" yaml:"name"`
	Mode        BlueprintMode         `json:"mode" yaml:"mode"`
	Enable      bool                  `json:"enable" yaml:"enable"`
	IsManual    bool                  `json:"isManual" yaml:"isManual"`
	CronConfig  string                `json:"cronConfig" yaml:"cronConfig"`
	SkipOnFail  bool                  `json:"skipOnFail" yaml:"skipOnFail"`
	TimeAfter   *time.Time            `json:"timeAfter,omitempty" yaml:"timeAfter,omitempty"`
	Connections []BlueprintConnection `json:"connections,omitempty" yaml:"connections,omitempty"`
	Plan        json.RawMessage       `json:"plan,omitempty" yaml:"-"`
	ProjectName string                `json:"projectName,omitempty" yaml:"projectName,omitempty"`
	Labels      []string              `json:"labels,omitempty" yaml:"labels,omitempty"`
	CreatedAt   *time.Time            `json:"createdAt,omitempty" yaml:"-"`
	UpdatedAt   *time.Time            `json:"updatedAt,omitempty" yaml:"-"`
}

// blueprintWire mirrors Blueprint with pointer fields so that mode-dependent
// fields can be emitted or dropped explicitly.
type blueprintWire struct {
	ID          int                    `json:"id,omitempty"`
	Name        string                 `json:"name"`
	Mode        BlueprintMode          `json:"mode"`
	Enable      bool                   `json:"enable"`
	IsManual    bool                   `json:"isManual"`
	CronConfig  string                 `json:"cronConfig"`
	SkipOnFail  bool                   `json:"skipOnFail"`
	TimeAfter   *time.Time             `json:"timeAfter,omitempty"`
	Connections *[]BlueprintConnection `json:"connections,omitempty"`
	Plan        json.RawMessage        `json:"plan,omitempty"`
	ProjectName string                 `json:"projectName,omitempty"`
	Labels      []string               `json:"labels,omitempty"`
}

// MarshalJSON emits only the fields relevant to the blueprint's mode.
// NORMAL blueprints always carry a connections array (possibly empty).
func (b Blueprint) MarshalJSON() ([]byte, error) {
	w := blueprintWire{
		ID:          b.ID,
		Name:        b.Name,
		Mode:        b.Mode,
		Enable:      b.Enable,
		IsManual:    b.IsManual,
		CronConfig:  b.CronConfig,
		SkipOnFail:  b.SkipOnFail,
		ProjectName: b.ProjectName,
		Labels:      b.Labels,
	}

	switch b.Mode {
	case ModeAdvanced:
		w.Plan = b.Plan
		if len(w.Plan) == 0 {
			w.Plan = EmptyPlan
		}
	default:
		conns := b.Connections
		if conns == nil {
			conns = []BlueprintConnection{}
		}
		w.Connections = &conns
		w.TimeAfter = b.TimeAfter
	}

	return json.Marshal(w)
}

// Clone returns a deep copy so that working copies never alias the
// blueprint they were loaded from.
func (b Blueprint) Clone() Blueprint {
	out := b
	if b.TimeAfter != nil {
		t := *b.TimeAfter
		out.TimeAfter = &t
	}
	if b.Connections != nil {
		out.Connections = make([]BlueprintConnection, len(b.Connections))
		for i, c := range b.Connections {
			c.Scopes = append([]BlueprintScope(nil), c.Scopes...)
			out.Connections[i] = c
		}
	}
	if b.Plan != nil {
		out.Plan = append(json.RawMessage(nil), b.Plan...)
	}
	if b.Labels != nil {
		out.Labels = append([]string(nil), b.Labels...)
	}
	return out
}

// FindConnection returns the connection for plugin/id, if present.
func (b Blueprint) FindConnection(plugin string, connectionID int) (BlueprintConnection, bool) {
	for _, c := range b.Connections {
		if c.Matches(plugin, connectionID) {
			return c, true
		}
	}
	return BlueprintConnection{}, false
}

// BelongsToProject reports whether the blueprint is owned by a project.
// Project blueprints cannot be disabled or deleted from the blueprint views.
func (b Blueprint) BelongsToProject() bool {
	return b.ProjectName != ""
}

// BlueprintList is the paged response of GET /blueprints.
type BlueprintList struct {
	Blueprints []Blueprint `json:"blueprints"`
	Count      int         `json:"count"`
}

// TriggerOptions is the body of POST /blueprints/{id}/trigger.
type TriggerOptions struct {
	SkipCollectors bool `json:"skipCollectors"`
	FullSync       bool `json:"fullSync"`
}
