package blueprint

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/lakeconsole/internal/cronpolicy"
	"github.com/nhle/lakeconsole/internal/model"
)

// DefaultCollectionMonths is how far back a new NORMAL blueprint collects.
const DefaultCollectionMonths = 6

// NewCreatePayload builds the body of POST /blueprints for the create dialog.
func NewCreatePayload(name string, mode model.BlueprintMode, now time.Time) (model.Blueprint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Blueprint{}, ErrNameRequired
	}

	bp := model.Blueprint{
		Name:       name,
		Mode:       mode,
		Enable:     true,
		IsManual:   false,
		CronConfig: cronpolicy.Presets[0].Config,
		SkipOnFail: true,
	}

	switch mode {
	case model.ModeNormal:
		start := now.AddDate(0, -DefaultCollectionMonths, 0)
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location()).UTC()
		bp.TimeAfter = &start
		bp.Connections = []model.BlueprintConnection{}
	case model.ModeAdvanced:
		bp.Plan = append(json.RawMessage(nil), model.EmptyPlan...)
	default:
		return model.Blueprint{}, fmt.Errorf("unknown blueprint mode %q", mode)
	}
	return bp, nil
}

// Trigger actions offered on the status panel.
var (
	// RunNow collects and transforms incrementally.
	RunNow = model.TriggerOptions{}

	// Retransform reruns the transformations on already collected data.
	Retransform = model.TriggerOptions{SkipCollectors: true}

	// FullRefresh deletes collected data and collects everything again.
	FullRefresh = model.TriggerOptions{FullSync: true}
)

// TriggerLabel names a trigger action for status messages.
func TriggerLabel(opts model.TriggerOptions) string {
	switch {
	case opts.FullSync:
		return "Full refresh"
	case opts.SkipCollectors:
		return "Re-transform"
	default:
		return "Collect data"
	}
}
