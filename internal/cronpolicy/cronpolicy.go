// Package cronpolicy turns a blueprint's (isManual, cronConfig) pair into a
// human-readable schedule and its upcoming fire times.
package cronpolicy

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Labels that are not presets.
const (
	LabelManual = "Manual"
	LabelCustom = "Custom"
)

// DefaultCustom is the expression seeded when the operator switches to Custom.
const DefaultCustom = "* * * * *"

// NextRunCount is how many upcoming runs Describe computes.
const NextRunCount = 3

// Field indexes of a standard five-field expression.
const (
	FieldMinute = iota
	FieldHour
	FieldDay
	FieldMonth
	FieldWeekday
)

// FieldNames are the labels of the five fields in order.
var FieldNames = [5]string{"Minute", "Hour", "Day", "Month", "Week"}

// ErrInvalidCron is wrapped by every descriptor error.
var ErrInvalidCron = errors.New("invalid cron code")

// Preset is a named schedule offered in the frequency selector.
type Preset struct {
	Label       string
	Config      string
	Description string
}

// Presets is the fixed preset table. The first entry is the default for new
// blueprints.
var Presets = []Preset{
	{
		Label:       "Daily",
		Config:      "0 0 * * *",
		Description: "At 00:00 (Midnight) every day",
	},
	{
		Label:       "Hourly",
		Config:      "59 * * * *",
		Description: "At minute 59 of every hour",
	},
	{
		Label:       "Weekly",
		Config:      "0 0 * * 1",
		Description: "At 00:00 (Midnight) on Monday",
	},
	{
		Label:       "Monthly",
		Config:      "0 0 1 * *",
		Description: "At 00:00 (Midnight) on day 1 of the month",
	},
}

// Option is one choice of the frequency selector.
type Option struct {
	Label    string
	SubLabel string
	Value    string
}

// Options returns the presets followed by Manual and Custom.
func Options() []Option {
	opts := make([]Option, 0, len(Presets)+2)
	for _, p := range Presets {
		opts = append(opts, Option{
			Label:    p.Label,
			SubLabel: "(" + p.Description + ")",
			Value:    p.Config,
		})
	}
	opts = append(opts,
		Option{Label: LabelManual, Value: "manual"},
		Option{Label: LabelCustom, Value: "custom"},
	)
	return opts
}

// PresetByLabel looks up a preset by its label.
func PresetByLabel(label string) (Preset, bool) {
	for _, p := range Presets {
		if p.Label == label {
			return p, true
		}
	}
	return Preset{}, false
}

// PresetByConfig looks up a preset by exact expression match.
func PresetByConfig(config string) (Preset, bool) {
	for _, p := range Presets {
		if p.Config == config {
			return p, true
		}
	}
	return Preset{}, false
}

// Descriptor is the derived, never persisted view of a sync policy.
type Descriptor struct {
	Label       string
	Config      string
	Description string
	NextTime    time.Time
	NextTimes   []time.Time

	// Valid is false when the expression could not be expanded; Err says why.
	Valid bool
	Err   error
}

// Describe derives the schedule descriptor for a blueprint policy. Fire times
// are computed from now in now's location.
func Describe(isManual bool, cronConfig string, now time.Time) Descriptor {
	if isManual {
		return Descriptor{Label: LabelManual, Valid: true}
	}

	d := Descriptor{
		Label:       LabelCustom,
		Config:      cronConfig,
		Description: LabelCustom,
	}
	if p, ok := PresetByConfig(Normalize(cronConfig)); ok {
		d.Label = p.Label
		d.Description = p.Description
	}

	times, err := NextTimes(cronConfig, now, NextRunCount)
	if err != nil {
		d.Err = err
		return d
	}
	d.NextTimes = times
	d.NextTime = times[0]
	d.Valid = true
	return d
}

// Parse validates a five-field expression and returns its schedule.
func Parse(expr string) (cron.Schedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("%w: expected 5 fields, got %d", ErrInvalidCron, len(fields))
	}
	sched, err := cron.ParseStandard(Normalize(expr))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCron, err)
	}
	return sched, nil
}

// NextTimes returns the next n fire times strictly after now.
func NextTimes(expr string, now time.Time, n int) ([]time.Time, error) {
	sched, err := Parse(expr)
	if err != nil {
		return nil, err
	}

	out := make([]time.Time, 0, n)
	t := now
	for i := 0; i < n; i++ {
		t = sched.Next(t)
		// robfig/cron gives up after five years and returns the zero time.
		if t.IsZero() {
			return nil, fmt.Errorf("%w: %q never fires", ErrInvalidCron, expr)
		}
		out = append(out, t)
	}
	return out, nil
}

// Validate reports whether expr is a usable five-field expression.
func Validate(expr string) error {
	_, err := NextTimes(expr, time.Now(), 1)
	return err
}
