package cronpolicy

import (
	"strconv"
	"strings"
	"time"
)

// Fields splits an expression into its five fields. Runs of whitespace
// separate fields the same way Parse reads them. An expression that does not
// have five fields is split on single spaces instead, so a field cleared
// while typing keeps its position.
func Fields(expr string) [5]string {
	var out [5]string
	parts := strings.Fields(expr)
	if len(parts) != len(out) {
		parts = strings.Split(expr, " ")
	}
	for i := 0; i < len(out) && i < len(parts); i++ {
		out[i] = parts[i]
	}
	return out
}

// Normalize rewrites a valid expression into the form the backend stores:
// single spaces between fields and Sunday written as 0 in the weekday field.
// Anything that is not five fields is returned unchanged.
func Normalize(expr string) string {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return expr
	}
	fields[FieldWeekday] = sundayAsZero(fields[FieldWeekday])
	return strings.Join(fields, " ")
}

// sundayAsZero maps weekday 7 to 0 in every list element, range and step of
// a weekday field.
func sundayAsZero(field string) string {
	parts := strings.Split(field, ",")
	for i, part := range parts {
		rng, step, hasStep := strings.Cut(part, "/")
		lo, hi, isRange := strings.Cut(rng, "-")
		switch {
		case !isRange && rng == "7":
			parts[i] = "0"
			if hasStep {
				parts[i] += "/" + step
			}
		case isRange && hi == "7" && lo != "7":
			parts[i] = lo + "-6"
			n := 1
			if hasStep {
				parts[i] += "/" + step
				n, _ = strconv.Atoi(step)
			}
			from, err := strconv.Atoi(lo)
			if err == nil && n > 0 && (7-from)%n == 0 {
				parts[i] += ",0"
			}
		}
	}
	return strings.Join(parts, ",")
}

// Join re-assembles the five fields in order.
func Join(fields [5]string) string {
	return strings.Join(fields[:], " ")
}

// SetField returns expr with the field at index replaced by value. The other
// four fields are kept as they are; expr itself is never modified.
func SetField(expr string, index int, value string) string {
	if index < 0 || index >= 5 {
		return expr
	}
	fields := Fields(expr)
	fields[index] = value
	return Join(fields)
}

// Selection is the outcome of picking an entry in the frequency selector.
type Selection struct {
	IsManual   bool
	CronConfig string
}

// Select applies a frequency choice by label. Manual keeps the current
// expression, Custom resets it to DefaultCustom, a preset installs its own.
func Select(label string, current string) Selection {
	switch label {
	case LabelManual:
		return Selection{IsManual: true, CronConfig: current}
	case LabelCustom:
		return Selection{CronConfig: DefaultCustom}
	}
	if p, ok := PresetByLabel(label); ok {
		return Selection{CronConfig: p.Config}
	}
	return Selection{CronConfig: current}
}

// SelectedLabel is the selector entry matching a policy.
func SelectedLabel(isManual bool, cronConfig string) string {
	if isManual {
		return LabelManual
	}
	if p, ok := PresetByConfig(cronConfig); ok {
		return p.Label
	}
	return LabelCustom
}

// TimeRangeOption is a quick choice for the data time range filter.
type TimeRangeOption struct {
	Label string
	Date  time.Time
}

// TimeAfterFormat is the wire format of blueprint timeAfter values.
const TimeAfterFormat = "2006-01-02T15:04:05Z07:00"

// TimeRangeOptions returns the quick time-range choices relative to now.
func TimeRangeOptions(now time.Time) []TimeRangeOption {
	return []TimeRangeOption{
		{Label: "Last 6 months", Date: now.AddDate(0, -6, 0)},
		{Label: "Last 90 days", Date: now.AddDate(0, 0, -90)},
		{Label: "Last 30 days", Date: now.AddDate(0, 0, -30)},
		{Label: "Last Year", Date: now.AddDate(-1, 0, 0)},
	}
}

// FormatTimeAfter renders a time-range start in UTC wire form.
func FormatTimeAfter(t time.Time) string {
	return t.UTC().Format(TimeAfterFormat)
}

// UTCOffsetLabel renders the viewer's zone offset, e.g. "+8" or "-5:30".
func UTCOffsetLabel(now time.Time) string {
	s := now.Format("-07:00")
	s = strings.TrimSuffix(s, ":00")
	sign, rest := s[:1], strings.TrimLeft(s[1:], "0")
	if rest == "" || strings.HasPrefix(rest, ":") {
		rest = "0" + rest
	}
	return sign + rest
}
