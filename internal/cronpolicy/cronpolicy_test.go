package cronpolicy

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.March, 14, 10, 30, 0, 0, time.UTC)

func TestDescribeManual(t *testing.T) {
	d := Describe(true, "0 0 * * *", fixedNow)

	assert.Equal(t, LabelManual, d.Label)
	assert.True(t, d.Valid)
	assert.Empty(t, d.NextTimes)
	assert.True(t, d.NextTime.IsZero())
}

func TestDescribePresets(t *testing.T) {
	for _, p := range Presets {
		t.Run(p.Label, func(t *testing.T) {
			d := Describe(false, p.Config, fixedNow)
			assert.Equal(t, p.Label, d.Label)
			assert.Equal(t, p.Description, d.Description)
			assert.True(t, d.Valid)
			assert.Len(t, d.NextTimes, NextRunCount)
		})
	}
}

func TestDescribeDailyNextRuns(t *testing.T) {
	d := Describe(false, "0 0 * * *", fixedNow)

	require.True(t, d.Valid)
	assert.Equal(t, "Daily", d.Label)
	assert.Equal(t, []time.Time{
		time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 16, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 17, 0, 0, 0, 0, time.UTC),
	}, d.NextTimes)
	assert.Equal(t, d.NextTimes[0], d.NextTime)
}

func TestDescribeCustom(t *testing.T) {
	d := Describe(false, "*/15 * * * *", fixedNow)

	require.True(t, d.Valid)
	assert.Equal(t, LabelCustom, d.Label)
	assert.Equal(t, LabelCustom, d.Description)
	assert.Equal(t, []time.Time{
		time.Date(2024, time.March, 14, 10, 45, 0, 0, time.UTC),
		time.Date(2024, time.March, 14, 11, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 14, 11, 15, 0, 0, time.UTC),
	}, d.NextTimes)
}

func TestDescribeSundayAsSeven(t *testing.T) {
	d := Describe(false, "0 0 * * 7", fixedNow)

	require.True(t, d.Valid, "err = %v", d.Err)
	assert.Equal(t, []time.Time{
		time.Date(2024, time.March, 17, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 24, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
	}, d.NextTimes)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "0  0 * *   *", want: "0 0 * * *"},
		{in: "0 0 * * 7", want: "0 0 * * 0"},
		{in: "0 0 * * 1,7", want: "0 0 * * 1,0"},
		{in: "0 0 * * 5-7", want: "0 0 * * 5-6,0"},
		{in: "0 0 * * 1-7/2", want: "0 0 * * 1-6/2,0"},
		{in: "0 0 * * 2-7/2", want: "0 0 * * 2-6/2"},
		{in: "7 7 7 7 1-5", want: "7 7 7 7 1-5"},
		{in: "0 0 * *", want: "0 0 * *"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestDescribeUsesViewerLocation(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	now := time.Date(2024, time.March, 14, 10, 30, 0, 0, loc)

	d := Describe(false, "0 0 * * *", now)

	require.True(t, d.Valid)
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, loc), d.NextTime)
}

func TestDescribeInvalid(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{name: "empty", expr: ""},
		{name: "too few fields", expr: "0 0 * *"},
		{name: "too many fields", expr: "0 0 0 * * *"},
		{name: "garbage minute", expr: "abc * * * *"},
		{name: "hour out of range", expr: "0 25 * * *"},
		{name: "descriptor", expr: "@daily"},
		{name: "never fires", expr: "0 0 30 2 *"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Describe(false, tt.expr, fixedNow)
			assert.False(t, d.Valid)
			assert.Empty(t, d.NextTimes)
			assert.True(t, d.NextTime.IsZero())
			assert.True(t, errors.Is(d.Err, ErrInvalidCron), "err = %v", d.Err)
			assert.Equal(t, LabelCustom, d.Label)
		})
	}
}

func TestSetFieldIsPure(t *testing.T) {
	src := "0 0 * * 1"

	got := SetField(src, FieldHour, "6")

	assert.Equal(t, "0 6 * * 1", got)
	assert.Equal(t, "0 0 * * 1", src)
}

func TestSetFieldEachPosition(t *testing.T) {
	base := "1 2 3 4 5"
	want := []string{
		"x 2 3 4 5",
		"1 x 3 4 5",
		"1 2 x 4 5",
		"1 2 3 x 5",
		"1 2 3 4 x",
	}
	for i, w := range want {
		assert.Equal(t, w, SetField(base, i, "x"))
	}
	assert.Equal(t, base, SetField(base, 7, "x"))
}

func TestFieldsCollapsesRepeatedSpaces(t *testing.T) {
	assert.Equal(t, [5]string{"0", "0", "*", "*", "1"}, Fields("0  0 * *  1"))
	assert.Equal(t, "0 6 * * 1", SetField("0  0 * *  1", FieldHour, "6"))
}

func TestSetFieldOnEmptyField(t *testing.T) {
	// Clearing a field while typing keeps the other four in place.
	got := SetField("*/5 * * * *", FieldMinute, "")
	assert.Equal(t, " * * * *", got)
	assert.Equal(t, "*/10 * * * *", SetField(got, FieldMinute, "*/10"))
}

func TestSelect(t *testing.T) {
	assert.Equal(t, Selection{IsManual: true, CronConfig: "5 4 * * *"}, Select(LabelManual, "5 4 * * *"))
	assert.Equal(t, Selection{CronConfig: DefaultCustom}, Select(LabelCustom, "0 0 * * *"))
	assert.Equal(t, Selection{CronConfig: "0 0 * * 1"}, Select("Weekly", "0 0 * * *"))
}

func TestSelectedLabel(t *testing.T) {
	assert.Equal(t, LabelManual, SelectedLabel(true, "0 0 * * *"))
	assert.Equal(t, "Monthly", SelectedLabel(false, "0 0 1 * *"))
	assert.Equal(t, LabelCustom, SelectedLabel(false, "5 5 * * *"))
}

func TestOptions(t *testing.T) {
	opts := Options()
	require.Len(t, opts, len(Presets)+2)
	assert.Equal(t, LabelManual, opts[len(opts)-2].Label)
	assert.Equal(t, LabelCustom, opts[len(opts)-1].Label)
	assert.Equal(t, Presets[0].Config, opts[0].Value)
}

func TestTimeRangeOptions(t *testing.T) {
	opts := TimeRangeOptions(fixedNow)
	require.Len(t, opts, 4)
	assert.Equal(t, "Last 6 months", opts[0].Label)
	assert.Equal(t, "2023-09-14T10:30:00Z", FormatTimeAfter(opts[0].Date))
}

func TestUTCOffsetLabel(t *testing.T) {
	assert.Equal(t, "+8", UTCOffsetLabel(time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("", 8*3600))))
	assert.Equal(t, "-5:30", UTCOffsetLabel(time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("", -(5*3600+1800)))))
	assert.Equal(t, "+0", UTCOffsetLabel(fixedNow))
	assert.Equal(t, "+10", UTCOffsetLabel(time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("", 10*3600))))
}
