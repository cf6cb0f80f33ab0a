package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tod(t *testing.T, raw string) TimeOfDay {
	t.Helper()
	v, err := ParseTimeOfDay(raw)
	require.NoError(t, err)
	return v
}

func iv(t *testing.T, start, end string) Interval {
	t.Helper()
	return Interval{Start: tod(t, start), End: tod(t, end)}
}

func TestParseTimeOfDay(t *testing.T) {
	v, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(9*60+30), v)
	assert.Equal(t, "09:30", v.String())
	assert.Equal(t, "9:30 AM", v.Label())

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
	_, err = ParseTimeOfDay("next tuesday")
	assert.Error(t, err)
}

func TestTimeOfDayScan(t *testing.T) {
	var v TimeOfDay
	require.NoError(t, v.Scan("14:30:00"))
	assert.Equal(t, "14:30", v.String())

	require.NoError(t, v.Scan([]byte("08:00:00")))
	assert.Equal(t, "08:00", v.String())

	assert.Error(t, v.Scan(nil))
}

func TestMergeIntervals(t *testing.T) {
	tests := []struct {
		name string
		in   []Interval
		want []Interval
	}{
		{
			name: "disjoint stay separate",
			in:   []Interval{iv(t, "09:00", "10:00"), iv(t, "11:00", "12:00")},
			want: []Interval{iv(t, "09:00", "10:00"), iv(t, "11:00", "12:00")},
		},
		{
			name: "overlapping collapse to union",
			in:   []Interval{iv(t, "09:00", "11:00"), iv(t, "10:00", "12:00")},
			want: []Interval{iv(t, "09:00", "12:00")},
		},
		{
			name: "touching windows join",
			in:   []Interval{iv(t, "09:00", "10:00"), iv(t, "10:00", "11:00")},
			want: []Interval{iv(t, "09:00", "11:00")},
		},
		{
			name: "unsorted input is ordered",
			in:   []Interval{iv(t, "15:00", "16:00"), iv(t, "09:00", "10:00")},
			want: []Interval{iv(t, "09:00", "10:00"), iv(t, "15:00", "16:00")},
		},
		{
			name: "empty and inverted dropped",
			in:   []Interval{iv(t, "10:00", "10:00"), iv(t, "12:00", "11:00")},
			want: nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MergeIntervals(tc.in))
		})
	}
}

func TestSubtractIntervals(t *testing.T) {
	tests := []struct {
		name    string
		windows []Interval
		cuts    []Interval
		want    []Interval
	}{
		{
			name:    "cut strictly inside splits the window",
			windows: []Interval{iv(t, "09:00", "12:00")},
			cuts:    []Interval{iv(t, "10:00", "10:30")},
			want:    []Interval{iv(t, "09:00", "10:00"), iv(t, "10:30", "12:00")},
		},
		{
			name:    "cut covering the window drops it",
			windows: []Interval{iv(t, "09:00", "12:00")},
			cuts:    []Interval{iv(t, "08:00", "13:00")},
			want:    []Interval{},
		},
		{
			name:    "cut touching the boundary leaves no sliver",
			windows: []Interval{iv(t, "09:00", "12:00")},
			cuts:    []Interval{iv(t, "09:00", "10:00")},
			want:    []Interval{iv(t, "10:00", "12:00")},
		},
		{
			name:    "cut outside leaves the window alone",
			windows: []Interval{iv(t, "09:00", "12:00")},
			cuts:    []Interval{iv(t, "13:00", "14:00")},
			want:    []Interval{iv(t, "09:00", "12:00")},
		},
		{
			name:    "multiple cuts apply in sequence",
			windows: []Interval{iv(t, "09:00", "17:00")},
			cuts:    []Interval{iv(t, "10:00", "11:00"), iv(t, "12:00", "13:00")},
			want:    []Interval{iv(t, "09:00", "10:00"), iv(t, "11:00", "12:00"), iv(t, "13:00", "17:00")},
		},
		{
			name:    "empty cut is ignored",
			windows: []Interval{iv(t, "09:00", "12:00")},
			cuts:    []Interval{iv(t, "10:00", "10:00")},
			want:    []Interval{iv(t, "09:00", "12:00")},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SubtractIntervals(tc.windows, tc.cuts))
		})
	}
}

func TestQuantizeIntervals(t *testing.T) {
	// Mon 09:00-12:00 with a 10:00-10:30 blackout at 1h granularity must
	// yield 09:00-10:00 and 10:30-11:30, never a slot spanning the cut.
	windows := SubtractIntervals(
		[]Interval{iv(t, "09:00", "12:00")},
		[]Interval{iv(t, "10:00", "10:30")},
	)
	slots := QuantizeIntervals(windows, 60)
	assert.Equal(t, []Interval{iv(t, "09:00", "10:00"), iv(t, "10:30", "11:30")}, slots)

	// Remainders shorter than the granularity are dropped.
	slots = QuantizeIntervals([]Interval{iv(t, "09:00", "10:15")}, 30)
	assert.Equal(t, []Interval{iv(t, "09:00", "09:30"), iv(t, "09:30", "10:00")}, slots)

	assert.Nil(t, QuantizeIntervals([]Interval{iv(t, "09:00", "10:00")}, 0))
}

func TestBlackoutCutFor(t *testing.T) {
	day, err := ParseDate("2026-03-02")
	require.NoError(t, err)

	start := tod(t, "10:00")
	end := tod(t, "10:30")
	partial := Blackout{StartDate: day, EndDate: day, StartTime: &start, EndTime: &end}
	cut, ok := partial.CutFor(day)
	require.True(t, ok)
	assert.Equal(t, iv(t, "10:00", "10:30"), cut)

	fullDay := Blackout{StartDate: day, EndDate: day.AddDays(3)}
	cut, ok = fullDay.CutFor(day.AddDays(2))
	require.True(t, ok)
	assert.Equal(t, Interval{Start: 0, End: minutesPerDay}, cut)

	_, ok = fullDay.CutFor(day.AddDays(4))
	assert.False(t, ok)
}

func TestDateWeekday(t *testing.T) {
	monday, err := ParseDate("2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, 0, monday.Weekday())
	assert.Equal(t, 6, monday.AddDays(6).Weekday())
}

func TestWindowCoversDate(t *testing.T) {
	monday, err := ParseDate("2026-03-02")
	require.NoError(t, err)

	weekday := 0
	recurring := AvailabilityWindow{DayOfWeek: &weekday}
	assert.True(t, recurring.CoversDate(monday))
	assert.False(t, recurring.CoversDate(monday.AddDays(1)))

	override := AvailabilityWindow{OverrideDate: &monday}
	assert.True(t, override.CoversDate(monday))
	assert.False(t, override.CoversDate(monday.AddDays(7)))
}
