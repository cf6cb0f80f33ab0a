package models

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"strings"
	"time"
)

// TimeOfDay is a clock time expressed as minutes since midnight. It maps to a
// Postgres TIME column and to the "HH:MM" tokens the booking client round-trips.
type TimeOfDay int

const minutesPerDay = 24 * 60

// ParseTimeOfDay parses a zero-padded "15:04" value.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", raw, err)
	}
	return TimeOfDay(parsed.Hour()*60 + parsed.Minute()), nil
}

// String renders the canonical zero-padded "15:04" form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Label renders a human-readable clock label such as "3:00 PM".
func (t TimeOfDay) Label() string {
	ref := time.Date(2000, time.January, 1, int(t)/60, int(t)%60, 0, 0, time.UTC)
	return ref.Format("3:04 PM")
}

// Valid reports whether the value falls within a single day.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < minutesPerDay
}

// On anchors the clock time to a calendar date in the given location.
func (t TimeOfDay) On(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(date.Year(), date.Month(), date.Day(), int(t)/60, int(t)%60, 0, 0, loc)
}

// MarshalJSON encodes as "15:04".
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", t.String())), nil
}

// UnmarshalJSON decodes from "15:04".
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value implements driver.Valuer, storing the "15:04:00" TIME literal.
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String() + ":00", nil
}

// Scan implements sql.Scanner for TIME columns.
func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		return fmt.Errorf("cannot scan NULL into TimeOfDay")
	case time.Time:
		*t = TimeOfDay(v.Hour()*60 + v.Minute())
		return nil
	case []byte:
		return t.scanString(string(v))
	case string:
		return t.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
}

func (t *TimeOfDay) scanString(raw string) error {
	if len(raw) > 5 {
		raw = raw[:5]
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Interval is a half-open [Start, End) time-of-day range within one day.
type Interval struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Empty reports whether the interval covers no time.
func (iv Interval) Empty() bool {
	return iv.End <= iv.Start
}

// Overlaps reports whether two half-open intervals share any time.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// Contains reports whether other lies fully inside iv.
func (iv Interval) Contains(other Interval) bool {
	return iv.Start <= other.Start && other.End <= iv.End
}

// MergeIntervals collapses overlapping or touching intervals into their union,
// returned in ascending start order. Empty inputs are dropped.
func MergeIntervals(intervals []Interval) []Interval {
	work := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if !iv.Empty() {
			work = append(work, iv)
		}
	}
	if len(work) == 0 {
		return nil
	}
	sort.Slice(work, func(i, j int) bool {
		if work[i].Start != work[j].Start {
			return work[i].Start < work[j].Start
		}
		return work[i].End < work[j].End
	})

	merged := []Interval{work[0]}
	for _, iv := range work[1:] {
		last := &merged[len(merged)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// SubtractIntervals removes every cut from the given windows. A cut strictly
// inside a window splits it in two; a cut covering a window drops it. Inverted
// or zero-length remainders are dropped silently, so a cut touching a window
// boundary leaves no degenerate piece behind.
func SubtractIntervals(windows, cuts []Interval) []Interval {
	result := MergeIntervals(windows)
	for _, cut := range cuts {
		if cut.Empty() {
			continue
		}
		next := make([]Interval, 0, len(result)+1)
		for _, win := range result {
			if !win.Overlaps(cut) {
				next = append(next, win)
				continue
			}
			left := Interval{Start: win.Start, End: cut.Start}
			right := Interval{Start: cut.End, End: win.End}
			if !left.Empty() {
				next = append(next, left)
			}
			if !right.Empty() {
				next = append(next, right)
			}
		}
		result = next
	}
	return result
}

// QuantizeIntervals cuts each window into consecutive fixed-length slots,
// dropping any remainder shorter than the granularity.
func QuantizeIntervals(windows []Interval, granularityMinutes int) []Interval {
	if granularityMinutes <= 0 {
		return nil
	}
	step := TimeOfDay(granularityMinutes)
	var slots []Interval
	for _, win := range windows {
		for cursor := win.Start; cursor+step <= win.End; cursor += step {
			slots = append(slots, Interval{Start: cursor, End: cursor + step})
		}
	}
	return slots
}
