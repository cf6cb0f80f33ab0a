package models

import "time"

// AvailabilityWindow is a tutor's bookable time range: either a recurring
// weekday block (DayOfWeek set, Monday=0) or a single-date override
// (OverrideDate set). Overlapping windows are legal and collapse to their
// union when slots are resolved.
type AvailabilityWindow struct {
	ID           string    `db:"id" json:"id"`
	TutorID      string    `db:"tutor_id" json:"tutor_id"`
	DayOfWeek    *int      `db:"day_of_week" json:"day_of_week,omitempty"`
	OverrideDate *Date     `db:"override_date" json:"override_date,omitempty"`
	StartTime    TimeOfDay `db:"start_time" json:"start_time"`
	EndTime      TimeOfDay `db:"end_time" json:"end_time"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Interval returns the window's time-of-day range.
func (w AvailabilityWindow) Interval() Interval {
	return Interval{Start: w.StartTime, End: w.EndTime}
}

// CoversDate reports whether the window applies to the given date.
func (w AvailabilityWindow) CoversDate(date Date) bool {
	if w.OverrideDate != nil {
		return w.OverrideDate.Equal(date)
	}
	return w.DayOfWeek != nil && *w.DayOfWeek == date.Weekday()
}

// CreateWindowRequest adds an availability window. Exactly one of DayOfWeek
// and OverrideDate must be set.
type CreateWindowRequest struct {
	DayOfWeek    *int    `json:"day_of_week" validate:"omitempty,min=0,max=6"`
	OverrideDate *string `json:"override_date"`
	StartTime    string  `json:"start_time" validate:"required"`
	EndTime      string  `json:"end_time" validate:"required"`
}

// CreateBlackoutRequest adds a blackout period. StartTime and EndTime must be
// given together or not at all.
type CreateBlackoutRequest struct {
	StartDate string  `json:"start_date" validate:"required"`
	EndDate   string  `json:"end_date" validate:"required"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Note      *string `json:"note" validate:"omitempty,max=500"`
}

// UpdateSubjectsRequest replaces a tutor's subject set.
type UpdateSubjectsRequest struct {
	SubjectIDs []string `json:"subject_ids" validate:"required,min=1"`
}

// Blackout removes time from a tutor's availability: a date range plus an
// optional time-of-day sub-range. Without a sub-range the whole day is
// blacked out. A blackout only ever narrows availability.
type Blackout struct {
	ID        string     `db:"id" json:"id"`
	TutorID   string     `db:"tutor_id" json:"tutor_id"`
	StartDate Date       `db:"start_date" json:"start_date"`
	EndDate   Date       `db:"end_date" json:"end_date"`
	StartTime *TimeOfDay `db:"start_time" json:"start_time,omitempty"`
	EndTime   *TimeOfDay `db:"end_time" json:"end_time,omitempty"`
	Note      *string    `db:"note" json:"note,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// FullDay reports whether the blackout removes the entire day.
func (b Blackout) FullDay() bool {
	return b.StartTime == nil || b.EndTime == nil
}

// AppliesTo reports whether the blackout's date range includes the given day.
func (b Blackout) AppliesTo(date Date) bool {
	return !date.Before(b.StartDate) && !date.After(b.EndDate)
}

// CutFor returns the interval to subtract from the given date's windows. A
// full-day blackout cuts the whole day.
func (b Blackout) CutFor(date Date) (Interval, bool) {
	if !b.AppliesTo(date) {
		return Interval{}, false
	}
	if b.FullDay() {
		return Interval{Start: 0, End: minutesPerDay}, true
	}
	return Interval{Start: *b.StartTime, End: *b.EndTime}, true
}
