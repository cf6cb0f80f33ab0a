package models

import "time"

// Booking status values. Cancellation is a status change, never a delete, so
// the table doubles as the audit trail.
const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// Booking is a confirmed or cancelled tutoring session. At most one confirmed
// booking may exist per (tutor, session_date, start_time); a partial unique
// index enforces it.
type Booking struct {
	ID             string     `db:"id" json:"id"`
	SubjectID      string     `db:"subject_id" json:"subject_id"`
	TutorID        string     `db:"tutor_id" json:"tutor_id"`
	StudentName    string     `db:"student_name" json:"student_name"`
	StudentPhone   string     `db:"student_phone" json:"student_phone"`
	SessionDate    Date       `db:"session_date" json:"session_date"`
	StartTime      TimeOfDay  `db:"start_time" json:"start_time"`
	EndTime        TimeOfDay  `db:"end_time" json:"end_time"`
	Status         string     `db:"status" json:"status"`
	CancelReason   *string    `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	CancelledAt    *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	ReminderSentAt *time.Time `db:"reminder_sent_at" json:"reminder_sent_at,omitempty"`
}

// Confirmed reports whether the booking still holds its slot.
func (b Booking) Confirmed() bool {
	return b.Status == BookingStatusConfirmed
}

// Slot returns the booked time-of-day range.
func (b Booking) Slot() Interval {
	return Interval{Start: b.StartTime, End: b.EndTime}
}

// CreateBookingRequest is the public booking submission. Slot is the start
// time token echoed from availability; the server picks the tutor, never the
// client.
type CreateBookingRequest struct {
	SubjectID    string `json:"subject_id" validate:"required"`
	SessionDate  string `json:"session_date" validate:"required"`
	Slot         string `json:"slot" validate:"required"`
	StudentName  string `json:"student_name" validate:"required,min=2"`
	StudentPhone string `json:"student_phone" validate:"required,min=10"`
}

// CancelBookingRequest carries an optional cancellation reason.
type CancelBookingRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// BookingFilter captures query options for listing bookings.
type BookingFilter struct {
	TutorID   string
	SubjectID string
	Status    string
	DateFrom  *Date
	DateTo    *Date
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
