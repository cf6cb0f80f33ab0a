package models

import "time"

// Tutor is a peer tutor able to publish availability and receive bookings.
// Tutors are never hard-deleted while bookings reference them; Active false
// stops their availability from resolving.
type Tutor struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Phone      string    `db:"phone" json:"phone"`
	PINHash    string    `db:"pin_hash" json:"-"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
	SubjectIDs []string  `db:"-" json:"subject_ids,omitempty"`
}

// TutorFilter captures filtering options for listing tutors.
type TutorFilter struct {
	Search    string
	SubjectID string
	Active    *bool
	Page      int
	PageSize  int
}
