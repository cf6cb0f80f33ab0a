package models

import "time"

// Subject is immutable reference data a tutor can cover.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Category  string    `db:"category" json:"category"`
	SortOrder int       `db:"sort_order" json:"sort_order"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CreateSubjectRequest adds a subject to the catalog.
type CreateSubjectRequest struct {
	Name      string `json:"name" validate:"required,min=2"`
	Category  string `json:"category" validate:"required,min=2"`
	SortOrder int    `json:"sort_order" validate:"min=0"`
}

// SubjectGroup is an ordered category bucket for the booking form.
type SubjectGroup struct {
	Category string    `json:"category"`
	Subjects []Subject `json:"subjects"`
}

// GroupSubjects buckets an ordered subject list by category, preserving the
// incoming sort order within and across groups.
func GroupSubjects(subjects []Subject) []SubjectGroup {
	var groups []SubjectGroup
	for _, subject := range subjects {
		if len(groups) == 0 || groups[len(groups)-1].Category != subject.Category {
			groups = append(groups, SubjectGroup{Category: subject.Category})
		}
		last := &groups[len(groups)-1]
		last.Subjects = append(last.Subjects, subject)
	}
	return groups
}
