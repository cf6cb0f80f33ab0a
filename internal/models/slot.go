package models

// Slot is a derived bookable unit for one subject and date. It is never
// persisted; the resolver recomputes it from availability, blackouts and
// confirmed bookings on every read.
type Slot struct {
	Start          TimeOfDay `json:"start_time"`
	End            TimeOfDay `json:"end_time"`
	EligibleTutors []string  `json:"-"`
}

// Token is the stable identifier the client echoes back when booking: the
// zero-padded start time. End time derives from the configured granularity.
func (s Slot) Token() string {
	return s.Start.String()
}

// SlotView is the public availability shape. It deliberately exposes only the
// eligible-tutor count so the unauthenticated caller learns no identities.
type SlotView struct {
	Value      string `json:"value"`
	Label      string `json:"label"`
	TutorCount int    `json:"tutor_count"`
}

// View projects a slot into its public shape.
func (s Slot) View() SlotView {
	return SlotView{
		Value:      s.Token(),
		Label:      s.Start.Label(),
		TutorCount: len(s.EligibleTutors),
	}
}
