package service

import (
	"errors"
	"time"
)

// errNoEligibleTutor signals a caller bug: selection was invoked with an
// empty candidate set. It is never surfaced to API clients.
var errNoEligibleTutor = errors.New("no eligible tutor to select from")

// FairnessPolicy governs how the confirmed-booking counts used to rank
// tutors are bounded. WindowDays zero means all-time.
type FairnessPolicy struct {
	WindowDays int
}

// Since returns the lower bound for counted bookings, or nil for all-time.
func (p FairnessPolicy) Since(now time.Time) *time.Time {
	if p.WindowDays <= 0 {
		return nil
	}
	since := now.AddDate(0, 0, -p.WindowDays)
	return &since
}

// pickFairTutor chooses the eligible tutor with the fewest confirmed bookings
// in the fairness window, spreading load across the pool. Ties resolve to the
// lexicographically smaller tutor id so repeated calls with identical input
// select identically. Tutors absent from counts count as zero.
func pickFairTutor(eligible []string, counts map[string]int) (string, error) {
	if len(eligible) == 0 {
		return "", errNoEligibleTutor
	}

	best := eligible[0]
	bestCount := counts[best]
	for _, id := range eligible[1:] {
		count := counts[id]
		if count < bestCount || (count == bestCount && id < best) {
			best = id
			bestCount = count
		}
	}
	return best, nil
}
