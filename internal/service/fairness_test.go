package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickFairTutorPrefersFewestBookings(t *testing.T) {
	id, err := pickFairTutor(
		[]string{"tutor-b", "tutor-a", "tutor-c"},
		map[string]int{"tutor-a": 5, "tutor-b": 2, "tutor-c": 9},
	)
	require.NoError(t, err)
	assert.Equal(t, "tutor-b", id)
}

func TestPickFairTutorTieBreaksLexicographically(t *testing.T) {
	// Repeated calls with identical input must select identically.
	for i := 0; i < 20; i++ {
		id, err := pickFairTutor(
			[]string{"tutor-c", "tutor-a", "tutor-b"},
			map[string]int{"tutor-a": 3, "tutor-b": 3, "tutor-c": 3},
		)
		require.NoError(t, err)
		assert.Equal(t, "tutor-a", id)
	}
}

func TestPickFairTutorMissingCountIsZero(t *testing.T) {
	id, err := pickFairTutor(
		[]string{"tutor-a", "tutor-b"},
		map[string]int{"tutor-a": 1},
	)
	require.NoError(t, err)
	assert.Equal(t, "tutor-b", id)
}

func TestPickFairTutorEmptySetIsCallerBug(t *testing.T) {
	_, err := pickFairTutor(nil, nil)
	assert.ErrorIs(t, err, errNoEligibleTutor)
}

func TestFairnessPolicySince(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	assert.Nil(t, FairnessPolicy{}.Since(now))

	since := FairnessPolicy{WindowDays: 30}.Since(now)
	require.NotNil(t, since)
	assert.Equal(t, now.AddDate(0, 0, -30), *since)
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "5551234567", normalizePhone("(555) 123-4567"))
	assert.Equal(t, "15551234567", normalizePhone("+1 555 123 4567"))
	assert.Equal(t, "+15551234567", smsPhone("555-123-4567"))
	assert.Equal(t, "+441632960961", smsPhone("+441632960961"))
}
