package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/peer-tutoring-api/internal/models"
)

type fakeReminderStore struct {
	due      []models.Booking
	marked   []string
	from, to time.Time
	tz       string
}

func (f *fakeReminderStore) DueReminders(_ context.Context, from, to time.Time, tz string) ([]models.Booking, error) {
	f.from, f.to, f.tz = from, to, tz
	return f.due, nil
}

func (f *fakeReminderStore) MarkReminded(_ context.Context, id string, _ time.Time) error {
	f.marked = append(f.marked, id)
	return nil
}

type fakeReminderSender struct {
	failFor map[string]bool
	sent    []string
}

func (f *fakeReminderSender) SendReminder(_ context.Context, booking models.Booking, _ models.Tutor, _ string) error {
	if f.failFor[booking.ID] {
		return errors.New("gateway down")
	}
	f.sent = append(f.sent, booking.ID)
	return nil
}

type fakeReminderMetrics struct {
	added int
}

func (f *fakeReminderMetrics) AddReminders(count int) {
	f.added += count
}

func TestReminderRunUsesDayHorizonInBookingTimezone(t *testing.T) {
	store := &fakeReminderStore{}
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	svc := NewReminderService(store, stubTutorReader{}, stubSubjects{}, &fakeReminderSender{}, nil, loc, nil)

	now := time.Date(2026, time.March, 1, 16, 0, 0, 0, time.UTC)
	count, err := svc.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, now, store.from)
	assert.Equal(t, now.Add(24*time.Hour), store.to)
	assert.Equal(t, "America/Los_Angeles", store.tz)
}

func TestReminderRunMarksOnlySuccessfulSends(t *testing.T) {
	store := &fakeReminderStore{due: []models.Booking{
		{ID: "bk-1", TutorID: "tutor-a", SubjectID: "subj-1"},
		{ID: "bk-2", TutorID: "tutor-a", SubjectID: "subj-1"},
		{ID: "bk-3", TutorID: "tutor-missing", SubjectID: "subj-1"},
	}}
	sender := &fakeReminderSender{failFor: map[string]bool{"bk-2": true}}
	metrics := &fakeReminderMetrics{}
	svc := NewReminderService(
		store,
		stubTutorReader{tutors: map[string]models.Tutor{"tutor-a": {ID: "tutor-a", Name: "Alex"}}},
		stubSubjects{subject: &models.Subject{ID: "subj-1", Name: "Algebra II"}},
		sender,
		metrics,
		time.UTC,
		nil,
	)

	count, err := svc.Run(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"bk-1"}, sender.sent)
	assert.Equal(t, []string{"bk-1"}, store.marked)
	assert.Equal(t, 1, metrics.added)
}
