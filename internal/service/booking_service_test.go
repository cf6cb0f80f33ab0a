package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/peer-tutoring-api/internal/models"
	"github.com/noah-isme/peer-tutoring-api/internal/repository"
	"github.com/noah-isme/peer-tutoring-api/pkg/config"
	appErrors "github.com/noah-isme/peer-tutoring-api/pkg/errors"
)

type fakeBookingStore struct {
	counts     map[string]int
	insertErrs []error
	inserted   []models.Booking
	byID       map[string]*models.Booking
	cancelled  []string
}

func (f *fakeBookingStore) List(context.Context, models.BookingFilter) ([]models.Booking, int, error) {
	return nil, 0, nil
}

func (f *fakeBookingStore) FindByID(_ context.Context, id string) (*models.Booking, error) {
	booking, ok := f.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *booking
	return &copied, nil
}

func (f *fakeBookingStore) CountConfirmedByTutor(context.Context, []string, *time.Time) (map[string]int, error) {
	if f.counts == nil {
		return map[string]int{}, nil
	}
	return f.counts, nil
}

func (f *fakeBookingStore) Insert(_ context.Context, booking *models.Booking) error {
	if len(f.insertErrs) > 0 {
		err := f.insertErrs[0]
		f.insertErrs = f.insertErrs[1:]
		if err != nil {
			return err
		}
	}
	booking.ID = "bk-new"
	f.inserted = append(f.inserted, *booking)
	return nil
}

func (f *fakeBookingStore) Cancel(_ context.Context, id string, _ *string, _ time.Time) (bool, error) {
	f.cancelled = append(f.cancelled, id)
	return true, nil
}

// ListConfirmedForDate feeds inserted bookings back into slot resolution, so
// booking through the service shrinks what the next resolve sees.
func (f *fakeBookingStore) ListConfirmedForDate(_ context.Context, tutorIDs []string, date models.Date) ([]models.Booking, error) {
	var confirmed []models.Booking
	for _, booking := range f.inserted {
		if booking.Status != models.BookingStatusConfirmed || booking.SessionDate.String() != date.String() {
			continue
		}
		for _, id := range tutorIDs {
			if booking.TutorID == id {
				confirmed = append(confirmed, booking)
				break
			}
		}
	}
	return confirmed, nil
}

type stubTutorReader struct {
	tutors map[string]models.Tutor
}

func (s stubTutorReader) FindByID(_ context.Context, id string) (*models.Tutor, error) {
	tutor, ok := s.tutors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &tutor, nil
}

type captureNotifier struct {
	confirmations int
	cancellations int
}

func (c *captureNotifier) QueueBookingConfirmation(models.Booking, models.Tutor, string) {
	c.confirmations++
}

func (c *captureNotifier) QueueCancellationNotice(models.Booking, models.Tutor) {
	c.cancellations++
}

func overrideWindow(t *testing.T, tutorID, date, start, end string) models.AvailabilityWindow {
	t.Helper()
	override := mustServiceDate(t, date)
	return models.AvailabilityWindow{
		ID:           "win-" + tutorID + start,
		TutorID:      tutorID,
		OverrideDate: &override,
		StartTime:    mustTimeOfDay(t, start),
		EndTime:      mustTimeOfDay(t, end),
	}
}

func newBookingFixture(t *testing.T, store *fakeBookingStore) (*BookingService, *captureNotifier) {
	t.Helper()
	subjects := stubSubjects{subject: &models.Subject{ID: "subj-1", Name: "Algebra II"}}
	availability := NewAvailabilityService(
		subjects,
		stubTutors{tutors: []models.Tutor{
			{ID: "tutor-a", Name: "Alex", Phone: "5550000001", Active: true},
			{ID: "tutor-b", Name: "Blair", Phone: "5550000002", Active: true},
		}},
		stubSchedule{windows: []models.AvailabilityWindow{
			overrideWindow(t, "tutor-a", "2030-01-05", "10:00", "11:00"),
			overrideWindow(t, "tutor-b", "2030-01-05", "10:00", "11:00"),
		}},
		store,
		nil,
		config.BookingConfig{SlotMinutes: 30, MinLeadDays: 1, CutoffHour: 22},
		time.UTC,
		nil,
	)
	notifier := &captureNotifier{}
	svc := NewBookingService(
		store,
		stubTutorReader{tutors: map[string]models.Tutor{
			"tutor-a": {ID: "tutor-a", Name: "Alex", Phone: "5550000001"},
			"tutor-b": {ID: "tutor-b", Name: "Blair", Phone: "5550000002"},
		}},
		subjects,
		availability,
		notifier,
		nil,
		config.BookingConfig{SlotMinutes: 30},
		nil,
		nil,
	)
	return svc, notifier
}

func validBookingRequest() models.CreateBookingRequest {
	return models.CreateBookingRequest{
		SubjectID:    "subj-1",
		SessionDate:  "2030-01-05",
		Slot:         "10:00",
		StudentName:  "Jordan",
		StudentPhone: "(555) 123-4567",
	}
}

func TestBookAssignsLeastLoadedTutor(t *testing.T) {
	store := &fakeBookingStore{counts: map[string]int{"tutor-a": 4, "tutor-b": 1}}
	svc, notifier := newBookingFixture(t, store)

	booking, err := svc.Book(context.Background(), validBookingRequest())
	require.NoError(t, err)

	assert.Equal(t, "tutor-b", booking.TutorID)
	assert.Equal(t, "10:00", booking.StartTime.String())
	assert.Equal(t, "10:30", booking.EndTime.String())
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, "5551234567", booking.StudentPhone)
	assert.Equal(t, 1, notifier.confirmations)
}

func TestBookTieBreaksDeterministically(t *testing.T) {
	store := &fakeBookingStore{}
	svc, _ := newBookingFixture(t, store)

	booking, err := svc.Book(context.Background(), validBookingRequest())
	require.NoError(t, err)
	assert.Equal(t, "tutor-a", booking.TutorID)
}

func TestBookRoundTripShrinksAvailability(t *testing.T) {
	store := &fakeBookingStore{}
	svc, _ := newBookingFixture(t, store)

	ctx := context.Background()
	date := mustServiceDate(t, "2030-01-05")

	day, err := svc.availability.Day(ctx, "subj-1", date)
	require.NoError(t, err)
	require.Len(t, day.Slots, 2)
	assert.Equal(t, "10:00", day.Slots[0].Value)
	assert.Equal(t, 2, day.Slots[0].TutorCount)

	first, err := svc.Book(ctx, validBookingRequest())
	require.NoError(t, err)

	day, err = svc.availability.Day(ctx, "subj-1", date)
	require.NoError(t, err)
	require.Len(t, day.Slots, 2)
	assert.Equal(t, 1, day.Slots[0].TutorCount)

	second, err := svc.Book(ctx, validBookingRequest())
	require.NoError(t, err)
	assert.NotEqual(t, first.TutorID, second.TutorID)

	day, err = svc.availability.Day(ctx, "subj-1", date)
	require.NoError(t, err)
	require.Len(t, day.Slots, 1)
	assert.Equal(t, "10:30", day.Slots[0].Value)

	_, err = svc.Book(ctx, validBookingRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSlotUnavailable.Code, appErrors.FromError(err).Code)
}

func TestBookRetriesOnceAfterLostRace(t *testing.T) {
	store := &fakeBookingStore{insertErrs: []error{repository.ErrTutorSlotTaken, nil}}
	svc, _ := newBookingFixture(t, store)

	booking, err := svc.Book(context.Background(), validBookingRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, booking.ID)
	assert.Len(t, store.inserted, 1)
}

func TestBookGivesUpAfterSecondLostRace(t *testing.T) {
	store := &fakeBookingStore{insertErrs: []error{repository.ErrTutorSlotTaken, repository.ErrTutorSlotTaken}}
	svc, notifier := newBookingFixture(t, store)

	_, err := svc.Book(context.Background(), validBookingRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTutorConflict.Code, appErrors.FromError(err).Code)
	assert.Zero(t, notifier.confirmations)
}

func TestBookUnknownSlot(t *testing.T) {
	store := &fakeBookingStore{}
	svc, _ := newBookingFixture(t, store)

	req := validBookingRequest()
	req.Slot = "23:30"
	_, err := svc.Book(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSlotUnavailable.Code, appErrors.FromError(err).Code)
}

func TestBookClosedDate(t *testing.T) {
	store := &fakeBookingStore{}
	svc, _ := newBookingFixture(t, store)

	req := validBookingRequest()
	req.SessionDate = "2020-01-01"
	_, err := svc.Book(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCancelOwnership(t *testing.T) {
	existing := &models.Booking{
		ID:          "bk-1",
		SubjectID:   "subj-1",
		TutorID:     "tutor-a",
		SessionDate: mustServiceDate(t, "2030-01-05"),
		StartTime:   mustTimeOfDay(t, "10:00"),
		EndTime:     mustTimeOfDay(t, "10:30"),
		Status:      models.BookingStatusConfirmed,
	}
	store := &fakeBookingStore{byID: map[string]*models.Booking{"bk-1": existing}}
	svc, notifier := newBookingFixture(t, store)

	intruder := &models.JWTClaims{ActorID: "tutor-b", Role: models.RoleTutor}
	_, err := svc.Cancel(context.Background(), "bk-1", intruder, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	owner := &models.JWTClaims{ActorID: "tutor-a", Role: models.RoleTutor}
	cancelled, err := svc.Cancel(context.Background(), "bk-1", owner, nil)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, []string{"bk-1"}, store.cancelled)
	assert.Equal(t, 1, notifier.cancellations)
}

func TestCancelAlreadyCancelledIsIdempotent(t *testing.T) {
	existing := &models.Booking{
		ID:      "bk-1",
		TutorID: "tutor-a",
		Status:  models.BookingStatusCancelled,
	}
	store := &fakeBookingStore{byID: map[string]*models.Booking{"bk-1": existing}}
	svc, notifier := newBookingFixture(t, store)

	booking, err := svc.Cancel(context.Background(), "bk-1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, booking.Status)
	assert.Empty(t, store.cancelled)
	assert.Zero(t, notifier.cancellations)
}

func TestCancelUnknownBooking(t *testing.T) {
	store := &fakeBookingStore{}
	svc, _ := newBookingFixture(t, store)

	_, err := svc.Cancel(context.Background(), "missing", nil, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
