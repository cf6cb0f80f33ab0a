package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/peer-tutoring-api/internal/models"
)

// reminderHorizon is how far ahead a session must start to get its reminder.
const reminderHorizon = 24 * time.Hour

// ReminderStore is the booking persistence the reminder run depends on.
type ReminderStore interface {
	DueReminders(ctx context.Context, from, to time.Time, tz string) ([]models.Booking, error)
	MarkReminded(ctx context.Context, id string, at time.Time) error
}

// reminderSender delivers a reminder to both parties of a booking.
type reminderSender interface {
	SendReminder(ctx context.Context, booking models.Booking, tutor models.Tutor, subjectName string) error
}

// reminderMetrics counts reminders a sweep sent.
type reminderMetrics interface {
	AddReminders(count int)
}

// ReminderService sends day-before texts for upcoming sessions. A booking is
// only marked reminded after its sends succeed, so an interrupted run picks
// the remainder up next time without double-texting the ones that went out.
type ReminderService struct {
	store    ReminderStore
	tutors   TutorReader
	subjects SubjectReader
	sender   reminderSender
	metrics  reminderMetrics
	loc      *time.Location
	logger   *zap.Logger
}

// NewReminderService constructs the service. metrics may be nil.
func NewReminderService(store ReminderStore, tutors TutorReader, subjects SubjectReader, sender reminderSender, metrics reminderMetrics, loc *time.Location, logger *zap.Logger) *ReminderService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderService{
		store:    store,
		tutors:   tutors,
		subjects: subjects,
		sender:   sender,
		metrics:  metrics,
		loc:      loc,
		logger:   logger,
	}
}

// Due returns the confirmed, un-reminded bookings starting within the next
// 24 hours of now. Session timestamps are interpreted in the booking
// timezone.
func (s *ReminderService) Due(ctx context.Context, now time.Time) ([]models.Booking, error) {
	return s.store.DueReminders(ctx, now, now.Add(reminderHorizon), s.loc.String())
}

// Run processes one reminder sweep and returns how many bookings were
// reminded. Individual failures are logged and skipped rather than aborting
// the sweep.
func (s *ReminderService) Run(ctx context.Context, now time.Time) (int, error) {
	due, err := s.Due(ctx, now)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, booking := range due {
		tutor, err := s.tutors.FindByID(ctx, booking.TutorID)
		if err != nil {
			s.logger.Warn("skipping reminder, tutor lookup failed",
				zap.String("booking_id", booking.ID), zap.Error(err))
			continue
		}

		subjectName := booking.SubjectID
		if subject, err := s.subjects.FindByID(ctx, booking.SubjectID); err == nil {
			subjectName = subject.Name
		}

		if err := s.sender.SendReminder(ctx, booking, *tutor, subjectName); err != nil {
			s.logger.Warn("reminder send failed, leaving booking unmarked",
				zap.String("booking_id", booking.ID), zap.Error(err))
			continue
		}

		if err := s.store.MarkReminded(ctx, booking.ID, now); err != nil {
			s.logger.Error("failed to mark booking reminded",
				zap.String("booking_id", booking.ID), zap.Error(err))
			continue
		}
		sent++
	}

	if s.metrics != nil {
		s.metrics.AddReminders(sent)
	}
	return sent, nil
}
