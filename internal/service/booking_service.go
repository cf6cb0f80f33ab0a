package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/peer-tutoring-api/internal/models"
	"github.com/noah-isme/peer-tutoring-api/internal/repository"
	"github.com/noah-isme/peer-tutoring-api/pkg/config"
	appErrors "github.com/noah-isme/peer-tutoring-api/pkg/errors"
)

// BookingStore is the booking persistence the coordinator depends on.
type BookingStore interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	CountConfirmedByTutor(ctx context.Context, tutorIDs []string, since *time.Time) (map[string]int, error)
	Insert(ctx context.Context, booking *models.Booking) error
	Cancel(ctx context.Context, id string, reason *string, at time.Time) (bool, error)
}

// TutorReader loads single tutors for notifications and ownership checks.
type TutorReader interface {
	FindByID(ctx context.Context, id string) (*models.Tutor, error)
}

// bookingNotifier is the slice of NotificationService the coordinator uses.
type bookingNotifier interface {
	QueueBookingConfirmation(booking models.Booking, tutor models.Tutor, subjectName string)
	QueueCancellationNotice(booking models.Booking, tutor models.Tutor)
}

// bookingMetrics counts booking outcomes.
type bookingMetrics interface {
	IncBooking(result string)
}

// BookingService coordinates slot claiming. It re-resolves availability on
// every attempt and leans on the database unique constraint as the final
// arbiter, so two students racing for the last tutor can never both win.
type BookingService struct {
	bookings     BookingStore
	tutors       TutorReader
	subjects     SubjectReader
	availability *AvailabilityService
	notifier     bookingNotifier
	metrics      bookingMetrics

	policy   FairnessPolicy
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewBookingService constructs the coordinator. notifier and metrics may be
// nil.
func NewBookingService(
	bookings BookingStore,
	tutors TutorReader,
	subjects SubjectReader,
	availability *AvailabilityService,
	notifier bookingNotifier,
	metrics bookingMetrics,
	cfg config.BookingConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		bookings:     bookings,
		tutors:       tutors,
		subjects:     subjects,
		availability: availability,
		notifier:     notifier,
		metrics:      metrics,
		policy:       FairnessPolicy{WindowDays: cfg.FairnessWindowDays},
		validate:     validate,
		logger:       logger,
		now:          time.Now,
	}
}

// Book claims a slot for a student. The tutor is chosen server-side from the
// slot's eligible pool, preferring whoever has the fewest confirmed bookings.
// A lost insert race is retried once against fresh availability.
func (s *BookingService) Book(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking request")
	}

	date, err := models.ParseDate(req.SessionDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session_date must be formatted YYYY-MM-DD")
	}
	startTime, err := models.ParseTimeOfDay(req.Slot)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot must be formatted HH:MM")
	}

	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	if date.Before(s.availability.minBookableDate(s.now())) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "that date is no longer open for booking")
	}

	for attempt := 0; attempt < 2; attempt++ {
		slots, err := s.availability.resolveSlots(ctx, req.SubjectID, date)
		if err != nil {
			return nil, err
		}

		var eligible []string
		for _, slot := range slots {
			if slot.Start == startTime {
				eligible = slot.EligibleTutors
				break
			}
		}
		if len(eligible) == 0 {
			s.countBooking("unavailable")
			return nil, appErrors.ErrSlotUnavailable
		}

		counts, err := s.bookings.CountConfirmedByTutor(ctx, eligible, s.policy.Since(s.now()))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rank tutors")
		}
		tutorID, err := pickFairTutor(eligible, counts)
		if err != nil {
			return nil, appErrors.ErrSlotUnavailable
		}

		booking := &models.Booking{
			SubjectID:    req.SubjectID,
			TutorID:      tutorID,
			StudentName:  req.StudentName,
			StudentPhone: normalizePhone(req.StudentPhone),
			SessionDate:  date,
			StartTime:    startTime,
			EndTime:      startTime + models.TimeOfDay(s.availability.cfg.SlotMinutes),
			Status:       models.BookingStatusConfirmed,
		}

		if err := s.bookings.Insert(ctx, booking); err != nil {
			if errors.Is(err, repository.ErrTutorSlotTaken) {
				s.logger.Info("slot insert lost race, retrying",
					zap.String("tutor_id", tutorID),
					zap.String("date", date.String()),
					zap.String("slot", startTime.String()),
					zap.Int("attempt", attempt+1))
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store booking")
		}

		s.availability.InvalidateDay(ctx, req.SubjectID, date)
		s.countBooking("confirmed")
		s.notifyConfirmed(ctx, *booking)
		return booking, nil
	}

	s.countBooking("conflict")
	return nil, appErrors.ErrTutorConflict
}

// Cancel flips a booking to cancelled. Tutors may only cancel their own
// sessions; cancelling twice succeeds without effect.
func (s *BookingService) Cancel(ctx context.Context, id string, actor *models.JWTClaims, reason *string) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown booking id")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}

	if actor != nil && actor.Role == models.RoleTutor && booking.TutorID != actor.ActorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you may only cancel your own bookings")
	}

	if !booking.Confirmed() {
		return booking, nil
	}

	cancelledAt := s.now().UTC()
	changed, err := s.bookings.Cancel(ctx, id, reason, cancelledAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel booking")
	}
	if !changed {
		// Another cancel won. Re-read so the caller sees final state.
		return s.bookings.FindByID(ctx, id)
	}

	booking.Status = models.BookingStatusCancelled
	booking.CancelledAt = &cancelledAt
	booking.CancelReason = reason

	s.availability.InvalidateDay(ctx, booking.SubjectID, booking.SessionDate)
	s.countBooking("cancelled")
	s.notifyCancelled(ctx, *booking)
	return booking, nil
}

// List returns bookings matching the filter with pagination metadata.
func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error) {
	bookings, total, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return bookings, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads a single booking.
func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return booking, nil
}

func (s *BookingService) countBooking(result string) {
	if s.metrics != nil {
		s.metrics.IncBooking(result)
	}
}

func (s *BookingService) notifyConfirmed(ctx context.Context, booking models.Booking) {
	if s.notifier == nil {
		return
	}
	tutor, err := s.tutors.FindByID(ctx, booking.TutorID)
	if err != nil {
		s.logger.Warn("skipping confirmation sms, tutor lookup failed", zap.Error(err))
		return
	}
	subjectName := booking.SubjectID
	if subject, err := s.subjects.FindByID(ctx, booking.SubjectID); err == nil {
		subjectName = subject.Name
	}
	s.notifier.QueueBookingConfirmation(booking, *tutor, subjectName)
}

func (s *BookingService) notifyCancelled(ctx context.Context, booking models.Booking) {
	if s.notifier == nil {
		return
	}
	tutor, err := s.tutors.FindByID(ctx, booking.TutorID)
	if err != nil {
		s.logger.Warn("skipping cancellation sms, tutor lookup failed", zap.Error(err))
		return
	}
	s.notifier.QueueCancellationNotice(booking, *tutor)
}
