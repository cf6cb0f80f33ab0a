package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/peer-tutoring-api/internal/models"
	"github.com/noah-isme/peer-tutoring-api/pkg/config"
	appErrors "github.com/noah-isme/peer-tutoring-api/pkg/errors"
)

// SubjectReader is the subject lookup the availability service depends on.
type SubjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// TutorDirectory exposes the active tutor pool per subject.
type TutorDirectory interface {
	ListActiveBySubject(ctx context.Context, subjectID string) ([]models.Tutor, error)
}

// ScheduleReader exposes the windows and blackouts feeding slot resolution.
type ScheduleReader interface {
	WindowsForDate(ctx context.Context, tutorIDs []string, date models.Date) ([]models.AvailabilityWindow, error)
	BlackoutsForDate(ctx context.Context, tutorIDs []string, date models.Date) ([]models.Blackout, error)
}

// ConfirmedBookingReader exposes the confirmed bookings that occupy slots.
type ConfirmedBookingReader interface {
	ListConfirmedForDate(ctx context.Context, tutorIDs []string, date models.Date) ([]models.Booking, error)
}

// DayAvailability is the public availability answer for one subject and date.
type DayAvailability struct {
	Date    models.Date       `json:"date"`
	Slots   []models.SlotView `json:"slots"`
	Message string            `json:"message,omitempty"`
}

// AvailabilityService resolves bookable slots. Slots are never stored; every
// read recomputes them from windows minus blackouts minus confirmed bookings,
// so cancelled time reappears with no extra bookkeeping.
type AvailabilityService struct {
	subjects SubjectReader
	tutors   TutorDirectory
	schedule ScheduleReader
	bookings ConfirmedBookingReader

	cache  *redis.Client
	cfg    config.BookingConfig
	loc    *time.Location
	logger *zap.Logger
}

// NewAvailabilityService constructs the service. The redis client may be nil,
// which disables caching.
func NewAvailabilityService(
	subjects SubjectReader,
	tutors TutorDirectory,
	schedule ScheduleReader,
	bookings ConfirmedBookingReader,
	cache *redis.Client,
	cfg config.BookingConfig,
	loc *time.Location,
	logger *zap.Logger,
) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityService{
		subjects: subjects,
		tutors:   tutors,
		schedule: schedule,
		bookings: bookings,
		cache:    cache,
		cfg:      cfg,
		loc:      loc,
		logger:   logger,
	}
}

// Day returns the bookable slots for a subject on a date. Dates inside the
// booking lead time come back empty with an explanatory message instead of an
// error, so the client can render the day as closed.
func (s *AvailabilityService) Day(ctx context.Context, subjectID string, date models.Date) (*DayAvailability, error) {
	if _, err := s.subjects.FindByID(ctx, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	if date.Before(s.minBookableDate(time.Now())) {
		return &DayAvailability{
			Date:    date,
			Slots:   []models.SlotView{},
			Message: "this date is no longer open for booking",
		}, nil
	}

	if cached := s.cachedDay(ctx, subjectID, date); cached != nil {
		return cached, nil
	}

	slots, err := s.resolveSlots(ctx, subjectID, date)
	if err != nil {
		return nil, err
	}

	day := &DayAvailability{Date: date, Slots: make([]models.SlotView, 0, len(slots))}
	for _, slot := range slots {
		day.Slots = append(day.Slots, slot.View())
	}
	if len(day.Slots) == 0 {
		day.Message = "no tutors are available on this date"
	}

	s.storeDay(ctx, subjectID, date, day)
	return day, nil
}

// resolveSlots computes the full slot set with eligible tutor identities.
// The booking coordinator reads these directly so selection always works from
// the same derivation the public view shows.
func (s *AvailabilityService) resolveSlots(ctx context.Context, subjectID string, date models.Date) ([]models.Slot, error) {
	tutors, err := s.tutors.ListActiveBySubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutors")
	}
	if len(tutors) == 0 {
		return nil, nil
	}

	tutorIDs := make([]string, 0, len(tutors))
	for _, tutor := range tutors {
		tutorIDs = append(tutorIDs, tutor.ID)
	}

	windows, err := s.schedule.WindowsForDate(ctx, tutorIDs, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	blackouts, err := s.schedule.BlackoutsForDate(ctx, tutorIDs, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load blackouts")
	}
	// Confirmed bookings across every subject occupy the tutor, not just
	// bookings for the requested subject.
	booked, err := s.bookings.ListConfirmedForDate(ctx, tutorIDs, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings")
	}

	windowsByTutor := make(map[string][]models.Interval)
	for _, window := range windows {
		if window.CoversDate(date) {
			windowsByTutor[window.TutorID] = append(windowsByTutor[window.TutorID], window.Interval())
		}
	}
	cutsByTutor := make(map[string][]models.Interval)
	for _, blackout := range blackouts {
		if cut, ok := blackout.CutFor(date); ok {
			cutsByTutor[blackout.TutorID] = append(cutsByTutor[blackout.TutorID], cut)
		}
	}
	busyByTutor := make(map[string][]models.Interval)
	for _, booking := range booked {
		busyByTutor[booking.TutorID] = append(busyByTutor[booking.TutorID], booking.Slot())
	}

	eligible := make(map[models.Interval][]string)
	for _, tutorID := range tutorIDs {
		free := models.SubtractIntervals(windowsByTutor[tutorID], cutsByTutor[tutorID])
		busy := busyByTutor[tutorID]
		for _, slot := range models.QuantizeIntervals(free, s.cfg.SlotMinutes) {
			taken := false
			for _, occupied := range busy {
				if slot.Overlaps(occupied) {
					taken = true
					break
				}
			}
			if !taken {
				eligible[slot] = append(eligible[slot], tutorID)
			}
		}
	}

	slots := make([]models.Slot, 0, len(eligible))
	for interval, ids := range eligible {
		sort.Strings(ids)
		slots = append(slots, models.Slot{Start: interval.Start, End: interval.End, EligibleTutors: ids})
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start < slots[j].Start })
	return slots, nil
}

// minBookableDate is the earliest session date accepted right now. Sessions
// need at least the configured lead time, and past the evening cutoff the
// next candidate day closes too.
func (s *AvailabilityService) minBookableDate(now time.Time) models.Date {
	local := now.In(s.loc)
	min := models.DateOf(local).AddDays(s.cfg.MinLeadDays)
	if local.Hour() >= s.cfg.CutoffHour {
		min = min.AddDays(1)
	}
	return min
}

// InvalidateDay drops the cached availability for a subject and date. Called
// after every booking or cancellation that touches the day.
func (s *AvailabilityService) InvalidateDay(ctx context.Context, subjectID string, date models.Date) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, dayCacheKey(subjectID, date)).Err(); err != nil {
		s.logger.Warn("failed to invalidate availability cache", zap.Error(err))
	}
}

func (s *AvailabilityService) cachedDay(ctx context.Context, subjectID string, date models.Date) *DayAvailability {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, dayCacheKey(subjectID, date)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("availability cache read failed", zap.Error(err))
		}
		return nil
	}
	var day DayAvailability
	if err := json.Unmarshal(raw, &day); err != nil {
		s.logger.Warn("availability cache entry corrupt", zap.Error(err))
		return nil
	}
	return &day
}

func (s *AvailabilityService) storeDay(ctx context.Context, subjectID string, date models.Date, day *DayAvailability) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(day)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, dayCacheKey(subjectID, date), raw, s.cfg.AvailabilityCacheTTL).Err(); err != nil {
		s.logger.Warn("availability cache write failed", zap.Error(err))
	}
}

func dayCacheKey(subjectID string, date models.Date) string {
	return fmt.Sprintf("availability:%s:%s", subjectID, date.String())
}
