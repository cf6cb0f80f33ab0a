package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/peer-tutoring-api/internal/models"
	"github.com/noah-isme/peer-tutoring-api/pkg/config"
	appErrors "github.com/noah-isme/peer-tutoring-api/pkg/errors"
)

// TutorStore is the tutor persistence the portal depends on.
type TutorStore interface {
	List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, int, error)
	FindByID(ctx context.Context, id string) (*models.Tutor, error)
	SubjectIDs(ctx context.Context, tutorID string) ([]string, error)
	ReplaceSubjects(ctx context.Context, tutorID string, subjectIDs []string) error
	Deactivate(ctx context.Context, id string) error
}

// ScheduleStore is the windows-and-blackouts persistence the portal depends on.
type ScheduleStore interface {
	ListWindowsByTutor(ctx context.Context, tutorID string) ([]models.AvailabilityWindow, error)
	CreateWindow(ctx context.Context, window *models.AvailabilityWindow) error
	DeleteWindow(ctx context.Context, tutorID, windowID string) (bool, error)
	ListBlackoutsByTutor(ctx context.Context, tutorID string) ([]models.Blackout, error)
	CreateBlackout(ctx context.Context, blackout *models.Blackout) error
	DeleteBlackout(ctx context.Context, tutorID, blackoutID string) (bool, error)
}

// TutorService backs the tutor portal: profile, subjects, availability
// windows and blackouts. Every mutation is scoped to the owning tutor id
// taken from the session, never from the request body.
type TutorService struct {
	tutors   TutorStore
	schedule ScheduleStore
	cfg      config.BookingConfig
	validate *validator.Validate
	logger   *zap.Logger
}

// NewTutorService constructs the service.
func NewTutorService(tutors TutorStore, schedule ScheduleStore, cfg config.BookingConfig, validate *validator.Validate, logger *zap.Logger) *TutorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TutorService{
		tutors:   tutors,
		schedule: schedule,
		cfg:      cfg,
		validate: validate,
		logger:   logger,
	}
}

// Profile loads a tutor with their subject ids.
func (s *TutorService) Profile(ctx context.Context, tutorID string) (*models.Tutor, error) {
	tutor, err := s.tutors.FindByID(ctx, tutorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}

	subjectIDs, err := s.tutors.SubjectIDs(ctx, tutorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor subjects")
	}
	tutor.SubjectIDs = subjectIDs
	return tutor, nil
}

// UpdateSubjects replaces the tutor's subject set.
func (s *TutorService) UpdateSubjects(ctx context.Context, tutorID string, req models.UpdateSubjectsRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subjects request")
	}
	if err := s.tutors.ReplaceSubjects(ctx, tutorID, req.SubjectIDs); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subjects")
	}
	return nil
}

// Windows lists the tutor's availability windows.
func (s *TutorService) Windows(ctx context.Context, tutorID string) ([]models.AvailabilityWindow, error) {
	windows, err := s.schedule.ListWindowsByTutor(ctx, tutorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list windows")
	}
	return windows, nil
}

// AddWindow creates an availability window for the tutor.
func (s *TutorService) AddWindow(ctx context.Context, tutorID string, req models.CreateWindowRequest) (*models.AvailabilityWindow, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid window request")
	}
	if (req.DayOfWeek == nil) == (req.OverrideDate == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exactly one of day_of_week and override_date is required")
	}

	start, err := models.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be formatted HH:MM")
	}
	end, err := models.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be formatted HH:MM")
	}
	if end <= start {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}

	window := &models.AvailabilityWindow{
		TutorID:   tutorID,
		DayOfWeek: req.DayOfWeek,
		StartTime: start,
		EndTime:   end,
	}
	if req.OverrideDate != nil {
		date, err := models.ParseDate(*req.OverrideDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "override_date must be formatted YYYY-MM-DD")
		}
		window.OverrideDate = &date
	}

	if err := s.schedule.CreateWindow(ctx, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create window")
	}
	return window, nil
}

// RemoveWindow deletes a window the tutor owns.
func (s *TutorService) RemoveWindow(ctx context.Context, tutorID, windowID string) error {
	deleted, err := s.schedule.DeleteWindow(ctx, tutorID, windowID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete window")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "window not found")
	}
	return nil
}

// Blackouts lists the tutor's blackout periods.
func (s *TutorService) Blackouts(ctx context.Context, tutorID string) ([]models.Blackout, error) {
	blackouts, err := s.schedule.ListBlackoutsByTutor(ctx, tutorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list blackouts")
	}
	return blackouts, nil
}

// AddBlackout creates a blackout period for the tutor.
func (s *TutorService) AddBlackout(ctx context.Context, tutorID string, req models.CreateBlackoutRequest) (*models.Blackout, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid blackout request")
	}
	if (req.StartTime == nil) != (req.EndTime == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time and end_time must be given together")
	}

	startDate, err := models.ParseDate(req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must be formatted YYYY-MM-DD")
	}
	endDate, err := models.ParseDate(req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must be formatted YYYY-MM-DD")
	}
	if endDate.Before(startDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}

	blackout := &models.Blackout{
		TutorID:   tutorID,
		StartDate: startDate,
		EndDate:   endDate,
		Note:      req.Note,
	}
	if req.StartTime != nil {
		start, err := models.ParseTimeOfDay(*req.StartTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be formatted HH:MM")
		}
		end, err := models.ParseTimeOfDay(*req.EndTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be formatted HH:MM")
		}
		if end <= start {
			return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
		}
		blackout.StartTime = &start
		blackout.EndTime = &end
	}

	if err := s.schedule.CreateBlackout(ctx, blackout); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create blackout")
	}
	return blackout, nil
}

// RemoveBlackout deletes a blackout the tutor owns.
func (s *TutorService) RemoveBlackout(ctx context.Context, tutorID, blackoutID string) error {
	deleted, err := s.schedule.DeleteBlackout(ctx, tutorID, blackoutID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete blackout")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "blackout not found")
	}
	return nil
}

// List returns tutors for the admin view with pagination metadata.
func (s *TutorService) List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, *models.Pagination, error) {
	tutors, total, err := s.tutors.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tutors")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return tutors, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Deactivate soft-disables a tutor. Confirmed bookings survive; future
// availability stops resolving.
func (s *TutorService) Deactivate(ctx context.Context, tutorID string) error {
	if _, err := s.tutors.FindByID(ctx, tutorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}
	if err := s.tutors.Deactivate(ctx, tutorID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate tutor")
	}
	s.logger.Info("tutor deactivated", zap.String("tutor_id", tutorID))
	return nil
}
