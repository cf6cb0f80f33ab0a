package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/peer-tutoring-api/internal/models"
)

// AvailabilityRepository provides persistence for availability windows and
// blackout periods.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository creates a new availability repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListWindowsByTutor returns a tutor's windows, recurring first.
func (r *AvailabilityRepository) ListWindowsByTutor(ctx context.Context, tutorID string) ([]models.AvailabilityWindow, error) {
	const query = `SELECT id, tutor_id, day_of_week, override_date, start_time, end_time, created_at
		FROM availability_windows
		WHERE tutor_id = $1
		ORDER BY day_of_week ASC NULLS LAST, override_date ASC NULLS LAST, start_time ASC`
	var windows []models.AvailabilityWindow
	if err := r.db.SelectContext(ctx, &windows, query, tutorID); err != nil {
		return nil, fmt.Errorf("list windows by tutor: %w", err)
	}
	return windows, nil
}

// WindowsForDate returns every window of the given tutors that could apply to
// the date: recurring rows for its weekday plus date overrides.
func (r *AvailabilityRepository) WindowsForDate(ctx context.Context, tutorIDs []string, date models.Date) ([]models.AvailabilityWindow, error) {
	if len(tutorIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT id, tutor_id, day_of_week, override_date, start_time, end_time, created_at
		FROM availability_windows
		WHERE tutor_id = ANY($1) AND (day_of_week = $2 OR override_date = $3)
		ORDER BY tutor_id ASC, start_time ASC`
	var windows []models.AvailabilityWindow
	if err := r.db.SelectContext(ctx, &windows, query, anyIDs(tutorIDs), date.Weekday(), date); err != nil {
		return nil, fmt.Errorf("list windows for date: %w", err)
	}
	return windows, nil
}

// CreateWindow stores a new availability window.
func (r *AvailabilityRepository) CreateWindow(ctx context.Context, window *models.AvailabilityWindow) error {
	if window.ID == "" {
		window.ID = uuid.NewString()
	}
	if window.CreatedAt.IsZero() {
		window.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO availability_windows (id, tutor_id, day_of_week, override_date, start_time, end_time, created_at)
		VALUES (:id, :tutor_id, :day_of_week, :override_date, :start_time, :end_time, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, window); err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	return nil
}

// DeleteWindow removes a window owned by the tutor.
func (r *AvailabilityRepository) DeleteWindow(ctx context.Context, tutorID, windowID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM availability_windows WHERE id = $1 AND tutor_id = $2`, windowID, tutorID)
	if err != nil {
		return false, fmt.Errorf("delete window: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete window result: %w", err)
	}
	return affected > 0, nil
}

// ListBlackoutsByTutor returns a tutor's blackout periods.
func (r *AvailabilityRepository) ListBlackoutsByTutor(ctx context.Context, tutorID string) ([]models.Blackout, error) {
	const query = `SELECT id, tutor_id, start_date, end_date, start_time, end_time, note, created_at
		FROM blackouts
		WHERE tutor_id = $1
		ORDER BY start_date ASC, start_time ASC NULLS FIRST`
	var blackouts []models.Blackout
	if err := r.db.SelectContext(ctx, &blackouts, query, tutorID); err != nil {
		return nil, fmt.Errorf("list blackouts by tutor: %w", err)
	}
	return blackouts, nil
}

// BlackoutsForDate returns every blackout of the given tutors whose date
// range includes the date.
func (r *AvailabilityRepository) BlackoutsForDate(ctx context.Context, tutorIDs []string, date models.Date) ([]models.Blackout, error) {
	if len(tutorIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT id, tutor_id, start_date, end_date, start_time, end_time, note, created_at
		FROM blackouts
		WHERE tutor_id = ANY($1) AND start_date <= $2 AND end_date >= $2
		ORDER BY tutor_id ASC, start_date ASC`
	var blackouts []models.Blackout
	if err := r.db.SelectContext(ctx, &blackouts, query, anyIDs(tutorIDs), date); err != nil {
		return nil, fmt.Errorf("list blackouts for date: %w", err)
	}
	return blackouts, nil
}

// CreateBlackout stores a new blackout period.
func (r *AvailabilityRepository) CreateBlackout(ctx context.Context, blackout *models.Blackout) error {
	if blackout.ID == "" {
		blackout.ID = uuid.NewString()
	}
	if blackout.CreatedAt.IsZero() {
		blackout.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO blackouts (id, tutor_id, start_date, end_date, start_time, end_time, note, created_at)
		VALUES (:id, :tutor_id, :start_date, :end_date, :start_time, :end_time, :note, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, blackout); err != nil {
		return fmt.Errorf("create blackout: %w", err)
	}
	return nil
}

// DeleteBlackout removes a blackout owned by the tutor.
func (r *AvailabilityRepository) DeleteBlackout(ctx context.Context, tutorID, blackoutID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blackouts WHERE id = $1 AND tutor_id = $2`, blackoutID, tutorID)
	if err != nil {
		return false, fmt.Errorf("delete blackout: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete blackout result: %w", err)
	}
	return affected > 0, nil
}
