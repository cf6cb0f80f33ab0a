package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/peer-tutoring-api/internal/models"
)

// ErrTutorSlotTaken is returned when an insert loses the race for a
// (tutor, date, start_time) slot to a concurrent confirmed booking. The
// partial unique index uq_booking_tutor_slot is the authority.
var ErrTutorSlotTaken = errors.New("tutor already has a confirmed booking for that slot")

const uniqueViolation = "23505"

// BookingRepository provides persistence for bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, subject_id, tutor_id, student_name, student_phone, session_date, start_time, end_time, status, cancel_reason, created_at, cancelled_at, reminder_sent_at`

// List returns bookings with optional filtering and pagination.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	base := "FROM bookings WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TutorID != "" {
		conditions = append(conditions, fmt.Sprintf("tutor_id = $%d", len(args)+1))
		args = append(args, filter.TutorID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("session_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("session_date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"session_date": true,
		"start_time":   true,
		"created_at":   true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "session_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, start_time ASC LIMIT %d OFFSET %d", bookingColumns, base, sortBy, order, size, offset)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	return bookings, total, nil
}

// FindByID loads a booking by id.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE id = $1", bookingColumns)
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListConfirmedForDate returns the given tutors' confirmed bookings on a
// date, across all subjects.
func (r *BookingRepository) ListConfirmedForDate(ctx context.Context, tutorIDs []string, date models.Date) ([]models.Booking, error) {
	if len(tutorIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE tutor_id = ANY($1) AND session_date = $2 AND status = $3 ORDER BY start_time ASC", bookingColumns)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, anyIDs(tutorIDs), date, models.BookingStatusConfirmed); err != nil {
		return nil, fmt.Errorf("list confirmed bookings for date: %w", err)
	}
	return bookings, nil
}

// tutorBookingCount is a scan target for fairness count aggregation.
type tutorBookingCount struct {
	TutorID string `db:"tutor_id"`
	Count   int    `db:"count"`
}

// CountConfirmedByTutor returns each tutor's confirmed-booking count, bounded
// to bookings created at or after since when given. Tutors without bookings
// are absent from the map.
func (r *BookingRepository) CountConfirmedByTutor(ctx context.Context, tutorIDs []string, since *time.Time) (map[string]int, error) {
	if len(tutorIDs) == 0 {
		return map[string]int{}, nil
	}

	query := `SELECT tutor_id, COUNT(*) AS count FROM bookings WHERE tutor_id = ANY($1) AND status = $2`
	args := []interface{}{anyIDs(tutorIDs), models.BookingStatusConfirmed}
	if since != nil {
		query += " AND created_at >= $3"
		args = append(args, *since)
	}
	query += " GROUP BY tutor_id"

	var rows []tutorBookingCount
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count bookings by tutor: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.TutorID] = row.Count
	}
	return counts, nil
}

// Insert stores a new confirmed booking. A unique violation on
// uq_booking_tutor_slot maps to ErrTutorSlotTaken so the coordinator can
// retry against fresh state.
func (r *BookingRepository) Insert(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	if booking.Status == "" {
		booking.Status = models.BookingStatusConfirmed
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO bookings (id, subject_id, tutor_id, student_name, student_phone, session_date, start_time, end_time, status, created_at)
		VALUES (:id, :subject_id, :tutor_id, :student_name, :student_phone, :session_date, :start_time, :end_time, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrTutorSlotTaken
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// Cancel flips a confirmed booking to cancelled. Returns whether a row
// changed; cancelling an already-cancelled booking changes nothing.
func (r *BookingRepository) Cancel(ctx context.Context, id string, reason *string, at time.Time) (bool, error) {
	const query = `UPDATE bookings SET status = $2, cancelled_at = $3, cancel_reason = $4 WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, id, models.BookingStatusCancelled, at, reason, models.BookingStatusConfirmed)
	if err != nil {
		return false, fmt.Errorf("cancel booking: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel booking result: %w", err)
	}
	return affected > 0, nil
}

// DueReminders returns confirmed bookings starting within [from, to) that
// have not been reminded yet. Selection only; marking is separate so an
// interrupted run can safely resume. session_date + start_time is a naive
// timestamp, so it is anchored to the booking timezone before comparing
// against the timestamptz bounds; the session TimeZone never shifts the
// horizon.
func (r *BookingRepository) DueReminders(ctx context.Context, from, to time.Time, tz string) ([]models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings
		WHERE status = $1
		  AND reminder_sent_at IS NULL
		  AND (session_date + start_time) AT TIME ZONE $4 >= $2
		  AND (session_date + start_time) AT TIME ZONE $4 < $3
		ORDER BY session_date ASC, start_time ASC`, bookingColumns)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, models.BookingStatusConfirmed, from, to, tz); err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	return bookings, nil
}

// MarkReminded stamps a booking as reminded so re-runs skip it.
func (r *BookingRepository) MarkReminded(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE bookings SET reminder_sent_at = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("mark booking reminded: %w", err)
	}
	return nil
}
