package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/peer-tutoring-api/internal/models"
)

func newBookingRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func mustDate(t *testing.T, raw string) models.Date {
	t.Helper()
	d, err := models.ParseDate(raw)
	require.NoError(t, err)
	return d
}

func TestBookingRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WithArgs(sqlmock.AnyArg(), "sub-1", "tutor-1", "Jordan", "5551234567",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), models.BookingStatusConfirmed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	start, _ := models.ParseTimeOfDay("10:00")
	end, _ := models.ParseTimeOfDay("10:30")
	booking := &models.Booking{
		SubjectID:    "sub-1",
		TutorID:      "tutor-1",
		StudentName:  "Jordan",
		StudentPhone: "5551234567",
		SessionDate:  mustDate(t, "2026-03-02"),
		StartTime:    start,
		EndTime:      end,
	}

	require.NoError(t, repo.Insert(context.Background(), booking))
	assert.NotEmpty(t, booking.ID)
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryInsertUniqueViolation(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_booking_tutor_slot"})

	start, _ := models.ParseTimeOfDay("10:00")
	end, _ := models.ParseTimeOfDay("10:30")
	err := repo.Insert(context.Background(), &models.Booking{
		SubjectID:    "sub-1",
		TutorID:      "tutor-1",
		StudentName:  "Jordan",
		StudentPhone: "5551234567",
		SessionDate:  mustDate(t, "2026-03-02"),
		StartTime:    start,
		EndTime:      end,
	})
	assert.ErrorIs(t, err, ErrTutorSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCancelIdempotent(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = $2, cancelled_at = $3, cancel_reason = $4 WHERE id = $1 AND status = $5")).
		WithArgs("bk-1", models.BookingStatusCancelled, now, nil, models.BookingStatusConfirmed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	changed, err := repo.Cancel(context.Background(), "bk-1", nil, now)
	require.NoError(t, err)
	assert.True(t, changed)

	// Second cancel matches no confirmed row and reports no change.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = $2, cancelled_at = $3, cancel_reason = $4 WHERE id = $1 AND status = $5")).
		WithArgs("bk-1", models.BookingStatusCancelled, now, nil, models.BookingStatusConfirmed).
		WillReturnResult(sqlmock.NewResult(0, 0))
	changed, err = repo.Cancel(context.Background(), "bk-1", nil, now)
	require.NoError(t, err)
	assert.False(t, changed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCountConfirmedByTutor(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	rows := sqlmock.NewRows([]string{"tutor_id", "count"}).
		AddRow("tutor-1", 3).
		AddRow("tutor-2", 1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT tutor_id, COUNT(*) AS count FROM bookings WHERE tutor_id = ANY($1) AND status = $2 GROUP BY tutor_id")).
		WithArgs(sqlmock.AnyArg(), models.BookingStatusConfirmed).
		WillReturnRows(rows)

	counts, err := repo.CountConfirmedByTutor(context.Background(), []string{"tutor-1", "tutor-2", "tutor-3"}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"tutor-1": 3, "tutor-2": 1}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCountConfirmedByTutorWindowed(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	since := time.Now().UTC().AddDate(0, 0, -30)
	mock.ExpectQuery(regexp.QuoteMeta("AND created_at >= $3 GROUP BY tutor_id")).
		WithArgs(sqlmock.AnyArg(), models.BookingStatusConfirmed, since).
		WillReturnRows(sqlmock.NewRows([]string{"tutor_id", "count"}))

	counts, err := repo.CountConfirmedByTutor(context.Background(), []string{"tutor-1"}, &since)
	require.NoError(t, err)
	assert.Empty(t, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryDueReminders(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	horizon := now.Add(24 * time.Hour)

	rows := sqlmock.NewRows([]string{
		"id", "subject_id", "tutor_id", "student_name", "student_phone",
		"session_date", "start_time", "end_time", "status", "cancel_reason",
		"created_at", "cancelled_at", "reminder_sent_at",
	}).AddRow("bk-1", "sub-1", "tutor-1", "Jordan", "5551234567",
		"2026-03-01", "10:00:00", "10:30:00", models.BookingStatusConfirmed, nil,
		now, nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta("AT TIME ZONE $4 >= $2")).
		WithArgs(models.BookingStatusConfirmed, now, horizon, "America/Los_Angeles").
		WillReturnRows(rows)

	bookings, err := repo.DueReminders(context.Background(), now, horizon, "America/Los_Angeles")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "bk-1", bookings[0].ID)
	assert.Equal(t, "10:00", bookings[0].StartTime.String())
	assert.Equal(t, "2026-03-01", bookings[0].SessionDate.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryListConfirmedForDateEmptyTutorSet(t *testing.T) {
	db, _, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	bookings, err := repo.ListConfirmedForDate(context.Background(), nil, mustDate(t, "2026-03-02"))
	require.NoError(t, err)
	assert.Nil(t, bookings)
}
