package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/peer-tutoring-api/internal/repository"
	"github.com/noah-isme/peer-tutoring-api/internal/service"
	"github.com/noah-isme/peer-tutoring-api/pkg/config"
	"github.com/noah-isme/peer-tutoring-api/pkg/response"
)

func newAvailabilityTestHandler(t *testing.T) (*AvailabilityHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	svc := service.NewAvailabilityService(
		repository.NewSubjectRepository(sqlxDB),
		repository.NewTutorRepository(sqlxDB),
		repository.NewAvailabilityRepository(sqlxDB),
		repository.NewBookingRepository(sqlxDB),
		nil,
		config.BookingConfig{SlotMinutes: 30, MinLeadDays: 1, CutoffHour: 22},
		time.UTC,
		nil,
	)
	return NewAvailabilityHandler(svc), mock, func() { db.Close() }
}

func performDayRequest(t *testing.T, handler *AvailabilityHandler, query string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, "/availability?"+query, nil)
	require.NoError(t, err)
	c.Request = req

	handler.Day(c)
	return w
}

func TestAvailabilityHandlerDayRequiresSubject(t *testing.T) {
	handler, _, cleanup := newAvailabilityTestHandler(t)
	defer cleanup()

	w := performDayRequest(t, handler, "date=2030-01-07")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvailabilityHandlerDayRejectsBadDate(t *testing.T) {
	handler, _, cleanup := newAvailabilityTestHandler(t)
	defer cleanup()

	w := performDayRequest(t, handler, "subject_id=subj-1&date=March+2nd")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvailabilityHandlerDayResolvesSlots(t *testing.T) {
	handler, mock, cleanup := newAvailabilityTestHandler(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM subjects WHERE id = $1")).
		WithArgs("subj-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "category", "sort_order", "created_at"}).
			AddRow("subj-1", "Algebra II", "Math", 1, time.Now()))

	mock.ExpectQuery(regexp.QuoteMeta("JOIN tutor_subjects ts ON ts.tutor_id = t.id")).
		WithArgs("subj-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "phone", "pin_hash", "active", "created_at", "updated_at"}).
			AddRow("tutor-1", "Alex", "5550000001", "x", true, time.Now(), time.Now()))

	// 2030-01-07 is a Monday, weekday 0.
	mock.ExpectQuery(regexp.QuoteMeta("FROM availability_windows")).
		WithArgs(sqlmock.AnyArg(), 0, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tutor_id", "day_of_week", "override_date", "start_time", "end_time", "created_at"}).
			AddRow("win-1", "tutor-1", 0, nil, "09:00:00", "10:00:00", time.Now()))

	mock.ExpectQuery(regexp.QuoteMeta("FROM blackouts")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tutor_id", "start_date", "end_date", "start_time", "end_time", "note", "created_at"}))

	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject_id", "tutor_id", "student_name", "student_phone", "session_date", "start_time", "end_time", "status", "cancel_reason", "created_at", "cancelled_at", "reminder_sent_at"}))

	w := performDayRequest(t, handler, "subject_id=subj-1&date=2030-01-07")
	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))

	payload, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var day service.DayAvailability
	require.NoError(t, json.Unmarshal(payload, &day))

	require.Len(t, day.Slots, 2)
	assert.Equal(t, "09:00", day.Slots[0].Value)
	assert.Equal(t, "09:30", day.Slots[1].Value)
	assert.Equal(t, 1, day.Slots[0].TutorCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
