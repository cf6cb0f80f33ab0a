package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/peer-tutoring-api/internal/middleware"
	"github.com/noah-isme/peer-tutoring-api/internal/models"
)

func TestBookingHandlerCreateRejectsInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewBookingHandler(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/bookings", bytes.NewReader([]byte(`not json`)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTutorHandlerRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTutorHandler(nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, "/tutors/me", nil)
	require.NoError(t, err)
	c.Request = req

	handler.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBookingFilterFromQueryScopesTutor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, "/tutors/me/bookings?status=confirmed&from=2026-03-01&to=2026-03-31&page=2&limit=10", nil)
	require.NoError(t, err)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{ActorID: "tutor-1", Role: models.RoleTutor})

	filter := bookingFilterFromQuery(c)
	assert.Equal(t, "confirmed", filter.Status)
	require.NotNil(t, filter.DateFrom)
	assert.Equal(t, "2026-03-01", filter.DateFrom.String())
	require.NotNil(t, filter.DateTo)
	assert.Equal(t, "2026-03-31", filter.DateTo.String())
	assert.Equal(t, 2, filter.Page)
	assert.Equal(t, 10, filter.PageSize)
}
