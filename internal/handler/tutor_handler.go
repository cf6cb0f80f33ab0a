package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/peer-tutoring-api/internal/models"
	"github.com/noah-isme/peer-tutoring-api/internal/service"
	appErrors "github.com/noah-isme/peer-tutoring-api/pkg/errors"
	"github.com/noah-isme/peer-tutoring-api/pkg/response"
)

// TutorHandler handles the authenticated tutor portal endpoints. Every route
// operates on the tutor identified by the session token.
type TutorHandler struct {
	tutors   *service.TutorService
	bookings *service.BookingService
}

// NewTutorHandler constructs a tutor handler.
func NewTutorHandler(tutors *service.TutorService, bookings *service.BookingService) *TutorHandler {
	return &TutorHandler{tutors: tutors, bookings: bookings}
}

// Me godoc
// @Summary Current tutor profile
// @Tags Tutors
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /tutors/me [get]
func (h *TutorHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	tutor, err := h.tutors.Profile(c.Request.Context(), claims.ActorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutor, nil)
}

// UpdateSubjects godoc
// @Summary Replace the tutor's subjects
// @Tags Tutors
// @Accept json
// @Produce json
// @Param payload body models.UpdateSubjectsRequest true "Subjects payload"
// @Success 204
// @Security BearerAuth
// @Router /tutors/me/subjects [put]
func (h *TutorHandler) UpdateSubjects(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.UpdateSubjectsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.tutors.UpdateSubjects(c.Request.Context(), claims.ActorID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListWindows godoc
// @Summary List the tutor's availability windows
// @Tags Tutors
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /tutors/me/windows [get]
func (h *TutorHandler) ListWindows(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	windows, err := h.tutors.Windows(c.Request.Context(), claims.ActorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, windows, nil)
}

// CreateWindow godoc
// @Summary Add an availability window
// @Tags Tutors
// @Accept json
// @Produce json
// @Param payload body models.CreateWindowRequest true "Window payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /tutors/me/windows [post]
func (h *TutorHandler) CreateWindow(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.CreateWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	window, err := h.tutors.AddWindow(c.Request.Context(), claims.ActorID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, window)
}

// DeleteWindow godoc
// @Summary Remove an availability window
// @Tags Tutors
// @Produce json
// @Param id path string true "Window ID"
// @Success 204
// @Security BearerAuth
// @Router /tutors/me/windows/{id} [delete]
func (h *TutorHandler) DeleteWindow(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.tutors.RemoveWindow(c.Request.Context(), claims.ActorID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListBlackouts godoc
// @Summary List the tutor's blackout periods
// @Tags Tutors
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /tutors/me/blackouts [get]
func (h *TutorHandler) ListBlackouts(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	blackouts, err := h.tutors.Blackouts(c.Request.Context(), claims.ActorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, blackouts, nil)
}

// CreateBlackout godoc
// @Summary Add a blackout period
// @Tags Tutors
// @Accept json
// @Produce json
// @Param payload body models.CreateBlackoutRequest true "Blackout payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /tutors/me/blackouts [post]
func (h *TutorHandler) CreateBlackout(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.CreateBlackoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	blackout, err := h.tutors.AddBlackout(c.Request.Context(), claims.ActorID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, blackout)
}

// DeleteBlackout godoc
// @Summary Remove a blackout period
// @Tags Tutors
// @Produce json
// @Param id path string true "Blackout ID"
// @Success 204
// @Security BearerAuth
// @Router /tutors/me/blackouts/{id} [delete]
func (h *TutorHandler) DeleteBlackout(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.tutors.RemoveBlackout(c.Request.Context(), claims.ActorID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListBookings godoc
// @Summary List the tutor's bookings
// @Tags Tutors
// @Produce json
// @Param status query string false "Filter by status"
// @Param from query string false "Session date lower bound (YYYY-MM-DD)"
// @Param to query string false "Session date upper bound (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /tutors/me/bookings [get]
func (h *TutorHandler) ListBookings(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := bookingFilterFromQuery(c)
	filter.TutorID = claims.ActorID

	bookings, pagination, err := h.bookings.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, pagination)
}

// CancelBooking godoc
// @Summary Cancel one of the tutor's bookings
// @Tags Tutors
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body models.CancelBookingRequest false "Cancellation payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /tutors/me/bookings/{id}/cancel [post]
func (h *TutorHandler) CancelBooking(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}

	booking, err := h.bookings.Cancel(c.Request.Context(), c.Param("id"), claims, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

func bookingFilterFromQuery(c *gin.Context) models.BookingFilter {
	var filter models.BookingFilter
	filter.Status = c.Query("status")
	filter.SubjectID = c.Query("subject_id")
	if raw := c.Query("from"); raw != "" {
		if date, err := models.ParseDate(raw); err == nil {
			filter.DateFrom = &date
		}
	}
	if raw := c.Query("to"); raw != "" {
		if date, err := models.ParseDate(raw); err == nil {
			filter.DateTo = &date
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}
