package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/peer-tutoring-api/internal/models"
	"github.com/noah-isme/peer-tutoring-api/internal/service"
	appErrors "github.com/noah-isme/peer-tutoring-api/pkg/errors"
	"github.com/noah-isme/peer-tutoring-api/pkg/export"
	"github.com/noah-isme/peer-tutoring-api/pkg/response"
)

// AdminHandler handles the admin oversight endpoints.
type AdminHandler struct {
	tutors   *service.TutorService
	bookings *service.BookingService
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
}

// NewAdminHandler constructs an admin handler.
func NewAdminHandler(tutors *service.TutorService, bookings *service.BookingService) *AdminHandler {
	return &AdminHandler{
		tutors:   tutors,
		bookings: bookings,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
	}
}

// ListBookings godoc
// @Summary List bookings across all tutors
// @Tags Admin
// @Produce json
// @Param tutor_id query string false "Filter by tutor"
// @Param subject_id query string false "Filter by subject"
// @Param status query string false "Filter by status"
// @Param from query string false "Session date lower bound (YYYY-MM-DD)"
// @Param to query string false "Session date upper bound (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/bookings [get]
func (h *AdminHandler) ListBookings(c *gin.Context) {
	filter := bookingFilterFromQuery(c)
	filter.TutorID = c.Query("tutor_id")

	bookings, pagination, err := h.bookings.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, pagination)
}

// CancelBooking godoc
// @Summary Cancel any booking
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body models.CancelBookingRequest false "Cancellation payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/bookings/{id}/cancel [post]
func (h *AdminHandler) CancelBooking(c *gin.Context) {
	var req models.CancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}

	booking, err := h.bookings.Cancel(c.Request.Context(), c.Param("id"), claimsFromContext(c), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// ListTutors godoc
// @Summary List tutors
// @Tags Admin
// @Produce json
// @Param search query string false "Search name or phone"
// @Param subject_id query string false "Filter by subject"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/tutors [get]
func (h *AdminHandler) ListTutors(c *gin.Context) {
	filter := tutorFilterFromQuery(c)

	tutors, pagination, err := h.tutors.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutors, pagination)
}

// DeactivateTutor godoc
// @Summary Deactivate a tutor
// @Tags Admin
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 204
// @Security BearerAuth
// @Router /admin/tutors/{id}/deactivate [post]
func (h *AdminHandler) DeactivateTutor(c *gin.Context) {
	if err := h.tutors.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportRoster godoc
// @Summary Export the tutor roster as CSV or PDF
// @Tags Admin
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Security BearerAuth
// @Router /admin/tutors/export [get]
func (h *AdminHandler) ExportRoster(c *gin.Context) {
	filter := tutorFilterFromQuery(c)
	filter.Page = 1
	filter.PageSize = 100

	dataset := export.Dataset{Headers: []string{"Name", "Phone", "Status", "Joined"}}
	for {
		tutors, pagination, err := h.tutors.List(c.Request.Context(), filter)
		if err != nil {
			response.Error(c, err)
			return
		}
		for _, tutor := range tutors {
			status := "active"
			if !tutor.Active {
				status = "inactive"
			}
			dataset.Append(tutor.Name, tutor.Phone, status, tutor.CreatedAt.Format("2006-01-02"))
		}
		if len(dataset.Rows) >= pagination.TotalCount || len(tutors) == 0 {
			break
		}
		filter.Page++
	}
	filename := fmt.Sprintf("tutor-roster-%s", time.Now().UTC().Format("2006-01-02"))

	switch c.DefaultQuery("format", "csv") {
	case "pdf":
		payload, err := h.pdf.Render(dataset, "Tutor Roster")
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", filename))
		c.Data(http.StatusOK, "application/pdf", payload)
	case "csv":
		payload, err := h.csv.Render(dataset)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", filename))
		c.Data(http.StatusOK, "text/csv", payload)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
	}
}

func tutorFilterFromQuery(c *gin.Context) models.TutorFilter {
	var filter models.TutorFilter
	filter.Search = c.Query("search")
	filter.SubjectID = c.Query("subject_id")
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	return filter
}
