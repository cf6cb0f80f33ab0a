package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/peer-tutoring-api/internal/models"
	"github.com/noah-isme/peer-tutoring-api/internal/service"
	appErrors "github.com/noah-isme/peer-tutoring-api/pkg/errors"
	"github.com/noah-isme/peer-tutoring-api/pkg/response"
)

// AvailabilityHandler serves the public slot view.
type AvailabilityHandler struct {
	service *service.AvailabilityService
}

// NewAvailabilityHandler constructs an availability handler.
func NewAvailabilityHandler(svc *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// Day godoc
// @Summary List bookable slots for a subject and date
// @Tags Availability
// @Produce json
// @Param subject_id query string true "Subject ID"
// @Param date query string true "Session date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /availability [get]
func (h *AvailabilityHandler) Day(c *gin.Context) {
	subjectID := c.Query("subject_id")
	if subjectID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "subject_id is required"))
		return
	}
	date, err := models.ParseDate(c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD"))
		return
	}

	day, err := h.service.Day(c.Request.Context(), subjectID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, day, nil)
}
