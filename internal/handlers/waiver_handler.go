package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/momentumclips/booking-backend/internal/database"
	"github.com/momentumclips/booking-backend/internal/models"
	"github.com/momentumclips/booking-backend/internal/services"
	"github.com/momentumclips/booking-backend/internal/utils"
)

// WaiverHandler handles waiver signing
type WaiverHandler struct {
	waivers   *services.WaiverService
	scheduler *services.SchedulerService
}

// NewWaiverHandler creates a new waiver handler
func NewWaiverHandler(waivers *services.WaiverService, scheduler *services.SchedulerService) *WaiverHandler {
	return &WaiverHandler{waivers: waivers, scheduler: scheduler}
}

// Sign handles POST /api/v1/waiver/sign
//
// For order-linked signatures the response carries the external scheduling
// URL as the next step.
func (h *WaiverHandler) Sign(c *gin.Context) {
	var req models.SignWaiverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errResp("validation_error", "Invalid request body"))
		return
	}

	waiver, err := h.waivers.SignWaiver(&req, utils.GetRealIP(c.Request), c.Request.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTermsNotAccepted):
			c.JSON(http.StatusUnprocessableEntity, errResp("terms_not_accepted", "You must accept the waiver terms"))
		case errors.Is(err, services.ErrLegalNameTooShort):
			c.JSON(http.StatusUnprocessableEntity, errResp("legal_name_too_short", "Please type your full legal name"))
		case errors.Is(err, services.ErrWaiverTargetMissing):
			c.JSON(http.StatusBadRequest, errResp("validation_error", "A booking or order reference is required"))
		case errors.Is(err, services.ErrAlreadySigned):
			c.JSON(http.StatusConflict, errResp("already_signed", "A waiver is already on file for this booking"))
		case errors.Is(err, services.ErrOrderNotPaid):
			c.JSON(http.StatusConflict, errResp("order_not_paid", "Payment must be confirmed before signing the waiver"))
		case errors.Is(err, database.ErrNotFound):
			c.JSON(http.StatusNotFound, errResp("not_found", "Booking or order not found"))
		default:
			c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to record waiver"))
		}
		return
	}

	resp := gin.H{"waiver": waiver}

	if req.OrderID != nil {
		if orderID, err := uuid.Parse(*req.OrderID); err == nil {
			if schedulingURL, err := h.scheduler.BuildRedirectURL(orderID); err == nil {
				resp["next_step"] = "schedule"
				resp["scheduling_url"] = schedulingURL
			}
		}
	}

	c.JSON(http.StatusCreated, resp)
}

// Status handles GET /api/v1/waiver/status/:booking_id
func (h *WaiverHandler) Status(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errResp("invalid_id", "Invalid booking id"))
		return
	}

	signed, err := h.waivers.IsSigned(bookingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to check waiver status"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"signed": signed})
}
