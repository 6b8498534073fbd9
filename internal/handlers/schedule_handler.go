package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/momentumclips/booking-backend/internal/database"
	"github.com/momentumclips/booking-backend/internal/services"
)

// ScheduleHandler handles the external scheduler hand-off
type ScheduleHandler struct {
	scheduler *services.SchedulerService
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(scheduler *services.SchedulerService) *ScheduleHandler {
	return &ScheduleHandler{scheduler: scheduler}
}

// Redirect handles GET /api/v1/schedule/redirect/:order_id
//
// Sends a paid-and-waivered order to the external scheduling page with the
// confirmation token appended.
func (h *ScheduleHandler) Redirect(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errResp("invalid_id", "Invalid order id"))
		return
	}

	schedulingURL, err := h.scheduler.BuildRedirectURL(orderID)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			c.JSON(http.StatusNotFound, errResp("not_found", "Order not found"))
		case errors.Is(err, services.ErrOrderNotReady):
			c.JSON(http.StatusConflict, errResp("order_not_ready", "Payment and waiver must be completed first"))
		default:
			c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to build scheduling link"))
		}
		return
	}

	c.Redirect(http.StatusFound, schedulingURL)
}

// Confirm handles GET /api/v1/schedule/confirm
//
// The scheduling provider redirects the customer here after a slot is
// picked. Refreshing this URL is harmless: the order update is conditional.
func (h *ScheduleHandler) Confirm(c *gin.Context) {
	orderID, err := uuid.Parse(c.Query("order_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errResp("validation_error", "order_id is required"))
		return
	}

	cb := &services.ScheduleCallback{
		OrderID: orderID,
		Token:   c.Query("confirm_token"),
	}

	if startStr := c.Query("start"); startStr != "" {
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, errResp("validation_error", "start must be RFC 3339"))
			return
		}
		cb.Start = &start
	}
	if tz := c.Query("timezone"); tz != "" {
		cb.Timezone = &tz
	}
	if loc := c.Query("location"); loc != "" {
		cb.Location = &loc
	}

	order, err := h.scheduler.HandleCallback(cb)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBadConfirmToken):
			c.JSON(http.StatusForbidden, errResp("bad_token", "Confirmation link is invalid"))
		case errors.Is(err, services.ErrOrderNotReady):
			c.JSON(http.StatusConflict, errResp("order_not_ready", "Order is not ready for scheduling"))
		case errors.Is(err, database.ErrNotFound):
			c.JSON(http.StatusNotFound, errResp("not_found", "Order not found"))
		case errors.Is(err, database.ErrSlotTaken):
			c.JSON(http.StatusConflict, errResp("slot_taken", "That time slot is no longer available. Please pick another on the scheduling page."))
		default:
			c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to confirm schedule"))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "scheduled", "order": order})
}
