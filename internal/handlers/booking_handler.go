package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/momentumclips/booking-backend/internal/database"
	"github.com/momentumclips/booking-backend/internal/middleware"
	"github.com/momentumclips/booking-backend/internal/models"
	"github.com/momentumclips/booking-backend/internal/services"
)

// BookingHandler handles the authenticated slot-first booking flow
type BookingHandler struct {
	bookings *services.BookingService
	users    *database.UserRepository
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookings *services.BookingService, users *database.UserRepository) *BookingHandler {
	return &BookingHandler{bookings: bookings, users: users}
}

// Create handles POST /api/v1/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errResp("unauthorized", "Authentication required"))
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errResp("validation_error", "Invalid request body"))
		return
	}

	user, err := h.users.GetByID(userCtx.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errResp("unauthorized", "Account not found"))
		return
	}

	result, err := h.bookings.CreateBooking(user.ID, user.Email, user.Name, &req)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrSlotTaken):
			c.JSON(http.StatusConflict, errResp("slot_taken", "That time slot has just been booked. Please pick another."))
		case errors.Is(err, services.ErrPackageUnavailable):
			c.JSON(http.StatusNotFound, errResp("package_unavailable", "Package is not available for booking"))
		case errors.Is(err, services.ErrSlotTooSoon):
			c.JSON(http.StatusUnprocessableEntity, errResp("slot_too_soon", "Bookings need more advance notice"))
		case errors.Is(err, services.ErrSlotTooFar):
			c.JSON(http.StatusUnprocessableEntity, errResp("slot_too_far", "That date is beyond the booking horizon"))
		case errors.Is(err, services.ErrTooManyRiders):
			c.JSON(http.StatusUnprocessableEntity, errResp("too_many_riders", "Too many riders for one session"))
		default:
			c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to create booking"))
		}
		return
	}

	c.JSON(http.StatusCreated, result)
}

// List handles GET /api/v1/bookings
func (h *BookingHandler) List(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errResp("unauthorized", "Authentication required"))
		return
	}

	bookings, err := h.bookings.ListUserBookings(userCtx.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to load bookings"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// Get handles GET /api/v1/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errResp("unauthorized", "Authentication required"))
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errResp("invalid_id", "Invalid booking id"))
		return
	}

	booking, err := h.bookings.GetBooking(bookingID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, errResp("not_found", "Booking not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to load booking"))
		return
	}

	if !h.ownsBooking(userCtx, booking) {
		c.JSON(http.StatusNotFound, errResp("not_found", "Booking not found"))
		return
	}

	c.JSON(http.StatusOK, booking)
}

// Cancel handles POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errResp("unauthorized", "Authentication required"))
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errResp("invalid_id", "Invalid booking id"))
		return
	}

	booking, err := h.bookings.GetBooking(bookingID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, errResp("not_found", "Booking not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to load booking"))
		return
	}

	if !h.ownsBooking(userCtx, booking) {
		c.JSON(http.StatusNotFound, errResp("not_found", "Booking not found"))
		return
	}

	cancelled, err := h.bookings.CancelBooking(bookingID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCancellationWindowPassed):
			c.JSON(http.StatusUnprocessableEntity, errResp("cancellation_window_passed", "Cancellations need more advance notice"))
		case errors.Is(err, models.ErrInvalidTransition):
			c.JSON(http.StatusConflict, errResp("invalid_transition", "Booking cannot be cancelled from its current status"))
		default:
			c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to cancel booking"))
		}
		return
	}

	c.JSON(http.StatusOK, cancelled)
}

// CheckAvailability handles GET /api/v1/availability?package_id=..&starts_at=..
//
// The answer is a hint for the slot picker. Creation re-checks atomically.
func (h *BookingHandler) CheckAvailability(c *gin.Context) {
	packageID, err := uuid.Parse(c.Query("package_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errResp("validation_error", "package_id is required"))
		return
	}

	startsAt, err := time.Parse(time.RFC3339, c.Query("starts_at"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errResp("validation_error", "starts_at must be RFC 3339"))
		return
	}

	available, err := h.bookings.CheckAvailability(packageID, startsAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to check availability"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"available": available})
}

// TakenSlots handles GET /api/v1/availability/calendar?package_id=..&from=..&to=..
func (h *BookingHandler) TakenSlots(c *gin.Context) {
	packageID, err := uuid.Parse(c.Query("package_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errResp("validation_error", "package_id is required"))
		return
	}

	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errResp("validation_error", "from must be RFC 3339"))
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errResp("validation_error", "to must be RFC 3339"))
		return
	}

	taken, err := h.bookings.TakenSlots(packageID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to load calendar"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"taken": taken})
}

func (h *BookingHandler) ownsBooking(userCtx middleware.UserContext, booking *models.Booking) bool {
	if userCtx.IsAdmin {
		return true
	}
	return booking.UserID != nil && *booking.UserID == userCtx.UserID
}
