package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/momentumclips/booking-backend/internal/database"
	"github.com/momentumclips/booking-backend/internal/models"
	"github.com/momentumclips/booking-backend/internal/services"
)

// AdminHandler handles back-office HTTP requests. All routes behind
// AuthMiddleware + RequireAdmin.
type AdminHandler struct {
	admin    *services.AdminService
	orders   *services.OrderService
	bookings *database.BookingRepository
	packages *database.PackageRepository
	catalog  *database.CatalogRepository
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	admin *services.AdminService,
	orders *services.OrderService,
	bookings *database.BookingRepository,
	packages *database.PackageRepository,
	catalog *database.CatalogRepository,
) *AdminHandler {
	return &AdminHandler{
		admin:    admin,
		orders:   orders,
		bookings: bookings,
		packages: packages,
		catalog:  catalog,
	}
}

// Dashboard handles GET /api/v1/admin/dashboard
func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.admin.Dashboard()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to load dashboard"))
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ListBookings handles GET /api/v1/admin/bookings
func (h *AdminHandler) ListBookings(c *gin.Context) {
	limit, offset := pagination(c)

	bookings, err := h.bookings.List(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to load bookings"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// GetBooking handles GET /api/v1/admin/bookings/:id
func (h *AdminHandler) GetBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errResp("invalid_id", "Invalid booking id"))
		return
	}

	booking, err := h.bookings.GetByID(bookingID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, errResp("not_found", "Booking not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to load booking"))
		return
	}

	audits, err := h.admin.BookingAuditTrail(bookingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to load audit trail"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking": booking, "payment_audits": audits})
}

// UpdateBookingStatus handles PATCH /api/v1/admin/bookings/:id/status
func (h *AdminHandler) UpdateBookingStatus(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errResp("invalid_id", "Invalid booking id"))
		return
	}

	var req models.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errResp("validation_error", "Invalid request body"))
		return
	}

	booking, err := h.admin.UpdateBookingStatus(bookingID, &req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUnknownStatus):
			c.JSON(http.StatusBadRequest, errResp("unknown_status", "Unknown booking status"))
		case errors.Is(err, models.ErrInvalidTransition):
			c.JSON(http.StatusConflict, errResp("invalid_transition", "Status change is not allowed from the current status"))
		case errors.Is(err, database.ErrNotFound):
			c.JSON(http.StatusNotFound, errResp("not_found", "Booking not found"))
		default:
			c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to update status"))
		}
		return
	}

	c.JSON(http.StatusOK, booking)
}

// DeliverRequest is the video delivery payload
type DeliverRequest struct {
	VideoLinks string `json:"video_links" binding:"required"`
}

// DeliverVideos handles POST /api/v1/admin/bookings/:id/deliver
func (h *AdminHandler) DeliverVideos(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errResp("invalid_id", "Invalid booking id"))
		return
	}

	var req DeliverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errResp("validation_error", "video_links is required"))
		return
	}

	booking, err := h.admin.DeliverVideos(bookingID, req.VideoLinks)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidTransition):
			c.JSON(http.StatusConflict, errResp("invalid_transition", "Booking is not ready for delivery"))
		case errors.Is(err, database.ErrNotFound):
			c.JSON(http.StatusNotFound, errResp("not_found", "Booking not found"))
		default:
			c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to deliver videos"))
		}
		return
	}

	c.JSON(http.StatusOK, booking)
}

// NotesRequest is the admin notes payload
type NotesRequest struct {
	Notes string `json:"notes" binding:"required"`
}

// UpdateNotes handles PUT /api/v1/admin/bookings/:id/notes
func (h *AdminHandler) UpdateNotes(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errResp("invalid_id", "Invalid booking id"))
		return
	}

	var req NotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errResp("validation_error", "notes is required"))
		return
	}

	if err := h.admin.UpdateNotes(bookingID, req.Notes); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, errResp("not_found", "Booking not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to update notes"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// ListOrders handles GET /api/v1/admin/orders
func (h *AdminHandler) ListOrders(c *gin.Context) {
	limit, offset := pagination(c)

	orders, err := h.orders.ListOrders(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to load orders"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// ListPackages handles GET /api/v1/admin/packages
func (h *AdminHandler) ListPackages(c *gin.Context) {
	packages, err := h.packages.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to load packages"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"packages": packages})
}

// CreatePackage handles POST /api/v1/admin/packages
func (h *AdminHandler) CreatePackage(c *gin.Context) {
	var req models.SavePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errResp("validation_error", "Invalid request body"))
		return
	}

	pkg := packageFromRequest(&req)
	pkg.ID = uuid.New()

	if err := h.packages.Create(pkg); err != nil {
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to create package"))
		return
	}

	c.JSON(http.StatusCreated, pkg)
}

// UpdatePackage handles PUT /api/v1/admin/packages/:id
func (h *AdminHandler) UpdatePackage(c *gin.Context) {
	packageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errResp("invalid_id", "Invalid package id"))
		return
	}

	var req models.SavePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errResp("validation_error", "Invalid request body"))
		return
	}

	pkg := packageFromRequest(&req)
	pkg.ID = packageID

	if err := h.packages.Update(pkg); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, errResp("not_found", "Package not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to update package"))
		return
	}

	c.JSON(http.StatusOK, pkg)
}

// CreateVideo handles POST /api/v1/admin/videos
func (h *AdminHandler) CreateVideo(c *gin.Context) {
	var video models.Video
	if err := c.ShouldBindJSON(&video); err != nil {
		c.JSON(http.StatusBadRequest, errResp("validation_error", "Invalid request body"))
		return
	}

	video.ID = uuid.New()
	if err := h.catalog.CreateVideo(&video); err != nil {
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to create video"))
		return
	}

	c.JSON(http.StatusCreated, video)
}

// UpdateVideo handles PUT /api/v1/admin/videos/:id
func (h *AdminHandler) UpdateVideo(c *gin.Context) {
	videoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errResp("invalid_id", "Invalid video id"))
		return
	}

	var video models.Video
	if err := c.ShouldBindJSON(&video); err != nil {
		c.JSON(http.StatusBadRequest, errResp("validation_error", "Invalid request body"))
		return
	}

	video.ID = videoID
	if err := h.catalog.UpdateVideo(&video); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, errResp("not_found", "Video not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to update video"))
		return
	}

	c.JSON(http.StatusOK, video)
}

// DeleteVideo handles DELETE /api/v1/admin/videos/:id
func (h *AdminHandler) DeleteVideo(c *gin.Context) {
	videoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errResp("invalid_id", "Invalid video id"))
		return
	}

	if err := h.catalog.DeleteVideo(videoID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, errResp("not_found", "Video not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to delete video"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// CreateTestimonial handles POST /api/v1/admin/testimonials
func (h *AdminHandler) CreateTestimonial(c *gin.Context) {
	var t models.Testimonial
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, errResp("validation_error", "Invalid request body"))
		return
	}

	t.ID = uuid.New()
	if err := h.catalog.CreateTestimonial(&t); err != nil {
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to create testimonial"))
		return
	}

	c.JSON(http.StatusCreated, t)
}

// UpdateTestimonial handles PUT /api/v1/admin/testimonials/:id
func (h *AdminHandler) UpdateTestimonial(c *gin.Context) {
	testimonialID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errResp("invalid_id", "Invalid testimonial id"))
		return
	}

	var t models.Testimonial
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, errResp("validation_error", "Invalid request body"))
		return
	}

	t.ID = testimonialID
	if err := h.catalog.UpdateTestimonial(&t); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, errResp("not_found", "Testimonial not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to update testimonial"))
		return
	}

	c.JSON(http.StatusOK, t)
}

// DeleteTestimonial handles DELETE /api/v1/admin/testimonials/:id
func (h *AdminHandler) DeleteTestimonial(c *gin.Context) {
	testimonialID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errResp("invalid_id", "Invalid testimonial id"))
		return
	}

	if err := h.catalog.DeleteTestimonial(testimonialID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, errResp("not_found", "Testimonial not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to delete testimonial"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func packageFromRequest(req *models.SavePackageRequest) *models.Package {
	currency := req.Currency
	if currency == "" {
		currency = "eur"
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	return &models.Package{
		Name:            req.Name,
		Description:     req.Description,
		PriceCents:      req.PriceCents,
		Currency:        currency,
		DurationHours:   req.DurationHours,
		MaxRiders:       req.MaxRiders,
		IncludesDrone:   req.IncludesDrone,
		IncludesEditing: req.IncludesEditing,
		VideoCount:      req.VideoCount,
		SchedulingURL:   req.SchedulingURL,
		IsActive:        active,
		DisplayOrder:    req.DisplayOrder,
	}
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
