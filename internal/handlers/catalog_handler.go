package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/momentumclips/booking-backend/internal/database"
	"github.com/momentumclips/booking-backend/internal/models"
)

// CatalogHandler serves the public site content: packages, the video
// portfolio, testimonials, and the waiver text
type CatalogHandler struct {
	packages *database.PackageRepository
	catalog  *database.CatalogRepository
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(packages *database.PackageRepository, catalog *database.CatalogRepository) *CatalogHandler {
	return &CatalogHandler{packages: packages, catalog: catalog}
}

// ListPackages handles GET /api/v1/packages
func (h *CatalogHandler) ListPackages(c *gin.Context) {
	packages, err := h.packages.GetActive()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to load packages"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"packages": packages})
}

// ListVideos handles GET /api/v1/videos
func (h *CatalogHandler) ListVideos(c *gin.Context) {
	videos, err := h.catalog.GetPublishedVideos()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to load videos"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

// ListTestimonials handles GET /api/v1/testimonials
func (h *CatalogHandler) ListTestimonials(c *gin.Context) {
	testimonials, err := h.catalog.GetPublishedTestimonials()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to load testimonials"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"testimonials": testimonials})
}

// GetWaiverText handles GET /api/v1/waiver
func (h *CatalogHandler) GetWaiverText(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version": models.CurrentWaiverVersion,
		"text":    models.WaiverText,
	})
}
