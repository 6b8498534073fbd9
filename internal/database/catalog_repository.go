package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/momentumclips/booking-backend/internal/models"
)

// CatalogRepository handles the public marketing content: portfolio videos
// and customer testimonials
type CatalogRepository struct {
	db DB
}

// NewCatalogRepository creates a new CatalogRepository
func NewCatalogRepository(db DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

const videoColumns = `
	id, title, description, youtube_id, thumbnail_url, location_tag,
	style_tag, rider_level, is_featured, is_published, display_order,
	booking_id, created_at, updated_at`

const testimonialColumns = `
	id, client_name, client_location, text, rating, booking_id,
	is_featured, is_published, display_order, verified_purchase,
	created_at, updated_at`

// CreateVideo inserts a portfolio video
func (r *CatalogRepository) CreateVideo(video *models.Video) error {
	if video.ID == uuid.Nil {
		video.ID = uuid.New()
	}

	query := `
		INSERT INTO videos (
			id, title, description, youtube_id, thumbnail_url, location_tag,
			style_tag, rider_level, is_featured, is_published, display_order,
			booking_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		video.ID, video.Title, video.Description, video.YouTubeID,
		video.ThumbnailURL, video.LocationTag, video.StyleTag, video.RiderLevel,
		video.IsFeatured, video.IsPublished, video.DisplayOrder, video.BookingID,
	).Scan(&video.CreatedAt, &video.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}

	return nil
}

// GetPublishedVideos returns the public portfolio, featured first
func (r *CatalogRepository) GetPublishedVideos() ([]models.Video, error) {
	videos := []models.Video{}
	query := `SELECT ` + videoColumns + `
		FROM videos WHERE is_published = TRUE
		ORDER BY is_featured DESC, display_order, created_at DESC`

	if err := r.db.Select(&videos, query); err != nil {
		return nil, fmt.Errorf("failed to fetch videos: %w", err)
	}

	return videos, nil
}

// GetVideoByID retrieves a video by ID
func (r *CatalogRepository) GetVideoByID(videoID uuid.UUID) (*models.Video, error) {
	video := &models.Video{}
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`

	err := r.db.Get(video, query, videoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch video: %w", err)
	}

	return video, nil
}

// UpdateVideo rewrites a video's fields
func (r *CatalogRepository) UpdateVideo(video *models.Video) error {
	query := `
		UPDATE videos
		SET title = $2, description = $3, youtube_id = $4, thumbnail_url = $5,
			location_tag = $6, style_tag = $7, rider_level = $8,
			is_featured = $9, is_published = $10, display_order = $11,
			booking_id = $12, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query,
		video.ID, video.Title, video.Description, video.YouTubeID,
		video.ThumbnailURL, video.LocationTag, video.StyleTag, video.RiderLevel,
		video.IsFeatured, video.IsPublished, video.DisplayOrder, video.BookingID,
	)
	if err != nil {
		return fmt.Errorf("failed to update video: %w", err)
	}

	return requireRow(result)
}

// DeleteVideo removes a video from the portfolio
func (r *CatalogRepository) DeleteVideo(videoID uuid.UUID) error {
	result, err := r.db.Exec(`DELETE FROM videos WHERE id = $1`, videoID)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}

	return requireRow(result)
}

// CreateTestimonial inserts a customer testimonial
func (r *CatalogRepository) CreateTestimonial(t *models.Testimonial) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	query := `
		INSERT INTO testimonials (
			id, client_name, client_location, text, rating, booking_id,
			is_featured, is_published, display_order, verified_purchase
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		t.ID, t.ClientName, t.ClientLocation, t.Text, t.Rating, t.BookingID,
		t.IsFeatured, t.IsPublished, t.DisplayOrder, t.VerifiedPurchase,
	).Scan(&t.CreatedAt, &t.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create testimonial: %w", err)
	}

	return nil
}

// GetPublishedTestimonials returns the public review list, featured first
func (r *CatalogRepository) GetPublishedTestimonials() ([]models.Testimonial, error) {
	testimonials := []models.Testimonial{}
	query := `SELECT ` + testimonialColumns + `
		FROM testimonials WHERE is_published = TRUE
		ORDER BY is_featured DESC, display_order, created_at DESC`

	if err := r.db.Select(&testimonials, query); err != nil {
		return nil, fmt.Errorf("failed to fetch testimonials: %w", err)
	}

	return testimonials, nil
}

// UpdateTestimonial rewrites a testimonial's fields
func (r *CatalogRepository) UpdateTestimonial(t *models.Testimonial) error {
	query := `
		UPDATE testimonials
		SET client_name = $2, client_location = $3, text = $4, rating = $5,
			booking_id = $6, is_featured = $7, is_published = $8,
			display_order = $9, verified_purchase = $10, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query,
		t.ID, t.ClientName, t.ClientLocation, t.Text, t.Rating, t.BookingID,
		t.IsFeatured, t.IsPublished, t.DisplayOrder, t.VerifiedPurchase,
	)
	if err != nil {
		return fmt.Errorf("failed to update testimonial: %w", err)
	}

	return requireRow(result)
}

// DeleteTestimonial removes a testimonial
func (r *CatalogRepository) DeleteTestimonial(testimonialID uuid.UUID) error {
	result, err := r.db.Exec(`DELETE FROM testimonials WHERE id = $1`, testimonialID)
	if err != nil {
		return fmt.Errorf("failed to delete testimonial: %w", err)
	}

	return requireRow(result)
}
