package models

import (
	"time"

	"github.com/google/uuid"
)

// Video is a portfolio entry shown on the public site
type Video struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description,omitempty" db:"description"`

	YouTubeID    string  `json:"youtube_id" db:"youtube_id"`
	ThumbnailURL *string `json:"thumbnail_url,omitempty" db:"thumbnail_url"`

	LocationTag *string `json:"location_tag,omitempty" db:"location_tag"`
	StyleTag    *string `json:"style_tag,omitempty" db:"style_tag"`
	RiderLevel  *string `json:"rider_level,omitempty" db:"rider_level"`

	IsFeatured   bool `json:"is_featured" db:"is_featured"`
	IsPublished  bool `json:"is_published" db:"is_published"`
	DisplayOrder int  `json:"display_order" db:"display_order"`

	// Set when the video came out of a customer session
	BookingID *uuid.UUID `json:"booking_id,omitempty" db:"booking_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Testimonial is a customer review shown on the public site
type Testimonial struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ClientName     string    `json:"client_name" db:"client_name"`
	ClientLocation *string   `json:"client_location,omitempty" db:"client_location"`

	Text   string `json:"text" db:"text"`
	Rating int    `json:"rating" db:"rating"` // 1-5

	BookingID *uuid.UUID `json:"booking_id,omitempty" db:"booking_id"`

	IsFeatured   bool `json:"is_featured" db:"is_featured"`
	IsPublished  bool `json:"is_published" db:"is_published"`
	DisplayOrder int  `json:"display_order" db:"display_order"`

	// True when the review is tied to a completed booking
	VerifiedPurchase bool `json:"verified_purchase" db:"verified_purchase"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
