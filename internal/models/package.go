package models

import (
	"time"

	"github.com/google/uuid"
)

// Package is a service offering customers can book
type Package struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`

	// Minor currency units; the catalog price is only a template, each
	// booking locks its own copy at creation
	PriceCents int64  `json:"price_cents" db:"price_cents"`
	Currency   string `json:"currency" db:"currency"`

	DurationHours   float64 `json:"duration_hours" db:"duration_hours"`
	MaxRiders       int     `json:"max_riders" db:"max_riders"`
	IncludesDrone   bool    `json:"includes_drone" db:"includes_drone"`
	IncludesEditing bool    `json:"includes_editing" db:"includes_editing"`
	VideoCount      int     `json:"video_count" db:"video_count"`

	// Provider-hosted scheduling page for this package
	SchedulingURL string `json:"scheduling_url" db:"scheduling_url"`

	IsActive     bool `json:"is_active" db:"is_active"`
	DisplayOrder int  `json:"display_order" db:"display_order"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SavePackageRequest is the admin create/update payload
type SavePackageRequest struct {
	Name            string  `json:"name" binding:"required"`
	Description     string  `json:"description" binding:"required"`
	PriceCents      int64   `json:"price_cents" binding:"required,min=1"`
	Currency        string  `json:"currency"`
	DurationHours   float64 `json:"duration_hours" binding:"required"`
	MaxRiders       int     `json:"max_riders"`
	IncludesDrone   bool    `json:"includes_drone"`
	IncludesEditing bool    `json:"includes_editing"`
	VideoCount      int     `json:"video_count"`
	SchedulingURL   string  `json:"scheduling_url"`
	IsActive        *bool   `json:"is_active,omitempty"`
	DisplayOrder    int     `json:"display_order"`
}
