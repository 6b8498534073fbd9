package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/momentumclips/booking-backend/internal/models"
)

// WaiverRepository handles database operations for waivers. Waiver rows are
// append-only: there is no update method by design.
type WaiverRepository struct {
	db DB
}

// NewWaiverRepository creates a new WaiverRepository
func NewWaiverRepository(db DB) *WaiverRepository {
	return &WaiverRepository{db: db}
}

const waiverColumns = `
	id, booking_id, client_name, client_email, legal_name_signature,
	ip_address, user_agent, device_summary, waiver_version, waiver_text_hash,
	supersedes_waiver_id, signed_at, created_at`

// Create inserts a signature row
func (r *WaiverRepository) Create(waiver *models.Waiver) error {
	if waiver.ID == uuid.Nil {
		waiver.ID = uuid.New()
	}

	query := `
		INSERT INTO waivers (
			id, booking_id, client_name, client_email, legal_name_signature,
			ip_address, user_agent, device_summary, waiver_version,
			waiver_text_hash, supersedes_waiver_id, signed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`

	err := r.db.QueryRow(
		query,
		waiver.ID, waiver.BookingID, waiver.ClientName, waiver.ClientEmail,
		waiver.LegalNameSignature, waiver.IPAddress, waiver.UserAgent,
		waiver.DeviceSummary, waiver.WaiverVersion, waiver.WaiverTextHash,
		waiver.SupersedesWaiverID, waiver.SignedAt,
	).Scan(&waiver.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create waiver: %w", err)
	}

	return nil
}

// GetByID retrieves a waiver by ID
func (r *WaiverRepository) GetByID(waiverID uuid.UUID) (*models.Waiver, error) {
	waiver := &models.Waiver{}
	query := `SELECT ` + waiverColumns + ` FROM waivers WHERE id = $1`

	err := r.db.Get(waiver, query, waiverID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch waiver: %w", err)
	}

	return waiver, nil
}

// GetLatestByBooking returns the most recent signature for a booking, or
// ErrNotFound when the booking has never been waivered
func (r *WaiverRepository) GetLatestByBooking(bookingID uuid.UUID) (*models.Waiver, error) {
	waiver := &models.Waiver{}
	query := `SELECT ` + waiverColumns + `
		FROM waivers WHERE booking_id = $1
		ORDER BY signed_at DESC LIMIT 1`

	err := r.db.Get(waiver, query, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch waiver for booking: %w", err)
	}

	return waiver, nil
}

// IsSigned reports whether a booking has at least one waiver signature
func (r *WaiverRepository) IsSigned(bookingID uuid.UUID) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM waivers WHERE booking_id = $1`

	if err := r.db.Get(&count, query, bookingID); err != nil {
		return false, fmt.Errorf("failed to check waiver signature: %w", err)
	}

	return count > 0, nil
}

// ListByEmail returns all signatures for a signer, newest first
func (r *WaiverRepository) ListByEmail(email string) ([]models.Waiver, error) {
	waivers := []models.Waiver{}
	query := `SELECT ` + waiverColumns + ` FROM waivers WHERE client_email = $1 ORDER BY signed_at DESC`

	if err := r.db.Select(&waivers, query, email); err != nil {
		return nil, fmt.Errorf("failed to list waivers: %w", err)
	}

	return waivers, nil
}
