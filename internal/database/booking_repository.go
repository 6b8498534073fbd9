package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/momentumclips/booking-backend/internal/models"
)

// BookingRepository handles database operations for the booking ledger
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	id, user_id, customer_name, customer_email, package_id, starts_at,
	location, location_details, amount_cents, currency, status,
	checkout_session_id, payment_intent_id, charge_id, paid_at,
	number_of_riders, rider_experience, special_requests,
	video_links, delivered_at, refund_pending_review, admin_notes,
	created_at, updated_at, cancelled_at`

// Create inserts a new booking, reserving its slot atomically. The partial
// unique index on (package_id, starts_at) decides the race: the losing
// insert gets ErrSlotTaken. There is deliberately no check-then-insert here.
func (r *BookingRepository) Create(booking *models.Booking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}

	query := `
		INSERT INTO bookings (
			id, user_id, customer_name, customer_email, package_id, starts_at,
			location, location_details, amount_cents, currency, status,
			number_of_riders, rider_experience, special_requests
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		booking.ID, booking.UserID, booking.CustomerName, booking.CustomerEmail,
		booking.PackageID, booking.StartsAt,
		booking.Location, booking.LocationDetails,
		booking.AmountCents, booking.Currency, booking.Status,
		booking.NumberOfRiders, booking.RiderExperience, booking.SpecialRequests,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err, slotConstraintName) {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return nil
}

// GetByID retrieves a booking by ID
func (r *BookingRepository) GetByID(bookingID uuid.UUID) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	err := r.db.Get(booking, query, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch booking: %w", err)
	}

	return booking, nil
}

// GetByPaymentIntentID retrieves a booking by the provider payment confirmation id
func (r *BookingRepository) GetByPaymentIntentID(paymentIntentID string) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE payment_intent_id = $1`

	err := r.db.Get(booking, query, paymentIntentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch booking by payment intent: %w", err)
	}

	return booking, nil
}

// GetByCheckoutSessionID retrieves a booking by its checkout session id
func (r *BookingRepository) GetByCheckoutSessionID(sessionID string) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE checkout_session_id = $1`

	err := r.db.Get(booking, query, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch booking by checkout session: %w", err)
	}

	return booking, nil
}

// GetByUserID retrieves all bookings for a user, newest first
func (r *BookingRepository) GetByUserID(userID uuid.UUID) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`

	if err := r.db.Select(&bookings, query, userID); err != nil {
		return nil, fmt.Errorf("failed to fetch bookings for user: %w", err)
	}

	return bookings, nil
}

// List returns bookings newest first for the back office
func (r *BookingRepository) List(limit, offset int) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	if err := r.db.Select(&bookings, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	return bookings, nil
}

// GetByDateRange retrieves bookings for a package within [start, end],
// ordered by slot time. Used for the availability calendar feed.
func (r *BookingRepository) GetByDateRange(packageID uuid.UUID, start, end time.Time) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE package_id = $1 AND starts_at >= $2 AND starts_at <= $3
		ORDER BY starts_at`

	if err := r.db.Select(&bookings, query, packageID, start, end); err != nil {
		return nil, fmt.Errorf("failed to fetch bookings by date range: %w", err)
	}

	return bookings, nil
}

// IsSlotAvailable reports whether a slot currently looks free. This is a
// UI hint only; the insert in Create is the enforcement mechanism.
func (r *BookingRepository) IsSlotAvailable(packageID uuid.UUID, startsAt time.Time) (bool, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM bookings
		WHERE package_id = $1 AND starts_at = $2
		  AND status IN ('pending_payment', 'confirmed', 'in_progress', 'completed')
	`

	if err := r.db.Get(&count, query, packageID, startsAt); err != nil {
		return false, fmt.Errorf("failed to check slot availability: %w", err)
	}

	return count == 0, nil
}

// ConfirmPayment transitions a pending booking to confirmed and records the
// payment identifiers. The status predicate in the WHERE clause makes the
// write itself idempotent: a second confirmation matches zero rows.
// Returns true when this call performed the transition.
func (r *BookingRepository) ConfirmPayment(bookingID uuid.UUID, paymentIntentID string, chargeID *string) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'confirmed', payment_intent_id = $2, charge_id = $3,
			paid_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'pending_payment'
	`

	result, err := r.db.Exec(query, bookingID, paymentIntentID, chargeID)
	if err != nil {
		return false, fmt.Errorf("failed to confirm payment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

// SetCheckoutSession records the provider checkout session id on a booking
func (r *BookingRepository) SetCheckoutSession(bookingID uuid.UUID, sessionID string) error {
	query := `UPDATE bookings SET checkout_session_id = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(query, bookingID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to set checkout session: %w", err)
	}

	return requireRow(result)
}

// UpdateStatus sets the booking status. Callers are responsible for having
// validated the transition through the state machine first.
func (r *BookingRepository) UpdateStatus(bookingID uuid.UUID, status models.BookingStatus) error {
	query := `UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(query, bookingID, status)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	return requireRow(result)
}

// Cancel marks a booking cancelled or refunded, but only while it still
// holds the expected status. The predicate makes the write safe against a
// concurrent payment confirmation: a caller that read pending_payment and
// lost the race matches zero rows instead of clobbering the confirmed
// booking. Returns whether a row was moved. refundPendingReview is set when
// the refund attempt failed and an operator needs to follow up.
func (r *BookingRepository) Cancel(bookingID uuid.UUID, from, to models.BookingStatus, refundPendingReview bool) (bool, error) {
	query := `
		UPDATE bookings
		SET status = $3, refund_pending_review = $4,
			cancelled_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	result, err := r.db.Exec(query, bookingID, from, to, refundPendingReview)
	if err != nil {
		return false, fmt.Errorf("failed to cancel booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return rows > 0, nil
}

// SetDelivery records delivered video links and the delivery timestamp
func (r *BookingRepository) SetDelivery(bookingID uuid.UUID, videoLinks string) error {
	query := `
		UPDATE bookings
		SET video_links = $2, delivered_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, bookingID, videoLinks)
	if err != nil {
		return fmt.Errorf("failed to set delivery: %w", err)
	}

	return requireRow(result)
}

// UpdateAdminNotes updates the operator-only notes field
func (r *BookingRepository) UpdateAdminNotes(bookingID uuid.UUID, notes string) error {
	query := `UPDATE bookings SET admin_notes = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(query, bookingID, notes)
	if err != nil {
		return fmt.Errorf("failed to update admin notes: %w", err)
	}

	return requireRow(result)
}

// GetStalePending returns pending-payment bookings created before cutoff,
// for the expiry sweep
func (r *BookingRepository) GetStalePending(cutoff time.Time, limit int) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'pending_payment' AND created_at < $1
		ORDER BY created_at
		LIMIT $2`

	if err := r.db.Select(&bookings, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch stale pending bookings: %w", err)
	}

	return bookings, nil
}

// CountByStatus returns booking counts grouped by status for the dashboard
func (r *BookingRepository) CountByStatus() (map[models.BookingStatus]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.BookingStatus]int)
	for rows.Next() {
		var status models.BookingStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

// requireRow converts a zero-rows-affected result into ErrNotFound
func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
