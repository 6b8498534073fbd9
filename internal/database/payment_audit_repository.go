package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/momentumclips/booking-backend/internal/models"
)

// PaymentAuditRepository handles the immutable payment audit trail
type PaymentAuditRepository struct {
	db     DB
	logger *logrus.Logger
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db DB, logger *logrus.Logger) *PaymentAuditRepository {
	return &PaymentAuditRepository{db: db, logger: logger}
}

// Log creates a new payment audit entry. Payment events must always leave a
// trace, so a failure here is logged loudly as well as returned.
func (r *PaymentAuditRepository) Log(audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}
	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO payment_audits (
			id, booking_id, order_id, event_type, source,
			payment_intent_id, session_id, provider_event_id,
			expected_amount_cents, received_amount_cents, currency, amounts_match,
			error_message, raw_body, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)`

	_, err := r.db.Exec(query,
		audit.ID, audit.BookingID, audit.OrderID, audit.EventType, audit.Source,
		audit.PaymentIntentID, audit.SessionID, audit.ProviderEventID,
		audit.ExpectedAmountCents, audit.ReceivedAmountCents, audit.Currency, audit.AmountsMatch,
		audit.ErrorMessage, audit.RawBody, audit.CreatedAt,
	)

	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": audit.EventType,
			"source":     audit.Source,
		}).Error("Failed to log payment audit")
		return fmt.Errorf("failed to log payment audit: %w", err)
	}

	return nil
}

// ListByBooking returns the audit trail for a booking, oldest first
func (r *PaymentAuditRepository) ListByBooking(bookingID uuid.UUID) ([]models.PaymentAudit, error) {
	audits := []models.PaymentAudit{}
	query := `
		SELECT id, booking_id, order_id, event_type, source,
			payment_intent_id, session_id, provider_event_id,
			expected_amount_cents, received_amount_cents, currency, amounts_match,
			error_message, raw_body, created_at
		FROM payment_audits
		WHERE booking_id = $1
		ORDER BY created_at`

	if err := r.db.Select(&audits, query, bookingID); err != nil {
		return nil, fmt.Errorf("failed to list payment audits: %w", err)
	}

	return audits, nil
}

// ListMismatches returns entries where the provider-reported amount differed
// from the ledger's locked amount, for the anomaly review queue
func (r *PaymentAuditRepository) ListMismatches(limit int) ([]models.PaymentAudit, error) {
	audits := []models.PaymentAudit{}
	query := `
		SELECT id, booking_id, order_id, event_type, source,
			payment_intent_id, session_id, provider_event_id,
			expected_amount_cents, received_amount_cents, currency, amounts_match,
			error_message, raw_body, created_at
		FROM payment_audits
		WHERE amounts_match = FALSE
		ORDER BY created_at DESC
		LIMIT $1`

	if err := r.db.Select(&audits, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list amount mismatches: %w", err)
	}

	return audits, nil
}
