package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the lifecycle status of a booking
type BookingStatus string

const (
	BookingStatusPendingPayment BookingStatus = "pending_payment"
	BookingStatusConfirmed      BookingStatus = "confirmed"
	BookingStatusInProgress     BookingStatus = "in_progress"
	BookingStatusCompleted      BookingStatus = "completed"
	BookingStatusCancelled      BookingStatus = "cancelled"
	BookingStatusRefunded       BookingStatus = "refunded"
)

// ErrUnknownStatus is returned when a status outside the enumerated set is used
var ErrUnknownStatus = errors.New("unknown booking status")

// ErrInvalidTransition is returned when a status change violates the lifecycle
var ErrInvalidTransition = errors.New("invalid booking status transition")

// transitions is the authoritative lifecycle table. Every status change,
// whether from a user action, an admin action, or a payment webhook, must
// pass through CanTransitionTo.
var transitions = map[BookingStatus][]BookingStatus{
	BookingStatusPendingPayment: {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:      {BookingStatusInProgress, BookingStatusCancelled, BookingStatusRefunded},
	BookingStatusInProgress:     {BookingStatusCompleted},
	BookingStatusCompleted:      {},
	BookingStatusCancelled:      {},
	BookingStatusRefunded:       {},
}

// Valid reports whether s is one of the enumerated statuses
func (s BookingStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are allowed from s
func (s BookingStatus) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo validates a status change against the lifecycle table.
// Returns ErrUnknownStatus for statuses outside the enumerated set and
// ErrInvalidTransition for known-but-disallowed moves.
func (s BookingStatus) CanTransitionTo(target BookingStatus) error {
	next, ok := transitions[s]
	if !ok {
		return ErrUnknownStatus
	}
	if !target.Valid() {
		return ErrUnknownStatus
	}
	for _, allowed := range next {
		if allowed == target {
			return nil
		}
	}
	return ErrInvalidTransition
}

// ActiveStatuses are the statuses that occupy a slot. The partial unique
// index on (package_id, starts_at) is scoped to exactly this set, so
// cancelled and refunded bookings free their slot automatically.
var ActiveStatuses = []BookingStatus{
	BookingStatusPendingPayment,
	BookingStatusConfirmed,
	BookingStatusInProgress,
	BookingStatusCompleted,
}

// Booking is the durable ledger entry for a filming session reservation
type Booking struct {
	ID     uuid.UUID  `json:"id" db:"id"`
	UserID *uuid.UUID `json:"user_id,omitempty" db:"user_id"`

	// Customer contact; may be empty until the waiver step for the public flow
	CustomerName  *string `json:"customer_name,omitempty" db:"customer_name"`
	CustomerEmail *string `json:"customer_email,omitempty" db:"customer_email"`

	// Slot: the exclusive (package, start time) pair this booking occupies
	PackageID uuid.UUID `json:"package_id" db:"package_id"`
	StartsAt  time.Time `json:"starts_at" db:"starts_at"`

	Location        string  `json:"location" db:"location"`
	LocationDetails *string `json:"location_details,omitempty" db:"location_details"`

	// Price locked at creation time; never recomputed from the live catalog
	AmountCents int64  `json:"amount_cents" db:"amount_cents"`
	Currency    string `json:"currency" db:"currency"`

	Status BookingStatus `json:"status" db:"status"`

	// Payment linkage
	CheckoutSessionID *string    `json:"checkout_session_id,omitempty" db:"checkout_session_id"`
	PaymentIntentID   *string    `json:"payment_intent_id,omitempty" db:"payment_intent_id"`
	ChargeID          *string    `json:"charge_id,omitempty" db:"charge_id"`
	PaidAt            *time.Time `json:"paid_at,omitempty" db:"paid_at"`

	// Session details
	NumberOfRiders  int     `json:"number_of_riders" db:"number_of_riders"`
	RiderExperience *string `json:"rider_experience,omitempty" db:"rider_experience"`
	SpecialRequests *string `json:"special_requests,omitempty" db:"special_requests"`

	// Fulfillment
	VideoLinks  *string    `json:"video_links,omitempty" db:"video_links"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`

	// A cancellation whose refund attempt failed at the provider is flagged
	// here for manual operator follow-up instead of blocking the cancellation
	RefundPendingReview bool `json:"refund_pending_review" db:"refund_pending_review"`

	AdminNotes *string `json:"admin_notes,omitempty" db:"admin_notes"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
}

// IsPaid reports whether payment has been confirmed for this booking
func (b *Booking) IsPaid() bool {
	return b.PaidAt != nil
}

// CanCancel reports whether a customer-initiated cancellation is allowed at
// instant now, given the minimum advance-notice buffer. Pending-payment
// bookings can always be cancelled; confirmed bookings only while the slot
// start is at or beyond the buffer.
func (b *Booking) CanCancel(now time.Time, buffer time.Duration) bool {
	switch b.Status {
	case BookingStatusPendingPayment:
		return true
	case BookingStatusConfirmed:
		return !b.StartsAt.Before(now.Add(buffer))
	default:
		return false
	}
}

// CreateBookingRequest is the authenticated-flow booking creation payload
type CreateBookingRequest struct {
	PackageID       string  `json:"package_id" binding:"required"`
	StartsAt        string  `json:"starts_at" binding:"required"` // RFC 3339
	Location        string  `json:"location" binding:"required"`
	LocationDetails *string `json:"location_details,omitempty"`
	NumberOfRiders  int     `json:"number_of_riders"`
	RiderExperience *string `json:"rider_experience,omitempty"`
	SpecialRequests *string `json:"special_requests,omitempty"`
}

// CancelBookingRequest is the cancellation payload
type CancelBookingRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// UpdateBookingStatusRequest is the admin status-change payload
type UpdateBookingStatusRequest struct {
	Status     string  `json:"status" binding:"required"`
	VideoLinks *string `json:"video_links,omitempty"`
	AdminNotes *string `json:"admin_notes,omitempty"`
}
