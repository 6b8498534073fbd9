package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus tracks the public payment-first flow:
// packages -> hosted checkout -> waiver -> external scheduler.
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusPaid           OrderStatus = "paid"
	OrderStatusWaiverSigned   OrderStatus = "waiver_signed"
	OrderStatusScheduled      OrderStatus = "scheduled"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// Order is a public-flow purchase record. Unlike a Booking it starts with no
// slot: the customer pays first and the external scheduler's callback
// back-fills the slot by creating the ledger row through the slot allocator.
type Order struct {
	ID uuid.UUID `json:"id" db:"id"`

	// Customer info, collected at the waiver step
	CustomerEmail *string `json:"customer_email,omitempty" db:"customer_email"`
	CustomerName  *string `json:"customer_name,omitempty" db:"customer_name"`

	PackageID   uuid.UUID `json:"package_id" db:"package_id"`
	PackageName string    `json:"package_name" db:"package_name"`

	// Price locked at checkout creation, minor currency units
	AmountCents int64  `json:"amount_cents" db:"amount_cents"`
	Currency    string `json:"currency" db:"currency"`

	// Provider identifiers
	CheckoutSessionID *string    `json:"checkout_session_id,omitempty" db:"checkout_session_id"`
	PaymentIntentID   *string    `json:"payment_intent_id,omitempty" db:"payment_intent_id"`
	PaidAt            *time.Time `json:"paid_at,omitempty" db:"paid_at"`

	// Latest waiver for convenience; the full chain lives in order_waivers
	LatestWaiverID *uuid.UUID `json:"latest_waiver_id,omitempty" db:"latest_waiver_id"`

	// Ledger linkage, set once the scheduler callback lands
	BookingID *uuid.UUID `json:"booking_id,omitempty" db:"booking_id"`

	// Scheduler details reported by the provider callback (best effort)
	ScheduledStart    *time.Time `json:"scheduled_start,omitempty" db:"scheduled_start"`
	ScheduledTimezone *string    `json:"scheduled_timezone,omitempty" db:"scheduled_timezone"`
	ScheduledLocation *string    `json:"scheduled_location,omitempty" db:"scheduled_location"`

	Status OrderStatus `json:"status" db:"status"`

	AdminNotes  *string    `json:"admin_notes,omitempty" db:"admin_notes"`
	VideoLinks  *string    `json:"video_links,omitempty" db:"video_links"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsPaid reports whether the order's checkout completed
func (o *Order) IsPaid() bool {
	return o.PaidAt != nil
}
