package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentAuditEventType classifies payment audit entries
type PaymentAuditEventType string

const (
	AuditCheckoutCreated   PaymentAuditEventType = "checkout_created"
	AuditWebhookReceived   PaymentAuditEventType = "webhook_received"
	AuditWebhookRejected   PaymentAuditEventType = "webhook_rejected"
	AuditWebhookIgnored    PaymentAuditEventType = "webhook_ignored"
	AuditWebhookDuplicate  PaymentAuditEventType = "webhook_duplicate"
	AuditPaymentConfirmed  PaymentAuditEventType = "payment_confirmed"
	AuditPaymentFailed     PaymentAuditEventType = "payment_failed"
	AuditReturnVerified    PaymentAuditEventType = "return_verified"
	AuditReturnRejected    PaymentAuditEventType = "return_rejected"
	AuditAmountMismatch    PaymentAuditEventType = "amount_mismatch"
	AuditRefundInitiated   PaymentAuditEventType = "refund_initiated"
	AuditRefundCompleted   PaymentAuditEventType = "refund_completed"
	AuditRefundFailed      PaymentAuditEventType = "refund_failed"
	AuditScheduleConfirmed PaymentAuditEventType = "schedule_confirmed"
)

// PaymentAuditSource identifies where the event originated
type PaymentAuditSource string

const (
	AuditSourceBackend  PaymentAuditSource = "backend"
	AuditSourceWebhook  PaymentAuditSource = "provider_webhook"
	AuditSourceReturn   PaymentAuditSource = "return_redirect"
	AuditSourceCustomer PaymentAuditSource = "customer"
	AuditSourceAdmin    PaymentAuditSource = "admin"
	AuditSourceSystem   PaymentAuditSource = "system"
)

// PaymentAudit is an immutable audit log entry for payment activity.
// Amount tracking here is the anomaly-detection record for advisory webhook
// amounts; the booking's locked amount stays authoritative.
type PaymentAudit struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	BookingID *uuid.UUID `json:"booking_id,omitempty" db:"booking_id"`
	OrderID   *uuid.UUID `json:"order_id,omitempty" db:"order_id"`

	EventType PaymentAuditEventType `json:"event_type" db:"event_type"`
	Source    PaymentAuditSource    `json:"source" db:"source"`

	PaymentIntentID *string `json:"payment_intent_id,omitempty" db:"payment_intent_id"`
	SessionID       *string `json:"session_id,omitempty" db:"session_id"`
	ProviderEventID *string `json:"provider_event_id,omitempty" db:"provider_event_id"`

	ExpectedAmountCents *int64  `json:"expected_amount_cents,omitempty" db:"expected_amount_cents"`
	ReceivedAmountCents *int64  `json:"received_amount_cents,omitempty" db:"received_amount_cents"`
	Currency            *string `json:"currency,omitempty" db:"currency"`
	AmountsMatch        *bool   `json:"amounts_match,omitempty" db:"amounts_match"`

	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`
	RawBody      *string `json:"raw_body,omitempty" db:"raw_body"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewPaymentAudit creates an audit entry with required fields set
func NewPaymentAudit(eventType PaymentAuditEventType, source PaymentAuditSource) *PaymentAudit {
	return &PaymentAudit{
		ID:        uuid.New(),
		EventType: eventType,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
}

// SetBooking links the audit entry to a ledger row
func (pa *PaymentAudit) SetBooking(id uuid.UUID) *PaymentAudit {
	pa.BookingID = &id
	return pa
}

// SetOrder links the audit entry to a public-flow order
func (pa *PaymentAudit) SetOrder(id uuid.UUID) *PaymentAudit {
	pa.OrderID = &id
	return pa
}

// SetPaymentIntent records the provider payment confirmation id
func (pa *PaymentAudit) SetPaymentIntent(id string) *PaymentAudit {
	pa.PaymentIntentID = &id
	return pa
}

// SetSession records the provider checkout session id
func (pa *PaymentAudit) SetSession(id string) *PaymentAudit {
	pa.SessionID = &id
	return pa
}

// SetAmounts records the expected-vs-received comparison
func (pa *PaymentAudit) SetAmounts(expected, received int64, currency string) *PaymentAudit {
	match := expected == received
	pa.ExpectedAmountCents = &expected
	pa.ReceivedAmountCents = &received
	pa.Currency = &currency
	pa.AmountsMatch = &match
	return pa
}

// SetError records a failure message
func (pa *PaymentAudit) SetError(msg string) *PaymentAudit {
	pa.ErrorMessage = &msg
	return pa
}
