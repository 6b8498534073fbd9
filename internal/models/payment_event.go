package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PaymentEventKind is the closed set of provider webhook event kinds this
// system acts on. Adding a handled kind means adding a constant here and a
// case in the reconciler, not another string match buried in a handler.
type PaymentEventKind int

const (
	// EventIgnored is the catch-all for recognized-but-unhandled kinds.
	// Ignored events are acknowledged to the sender and logged, never
	// treated as errors.
	EventIgnored PaymentEventKind = iota
	EventCheckoutSessionCompleted
	EventPaymentSucceeded
	EventPaymentFailed
	EventChargeRefunded
)

// String returns the wire name of the event kind
func (k PaymentEventKind) String() string {
	switch k {
	case EventCheckoutSessionCompleted:
		return "checkout.session.completed"
	case EventPaymentSucceeded:
		return "payment_intent.succeeded"
	case EventPaymentFailed:
		return "payment_intent.payment_failed"
	case EventChargeRefunded:
		return "charge.refunded"
	default:
		return "ignored"
	}
}

// ParseEventKind maps a provider event-type string onto the enum. Unknown
// types map to EventIgnored by design.
func ParseEventKind(eventType string) PaymentEventKind {
	switch eventType {
	case "checkout.session.completed":
		return EventCheckoutSessionCompleted
	case "payment_intent.succeeded":
		return EventPaymentSucceeded
	case "payment_intent.payment_failed":
		return EventPaymentFailed
	case "charge.refunded":
		return EventChargeRefunded
	default:
		return EventIgnored
	}
}

// PaymentEvent is a verified, parsed provider webhook event
type PaymentEvent struct {
	ProviderEventID string
	Kind            PaymentEventKind
	RawType         string

	// Object identifiers carried in the event payload
	SessionID       string
	PaymentIntentID string
	ChargeID        string

	// Metadata set by us when the checkout session was created
	BookingID string
	OrderID   string

	// Advisory only: logged and checked against the ledger's locked amount,
	// never used to decide what was charged
	AmountCents int64
	Currency    string

	PaymentStatus string
	CreatedAt     time.Time
}

// webhookEnvelope mirrors the provider's wire format
type webhookEnvelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object struct {
			ID            string            `json:"id"`
			PaymentIntent string            `json:"payment_intent"`
			Charge        string            `json:"charge"`
			AmountTotal   int64             `json:"amount_total"`
			Amount        int64             `json:"amount"`
			Currency      string            `json:"currency"`
			PaymentStatus string            `json:"payment_status"`
			Status        string            `json:"status"`
			Metadata      map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// ParsePaymentEvent decodes a verified webhook body into a PaymentEvent
func ParsePaymentEvent(body []byte) (*PaymentEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}

	obj := env.Data.Object
	ev := &PaymentEvent{
		ProviderEventID: env.ID,
		Kind:            ParseEventKind(env.Type),
		RawType:         env.Type,
		Currency:        obj.Currency,
		PaymentStatus:   obj.PaymentStatus,
		BookingID:       obj.Metadata["booking_id"],
		OrderID:         obj.Metadata["order_id"],
		CreatedAt:       time.Unix(env.Created, 0),
	}
	if ev.PaymentStatus == "" {
		ev.PaymentStatus = obj.Status
	}

	switch ev.Kind {
	case EventCheckoutSessionCompleted:
		ev.SessionID = obj.ID
		ev.PaymentIntentID = obj.PaymentIntent
		ev.AmountCents = obj.AmountTotal
	case EventPaymentSucceeded, EventPaymentFailed:
		ev.PaymentIntentID = obj.ID
		ev.ChargeID = obj.Charge
		ev.AmountCents = obj.Amount
	case EventChargeRefunded:
		ev.ChargeID = obj.ID
		ev.PaymentIntentID = obj.PaymentIntent
		ev.AmountCents = obj.Amount
	}

	return ev, nil
}

// WebhookEvent is the dedup ledger row for inbound provider webhooks. The
// unique index on provider_event_id collapses redelivered events.
type WebhookEvent struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	ProviderEventID string     `json:"provider_event_id" db:"provider_event_id"`
	EventType       string     `json:"event_type" db:"event_type"`
	Payload         string     `json:"payload" db:"payload"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty" db:"processed_at"`
	ProcessingError *string    `json:"processing_error,omitempty" db:"processing_error"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}
