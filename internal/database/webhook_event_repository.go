package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/momentumclips/booking-backend/internal/models"
)

// WebhookEventRepository is the dedup ledger for inbound provider webhooks.
// The unique index on provider_event_id makes redelivery detection a single
// insert: the second delivery of an event gets ErrDuplicateEvent.
type WebhookEventRepository struct {
	db DB
}

// NewWebhookEventRepository creates a new WebhookEventRepository
func NewWebhookEventRepository(db DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// Record inserts the event row. Returns ErrDuplicateEvent when the provider
// event id has been seen before.
func (r *WebhookEventRepository) Record(event *models.WebhookEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	query := `
		INSERT INTO webhook_events (id, provider_event_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.db.QueryRow(
		query,
		event.ID, event.ProviderEventID, event.EventType, event.Payload,
	).Scan(&event.CreatedAt)

	if err != nil {
		if isUniqueViolation(err, "") {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("failed to record webhook event: %w", err)
	}

	return nil
}

// GetByProviderEventID retrieves the ledger row for a provider event id. A
// row with a nil ProcessedAt was recorded but never finished processing.
func (r *WebhookEventRepository) GetByProviderEventID(providerEventID string) (*models.WebhookEvent, error) {
	event := &models.WebhookEvent{}
	query := `
		SELECT id, provider_event_id, event_type, payload, processed_at, processing_error, created_at
		FROM webhook_events WHERE provider_event_id = $1
	`

	err := r.db.Get(event, query, providerEventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch webhook event: %w", err)
	}

	return event, nil
}

// MarkProcessed stamps the event as handled
func (r *WebhookEventRepository) MarkProcessed(eventID uuid.UUID) error {
	query := `UPDATE webhook_events SET processed_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(query, eventID)
	if err != nil {
		return fmt.Errorf("failed to mark webhook event processed: %w", err)
	}

	return requireRow(result)
}

// MarkFailed records a processing failure for later inspection
func (r *WebhookEventRepository) MarkFailed(eventID uuid.UUID, message string) error {
	query := `UPDATE webhook_events SET processing_error = $2 WHERE id = $1`

	result, err := r.db.Exec(query, eventID, message)
	if err != nil {
		return fmt.Errorf("failed to mark webhook event failed: %w", err)
	}

	return requireRow(result)
}
