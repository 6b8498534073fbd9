package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/momentumclips/booking-backend/internal/models"
)

// OrderRepository handles database operations for public-flow orders
type OrderRepository struct {
	db DB
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `
	id, customer_email, customer_name, package_id, package_name,
	amount_cents, currency, checkout_session_id, payment_intent_id, paid_at,
	latest_waiver_id, booking_id, scheduled_start, scheduled_timezone,
	scheduled_location, status, admin_notes, video_links, delivered_at,
	created_at, updated_at`

// Create inserts a new order in pending_payment
func (r *OrderRepository) Create(order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	query := `
		INSERT INTO orders (
			id, package_id, package_name, amount_cents, currency,
			checkout_session_id, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		order.ID, order.PackageID, order.PackageName,
		order.AmountCents, order.Currency,
		order.CheckoutSessionID, order.Status,
	).Scan(&order.CreatedAt, &order.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// GetByID retrieves an order by ID
func (r *OrderRepository) GetByID(orderID uuid.UUID) (*models.Order, error) {
	order := &models.Order{}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	err := r.db.Get(order, query, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}

	return order, nil
}

// GetByCheckoutSessionID retrieves an order by its unique checkout session id
func (r *OrderRepository) GetByCheckoutSessionID(sessionID string) (*models.Order, error) {
	order := &models.Order{}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE checkout_session_id = $1`

	err := r.db.Get(order, query, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch order by checkout session: %w", err)
	}

	return order, nil
}

// MarkPaid transitions a pending order to paid, recording the payment
// confirmation id. Idempotent through the status predicate.
// Returns true when this call performed the transition.
func (r *OrderRepository) MarkPaid(orderID uuid.UUID, paymentIntentID string) (bool, error) {
	query := `
		UPDATE orders
		SET status = 'paid', payment_intent_id = $2, paid_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'pending_payment'
	`

	result, err := r.db.Exec(query, orderID, paymentIntentID)
	if err != nil {
		return false, fmt.Errorf("failed to mark order paid: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

// SetWaiver records the latest waiver and customer identity collected at
// the waiver step, moving the order to waiver_signed
func (r *OrderRepository) SetWaiver(orderID, waiverID uuid.UUID, customerName, customerEmail string) error {
	query := `
		UPDATE orders
		SET latest_waiver_id = $2, customer_name = $3, customer_email = $4,
			status = 'waiver_signed', updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, orderID, waiverID, customerName, customerEmail)
	if err != nil {
		return fmt.Errorf("failed to set order waiver: %w", err)
	}

	return requireRow(result)
}

// LinkWaiver appends a waiver to the order's signature chain
func (r *OrderRepository) LinkWaiver(orderID, waiverID uuid.UUID) error {
	query := `INSERT INTO order_waivers (id, order_id, waiver_id) VALUES ($1, $2, $3)`

	if _, err := r.db.Exec(query, uuid.New(), orderID, waiverID); err != nil {
		return fmt.Errorf("failed to link waiver to order: %w", err)
	}

	return nil
}

// MarkScheduled records the scheduler callback's slot details and the ledger
// booking created for the slot. Idempotent through the status predicate:
// a browser refresh of the confirmation URL matches zero rows.
// Returns true when this call performed the transition.
func (r *OrderRepository) MarkScheduled(orderID uuid.UUID, bookingID *uuid.UUID, start *time.Time, timezone, location *string) (bool, error) {
	query := `
		UPDATE orders
		SET status = 'scheduled', booking_id = $2, scheduled_start = $3,
			scheduled_timezone = $4, scheduled_location = $5, updated_at = NOW()
		WHERE id = $1 AND status = 'waiver_signed'
	`

	result, err := r.db.Exec(query, orderID, bookingID, start, timezone, location)
	if err != nil {
		return false, fmt.Errorf("failed to mark order scheduled: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

// UpdateStatus sets the order status (admin-managed tail of the lifecycle)
func (r *OrderRepository) UpdateStatus(orderID uuid.UUID, status models.OrderStatus) error {
	query := `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(query, orderID, status)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	return requireRow(result)
}

// List returns orders newest first for the back office
func (r *OrderRepository) List(limit, offset int) ([]models.Order, error) {
	orders := []models.Order{}
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	if err := r.db.Select(&orders, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return orders, nil
}
