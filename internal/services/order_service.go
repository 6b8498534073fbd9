package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/momentumclips/booking-backend/internal/config"
	"github.com/momentumclips/booking-backend/internal/models"
)

// orderLifecycle is the slice of the order repository the order service needs
type orderLifecycle interface {
	Create(order *models.Order) error
	GetByID(orderID uuid.UUID) (*models.Order, error)
	List(limit, offset int) ([]models.Order, error)
}

// OrderService implements the public payment-first flow: pick a package,
// pay at hosted checkout, sign the waiver, then schedule. No slot exists
// until the scheduler callback lands.
type OrderService struct {
	orders   orderLifecycle
	packages packageStore
	checkout CheckoutClient
	audits   auditLog
	config   *config.Config
	logger   *logrus.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	orders orderLifecycle,
	packages packageStore,
	checkout CheckoutClient,
	audits auditLog,
	cfg *config.Config,
	logger *logrus.Logger,
) *OrderService {
	return &OrderService{
		orders:   orders,
		packages: packages,
		checkout: checkout,
		audits:   audits,
		config:   cfg,
		logger:   logger,
	}
}

// StartCheckoutResult is handed back to the handler for the redirect
type StartCheckoutResult struct {
	Order       *models.Order `json:"order"`
	CheckoutURL string        `json:"checkout_url"`
}

// StartCheckout creates an order at the catalog's current price and opens a
// hosted checkout session for exactly that amount. The copied price is what
// the customer pays even if the catalog changes while they are on the
// payment page.
func (s *OrderService) StartCheckout(packageID uuid.UUID) (*StartCheckoutResult, error) {
	pkg, err := s.packages.GetByID(packageID)
	if err != nil {
		return nil, ErrPackageUnavailable
	}
	if !pkg.IsActive {
		return nil, ErrPackageUnavailable
	}

	order := &models.Order{
		ID:          uuid.New(),
		PackageID:   pkg.ID,
		PackageName: pkg.Name,
		AmountCents: pkg.PriceCents,
		Currency:    pkg.Currency,
		Status:      models.OrderStatusPendingPayment,
	}

	session, err := s.checkout.CreateCheckoutSession(&CheckoutSessionRequest{
		ItemName:    pkg.Name,
		AmountCents: order.AmountCents,
		Currency:    order.Currency,
		SuccessURL:  s.config.Server.BaseURL + "/order/success?session_id=" + SessionIDPlaceholder,
		CancelURL:   s.config.Server.BaseURL + "/order/cancelled",
		Metadata: map[string]string{
			"order_id": order.ID.String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open checkout session: %w", err)
	}

	order.CheckoutSessionID = &session.ID
	if err := s.orders.Create(order); err != nil {
		return nil, err
	}

	if err := s.audits.Log(models.NewPaymentAudit(models.AuditCheckoutCreated, models.AuditSourceBackend).
		SetOrder(order.ID).
		SetSession(session.ID)); err != nil {
		s.logger.WithError(err).Error("Failed to write payment audit entry")
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"package_id":   pkg.ID,
		"amount_cents": order.AmountCents,
	}).Info("Order checkout started")

	return &StartCheckoutResult{Order: order, CheckoutURL: session.URL}, nil
}

// GetOrder fetches one order
func (s *OrderService) GetOrder(orderID uuid.UUID) (*models.Order, error) {
	return s.orders.GetByID(orderID)
}

// ListOrders returns orders for the back office, newest first
func (s *OrderService) ListOrders(limit, offset int) ([]models.Order, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.orders.List(limit, offset)
}
