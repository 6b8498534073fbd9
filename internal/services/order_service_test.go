package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/momentumclips/booking-backend/internal/models"
)

func TestStartCheckout(t *testing.T) {
	newFixture := func() (*OrderService, *fakeOrders, *fakeCheckout, *models.Package) {
		pkg := &models.Package{
			ID:         uuid.New(),
			Name:       "Full Day Premium",
			PriceCents: 49900,
			Currency:   "eur",
			IsActive:   true,
		}
		orders := newFakeOrders()
		checkout := newFakeCheckout()
		svc := NewOrderService(orders, newFakePackages(pkg), checkout, &fakeAudits{}, testConfig(), testLogger())
		return svc, orders, checkout, pkg
	}

	t.Run("Locks Price And Opens Checkout", func(t *testing.T) {
		svc, orders, checkout, pkg := newFixture()

		result, err := svc.StartCheckout(pkg.ID)
		require.NoError(t, err)

		assert.Equal(t, int64(49900), result.Order.AmountCents)
		assert.Equal(t, models.OrderStatusPendingPayment, result.Order.Status)
		assert.NotEmpty(t, result.CheckoutURL)

		stored, err := orders.GetByID(result.Order.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.CheckoutSessionID)

		require.Len(t, checkout.createdSessions, 1)
		session := checkout.createdSessions[0]
		assert.Equal(t, int64(49900), session.AmountCents)
		assert.Equal(t, result.Order.ID.String(), session.Metadata["order_id"])
	})

	t.Run("Inactive Package", func(t *testing.T) {
		svc, _, _, pkg := newFixture()
		pkg.IsActive = false

		_, err := svc.StartCheckout(pkg.ID)
		assert.ErrorIs(t, err, ErrPackageUnavailable)
	})

	t.Run("Unknown Package", func(t *testing.T) {
		svc, _, _, _ := newFixture()

		_, err := svc.StartCheckout(uuid.New())
		assert.ErrorIs(t, err, ErrPackageUnavailable)
	})
}
