package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/momentumclips/booking-backend/internal/database"
	"github.com/momentumclips/booking-backend/internal/models"
	"github.com/momentumclips/booking-backend/pkg/mailer"
)

type schedulerFixture struct {
	svc      *SchedulerService
	orders   *fakeOrders
	bookings *fakeBookings
	packages *fakePackages
	audits   *fakeAudits
	mail     *mailer.DevGateway

	pkg *models.Package
}

func newSchedulerFixture() *schedulerFixture {
	f := &schedulerFixture{
		orders:   newFakeOrders(),
		bookings: newFakeBookings(),
		audits:   &fakeAudits{},
		mail:     mailer.NewDevGateway(testLogger()),
	}
	f.pkg = &models.Package{
		ID:            uuid.New(),
		Name:          "Half Day",
		PriceCents:    24900,
		Currency:      "eur",
		IsActive:      true,
		SchedulingURL: "https://scheduler.example.com/momentum/half-day",
	}
	f.packages = newFakePackages(f.pkg)
	f.svc = NewSchedulerService(f.orders, f.bookings, f.packages, f.audits, f.mail, testConfig(), testLogger())
	return f
}

// waiverSignedOrder builds an order that has completed payment and waiver
func (f *schedulerFixture) waiverSignedOrder() *models.Order {
	email := "rider@example.com"
	name := "Alex Example"
	pi := "pi_1"
	paidAt := time.Now()
	waiverID := uuid.New()

	order := &models.Order{
		ID:              uuid.New(),
		CustomerEmail:   &email,
		CustomerName:    &name,
		PackageID:       f.pkg.ID,
		PackageName:     f.pkg.Name,
		AmountCents:     24900,
		Currency:        "eur",
		PaymentIntentID: &pi,
		PaidAt:          &paidAt,
		LatestWaiverID:  &waiverID,
		Status:          models.OrderStatusWaiverSigned,
	}
	f.orders.put(order)
	return order
}

func TestConfirmationToken(t *testing.T) {
	f := newSchedulerFixture()
	waiverID := uuid.New()

	token := f.svc.ConfirmationToken(waiverID)
	assert.Len(t, token, 64)
	assert.True(t, f.svc.ValidateToken(waiverID, token))
	assert.False(t, f.svc.ValidateToken(waiverID, token[:63]+"0"))
	assert.False(t, f.svc.ValidateToken(uuid.New(), token), "token is bound to one waiver")
}

func TestBuildRedirectURL(t *testing.T) {
	t.Run("Appends Order And Token", func(t *testing.T) {
		f := newSchedulerFixture()
		order := f.waiverSignedOrder()

		redirect, err := f.svc.BuildRedirectURL(order.ID)
		require.NoError(t, err)

		assert.Contains(t, redirect, "https://scheduler.example.com/momentum/half-day?")
		assert.Contains(t, redirect, "order_id="+order.ID.String())
		assert.Contains(t, redirect, "confirm_token="+f.svc.ConfirmationToken(*order.LatestWaiverID))
	})

	t.Run("Order Without Waiver Is Not Ready", func(t *testing.T) {
		f := newSchedulerFixture()
		order := &models.Order{
			ID:        uuid.New(),
			PackageID: f.pkg.ID,
			Status:    models.OrderStatusPaid,
		}
		f.orders.put(order)

		_, err := f.svc.BuildRedirectURL(order.ID)
		assert.ErrorIs(t, err, ErrOrderNotReady)
	})
}

func TestHandleCallback(t *testing.T) {
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	tz := "Europe/Zurich"
	loc := "Verbier"

	t.Run("Schedules And Back-Fills Ledger", func(t *testing.T) {
		f := newSchedulerFixture()
		order := f.waiverSignedOrder()

		got, err := f.svc.HandleCallback(&ScheduleCallback{
			OrderID:  order.ID,
			Token:    f.svc.ConfirmationToken(*order.LatestWaiverID),
			Start:    &start,
			Timezone: &tz,
			Location: &loc,
		})
		require.NoError(t, err)

		assert.Equal(t, models.OrderStatusScheduled, got.Status)
		require.NotNil(t, got.BookingID)
		require.NotNil(t, got.ScheduledStart)
		assert.True(t, got.ScheduledStart.Equal(start))

		// The ledger row carries the order's payment and occupies the slot
		booking, err := f.bookings.GetByID(*got.BookingID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
		assert.Equal(t, order.AmountCents, booking.AmountCents)
		require.NotNil(t, booking.PaymentIntentID)
		assert.Equal(t, *order.PaymentIntentID, *booking.PaymentIntentID)

		assert.Equal(t, 1, f.audits.countByType(models.AuditScheduleConfirmed))
		assert.Len(t, f.mail.Sent(), 1)
	})

	t.Run("Bad Token", func(t *testing.T) {
		f := newSchedulerFixture()
		order := f.waiverSignedOrder()

		_, err := f.svc.HandleCallback(&ScheduleCallback{
			OrderID: order.ID,
			Token:   "forged",
			Start:   &start,
		})
		assert.ErrorIs(t, err, ErrBadConfirmToken)
	})

	t.Run("Refreshed Callback Is A No-Op", func(t *testing.T) {
		f := newSchedulerFixture()
		order := f.waiverSignedOrder()
		token := f.svc.ConfirmationToken(*order.LatestWaiverID)

		cb := &ScheduleCallback{OrderID: order.ID, Token: token, Start: &start, Timezone: &tz, Location: &loc}

		_, err := f.svc.HandleCallback(cb)
		require.NoError(t, err)

		got, err := f.svc.HandleCallback(cb)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusScheduled, got.Status)

		assert.Equal(t, 1, f.audits.countByType(models.AuditScheduleConfirmed))
		assert.Len(t, f.mail.Sent(), 1, "the refresh must not re-send the email")
	})

	t.Run("Colliding Slot Surfaces Slot Taken", func(t *testing.T) {
		f := newSchedulerFixture()
		order := f.waiverSignedOrder()

		// Someone already holds this slot through the authenticated flow
		f.bookings.put(&models.Booking{
			ID:        uuid.New(),
			PackageID: f.pkg.ID,
			StartsAt:  start,
			Status:    models.BookingStatusConfirmed,
		})

		_, err := f.svc.HandleCallback(&ScheduleCallback{
			OrderID: order.ID,
			Token:   f.svc.ConfirmationToken(*order.LatestWaiverID),
			Start:   &start,
		})
		assert.ErrorIs(t, err, database.ErrSlotTaken)

		got, err := f.orders.GetByID(order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusWaiverSigned, got.Status, "the order stays schedulable")
	})

	t.Run("Order Without Waiver Is Not Ready", func(t *testing.T) {
		f := newSchedulerFixture()
		order := &models.Order{
			ID:        uuid.New(),
			PackageID: f.pkg.ID,
			Status:    models.OrderStatusPaid,
		}
		f.orders.put(order)

		_, err := f.svc.HandleCallback(&ScheduleCallback{OrderID: order.ID, Token: "whatever"})
		assert.ErrorIs(t, err, ErrOrderNotReady)
	})
}
