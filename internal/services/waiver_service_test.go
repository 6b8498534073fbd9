package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/momentumclips/booking-backend/internal/database"
	"github.com/momentumclips/booking-backend/internal/models"
)

type waiverFixture struct {
	svc      *WaiverService
	waivers  *fakeWaivers
	orders   *fakeOrders
	bookings *fakeBookings
}

func newWaiverFixture() *waiverFixture {
	f := &waiverFixture{
		waivers:  &fakeWaivers{},
		orders:   newFakeOrders(),
		bookings: newFakeBookings(),
	}
	f.svc = NewWaiverService(f.waivers, f.orders, f.bookings, testConfig(), testLogger())
	return f
}

func (f *waiverFixture) confirmedBooking() *models.Booking {
	booking := &models.Booking{
		ID:        uuid.New(),
		PackageID: uuid.New(),
		StartsAt:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Status:    models.BookingStatusConfirmed,
	}
	f.bookings.put(booking)
	return booking
}

func signRequest(bookingID *string) *models.SignWaiverRequest {
	return &models.SignWaiverRequest{
		Email:        "Rider@Example.com",
		LegalName:    "Alex Example",
		AgreeToTerms: true,
		BookingID:    bookingID,
	}
}

func TestSignWaiver(t *testing.T) {
	t.Run("Records Signature With Evidence", func(t *testing.T) {
		f := newWaiverFixture()
		booking := f.confirmedBooking()
		id := booking.ID.String()

		waiver, err := f.svc.SignWaiver(signRequest(&id), "203.0.113.7", "Mozilla/5.0 (X11; Linux x86_64)")
		require.NoError(t, err)

		assert.Equal(t, "rider@example.com", waiver.ClientEmail, "email is normalized")
		assert.Equal(t, "Alex Example", waiver.LegalNameSignature)
		assert.Equal(t, "203.0.113.7", waiver.IPAddress)
		assert.Equal(t, models.CurrentWaiverVersion, waiver.WaiverVersion)
		assert.Equal(t, models.HashWaiverText(models.WaiverText), waiver.WaiverTextHash)
		require.NotNil(t, waiver.BookingID)
		assert.Equal(t, booking.ID, *waiver.BookingID)
		assert.NotNil(t, waiver.UserAgent)
		assert.Nil(t, waiver.SupersedesWaiverID)
	})

	t.Run("Terms Not Accepted", func(t *testing.T) {
		f := newWaiverFixture()
		booking := f.confirmedBooking()
		id := booking.ID.String()

		req := signRequest(&id)
		req.AgreeToTerms = false

		_, err := f.svc.SignWaiver(req, "203.0.113.7", "")
		assert.ErrorIs(t, err, ErrTermsNotAccepted)
	})

	t.Run("Legal Name Too Short", func(t *testing.T) {
		f := newWaiverFixture()
		booking := f.confirmedBooking()
		id := booking.ID.String()

		req := signRequest(&id)
		req.LegalName = "  A "

		_, err := f.svc.SignWaiver(req, "203.0.113.7", "")
		assert.ErrorIs(t, err, ErrLegalNameTooShort)
	})

	t.Run("No Target", func(t *testing.T) {
		f := newWaiverFixture()

		_, err := f.svc.SignWaiver(signRequest(nil), "203.0.113.7", "")
		assert.ErrorIs(t, err, ErrWaiverTargetMissing)
	})

	t.Run("Double Sign Is Refused", func(t *testing.T) {
		f := newWaiverFixture()
		booking := f.confirmedBooking()
		id := booking.ID.String()

		_, err := f.svc.SignWaiver(signRequest(&id), "203.0.113.7", "")
		require.NoError(t, err)

		_, err = f.svc.SignWaiver(signRequest(&id), "203.0.113.7", "")
		assert.ErrorIs(t, err, ErrAlreadySigned)
	})

	t.Run("Supersede Chains To Previous Signature", func(t *testing.T) {
		f := newWaiverFixture()
		booking := f.confirmedBooking()
		id := booking.ID.String()

		first, err := f.svc.SignWaiver(signRequest(&id), "203.0.113.7", "")
		require.NoError(t, err)

		req := signRequest(&id)
		req.Supersede = true

		second, err := f.svc.SignWaiver(req, "203.0.113.7", "")
		require.NoError(t, err)
		require.NotNil(t, second.SupersedesWaiverID)
		assert.Equal(t, first.ID, *second.SupersedesWaiverID)

		// First row is untouched; the chain is append-only
		latest, err := f.waivers.GetLatestByBooking(booking.ID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, latest.ID)
	})

	t.Run("Unknown Booking", func(t *testing.T) {
		f := newWaiverFixture()
		id := uuid.NewString()

		_, err := f.svc.SignWaiver(signRequest(&id), "203.0.113.7", "")
		assert.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("Order Must Be Paid", func(t *testing.T) {
		f := newWaiverFixture()
		order := &models.Order{
			ID:     uuid.New(),
			Status: models.OrderStatusPendingPayment,
		}
		f.orders.put(order)
		orderID := order.ID.String()

		req := signRequest(nil)
		req.OrderID = &orderID

		_, err := f.svc.SignWaiver(req, "203.0.113.7", "")
		assert.ErrorIs(t, err, ErrOrderNotPaid)
	})

	t.Run("Paid Order Advances To Waiver Signed", func(t *testing.T) {
		f := newWaiverFixture()
		paidAt := time.Now()
		order := &models.Order{
			ID:     uuid.New(),
			Status: models.OrderStatusPaid,
			PaidAt: &paidAt,
		}
		f.orders.put(order)
		orderID := order.ID.String()

		req := signRequest(nil)
		req.OrderID = &orderID

		waiver, err := f.svc.SignWaiver(req, "203.0.113.7", "")
		require.NoError(t, err)

		got, err := f.orders.GetByID(order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusWaiverSigned, got.Status)
		require.NotNil(t, got.LatestWaiverID)
		assert.Equal(t, waiver.ID, *got.LatestWaiverID)
		require.NotNil(t, got.CustomerEmail)
		assert.Equal(t, "rider@example.com", *got.CustomerEmail)
	})
}
