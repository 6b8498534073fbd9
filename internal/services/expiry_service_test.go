package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/momentumclips/booking-backend/internal/models"
)

// confirmDuringSweep lands a payment confirmation between the stale read and
// the cancel write, the window a late webhook can hit
type confirmDuringSweep struct {
	*fakeBookings
	bookingID uuid.UUID
}

func (c *confirmDuringSweep) GetStalePending(cutoff time.Time, limit int) ([]models.Booking, error) {
	stale, err := c.fakeBookings.GetStalePending(cutoff, limit)
	if err == nil {
		c.fakeBookings.ConfirmPayment(c.bookingID, "pi_late", nil)
	}
	return stale, err
}

func TestExpirySweep(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	newFixture := func() (*ExpiryService, *fakeBookings) {
		bookings := newFakeBookings()
		svc := NewExpiryService(bookings, testConfig(), testLogger())
		svc.now = func() time.Time { return now }
		return svc, bookings
	}

	addBooking := func(bookings *fakeBookings, status models.BookingStatus, age time.Duration) uuid.UUID {
		booking := &models.Booking{
			ID:        uuid.New(),
			PackageID: uuid.New(),
			StartsAt:  now.Add(72 * time.Hour),
			Status:    status,
			CreatedAt: now.Add(-age),
		}
		bookings.put(booking)
		return booking.ID
	}

	t.Run("Reclaims Stale Pending Slots", func(t *testing.T) {
		svc, bookings := newFixture()

		// testConfig sets a 30 minute expiry
		stale := addBooking(bookings, models.BookingStatusPendingPayment, time.Hour)
		fresh := addBooking(bookings, models.BookingStatusPendingPayment, 5*time.Minute)
		confirmed := addBooking(bookings, models.BookingStatusConfirmed, 2*time.Hour)

		expired, err := svc.Sweep()
		require.NoError(t, err)
		assert.Equal(t, 1, expired)

		got, _ := bookings.GetByID(stale)
		assert.Equal(t, models.BookingStatusCancelled, got.Status)

		got, _ = bookings.GetByID(fresh)
		assert.Equal(t, models.BookingStatusPendingPayment, got.Status)

		got, _ = bookings.GetByID(confirmed)
		assert.Equal(t, models.BookingStatusConfirmed, got.Status)
	})

	t.Run("Payment Landing Mid Sweep Wins", func(t *testing.T) {
		bookings := newFakeBookings()
		stale := addBooking(bookings, models.BookingStatusPendingPayment, time.Hour)

		store := &confirmDuringSweep{fakeBookings: bookings, bookingID: stale}
		svc := NewExpiryService(store, testConfig(), testLogger())
		svc.now = func() time.Time { return now }

		expired, err := svc.Sweep()
		require.NoError(t, err)
		assert.Equal(t, 0, expired, "a booking confirmed after the stale read must not count as expired")

		got, err := bookings.GetByID(stale)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusConfirmed, got.Status)
		require.NotNil(t, got.PaidAt)
	})

	t.Run("Disabled When Expiry Is Zero", func(t *testing.T) {
		bookings := newFakeBookings()
		cfg := testConfig()
		cfg.Booking.PendingExpiryMins = 0
		svc := NewExpiryService(bookings, cfg, testLogger())

		assert.False(t, svc.Enabled())
		assert.NoError(t, svc.Start())
	})
}
