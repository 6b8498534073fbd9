package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/momentumclips/booking-backend/internal/database"
	"github.com/momentumclips/booking-backend/internal/models"
	"github.com/momentumclips/booking-backend/pkg/mailer"
)

type bookingFixture struct {
	svc      *BookingService
	bookings *fakeBookings
	packages *fakePackages
	checkout *fakeCheckout
	audits   *fakeAudits
	mail     *mailer.DevGateway

	pkg *models.Package
	now time.Time
}

func newBookingFixture() *bookingFixture {
	f := &bookingFixture{
		bookings: newFakeBookings(),
		checkout: newFakeCheckout(),
		audits:   &fakeAudits{},
		mail:     mailer.NewDevGateway(testLogger()),
		now:      time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}
	f.pkg = &models.Package{
		ID:         uuid.New(),
		Name:       "Half Day",
		PriceCents: 24900,
		Currency:   "eur",
		IsActive:   true,
	}
	f.packages = newFakePackages(f.pkg)
	f.svc = NewBookingService(f.bookings, f.packages, f.checkout, f.audits, f.mail, testConfig(), testLogger())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *bookingFixture) request(startsAt time.Time) *models.CreateBookingRequest {
	return &models.CreateBookingRequest{
		PackageID: f.pkg.ID.String(),
		StartsAt:  startsAt.Format(time.RFC3339),
		Location:  "Verbier",
	}
}

func TestCreateBooking_Service(t *testing.T) {
	userID := uuid.New()
	startsAt := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	t.Run("Success Locks Price And Opens Checkout", func(t *testing.T) {
		f := newBookingFixture()

		result, err := f.svc.CreateBooking(userID, "rider@example.com", "Test Rider", f.request(startsAt))
		require.NoError(t, err)

		assert.Equal(t, int64(24900), result.Booking.AmountCents)
		assert.Equal(t, models.BookingStatusPendingPayment, result.Booking.Status)
		assert.NotEmpty(t, result.CheckoutURL)
		require.NotNil(t, result.Booking.CheckoutSessionID)

		// The catalog price changing afterwards must not touch the booking
		f.pkg.PriceCents = 99900
		f.packages.packages[f.pkg.ID] = f.pkg
		got, err := f.bookings.GetByID(result.Booking.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(24900), got.AmountCents)

		// Checkout carried the locked amount and the booking reference
		require.Len(t, f.checkout.createdSessions, 1)
		session := f.checkout.createdSessions[0]
		assert.Equal(t, int64(24900), session.AmountCents)
		assert.Equal(t, result.Booking.ID.String(), session.Metadata["booking_id"])
	})

	t.Run("Slot Taken Surfaces As Is", func(t *testing.T) {
		f := newBookingFixture()

		_, err := f.svc.CreateBooking(userID, "first@example.com", "First", f.request(startsAt))
		require.NoError(t, err)

		_, err = f.svc.CreateBooking(uuid.New(), "second@example.com", "Second", f.request(startsAt))
		assert.ErrorIs(t, err, database.ErrSlotTaken)
	})

	t.Run("Inactive Package", func(t *testing.T) {
		f := newBookingFixture()
		f.pkg.IsActive = false
		f.packages.packages[f.pkg.ID] = f.pkg

		_, err := f.svc.CreateBooking(userID, "rider@example.com", "Rider", f.request(startsAt))
		assert.ErrorIs(t, err, ErrPackageUnavailable)
	})

	t.Run("Too Soon", func(t *testing.T) {
		f := newBookingFixture()
		tooSoon := f.now.Add(2 * time.Hour) // inside the 24h buffer

		_, err := f.svc.CreateBooking(userID, "rider@example.com", "Rider", f.request(tooSoon))
		assert.ErrorIs(t, err, ErrSlotTooSoon)
	})

	t.Run("Too Far", func(t *testing.T) {
		f := newBookingFixture()
		tooFar := f.now.Add(91 * 24 * time.Hour) // beyond the 90d horizon

		_, err := f.svc.CreateBooking(userID, "rider@example.com", "Rider", f.request(tooFar))
		assert.ErrorIs(t, err, ErrSlotTooFar)
	})

	t.Run("Too Many Riders", func(t *testing.T) {
		f := newBookingFixture()
		req := f.request(startsAt)
		req.NumberOfRiders = 11

		_, err := f.svc.CreateBooking(userID, "rider@example.com", "Rider", req)
		assert.ErrorIs(t, err, ErrTooManyRiders)
	})
}

func TestCancelBooking_Service(t *testing.T) {
	newBooking := func(f *bookingFixture, status models.BookingStatus, startsAt time.Time) *models.Booking {
		email := "rider@example.com"
		pi := "pi_1"
		booking := &models.Booking{
			ID:            uuid.New(),
			CustomerEmail: &email,
			PackageID:     f.pkg.ID,
			StartsAt:      startsAt,
			AmountCents:   24900,
			Currency:      "eur",
			Status:        status,
		}
		if status != models.BookingStatusPendingPayment {
			paidAt := f.now.Add(-time.Hour)
			booking.PaidAt = &paidAt
			booking.PaymentIntentID = &pi
		}
		f.bookings.put(booking)
		return booking
	}

	t.Run("Pending Cancels Without Refund", func(t *testing.T) {
		f := newBookingFixture()
		booking := newBooking(f, models.BookingStatusPendingPayment, f.now.Add(48*time.Hour))

		got, err := f.svc.CancelBooking(booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelled, got.Status)
		assert.False(t, got.RefundPendingReview)
		assert.Empty(t, f.checkout.refunds)
	})

	t.Run("Confirmed Outside Buffer Refunds", func(t *testing.T) {
		f := newBookingFixture()
		booking := newBooking(f, models.BookingStatusConfirmed, f.now.Add(48*time.Hour))

		got, err := f.svc.CancelBooking(booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusRefunded, got.Status)
		assert.False(t, got.RefundPendingReview)
		assert.Equal(t, []string{"pi_1"}, f.checkout.refunds)
		assert.Equal(t, 1, f.audits.countByType(models.AuditRefundCompleted))
	})

	t.Run("Confirmed Inside Buffer Is Refused", func(t *testing.T) {
		f := newBookingFixture()
		booking := newBooking(f, models.BookingStatusConfirmed, f.now.Add(6*time.Hour))

		_, err := f.svc.CancelBooking(booking.ID)
		assert.ErrorIs(t, err, ErrCancellationWindowPassed)

		got, err := f.bookings.GetByID(booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusConfirmed, got.Status)
	})

	t.Run("Terminal Status Is Invalid Transition", func(t *testing.T) {
		f := newBookingFixture()
		booking := newBooking(f, models.BookingStatusCompleted, f.now.Add(48*time.Hour))

		_, err := f.svc.CancelBooking(booking.ID)
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
	})

	t.Run("Refund Failure Still Cancels With Review Flag", func(t *testing.T) {
		f := newBookingFixture()
		f.checkout.refundErr = fmt.Errorf("provider is down")
		booking := newBooking(f, models.BookingStatusConfirmed, f.now.Add(48*time.Hour))

		got, err := f.svc.CancelBooking(booking.ID)
		require.NoError(t, err, "a provider hiccup must not block the cancellation")
		assert.Equal(t, models.BookingStatusCancelled, got.Status)
		assert.True(t, got.RefundPendingReview)
		assert.Equal(t, 1, f.audits.countByType(models.AuditRefundFailed))

		// Operators get a heads-up for the manual refund
		require.Len(t, f.mail.Sent(), 1)
		assert.Equal(t, "ops@example.com", f.mail.Sent()[0].To)
	})

	t.Run("Payment Landing During Cancel Routes To Refund", func(t *testing.T) {
		f := newBookingFixture()
		booking := newBooking(f, models.BookingStatusPendingPayment, f.now.Add(48*time.Hour))

		store := &confirmBeforeCancel{fakeBookings: f.bookings, bookingID: booking.ID}
		f.svc = NewBookingService(store, f.packages, f.checkout, f.audits, f.mail, testConfig(), testLogger())
		f.svc.now = func() time.Time { return f.now }

		got, err := f.svc.CancelBooking(booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusRefunded, got.Status)
		assert.False(t, got.RefundPendingReview)
		assert.Equal(t, []string{"pi_race"}, f.checkout.refunds, "the payment that won the race must be refunded, not dropped")
		assert.Equal(t, 1, f.audits.countByType(models.AuditRefundCompleted))
	})
}

// confirmBeforeCancel lands a payment confirmation just before the first
// cancel write, the window a late webhook can hit
type confirmBeforeCancel struct {
	*fakeBookings
	bookingID uuid.UUID
	once      sync.Once
}

func (c *confirmBeforeCancel) Cancel(bookingID uuid.UUID, from, to models.BookingStatus, refundPendingReview bool) (bool, error) {
	c.once.Do(func() {
		c.fakeBookings.ConfirmPayment(c.bookingID, "pi_race", nil)
	})
	return c.fakeBookings.Cancel(bookingID, from, to, refundPendingReview)
}

func TestCreateBookingConcurrentSameSlot(t *testing.T) {
	f := newBookingFixture()
	startsAt := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := f.svc.CreateBooking(uuid.New(), fmt.Sprintf("rider%d@example.com", n), "Rider", f.request(startsAt))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	created, taken := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, database.ErrSlotTaken):
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, created, "exactly one request wins the slot")
	assert.Equal(t, attempts-1, taken)
}

func TestTakenSlots(t *testing.T) {
	f := newBookingFixture()
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)

	active := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	cancelled := time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC)

	f.bookings.put(&models.Booking{
		ID: uuid.New(), PackageID: f.pkg.ID, StartsAt: active,
		Status: models.BookingStatusConfirmed,
	})
	f.bookings.put(&models.Booking{
		ID: uuid.New(), PackageID: f.pkg.ID, StartsAt: cancelled,
		Status: models.BookingStatusCancelled,
	})

	taken, err := f.svc.TakenSlots(f.pkg.ID, from, to)
	require.NoError(t, err)
	require.Len(t, taken, 1, "cancelled bookings free their slot")
	assert.True(t, taken[0].Equal(active))
}
