package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionTo(t *testing.T) {
	t.Run("Allowed Transitions", func(t *testing.T) {
		allowed := []struct {
			from BookingStatus
			to   BookingStatus
		}{
			{BookingStatusPendingPayment, BookingStatusConfirmed},
			{BookingStatusPendingPayment, BookingStatusCancelled},
			{BookingStatusConfirmed, BookingStatusInProgress},
			{BookingStatusConfirmed, BookingStatusCancelled},
			{BookingStatusConfirmed, BookingStatusRefunded},
			{BookingStatusInProgress, BookingStatusCompleted},
		}

		for _, tc := range allowed {
			assert.NoError(t, tc.from.CanTransitionTo(tc.to), "%s -> %s should be allowed", tc.from, tc.to)
		}
	})

	t.Run("Disallowed Transitions", func(t *testing.T) {
		disallowed := []struct {
			from BookingStatus
			to   BookingStatus
		}{
			{BookingStatusPendingPayment, BookingStatusInProgress},
			{BookingStatusPendingPayment, BookingStatusCompleted},
			{BookingStatusPendingPayment, BookingStatusRefunded},
			{BookingStatusConfirmed, BookingStatusPendingPayment},
			{BookingStatusInProgress, BookingStatusCancelled},
			{BookingStatusConfirmed, BookingStatusCompleted},
		}

		for _, tc := range disallowed {
			err := tc.from.CanTransitionTo(tc.to)
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s should be rejected", tc.from, tc.to)
		}
	})

	t.Run("Terminal Statuses Allow Nothing", func(t *testing.T) {
		terminals := []BookingStatus{BookingStatusCompleted, BookingStatusCancelled, BookingStatusRefunded}
		targets := []BookingStatus{
			BookingStatusPendingPayment, BookingStatusConfirmed, BookingStatusInProgress,
			BookingStatusCompleted, BookingStatusCancelled, BookingStatusRefunded,
		}

		for _, from := range terminals {
			assert.True(t, from.IsTerminal())
			for _, to := range targets {
				if from == to {
					continue
				}
				assert.ErrorIs(t, from.CanTransitionTo(to), ErrInvalidTransition)
			}
		}
	})

	t.Run("Unknown Statuses", func(t *testing.T) {
		err := BookingStatus("archived").CanTransitionTo(BookingStatusCancelled)
		assert.ErrorIs(t, err, ErrUnknownStatus)

		err = BookingStatusConfirmed.CanTransitionTo(BookingStatus("archived"))
		assert.ErrorIs(t, err, ErrUnknownStatus)
	})
}

func TestCanCancel(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	buffer := 24 * time.Hour

	t.Run("Pending Always Cancellable", func(t *testing.T) {
		booking := &Booking{
			Status:   BookingStatusPendingPayment,
			StartsAt: now.Add(1 * time.Hour), // even inside the buffer
		}
		assert.True(t, booking.CanCancel(now, buffer))
	})

	t.Run("Confirmed Outside Buffer", func(t *testing.T) {
		booking := &Booking{
			Status:   BookingStatusConfirmed,
			StartsAt: now.Add(48 * time.Hour),
		}
		assert.True(t, booking.CanCancel(now, buffer))
	})

	t.Run("Confirmed Exactly At Buffer", func(t *testing.T) {
		booking := &Booking{
			Status:   BookingStatusConfirmed,
			StartsAt: now.Add(buffer),
		}
		assert.True(t, booking.CanCancel(now, buffer))
	})

	t.Run("Confirmed Inside Buffer", func(t *testing.T) {
		booking := &Booking{
			Status:   BookingStatusConfirmed,
			StartsAt: now.Add(23 * time.Hour),
		}
		assert.False(t, booking.CanCancel(now, buffer))
	})

	t.Run("Terminal Statuses Not Cancellable", func(t *testing.T) {
		for _, status := range []BookingStatus{BookingStatusCompleted, BookingStatusCancelled, BookingStatusRefunded, BookingStatusInProgress} {
			booking := &Booking{Status: status, StartsAt: now.Add(72 * time.Hour)}
			assert.False(t, booking.CanCancel(now, buffer), "status %s", status)
		}
	})
}

func TestIsPaid(t *testing.T) {
	booking := &Booking{}
	assert.False(t, booking.IsPaid())

	paidAt := time.Now()
	booking.PaidAt = &paidAt
	assert.True(t, booking.IsPaid())
}

func TestActiveStatusesMatchLifecycle(t *testing.T) {
	// Cancelled and refunded must not hold a slot; everything else must
	for _, status := range ActiveStatuses {
		require.True(t, status.Valid())
		assert.NotEqual(t, BookingStatusCancelled, status)
		assert.NotEqual(t, BookingStatusRefunded, status)
	}
	assert.Len(t, ActiveStatuses, 4)
}
