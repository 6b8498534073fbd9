package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/momentumclips/booking-backend/internal/config"
	"github.com/momentumclips/booking-backend/internal/models"
)

// ExpiryService reclaims slots held by abandoned pending-payment bookings.
//
// The sweep is disabled unless BOOKING_PENDING_EXPIRY_MINUTES is set above
// zero. A race between the sweep and a late payment webhook is harmless:
// whichever conditional write lands first wins and the other matches zero
// rows.
type ExpiryService struct {
	bookings bookingStore
	cron     *cron.Cron
	config   *config.Config
	logger   *logrus.Logger

	now func() time.Time
}

// NewExpiryService creates a new expiry sweep
func NewExpiryService(bookings bookingStore, cfg *config.Config, logger *logrus.Logger) *ExpiryService {
	return &ExpiryService{
		bookings: bookings,
		cron:     cron.New(),
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Enabled reports whether the sweep is configured to run
func (s *ExpiryService) Enabled() bool {
	return s.config.Booking.PendingExpiryMins > 0
}

// Start schedules the sweep. A no-op when disabled.
func (s *ExpiryService) Start() error {
	if !s.Enabled() {
		s.logger.Info("Pending-payment expiry sweep disabled")
		return nil
	}

	if _, err := s.cron.AddFunc("*/5 * * * *", s.sweepJob); err != nil {
		return fmt.Errorf("failed to schedule expiry sweep: %w", err)
	}

	s.cron.Start()
	s.logger.WithField("expiry_minutes", s.config.Booking.PendingExpiryMins).
		Info("Pending-payment expiry sweep started")

	return nil
}

// Stop halts the sweep and waits for a running job to finish
func (s *ExpiryService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *ExpiryService) sweepJob() {
	expired, err := s.Sweep()
	if err != nil {
		s.logger.WithError(err).Error("Expiry sweep failed")
		return
	}
	if expired > 0 {
		s.logger.WithField("expired", expired).Info("Expiry sweep reclaimed slots")
	}
}

// Sweep cancels pending-payment bookings older than the configured expiry,
// freeing their slots. Returns how many bookings were expired.
func (s *ExpiryService) Sweep() (int, error) {
	cutoff := s.now().Add(-time.Duration(s.config.Booking.PendingExpiryMins) * time.Minute)

	stale, err := s.bookings.GetStalePending(cutoff, 100)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, booking := range stale {
		cancelled, err := s.bookings.Cancel(booking.ID, models.BookingStatusPendingPayment, models.BookingStatusCancelled, false)
		if err != nil {
			s.logger.WithError(err).WithField("booking_id", booking.ID).
				Error("Failed to expire pending booking")
			continue
		}
		if !cancelled {
			// A payment landed after the stale read; the booking is no
			// longer pending and keeps its slot
			continue
		}
		expired++
	}

	return expired, nil
}
