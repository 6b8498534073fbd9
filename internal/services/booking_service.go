package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/momentumclips/booking-backend/internal/config"
	"github.com/momentumclips/booking-backend/internal/models"
	"github.com/momentumclips/booking-backend/pkg/mailer"
)

var (
	// ErrPackageUnavailable is returned when the requested package does not
	// exist or is not currently bookable
	ErrPackageUnavailable = errors.New("package is not available for booking")

	// ErrSlotTooSoon is returned when the requested start is inside the
	// minimum advance-notice buffer
	ErrSlotTooSoon = errors.New("slot start is too soon")

	// ErrSlotTooFar is returned when the requested start is beyond the
	// booking horizon
	ErrSlotTooFar = errors.New("slot start is too far in the future")

	// ErrTooManyRiders is returned when the rider count exceeds the limit
	ErrTooManyRiders = errors.New("too many riders for one session")

	// ErrCancellationWindowPassed is returned when a confirmed booking is
	// cancelled with less than the required advance notice
	ErrCancellationWindowPassed = errors.New("cancellation window has passed")
)

// bookingStore is the slice of the booking repository the booking service needs
type bookingStore interface {
	Create(booking *models.Booking) error
	GetByID(bookingID uuid.UUID) (*models.Booking, error)
	GetByUserID(userID uuid.UUID) ([]models.Booking, error)
	GetByDateRange(packageID uuid.UUID, start, end time.Time) ([]models.Booking, error)
	IsSlotAvailable(packageID uuid.UUID, startsAt time.Time) (bool, error)
	SetCheckoutSession(bookingID uuid.UUID, sessionID string) error
	Cancel(bookingID uuid.UUID, from, to models.BookingStatus, refundPendingReview bool) (bool, error)
	GetStalePending(cutoff time.Time, limit int) ([]models.Booking, error)
}

// packageStore is the catalog lookup the booking service needs
type packageStore interface {
	GetByID(packageID uuid.UUID) (*models.Package, error)
}

// BookingService implements the authenticated slot-first booking flow:
// reserve a slot in pending_payment, then send the customer to hosted
// checkout for the reserved amount.
type BookingService struct {
	bookings bookingStore
	packages packageStore
	checkout CheckoutClient
	audits   auditLog
	mail     mailer.Gateway
	config   *config.Config
	logger   *logrus.Logger

	// now is swapped in tests to pin the clock
	now func() time.Time
}

// NewBookingService creates a new booking service
func NewBookingService(
	bookings bookingStore,
	packages packageStore,
	checkout CheckoutClient,
	audits auditLog,
	mail mailer.Gateway,
	cfg *config.Config,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookings: bookings,
		packages: packages,
		checkout: checkout,
		audits:   audits,
		mail:     mail,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateBookingResult is what a successful creation hands back to the
// handler: the ledger row and the hosted checkout URL to redirect to
type CreateBookingResult struct {
	Booking     *models.Booking `json:"booking"`
	CheckoutURL string          `json:"checkout_url"`
}

// CreateBooking reserves a slot and opens a checkout session for it.
//
// The insert is the reservation: when two requests race for the same slot
// the database's unique index decides, and the loser surfaces ErrSlotTaken.
// The price is copied from the catalog here and never read from it again.
func (s *BookingService) CreateBooking(userID uuid.UUID, email, name string, req *models.CreateBookingRequest) (*CreateBookingResult, error) {
	packageID, err := uuid.Parse(req.PackageID)
	if err != nil {
		return nil, ErrPackageUnavailable
	}

	pkg, err := s.packages.GetByID(packageID)
	if err != nil {
		return nil, ErrPackageUnavailable
	}
	if !pkg.IsActive {
		return nil, ErrPackageUnavailable
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return nil, fmt.Errorf("invalid start time: %w", err)
	}
	startsAt = startsAt.UTC()

	if err := s.validateSlotWindow(startsAt); err != nil {
		return nil, err
	}

	riders := req.NumberOfRiders
	if riders <= 0 {
		riders = 1
	}
	if riders > s.config.Booking.MaxRidersPerSession {
		return nil, ErrTooManyRiders
	}

	booking := &models.Booking{
		ID:              uuid.New(),
		UserID:          &userID,
		CustomerName:    &name,
		CustomerEmail:   &email,
		PackageID:       pkg.ID,
		StartsAt:        startsAt,
		Location:        req.Location,
		LocationDetails: req.LocationDetails,
		AmountCents:     pkg.PriceCents,
		Currency:        pkg.Currency,
		Status:          models.BookingStatusPendingPayment,
		NumberOfRiders:  riders,
		RiderExperience: req.RiderExperience,
		SpecialRequests: req.SpecialRequests,
	}

	if err := s.bookings.Create(booking); err != nil {
		return nil, err
	}

	session, err := s.checkout.CreateCheckoutSession(&CheckoutSessionRequest{
		ItemName:      pkg.Name,
		AmountCents:   booking.AmountCents,
		Currency:      booking.Currency,
		SuccessURL:    s.config.Server.BaseURL + "/booking/success?session_id=" + SessionIDPlaceholder,
		CancelURL:     s.config.Server.BaseURL + "/booking/cancelled",
		CustomerEmail: email,
		Metadata: map[string]string{
			"booking_id": booking.ID.String(),
		},
	})
	if err != nil {
		// The slot stays reserved in pending_payment; the customer can retry
		// payment and the expiry sweep reclaims it if they never do
		return nil, fmt.Errorf("failed to open checkout session: %w", err)
	}

	if err := s.bookings.SetCheckoutSession(booking.ID, session.ID); err != nil {
		return nil, err
	}
	booking.CheckoutSessionID = &session.ID

	if err := s.audits.Log(models.NewPaymentAudit(models.AuditCheckoutCreated, models.AuditSourceBackend).
		SetBooking(booking.ID).
		SetSession(session.ID)); err != nil {
		s.logger.WithError(err).Error("Failed to write payment audit entry")
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"package_id": pkg.ID,
		"starts_at":  startsAt,
	}).Info("Booking created")

	return &CreateBookingResult{Booking: booking, CheckoutURL: session.URL}, nil
}

func (s *BookingService) validateSlotWindow(startsAt time.Time) error {
	now := s.now()
	buffer := time.Duration(s.config.Booking.BufferHours) * time.Hour
	horizon := time.Duration(s.config.Booking.AdvanceDays) * 24 * time.Hour

	if startsAt.Before(now.Add(buffer)) {
		return ErrSlotTooSoon
	}
	if startsAt.After(now.Add(horizon)) {
		return ErrSlotTooFar
	}
	return nil
}

// GetBooking fetches one ledger row
func (s *BookingService) GetBooking(bookingID uuid.UUID) (*models.Booking, error) {
	return s.bookings.GetByID(bookingID)
}

// ListUserBookings returns a user's bookings, newest first
func (s *BookingService) ListUserBookings(userID uuid.UUID) ([]models.Booking, error) {
	return s.bookings.GetByUserID(userID)
}

// CheckAvailability reports whether a slot currently looks free. Purely a
// UI hint: the answer can be stale the moment it is produced, and creation
// never consults it.
func (s *BookingService) CheckAvailability(packageID uuid.UUID, startsAt time.Time) (bool, error) {
	return s.bookings.IsSlotAvailable(packageID, startsAt.UTC())
}

// TakenSlots returns the occupied slot starts for a package within a date
// range, for the availability calendar
func (s *BookingService) TakenSlots(packageID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	bookings, err := s.bookings.GetByDateRange(packageID, from, to)
	if err != nil {
		return nil, err
	}

	taken := make([]time.Time, 0, len(bookings))
	for _, b := range bookings {
		for _, status := range models.ActiveStatuses {
			if b.Status == status {
				taken = append(taken, b.StartsAt)
				break
			}
		}
	}

	return taken, nil
}

// CancelBooking performs a customer-initiated cancellation.
//
// Pending bookings cancel unconditionally. Confirmed bookings cancel only
// while the slot start is outside the advance-notice buffer; a refund is
// attempted, and if the provider rejects it the cancellation still goes
// through with the booking flagged for operator follow-up. The slot frees
// either way because the unique index only covers active statuses.
func (s *BookingService) CancelBooking(bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return nil, err
	}

	buffer := time.Duration(s.config.Booking.BufferHours) * time.Hour
	if !booking.CanCancel(s.now(), buffer) {
		if err := booking.Status.CanTransitionTo(models.BookingStatusCancelled); err != nil {
			return nil, err
		}
		return nil, ErrCancellationWindowPassed
	}

	if !booking.IsPaid() {
		cancelled, err := s.bookings.Cancel(booking.ID, models.BookingStatusPendingPayment, models.BookingStatusCancelled, false)
		if err != nil {
			return nil, err
		}
		if !cancelled {
			// The booking left pending_payment between the read and the
			// write, most likely a payment webhook. Re-read and decide from
			// the fresh status.
			fresh, err := s.bookings.GetByID(booking.ID)
			if err != nil {
				return nil, err
			}
			switch {
			case fresh.Status == models.BookingStatusCancelled || fresh.Status == models.BookingStatusRefunded:
				return fresh, nil
			case fresh.IsPaid() && fresh.CanCancel(s.now(), buffer):
				return s.cancelWithRefund(fresh)
			default:
				return nil, models.ErrInvalidTransition
			}
		}
		s.logger.WithField("booking_id", booking.ID).Info("Pending booking cancelled")
		return s.bookings.GetByID(booking.ID)
	}

	return s.cancelWithRefund(booking)
}

func (s *BookingService) cancelWithRefund(booking *models.Booking) (*models.Booking, error) {
	if booking.PaymentIntentID == nil {
		// Paid but no payment id on record should not happen; flag it
		s.logger.WithField("booking_id", booking.ID).
			Error("Paid booking has no payment intent id, flagging for review")
		if _, err := s.bookings.Cancel(booking.ID, booking.Status, models.BookingStatusCancelled, true); err != nil {
			return nil, err
		}
		return s.bookings.GetByID(booking.ID)
	}

	if err := s.audits.Log(models.NewPaymentAudit(models.AuditRefundInitiated, models.AuditSourceCustomer).
		SetBooking(booking.ID).
		SetPaymentIntent(*booking.PaymentIntentID)); err != nil {
		s.logger.WithError(err).Error("Failed to write payment audit entry")
	}

	refund, err := s.checkout.CreateRefund(*booking.PaymentIntentID)
	if err != nil {
		// The customer's cancellation must not be blocked by a provider
		// hiccup: cancel anyway and queue the refund for an operator
		s.logger.WithError(err).WithField("booking_id", booking.ID).
			Error("Refund failed, cancelling with review flag")

		if auditErr := s.audits.Log(models.NewPaymentAudit(models.AuditRefundFailed, models.AuditSourceCustomer).
			SetBooking(booking.ID).
			SetPaymentIntent(*booking.PaymentIntentID).
			SetError(err.Error())); auditErr != nil {
			s.logger.WithError(auditErr).Error("Failed to write payment audit entry")
		}

		if _, err := s.bookings.Cancel(booking.ID, booking.Status, models.BookingStatusCancelled, true); err != nil {
			return nil, err
		}

		s.notifyRefundReview(booking)
		return s.bookings.GetByID(booking.ID)
	}

	// Zero rows here means a provider refund webhook already moved the
	// booking; the refund went through either way.
	if _, err := s.bookings.Cancel(booking.ID, booking.Status, models.BookingStatusRefunded, false); err != nil {
		return nil, err
	}

	if auditErr := s.audits.Log(models.NewPaymentAudit(models.AuditRefundCompleted, models.AuditSourceCustomer).
		SetBooking(booking.ID).
		SetPaymentIntent(*booking.PaymentIntentID)); auditErr != nil {
		s.logger.WithError(auditErr).Error("Failed to write payment audit entry")
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"refund_id":  refund.ID,
	}).Info("Booking cancelled and refunded")

	return s.bookings.GetByID(booking.ID)
}

func (s *BookingService) notifyRefundReview(booking *models.Booking) {
	msg := mailer.Message{
		To:      s.config.Mail.AdminTo,
		Subject: "Refund needs manual review",
		Body: fmt.Sprintf(
			"Booking %s was cancelled but the automatic refund failed.\nPlease issue the refund manually from the provider dashboard.",
			booking.ID,
		),
	}

	if err := s.mail.Send(msg); err != nil {
		s.logger.WithError(err).Error("Failed to send refund review notice")
	}
}
