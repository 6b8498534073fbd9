package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/momentumclips/booking-backend/internal/config"
	"github.com/momentumclips/booking-backend/internal/models"
	"github.com/momentumclips/booking-backend/pkg/mailer"
)

var (
	// ErrBadConfirmToken is returned when a scheduler callback carries a
	// token that does not verify
	ErrBadConfirmToken = errors.New("scheduler confirmation token is invalid")

	// ErrOrderNotReady is returned when a callback arrives for an order that
	// has not completed the waiver step
	ErrOrderNotReady = errors.New("order is not ready for scheduling")
)

// schedulerOrderStore is the order surface the scheduler hand-off needs
type schedulerOrderStore interface {
	GetByID(orderID uuid.UUID) (*models.Order, error)
	MarkScheduled(orderID uuid.UUID, bookingID *uuid.UUID, start *time.Time, timezone, location *string) (bool, error)
}

// schedulerBookingStore creates and confirms the ledger row that back-fills
// the slot for a scheduled order
type schedulerBookingStore interface {
	Create(booking *models.Booking) error
	ConfirmPayment(bookingID uuid.UUID, paymentIntentID string, chargeID *string) (bool, error)
}

// SchedulerService manages the hand-off to the external scheduling provider
// and the signed callback that brings the chosen slot back.
//
// The provider never authenticates to us. Instead the redirect URL we build
// embeds an HMAC token over the order's latest waiver id; only someone who
// walked the paid-and-waivered path through our redirect holds a valid one.
type SchedulerService struct {
	orders   schedulerOrderStore
	bookings schedulerBookingStore
	packages packageStore
	audits   auditLog
	mail     mailer.Gateway
	config   *config.Config
	logger   *logrus.Logger
}

// NewSchedulerService creates a new scheduler hand-off service
func NewSchedulerService(
	orders schedulerOrderStore,
	bookings schedulerBookingStore,
	packages packageStore,
	audits auditLog,
	mail mailer.Gateway,
	cfg *config.Config,
	logger *logrus.Logger,
) *SchedulerService {
	return &SchedulerService{
		orders:   orders,
		bookings: bookings,
		packages: packages,
		audits:   audits,
		mail:     mail,
		config:   cfg,
		logger:   logger,
	}
}

// ConfirmationToken derives the callback token for a waiver id
func (s *SchedulerService) ConfirmationToken(waiverID uuid.UUID) string {
	mac := hmac.New(sha256.New, []byte(s.config.Scheduler.ConfirmSecret))
	mac.Write([]byte(waiverID.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidateToken checks a presented token against the expected one for a
// waiver id, in constant time
func (s *SchedulerService) ValidateToken(waiverID uuid.UUID, token string) bool {
	expected := s.ConfirmationToken(waiverID)
	return hmac.Equal([]byte(expected), []byte(token))
}

// BuildRedirectURL produces the external scheduling page URL for an order
// that has completed payment and waiver, with the order id and confirmation
// token appended so the provider can pass them back.
func (s *SchedulerService) BuildRedirectURL(orderID uuid.UUID) (string, error) {
	order, err := s.orders.GetByID(orderID)
	if err != nil {
		return "", err
	}

	if order.Status != models.OrderStatusWaiverSigned || order.LatestWaiverID == nil {
		return "", ErrOrderNotReady
	}

	pkg, err := s.packages.GetByID(order.PackageID)
	if err != nil {
		return "", err
	}
	if pkg.SchedulingURL == "" {
		return "", fmt.Errorf("package %s has no scheduling page configured", pkg.ID)
	}

	u, err := url.Parse(pkg.SchedulingURL)
	if err != nil {
		return "", fmt.Errorf("invalid scheduling URL for package %s: %w", pkg.ID, err)
	}

	q := u.Query()
	q.Set("order_id", order.ID.String())
	q.Set("confirm_token", s.ConfirmationToken(*order.LatestWaiverID))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// ScheduleCallback is the payload the scheduling provider redirects back with
type ScheduleCallback struct {
	OrderID  uuid.UUID
	Token    string
	Start    *time.Time
	Timezone *string
	Location *string
}

// HandleCallback records the slot chosen on the external scheduler.
//
// When slot details are present a ledger booking is created through the slot
// allocator, so a scheduler slot that collides with an existing booking
// surfaces ErrSlotTaken instead of silently double-booking. The order update
// is conditional on waiver_signed, which makes a refreshed callback URL a
// no-op returning the already-scheduled order.
func (s *SchedulerService) HandleCallback(cb *ScheduleCallback) (*models.Order, error) {
	order, err := s.orders.GetByID(cb.OrderID)
	if err != nil {
		return nil, err
	}

	if order.LatestWaiverID == nil {
		return nil, ErrOrderNotReady
	}

	if !s.ValidateToken(*order.LatestWaiverID, cb.Token) {
		s.logger.WithField("order_id", order.ID).Warn("Scheduler callback with bad token")
		return nil, ErrBadConfirmToken
	}

	if order.Status == models.OrderStatusScheduled {
		// Refresh of the confirmation page
		return order, nil
	}
	if order.Status != models.OrderStatusWaiverSigned {
		return nil, ErrOrderNotReady
	}

	var bookingID *uuid.UUID
	if cb.Start != nil {
		booking, err := s.createLedgerBooking(order, cb)
		if err != nil {
			return nil, err
		}
		bookingID = &booking.ID
	}

	scheduled, err := s.orders.MarkScheduled(order.ID, bookingID, cb.Start, cb.Timezone, cb.Location)
	if err != nil {
		return nil, err
	}

	if scheduled {
		if auditErr := s.audits.Log(models.NewPaymentAudit(models.AuditScheduleConfirmed, models.AuditSourceSystem).
			SetOrder(order.ID)); auditErr != nil {
			s.logger.WithError(auditErr).Error("Failed to write payment audit entry")
		}

		s.logger.WithFields(logrus.Fields{
			"order_id": order.ID,
		}).Info("Order scheduled")

		s.sendScheduleConfirmation(order, cb)
	}

	return s.orders.GetByID(order.ID)
}

// createLedgerBooking back-fills the slot reservation for a public-flow
// order once the scheduler reports its chosen time
func (s *SchedulerService) createLedgerBooking(order *models.Order, cb *ScheduleCallback) (*models.Booking, error) {
	location := "TBD"
	if cb.Location != nil && *cb.Location != "" {
		location = *cb.Location
	}

	booking := &models.Booking{
		ID:            uuid.New(),
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		PackageID:     order.PackageID,
		StartsAt:      cb.Start.UTC(),
		Location:      location,
		AmountCents:   order.AmountCents,
		Currency:      order.Currency,
		Status:        models.BookingStatusPendingPayment,
		NumberOfRiders: 1,
	}

	if err := s.bookings.Create(booking); err != nil {
		return nil, err
	}

	// The order was already paid; move the ledger row straight to confirmed
	// with the payment linkage carried over
	if order.PaymentIntentID != nil {
		if _, err := s.bookings.ConfirmPayment(booking.ID, *order.PaymentIntentID, nil); err != nil {
			return nil, err
		}
		booking.Status = models.BookingStatusConfirmed
	}

	return booking, nil
}

func (s *SchedulerService) sendScheduleConfirmation(order *models.Order, cb *ScheduleCallback) {
	if order.CustomerEmail == nil || *order.CustomerEmail == "" {
		return
	}

	when := "a time to be confirmed"
	if cb.Start != nil {
		when = cb.Start.Format("Monday, 2 January 2006 at 15:04")
	}

	msg := mailer.Message{
		To:      *order.CustomerEmail,
		Subject: "Your filming session is scheduled",
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour filming session is scheduled for %s.\n\nOrder reference: %s\n\nSee you on the mountain!\nMomentum Clips",
			orDefault(order.CustomerName, "there"), when, order.ID,
		),
	}

	if err := s.mail.Send(msg); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).
			Error("Failed to send schedule confirmation email")
	}
}

func orDefault(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
