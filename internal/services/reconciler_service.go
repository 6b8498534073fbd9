package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/momentumclips/booking-backend/internal/database"
	"github.com/momentumclips/booking-backend/internal/models"
	"github.com/momentumclips/booking-backend/pkg/mailer"
)

// ErrPaymentVerificationFailed is returned by the return-redirect path when
// the provider does not report the session as paid. The customer sees a
// "payment processing" page; the webhook remains the source of truth.
var ErrPaymentVerificationFailed = errors.New("payment could not be verified")

// bookingLedger is the slice of the booking repository the reconciler needs
type bookingLedger interface {
	GetByID(bookingID uuid.UUID) (*models.Booking, error)
	GetByCheckoutSessionID(sessionID string) (*models.Booking, error)
	GetByPaymentIntentID(paymentIntentID string) (*models.Booking, error)
	ConfirmPayment(bookingID uuid.UUID, paymentIntentID string, chargeID *string) (bool, error)
	UpdateStatus(bookingID uuid.UUID, status models.BookingStatus) error
}

// orderStore is the slice of the order repository the reconciler needs
type orderStore interface {
	GetByID(orderID uuid.UUID) (*models.Order, error)
	GetByCheckoutSessionID(sessionID string) (*models.Order, error)
	MarkPaid(orderID uuid.UUID, paymentIntentID string) (bool, error)
}

// webhookLedger is the dedup ledger for inbound provider events
type webhookLedger interface {
	Record(event *models.WebhookEvent) error
	GetByProviderEventID(providerEventID string) (*models.WebhookEvent, error)
	MarkProcessed(eventID uuid.UUID) error
	MarkFailed(eventID uuid.UUID, message string) error
}

// auditLog records the immutable payment audit trail
type auditLog interface {
	Log(audit *models.PaymentAudit) error
}

// ReconcilerService folds provider payment signals into the ledger. Every
// inbound path (webhook, return redirect) converges on the same conditional
// writes, so any combination and ordering of signals confirms a payment
// exactly once.
type ReconcilerService struct {
	bookings bookingLedger
	orders   orderStore
	events   webhookLedger
	audits   auditLog
	checkout CheckoutClient
	mail     mailer.Gateway
	logger   *logrus.Logger
}

// NewReconcilerService creates a new payment reconciler
func NewReconcilerService(
	bookings bookingLedger,
	orders orderStore,
	events webhookLedger,
	audits auditLog,
	checkout CheckoutClient,
	mail mailer.Gateway,
	logger *logrus.Logger,
) *ReconcilerService {
	return &ReconcilerService{
		bookings: bookings,
		orders:   orders,
		events:   events,
		audits:   audits,
		checkout: checkout,
		mail:     mail,
		logger:   logger,
	}
}

// HandleWebhook processes one inbound provider webhook delivery.
//
// Returns ErrBadSignature when verification fails; the handler must answer
// 400 so the provider retries through its own backoff. Every other outcome,
// including duplicates and ignored event kinds, returns nil so the delivery
// is acknowledged.
func (s *ReconcilerService) HandleWebhook(body []byte, signatureHeader string, now time.Time) error {
	if err := s.checkout.VerifyWebhookSignature(body, signatureHeader, now); err != nil {
		s.logger.Warn("Webhook rejected: bad signature")
		s.audit(models.NewPaymentAudit(models.AuditWebhookRejected, models.AuditSourceWebhook).
			SetError("signature verification failed"))
		return ErrBadSignature
	}

	event, err := models.ParsePaymentEvent(body)
	if err != nil {
		// Signed but unparseable: acknowledge, a retry will not parse either
		s.logger.WithError(err).Error("Webhook body could not be parsed")
		s.audit(models.NewPaymentAudit(models.AuditWebhookRejected, models.AuditSourceWebhook).
			SetError("unparseable payload: " + err.Error()))
		return nil
	}

	log := s.logger.WithFields(logrus.Fields{
		"provider_event_id": event.ProviderEventID,
		"event_type":        event.RawType,
	})

	if event.Kind == models.EventIgnored {
		log.Info("Webhook ignored: unhandled event kind")
		s.audit(s.eventAudit(models.AuditWebhookIgnored, event))
		return nil
	}

	row := &models.WebhookEvent{
		ProviderEventID: event.ProviderEventID,
		EventType:       event.RawType,
		Payload:         string(body),
	}
	if err := s.events.Record(row); err != nil {
		if errors.Is(err, database.ErrDuplicateEvent) {
			return s.handleRedelivery(event, log)
		}
		return fmt.Errorf("failed to record webhook event: %w", err)
	}

	s.audit(s.eventAudit(models.AuditWebhookReceived, event))

	return s.process(event, row.ID, log)
}

// process dispatches the event and stamps the ledger row with the outcome
func (s *ReconcilerService) process(event *models.PaymentEvent, eventID uuid.UUID, log *logrus.Entry) error {
	if err := s.dispatch(event); err != nil {
		log.WithError(err).Error("Webhook processing failed")
		if markErr := s.events.MarkFailed(eventID, err.Error()); markErr != nil {
			log.WithError(markErr).Error("Failed to record webhook failure")
		}
		return err
	}

	if err := s.events.MarkProcessed(eventID); err != nil {
		log.WithError(err).Error("Failed to mark webhook processed")
	}

	return nil
}

// handleRedelivery decides what a redelivered event still needs. A ledger
// row without a processed_at stamp was recorded but failed mid-processing;
// the provider's redelivery is the retry, so it is dispatched again instead
// of being acknowledged away.
func (s *ReconcilerService) handleRedelivery(event *models.PaymentEvent, log *logrus.Entry) error {
	existing, err := s.events.GetByProviderEventID(event.ProviderEventID)
	if err != nil {
		return fmt.Errorf("failed to load recorded webhook event: %w", err)
	}

	if existing.ProcessedAt != nil {
		log.Info("Webhook duplicate delivery, already processed")
		s.audit(s.eventAudit(models.AuditWebhookDuplicate, event))
		return nil
	}

	log.Info("Webhook redelivered before processing completed, retrying")
	return s.process(event, existing.ID, log)
}

func (s *ReconcilerService) dispatch(event *models.PaymentEvent) error {
	switch event.Kind {
	case models.EventCheckoutSessionCompleted, models.EventPaymentSucceeded:
		return s.applyPaymentSuccess(event)
	case models.EventPaymentFailed:
		return s.applyPaymentFailure(event)
	case models.EventChargeRefunded:
		return s.applyRefund(event)
	default:
		return nil
	}
}

// applyPaymentSuccess routes a success signal to the booking or order it
// belongs to, resolved through the metadata we set at session creation
func (s *ReconcilerService) applyPaymentSuccess(event *models.PaymentEvent) error {
	if event.OrderID != "" {
		return s.confirmOrder(event)
	}
	return s.confirmBooking(event)
}

func (s *ReconcilerService) confirmBooking(event *models.PaymentEvent) error {
	booking, err := s.resolveBooking(event)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// Metadata points nowhere we know. Acknowledge but leave a trace.
			s.logger.WithField("provider_event_id", event.ProviderEventID).
				Warn("Payment event references unknown booking")
			s.audit(s.eventAudit(models.AuditWebhookIgnored, event).
				SetError("no matching booking"))
			return nil
		}
		return err
	}

	s.checkAmount(event, booking.ID, nil, booking.AmountCents, booking.Currency)

	var chargeID *string
	if event.ChargeID != "" {
		chargeID = &event.ChargeID
	}

	confirmed, err := s.bookings.ConfirmPayment(booking.ID, event.PaymentIntentID, chargeID)
	if err != nil {
		return fmt.Errorf("failed to confirm booking payment: %w", err)
	}

	if !confirmed {
		// Another signal got here first; nothing left to do
		s.logger.WithField("booking_id", booking.ID).Info("Booking already confirmed")
		return nil
	}

	s.audit(s.eventAudit(models.AuditPaymentConfirmed, event).SetBooking(booking.ID))

	s.logger.WithFields(logrus.Fields{
		"booking_id":        booking.ID,
		"payment_intent_id": event.PaymentIntentID,
	}).Info("Booking payment confirmed")

	// Exactly once: only the call that performed the transition sends mail
	s.sendBookingConfirmation(booking)

	return nil
}

func (s *ReconcilerService) confirmOrder(event *models.PaymentEvent) error {
	orderID, err := uuid.Parse(event.OrderID)
	if err != nil {
		s.audit(s.eventAudit(models.AuditWebhookIgnored, event).
			SetError("malformed order id in metadata"))
		return nil
	}

	order, err := s.orders.GetByID(orderID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.audit(s.eventAudit(models.AuditWebhookIgnored, event).
				SetError("no matching order"))
			return nil
		}
		return err
	}

	s.checkAmount(event, uuid.Nil, &order.ID, order.AmountCents, order.Currency)

	paid, err := s.orders.MarkPaid(order.ID, event.PaymentIntentID)
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}

	if !paid {
		s.logger.WithField("order_id", order.ID).Info("Order already paid")
		return nil
	}

	s.audit(s.eventAudit(models.AuditPaymentConfirmed, event).SetOrder(order.ID))

	s.logger.WithFields(logrus.Fields{
		"order_id":          order.ID,
		"payment_intent_id": event.PaymentIntentID,
	}).Info("Order payment confirmed")

	return nil
}

func (s *ReconcilerService) applyPaymentFailure(event *models.PaymentEvent) error {
	audit := s.eventAudit(models.AuditPaymentFailed, event)

	booking, err := s.resolveBooking(event)
	if err == nil {
		audit.SetBooking(booking.ID)
	}
	s.audit(audit)

	// The booking stays pending_payment; the customer can retry checkout and
	// the expiry sweep reclaims abandoned slots
	s.logger.WithField("provider_event_id", event.ProviderEventID).Info("Payment failed")
	return nil
}

func (s *ReconcilerService) applyRefund(event *models.PaymentEvent) error {
	booking, err := s.resolveBooking(event)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.audit(s.eventAudit(models.AuditWebhookIgnored, event).
				SetError("refund for unknown booking"))
			return nil
		}
		return err
	}

	// Provider-side refunds (issued from the provider dashboard) land here.
	// Refunds we initiated already moved the booking; the transition check
	// makes this a no-op for them.
	if err := booking.Status.CanTransitionTo(models.BookingStatusRefunded); err == nil {
		if err := s.bookings.UpdateStatus(booking.ID, models.BookingStatusRefunded); err != nil {
			return fmt.Errorf("failed to mark booking refunded: %w", err)
		}
	}

	s.audit(s.eventAudit(models.AuditRefundCompleted, event).SetBooking(booking.ID))

	s.logger.WithField("booking_id", booking.ID).Info("Refund recorded")
	return nil
}

// VerifyReturn handles the customer's redirect back from hosted checkout.
// The session id comes from the URL, so nothing in it is trusted: the
// session state is re-fetched from the provider over the authenticated API.
// Confirmation is the same conditional write the webhook path uses, so
// whichever signal lands first wins and the other is a no-op.
func (s *ReconcilerService) VerifyReturn(sessionID string) (*models.Booking, *models.Order, error) {
	session, err := s.checkout.RetrieveSession(sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to retrieve checkout session: %w", err)
	}

	if !session.Paid() {
		s.audit(models.NewPaymentAudit(models.AuditReturnRejected, models.AuditSourceReturn).
			SetSession(sessionID).
			SetError("session not paid: " + session.PaymentStatus))
		return nil, nil, ErrPaymentVerificationFailed
	}

	if orderID := session.Metadata["order_id"]; orderID != "" {
		order, err := s.verifyOrderReturn(session, orderID)
		return nil, order, err
	}

	booking, err := s.verifyBookingReturn(session)
	return booking, nil, err
}

func (s *ReconcilerService) verifyBookingReturn(session *CheckoutSession) (*models.Booking, error) {
	booking, err := s.bookings.GetByCheckoutSessionID(session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve booking for session: %w", err)
	}

	var chargeID *string
	confirmed, err := s.bookings.ConfirmPayment(booking.ID, session.PaymentIntent, chargeID)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm booking payment: %w", err)
	}

	s.audit(models.NewPaymentAudit(models.AuditReturnVerified, models.AuditSourceReturn).
		SetBooking(booking.ID).
		SetSession(session.ID).
		SetPaymentIntent(session.PaymentIntent))

	if confirmed {
		s.logger.WithField("booking_id", booking.ID).Info("Booking confirmed via return redirect")
		s.sendBookingConfirmation(booking)
	}

	return s.bookings.GetByID(booking.ID)
}

func (s *ReconcilerService) verifyOrderReturn(session *CheckoutSession, orderIDStr string) (*models.Order, error) {
	orderID, err := uuid.Parse(orderIDStr)
	if err != nil {
		return nil, fmt.Errorf("malformed order id in session metadata: %w", err)
	}

	order, err := s.orders.GetByID(orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve order for session: %w", err)
	}

	if _, err := s.orders.MarkPaid(order.ID, session.PaymentIntent); err != nil {
		return nil, fmt.Errorf("failed to mark order paid: %w", err)
	}

	s.audit(models.NewPaymentAudit(models.AuditReturnVerified, models.AuditSourceReturn).
		SetOrder(order.ID).
		SetSession(session.ID).
		SetPaymentIntent(session.PaymentIntent))

	return s.orders.GetByID(order.ID)
}

// resolveBooking finds the ledger row an event belongs to, preferring the
// metadata booking id and falling back to provider identifiers
func (s *ReconcilerService) resolveBooking(event *models.PaymentEvent) (*models.Booking, error) {
	if event.BookingID != "" {
		if id, err := uuid.Parse(event.BookingID); err == nil {
			return s.bookings.GetByID(id)
		}
	}
	if event.SessionID != "" {
		if booking, err := s.bookings.GetByCheckoutSessionID(event.SessionID); err == nil {
			return booking, nil
		}
	}
	if event.PaymentIntentID != "" {
		return s.bookings.GetByPaymentIntentID(event.PaymentIntentID)
	}
	return nil, database.ErrNotFound
}

// checkAmount compares the advisory webhook amount against the ledger's
// locked amount. A mismatch is recorded for operator review and nothing
// else: the locked amount is what was actually charged.
func (s *ReconcilerService) checkAmount(event *models.PaymentEvent, bookingID uuid.UUID, orderID *uuid.UUID, expectedCents int64, currency string) {
	if event.AmountCents == 0 {
		return
	}
	if event.AmountCents == expectedCents {
		return
	}

	s.logger.WithFields(logrus.Fields{
		"expected_cents": expectedCents,
		"received_cents": event.AmountCents,
	}).Warn("Webhook amount differs from ledger amount")

	audit := s.eventAudit(models.AuditAmountMismatch, event).
		SetAmounts(expectedCents, event.AmountCents, currency)
	if bookingID != uuid.Nil {
		audit.SetBooking(bookingID)
	}
	if orderID != nil {
		audit.SetOrder(*orderID)
	}
	s.audit(audit)
}

func (s *ReconcilerService) eventAudit(eventType models.PaymentAuditEventType, event *models.PaymentEvent) *models.PaymentAudit {
	audit := models.NewPaymentAudit(eventType, models.AuditSourceWebhook)
	if event.ProviderEventID != "" {
		audit.ProviderEventID = &event.ProviderEventID
	}
	if event.SessionID != "" {
		audit.SetSession(event.SessionID)
	}
	if event.PaymentIntentID != "" {
		audit.SetPaymentIntent(event.PaymentIntentID)
	}
	return audit
}

// audit writes an audit entry, logging instead of failing the caller when
// the write itself fails
func (s *ReconcilerService) audit(entry *models.PaymentAudit) {
	if err := s.audits.Log(entry); err != nil {
		s.logger.WithError(err).Error("Failed to write payment audit entry")
	}
}

func (s *ReconcilerService) sendBookingConfirmation(booking *models.Booking) {
	if booking.CustomerEmail == nil || *booking.CustomerEmail == "" {
		return
	}

	msg := mailer.Message{
		To:      *booking.CustomerEmail,
		Subject: "Your filming session is confirmed",
		Body: fmt.Sprintf(
			"Hi,\n\nYour payment has been received and your filming session on %s is confirmed.\n\nBooking reference: %s\n\nSee you on the mountain!\nMomentum Clips",
			booking.StartsAt.Format("Monday, 2 January 2006 at 15:04"),
			booking.ID,
		),
	}

	if err := s.mail.Send(msg); err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).
			Error("Failed to send booking confirmation email")
	}
}
