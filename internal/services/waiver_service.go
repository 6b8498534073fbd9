package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/momentumclips/booking-backend/internal/config"
	"github.com/momentumclips/booking-backend/internal/database"
	"github.com/momentumclips/booking-backend/internal/models"
	"github.com/momentumclips/booking-backend/internal/utils"
)

var (
	// ErrTermsNotAccepted is returned when the acceptance checkbox was not set
	ErrTermsNotAccepted = errors.New("waiver terms must be accepted")

	// ErrLegalNameTooShort is returned when the typed signature is shorter
	// than the configured minimum
	ErrLegalNameTooShort = errors.New("legal name signature is too short")

	// ErrWaiverTargetMissing is returned when the submission names neither a
	// booking nor an order
	ErrWaiverTargetMissing = errors.New("waiver must reference a booking or an order")

	// ErrAlreadySigned is returned when a booking already has a signature and
	// the submission did not ask to supersede it
	ErrAlreadySigned = errors.New("waiver already signed for this booking")

	// ErrOrderNotPaid is returned when a waiver is submitted for an order
	// whose payment has not been confirmed yet
	ErrOrderNotPaid = errors.New("order payment has not been confirmed")
)

// waiverStore is the slice of the waiver repository the waiver service needs
type waiverStore interface {
	Create(waiver *models.Waiver) error
	GetLatestByBooking(bookingID uuid.UUID) (*models.Waiver, error)
	IsSigned(bookingID uuid.UUID) (bool, error)
}

// orderWaiverStore is the order-side writes the waiver service needs
type orderWaiverStore interface {
	GetByID(orderID uuid.UUID) (*models.Order, error)
	SetWaiver(orderID, waiverID uuid.UUID, customerName, customerEmail string) error
	LinkWaiver(orderID, waiverID uuid.UUID) error
}

// WaiverService records liability release signatures. Signatures are
// append-only rows binding the signer, the exact waiver text, and the device
// that signed; nothing here is ever updated after the fact.
type WaiverService struct {
	waivers  waiverStore
	orders   orderWaiverStore
	bookings bookingLedger
	config   *config.Config
	logger   *logrus.Logger

	now func() time.Time
}

// NewWaiverService creates a new waiver service
func NewWaiverService(
	waivers waiverStore,
	orders orderWaiverStore,
	bookings bookingLedger,
	cfg *config.Config,
	logger *logrus.Logger,
) *WaiverService {
	return &WaiverService{
		waivers:  waivers,
		orders:   orders,
		bookings: bookings,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// SignWaiver validates and records one signature event.
//
// A booking-linked submission refuses to double-sign unless the request asks
// to supersede, in which case the new row points at the one it replaces. An
// order-linked submission additionally advances the order to waiver_signed
// and appends to its signature chain.
func (s *WaiverService) SignWaiver(req *models.SignWaiverRequest, ipAddress, rawUserAgent string) (*models.Waiver, error) {
	if !req.AgreeToTerms {
		return nil, ErrTermsNotAccepted
	}

	legalName := strings.TrimSpace(req.LegalName)
	if len(legalName) < s.config.Booking.MinLegalNameLength {
		return nil, ErrLegalNameTooShort
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	if req.BookingID == nil && req.OrderID == nil {
		return nil, ErrWaiverTargetMissing
	}

	waiver := &models.Waiver{
		ID:                 uuid.New(),
		ClientName:         legalName,
		ClientEmail:        email,
		LegalNameSignature: legalName,
		IPAddress:          ipAddress,
		WaiverVersion:      models.CurrentWaiverVersion,
		WaiverTextHash:     models.HashWaiverText(models.WaiverText),
		SignedAt:           s.now().UTC(),
	}
	if rawUserAgent != "" {
		waiver.UserAgent = &rawUserAgent
		summary := utils.SummarizeUserAgent(rawUserAgent)
		waiver.DeviceSummary = &summary
	}

	if req.BookingID != nil {
		if err := s.bindToBooking(waiver, *req.BookingID, req.Supersede); err != nil {
			return nil, err
		}
	}

	var order *models.Order
	if req.OrderID != nil {
		var err error
		order, err = s.resolveOrder(*req.OrderID)
		if err != nil {
			return nil, err
		}
	}

	if err := s.waivers.Create(waiver); err != nil {
		return nil, err
	}

	if order != nil {
		if err := s.orders.SetWaiver(order.ID, waiver.ID, legalName, email); err != nil {
			return nil, err
		}
		if err := s.orders.LinkWaiver(order.ID, waiver.ID); err != nil {
			return nil, err
		}
	}

	s.logger.WithFields(logrus.Fields{
		"waiver_id":      waiver.ID,
		"waiver_version": waiver.WaiverVersion,
	}).Info("Waiver signed")

	return waiver, nil
}

func (s *WaiverService) bindToBooking(waiver *models.Waiver, bookingIDStr string, supersede bool) error {
	bookingID, err := uuid.Parse(bookingIDStr)
	if err != nil {
		return database.ErrNotFound
	}

	if _, err := s.bookings.GetByID(bookingID); err != nil {
		return err
	}

	previous, err := s.waivers.GetLatestByBooking(bookingID)
	switch {
	case err == nil:
		if !supersede {
			return ErrAlreadySigned
		}
		waiver.SupersedesWaiverID = &previous.ID
	case errors.Is(err, database.ErrNotFound):
		// first signature for this booking
	default:
		return err
	}

	waiver.BookingID = &bookingID
	return nil
}

func (s *WaiverService) resolveOrder(orderIDStr string) (*models.Order, error) {
	orderID, err := uuid.Parse(orderIDStr)
	if err != nil {
		return nil, database.ErrNotFound
	}

	order, err := s.orders.GetByID(orderID)
	if err != nil {
		return nil, err
	}

	if !order.IsPaid() {
		return nil, ErrOrderNotPaid
	}

	return order, nil
}

// IsSigned reports whether a booking has at least one signature on file
func (s *WaiverService) IsSigned(bookingID uuid.UUID) (bool, error) {
	return s.waivers.IsSigned(bookingID)
}

// LatestForBooking returns the most recent signature for a booking
func (s *WaiverService) LatestForBooking(bookingID uuid.UUID) (*models.Waiver, error) {
	return s.waivers.GetLatestByBooking(bookingID)
}
