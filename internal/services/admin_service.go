package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/momentumclips/booking-backend/internal/models"
	"github.com/momentumclips/booking-backend/pkg/mailer"
)

// adminBookingStore is the booking surface the back office needs
type adminBookingStore interface {
	GetByID(bookingID uuid.UUID) (*models.Booking, error)
	UpdateStatus(bookingID uuid.UUID, status models.BookingStatus) error
	SetDelivery(bookingID uuid.UUID, videoLinks string) error
	UpdateAdminNotes(bookingID uuid.UUID, notes string) error
	CountByStatus() (map[models.BookingStatus]int, error)
}

// auditReader reads the payment audit trail for the review queues
type auditReader interface {
	ListByBooking(bookingID uuid.UUID) ([]models.PaymentAudit, error)
	ListMismatches(limit int) ([]models.PaymentAudit, error)
}

// AdminService implements back-office operations. Every status change goes
// through the lifecycle table; there is no admin override path around it.
type AdminService struct {
	bookings adminBookingStore
	audits   auditReader
	mail     mailer.Gateway
	logger   *logrus.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(bookings adminBookingStore, audits auditReader, mail mailer.Gateway, logger *logrus.Logger) *AdminService {
	return &AdminService{
		bookings: bookings,
		audits:   audits,
		mail:     mail,
		logger:   logger,
	}
}

// UpdateBookingStatus applies an operator status change after validating it
// against the lifecycle table. Returns ErrUnknownStatus or
// ErrInvalidTransition from the table unchanged.
func (s *AdminService) UpdateBookingStatus(bookingID uuid.UUID, req *models.UpdateBookingStatusRequest) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return nil, err
	}

	target := models.BookingStatus(req.Status)
	if err := booking.Status.CanTransitionTo(target); err != nil {
		return nil, err
	}

	if target == models.BookingStatusCompleted && req.VideoLinks != nil && *req.VideoLinks != "" {
		if err := s.bookings.SetDelivery(bookingID, *req.VideoLinks); err != nil {
			return nil, err
		}
	}

	if err := s.bookings.UpdateStatus(bookingID, target); err != nil {
		return nil, err
	}

	if req.AdminNotes != nil {
		if err := s.bookings.UpdateAdminNotes(bookingID, *req.AdminNotes); err != nil {
			return nil, err
		}
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"from":       booking.Status,
		"to":         target,
	}).Info("Booking status updated")

	updated, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return nil, err
	}

	if target == models.BookingStatusCompleted {
		s.sendDeliveryNotice(updated)
	}

	return updated, nil
}

// DeliverVideos records the edited video links and moves the booking to
// completed when the lifecycle allows it
func (s *AdminService) DeliverVideos(bookingID uuid.UUID, videoLinks string) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return nil, err
	}

	if err := booking.Status.CanTransitionTo(models.BookingStatusCompleted); err != nil {
		return nil, err
	}

	if err := s.bookings.SetDelivery(bookingID, videoLinks); err != nil {
		return nil, err
	}
	if err := s.bookings.UpdateStatus(bookingID, models.BookingStatusCompleted); err != nil {
		return nil, err
	}

	updated, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return nil, err
	}

	s.sendDeliveryNotice(updated)
	return updated, nil
}

// UpdateNotes sets the operator-only notes on a booking
func (s *AdminService) UpdateNotes(bookingID uuid.UUID, notes string) error {
	return s.bookings.UpdateAdminNotes(bookingID, notes)
}

// DashboardStats is the back-office landing page summary
type DashboardStats struct {
	BookingsByStatus map[models.BookingStatus]int `json:"bookings_by_status"`
	AmountMismatches []models.PaymentAudit        `json:"amount_mismatches"`
}

// Dashboard assembles the operator overview: booking counts per status and
// the advisory amount-mismatch queue
func (s *AdminService) Dashboard() (*DashboardStats, error) {
	counts, err := s.bookings.CountByStatus()
	if err != nil {
		return nil, err
	}

	mismatches, err := s.audits.ListMismatches(20)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		BookingsByStatus: counts,
		AmountMismatches: mismatches,
	}, nil
}

// BookingAuditTrail returns the payment history for one booking
func (s *AdminService) BookingAuditTrail(bookingID uuid.UUID) ([]models.PaymentAudit, error) {
	return s.audits.ListByBooking(bookingID)
}

func (s *AdminService) sendDeliveryNotice(booking *models.Booking) {
	if booking.CustomerEmail == nil || *booking.CustomerEmail == "" || booking.VideoLinks == nil {
		return
	}

	msg := mailer.Message{
		To:      *booking.CustomerEmail,
		Subject: "Your videos are ready!",
		Body: fmt.Sprintf(
			"Hi,\n\nYour edited videos are ready:\n\n%s\n\nThanks for riding with us!\nMomentum Clips",
			*booking.VideoLinks,
		),
	}

	if err := s.mail.Send(msg); err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).
			Error("Failed to send delivery notice")
	}
}
