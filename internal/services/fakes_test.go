package services

import (
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/momentumclips/booking-backend/internal/config"
	"github.com/momentumclips/booking-backend/internal/database"
	"github.com/momentumclips/booking-backend/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{BaseURL: "http://localhost:8080"},
		Checkout: config.CheckoutConfig{
			WebhookSecret:    "whsec_test",
			SignatureMaxSkew: 5 * time.Minute,
			Currency:         "eur",
		},
		Scheduler: config.SchedulerConfig{ConfirmSecret: "sched_secret"},
		Booking: config.BookingConfig{
			BufferHours:         24,
			AdvanceDays:         90,
			PendingExpiryMins:   30,
			MinLegalNameLength:  3,
			MaxRidersPerSession: 10,
		},
		Mail: config.MailConfig{Mode: "dev", AdminTo: "ops@example.com"},
	}
}

// fakeBookings is an in-memory booking ledger with the same conditional-write
// semantics as the real repository
type fakeBookings struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*models.Booking

	createErr    error
	confirmErr   error
	confirmCalls int
}

func newFakeBookings() *fakeBookings {
	return &fakeBookings{bookings: make(map[uuid.UUID]*models.Booking)}
}

func (f *fakeBookings) put(b *models.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings[b.ID] = b
}

func (f *fakeBookings) Create(booking *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}

	// Mirror the partial unique index: one active booking per slot
	for _, existing := range f.bookings {
		if existing.PackageID == booking.PackageID && existing.StartsAt.Equal(booking.StartsAt) {
			for _, status := range models.ActiveStatuses {
				if existing.Status == status {
					return database.ErrSlotTaken
				}
			}
		}
	}

	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	copied := *booking
	f.bookings[booking.ID] = &copied
	return nil
}

func (f *fakeBookings) GetByID(bookingID uuid.UUID) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	booking, ok := f.bookings[bookingID]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *booking
	return &copied, nil
}

func (f *fakeBookings) GetByCheckoutSessionID(sessionID string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, booking := range f.bookings {
		if booking.CheckoutSessionID != nil && *booking.CheckoutSessionID == sessionID {
			copied := *booking
			return &copied, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeBookings) GetByPaymentIntentID(paymentIntentID string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, booking := range f.bookings {
		if booking.PaymentIntentID != nil && *booking.PaymentIntentID == paymentIntentID {
			copied := *booking
			return &copied, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeBookings) GetByUserID(userID uuid.UUID) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []models.Booking{}
	for _, booking := range f.bookings {
		if booking.UserID != nil && *booking.UserID == userID {
			out = append(out, *booking)
		}
	}
	return out, nil
}

func (f *fakeBookings) GetByDateRange(packageID uuid.UUID, start, end time.Time) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []models.Booking{}
	for _, booking := range f.bookings {
		if booking.PackageID == packageID && !booking.StartsAt.Before(start) && !booking.StartsAt.After(end) {
			out = append(out, *booking)
		}
	}
	return out, nil
}

func (f *fakeBookings) IsSlotAvailable(packageID uuid.UUID, startsAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, booking := range f.bookings {
		if booking.PackageID == packageID && booking.StartsAt.Equal(startsAt) {
			for _, status := range models.ActiveStatuses {
				if booking.Status == status {
					return false, nil
				}
			}
		}
	}
	return true, nil
}

func (f *fakeBookings) SetCheckoutSession(bookingID uuid.UUID, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	booking, ok := f.bookings[bookingID]
	if !ok {
		return database.ErrNotFound
	}
	booking.CheckoutSessionID = &sessionID
	return nil
}

func (f *fakeBookings) ConfirmPayment(bookingID uuid.UUID, paymentIntentID string, chargeID *string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.confirmCalls++

	// confirmErr fires once, for transient-failure scenarios
	if f.confirmErr != nil {
		err := f.confirmErr
		f.confirmErr = nil
		return false, err
	}

	booking, ok := f.bookings[bookingID]
	if !ok || booking.Status != models.BookingStatusPendingPayment {
		return false, nil
	}

	now := time.Now()
	booking.Status = models.BookingStatusConfirmed
	booking.PaymentIntentID = &paymentIntentID
	booking.ChargeID = chargeID
	booking.PaidAt = &now
	return true, nil
}

func (f *fakeBookings) UpdateStatus(bookingID uuid.UUID, status models.BookingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	booking, ok := f.bookings[bookingID]
	if !ok {
		return database.ErrNotFound
	}
	booking.Status = status
	return nil
}

func (f *fakeBookings) Cancel(bookingID uuid.UUID, from, to models.BookingStatus, refundPendingReview bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	booking, ok := f.bookings[bookingID]
	if !ok || booking.Status != from {
		return false, nil
	}
	now := time.Now()
	booking.Status = to
	booking.RefundPendingReview = refundPendingReview
	booking.CancelledAt = &now
	return true, nil
}

func (f *fakeBookings) SetDelivery(bookingID uuid.UUID, videoLinks string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	booking, ok := f.bookings[bookingID]
	if !ok {
		return database.ErrNotFound
	}
	now := time.Now()
	booking.VideoLinks = &videoLinks
	booking.DeliveredAt = &now
	return nil
}

func (f *fakeBookings) UpdateAdminNotes(bookingID uuid.UUID, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	booking, ok := f.bookings[bookingID]
	if !ok {
		return database.ErrNotFound
	}
	booking.AdminNotes = &notes
	return nil
}

func (f *fakeBookings) CountByStatus() (map[models.BookingStatus]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := make(map[models.BookingStatus]int)
	for _, booking := range f.bookings {
		counts[booking.Status]++
	}
	return counts, nil
}

func (f *fakeBookings) GetStalePending(cutoff time.Time, limit int) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []models.Booking{}
	for _, booking := range f.bookings {
		if booking.Status == models.BookingStatusPendingPayment && booking.CreatedAt.Before(cutoff) {
			out = append(out, *booking)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// fakePackages is a static catalog lookup
type fakePackages struct {
	packages map[uuid.UUID]*models.Package
}

func newFakePackages(pkgs ...*models.Package) *fakePackages {
	f := &fakePackages{packages: make(map[uuid.UUID]*models.Package)}
	for _, pkg := range pkgs {
		f.packages[pkg.ID] = pkg
	}
	return f
}

func (f *fakePackages) GetByID(packageID uuid.UUID) (*models.Package, error) {
	pkg, ok := f.packages[packageID]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *pkg
	return &copied, nil
}

// fakeOrders is an in-memory order store
type fakeOrders struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*models.Order

	markPaidCalls int
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: make(map[uuid.UUID]*models.Order)}
}

func (f *fakeOrders) put(o *models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.ID] = o
}

func (f *fakeOrders) Create(order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	copied := *order
	f.orders[order.ID] = &copied
	return nil
}

func (f *fakeOrders) GetByID(orderID uuid.UUID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.orders[orderID]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrders) GetByCheckoutSessionID(sessionID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, order := range f.orders {
		if order.CheckoutSessionID != nil && *order.CheckoutSessionID == sessionID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeOrders) MarkPaid(orderID uuid.UUID, paymentIntentID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.markPaidCalls++

	order, ok := f.orders[orderID]
	if !ok || order.Status != models.OrderStatusPendingPayment {
		return false, nil
	}

	now := time.Now()
	order.Status = models.OrderStatusPaid
	order.PaymentIntentID = &paymentIntentID
	order.PaidAt = &now
	return true, nil
}

func (f *fakeOrders) SetWaiver(orderID, waiverID uuid.UUID, customerName, customerEmail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.orders[orderID]
	if !ok {
		return database.ErrNotFound
	}
	order.LatestWaiverID = &waiverID
	order.CustomerName = &customerName
	order.CustomerEmail = &customerEmail
	order.Status = models.OrderStatusWaiverSigned
	return nil
}

func (f *fakeOrders) LinkWaiver(orderID, waiverID uuid.UUID) error {
	return nil
}

func (f *fakeOrders) MarkScheduled(orderID uuid.UUID, bookingID *uuid.UUID, start *time.Time, timezone, location *string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.orders[orderID]
	if !ok || order.Status != models.OrderStatusWaiverSigned {
		return false, nil
	}

	order.Status = models.OrderStatusScheduled
	order.BookingID = bookingID
	order.ScheduledStart = start
	order.ScheduledTimezone = timezone
	order.ScheduledLocation = location
	return true, nil
}

func (f *fakeOrders) List(limit, offset int) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []models.Order{}
	for _, order := range f.orders {
		out = append(out, *order)
	}
	return out, nil
}

// fakeEvents is an in-memory webhook dedup ledger
type fakeEvents struct {
	mu   sync.Mutex
	rows map[string]*models.WebhookEvent

	processed []uuid.UUID
	failed    []uuid.UUID
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{rows: make(map[string]*models.WebhookEvent)}
}

func (f *fakeEvents) Record(event *models.WebhookEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.rows[event.ProviderEventID]; ok {
		return database.ErrDuplicateEvent
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	copied := *event
	f.rows[event.ProviderEventID] = &copied
	return nil
}

func (f *fakeEvents) GetByProviderEventID(providerEventID string) (*models.WebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[providerEventID]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeEvents) MarkProcessed(eventID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, row := range f.rows {
		if row.ID == eventID {
			now := time.Now()
			row.ProcessedAt = &now
			break
		}
	}
	f.processed = append(f.processed, eventID)
	return nil
}

func (f *fakeEvents) MarkFailed(eventID uuid.UUID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, row := range f.rows {
		if row.ID == eventID {
			msg := message
			row.ProcessingError = &msg
			break
		}
	}
	f.failed = append(f.failed, eventID)
	return nil
}

// fakeAudits collects audit entries for assertions
type fakeAudits struct {
	mu      sync.Mutex
	entries []*models.PaymentAudit
}

func (f *fakeAudits) Log(audit *models.PaymentAudit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, audit)
	return nil
}

func (f *fakeAudits) ListByBooking(bookingID uuid.UUID) ([]models.PaymentAudit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []models.PaymentAudit{}
	for _, entry := range f.entries {
		if entry.BookingID != nil && *entry.BookingID == bookingID {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (f *fakeAudits) ListMismatches(limit int) ([]models.PaymentAudit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []models.PaymentAudit{}
	for _, entry := range f.entries {
		if entry.AmountsMatch != nil && !*entry.AmountsMatch {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (f *fakeAudits) countByType(eventType models.PaymentAuditEventType) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, entry := range f.entries {
		if entry.EventType == eventType {
			count++
		}
	}
	return count
}

// fakeCheckout is a scriptable checkout provider
type fakeCheckout struct {
	mu sync.Mutex

	sessions  map[string]*CheckoutSession
	verifyErr error
	refundErr error

	createdSessions []*CheckoutSessionRequest
	refunds         []string
}

func newFakeCheckout() *fakeCheckout {
	return &fakeCheckout{sessions: make(map[string]*CheckoutSession)}
}

func (f *fakeCheckout) CreateCheckoutSession(req *CheckoutSessionRequest) (*CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.createdSessions = append(f.createdSessions, req)
	session := &CheckoutSession{
		ID:            "cs_" + uuid.NewString()[:8],
		URL:           "https://checkout.example.com/pay/cs_test",
		PaymentStatus: "unpaid",
		Status:        "open",
		AmountTotal:   req.AmountCents,
		Currency:      req.Currency,
		Metadata:      req.Metadata,
	}
	f.sessions[session.ID] = session
	return session, nil
}

func (f *fakeCheckout) RetrieveSession(sessionID string) (*CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (f *fakeCheckout) CreateRefund(paymentIntentID string) (*Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.refundErr != nil {
		return nil, f.refundErr
	}
	f.refunds = append(f.refunds, paymentIntentID)
	return &Refund{ID: "re_1", PaymentIntentID: paymentIntentID, Status: "succeeded"}, nil
}

func (f *fakeCheckout) VerifyWebhookSignature(body []byte, signatureHeader string, now time.Time) error {
	return f.verifyErr
}

// fakeWaivers is an in-memory waiver store
type fakeWaivers struct {
	mu      sync.Mutex
	waivers []*models.Waiver
}

func (f *fakeWaivers) Create(waiver *models.Waiver) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := *waiver
	f.waivers = append(f.waivers, &copied)
	return nil
}

func (f *fakeWaivers) GetLatestByBooking(bookingID uuid.UUID) (*models.Waiver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var latest *models.Waiver
	for _, waiver := range f.waivers {
		if waiver.BookingID != nil && *waiver.BookingID == bookingID {
			if latest == nil || !waiver.SignedAt.Before(latest.SignedAt) {
				latest = waiver
			}
		}
	}
	if latest == nil {
		return nil, database.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeWaivers) IsSigned(bookingID uuid.UUID) (bool, error) {
	_, err := f.GetLatestByBooking(bookingID)
	if err != nil {
		return false, nil
	}
	return true, nil
}
