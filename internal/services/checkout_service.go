package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/momentumclips/booking-backend/internal/config"
)

// ErrBadSignature is returned when a webhook signature fails verification.
// Callers must respond 400 and process nothing.
var ErrBadSignature = errors.New("webhook signature verification failed")

// SessionIDPlaceholder is substituted by the provider with the real session
// id when redirecting the customer back to the success URL
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// CheckoutClient is the hosted-checkout provider surface the rest of the
// system depends on. Tests substitute a fake.
type CheckoutClient interface {
	CreateCheckoutSession(req *CheckoutSessionRequest) (*CheckoutSession, error)
	RetrieveSession(sessionID string) (*CheckoutSession, error)
	CreateRefund(paymentIntentID string) (*Refund, error)
	VerifyWebhookSignature(body []byte, signatureHeader string, now time.Time) error
}

// CheckoutSessionRequest describes a single-item hosted checkout session
type CheckoutSessionRequest struct {
	ItemName    string
	AmountCents int64
	Currency    string
	SuccessURL  string
	CancelURL   string

	// Metadata is echoed back on webhook events for this session; we use it
	// to carry our booking or order id
	Metadata map[string]string

	CustomerEmail string
}

// CheckoutSession is the provider's session object
type CheckoutSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentIntent string            `json:"payment_intent"`
	PaymentStatus string            `json:"payment_status"` // "unpaid", "paid"
	Status        string            `json:"status"`         // "open", "complete", "expired"
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	CustomerEmail string            `json:"customer_email"`
	Metadata      map[string]string `json:"metadata"`
}

// Paid reports whether the provider considers the session settled
func (s *CheckoutSession) Paid() bool {
	return s.PaymentStatus == "paid"
}

// Refund is the provider's refund object
type Refund struct {
	ID              string `json:"id"`
	PaymentIntentID string `json:"payment_intent"`
	AmountCents     int64  `json:"amount"`
	Status          string `json:"status"` // "pending", "succeeded", "failed"
}

type checkoutErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// CheckoutService talks to the hosted-checkout provider's HTTP API
type CheckoutService struct {
	config *config.CheckoutConfig
	logger *logrus.Logger
	client *http.Client
}

// NewCheckoutService creates a new checkout provider client
func NewCheckoutService(cfg *config.CheckoutConfig, logger *logrus.Logger) *CheckoutService {
	return &CheckoutService{
		config: cfg,
		logger: logger,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateCheckoutSession creates a hosted checkout session for a single line
// item. The amount sent here is the ledger's locked amount; nothing the
// customer's browser touches can change it.
func (s *CheckoutService) CreateCheckoutSession(req *CheckoutSessionRequest) (*CheckoutSession, error) {
	payload := map[string]interface{}{
		"mode":        "payment",
		"success_url": req.SuccessURL,
		"cancel_url":  req.CancelURL,
		"line_items": []map[string]interface{}{
			{
				"name":         req.ItemName,
				"amount_cents": req.AmountCents,
				"currency":     req.Currency,
				"quantity":     1,
			},
		},
		"metadata": req.Metadata,
	}
	if req.CustomerEmail != "" {
		payload["customer_email"] = req.CustomerEmail
	}

	session := &CheckoutSession{}
	if err := s.post("/checkout/sessions", payload, session); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"session_id":   session.ID,
		"amount_cents": req.AmountCents,
		"currency":     req.Currency,
	}).Info("Checkout session created")

	return session, nil
}

// RetrieveSession fetches a session's current state from the provider. The
// return-redirect path relies on this instead of trusting URL parameters.
func (s *CheckoutService) RetrieveSession(sessionID string) (*CheckoutSession, error) {
	session := &CheckoutSession{}
	if err := s.get("/checkout/sessions/"+sessionID, session); err != nil {
		return nil, err
	}
	return session, nil
}

// CreateRefund issues a full refund against a payment
func (s *CheckoutService) CreateRefund(paymentIntentID string) (*Refund, error) {
	payload := map[string]interface{}{
		"payment_intent": paymentIntentID,
	}

	refund := &Refund{}
	if err := s.post("/refunds", payload, refund); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"refund_id":         refund.ID,
		"payment_intent_id": paymentIntentID,
		"status":            refund.Status,
	}).Info("Refund created")

	return refund, nil
}

// VerifyWebhookSignature checks the provider's timestamped HMAC header:
//
//	Checkout-Signature: t=<unix seconds>,v1=<hex hmac-sha256>
//
// The MAC covers "<timestamp>.<raw body>". Timestamps outside the
// configured skew are rejected to bound replay.
func (s *CheckoutService) VerifyWebhookSignature(body []byte, signatureHeader string, now time.Time) error {
	var timestamp, signature string
	for _, part := range strings.Split(signatureHeader, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signature = value
		}
	}

	if timestamp == "" || signature == "" {
		return ErrBadSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrBadSignature
	}

	skew := now.Sub(time.Unix(ts, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > s.config.SignatureMaxSkew {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(s.config.WebhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrBadSignature
	}

	return nil
}

// SignWebhookPayload produces a signature header for a body at the given
// time. Used by tests and the local webhook replay tool.
func (s *CheckoutService) SignWebhookPayload(body []byte, at time.Time) string {
	timestamp := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(s.config.WebhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func (s *CheckoutService) post(path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.config.APIURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.SecretKey)

	return s.do(req, out)
}

func (s *CheckoutService) get(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, s.config.APIURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build checkout request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.SecretKey)

	return s.do(req, out)
}

func (s *CheckoutService) do(req *http.Request, out interface{}) error {
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithError(err).Error("Checkout provider request failed")
		return fmt.Errorf("checkout provider request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read checkout response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp checkoutErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			s.logger.WithFields(logrus.Fields{
				"status": resp.StatusCode,
				"code":   errResp.Error.Code,
			}).Error("Checkout provider returned error")
			return fmt.Errorf("checkout provider error: %s", errResp.Error.Message)
		}
		return fmt.Errorf("checkout provider returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode checkout response: %w", err)
	}

	return nil
}
