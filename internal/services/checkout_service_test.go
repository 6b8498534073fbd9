package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/momentumclips/booking-backend/internal/config"
)

func newSignatureService() *CheckoutService {
	return NewCheckoutService(&config.CheckoutConfig{
		WebhookSecret:    "whsec_test",
		SignatureMaxSkew: 5 * time.Minute,
	}, testLogger())
}

func TestVerifyWebhookSignature(t *testing.T) {
	svc := newSignatureService()
	body := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Valid Signature", func(t *testing.T) {
		header := svc.SignWebhookPayload(body, now)
		assert.NoError(t, svc.VerifyWebhookSignature(body, header, now))
	})

	t.Run("Signature Survives Small Skew", func(t *testing.T) {
		header := svc.SignWebhookPayload(body, now)
		assert.NoError(t, svc.VerifyWebhookSignature(body, header, now.Add(2*time.Minute)))
		assert.NoError(t, svc.VerifyWebhookSignature(body, header, now.Add(-2*time.Minute)))
	})

	t.Run("Stale Timestamp", func(t *testing.T) {
		header := svc.SignWebhookPayload(body, now)
		err := svc.VerifyWebhookSignature(body, header, now.Add(10*time.Minute))
		assert.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("Tampered Body", func(t *testing.T) {
		header := svc.SignWebhookPayload(body, now)
		tampered := []byte(`{"id":"evt_1","type":"charge.refunded"}`)
		err := svc.VerifyWebhookSignature(tampered, header, now)
		assert.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("Wrong Secret", func(t *testing.T) {
		other := NewCheckoutService(&config.CheckoutConfig{
			WebhookSecret:    "whsec_other",
			SignatureMaxSkew: 5 * time.Minute,
		}, testLogger())

		header := other.SignWebhookPayload(body, now)
		err := svc.VerifyWebhookSignature(body, header, now)
		assert.ErrorIs(t, err, ErrBadSignature)
	})

	t.Run("Malformed Header", func(t *testing.T) {
		for _, header := range []string{
			"",
			"v1=deadbeef",
			"t=1767268800",
			"t=notanumber,v1=deadbeef",
			"garbage",
		} {
			err := svc.VerifyWebhookSignature(body, header, now)
			assert.ErrorIs(t, err, ErrBadSignature, "header: %q", header)
		}
	})
}
