package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/momentumclips/booking-backend/internal/services"
)

// signatureHeader is the provider's webhook signature header
const signatureHeader = "Checkout-Signature"

// maxWebhookBody caps webhook payload size
const maxWebhookBody = 1 << 20

// PaymentHandler handles hosted-checkout entry points: starting a public
// order, the provider webhook, and the customer's return redirect
type PaymentHandler struct {
	orders     *services.OrderService
	reconciler *services.ReconcilerService
	logger     *logrus.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(orders *services.OrderService, reconciler *services.ReconcilerService, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{orders: orders, reconciler: reconciler, logger: logger}
}

// StartCheckout handles POST /api/v1/checkout/:package_id
//
// Public entry point of the payment-first flow: creates an order at the
// catalog's current price and returns the hosted checkout URL.
func (h *PaymentHandler) StartCheckout(c *gin.Context) {
	packageID, err := uuid.Parse(c.Param("package_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errResp("invalid_id", "Invalid package id"))
		return
	}

	result, err := h.orders.StartCheckout(packageID)
	if err != nil {
		if errors.Is(err, services.ErrPackageUnavailable) {
			c.JSON(http.StatusNotFound, errResp("package_unavailable", "Package is not available for booking"))
			return
		}
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to start checkout"))
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Webhook handles POST /api/v1/webhooks/checkout
//
// 400 only for signature failures, so the provider keeps retrying those.
// Everything else acknowledges with 200: duplicates, ignored kinds, and
// events pointing at records we do not know.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, errResp("invalid_body", "Failed to read request body"))
		return
	}

	err = h.reconciler.HandleWebhook(body, c.GetHeader(signatureHeader), time.Now())
	if err != nil {
		if errors.Is(err, services.ErrBadSignature) {
			c.JSON(http.StatusBadRequest, errResp("bad_signature", "Webhook signature verification failed"))
			return
		}
		// Processing failed after the event was recorded; 500 so the
		// provider redelivers and the dedup ledger sorts it out
		h.logger.WithError(err).Error("Webhook processing error")
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Webhook processing failed"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// Success handles GET /api/v1/payments/success?session_id=..
//
// The customer's redirect back from hosted checkout. The session id is the
// only input taken from the URL, and only as a lookup key.
func (h *PaymentHandler) Success(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, errResp("validation_error", "session_id is required"))
		return
	}

	booking, order, err := h.reconciler.VerifyReturn(sessionID)
	if err != nil {
		if errors.Is(err, services.ErrPaymentVerificationFailed) {
			// Not an error page: the webhook may simply not have landed yet
			c.JSON(http.StatusAccepted, gin.H{
				"status":  "processing",
				"message": "Payment is still being processed. You will receive a confirmation email shortly.",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, errResp("internal_error", "Failed to verify payment"))
		return
	}

	if order != nil {
		c.JSON(http.StatusOK, gin.H{"status": "paid", "order": order, "next_step": "waiver"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "paid", "booking": booking})
}

// Cancelled handles GET /api/v1/payments/cancelled
func (h *PaymentHandler) Cancelled(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "cancelled",
		"message": "Checkout was cancelled. Your card was not charged.",
	})
}
