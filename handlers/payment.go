package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"restaurant-api/apperr"
	"restaurant-api/middleware"
	"restaurant-api/models"
	"restaurant-api/payment"

	"github.com/gin-gonic/gin"
	"github.com/romana/rlog"
)

const maxWebhookBody = 64 << 10

type CreateIntentRequest struct {
	OrderID uint `json:"order_id" binding:"required"`
}

type ConfirmPaymentRequest struct {
	OrderID         uint   `json:"order_id" binding:"required"`
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
}

// CreatePaymentIntent starts a client-side payment for one of the caller's pending orders
func (h *Handler) CreatePaymentIntent(c *gin.Context) {
	var req CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	userID := middleware.GetUserID(c)
	order, err := h.Orders.GetForUser(c.Request.Context(), userID, models.RoleUser, req.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}
	if order.Status != models.StatusPending {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Order is %s and not awaiting payment", order.Status)})
		return
	}

	intent, err := h.Payments.CreateIntent(c.Request.Context(), payment.ChargeRequest{
		Amount:         order.TotalPrice,
		Currency:       h.Cfg.PaymentCurrency,
		OrderID:        order.ID,
		UserID:         userID,
		IdempotencyKey: fmt.Sprintf("order-%d-intent", order.ID),
	})
	if err != nil {
		rlog.Errorf("create intent for order %d: %v", order.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment provider unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"client_secret":     intent.ClientSecret,
		"payment_intent_id": intent.ID,
		"amount":            intent.Amount,
		"currency":          intent.Currency,
	})
}

// ConfirmPayment is called by the client after checkout; the intent is re-read from the provider
func (h *Handler) ConfirmPayment(c *gin.Context) {
	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx := c.Request.Context()
	order, err := h.Orders.GetForUser(ctx, middleware.GetUserID(c), models.RoleUser, req.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}

	intent, err := h.Payments.GetIntent(ctx, req.PaymentIntentID)
	if err != nil {
		if errors.Is(err, payment.ErrIntentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment intent not found"})
			return
		}
		rlog.Errorf("read intent %s: %v", req.PaymentIntentID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment provider unavailable"})
		return
	}
	if intent.OrderID != order.ID || !intent.Amount.Equal(order.TotalPrice) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payment intent does not match this order"})
		return
	}
	if intent.Status != payment.StatusSucceeded {
		respondError(c, apperr.PaymentFailed(nil, "payment %s", intent.Status))
		return
	}

	confirmed, err := h.Orders.ConfirmPayment(ctx, order.ID, intent.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment confirmed", "order": confirmed})
}

// PaymentWebhook receives provider events. Anything after a valid signature is acknowledged
// so the provider does not retry events we have already looked at.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot read body"})
		return
	}
	event, err := h.Payments.ParseEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		rlog.Warnf("Rejected payment webhook: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook"})
		return
	}

	switch event.Type {
	case payment.EventPaymentSucceeded:
		if event.Intent == nil || event.Intent.OrderID == 0 {
			rlog.Warnf("Payment webhook %s without an order", event.Type)
			break
		}
		h.confirmFromWebhook(c, event.Intent)
	case payment.EventPaymentFailed:
		if event.Intent != nil {
			rlog.Infof("Payment %s for order %d failed: %s", event.Intent.ID, event.Intent.OrderID, event.Intent.FailureMessage)
		}
	default:
		rlog.Debugf("Ignoring payment webhook %s", event.Type)
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// confirmFromWebhook confirms the intent's order only when the provider reports the intent as
// succeeded for exactly the order total
func (h *Handler) confirmFromWebhook(c *gin.Context, intent *payment.Intent) {
	if intent.Status != payment.StatusSucceeded {
		rlog.Warnf("Payment webhook for order %d reports intent %s as %s, order left as is", intent.OrderID, intent.ID, intent.Status)
		return
	}
	ctx := c.Request.Context()
	order, err := h.Orders.Get(ctx, intent.OrderID)
	if err != nil {
		rlog.Errorf("Webhook load of order %d failed: %v", intent.OrderID, err)
		return
	}
	if !intent.Amount.Equal(order.TotalPrice) {
		rlog.Warnf("Payment %s of %s does not match order %d total %s", intent.ID, intent.Amount.StringFixed(2), order.ID, order.TotalPrice.StringFixed(2))
		return
	}
	if _, err := h.Orders.ConfirmPayment(ctx, order.ID, intent.ID); err != nil {
		rlog.Errorf("Webhook confirm of order %d failed: %v", order.ID, err)
	}
}

// GetPaymentStatus reports a payment intent of one of the caller's orders
func (h *Handler) GetPaymentStatus(c *gin.Context) {
	intent, err := h.Payments.GetIntent(c.Request.Context(), c.Param("intentId"))
	if err != nil {
		if errors.Is(err, payment.ErrIntentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment intent not found"})
			return
		}
		rlog.Errorf("read intent %s: %v", c.Param("intentId"), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment provider unavailable"})
		return
	}
	if _, err := h.Orders.GetForUser(c.Request.Context(), middleware.GetUserID(c), middleware.GetRole(c), intent.OrderID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payment_intent_id": intent.ID,
		"status":            intent.Status,
		"amount":            intent.Amount,
		"currency":          intent.Currency,
		"order_id":          intent.OrderID,
	})
}
