// Package payment talks to the card payment provider. The rest of the service only sees the
// Gateway interface: it sends an amount, a currency and order metadata, and reacts to the result.
package payment

import (
	"context"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
)

type EventType string

const (
	EventPaymentSucceeded EventType = "payment_intent.succeeded"
	EventPaymentFailed    EventType = "payment_intent.payment_failed"
)

var (
	ErrDeclined         = errors.New("payment declined")
	ErrIntentNotFound   = errors.New("payment intent not found")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

const (
	MetadataOrderID = "order_id"
	MetadataUserID  = "user_id"
)

// ChargeRequest is what the service asks the provider to collect.
// Amount is always the server-computed order total.
type ChargeRequest struct {
	Amount          decimal.Decimal
	Currency        string
	PaymentMethodID string
	OrderID         uint
	UserID          uint
	IdempotencyKey  string
}

// Intent mirrors a provider-side payment attempt
type Intent struct {
	ID             string          `json:"id"`
	ClientSecret   string          `json:"client_secret,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Status         Status          `json:"status"`
	OrderID        uint            `json:"order_id"`
	FailureMessage string          `json:"failure_message,omitempty"`
}

type Event struct {
	Type   EventType
	Intent *Intent
}

// Gateway is the payment provider
type Gateway interface {
	// Charge creates and confirms a payment in one call. A decline returns an error wrapping ErrDeclined.
	Charge(ctx context.Context, req ChargeRequest) (*Intent, error)
	// CreateIntent prepares a payment the client confirms with the provider directly.
	CreateIntent(ctx context.Context, req ChargeRequest) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
	// ParseEvent verifies and decodes a webhook delivery.
	ParseEvent(payload []byte, signature string) (*Event, error)
}

// ToMinorUnits converts 13.50 into 1350
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func FromMinorUnits(n int64) decimal.Decimal {
	return decimal.New(n, -2)
}

func metadata(req ChargeRequest) map[string]string {
	return map[string]string{
		MetadataOrderID: strconv.FormatUint(uint64(req.OrderID), 10),
		MetadataUserID:  strconv.FormatUint(uint64(req.UserID), 10),
	}
}

func orderIDFromMetadata(md map[string]string) uint {
	id, err := strconv.ParseUint(md[MetadataOrderID], 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}
