package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/romana/rlog"
	"github.com/shopspring/decimal"
)

// DeclinedPaymentMethod is always refused by the simulated gateway
const DeclinedPaymentMethod = "pm_card_declined"

// SimulatedGateway approves any payment up to a limit and keeps intents in memory.
// Webhook payloads are {"type": "...", "intent_id": "..."} signed with hex HMAC-SHA256
// when a secret is configured.
type SimulatedGateway struct {
	mu      sync.Mutex
	limit   decimal.Decimal
	secret  string
	intents map[string]*Intent
}

func NewSimulatedGateway(limit float64, webhookSecret string) *SimulatedGateway {
	return &SimulatedGateway{
		limit:   decimal.NewFromFloat(limit),
		secret:  webhookSecret,
		intents: make(map[string]*Intent),
	}
}

func (g *SimulatedGateway) newIntent(req ChargeRequest) *Intent {
	id := "pi_sim_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	return &Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + uuid.NewString()[:8],
		Amount:       req.Amount,
		Currency:     strings.ToLower(req.Currency),
		Status:       StatusPending,
		OrderID:      req.OrderID,
	}
}

func (g *SimulatedGateway) Charge(ctx context.Context, req ChargeRequest) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	intent := g.newIntent(req)

	switch {
	case req.PaymentMethodID == DeclinedPaymentMethod:
		intent.Status = StatusFailed
		intent.FailureMessage = "your card was declined"
	case req.Amount.GreaterThan(g.limit):
		intent.Status = StatusFailed
		intent.FailureMessage = "exceed payment limit"
	default:
		intent.Status = StatusSucceeded
	}

	g.mu.Lock()
	g.intents[intent.ID] = intent
	g.mu.Unlock()

	if intent.Status == StatusFailed {
		rlog.Infof("Simulated payment for order %d declined: %s", req.OrderID, intent.FailureMessage)
		return cloneIntent(intent), fmt.Errorf("%w: %s", ErrDeclined, intent.FailureMessage)
	}
	rlog.Infof("Simulated payment for order %d completed", req.OrderID)
	return cloneIntent(intent), nil
}

func (g *SimulatedGateway) CreateIntent(ctx context.Context, req ChargeRequest) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	intent := g.newIntent(req)
	g.mu.Lock()
	g.intents[intent.ID] = intent
	g.mu.Unlock()
	return cloneIntent(intent), nil
}

func (g *SimulatedGateway) GetIntent(ctx context.Context, id string) (*Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	intent, ok := g.intents[id]
	if !ok {
		return nil, ErrIntentNotFound
	}
	return cloneIntent(intent), nil
}

// Settle completes a pending intent the way a customer finishing checkout would.
// Payments over the limit fail regardless of succeed.
func (g *SimulatedGateway) Settle(id string, succeed bool) (*Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	intent, ok := g.intents[id]
	if !ok {
		return nil, ErrIntentNotFound
	}
	if succeed && !intent.Amount.GreaterThan(g.limit) {
		intent.Status = StatusSucceeded
	} else {
		intent.Status = StatusFailed
		intent.FailureMessage = "payment failed"
	}
	return cloneIntent(intent), nil
}

type simulatedEvent struct {
	Type     EventType `json:"type"`
	IntentID string    `json:"intent_id"`
}

func (g *SimulatedGateway) ParseEvent(payload []byte, signature string) (*Event, error) {
	if g.secret != "" && !hmac.Equal([]byte(signature), []byte(Sign(g.secret, payload))) {
		return nil, ErrInvalidSignature
	}
	var raw simulatedEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	event := &Event{Type: raw.Type}
	switch raw.Type {
	case EventPaymentSucceeded, EventPaymentFailed:
		intent, err := g.Settle(raw.IntentID, raw.Type == EventPaymentSucceeded)
		if err != nil {
			return nil, err
		}
		event.Intent = intent
	}
	return event, nil
}

// Sign computes the signature SimulatedGateway expects for payload
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func cloneIntent(in *Intent) *Intent {
	out := *in
	return &out
}
