package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/romana/rlog"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeGateway collects payments through Stripe PaymentIntents
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	return &StripeGateway{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
	}
}

func (g *StripeGateway) intentParams(ctx context.Context, req ChargeRequest) *stripe.PaymentIntentParams {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(ToMinorUnits(req.Amount)),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	for k, v := range metadata(req) {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	return params
}

func (g *StripeGateway) Charge(ctx context.Context, req ChargeRequest) (*Intent, error) {
	params := g.intentParams(ctx, req)
	params.PaymentMethod = stripe.String(req.PaymentMethodID)
	params.Confirm = stripe.Bool(true)

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			return nil, fmt.Errorf("%w: %s", ErrDeclined, stripeErr.Msg)
		}
		return nil, fmt.Errorf("stripe charge: %w", err)
	}

	intent := fromStripe(pi)
	if intent.Status == StatusFailed {
		return intent, fmt.Errorf("%w: %s", ErrDeclined, intent.FailureMessage)
	}
	return intent, nil
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req ChargeRequest) (*Intent, error) {
	pi, err := g.api.PaymentIntents.New(g.intentParams(ctx, req))
	if err != nil {
		return nil, fmt.Errorf("stripe create intent: %w", err)
	}
	return fromStripe(pi), nil
}

func (g *StripeGateway) GetIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			return nil, ErrIntentNotFound
		}
		return nil, fmt.Errorf("stripe get intent: %w", err)
	}
	return fromStripe(pi), nil
}

func (g *StripeGateway) ParseEvent(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{Type: EventType(event.Type)}
	if !strings.HasPrefix(string(event.Type), "payment_intent.") {
		return out, nil
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", event.Type, err)
	}
	out.Intent = fromStripe(&pi)
	rlog.Debugf("stripe event %s for intent %s", event.Type, pi.ID)
	return out, nil
}

func fromStripe(pi *stripe.PaymentIntent) *Intent {
	intent := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       FromMinorUnits(pi.Amount),
		Currency:     string(pi.Currency),
		OrderID:      orderIDFromMetadata(pi.Metadata),
	}
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		intent.Status = StatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		intent.Status = StatusFailed
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		// a failed attempt sends the intent back here with the decline attached
		if pi.LastPaymentError != nil {
			intent.Status = StatusFailed
			intent.FailureMessage = pi.LastPaymentError.Msg
		} else {
			intent.Status = StatusPending
		}
	default:
		intent.Status = StatusPending
	}
	return intent
}
