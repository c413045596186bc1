package payments

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
)

// IntentClient exposes the subset of payment operations required by checkout.
type IntentClient interface {
	CreateIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	GetIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
}

type intentClientWrapper struct{}

// NewIntentClient wraps the initialized payments client so checkout can be tested.
func NewIntentClient(api *Client) IntentClient {
	if api == nil {
		return nil
	}
	return &intentClientWrapper{}
}

func (w *intentClientWrapper) CreateIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if params != nil {
		params.Context = ctx
	}
	return paymentintent.New(params)
}

func (w *intentClientWrapper) GetIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	return paymentintent.Get(id, params)
}

// AmountInCents converts a decimal currency amount to the minor unit Stripe expects.
// Fractions beyond two decimal places are rounded half up.
func AmountInCents(amount decimal.Decimal) int64 {
	return amount.Round(2).Mul(decimal.NewFromInt(100)).IntPart()
}

// IntentSucceeded reports whether the payment intent reached a paid state.
func IntentSucceeded(intent *stripe.PaymentIntent) bool {
	return intent != nil && intent.Status == stripe.PaymentIntentStatusSucceeded
}
