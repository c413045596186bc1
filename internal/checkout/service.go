package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"

	"github.com/luciamoreno/gemashop-backend/internal/cart"
	"github.com/luciamoreno/gemashop-backend/internal/orders"
	pkgerrors "github.com/luciamoreno/gemashop-backend/pkg/errors"
	"github.com/luciamoreno/gemashop-backend/pkg/logger"
	"github.com/luciamoreno/gemashop-backend/pkg/payments"
)

// Service turns a validated cart into a payment intent and, once paid,
// into a registered order.
type Service interface {
	CreatePaymentIntent(ctx context.Context, userID uuid.UUID) (*PaymentIntentDTO, error)
	Confirm(ctx context.Context, userID uuid.UUID, req ConfirmRequest) (*ConfirmResult, error)
}

type cartManager interface {
	ValidateForCheckout(ctx context.Context, sessionID string) (*cart.Snapshot, error)
	Clear(ctx context.Context, sessionID string) error
}

type orderRegistrar interface {
	RegisterOrder(ctx context.Context, input orders.RegisterOrderInput) (*orders.OrderDTO, error)
}

type stockDecrementer interface {
	DecrementStock(ctx context.Context, productID uuid.UUID, qty int) error
}

type service struct {
	carts    cartManager
	intents  payments.IntentClient
	orders   orderRegistrar
	stock    stockDecrementer
	currency string
	logg     *logger.Logger
}

// ServiceParams bundles the checkout dependencies.
type ServiceParams struct {
	CartManager   cartManager
	IntentClient  payments.IntentClient
	OrderService  orderRegistrar
	StockService  stockDecrementer
	Currency      string
	Logger        *logger.Logger
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.CartManager == nil {
		return nil, fmt.Errorf("cart manager required")
	}
	if params.IntentClient == nil {
		return nil, fmt.Errorf("payment intent client required")
	}
	if params.OrderService == nil {
		return nil, fmt.Errorf("order service required")
	}
	if params.StockService == nil {
		return nil, fmt.Errorf("stock service required")
	}
	currency := strings.TrimSpace(strings.ToLower(params.Currency))
	if currency == "" {
		return nil, fmt.Errorf("currency required")
	}
	return &service{
		carts:    params.CartManager,
		intents:  params.IntentClient,
		orders:   params.OrderService,
		stock:    params.StockService,
		currency: currency,
		logg:     params.Logger,
	}, nil
}

// CreatePaymentIntent validates the cart and opens an intent for its total.
func (s *service) CreatePaymentIntent(ctx context.Context, userID uuid.UUID) (*PaymentIntentDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	snapshot, err := s.carts.ValidateForCheckout(ctx, userID.String())
	if err != nil {
		return nil, mapCartError(err)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(payments.AmountInCents(snapshot.Totals.Total)),
		Currency: stripe.String(s.currency),
	}
	params.AddMetadata("user_id", userID.String())

	intent, err := s.intents.CreateIntent(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}

	return &PaymentIntentDTO{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       snapshot.Totals.Total,
		Currency:     s.currency,
	}, nil
}

// Confirm verifies the paid intent, registers the order, decrements stock
// best effort, and clears the cart.
func (s *service) Confirm(ctx context.Context, userID uuid.UUID, req ConfirmRequest) (*ConfirmResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if strings.TrimSpace(req.PaymentIntentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}

	intent, err := s.intents.GetIntent(ctx, req.PaymentIntentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment intent")
	}
	if !payments.IntentSucceeded(intent) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment has not succeeded")
	}

	snapshot, err := s.carts.ValidateForCheckout(ctx, userID.String())
	if err != nil {
		return nil, mapCartError(err)
	}

	if intent.Amount != payments.AmountInCents(snapshot.Totals.Total) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment amount does not match cart total")
	}

	order, err := s.orders.RegisterOrder(ctx, orders.RegisterOrderInput{
		UserID:          userID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerAddress: req.CustomerAddress,
		PaymentIntentID: intent.ID,
		Snapshot:        *snapshot,
	})
	if err != nil {
		// The charge already went through. Leave the cart intact so the
		// registration can be retried.
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register paid order")
	}

	outcomes := s.decrementStock(ctx, snapshot.Items)

	if err := s.carts.Clear(ctx, userID.String()); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "failed to clear cart after checkout")
	}

	return &ConfirmResult{
		Order:         order,
		StockOutcomes: outcomes,
	}, nil
}

// decrementStock applies the sold quantities one item at a time. Failures do
// not undo the order; they are reported per item and logged as a batch.
func (s *service) decrementStock(ctx context.Context, items []cart.Item) []StockOutcome {
	outcomes := make([]StockOutcome, 0, len(items))
	var batchErr error
	for _, item := range items {
		outcome := StockOutcome{
			ProductID: item.ID,
			Quantity:  item.Quantity,
			Applied:   true,
		}
		if err := s.stock.DecrementStock(ctx, item.ID, item.Quantity); err != nil {
			outcome.Applied = false
			outcome.Reason = err.Error()
			batchErr = multierr.Append(batchErr, fmt.Errorf("product %s: %w", item.ID, err))
		}
		outcomes = append(outcomes, outcome)
	}
	if batchErr != nil && s.logg != nil {
		s.logg.Error(ctx, "stock decrement batch finished with failures", batchErr)
	}
	return outcomes
}

func mapCartError(err error) error {
	var exceeded *cart.StockExceededError
	switch {
	case errors.Is(err, cart.ErrEmptyCart):
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	case errors.As(err, &exceeded):
		return pkgerrors.New(pkgerrors.CodeConflict, exceeded.Error()).
			WithDetails(map[string]any{
				"item_id": exceeded.ItemID,
				"ceiling": exceeded.Ceiling,
			})
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate cart")
	}
}
