package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luciamoreno/gemashop-backend/internal/orders"
)

// PaymentIntentDTO returns what the mobile payment sheet needs to charge.
type PaymentIntentDTO struct {
	IntentID     string          `json:"intent_id"`
	ClientSecret string          `json:"client_secret"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
}

// ConfirmRequest finalizes a paid intent into an order.
type ConfirmRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
	CustomerName    string `json:"customer_name" validate:"required"`
	CustomerEmail   string `json:"customer_email" validate:"required,email"`
	CustomerAddress string `json:"customer_address" validate:"required"`
}

// StockOutcome reports the per-item result of the post-payment decrement pass.
type StockOutcome struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Applied   bool      `json:"applied"`
	Reason    string    `json:"reason,omitempty"`
}

// ConfirmResult carries the registered order plus stock adjustment outcomes.
type ConfirmResult struct {
	Order         *orders.OrderDTO `json:"order"`
	StockOutcomes []StockOutcome   `json:"stock_outcomes"`
}
