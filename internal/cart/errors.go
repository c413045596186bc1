package cart

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrEmptyCart blocks checkout on a cart with no items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrMissingID rejects catalog payloads without a product id.
	ErrMissingID = errors.New("item id is required")
)

// OutOfStockError rejects adding a product whose stock is exhausted.
type OutOfStockError struct {
	ProductID uuid.UUID
	Name      string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %q is out of stock", e.Name)
}

// StockExceededError signals that a quantity passed the stock ceiling
// snapshotted when the item entered the cart.
type StockExceededError struct {
	ItemID  uuid.UUID
	Name    string
	Ceiling int
}

func (e *StockExceededError) Error() string {
	return fmt.Sprintf("quantity for %q exceeds available stock (%d)", e.Name, e.Ceiling)
}
