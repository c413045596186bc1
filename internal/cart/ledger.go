package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	taxRate           = decimal.NewFromFloat(0.16)
	shippingFlatFee   = decimal.NewFromInt(150)
	freeShippingAbove = decimal.NewFromInt(5000)
)

// Product carries the catalog fields the ledger snapshots when an item is added.
type Product struct {
	ID            uuid.UUID
	Name          string
	UnitPrice     decimal.Decimal
	ImageURL      string
	StockQuantity int
}

// Item is a cart line. StockCeiling is the product's stock at the moment the
// line was created; later catalog changes do not move it.
type Item struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	ImageURL     string          `json:"image_url"`
	Quantity     int             `json:"quantity"`
	StockCeiling int             `json:"stock_ceiling"`
}

// Totals is the derived money breakdown for a cart.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// Snapshot freezes the cart state that checkout operates on.
type Snapshot struct {
	Items  []Item `json:"items"`
	Totals Totals `json:"totals"`
}

// Ledger is the ordered, session-scoped cart state. It is not safe for
// concurrent use; the manager serializes access per session.
type Ledger struct {
	items []Item
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// RestoreLedger rebuilds a ledger from previously serialized items.
func RestoreLedger(items []Item) *Ledger {
	restored := make([]Item, len(items))
	copy(restored, items)
	return &Ledger{items: restored}
}

// AddItem merges the product into the cart. A product already present gains
// one unit, bounded by its snapshotted stock ceiling; a new product enters
// with quantity 1 and the current stock as its ceiling. Rejections leave the
// cart untouched.
func (l *Ledger) AddItem(product Product) error {
	if product.ID == uuid.Nil {
		return ErrMissingID
	}
	if product.StockQuantity < 1 {
		return &OutOfStockError{ProductID: product.ID, Name: product.Name}
	}

	if existing := l.find(product.ID); existing != nil {
		if existing.Quantity+1 > existing.StockCeiling {
			return &StockExceededError{ItemID: existing.ID, Name: existing.Name, Ceiling: existing.StockCeiling}
		}
		existing.Quantity++
		return nil
	}

	l.items = append(l.items, Item{
		ID:           product.ID,
		Name:         product.Name,
		UnitPrice:    product.UnitPrice,
		ImageURL:     product.ImageURL,
		Quantity:     1,
		StockCeiling: product.StockQuantity,
	})
	return nil
}

// UpdateQuantity applies a signed delta to the line's quantity, clamped to a
// minimum of 1. The stock ceiling is deliberately not enforced here; checkout
// validation is the hard gate. Unknown ids are a no-op.
func (l *Ledger) UpdateQuantity(id uuid.UUID, delta int) {
	item := l.find(id)
	if item == nil {
		return
	}
	next := item.Quantity + delta
	if next < 1 {
		next = 1
	}
	item.Quantity = next
}

// RemoveItem drops the line regardless of quantity. Removing an absent id is
// a no-op.
func (l *Ledger) RemoveItem(id uuid.UUID) {
	for i := range l.items {
		if l.items[i].ID == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return
		}
	}
}

// Clear empties the cart.
func (l *Ledger) Clear() {
	l.items = nil
}

// Items returns a copy of the cart lines in insertion order.
func (l *Ledger) Items() []Item {
	items := make([]Item, len(l.items))
	copy(items, l.items)
	return items
}

// Len reports the number of distinct lines.
func (l *Ledger) Len() int {
	return len(l.items)
}

// Totals derives the money breakdown from current state. Pure: same items,
// same totals. Tax is 16% of the subtotal. Shipping is a flat 150 on any
// non-empty cart, waived once the subtotal passes 5000.
func (l *Ledger) Totals() Totals {
	subtotal := decimal.Zero
	for _, item := range l.items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	tax := subtotal.Mul(taxRate)

	shipping := decimal.Zero
	if subtotal.IsPositive() && !subtotal.GreaterThan(freeShippingAbove) {
		shipping = shippingFlatFee
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}

// ValidateForCheckout gates the transition into payment. The first line whose
// quantity passed its stock ceiling blocks the whole cart; an empty cart is
// never checkout-ready. On success it returns the frozen snapshot checkout
// charges against.
func (l *Ledger) ValidateForCheckout() (*Snapshot, error) {
	if len(l.items) == 0 {
		return nil, ErrEmptyCart
	}
	for _, item := range l.items {
		if item.Quantity > item.StockCeiling {
			return nil, &StockExceededError{ItemID: item.ID, Name: item.Name, Ceiling: item.StockCeiling}
		}
	}
	return &Snapshot{
		Items:  l.Items(),
		Totals: l.Totals(),
	}, nil
}

func (l *Ledger) find(id uuid.UUID) *Item {
	for i := range l.items {
		if l.items[i].ID == id {
			return &l.items[i]
		}
	}
	return nil
}
