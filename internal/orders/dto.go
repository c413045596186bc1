package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luciamoreno/gemashop-backend/pkg/db/models"
	"github.com/luciamoreno/gemashop-backend/pkg/enums"
)

// LineItemDTO is the API projection of a purchased item.
type LineItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"image_url"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// OrderDTO is the API projection of a registered order.
type OrderDTO struct {
	ID              uuid.UUID         `json:"id"`
	Number          string            `json:"number"`
	Status          enums.OrderStatus `json:"status"`
	OrderDate       time.Time         `json:"order_date"`
	CustomerName    string            `json:"customer_name"`
	CustomerEmail   string            `json:"customer_email"`
	CustomerAddress string            `json:"customer_address"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	Tax             decimal.Decimal   `json:"tax"`
	Shipping        decimal.Decimal   `json:"shipping"`
	Total           decimal.Decimal   `json:"total"`
	LineItems       []LineItemDTO     `json:"line_items"`
	CreatedAt       time.Time         `json:"created_at"`
}

// OrderListResult is one page of a user's order history.
type OrderListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

func toOrderDTO(order *models.Order) OrderDTO {
	items := make([]LineItemDTO, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		items = append(items, LineItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			ImageURL:  item.ImageURL,
			LineTotal: item.LineTotal,
		})
	}
	return OrderDTO{
		ID:              order.ID,
		Number:          order.Number,
		Status:          order.Status,
		OrderDate:       order.OrderDate,
		CustomerName:    order.CustomerName,
		CustomerEmail:   order.CustomerEmail,
		CustomerAddress: order.CustomerAddress,
		Subtotal:        order.Subtotal,
		Tax:             order.Tax,
		Shipping:        order.Shipping,
		Total:           order.Total,
		LineItems:       items,
		CreatedAt:       order.CreatedAt,
	}
}
