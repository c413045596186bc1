package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luciamoreno/gemashop-backend/pkg/db/models"
	"github.com/luciamoreno/gemashop-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByIDAndUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderPage, error)
}

// OrderPage is one page of a user's order history.
type OrderPage struct {
	Orders     []models.Order
	NextCursor string
}
