package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luciamoreno/gemashop-backend/pkg/db/models"
)

// ProductDTO is the catalog representation returned to clients.
type ProductDTO struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Description   *string         `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	ImageURL      string          `json:"image_url"`
	Tags          []string        `json:"tags"`
	StockQuantity int             `json:"stock_quantity"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ProductListResult is one catalog page plus the next-page cursor.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func toProductDTO(product *models.Product) ProductDTO {
	tags := make([]string, len(product.Tags))
	copy(tags, product.Tags)
	return ProductDTO{
		ID:            product.ID,
		Name:          product.Name,
		Description:   product.Description,
		Price:         product.Price,
		ImageURL:      product.ImageURL,
		Tags:          tags,
		StockQuantity: product.StockQuantity,
		IsActive:      product.IsActive,
		CreatedAt:     product.CreatedAt,
		UpdatedAt:     product.UpdatedAt,
	}
}
