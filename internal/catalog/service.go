package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/luciamoreno/gemashop-backend/pkg/db/models"
	pkgerrors "github.com/luciamoreno/gemashop-backend/pkg/errors"
	"github.com/luciamoreno/gemashop-backend/pkg/pagination"
)

// Service exposes catalog browsing plus admin product management.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	DecrementStock(ctx context.Context, productID uuid.UUID, qty int) error
}

// ListProductsInput holds public listing filters.
type ListProductsInput struct {
	Pagination pagination.Params
	Search     string
	Tag        string
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name          string
	Description   *string
	Price         decimal.Decimal
	ImageURL      string
	Tags          []string
	StockQuantity int
	IsActive      bool
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	ImageURL      *string
	Tags          *[]string
	StockQuantity *int
	IsActive      *bool
}

type service struct {
	repo ProductRepository
}

// NewService constructs a catalog service instance.
func NewService(repo ProductRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

// ListProducts returns one page of active products.
func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	result, err := s.repo.List(ctx, ListQuery{
		Pagination: input.Pagination,
		Search:     input.Search,
		Tag:        input.Tag,
	})
	if err != nil {
		if errors.Is(err, pagination.ErrBadCursor) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid pagination cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	dtos := make([]ProductDTO, 0, len(result.Products))
	for _, row := range result.Products {
		dtos = append(dtos, toProductDTO(&row))
	}
	return &ProductListResult{
		Products:   dtos,
		NextCursor: result.NextCursor,
	}, nil
}

// GetProduct returns an active product's detail.
func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.findProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	dto := toProductDTO(product)
	return &dto, nil
}

// CreateProduct inserts a new catalog listing.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		Price:         input.Price,
		ImageURL:      strings.TrimSpace(input.ImageURL),
		Tags:          normalizeTags(input.Tags),
		StockQuantity: input.StockQuantity,
		IsActive:      input.IsActive,
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	dto := toProductDTO(created)
	return &dto, nil
}

// UpdateProduct applies a partial update to a catalog listing.
func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.findProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be empty")
		}
		product.Name = name
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		product.Price = *input.Price
	}
	if input.ImageURL != nil {
		product.ImageURL = strings.TrimSpace(*input.ImageURL)
	}
	if input.Tags != nil {
		product.Tags = normalizeTags(*input.Tags)
	}
	if input.StockQuantity != nil {
		if *input.StockQuantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
		}
		product.StockQuantity = *input.StockQuantity
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	dto := toProductDTO(updated)
	return &dto, nil
}

// DeleteProduct removes a catalog listing.
func (s *service) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if _, err := s.findProduct(ctx, productID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

// DecrementStock subtracts sold units after a confirmed payment.
func (s *service) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) error {
	err := s.repo.DecrementStock(ctx, productID, qty)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidQuantity):
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	case errors.Is(err, ErrInsufficientStock):
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock for product")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
	}
}

func (s *service) findProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func validateCreateInput(input CreateProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.StockQuantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
	}
	return nil
}

func normalizeTags(tags []string) []string {
	cleaned := make([]string, 0, len(tags))
	seen := map[string]struct{}{}
	for _, tag := range tags {
		normalized := strings.ToLower(strings.TrimSpace(tag))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		cleaned = append(cleaned, normalized)
	}
	return cleaned
}
