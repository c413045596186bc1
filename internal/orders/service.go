package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/luciamoreno/gemashop-backend/internal/cart"
	"github.com/luciamoreno/gemashop-backend/pkg/db/models"
	"github.com/luciamoreno/gemashop-backend/pkg/enums"
	pkgerrors "github.com/luciamoreno/gemashop-backend/pkg/errors"
	"github.com/luciamoreno/gemashop-backend/pkg/pagination"
	"github.com/luciamoreno/gemashop-backend/pkg/security"
)

const (
	orderNumberDigits  = 6
	orderNumberRetries = 3
)

// Service exposes order registration and history reads.
type Service interface {
	RegisterOrder(ctx context.Context, input RegisterOrderInput) (*OrderDTO, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	ListOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderListResult, error)
}

// RegisterOrderInput carries the paid cart snapshot plus buyer details.
type RegisterOrderInput struct {
	UserID          uuid.UUID
	CustomerName    string
	CustomerEmail   string
	CustomerAddress string
	PaymentIntentID string
	Snapshot        cart.Snapshot
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs an orders service instance.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{
		repo: repo,
		now:  time.Now,
	}, nil
}

// RegisterOrder persists a paid cart snapshot as an immutable order record.
func (s *service) RegisterOrder(ctx context.Context, input RegisterOrderInput) (*OrderDTO, error) {
	if err := validateRegisterInput(input); err != nil {
		return nil, err
	}

	var created *models.Order
	for attempt := 0; attempt < orderNumberRetries; attempt++ {
		number, err := generateOrderNumber()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}

		order := buildOrder(input, number, s.now().UTC())
		created, err = s.repo.Create(ctx, order)
		if err == nil {
			break
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) && attempt < orderNumberRetries-1 {
			continue
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register order")
	}

	dto := toOrderDTO(created)
	return &dto, nil
}

// GetOrder returns one of the user's orders with its line items.
func (s *service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	if userID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	order, err := s.repo.FindByIDAndUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	dto := toOrderDTO(order)
	return &dto, nil
}

// ListOrders returns one page of the user's order history, newest first.
func (s *service) ListOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderListResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	page, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		if errors.Is(err, pagination.ErrBadCursor) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid pagination cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	dtos := make([]OrderDTO, 0, len(page.Orders))
	for i := range page.Orders {
		dtos = append(dtos, toOrderDTO(&page.Orders[i]))
	}
	return &OrderListResult{
		Orders:     dtos,
		NextCursor: page.NextCursor,
	}, nil
}

func buildOrder(input RegisterOrderInput, number string, orderDate time.Time) *models.Order {
	orderID := uuid.New()
	lineItems := make([]models.OrderLineItem, 0, len(input.Snapshot.Items))
	for _, item := range input.Snapshot.Items {
		lineItems = append(lineItems, models.OrderLineItem{
			ID:        uuid.New(),
			OrderID:   orderID,
			ProductID: item.ID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			ImageURL:  item.ImageURL,
			LineTotal: item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}

	return &models.Order{
		ID:              orderID,
		Number:          number,
		Status:          enums.OrderStatusPaid,
		OrderDate:       orderDate,
		UserID:          input.UserID,
		CustomerName:    strings.TrimSpace(input.CustomerName),
		CustomerEmail:   strings.TrimSpace(input.CustomerEmail),
		CustomerAddress: strings.TrimSpace(input.CustomerAddress),
		Subtotal:        input.Snapshot.Totals.Subtotal,
		Tax:             input.Snapshot.Totals.Tax,
		Shipping:        input.Snapshot.Totals.Shipping,
		Total:           input.Snapshot.Totals.Total,
		PaymentIntentID: input.PaymentIntentID,
		LineItems:       lineItems,
	}
}

func validateRegisterInput(input RegisterOrderInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if len(input.Snapshot.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one line item")
	}
	if strings.TrimSpace(input.PaymentIntentID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}
	if strings.TrimSpace(input.CustomerName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	if strings.TrimSpace(input.CustomerEmail) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}
	if strings.TrimSpace(input.CustomerAddress) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer address is required")
	}
	return nil
}

func generateOrderNumber() (string, error) {
	code, err := security.GenerateNumericCode(orderNumberDigits)
	if err != nil {
		return "", err
	}
	return "ORD-" + code, nil
}
