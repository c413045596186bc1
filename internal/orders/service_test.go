package orders

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/luciamoreno/gemashop-backend/internal/cart"
	"github.com/luciamoreno/gemashop-backend/pkg/db/models"
	pkgerrors "github.com/luciamoreno/gemashop-backend/pkg/errors"
	"github.com/luciamoreno/gemashop-backend/pkg/pagination"
)

type stubOrderRepo struct {
	orders     map[uuid.UUID]*models.Order
	createErrs []error
	created    []*models.Order
	listErr    error
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (s *stubOrderRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubOrderRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if len(s.createErrs) > 0 {
		err := s.createErrs[0]
		s.createErrs = s.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	s.orders[order.ID] = order
	s.created = append(s.created, order)
	return order, nil
}

func (s *stubOrderRepo) FindByIDAndUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[orderID]
	if !ok || order.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *stubOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderPage, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	page := &OrderPage{}
	for _, order := range s.orders {
		if order.UserID == userID {
			page.Orders = append(page.Orders, *order)
		}
	}
	return page, nil
}

func assertOrderErrCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()

	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, code, coded.Code())
}

func validRegisterInput(userID uuid.UUID) RegisterOrderInput {
	unit := decimal.NewFromInt(310)
	return RegisterOrderInput{
		UserID:          userID,
		CustomerName:    "Lucia Test",
		CustomerEmail:   "lucia@example.com",
		CustomerAddress: "Av. Reforma 100, CDMX",
		PaymentIntentID: "pi_test_123",
		Snapshot: cart.Snapshot{
			Items: []cart.Item{
				{ID: uuid.New(), Name: "Anillo Plata", UnitPrice: unit, ImageURL: "https://cdn.example.com/anillo.jpg", Quantity: 2, StockCeiling: 5},
			},
			Totals: cart.Totals{
				Subtotal: decimal.NewFromInt(620),
				Tax:      decimal.NewFromFloat(99.2),
				Shipping: decimal.NewFromInt(150),
				Total:    decimal.NewFromFloat(869.2),
			},
		},
	}
}

func TestServiceRegisterOrder(t *testing.T) {
	repo := newStubOrderRepo()
	svc, err := NewService(repo)
	require.NoError(t, err)

	userID := uuid.New()
	input := validRegisterInput(userID)

	dto, err := svc.RegisterOrder(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dto.Number, "ORD-"))
	assert.Len(t, dto.Number, len("ORD-")+6)
	assert.Equal(t, "paid", dto.Status.String())
	require.Len(t, dto.LineItems, 1)
	assert.True(t, dto.LineItems[0].LineTotal.Equal(decimal.NewFromInt(620)))
	assert.True(t, dto.Total.Equal(decimal.NewFromFloat(869.2)))

	require.Len(t, repo.created, 1)
	stored := repo.created[0]
	assert.NotEqual(t, uuid.Nil, stored.ID)
	assert.Equal(t, userID, stored.UserID)
	require.Len(t, stored.LineItems, 1)
	assert.NotEqual(t, uuid.Nil, stored.LineItems[0].ID)
	assert.Equal(t, stored.ID, stored.LineItems[0].OrderID)
}

func TestServiceRegisterOrder_validation(t *testing.T) {
	svc, err := NewService(newStubOrderRepo())
	require.NoError(t, err)

	userID := uuid.New()

	missingUser := validRegisterInput(userID)
	missingUser.UserID = uuid.Nil
	_, err = svc.RegisterOrder(context.Background(), missingUser)
	assertOrderErrCode(t, err, pkgerrors.CodeValidation)

	emptyCart := validRegisterInput(userID)
	emptyCart.Snapshot.Items = nil
	_, err = svc.RegisterOrder(context.Background(), emptyCart)
	assertOrderErrCode(t, err, pkgerrors.CodeValidation)

	noIntent := validRegisterInput(userID)
	noIntent.PaymentIntentID = "  "
	_, err = svc.RegisterOrder(context.Background(), noIntent)
	assertOrderErrCode(t, err, pkgerrors.CodeValidation)
}

func TestServiceRegisterOrder_retriesDuplicateNumber(t *testing.T) {
	repo := newStubOrderRepo()
	repo.createErrs = []error{gorm.ErrDuplicatedKey, gorm.ErrDuplicatedKey}
	svc, err := NewService(repo)
	require.NoError(t, err)

	dto, err := svc.RegisterOrder(context.Background(), validRegisterInput(uuid.New()))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dto.Number, "ORD-"))
	require.Len(t, repo.created, 1)
}

func TestServiceRegisterOrder_exhaustsRetries(t *testing.T) {
	repo := newStubOrderRepo()
	repo.createErrs = []error{gorm.ErrDuplicatedKey, gorm.ErrDuplicatedKey, gorm.ErrDuplicatedKey}
	svc, err := NewService(repo)
	require.NoError(t, err)

	_, err = svc.RegisterOrder(context.Background(), validRegisterInput(uuid.New()))
	assertOrderErrCode(t, err, pkgerrors.CodeDependency)
}

func TestServiceGetOrder(t *testing.T) {
	repo := newStubOrderRepo()
	svc, err := NewService(repo)
	require.NoError(t, err)

	userID := uuid.New()
	dto, err := svc.RegisterOrder(context.Background(), validRegisterInput(userID))
	require.NoError(t, err)

	found, err := svc.GetOrder(context.Background(), userID, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.Number, found.Number)

	_, err = svc.GetOrder(context.Background(), uuid.New(), dto.ID)
	assertOrderErrCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.GetOrder(context.Background(), userID, uuid.Nil)
	assertOrderErrCode(t, err, pkgerrors.CodeValidation)
}

func TestServiceListOrders_badCursor(t *testing.T) {
	repo := newStubOrderRepo()
	repo.listErr = pagination.ErrBadCursor
	svc, err := NewService(repo)
	require.NoError(t, err)

	_, err = svc.ListOrders(context.Background(), uuid.New(), pagination.Params{Cursor: "bogus"})
	assertOrderErrCode(t, err, pkgerrors.CodeValidation)
}
