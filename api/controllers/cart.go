package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/luciamoreno/gemashop-backend/api/middleware"
	"github.com/luciamoreno/gemashop-backend/api/responses"
	"github.com/luciamoreno/gemashop-backend/api/validators"
	"github.com/luciamoreno/gemashop-backend/internal/cart"
	"github.com/luciamoreno/gemashop-backend/internal/catalog"
	pkgerrors "github.com/luciamoreno/gemashop-backend/pkg/errors"
	"github.com/luciamoreno/gemashop-backend/pkg/logger"
)

type cartViewResponse struct {
	Items  []cart.Item `json:"items"`
	Totals cart.Totals `json:"totals"`
}

// GetCart returns the shopper's cart lines and totals.
func GetCart(manager *cart.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if manager == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable"))
			return
		}

		sessionID := middleware.UserIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		items, totals, err := manager.View(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, mapCartError(err))
			return
		}

		responses.WriteSuccess(w, cartViewResponse{Items: items, Totals: totals})
	}
}

type addCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
}

// AddCartItem merges one unit of a catalog product into the shopper's cart.
// The product's price, image, and stock ceiling are frozen from the catalog
// at this moment.
func AddCartItem(manager *cart.Manager, catalogSvc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if manager == nil || catalogSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable"))
			return
		}

		sessionID := middleware.UserIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(strings.TrimSpace(payload.ProductID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		product, err := catalogSvc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := manager.AddItem(r.Context(), sessionID, cart.Product{
			ID:            product.ID,
			Name:          product.Name,
			UnitPrice:     product.Price,
			ImageURL:      product.ImageURL,
			StockQuantity: product.StockQuantity,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, mapCartError(err))
			return
		}

		writeCartView(r, w, manager, sessionID, logg)
	}
}

type updateCartItemRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// UpdateCartItem applies a signed quantity delta to a cart line. A line that
// hits zero is removed.
func UpdateCartItem(manager *cart.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if manager == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable"))
			return
		}

		sessionID := middleware.UserIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		itemID, err := parseCartItemID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := manager.UpdateQuantity(r.Context(), sessionID, itemID, payload.Delta); err != nil {
			responses.WriteError(r.Context(), logg, w, mapCartError(err))
			return
		}

		writeCartView(r, w, manager, sessionID, logg)
	}
}

// RemoveCartItem drops a cart line regardless of quantity.
func RemoveCartItem(manager *cart.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if manager == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable"))
			return
		}

		sessionID := middleware.UserIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		itemID, err := parseCartItemID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := manager.RemoveItem(r.Context(), sessionID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, mapCartError(err))
			return
		}

		writeCartView(r, w, manager, sessionID, logg)
	}
}

// ClearCart empties the shopper's cart.
func ClearCart(manager *cart.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if manager == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable"))
			return
		}

		sessionID := middleware.UserIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		if err := manager.Clear(r.Context(), sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, mapCartError(err))
			return
		}

		responses.WriteSuccess(w, cartViewResponse{Items: []cart.Item{}, Totals: cart.Totals{}})
	}
}

func writeCartView(r *http.Request, w http.ResponseWriter, manager *cart.Manager, sessionID string, logg *logger.Logger) {
	items, totals, err := manager.View(r.Context(), sessionID)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, mapCartError(err))
		return
	}
	responses.WriteSuccess(w, cartViewResponse{Items: items, Totals: totals})
}

func parseCartItemID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "itemId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	itemID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id")
	}
	return itemID, nil
}

// mapCartError translates cart ledger errors into API error codes.
func mapCartError(err error) error {
	var outOfStock *cart.OutOfStockError
	if errors.As(err, &outOfStock) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product is out of stock").
			WithDetails(map[string]any{"product_id": outOfStock.ProductID})
	}
	var exceeded *cart.StockExceededError
	if errors.As(err, &exceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "quantity exceeds available stock").
			WithDetails(map[string]any{"item_id": exceeded.ItemID, "ceiling": exceeded.Ceiling})
	}
	if errors.Is(err, cart.ErrMissingID) {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if errors.Is(err, cart.ErrEmptyCart) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cart operation failed")
}
