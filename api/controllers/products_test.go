package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luciamoreno/gemashop-backend/internal/catalog"
)

type stubCatalogService struct {
	listResult *catalog.ProductListResult
	listInput  catalog.ListProductsInput
	product    *catalog.ProductDTO
	getErr     error
	deleted    []uuid.UUID
}

func (s *stubCatalogService) ListProducts(ctx context.Context, input catalog.ListProductsInput) (*catalog.ProductListResult, error) {
	s.listInput = input
	if s.listResult != nil {
		return s.listResult, nil
	}
	return &catalog.ProductListResult{Products: []catalog.ProductDTO{}}, nil
}

func (s *stubCatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.ProductDTO, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.product, nil
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, input catalog.CreateProductInput) (*catalog.ProductDTO, error) {
	return s.product, nil
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, productID uuid.UUID, input catalog.UpdateProductInput) (*catalog.ProductDTO, error) {
	return s.product, nil
}

func (s *stubCatalogService) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	s.deleted = append(s.deleted, productID)
	return nil
}

func (s *stubCatalogService) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) error {
	return nil
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestListProducts(t *testing.T) {
	logg := testLogger()

	t.Run("passes filters through", func(t *testing.T) {
		stub := &stubCatalogService{}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products?limit=5&search=anillo&tag=oro", nil)
		rec := httptest.NewRecorder()
		ListProducts(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.listInput.Pagination.Limit != 5 {
			t.Fatalf("expected limit 5, got %d", stub.listInput.Pagination.Limit)
		}
		if stub.listInput.Search != "anillo" || stub.listInput.Tag != "oro" {
			t.Fatalf("unexpected filters: %+v", stub.listInput)
		}
	})

	t.Run("rejects non-numeric limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products?limit=abc", nil)
		rec := httptest.NewRecorder()
		ListProducts(&stubCatalogService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
		}
	})
}

func TestGetProduct(t *testing.T) {
	logg := testLogger()
	productID := uuid.New()

	t.Run("success", func(t *testing.T) {
		stub := &stubCatalogService{product: &catalog.ProductDTO{
			ID:    productID,
			Name:  "Anillo de plata",
			Price: decimal.RequireFromString("620"),
		}}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+productID.String(), nil)
		req = withURLParam(req, "productId", productID.String())
		rec := httptest.NewRecorder()
		GetProduct(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var envelope struct {
			Data catalog.ProductDTO `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if envelope.Data.ID != productID {
			t.Fatalf("expected product %s, got %s", productID, envelope.Data.ID)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products/not-a-uuid", nil)
		req = withURLParam(req, "productId", "not-a-uuid")
		rec := httptest.NewRecorder()
		GetProduct(&stubCatalogService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for invalid id, got %d", rec.Code)
		}
	})
}

func TestAdminCreateProduct(t *testing.T) {
	logg := testLogger()

	t.Run("success", func(t *testing.T) {
		stub := &stubCatalogService{product: &catalog.ProductDTO{Name: "Collar de perlas"}}
		body := `{"name":"Collar de perlas","price":"1250.00","image_url":"https://cdn.gemashop.mx/collar.jpg","stock_quantity":3}`
		req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/products", strings.NewReader(body))
		rec := httptest.NewRecorder()
		AdminCreateProduct(stub, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		body := `{"name":"x","price":"1","image_url":"https://cdn.gemashop.mx/x.jpg","sku":"nope"}`
		req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/products", strings.NewReader(body))
		rec := httptest.NewRecorder()
		AdminCreateProduct(&stubCatalogService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
		}
	})
}

func TestAdminDeleteProduct(t *testing.T) {
	logg := testLogger()
	productID := uuid.New()

	stub := &stubCatalogService{}
	req := httptest.NewRequest(http.MethodDelete, "/api/admin/v1/products/"+productID.String(), nil)
	req = withURLParam(req, "productId", productID.String())
	rec := httptest.NewRecorder()
	AdminDeleteProduct(stub, logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(stub.deleted) != 1 || stub.deleted[0] != productID {
		t.Fatalf("expected DeleteProduct to receive %s, got %v", productID, stub.deleted)
	}
}
