package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luciamoreno/gemashop-backend/api/middleware"
	checkoutsvc "github.com/luciamoreno/gemashop-backend/internal/checkout"
)

type stubCheckoutService struct {
	intent     *checkoutsvc.PaymentIntentDTO
	result     *checkoutsvc.ConfirmResult
	confirmReq checkoutsvc.ConfirmRequest
	userID     uuid.UUID
}

func (s *stubCheckoutService) CreatePaymentIntent(ctx context.Context, userID uuid.UUID) (*checkoutsvc.PaymentIntentDTO, error) {
	s.userID = userID
	return s.intent, nil
}

func (s *stubCheckoutService) Confirm(ctx context.Context, userID uuid.UUID, req checkoutsvc.ConfirmRequest) (*checkoutsvc.ConfirmResult, error) {
	s.userID = userID
	s.confirmReq = req
	return s.result, nil
}

func TestCreatePaymentIntent(t *testing.T) {
	logg := testLogger()
	userID := uuid.New()

	t.Run("success", func(t *testing.T) {
		stub := &stubCheckoutService{intent: &checkoutsvc.PaymentIntentDTO{
			IntentID:     "pi_123",
			ClientSecret: "pi_123_secret",
			Amount:       decimal.RequireFromString("1449.20"),
			Currency:     "mxn",
		}}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/payment-intent", nil)
		req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
		rec := httptest.NewRecorder()
		CreatePaymentIntent(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.userID != userID {
			t.Fatalf("expected intent for user %s, got %s", userID, stub.userID)
		}
	})

	t.Run("missing user context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/payment-intent", nil)
		rec := httptest.NewRecorder()
		CreatePaymentIntent(&stubCheckoutService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 without user context, got %d", rec.Code)
		}
	})
}

func TestConfirmCheckout(t *testing.T) {
	logg := testLogger()
	userID := uuid.New()

	t.Run("success returns 201", func(t *testing.T) {
		stub := &stubCheckoutService{result: &checkoutsvc.ConfirmResult{}}
		body := `{"payment_intent_id":"pi_123","customer_name":"Ana García","customer_email":"ana@example.com","customer_address":"Av. Reforma 100, CDMX"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/confirm", strings.NewReader(body))
		req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
		rec := httptest.NewRecorder()
		ConfirmCheckout(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.confirmReq.PaymentIntentID != "pi_123" {
			t.Fatalf("unexpected confirm payload: %+v", stub.confirmReq)
		}
	})

	t.Run("missing intent id", func(t *testing.T) {
		body := `{"customer_name":"Ana","customer_email":"ana@example.com","customer_address":"CDMX"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/confirm", strings.NewReader(body))
		req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
		rec := httptest.NewRecorder()
		ConfirmCheckout(&stubCheckoutService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for missing intent id, got %d", rec.Code)
		}
	})
}
