package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/handler"
	"github.com/comanda-pos/api/internal/middleware"
	"github.com/comanda-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type mockDebtService struct {
	payFn    func(ctx context.Context, debtID uuid.UUID, amount decimal.Decimal) (*service.PayDebtResult, error)
	cancelFn func(ctx context.Context, debtID uuid.UUID) (*service.PayDebtResult, error)
}

func (m *mockDebtService) Pay(ctx context.Context, debtID uuid.UUID, amount decimal.Decimal) (*service.PayDebtResult, error) {
	return m.payFn(ctx, debtID, amount)
}

func (m *mockDebtService) Cancel(ctx context.Context, debtID uuid.UUID) (*service.PayDebtResult, error) {
	return m.cancelFn(ctx, debtID)
}

type mockDebtListStore struct {
	listOpenFn func(ctx context.Context) ([]database.Debt, error)
}

func (m *mockDebtListStore) ListOpenDebts(ctx context.Context) ([]database.Debt, error) {
	return m.listOpenFn(ctx)
}

func setupDebtRouter(svc *mockDebtService, store *mockDebtListStore) *chi.Mux {
	h := handler.NewDebtHandler(svc, store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/debts", h.RegisterRoutes)
	return r
}

func sampleDebt(t *testing.T, due string) database.Debt {
	t.Helper()
	return database.Debt{
		ID:             uuid.New(),
		TabID:          uuid.New(),
		CustomerID:     uuid.New(),
		OriginalAmount: makeNumeric(t, "110.00"),
		AmountDue:      makeNumeric(t, due),
		Status:         enum.DebtStatusPending,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
}

func TestListOpenDebts(t *testing.T) {
	store := &mockDebtListStore{
		listOpenFn: func(ctx context.Context) ([]database.Debt, error) {
			return []database.Debt{sampleDebt(t, "110.00"), sampleDebt(t, "30.00")}, nil
		},
	}
	router := setupDebtRouter(&mockDebtService{}, store)

	rr := doAuthRequest(t, router, "GET", "/debts", nil, waiterClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var debts []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&debts); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(debts) != 2 {
		t.Fatalf("expected 2 debts, got %d", len(debts))
	}
	if debts[1]["amount_due"] != "30.00" {
		t.Errorf("expected amount_due 30.00, got %v", debts[1]["amount_due"])
	}
}

func TestPayDebtPartial(t *testing.T) {
	debt := sampleDebt(t, "70.00")
	debt.Status = enum.DebtStatusPartiallyPaid

	var capturedAmount decimal.Decimal
	svc := &mockDebtService{
		payFn: func(ctx context.Context, debtID uuid.UUID, amount decimal.Decimal) (*service.PayDebtResult, error) {
			capturedAmount = amount
			return &service.PayDebtResult{Debt: debt}, nil
		},
	}
	router := setupDebtRouter(svc, &mockDebtListStore{})

	rr := doAuthRequest(t, router, "POST", "/debts/"+debt.ID.String()+"/pay", map[string]interface{}{
		"amount": "40.00",
	}, waiterClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if capturedAmount.StringFixed(2) != "40.00" {
		t.Errorf("expected amount 40.00, got %s", capturedAmount)
	}
	body := decodeBody(t, rr)
	debtBody := body["debt"].(map[string]interface{})
	if debtBody["status"] != enum.DebtStatusPartiallyPaid {
		t.Errorf("expected status PARTIALLY_PAID, got %v", debtBody["status"])
	}
	if debtBody["amount_due"] != "70.00" {
		t.Errorf("expected amount_due 70.00, got %v", debtBody["amount_due"])
	}
	if _, present := body["tab"]; present {
		t.Errorf("expected tab omitted for a partial collection, got %v", body["tab"])
	}
}

func TestPayDebtInFullFlipsTab(t *testing.T) {
	debt := sampleDebt(t, "0")
	debt.Status = enum.DebtStatusFullyPaid

	tab := sampleTab(t)
	tab.Status = enum.TabStatusFullyPaid

	svc := &mockDebtService{
		payFn: func(ctx context.Context, debtID uuid.UUID, amount decimal.Decimal) (*service.PayDebtResult, error) {
			return &service.PayDebtResult{Debt: debt, Tab: &tab}, nil
		},
	}
	router := setupDebtRouter(svc, &mockDebtListStore{})

	rr := doAuthRequest(t, router, "POST", "/debts/"+debt.ID.String()+"/pay", map[string]interface{}{
		"amount": "110.00",
	}, waiterClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	tabBody, ok := body["tab"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected tab in response, got %v", body["tab"])
	}
	if tabBody["status"] != enum.TabStatusFullyPaid {
		t.Errorf("expected status FULLY_PAID, got %v", tabBody["status"])
	}
}

func TestPayDebtValidation(t *testing.T) {
	router := setupDebtRouter(&mockDebtService{}, &mockDebtListStore{})

	rr := doAuthRequest(t, router, "POST", "/debts/not-a-uuid/pay", map[string]interface{}{
		"amount": "10.00",
	}, waiterClaims())
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad debt ID, got %d", rr.Code)
	}

	rr = doAuthRequest(t, router, "POST", "/debts/"+uuid.New().String()+"/pay", map[string]interface{}{}, waiterClaims())
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing amount, got %d", rr.Code)
	}
}

func TestPayDebtTooBig(t *testing.T) {
	svc := &mockDebtService{
		payFn: func(ctx context.Context, debtID uuid.UUID, amount decimal.Decimal) (*service.PayDebtResult, error) {
			return nil, service.ErrDebtPaymentTooBig
		},
	}
	router := setupDebtRouter(svc, &mockDebtListStore{})

	rr := doAuthRequest(t, router, "POST", "/debts/"+uuid.New().String()+"/pay", map[string]interface{}{
		"amount": "999.00",
	}, waiterClaims())

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestCancelDebtWithCollections(t *testing.T) {
	svc := &mockDebtService{
		cancelFn: func(ctx context.Context, debtID uuid.UUID) (*service.PayDebtResult, error) {
			return nil, service.ErrDebtHasCollections
		},
	}
	router := setupDebtRouter(svc, &mockDebtListStore{})

	rr := doAuthRequest(t, router, "POST", "/debts/"+uuid.New().String()+"/cancel", nil, waiterClaims())

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestCancelDebt(t *testing.T) {
	debt := sampleDebt(t, "110.00")
	debt.Status = enum.DebtStatusCancelled

	tab := sampleTab(t)

	svc := &mockDebtService{
		cancelFn: func(ctx context.Context, debtID uuid.UUID) (*service.PayDebtResult, error) {
			return &service.PayDebtResult{Debt: debt, Tab: &tab}, nil
		},
	}
	router := setupDebtRouter(svc, &mockDebtListStore{})

	rr := doAuthRequest(t, router, "POST", "/debts/"+debt.ID.String()+"/cancel", nil, waiterClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	debtBody := body["debt"].(map[string]interface{})
	if debtBody["status"] != enum.DebtStatusCancelled {
		t.Errorf("expected status CANCELLED, got %v", debtBody["status"])
	}
	tabBody := body["tab"].(map[string]interface{})
	if tabBody["outstanding_balance"] != "110.00" {
		t.Errorf("expected outstanding_balance restored to 110.00, got %v", tabBody["outstanding_balance"])
	}
}
