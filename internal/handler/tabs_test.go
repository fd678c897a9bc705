package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/comanda-pos/api/internal/auth"
	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/handler"
	"github.com/comanda-pos/api/internal/middleware"
	"github.com/comanda-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// --- Shared test helpers ---

const testJWTSecret = "test-secret-for-handlers"

func waiterClaims() *auth.Claims {
	return &auth.Claims{UserID: uuid.New(), Role: enum.UserRoleWaiter}
}

func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	token, err := auth.GenerateToken(testJWTSecret, claims.UserID, claims.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func makeNumeric(t *testing.T, val string) pgtype.Numeric {
	t.Helper()
	var n pgtype.Numeric
	if err := n.Scan(val); err != nil {
		t.Fatalf("scan numeric %q: %v", val, err)
	}
	return n
}

// sampleTab returns an open tab with 100.00 in items, 10% service tax
// and nothing paid yet.
func sampleTab(t *testing.T) database.Tab {
	t.Helper()
	now := time.Now()
	return database.Tab{
		ID:                 uuid.New(),
		TableID:            uuid.New(),
		Status:             enum.TabStatusOpen,
		ItemsSubtotal:      makeNumeric(t, "100.00"),
		ServiceTaxPercent:  makeNumeric(t, "10.00"),
		ServiceTaxAmount:   makeNumeric(t, "10.00"),
		DiscountAmount:     makeNumeric(t, "0"),
		AmountPaid:         makeNumeric(t, "0"),
		AmountOnAccount:    makeNumeric(t, "0"),
		CreditApplied:      makeNumeric(t, "0"),
		OutstandingBalance: makeNumeric(t, "110.00"),
		OpenedBy:           uuid.New(),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// --- Mocks ---

type mockTabService struct {
	createFn         func(ctx context.Context, req service.CreateTabRequest) (database.Tab, error)
	attachCustomerFn func(ctx context.Context, tabID, customerID uuid.UUID) (database.Tab, error)
	setServiceTaxFn  func(ctx context.Context, tabID uuid.UUID, percent decimal.Decimal) (database.Tab, error)
	deleteFn         func(ctx context.Context, tabID uuid.UUID) error
}

func (m *mockTabService) Create(ctx context.Context, req service.CreateTabRequest) (database.Tab, error) {
	return m.createFn(ctx, req)
}

func (m *mockTabService) AttachCustomer(ctx context.Context, tabID, customerID uuid.UUID) (database.Tab, error) {
	return m.attachCustomerFn(ctx, tabID, customerID)
}

func (m *mockTabService) SetServiceTax(ctx context.Context, tabID uuid.UUID, percent decimal.Decimal) (database.Tab, error) {
	return m.setServiceTaxFn(ctx, tabID, percent)
}

func (m *mockTabService) Delete(ctx context.Context, tabID uuid.UUID) error {
	return m.deleteFn(ctx, tabID)
}

type mockSettler struct {
	applyCreditFn   func(ctx context.Context, req service.ApplyCreditRequest) (*service.CreditResult, error)
	registerDebtFn  func(ctx context.Context, req service.RegisterDebtRequest) (*service.DebtResult, error)
	putOnAccountFn  func(ctx context.Context, tabID uuid.UUID, dueDate *time.Time) (*service.DebtResult, error)
	applyDiscountFn func(ctx context.Context, tabID uuid.UUID, amount decimal.Decimal) (database.Tab, error)
	closeFn         func(ctx context.Context, tabID uuid.UUID) (database.Tab, error)
	cancelFn        func(ctx context.Context, tabID uuid.UUID, reason string) (database.Tab, error)
}

func (m *mockSettler) ApplyCredit(ctx context.Context, req service.ApplyCreditRequest) (*service.CreditResult, error) {
	return m.applyCreditFn(ctx, req)
}

func (m *mockSettler) RegisterDebt(ctx context.Context, req service.RegisterDebtRequest) (*service.DebtResult, error) {
	return m.registerDebtFn(ctx, req)
}

func (m *mockSettler) PutOnAccount(ctx context.Context, tabID uuid.UUID, dueDate *time.Time) (*service.DebtResult, error) {
	return m.putOnAccountFn(ctx, tabID, dueDate)
}

func (m *mockSettler) ApplyDiscount(ctx context.Context, tabID uuid.UUID, amount decimal.Decimal) (database.Tab, error) {
	return m.applyDiscountFn(ctx, tabID, amount)
}

func (m *mockSettler) Close(ctx context.Context, tabID uuid.UUID) (database.Tab, error) {
	return m.closeFn(ctx, tabID)
}

func (m *mockSettler) Cancel(ctx context.Context, tabID uuid.UUID, reason string) (database.Tab, error) {
	return m.cancelFn(ctx, tabID, reason)
}

type mockTabStore struct {
	getTabFn            func(ctx context.Context, id uuid.UUID) (database.Tab, error)
	listTabsFn          func(ctx context.Context, arg database.ListTabsParams) ([]database.Tab, error)
	listTabItemsFn      func(ctx context.Context, tabID uuid.UUID) ([]database.TabItem, error)
	listPaymentsByTabFn func(ctx context.Context, tabID uuid.UUID) ([]database.Payment, error)
	listDebtsByTabFn    func(ctx context.Context, tabID uuid.UUID) ([]database.Debt, error)
}

func (m *mockTabStore) GetTab(ctx context.Context, id uuid.UUID) (database.Tab, error) {
	return m.getTabFn(ctx, id)
}

func (m *mockTabStore) ListTabs(ctx context.Context, arg database.ListTabsParams) ([]database.Tab, error) {
	return m.listTabsFn(ctx, arg)
}

func (m *mockTabStore) ListTabItems(ctx context.Context, tabID uuid.UUID) ([]database.TabItem, error) {
	if m.listTabItemsFn != nil {
		return m.listTabItemsFn(ctx, tabID)
	}
	return nil, nil
}

func (m *mockTabStore) ListPaymentsByTab(ctx context.Context, tabID uuid.UUID) ([]database.Payment, error) {
	if m.listPaymentsByTabFn != nil {
		return m.listPaymentsByTabFn(ctx, tabID)
	}
	return nil, nil
}

func (m *mockTabStore) ListDebtsByTab(ctx context.Context, tabID uuid.UUID) ([]database.Debt, error) {
	if m.listDebtsByTabFn != nil {
		return m.listDebtsByTabFn(ctx, tabID)
	}
	return nil, nil
}

func setupTabRouter(svc *mockTabService, settler *mockSettler, store *mockTabStore) *chi.Mux {
	h := handler.NewTabHandler(svc, settler, store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/tabs", h.RegisterRoutes)
	return r
}

// --- Tests ---

func TestCreateTab(t *testing.T) {
	claims := waiterClaims()
	tab := sampleTab(t)
	tab.OpenedBy = claims.UserID

	var captured service.CreateTabRequest
	svc := &mockTabService{
		createFn: func(ctx context.Context, req service.CreateTabRequest) (database.Tab, error) {
			captured = req
			return tab, nil
		},
	}
	router := setupTabRouter(svc, &mockSettler{}, &mockTabStore{})

	rr := doAuthRequest(t, router, "POST", "/tabs", map[string]interface{}{
		"table_id": tab.TableID.String(),
	}, claims)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.TableID != tab.TableID {
		t.Errorf("expected table ID %s, got %s", tab.TableID, captured.TableID)
	}
	if captured.OpenedBy != claims.UserID {
		t.Errorf("expected opened_by from token, got %s", captured.OpenedBy)
	}

	body := decodeBody(t, rr)
	if body["status"] != enum.TabStatusOpen {
		t.Errorf("expected status OPEN, got %v", body["status"])
	}
	if body["outstanding_balance"] != "110.00" {
		t.Errorf("expected outstanding_balance 110.00, got %v", body["outstanding_balance"])
	}
}

func TestCreateTabMissingTableID(t *testing.T) {
	router := setupTabRouter(&mockTabService{}, &mockSettler{}, &mockTabStore{})

	rr := doAuthRequest(t, router, "POST", "/tabs", map[string]interface{}{}, waiterClaims())

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCreateTabInvalidTableID(t *testing.T) {
	router := setupTabRouter(&mockTabService{}, &mockSettler{}, &mockTabStore{})

	rr := doAuthRequest(t, router, "POST", "/tabs", map[string]interface{}{
		"table_id": "not-a-uuid",
	}, waiterClaims())

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCreateTabTableOccupied(t *testing.T) {
	svc := &mockTabService{
		createFn: func(ctx context.Context, req service.CreateTabRequest) (database.Tab, error) {
			return database.Tab{}, service.ErrTableOccupied
		},
	}
	router := setupTabRouter(svc, &mockSettler{}, &mockTabStore{})

	rr := doAuthRequest(t, router, "POST", "/tabs", map[string]interface{}{
		"table_id": uuid.New().String(),
	}, waiterClaims())

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestCreateTabTableNotFound(t *testing.T) {
	svc := &mockTabService{
		createFn: func(ctx context.Context, req service.CreateTabRequest) (database.Tab, error) {
			return database.Tab{}, service.ErrTableNotFound
		},
	}
	router := setupTabRouter(svc, &mockSettler{}, &mockTabStore{})

	rr := doAuthRequest(t, router, "POST", "/tabs", map[string]interface{}{
		"table_id": uuid.New().String(),
	}, waiterClaims())

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestTabEndpointsRequireAuth(t *testing.T) {
	router := setupTabRouter(&mockTabService{}, &mockSettler{}, &mockTabStore{})

	req := httptest.NewRequest("GET", "/tabs", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}
}

func TestGetTabNotFound(t *testing.T) {
	store := &mockTabStore{
		getTabFn: func(ctx context.Context, id uuid.UUID) (database.Tab, error) {
			return database.Tab{}, pgx.ErrNoRows
		},
	}
	router := setupTabRouter(&mockTabService{}, &mockSettler{}, store)

	rr := doAuthRequest(t, router, "GET", "/tabs/"+uuid.New().String(), nil, waiterClaims())

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestGetTabDetail(t *testing.T) {
	tab := sampleTab(t)
	item := database.TabItem{
		ID:        uuid.New(),
		TabID:     tab.ID,
		ProductID: uuid.New(),
		Quantity:  2,
		UnitPrice: makeNumeric(t, "50.00"),
		LineTotal: makeNumeric(t, "100.00"),
		CreatedAt: time.Now(),
	}
	store := &mockTabStore{
		getTabFn: func(ctx context.Context, id uuid.UUID) (database.Tab, error) {
			if id != tab.ID {
				return database.Tab{}, pgx.ErrNoRows
			}
			return tab, nil
		},
		listTabItemsFn: func(ctx context.Context, tabID uuid.UUID) ([]database.TabItem, error) {
			return []database.TabItem{item}, nil
		},
	}
	router := setupTabRouter(&mockTabService{}, &mockSettler{}, store)

	rr := doAuthRequest(t, router, "GET", "/tabs/"+tab.ID.String(), nil, waiterClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["items_subtotal"] != "100.00" {
		t.Errorf("expected items_subtotal 100.00, got %v", body["items_subtotal"])
	}
	items, ok := body["items"].([]interface{})
	if !ok || len(items) != 1 {
		t.Fatalf("expected 1 item, got %v", body["items"])
	}
	line := items[0].(map[string]interface{})
	if line["line_total"] != "100.00" {
		t.Errorf("expected line_total 100.00, got %v", line["line_total"])
	}
	if payments, ok := body["payments"].([]interface{}); !ok || len(payments) != 0 {
		t.Errorf("expected empty payments list, got %v", body["payments"])
	}
}

func TestListTabsStatusFilter(t *testing.T) {
	var captured database.ListTabsParams
	store := &mockTabStore{
		listTabsFn: func(ctx context.Context, arg database.ListTabsParams) ([]database.Tab, error) {
			captured = arg
			return nil, nil
		},
	}
	router := setupTabRouter(&mockTabService{}, &mockSettler{}, store)

	rr := doAuthRequest(t, router, "GET", "/tabs?status=OPEN&limit=5&offset=10", nil, waiterClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !captured.Status.Valid || captured.Status.String != enum.TabStatusOpen {
		t.Errorf("expected status filter OPEN, got %+v", captured.Status)
	}
	if captured.Limit != 5 || captured.Offset != 10 {
		t.Errorf("expected limit 5 offset 10, got %d/%d", captured.Limit, captured.Offset)
	}
}

func TestApplyDiscountInvalidAmount(t *testing.T) {
	router := setupTabRouter(&mockTabService{}, &mockSettler{}, &mockTabStore{})

	rr := doAuthRequest(t, router, "PATCH", "/tabs/"+uuid.New().String()+"/discount", map[string]interface{}{
		"amount": "abc",
	}, waiterClaims())

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestApplyDiscountTooLarge(t *testing.T) {
	settler := &mockSettler{
		applyDiscountFn: func(ctx context.Context, tabID uuid.UUID, amount decimal.Decimal) (database.Tab, error) {
			return database.Tab{}, service.ErrDiscountTooLarge
		},
	}
	router := setupTabRouter(&mockTabService{}, settler, &mockTabStore{})

	rr := doAuthRequest(t, router, "PATCH", "/tabs/"+uuid.New().String()+"/discount", map[string]interface{}{
		"amount": "500.00",
	}, waiterClaims())

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestApplyCreditDefaultsToMax(t *testing.T) {
	tab := sampleTab(t)
	tab.Status = enum.TabStatusPartiallyPaid
	tab.CreditApplied = makeNumeric(t, "40.00")
	tab.OutstandingBalance = makeNumeric(t, "70.00")

	var captured service.ApplyCreditRequest
	settler := &mockSettler{
		applyCreditFn: func(ctx context.Context, req service.ApplyCreditRequest) (*service.CreditResult, error) {
			captured = req
			return &service.CreditResult{Tab: tab, AmountApplied: decimal.RequireFromString("40.00")}, nil
		},
	}
	router := setupTabRouter(&mockTabService{}, settler, &mockTabStore{})

	rr := doAuthRequest(t, router, "POST", "/tabs/"+tab.ID.String()+"/apply-credit", map[string]interface{}{}, waiterClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Amount != nil {
		t.Errorf("expected nil amount for a max application, got %s", captured.Amount)
	}
	body := decodeBody(t, rr)
	if body["amount_applied"] != "40.00" {
		t.Errorf("expected amount_applied 40.00, got %v", body["amount_applied"])
	}
	tabBody := body["tab"].(map[string]interface{})
	if tabBody["outstanding_balance"] != "70.00" {
		t.Errorf("expected outstanding_balance 70.00, got %v", tabBody["outstanding_balance"])
	}
}

func TestApplyCreditNoCreditAvailable(t *testing.T) {
	settler := &mockSettler{
		applyCreditFn: func(ctx context.Context, req service.ApplyCreditRequest) (*service.CreditResult, error) {
			return nil, service.ErrNoCreditAvailable
		},
	}
	router := setupTabRouter(&mockTabService{}, settler, &mockTabStore{})

	rr := doAuthRequest(t, router, "POST", "/tabs/"+uuid.New().String()+"/apply-credit", map[string]interface{}{}, waiterClaims())

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestRegisterDebtInvalidDueDate(t *testing.T) {
	router := setupTabRouter(&mockTabService{}, &mockSettler{}, &mockTabStore{})

	rr := doAuthRequest(t, router, "POST", "/tabs/"+uuid.New().String()+"/debts", map[string]interface{}{
		"amount":   "50.00",
		"due_date": "31/12/2026",
	}, waiterClaims())

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["error"] != "invalid due_date format, use YYYY-MM-DD" {
		t.Errorf("unexpected error message: %v", body["error"])
	}
}

func TestPutOnAccount(t *testing.T) {
	tab := sampleTab(t)
	tab.Status = enum.TabStatusOnAccount
	tab.AmountOnAccount = makeNumeric(t, "110.00")
	tab.AmountPaid = makeNumeric(t, "110.00")
	tab.OutstandingBalance = makeNumeric(t, "0")

	debt := database.Debt{
		ID:             uuid.New(),
		TabID:          tab.ID,
		CustomerID:     uuid.New(),
		OriginalAmount: makeNumeric(t, "110.00"),
		AmountDue:      makeNumeric(t, "110.00"),
		Status:         enum.DebtStatusPending,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	var capturedDue *time.Time
	settler := &mockSettler{
		putOnAccountFn: func(ctx context.Context, tabID uuid.UUID, dueDate *time.Time) (*service.DebtResult, error) {
			capturedDue = dueDate
			return &service.DebtResult{Tab: tab, Debt: debt}, nil
		},
	}
	router := setupTabRouter(&mockTabService{}, settler, &mockTabStore{})

	rr := doAuthRequest(t, router, "POST", "/tabs/"+tab.ID.String()+"/on-account", map[string]interface{}{
		"due_date": "2026-09-30",
	}, waiterClaims())

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if capturedDue == nil || capturedDue.Format("2006-01-02") != "2026-09-30" {
		t.Errorf("expected due date 2026-09-30, got %v", capturedDue)
	}
	body := decodeBody(t, rr)
	tabBody := body["tab"].(map[string]interface{})
	if tabBody["status"] != enum.TabStatusOnAccount {
		t.Errorf("expected status ON_ACCOUNT, got %v", tabBody["status"])
	}
	debtBody := body["debt"].(map[string]interface{})
	if debtBody["amount_due"] != "110.00" {
		t.Errorf("expected amount_due 110.00, got %v", debtBody["amount_due"])
	}
}

func TestCloseTabNotClosable(t *testing.T) {
	settler := &mockSettler{
		closeFn: func(ctx context.Context, tabID uuid.UUID) (database.Tab, error) {
			return database.Tab{}, service.ErrTabNotClosable
		},
	}
	router := setupTabRouter(&mockTabService{}, settler, &mockTabStore{})

	rr := doAuthRequest(t, router, "POST", "/tabs/"+uuid.New().String()+"/close", nil, waiterClaims())

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestCancelTab(t *testing.T) {
	tab := sampleTab(t)
	tab.Status = enum.TabStatusCancelled
	tab.CancelReason = pgtype.Text{String: "customer walked out", Valid: true}

	var capturedReason string
	settler := &mockSettler{
		cancelFn: func(ctx context.Context, tabID uuid.UUID, reason string) (database.Tab, error) {
			capturedReason = reason
			return tab, nil
		},
	}
	router := setupTabRouter(&mockTabService{}, settler, &mockTabStore{})

	rr := doAuthRequest(t, router, "POST", "/tabs/"+tab.ID.String()+"/cancel", map[string]interface{}{
		"reason": "customer walked out",
	}, waiterClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if capturedReason != "customer walked out" {
		t.Errorf("expected reason passed through, got %q", capturedReason)
	}
	body := decodeBody(t, rr)
	if body["status"] != enum.TabStatusCancelled {
		t.Errorf("expected status CANCELLED, got %v", body["status"])
	}
	if body["cancel_reason"] != "customer walked out" {
		t.Errorf("expected cancel_reason echoed, got %v", body["cancel_reason"])
	}
}

func TestCancelTabReasonRequired(t *testing.T) {
	settler := &mockSettler{
		cancelFn: func(ctx context.Context, tabID uuid.UUID, reason string) (database.Tab, error) {
			return database.Tab{}, service.ErrCancelReasonRequired
		},
	}
	router := setupTabRouter(&mockTabService{}, settler, &mockTabStore{})

	rr := doAuthRequest(t, router, "POST", "/tabs/"+uuid.New().String()+"/cancel", map[string]interface{}{}, waiterClaims())

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestDeleteTab(t *testing.T) {
	tabID := uuid.New()
	var deleted uuid.UUID
	svc := &mockTabService{
		deleteFn: func(ctx context.Context, id uuid.UUID) error {
			deleted = id
			return nil
		},
	}
	router := setupTabRouter(svc, &mockSettler{}, &mockTabStore{})

	rr := doAuthRequest(t, router, "DELETE", "/tabs/"+tabID.String(), nil, waiterClaims())

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if deleted != tabID {
		t.Errorf("expected delete of %s, got %s", tabID, deleted)
	}
}

func TestSetServiceTax(t *testing.T) {
	tab := sampleTab(t)
	tab.ServiceTaxPercent = makeNumeric(t, "0")
	tab.ServiceTaxAmount = makeNumeric(t, "0")
	tab.OutstandingBalance = makeNumeric(t, "100.00")

	var capturedPct decimal.Decimal
	svc := &mockTabService{
		setServiceTaxFn: func(ctx context.Context, tabID uuid.UUID, percent decimal.Decimal) (database.Tab, error) {
			capturedPct = percent
			return tab, nil
		},
	}
	router := setupTabRouter(svc, &mockSettler{}, &mockTabStore{})

	rr := doAuthRequest(t, router, "PATCH", "/tabs/"+tab.ID.String()+"/service-tax", map[string]interface{}{
		"percent": "0",
	}, waiterClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !capturedPct.IsZero() {
		t.Errorf("expected percent 0, got %s", capturedPct)
	}
	body := decodeBody(t, rr)
	if body["outstanding_balance"] != "100.00" {
		t.Errorf("expected outstanding_balance 100.00, got %v", body["outstanding_balance"])
	}
}

func TestAttachCustomer(t *testing.T) {
	tab := sampleTab(t)
	customerID := uuid.New()
	tab.CustomerID = pgtype.UUID{Bytes: customerID, Valid: true}

	svc := &mockTabService{
		attachCustomerFn: func(ctx context.Context, tabID, cid uuid.UUID) (database.Tab, error) {
			if cid != customerID {
				t.Errorf("expected customer %s, got %s", customerID, cid)
			}
			return tab, nil
		},
	}
	router := setupTabRouter(svc, &mockSettler{}, &mockTabStore{})

	rr := doAuthRequest(t, router, "PATCH", "/tabs/"+tab.ID.String()+"/customer", map[string]interface{}{
		"customer_id": customerID.String(),
	}, waiterClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["customer_id"] != customerID.String() {
		t.Errorf("expected customer_id %s, got %v", customerID, body["customer_id"])
	}
}
