package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/middleware"
	"github.com/comanda-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// TabServicer defines the lifecycle service methods needed by tab handlers.
// Satisfied by *service.TabService; narrow interface for testability.
type TabServicer interface {
	Create(ctx context.Context, req service.CreateTabRequest) (database.Tab, error)
	AttachCustomer(ctx context.Context, tabID, customerID uuid.UUID) (database.Tab, error)
	SetServiceTax(ctx context.Context, tabID uuid.UUID, percent decimal.Decimal) (database.Tab, error)
	Delete(ctx context.Context, tabID uuid.UUID) error
}

// TabSettler defines the settlement service methods needed by tab handlers.
// Satisfied by *service.SettlementService.
type TabSettler interface {
	ApplyCredit(ctx context.Context, req service.ApplyCreditRequest) (*service.CreditResult, error)
	RegisterDebt(ctx context.Context, req service.RegisterDebtRequest) (*service.DebtResult, error)
	PutOnAccount(ctx context.Context, tabID uuid.UUID, dueDate *time.Time) (*service.DebtResult, error)
	ApplyDiscount(ctx context.Context, tabID uuid.UUID, amount decimal.Decimal) (database.Tab, error)
	Close(ctx context.Context, tabID uuid.UUID) (database.Tab, error)
	Cancel(ctx context.Context, tabID uuid.UUID, reason string) (database.Tab, error)
}

// TabStore defines the database methods needed by tab read handlers.
type TabStore interface {
	GetTab(ctx context.Context, id uuid.UUID) (database.Tab, error)
	ListTabs(ctx context.Context, arg database.ListTabsParams) ([]database.Tab, error)
	ListTabItems(ctx context.Context, tabID uuid.UUID) ([]database.TabItem, error)
	ListPaymentsByTab(ctx context.Context, tabID uuid.UUID) ([]database.Payment, error)
	ListDebtsByTab(ctx context.Context, tabID uuid.UUID) ([]database.Debt, error)
}

// TabHandler handles tab endpoints.
type TabHandler struct {
	svc     TabServicer
	settler TabSettler
	store   TabStore
}

// NewTabHandler creates a new TabHandler.
func NewTabHandler(svc TabServicer, settler TabSettler, store TabStore) *TabHandler {
	return &TabHandler{svc: svc, settler: settler, store: store}
}

// RegisterRoutes registers tab endpoints on the given Chi router.
// Expected to be mounted at /tabs
func (h *TabHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)
	r.Patch("/{id}/customer", h.AttachCustomer)
	r.Patch("/{id}/service-tax", h.SetServiceTax)
	r.Patch("/{id}/discount", h.ApplyDiscount)
	r.Post("/{id}/apply-credit", h.ApplyCredit)
	r.Post("/{id}/debts", h.RegisterDebt)
	r.Post("/{id}/on-account", h.PutOnAccount)
	r.Post("/{id}/close", h.Close)
	r.Post("/{id}/cancel", h.Cancel)
}

// --- Request / Response types ---

type createTabRequest struct {
	TableID           string `json:"table_id"`
	CustomerID        string `json:"customer_id"`
	ServiceTaxPercent string `json:"service_tax_percent"`
}

type attachCustomerRequest struct {
	CustomerID string `json:"customer_id"`
}

type serviceTaxRequest struct {
	Percent string `json:"percent"`
}

type discountRequest struct {
	Amount string `json:"amount"`
}

type applyCreditRequest struct {
	Amount string `json:"amount"`
}

type registerDebtRequest struct {
	Amount  string `json:"amount"`
	DueDate string `json:"due_date"`
}

type onAccountRequest struct {
	DueDate string `json:"due_date"`
}

type cancelTabRequest struct {
	Reason string `json:"reason"`
}

type tabResponse struct {
	ID                 uuid.UUID  `json:"id"`
	TableID            uuid.UUID  `json:"table_id"`
	CustomerID         *string    `json:"customer_id"`
	Status             string     `json:"status"`
	ItemsSubtotal      string     `json:"items_subtotal"`
	ServiceTaxPercent  string     `json:"service_tax_percent"`
	ServiceTaxAmount   string     `json:"service_tax_amount"`
	DiscountAmount     string     `json:"discount_amount"`
	AmountPaid         string     `json:"amount_paid"`
	AmountOnAccount    string     `json:"amount_on_account"`
	CreditApplied      string     `json:"credit_applied"`
	OutstandingBalance string     `json:"outstanding_balance"`
	CancelReason       *string    `json:"cancel_reason"`
	OpenedBy           uuid.UUID  `json:"opened_by"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	ClosedAt           *time.Time `json:"closed_at"`
}

type tabItemResponse struct {
	ID        uuid.UUID `json:"id"`
	TabID     uuid.UUID `json:"tab_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int32     `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	LineTotal string    `json:"line_total"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// tabDetailResponse extends tabResponse with the full settlement state.
type tabDetailResponse struct {
	tabResponse
	Items    []tabItemResponse `json:"items"`
	Payments []paymentResponse `json:"payments"`
	Debts    []debtResponse    `json:"debts"`
}

// tabListResponse wraps a list of tabs with pagination metadata.
type tabListResponse struct {
	Tabs   []tabResponse `json:"tabs"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// creditAppliedResponse reports how much store credit was drawn down.
type creditAppliedResponse struct {
	Tab           tabResponse `json:"tab"`
	AmountApplied string      `json:"amount_applied"`
}

type debtRegisteredResponse struct {
	Tab  tabResponse  `json:"tab"`
	Debt debtResponse `json:"debt"`
}

// --- Handlers ---

// Create handles POST /tabs.
func (h *TabHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createTabRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.TableID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "table_id is required"})
		return
	}
	tableID, err := uuid.Parse(req.TableID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
		return
	}

	svcReq := service.CreateTabRequest{
		TableID:  tableID,
		OpenedBy: claims.UserID,
	}

	if req.CustomerID != "" {
		customerID, err := uuid.Parse(req.CustomerID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer_id"})
			return
		}
		svcReq.CustomerID = &customerID
	}

	if req.ServiceTaxPercent != "" {
		pct, err := decimal.NewFromString(req.ServiceTaxPercent)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid service_tax_percent"})
			return
		}
		svcReq.ServiceTaxPercent = &pct
	}

	tab, err := h.svc.Create(r.Context(), svcReq)
	if err != nil {
		writeServiceError(w, "create tab", err)
		return
	}

	writeJSON(w, http.StatusCreated, dbTabToResponse(tab))
}

// List handles GET /tabs.
func (h *TabHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListTabsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		params.Status = pgtype.Text{String: s, Valid: true}
	}

	tabs, err := h.store.ListTabs(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list tabs: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]tabResponse, len(tabs))
	for i, t := range tabs {
		resp[i] = dbTabToResponse(t)
	}

	writeJSON(w, http.StatusOK, tabListResponse{
		Tabs:   resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /tabs/{id}.
func (h *TabHandler) Get(w http.ResponseWriter, r *http.Request) {
	tabID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tab ID"})
		return
	}

	tab, err := h.store.GetTab(r.Context(), tabID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "tab not found"})
			return
		}
		log.Printf("ERROR: get tab: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListTabItems(r.Context(), tabID)
	if err != nil {
		log.Printf("ERROR: list tab items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	payments, err := h.store.ListPaymentsByTab(r.Context(), tabID)
	if err != nil {
		log.Printf("ERROR: list payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	debts, err := h.store.ListDebtsByTab(r.Context(), tabID)
	if err != nil {
		log.Printf("ERROR: list debts: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	itemResps := make([]tabItemResponse, len(items))
	for i, item := range items {
		itemResps[i] = dbTabItemToResponse(item)
	}
	paymentResps := make([]paymentResponse, len(payments))
	for i, p := range payments {
		paymentResps[i] = dbPaymentToResponse(p)
	}
	debtResps := make([]debtResponse, len(debts))
	for i, d := range debts {
		debtResps[i] = dbDebtToResponse(d)
	}

	writeJSON(w, http.StatusOK, tabDetailResponse{
		tabResponse: dbTabToResponse(tab),
		Items:       itemResps,
		Payments:    paymentResps,
		Debts:       debtResps,
	})
}

// Delete handles DELETE /tabs/{id}. Hard deletion of a tab and its
// children.
func (h *TabHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tabID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tab ID"})
		return
	}

	if err := h.svc.Delete(r.Context(), tabID); err != nil {
		writeServiceError(w, "delete tab", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AttachCustomer handles PATCH /tabs/{id}/customer.
func (h *TabHandler) AttachCustomer(w http.ResponseWriter, r *http.Request) {
	tabID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tab ID"})
		return
	}

	var req attachCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.CustomerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "customer_id is required"})
		return
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer_id"})
		return
	}

	tab, err := h.svc.AttachCustomer(r.Context(), tabID, customerID)
	if err != nil {
		writeServiceError(w, "attach customer", err)
		return
	}

	writeJSON(w, http.StatusOK, dbTabToResponse(tab))
}

// SetServiceTax handles PATCH /tabs/{id}/service-tax.
func (h *TabHandler) SetServiceTax(w http.ResponseWriter, r *http.Request) {
	tabID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tab ID"})
		return
	}

	var req serviceTaxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Percent == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "percent is required"})
		return
	}
	pct, err := decimal.NewFromString(req.Percent)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid percent"})
		return
	}

	tab, err := h.svc.SetServiceTax(r.Context(), tabID, pct)
	if err != nil {
		writeServiceError(w, "set service tax", err)
		return
	}

	writeJSON(w, http.StatusOK, dbTabToResponse(tab))
}

// ApplyDiscount handles PATCH /tabs/{id}/discount.
func (h *TabHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	tabID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tab ID"})
		return
	}

	var req discountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Amount == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount is required"})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount"})
		return
	}

	tab, err := h.settler.ApplyDiscount(r.Context(), tabID, amount)
	if err != nil {
		writeServiceError(w, "apply discount", err)
		return
	}

	writeJSON(w, http.StatusOK, dbTabToResponse(tab))
}

// ApplyCredit handles POST /tabs/{id}/apply-credit. An empty amount
// applies the maximum available credit.
func (h *TabHandler) ApplyCredit(w http.ResponseWriter, r *http.Request) {
	tabID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tab ID"})
		return
	}

	var req applyCreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	svcReq := service.ApplyCreditRequest{TabID: tabID}
	if req.Amount != "" {
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount"})
			return
		}
		svcReq.Amount = &amount
	}

	result, err := h.settler.ApplyCredit(r.Context(), svcReq)
	if err != nil {
		writeServiceError(w, "apply credit", err)
		return
	}

	writeJSON(w, http.StatusOK, creditAppliedResponse{
		Tab:           dbTabToResponse(result.Tab),
		AmountApplied: result.AmountApplied.StringFixed(2),
	})
}

// RegisterDebt handles POST /tabs/{id}/debts.
func (h *TabHandler) RegisterDebt(w http.ResponseWriter, r *http.Request) {
	tabID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tab ID"})
		return
	}

	var req registerDebtRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Amount == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount is required"})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount"})
		return
	}

	dueDate, ok := parseDueDate(w, req.DueDate)
	if !ok {
		return
	}

	result, err := h.settler.RegisterDebt(r.Context(), service.RegisterDebtRequest{
		TabID:   tabID,
		Amount:  amount,
		DueDate: dueDate,
	})
	if err != nil {
		writeServiceError(w, "register debt", err)
		return
	}

	writeJSON(w, http.StatusCreated, debtRegisteredResponse{
		Tab:  dbTabToResponse(result.Tab),
		Debt: dbDebtToResponse(result.Debt),
	})
}

// PutOnAccount handles POST /tabs/{id}/on-account.
func (h *TabHandler) PutOnAccount(w http.ResponseWriter, r *http.Request) {
	tabID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tab ID"})
		return
	}

	var req onAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	dueDate, ok := parseDueDate(w, req.DueDate)
	if !ok {
		return
	}

	result, err := h.settler.PutOnAccount(r.Context(), tabID, dueDate)
	if err != nil {
		writeServiceError(w, "put on account", err)
		return
	}

	writeJSON(w, http.StatusCreated, debtRegisteredResponse{
		Tab:  dbTabToResponse(result.Tab),
		Debt: dbDebtToResponse(result.Debt),
	})
}

// Close handles POST /tabs/{id}/close.
func (h *TabHandler) Close(w http.ResponseWriter, r *http.Request) {
	tabID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tab ID"})
		return
	}

	tab, err := h.settler.Close(r.Context(), tabID)
	if err != nil {
		writeServiceError(w, "close tab", err)
		return
	}

	writeJSON(w, http.StatusOK, dbTabToResponse(tab))
}

// Cancel handles POST /tabs/{id}/cancel.
func (h *TabHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	tabID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tab ID"})
		return
	}

	var req cancelTabRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	tab, err := h.settler.Cancel(r.Context(), tabID, req.Reason)
	if err != nil {
		writeServiceError(w, "cancel tab", err)
		return
	}

	writeJSON(w, http.StatusOK, dbTabToResponse(tab))
}

// --- Helpers ---

// writeServiceError maps service error kinds to HTTP status codes.
// Unknown errors are logged with the operation name and hidden from the
// client.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case service.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case service.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case service.IsConflict(err):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func parseDueDate(w http.ResponseWriter, s string) (*time.Time, bool) {
	if s == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid due_date format, use YYYY-MM-DD"})
		return nil, false
	}
	return &t, true
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

// dbTabToResponse converts a database.Tab to a tabResponse.
func dbTabToResponse(t database.Tab) tabResponse {
	resp := tabResponse{
		ID:                 t.ID,
		TableID:            t.TableID,
		Status:             t.Status,
		ItemsSubtotal:      numericToString(t.ItemsSubtotal),
		ServiceTaxPercent:  numericToString(t.ServiceTaxPercent),
		ServiceTaxAmount:   numericToString(t.ServiceTaxAmount),
		DiscountAmount:     numericToString(t.DiscountAmount),
		AmountPaid:         numericToString(t.AmountPaid),
		AmountOnAccount:    numericToString(t.AmountOnAccount),
		CreditApplied:      numericToString(t.CreditApplied),
		OutstandingBalance: numericToString(t.OutstandingBalance),
		OpenedBy:           t.OpenedBy,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}

	if t.CustomerID.Valid {
		s := uuid.UUID(t.CustomerID.Bytes).String()
		resp.CustomerID = &s
	}
	if t.CancelReason.Valid {
		resp.CancelReason = &t.CancelReason.String
	}
	if t.ClosedAt.Valid {
		resp.ClosedAt = &t.ClosedAt.Time
	}

	return resp
}

// dbTabItemToResponse converts a database.TabItem to a tabItemResponse.
func dbTabItemToResponse(item database.TabItem) tabItemResponse {
	resp := tabItemResponse{
		ID:        item.ID,
		TabID:     item.TabID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		UnitPrice: numericToString(item.UnitPrice),
		LineTotal: numericToString(item.LineTotal),
		CreatedAt: item.CreatedAt,
	}
	if item.Notes.Valid {
		resp.Notes = &item.Notes.String
	}
	return resp
}
