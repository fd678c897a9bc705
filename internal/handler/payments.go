package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/middleware"
	"github.com/comanda-pos/api/internal/money"
	"github.com/comanda-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentServicer defines the settlement service methods needed by
// payment handlers. Satisfied by *service.SettlementService.
type PaymentServicer interface {
	RegisterPayment(ctx context.Context, req service.RegisterPaymentRequest) (*service.PaymentResult, error)
	UpdatePayment(ctx context.Context, req service.UpdatePaymentRequest) (*service.PaymentResult, error)
	DeletePayment(ctx context.Context, tabID, paymentID uuid.UUID) (database.Tab, error)
}

// PaymentStore defines the database methods needed by payment read handlers.
type PaymentStore interface {
	ListPaymentsByTab(ctx context.Context, tabID uuid.UUID) ([]database.Payment, error)
}

// PaymentHandler handles payment endpoints.
type PaymentHandler struct {
	svc   PaymentServicer
	store PaymentStore
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc PaymentServicer, store PaymentStore) *PaymentHandler {
	return &PaymentHandler{svc: svc, store: store}
}

// RegisterRoutes registers payment endpoints on the given Chi router.
// Expected to be mounted at /tabs/{id}/payments
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Add)
	r.Get("/", h.List)
	r.Patch("/{paymentID}", h.Update)
	r.Delete("/{paymentID}", h.Delete)
}

// --- Request / Response types ---

type paymentRequest struct {
	Method          string `json:"method"`
	Amount          string `json:"amount"`
	AmountReceived  string `json:"amount_received"`
	ReferenceNumber string `json:"reference_number"`
	DueDate         string `json:"due_date"`
}

type paymentResponse struct {
	ID              uuid.UUID `json:"id"`
	TabID           uuid.UUID `json:"tab_id"`
	CustomerID      *string   `json:"customer_id"`
	Method          string    `json:"method"`
	Amount          string    `json:"amount"`
	Status          string    `json:"status"`
	AmountReceived  *string   `json:"amount_received"`
	ChangeAmount    *string   `json:"change_amount"`
	CreditCaptured  *string   `json:"credit_captured,omitempty"`
	ReferenceNumber *string   `json:"reference_number"`
	ProcessedBy     uuid.UUID `json:"processed_by"`
	ProcessedAt     time.Time `json:"processed_at"`
}

// paymentResultResponse is the settled payment with the updated tab.
// CreditCaptured is only present when overpayment excess was moved into
// the customer's store credit.
type paymentResultResponse struct {
	Tab            tabResponse     `json:"tab"`
	Payment        paymentResponse `json:"payment"`
	Debt           *debtResponse   `json:"debt,omitempty"`
	CreditCaptured *string         `json:"credit_captured,omitempty"`
}

// --- Handlers ---

// Add handles POST /tabs/{id}/payments.
func (h *PaymentHandler) Add(w http.ResponseWriter, r *http.Request) {
	tabID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tab ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	svcReq, ok := buildPaymentRequest(w, req)
	if !ok {
		return
	}
	svcReq.TabID = tabID
	svcReq.ProcessedBy = claims.UserID

	result, err := h.svc.RegisterPayment(r.Context(), *svcReq)
	if err != nil {
		writeServiceError(w, "register payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, toPaymentResultResponse(result))
}

// List handles GET /tabs/{id}/payments.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	tabID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tab ID"})
		return
	}

	payments, err := h.store.ListPaymentsByTab(r.Context(), tabID)
	if err != nil {
		writeServiceError(w, "list payments", err)
		return
	}

	resp := make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = dbPaymentToResponse(p)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Update handles PATCH /tabs/{id}/payments/{paymentID}.
func (h *PaymentHandler) Update(w http.ResponseWriter, r *http.Request) {
	tabID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tab ID"})
		return
	}
	paymentID, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment ID"})
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	svcReq, ok := buildPaymentRequest(w, req)
	if !ok {
		return
	}

	result, err := h.svc.UpdatePayment(r.Context(), service.UpdatePaymentRequest{
		TabID:           tabID,
		PaymentID:       paymentID,
		Method:          svcReq.Method,
		Amount:          svcReq.Amount,
		AmountReceived:  svcReq.AmountReceived,
		ReferenceNumber: svcReq.ReferenceNumber,
		DueDate:         svcReq.DueDate,
	})
	if err != nil {
		writeServiceError(w, "update payment", err)
		return
	}

	writeJSON(w, http.StatusOK, toPaymentResultResponse(result))
}

// Delete handles DELETE /tabs/{id}/payments/{paymentID}.
func (h *PaymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tabID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tab ID"})
		return
	}
	paymentID, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment ID"})
		return
	}

	tab, err := h.svc.DeletePayment(r.Context(), tabID, paymentID)
	if err != nil {
		writeServiceError(w, "delete payment", err)
		return
	}

	writeJSON(w, http.StatusOK, dbTabToResponse(tab))
}

// --- Helpers ---

// buildPaymentRequest validates the wire shapes (method, decimal
// strings, date format). Business rules stay in the service.
func buildPaymentRequest(w http.ResponseWriter, req paymentRequest) (*service.RegisterPaymentRequest, bool) {
	if req.Method == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "method is required"})
		return nil, false
	}
	if req.Amount == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount is required"})
		return nil, false
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount"})
		return nil, false
	}

	svcReq := service.RegisterPaymentRequest{
		Method:          req.Method,
		Amount:          amount,
		ReferenceNumber: req.ReferenceNumber,
	}

	if req.AmountReceived != "" {
		received, err := decimal.NewFromString(req.AmountReceived)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount_received"})
			return nil, false
		}
		svcReq.AmountReceived = &received
	}

	dueDate, ok := parseDueDate(w, req.DueDate)
	if !ok {
		return nil, false
	}
	svcReq.DueDate = dueDate

	return &svcReq, true
}

func toPaymentResultResponse(result *service.PaymentResult) paymentResultResponse {
	resp := paymentResultResponse{
		Tab:     dbTabToResponse(result.Tab),
		Payment: dbPaymentToResponse(result.Payment),
	}
	if result.Debt != nil {
		d := dbDebtToResponse(*result.Debt)
		resp.Debt = &d
	}
	if result.CreditCaptured.IsPositive() {
		s := result.CreditCaptured.StringFixed(2)
		resp.CreditCaptured = &s
	}
	return resp
}

// dbPaymentToResponse converts a database.Payment to a paymentResponse.
func dbPaymentToResponse(p database.Payment) paymentResponse {
	resp := paymentResponse{
		ID:          p.ID,
		TabID:       p.TabID,
		Method:      p.Method,
		Amount:      numericToString(p.Amount),
		Status:      p.Status,
		ProcessedBy: p.ProcessedBy,
		ProcessedAt: p.ProcessedAt,
	}
	if p.CustomerID.Valid {
		s := uuid.UUID(p.CustomerID.Bytes).String()
		resp.CustomerID = &s
	}
	if p.AmountReceived.Valid {
		s := numericToString(p.AmountReceived)
		resp.AmountReceived = &s
	}
	if p.ChangeAmount.Valid {
		s := numericToString(p.ChangeAmount)
		resp.ChangeAmount = &s
	}
	if money.FromNumeric(p.CreditCaptured).IsPositive() {
		s := numericToString(p.CreditCaptured)
		resp.CreditCaptured = &s
	}
	if p.ReferenceNumber.Valid {
		resp.ReferenceNumber = &p.ReferenceNumber.String
	}
	return resp
}
