package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DebtServicer defines the service methods needed by debt handlers.
// Satisfied by *service.DebtService.
type DebtServicer interface {
	Pay(ctx context.Context, debtID uuid.UUID, amount decimal.Decimal) (*service.PayDebtResult, error)
	Cancel(ctx context.Context, debtID uuid.UUID) (*service.PayDebtResult, error)
}

// DebtStore defines the database methods needed by debt read handlers.
type DebtStore interface {
	ListOpenDebts(ctx context.Context) ([]database.Debt, error)
}

// DebtHandler handles fiado collection endpoints.
type DebtHandler struct {
	svc   DebtServicer
	store DebtStore
}

// NewDebtHandler creates a new DebtHandler.
func NewDebtHandler(svc DebtServicer, store DebtStore) *DebtHandler {
	return &DebtHandler{svc: svc, store: store}
}

// RegisterRoutes registers debt endpoints on the given Chi router.
// Expected to be mounted at /debts
func (h *DebtHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ListOpen)
	r.Post("/{id}/pay", h.Pay)
	r.Post("/{id}/cancel", h.Cancel)
}

// --- Request / Response types ---

type payDebtRequest struct {
	Amount string `json:"amount"`
}

type debtResponse struct {
	ID             uuid.UUID  `json:"id"`
	TabID          uuid.UUID  `json:"tab_id"`
	CustomerID     uuid.UUID  `json:"customer_id"`
	PaymentID      *string    `json:"payment_id"`
	OriginalAmount string     `json:"original_amount"`
	AmountDue      string     `json:"amount_due"`
	Status         string     `json:"status"`
	DueDate        *time.Time `json:"due_date"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// payDebtResponse is the collected debt plus the tab when the
// collection settled the last open debt of an ON_ACCOUNT tab.
type payDebtResponse struct {
	Debt debtResponse `json:"debt"`
	Tab  *tabResponse `json:"tab,omitempty"`
}

// --- Handlers ---

// ListOpen handles GET /debts. Returns every PENDING or PARTIALLY_PAID
// debt across customers, oldest first.
func (h *DebtHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	debts, err := h.store.ListOpenDebts(r.Context())
	if err != nil {
		log.Printf("ERROR: list open debts: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]debtResponse, len(debts))
	for i, d := range debts {
		resp[i] = dbDebtToResponse(d)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Pay handles POST /debts/{id}/pay.
func (h *DebtHandler) Pay(w http.ResponseWriter, r *http.Request) {
	debtID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid debt ID"})
		return
	}

	var req payDebtRequest
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

	result, err := h.svc.Pay(r.Context(), debtID, amount)
	if err != nil {
		writeServiceError(w, "pay debt", err)
		return
	}

	writeJSON(w, http.StatusOK, toPayDebtResponse(result))
}

// Cancel handles POST /debts/{id}/cancel. Only allowed while no
// collection has been recorded; the parent tab's coverage is reversed.
func (h *DebtHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	debtID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid debt ID"})
		return
	}

	result, err := h.svc.Cancel(r.Context(), debtID)
	if err != nil {
		writeServiceError(w, "cancel debt", err)
		return
	}

	writeJSON(w, http.StatusOK, toPayDebtResponse(result))
}

// --- Helpers ---

func toPayDebtResponse(result *service.PayDebtResult) payDebtResponse {
	resp := payDebtResponse{Debt: dbDebtToResponse(result.Debt)}
	if result.Tab != nil {
		t := dbTabToResponse(*result.Tab)
		resp.Tab = &t
	}
	return resp
}

// dbDebtToResponse converts a database.Debt to a debtResponse.
func dbDebtToResponse(d database.Debt) debtResponse {
	resp := debtResponse{
		ID:             d.ID,
		TabID:          d.TabID,
		CustomerID:     d.CustomerID,
		OriginalAmount: numericToString(d.OriginalAmount),
		AmountDue:      numericToString(d.AmountDue),
		Status:         d.Status,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if d.PaymentID.Valid {
		s := uuid.UUID(d.PaymentID.Bytes).String()
		resp.PaymentID = &s
	}
	if d.DueDate.Valid {
		resp.DueDate = &d.DueDate.Time
	}
	return resp
}
