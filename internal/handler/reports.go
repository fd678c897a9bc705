package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/money"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// ReportStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportStore interface {
	SumPaymentsByMethod(ctx context.Context, arg database.SumPaymentsByMethodParams) ([]database.PaymentMethodTotal, error)
	ListOpenDebts(ctx context.Context) ([]database.Debt, error)
	SumOpenDebts(ctx context.Context) (pgtype.Numeric, error)
}

// ReportHandler handles reporting endpoints.
type ReportHandler struct {
	store ReportStore
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(store ReportStore) *ReportHandler {
	return &ReportHandler{store: store}
}

// RegisterRoutes registers report endpoints on the given Chi router.
// Expected to be mounted at /reports, behind a manager-only role check.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/revenue", h.Revenue)
	r.Get("/receivables", h.Receivables)
}

// --- Response types ---

type methodTotal struct {
	Method string `json:"method"`
	Total  string `json:"total"`
}

type revenueResponse struct {
	ByMethod []methodTotal `json:"by_method"`
	Total    string        `json:"total"`
}

// receivablesResponse is the open fiado position: every uncollected
// debt plus the aggregate amount still due.
type receivablesResponse struct {
	Debts    []debtResponse `json:"debts"`
	TotalDue string         `json:"total_due"`
}

// --- Handlers ---

// Revenue handles GET /reports/revenue?start_date=...&end_date=....
// Approved payments only, grouped by method. Dates are inclusive start,
// exclusive end.
func (h *ReportHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	var params database.SumPaymentsByMethodParams

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
			return
		}
		params.From = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
			return
		}
		params.To = pgtype.Timestamptz{Time: t, Valid: true}
	}

	totals, err := h.store.SumPaymentsByMethod(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: revenue report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := revenueResponse{ByMethod: make([]methodTotal, len(totals))}
	grand := decimal.Zero
	for i, t := range totals {
		resp.ByMethod[i] = methodTotal{Method: t.Method, Total: numericToString(t.Total)}
		grand = grand.Add(money.FromNumeric(t.Total))
	}
	resp.Total = grand.StringFixed(2)

	writeJSON(w, http.StatusOK, resp)
}

// Receivables handles GET /reports/receivables.
func (h *ReportHandler) Receivables(w http.ResponseWriter, r *http.Request) {
	debts, err := h.store.ListOpenDebts(r.Context())
	if err != nil {
		log.Printf("ERROR: receivables report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	total, err := h.store.SumOpenDebts(r.Context())
	if err != nil {
		log.Printf("ERROR: sum open debts: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := receivablesResponse{
		Debts:    make([]debtResponse, len(debts)),
		TotalDue: numericToString(total),
	}
	for i, d := range debts {
		resp.Debts[i] = dbDebtToResponse(d)
	}

	writeJSON(w, http.StatusOK, resp)
}
