package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/comanda-pos/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// CustomerStore defines the database methods needed by customer handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CustomerStore interface {
	CreateCustomer(ctx context.Context, arg database.CreateCustomerParams) (database.Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (database.Customer, error)
	ListCustomers(ctx context.Context) ([]database.Customer, error)
	UpdateCustomer(ctx context.Context, arg database.UpdateCustomerParams) (database.Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
	ListDebtsByCustomer(ctx context.Context, customerID uuid.UUID) ([]database.Debt, error)
}

// CreditServicer defines the credit ledger methods needed by customer
// handlers. Satisfied by *service.CreditService.
type CreditServicer interface {
	Add(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal) (database.Customer, error)
	Use(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal) (database.Customer, error)
}

// CustomerHandler handles customer endpoints.
type CustomerHandler struct {
	store  CustomerStore
	credit CreditServicer
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(store CustomerStore, credit CreditServicer) *CustomerHandler {
	return &CustomerHandler{store: store, credit: credit}
}

// RegisterRoutes registers customer endpoints on the given Chi router.
// Expected to be mounted at /customers
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/debts", h.ListDebts)
	r.Post("/{id}/credit", h.AddCredit)
	r.Post("/{id}/credit/use", h.UseCredit)
}

// --- Request / Response types ---

type customerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type creditRequest struct {
	Amount string `json:"amount"`
}

type customerResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Phone         *string   `json:"phone"`
	CreditBalance string    `json:"credit_balance"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// --- Handlers ---

// Create handles POST /customers.
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	var phone pgtype.Text
	if req.Phone != "" {
		phone = pgtype.Text{String: req.Phone, Valid: true}
	}

	customer, err := h.store.CreateCustomer(r.Context(), database.CreateCustomerParams{
		Name:  req.Name,
		Phone: phone,
	})
	if err != nil {
		log.Printf("ERROR: create customer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, dbCustomerToResponse(customer))
}

// List handles GET /customers.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	customers, err := h.store.ListCustomers(r.Context())
	if err != nil {
		log.Printf("ERROR: list customers: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]customerResponse, len(customers))
	for i, c := range customers {
		resp[i] = dbCustomerToResponse(c)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /customers/{id}.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer ID"})
		return
	}

	customer, err := h.store.GetCustomer(r.Context(), customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
			return
		}
		log.Printf("ERROR: get customer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbCustomerToResponse(customer))
}

// Update handles PUT /customers/{id}.
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer ID"})
		return
	}

	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	var phone pgtype.Text
	if req.Phone != "" {
		phone = pgtype.Text{String: req.Phone, Valid: true}
	}

	customer, err := h.store.UpdateCustomer(r.Context(), database.UpdateCustomerParams{
		ID:    customerID,
		Name:  req.Name,
		Phone: phone,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
			return
		}
		log.Printf("ERROR: update customer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbCustomerToResponse(customer))
}

// Delete handles DELETE /customers/{id}.
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer ID"})
		return
	}

	if err := h.store.DeleteCustomer(r.Context(), customerID); err != nil {
		log.Printf("ERROR: delete customer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListDebts handles GET /customers/{id}/debts.
func (h *CustomerHandler) ListDebts(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer ID"})
		return
	}

	debts, err := h.store.ListDebtsByCustomer(r.Context(), customerID)
	if err != nil {
		log.Printf("ERROR: list customer debts: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]debtResponse, len(debts))
	for i, d := range debts {
		resp[i] = dbDebtToResponse(d)
	}

	writeJSON(w, http.StatusOK, resp)
}

// AddCredit handles POST /customers/{id}/credit.
func (h *CustomerHandler) AddCredit(w http.ResponseWriter, r *http.Request) {
	h.adjustCredit(w, r, h.credit.Add, "add credit")
}

// UseCredit handles POST /customers/{id}/credit/use.
func (h *CustomerHandler) UseCredit(w http.ResponseWriter, r *http.Request) {
	h.adjustCredit(w, r, h.credit.Use, "use credit")
}

// --- Helpers ---

func (h *CustomerHandler) adjustCredit(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID, decimal.Decimal) (database.Customer, error), op string) {
	customerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer ID"})
		return
	}

	var req creditRequest
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

	customer, err := fn(r.Context(), customerID, amount)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}

	writeJSON(w, http.StatusOK, dbCustomerToResponse(customer))
}

// dbCustomerToResponse converts a database.Customer to a customerResponse.
func dbCustomerToResponse(c database.Customer) customerResponse {
	resp := customerResponse{
		ID:            c.ID,
		Name:          c.Name,
		CreditBalance: numericToString(c.CreditBalance),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if c.Phone.Valid {
		resp.Phone = &c.Phone.String
	}
	return resp
}
