package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ItemServicer defines the service methods needed by item handlers.
// Satisfied by *service.ItemService.
type ItemServicer interface {
	AddItem(ctx context.Context, req service.AddItemRequest) (*service.ItemResult, error)
	UpdateItem(ctx context.Context, req service.UpdateItemRequest) (*service.ItemResult, error)
	RemoveItem(ctx context.Context, tabID, itemID uuid.UUID) (database.Tab, error)
}

// ItemHandler handles tab item endpoints.
type ItemHandler struct {
	svc ItemServicer
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(svc ItemServicer) *ItemHandler {
	return &ItemHandler{svc: svc}
}

// RegisterRoutes registers item endpoints on the given Chi router.
// Expected to be mounted at /tabs/{id}/items
func (h *ItemHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Add)
	r.Patch("/{itemID}", h.Update)
	r.Delete("/{itemID}", h.Remove)
}

// --- Request / Response types ---

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
	Notes     string `json:"notes"`
}

type updateItemRequest struct {
	Quantity int32  `json:"quantity"`
	Notes    string `json:"notes"`
}

// itemResultResponse is a mutated line plus the recomputed tab.
type itemResultResponse struct {
	Tab  tabResponse     `json:"tab"`
	Item tabItemResponse `json:"item"`
}

// --- Handlers ---

// Add handles POST /tabs/{id}/items.
func (h *ItemHandler) Add(w http.ResponseWriter, r *http.Request) {
	tabID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tab ID"})
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "product_id is required"})
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product_id"})
		return
	}

	result, err := h.svc.AddItem(r.Context(), service.AddItemRequest{
		TabID:     tabID,
		ProductID: productID,
		Quantity:  req.Quantity,
		Notes:     req.Notes,
	})
	if err != nil {
		writeServiceError(w, "add item", err)
		return
	}

	writeJSON(w, http.StatusCreated, itemResultResponse{
		Tab:  dbTabToResponse(result.Tab),
		Item: dbTabItemToResponse(result.Item),
	})
}

// Update handles PATCH /tabs/{id}/items/{itemID}.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	tabID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tab ID"})
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.UpdateItem(r.Context(), service.UpdateItemRequest{
		TabID:    tabID,
		ItemID:   itemID,
		Quantity: req.Quantity,
		Notes:    req.Notes,
	})
	if err != nil {
		writeServiceError(w, "update item", err)
		return
	}

	writeJSON(w, http.StatusOK, itemResultResponse{
		Tab:  dbTabToResponse(result.Tab),
		Item: dbTabItemToResponse(result.Item),
	})
}

// Remove handles DELETE /tabs/{id}/items/{itemID}.
func (h *ItemHandler) Remove(w http.ResponseWriter, r *http.Request) {
	tabID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tab ID"})
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	tab, err := h.svc.RemoveItem(r.Context(), tabID, itemID)
	if err != nil {
		writeServiceError(w, "remove item", err)
		return
	}

	writeJSON(w, http.StatusOK, dbTabToResponse(tab))
}
