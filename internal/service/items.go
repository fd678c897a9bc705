package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/money"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// ItemStore defines the DB methods needed by the item-line engine.
type ItemStore interface {
	GetTabForUpdate(ctx context.Context, id uuid.UUID) (database.Tab, error)
	UpdateTabTotals(ctx context.Context, arg database.UpdateTabTotalsParams) (database.Tab, error)
	GetProductForSale(ctx context.Context, id uuid.UUID) (database.GetProductForSaleRow, error)
	CreateTabItem(ctx context.Context, arg database.CreateTabItemParams) (database.TabItem, error)
	GetTabItem(ctx context.Context, arg database.GetTabItemParams) (database.TabItem, error)
	UpdateTabItem(ctx context.Context, arg database.UpdateTabItemParams) (database.TabItem, error)
	DeleteTabItem(ctx context.Context, id uuid.UUID) error
	SumTabItems(ctx context.Context, tabID uuid.UUID) (pgtype.Numeric, error)
}

// NewItemStore creates an ItemStore from a DBTX (pool or tx).
type NewItemStore func(db database.DBTX) ItemStore

// ItemService manages the order items attached to a tab. Every mutation
// re-sums the item lines from storage rather than applying a delta, so
// concurrent operations can never drift the subtotal, then runs the
// structural and balance recomputes in sequence.
type ItemService struct {
	pool     TxBeginner
	newStore NewItemStore
	notifier Notifier
}

// NewItemService creates an ItemService. A nil notifier disables event
// emission.
func NewItemService(pool TxBeginner, newStore NewItemStore, notifier Notifier) *ItemService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ItemService{pool: pool, newStore: newStore, notifier: notifier}
}

// AddItemRequest is the validated input for adding an item line.
type AddItemRequest struct {
	TabID     uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
	Notes     string
}

// ItemResult is a mutated item line with the recomputed tab.
type ItemResult struct {
	Tab  database.Tab
	Item database.TabItem
}

// AddItem attaches a product line to a mutable tab, snapshotting the
// product's current price. Later menu price changes never touch
// existing lines.
func (s *ItemService) AddItem(ctx context.Context, req AddItemRequest) (*ItemResult, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	tab, err := s.lockMutableTab(ctx, store, req.TabID)
	if err != nil {
		return nil, err
	}

	product, err := store.GetProductForSale(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	if !product.Available {
		return nil, ErrProductUnavailable
	}

	unitPrice := money.FromNumeric(product.Price)
	lineTotal := unitPrice.Mul(decimal.NewFromInt32(req.Quantity))

	var notes pgtype.Text
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}

	item, err := store.CreateTabItem(ctx, database.CreateTabItemParams{
		TabID:     tab.ID,
		ProductID: product.ID,
		Quantity:  req.Quantity,
		UnitPrice: money.ToNumeric(unitPrice),
		LineTotal: money.ToNumeric(lineTotal),
		Notes:     notes,
	})
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	updated, newStatus, err := s.recomputeAfterItems(ctx, store, tab)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	notifyChange(s.notifier, tab.ID, tab.Status, newStatus)

	return &ItemResult{Tab: updated, Item: item}, nil
}

// UpdateItemRequest changes an item line's quantity and/or notes.
type UpdateItemRequest struct {
	TabID    uuid.UUID
	ItemID   uuid.UUID
	Quantity int32
	Notes    string
}

// UpdateItem updates quantity/notes of a line. The captured unit price
// is kept; only the line total is re-derived from it.
func (s *ItemService) UpdateItem(ctx context.Context, req UpdateItemRequest) (*ItemResult, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	tab, err := s.lockMutableTab(ctx, store, req.TabID)
	if err != nil {
		return nil, err
	}

	item, err := store.GetTabItem(ctx, database.GetTabItemParams{ID: req.ItemID, TabID: tab.ID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}

	unitPrice := money.FromNumeric(item.UnitPrice)
	lineTotal := unitPrice.Mul(decimal.NewFromInt32(req.Quantity))

	var notes pgtype.Text
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}

	updatedItem, err := store.UpdateTabItem(ctx, database.UpdateTabItemParams{
		ID:        item.ID,
		Quantity:  req.Quantity,
		LineTotal: money.ToNumeric(lineTotal),
		Notes:     notes,
	})
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	updated, newStatus, err := s.recomputeAfterItems(ctx, store, tab)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	notifyChange(s.notifier, tab.ID, tab.Status, newStatus)

	return &ItemResult{Tab: updated, Item: updatedItem}, nil
}

// RemoveItem deletes a line and recomputes the tab.
func (s *ItemService) RemoveItem(ctx context.Context, tabID, itemID uuid.UUID) (database.Tab, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Tab{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	tab, err := s.lockMutableTab(ctx, store, tabID)
	if err != nil {
		return database.Tab{}, err
	}

	item, err := store.GetTabItem(ctx, database.GetTabItemParams{ID: itemID, TabID: tab.ID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Tab{}, ErrItemNotFound
		}
		return database.Tab{}, fmt.Errorf("get item: %w", err)
	}

	if err := store.DeleteTabItem(ctx, item.ID); err != nil {
		return database.Tab{}, fmt.Errorf("delete item: %w", err)
	}

	updated, newStatus, err := s.recomputeAfterItems(ctx, store, tab)
	if err != nil {
		return database.Tab{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Tab{}, fmt.Errorf("commit tx: %w", err)
	}

	notifyChange(s.notifier, tab.ID, tab.Status, newStatus)

	return updated, nil
}

// lockMutableTab locks the tab and checks it still accepts item changes.
// OPEN and PARTIALLY_PAID are the in-progress statuses; everything else
// rejects.
func (s *ItemService) lockMutableTab(ctx context.Context, store ItemStore, id uuid.UUID) (database.Tab, error) {
	tab, err := store.GetTabForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Tab{}, ErrTabNotFound
		}
		return database.Tab{}, fmt.Errorf("get tab: %w", err)
	}
	switch tab.Status {
	case enum.TabStatusOpen, enum.TabStatusPartiallyPaid:
		return tab, nil
	}
	return database.Tab{}, ErrTabNotMutable
}

// recomputeAfterItems re-sums the lines from storage, runs the
// structural then balance recompute, and writes the full aggregate set.
func (s *ItemService) recomputeAfterItems(ctx context.Context, store ItemStore, tab database.Tab) (database.Tab, string, error) {
	sum, err := store.SumTabItems(ctx, tab.ID)
	if err != nil {
		return database.Tab{}, "", fmt.Errorf("sum items: %w", err)
	}

	totals := totalsFromTab(tab)
	totals.ItemsSubtotal = money.FromNumeric(sum)
	totals = RecomputeAll(totals)
	newStatus := deriveStatus(totals, tab.Status)

	updated, err := store.UpdateTabTotals(ctx, totalsParams(tab.ID, totals, newStatus))
	if err != nil {
		return database.Tab{}, "", fmt.Errorf("update tab totals: %w", err)
	}
	return updated, newStatus, nil
}
