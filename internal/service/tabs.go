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

// DefaultServiceTaxPercent is applied when a tab is opened without an
// explicit percentage and no venue-wide override is configured.
var DefaultServiceTaxPercent = decimal.NewFromInt(10)

// TabStore defines the DB methods needed by tab lifecycle operations.
type TabStore interface {
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	GetOpenTabForTable(ctx context.Context, tableID uuid.UUID) (database.Tab, error)
	SetTableStatus(ctx context.Context, arg database.SetTableStatusParams) (database.Table, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (database.Customer, error)
	CreateTab(ctx context.Context, arg database.CreateTabParams) (database.Tab, error)
	GetTabForUpdate(ctx context.Context, id uuid.UUID) (database.Tab, error)
	UpdateTabTotals(ctx context.Context, arg database.UpdateTabTotalsParams) (database.Tab, error)
	SetTabCustomer(ctx context.Context, arg database.SetTabCustomerParams) (database.Tab, error)
	DeleteTabItemsByTab(ctx context.Context, tabID uuid.UUID) error
	DeletePaymentsByTab(ctx context.Context, tabID uuid.UUID) error
	DeleteDebtsByTab(ctx context.Context, tabID uuid.UUID) error
	DeleteTab(ctx context.Context, id uuid.UUID) error
}

// NewTabStore creates a TabStore from a DBTX (pool or tx).
type NewTabStore func(db database.DBTX) TabStore

// TabService owns tab creation, customer association, the service-tax
// percentage, and explicit tab deletion.
type TabService struct {
	pool       TxBeginner
	newStore   NewTabStore
	defaultTax decimal.Decimal
}

// NewTabService creates a TabService. defaultTax is the venue-wide
// service-tax percentage applied when a tab is opened without one.
func NewTabService(pool TxBeginner, newStore NewTabStore, defaultTax decimal.Decimal) *TabService {
	if validateTaxPercent(defaultTax) != nil {
		defaultTax = DefaultServiceTaxPercent
	}
	return &TabService{pool: pool, newStore: newStore, defaultTax: defaultTax}
}

// CreateTabRequest opens a tab against a table.
type CreateTabRequest struct {
	TableID           uuid.UUID
	CustomerID        *uuid.UUID
	ServiceTaxPercent *decimal.Decimal
	OpenedBy          uuid.UUID
}

// Create opens an OPEN tab on an active, free table and marks the table
// occupied. The full recompute runs once so the stored aggregates are
// consistent from the start.
func (s *TabService) Create(ctx context.Context, req CreateTabRequest) (database.Tab, error) {
	taxPercent := s.defaultTax
	if req.ServiceTaxPercent != nil {
		taxPercent = *req.ServiceTaxPercent
		if err := validateTaxPercent(taxPercent); err != nil {
			return database.Tab{}, err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Tab{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	table, err := store.GetTable(ctx, req.TableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Tab{}, ErrTableNotFound
		}
		return database.Tab{}, fmt.Errorf("get table: %w", err)
	}
	if !table.Active {
		return database.Tab{}, ErrTableInactive
	}

	if _, err := store.GetOpenTabForTable(ctx, table.ID); err == nil {
		return database.Tab{}, ErrTableOccupied
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return database.Tab{}, fmt.Errorf("check open tab: %w", err)
	}

	var customerID pgtype.UUID
	if req.CustomerID != nil {
		customer, err := store.GetCustomer(ctx, *req.CustomerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return database.Tab{}, ErrCustomerNotFound
			}
			return database.Tab{}, fmt.Errorf("get customer: %w", err)
		}
		customerID = pgtype.UUID{Bytes: customer.ID, Valid: true}
	}

	tab, err := store.CreateTab(ctx, database.CreateTabParams{
		TableID:           table.ID,
		CustomerID:        customerID,
		ServiceTaxPercent: money.ToNumeric(taxPercent),
		OpenedBy:          req.OpenedBy,
	})
	if err != nil {
		return database.Tab{}, fmt.Errorf("create tab: %w", err)
	}

	totals := RecomputeAll(totalsFromTab(tab))
	tab, err = store.UpdateTabTotals(ctx, totalsParams(tab.ID, totals, enum.TabStatusOpen))
	if err != nil {
		return database.Tab{}, fmt.Errorf("update tab totals: %w", err)
	}

	if _, err := store.SetTableStatus(ctx, database.SetTableStatusParams{
		ID:     table.ID,
		Status: enum.TableStatusOccupied,
	}); err != nil {
		return database.Tab{}, fmt.Errorf("occupy table: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Tab{}, fmt.Errorf("commit tx: %w", err)
	}

	return tab, nil
}

// AttachCustomer associates a customer with an open tab, enabling
// credit application, fiado, and overpayment capture.
func (s *TabService) AttachCustomer(ctx context.Context, tabID, customerID uuid.UUID) (database.Tab, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Tab{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	tab, err := store.GetTabForUpdate(ctx, tabID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Tab{}, ErrTabNotFound
		}
		return database.Tab{}, fmt.Errorf("get tab: %w", err)
	}
	if tab.Status == enum.TabStatusCancelled || tab.Status == enum.TabStatusClosed {
		return database.Tab{}, ErrTabNotMutable
	}

	customer, err := store.GetCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Tab{}, ErrCustomerNotFound
		}
		return database.Tab{}, fmt.Errorf("get customer: %w", err)
	}

	updated, err := store.SetTabCustomer(ctx, database.SetTabCustomerParams{
		ID:         tab.ID,
		CustomerID: pgtype.UUID{Bytes: customer.ID, Valid: true},
	})
	if err != nil {
		return database.Tab{}, fmt.Errorf("set tab customer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Tab{}, fmt.Errorf("commit tx: %w", err)
	}

	return updated, nil
}

// SetServiceTax changes the tab's service-tax percentage and runs the
// full recompute; the balance and status can both move.
func (s *TabService) SetServiceTax(ctx context.Context, tabID uuid.UUID, percent decimal.Decimal) (database.Tab, error) {
	if err := validateTaxPercent(percent); err != nil {
		return database.Tab{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Tab{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	tab, err := store.GetTabForUpdate(ctx, tabID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Tab{}, ErrTabNotFound
		}
		return database.Tab{}, fmt.Errorf("get tab: %w", err)
	}
	if tab.Status == enum.TabStatusCancelled || tab.Status == enum.TabStatusClosed {
		return database.Tab{}, ErrTabNotMutable
	}

	totals := totalsFromTab(tab)
	totals.ServiceTaxPercent = percent
	totals = RecomputeAll(totals)
	newStatus := deriveStatus(totals, tab.Status)

	updated, err := store.UpdateTabTotals(ctx, totalsParams(tab.ID, totals, newStatus))
	if err != nil {
		return database.Tab{}, fmt.Errorf("update tab totals: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Tab{}, fmt.Errorf("commit tx: %w", err)
	}

	return updated, nil
}

// Delete removes a tab and every owned child (items, payments, debts)
// in one transaction. Ownership is explicit; there is no cascade magic
// in the schema to lean on.
func (s *TabService) Delete(ctx context.Context, tabID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	tab, err := store.GetTabForUpdate(ctx, tabID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTabNotFound
		}
		return fmt.Errorf("get tab: %w", err)
	}

	if err := store.DeleteTabItemsByTab(ctx, tab.ID); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	if err := store.DeleteDebtsByTab(ctx, tab.ID); err != nil {
		return fmt.Errorf("delete debts: %w", err)
	}
	if err := store.DeletePaymentsByTab(ctx, tab.ID); err != nil {
		return fmt.Errorf("delete payments: %w", err)
	}
	if err := store.DeleteTab(ctx, tab.ID); err != nil {
		return fmt.Errorf("delete tab: %w", err)
	}

	// A still-occupying tab releases its table on deletion.
	if tab.Status != enum.TabStatusClosed && tab.Status != enum.TabStatusCancelled {
		if _, err := store.SetTableStatus(ctx, database.SetTableStatusParams{
			ID:     tab.TableID,
			Status: enum.TableStatusFree,
		}); err != nil {
			return fmt.Errorf("free table: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func validateTaxPercent(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidTaxPercent
	}
	return nil
}
