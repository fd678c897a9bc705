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
	"github.com/shopspring/decimal"
)

// DebtStore defines the DB methods needed by the fiado ledger.
type DebtStore interface {
	GetDebt(ctx context.Context, id uuid.UUID) (database.Debt, error)
	GetDebtForUpdate(ctx context.Context, id uuid.UUID) (database.Debt, error)
	UpdateDebtDue(ctx context.Context, arg database.UpdateDebtDueParams) (database.Debt, error)
	CancelDebt(ctx context.Context, id uuid.UUID) (database.Debt, error)
	CountOpenDebtsByTab(ctx context.Context, tabID uuid.UUID) (int64, error)
	GetTabForUpdate(ctx context.Context, id uuid.UUID) (database.Tab, error)
	UpdateTabTotals(ctx context.Context, arg database.UpdateTabTotalsParams) (database.Tab, error)
	SetTabStatus(ctx context.Context, id uuid.UUID, status string) (database.Tab, error)
}

// NewDebtStore creates a DebtStore from a DBTX (pool or tx).
type NewDebtStore func(db database.DBTX) DebtStore

// DebtService tracks collection progress on fiado records. Collections
// never touch the parent tab's balance: the tab was already credited in
// full when the debt was registered.
type DebtService struct {
	pool     TxBeginner
	newStore NewDebtStore
	notifier Notifier
}

// NewDebtService creates a DebtService. A nil notifier disables event
// emission.
func NewDebtService(pool TxBeginner, newStore NewDebtStore, notifier Notifier) *DebtService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &DebtService{pool: pool, newStore: newStore, notifier: notifier}
}

// PayDebtResult is a collected debt, plus the tab when the collection
// flipped it off ON_ACCOUNT.
type PayDebtResult struct {
	Debt database.Debt
	Tab  *database.Tab
}

// Pay records a partial or full collection against a debt: amount_due
// decrements (clamped at zero) and the debt's own status advances
// PENDING → PARTIALLY_PAID → FULLY_PAID. When the collection settles
// the last open debt of an ON_ACCOUNT tab, the tab moves to FULLY_PAID.
func (s *DebtService) Pay(ctx context.Context, debtID uuid.UUID, amount decimal.Decimal) (*PayDebtResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}
	amount = money.Quantize(amount)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Lock order is tab first, then debt, matching the settlement
	// engine. The unlocked read only discovers the tab id.
	peek, err := store.GetDebt(ctx, debtID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDebtNotFound
		}
		return nil, fmt.Errorf("get debt: %w", err)
	}

	tab, err := store.GetTabForUpdate(ctx, peek.TabID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTabNotFound
		}
		return nil, fmt.Errorf("get tab: %w", err)
	}

	debt, err := store.GetDebtForUpdate(ctx, debtID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDebtNotFound
		}
		return nil, fmt.Errorf("get debt: %w", err)
	}

	if debt.Status != enum.DebtStatusPending && debt.Status != enum.DebtStatusPartiallyPaid {
		return nil, ErrDebtNotPayable
	}

	due := money.FromNumeric(debt.AmountDue)
	if amount.GreaterThan(due) {
		return nil, ErrDebtPaymentTooBig
	}

	newDue := money.ClampZero(due.Sub(amount))
	newStatus := enum.DebtStatusPartiallyPaid
	if newDue.IsZero() {
		newStatus = enum.DebtStatusFullyPaid
	}

	updated, err := store.UpdateDebtDue(ctx, database.UpdateDebtDueParams{
		ID:        debt.ID,
		AmountDue: money.ToNumeric(newDue),
		Status:    newStatus,
	})
	if err != nil {
		return nil, fmt.Errorf("update debt: %w", err)
	}

	result := &PayDebtResult{Debt: updated}

	if tab.Status == enum.TabStatusOnAccount {
		open, err := store.CountOpenDebtsByTab(ctx, tab.ID)
		if err != nil {
			return nil, fmt.Errorf("count open debts: %w", err)
		}
		if open == 0 {
			flipped, err := store.SetTabStatus(ctx, tab.ID, enum.TabStatusFullyPaid)
			if err != nil {
				return nil, fmt.Errorf("set tab status: %w", err)
			}
			result.Tab = &flipped
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	if result.Tab != nil {
		notifyChange(s.notifier, tab.ID, tab.Status, enum.TabStatusFullyPaid)
	}

	return result, nil
}

// Cancel voids a debt that has no collections yet and reverses its
// contribution to the parent tab (both amount_paid and the
// amount_on_account tracking total).
func (s *DebtService) Cancel(ctx context.Context, debtID uuid.UUID) (*PayDebtResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	peek, err := store.GetDebt(ctx, debtID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDebtNotFound
		}
		return nil, fmt.Errorf("get debt: %w", err)
	}

	tab, err := store.GetTabForUpdate(ctx, peek.TabID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTabNotFound
		}
		return nil, fmt.Errorf("get tab: %w", err)
	}

	debt, err := store.GetDebtForUpdate(ctx, debtID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDebtNotFound
		}
		return nil, fmt.Errorf("get debt: %w", err)
	}

	if debt.Status != enum.DebtStatusPending {
		return nil, ErrDebtNotPayable
	}
	if !money.FromNumeric(debt.AmountDue).Equal(money.FromNumeric(debt.OriginalAmount)) {
		return nil, ErrDebtHasCollections
	}

	cancelled, err := store.CancelDebt(ctx, debt.ID)
	if err != nil {
		return nil, fmt.Errorf("cancel debt: %w", err)
	}

	original := money.FromNumeric(debt.OriginalAmount)
	totals := totalsFromTab(tab)
	totals.AmountPaid = money.ClampZero(totals.AmountPaid.Sub(original))
	totals.AmountOnAccount = money.ClampZero(totals.AmountOnAccount.Sub(original))
	totals = RecomputeBalance(totals)
	newTabStatus := deriveStatus(totals, tab.Status)
	if tab.Status == enum.TabStatusOnAccount {
		// The deferred coverage is gone; the tab owes again.
		newTabStatus = deriveStatus(totals, enum.TabStatusOpen)
	}

	updatedTab, err := store.UpdateTabTotals(ctx, totalsParams(tab.ID, totals, newTabStatus))
	if err != nil {
		return nil, fmt.Errorf("update tab totals: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	notifyChange(s.notifier, tab.ID, tab.Status, newTabStatus)

	return &PayDebtResult{Debt: cancelled, Tab: &updatedTab}, nil
}
