package service

import (
	"context"
	"errors"
	"testing"

	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/money"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// mockDebtStore implements DebtStore with configurable behavior.
type mockDebtStore struct {
	getDebtFn             func(ctx context.Context, id uuid.UUID) (database.Debt, error)
	getDebtForUpdateFn    func(ctx context.Context, id uuid.UUID) (database.Debt, error)
	updateDebtDueFn       func(ctx context.Context, arg database.UpdateDebtDueParams) (database.Debt, error)
	cancelDebtFn          func(ctx context.Context, id uuid.UUID) (database.Debt, error)
	countOpenDebtsByTabFn func(ctx context.Context, tabID uuid.UUID) (int64, error)
	getTabForUpdateFn     func(ctx context.Context, id uuid.UUID) (database.Tab, error)
	updateTabTotalsFn     func(ctx context.Context, arg database.UpdateTabTotalsParams) (database.Tab, error)
	setTabStatusFn        func(ctx context.Context, id uuid.UUID, status string) (database.Tab, error)
}

func (m *mockDebtStore) GetDebt(ctx context.Context, id uuid.UUID) (database.Debt, error) {
	return m.getDebtFn(ctx, id)
}
func (m *mockDebtStore) GetDebtForUpdate(ctx context.Context, id uuid.UUID) (database.Debt, error) {
	return m.getDebtForUpdateFn(ctx, id)
}
func (m *mockDebtStore) UpdateDebtDue(ctx context.Context, arg database.UpdateDebtDueParams) (database.Debt, error) {
	return m.updateDebtDueFn(ctx, arg)
}
func (m *mockDebtStore) CancelDebt(ctx context.Context, id uuid.UUID) (database.Debt, error) {
	return m.cancelDebtFn(ctx, id)
}
func (m *mockDebtStore) CountOpenDebtsByTab(ctx context.Context, tabID uuid.UUID) (int64, error) {
	return m.countOpenDebtsByTabFn(ctx, tabID)
}
func (m *mockDebtStore) GetTabForUpdate(ctx context.Context, id uuid.UUID) (database.Tab, error) {
	return m.getTabForUpdateFn(ctx, id)
}
func (m *mockDebtStore) UpdateTabTotals(ctx context.Context, arg database.UpdateTabTotalsParams) (database.Tab, error) {
	return m.updateTabTotalsFn(ctx, arg)
}
func (m *mockDebtStore) SetTabStatus(ctx context.Context, id uuid.UUID, status string) (database.Tab, error) {
	return m.setTabStatusFn(ctx, id, status)
}

// pendingDebt builds a PENDING 110.00 debt on an ON_ACCOUNT tab.
func pendingDebt() (database.Debt, database.Tab) {
	customerID := uuid.New()
	tab := withCustomer(openedTab(), customerID)
	tab.Status = enum.TabStatusOnAccount
	tab.AmountPaid = makeNumeric("110.00")
	tab.AmountOnAccount = makeNumeric("110.00")
	tab.OutstandingBalance = makeNumeric("0.00")
	debt := database.Debt{
		ID:             uuid.New(),
		TabID:          tab.ID,
		CustomerID:     customerID,
		OriginalAmount: makeNumeric("110.00"),
		AmountDue:      makeNumeric("110.00"),
		Status:         enum.DebtStatusPending,
	}
	return debt, tab
}

func defaultDebtStore(debt database.Debt, tab database.Tab) *mockDebtStore {
	lookup := func(ctx context.Context, id uuid.UUID) (database.Debt, error) {
		if id == debt.ID {
			return debt, nil
		}
		return database.Debt{}, pgx.ErrNoRows
	}
	return &mockDebtStore{
		getDebtFn:          lookup,
		getDebtForUpdateFn: lookup,
		updateDebtDueFn: func(ctx context.Context, arg database.UpdateDebtDueParams) (database.Debt, error) {
			updated := debt
			updated.AmountDue = arg.AmountDue
			updated.Status = arg.Status
			return updated, nil
		},
		cancelDebtFn: func(ctx context.Context, id uuid.UUID) (database.Debt, error) {
			cancelled := debt
			cancelled.Status = enum.DebtStatusCancelled
			return cancelled, nil
		},
		countOpenDebtsByTabFn: func(ctx context.Context, tabID uuid.UUID) (int64, error) { return 1, nil },
		getTabForUpdateFn: func(ctx context.Context, id uuid.UUID) (database.Tab, error) {
			if id == tab.ID {
				return tab, nil
			}
			return database.Tab{}, pgx.ErrNoRows
		},
		updateTabTotalsFn: func(ctx context.Context, arg database.UpdateTabTotalsParams) (database.Tab, error) {
			return tabFromTotals(tab, arg), nil
		},
		setTabStatusFn: func(ctx context.Context, id uuid.UUID, status string) (database.Tab, error) {
			flipped := tab
			flipped.Status = status
			return flipped, nil
		},
	}
}

func newTestDebts(store *mockDebtStore) *DebtService {
	pool := &mockTxBeginner{tx: &mockTx{}}
	newStore := func(db database.DBTX) DebtStore { return store }
	return NewDebtService(pool, newStore, nil)
}

func TestPayDebt_NonPositiveAmount(t *testing.T) {
	debt, tab := pendingDebt()
	svc := newTestDebts(defaultDebtStore(debt, tab))

	_, err := svc.Pay(context.Background(), debt.ID, mustDecimal("0"))
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got: %v", err)
	}
}

func TestPayDebt_NotFound(t *testing.T) {
	debt, tab := pendingDebt()
	svc := newTestDebts(defaultDebtStore(debt, tab))

	_, err := svc.Pay(context.Background(), uuid.New(), mustDecimal("10"))
	if !errors.Is(err, ErrDebtNotFound) {
		t.Fatalf("expected ErrDebtNotFound, got: %v", err)
	}
}

func TestPayDebt_OverpaymentRejected(t *testing.T) {
	debt, tab := pendingDebt()
	svc := newTestDebts(defaultDebtStore(debt, tab))

	_, err := svc.Pay(context.Background(), debt.ID, mustDecimal("110.01"))
	if !errors.Is(err, ErrDebtPaymentTooBig) {
		t.Fatalf("expected ErrDebtPaymentTooBig, got: %v", err)
	}
}

func TestPayDebt_PartialCollection(t *testing.T) {
	debt, tab := pendingDebt()
	store := defaultDebtStore(debt, tab)

	var captured database.UpdateDebtDueParams
	store.updateDebtDueFn = func(ctx context.Context, arg database.UpdateDebtDueParams) (database.Debt, error) {
		captured = arg
		updated := debt
		updated.AmountDue = arg.AmountDue
		updated.Status = arg.Status
		return updated, nil
	}

	svc := newTestDebts(store)
	result, err := svc.Pay(context.Background(), debt.ID, mustDecimal("40"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !numericEquals(captured.AmountDue, "70.00") {
		t.Errorf("amount_due: got %v, want 70.00", money.FromNumeric(captured.AmountDue))
	}
	if captured.Status != enum.DebtStatusPartiallyPaid {
		t.Errorf("debt status: got %v, want PARTIALLY_PAID", captured.Status)
	}
	// Another debt is still open, so the tab does not move.
	if result.Tab != nil {
		t.Error("tab should not flip while open debts remain")
	}
}

func TestPayDebt_FullCollectionFlipsTab(t *testing.T) {
	debt, tab := pendingDebt()
	store := defaultDebtStore(debt, tab)
	// This was the last open debt.
	store.countOpenDebtsByTabFn = func(ctx context.Context, tabID uuid.UUID) (int64, error) { return 0, nil }

	var capturedStatus string
	store.setTabStatusFn = func(ctx context.Context, id uuid.UUID, status string) (database.Tab, error) {
		capturedStatus = status
		flipped := tab
		flipped.Status = status
		return flipped, nil
	}

	svc := newTestDebts(store)
	result, err := svc.Pay(context.Background(), debt.ID, mustDecimal("110"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Debt.Status != enum.DebtStatusFullyPaid {
		t.Errorf("debt status: got %v, want FULLY_PAID", result.Debt.Status)
	}
	if capturedStatus != enum.TabStatusFullyPaid {
		t.Errorf("tab status: got %v, want FULLY_PAID", capturedStatus)
	}
	if result.Tab == nil || result.Tab.Status != enum.TabStatusFullyPaid {
		t.Error("result should carry the flipped tab")
	}
}

func TestPayDebt_CollectionNeverTouchesTabBalance(t *testing.T) {
	debt, tab := pendingDebt()
	store := defaultDebtStore(debt, tab)

	store.updateTabTotalsFn = func(ctx context.Context, arg database.UpdateTabTotalsParams) (database.Tab, error) {
		t.Error("a collection must not rewrite tab totals")
		return tabFromTotals(tab, arg), nil
	}

	svc := newTestDebts(store)
	if _, err := svc.Pay(context.Background(), debt.ID, mustDecimal("40")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPayDebt_CancelledDebtRejected(t *testing.T) {
	debt, tab := pendingDebt()
	debt.Status = enum.DebtStatusCancelled
	svc := newTestDebts(defaultDebtStore(debt, tab))

	_, err := svc.Pay(context.Background(), debt.ID, mustDecimal("10"))
	if !errors.Is(err, ErrDebtNotPayable) {
		t.Fatalf("expected ErrDebtNotPayable, got: %v", err)
	}
}

func TestCancelDebt_ReversesTabContribution(t *testing.T) {
	debt, tab := pendingDebt()
	store := defaultDebtStore(debt, tab)

	var captured database.UpdateTabTotalsParams
	store.updateTabTotalsFn = func(ctx context.Context, arg database.UpdateTabTotalsParams) (database.Tab, error) {
		captured = arg
		return tabFromTotals(tab, arg), nil
	}

	svc := newTestDebts(store)
	result, err := svc.Cancel(context.Background(), debt.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Debt.Status != enum.DebtStatusCancelled {
		t.Errorf("debt status: got %v, want CANCELLED", result.Debt.Status)
	}
	if !numericEquals(captured.AmountPaid, "0.00") {
		t.Errorf("amount_paid: got %v, want 0.00", money.FromNumeric(captured.AmountPaid))
	}
	if !numericEquals(captured.AmountOnAccount, "0.00") {
		t.Errorf("amount_on_account: got %v, want 0.00", money.FromNumeric(captured.AmountOnAccount))
	}
	// The deferred coverage is gone: the tab owes 110 again.
	if !numericEquals(captured.OutstandingBalance, "110.00") {
		t.Errorf("outstanding: got %v, want 110.00", money.FromNumeric(captured.OutstandingBalance))
	}
	if captured.Status != enum.TabStatusOpen {
		t.Errorf("tab status: got %v, want OPEN", captured.Status)
	}
}

func TestCancelDebt_WithCollectionsBlocked(t *testing.T) {
	debt, tab := pendingDebt()
	debt.AmountDue = makeNumeric("80.00") // 30.00 already collected
	svc := newTestDebts(defaultDebtStore(debt, tab))

	_, err := svc.Cancel(context.Background(), debt.ID)
	if !errors.Is(err, ErrDebtHasCollections) {
		t.Fatalf("expected ErrDebtHasCollections, got: %v", err)
	}
}

func TestCancelDebt_NonPendingRejected(t *testing.T) {
	debt, tab := pendingDebt()
	debt.Status = enum.DebtStatusFullyPaid
	debt.AmountDue = makeNumeric("0.00")
	svc := newTestDebts(defaultDebtStore(debt, tab))

	_, err := svc.Cancel(context.Background(), debt.ID)
	if !errors.Is(err, ErrDebtNotPayable) {
		t.Fatalf("expected ErrDebtNotPayable, got: %v", err)
	}
}
