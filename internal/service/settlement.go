package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/money"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SettlementStore defines the DB methods needed by settlement
// operations. Satisfied by *database.Queries (and its WithTx variant).
type SettlementStore interface {
	GetTabForUpdate(ctx context.Context, id uuid.UUID) (database.Tab, error)
	UpdateTabTotals(ctx context.Context, arg database.UpdateTabTotalsParams) (database.Tab, error)
	CloseTab(ctx context.Context, id uuid.UUID) (database.Tab, error)
	CancelTab(ctx context.Context, arg database.CancelTabParams) (database.Tab, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	GetPayment(ctx context.Context, arg database.GetPaymentParams) (database.Payment, error)
	UpdatePayment(ctx context.Context, arg database.UpdatePaymentParams) (database.Payment, error)
	DeletePayment(ctx context.Context, id uuid.UUID) error
	CreateDebt(ctx context.Context, arg database.CreateDebtParams) (database.Debt, error)
	GetDebtByPayment(ctx context.Context, paymentID uuid.UUID) (database.Debt, error)
	DeleteDebt(ctx context.Context, id uuid.UUID) error
	GetCustomerForUpdate(ctx context.Context, id uuid.UUID) (database.Customer, error)
	UpdateCustomerCredit(ctx context.Context, arg database.UpdateCustomerCreditParams) (database.Customer, error)
	CountTabItems(ctx context.Context, tabID uuid.UUID) (int64, error)
	CountPaymentsByTab(ctx context.Context, tabID uuid.UUID) (int64, error)
	SetTableStatus(ctx context.Context, arg database.SetTableStatusParams) (database.Table, error)
}

// NewSettlementStore creates a SettlementStore from a DBTX (pool or tx).
type NewSettlementStore func(db database.DBTX) SettlementStore

// SettlementService orchestrates payments, store credit, fiado,
// discounts, and the tab status machine. Every operation runs as one
// transaction holding the tab row lock; partial application rolls back
// entirely.
type SettlementService struct {
	pool     TxBeginner
	newStore NewSettlementStore
	notifier Notifier
}

// NewSettlementService creates a SettlementService. A nil notifier
// disables event emission.
func NewSettlementService(pool TxBeginner, newStore NewSettlementStore, notifier Notifier) *SettlementService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &SettlementService{pool: pool, newStore: newStore, notifier: notifier}
}

// RegisterPaymentRequest is the validated input for a payment.
type RegisterPaymentRequest struct {
	TabID           uuid.UUID
	Method          string
	Amount          decimal.Decimal
	AmountReceived  *decimal.Decimal // CASH only
	ReferenceNumber string
	DueDate         *time.Time // ON_ACCOUNT only
	ProcessedBy     uuid.UUID
}

// PaymentResult is a settled payment with the updated tab.
type PaymentResult struct {
	Tab            database.Tab
	Payment        database.Payment
	Debt           *database.Debt  // set when the method was ON_ACCOUNT
	CreditCaptured decimal.Decimal // overpayment excess captured as store credit
}

// RegisterPayment appends a payment, updates amount_paid, recomputes the
// balance, and moves the status to PARTIALLY_PAID or FULLY_PAID.
// Overpayment is captured into the customer's store credit; without an
// associated customer an overshooting amount is rejected rather than
// silently discarded. ON_ACCOUNT payments also register a linked fiado
// record and count into amount_on_account.
func (s *SettlementService) RegisterPayment(ctx context.Context, req RegisterPaymentRequest) (*PaymentResult, error) {
	if !isValidPaymentMethod(req.Method) {
		return nil, ErrInvalidMethod
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	amount := money.Quantize(req.Amount)

	// CASH carries the drawer bookkeeping: what was handed over and the
	// change due. Overpayment never needs an overshooting amount for
	// cash; the excess lives in change_amount.
	var amountReceived, changeAmount pgtype.Numeric
	if req.Method == enum.PaymentMethodCash {
		if req.AmountReceived == nil {
			return nil, ErrReceivedRequired
		}
		received := money.Quantize(*req.AmountReceived)
		if received.LessThan(amount) {
			return nil, ErrReceivedBelowAmount
		}
		amountReceived = money.ToNumeric(received)
		changeAmount = money.ToNumeric(received.Sub(amount))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	tab, err := lockTab(ctx, store, req.TabID)
	if err != nil {
		return nil, err
	}
	if !tabAcceptsPayment(tab.Status) {
		return nil, ErrTabNotPayable
	}
	if req.Method == enum.PaymentMethodOnAccount && !tab.CustomerID.Valid {
		return nil, ErrNoCustomer
	}

	totals := totalsFromTab(tab)

	// Paying on account beyond what is owed would inflate the fiado, so
	// the overshoot path is closed for this method.
	if req.Method == enum.PaymentMethodOnAccount && amount.GreaterThan(totals.OutstandingBalance) {
		return nil, ErrOverpayment
	}

	creditCaptured, err := captureExcess(ctx, store, tab, totals, amount)
	if err != nil {
		return nil, err
	}

	var referenceNumber pgtype.Text
	if req.ReferenceNumber != "" {
		referenceNumber = pgtype.Text{String: req.ReferenceNumber, Valid: true}
	}

	payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
		TabID:           tab.ID,
		CustomerID:      tab.CustomerID,
		Method:          req.Method,
		Amount:          money.ToNumeric(amount),
		Status:          enum.PaymentStatusApproved,
		AmountReceived:  amountReceived,
		ChangeAmount:    changeAmount,
		CreditCaptured:  money.ToNumeric(creditCaptured),
		ReferenceNumber: referenceNumber,
		ProcessedBy:     req.ProcessedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	// Debt counts as paid for balance purposes but is tracked separately
	// in amount_on_account for collections reporting.
	var debt *database.Debt
	if req.Method == enum.PaymentMethodOnAccount {
		d, err := createLinkedDebt(ctx, store, tab, payment.ID, amount, req.DueDate)
		if err != nil {
			return nil, err
		}
		debt = &d
		totals.AmountOnAccount = totals.AmountOnAccount.Add(amount)
	}

	totals.AmountPaid = totals.AmountPaid.Add(amount)
	totals = RecomputeBalance(totals)
	newStatus := deriveStatus(totals, tab.Status)

	updated, err := store.UpdateTabTotals(ctx, totalsParams(tab.ID, totals, newStatus))
	if err != nil {
		return nil, fmt.Errorf("update tab totals: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	notifyChange(s.notifier, tab.ID, tab.Status, newStatus)

	return &PaymentResult{
		Tab:            updated,
		Payment:        payment,
		Debt:           debt,
		CreditCaptured: creditCaptured,
	}, nil
}

// ApplyCreditRequest applies customer store credit to a tab. A nil
// Amount means "use the maximum available, up to the balance owed".
type ApplyCreditRequest struct {
	TabID  uuid.UUID
	Amount *decimal.Decimal
}

// CreditResult is the updated tab with the credit actually applied.
type CreditResult struct {
	Tab           database.Tab
	Customer      database.Customer
	AmountApplied decimal.Decimal
}

// ApplyCredit draws down the customer's store credit against the tab.
// Credit can never be implicitly created: a requested amount above the
// customer's balance is rejected, not clamped.
func (s *SettlementService) ApplyCredit(ctx context.Context, req ApplyCreditRequest) (*CreditResult, error) {
	if req.Amount != nil && req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	tab, err := lockTab(ctx, store, req.TabID)
	if err != nil {
		return nil, err
	}
	if !tabAcceptsPayment(tab.Status) {
		return nil, ErrTabNotPayable
	}
	if !tab.CustomerID.Valid {
		return nil, ErrNoCustomer
	}

	customer, err := store.GetCustomerForUpdate(ctx, tab.CustomerID.Bytes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}

	balance := money.FromNumeric(customer.CreditBalance)
	if !balance.IsPositive() {
		return nil, ErrNoCreditAvailable
	}

	totals := totalsFromTab(tab)
	outstanding := totals.OutstandingBalance

	var amount decimal.Decimal
	if req.Amount != nil {
		amount = money.Quantize(*req.Amount)
		if amount.GreaterThan(balance) {
			return nil, ErrInsufficientCredit
		}
		if amount.GreaterThan(outstanding) {
			return nil, ErrOverpayment
		}
	} else {
		if !outstanding.IsPositive() {
			return nil, ErrNothingOutstanding
		}
		amount = decimal.Min(balance, outstanding)
	}

	updatedCustomer, err := store.UpdateCustomerCredit(ctx, database.UpdateCustomerCreditParams{
		ID:            customer.ID,
		CreditBalance: money.ToNumeric(balance.Sub(amount)),
	})
	if err != nil {
		return nil, fmt.Errorf("update customer credit: %w", err)
	}

	totals.CreditApplied = totals.CreditApplied.Add(amount)
	totals = RecomputeBalance(totals)
	newStatus := deriveStatus(totals, tab.Status)

	updated, err := store.UpdateTabTotals(ctx, totalsParams(tab.ID, totals, newStatus))
	if err != nil {
		return nil, fmt.Errorf("update tab totals: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	notifyChange(s.notifier, tab.ID, tab.Status, newStatus)

	return &CreditResult{Tab: updated, Customer: updatedCustomer, AmountApplied: amount}, nil
}

// RegisterDebtRequest registers an explicit fiado amount against a tab.
type RegisterDebtRequest struct {
	TabID   uuid.UUID
	Amount  decimal.Decimal
	DueDate *time.Time
}

// DebtResult is a registered debt with the updated tab.
type DebtResult struct {
	Tab  database.Tab
	Debt database.Debt
}

// RegisterDebt defers part of the balance as on-account debt. The amount
// flows into BOTH amount_on_account (collections tracking) and
// amount_paid (balance coverage); the balance formula never subtracts
// amount_on_account a second time.
func (s *SettlementService) RegisterDebt(ctx context.Context, req RegisterDebtRequest) (*DebtResult, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}
	amount := money.Quantize(req.Amount)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	tab, err := lockTab(ctx, store, req.TabID)
	if err != nil {
		return nil, err
	}
	if !tabAcceptsPayment(tab.Status) {
		return nil, ErrTabNotPayable
	}
	if !tab.CustomerID.Valid {
		return nil, ErrNoCustomer
	}

	totals := totalsFromTab(tab)
	if amount.GreaterThan(totals.OutstandingBalance) {
		return nil, ErrOverpayment
	}

	debt, err := createLinkedDebt(ctx, store, tab, uuid.Nil, amount, req.DueDate)
	if err != nil {
		return nil, err
	}

	totals.AmountOnAccount = totals.AmountOnAccount.Add(amount)
	totals.AmountPaid = totals.AmountPaid.Add(amount)
	totals = RecomputeBalance(totals)
	newStatus := deriveStatus(totals, tab.Status)

	updated, err := store.UpdateTabTotals(ctx, totalsParams(tab.ID, totals, newStatus))
	if err != nil {
		return nil, fmt.Errorf("update tab totals: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	notifyChange(s.notifier, tab.ID, tab.Status, newStatus)

	return &DebtResult{Tab: updated, Debt: debt}, nil
}

// PutOnAccount defers the tab's entire outstanding balance as a single
// fiado record and marks the tab ON_ACCOUNT. This is the one path into
// that status; explicit-amount debt registration derives
// PARTIALLY_PAID/FULLY_PAID like a payment.
func (s *SettlementService) PutOnAccount(ctx context.Context, tabID uuid.UUID, dueDate *time.Time) (*DebtResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	tab, err := lockTab(ctx, store, tabID)
	if err != nil {
		return nil, err
	}
	if !tabAcceptsPayment(tab.Status) {
		return nil, ErrTabNotPayable
	}
	if !tab.CustomerID.Valid {
		return nil, ErrNoCustomer
	}

	totals := totalsFromTab(tab)
	amount := totals.OutstandingBalance
	if !amount.IsPositive() {
		return nil, ErrNothingOutstanding
	}

	debt, err := createLinkedDebt(ctx, store, tab, uuid.Nil, amount, dueDate)
	if err != nil {
		return nil, err
	}

	totals.AmountOnAccount = totals.AmountOnAccount.Add(amount)
	totals.AmountPaid = totals.AmountPaid.Add(amount)
	totals = RecomputeBalance(totals)

	updated, err := store.UpdateTabTotals(ctx, totalsParams(tab.ID, totals, enum.TabStatusOnAccount))
	if err != nil {
		return nil, fmt.Errorf("update tab totals: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	notifyChange(s.notifier, tab.ID, tab.Status, enum.TabStatusOnAccount)

	return &DebtResult{Tab: updated, Debt: debt}, nil
}

// ApplyDiscount sets the tab's discount amount. The status is only
// upgraded if coverage already exists; a discount alone never moves an
// OPEN tab to a paid status.
func (s *SettlementService) ApplyDiscount(ctx context.Context, tabID uuid.UUID, amount decimal.Decimal) (database.Tab, error) {
	if amount.IsNegative() {
		return database.Tab{}, ErrNegativeDiscount
	}
	amount = money.Quantize(amount)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Tab{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	tab, err := lockTab(ctx, store, tabID)
	if err != nil {
		return database.Tab{}, err
	}
	if tab.Status == enum.TabStatusCancelled || tab.Status == enum.TabStatusClosed {
		return database.Tab{}, ErrTabNotMutable
	}

	totals := totalsFromTab(tab)
	if amount.GreaterThan(totals.ItemsSubtotal.Add(totals.ServiceTaxAmount)) {
		return database.Tab{}, ErrDiscountTooLarge
	}

	totals.DiscountAmount = amount
	totals = RecomputeAll(totals)
	newStatus := deriveStatus(totals, tab.Status)

	updated, err := store.UpdateTabTotals(ctx, totalsParams(tab.ID, totals, newStatus))
	if err != nil {
		return database.Tab{}, fmt.Errorf("update tab totals: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Tab{}, fmt.Errorf("commit tx: %w", err)
	}

	notifyChange(s.notifier, tab.ID, tab.Status, newStatus)

	return updated, nil
}

// Close closes a tab. An empty tab (no items, no payments, zero
// subtotal) closes from any non-closed status so a speculatively opened
// table can be abandoned; anything else requires FULLY_PAID or
// ON_ACCOUNT. Closing frees the table.
func (s *SettlementService) Close(ctx context.Context, tabID uuid.UUID) (database.Tab, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Tab{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	tab, err := lockTab(ctx, store, tabID)
	if err != nil {
		return database.Tab{}, err
	}
	if tab.Status == enum.TabStatusClosed {
		return database.Tab{}, ErrTabAlreadyClosed
	}

	if tab.Status != enum.TabStatusFullyPaid && tab.Status != enum.TabStatusOnAccount {
		empty, err := tabIsEmpty(ctx, store, tab)
		if err != nil {
			return database.Tab{}, err
		}
		if !empty {
			return database.Tab{}, ErrTabNotClosable
		}
	}

	closed, err := store.CloseTab(ctx, tab.ID)
	if err != nil {
		return database.Tab{}, fmt.Errorf("close tab: %w", err)
	}

	if _, err := store.SetTableStatus(ctx, database.SetTableStatusParams{
		ID:     tab.TableID,
		Status: enum.TableStatusFree,
	}); err != nil {
		return database.Tab{}, fmt.Errorf("free table: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Tab{}, fmt.Errorf("commit tx: %w", err)
	}

	notifyChange(s.notifier, tab.ID, tab.Status, enum.TabStatusClosed)

	return closed, nil
}

// Cancel cancels a tab with a mandatory reason. CLOSED is terminal;
// everything else can be cancelled. Cancelling frees the table.
func (s *SettlementService) Cancel(ctx context.Context, tabID uuid.UUID, reason string) (database.Tab, error) {
	if reason == "" {
		return database.Tab{}, ErrCancelReasonRequired
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Tab{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	tab, err := lockTab(ctx, store, tabID)
	if err != nil {
		return database.Tab{}, err
	}
	if tab.Status == enum.TabStatusClosed {
		return database.Tab{}, ErrTabAlreadyClosed
	}

	cancelled, err := store.CancelTab(ctx, database.CancelTabParams{ID: tab.ID, CancelReason: reason})
	if err != nil {
		return database.Tab{}, fmt.Errorf("cancel tab: %w", err)
	}

	if _, err := store.SetTableStatus(ctx, database.SetTableStatusParams{
		ID:     tab.TableID,
		Status: enum.TableStatusFree,
	}); err != nil {
		return database.Tab{}, fmt.Errorf("free table: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Tab{}, fmt.Errorf("commit tx: %w", err)
	}

	notifyChange(s.notifier, tab.ID, tab.Status, enum.TabStatusCancelled)

	return cancelled, nil
}

// UpdatePaymentRequest replaces a payment's method/amount.
type UpdatePaymentRequest struct {
	TabID           uuid.UUID
	PaymentID       uuid.UUID
	Method          string
	Amount          decimal.Decimal
	AmountReceived  *decimal.Decimal
	ReferenceNumber string
	DueDate         *time.Time
}

// UpdatePayment symmetrically reverses the payment's prior contribution
// (amount_paid, and for ON_ACCOUNT the tracking total plus the linked
// debt) before applying the new state, then recomputes balance and
// status. Reverse-then-reapply is the invariant here; applying the new
// state first would double-count.
func (s *SettlementService) UpdatePayment(ctx context.Context, req UpdatePaymentRequest) (*PaymentResult, error) {
	if !isValidPaymentMethod(req.Method) {
		return nil, ErrInvalidMethod
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}
	amount := money.Quantize(req.Amount)

	var amountReceived, changeAmount pgtype.Numeric
	if req.Method == enum.PaymentMethodCash {
		if req.AmountReceived == nil {
			return nil, ErrReceivedRequired
		}
		received := money.Quantize(*req.AmountReceived)
		if received.LessThan(amount) {
			return nil, ErrReceivedBelowAmount
		}
		amountReceived = money.ToNumeric(received)
		changeAmount = money.ToNumeric(received.Sub(amount))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	tab, err := lockTab(ctx, store, req.TabID)
	if err != nil {
		return nil, err
	}
	if tab.Status == enum.TabStatusCancelled || tab.Status == enum.TabStatusClosed {
		return nil, ErrTabNotMutable
	}
	if req.Method == enum.PaymentMethodOnAccount && !tab.CustomerID.Valid {
		return nil, ErrNoCustomer
	}

	payment, err := store.GetPayment(ctx, database.GetPaymentParams{ID: req.PaymentID, TabID: tab.ID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}

	totals, err := reversePayment(ctx, store, totalsFromTab(tab), payment)
	if err != nil {
		return nil, err
	}

	totals = RecomputeBalance(totals)
	if req.Method == enum.PaymentMethodOnAccount && amount.GreaterThan(totals.OutstandingBalance) {
		return nil, ErrOverpayment
	}
	creditCaptured, err := captureExcess(ctx, store, tab, totals, amount)
	if err != nil {
		return nil, err
	}

	var referenceNumber pgtype.Text
	if req.ReferenceNumber != "" {
		referenceNumber = pgtype.Text{String: req.ReferenceNumber, Valid: true}
	}

	updatedPayment, err := store.UpdatePayment(ctx, database.UpdatePaymentParams{
		ID:              payment.ID,
		Method:          req.Method,
		Amount:          money.ToNumeric(amount),
		AmountReceived:  amountReceived,
		ChangeAmount:    changeAmount,
		CreditCaptured:  money.ToNumeric(creditCaptured),
		ReferenceNumber: referenceNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}

	var debt *database.Debt
	if req.Method == enum.PaymentMethodOnAccount {
		d, err := createLinkedDebt(ctx, store, tab, payment.ID, amount, req.DueDate)
		if err != nil {
			return nil, err
		}
		debt = &d
		totals.AmountOnAccount = totals.AmountOnAccount.Add(amount)
	}

	totals.AmountPaid = totals.AmountPaid.Add(amount)
	totals = RecomputeBalance(totals)
	newStatus := deriveStatus(totals, tab.Status)

	updated, err := store.UpdateTabTotals(ctx, totalsParams(tab.ID, totals, newStatus))
	if err != nil {
		return nil, fmt.Errorf("update tab totals: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	notifyChange(s.notifier, tab.ID, tab.Status, newStatus)

	return &PaymentResult{
		Tab:            updated,
		Payment:        updatedPayment,
		Debt:           debt,
		CreditCaptured: creditCaptured,
	}, nil
}

// DeletePayment removes a payment and reverses its contribution, so the
// tab's amount_paid and outstanding balance return exactly to their
// pre-payment values.
func (s *SettlementService) DeletePayment(ctx context.Context, tabID, paymentID uuid.UUID) (database.Tab, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Tab{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	tab, err := lockTab(ctx, store, tabID)
	if err != nil {
		return database.Tab{}, err
	}
	if tab.Status == enum.TabStatusCancelled || tab.Status == enum.TabStatusClosed {
		return database.Tab{}, ErrTabNotMutable
	}

	payment, err := store.GetPayment(ctx, database.GetPaymentParams{ID: paymentID, TabID: tab.ID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Tab{}, ErrPaymentNotFound
		}
		return database.Tab{}, fmt.Errorf("get payment: %w", err)
	}

	totals, err := reversePayment(ctx, store, totalsFromTab(tab), payment)
	if err != nil {
		return database.Tab{}, err
	}

	if err := store.DeletePayment(ctx, payment.ID); err != nil {
		return database.Tab{}, fmt.Errorf("delete payment: %w", err)
	}

	totals = RecomputeBalance(totals)
	newStatus := deriveStatus(totals, tab.Status)

	updated, err := store.UpdateTabTotals(ctx, totalsParams(tab.ID, totals, newStatus))
	if err != nil {
		return database.Tab{}, fmt.Errorf("update tab totals: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Tab{}, fmt.Errorf("commit tx: %w", err)
	}

	notifyChange(s.notifier, tab.ID, tab.Status, newStatus)

	return updated, nil
}

// --- Helpers ---

func isValidPaymentMethod(m string) bool {
	switch m {
	case enum.PaymentMethodCash, enum.PaymentMethodCreditCard, enum.PaymentMethodDebitCard,
		enum.PaymentMethodPix, enum.PaymentMethodOnAccount, enum.PaymentMethodOther:
		return true
	}
	return false
}

// tabAcceptsPayment: FULLY_PAID, CANCELLED and CLOSED tabs reject
// settlement operations.
func tabAcceptsPayment(status string) bool {
	switch status {
	case enum.TabStatusFullyPaid, enum.TabStatusCancelled, enum.TabStatusClosed:
		return false
	}
	return true
}

func lockTab(ctx context.Context, store SettlementStore, id uuid.UUID) (database.Tab, error) {
	tab, err := store.GetTabForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Tab{}, ErrTabNotFound
		}
		return database.Tab{}, fmt.Errorf("get tab: %w", err)
	}
	return tab, nil
}

// captureExcess moves the part of amount above the outstanding balance
// into the customer's store credit. Without a customer an overshooting
// amount is rejected: value must never be silently discarded by the
// zero clamp.
func captureExcess(ctx context.Context, store SettlementStore, tab database.Tab, totals TabTotals, amount decimal.Decimal) (decimal.Decimal, error) {
	excess := amount.Sub(totals.OutstandingBalance)
	if !excess.IsPositive() {
		return decimal.Zero, nil
	}
	if !tab.CustomerID.Valid {
		return decimal.Zero, ErrOverpayment
	}

	customer, err := store.GetCustomerForUpdate(ctx, tab.CustomerID.Bytes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrCustomerNotFound
		}
		return decimal.Zero, fmt.Errorf("get customer: %w", err)
	}

	newBalance := money.FromNumeric(customer.CreditBalance).Add(excess)
	if _, err := store.UpdateCustomerCredit(ctx, database.UpdateCustomerCreditParams{
		ID:            customer.ID,
		CreditBalance: money.ToNumeric(newBalance),
	}); err != nil {
		return decimal.Zero, fmt.Errorf("update customer credit: %w", err)
	}
	return excess, nil
}

func createLinkedDebt(ctx context.Context, store SettlementStore, tab database.Tab, paymentID uuid.UUID, amount decimal.Decimal, dueDate *time.Time) (database.Debt, error) {
	var pid pgtype.UUID
	if paymentID != uuid.Nil {
		pid = pgtype.UUID{Bytes: paymentID, Valid: true}
	}
	var due pgtype.Timestamptz
	if dueDate != nil {
		due = pgtype.Timestamptz{Time: *dueDate, Valid: true}
	}
	debt, err := store.CreateDebt(ctx, database.CreateDebtParams{
		TabID:          tab.ID,
		CustomerID:     tab.CustomerID.Bytes,
		PaymentID:      pid,
		OriginalAmount: money.ToNumeric(amount),
		AmountDue:      money.ToNumeric(amount),
		DueDate:        due,
	})
	if err != nil {
		return database.Debt{}, fmt.Errorf("create debt: %w", err)
	}
	return debt, nil
}

// reversePayment subtracts a payment's prior contribution from the
// totals, debits back any store credit the payment captured, and
// removes any fiado record it implicitly created. Captured credit the
// customer has since spent blocks the reversal, as does a linked debt
// that already has collections.
func reversePayment(ctx context.Context, store SettlementStore, totals TabTotals, p database.Payment) (TabTotals, error) {
	amount := money.FromNumeric(p.Amount)
	totals.AmountPaid = money.ClampZero(totals.AmountPaid.Sub(amount))

	if err := reverseCapturedCredit(ctx, store, p); err != nil {
		return totals, err
	}

	if p.Method != enum.PaymentMethodOnAccount {
		return totals, nil
	}

	totals.AmountOnAccount = money.ClampZero(totals.AmountOnAccount.Sub(amount))

	debt, err := store.GetDebtByPayment(ctx, p.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return totals, nil
		}
		return totals, fmt.Errorf("get linked debt: %w", err)
	}
	if !money.FromNumeric(debt.AmountDue).Equal(money.FromNumeric(debt.OriginalAmount)) {
		return totals, ErrDebtHasCollections
	}
	if err := store.DeleteDebt(ctx, debt.ID); err != nil {
		return totals, fmt.Errorf("delete linked debt: %w", err)
	}
	return totals, nil
}

// reverseCapturedCredit takes back the store credit a payment's
// overshoot granted. The customer must still hold at least that much
// credit; otherwise the value has been spent and the payment cannot be
// unwound.
func reverseCapturedCredit(ctx context.Context, store SettlementStore, p database.Payment) error {
	captured := money.FromNumeric(p.CreditCaptured)
	if !captured.IsPositive() {
		return nil
	}
	if !p.CustomerID.Valid {
		return nil
	}

	customer, err := store.GetCustomerForUpdate(ctx, p.CustomerID.Bytes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCustomerNotFound
		}
		return fmt.Errorf("get customer: %w", err)
	}

	balance := money.FromNumeric(customer.CreditBalance)
	if balance.LessThan(captured) {
		return ErrCreditSpent
	}
	if _, err := store.UpdateCustomerCredit(ctx, database.UpdateCustomerCreditParams{
		ID:            customer.ID,
		CreditBalance: money.ToNumeric(balance.Sub(captured)),
	}); err != nil {
		return fmt.Errorf("update customer credit: %w", err)
	}
	return nil
}

// tabIsEmpty reports whether the tab never had line items or payments.
func tabIsEmpty(ctx context.Context, store SettlementStore, tab database.Tab) (bool, error) {
	if !money.FromNumeric(tab.ItemsSubtotal).IsZero() {
		return false, nil
	}
	items, err := store.CountTabItems(ctx, tab.ID)
	if err != nil {
		return false, fmt.Errorf("count items: %w", err)
	}
	if items > 0 {
		return false, nil
	}
	payments, err := store.CountPaymentsByTab(ctx, tab.ID)
	if err != nil {
		return false, fmt.Errorf("count payments: %w", err)
	}
	return payments == 0, nil
}
