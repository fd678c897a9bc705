package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/money"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// CreditStore defines the DB methods needed by the credit ledger.
type CreditStore interface {
	GetCustomerForUpdate(ctx context.Context, id uuid.UUID) (database.Customer, error)
	UpdateCustomerCredit(ctx context.Context, arg database.UpdateCustomerCreditParams) (database.Customer, error)
}

// NewCreditStore creates a CreditStore from a DBTX (pool or tx).
type NewCreditStore func(db database.DBTX) CreditStore

// CreditService is the customer store-credit ledger: increments from
// overpayment capture (or manual grants), decrements from credit use.
// A balance can never go negative; decrements that would are rejected,
// not clamped.
type CreditService struct {
	pool     TxBeginner
	newStore NewCreditStore
}

// NewCreditService creates a CreditService.
func NewCreditService(pool TxBeginner, newStore NewCreditStore) *CreditService {
	return &CreditService{pool: pool, newStore: newStore}
}

// Add increments a customer's credit balance.
func (s *CreditService) Add(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal) (database.Customer, error) {
	return s.adjust(ctx, customerID, amount, false)
}

// Use decrements a customer's credit balance, rejecting amounts above
// the current balance.
func (s *CreditService) Use(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal) (database.Customer, error) {
	return s.adjust(ctx, customerID, amount, true)
}

func (s *CreditService) adjust(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal, subtract bool) (database.Customer, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return database.Customer{}, ErrInvalidAmount
	}
	amount = money.Quantize(amount)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Customer{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	customer, err := store.GetCustomerForUpdate(ctx, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Customer{}, ErrCustomerNotFound
		}
		return database.Customer{}, fmt.Errorf("get customer: %w", err)
	}

	balance := money.FromNumeric(customer.CreditBalance)
	if subtract {
		if amount.GreaterThan(balance) {
			return database.Customer{}, ErrInsufficientCredit
		}
		balance = balance.Sub(amount)
	} else {
		balance = balance.Add(amount)
	}

	updated, err := store.UpdateCustomerCredit(ctx, database.UpdateCustomerCreditParams{
		ID:            customer.ID,
		CreditBalance: money.ToNumeric(balance),
	})
	if err != nil {
		return database.Customer{}, fmt.Errorf("update customer credit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Customer{}, fmt.Errorf("commit tx: %w", err)
	}

	return updated, nil
}
