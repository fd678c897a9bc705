package service

import (
	"github.com/comanda-pos/api/internal/database"
	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TabTotals is a pure snapshot of a tab's monetary aggregates. The two
// recompute functions below are total and side-effect-free on their
// input; callers compose them explicitly and write the result back in
// one UpdateTabTotals.
type TabTotals struct {
	ItemsSubtotal      decimal.Decimal
	ServiceTaxPercent  decimal.Decimal
	ServiceTaxAmount   decimal.Decimal
	DiscountAmount     decimal.Decimal
	AmountPaid         decimal.Decimal
	AmountOnAccount    decimal.Decimal
	CreditApplied      decimal.Decimal
	OutstandingBalance decimal.Decimal
}

// RecomputeStructure re-derives the service tax amount from the items
// subtotal and tax percent. Triggered by item, tax-percent, or discount
// changes. Never touches the balance.
func RecomputeStructure(t TabTotals) TabTotals {
	t.ServiceTaxAmount = money.Percent(t.ItemsSubtotal, t.ServiceTaxPercent)
	return t
}

// RecomputeBalance re-derives the outstanding balance:
//
//	max(0, items_subtotal + tax - discount - amount_paid - credit_applied)
//
// amount_on_account is deliberately absent: debt already flowed into
// amount_paid when it was registered, and subtracting it again would
// double-count. Never recomputes tax as a side effect.
func RecomputeBalance(t TabTotals) TabTotals {
	balance := t.ItemsSubtotal.
		Add(t.ServiceTaxAmount).
		Sub(t.DiscountAmount).
		Sub(t.AmountPaid).
		Sub(t.CreditApplied)
	t.OutstandingBalance = money.ClampZero(balance)
	return t
}

// RecomputeAll runs the structural recompute followed by the balance
// recompute, for callers that changed structural inputs and need a
// consistent balance immediately.
func RecomputeAll(t TabTotals) TabTotals {
	return RecomputeBalance(RecomputeStructure(t))
}

// totalsFromTab lifts a stored row into decimals.
func totalsFromTab(t database.Tab) TabTotals {
	return TabTotals{
		ItemsSubtotal:      money.FromNumeric(t.ItemsSubtotal),
		ServiceTaxPercent:  money.FromNumeric(t.ServiceTaxPercent),
		ServiceTaxAmount:   money.FromNumeric(t.ServiceTaxAmount),
		DiscountAmount:     money.FromNumeric(t.DiscountAmount),
		AmountPaid:         money.FromNumeric(t.AmountPaid),
		AmountOnAccount:    money.FromNumeric(t.AmountOnAccount),
		CreditApplied:      money.FromNumeric(t.CreditApplied),
		OutstandingBalance: money.FromNumeric(t.OutstandingBalance),
	}
}

// totalsParams packs the snapshot plus the derived status into the
// single write the store exposes.
func totalsParams(id uuid.UUID, t TabTotals, status string) database.UpdateTabTotalsParams {
	return database.UpdateTabTotalsParams{
		ID:                 id,
		ItemsSubtotal:      money.ToNumeric(t.ItemsSubtotal),
		ServiceTaxPercent:  money.ToNumeric(t.ServiceTaxPercent),
		ServiceTaxAmount:   money.ToNumeric(t.ServiceTaxAmount),
		DiscountAmount:     money.ToNumeric(t.DiscountAmount),
		AmountPaid:         money.ToNumeric(t.AmountPaid),
		AmountOnAccount:    money.ToNumeric(t.AmountOnAccount),
		CreditApplied:      money.ToNumeric(t.CreditApplied),
		OutstandingBalance: money.ToNumeric(t.OutstandingBalance),
		Status:             status,
	}
}

// deriveStatus returns the coverage-implied status.
//
// A zero balance alone is not enough to call a tab paid: a fully
// discounted tab with no payments stays OPEN until settled or closed.
// ON_ACCOUNT is sticky while the balance stays covered; only the debt
// ledger flips it back to FULLY_PAID once every fiado is collected.
func deriveStatus(t TabTotals, current string) string {
	coverage := t.AmountPaid.Add(t.CreditApplied)
	switch {
	case t.OutstandingBalance.IsZero() && coverage.IsPositive():
		if current == enum.TabStatusOnAccount {
			return current
		}
		return enum.TabStatusFullyPaid
	case coverage.IsPositive():
		return enum.TabStatusPartiallyPaid
	default:
		return enum.TabStatusOpen
	}
}
