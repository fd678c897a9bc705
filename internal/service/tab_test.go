package service

import (
	"testing"

	"github.com/comanda-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

func totals(subtotal, taxPct, taxAmt, discount, paid, onAccount, credit, outstanding string) TabTotals {
	return TabTotals{
		ItemsSubtotal:      mustDecimal(subtotal),
		ServiceTaxPercent:  mustDecimal(taxPct),
		ServiceTaxAmount:   mustDecimal(taxAmt),
		DiscountAmount:     mustDecimal(discount),
		AmountPaid:         mustDecimal(paid),
		AmountOnAccount:    mustDecimal(onAccount),
		CreditApplied:      mustDecimal(credit),
		OutstandingBalance: mustDecimal(outstanding),
	}
}

func TestRecomputeStructure_DerivesTaxFromSubtotal(t *testing.T) {
	got := RecomputeStructure(totals("200", "10", "0", "0", "0", "0", "0", "0"))
	if !got.ServiceTaxAmount.Equal(mustDecimal("20")) {
		t.Errorf("tax amount: got %v, want 20", got.ServiceTaxAmount)
	}
	// The balance is untouched by the structural pass.
	if !got.OutstandingBalance.IsZero() {
		t.Errorf("balance must not move: got %v", got.OutstandingBalance)
	}
}

func TestRecomputeStructure_RoundsHalfUp(t *testing.T) {
	// 33.33 * 10% = 3.333 -> 3.33; 33.35 * 10% = 3.335 -> 3.34
	got := RecomputeStructure(totals("33.33", "10", "0", "0", "0", "0", "0", "0"))
	if !got.ServiceTaxAmount.Equal(mustDecimal("3.33")) {
		t.Errorf("tax amount: got %v, want 3.33", got.ServiceTaxAmount)
	}
	got = RecomputeStructure(totals("33.35", "10", "0", "0", "0", "0", "0", "0"))
	if !got.ServiceTaxAmount.Equal(mustDecimal("3.34")) {
		t.Errorf("tax amount: got %v, want 3.34", got.ServiceTaxAmount)
	}
}

func TestRecomputeBalance_Formula(t *testing.T) {
	// 100 + 10 - 5 - 60 - 20 = 25
	got := RecomputeBalance(totals("100", "10", "10", "5", "60", "0", "20", "0"))
	if !got.OutstandingBalance.Equal(mustDecimal("25")) {
		t.Errorf("outstanding: got %v, want 25", got.OutstandingBalance)
	}
}

func TestRecomputeBalance_IgnoresAmountOnAccount(t *testing.T) {
	// Debt already flowed into amount_paid when registered; subtracting
	// amount_on_account again would double-count it.
	withTracking := RecomputeBalance(totals("100", "10", "10", "0", "50", "50", "0", "0"))
	withoutTracking := RecomputeBalance(totals("100", "10", "10", "0", "50", "0", "0", "0"))
	if !withTracking.OutstandingBalance.Equal(withoutTracking.OutstandingBalance) {
		t.Errorf("amount_on_account must not affect the balance: %v vs %v",
			withTracking.OutstandingBalance, withoutTracking.OutstandingBalance)
	}
	if !withTracking.OutstandingBalance.Equal(mustDecimal("60")) {
		t.Errorf("outstanding: got %v, want 60", withTracking.OutstandingBalance)
	}
}

func TestRecomputeBalance_ClampsAtZero(t *testing.T) {
	got := RecomputeBalance(totals("100", "10", "10", "0", "500", "0", "0", "0"))
	if !got.OutstandingBalance.IsZero() {
		t.Errorf("outstanding: got %v, want 0", got.OutstandingBalance)
	}
}

func TestRecomputeBalance_NeverTouchesTax(t *testing.T) {
	// A stale tax amount stays stale: only the structural pass derives it.
	got := RecomputeBalance(totals("100", "10", "99", "0", "0", "0", "0", "0"))
	if !got.ServiceTaxAmount.Equal(mustDecimal("99")) {
		t.Errorf("tax amount: got %v, want 99 (unchanged)", got.ServiceTaxAmount)
	}
}

func TestRecomputeAll_Idempotent(t *testing.T) {
	once := RecomputeAll(totals("100", "10", "0", "20", "30", "0", "10", "0"))
	twice := RecomputeAll(once)
	if !once.OutstandingBalance.Equal(twice.OutstandingBalance) ||
		!once.ServiceTaxAmount.Equal(twice.ServiceTaxAmount) {
		t.Errorf("recompute must be idempotent: %+v vs %+v", once, twice)
	}
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name        string
		outstanding string
		paid        string
		credit      string
		current     string
		want        string
	}{
		{"no coverage no balance", "0", "0", "0", enum.TabStatusOpen, enum.TabStatusOpen},
		{"no coverage with balance", "110", "0", "0", enum.TabStatusOpen, enum.TabStatusOpen},
		{"partial payment", "60", "50", "0", enum.TabStatusOpen, enum.TabStatusPartiallyPaid},
		{"credit only counts as coverage", "70", "0", "40", enum.TabStatusOpen, enum.TabStatusPartiallyPaid},
		{"fully covered by payment", "0", "110", "0", enum.TabStatusPartiallyPaid, enum.TabStatusFullyPaid},
		{"fully covered by mix", "0", "70", "40", enum.TabStatusOpen, enum.TabStatusFullyPaid},
		{"on account stays sticky", "0", "110", "0", enum.TabStatusOnAccount, enum.TabStatusOnAccount},
		{"on account reopened when balance returns", "50", "60", "0", enum.TabStatusOnAccount, enum.TabStatusPartiallyPaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tot := TabTotals{
				OutstandingBalance: mustDecimal(tt.outstanding),
				AmountPaid:         mustDecimal(tt.paid),
				CreditApplied:      mustDecimal(tt.credit),
			}
			if got := deriveStatus(tot, tt.current); got != tt.want {
				t.Errorf("deriveStatus: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTotalsRoundTrip(t *testing.T) {
	tab := openedTab()
	tot := totalsFromTab(tab)
	if !tot.ItemsSubtotal.Equal(mustDecimal("100")) {
		t.Errorf("subtotal: got %v, want 100", tot.ItemsSubtotal)
	}
	arg := totalsParams(tab.ID, tot, enum.TabStatusOpen)
	if !numericEquals(arg.OutstandingBalance, "110.00") {
		t.Errorf("outstanding: got %v, want 110.00", arg.OutstandingBalance)
	}
	if arg.Status != enum.TabStatusOpen {
		t.Errorf("status: got %v, want OPEN", arg.Status)
	}
}

func TestValidateTaxPercent(t *testing.T) {
	if err := validateTaxPercent(decimal.NewFromInt(10)); err != nil {
		t.Errorf("10 percent should be valid: %v", err)
	}
	if err := validateTaxPercent(decimal.Zero); err != nil {
		t.Errorf("0 percent should be valid: %v", err)
	}
	if err := validateTaxPercent(decimal.NewFromInt(-1)); err != ErrInvalidTaxPercent {
		t.Errorf("negative percent: got %v, want ErrInvalidTaxPercent", err)
	}
	if err := validateTaxPercent(decimal.NewFromInt(101)); err != ErrInvalidTaxPercent {
		t.Errorf("101 percent: got %v, want ErrInvalidTaxPercent", err)
	}
}
