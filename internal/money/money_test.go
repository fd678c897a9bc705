package money

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10", "10"},
		{"10.005", "10.01"},
		{"10.004", "10"},
		{"0.125", "0.13"},
		{"99.999", "100"},
	}
	for _, tt := range tests {
		if got := Quantize(dec(tt.in)); !got.Equal(dec(tt.want)) {
			t.Errorf("Quantize(%s): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(dec("100"), dec("10")); !got.Equal(dec("10")) {
		t.Errorf("10%% of 100: got %v, want 10", got)
	}
	if got := Percent(dec("33.33"), dec("10")); !got.Equal(dec("3.33")) {
		t.Errorf("10%% of 33.33: got %v, want 3.33", got)
	}
	if got := Percent(dec("50"), dec("0")); !got.IsZero() {
		t.Errorf("0%% of 50: got %v, want 0", got)
	}
}

func TestClampZero(t *testing.T) {
	if got := ClampZero(dec("-0.01")); !got.IsZero() {
		t.Errorf("negative clamps to zero, got %v", got)
	}
	if got := ClampZero(dec("5")); !got.Equal(dec("5")) {
		t.Errorf("positive passes through, got %v", got)
	}
}

func TestNumericRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "0.01", "110.00", "12345.67"} {
		n := ToNumeric(dec(s))
		if got := FromNumeric(n); !got.Equal(dec(s)) {
			t.Errorf("round trip %s: got %v", s, got)
		}
	}
}

func TestFromNumericNull(t *testing.T) {
	if got := FromNumeric(pgtype.Numeric{}); !got.IsZero() {
		t.Errorf("null numeric: got %v, want 0", got)
	}
}
