package types

import (
	"encoding/json"
	"testing"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		amount   int64
		currency string
		display  string
	}{
		{"USD", USD(2900), 2900, "usd", "$29.00"},
		{"CAD", CAD(2500), 2500, "cad", "C$25.00"},
		{"Zero USD", Zero("USD"), 0, "usd", "$0.00"},
		{"Zero CAD", Zero("cad"), 0, "cad", "C$0.00"},
		{"FromMajor exact", FromMajor(65.00, "usd"), 6500, "usd", "$65.00"},
		{"FromMajor rounds half up", FromMajor(64.995, "usd"), 6500, "usd", "$65.00"},
		{"FromMajor negative", FromMajor(-12.50, "usd"), -1250, "usd", "$-12.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("Amount: got %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("Currency: got %s, want %s", tt.money.Currency, tt.currency)
			}
			if tt.money.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.money.String(), tt.display)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return USD(2900).Add(USD(2500)) }, USD(5400)},
		{"Subtract", func() Money { return USD(6500).Subtract(USD(2500)) }, USD(4000)},
		{"Multiply", func() Money { return USD(2500).Multiply(3) }, USD(7500)},
		{"Divide", func() Money { return USD(900).Divide(3) }, USD(300)},
		{"Prorate half cycle", func() Money { return USD(2500).Prorate(15, 30) }, USD(1250)},
		{"Prorate truncates", func() Money { return USD(1000).Prorate(1, 3) }, USD(333)},
		{"Prorate full", func() Money { return USD(2000).Prorate(30, 30) }, USD(2000)},
		{"Prorate zero part", func() Money { return USD(2000).Prorate(0, 30) }, USD(0)},
		{"Complex", func() Money {
			return USD(2900).Add(USD(2500)).Multiply(2).Subtract(USD(2900))
		}, USD(7900)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.op()
			if !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

// Multiply-first keeps exact fractions exact: dividing first would lose
// the sub-cent remainder before scaling.
func TestMoneyProrateMultiplyFirst(t *testing.T) {
	got := USD(2500).Multiply(1).Prorate(15, 30)
	if !got.Equal(USD(1250)) {
		t.Errorf("Got %v, want %v", got, USD(1250))
	}

	divideFirst := USD(2500).Divide(30).Multiply(15)
	if divideFirst.Equal(got) {
		t.Errorf("expected divide-first to lose precision, both gave %v", got)
	}
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for currency mismatch")
		}
	}()

	// This should panic
	_ = USD(100).Add(CAD(100))
}

func TestMoneyDivisionByZero(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for division by zero")
		}
	}()

	// This should panic
	_ = USD(100).Divide(0)
}

func TestMoneyProrateZeroWhole(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for zero-length period")
		}
	}()

	_ = USD(100).Prorate(1, 0)
}

func TestMoneyComparison(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Money
		less    bool
		greater bool
		equal   bool
	}{
		{"Equal", USD(100), USD(100), false, false, true},
		{"Less", USD(50), USD(100), true, false, false},
		{"Greater", USD(200), USD(100), false, true, false},
		{"Zero equal", USD(0), Zero("usd"), false, false, true},
		{"Negative less", USD(-100), USD(100), true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.LessThan(tt.b); got != tt.less {
				t.Errorf("LessThan: got %v, want %v", got, tt.less)
			}
			if got := tt.a.GreaterThan(tt.b); got != tt.greater {
				t.Errorf("GreaterThan: got %v, want %v", got, tt.greater)
			}
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("Equal: got %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestMoneyPredicates(t *testing.T) {
	if !USD(0).IsZero() {
		t.Error("USD(0) should be zero")
	}
	if USD(1).IsZero() {
		t.Error("USD(1) should not be zero")
	}
	if !USD(1).IsPositive() {
		t.Error("USD(1) should be positive")
	}
	if USD(-1).IsPositive() {
		t.Error("USD(-1) should not be positive")
	}
}

func TestMoneySum(t *testing.T) {
	got := Sum(USD(2900), USD(2500), USD(6500))
	if !got.Equal(USD(11900)) {
		t.Errorf("Got %v, want %v", got, USD(11900))
	}

	empty := Sum()
	if !empty.IsZero() {
		t.Errorf("empty sum should be zero, got %v", empty)
	}
}

func TestMoneyFormatMajor(t *testing.T) {
	tests := []struct {
		money Money
		want  string
	}{
		{USD(2900), "29.00"},
		{USD(5), "0.05"},
		{USD(-6500), "-65.00"},
		{USD(0), "0.00"},
	}

	for _, tt := range tests {
		if got := tt.money.FormatMajor(); got != tt.want {
			t.Errorf("FormatMajor(%d): got %s, want %s", tt.money.Amount, got, tt.want)
		}
	}
}

func TestMoneyMarshalJSON(t *testing.T) {
	data, err := json.Marshal(USD(2900))
	if err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Amount != 2900 || decoded.Currency != "usd" || decoded.Display != "$29.00" {
		t.Errorf("unexpected JSON: %s", data)
	}
}
