package money

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in       string
		currency string
		out      string
		ok       bool
	}{
		{"12.34", "USD", "12.34", true},
		{" 12.34 ", "usd", "12.34", true},
		{"12.345", "USD", "12.35", true}, // rounds half-up to minor digits
		{"12.344", "USD", "12.34", true},
		{"100", "JPY", "100", true},
		{"100.4", "JPY", "100", true}, // zero minor digits
		{"1.2345", "KWD", "1.235", true},
		{"-5.00", "USD", "-5.00", true},
		{"", "USD", "", false},
		{"abc", "USD", "", false},
		{"1.00", "US", "", false},
		{"1.00", "", "", false},
	}
	for _, tc := range cases {
		m, err := Parse(tc.in, tc.currency)
		if tc.ok {
			if err != nil {
				t.Fatalf("Parse(%q, %q): unexpected error %v", tc.in, tc.currency, err)
			}
			if got := m.StringFixed(); got != tc.out {
				t.Fatalf("Parse(%q, %q) = %s, want %s", tc.in, tc.currency, got, tc.out)
			}
		} else if err == nil {
			t.Fatalf("Parse(%q, %q): expected error", tc.in, tc.currency)
		}
	}
}

func TestParseNonNegative(t *testing.T) {
	if _, err := ParseNonNegative("-0.01", "USD"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := ParseNonNegative("0.00", "USD"); err != nil {
		t.Fatalf("zero should be allowed: %v", err)
	}
}

func TestArithmetic(t *testing.T) {
	a, _ := Parse("10.00", "USD")
	b, _ := Parse("2.50", "USD")

	sum, err := a.Add(b)
	if err != nil || sum.StringFixed() != "12.50" {
		t.Fatalf("Add = %v, %v", sum, err)
	}
	diff, err := a.Sub(b)
	if err != nil || diff.StringFixed() != "7.50" {
		t.Fatalf("Sub = %v, %v", diff, err)
	}

	eur, _ := Parse("1.00", "EUR")
	if _, err := a.Add(eur); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("cross-currency Add: expected ErrCurrencyMismatch, got %v", err)
	}
	if _, err := a.Cmp(eur); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("cross-currency Cmp: expected ErrCurrencyMismatch, got %v", err)
	}
}

func TestMulQuantity(t *testing.T) {
	price, _ := Parse("2.50", "USD")
	qty := decimal.RequireFromString("3")
	if got := price.MulQuantity(qty).StringFixed(); got != "7.50" {
		t.Fatalf("2.50 x 3 = %s", got)
	}

	// Rounding at the minor unit: 0.10 x 0.5 = 0.05, 0.333... cases round half-up.
	price, _ = Parse("1.11", "USD")
	qty = decimal.RequireFromString("1.5")
	if got := price.MulQuantity(qty).StringFixed(); got != "1.67" {
		t.Fatalf("1.11 x 1.5 = %s, want 1.67", got)
	}
}

func TestMinorUnits(t *testing.T) {
	m, _ := Parse("32.50", "USD")
	if m.MinorUnits() != 3250 {
		t.Fatalf("MinorUnits = %d", m.MinorUnits())
	}
	j, _ := Parse("480", "JPY")
	if j.MinorUnits() != 480 {
		t.Fatalf("JPY MinorUnits = %d", j.MinorUnits())
	}
	back, err := FromMinorUnits(3250, "USD")
	if err != nil || !back.Equal(m) {
		t.Fatalf("FromMinorUnits round trip = %v, %v", back, err)
	}
}

func TestDisplay(t *testing.T) {
	m, _ := Parse("32.50", "USD")
	if m.Display() != "$32.50" {
		t.Fatalf("Display = %s", m.Display())
	}
	chf, _ := Parse("9.90", "CHF")
	if chf.Display() != "CHF 9.90" {
		t.Fatalf("unknown symbol fallback = %s", chf.Display())
	}
}

func TestJSONRoundTrip(t *testing.T) {
	m, _ := Parse("19.99", "EUR")
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"amount":"19.99","currency":"EUR"}` {
		t.Fatalf("marshal = %s", b)
	}
	var out Money
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if !out.Equal(m) {
		t.Fatalf("round trip mismatch: %v vs %v", out, m)
	}
}

func TestSum(t *testing.T) {
	a, _ := Parse("20.00", "USD")
	b, _ := Parse("5.00", "USD")
	c, _ := Parse("7.50", "USD")

	total, err := Sum("USD", a, b, c)
	if err != nil || total.StringFixed() != "32.50" {
		t.Fatalf("Sum = %v, %v", total, err)
	}

	empty, err := Sum("USD")
	if err != nil || !empty.IsZero() {
		t.Fatalf("empty Sum = %v, %v", empty, err)
	}

	eur, _ := Parse("1.00", "EUR")
	if _, err := Sum("USD", a, eur); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("mixed Sum: expected ErrCurrencyMismatch, got %v", err)
	}
}
