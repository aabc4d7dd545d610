// Package money provides an exact-decimal monetary value paired with an
// ISO 4217 currency code. Amounts are never stored or compared as binary
// floating point; all arithmetic goes through shopspring/decimal.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrCurrencyMismatch is returned when arithmetic or comparison is
	// attempted between two values of different currencies.
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrInvalidAmount is returned for unparseable amounts or for negative
	// amounts where the domain requires non-negative values.
	ErrInvalidAmount = errors.New("invalid amount")
)

// minorDigits maps currency codes to their minor-unit digit count.
// Currencies not listed here use two digits.
var minorDigits = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"BHD": 3,
	"KWD": 3,
	"OMR": 3,
	"TND": 3,
}

// symbols for display formatting. Unknown currencies fall back to the code.
var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"INR": "₹",
	"JPY": "¥",
	"AUD": "A$",
	"CAD": "C$",
}

// Money is an exact decimal amount in a single currency.
// The zero value is not usable; construct via New, Parse, FromMinorUnits or Zero.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// MinorDigits returns the number of minor-unit digits for a currency code.
func MinorDigits(currency string) int32 {
	if d, ok := minorDigits[currency]; ok {
		return d
	}
	return 2
}

func normalizeCurrency(currency string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(currency))
	if len(c) != 3 {
		return "", fmt.Errorf("%w: currency code %q", ErrInvalidAmount, currency)
	}
	return c, nil
}

// New builds a Money from a decimal amount, rounded to the currency's
// minor-unit digits.
func New(amount decimal.Decimal, currency string) (Money, error) {
	c, err := normalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return Money{amount: amount.Round(MinorDigits(c)), currency: c}, nil
}

// Parse builds a Money from a decimal string such as "12.34".
func Parse(s, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return New(d, currency)
}

// ParseNonNegative is Parse with a non-negative constraint, for fields like
// unit price and tax where the domain forbids negative values.
func ParseNonNegative(s, currency string) (Money, error) {
	m, err := Parse(s, currency)
	if err != nil {
		return Money{}, err
	}
	if m.IsNegative() {
		return Money{}, fmt.Errorf("%w: %q must not be negative", ErrInvalidAmount, s)
	}
	return m, nil
}

// FromMinorUnits builds a Money from integer minor units (e.g. cents).
func FromMinorUnits(units int64, currency string) (Money, error) {
	c, err := normalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return Money{amount: decimal.New(units, -MinorDigits(c)), currency: c}, nil
}

// Zero returns a zero amount in the given currency. Panics on an invalid
// code; callers pass validated invoice currencies.
func Zero(currency string) Money {
	c, err := normalizeCurrency(currency)
	if err != nil {
		panic(err)
	}
	return Money{amount: decimal.Zero, currency: c}
}

// Amount returns the exact decimal value.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the ISO 4217 code.
func (m Money) Currency() string { return m.currency }

func (m Money) sameCurrency(o Money) error {
	if m.currency != o.currency {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.currency, o.currency)
	}
	return nil
}

// Add returns m + o. Fails if currencies differ.
func (m Money) Add(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(o.amount), currency: m.currency}, nil
}

// Sub returns m - o. Fails if currencies differ.
func (m Money) Sub(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(o.amount), currency: m.currency}, nil
}

// MulQuantity returns m × q rounded to the currency's minor-unit digits,
// half-up. Used for line item amount derivation.
func (m Money) MulQuantity(q decimal.Decimal) Money {
	return Money{
		amount:   m.amount.Mul(q).Round(MinorDigits(m.currency)),
		currency: m.currency,
	}
}

// MulRate returns m × rate rounded to minor-unit digits (rate as a fraction,
// e.g. 0.19 for 19%).
func (m Money) MulRate(rate decimal.Decimal) Money {
	return m.MulQuantity(rate)
}

// Cmp compares two amounts: -1 if m < o, 0 if equal, 1 if m > o.
func (m Money) Cmp(o Money) (int, error) {
	if err := m.sameCurrency(o); err != nil {
		return 0, err
	}
	return m.amount.Cmp(o.amount), nil
}

// Equal reports whether both currency and amount match exactly.
func (m Money) Equal(o Money) bool {
	return m.currency == o.currency && m.amount.Equal(o.amount)
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// MinorUnits returns the amount as integer minor units.
func (m Money) MinorUnits() int64 {
	return m.amount.Shift(MinorDigits(m.currency)).Round(0).IntPart()
}

// StringFixed renders the bare amount with the currency's minor-unit digits,
// e.g. "32.50". This is the storage representation.
func (m Money) StringFixed() string {
	return m.amount.StringFixed(MinorDigits(m.currency))
}

// String renders "USD 32.50".
func (m Money) String() string {
	return m.currency + " " + m.StringFixed()
}

// Display renders a symbol-prefixed string for UI and documents, e.g.
// "$32.50". The stored and compared value is always the exact decimal.
func (m Money) Display() string {
	if sym, ok := symbols[m.currency]; ok {
		return sym + m.StringFixed()
	}
	return m.String()
}

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// MarshalJSON encodes the amount as a decimal string, never a float.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.StringFixed(), Currency: m.currency})
}

// UnmarshalJSON decodes the {"amount","currency"} form.
func (m *Money) UnmarshalJSON(b []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := Parse(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Sum adds a sequence of values, all of which must share a currency.
// An empty sequence yields zero in the given currency.
func Sum(currency string, values ...Money) (Money, error) {
	total := Zero(currency)
	for _, v := range values {
		var err error
		total, err = total.Add(v)
		if err != nil {
			return Money{}, err
		}
	}
	return total, nil
}
