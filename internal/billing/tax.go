package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"invoicely-backend/internal/money"
)

// TaxPolicy derives the tax amount for an invoice from its subtotal.
// Two modes exist: a rate applied to the subtotal (FlatRate) and an
// externally supplied absolute value (AbsoluteTax), which is the
// source-parity mode. NoTax is the default.
type TaxPolicy interface {
	Apply(subtotal money.Money) (money.Money, error)
}

// NoTax yields a zero tax amount.
type NoTax struct{}

func (NoTax) Apply(subtotal money.Money) (money.Money, error) {
	return money.Zero(subtotal.Currency()), nil
}

// FlatRate applies a fractional rate to the subtotal, e.g. 0.19 for 19%.
type FlatRate struct {
	Rate decimal.Decimal
}

func (p FlatRate) Apply(subtotal money.Money) (money.Money, error) {
	if p.Rate.IsNegative() {
		return money.Money{}, fmt.Errorf("%w: tax rate %s", money.ErrInvalidAmount, p.Rate)
	}
	return subtotal.MulRate(p.Rate), nil
}

// AbsoluteTax uses a precomputed tax amount as-is. The amount must be
// non-negative and in the invoice currency.
type AbsoluteTax struct {
	Amount money.Money
}

func (p AbsoluteTax) Apply(subtotal money.Money) (money.Money, error) {
	if p.Amount.IsNegative() {
		return money.Money{}, fmt.Errorf("%w: tax amount must not be negative", money.ErrInvalidAmount)
	}
	if p.Amount.Currency() != subtotal.Currency() {
		return money.Money{}, fmt.Errorf("%w: tax %s on %s invoice",
			money.ErrCurrencyMismatch, p.Amount.Currency(), subtotal.Currency())
	}
	return p.Amount, nil
}
