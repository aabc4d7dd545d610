package billing

import (
	"fmt"

	"invoicely-backend/internal/money"
)

// Totals holds the derived monetary summary of an invoice. Callers never set
// these fields directly; they come out of ComputeTotals.
type Totals struct {
	Subtotal       money.Money `json:"subtotal"`
	TaxAmount      money.Money `json:"tax_amount"`
	DiscountAmount money.Money `json:"discount_amount"`
	Total          money.Money `json:"total"`
}

// ComputeTotals aggregates line items into invoice totals:
//
//	subtotal = Σ amount[i]
//	taxAmount = tax.Apply(subtotal)
//	total = subtotal + taxAmount − discount
//
// Item order is preserved for display but does not affect the result. Every
// item must be in the invoice currency. A discount above subtotal plus tax
// fails with ErrInvalidDiscount; a negative total fails with
// ErrInvalidInvoiceTotals rather than clamping.
func ComputeTotals(currency string, items []LineItem, tax TaxPolicy, discount money.Money) (Totals, error) {
	if tax == nil {
		tax = NoTax{}
	}

	subtotal := money.Zero(currency)
	for i := range items {
		var err error
		subtotal, err = subtotal.Add(items[i].Amount)
		if err != nil {
			return Totals{}, fmt.Errorf("line item %q: %w", items[i].Description, err)
		}
	}

	taxAmount, err := tax.Apply(subtotal)
	if err != nil {
		return Totals{}, err
	}

	if discount.IsNegative() {
		return Totals{}, fmt.Errorf("%w: discount must not be negative", money.ErrInvalidAmount)
	}
	taxed, err := subtotal.Add(taxAmount)
	if err != nil {
		return Totals{}, err
	}
	if cmp, err := discount.Cmp(taxed); err != nil {
		return Totals{}, err
	} else if cmp > 0 {
		return Totals{}, fmt.Errorf("%w: %s > %s", ErrInvalidDiscount, discount, taxed)
	}

	total, err := taxed.Sub(discount)
	if err != nil {
		return Totals{}, err
	}
	if total.IsNegative() {
		return Totals{}, fmt.Errorf("%w: %s", ErrInvalidInvoiceTotals, total)
	}

	return Totals{
		Subtotal:       subtotal,
		TaxAmount:      taxAmount,
		DiscountAmount: discount,
		Total:          total,
	}, nil
}
