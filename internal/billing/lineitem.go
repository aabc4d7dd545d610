package billing

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"invoicely-backend/internal/money"
)

// LineItem is a single billable row owned by an invoice. Amount is always
// derived from quantity and unit price; it is never settable by callers.
type LineItem struct {
	ID          uuid.UUID   `json:"id"`
	Description string      `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   money.Money `json:"unit_price"`
	Amount      money.Money `json:"amount"`
	Notes       string      `json:"notes,omitempty"`
}

// NewLineItem validates and builds a line item with its derived amount.
func NewLineItem(description string, quantity decimal.Decimal, unitPrice money.Money, notes string) (LineItem, error) {
	li := LineItem{
		ID:          uuid.New(),
		Description: strings.TrimSpace(description),
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Notes:       notes,
	}
	if err := li.validate(); err != nil {
		return LineItem{}, err
	}
	li.recompute()
	return li, nil
}

func (li *LineItem) validate() error {
	if li.Description == "" {
		return fmt.Errorf("%w: description must not be empty", ErrInvalidLineItem)
	}
	if !li.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive, got %s", ErrInvalidLineItem, li.Quantity)
	}
	if li.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit price must not be negative", money.ErrInvalidAmount)
	}
	return nil
}

// recompute rederives amount = round(quantity × unitPrice) at the currency's
// minor unit. Called on construction and on every quantity/price change.
func (li *LineItem) recompute() {
	li.Amount = li.UnitPrice.MulQuantity(li.Quantity)
}
