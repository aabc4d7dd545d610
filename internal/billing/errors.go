package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDiscount is returned when a discount exceeds subtotal plus tax.
	ErrInvalidDiscount = errors.New("discount exceeds subtotal plus tax")

	// ErrInvalidInvoiceTotals is returned when a computed total would be
	// negative. Totals are never silently clamped.
	ErrInvalidInvoiceTotals = errors.New("invoice total would be negative")

	// ErrInvoiceNotEditable is returned for line item or totals mutation
	// outside DRAFT status.
	ErrInvoiceNotEditable = errors.New("invoice not editable outside draft")

	// ErrStaleVersion is returned when a save or transition carries a version
	// that no longer matches the stored invoice.
	ErrStaleVersion = errors.New("invoice version is stale")

	// ErrClientNotFound is returned when an invoice references a client that
	// cannot be resolved in its workspace.
	ErrClientNotFound = errors.New("client not found")

	// ErrDuplicateInvoiceNumber is returned when an invoice number already
	// exists in the workspace.
	ErrDuplicateInvoiceNumber = errors.New("duplicate invoice number")

	// ErrNoLineItems is returned when an invoice attempts to leave DRAFT
	// without any line items.
	ErrNoLineItems = errors.New("invoice has no line items")

	// ErrLineItemNotFound is returned when updating or removing an unknown
	// line item.
	ErrLineItemNotFound = errors.New("line item not found")

	// ErrInvalidLineItem is returned for empty descriptions or non-positive
	// quantity.
	ErrInvalidLineItem = errors.New("invalid line item")

	// ErrInvalidDueDate is returned when dueDate precedes issueDate.
	ErrInvalidDueDate = errors.New("due date precedes issue date")

	// ErrInvalidInvoiceNumber is returned for an empty invoice number.
	ErrInvalidInvoiceNumber = errors.New("invoice number must not be empty")
)

// TransitionError reports an illegal status transition, naming both states.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal status transition: %s -> %s", e.From, e.To)
}

// IsIllegalTransition reports whether err is a TransitionError.
func IsIllegalTransition(err error) bool {
	var te *TransitionError
	return errors.As(err, &te)
}
