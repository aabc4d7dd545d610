package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"invoicely-backend/internal/money"
)

// Invoice is the aggregate root: it owns its line items and derived totals,
// references a client and the issuing user, and moves through the status
// lifecycle. All mutation is all-or-nothing: validation and recomputation run
// on candidate state before any field changes.
type Invoice struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	ClientID    uuid.UUID `json:"client_id"`
	IssuerID    uuid.UUID `json:"issuer_id"`

	InvoiceNumber string    `json:"invoice_number"`
	Currency      string    `json:"currency"`
	IssueDate     time.Time `json:"issue_date"`
	DueDate       time.Time `json:"due_date"`
	Status        Status    `json:"status"`

	Items  []LineItem `json:"items"`
	Tax    TaxPolicy  `json:"-"`
	Totals Totals     `json:"totals"`

	Description string `json:"description,omitempty"`
	Notes       string `json:"notes,omitempty"`
	Terms       string `json:"terms,omitempty"`

	SentAt      *time.Time `json:"sent_at,omitempty"`
	ViewedAt    *time.Time `json:"viewed_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	OverdueAt   *time.Time `json:"overdue_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	RefundedAt  *time.Time `json:"refunded_at,omitempty"`

	// Version drives optimistic concurrency in the persistence layer.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewInvoiceParams carries everything needed to open a draft invoice.
type NewInvoiceParams struct {
	WorkspaceID   uuid.UUID
	ClientID      uuid.UUID
	IssuerID      uuid.UUID
	InvoiceNumber string
	Currency      string
	IssueDate     time.Time
	DueDate       time.Time
	Tax           TaxPolicy
	Discount      money.Money
	Description   string
	Notes         string
	Terms         string
}

// NewInvoice opens an invoice in DRAFT with zero line items.
func NewInvoice(p NewInvoiceParams) (*Invoice, error) {
	number := strings.TrimSpace(p.InvoiceNumber)
	if number == "" {
		return nil, ErrInvalidInvoiceNumber
	}
	if p.DueDate.Before(p.IssueDate) {
		return nil, fmt.Errorf("%w: due %s, issued %s", ErrInvalidDueDate,
			p.DueDate.Format("2006-01-02"), p.IssueDate.Format("2006-01-02"))
	}
	if p.ClientID == uuid.Nil {
		return nil, ErrClientNotFound
	}

	inv := &Invoice{
		ID:            uuid.New(),
		WorkspaceID:   p.WorkspaceID,
		ClientID:      p.ClientID,
		IssuerID:      p.IssuerID,
		InvoiceNumber: number,
		Currency:      strings.ToUpper(p.Currency),
		IssueDate:     p.IssueDate,
		DueDate:       p.DueDate,
		Status:        StatusDraft,
		Tax:           p.Tax,
		Description:   p.Description,
		Notes:         p.Notes,
		Terms:         p.Terms,
		Version:       1,
	}
	if inv.Tax == nil {
		inv.Tax = NoTax{}
	}

	discount := p.Discount
	if discount.Currency() == "" {
		discount = money.Zero(inv.Currency)
	}
	totals, err := ComputeTotals(inv.Currency, nil, inv.Tax, discount)
	if err != nil {
		return nil, err
	}
	inv.Totals = totals
	return inv, nil
}

func (inv *Invoice) requireDraft() error {
	if inv.Status != StatusDraft {
		return fmt.Errorf("%w: status %s", ErrInvoiceNotEditable, inv.Status)
	}
	return nil
}

// applyItems recomputes totals against candidate items and commits both only
// when the computation succeeds, keeping rejected mutations side-effect free.
func (inv *Invoice) applyItems(items []LineItem) error {
	totals, err := ComputeTotals(inv.Currency, items, inv.Tax, inv.Totals.DiscountAmount)
	if err != nil {
		return err
	}
	inv.Items = items
	inv.Totals = totals
	return nil
}

// AddLineItem appends a validated line item. DRAFT only.
func (inv *Invoice) AddLineItem(description string, quantity decimal.Decimal, unitPrice money.Money, notes string) (LineItem, error) {
	if err := inv.requireDraft(); err != nil {
		return LineItem{}, err
	}
	li, err := NewLineItem(description, quantity, unitPrice, notes)
	if err != nil {
		return LineItem{}, err
	}
	items := append(append([]LineItem(nil), inv.Items...), li)
	if err := inv.applyItems(items); err != nil {
		return LineItem{}, err
	}
	return li, nil
}

// UpdateLineItem replaces description, quantity, price and notes of an
// existing item and rederives its amount. DRAFT only.
func (inv *Invoice) UpdateLineItem(id uuid.UUID, description string, quantity decimal.Decimal, unitPrice money.Money, notes string) error {
	if err := inv.requireDraft(); err != nil {
		return err
	}
	idx := -1
	for i := range inv.Items {
		if inv.Items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrLineItemNotFound
	}
	updated := LineItem{
		ID:          id,
		Description: strings.TrimSpace(description),
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Notes:       notes,
	}
	if err := updated.validate(); err != nil {
		return err
	}
	updated.recompute()

	items := append([]LineItem(nil), inv.Items...)
	items[idx] = updated
	return inv.applyItems(items)
}

// RemoveLineItem deletes an item by id. DRAFT only.
func (inv *Invoice) RemoveLineItem(id uuid.UUID) error {
	if err := inv.requireDraft(); err != nil {
		return err
	}
	items := make([]LineItem, 0, len(inv.Items))
	found := false
	for _, li := range inv.Items {
		if li.ID == id {
			found = true
			continue
		}
		items = append(items, li)
	}
	if !found {
		return ErrLineItemNotFound
	}
	return inv.applyItems(items)
}

// ReplaceLineItems swaps the full item list in one step. Items must already
// be validated (built through NewLineItem). DRAFT only.
func (inv *Invoice) ReplaceLineItems(items []LineItem) error {
	if err := inv.requireDraft(); err != nil {
		return err
	}
	return inv.applyItems(append([]LineItem(nil), items...))
}

// Reschedule changes issue and due dates. DRAFT only.
func (inv *Invoice) Reschedule(issueDate, dueDate time.Time) error {
	if err := inv.requireDraft(); err != nil {
		return err
	}
	if dueDate.Before(issueDate) {
		return fmt.Errorf("%w: due %s, issued %s", ErrInvalidDueDate,
			dueDate.Format("2006-01-02"), issueDate.Format("2006-01-02"))
	}
	inv.IssueDate = issueDate
	inv.DueDate = dueDate
	return nil
}

// ChangeClient repoints the invoice at another client. DRAFT only.
func (inv *Invoice) ChangeClient(clientID uuid.UUID) error {
	if err := inv.requireDraft(); err != nil {
		return err
	}
	if clientID == uuid.Nil {
		return ErrClientNotFound
	}
	inv.ClientID = clientID
	return nil
}

// SetDiscount replaces the invoice discount. DRAFT only.
func (inv *Invoice) SetDiscount(discount money.Money) error {
	if err := inv.requireDraft(); err != nil {
		return err
	}
	totals, err := ComputeTotals(inv.Currency, inv.Items, inv.Tax, discount)
	if err != nil {
		return err
	}
	inv.Totals = totals
	return nil
}

// SetTaxPolicy replaces the tax policy. DRAFT only.
func (inv *Invoice) SetTaxPolicy(tax TaxPolicy) error {
	if err := inv.requireDraft(); err != nil {
		return err
	}
	if tax == nil {
		tax = NoTax{}
	}
	totals, err := ComputeTotals(inv.Currency, inv.Items, tax, inv.Totals.DiscountAmount)
	if err != nil {
		return err
	}
	inv.Tax = tax
	inv.Totals = totals
	return nil
}

// RecomputeTotals rederives every item amount and the invoice totals.
// DRAFT only; totals are immutable in every other status.
func (inv *Invoice) RecomputeTotals() error {
	if err := inv.requireDraft(); err != nil {
		return err
	}
	items := append([]LineItem(nil), inv.Items...)
	for i := range items {
		items[i].recompute()
	}
	return inv.applyItems(items)
}

// Transition moves the invoice to a new status, applying the timestamp side
// effect of the edge. Illegal edges fail with a TransitionError naming both
// states. Revise (back to DRAFT) is refused once a payment was recorded and
// clears the send/view/overdue marks.
func (inv *Invoice) Transition(to Status, now time.Time) error {
	if !to.Valid() {
		return &TransitionError{From: inv.Status, To: to}
	}
	if !CanTransition(inv.Status, to) {
		return &TransitionError{From: inv.Status, To: to}
	}
	if to == StatusDraft {
		if inv.PaidAt != nil {
			return &TransitionError{From: inv.Status, To: to}
		}
		inv.SentAt = nil
		inv.ViewedAt = nil
		inv.OverdueAt = nil
		inv.Status = StatusDraft
		return nil
	}
	// At least one line item before a draft goes out. Cancelling is exempt:
	// an abandoned empty draft is still cancellable.
	if inv.Status == StatusDraft && to != StatusCancelled && len(inv.Items) == 0 {
		return ErrNoLineItems
	}

	ts := now
	switch to {
	case StatusSent:
		inv.SentAt = &ts
	case StatusViewed:
		inv.ViewedAt = &ts
	case StatusPaid:
		inv.PaidAt = &ts
	case StatusOverdue:
		inv.OverdueAt = &ts
	case StatusCancelled:
		inv.CancelledAt = &ts
	case StatusRefunded:
		inv.RefundedAt = &ts
	}
	inv.Status = to
	return nil
}

// MarkOverdueIfDue applies the pure overdue decision to this invoice.
// Returns true when a transition happened.
func (inv *Invoice) MarkOverdueIfDue(now time.Time) (bool, error) {
	if !IsOverdue(inv.Status, inv.DueDate, now) {
		return false, nil
	}
	if err := inv.Transition(StatusOverdue, now); err != nil {
		return false, err
	}
	return true, nil
}
