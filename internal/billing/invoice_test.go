package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func draftInvoice(t *testing.T) *Invoice {
	t.Helper()
	inv, err := NewInvoice(NewInvoiceParams{
		WorkspaceID:   uuid.New(),
		ClientID:      uuid.New(),
		IssuerID:      uuid.New(),
		InvoiceNumber: "INV-000042",
		Currency:      "USD",
		IssueDate:     testNow,
		DueDate:       testNow.AddDate(0, 0, 14),
	})
	if err != nil {
		t.Fatal(err)
	}
	return inv
}

func sentInvoice(t *testing.T) *Invoice {
	t.Helper()
	inv := draftInvoice(t)
	if _, err := inv.AddLineItem("consulting", decimal.NewFromInt(2), usd(t, "10.00"), ""); err != nil {
		t.Fatal(err)
	}
	if err := inv.Transition(StatusSent, testNow); err != nil {
		t.Fatal(err)
	}
	return inv
}

func TestNewInvoiceValidation(t *testing.T) {
	base := NewInvoiceParams{
		WorkspaceID:   uuid.New(),
		ClientID:      uuid.New(),
		IssuerID:      uuid.New(),
		InvoiceNumber: "INV-000001",
		Currency:      "USD",
		IssueDate:     testNow,
		DueDate:       testNow,
	}

	if _, err := NewInvoice(base); err != nil {
		t.Fatalf("dueDate == issueDate must be allowed: %v", err)
	}

	p := base
	p.InvoiceNumber = "  "
	if _, err := NewInvoice(p); !errors.Is(err, ErrInvalidInvoiceNumber) {
		t.Errorf("blank number: got %v", err)
	}

	p = base
	p.DueDate = testNow.AddDate(0, 0, -1)
	if _, err := NewInvoice(p); !errors.Is(err, ErrInvalidDueDate) {
		t.Errorf("due before issue: got %v", err)
	}

	p = base
	p.ClientID = uuid.Nil
	if _, err := NewInvoice(p); !errors.Is(err, ErrClientNotFound) {
		t.Errorf("nil client: got %v", err)
	}
}

func TestLineItemMutationRequiresDraft(t *testing.T) {
	inv := sentInvoice(t)
	id := inv.Items[0].ID

	if _, err := inv.AddLineItem("extra", decimal.NewFromInt(1), usd(t, "1.00"), ""); !errors.Is(err, ErrInvoiceNotEditable) {
		t.Errorf("add on SENT: got %v", err)
	}
	if err := inv.UpdateLineItem(id, "extra", decimal.NewFromInt(1), usd(t, "1.00"), ""); !errors.Is(err, ErrInvoiceNotEditable) {
		t.Errorf("update on SENT: got %v", err)
	}
	if err := inv.RemoveLineItem(id); !errors.Is(err, ErrInvoiceNotEditable) {
		t.Errorf("remove on SENT: got %v", err)
	}
	if err := inv.SetDiscount(usd(t, "1.00")); !errors.Is(err, ErrInvoiceNotEditable) {
		t.Errorf("discount on SENT: got %v", err)
	}
	if err := inv.RecomputeTotals(); !errors.Is(err, ErrInvoiceNotEditable) {
		t.Errorf("recompute on SENT: got %v", err)
	}
}

func TestLineItemMutationRecomputesTotals(t *testing.T) {
	inv := draftInvoice(t)

	li, err := inv.AddLineItem("design", decimal.NewFromInt(2), usd(t, "10.00"), "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := inv.AddLineItem("hosting", decimal.NewFromInt(1), usd(t, "5.00"), ""); err != nil {
		t.Fatal(err)
	}
	if got := inv.Totals.Total.StringFixed(); got != "25.00" {
		t.Fatalf("total after adds = %s", got)
	}

	if err := inv.UpdateLineItem(li.ID, "design", decimal.NewFromInt(3), usd(t, "10.00"), ""); err != nil {
		t.Fatal(err)
	}
	if got := inv.Totals.Total.StringFixed(); got != "35.00" {
		t.Fatalf("total after update = %s", got)
	}

	if err := inv.RemoveLineItem(li.ID); err != nil {
		t.Fatal(err)
	}
	if got := inv.Totals.Total.StringFixed(); got != "5.00" {
		t.Fatalf("total after remove = %s", got)
	}

	if err := inv.RemoveLineItem(uuid.New()); !errors.Is(err, ErrLineItemNotFound) {
		t.Errorf("remove unknown: got %v", err)
	}
}

func TestRejectedMutationLeavesInvoiceUnchanged(t *testing.T) {
	inv := draftInvoice(t)
	if _, err := inv.AddLineItem("design", decimal.NewFromInt(1), usd(t, "10.00"), ""); err != nil {
		t.Fatal(err)
	}
	before := inv.Totals

	// Excessive discount fails and must not touch totals or state.
	if err := inv.SetDiscount(usd(t, "50.00")); !errors.Is(err, ErrInvalidDiscount) {
		t.Fatalf("expected ErrInvalidDiscount, got %v", err)
	}
	if !inv.Totals.Total.Equal(before.Total) || !inv.Totals.DiscountAmount.Equal(before.DiscountAmount) {
		t.Errorf("totals changed after rejected discount: %+v", inv.Totals)
	}

	// Invalid item update leaves items and totals untouched.
	id := inv.Items[0].ID
	if err := inv.UpdateLineItem(id, "", decimal.NewFromInt(1), usd(t, "10.00"), ""); !errors.Is(err, ErrInvalidLineItem) {
		t.Fatalf("expected ErrInvalidLineItem, got %v", err)
	}
	if inv.Items[0].Description != "design" || !inv.Totals.Total.Equal(before.Total) {
		t.Errorf("invoice changed after rejected update")
	}
}

func TestTransitionHappyPathAndTimestamps(t *testing.T) {
	inv := sentInvoice(t)
	if inv.SentAt == nil || !inv.SentAt.Equal(testNow) {
		t.Fatalf("sentAt not set: %v", inv.SentAt)
	}

	viewTime := testNow.Add(time.Hour)
	if err := inv.Transition(StatusViewed, viewTime); err != nil {
		t.Fatal(err)
	}
	if inv.ViewedAt == nil || !inv.ViewedAt.Equal(viewTime) {
		t.Fatalf("viewedAt not set: %v", inv.ViewedAt)
	}

	payTime := viewTime.Add(time.Hour)
	if err := inv.Transition(StatusPaid, payTime); err != nil {
		t.Fatal(err)
	}
	if inv.PaidAt == nil || !inv.PaidAt.Equal(payTime) {
		t.Fatalf("paidAt not set: %v", inv.PaidAt)
	}

	if err := inv.Transition(StatusRefunded, payTime.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if inv.RefundedAt == nil {
		t.Fatal("refundedAt not set")
	}

	// REFUNDED is terminal.
	for _, to := range AllStatuses {
		err := inv.Transition(to, payTime)
		var te *TransitionError
		if !errors.As(err, &te) {
			t.Errorf("transition out of REFUNDED to %s: got %v", to, err)
		}
	}
}

func TestTransitionIllegalEdges(t *testing.T) {
	inv := draftInvoice(t)
	if _, err := inv.AddLineItem("x", decimal.NewFromInt(1), usd(t, "1.00"), ""); err != nil {
		t.Fatal(err)
	}

	for _, to := range []Status{StatusViewed, StatusPaid, StatusOverdue, StatusRefunded} {
		err := inv.Transition(to, testNow)
		var te *TransitionError
		if !errors.As(err, &te) {
			t.Fatalf("DRAFT -> %s: expected TransitionError, got %v", to, err)
		}
		if te.From != StatusDraft || te.To != to {
			t.Errorf("TransitionError names %s -> %s", te.From, te.To)
		}
	}
	if inv.Status != StatusDraft {
		t.Fatalf("status changed after rejected transitions: %s", inv.Status)
	}

	if err := inv.Transition(Status("PENDING"), testNow); !IsIllegalTransition(err) {
		t.Errorf("unknown target status: got %v", err)
	}
}

func TestLeavingDraftRequiresLineItems(t *testing.T) {
	inv := draftInvoice(t)
	if err := inv.Transition(StatusSent, testNow); !errors.Is(err, ErrNoLineItems) {
		t.Errorf("empty draft send: got %v", err)
	}
}

func TestCancelEmptyDraft(t *testing.T) {
	inv := draftInvoice(t)
	if err := inv.Transition(StatusCancelled, testNow); err != nil {
		t.Fatalf("cancel empty draft: %v", err)
	}
	if inv.Status != StatusCancelled {
		t.Errorf("status = %s, want CANCELLED", inv.Status)
	}
	if inv.CancelledAt == nil || !inv.CancelledAt.Equal(testNow) {
		t.Errorf("cancelledAt = %v, want %v", inv.CancelledAt, testNow)
	}
}

func TestReviseClearsMarksAndGuardsPayment(t *testing.T) {
	inv := sentInvoice(t)
	if err := inv.Transition(StatusViewed, testNow); err != nil {
		t.Fatal(err)
	}

	if err := inv.Transition(StatusDraft, testNow); err != nil {
		t.Fatal(err)
	}
	if inv.Status != StatusDraft || inv.SentAt != nil || inv.ViewedAt != nil || inv.OverdueAt != nil {
		t.Fatalf("revise did not reset marks: %+v", inv)
	}

	// Totals are mutable again after revise.
	if err := inv.SetDiscount(usd(t, "5.00")); err != nil {
		t.Fatalf("draft after revise should be editable: %v", err)
	}

	// Once paid, revise is refused.
	if err := inv.Transition(StatusSent, testNow); err != nil {
		t.Fatal(err)
	}
	if err := inv.Transition(StatusPaid, testNow); err != nil {
		t.Fatal(err)
	}
	if err := inv.Transition(StatusDraft, testNow); !IsIllegalTransition(err) {
		t.Errorf("revise after payment: got %v", err)
	}
}

func TestOverdueFlow(t *testing.T) {
	inv := sentInvoice(t)
	inv.DueDate = testNow.AddDate(0, 0, -2)

	changed, err := inv.MarkOverdueIfDue(testNow)
	if err != nil || !changed {
		t.Fatalf("MarkOverdueIfDue = %v, %v", changed, err)
	}
	if inv.Status != StatusOverdue || inv.OverdueAt == nil {
		t.Fatalf("overdue not applied: %+v", inv.Status)
	}

	// Late payment is still recordable.
	if err := inv.Transition(StatusPaid, testNow); err != nil {
		t.Fatalf("OVERDUE -> PAID: %v", err)
	}

	// Not yet due: no change.
	fresh := sentInvoice(t)
	fresh.DueDate = testNow.AddDate(0, 0, 1)
	changed, err = fresh.MarkOverdueIfDue(testNow)
	if err != nil || changed {
		t.Fatalf("future due date marked overdue: %v, %v", changed, err)
	}
	if fresh.Status != StatusSent {
		t.Fatalf("status = %s", fresh.Status)
	}
}
