package billing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"invoicely-backend/internal/money"
)

func usd(t *testing.T, s string) money.Money {
	t.Helper()
	m, err := money.Parse(s, "USD")
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func item(t *testing.T, desc, qty, price string) LineItem {
	t.Helper()
	li, err := NewLineItem(desc, decimal.RequireFromString(qty), usd(t, price), "")
	if err != nil {
		t.Fatal(err)
	}
	return li
}

func TestComputeTotalsExample(t *testing.T) {
	// (2, $10.00), (1, $5.00), (3, $2.50) with 0% tax and $0 discount.
	items := []LineItem{
		item(t, "design", "2", "10.00"),
		item(t, "hosting", "1", "5.00"),
		item(t, "support", "3", "2.50"),
	}
	totals, err := ComputeTotals("USD", items, NoTax{}, usd(t, "0"))
	if err != nil {
		t.Fatal(err)
	}
	if got := totals.Subtotal.StringFixed(); got != "32.50" {
		t.Errorf("subtotal = %s, want 32.50", got)
	}
	if got := totals.Total.StringFixed(); got != "32.50" {
		t.Errorf("total = %s, want 32.50", got)
	}
	if !totals.TaxAmount.IsZero() || !totals.DiscountAmount.IsZero() {
		t.Errorf("tax/discount should be zero: %v / %v", totals.TaxAmount, totals.DiscountAmount)
	}
}

func TestComputeTotalsOrderIndependent(t *testing.T) {
	a := item(t, "a", "2", "10.00")
	b := item(t, "b", "1", "5.00")
	c := item(t, "c", "3", "2.50")

	t1, err := ComputeTotals("USD", []LineItem{a, b, c}, NoTax{}, usd(t, "0"))
	if err != nil {
		t.Fatal(err)
	}
	t2, err := ComputeTotals("USD", []LineItem{c, a, b}, NoTax{}, usd(t, "0"))
	if err != nil {
		t.Fatal(err)
	}
	if !t1.Subtotal.Equal(t2.Subtotal) || !t1.Total.Equal(t2.Total) {
		t.Errorf("totals depend on item order: %v vs %v", t1, t2)
	}
}

func TestComputeTotalsFlatRate(t *testing.T) {
	items := []LineItem{item(t, "consulting", "10", "100.00")}
	totals, err := ComputeTotals("USD", items, FlatRate{Rate: decimal.RequireFromString("0.19")}, usd(t, "0"))
	if err != nil {
		t.Fatal(err)
	}
	if got := totals.TaxAmount.StringFixed(); got != "190.00" {
		t.Errorf("tax = %s, want 190.00", got)
	}
	if got := totals.Total.StringFixed(); got != "1190.00" {
		t.Errorf("total = %s, want 1190.00", got)
	}
}

func TestComputeTotalsAbsoluteTax(t *testing.T) {
	items := []LineItem{item(t, "consulting", "1", "100.00")}
	totals, err := ComputeTotals("USD", items, AbsoluteTax{Amount: usd(t, "7.25")}, usd(t, "0"))
	if err != nil {
		t.Fatal(err)
	}
	if got := totals.Total.StringFixed(); got != "107.25" {
		t.Errorf("total = %s, want 107.25", got)
	}

	eur, _ := money.Parse("7.25", "EUR")
	_, err = ComputeTotals("USD", items, AbsoluteTax{Amount: eur}, usd(t, "0"))
	if !errors.Is(err, money.ErrCurrencyMismatch) {
		t.Errorf("cross-currency tax: expected ErrCurrencyMismatch, got %v", err)
	}
}

func TestComputeTotalsDiscount(t *testing.T) {
	items := []LineItem{item(t, "consulting", "1", "100.00")}

	totals, err := ComputeTotals("USD", items, NoTax{}, usd(t, "25.00"))
	if err != nil {
		t.Fatal(err)
	}
	if got := totals.Total.StringFixed(); got != "75.00" {
		t.Errorf("total = %s, want 75.00", got)
	}

	// Discount equal to subtotal+tax is allowed, total is exactly zero.
	totals, err = ComputeTotals("USD", items, NoTax{}, usd(t, "100.00"))
	if err != nil {
		t.Fatal(err)
	}
	if !totals.Total.IsZero() {
		t.Errorf("total = %s, want 0.00", totals.Total.StringFixed())
	}

	// Discount above subtotal+tax fails, never clamps.
	_, err = ComputeTotals("USD", items, NoTax{}, usd(t, "100.01"))
	if !errors.Is(err, ErrInvalidDiscount) {
		t.Errorf("expected ErrInvalidDiscount, got %v", err)
	}

	// Negative discount is an invalid amount, not a discount rule violation.
	_, err = ComputeTotals("USD", items, NoTax{}, usd(t, "-1.00"))
	if !errors.Is(err, money.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestComputeTotalsEmpty(t *testing.T) {
	totals, err := ComputeTotals("USD", nil, nil, usd(t, "0"))
	if err != nil {
		t.Fatal(err)
	}
	if !totals.Subtotal.IsZero() || !totals.Total.IsZero() {
		t.Errorf("empty invoice totals should be zero: %+v", totals)
	}
}

func TestComputeTotalsCurrencyMismatch(t *testing.T) {
	eurPrice, _ := money.Parse("10.00", "EUR")
	li, err := NewLineItem("imported", decimal.NewFromInt(1), eurPrice, "")
	if err != nil {
		t.Fatal(err)
	}
	_, err = ComputeTotals("USD", []LineItem{li}, NoTax{}, usd(t, "0"))
	if !errors.Is(err, money.ErrCurrencyMismatch) {
		t.Errorf("expected ErrCurrencyMismatch, got %v", err)
	}
}

func TestNewLineItemValidation(t *testing.T) {
	if _, err := NewLineItem("", decimal.NewFromInt(1), usd(t, "1.00"), ""); !errors.Is(err, ErrInvalidLineItem) {
		t.Errorf("empty description: got %v", err)
	}
	if _, err := NewLineItem("x", decimal.Zero, usd(t, "1.00"), ""); !errors.Is(err, ErrInvalidLineItem) {
		t.Errorf("zero quantity: got %v", err)
	}
	if _, err := NewLineItem("x", decimal.NewFromInt(-1), usd(t, "1.00"), ""); !errors.Is(err, ErrInvalidLineItem) {
		t.Errorf("negative quantity: got %v", err)
	}
	if _, err := NewLineItem("x", decimal.NewFromInt(1), usd(t, "-1.00"), ""); !errors.Is(err, money.ErrInvalidAmount) {
		t.Errorf("negative price: got %v", err)
	}

	// Fractional quantities derive a rounded amount.
	li, err := NewLineItem("hours", decimal.RequireFromString("2.5"), usd(t, "99.99"), "")
	if err != nil {
		t.Fatal(err)
	}
	if got := li.Amount.StringFixed(); got != "249.98" {
		t.Errorf("amount = %s, want 249.98", got)
	}
}
