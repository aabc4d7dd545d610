package models

import (
	"time"

	"github.com/google/uuid"

	"invoicely-backend/internal/billing"
)

// LineItemRequest carries one invoice row. Quantity and unit price are
// decimal strings; amounts are always derived server-side.
type LineItemRequest struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Notes       string `json:"notes"`
}

// CreateInvoiceRequest represents the request to open a draft invoice.
// TaxRate (fraction, e.g. "0.19") and TaxAmount (absolute) are mutually
// exclusive; both empty means no tax.
type CreateInvoiceRequest struct {
	ClientID    uuid.UUID         `json:"client_id"`
	Currency    string            `json:"currency"`
	IssueDate   time.Time         `json:"issue_date"`
	DueDate     time.Time         `json:"due_date"`
	TaxRate     string            `json:"tax_rate"`
	TaxAmount   string            `json:"tax_amount"`
	Discount    string            `json:"discount"`
	Items       []LineItemRequest `json:"items"`
	Description string            `json:"description"`
	Notes       string            `json:"notes"`
	Terms       string            `json:"terms"`
}

// UpdateInvoiceRequest mutates a draft invoice. Version carries the version
// the caller read, for the optimistic concurrency check.
type UpdateInvoiceRequest struct {
	ClientID    uuid.UUID         `json:"client_id"`
	IssueDate   time.Time         `json:"issue_date"`
	DueDate     time.Time         `json:"due_date"`
	TaxRate     string            `json:"tax_rate"`
	TaxAmount   string            `json:"tax_amount"`
	Discount    string            `json:"discount"`
	Items       []LineItemRequest `json:"items"`
	Description string            `json:"description"`
	Notes       string            `json:"notes"`
	Terms       string            `json:"terms"`
	Version     int64             `json:"version"`
}

// MutateLineItemRequest adds or edits a single row of a draft invoice at the
// version the caller read.
type MutateLineItemRequest struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Notes       string `json:"notes"`
	Version     int64  `json:"version"`
}

// TransitionRequest asks for a status change at the version the caller read.
type TransitionRequest struct {
	Status  billing.Status `json:"status"`
	Version int64          `json:"version"`
}

// InvoiceFilter narrows invoice listings for the dashboard and index pages.
type InvoiceFilter struct {
	Status     billing.Status
	IssuedFrom *time.Time
	IssuedTo   *time.Time
}

// InvoiceWithClient joins the invoice aggregate with display fields of its
// client for list and document rendering.
type InvoiceWithClient struct {
	*billing.Invoice
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	IssuerName  string `json:"issuer_name"`
}
