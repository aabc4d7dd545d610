package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentLink is a Razorpay payment link issued for an invoice.
type PaymentLink struct {
	ID          uuid.UUID `json:"id"`
	InvoiceID   uuid.UUID `json:"invoice_id"`
	ProviderRef string    `json:"provider_ref"` // plink_… id at the gateway
	ShortURL    string    `json:"short_url"`
	Status      string    `json:"status"` // created, paid, cancelled
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreatePaymentLinkRequest represents the request to issue a payment link
type CreatePaymentLinkRequest struct {
	Version int64 `json:"version"`
}
