package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"invoicely-backend/internal/billing"
	"invoicely-backend/internal/metrics"
	"invoicely-backend/internal/models"

	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"
)

// PaymentLinkStore persists gateway payment links.
type PaymentLinkStore interface {
	CreateLink(ctx context.Context, link *models.PaymentLink) error
	GetLinkByProviderRef(ctx context.Context, providerRef string) (*models.PaymentLink, error)
	UpdateLinkStatus(ctx context.Context, id uuid.UUID, status string) error
	ListLinks(ctx context.Context, invoiceID uuid.UUID) ([]*models.PaymentLink, error)
}

// PaymentService issues Razorpay payment links for invoices and settles them
// from gateway webhooks.
type PaymentService struct {
	links    PaymentLinkStore
	invoices *InvoiceService

	keyID         string
	keySecret     string
	webhookSecret string
}

func NewPaymentService(keyID, keySecret, webhookSecret string, links PaymentLinkStore, invoices *InvoiceService) *PaymentService {
	return &PaymentService{
		links:         links,
		invoices:      invoices,
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
	}
}

func (s *PaymentService) client() *razorpay.Client {
	if s.keyID == "" || s.keySecret == "" {
		return nil
	}
	return razorpay.NewClient(s.keyID, s.keySecret)
}

// Enabled reports whether gateway credentials are configured.
func (s *PaymentService) Enabled() bool {
	return s.keyID != "" && s.keySecret != ""
}

// CreateLink issues a payment link for a SENT, VIEWED or OVERDUE invoice.
// The gateway amount is in minor units of the invoice currency.
func (s *PaymentService) CreateLink(ctx context.Context, workspaceID, invoiceID uuid.UUID) (*models.PaymentLink, error) {
	client := s.client()
	if client == nil {
		return nil, fmt.Errorf("payment gateway not configured")
	}

	got, err := s.invoices.Get(ctx, workspaceID, invoiceID)
	if err != nil {
		return nil, err
	}
	inv := got.Invoice
	switch inv.Status {
	case billing.StatusSent, billing.StatusViewed, billing.StatusOverdue:
	default:
		return nil, fmt.Errorf("%w: cannot collect payment in status %s", billing.ErrInvoiceNotEditable, inv.Status)
	}

	data := map[string]interface{}{
		"amount":       inv.Totals.Total.MinorUnits(),
		"currency":     inv.Currency,
		"description":  fmt.Sprintf("Invoice %s", inv.InvoiceNumber),
		"reference_id": fmt.Sprintf("%s_%d", inv.InvoiceNumber, time.Now().Unix()),
		"customer": map[string]interface{}{
			"name":  got.ClientName,
			"email": got.ClientEmail,
		},
		"notify": map[string]interface{}{
			"email": true,
		},
		"notes": map[string]interface{}{
			"invoice_id":   inv.ID.String(),
			"workspace_id": workspaceID.String(),
		},
	}

	created, err := client.PaymentLink.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment link: %w", err)
	}

	providerRef, _ := created["id"].(string)
	shortURL, _ := created["short_url"].(string)
	if providerRef == "" {
		return nil, fmt.Errorf("payment link response missing id")
	}

	link := &models.PaymentLink{
		ID:          uuid.New(),
		InvoiceID:   inv.ID,
		ProviderRef: providerRef,
		ShortURL:    shortURL,
		Status:      "created",
	}
	if err := s.links.CreateLink(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to store payment link: %w", err)
	}
	return link, nil
}

// ListLinks returns the payment links issued for one invoice.
func (s *PaymentService) ListLinks(ctx context.Context, workspaceID, invoiceID uuid.UUID) ([]*models.PaymentLink, error) {
	if _, err := s.invoices.Get(ctx, workspaceID, invoiceID); err != nil {
		return nil, err
	}
	return s.links.ListLinks(ctx, invoiceID)
}

// VerifyWebhookSignature checks the gateway HMAC over the raw body.
func (s *PaymentService) VerifyWebhookSignature(body []byte, signature string) bool {
	if s.webhookSecret == "" {
		return true // Skip verification if not configured
	}
	h := hmac.New(sha256.New, []byte(s.webhookSecret))
	h.Write(body)
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ProcessWebhook handles gateway events. Unknown events are logged and
// acknowledged so the gateway stops retrying them.
func (s *PaymentService) ProcessWebhook(ctx context.Context, event string, payload map[string]interface{}) error {
	switch event {
	case "payment_link.paid":
		err := s.handleLinkPaid(ctx, payload)
		if err != nil {
			metrics.PaymentWebhooksTotal.WithLabelValues("error").Inc()
			return err
		}
		metrics.PaymentWebhooksTotal.WithLabelValues("paid").Inc()
		return nil
	case "payment_link.cancelled", "payment_link.expired":
		err := s.handleLinkClosed(ctx, payload, "cancelled")
		if err != nil {
			metrics.PaymentWebhooksTotal.WithLabelValues("error").Inc()
			return err
		}
		metrics.PaymentWebhooksTotal.WithLabelValues("cancelled").Inc()
		return nil
	default:
		log.Printf("[Payment] Unhandled webhook event: %s", event)
		metrics.PaymentWebhooksTotal.WithLabelValues("ignored").Inc()
		return nil
	}
}

func linkEntity(payload map[string]interface{}) map[string]interface{} {
	wrapped, ok := payload["payment_link"].(map[string]interface{})
	if !ok {
		wrapped = payload
	}
	entity, ok := wrapped["entity"].(map[string]interface{})
	if !ok {
		entity = wrapped
	}
	return entity
}

func (s *PaymentService) handleLinkPaid(ctx context.Context, payload map[string]interface{}) error {
	entity := linkEntity(payload)
	providerRef, _ := entity["id"].(string)
	if providerRef == "" {
		return fmt.Errorf("missing payment link id in webhook")
	}

	link, err := s.links.GetLinkByProviderRef(ctx, providerRef)
	if err != nil {
		return fmt.Errorf("payment link %s not found: %w", providerRef, err)
	}
	if link.Status == "paid" {
		log.Printf("[Payment] Link already settled: %s", providerRef)
		return nil
	}

	paidAt := time.Now()
	if ts, ok := entity["updated_at"].(float64); ok && ts > 0 {
		paidAt = time.Unix(int64(ts), 0)
	}

	if _, err := s.invoices.RecordPayment(ctx, link.InvoiceID, paidAt); err != nil {
		return fmt.Errorf("failed to record payment for invoice %s: %w", link.InvoiceID, err)
	}
	return s.links.UpdateLinkStatus(ctx, link.ID, "paid")
}

func (s *PaymentService) handleLinkClosed(ctx context.Context, payload map[string]interface{}, status string) error {
	entity := linkEntity(payload)
	providerRef, _ := entity["id"].(string)
	if providerRef == "" {
		return nil
	}
	link, err := s.links.GetLinkByProviderRef(ctx, providerRef)
	if err != nil {
		log.Printf("[Payment] Closed link %s unknown: %v", providerRef, err)
		return nil
	}
	return s.links.UpdateLinkStatus(ctx, link.ID, status)
}
