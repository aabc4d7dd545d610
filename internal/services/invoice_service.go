package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"invoicely-backend/internal/billing"
	"invoicely-backend/internal/cache"
	"invoicely-backend/internal/mailer"
	"invoicely-backend/internal/metrics"
	"invoicely-backend/internal/models"
	"invoicely-backend/internal/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStore is the persistence surface the invoice service needs. The
// pgx-backed repository implements it; tests use an in-memory store.
type InvoiceStore interface {
	NextInvoiceNumber(ctx context.Context, workspaceID uuid.UUID, prefix string) (string, error)
	Create(ctx context.Context, inv *billing.Invoice) error
	Update(ctx context.Context, inv *billing.Invoice, expectedVersion int64) error
	Get(ctx context.Context, workspaceID, id uuid.UUID) (*models.InvoiceWithClient, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.InvoiceWithClient, error)
	List(ctx context.Context, workspaceID uuid.UUID, filter models.InvoiceFilter) ([]*models.InvoiceWithClient, error)
	ListDue(ctx context.Context, workspaceID uuid.UUID, before time.Time) ([]*models.InvoiceWithClient, error)
	Delete(ctx context.Context, workspaceID, id uuid.UUID) error
}

// ClientStore resolves invoice counterparties.
type ClientStore interface {
	Get(ctx context.Context, workspaceID, id uuid.UUID) (*models.Client, error)
}

// DocumentRenderer produces the PDF document for an invoice.
type DocumentRenderer interface {
	Render(inv *models.InvoiceWithClient) ([]byte, error)
}

// InvoiceArchiver keeps a copy of every dispatched document.
type InvoiceArchiver interface {
	StoreInvoicePDF(ctx context.Context, workspaceID, invoiceID uuid.UUID, invoiceNumber string, pdf []byte) (string, error)
}

// InvoiceEvent is broadcast to monitoring subscribers on lifecycle changes.
type InvoiceEvent struct {
	Type          string         `json:"type"`
	WorkspaceID   uuid.UUID      `json:"workspace_id"`
	InvoiceID     uuid.UUID      `json:"invoice_id"`
	InvoiceNumber string         `json:"invoice_number"`
	From          billing.Status `json:"from,omitempty"`
	To            billing.Status `json:"to,omitempty"`
	At            time.Time      `json:"at"`
}

// EventPublisher fans invoice events out to live subscribers.
type EventPublisher interface {
	PublishInvoiceEvent(evt InvoiceEvent)
}

// InvoiceService implements the invoice lifecycle: drafting, editing,
// status transitions, dispatch and the overdue sweep.
type InvoiceService struct {
	store    InvoiceStore
	clients  ClientStore
	renderer DocumentRenderer
	notifier mailer.Notifier
	archiver InvoiceArchiver
	events   EventPublisher

	numberPrefix string
	publicURL    string
	now          func() time.Time
}

// InvoiceServiceOpts configures collaborators. Renderer, Notifier, Archiver
// and Events may be nil; the corresponding step is skipped.
type InvoiceServiceOpts struct {
	Renderer     DocumentRenderer
	Notifier     mailer.Notifier
	Archiver     InvoiceArchiver
	Events       EventPublisher
	NumberPrefix string
	PublicURL    string
	Now          func() time.Time
}

func NewInvoiceService(store InvoiceStore, clients ClientStore, opts InvoiceServiceOpts) *InvoiceService {
	s := &InvoiceService{
		store:        store,
		clients:      clients,
		renderer:     opts.Renderer,
		notifier:     opts.Notifier,
		archiver:     opts.Archiver,
		events:       opts.Events,
		numberPrefix: opts.NumberPrefix,
		publicURL:    strings.TrimRight(opts.PublicURL, "/"),
		now:          opts.Now,
	}
	if s.numberPrefix == "" {
		s.numberPrefix = "INV"
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// taxPolicyFromRequest maps the request's tax fields to a policy. The two
// modes are mutually exclusive.
func taxPolicyFromRequest(currency, rate, amount string) (billing.TaxPolicy, error) {
	rate = strings.TrimSpace(rate)
	amount = strings.TrimSpace(amount)
	switch {
	case rate != "" && amount != "":
		return nil, fmt.Errorf("%w: tax_rate and tax_amount are mutually exclusive", money.ErrInvalidAmount)
	case rate != "":
		r, err := decimal.NewFromString(rate)
		if err != nil || r.IsNegative() {
			return nil, fmt.Errorf("%w: tax rate %q", money.ErrInvalidAmount, rate)
		}
		return billing.FlatRate{Rate: r}, nil
	case amount != "":
		m, err := money.ParseNonNegative(amount, currency)
		if err != nil {
			return nil, err
		}
		return billing.AbsoluteTax{Amount: m}, nil
	default:
		return billing.NoTax{}, nil
	}
}

func lineItemsFromRequest(currency string, reqs []models.LineItemRequest) ([]billing.LineItem, error) {
	items := make([]billing.LineItem, 0, len(reqs))
	for _, r := range reqs {
		qty, err := decimal.NewFromString(strings.TrimSpace(r.Quantity))
		if err != nil {
			return nil, fmt.Errorf("%w: quantity %q", billing.ErrInvalidLineItem, r.Quantity)
		}
		price, err := money.Parse(r.UnitPrice, currency)
		if err != nil {
			return nil, err
		}
		li, err := billing.NewLineItem(r.Description, qty, price, r.Notes)
		if err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return items, nil
}

// checkVersion rejects a mutation whose version no longer matches the stored
// invoice. The store repeats the check at write time; doing it up front keeps
// the error kind stable when a concurrent writer already moved the invoice to
// a state the requested change would be illegal from.
func checkVersion(inv *billing.Invoice, version int64) error {
	if inv.Version != version {
		return fmt.Errorf("%w: have %d, got %d", billing.ErrStaleVersion, inv.Version, version)
	}
	return nil
}

func (s *InvoiceService) resolveClient(ctx context.Context, workspaceID, clientID uuid.UUID) (*models.Client, error) {
	client, err := s.clients.Get(ctx, workspaceID, clientID)
	if err != nil {
		return nil, billing.ErrClientNotFound
	}
	if client.Status == models.ClientArchived {
		return nil, fmt.Errorf("%w: client is archived", billing.ErrClientNotFound)
	}
	return client, nil
}

// Create opens a draft invoice with a workspace-scoped sequential number.
func (s *InvoiceService) Create(ctx context.Context, workspaceID, issuerID uuid.UUID, req models.CreateInvoiceRequest) (*billing.Invoice, error) {
	if _, err := s.resolveClient(ctx, workspaceID, req.ClientID); err != nil {
		return nil, err
	}

	tax, err := taxPolicyFromRequest(req.Currency, req.TaxRate, req.TaxAmount)
	if err != nil {
		return nil, err
	}
	discount := money.Zero(strings.ToUpper(req.Currency))
	if strings.TrimSpace(req.Discount) != "" {
		discount, err = money.ParseNonNegative(req.Discount, req.Currency)
		if err != nil {
			return nil, err
		}
	}

	number, err := s.store.NextInvoiceNumber(ctx, workspaceID, s.numberPrefix)
	if err != nil {
		return nil, err
	}

	inv, err := billing.NewInvoice(billing.NewInvoiceParams{
		WorkspaceID:   workspaceID,
		ClientID:      req.ClientID,
		IssuerID:      issuerID,
		InvoiceNumber: number,
		Currency:      req.Currency,
		IssueDate:     req.IssueDate,
		DueDate:       req.DueDate,
		Tax:           tax,
		Discount:      discount,
		Description:   req.Description,
		Notes:         req.Notes,
		Terms:         req.Terms,
	})
	if err != nil {
		return nil, err
	}

	items, err := lineItemsFromRequest(inv.Currency, req.Items)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := inv.ReplaceLineItems(items); err != nil {
			return nil, err
		}
	}

	if err := s.store.Create(ctx, inv); err != nil {
		return nil, err
	}
	cache.InvalidateDashboard(ctx, workspaceID)
	return inv, nil
}

// Update rewrites a draft invoice in place. The whole edit is applied to the
// loaded aggregate first, so a failing field leaves nothing changed; the
// version check happens at the store.
func (s *InvoiceService) Update(ctx context.Context, workspaceID, id uuid.UUID, req models.UpdateInvoiceRequest) (*billing.Invoice, error) {
	got, err := s.store.Get(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	inv := got.Invoice
	if err := checkVersion(inv, req.Version); err != nil {
		return nil, err
	}

	if req.ClientID != uuid.Nil && req.ClientID != inv.ClientID {
		if _, err := s.resolveClient(ctx, workspaceID, req.ClientID); err != nil {
			return nil, err
		}
		if err := inv.ChangeClient(req.ClientID); err != nil {
			return nil, err
		}
	}
	if err := inv.Reschedule(req.IssueDate, req.DueDate); err != nil {
		return nil, err
	}

	tax, err := taxPolicyFromRequest(inv.Currency, req.TaxRate, req.TaxAmount)
	if err != nil {
		return nil, err
	}
	if err := inv.SetTaxPolicy(tax); err != nil {
		return nil, err
	}

	discount := money.Zero(inv.Currency)
	if strings.TrimSpace(req.Discount) != "" {
		discount, err = money.ParseNonNegative(req.Discount, inv.Currency)
		if err != nil {
			return nil, err
		}
	}
	if err := inv.SetDiscount(discount); err != nil {
		return nil, err
	}

	items, err := lineItemsFromRequest(inv.Currency, req.Items)
	if err != nil {
		return nil, err
	}
	if err := inv.ReplaceLineItems(items); err != nil {
		return nil, err
	}

	inv.Description = req.Description
	inv.Notes = req.Notes
	inv.Terms = req.Terms

	if err := s.store.Update(ctx, inv, req.Version); err != nil {
		return nil, err
	}
	cache.InvalidateDashboard(ctx, workspaceID)
	return inv, nil
}

// AddItem appends one row to a draft invoice.
func (s *InvoiceService) AddItem(ctx context.Context, workspaceID, id uuid.UUID, req models.MutateLineItemRequest) (*billing.Invoice, error) {
	got, err := s.store.Get(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	inv := got.Invoice
	if err := checkVersion(inv, req.Version); err != nil {
		return nil, err
	}

	qty, price, err := s.parseItemFields(inv.Currency, req)
	if err != nil {
		return nil, err
	}
	if _, err := inv.AddLineItem(req.Description, qty, price, req.Notes); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, inv, req.Version); err != nil {
		return nil, err
	}
	cache.InvalidateDashboard(ctx, workspaceID)
	return inv, nil
}

// UpdateItem edits one row of a draft invoice.
func (s *InvoiceService) UpdateItem(ctx context.Context, workspaceID, id, itemID uuid.UUID, req models.MutateLineItemRequest) (*billing.Invoice, error) {
	got, err := s.store.Get(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	inv := got.Invoice
	if err := checkVersion(inv, req.Version); err != nil {
		return nil, err
	}

	qty, price, err := s.parseItemFields(inv.Currency, req)
	if err != nil {
		return nil, err
	}
	if err := inv.UpdateLineItem(itemID, req.Description, qty, price, req.Notes); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, inv, req.Version); err != nil {
		return nil, err
	}
	cache.InvalidateDashboard(ctx, workspaceID)
	return inv, nil
}

// RemoveItem deletes one row of a draft invoice.
func (s *InvoiceService) RemoveItem(ctx context.Context, workspaceID, id, itemID uuid.UUID, version int64) (*billing.Invoice, error) {
	got, err := s.store.Get(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	inv := got.Invoice
	if err := checkVersion(inv, version); err != nil {
		return nil, err
	}

	if err := inv.RemoveLineItem(itemID); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, inv, version); err != nil {
		return nil, err
	}
	cache.InvalidateDashboard(ctx, workspaceID)
	return inv, nil
}

func (s *InvoiceService) parseItemFields(currency string, req models.MutateLineItemRequest) (decimal.Decimal, money.Money, error) {
	qty, err := decimal.NewFromString(strings.TrimSpace(req.Quantity))
	if err != nil {
		return decimal.Decimal{}, money.Money{}, fmt.Errorf("%w: quantity %q", billing.ErrInvalidLineItem, req.Quantity)
	}
	price, err := money.Parse(req.UnitPrice, currency)
	if err != nil {
		return decimal.Decimal{}, money.Money{}, err
	}
	return qty, price, nil
}

// Transition moves an invoice along the lifecycle at a known version.
func (s *InvoiceService) Transition(ctx context.Context, workspaceID, id uuid.UUID, req models.TransitionRequest) (*billing.Invoice, error) {
	got, err := s.store.Get(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	inv := got.Invoice
	if err := checkVersion(inv, req.Version); err != nil {
		return nil, err
	}
	from := inv.Status

	if err := inv.Transition(req.Status, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, inv, req.Version); err != nil {
		return nil, err
	}

	metrics.InvoiceTransitionsTotal.WithLabelValues(string(from), string(inv.Status)).Inc()
	cache.InvalidateDashboard(ctx, workspaceID)
	s.publish(InvoiceEvent{
		Type:          "invoice.transition",
		WorkspaceID:   workspaceID,
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		From:          from,
		To:            inv.Status,
		At:            s.now(),
	})
	return inv, nil
}

// Send renders, archives and emails a draft invoice, then marks it SENT.
// Archiving is best effort; a failed email aborts before any state change.
func (s *InvoiceService) Send(ctx context.Context, workspaceID, id uuid.UUID, version int64) (*billing.Invoice, error) {
	got, err := s.store.Get(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	inv := got.Invoice
	if err := checkVersion(inv, version); err != nil {
		return nil, err
	}
	from := inv.Status

	// Fail fast on an illegal edge before doing any rendering work.
	if err := inv.Transition(billing.StatusSent, s.now()); err != nil {
		return nil, err
	}

	var pdfBytes []byte
	if s.renderer != nil {
		pdfBytes, err = s.renderer.Render(got)
		if err != nil {
			return nil, fmt.Errorf("render invoice %s: %w", inv.InvoiceNumber, err)
		}
	}
	if s.archiver != nil && pdfBytes != nil {
		if _, err := s.archiver.StoreInvoicePDF(ctx, workspaceID, inv.ID, inv.InvoiceNumber, pdfBytes); err != nil {
			log.Printf("[Invoice] archive of %s failed: %v", inv.InvoiceNumber, err)
		}
	}

	if s.notifier != nil {
		body, err := mailer.RenderInvoiceEmail(mailer.InvoiceEmailData{
			ClientName:    got.ClientName,
			IssuerName:    got.IssuerName,
			InvoiceNumber: inv.InvoiceNumber,
			IssueDate:     inv.IssueDate.Format("02 Jan 2006"),
			DueDate:       inv.DueDate.Format("02 Jan 2006"),
			Total:         inv.Totals.Total.Display(),
			ViewURL:       s.publicViewURL(inv.ID),
			Notes:         inv.Notes,
		})
		if err != nil {
			return nil, err
		}
		msg := mailer.Message{
			To:       got.ClientEmail,
			ToName:   got.ClientName,
			Subject:  fmt.Sprintf("Invoice %s from %s", inv.InvoiceNumber, got.IssuerName),
			HTMLBody: body,
		}
		if pdfBytes != nil {
			msg.AttachmentName = inv.InvoiceNumber + ".pdf"
			msg.Attachment = mailer.EncodeAttachment(pdfBytes)
		}
		if err := s.notifier.SendInvoice(ctx, msg); err != nil {
			return nil, fmt.Errorf("send invoice %s: %w", inv.InvoiceNumber, err)
		}
	}

	if err := s.store.Update(ctx, inv, version); err != nil {
		return nil, err
	}

	metrics.InvoicesSentTotal.Inc()
	metrics.InvoiceTransitionsTotal.WithLabelValues(string(from), string(billing.StatusSent)).Inc()
	cache.InvalidateDashboard(ctx, workspaceID)
	s.publish(InvoiceEvent{
		Type:          "invoice.sent",
		WorkspaceID:   workspaceID,
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		From:          from,
		To:            billing.StatusSent,
		At:            s.now(),
	})
	return inv, nil
}

// MarkViewed records that the client opened the public invoice page. Only a
// SENT invoice moves to VIEWED; any other status is left untouched, so the
// endpoint stays idempotent.
func (s *InvoiceService) MarkViewed(ctx context.Context, id uuid.UUID) (*models.InvoiceWithClient, error) {
	got, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	inv := got.Invoice
	if inv.Status != billing.StatusSent {
		return got, nil
	}

	from := inv.Status
	if err := inv.Transition(billing.StatusViewed, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, inv, inv.Version); err != nil {
		// A concurrent transition won; the view is not worth failing over.
		if errors.Is(err, billing.ErrStaleVersion) {
			return s.store.GetByID(ctx, id)
		}
		return nil, err
	}

	metrics.InvoiceTransitionsTotal.WithLabelValues(string(from), string(billing.StatusViewed)).Inc()
	cache.InvalidateDashboard(ctx, inv.WorkspaceID)
	return got, nil
}

// RecordPayment marks an invoice PAID, typically from a gateway webhook.
// Already-paid invoices are a no-op so retried webhooks stay safe.
func (s *InvoiceService) RecordPayment(ctx context.Context, id uuid.UUID, paidAt time.Time) (*billing.Invoice, error) {
	got, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	inv := got.Invoice
	if inv.Status == billing.StatusPaid {
		return inv, nil
	}

	from := inv.Status
	if err := inv.Transition(billing.StatusPaid, paidAt); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, inv, inv.Version); err != nil {
		return nil, err
	}

	metrics.InvoiceTransitionsTotal.WithLabelValues(string(from), string(billing.StatusPaid)).Inc()
	cache.InvalidateDashboard(ctx, inv.WorkspaceID)
	s.publish(InvoiceEvent{
		Type:          "invoice.paid",
		WorkspaceID:   inv.WorkspaceID,
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		From:          from,
		To:            billing.StatusPaid,
		At:            paidAt,
	})
	return inv, nil
}

// SweepOverdue flips every SENT or VIEWED invoice past its due date to
// OVERDUE. Invoices that changed under the sweep are skipped, not failed.
func (s *InvoiceService) SweepOverdue(ctx context.Context, workspaceID uuid.UUID) (int, error) {
	now := s.now()
	due, err := s.store.ListDue(ctx, workspaceID, now)
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, got := range due {
		inv := got.Invoice
		from := inv.Status
		changed, err := inv.MarkOverdueIfDue(now)
		if err != nil || !changed {
			continue
		}
		if err := s.store.Update(ctx, inv, inv.Version); err != nil {
			if errors.Is(err, billing.ErrStaleVersion) {
				continue
			}
			return marked, err
		}
		metrics.InvoiceTransitionsTotal.WithLabelValues(string(from), string(billing.StatusOverdue)).Inc()
		marked++
	}
	if marked > 0 {
		cache.InvalidateDashboard(ctx, workspaceID)
	}
	return marked, nil
}

// Delete removes a draft. Non-draft invoices are part of the books and can
// only be cancelled.
func (s *InvoiceService) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	got, err := s.store.Get(ctx, workspaceID, id)
	if err != nil {
		return err
	}
	if got.Status != billing.StatusDraft {
		return fmt.Errorf("%w: status %s", billing.ErrInvoiceNotEditable, got.Status)
	}
	if err := s.store.Delete(ctx, workspaceID, id); err != nil {
		return err
	}
	cache.InvalidateDashboard(ctx, workspaceID)
	return nil
}

// Get returns one invoice with client display fields.
func (s *InvoiceService) Get(ctx context.Context, workspaceID, id uuid.UUID) (*models.InvoiceWithClient, error) {
	return s.store.Get(ctx, workspaceID, id)
}

// List returns workspace invoices, optionally filtered.
func (s *InvoiceService) List(ctx context.Context, workspaceID uuid.UUID, filter models.InvoiceFilter) ([]*models.InvoiceWithClient, error) {
	return s.store.List(ctx, workspaceID, filter)
}

func (s *InvoiceService) publicViewURL(id uuid.UUID) string {
	if s.publicURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/public/invoices/%s", s.publicURL, id)
}

func (s *InvoiceService) publish(evt InvoiceEvent) {
	if s.events != nil {
		s.events.PublishInvoiceEvent(evt)
	}
}
