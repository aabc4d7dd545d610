package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"invoicely-backend/internal/billing"
	"invoicely-backend/internal/models"
	"invoicely-backend/internal/repositories"

	"github.com/google/uuid"
)

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

// memStore is an in-memory InvoiceStore with the same optimistic
// concurrency behavior as the pgx repository.
type memStore struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]*billing.Invoice
	counters map[uuid.UUID]int
	clients  map[uuid.UUID]*models.Client
}

func newMemStore() *memStore {
	return &memStore{
		invoices: make(map[uuid.UUID]*billing.Invoice),
		counters: make(map[uuid.UUID]int),
		clients:  make(map[uuid.UUID]*models.Client),
	}
}

func copyInvoice(inv *billing.Invoice) *billing.Invoice {
	cp := *inv
	cp.Items = append([]billing.LineItem(nil), inv.Items...)
	return &cp
}

func (s *memStore) NextInvoiceNumber(_ context.Context, workspaceID uuid.UUID, prefix string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[workspaceID]++
	return fmt.Sprintf("%s-%06d", prefix, s.counters[workspaceID]), nil
}

func (s *memStore) Create(_ context.Context, inv *billing.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.invoices {
		if existing.WorkspaceID == inv.WorkspaceID && existing.InvoiceNumber == inv.InvoiceNumber {
			return billing.ErrDuplicateInvoiceNumber
		}
	}
	s.invoices[inv.ID] = copyInvoice(inv)
	return nil
}

func (s *memStore) Update(_ context.Context, inv *billing.Invoice, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.invoices[inv.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return billing.ErrStaleVersion
	}
	cp := copyInvoice(inv)
	cp.Version = expectedVersion + 1
	s.invoices[inv.ID] = cp
	inv.Version = cp.Version
	return nil
}

func (s *memStore) withClient(inv *billing.Invoice) *models.InvoiceWithClient {
	out := &models.InvoiceWithClient{Invoice: copyInvoice(inv)}
	if c, ok := s.clients[inv.ClientID]; ok {
		out.ClientName = c.Name
		out.ClientEmail = c.Email
	}
	out.IssuerName = "Acme Studio"
	return out
}

func (s *memStore) Get(_ context.Context, workspaceID, id uuid.UUID) (*models.InvoiceWithClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok || inv.WorkspaceID != workspaceID {
		return nil, repositories.ErrNotFound
	}
	return s.withClient(inv), nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.InvoiceWithClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return s.withClient(inv), nil
}

func (s *memStore) List(_ context.Context, workspaceID uuid.UUID, filter models.InvoiceFilter) ([]*models.InvoiceWithClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.InvoiceWithClient
	for _, inv := range s.invoices {
		if inv.WorkspaceID != workspaceID {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		out = append(out, s.withClient(inv))
	}
	return out, nil
}

func (s *memStore) ListDue(_ context.Context, workspaceID uuid.UUID, before time.Time) ([]*models.InvoiceWithClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.InvoiceWithClient
	for _, inv := range s.invoices {
		if inv.WorkspaceID != workspaceID {
			continue
		}
		if (inv.Status == billing.StatusSent || inv.Status == billing.StatusViewed) && inv.DueDate.Before(before) {
			out = append(out, s.withClient(inv))
		}
	}
	return out, nil
}

func (s *memStore) Delete(_ context.Context, workspaceID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok || inv.WorkspaceID != workspaceID {
		return repositories.ErrNotFound
	}
	delete(s.invoices, id)
	return nil
}

// Get implements ClientStore on the same fixture.
func (s *memStore) GetClient(_ context.Context, workspaceID, id uuid.UUID) (*models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok || c.WorkspaceID != workspaceID {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

type clientStoreAdapter struct{ *memStore }

func (a clientStoreAdapter) Get(ctx context.Context, workspaceID, id uuid.UUID) (*models.Client, error) {
	return a.GetClient(ctx, workspaceID, id)
}

type fixture struct {
	store       *memStore
	svc         *InvoiceService
	workspaceID uuid.UUID
	issuerID    uuid.UUID
	clientID    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	workspaceID := uuid.New()
	clientID := uuid.New()
	store.clients[clientID] = &models.Client{
		ID:          clientID,
		WorkspaceID: workspaceID,
		Name:        "Globex",
		Email:       "billing@globex.test",
		Status:      models.ClientActive,
	}
	svc := NewInvoiceService(store, clientStoreAdapter{store}, InvoiceServiceOpts{
		NumberPrefix: "INV",
		Now:          func() time.Time { return testNow },
	})
	return &fixture{
		store:       store,
		svc:         svc,
		workspaceID: workspaceID,
		issuerID:    uuid.New(),
		clientID:    clientID,
	}
}

func (f *fixture) createReq() models.CreateInvoiceRequest {
	return models.CreateInvoiceRequest{
		ClientID:  f.clientID,
		Currency:  "USD",
		IssueDate: testNow,
		DueDate:   testNow.AddDate(0, 0, 14),
		Items: []models.LineItemRequest{
			{Description: "Design work", Quantity: "2", UnitPrice: "10.00"},
			{Description: "Hosting", Quantity: "1", UnitPrice: "5.00"},
			{Description: "Stock photos", Quantity: "3", UnitPrice: "2.50"},
		},
	}
}

func (f *fixture) create(t *testing.T) *billing.Invoice {
	t.Helper()
	inv, err := f.svc.Create(context.Background(), f.workspaceID, f.issuerID, f.createReq())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return inv
}

func TestCreateInvoice(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)

	if inv.InvoiceNumber != "INV-000001" {
		t.Errorf("invoice number = %q, want INV-000001", inv.InvoiceNumber)
	}
	if inv.Status != billing.StatusDraft {
		t.Errorf("status = %s, want DRAFT", inv.Status)
	}
	if got := inv.Totals.Total.StringFixed(); got != "32.50" {
		t.Errorf("total = %s, want 32.50", got)
	}
	if inv.Version != 1 {
		t.Errorf("version = %d, want 1", inv.Version)
	}

	second := f.create(t)
	if second.InvoiceNumber != "INV-000002" {
		t.Errorf("second invoice number = %q, want INV-000002", second.InvoiceNumber)
	}
}

func TestCreateInvoiceUnknownClient(t *testing.T) {
	f := newFixture(t)
	req := f.createReq()
	req.ClientID = uuid.New()
	_, err := f.svc.Create(context.Background(), f.workspaceID, f.issuerID, req)
	if !errors.Is(err, billing.ErrClientNotFound) {
		t.Fatalf("err = %v, want ErrClientNotFound", err)
	}
}

func TestCreateInvoiceRejectsBothTaxModes(t *testing.T) {
	f := newFixture(t)
	req := f.createReq()
	req.TaxRate = "0.19"
	req.TaxAmount = "3.00"
	_, err := f.svc.Create(context.Background(), f.workspaceID, f.issuerID, req)
	if err == nil {
		t.Fatal("expected error for mutually exclusive tax modes")
	}
}

func TestUpdateInvoice(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)

	updated, err := f.svc.Update(context.Background(), f.workspaceID, inv.ID, models.UpdateInvoiceRequest{
		IssueDate: testNow,
		DueDate:   testNow.AddDate(0, 1, 0),
		TaxRate:   "0.10",
		Items: []models.LineItemRequest{
			{Description: "Design work", Quantity: "4", UnitPrice: "25.00"},
		},
		Version: inv.Version,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := updated.Totals.Subtotal.StringFixed(); got != "100.00" {
		t.Errorf("subtotal = %s, want 100.00", got)
	}
	if got := updated.Totals.TaxAmount.StringFixed(); got != "10.00" {
		t.Errorf("tax = %s, want 10.00", got)
	}
	if updated.Version != 2 {
		t.Errorf("version = %d, want 2", updated.Version)
	}
}

func TestUpdateInvoiceStaleVersion(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)

	req := models.UpdateInvoiceRequest{
		IssueDate: inv.IssueDate,
		DueDate:   inv.DueDate,
		Items:     f.createReq().Items,
		Version:   inv.Version,
	}
	if _, err := f.svc.Update(context.Background(), f.workspaceID, inv.ID, req); err != nil {
		t.Fatalf("first update: %v", err)
	}
	// Same version again: the first update already consumed it.
	_, err := f.svc.Update(context.Background(), f.workspaceID, inv.ID, req)
	if !errors.Is(err, billing.ErrStaleVersion) {
		t.Fatalf("err = %v, want ErrStaleVersion", err)
	}
}

func TestUpdateRejectedAfterSend(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)
	sent, err := f.svc.Send(context.Background(), f.workspaceID, inv.ID, inv.Version)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	_, err = f.svc.Update(context.Background(), f.workspaceID, inv.ID, models.UpdateInvoiceRequest{
		IssueDate: inv.IssueDate,
		DueDate:   inv.DueDate,
		Items:     f.createReq().Items,
		Version:   sent.Version,
	})
	if !errors.Is(err, billing.ErrInvoiceNotEditable) {
		t.Fatalf("err = %v, want ErrInvoiceNotEditable", err)
	}
}

func TestLineItemMutations(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)

	inv, err := f.svc.AddItem(context.Background(), f.workspaceID, inv.ID, models.MutateLineItemRequest{
		Description: "Domain",
		Quantity:    "1",
		UnitPrice:   "12.00",
		Version:     inv.Version,
	})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if got := inv.Totals.Total.StringFixed(); got != "44.50" {
		t.Errorf("total after add = %s, want 44.50", got)
	}

	itemID := inv.Items[len(inv.Items)-1].ID
	inv, err = f.svc.UpdateItem(context.Background(), f.workspaceID, inv.ID, itemID, models.MutateLineItemRequest{
		Description: "Domain",
		Quantity:    "2",
		UnitPrice:   "12.00",
		Version:     inv.Version,
	})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if got := inv.Totals.Total.StringFixed(); got != "56.50" {
		t.Errorf("total after update = %s, want 56.50", got)
	}

	inv, err = f.svc.RemoveItem(context.Background(), f.workspaceID, inv.ID, itemID, inv.Version)
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if got := inv.Totals.Total.StringFixed(); got != "32.50" {
		t.Errorf("total after remove = %s, want 32.50", got)
	}
	if inv.Version != 4 {
		t.Errorf("version = %d, want 4", inv.Version)
	}

	_, err = f.svc.RemoveItem(context.Background(), f.workspaceID, inv.ID, uuid.New(), inv.Version)
	if !errors.Is(err, billing.ErrLineItemNotFound) {
		t.Fatalf("err = %v, want ErrLineItemNotFound", err)
	}
}

func TestSendMarksSentAndStampsTimestamp(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)

	sent, err := f.svc.Send(context.Background(), f.workspaceID, inv.ID, inv.Version)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent.Status != billing.StatusSent {
		t.Errorf("status = %s, want SENT", sent.Status)
	}
	if sent.SentAt == nil || !sent.SentAt.Equal(testNow) {
		t.Errorf("sentAt = %v, want %v", sent.SentAt, testNow)
	}
}

func TestSendEmptyDraftFails(t *testing.T) {
	f := newFixture(t)
	req := f.createReq()
	req.Items = nil
	inv, err := f.svc.Create(context.Background(), f.workspaceID, f.issuerID, req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err = f.svc.Send(context.Background(), f.workspaceID, inv.ID, inv.Version)
	if !errors.Is(err, billing.ErrNoLineItems) {
		t.Fatalf("err = %v, want ErrNoLineItems", err)
	}
}

func TestMarkViewedOnlyFromSent(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)

	// Viewing a draft is a no-op.
	got, err := f.svc.MarkViewed(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("MarkViewed on draft: %v", err)
	}
	if got.Status != billing.StatusDraft {
		t.Errorf("status = %s, want DRAFT", got.Status)
	}

	sent, err := f.svc.Send(context.Background(), f.workspaceID, inv.ID, inv.Version)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := f.svc.MarkViewed(context.Background(), inv.ID); err != nil {
		t.Fatalf("MarkViewed: %v", err)
	}
	after, err := f.svc.Get(context.Background(), f.workspaceID, inv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if after.Status != billing.StatusViewed {
		t.Errorf("status = %s, want VIEWED", after.Status)
	}
	if after.Version != sent.Version+1 {
		t.Errorf("version = %d, want %d", after.Version, sent.Version+1)
	}
}

func TestRecordPaymentIdempotent(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)
	if _, err := f.svc.Send(context.Background(), f.workspaceID, inv.ID, inv.Version); err != nil {
		t.Fatalf("Send: %v", err)
	}

	paidAt := testNow.Add(48 * time.Hour)
	paid, err := f.svc.RecordPayment(context.Background(), inv.ID, paidAt)
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if paid.Status != billing.StatusPaid {
		t.Errorf("status = %s, want PAID", paid.Status)
	}
	if paid.PaidAt == nil || !paid.PaidAt.Equal(paidAt) {
		t.Errorf("paidAt = %v, want %v", paid.PaidAt, paidAt)
	}

	// Webhook retry.
	again, err := f.svc.RecordPayment(context.Background(), inv.ID, paidAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("RecordPayment retry: %v", err)
	}
	if !again.PaidAt.Equal(paidAt) {
		t.Errorf("retry moved paidAt to %v", again.PaidAt)
	}
}

func TestConcurrentTransitionsExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)
	sent, err := f.svc.Send(context.Background(), f.workspaceID, inv.ID, inv.Version)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	// Two writers read the same version; one pays, one cancels.
	results := make(chan error, 2)
	targets := []billing.Status{billing.StatusPaid, billing.StatusCancelled}
	var wg sync.WaitGroup
	for _, target := range targets {
		wg.Add(1)
		go func(to billing.Status) {
			defer wg.Done()
			_, err := f.svc.Transition(context.Background(), f.workspaceID, inv.ID, models.TransitionRequest{
				Status:  to,
				Version: sent.Version,
			})
			results <- err
		}(target)
	}
	wg.Wait()
	close(results)

	var wins, stale int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, billing.ErrStaleVersion):
			stale++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || stale != 1 {
		t.Fatalf("wins = %d, stale = %d; want exactly one of each", wins, stale)
	}

	final, err := f.svc.Get(context.Background(), f.workspaceID, inv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if final.Status != billing.StatusPaid && final.Status != billing.StatusCancelled {
		t.Errorf("final status = %s", final.Status)
	}
}

func TestLostTransitionFailsStaleNotIllegal(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)
	sent, err := f.svc.Send(context.Background(), f.workspaceID, inv.ID, inv.Version)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	// First writer cancels at the shared version.
	if _, err := f.svc.Transition(context.Background(), f.workspaceID, inv.ID, models.TransitionRequest{
		Status:  billing.StatusCancelled,
		Version: sent.Version,
	}); err != nil {
		t.Fatalf("Transition CANCELLED: %v", err)
	}

	// The second writer holds the same version. It must lose on the version
	// check, not on the CANCELLED -> PAID edge the fresh read would show.
	_, err = f.svc.Transition(context.Background(), f.workspaceID, inv.ID, models.TransitionRequest{
		Status:  billing.StatusPaid,
		Version: sent.Version,
	})
	if !errors.Is(err, billing.ErrStaleVersion) {
		t.Fatalf("err = %v, want ErrStaleVersion", err)
	}

	// Same contract for the other version-carrying mutations.
	if _, err := f.svc.Send(context.Background(), f.workspaceID, inv.ID, sent.Version); !errors.Is(err, billing.ErrStaleVersion) {
		t.Errorf("Send: err = %v, want ErrStaleVersion", err)
	}
	if _, err := f.svc.AddItem(context.Background(), f.workspaceID, inv.ID, models.MutateLineItemRequest{
		Description: "Late fee", Quantity: "1", UnitPrice: "1.00", Version: sent.Version,
	}); !errors.Is(err, billing.ErrStaleVersion) {
		t.Errorf("AddItem: err = %v, want ErrStaleVersion", err)
	}
}

func TestSweepOverdue(t *testing.T) {
	f := newFixture(t)
	req := f.createReq()
	req.IssueDate = testNow.AddDate(0, -2, 0)
	req.DueDate = testNow.AddDate(0, -1, 0)
	inv, err := f.svc.Create(context.Background(), f.workspaceID, f.issuerID, req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.Send(context.Background(), f.workspaceID, inv.ID, inv.Version); err != nil {
		t.Fatalf("Send: %v", err)
	}
	fresh := f.create(t) // not yet due
	if _, err := f.svc.Send(context.Background(), f.workspaceID, fresh.ID, fresh.Version); err != nil {
		t.Fatalf("Send fresh: %v", err)
	}

	marked, err := f.svc.SweepOverdue(context.Background(), f.workspaceID)
	if err != nil {
		t.Fatalf("SweepOverdue: %v", err)
	}
	if marked != 1 {
		t.Errorf("marked = %d, want 1", marked)
	}

	got, err := f.svc.Get(context.Background(), f.workspaceID, inv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != billing.StatusOverdue {
		t.Errorf("status = %s, want OVERDUE", got.Status)
	}
	if got.OverdueAt == nil {
		t.Error("overdueAt not stamped")
	}
}

func TestDeleteDraftOnly(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t)
	sentInv := f.create(t)
	if _, err := f.svc.Send(context.Background(), f.workspaceID, sentInv.ID, sentInv.Version); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if err := f.svc.Delete(context.Background(), f.workspaceID, inv.ID); err != nil {
		t.Fatalf("Delete draft: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), f.workspaceID, inv.ID); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	err := f.svc.Delete(context.Background(), f.workspaceID, sentInv.ID)
	if !errors.Is(err, billing.ErrInvoiceNotEditable) {
		t.Fatalf("err = %v, want ErrInvoiceNotEditable", err)
	}
}
