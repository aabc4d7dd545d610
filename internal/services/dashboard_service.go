package services

import (
	"context"
	"sort"
	"time"

	"invoicely-backend/internal/analytics"
	"invoicely-backend/internal/billing"
	"invoicely-backend/internal/cache"
	"invoicely-backend/internal/models"
	"invoicely-backend/internal/repositories"

	"github.com/google/uuid"
)

const recentLimit = 5

// Dashboard is the cached payload served to the dashboard page.
type Dashboard struct {
	Stats          analytics.Stats             `json:"stats"`
	RecentInvoices []*models.InvoiceWithClient `json:"recent_invoices"`
	RecentClients  []*models.Client            `json:"recent_clients"`
	GeneratedAt    time.Time                   `json:"generated_at"`
}

// DashboardService computes workspace rollups, caching them in Redis for a
// short TTL. Invoice and client mutations invalidate the cache.
type DashboardService struct {
	workspaces *repositories.WorkspaceRepository
	invoices   InvoiceStore
	clients    *repositories.ClientRepository

	seriesMonths int
	ttl          time.Duration
	now          func() time.Time
}

func NewDashboardService(
	workspaces *repositories.WorkspaceRepository,
	invoices InvoiceStore,
	clients *repositories.ClientRepository,
	seriesMonths int,
	ttl time.Duration,
) *DashboardService {
	if seriesMonths <= 0 {
		seriesMonths = 12
	}
	return &DashboardService{
		workspaces:   workspaces,
		invoices:     invoices,
		clients:      clients,
		seriesMonths: seriesMonths,
		ttl:          ttl,
		now:          time.Now,
	}
}

// Get returns the dashboard for a workspace, from cache when fresh.
func (s *DashboardService) Get(ctx context.Context, workspaceID, userID uuid.UUID) (*Dashboard, error) {
	var cached Dashboard
	if cache.GetDashboard(ctx, workspaceID, &cached) {
		return &cached, nil
	}

	ws, err := s.workspaces.Get(ctx, workspaceID, userID)
	if err != nil {
		return nil, err
	}

	list, err := s.invoices.List(ctx, workspaceID, models.InvoiceFilter{})
	if err != nil {
		return nil, err
	}
	clients, err := s.clients.List(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	// Rollups are single-currency; invoices issued in another currency are
	// counted but excluded from the monetary aggregates.
	invoices := make([]*billing.Invoice, 0, len(list))
	for _, iwc := range list {
		if iwc.Currency == ws.Currency {
			invoices = append(invoices, iwc.Invoice)
		}
	}
	created := make([]time.Time, 0, len(clients))
	for _, c := range clients {
		created = append(created, c.CreatedAt)
	}

	now := s.now()
	stats, err := analytics.ComputeStats(invoices, created, now, ws.Currency, s.seriesMonths)
	if err != nil {
		return nil, err
	}
	stats.TotalInvoices = len(list)

	dash := &Dashboard{
		Stats:          stats,
		RecentInvoices: recentInvoices(list),
		RecentClients:  recentClients(clients),
		GeneratedAt:    now,
	}
	cache.SetDashboard(ctx, workspaceID, dash, s.ttl)
	return dash, nil
}

func recentInvoices(list []*models.InvoiceWithClient) []*models.InvoiceWithClient {
	sorted := append([]*models.InvoiceWithClient(nil), list...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > recentLimit {
		sorted = sorted[:recentLimit]
	}
	return sorted
}

func recentClients(list []*models.Client) []*models.Client {
	sorted := append([]*models.Client(nil), list...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > recentLimit {
		sorted = sorted[:recentLimit]
	}
	return sorted
}
