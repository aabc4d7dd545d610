// Package analytics derives dashboard rollups from invoice and client
// snapshots. Everything here is a pure function of the snapshot, a reference
// now and period boundaries; no I/O.
package analytics

import (
	"time"

	"invoicely-backend/internal/billing"
	"invoicely-backend/internal/money"
)

// MonthRevenue is one bucket of the time-bucketed revenue series.
type MonthRevenue struct {
	Month string      `json:"month"` // "Jan 2026"
	Total money.Money `json:"total"`
}

// Stats is the dashboard payload computed from a workspace snapshot.
type Stats struct {
	TotalInvoices   int `json:"total_invoices"`
	TotalClients    int `json:"total_clients"`
	PendingInvoices int `json:"pending_invoices"`
	OverdueInvoices int `json:"overdue_invoices"`

	TotalRevenue   money.Money `json:"total_revenue"`   // PAID invoices only
	TotalAmount    money.Money `json:"total_amount"`    // every invoice, any status
	MonthlyRevenue money.Money `json:"monthly_revenue"` // paidAt in current month

	RevenueGrowth float64 `json:"revenue_growth"`
	InvoiceGrowth float64 `json:"invoice_growth"`
	ClientGrowth  float64 `json:"client_growth"`

	RevenueSeries []MonthRevenue `json:"revenue_series"`
}

// Growth returns the percentage change from prior to current. A zero prior
// baseline yields 0 by policy, never NaN or ±Inf; the first period of any
// metric simply reports no growth.
func Growth(current, prior float64) float64 {
	if prior == 0 {
		return 0
	}
	return (current - prior) / prior * 100
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func inPeriod(t *time.Time, start, end time.Time) bool {
	return t != nil && !t.Before(start) && t.Before(end)
}

// ComputeStats aggregates a snapshot of invoices and client creation times.
// All invoices must be in the given currency. The revenue series spans
// seriesMonths calendar months ending at now's month, zero-filled for months
// with no paid invoices.
func ComputeStats(invoices []*billing.Invoice, clientCreated []time.Time, now time.Time, currency string, seriesMonths int) (Stats, error) {
	curStart := monthStart(now)
	nextStart := curStart.AddDate(0, 1, 0)
	priorStart := curStart.AddDate(0, -1, 0)

	stats := Stats{
		TotalInvoices:  len(invoices),
		TotalClients:   len(clientCreated),
		TotalRevenue:   money.Zero(currency),
		TotalAmount:    money.Zero(currency),
		MonthlyRevenue: money.Zero(currency),
	}

	var revCur, revPrior float64
	var invCur, invPrior, cliCur, cliPrior int

	for _, inv := range invoices {
		var err error
		stats.TotalAmount, err = stats.TotalAmount.Add(inv.Totals.Total)
		if err != nil {
			return Stats{}, err
		}

		switch inv.Status {
		case billing.StatusSent, billing.StatusViewed:
			stats.PendingInvoices++
		case billing.StatusOverdue:
			stats.OverdueInvoices++
		case billing.StatusPaid:
			stats.TotalRevenue, err = stats.TotalRevenue.Add(inv.Totals.Total)
			if err != nil {
				return Stats{}, err
			}
			if inPeriod(inv.PaidAt, curStart, nextStart) {
				stats.MonthlyRevenue, err = stats.MonthlyRevenue.Add(inv.Totals.Total)
				if err != nil {
					return Stats{}, err
				}
				revCur += inv.Totals.Total.Amount().InexactFloat64()
			} else if inPeriod(inv.PaidAt, priorStart, curStart) {
				revPrior += inv.Totals.Total.Amount().InexactFloat64()
			}
		}

		created := inv.CreatedAt
		if inPeriod(&created, curStart, nextStart) {
			invCur++
		} else if inPeriod(&created, priorStart, curStart) {
			invPrior++
		}
	}

	for _, c := range clientCreated {
		c := c
		if inPeriod(&c, curStart, nextStart) {
			cliCur++
		} else if inPeriod(&c, priorStart, curStart) {
			cliPrior++
		}
	}

	stats.RevenueGrowth = Growth(revCur, revPrior)
	stats.InvoiceGrowth = Growth(float64(invCur), float64(invPrior))
	stats.ClientGrowth = Growth(float64(cliCur), float64(cliPrior))

	series, err := RevenueSeries(invoices, now, currency, seriesMonths)
	if err != nil {
		return Stats{}, err
	}
	stats.RevenueSeries = series
	return stats, nil
}

// RevenueSeries buckets paid revenue by calendar month over the last months
// buckets ending at now's month. Months without paid invoices carry a zero
// entry rather than being omitted.
func RevenueSeries(invoices []*billing.Invoice, now time.Time, currency string, months int) ([]MonthRevenue, error) {
	if months <= 0 {
		months = 1
	}
	end := monthStart(now)
	start := end.AddDate(0, -(months - 1), 0)

	buckets := make([]money.Money, months)
	for i := range buckets {
		buckets[i] = money.Zero(currency)
	}

	for _, inv := range invoices {
		if inv.Status != billing.StatusPaid || inv.PaidAt == nil {
			continue
		}
		m := monthStart(inv.PaidAt.In(now.Location()))
		if m.Before(start) || m.After(end) {
			continue
		}
		idx := (m.Year()-start.Year())*12 + int(m.Month()) - int(start.Month())
		var err error
		buckets[idx], err = buckets[idx].Add(inv.Totals.Total)
		if err != nil {
			return nil, err
		}
	}

	series := make([]MonthRevenue, months)
	for i := range series {
		m := start.AddDate(0, i, 0)
		series[i] = MonthRevenue{Month: m.Format("Jan 2006"), Total: buckets[i]}
	}
	return series, nil
}
