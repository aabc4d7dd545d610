package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, path and status code",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	InvoiceTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoice_transitions_total",
			Help: "Invoice status transitions by source and target status",
		},
		[]string{"from", "to"},
	)

	InvoicesSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "invoices_sent_total",
			Help: "Invoices dispatched to clients",
		},
	)

	PaymentWebhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhooks_total",
			Help: "Payment gateway webhooks by outcome",
		},
		[]string{"outcome"},
	)
)
