// Package metrics exposes prometheus instruments for the reconciliation
// pipeline and the HTTP surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds application-level instruments.
type Metrics struct {
	registry *prometheus.Registry

	PreviewRuns       prometheus.Counter
	InvoicesPriced    prometheus.Counter
	UnresolvedRecords *prometheus.CounterVec
	Postings          *prometheus.CounterVec
	NotifyFailures    prometheus.Counter

	httpDuration *prometheus.HistogramVec
}

// New registers the vpnbill instruments on a fresh registry.
func New() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	m := &Metrics{
		registry: registry,
		PreviewRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vpnbill_preview_runs_total",
			Help: "Reconciliation preview runs.",
		}),
		InvoicesPriced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vpnbill_invoices_priced_total",
			Help: "Invoices priced during preview runs.",
		}),
		UnresolvedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vpnbill_unresolved_records_total",
			Help: "Usage records excluded from pricing, by reason.",
		}, []string{"reason"}),
		Postings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vpnbill_ledger_postings_total",
			Help: "Ledger posting attempts, by outcome.",
		}, []string{"outcome"}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vpnbill_notification_failures_total",
			Help: "Notification sends that failed after a successful posting.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vpnbill_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	for _, collector := range []prometheus.Collector{
		m.PreviewRuns,
		m.InvoicesPriced,
		m.UnresolvedRecords,
		m.Postings,
		m.NotifyFailures,
		m.httpDuration,
	} {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Registry returns the registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
