// Package metrics exposes the engine's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the engine collectors on a private Prometheus registry so
// tests can construct isolated instances.
type Registry struct {
	Upserts         *prometheus.CounterVec
	StoreRoundtrips *prometheus.CounterVec
	FormatFallbacks prometheus.Counter
	SummaryRows     prometheus.Gauge

	reg *prometheus.Registry
}

// New builds and registers the engine collectors.
func New() *Registry {
	r := &Registry{
		Upserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetreports_upserts_total",
			Help: "Upsert operations by record kind and outcome.",
		}, []string{"kind", "outcome"}),
		StoreRoundtrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetreports_store_roundtrips_total",
			Help: "Remote store calls by operation and status.",
		}, []string{"op", "status"}),
		FormatFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleetreports_format_fallbacks_total",
			Help: "Writes that proceeded with unformatted bytes after a formatting failure.",
		}),
		SummaryRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fleetreports_summary_rows",
			Help: "Row count of the Summary sheet after the last successful store.",
		}),
		reg: prometheus.NewRegistry(),
	}
	r.reg.MustRegister(r.Upserts, r.StoreRoundtrips, r.FormatFallbacks, r.SummaryRows)
	return r
}

// Handler serves the registry in Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
