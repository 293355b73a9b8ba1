package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "prospect"

// Metrics holds the API's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	Searches         prometheus.Counter
	ListingsFetched  prometheus.Counter
	ClassifyBatches  *prometheus.CounterVec
	VerdictsApplied  prometheus.Counter
	EnrichmentResult *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry so servers built
// in tests do not collide on the global one.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		Searches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "New searches started.",
		}),
		ListingsFetched: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_fetched_total",
			Help:      "Listings added to sessions.",
		}),
		ClassifyBatches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classify_batches_total",
			Help:      "AI classification batches by outcome.",
		}, []string{"outcome"}),
		VerdictsApplied: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_applied_total",
			Help:      "AI verdicts merged into sessions.",
		}),
		EnrichmentResult: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichments_total",
			Help:      "Enrichment attempts by result.",
		}, []string{"result"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
