package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gateway's prometheus instrumentation, registered once
// per server instance against its own registry so tests can spin up
// independent servers without colliding on the default registerer.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	AnalyzeDuration prometheus.Histogram
	WSClients       prometheus.Gauge
	ProviderErrors  *prometheus.CounterVec
}

// NewMetrics registers and returns a fresh metric set.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total HTTP requests handled, by route and status class.",
		}, []string{"route", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		AnalyzeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateway_analyze_market_duration_seconds",
			Help:    "Latency of the analyze_market orchestrator call.",
			Buckets: prometheus.DefBuckets,
		}),
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_ws_clients",
			Help: "Currently connected WebSocket clients.",
		}),
		ProviderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_provider_errors_total",
			Help: "Market data provider errors by provider and error kind.",
		}, []string{"provider", "kind"}),
	}
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
