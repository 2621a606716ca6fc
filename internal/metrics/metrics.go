package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry so tests and
// multiple servers in one process do not collide.
type Metrics struct {
	Registry *prometheus.Registry

	RefreshTotal      *prometheus.CounterVec
	FetchLatency      *prometheus.HistogramVec
	AnalyticsLatency  prometheus.Histogram
	TailsDetected     prometheus.Gauge
	LastRefresh       prometheus.Gauge
	WebsocketClients  prometheus.Gauge
	NotificationsSent *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profiler_refresh_total",
			Help: "Quote refresh attempts by result.",
		}, []string{"result"}),
		FetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "profiler_upstream_fetch_seconds",
			Help:    "Upstream bar fetch latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"series"}),
		AnalyticsLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "profiler_analytics_seconds",
			Help:    "Time to build a session report in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		TailsDetected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiler_tails_detected",
			Help: "Tails in the most recent session report.",
		}),
		LastRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiler_snapshot_timestamp_seconds",
			Help: "Unix time of the last successful quote refresh.",
		}),
		WebsocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiler_websocket_clients",
			Help: "Connected websocket clients.",
		}),
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profiler_notifications_total",
			Help: "Notifications sent by kind and result.",
		}, []string{"kind", "result"}),
	}

	m.Registry.MustRegister(
		m.RefreshTotal,
		m.FetchLatency,
		m.AnalyticsLatency,
		m.TailsDetected,
		m.LastRefresh,
		m.WebsocketClients,
		m.NotificationsSent,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
