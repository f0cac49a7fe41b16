package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Refresh outcomes.
const (
	RefreshApplied   = "applied"
	RefreshFailed    = "failed"
	RefreshDiscarded = "discarded"
)

// Metrics exposes Prometheus collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	activeTickets   prometheus.Gauge
	snapshotSeq     prometheus.Gauge
	stale           prometheus.Gauge
}

// NewMetrics registers the collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	reg.MustRegister(collectors.NewGoCollector())

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "beacon_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_http_errors_total",
			Help: "HTTP error responses by error code",
		}, []string{"route", "method", "code"}),
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_refresh_total",
			Help: "Ticket refreshes by outcome",
		}, []string{"result"}),
		refreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "beacon_refresh_duration_seconds",
			Help:    "Upstream fetch latency",
			Buckets: prometheus.DefBuckets,
		}),
		activeTickets: factory.NewGauge(prometheus.GaugeOpts{
			Name: "beacon_active_tickets",
			Help: "Active tickets in the current snapshot",
		}),
		snapshotSeq: factory.NewGauge(prometheus.GaugeOpts{
			Name: "beacon_snapshot_sequence",
			Help: "Sequence number of the current snapshot",
		}),
		stale: factory.NewGauge(prometheus.GaugeOpts{
			Name: "beacon_snapshot_stale",
			Help: "1 while the most recent refresh failed",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordRefresh counts a refresh outcome and its fetch latency.
func (m *Metrics) RecordRefresh(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
	if duration > 0 {
		m.refreshDuration.Observe(duration.Seconds())
	}
}

// RecordStale marks the served snapshot as stale after a failure that
// superseded every applied refresh.
func (m *Metrics) RecordStale() {
	if m == nil {
		return
	}
	m.stale.Set(1)
}

// RecordSnapshot updates the snapshot gauges.
func (m *Metrics) RecordSnapshot(seq uint64, active int) {
	if m == nil {
		return
	}
	m.snapshotSeq.Set(float64(seq))
	m.activeTickets.Set(float64(active))
	m.stale.Set(0)
}
