package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-wide HTTP metrics. Domain packages own their own collectors.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	AuditDropped    prometheus.Counter
	RateLimited     *prometheus.CounterVec
}

// New creates and registers the process-wide metrics
func New() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "toolbox_http_requests_total",
			Help: "Total number of HTTP requests by route pattern, method and status code",
		}, []string{"route", "method", "status"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "toolbox_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		AuditDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "toolbox_audit_events_dropped_total",
			Help: "Audit events that could not be queued",
		}),
		RateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "toolbox_rate_limited_requests_total",
			Help: "Requests rejected with 429 by scope",
		}, []string{"scope"}),
	}
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// IncrementAuditDropped increments the dropped audit events counter by 1
func (m *Metrics) IncrementAuditDropped() {
	m.AuditDropped.Inc()
}

func (m *Metrics) IncrementRateLimited(scope string) {
	m.RateLimited.WithLabelValues(scope).Inc()
}
