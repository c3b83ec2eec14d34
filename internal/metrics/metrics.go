// Package metrics exposes the gateway's Prometheus counters and gauges,
// served at /actuator/prometheus per spec §6.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process-wide collectors. It implements
// registry.MetricSink so the Correlation Registry can report orphan
// replies and late completions without importing this package directly.
type Metrics struct {
	OrphanReplies    prometheus.Counter
	LateCompletions  prometheus.Counter
	RequestTimeouts  prometheus.Counter
	RequestsTotal    *prometheus.CounterVec
	InFlightRequests prometheus.Gauge
}

// New registers the gateway's collectors against reg. Pass
// prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		OrphanReplies: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "registry",
			Name:      "orphan_replies_total",
			Help:      "Replies received for a correlation id with no matching pending slot.",
		}),
		LateCompletions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "registry",
			Name:      "late_completions_total",
			Help:      "Replies that arrived after their slot had already been claimed by a timeout or cancellation.",
		}),
		RequestTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "bridge",
			Name:      "request_timeouts_total",
			Help:      "Requests whose await deadline elapsed before a reply arrived.",
		}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "bridge",
			Name:      "requests_total",
			Help:      "Requests bridged to a service, labelled by routing key and outcome.",
		}, []string{"routing_key", "outcome"}),
		InFlightRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "gateway",
			Subsystem: "bridge",
			Name:      "in_flight_requests",
			Help:      "Requests currently awaiting a reply.",
		}),
	}
}

// IncOrphanReply implements registry.MetricSink.
func (m *Metrics) IncOrphanReply() { m.OrphanReplies.Inc() }

// IncLateCompletion implements registry.MetricSink.
func (m *Metrics) IncLateCompletion() { m.LateCompletions.Inc() }

// IncTimeout records a request whose deadline elapsed.
func (m *Metrics) IncTimeout() { m.RequestTimeouts.Inc() }

// ObserveRequest records one bridged request's terminal outcome.
func (m *Metrics) ObserveRequest(routingKey, outcome string) {
	m.RequestsTotal.WithLabelValues(routingKey, outcome).Inc()
}

// Handler returns the /actuator/prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
