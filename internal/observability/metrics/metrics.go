package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// RelayMetrics exposes counters/histograms for the relay pipeline. All
// Observe methods are safe on a nil receiver.
type RelayMetrics struct {
	eventsTotal         *prometheus.CounterVec
	actionsTotal        *prometheus.CounterVec
	missingContextTotal *prometheus.CounterVec
	nluTotal            *prometheus.CounterVec
	nluLatency          prometheus.Histogram
	backendTotal        *prometheus.CounterVec
	backendLatency      *prometheus.HistogramVec
	sendsTotal          *prometheus.CounterVec
	httpTotal           *prometheus.CounterVec
	httpLatency         *prometheus.HistogramVec
}

// NewRelayMetrics creates the relay collectors and registers them with reg,
// falling back to the default registerer when reg is nil.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Inbound messaging events by kind",
		}, []string{"kind"}),
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "dispatch",
			Name:      "actions_total",
			Help:      "Dispatched NLU actions",
		}, []string{"action"}),
		missingContextTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "dispatch",
			Name:      "missing_context_total",
			Help:      "Actions skipped because a required NLU context was absent",
		}, []string{"action", "context"}),
		nluTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "nlu",
			Name:      "requests_total",
			Help:      "Detect intent calls by outcome",
		}, []string{"status"}),
		nluLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "relay",
			Subsystem: "nlu",
			Name:      "latency_seconds",
			Help:      "Latency of detect intent calls",
			Buckets:   prometheus.DefBuckets,
		}),
		backendTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "booking",
			Name:      "requests_total",
			Help:      "Booking backend calls by operation and status",
		}, []string{"op", "status"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "relay",
			Subsystem: "booking",
			Name:      "latency_seconds",
			Help:      "Latency of booking backend calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		sendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "messenger",
			Name:      "sends_total",
			Help:      "Send API calls by kind and outcome",
		}, []string{"kind", "status"}),
		httpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"method", "route", "code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "relay",
			Subsystem: "http",
			Name:      "latency_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.eventsTotal,
		m.actionsTotal,
		m.missingContextTotal,
		m.nluTotal,
		m.nluLatency,
		m.backendTotal,
		m.backendLatency,
		m.sendsTotal,
		m.httpTotal,
		m.httpLatency,
	)
	return m
}

func (m *RelayMetrics) ObserveEvent(kind string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(kind).Inc()
}

func (m *RelayMetrics) ObserveAction(action string) {
	if m == nil {
		return
	}
	m.actionsTotal.WithLabelValues(action).Inc()
}

func (m *RelayMetrics) ObserveMissingContext(action, context string) {
	if m == nil {
		return
	}
	m.missingContextTotal.WithLabelValues(action, context).Inc()
}

func (m *RelayMetrics) ObserveNLU(status string, seconds float64) {
	if m == nil {
		return
	}
	m.nluTotal.WithLabelValues(status).Inc()
	m.nluLatency.Observe(seconds)
}

func (m *RelayMetrics) ObserveBackendCall(op, status string, seconds float64) {
	if m == nil {
		return
	}
	m.backendTotal.WithLabelValues(op, status).Inc()
	m.backendLatency.WithLabelValues(op).Observe(seconds)
}

func (m *RelayMetrics) ObserveSend(kind, status string) {
	if m == nil {
		return
	}
	m.sendsTotal.WithLabelValues(kind, status).Inc()
}

func (m *RelayMetrics) ObserveHTTP(method, route string, code int, seconds float64) {
	if m == nil {
		return
	}
	m.httpTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(seconds)
}
