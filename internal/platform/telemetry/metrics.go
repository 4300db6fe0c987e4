package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var defaultDurationBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
	HTTPActive          prometheus.Gauge
	MessagesReceived    *prometheus.CounterVec
	MessagesAcked       *prometheus.CounterVec
	ParseDuration       prometheus.Histogram
	MLLPConnections     prometheus.Gauge
	MLLPFrames          *prometheus.CounterVec
	ForwardFailures     *prometheus.CounterVec
	CircuitBreakerState *prometheus.GaugeVec
	SchemaReloads       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_server_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_server_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: defaultDurationBuckets,
		}, []string{"method", "route"}),
		HTTPActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_server_active_requests",
			Help: "HTTP requests in flight",
		}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hl7_messages_received_total",
			Help: "HL7 messages received by message type",
		}, []string{"type"}),
		MessagesAcked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hl7_messages_acknowledged_total",
			Help: "HL7 messages by message type and acknowledgment code",
		}, []string{"type", "code"}),
		ParseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hl7_parse_duration_seconds",
			Help:    "Time spent parsing HL7 messages",
			Buckets: defaultDurationBuckets,
		}),
		MLLPConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mllp_connections_active",
			Help: "Open MLLP connections",
		}),
		MLLPFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mllp_frames_total",
			Help: "MLLP frames by direction",
		}, []string{"direction"}),
		ForwardFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hl7_forward_failures_total",
			Help: "Failed publishes by sink",
		}, []string{"sink"}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),
		SchemaReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hl7_schema_reloads_total",
			Help: "Custom schema table reloads by result",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.HTTPActive,
		m.MessagesReceived,
		m.MessagesAcked,
		m.ParseDuration,
		m.MLLPConnections,
		m.MLLPFrames,
		m.ForwardFailures,
		m.CircuitBreakerState,
		m.SchemaReloads,
	)
	return m
}

// MessageReceived counts an inbound message.
func (m *Metrics) MessageReceived(msgType string) {
	if m == nil {
		return
	}
	m.MessagesReceived.WithLabelValues(label(msgType)).Inc()
}

// MessageAcked counts the acknowledgment sent for a message.
func (m *Metrics) MessageAcked(msgType, code string) {
	if m == nil {
		return
	}
	m.MessagesAcked.WithLabelValues(label(msgType), code).Inc()
}

// ObserveParse records how long a parse took.
func (m *Metrics) ObserveParse(d time.Duration) {
	if m == nil {
		return
	}
	m.ParseDuration.Observe(d.Seconds())
}

// ConnOpened and ConnClosed track MLLP connections.
func (m *Metrics) ConnOpened() {
	if m != nil {
		m.MLLPConnections.Inc()
	}
}

func (m *Metrics) ConnClosed() {
	if m != nil {
		m.MLLPConnections.Dec()
	}
}

// Frame counts an MLLP frame; direction is "in" or "out".
func (m *Metrics) Frame(direction string) {
	if m != nil {
		m.MLLPFrames.WithLabelValues(direction).Inc()
	}
}

// ForwardFailed counts a failed publish to sink.
func (m *Metrics) ForwardFailed(sink string) {
	if m != nil {
		m.ForwardFailures.WithLabelValues(sink).Inc()
	}
}

// BreakerState records a circuit breaker state change.
func (m *Metrics) BreakerState(name string, state int) {
	if m != nil {
		m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
	}
}

// SchemaReloaded counts a schema directory reload.
func (m *Metrics) SchemaReloaded(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SchemaReloads.WithLabelValues(result).Inc()
}

func label(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
