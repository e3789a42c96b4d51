package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReadingsReceived counts normalized readings by transport
	ReadingsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "silo_readings_received_total",
		Help: "Normalized telemetry readings received, by transport",
	}, []string{"transport"})

	// MalformedPayloads counts rejected telemetry payloads
	MalformedPayloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "silo_malformed_payloads_total",
		Help: "Telemetry payloads rejected by the normalizer",
	})

	// AlertsDispatched counts dispatched alerts by priority
	AlertsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "silo_alerts_dispatched_total",
		Help: "Alerts dispatched, by priority",
	}, []string{"priority"})

	// ControlChanges counts actuator state changes by actor
	ControlChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "silo_control_changes_total",
		Help: "Actuator state changes, by actor",
	}, []string{"actor"})

	// GuardrailBlocks counts changes suppressed by safety guardrails
	GuardrailBlocks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "silo_guardrail_blocks_total",
		Help: "Control changes blocked by safety guardrails",
	})

	// ClassifierFallbacks counts conservative classifier fallbacks
	ClassifierFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "silo_classifier_fallbacks_total",
		Help: "Risk classifications replaced by the conservative fallback",
	})

	// RequestDuration observes HTTP handler latency
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "silo_http_request_duration_seconds",
		Help:    "HTTP request duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)
