package models

import "time"

// Violation severities
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// Alert priorities
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
)

// Alert source tags
const (
	SourceSensor   = "sensor"
	SourceActuator = "actuator"
	SourceSystem   = "system"
	SourceAI       = "ai"
)

// Alert types
const (
	AlertThresholdViolation = "threshold_violation"
	AlertProbeDivergence    = "probe_divergence"
	AlertGuardrailBlocked   = "guardrail_blocked"
)

// Violation is a single threshold breach for one sensor type
type Violation struct {
	SensorType    string  `json:"sensor_type"`
	Value         float64 `json:"value"`
	Threshold     float64 `json:"threshold"`
	ThresholdName string  `json:"threshold_name"` // min, max, critical_min, critical_max
	Severity      string  `json:"severity"`
}

// TypeDivergence is one diverging sensor type in a dual-probe check
type TypeDivergence struct {
	SensorType   string  `json:"sensor_type"`
	AmbientValue float64 `json:"ambient_value"`
	CoreValue    float64 `json:"core_value"`
	Difference   float64 `json:"difference"`
	RelativePct  float64 `json:"relative_pct"`
}

// DivergenceEvent is one combined ambient/core divergence
type DivergenceEvent struct {
	DeviceID    string           `json:"device_id"`
	Timestamp   time.Time        `json:"timestamp"`
	Divergences []TypeDivergence `json:"divergences"`
}

// Alert lifecycle statuses
const (
	AlertStatusPending      = "pending"
	AlertStatusAcknowledged = "acknowledged"
	AlertStatusResolved     = "resolved"
)

// Alert is a dispatched alert record. TriggerConditions holds the
// structured payload that raised it (violations, divergences or
// guardrail reasons) for later inspection.
type Alert struct {
	ID                string      `json:"id"`
	DeviceID          string      `json:"device_id"`
	Source            string      `json:"source"`
	Type              string      `json:"type"`
	Priority          string      `json:"priority"`
	Status            string      `json:"status"`
	Message           string      `json:"message"`
	TriggerConditions interface{} `json:"trigger_conditions,omitempty"`
	Timestamp         time.Time   `json:"timestamp"`
}
