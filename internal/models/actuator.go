package models

import "time"

// Actuator status values
const (
	StatusIdle        = "idle"
	StatusRunning     = "running"
	StatusMaintenance = "maintenance"
	StatusError       = "error"
	StatusOffline     = "offline"
)

// Control actions accepted by the actuator state machine
const (
	ActionOn       = "on"
	ActionOff      = "off"
	ActionToggle   = "toggle"
	ActionSetPower = "set_power"
)

// Actors recorded in the audit log
const (
	ActorHuman     = "human"
	ActorAI        = "ai"
	ActorScheduler = "scheduler"
)

// Actuator is a controllable device attached to a silo (fan, lid servo)
type Actuator struct {
	ID           string       `json:"id"`
	DeviceID     string       `json:"device_id"` // silo the actuator belongs to
	Name         string       `json:"name"`
	Type         string       `json:"type"` // fan, lid
	Status       string       `json:"status"`
	IsOn         bool         `json:"is_on"`
	PowerLevel   float64      `json:"power_level"` // 0-100
	Enabled      bool         `json:"enabled"`
	AIControl    AIControl    `json:"ai_control"`
	Schedule     *Schedule    `json:"schedule,omitempty"`
	SafetyLimits SafetyLimits `json:"safety_limits"`
	LastChange   time.Time    `json:"last_change"`
	TotalRuntime float64      `json:"total_runtime_hours"`
}

// AIControl configures automated control for an actuator
type AIControl struct {
	Enabled            bool    `json:"enabled"`
	RiskScoreThreshold float64 `json:"risk_score_threshold"`
	MinConfidence      float64 `json:"min_confidence"`
}

// Schedule is a stored on/off schedule; execution is external
type Schedule struct {
	Enabled bool   `json:"enabled"`
	Days    []int  `json:"days"`     // 0=Sunday .. 6=Saturday
	OnTime  string `json:"on_time"`  // HH:MM
	OffTime string `json:"off_time"` // HH:MM
}

// SafetyLimits bound actuator operation
type SafetyLimits struct {
	MaxRuntimeHours float64       `json:"max_runtime_hours"`
	MinDwell        time.Duration `json:"min_dwell"`
}

// ControlState is the actuation state mirrored to both transports
type ControlState struct {
	DeviceID       string    `json:"device_id"`
	ActuatorID     string    `json:"actuator_id"`
	IsOn           bool      `json:"is_on"`
	TargetPower    float64   `json:"target_power"`
	HumanRequested bool      `json:"human_requested"`
	MLRequested    bool      `json:"ml_requested"`
	MLDecision     string    `json:"ml_decision,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AuditEntry records one actuator transition
type AuditEntry struct {
	ID         string    `json:"id"`
	ActuatorID string    `json:"actuator_id"`
	DeviceID   string    `json:"device_id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	PowerLevel float64   `json:"power_level"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ControlResult is the outcome of a single control operation
type ControlResult struct {
	ActuatorID string `json:"actuator_id"`
	Success    bool   `json:"success"`
	Status     string `json:"status,omitempty"`
	Error      string `json:"error,omitempty"`
}

// BulkControlResult aggregates per-actuator results
type BulkControlResult struct {
	Results    []ControlResult `json:"results"`
	Total      int             `json:"total"`
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
}
