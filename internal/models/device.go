package models

import "time"

// Thresholds for one sensor type; nil bounds are not enforced
type Thresholds struct {
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	CriticalMin *float64 `json:"critical_min,omitempty"`
	CriticalMax *float64 `json:"critical_max,omitempty"`
}

// Device is a registered silo with its monitoring configuration
type Device struct {
	DeviceID     string                `json:"device_id"`
	Name         string                `json:"name"`
	Location     string                `json:"location"`
	RegisteredAt time.Time             `json:"registered_at"`
	LastSeen     time.Time             `json:"last_seen"`
	IsActive     bool                  `json:"is_active"`
	Thresholds   map[string]Thresholds `json:"thresholds"`  // keyed by sensor type
	Calibration  map[string]float64    `json:"calibration"` // additive offsets per sensor type
}

// RiskResult is a grain risk classification for one silo reading
type RiskResult struct {
	DeviceID   string    `json:"device_id"`
	Timestamp  time.Time `json:"timestamp"`
	RiskClass  string    `json:"risk_class"` // safe, risky, spoiled
	RiskScore  float64   `json:"risk_score"` // 0-1
	Confidence float64   `json:"confidence"` // 0-1
	Fallback   bool      `json:"fallback"`   // conservative result after classifier failure
}

// Risk classes
const (
	RiskSafe    = "safe"
	RiskRisky   = "risky"
	RiskSpoiled = "spoiled"
)
