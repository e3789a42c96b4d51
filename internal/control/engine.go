package control

import (
	"fmt"
	"time"

	"silo-backend/internal/models"
)

// Decision reasons
const (
	ReasonHumidityHigh = "humidity_high"
	ReasonVOCHigh      = "voc_high"
	ReasonRiskClass    = "risk_class"
	ReasonBelowBand    = "below_band"
	ReasonWithinBand   = "within_band"
	ReasonMinDwell     = "min_dwell"
	ReasonGuardrail    = "guardrail"
	ReasonNoData       = "no_data"
)

// EngineConfig holds hysteresis bands, guardrails and dwell
type EngineConfig struct {
	HumidityEngage    float64
	HumidityDisengage float64
	VOCEngage         float64
	VOCDisengage      float64

	GuardrailMaxTemp float64
	GuardrailMaxVOC  float64

	MinDwell time.Duration
}

// DefaultEngineConfig returns the standard ventilation bands
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		HumidityEngage:    75,
		HumidityDisengage: 65,
		VOCEngage:         600,
		VOCDisengage:      400,
		GuardrailMaxTemp:  60,
		GuardrailMaxVOC:   1000,
		MinDwell:          5 * time.Minute,
	}
}

// Decision is the engine's verdict for one evaluation. At most one
// state change is requested per evaluation.
type Decision struct {
	ShouldChange bool     `json:"should_change"`
	TargetOn     bool     `json:"target_on"`
	Reason       string   `json:"reason"`
	Blocked      bool     `json:"blocked"`
	BlockedBy    []string `json:"blocked_by,omitempty"`
}

// Engine decides ventilation fan state from normalized readings using
// hysteresis bands with safety guardrails and a minimum dwell between
// state changes.
type Engine struct {
	cfg EngineConfig
}

// NewEngine creates a decision engine
func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Evaluate produces a decision for the current reading. isOn and
// lastChange describe the fan's present state; risk may be nil when no
// classification is available, ai configures whether risk counts as an
// engage condition.
func (e *Engine) Evaluate(reading *models.Reading, isOn bool, lastChange time.Time, risk *models.RiskResult, ai models.AIControl) Decision {
	if reading == nil || len(reading.Values) == 0 {
		return Decision{TargetOn: isOn, Reason: ReasonNoData}
	}

	// Guardrails trump everything: no change in either direction.
	if blockedBy := e.Guardrails(reading); len(blockedBy) > 0 {
		return Decision{
			TargetOn:  isOn,
			Reason:    ReasonGuardrail,
			Blocked:   true,
			BlockedBy: blockedBy,
		}
	}

	humidity, hasHumidity := reading.Value(models.SensorHumidity)
	voc, hasVOC := reading.Value(models.SensorVOC)

	targetOn := isOn
	reason := ReasonWithinBand

	switch {
	case hasHumidity && humidity > e.cfg.HumidityEngage:
		targetOn = true
		reason = ReasonHumidityHigh
	case hasVOC && voc > e.cfg.VOCEngage:
		targetOn = true
		reason = ReasonVOCHigh
	case e.riskEngages(risk, ai):
		targetOn = true
		reason = ReasonRiskClass
	case isOn && e.belowBand(humidity, hasHumidity, voc, hasVOC):
		targetOn = false
		reason = ReasonBelowBand
	}

	// No change wanted; report the condition that holds the state so
	// operators see why the fan stays on.
	if targetOn == isOn {
		return Decision{TargetOn: isOn, Reason: reason}
	}

	// A change is wanted; suppress it inside the dwell window.
	if !lastChange.IsZero() && time.Since(lastChange) < e.cfg.MinDwell {
		return Decision{TargetOn: isOn, Reason: ReasonMinDwell}
	}

	return Decision{ShouldChange: true, TargetOn: targetOn, Reason: reason}
}

// Guardrails returns the reasons blocking all state changes. Manual
// control paths consult this directly.
func (e *Engine) Guardrails(reading *models.Reading) []string {
	if reading == nil {
		return nil
	}
	var reasons []string
	if temp, ok := reading.Value(models.SensorTemperature); ok && temp > e.cfg.GuardrailMaxTemp {
		reasons = append(reasons, fmt.Sprintf("temperature %.1f exceeds %.1f", temp, e.cfg.GuardrailMaxTemp))
	}
	if voc, ok := reading.Value(models.SensorVOC); ok && voc > e.cfg.GuardrailMaxVOC {
		reasons = append(reasons, fmt.Sprintf("voc %.0f exceeds %.0f", voc, e.cfg.GuardrailMaxVOC))
	}
	return reasons
}

// belowBand reports whether every present reading sits under its
// disengage bound
func (e *Engine) belowBand(humidity float64, hasHumidity bool, voc float64, hasVOC bool) bool {
	if !hasHumidity && !hasVOC {
		return false
	}
	if hasHumidity && humidity >= e.cfg.HumidityDisengage {
		return false
	}
	if hasVOC && voc >= e.cfg.VOCDisengage {
		return false
	}
	return true
}

// riskEngages reports whether an AI risk classification counts as an
// engage condition
func (e *Engine) riskEngages(risk *models.RiskResult, ai models.AIControl) bool {
	if !ai.Enabled || risk == nil {
		return false
	}
	if risk.RiskClass != models.RiskRisky && risk.RiskClass != models.RiskSpoiled {
		return false
	}
	if risk.RiskScore < ai.RiskScoreThreshold {
		return false
	}
	return risk.Confidence >= ai.MinConfidence || risk.Fallback
}
