package control

import (
	"testing"
	"time"

	"silo-backend/internal/models"
)

func envReading(values map[string]float64) *models.Reading {
	r := &models.Reading{
		DeviceID:  "silo-001",
		ProbeType: models.ProbeCore,
		Timestamp: time.Now(),
		Values:    make(map[string]models.SensorValue),
	}
	for k, v := range values {
		r.Values[k] = models.SensorValue{Value: v, Unit: models.DefaultUnits[k]}
	}
	return r
}

func TestEvaluateHysteresis(t *testing.T) {
	engine := NewEngine(DefaultEngineConfig())
	longAgo := time.Now().Add(-time.Hour)

	tests := []struct {
		name       string
		values     map[string]float64
		isOn       bool
		wantChange bool
		wantOn     bool
		wantReason string
	}{
		{
			name:       "humidity and voc high engages",
			values:     map[string]float64{models.SensorHumidity: 80, models.SensorVOC: 650},
			isOn:       false,
			wantChange: true,
			wantOn:     true,
			wantReason: ReasonHumidityHigh,
		},
		{
			name:       "between bands holds when off",
			values:     map[string]float64{models.SensorHumidity: 70, models.SensorVOC: 500},
			isOn:       false,
			wantChange: false,
			wantOn:     false,
		},
		{
			name:       "between bands holds when on",
			values:     map[string]float64{models.SensorHumidity: 70, models.SensorVOC: 500},
			isOn:       true,
			wantChange: false,
			wantOn:     true,
			wantReason: ReasonWithinBand,
		},
		{
			name:       "engage condition holding fan on reports it",
			values:     map[string]float64{models.SensorHumidity: 80, models.SensorVOC: 500},
			isOn:       true,
			wantChange: false,
			wantOn:     true,
			wantReason: ReasonHumidityHigh,
		},
		{
			name:       "below both bands disengages",
			values:     map[string]float64{models.SensorHumidity: 60, models.SensorVOC: 350},
			isOn:       true,
			wantChange: true,
			wantOn:     false,
			wantReason: ReasonBelowBand,
		},
		{
			name:       "below both bands stays off",
			values:     map[string]float64{models.SensorHumidity: 60, models.SensorVOC: 350},
			isOn:       false,
			wantChange: false,
			wantOn:     false,
		},
		{
			name:       "voc alone engages",
			values:     map[string]float64{models.SensorHumidity: 50, models.SensorVOC: 700},
			isOn:       false,
			wantChange: true,
			wantOn:     true,
			wantReason: ReasonVOCHigh,
		},
		{
			name:       "humidity low but voc above disengage stays on",
			values:     map[string]float64{models.SensorHumidity: 50, models.SensorVOC: 450},
			isOn:       true,
			wantChange: false,
			wantOn:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := engine.Evaluate(envReading(tt.values), tt.isOn, longAgo, nil, models.AIControl{})
			if d.ShouldChange != tt.wantChange {
				t.Errorf("should_change = %v, want %v", d.ShouldChange, tt.wantChange)
			}
			if d.TargetOn != tt.wantOn {
				t.Errorf("target_on = %v, want %v", d.TargetOn, tt.wantOn)
			}
			if tt.wantReason != "" && d.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", d.Reason, tt.wantReason)
			}
			if d.Blocked {
				t.Error("unexpected guardrail block")
			}
		})
	}
}

func TestEvaluateGuardrailsBlockAllChanges(t *testing.T) {
	engine := NewEngine(DefaultEngineConfig())
	longAgo := time.Now().Add(-time.Hour)

	tests := []struct {
		name   string
		values map[string]float64
		isOn   bool
	}{
		{
			name:   "temperature guardrail blocks engage",
			values: map[string]float64{models.SensorTemperature: 61, models.SensorHumidity: 90},
			isOn:   false,
		},
		{
			name:   "voc guardrail blocks disengage",
			values: map[string]float64{models.SensorVOC: 1001, models.SensorHumidity: 40},
			isOn:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := engine.Evaluate(envReading(tt.values), tt.isOn, longAgo, nil, models.AIControl{})
			if d.ShouldChange {
				t.Error("guardrail did not block the change")
			}
			if !d.Blocked {
				t.Error("decision not marked blocked")
			}
			if d.Reason != ReasonGuardrail {
				t.Errorf("reason = %q, want %q", d.Reason, ReasonGuardrail)
			}
			if len(d.BlockedBy) == 0 {
				t.Error("blocked decision carries no reasons")
			}
			if d.TargetOn != tt.isOn {
				t.Error("blocked decision altered target state")
			}
		})
	}
}

func TestEvaluateMinDwellSuppressesChange(t *testing.T) {
	engine := NewEngine(DefaultEngineConfig())

	d := engine.Evaluate(
		envReading(map[string]float64{models.SensorHumidity: 80}),
		false,
		time.Now().Add(-time.Minute),
		nil,
		models.AIControl{},
	)
	if d.ShouldChange {
		t.Error("change allowed inside dwell window")
	}
	if d.Reason != ReasonMinDwell {
		t.Errorf("reason = %q, want %q", d.Reason, ReasonMinDwell)
	}
}

func TestEvaluateAtMostOneChange(t *testing.T) {
	engine := NewEngine(DefaultEngineConfig())
	longAgo := time.Now().Add(-time.Hour)

	// Re-evaluating with the post-change state must not request a
	// second change for the same conditions.
	r := envReading(map[string]float64{models.SensorHumidity: 80, models.SensorVOC: 650})

	first := engine.Evaluate(r, false, longAgo, nil, models.AIControl{})
	if !first.ShouldChange || !first.TargetOn {
		t.Fatalf("expected engage, got %+v", first)
	}
	second := engine.Evaluate(r, true, longAgo, nil, models.AIControl{})
	if second.ShouldChange {
		t.Errorf("second evaluation requested another change: %+v", second)
	}
}

func TestEvaluateRiskClassEngages(t *testing.T) {
	engine := NewEngine(DefaultEngineConfig())
	longAgo := time.Now().Add(-time.Hour)
	ai := models.AIControl{Enabled: true, RiskScoreThreshold: 0.7, MinConfidence: 0.6}

	risk := &models.RiskResult{RiskClass: models.RiskSpoiled, RiskScore: 0.9, Confidence: 0.8}
	d := engine.Evaluate(envReading(map[string]float64{models.SensorHumidity: 50}), false, longAgo, risk, ai)
	if !d.ShouldChange || !d.TargetOn {
		t.Errorf("risk classification did not engage: %+v", d)
	}
	if d.Reason != ReasonRiskClass {
		t.Errorf("reason = %q, want %q", d.Reason, ReasonRiskClass)
	}

	// Same class below the score threshold stays off.
	weak := &models.RiskResult{RiskClass: models.RiskRisky, RiskScore: 0.3, Confidence: 0.8}
	d = engine.Evaluate(envReading(map[string]float64{models.SensorHumidity: 50}), false, longAgo, weak, ai)
	if d.ShouldChange {
		t.Errorf("weak risk score engaged: %+v", d)
	}

	// AI control disabled ignores the classification entirely.
	d = engine.Evaluate(envReading(map[string]float64{models.SensorHumidity: 50}), false, longAgo, risk, models.AIControl{})
	if d.ShouldChange {
		t.Errorf("classification engaged with AI control disabled: %+v", d)
	}
}

func TestEvaluateNoData(t *testing.T) {
	engine := NewEngine(DefaultEngineConfig())

	d := engine.Evaluate(nil, true, time.Time{}, nil, models.AIControl{})
	if d.ShouldChange {
		t.Error("change requested with no reading")
	}
	if d.Reason != ReasonNoData {
		t.Errorf("reason = %q, want %q", d.Reason, ReasonNoData)
	}
}
