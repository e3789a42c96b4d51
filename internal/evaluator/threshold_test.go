package evaluator

import (
	"testing"
	"time"

	"silo-backend/internal/models"
)

func f(v float64) *float64 { return &v }

func reading(values map[string]float64) *models.Reading {
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

func TestEvaluatePrecedence(t *testing.T) {
	thresholds := map[string]models.Thresholds{
		models.SensorTemperature: {
			Min:         f(5),
			Max:         f(30),
			CriticalMin: f(0),
			CriticalMax: f(45),
		},
	}

	tests := []struct {
		name          string
		value         float64
		wantCount     int
		wantThreshold string
		wantSeverity  string
	}{
		{"below critical min", -3, 1, "critical_min", models.SeverityCritical},
		{"above critical max", 50, 1, "critical_max", models.SeverityCritical},
		{"below min", 2, 1, "min", models.SeverityWarning},
		{"above max", 35, 1, "max", models.SeverityWarning},
		{"in range", 20, 0, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := Evaluate(reading(map[string]float64{models.SensorTemperature: tt.value}), thresholds)
			if len(violations) != tt.wantCount {
				t.Fatalf("got %d violations, want %d", len(violations), tt.wantCount)
			}
			if tt.wantCount == 0 {
				return
			}
			v := violations[0]
			if v.ThresholdName != tt.wantThreshold {
				t.Errorf("threshold = %q, want %q", v.ThresholdName, tt.wantThreshold)
			}
			if v.Severity != tt.wantSeverity {
				t.Errorf("severity = %q, want %q", v.Severity, tt.wantSeverity)
			}
		})
	}
}

func TestEvaluateOneViolationPerType(t *testing.T) {
	// A value below critical_min is also below min; only the critical
	// violation must be reported.
	thresholds := map[string]models.Thresholds{
		models.SensorHumidity: {Min: f(30), CriticalMin: f(10)},
	}

	violations := Evaluate(reading(map[string]float64{models.SensorHumidity: 5}), thresholds)
	if len(violations) != 1 {
		t.Fatalf("got %d violations, want 1", len(violations))
	}
	if violations[0].ThresholdName != "critical_min" {
		t.Errorf("threshold = %q, want critical_min", violations[0].ThresholdName)
	}
}

func TestEvaluateMultipleTypes(t *testing.T) {
	thresholds := map[string]models.Thresholds{
		models.SensorTemperature: {Max: f(30)},
		models.SensorHumidity:    {Max: f(70)},
		models.SensorVOC:         {Max: f(800)},
	}

	violations := Evaluate(reading(map[string]float64{
		models.SensorTemperature: 35,
		models.SensorHumidity:    80,
		models.SensorVOC:         500,
	}), thresholds)

	if len(violations) != 2 {
		t.Fatalf("got %d violations, want 2", len(violations))
	}
	seen := map[string]bool{}
	for _, v := range violations {
		seen[v.SensorType] = true
	}
	if !seen[models.SensorTemperature] || !seen[models.SensorHumidity] {
		t.Errorf("unexpected violation set: %+v", violations)
	}
}

func TestEvaluateUnconfiguredTypeIgnored(t *testing.T) {
	violations := Evaluate(reading(map[string]float64{models.SensorCO2: 5000}), map[string]models.Thresholds{})
	if len(violations) != 0 {
		t.Errorf("got %d violations for unconfigured type, want 0", len(violations))
	}
}
