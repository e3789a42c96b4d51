package evaluator

import (
	"silo-backend/internal/models"
)

// Evaluate checks a reading against per-type thresholds and returns at
// most one violation per sensor type. Bound precedence:
// critical_min, critical_max, min, max.
func Evaluate(reading *models.Reading, thresholds map[string]models.Thresholds) []models.Violation {
	var violations []models.Violation

	for sensorType, sv := range reading.Values {
		th, ok := thresholds[sensorType]
		if !ok {
			continue
		}

		switch {
		case th.CriticalMin != nil && sv.Value < *th.CriticalMin:
			violations = append(violations, models.Violation{
				SensorType:    sensorType,
				Value:         sv.Value,
				Threshold:     *th.CriticalMin,
				ThresholdName: "critical_min",
				Severity:      models.SeverityCritical,
			})
		case th.CriticalMax != nil && sv.Value > *th.CriticalMax:
			violations = append(violations, models.Violation{
				SensorType:    sensorType,
				Value:         sv.Value,
				Threshold:     *th.CriticalMax,
				ThresholdName: "critical_max",
				Severity:      models.SeverityCritical,
			})
		case th.Min != nil && sv.Value < *th.Min:
			violations = append(violations, models.Violation{
				SensorType:    sensorType,
				Value:         sv.Value,
				Threshold:     *th.Min,
				ThresholdName: "min",
				Severity:      models.SeverityWarning,
			})
		case th.Max != nil && sv.Value > *th.Max:
			violations = append(violations, models.Violation{
				SensorType:    sensorType,
				Value:         sv.Value,
				Threshold:     *th.Max,
				ThresholdName: "max",
				Severity:      models.SeverityWarning,
			})
		}
	}

	return violations
}
