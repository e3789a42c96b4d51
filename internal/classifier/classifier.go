// Package classifier scores grain spoilage risk from silo readings.
// Two implementations exist: an HTTP client for an external model
// service and a local linear model for broker-less deployments.
package classifier

import (
	"context"
	"time"

	"silo-backend/internal/models"
)

// Features are the inputs to a risk classification
type Features struct {
	DeviceID    string  `json:"device_id"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	VOC         float64 `json:"voc"`
	CO2         float64 `json:"co2"`
	Moisture    float64 `json:"moisture"`
}

// Classifier scores a reading's spoilage risk
type Classifier interface {
	Classify(ctx context.Context, features Features) (*models.RiskResult, error)
}

// FeaturesFromReading extracts classifier inputs from a reading
func FeaturesFromReading(reading *models.Reading) Features {
	f := Features{DeviceID: reading.DeviceID}
	if v, ok := reading.Value(models.SensorTemperature); ok {
		f.Temperature = v
	}
	if v, ok := reading.Value(models.SensorHumidity); ok {
		f.Humidity = v
	}
	if v, ok := reading.Value(models.SensorVOC); ok {
		f.VOC = v
	}
	if v, ok := reading.Value(models.SensorCO2); ok {
		f.CO2 = v
	}
	if v, ok := reading.Value(models.SensorMoisture); ok {
		f.Moisture = v
	}
	return f
}

// FallbackResult is the conservative classification used when the
// classifier times out or fails. Treating the grain as risky with zero
// confidence keeps downstream decisions cautious without hard-failing.
func FallbackResult(deviceID string) *models.RiskResult {
	return &models.RiskResult{
		DeviceID:   deviceID,
		Timestamp:  time.Now(),
		RiskClass:  models.RiskRisky,
		RiskScore:  0.5,
		Confidence: 0,
		Fallback:   true,
	}
}
