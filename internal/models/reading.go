package models

import "time"

// Probe types for dual-probe silos
const (
	ProbeAmbient = "ambient"
	ProbeCore    = "core"
)

// Sensor types carried in telemetry payloads
const (
	SensorTemperature = "temperature"
	SensorHumidity    = "humidity"
	SensorVOC         = "voc"
	SensorCO2         = "co2"
	SensorMoisture    = "moisture"
	SensorPressure    = "pressure"
)

// SensorValue is a single normalized measurement
type SensorValue struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// DeviceMetrics is optional device health reported alongside sensor
// values (edge hardware, not grain conditions)
type DeviceMetrics struct {
	BatteryLevel   *float64 `json:"battery_level,omitempty"`
	SignalStrength *float64 `json:"signal_strength,omitempty"`
}

// RawTelemetry is an unvalidated payload as received from a transport.
// Values may be scalars or {value, unit} objects; sensor type names may
// still use aliases (tvoc, tvoc_ppb).
type RawTelemetry struct {
	DeviceID      string                 `json:"device_id"`
	ProbeType     string                 `json:"probe_type"`
	Timestamp     time.Time              `json:"timestamp"`
	Values        map[string]interface{} `json:"values"`
	DeviceMetrics *DeviceMetrics         `json:"device_metrics,omitempty"`
	Source        string                 `json:"-"` // transport that delivered it
}

// Reading is a normalized, validated telemetry reading for one probe
type Reading struct {
	DeviceID      string                 `json:"device_id"`
	ProbeType     string                 `json:"probe_type"`
	Timestamp     time.Time              `json:"timestamp"`
	Values        map[string]SensorValue `json:"values"`
	DeviceMetrics *DeviceMetrics         `json:"device_metrics,omitempty"`
	Source        string                 `json:"source,omitempty"`
}

// Value returns the reading's value for a sensor type, if present
func (r *Reading) Value(sensorType string) (float64, bool) {
	v, ok := r.Values[sensorType]
	if !ok {
		return 0, false
	}
	return v.Value, true
}

// DefaultUnits maps sensor types to the unit assumed for bare scalars
var DefaultUnits = map[string]string{
	SensorTemperature: "C",
	SensorHumidity:    "%",
	SensorVOC:         "ppb",
	SensorCO2:         "ppm",
	SensorMoisture:    "%",
	SensorPressure:    "hPa",
}
