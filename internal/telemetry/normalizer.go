package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	"silo-backend/internal/models"
)

// sensor type aliases seen in edge firmware payloads
var sensorAliases = map[string]string{
	"tvoc":     models.SensorVOC,
	"tvoc_ppb": models.SensorVOC,
}

// CalibrationSource provides per-device calibration offsets
type CalibrationSource interface {
	CalibrationOffsets(deviceID string) map[string]float64
}

// Normalizer validates raw telemetry and produces canonical readings
type Normalizer struct {
	calibration CalibrationSource
}

// NewNormalizer creates a normalizer; calibration may be nil
func NewNormalizer(calibration CalibrationSource) *Normalizer {
	return &Normalizer{calibration: calibration}
}

// ParsePayload decodes a raw JSON payload from a transport
func ParsePayload(payload []byte, source string) (*models.RawTelemetry, error) {
	var raw models.RawTelemetry
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &models.MalformedTelemetryError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	raw.Source = source
	return &raw, nil
}

// Normalize validates a raw payload and returns a canonical reading.
// Sensor aliases are resolved, bare scalars get default units, and
// calibration offsets are applied.
func (n *Normalizer) Normalize(raw *models.RawTelemetry) (*models.Reading, error) {
	if raw.DeviceID == "" {
		return nil, &models.MalformedTelemetryError{Field: "device_id", Reason: "missing"}
	}
	if len(raw.Values) == 0 {
		return nil, &models.MalformedTelemetryError{Field: "values", Reason: "empty"}
	}

	probeType := raw.ProbeType
	switch probeType {
	case "":
		probeType = models.ProbeCore
	case models.ProbeAmbient, models.ProbeCore:
	default:
		return nil, &models.MalformedTelemetryError{Field: "probe_type", Reason: fmt.Sprintf("unknown probe type %q", probeType)}
	}

	timestamp := raw.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var offsets map[string]float64
	if n.calibration != nil {
		offsets = n.calibration.CalibrationOffsets(raw.DeviceID)
	}

	values := make(map[string]models.SensorValue, len(raw.Values))
	for name, rawValue := range raw.Values {
		sensorType := name
		if canonical, ok := sensorAliases[name]; ok {
			sensorType = canonical
		}

		sv, err := parseSensorValue(sensorType, rawValue)
		if err != nil {
			return nil, err
		}

		if offset, ok := offsets[sensorType]; ok {
			sv.Value += offset
		}
		values[sensorType] = sv
	}

	return &models.Reading{
		DeviceID:      raw.DeviceID,
		ProbeType:     probeType,
		Timestamp:     timestamp,
		Values:        values,
		DeviceMetrics: raw.DeviceMetrics,
		Source:        raw.Source,
	}, nil
}

// parseSensorValue accepts a bare scalar or a {value, unit} object
func parseSensorValue(sensorType string, raw interface{}) (models.SensorValue, error) {
	switch v := raw.(type) {
	case float64:
		return models.SensorValue{Value: v, Unit: models.DefaultUnits[sensorType]}, nil
	case map[string]interface{}:
		value, ok := v["value"].(float64)
		if !ok {
			return models.SensorValue{}, &models.MalformedTelemetryError{
				Field:  sensorType,
				Reason: "value is not numeric",
			}
		}
		unit, _ := v["unit"].(string)
		if unit == "" {
			unit = models.DefaultUnits[sensorType]
		}
		return models.SensorValue{Value: value, Unit: unit}, nil
	default:
		return models.SensorValue{}, &models.MalformedTelemetryError{
			Field:  sensorType,
			Reason: fmt.Sprintf("unsupported value type %T", raw),
		}
	}
}
