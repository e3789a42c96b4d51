package telemetry

import (
	"testing"
	"time"

	"silo-backend/internal/models"
)

type fakeCalibration struct {
	offsets map[string]map[string]float64
}

func (f *fakeCalibration) CalibrationOffsets(deviceID string) map[string]float64 {
	return f.offsets[deviceID]
}

func TestNormalizeScalarGetsDefaultUnit(t *testing.T) {
	n := NewNormalizer(nil)

	reading, err := n.Normalize(&models.RawTelemetry{
		DeviceID: "silo-001",
		Values:   map[string]interface{}{"temperature": 22.5},
	})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}

	v, ok := reading.Values["temperature"]
	if !ok {
		t.Fatal("temperature missing from normalized values")
	}
	if v.Value != 22.5 {
		t.Errorf("value = %v, want 22.5", v.Value)
	}
	if v.Unit != "C" {
		t.Errorf("unit = %q, want C", v.Unit)
	}
	if reading.ProbeType != models.ProbeCore {
		t.Errorf("probe type = %q, want core default", reading.ProbeType)
	}
}

func TestNormalizeTVOCAlias(t *testing.T) {
	n := NewNormalizer(nil)

	for _, alias := range []string{"tvoc", "tvoc_ppb"} {
		reading, err := n.Normalize(&models.RawTelemetry{
			DeviceID: "silo-001",
			Values:   map[string]interface{}{alias: 450.0},
		})
		if err != nil {
			t.Fatalf("Normalize(%s) returned error: %v", alias, err)
		}

		v, ok := reading.Values[models.SensorVOC]
		if !ok {
			t.Fatalf("alias %s not normalized to voc", alias)
		}
		if v.Unit != "ppb" {
			t.Errorf("voc unit = %q, want ppb", v.Unit)
		}
	}
}

func TestNormalizeObjectValue(t *testing.T) {
	n := NewNormalizer(nil)

	reading, err := n.Normalize(&models.RawTelemetry{
		DeviceID:  "silo-001",
		ProbeType: models.ProbeAmbient,
		Values: map[string]interface{}{
			"temperature": map[string]interface{}{"value": 68.0, "unit": "F"},
		},
	})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}

	v := reading.Values["temperature"]
	if v.Value != 68.0 || v.Unit != "F" {
		t.Errorf("got %+v, want value 68 unit F", v)
	}
	if reading.ProbeType != models.ProbeAmbient {
		t.Errorf("probe type = %q, want ambient", reading.ProbeType)
	}
}

func TestNormalizeRejections(t *testing.T) {
	n := NewNormalizer(nil)

	tests := []struct {
		name string
		raw  *models.RawTelemetry
	}{
		{
			name: "missing device id",
			raw:  &models.RawTelemetry{Values: map[string]interface{}{"temperature": 20.0}},
		},
		{
			name: "empty values",
			raw:  &models.RawTelemetry{DeviceID: "silo-001"},
		},
		{
			name: "non-numeric value",
			raw: &models.RawTelemetry{
				DeviceID: "silo-001",
				Values:   map[string]interface{}{"temperature": "hot"},
			},
		},
		{
			name: "object without numeric value",
			raw: &models.RawTelemetry{
				DeviceID: "silo-001",
				Values:   map[string]interface{}{"temperature": map[string]interface{}{"unit": "C"}},
			},
		},
		{
			name: "unknown probe type",
			raw: &models.RawTelemetry{
				DeviceID:  "silo-001",
				ProbeType: "surface",
				Values:    map[string]interface{}{"temperature": 20.0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(tt.raw)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !models.IsMalformedTelemetry(err) {
				t.Errorf("error %v is not MalformedTelemetry", err)
			}
		})
	}
}

func TestNormalizeAppliesCalibration(t *testing.T) {
	cal := &fakeCalibration{offsets: map[string]map[string]float64{
		"silo-001": {"temperature": -0.5},
	}}
	n := NewNormalizer(cal)

	reading, err := n.Normalize(&models.RawTelemetry{
		DeviceID: "silo-001",
		Values:   map[string]interface{}{"temperature": 22.5},
	})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if got := reading.Values["temperature"].Value; got != 22.0 {
		t.Errorf("calibrated value = %v, want 22.0", got)
	}
}

func TestParsePayloadInvalidJSON(t *testing.T) {
	_, err := ParsePayload([]byte("{not json"), "mqtt")
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !models.IsMalformedTelemetry(err) {
		t.Errorf("error %v is not MalformedTelemetry", err)
	}
}

func TestNormalizeCarriesDeviceMetrics(t *testing.T) {
	n := NewNormalizer(nil)

	payload := []byte(`{
		"device_id": "silo-001",
		"values": {"temperature": 21.5},
		"device_metrics": {"battery_level": 87.5, "signal_strength": -62}
	}`)
	raw, err := ParsePayload(payload, "mqtt")
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}

	reading, err := n.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if reading.DeviceMetrics == nil {
		t.Fatal("device metrics dropped during normalization")
	}
	if reading.DeviceMetrics.BatteryLevel == nil || *reading.DeviceMetrics.BatteryLevel != 87.5 {
		t.Errorf("battery_level = %v, want 87.5", reading.DeviceMetrics.BatteryLevel)
	}
	if reading.DeviceMetrics.SignalStrength == nil || *reading.DeviceMetrics.SignalStrength != -62 {
		t.Errorf("signal_strength = %v, want -62", reading.DeviceMetrics.SignalStrength)
	}
}

func TestNormalizeServerTimestampWhenMissing(t *testing.T) {
	n := NewNormalizer(nil)

	before := time.Now()
	reading, err := n.Normalize(&models.RawTelemetry{
		DeviceID: "silo-001",
		Values:   map[string]interface{}{"humidity": 55.0},
	})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if reading.Timestamp.Before(before) {
		t.Error("expected server-side timestamp to be assigned")
	}
}
