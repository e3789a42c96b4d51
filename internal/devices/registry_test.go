package devices

import (
	"testing"

	"silo-backend/internal/models"
)

type recordingStore struct {
	upserts []*models.Device
	err     error
}

func (s *recordingStore) UpsertDevice(device *models.Device) error {
	s.upserts = append(s.upserts, device)
	return s.err
}

func TestTouchAutoRegistersWithDefaults(t *testing.T) {
	store := &recordingStore{}
	r := NewRegistry(store, DefaultThresholds())

	device := r.Touch("silo-001")
	if device.DeviceID != "silo-001" || !device.IsActive {
		t.Errorf("device = %+v", device)
	}
	if device.LastSeen.IsZero() {
		t.Error("last seen not set")
	}

	thresholds := r.Thresholds("silo-001")
	humidity, ok := thresholds[models.SensorHumidity]
	if !ok || humidity.Max == nil || *humidity.Max != 70 {
		t.Errorf("humidity threshold = %+v", humidity)
	}

	if len(store.upserts) != 1 {
		t.Fatalf("upserts = %d, want 1", len(store.upserts))
	}
}

func TestGetUnknownDevice(t *testing.T) {
	r := NewRegistry(nil, DefaultThresholds())

	if _, ok := r.Get("silo-404"); ok {
		t.Error("Get returned a device that was never seen")
	}
	if offsets := r.CalibrationOffsets("silo-404"); offsets != nil {
		t.Errorf("offsets = %v, want nil", offsets)
	}
}

func TestGetReturnsSnapshot(t *testing.T) {
	r := NewRegistry(nil, DefaultThresholds())
	r.Touch("silo-001")

	device, ok := r.Get("silo-001")
	if !ok {
		t.Fatal("device missing after Touch")
	}
	device.Name = "mutated"

	fresh, _ := r.Get("silo-001")
	if fresh.Name != "silo-001" {
		t.Error("caller mutation leaked into the registry")
	}
}

func TestConfigureReplacesAndPersists(t *testing.T) {
	store := &recordingStore{}
	r := NewRegistry(store, DefaultThresholds())
	r.Touch("silo-001")

	max := 80.0
	device := r.Configure("silo-001",
		map[string]models.Thresholds{models.SensorHumidity: {Max: &max}},
		map[string]float64{models.SensorTemperature: -0.5},
	)
	if device == nil {
		t.Fatal("Configure returned nil")
	}

	if got := r.CalibrationOffsets("silo-001"); got[models.SensorTemperature] != -0.5 {
		t.Errorf("offsets = %v", got)
	}
	humidity := r.Thresholds("silo-001")[models.SensorHumidity]
	if humidity.Max == nil || *humidity.Max != 80 {
		t.Errorf("humidity threshold = %+v", humidity)
	}

	// Touch plus Configure both persist.
	if len(store.upserts) != 2 {
		t.Fatalf("upserts = %d, want 2", len(store.upserts))
	}
}

func TestConfigureUnknownDeviceRegistersIt(t *testing.T) {
	r := NewRegistry(nil, DefaultThresholds())

	device := r.Configure("silo-new", nil, map[string]float64{models.SensorHumidity: 1.5})
	if device.DeviceID != "silo-new" || !device.IsActive {
		t.Errorf("device = %+v", device)
	}

	// Thresholds fall back to the defaults when not supplied.
	voc := r.Thresholds("silo-new")[models.SensorVOC]
	if voc.Max == nil || *voc.Max != 500 {
		t.Errorf("voc threshold = %+v", voc)
	}
}
