package services

import (
	"context"
	"testing"
	"time"

	"silo-backend/internal/actuators"
	"silo-backend/internal/alerts"
	"silo-backend/internal/classifier"
	"silo-backend/internal/control"
	"silo-backend/internal/models"
	"silo-backend/internal/telemetry"
)

type nopAlertStore struct{}

func (nopAlertStore) SaveAlert(*models.Alert) error { return nil }

// blockingClassifier holds every Classify call until released
type blockingClassifier struct {
	release chan struct{}
}

func (c *blockingClassifier) Classify(ctx context.Context, f classifier.Features) (*models.RiskResult, error) {
	select {
	case <-c.release:
		return &models.RiskResult{RiskClass: models.RiskSafe, RiskScore: 0.1, Confidence: 0.9}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type staticClassifier struct {
	result *models.RiskResult
}

func (c *staticClassifier) Classify(ctx context.Context, f classifier.Features) (*models.RiskResult, error) {
	return c.result, nil
}

func coreReading(deviceID string, humidity float64) *models.Reading {
	return &models.Reading{
		DeviceID:  deviceID,
		ProbeType: models.ProbeCore,
		Timestamp: time.Now(),
		Values: map[string]models.SensorValue{
			models.SensorHumidity: {Value: humidity, Unit: "%"},
		},
	}
}

func TestHandleReadingDoesNotBlockAcrossDevices(t *testing.T) {
	cache := telemetry.NewCache(5 * time.Minute)
	registry := actuators.NewRegistry(nil, nil)
	registry.Register(models.Actuator{
		ID: "fan-a", DeviceID: "silo-a", Type: "fan", Enabled: true,
		AIControl: models.AIControl{Enabled: true, RiskScoreThreshold: 0.7, MinConfidence: 0.6},
	})
	registry.Register(models.Actuator{ID: "fan-b", DeviceID: "silo-b", Type: "fan", Enabled: true})

	stalled := &blockingClassifier{release: make(chan struct{})}
	dispatcher := alerts.NewDispatcher(nopAlertStore{}, nil, time.Minute)
	svc := NewControlService(
		control.NewEngine(control.DefaultEngineConfig()), registry, stalled, nil, dispatcher, cache,
		ControlServiceConfig{ClassifierTimeout: 5 * time.Second},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer close(stalled.release)

	// Silo A's classifier call hangs; silo B must still engage.
	svc.HandleReading(coreReading("silo-a", 80))
	svc.HandleReading(coreReading("silo-b", 80))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if a, err := registry.Get("fan-b"); err == nil && a.IsOn {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("silo-b evaluation stalled behind silo-a's classifier call")
}

func TestHandleReadingRecordsLastRisk(t *testing.T) {
	cache := telemetry.NewCache(5 * time.Minute)
	registry := actuators.NewRegistry(nil, nil)
	registry.Register(models.Actuator{
		ID: "fan-1", DeviceID: "silo-001", Type: "fan", Enabled: true,
		AIControl: models.AIControl{Enabled: true, RiskScoreThreshold: 0.7, MinConfidence: 0.6},
	})

	risk := &models.RiskResult{DeviceID: "silo-001", RiskClass: models.RiskSafe, RiskScore: 0.2, Confidence: 0.9}
	dispatcher := alerts.NewDispatcher(nopAlertStore{}, nil, time.Minute)
	svc := NewControlService(
		control.NewEngine(control.DefaultEngineConfig()), registry, &staticClassifier{result: risk}, nil, dispatcher, cache,
		DefaultControlServiceConfig(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	svc.HandleReading(coreReading("silo-001", 50))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if got := svc.LastRisk("silo-001"); got != nil {
			if got.RiskClass != models.RiskSafe {
				t.Errorf("last risk class = %q, want safe", got.RiskClass)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("classification was never recorded")
}
