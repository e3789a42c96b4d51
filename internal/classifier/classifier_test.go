package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"silo-backend/internal/models"
)

func TestHTTPClassifier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var features Features
		if err := json.NewDecoder(r.Body).Decode(&features); err != nil {
			t.Errorf("server failed to decode features: %v", err)
		}
		json.NewEncoder(w).Encode(models.RiskResult{
			RiskClass:  models.RiskRisky,
			RiskScore:  0.72,
			Confidence: 0.9,
		})
	}))
	defer server.Close()

	c := NewHTTPClassifier(server.URL, time.Second)
	result, err := c.Classify(context.Background(), Features{DeviceID: "silo-001", Humidity: 80})
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if result.RiskClass != models.RiskRisky {
		t.Errorf("risk class = %q, want risky", result.RiskClass)
	}
	if result.DeviceID != "silo-001" {
		t.Errorf("device id = %q, want silo-001", result.DeviceID)
	}
}

func TestHTTPClassifierTimeoutFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	c := NewHTTPClassifier(server.URL, 20*time.Millisecond)
	_, err := c.Classify(context.Background(), Features{DeviceID: "silo-001"})
	if err == nil {
		t.Fatal("expected timeout error")
	}

	// Callers substitute the conservative fallback on error.
	fallback := FallbackResult("silo-001")
	if fallback.RiskClass != models.RiskRisky {
		t.Errorf("fallback class = %q, want risky", fallback.RiskClass)
	}
	if fallback.Confidence != 0 {
		t.Errorf("fallback confidence = %v, want 0", fallback.Confidence)
	}
	if !fallback.Fallback {
		t.Error("fallback result not marked as fallback")
	}
}

func TestHTTPClassifierNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewHTTPClassifier(server.URL, time.Second)
	if _, err := c.Classify(context.Background(), Features{DeviceID: "silo-001"}); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestLocalClassifier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	if err := WriteSampleModel(path); err != nil {
		t.Fatalf("WriteSampleModel: %v", err)
	}

	c, err := NewLocalClassifier(path)
	if err != nil {
		t.Fatalf("NewLocalClassifier: %v", err)
	}

	cool, err := c.Classify(context.Background(), Features{
		DeviceID: "silo-001", Temperature: 15, Humidity: 40, VOC: 100, CO2: 400, Moisture: 10,
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if cool.RiskClass != models.RiskSafe {
		t.Errorf("cool dry silo classified %q, want safe (score %.2f)", cool.RiskClass, cool.RiskScore)
	}

	hot, err := c.Classify(context.Background(), Features{
		DeviceID: "silo-001", Temperature: 55, Humidity: 95, VOC: 900, CO2: 3000, Moisture: 25,
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if hot.RiskClass == models.RiskSafe {
		t.Errorf("hot humid silo classified safe (score %.2f)", hot.RiskScore)
	}
	if hot.RiskScore <= cool.RiskScore {
		t.Errorf("risk did not increase: cool %.2f, hot %.2f", cool.RiskScore, hot.RiskScore)
	}
}

func TestLocalClassifierMissingModel(t *testing.T) {
	if _, err := NewLocalClassifier(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing model file")
	}
}

func TestFeaturesFromReading(t *testing.T) {
	reading := &models.Reading{
		DeviceID: "silo-001",
		Values: map[string]models.SensorValue{
			models.SensorTemperature: {Value: 30},
			models.SensorVOC:         {Value: 500},
		},
	}

	f := FeaturesFromReading(reading)
	if f.Temperature != 30 || f.VOC != 500 {
		t.Errorf("features = %+v", f)
	}
	if f.Humidity != 0 {
		t.Errorf("missing humidity should be zero, got %v", f.Humidity)
	}
}
