package devices

import (
	"log"
	"sync"
	"time"

	"silo-backend/internal/models"
)

// DeviceStore persists device registrations
type DeviceStore interface {
	UpsertDevice(device *models.Device) error
}

// Registry tracks known silos with their thresholds and calibration.
// Devices auto-register on first reading with the default thresholds.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*models.Device

	store    DeviceStore
	defaults map[string]models.Thresholds
}

// NewRegistry creates a registry; store may be nil
func NewRegistry(store DeviceStore, defaults map[string]models.Thresholds) *Registry {
	return &Registry{
		devices:  make(map[string]*models.Device),
		store:    store,
		defaults: defaults,
	}
}

// DefaultThresholds are applied to silos without explicit configuration
func DefaultThresholds() map[string]models.Thresholds {
	f := func(v float64) *float64 { return &v }
	return map[string]models.Thresholds{
		models.SensorTemperature: {Min: f(-5), Max: f(35), CriticalMin: f(-15), CriticalMax: f(50)},
		models.SensorHumidity:    {Max: f(70), CriticalMax: f(85)},
		models.SensorVOC:         {Max: f(500), CriticalMax: f(900)},
		models.SensorCO2:         {Max: f(1500), CriticalMax: f(5000)},
		models.SensorMoisture:    {Max: f(14.5), CriticalMax: f(18)},
	}
}

// Touch registers a device on first contact and updates last-seen
func (r *Registry) Touch(deviceID string) *models.Device {
	now := time.Now()

	r.mu.Lock()
	device, ok := r.devices[deviceID]
	if !ok {
		device = &models.Device{
			DeviceID:     deviceID,
			Name:         deviceID,
			Location:     "Unknown",
			RegisteredAt: now,
			IsActive:     true,
			Thresholds:   r.defaults,
			Calibration:  map[string]float64{},
		}
		r.devices[deviceID] = device
		log.Printf("DeviceRegistry: Registered new silo %s", deviceID)
	}
	device.LastSeen = now
	snapshot := *device
	r.mu.Unlock()

	// Best effort; registration must not fail ingestion.
	if r.store != nil {
		if err := r.store.UpsertDevice(&snapshot); err != nil {
			log.Printf("DeviceRegistry: Error persisting device %s: %v", deviceID, err)
		}
	}
	return &snapshot
}

// Get returns a device snapshot
func (r *Registry) Get(deviceID string) (*models.Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, ok := r.devices[deviceID]
	if !ok {
		return nil, false
	}
	snapshot := *device
	return &snapshot, true
}

// Thresholds returns the effective thresholds for a device
func (r *Registry) Thresholds(deviceID string) map[string]models.Thresholds {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if device, ok := r.devices[deviceID]; ok && device.Thresholds != nil {
		return device.Thresholds
	}
	return r.defaults
}

// CalibrationOffsets implements telemetry.CalibrationSource
func (r *Registry) CalibrationOffsets(deviceID string) map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if device, ok := r.devices[deviceID]; ok {
		return device.Calibration
	}
	return nil
}

// Configure replaces a device's thresholds and calibration and returns
// the updated snapshot. Unknown devices are registered first.
func (r *Registry) Configure(deviceID string, thresholds map[string]models.Thresholds, calibration map[string]float64) *models.Device {
	r.mu.Lock()
	device, ok := r.devices[deviceID]
	if !ok {
		device = &models.Device{
			DeviceID:     deviceID,
			Name:         deviceID,
			Location:     "Unknown",
			RegisteredAt: time.Now(),
			IsActive:     true,
			Thresholds:   r.defaults,
			Calibration:  map[string]float64{},
		}
		r.devices[deviceID] = device
	}
	if thresholds != nil {
		device.Thresholds = thresholds
	}
	if calibration != nil {
		device.Calibration = calibration
	}
	snapshot := *device
	r.mu.Unlock()

	// Best effort, same as Touch.
	if r.store != nil {
		if err := r.store.UpsertDevice(&snapshot); err != nil {
			log.Printf("DeviceRegistry: Error persisting device %s: %v", deviceID, err)
		}
	}
	return &snapshot
}
