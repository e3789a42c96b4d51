package alerts

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"silo-backend/internal/metrics"
	"silo-backend/internal/models"
)

// AlertStore persists alert records
type AlertStore interface {
	SaveAlert(alert *models.Alert) error
}

// Broadcaster pushes alerts to live subscribers
type Broadcaster interface {
	BroadcastAlert(alert *models.Alert)
}

// Dispatcher converts violations, divergences and guardrail blocks into
// alert records. Dispatch is fire-and-forget: persistence and broadcast
// failures are logged and swallowed so ingestion and control never
// block on alerting.
type Dispatcher struct {
	store       AlertStore
	broadcaster Broadcaster

	dedupeWindow time.Duration

	mu     sync.Mutex
	recent map[string]time.Time
}

// NewDispatcher creates a dispatcher; broadcaster may be nil
func NewDispatcher(store AlertStore, broadcaster Broadcaster, dedupeWindow time.Duration) *Dispatcher {
	return &Dispatcher{
		store:        store,
		broadcaster:  broadcaster,
		dedupeWindow: dedupeWindow,
		recent:       make(map[string]time.Time),
	}
}

// priorityFor maps violation severity to alert priority
func priorityFor(severity string) string {
	switch severity {
	case models.SeverityCritical:
		return models.PriorityCritical
	case models.SeverityWarning:
		return models.PriorityHigh
	default:
		return models.PriorityMedium
	}
}

// DispatchViolations emits one alert per threshold violation
func (d *Dispatcher) DispatchViolations(deviceID string, violations []models.Violation) {
	for _, v := range violations {
		d.dispatch(&models.Alert{
			ID:       uuid.NewString(),
			DeviceID: deviceID,
			Source:   models.SourceSensor,
			Type:     models.AlertThresholdViolation,
			Priority: priorityFor(v.Severity),
			Status:   models.AlertStatusPending,
			Message: fmt.Sprintf("%s %.2f violated %s threshold %.2f",
				v.SensorType, v.Value, v.ThresholdName, v.Threshold),
			TriggerConditions: v,
			Timestamp:         time.Now(),
		}, deviceID+"/"+models.AlertThresholdViolation+"/"+v.SensorType)
	}
}

// DispatchDivergence emits one combined alert per divergence event
func (d *Dispatcher) DispatchDivergence(event *models.DivergenceEvent) {
	types := make([]string, 0, len(event.Divergences))
	details := make([]string, 0, len(event.Divergences))
	for _, div := range event.Divergences {
		types = append(types, div.SensorType)
		details = append(details, fmt.Sprintf("%s ambient %.2f vs core %.2f (diff %.2f)",
			div.SensorType, div.AmbientValue, div.CoreValue, div.Difference))
	}

	d.dispatch(&models.Alert{
		ID:                uuid.NewString(),
		DeviceID:          event.DeviceID,
		Source:            models.SourceSensor,
		Type:              models.AlertProbeDivergence,
		Priority:          models.PriorityHigh,
		Status:            models.AlertStatusPending,
		Message:           "Probe divergence: " + strings.Join(details, "; "),
		TriggerConditions: event.Divergences,
		Timestamp:         event.Timestamp,
	}, event.DeviceID+"/"+models.AlertProbeDivergence+"/"+strings.Join(types, ","))
}

// DispatchGuardrail emits an alert for a guardrail-blocked change
func (d *Dispatcher) DispatchGuardrail(deviceID string, reasons []string) {
	d.dispatch(&models.Alert{
		ID:                uuid.NewString(),
		DeviceID:          deviceID,
		Source:            models.SourceSystem,
		Type:              models.AlertGuardrailBlocked,
		Priority:          models.PriorityCritical,
		Status:            models.AlertStatusPending,
		Message:           "Ventilation change blocked: " + strings.Join(reasons, ", "),
		TriggerConditions: reasons,
		Timestamp:         time.Now(),
	}, deviceID+"/"+models.AlertGuardrailBlocked)
}

// dispatch dedupes, persists asynchronously and broadcasts
func (d *Dispatcher) dispatch(alert *models.Alert, dedupeKey string) {
	if d.suppressed(dedupeKey) {
		return
	}

	log.Printf("AlertDispatcher: %s alert for %s: %s", alert.Priority, alert.DeviceID, alert.Message)
	metrics.AlertsDispatched.WithLabelValues(alert.Priority).Inc()

	go func() {
		if err := d.store.SaveAlert(alert); err != nil {
			log.Printf("AlertDispatcher: Error saving alert %s: %v", alert.ID, err)
		}
	}()

	if d.broadcaster != nil {
		d.broadcaster.BroadcastAlert(alert)
	}
}

// suppressed marks the key and reports whether it fired inside the
// dedupe window
func (d *Dispatcher) suppressed(key string) bool {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.recent[key]; ok && now.Sub(last) < d.dedupeWindow {
		return true
	}
	d.recent[key] = now

	// Drop entries that aged past the window to bound the map.
	for k, t := range d.recent {
		if now.Sub(t) >= d.dedupeWindow {
			delete(d.recent, k)
		}
	}
	return false
}
