package actuators

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"silo-backend/internal/models"
)

// AuditSink persists actuator transitions
type AuditSink interface {
	SaveAuditEntry(entry *models.AuditEntry) error
}

// StateSyncer mirrors the resulting control state to the transports
type StateSyncer interface {
	SyncControlState(state *models.ControlState) error
}

// managed pairs an actuator with its writer lock. All mutations for one
// actuator run under its mutex, so concurrent control requests serialize
// instead of interleaving read-modify-write.
type managed struct {
	mu       sync.Mutex
	actuator models.Actuator
}

// Registry is the actuator state machine. It owns the authoritative
// in-memory state, appends every transition to the audit log, and syncs
// the resulting control state to both transports.
type Registry struct {
	mu        sync.RWMutex
	actuators map[string]*managed

	audit AuditSink
	sync  StateSyncer
}

// NewRegistry creates an empty registry; audit and syncer may be nil
func NewRegistry(audit AuditSink, syncer StateSyncer) *Registry {
	return &Registry{
		actuators: make(map[string]*managed),
		audit:     audit,
		sync:      syncer,
	}
}

// Register adds or replaces an actuator
func (r *Registry) Register(actuator models.Actuator) {
	if actuator.Status == "" {
		actuator.Status = models.StatusIdle
	}
	r.mu.Lock()
	r.actuators[actuator.ID] = &managed{actuator: actuator}
	r.mu.Unlock()
}

// Get returns a snapshot of an actuator's state
func (r *Registry) Get(id string) (models.Actuator, error) {
	m, err := r.lookup(id)
	if err != nil {
		return models.Actuator{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.actuator, nil
}

// List returns snapshots of all actuators
func (r *Registry) List() []models.Actuator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Actuator, 0, len(r.actuators))
	for _, m := range r.actuators {
		m.mu.Lock()
		out = append(out, m.actuator)
		m.mu.Unlock()
	}
	return out
}

// ForDevice returns the actuators attached to a silo
func (r *Registry) ForDevice(deviceID string) []models.Actuator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Actuator
	for _, m := range r.actuators {
		m.mu.Lock()
		if m.actuator.DeviceID == deviceID {
			out = append(out, m.actuator)
		}
		m.mu.Unlock()
	}
	return out
}

func (r *Registry) lookup(id string) (*managed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.actuators[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrActuatorNotFound, id)
	}
	return m, nil
}

// Start turns an actuator on
func (r *Registry) Start(id, actor, reason string) (models.Actuator, error) {
	return r.mutate(id, actor, models.ActionOn, reason, func(a *models.Actuator) error {
		if !a.Enabled {
			return models.ErrActuatorDisabled
		}
		if a.IsOn {
			return models.ErrAlreadyRunning
		}
		a.IsOn = true
		a.Status = models.StatusRunning
		if a.PowerLevel == 0 {
			a.PowerLevel = 100
		}
		return nil
	})
}

// Stop turns an actuator off and accrues runtime
func (r *Registry) Stop(id, actor, reason string) (models.Actuator, error) {
	return r.mutate(id, actor, models.ActionOff, reason, func(a *models.Actuator) error {
		if !a.Enabled {
			return models.ErrActuatorDisabled
		}
		if !a.IsOn {
			return models.ErrAlreadyStopped
		}
		if !a.LastChange.IsZero() {
			a.TotalRuntime += time.Since(a.LastChange).Hours()
		}
		a.IsOn = false
		a.Status = models.StatusIdle
		return nil
	})
}

// SetPower adjusts the power level; 0 is a stop
func (r *Registry) SetPower(id string, level float64, actor, reason string) (models.Actuator, error) {
	if level < 0 || level > 100 {
		return models.Actuator{}, models.ErrInvalidPower
	}
	return r.mutate(id, actor, models.ActionSetPower, reason, func(a *models.Actuator) error {
		if !a.Enabled {
			return models.ErrActuatorDisabled
		}
		a.PowerLevel = level
		if level == 0 {
			a.IsOn = false
			a.Status = models.StatusIdle
		} else {
			a.IsOn = true
			a.Status = models.StatusRunning
		}
		return nil
	})
}

// Toggle flips the on/off state
func (r *Registry) Toggle(id, actor, reason string) (models.Actuator, error) {
	m, err := r.lookup(id)
	if err != nil {
		return models.Actuator{}, err
	}

	m.mu.Lock()
	isOn := m.actuator.IsOn
	m.mu.Unlock()

	if isOn {
		return r.Stop(id, actor, reason)
	}
	return r.Start(id, actor, reason)
}

// Apply dispatches a named control action
func (r *Registry) Apply(id, action string, power float64, actor, reason string) (models.Actuator, error) {
	switch action {
	case models.ActionOn:
		return r.Start(id, actor, reason)
	case models.ActionOff:
		return r.Stop(id, actor, reason)
	case models.ActionToggle:
		return r.Toggle(id, actor, reason)
	case models.ActionSetPower:
		return r.SetPower(id, power, actor, reason)
	default:
		return models.Actuator{}, fmt.Errorf("%w: %s", models.ErrInvalidAction, action)
	}
}

// BulkControl applies one action to many actuators. Per-item failures
// are captured, never aborting the batch.
func (r *Registry) BulkControl(ids []string, action string, power float64, actor string) models.BulkControlResult {
	result := models.BulkControlResult{Total: len(ids)}

	for _, id := range ids {
		actuator, err := r.Apply(id, action, power, actor, "bulk control")
		if err != nil {
			result.Failed++
			result.Results = append(result.Results, models.ControlResult{
				ActuatorID: id,
				Success:    false,
				Error:      err.Error(),
			})
			continue
		}
		result.Successful++
		result.Results = append(result.Results, models.ControlResult{
			ActuatorID: id,
			Success:    true,
			Status:     actuator.Status,
		})
	}

	return result
}

// SetSchedule validates and stores an actuator schedule
func (r *Registry) SetSchedule(id string, schedule models.Schedule) (models.Actuator, error) {
	if err := ValidateSchedule(schedule); err != nil {
		return models.Actuator{}, err
	}

	m, err := r.lookup(id)
	if err != nil {
		return models.Actuator{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.actuator.Schedule = &schedule
	return m.actuator, nil
}

// RecordMaintenance places the actuator into maintenance; the work
// notes land in the audit trail
func (r *Registry) RecordMaintenance(id, actor, notes string) (models.Actuator, error) {
	return r.SetStatus(id, models.StatusMaintenance, actor, notes)
}

// SetStatus forces a lifecycle status (maintenance, error, offline)
func (r *Registry) SetStatus(id, status, actor, reason string) (models.Actuator, error) {
	switch status {
	case models.StatusIdle, models.StatusRunning, models.StatusMaintenance, models.StatusError, models.StatusOffline:
	default:
		return models.Actuator{}, fmt.Errorf("unknown actuator status %q", status)
	}

	return r.mutate(id, actor, "set_status", reason, func(a *models.Actuator) error {
		a.Status = status
		if status != models.StatusRunning {
			a.IsOn = false
		}
		return nil
	})
}

// mutate runs fn under the actuator's writer lock and, on success,
// records the audit entry and syncs control state.
func (r *Registry) mutate(id, actor, action, reason string, fn func(*models.Actuator) error) (models.Actuator, error) {
	m, err := r.lookup(id)
	if err != nil {
		return models.Actuator{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	fromStatus := m.actuator.Status
	if err := fn(&m.actuator); err != nil {
		return models.Actuator{}, err
	}
	m.actuator.LastChange = time.Now()

	snapshot := m.actuator
	r.recordTransition(&snapshot, actor, action, fromStatus, reason)
	return snapshot, nil
}

// recordTransition appends the audit entry and mirrors control state.
// Both are best effort: failures are logged, the transition stands.
func (r *Registry) recordTransition(a *models.Actuator, actor, action, fromStatus, reason string) {
	if r.audit != nil {
		entry := &models.AuditEntry{
			ID:         uuid.NewString(),
			ActuatorID: a.ID,
			DeviceID:   a.DeviceID,
			Actor:      actor,
			Action:     action,
			FromStatus: fromStatus,
			ToStatus:   a.Status,
			PowerLevel: a.PowerLevel,
			Reason:     reason,
			Timestamp:  a.LastChange,
		}
		if err := r.audit.SaveAuditEntry(entry); err != nil {
			log.Printf("ActuatorRegistry: Error saving audit entry for %s: %v", a.ID, err)
		}
	}

	if r.sync != nil {
		state := &models.ControlState{
			DeviceID:       a.DeviceID,
			ActuatorID:     a.ID,
			IsOn:           a.IsOn,
			TargetPower:    a.PowerLevel,
			HumanRequested: actor == models.ActorHuman,
			MLRequested:    actor == models.ActorAI,
			MLDecision:     reason,
			UpdatedAt:      a.LastChange,
		}
		if err := r.sync.SyncControlState(state); err != nil {
			log.Printf("ActuatorRegistry: Error syncing control state for %s: %v", a.ID, err)
		}
	}
}
