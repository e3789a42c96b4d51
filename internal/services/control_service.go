package services

import (
	"context"
	"log"
	"sync"
	"time"

	"silo-backend/internal/actuators"
	"silo-backend/internal/alerts"
	"silo-backend/internal/classifier"
	"silo-backend/internal/control"
	"silo-backend/internal/metrics"
	"silo-backend/internal/models"
	"silo-backend/internal/telemetry"
)

// RiskStore persists risk classifications
type RiskStore interface {
	SaveRiskResult(result *models.RiskResult) error
}

// Per-device work queue depth. A stalled classifier only ever backs up
// its own silo's queue.
const deviceQueueSize = 16

// ControlService runs the decision engine against incoming core
// readings and applies the verdict to the silo's fans. Each silo gets
// its own worker goroutine, so a slow classifier call for one device
// never delays another device's evaluation or the ingestion loop. It
// also fronts manual control so guardrails bind human requests the
// same way.
type ControlService struct {
	engine     *control.Engine
	registry   *actuators.Registry
	classifier classifier.Classifier
	riskStore  RiskStore
	dispatcher *alerts.Dispatcher
	cache      *telemetry.Cache

	classifierTimeout time.Duration
	autoProvisionFans bool
	defaultAIControl  models.AIControl

	ctx context.Context

	workerMu sync.Mutex
	workers  map[string]chan *models.Reading

	riskMu   sync.RWMutex
	lastRisk map[string]*models.RiskResult
}

// ControlServiceConfig holds configuration for the control service
type ControlServiceConfig struct {
	ClassifierTimeout time.Duration

	// AutoProvisionFans registers a ventilation fan for silos that
	// report telemetry without any configured actuator
	AutoProvisionFans bool
	DefaultAIControl  models.AIControl
}

// DefaultControlServiceConfig returns default configuration
func DefaultControlServiceConfig() ControlServiceConfig {
	return ControlServiceConfig{
		ClassifierTimeout: 2 * time.Second,
		AutoProvisionFans: false,
	}
}

// NewControlService creates the control service. classifier and
// riskStore may be nil.
func NewControlService(
	engine *control.Engine,
	registry *actuators.Registry,
	riskClassifier classifier.Classifier,
	riskStore RiskStore,
	dispatcher *alerts.Dispatcher,
	cache *telemetry.Cache,
	config ControlServiceConfig,
) *ControlService {
	return &ControlService{
		engine:            engine,
		registry:          registry,
		classifier:        riskClassifier,
		riskStore:         riskStore,
		dispatcher:        dispatcher,
		cache:             cache,
		classifierTimeout: config.ClassifierTimeout,
		autoProvisionFans: config.AutoProvisionFans,
		defaultAIControl:  config.DefaultAIControl,
		ctx:               context.Background(),
		workers:           make(map[string]chan *models.Reading),
		lastRisk:          make(map[string]*models.RiskResult),
	}
}

// Start binds the device workers' lifecycle to ctx
func (s *ControlService) Start(ctx context.Context) {
	s.ctx = ctx
}

// HandleReading hands a core reading to the silo's worker. Never blocks
// the caller: a full queue drops the reading with a warning.
func (s *ControlService) HandleReading(reading *models.Reading) {
	s.workerMu.Lock()
	ch, ok := s.workers[reading.DeviceID]
	if !ok {
		ch = make(chan *models.Reading, deviceQueueSize)
		s.workers[reading.DeviceID] = ch
		go s.runWorker(reading.DeviceID, ch)
	}
	s.workerMu.Unlock()

	select {
	case ch <- reading:
		// Successfully queued
	default:
		log.Printf("Warning: Control queue full for %s, dropping reading", reading.DeviceID)
	}
}

// runWorker evaluates one silo's readings in order until shutdown
func (s *ControlService) runWorker(deviceID string, ch chan *models.Reading) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case reading := <-ch:
			s.evaluateDevice(reading)
		}
	}
}

// evaluateDevice runs the engine for every fan on the silo
func (s *ControlService) evaluateDevice(reading *models.Reading) {
	for _, fan := range s.fansFor(reading.DeviceID) {
		s.evaluateFan(reading, fan)
	}
}

// fansFor returns the silo's fans, provisioning a default one when
// configured to
func (s *ControlService) fansFor(deviceID string) []models.Actuator {
	var fans []models.Actuator
	for _, actuator := range s.registry.ForDevice(deviceID) {
		if actuator.Type == "fan" {
			fans = append(fans, actuator)
		}
	}
	if len(fans) == 0 && s.autoProvisionFans {
		fan := models.Actuator{
			ID:        deviceID + "-fan",
			DeviceID:  deviceID,
			Name:      "Ventilation fan",
			Type:      "fan",
			Status:    models.StatusIdle,
			Enabled:   true,
			AIControl: s.defaultAIControl,
		}
		s.registry.Register(fan)
		log.Printf("ControlService: Provisioned fan %s for silo %s", fan.ID, deviceID)
		fans = append(fans, fan)
	}
	return fans
}

func (s *ControlService) evaluateFan(reading *models.Reading, fan models.Actuator) {
	var risk *models.RiskResult
	if fan.AIControl.Enabled {
		risk = s.classify(reading)
	}

	decision := s.engine.Evaluate(reading, fan.IsOn, fan.LastChange, risk, fan.AIControl)

	if decision.Blocked {
		metrics.GuardrailBlocks.Inc()
		s.dispatcher.DispatchGuardrail(reading.DeviceID, decision.BlockedBy)
		return
	}
	if !decision.ShouldChange {
		return
	}

	var err error
	if decision.TargetOn {
		_, err = s.registry.Start(fan.ID, models.ActorAI, decision.Reason)
	} else {
		_, err = s.registry.Stop(fan.ID, models.ActorAI, decision.Reason)
	}
	if err != nil {
		log.Printf("ControlService: Error applying decision to %s: %v", fan.ID, err)
		return
	}

	metrics.ControlChanges.WithLabelValues(models.ActorAI).Inc()
	log.Printf("ControlService: Fan %s -> on=%v (%s)", fan.ID, decision.TargetOn, decision.Reason)
}

// classify scores the reading, substituting the conservative fallback
// on timeout or error
func (s *ControlService) classify(reading *models.Reading) *models.RiskResult {
	if s.classifier == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.classifierTimeout)
	defer cancel()

	result, err := s.classifier.Classify(ctx, classifier.FeaturesFromReading(reading))
	if err != nil {
		metrics.ClassifierFallbacks.Inc()
		log.Printf("ControlService: Classifier failed for %s, using fallback: %v", reading.DeviceID, err)
		result = classifier.FallbackResult(reading.DeviceID)
	}

	s.riskMu.Lock()
	s.lastRisk[reading.DeviceID] = result
	s.riskMu.Unlock()

	if s.riskStore != nil {
		if err := s.riskStore.SaveRiskResult(result); err != nil {
			log.Printf("ControlService: Error saving risk result: %v", err)
		}
	}
	return result
}

// LastRisk returns the most recent classification for a silo, nil when
// none has been made
func (s *ControlService) LastRisk(deviceID string) *models.RiskResult {
	s.riskMu.RLock()
	defer s.riskMu.RUnlock()
	return s.lastRisk[deviceID]
}

// GuardrailsFor returns the guardrail reasons active for a silo's
// freshest cached reading
func (s *ControlService) GuardrailsFor(deviceID string) []string {
	return s.currentGuardrails(deviceID)
}

// ManualControl applies a human control request. Guardrails bind manual
// changes too: a blocked request returns GuardrailBlockedError, which
// the API reports as status "blocked" rather than a failure.
func (s *ControlService) ManualControl(id, action string, power float64, actor string) (models.Actuator, error) {
	actuator, err := s.registry.Get(id)
	if err != nil {
		return models.Actuator{}, err
	}

	if reasons := s.currentGuardrails(actuator.DeviceID); len(reasons) > 0 {
		metrics.GuardrailBlocks.Inc()
		s.dispatcher.DispatchGuardrail(actuator.DeviceID, reasons)
		return actuator, &models.GuardrailBlockedError{Reasons: reasons}
	}

	result, err := s.registry.Apply(id, action, power, actor, "manual control")
	if err != nil {
		return models.Actuator{}, err
	}

	metrics.ControlChanges.WithLabelValues(actor).Inc()
	return result, nil
}

// BulkControl applies one action to many actuators through the manual
// path, so guardrails apply per silo. Per-item failures never abort the
// batch.
func (s *ControlService) BulkControl(ids []string, action string, power float64, actor string) models.BulkControlResult {
	result := models.BulkControlResult{Total: len(ids)}

	for _, id := range ids {
		actuator, err := s.ManualControl(id, action, power, actor)
		switch {
		case models.IsGuardrailBlocked(err):
			result.Failed++
			result.Results = append(result.Results, models.ControlResult{
				ActuatorID: id,
				Success:    false,
				Status:     "blocked",
				Error:      err.Error(),
			})
		case err != nil:
			result.Failed++
			result.Results = append(result.Results, models.ControlResult{
				ActuatorID: id,
				Success:    false,
				Error:      err.Error(),
			})
		default:
			result.Successful++
			result.Results = append(result.Results, models.ControlResult{
				ActuatorID: id,
				Success:    true,
				Status:     actuator.Status,
			})
		}
	}

	return result
}

// currentGuardrails inspects the freshest cached reading for the silo
func (s *ControlService) currentGuardrails(deviceID string) []string {
	if s.cache == nil {
		return nil
	}
	reading, stale, ok := s.cache.Latest(deviceID)
	if !ok || stale {
		return nil
	}
	return s.engine.Guardrails(reading)
}
