package services

import (
	"context"
	"log"

	"silo-backend/internal/alerts"
	"silo-backend/internal/devices"
	"silo-backend/internal/evaluator"
	"silo-backend/internal/metrics"
	"silo-backend/internal/models"
	"silo-backend/internal/telemetry"
)

// ReadingStore persists readings and divergence events
type ReadingStore interface {
	SaveReading(reading *models.Reading) error
	SaveDivergence(event *models.DivergenceEvent) error
}

// MirrorWriter mirrors normalized readings to the realtime store
type MirrorWriter interface {
	WriteLatest(ctx context.Context, reading *models.Reading) error
}

// ReadingBroadcaster pushes readings to live subscribers
type ReadingBroadcaster interface {
	BroadcastReading(reading *models.Reading)
}

// TelemetryService is the ingestion pipeline: normalize, cache, persist,
// mirror, evaluate thresholds, reconcile dual probes, then hand the
// reading to the control service.
type TelemetryService struct {
	normalizer *telemetry.Normalizer
	cache      *telemetry.Cache
	devices    *devices.Registry
	store      ReadingStore
	mirror     MirrorWriter
	dispatcher *alerts.Dispatcher
	broadcast  ReadingBroadcaster
	control    *ControlService

	// Input channel fed by both transports and the HTTP handler
	RawChan chan *models.RawTelemetry
}

// TelemetryServiceConfig holds configuration for the telemetry service
type TelemetryServiceConfig struct {
	ChannelSize int
}

// DefaultTelemetryServiceConfig returns default configuration
func DefaultTelemetryServiceConfig() TelemetryServiceConfig {
	return TelemetryServiceConfig{ChannelSize: 100}
}

// NewTelemetryService creates the ingestion pipeline. mirror, broadcast
// and control may be nil.
func NewTelemetryService(
	normalizer *telemetry.Normalizer,
	cache *telemetry.Cache,
	deviceRegistry *devices.Registry,
	store ReadingStore,
	mirror MirrorWriter,
	dispatcher *alerts.Dispatcher,
	broadcast ReadingBroadcaster,
	control *ControlService,
	config TelemetryServiceConfig,
) *TelemetryService {
	return &TelemetryService{
		normalizer: normalizer,
		cache:      cache,
		devices:    deviceRegistry,
		store:      store,
		mirror:     mirror,
		dispatcher: dispatcher,
		broadcast:  broadcast,
		control:    control,
		RawChan:    make(chan *models.RawTelemetry, config.ChannelSize),
	}
}

// Start begins processing telemetry from the channel
// Runs until context is cancelled
func (s *TelemetryService) Start(ctx context.Context) {
	log.Println("TelemetryService: Starting...")

	for {
		select {
		case <-ctx.Done():
			log.Println("TelemetryService: Shutting down...")
			return
		case raw, ok := <-s.RawChan:
			if !ok {
				return
			}
			s.Process(raw)
		}
	}
}

// Process runs one raw payload through the full pipeline. The returned
// reading lets the HTTP ingestion handler echo what was accepted.
func (s *TelemetryService) Process(raw *models.RawTelemetry) (*models.Reading, error) {
	reading, err := s.normalizer.Normalize(raw)
	if err != nil {
		metrics.MalformedPayloads.Inc()
		log.Printf("TelemetryService: Rejected payload from %q: %v", raw.DeviceID, err)
		return nil, err
	}

	metrics.ReadingsReceived.WithLabelValues(reading.Source).Inc()

	s.devices.Touch(reading.DeviceID)
	s.cache.Update(reading)

	if err := s.store.SaveReading(reading); err != nil {
		log.Printf("TelemetryService: Error saving reading: %v", err)
	}

	// Mirror write is best effort; the bus stays authoritative.
	if s.mirror != nil && reading.Source != "mirror" {
		if err := s.mirror.WriteLatest(context.Background(), reading); err != nil {
			log.Printf("TelemetryService: Error mirroring reading: %v", err)
		}
	}

	if s.broadcast != nil {
		s.broadcast.BroadcastReading(reading)
	}

	s.evaluateThresholds(reading)

	if reading.ProbeType == models.ProbeCore {
		s.reconcileProbes(reading)
		if s.control != nil {
			s.control.HandleReading(reading)
		}
	}

	return reading, nil
}

// evaluateThresholds checks the reading against device thresholds and
// dispatches violations
func (s *TelemetryService) evaluateThresholds(reading *models.Reading) {
	thresholds := s.devices.Thresholds(reading.DeviceID)
	violations := evaluator.Evaluate(reading, thresholds)
	if len(violations) == 0 {
		return
	}

	log.Printf("TelemetryService: %d threshold violations for %s", len(violations), reading.DeviceID)
	s.dispatcher.DispatchViolations(reading.DeviceID, violations)
}

// reconcileProbes compares a core reading against the cached ambient
// reading and records any divergence
func (s *TelemetryService) reconcileProbes(core *models.Reading) {
	ambient, _, ok := s.cache.Get(core.DeviceID, models.ProbeAmbient)
	if !ok {
		return
	}

	event := evaluator.CompareProbes(ambient, core)
	if event == nil {
		return
	}

	log.Printf("TelemetryService: Probe divergence for %s (%d types)", core.DeviceID, len(event.Divergences))

	if err := s.store.SaveDivergence(event); err != nil {
		log.Printf("TelemetryService: Error saving divergence: %v", err)
	}
	s.dispatcher.DispatchDivergence(event)
}
