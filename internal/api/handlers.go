package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	gwebsocket "github.com/gorilla/websocket"

	"silo-backend/internal/actuators"
	"silo-backend/internal/devices"
	"silo-backend/internal/evaluator"
	"silo-backend/internal/models"
	"silo-backend/internal/telemetry"
	"silo-backend/internal/ws"
)

var upgrader = gwebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Ingestor accepts a raw payload into the telemetry pipeline
type Ingestor interface {
	Process(raw *models.RawTelemetry) (*models.Reading, error)
}

// Controller fronts manual actuator control and the derived control
// state served on telemetry reads
type Controller interface {
	ManualControl(id, action string, power float64, actor string) (models.Actuator, error)
	BulkControl(ids []string, action string, power float64, actor string) models.BulkControlResult
	GuardrailsFor(deviceID string) []string
	LastRisk(deviceID string) *models.RiskResult
}

// MirrorReader serves mirrored readings when the local cache is empty
type MirrorReader interface {
	LatestReading(ctx context.Context, deviceID, probeType string) (*models.Reading, error)
}

// SeriesStore serves historical probe series for batch comparison
type SeriesStore interface {
	SeriesForProbe(deviceID, probeType string, from, to time.Time) (map[string][]float64, error)
	RecentAlerts(deviceID string, limit int) ([]models.Alert, error)
}

// Pinger reports a dependency's liveness
type Pinger func() error

// Handlers carries the API's dependencies
type Handlers struct {
	ingestor Ingestor
	control  Controller
	registry *actuators.Registry
	devices  *devices.Registry
	cache    *telemetry.Cache
	mirror   MirrorReader
	store    SeriesStore
	hub      *ws.Hub

	dbPing     Pinger
	mirrorPing Pinger
	busPing    Pinger
}

// NewHandlers creates the handler set; mirror, hub and pingers may be nil
func NewHandlers(
	ingestor Ingestor,
	control Controller,
	registry *actuators.Registry,
	deviceRegistry *devices.Registry,
	cache *telemetry.Cache,
	mirror MirrorReader,
	store SeriesStore,
	hub *ws.Hub,
	dbPing, mirrorPing, busPing Pinger,
) *Handlers {
	return &Handlers{
		ingestor:   ingestor,
		control:    control,
		registry:   registry,
		devices:    deviceRegistry,
		cache:      cache,
		mirror:     mirror,
		store:      store,
		hub:        hub,
		dbPing:     dbPing,
		mirrorPing: mirrorPing,
		busPing:    busPing,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// HandleIngest accepts telemetry over HTTP (POST /api/telemetry)
func (h *Handlers) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var raw models.RawTelemetry
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	raw.Source = "http"

	reading, err := h.ingestor.Process(&raw)
	if err != nil {
		if models.IsMalformedTelemetry(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to process telemetry")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "accepted",
		"device_id": reading.DeviceID,
		"values":    len(reading.Values),
	})
}

// actuatorState is the derived actuator summary on telemetry reads
type actuatorState struct {
	ActuatorID string  `json:"actuator_id"`
	IsOn       bool    `json:"is_on"`
	PowerLevel float64 `json:"power_level"`
	Status     string  `json:"status"`
}

// actuatorStateFor returns the first actuator of a type on a silo
func (h *Handlers) actuatorStateFor(deviceID, actuatorType string) *actuatorState {
	for _, a := range h.registry.ForDevice(deviceID) {
		if a.Type == actuatorType {
			return &actuatorState{
				ActuatorID: a.ID,
				IsOn:       a.IsOn,
				PowerLevel: a.PowerLevel,
				Status:     a.Status,
			}
		}
	}
	return nil
}

// HandleGetTelemetry serves the latest reading for a silo together with
// the derived control state (GET /api/telemetry/{deviceID}). Cached
// data is served with a stale marker and the mirror is consulted when
// the cache is empty; with neither the silo is offline.
func (h *Handlers) HandleGetTelemetry(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	reading, stale, ok := h.cache.Latest(deviceID)
	if !ok && h.mirror != nil {
		for _, probe := range []string{models.ProbeCore, models.ProbeAmbient} {
			mirrored, err := h.mirror.LatestReading(r.Context(), deviceID, probe)
			if err != nil {
				log.Printf("API: Error reading mirror for %s: %v", deviceID, err)
				break
			}
			if mirrored != nil {
				// Mirror age is unknown here; report it stale.
				reading, stale, ok = mirrored, true, true
				break
			}
		}
	}
	if !ok {
		writeError(w, http.StatusServiceUnavailable, models.ErrSiloOffline.Error())
		return
	}

	guardrails := h.control.GuardrailsFor(deviceID)
	if guardrails == nil {
		guardrails = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"device_id":   deviceID,
		"reading":     reading,
		"stale":       stale,
		"fan_state":   h.actuatorStateFor(deviceID, "fan"),
		"lid_state":   h.actuatorStateFor(deviceID, "lid"),
		"ml_decision": h.control.LastRisk(deviceID),
		"guardrails":  guardrails,
	})
}

// controlRequest is the body of a manual control call
type controlRequest struct {
	Action string  `json:"action"`
	Power  float64 `json:"power"`
	Actor  string  `json:"actor"`
}

// bulkControlRequest is the body of a bulk control call
type bulkControlRequest struct {
	ActuatorIDs []string `json:"actuator_ids"`
	Action      string   `json:"action"`
	Power       float64  `json:"power"`
	Actor       string   `json:"actor"`
}

// HandleControl applies a manual control action
// (POST /api/actuators/{id}/control)
func (h *Handlers) HandleControl(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Actor == "" {
		req.Actor = models.ActorHuman
	}

	actuator, err := h.control.ManualControl(id, req.Action, req.Power, req.Actor)
	if err != nil {
		var blocked *models.GuardrailBlockedError
		if errors.As(err, &blocked) {
			// Not a failure: the guardrail worked as designed.
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"status":       "blocked",
				"action":       req.Action,
				"triggered_by": req.Actor,
				"reasons":      blocked.Reasons,
				"actuator":     actuator,
			})
			return
		}
		writeControlError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"action":       req.Action,
		"triggered_by": req.Actor,
		"actuator":     actuator,
	})
}

// writeControlError maps actuator errors onto the HTTP taxonomy
func writeControlError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrActuatorNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrAlreadyRunning),
		errors.Is(err, models.ErrAlreadyStopped),
		errors.Is(err, models.ErrActuatorDisabled),
		errors.Is(err, models.ErrInvalidPower),
		errors.Is(err, models.ErrInvalidAction):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// HandleBulkControl applies one action to many actuators
// (POST /api/actuators/bulk-control)
func (h *Handlers) HandleBulkControl(w http.ResponseWriter, r *http.Request) {
	var req bulkControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.ActuatorIDs) == 0 {
		writeError(w, http.StatusBadRequest, "actuator_ids is required")
		return
	}
	if req.Actor == "" {
		req.Actor = models.ActorHuman
	}

	result := h.control.BulkControl(req.ActuatorIDs, req.Action, req.Power, req.Actor)
	writeJSON(w, http.StatusOK, result)
}

// HandleSetSchedule validates and stores an actuator schedule
// (PUT /api/actuators/{id}/schedule)
func (h *Handlers) HandleSetSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var schedule models.Schedule
	if err := json.NewDecoder(r.Body).Decode(&schedule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	actuator, err := h.registry.SetSchedule(id, schedule)
	if err != nil {
		if errors.Is(err, models.ErrActuatorNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"actuator": actuator,
	})
}

// HandleGetActuator returns an actuator snapshot (GET /api/actuators/{id})
func (h *Handlers) HandleGetActuator(w http.ResponseWriter, r *http.Request) {
	actuator, err := h.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, actuator)
}

// HandleListActuators returns all actuators (GET /api/actuators)
func (h *Handlers) HandleListActuators(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.List())
}

// HandleGetDevice returns a silo's registration, thresholds and
// calibration (GET /api/silos/{deviceID})
func (h *Handlers) HandleGetDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	device, ok := h.devices.Get(deviceID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown silo")
		return
	}
	writeJSON(w, http.StatusOK, device)
}

// deviceConfigRequest is the body of a silo configuration call
type deviceConfigRequest struct {
	Thresholds  map[string]models.Thresholds `json:"thresholds"`
	Calibration map[string]float64           `json:"calibration"`
}

// HandleConfigureDevice replaces a silo's thresholds and calibration
// offsets (PUT /api/silos/{deviceID}/config)
func (h *Handlers) HandleConfigureDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	var req deviceConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Thresholds == nil && req.Calibration == nil {
		writeError(w, http.StatusBadRequest, "thresholds or calibration is required")
		return
	}

	device := h.devices.Configure(deviceID, req.Thresholds, req.Calibration)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"device": device,
	})
}

// HandleCompareProbes serves batch dual-probe statistics
// (GET /api/silos/{deviceID}/probes/compare?hours=N)
func (h *Handlers) HandleCompareProbes(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "hours must be a positive integer")
			return
		}
		hours = parsed
	}

	to := time.Now()
	from := to.Add(-time.Duration(hours) * time.Hour)

	ambient, err := h.store.SeriesForProbe(deviceID, models.ProbeAmbient, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load ambient series")
		return
	}
	core, err := h.store.SeriesForProbe(deviceID, models.ProbeCore, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load core series")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"device_id":    deviceID,
		"window_hours": hours,
		"comparisons":  evaluator.BatchCompare(ambient, core),
	})
}

// HandleRecentAlerts returns the newest alerts for a silo
// (GET /api/silos/{deviceID}/alerts)
func (h *Handlers) HandleRecentAlerts(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	alerts, err := h.store.RecentAlerts(deviceID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load alerts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"device_id": deviceID,
		"alerts":    alerts,
	})
}

// HandleHealth reports dependency liveness (GET /health)
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	check := func(p Pinger) bool {
		return p == nil || p() == nil
	}

	dbOK := check(h.dbPing)
	mirrorOK := check(h.mirrorPing)
	busOK := check(h.busPing)

	status := "healthy"
	httpStatus := http.StatusOK
	if !dbOK || !mirrorOK || !busOK {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":     status,
		"clickhouse": dbOK,
		"redis":      mirrorOK,
		"mqtt":       busOK,
		"timestamp":  time.Now(),
	})
}

// HandleWebSocket upgrades connections and registers clients with the hub
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "websocket hub not running")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &ws.Client{Hub: h.hub, Conn: conn, Send: make(chan []byte, 256)}
	h.hub.RegisterClient(client)

	go client.WritePump()
	go client.ReadPump()

	log.Printf("WebSocket connection established: %s", conn.RemoteAddr())
}
