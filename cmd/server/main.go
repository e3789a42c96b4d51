package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"silo-backend/internal/actuators"
	"silo-backend/internal/alerts"
	"silo-backend/internal/api"
	"silo-backend/internal/classifier"
	"silo-backend/internal/control"
	"silo-backend/internal/database"
	"silo-backend/internal/devices"
	"silo-backend/internal/mirror"
	"silo-backend/internal/models"
	"silo-backend/internal/mqtt"
	"silo-backend/internal/services"
	"silo-backend/internal/telemetry"
	"silo-backend/internal/transport"
	"silo-backend/internal/ws"
	"silo-backend/pkg/config"
)

func main() {
	log.Println("Starting Silo Control Backend...")

	// Load configuration
	cfg := config.Load()

	// Initialize ClickHouse database
	db, err := database.NewClickHouseDB(
		cfg.ClickHouseAddr,
		cfg.ClickHouseDB,
		cfg.ClickHouseUser,
		cfg.ClickHousePass,
	)
	if err != nil {
		log.Fatalf("Failed to initialize ClickHouse: %v", err)
	}
	defer db.Close()

	// Initialize Redis mirror (second transport)
	redisMirror, err := mirror.NewRedisMirror(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MirrorTTL)
	if err != nil {
		log.Fatalf("Failed to initialize Redis mirror: %v", err)
	}
	defer redisMirror.Close()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === Initialize MQTT Client ===
	log.Println("Connecting to MQTT broker...")
	mqttConfig := mqtt.ClientConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
	}

	mqttClient, err := mqtt.NewClient(mqttConfig)
	if err != nil {
		log.Fatalf("Failed to initialize MQTT client: %v", err)
	}
	defer mqttClient.Close()

	// === Shared infrastructure ===
	cache := telemetry.NewCache(cfg.CacheTTL)
	go cache.StartJanitor(ctx, time.Minute)

	deviceRegistry := devices.NewRegistry(db, devices.DefaultThresholds())
	normalizer := telemetry.NewNormalizer(deviceRegistry)

	hub := ws.NewHub()
	go hub.Run()

	dispatcher := alerts.NewDispatcher(db, hub, cfg.AlertDedupeWindow)

	// === Outbound transports (MQTT command topic + Redis mirror) ===
	publisher := mqtt.NewPublisher(mqttClient.GetNativeClient(), mqtt.PublisherConfig{
		CommandTopic: cfg.MQTTTopicCommand,
	})
	stateSync := transport.NewMulti(publisher, redisMirror)

	actuatorRegistry := actuators.NewRegistry(db, stateSync)

	// === Risk classifier ===
	var riskClassifier classifier.Classifier
	switch {
	case cfg.ClassifierURL != "":
		riskClassifier = classifier.NewHTTPClassifier(cfg.ClassifierURL, cfg.ClassifierTimeout)
		log.Printf("Using HTTP risk classifier at %s", cfg.ClassifierURL)
	default:
		local, err := classifier.NewLocalClassifier(cfg.RiskModelPath)
		if err != nil {
			log.Printf("No risk classifier available (%v), AI control disabled", err)
		} else {
			riskClassifier = local
		}
	}

	// === Initialize Control Service ===
	log.Println("Initializing control service...")
	engine := control.NewEngine(control.EngineConfig{
		HumidityEngage:    cfg.HumidityEngage,
		HumidityDisengage: cfg.HumidityDisengage,
		VOCEngage:         cfg.VOCEngage,
		VOCDisengage:      cfg.VOCDisengage,
		GuardrailMaxTemp:  cfg.GuardrailMaxTemp,
		GuardrailMaxVOC:   cfg.GuardrailMaxVOC,
		MinDwell:          cfg.MinDwell,
	})

	controlConfig := services.ControlServiceConfig{
		ClassifierTimeout: cfg.ClassifierTimeout,
		AutoProvisionFans: cfg.AutoProvisionFans,
		DefaultAIControl: models.AIControl{
			Enabled:            cfg.AIControlEnabled && riskClassifier != nil,
			RiskScoreThreshold: cfg.RiskScoreThreshold,
			MinConfidence:      cfg.AIMinConfidence,
		},
	}
	controlService := services.NewControlService(
		engine, actuatorRegistry, riskClassifier, db, dispatcher, cache, controlConfig,
	)
	controlService.Start(ctx)

	// === Initialize Telemetry Service ===
	log.Println("Initializing telemetry service...")
	telemetryService := services.NewTelemetryService(
		normalizer, cache, deviceRegistry, db, redisMirror, dispatcher, hub, controlService,
		services.DefaultTelemetryServiceConfig(),
	)
	go telemetryService.Start(ctx)

	// === Inbound transports feed the shared channel ===
	subscriber := mqtt.NewSubscriber(mqttClient.GetNativeClient(), mqtt.SubscriberConfig{
		TelemetryTopic: cfg.MQTTTopicTelemetry,
	}, telemetryService.RawChan)

	if err := subscriber.SubscribeAll(); err != nil {
		log.Fatalf("Failed to subscribe to MQTT topics: %v", err)
	}

	go redisMirror.SubscribeTelemetry(ctx, telemetryService.RawChan)

	// === HTTP API ===
	handlers := api.NewHandlers(
		telemetryService, controlService, actuatorRegistry, deviceRegistry, cache, redisMirror, db, hub,
		func() error { return db.Ping(context.Background()) },
		func() error { return redisMirror.Ping(context.Background()) },
		func() error {
			if !mqttClient.IsConnected() {
				return errors.New("mqtt disconnected")
			}
			return nil
		},
	)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.NewRouter(handlers),
	}

	go func() {
		log.Printf("HTTP API listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// === Log startup info ===
	log.Println("=== Silo Control Backend is running ===")
	log.Printf("Hysteresis: humidity %g/%g, voc %g/%g ppb",
		cfg.HumidityEngage, cfg.HumidityDisengage, cfg.VOCEngage, cfg.VOCDisengage)
	log.Printf("Guardrails: temp > %g, voc > %g ppb", cfg.GuardrailMaxTemp, cfg.GuardrailMaxVOC)
	log.Printf("Min dwell between fan changes: %s", cfg.MinDwell)
	log.Printf("MQTT Topics:")
	log.Printf("  - Telemetry: %s", cfg.MQTTTopicTelemetry)
	log.Printf("  - Command:   %s", cfg.MQTTTopicCommand)
	log.Println("Press Ctrl+C to exit...")

	// === Wait for interrupt signal ===
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// === Graceful shutdown ===
	log.Println("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Give services time to finish processing
	time.Sleep(1 * time.Second)

	log.Println("Shutdown complete. Goodbye!")
}
