package mqtt

import (
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"silo-backend/internal/models"
	"silo-backend/internal/telemetry"
)

// Subscriber handles MQTT subscriptions and writes messages to channels
type Subscriber struct {
	client mqtt.Client

	// Output channel (written by subscriber, read by services)
	TelemetryChan chan *models.RawTelemetry

	// Topic pattern
	telemetryTopic string
}

// SubscriberConfig holds configuration for MQTT subscriber
type SubscriberConfig struct {
	TelemetryTopic string // e.g., "silo/+/telemetry"
}

// NewSubscriber creates a new MQTT subscriber with channels
func NewSubscriber(client mqtt.Client, config SubscriberConfig, telemetryChan chan *models.RawTelemetry) *Subscriber {
	return &Subscriber{
		client:         client,
		TelemetryChan:  telemetryChan,
		telemetryTopic: config.TelemetryTopic,
	}
}

// SubscribeAll subscribes to all configured topics
func (s *Subscriber) SubscribeAll() error {
	if s.telemetryTopic != "" {
		token := s.client.Subscribe(s.telemetryTopic, 1, s.handleTelemetry)
		if token.Wait() && token.Error() != nil {
			return token.Error()
		}
		log.Printf("Subscribed to telemetry topic: %s", s.telemetryTopic)
	}
	return nil
}

// handleTelemetry parses a raw telemetry payload and writes it to the
// channel. Malformed payloads are dropped here with a log line; full
// validation happens in the normalizer.
func (s *Subscriber) handleTelemetry(client mqtt.Client, msg mqtt.Message) {
	raw, err := telemetry.ParsePayload(msg.Payload(), "mqtt")
	if err != nil {
		log.Printf("Error parsing telemetry payload: %v", err)
		return
	}

	// Extract device ID from topic (silo/{device_id}/telemetry) when
	// the payload omits it
	if raw.DeviceID == "" {
		raw.DeviceID = extractDeviceID(msg.Topic())
	}
	if raw.DeviceID == "" {
		log.Printf("Could not extract device ID from topic: %s", msg.Topic())
		return
	}

	log.Printf("Received telemetry from %s (%d values)", raw.DeviceID, len(raw.Values))

	// Write to channel (non-blocking with timeout)
	select {
	case s.TelemetryChan <- raw:
		// Successfully sent
	case <-time.After(1 * time.Second):
		log.Printf("Warning: Telemetry channel full, dropping message from %s", raw.DeviceID)
	}
}

// extractDeviceID extracts device ID from MQTT topic
// Example: "silo/silo-001/telemetry" -> "silo-001"
func extractDeviceID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 2 {
		return parts[1]
	}
	return ""
}
