package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"silo-backend/internal/models"
)

// Publisher pushes actuator control state to edge devices over MQTT.
// It is one leg of the dual-transport sync; the Redis mirror is the
// other.
type Publisher struct {
	client mqtt.Client

	// Topic pattern
	commandTopic string // e.g., "silo/{device_id}/fan/set"
}

// PublisherConfig holds configuration for MQTT publisher
type PublisherConfig struct {
	CommandTopic string // e.g., "silo/{device_id}/fan/set"
}

// NewPublisher creates a new MQTT publisher
func NewPublisher(client mqtt.Client, config PublisherConfig) *Publisher {
	return &Publisher{
		client:       client,
		commandTopic: config.CommandTopic,
	}
}

// Name identifies the transport in logs and fan-out errors
func (p *Publisher) Name() string {
	return "mqtt"
}

// SyncControlState publishes the control state to the device's command
// topic
func (p *Publisher) SyncControlState(state *models.ControlState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal control state: %w", err)
	}

	topic := formatTopic(p.commandTopic, state.DeviceID)

	token := p.client.Publish(topic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish control state: %w", token.Error())
	}

	log.Printf("Published control state for %s/%s to topic: %s", state.DeviceID, state.ActuatorID, topic)
	return nil
}

// formatTopic replaces {device_id} placeholder with actual device ID
func formatTopic(topicPattern, deviceID string) string {
	return strings.ReplaceAll(topicPattern, "{device_id}", deviceID)
}
