// Package mirror is the Redis realtime mirror store. Edge devices and
// dashboards read latest readings and control state from Redis; the
// backend also receives telemetry published on mirror channels, making
// Redis the second ingestion transport next to MQTT.
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"silo-backend/internal/models"
	"silo-backend/internal/telemetry"
)

const telemetryChannelPattern = "silo.telemetry.*"

// RedisMirror wraps the Redis client for mirror reads and writes
type RedisMirror struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisMirror connects to Redis and verifies the connection
func NewRedisMirror(addr, password string, db int, ttl time.Duration) (*RedisMirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("Connected to Redis mirror at %s", addr)
	return &RedisMirror{client: client, ttl: ttl}, nil
}

func latestKey(deviceID, probeType string) string {
	return fmt.Sprintf("silo:%s:%s:latest", deviceID, probeType)
}

func controlKey(deviceID, actuatorID string) string {
	return fmt.Sprintf("silo:%s:control:%s", deviceID, actuatorID)
}

// WriteLatest mirrors a normalized reading for dashboard reads
func (m *RedisMirror) WriteLatest(ctx context.Context, reading *models.Reading) error {
	payload, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	key := latestKey(reading.DeviceID, reading.ProbeType)
	if err := m.client.Set(ctx, key, payload, m.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write latest reading: %w", err)
	}
	return nil
}

// LatestReading fetches the mirrored reading for a probe; returns nil
// without error when no entry exists
func (m *RedisMirror) LatestReading(ctx context.Context, deviceID, probeType string) (*models.Reading, error) {
	data, err := m.client.Get(ctx, latestKey(deviceID, probeType)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest reading: %w", err)
	}

	var reading models.Reading
	if err := json.Unmarshal(data, &reading); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mirrored reading: %w", err)
	}
	return &reading, nil
}

// Name identifies the transport in logs and fan-out errors
func (m *RedisMirror) Name() string {
	return "redis-mirror"
}

// SyncControlState writes the control state back to the mirror and
// notifies subscribers on the control channel
func (m *RedisMirror) SyncControlState(state *models.ControlState) error {
	ctx := context.Background()

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal control state: %w", err)
	}

	pipe := m.client.Pipeline()
	pipe.Set(ctx, controlKey(state.DeviceID, state.ActuatorID), payload, 0)
	pipe.Publish(ctx, "silo.control."+state.DeviceID, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to sync control state: %w", err)
	}
	return nil
}

// SubscribeTelemetry feeds telemetry published on mirror channels into
// the shared raw channel. Runs until the context is cancelled.
func (m *RedisMirror) SubscribeTelemetry(ctx context.Context, rawChan chan *models.RawTelemetry) {
	pubsub := m.client.PSubscribe(ctx, telemetryChannelPattern)
	defer pubsub.Close()

	log.Printf("RedisMirror: Subscribed to %s", telemetryChannelPattern)

	for {
		select {
		case <-ctx.Done():
			log.Println("RedisMirror: Telemetry subscription stopped")
			return

		case msg, ok := <-pubsub.Channel():
			if !ok {
				log.Println("RedisMirror: Subscription channel closed")
				return
			}

			raw, err := telemetry.ParsePayload([]byte(msg.Payload), "mirror")
			if err != nil {
				log.Printf("RedisMirror: Error parsing telemetry payload: %v", err)
				continue
			}
			if raw.DeviceID == "" {
				log.Printf("RedisMirror: Dropping payload without device id on %s", msg.Channel)
				continue
			}

			// Write to channel (non-blocking with timeout)
			select {
			case rawChan <- raw:
				// Successfully sent
			case <-time.After(1 * time.Second):
				log.Printf("Warning: Telemetry channel full, dropping mirror message from %s", raw.DeviceID)
			}
		}
	}
}

// Ping reports mirror liveness for health checks
func (m *RedisMirror) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (m *RedisMirror) Close() error {
	if err := m.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	log.Println("Redis mirror connection closed")
	return nil
}
