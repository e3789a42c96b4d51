package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// MQTT Configuration
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	// MQTT topics
	MQTTTopicTelemetry string
	MQTTTopicCommand   string

	// Redis mirror configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MirrorTTL     time.Duration

	// ClickHouse Configuration
	ClickHouseAddr string
	ClickHouseDB   string
	ClickHouseUser string
	ClickHousePass string

	// HTTP server
	HTTPAddr string

	// Telemetry cache
	CacheTTL time.Duration

	// Control engine
	HumidityEngage    float64
	HumidityDisengage float64
	VOCEngage         float64
	VOCDisengage      float64
	GuardrailMaxTemp  float64
	GuardrailMaxVOC   float64
	MinDwell          time.Duration

	// Alerting
	AlertDedupeWindow time.Duration

	// Risk classifier
	ClassifierURL     string
	ClassifierTimeout time.Duration
	RiskModelPath     string

	// Automated fan control
	AutoProvisionFans  bool
	AIControlEnabled   bool
	RiskScoreThreshold float64
	AIMinConfidence    float64
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		// MQTT Configuration
		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "silo-backend"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		// MQTT topics
		MQTTTopicTelemetry: getEnv("MQTT_TOPIC_TELEMETRY", "silo/+/telemetry"),
		MQTTTopicCommand:   getEnv("MQTT_TOPIC_COMMAND", "silo/{device_id}/fan/set"),

		// Redis mirror configuration
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		MirrorTTL:     getEnvDuration("MIRROR_TTL", 10*time.Minute),

		// ClickHouse Configuration
		ClickHouseAddr: getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "silo"),
		ClickHouseUser: getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass: getEnv("CLICKHOUSE_PASS", ""),

		// HTTP server
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		// Telemetry cache
		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		// Control engine
		HumidityEngage:    getEnvFloat("HUMIDITY_ENGAGE", 75),
		HumidityDisengage: getEnvFloat("HUMIDITY_DISENGAGE", 65),
		VOCEngage:         getEnvFloat("VOC_ENGAGE", 600),
		VOCDisengage:      getEnvFloat("VOC_DISENGAGE", 400),
		GuardrailMaxTemp:  getEnvFloat("GUARDRAIL_MAX_TEMP", 60),
		GuardrailMaxVOC:   getEnvFloat("GUARDRAIL_MAX_VOC", 1000),
		MinDwell:          getEnvDuration("MIN_DWELL", 5*time.Minute),

		// Alerting
		AlertDedupeWindow: getEnvDuration("ALERT_DEDUPE_WINDOW", 10*time.Minute),

		// Risk classifier
		ClassifierURL:     getEnv("CLASSIFIER_URL", ""),
		ClassifierTimeout: getEnvDuration("CLASSIFIER_TIMEOUT", 2*time.Second),
		RiskModelPath:     getEnv("RISK_MODEL_PATH", "./model/risk_model.json"),

		// Automated fan control
		AutoProvisionFans:  getEnvBool("AUTO_PROVISION_FANS", true),
		AIControlEnabled:   getEnvBool("AI_CONTROL_ENABLED", false),
		RiskScoreThreshold: getEnvFloat("RISK_SCORE_THRESHOLD", 0.7),
		AIMinConfidence:    getEnvFloat("AI_MIN_CONFIDENCE", 0.6),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: failed to parse %s as float, using default: %v", key, err)
		return defaultValue
	}
	return floatValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as int, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as bool, using default: %v", key, err)
		return defaultValue
	}
	return boolValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as duration, using default: %v", key, err)
		return defaultValue
	}
	return duration
}
