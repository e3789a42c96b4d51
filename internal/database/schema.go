package database

// SQL schemas for all ClickHouse tables

const (
	// SiloReadingsTableSQL creates the silo_readings table. One row per
	// sensor value keeps range queries per type cheap.
	SiloReadingsTableSQL = `
		CREATE TABLE IF NOT EXISTS silo_readings (
			timestamp DateTime64(3),
			device_id String,
			probe_type String,
			sensor_type String,
			value Float64,
			unit String,
			source String
		) ENGINE = MergeTree()
		ORDER BY (device_id, probe_type, sensor_type, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// DeviceHealthTableSQL creates the device_health table for battery
	// and signal metrics reported alongside readings
	DeviceHealthTableSQL = `
		CREATE TABLE IF NOT EXISTS device_health (
			timestamp DateTime64(3),
			device_id String,
			battery_level Nullable(Float64),
			signal_strength Nullable(Float64)
		) ENGINE = MergeTree()
		ORDER BY (device_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// AlertsTableSQL creates the alerts table
	AlertsTableSQL = `
		CREATE TABLE IF NOT EXISTS alerts (
			id String,
			timestamp DateTime64(3),
			device_id String,
			source String,
			type String,
			priority String,
			status String,
			message String,
			trigger_conditions String
		) ENGINE = MergeTree()
		ORDER BY (device_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// ActuatorAuditTableSQL creates the actuator_audit table
	ActuatorAuditTableSQL = `
		CREATE TABLE IF NOT EXISTS actuator_audit (
			id String,
			timestamp DateTime64(3),
			actuator_id String,
			device_id String,
			actor String,
			action String,
			from_status String,
			to_status String,
			power_level Float64,
			reason String
		) ENGINE = MergeTree()
		ORDER BY (actuator_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// DivergenceEventsTableSQL creates the divergence_events table
	DivergenceEventsTableSQL = `
		CREATE TABLE IF NOT EXISTS divergence_events (
			timestamp DateTime64(3),
			device_id String,
			sensor_type String,
			ambient_value Float64,
			core_value Float64,
			difference Float64,
			relative_pct Float64
		) ENGINE = MergeTree()
		ORDER BY (device_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// DeviceRegistryTableSQL creates the device_registry table
	DeviceRegistryTableSQL = `
		CREATE TABLE IF NOT EXISTS device_registry (
			device_id String,
			name String,
			location String,
			registered_at DateTime64(3),
			last_seen DateTime64(3),
			is_active Bool,
			thresholds String,
			calibration String
		) ENGINE = ReplacingMergeTree(last_seen)
		ORDER BY device_id
	`

	// RiskClassificationsTableSQL creates the risk_classifications table
	RiskClassificationsTableSQL = `
		CREATE TABLE IF NOT EXISTS risk_classifications (
			timestamp DateTime64(3),
			device_id String,
			risk_class String,
			risk_score Float64,
			confidence Float64,
			fallback Bool
		) ENGINE = MergeTree()
		ORDER BY (device_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`
)

// AllTables returns all table creation SQL statements
func AllTables() []string {
	return []string{
		SiloReadingsTableSQL,
		DeviceHealthTableSQL,
		AlertsTableSQL,
		ActuatorAuditTableSQL,
		DivergenceEventsTableSQL,
		DeviceRegistryTableSQL,
		RiskClassificationsTableSQL,
	}
}
