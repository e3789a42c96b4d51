package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"silo-backend/internal/models"
)

type ClickHouseDB struct {
	conn driver.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(addr, database, username, password string) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	log.Printf("Connected to ClickHouse at %s", addr)

	db := &ClickHouseDB{conn: conn}

	// Initialize schema
	if err := db.InitSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// InitSchema creates the necessary tables if they don't exist
func (db *ClickHouseDB) InitSchema() error {
	ctx := context.Background()

	tables := AllTables()
	for _, tableSQL := range tables {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	log.Println("Database schema initialized successfully")
	return nil
}

// SaveReading persists one row per sensor value of a normalized reading
func (db *ClickHouseDB) SaveReading(reading *models.Reading) error {
	ctx := context.Background()

	batch, err := db.conn.PrepareBatch(ctx, `
		INSERT INTO silo_readings (timestamp, device_id, probe_type, sensor_type, value, unit, source)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare readings batch: %w", err)
	}

	for sensorType, sv := range reading.Values {
		if err := batch.Append(
			reading.Timestamp,
			reading.DeviceID,
			reading.ProbeType,
			sensorType,
			sv.Value,
			sv.Unit,
			reading.Source,
		); err != nil {
			return fmt.Errorf("failed to append reading row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}

	if reading.DeviceMetrics != nil {
		if err := db.saveDeviceHealth(ctx, reading); err != nil {
			return err
		}
	}
	return nil
}

// saveDeviceHealth records the battery and signal metrics that arrived
// with a reading
func (db *ClickHouseDB) saveDeviceHealth(ctx context.Context, reading *models.Reading) error {
	query := `
		INSERT INTO device_health (timestamp, device_id, battery_level, signal_strength)
		VALUES (?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		reading.Timestamp,
		reading.DeviceID,
		reading.DeviceMetrics.BatteryLevel,
		reading.DeviceMetrics.SignalStrength,
	)
	if err != nil {
		return fmt.Errorf("failed to insert device health: %w", err)
	}
	return nil
}

// SaveAlert saves an alert record
func (db *ClickHouseDB) SaveAlert(alert *models.Alert) error {
	ctx := context.Background()

	trigger := ""
	if alert.TriggerConditions != nil {
		if data, err := json.Marshal(alert.TriggerConditions); err == nil {
			trigger = string(data)
		}
	}

	query := `
		INSERT INTO alerts (id, timestamp, device_id, source, type, priority, status, message, trigger_conditions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		alert.ID,
		alert.Timestamp,
		alert.DeviceID,
		alert.Source,
		alert.Type,
		alert.Priority,
		alert.Status,
		alert.Message,
		trigger,
	)

	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	return nil
}

// SaveAuditEntry appends one actuator transition to the audit log
func (db *ClickHouseDB) SaveAuditEntry(entry *models.AuditEntry) error {
	ctx := context.Background()

	query := `
		INSERT INTO actuator_audit (id, timestamp, actuator_id, device_id, actor, action, from_status, to_status, power_level, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		entry.ID,
		entry.Timestamp,
		entry.ActuatorID,
		entry.DeviceID,
		entry.Actor,
		entry.Action,
		entry.FromStatus,
		entry.ToStatus,
		entry.PowerLevel,
		entry.Reason,
	)

	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return nil
}

// SaveDivergence saves one row per diverging sensor type
func (db *ClickHouseDB) SaveDivergence(event *models.DivergenceEvent) error {
	ctx := context.Background()

	query := `
		INSERT INTO divergence_events (timestamp, device_id, sensor_type, ambient_value, core_value, difference, relative_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	for _, d := range event.Divergences {
		err := db.conn.Exec(ctx, query,
			event.Timestamp,
			event.DeviceID,
			d.SensorType,
			d.AmbientValue,
			d.CoreValue,
			d.Difference,
			d.RelativePct,
		)
		if err != nil {
			return fmt.Errorf("failed to insert divergence event: %w", err)
		}
	}

	return nil
}

// SaveRiskResult saves a risk classification
func (db *ClickHouseDB) SaveRiskResult(result *models.RiskResult) error {
	ctx := context.Background()

	query := `
		INSERT INTO risk_classifications (timestamp, device_id, risk_class, risk_score, confidence, fallback)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		result.Timestamp,
		result.DeviceID,
		result.RiskClass,
		result.RiskScore,
		result.Confidence,
		result.Fallback,
	)

	if err != nil {
		return fmt.Errorf("failed to insert risk classification: %w", err)
	}

	return nil
}

// UpsertDevice inserts or updates a device in the registry
func (db *ClickHouseDB) UpsertDevice(device *models.Device) error {
	ctx := context.Background()

	thresholdsJSON := "{}"
	if device.Thresholds != nil {
		if data, err := json.Marshal(device.Thresholds); err == nil {
			thresholdsJSON = string(data)
		}
	}
	calibrationJSON := "{}"
	if device.Calibration != nil {
		if data, err := json.Marshal(device.Calibration); err == nil {
			calibrationJSON = string(data)
		}
	}

	query := `
		INSERT INTO device_registry (device_id, name, location, registered_at, last_seen, is_active, thresholds, calibration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		device.DeviceID,
		device.Name,
		device.Location,
		device.RegisteredAt,
		device.LastSeen,
		device.IsActive,
		thresholdsJSON,
		calibrationJSON,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert device: %w", err)
	}

	return nil
}

// SeriesForProbe returns per-type value series for one probe over a
// time range, ordered by timestamp. Used by batch dual-probe analysis.
func (db *ClickHouseDB) SeriesForProbe(deviceID, probeType string, from, to time.Time) (map[string][]float64, error) {
	ctx := context.Background()

	query := `
		SELECT sensor_type, value
		FROM silo_readings
		WHERE device_id = ? AND probe_type = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp
	`

	rows, err := db.conn.Query(ctx, query, deviceID, probeType, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query probe series: %w", err)
	}
	defer rows.Close()

	series := make(map[string][]float64)
	for rows.Next() {
		var sensorType string
		var value float64
		if err := rows.Scan(&sensorType, &value); err != nil {
			return nil, fmt.Errorf("failed to scan probe series row: %w", err)
		}
		series[sensorType] = append(series[sensorType], value)
	}

	return series, nil
}

// RecentAlerts returns the newest alerts for a device
func (db *ClickHouseDB) RecentAlerts(deviceID string, limit int) ([]models.Alert, error) {
	ctx := context.Background()

	query := `
		SELECT id, timestamp, device_id, source, type, priority, status, message, trigger_conditions
		FROM alerts
		WHERE device_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := db.conn.Query(ctx, query, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		var trigger string
		if err := rows.Scan(&a.ID, &a.Timestamp, &a.DeviceID, &a.Source, &a.Type, &a.Priority, &a.Status, &a.Message, &trigger); err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}
		if trigger != "" {
			a.TriggerConditions = json.RawMessage(trigger)
		}
		alerts = append(alerts, a)
	}

	return alerts, nil
}

// Ping reports database liveness for health checks
func (db *ClickHouseDB) Ping(ctx context.Context) error {
	return db.conn.Ping(ctx)
}

// Close closes the ClickHouse connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		if err := db.conn.Close(); err != nil {
			return fmt.Errorf("failed to close ClickHouse connection: %w", err)
		}
		log.Println("ClickHouse connection closed")
	}
	return nil
}
