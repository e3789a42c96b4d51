package models

import (
	"errors"
	"fmt"
	"strings"
)

// Actuator operation errors
var (
	ErrAlreadyRunning   = errors.New("actuator already running")
	ErrAlreadyStopped   = errors.New("actuator already stopped")
	ErrActuatorDisabled = errors.New("actuator disabled")
	ErrActuatorNotFound = errors.New("actuator not found")
	ErrInvalidPower     = errors.New("power level must be between 0 and 100")
	ErrInvalidAction    = errors.New("unknown control action")
)

// ErrSiloOffline is returned when neither live telemetry nor a cached
// reading exists for a device
var ErrSiloOffline = errors.New("silo offline")

// MalformedTelemetryError rejects an unparseable or invalid payload
type MalformedTelemetryError struct {
	Field  string
	Reason string
}

func (e *MalformedTelemetryError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed telemetry: %s", e.Reason)
	}
	return fmt.Sprintf("malformed telemetry: %s: %s", e.Field, e.Reason)
}

// IsMalformedTelemetry reports whether err is a telemetry validation error
func IsMalformedTelemetry(err error) bool {
	var m *MalformedTelemetryError
	return errors.As(err, &m)
}

// GuardrailBlockedError means a safety guardrail prevented a state change.
// It is not a failure: callers report it as status "blocked".
type GuardrailBlockedError struct {
	Reasons []string
}

func (e *GuardrailBlockedError) Error() string {
	return "guardrail blocked: " + strings.Join(e.Reasons, ", ")
}

// IsGuardrailBlocked reports whether err is a guardrail block
func IsGuardrailBlocked(err error) bool {
	var g *GuardrailBlockedError
	return errors.As(err, &g)
}
