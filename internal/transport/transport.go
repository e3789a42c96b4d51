// Package transport fans actuator control state out to the configured
// sync targets: the MQTT command topic and the Redis mirror store.
package transport

import (
	"errors"
	"fmt"
	"log"

	"silo-backend/internal/models"
)

// Transport is one outbound control-state sync target
type Transport interface {
	Name() string
	SyncControlState(state *models.ControlState) error
}

// Multi fans control state out to every transport. A failing transport
// never prevents the others from syncing.
type Multi struct {
	transports []Transport
}

// NewMulti creates a fan-out over the given transports
func NewMulti(transports ...Transport) *Multi {
	return &Multi{transports: transports}
}

// SyncControlState syncs to all transports and joins their errors
func (m *Multi) SyncControlState(state *models.ControlState) error {
	var errs []error
	for _, t := range m.transports {
		if err := t.SyncControlState(state); err != nil {
			log.Printf("Transport %s: Error syncing control state for %s: %v", t.Name(), state.ActuatorID, err)
			errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
		}
	}
	return errors.Join(errs...)
}
