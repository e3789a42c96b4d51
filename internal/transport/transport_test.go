package transport

import (
	"errors"
	"testing"

	"silo-backend/internal/models"
)

type fakeTransport struct {
	name   string
	fail   bool
	synced int
}

func (f *fakeTransport) Name() string { return f.name }

func (f *fakeTransport) SyncControlState(*models.ControlState) error {
	if f.fail {
		return errors.New("down")
	}
	f.synced++
	return nil
}

func TestMultiSyncsAllTransports(t *testing.T) {
	a := &fakeTransport{name: "mqtt"}
	b := &fakeTransport{name: "redis-mirror"}
	m := NewMulti(a, b)

	if err := m.SyncControlState(&models.ControlState{ActuatorID: "fan-1"}); err != nil {
		t.Fatalf("SyncControlState: %v", err)
	}
	if a.synced != 1 || b.synced != 1 {
		t.Errorf("synced = %d/%d, want 1/1", a.synced, b.synced)
	}
}

func TestMultiFailureDoesNotStopOthers(t *testing.T) {
	a := &fakeTransport{name: "mqtt", fail: true}
	b := &fakeTransport{name: "redis-mirror"}
	m := NewMulti(a, b)

	err := m.SyncControlState(&models.ControlState{ActuatorID: "fan-1"})
	if err == nil {
		t.Fatal("expected joined error")
	}
	if b.synced != 1 {
		t.Error("healthy transport skipped after failure")
	}
}
