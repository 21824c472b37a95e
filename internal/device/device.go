package device

import (
	"sync"

	"github.com/guardiansim/ges-core/internal/simulation"
)

// Kind identifiers accepted by the spawn command.
const (
	KindValve        = "valve"
	KindLeakDetector = "leak_detector"
)

// Event names reported through the EventSink. The set mirrors the cloud
// protocol's event types.
const (
	EventHeartbeat    = "heartbeat"
	EventLeakDetected = "leak_detected"
	EventLeakCleared  = "leak_cleared"
	EventValveOpening = "valve_opening"
	EventValveOpened  = "valve_opened"
	EventValveClosing = "valve_closing"
	EventValveClosed  = "valve_closed"
	EventValveStuck   = "valve_stuck"
)

// Device is a simulated field device.
//
// A device joins the simulation as a Process: Start schedules its
// initial behaviour events at the current simulation time.
type Device interface {
	simulation.Process

	// ID returns the device's unique instance identifier.
	ID() string

	// InstanceName returns the human-readable name derived from the MAC.
	InstanceName() string

	// Meta returns the device's factory identity.
	Meta() Metadata

	// Snapshot returns the device's wire document: metadata plus
	// copies of the settings and states lists.
	Snapshot() Document
}

// SubDeviceHolder is implemented by devices that act as controllers for
// paired sub-devices.
type SubDeviceHolder interface {
	AttachSubDevice(Device) error
	SubDevices() []Device
}

// Document is the stable serialization of a device.
type Document struct {
	Metadata Metadata   `json:"metadata"`
	Settings []Property `json:"settings"`
	States   []Property `json:"states"`
}

// EventSink receives notable device events for external reporting.
//
// Implementations must not block: they are called from the engine
// goroutine between simulation events.
type EventSink interface {
	DeviceEvent(instance, event string, data map[string]any)
}

// MetricSink receives numeric samples from device behaviour.
type MetricSink interface {
	DeviceMetric(instance, field string, value float64)
}

// NopEventSink discards events. Used when no uplink is configured.
type NopEventSink struct{}

func (NopEventSink) DeviceEvent(string, string, map[string]any) {}

// NopMetricSink discards samples. Used when no telemetry is configured.
type NopMetricSink struct{}

func (NopMetricSink) DeviceMetric(string, string, float64) {}

// base carries the identity and property lists shared by all devices.
//
// mu guards the property lists: behaviour events update states on the
// engine goroutine while the dispatcher snapshots concurrently. All
// list access goes through the locked helpers below.
type base struct {
	meta Metadata

	mu       sync.RWMutex
	settings PropertyList
	states   PropertyList
}

func (b *base) ID() string {
	return b.meta.ID
}

func (b *base) InstanceName() string {
	return b.meta.InstanceName
}

func (b *base) Meta() Metadata {
	return b.meta
}

func (b *base) Snapshot() Document {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return Document{
		Metadata: b.meta,
		Settings: b.settings.clone(),
		States:   b.states.clone(),
	}
}

// saveState replaces a live reading.
func (b *base) saveState(p Property) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states.Save(p)
}

// stateString reads a state value as a string.
func (b *base) stateString(name string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.states.String(name)
}

// stateFloat reads a state value as a float64.
func (b *base) stateFloat(name string) (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.states.Float(name)
}

// settingInt reads a setting as an int64.
func (b *base) settingInt(name string) (int64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.settings.Int(name)
}
