// Package device implements the simulated field devices and their registry.
//
// Every device carries factory metadata (serial, MAC, manufacture date)
// and two ordered property lists: settings (operator-tunable) and states
// (live readings). Properties are typed, and a device's wire document —
// metadata plus both lists — is the stable serialization used by the
// spawn response and the list command.
//
// Two device kinds exist:
//
//   - Valve: a motorised shut-off valve. It listens on the RF tunnel and,
//     when a paired leak detector reports water, drives its motor closed
//     after a configurable delay.
//   - LeakDetector: a battery-powered probe. It heartbeats on a long
//     period and raises leak_detected / leak_cleared at random intervals.
//
// Devices report notable events through an EventSink and numeric samples
// through a MetricSink; both default to no-ops so the simulation runs
// without any uplink configured.
//
// The Registry preserves spawn order and resolves names by first match.
package device
