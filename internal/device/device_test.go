package device

import (
	"math/rand"

	"github.com/guardiansim/ges-core/internal/comm"
	"github.com/guardiansim/ges-core/internal/simulation"
)

// recordedEvent is one sink delivery captured by tests.
type recordedEvent struct {
	instance string
	event    string
	data     map[string]any
}

// captureEventSink records every device event in order.
type captureEventSink struct {
	events []recordedEvent
}

func (s *captureEventSink) DeviceEvent(instance, event string, data map[string]any) {
	s.events = append(s.events, recordedEvent{instance: instance, event: event, data: data})
}

func (s *captureEventSink) named(event string) []recordedEvent {
	var out []recordedEvent
	for _, e := range s.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

// captureMetricSink records samples keyed by field name.
type captureMetricSink struct {
	samples map[string][]float64
}

func (s *captureMetricSink) DeviceMetric(_, field string, value float64) {
	if s.samples == nil {
		s.samples = make(map[string][]float64)
	}
	s.samples[field] = append(s.samples[field], value)
}

// rfSendEvent injects a packet onto a tunnel at a chosen time.
type rfSendEvent struct {
	at     int64
	tunnel *comm.Tunnel
	packet comm.Packet
}

func (e *rfSendEvent) At() int64 { return e.at }

func (e *rfSendEvent) Execute(env *simulation.Environment) {
	e.tunnel.Send(env, e.packet)
}

func testRand() *rand.Rand {
	return rand.New(rand.NewSource(42))
}
