package device

import (
	"context"
	"testing"

	"github.com/guardiansim/ges-core/internal/comm"
	"github.com/guardiansim/ges-core/internal/simulation"
)

func TestNewLeakDetector_Defaults(t *testing.T) {
	d := NewLeakDetector(LeakDetectorOptions{Rand: testRand()})

	meta := d.Meta()
	if meta.Codename != "ahurani" {
		t.Errorf("Codename = %q, want %q", meta.Codename, "ahurani")
	}

	doc := d.Snapshot()

	if period, ok := PropertyList(doc.Settings).Int("heartbeat_period"); !ok || period != 43200 {
		t.Errorf("heartbeat_period = %d (present=%v), want 43200", period, ok)
	}

	if voltage, _ := PropertyList(doc.States).Float("battery_voltage"); voltage != batteryFullVoltage {
		t.Errorf("battery_voltage = %v, want %v", voltage, batteryFullVoltage)
	}
}

// capturePacketReceiver records RF deliveries for assertions.
type capturePacketReceiver struct {
	name    string
	packets []comm.Packet
}

func (r *capturePacketReceiver) InstanceName() string { return r.name }

func (r *capturePacketReceiver) ReceivePacket(_ *simulation.Environment, pkt comm.Packet) {
	r.packets = append(r.packets, pkt)
}

func TestLeakDetector_ProbeCycleBroadcastsLeaks(t *testing.T) {
	env := simulation.NewEnvironment(simulation.Options{})
	rf := comm.NewTunnel(comm.MediumRF, nil)
	events := &captureEventSink{}

	listener := &capturePacketReceiver{name: "Device-TEST"}
	rf.Attach(listener)

	d := NewLeakDetector(LeakDetectorOptions{RF: rf, Events: events, Rand: testRand()})
	env.Admit(d)

	// Probe flips every 1-5s: by t=12 at least one wet and one dry
	// transition have happened.
	if err := env.Run(context.Background(), 12); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	detected := events.named(EventLeakDetected)
	cleared := events.named(EventLeakCleared)
	if len(detected) == 0 {
		t.Fatal("no leak_detected events within 12 simulated seconds")
	}
	if len(cleared) == 0 {
		t.Fatal("no leak_cleared events within 12 simulated seconds")
	}

	// Every wet transition broadcasts over RF; dry transitions do not.
	if len(listener.packets) != len(detected) {
		t.Errorf("RF broadcasts = %d, want %d (one per leak_detected)", len(listener.packets), len(detected))
	}
	for _, pkt := range listener.packets {
		if pkt.Event() != EventLeakDetected {
			t.Errorf("RF packet event = %q, want %q", pkt.Event(), EventLeakDetected)
		}
		if pkt.SentBy != d.InstanceName() {
			t.Errorf("RF packet SentBy = %q, want %q", pkt.SentBy, d.InstanceName())
		}
	}
}

func TestLeakDetector_HeartbeatReportsDecayingBattery(t *testing.T) {
	env := simulation.NewEnvironment(simulation.Options{})
	events := &captureEventSink{}
	metrics := &captureMetricSink{}

	d := NewLeakDetector(LeakDetectorOptions{Events: events, Metrics: metrics, Rand: testRand()})
	env.Admit(d)

	if err := env.Run(context.Background(), detectorHeartbeatPeriod); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	heartbeats := events.named(EventHeartbeat)
	if len(heartbeats) != 1 {
		t.Fatalf("heartbeat events = %d, want 1", len(heartbeats))
	}

	samples := metrics.samples["battery_voltage"]
	if len(samples) != 1 {
		t.Fatalf("battery_voltage samples = %d, want 1", len(samples))
	}

	// Twelve hours of decay leaves the cell measurably below full.
	if samples[0] >= batteryFullVoltage {
		t.Errorf("battery_voltage = %v, want below %v after twelve hours", samples[0], batteryFullVoltage)
	}
	if samples[0] < 3500 {
		t.Errorf("battery_voltage = %v, decayed implausibly fast", samples[0])
	}

	if len(metrics.samples["temperature"]) != 1 {
		t.Errorf("temperature samples = %d, want 1", len(metrics.samples["temperature"]))
	}
}

func TestLeakDetector_TemperatureNearMean(t *testing.T) {
	d := NewLeakDetector(LeakDetectorOptions{Rand: testRand()})
	env := simulation.NewEnvironment(simulation.Options{})

	d.Start(env)

	temperature, ok := d.stateFloat("temperature")
	if !ok {
		t.Fatal("temperature state missing")
	}

	// Gaussian around 73°F with sigma 2: ten sigmas covers any seed.
	if temperature < temperatureMean-10*temperatureSigma || temperature > temperatureMean+10*temperatureSigma {
		t.Errorf("temperature = %v, implausible for mean %v", temperature, temperatureMean)
	}
}
