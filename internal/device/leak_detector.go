package device

import (
	"math"
	"math/rand"

	"github.com/guardiansim/ges-core/internal/comm"
	"github.com/guardiansim/ges-core/internal/infrastructure/logging"
	"github.com/guardiansim/ges-core/internal/simulation"
)

// Leak detector product identity.
const (
	leakDetectorCodename = "ahurani"
)

// Leak detector behaviour constants.
const (
	// detectorHeartbeatPeriod is the battery-preserving reporting
	// period, in seconds (12 hours).
	detectorHeartbeatPeriod = 12 * 60 * 60

	// batteryFullVoltage is a fresh cell's open-circuit voltage in
	// millivolts.
	batteryFullVoltage = 3600.0

	// batteryDecayRate is the per-second fractional capacity loss.
	// V(t) = 3600 * (1 - batteryDecayRate)^t
	batteryDecayRate = 5e-8

	// temperatureMean and temperatureSigma model the ambient reading
	// in degrees Fahrenheit.
	temperatureMean  = 73.0
	temperatureSigma = 2.0

	// leakIntervalMin/Max bound the random delay between probe state
	// flips, in seconds.
	leakIntervalMin = 1
	leakIntervalMax = 5
)

// LeakDetectorOptions configures a new LeakDetector.
type LeakDetectorOptions struct {
	// RF is the radio tunnel the detector transmits on.
	RF *comm.Tunnel

	Events  EventSink
	Metrics MetricSink
	Rand    *rand.Rand
	Logger  *logging.Logger
}

// LeakDetector is a battery-powered moisture probe.
//
// It heartbeats every twelve hours and flips its probe state at random
// one-to-five second intervals; each wet transition broadcasts a
// leak_detected packet over RF for any paired valve to act on.
type LeakDetector struct {
	base

	rf      *comm.Tunnel
	events  EventSink
	metrics MetricSink
	rng     *rand.Rand
	log     *logging.Logger

	// poweredOnAt anchors the battery decay curve to the detector's
	// first simulation second.
	poweredOnAt int64
	wet         bool
}

// NewLeakDetector constructs a detector with factory defaults.
func NewLeakDetector(opts LeakDetectorOptions) *LeakDetector {
	log := opts.Logger
	if log == nil {
		log = logging.Default()
	}
	events := opts.Events
	if events == nil {
		events = NopEventSink{}
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NopMetricSink{}
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	meta := NewMetadata(rng, leakDetectorCodename, "")

	return &LeakDetector{
		base: base{
			meta: meta,
			settings: PropertyList{
				{Name: "heartbeat_period", Type: TypeUint32, Value: detectorHeartbeatPeriod, Description: "Seconds between heartbeat reports"},
			},
			states: PropertyList{
				{Name: "battery_voltage", Type: TypeFloat, Value: batteryFullVoltage, Description: "Cell voltage in millivolts"},
				{Name: "temperature", Type: TypeFloat, Value: temperatureMean, Description: "Ambient temperature in Fahrenheit"},
				{Name: "probe_wet", Type: TypeBool, Value: false, Description: "Probe moisture"},
			},
		},
		rf:      opts.RF,
		events:  events,
		metrics: metrics,
		rng:     rng,
		log:     log.With("component", "device", "instance", meta.InstanceName),
	}
}

// Start samples the sensors and schedules the detector's behaviour.
// Implements simulation.Process.
func (d *LeakDetector) Start(env *simulation.Environment) {
	d.poweredOnAt = env.Now()
	d.refreshReadings(env)

	d.log.Info("leak detector powered on",
		"serial_number", d.meta.SerialNumber,
		"mac_address", d.meta.MACAddress,
	)

	period, ok := d.settingInt("heartbeat_period")
	if !ok {
		period = detectorHeartbeatPeriod
	}
	env.Schedule(&detectorHeartbeatEvent{at: env.Now() + period, detector: d})
	env.Schedule(&detectorProbeEvent{at: env.Now() + d.nextProbeInterval(), detector: d})
}

// refreshReadings re-samples battery and temperature at the current
// simulation time.
func (d *LeakDetector) refreshReadings(env *simulation.Environment) {
	elapsed := env.Now() - d.poweredOnAt
	voltage := batteryFullVoltage * math.Pow(1-batteryDecayRate, float64(elapsed))
	temperature := temperatureMean + d.rng.NormFloat64()*temperatureSigma

	d.saveState(Property{Name: "battery_voltage", Type: TypeFloat, Value: voltage, Description: "Cell voltage in millivolts"})
	d.saveState(Property{Name: "temperature", Type: TypeFloat, Value: temperature, Description: "Ambient temperature in Fahrenheit"})
}

// nextProbeInterval draws the delay until the next probe flip.
func (d *LeakDetector) nextProbeInterval() int64 {
	return leakIntervalMin + d.rng.Int63n(leakIntervalMax-leakIntervalMin+1)
}

// detectorHeartbeatEvent reports vitals and pings over RF.
type detectorHeartbeatEvent struct {
	at       int64
	detector *LeakDetector
}

func (e *detectorHeartbeatEvent) At() int64 { return e.at }

func (e *detectorHeartbeatEvent) Execute(env *simulation.Environment) {
	d := e.detector
	d.refreshReadings(env)

	voltage, _ := d.stateFloat("battery_voltage")
	temperature, _ := d.stateFloat("temperature")

	if d.rf != nil {
		d.rf.Send(env, comm.Packet{
			SentBy: d.InstanceName(),
			Data:   map[string]any{comm.KeyEvent: EventHeartbeat},
		})
	}

	d.events.DeviceEvent(d.InstanceName(), EventHeartbeat, map[string]any{
		"battery_voltage": voltage,
		"temperature":     temperature,
	})
	d.metrics.DeviceMetric(d.InstanceName(), "battery_voltage", voltage)
	d.metrics.DeviceMetric(d.InstanceName(), "temperature", temperature)

	period, ok := d.settingInt("heartbeat_period")
	if !ok {
		period = detectorHeartbeatPeriod
	}
	env.Schedule(&detectorHeartbeatEvent{at: env.Now() + period, detector: d})
}

// detectorProbeEvent flips the probe between wet and dry.
type detectorProbeEvent struct {
	at       int64
	detector *LeakDetector
}

func (e *detectorProbeEvent) At() int64 { return e.at }

func (e *detectorProbeEvent) Execute(env *simulation.Environment) {
	d := e.detector

	d.wet = !d.wet
	d.saveState(Property{Name: "probe_wet", Type: TypeBool, Value: d.wet, Description: "Probe moisture"})

	if d.wet {
		d.log.Warn("leak detected")
		if d.rf != nil {
			d.rf.Send(env, comm.Packet{
				SentBy: d.InstanceName(),
				Data:   map[string]any{comm.KeyEvent: EventLeakDetected},
			})
		}
		d.events.DeviceEvent(d.InstanceName(), EventLeakDetected, nil)
	} else {
		d.log.Info("leak cleared")
		d.events.DeviceEvent(d.InstanceName(), EventLeakCleared, nil)
	}

	env.Schedule(&detectorProbeEvent{at: env.Now() + d.nextProbeInterval(), detector: d})
}
