package device

import (
	"math/rand"
	"sync"

	"github.com/guardiansim/ges-core/internal/comm"
	"github.com/guardiansim/ges-core/internal/infrastructure/logging"
	"github.com/guardiansim/ges-core/internal/simulation"
)

// Valve product identity.
const (
	valveCodename  = "tiddymun"
	valveMACPrefix = "30AEA402"

	valveFirmwareVersion = "4.0.0"
)

// Valve behaviour constants.
const (
	// defaultCloseDelay is how long the valve waits after a leak report
	// before driving the motor, in seconds.
	defaultCloseDelay = 5

	// valveHeartbeatPeriod is the valve's mains-powered reporting
	// period, in seconds.
	valveHeartbeatPeriod = 3600

	// motorDriveSeconds is how long the motor takes to travel from
	// open to closed.
	motorDriveSeconds = 10

	// motorDriveCurrent is the current draw while the motor runs, in
	// amps.
	motorDriveCurrent = 0.85
)

// Valve state names and values.
const (
	StateValve   = "valve"
	StateMotor   = "motor"
	ValveOpened  = "opened"
	ValveClosed  = "closed"
	ValveStuck   = "stuck"
	MotorResting = "resting"
	MotorOpening = "opening"
	MotorClosing = "closing"
)

// ValveOptions configures a new Valve.
type ValveOptions struct {
	// RF is the radio tunnel the valve listens on. The valve attaches
	// itself on construction.
	RF *comm.Tunnel

	Events  EventSink
	Metrics MetricSink
	Rand    *rand.Rand
	Logger  *logging.Logger

	// StuckProbability is the chance that a motor drive ends with the
	// valve jammed instead of closed. Zero means the valve always
	// closes cleanly.
	StuckProbability float64
}

// Valve is a motorised shut-off valve controller.
//
// It pairs with leak detectors as sub-devices; a leak_detected packet
// from a paired detector starts the close sequence after close_delay
// seconds. Packets from unpaired senders are ignored.
type Valve struct {
	base

	// subMu guards subDevices: pairing arrives from the dispatcher
	// while the engine goroutine checks membership on RF traffic.
	subMu      sync.RWMutex
	subDevices []Device

	events    EventSink
	metrics   MetricSink
	rng       *rand.Rand
	log       *logging.Logger
	stuckProb float64

	// closePending suppresses duplicate close sequences while one is
	// already scheduled or driving.
	closePending bool
}

// NewValve constructs a valve with factory defaults and attaches it to
// the RF tunnel.
func NewValve(opts ValveOptions) *Valve {
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

	meta := NewMetadata(rng, valveCodename, valveMACPrefix)

	v := &Valve{
		base: base{
			meta: meta,
			settings: PropertyList{
				{Name: "close_delay", Type: TypeUint16, Value: defaultCloseDelay, Description: "Seconds between a leak report and driving the motor"},
				{Name: "location_gps_lat", Type: TypeFloat, Value: 0.0, Description: "Install latitude"},
				{Name: "location_gps_lon", Type: TypeFloat, Value: 0.0, Description: "Install longitude"},
			},
			states: PropertyList{
				{Name: StateValve, Type: TypeString, Value: ValveOpened, Description: "Valve position"},
				{Name: StateMotor, Type: TypeString, Value: MotorResting, Description: "Motor activity"},
				{Name: "motor_current", Type: TypeFloat, Value: 0.0, Description: "Motor current draw in amps"},
				{Name: "firmware_version", Type: TypeString, Value: valveFirmwareVersion},
				{Name: "probe1_wet", Type: TypeBool, Value: false, Description: "Integrated probe moisture"},
			},
		},
		events:    events,
		metrics:   metrics,
		rng:       rng,
		log:       log.With("component", "device", "instance", meta.InstanceName),
		stuckProb: opts.StuckProbability,
	}

	if opts.RF != nil {
		opts.RF.Attach(v)
	}

	return v
}

// Start schedules the valve's heartbeat. Implements simulation.Process.
func (v *Valve) Start(env *simulation.Environment) {
	v.log.Info("valve powered on",
		"serial_number", v.meta.SerialNumber,
		"mac_address", v.meta.MACAddress,
	)
	env.Schedule(&valveHeartbeatEvent{at: env.Now() + valveHeartbeatPeriod, valve: v})
}

// AttachSubDevice pairs a detector with this valve controller. Safe to
// call from the dispatcher while a run is active.
func (v *Valve) AttachSubDevice(d Device) error {
	v.subMu.Lock()
	defer v.subMu.Unlock()

	for _, existing := range v.subDevices {
		if existing.InstanceName() == d.InstanceName() {
			return ErrAlreadyPaired
		}
	}

	v.subDevices = append(v.subDevices, d)
	v.log.Info("sub-device paired", "sub_device", d.InstanceName())
	return nil
}

// SubDevices returns the paired devices in pairing order.
func (v *Valve) SubDevices() []Device {
	v.subMu.RLock()
	defer v.subMu.RUnlock()

	out := make([]Device, len(v.subDevices))
	copy(out, v.subDevices)
	return out
}

// ReceivePacket reacts to RF traffic. Implements comm.Receiver.
func (v *Valve) ReceivePacket(env *simulation.Environment, pkt comm.Packet) {
	if pkt.Event() != EventLeakDetected {
		return
	}

	if !v.isPaired(pkt.SentBy) {
		v.log.Debug("leak report from unpaired sender ignored", "sent_by", pkt.SentBy)
		return
	}

	position, _ := v.stateString(StateValve)
	if position != ValveOpened || v.closePending {
		v.log.Debug("leak report ignored, close already in progress or valve not open",
			"valve", position,
		)
		return
	}

	delay, ok := v.settingInt("close_delay")
	if !ok {
		delay = defaultCloseDelay
	}

	v.closePending = true
	v.log.Warn("leak reported by paired detector, closing valve",
		"sent_by", pkt.SentBy,
		"close_delay", delay,
	)
	env.Schedule(&valveCloseStartEvent{at: env.Now() + delay, valve: v})
}

func (v *Valve) isPaired(instance string) bool {
	v.subMu.RLock()
	defer v.subMu.RUnlock()

	for _, d := range v.subDevices {
		if d.InstanceName() == instance {
			return true
		}
	}
	return false
}

// valveHeartbeatEvent reports the valve's vitals on a fixed period.
type valveHeartbeatEvent struct {
	at    int64
	valve *Valve
}

func (e *valveHeartbeatEvent) At() int64 { return e.at }

func (e *valveHeartbeatEvent) Execute(env *simulation.Environment) {
	v := e.valve

	position, _ := v.stateString(StateValve)
	current, _ := v.stateFloat("motor_current")

	v.events.DeviceEvent(v.InstanceName(), EventHeartbeat, map[string]any{
		"valve":            position,
		"firmware_version": valveFirmwareVersion,
	})
	v.metrics.DeviceMetric(v.InstanceName(), "motor_current", current)

	env.Schedule(&valveHeartbeatEvent{at: env.Now() + valveHeartbeatPeriod, valve: v})
}

// valveCloseStartEvent begins driving the motor after the close delay.
type valveCloseStartEvent struct {
	at    int64
	valve *Valve
}

func (e *valveCloseStartEvent) At() int64 { return e.at }

func (e *valveCloseStartEvent) Execute(env *simulation.Environment) {
	v := e.valve

	position, _ := v.stateString(StateValve)
	if position != ValveOpened {
		v.closePending = false
		return
	}

	v.saveState(Property{Name: StateMotor, Type: TypeString, Value: MotorClosing, Description: "Motor activity"})
	v.saveState(Property{Name: "motor_current", Type: TypeFloat, Value: motorDriveCurrent, Description: "Motor current draw in amps"})

	v.log.Info("motor driving closed")
	v.events.DeviceEvent(v.InstanceName(), EventValveClosing, nil)
	v.metrics.DeviceMetric(v.InstanceName(), "motor_current", motorDriveCurrent)

	env.Schedule(&valveCloseFinishEvent{at: env.Now() + motorDriveSeconds, valve: v})
}

// valveCloseFinishEvent completes the motor drive, closed or stuck.
type valveCloseFinishEvent struct {
	at    int64
	valve *Valve
}

func (e *valveCloseFinishEvent) At() int64 { return e.at }

func (e *valveCloseFinishEvent) Execute(env *simulation.Environment) {
	v := e.valve

	v.saveState(Property{Name: StateMotor, Type: TypeString, Value: MotorResting, Description: "Motor activity"})
	v.saveState(Property{Name: "motor_current", Type: TypeFloat, Value: 0.0, Description: "Motor current draw in amps"})
	v.metrics.DeviceMetric(v.InstanceName(), "motor_current", 0)
	v.closePending = false

	if v.stuckProb > 0 && v.rng.Float64() < v.stuckProb {
		v.saveState(Property{Name: StateValve, Type: TypeString, Value: ValveStuck, Description: "Valve position"})
		v.log.Error("valve jammed while closing")
		v.events.DeviceEvent(v.InstanceName(), EventValveStuck, nil)
		return
	}

	v.saveState(Property{Name: StateValve, Type: TypeString, Value: ValveClosed, Description: "Valve position"})
	v.log.Info("valve closed")
	v.events.DeviceEvent(v.InstanceName(), EventValveClosed, nil)
}
