package control

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net"

	"github.com/guardiansim/ges-core/internal/comm"
	"github.com/guardiansim/ges-core/internal/device"
	"github.com/guardiansim/ges-core/internal/infrastructure/logging"
)

// Responder sends a payload back to a command sender. The listener
// implements it over the command socket.
type Responder interface {
	Respond(addr *net.UDPAddr, payload []byte) error
}

// Recorder journals received packets and control-plane events. The
// history store implements it; recording is best-effort and never blocks
// dispatch on failure.
type Recorder interface {
	RecordPacket(ctx context.Context, sender string, payload []byte, parseError string) error
	RecordEvent(ctx context.Context, category, instance string, detail map[string]any) error
}

// NopRecorder discards journal writes. Used when history is disabled.
type NopRecorder struct{}

func (NopRecorder) RecordPacket(context.Context, string, []byte, string) error {
	return nil
}

func (NopRecorder) RecordEvent(context.Context, string, string, map[string]any) error {
	return nil
}

// Event categories written to the journal.
const (
	categorySpawn         = "spawn"
	categoryProtocolError = "protocol_error"
	categoryLookupMiss    = "lookup_miss"
	categoryLifecycle     = "lifecycle"
)

// spawnResponse is the only network response the daemon produces.
type spawnResponse struct {
	Devices []device.Metadata `json:"devices"`
}

// ControllerOptions wires a Controller's collaborators.
type ControllerOptions struct {
	Registry  *device.Registry
	Runner    *Runner
	RF        *comm.Tunnel
	Responder Responder
	Recorder  Recorder
	Events    device.EventSink
	Metrics   device.MetricSink
	Rand      *rand.Rand
	Logger    *logging.Logger
}

// Controller dispatches validated commands.
//
// It runs entirely on the listener goroutine: one datagram is parsed,
// dispatched and journalled before the next is read, which is what makes
// the registry's single-writer discipline hold. State a live run shares
// with dispatch — device properties, valve pairings, tunnel receivers —
// is guarded by those types' own locks.
type Controller struct {
	registry  *device.Registry
	runner    *Runner
	rf        *comm.Tunnel
	responder Responder
	recorder  Recorder
	events    device.EventSink
	metrics   device.MetricSink
	rng       *rand.Rand
	log       *logging.Logger
}

// NewController creates a controller. Nil optional collaborators
// (recorder, sinks) default to no-ops.
func NewController(opts ControllerOptions) *Controller {
	log := opts.Logger
	if log == nil {
		log = logging.Default()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = NopRecorder{}
	}
	events := opts.Events
	if events == nil {
		events = device.NopEventSink{}
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = device.NopMetricSink{}
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	return &Controller{
		registry:  opts.Registry,
		runner:    opts.Runner,
		rf:        opts.RF,
		responder: opts.Responder,
		recorder:  recorder,
		events:    events,
		metrics:   metrics,
		rng:       rng,
		log:       log.With("component", "controller"),
	}
}

// HandleDatagram parses and dispatches one datagram. Implements
// DatagramHandler.
func (c *Controller) HandleDatagram(payload []byte, sender *net.UDPAddr) {
	ctx := context.Background()

	cmd, err := ParseCommand(payload)

	parseError := ""
	if err != nil {
		parseError = err.Error()
	}
	if recErr := c.recorder.RecordPacket(ctx, sender.String(), payload, parseError); recErr != nil {
		c.log.Warn("journalling packet failed", "error", recErr)
	}

	if err != nil {
		c.log.Warn("dropping invalid command",
			"error", err,
			"sender", sender.String(),
		)
		c.record(ctx, categoryProtocolError, "", map[string]any{"error": err.Error()})
		return
	}

	c.dispatch(ctx, cmd, sender)
}

// dispatch is the exhaustive switch over the closed command set.
func (c *Controller) dispatch(ctx context.Context, cmd Command, sender *net.UDPAddr) {
	switch cmd := cmd.(type) {
	case SpawnCommand:
		c.handleSpawn(ctx, cmd, sender)
	case ListCommand:
		c.handleList()
	case RunCommand:
		c.handleRun(cmd)
	case KillCommand:
		c.handleKill(ctx)
	case AddLeakDetectorCommand:
		c.handleAddLeakDetector(ctx, cmd)
	case ListSubDevicesCommand:
		c.handleListSubDevices(ctx, cmd)
	default:
		// Unreachable while the Command set stays closed.
		c.log.Error("command kind with no dispatch arm", "command", cmd)
	}
}

// handleSpawn constructs devices, registers them, hands them to the
// engine and answers the sender with their metadata.
func (c *Controller) handleSpawn(ctx context.Context, cmd SpawnCommand, sender *net.UDPAddr) {
	spawned := make([]device.Metadata, 0, cmd.Count)

	for i := 0; i < cmd.Count; i++ {
		d := c.buildDevice(cmd.DeviceType)

		c.registry.Append(d)
		c.runner.Admit(d)
		spawned = append(spawned, d.Meta())

		c.record(ctx, categorySpawn, d.InstanceName(), map[string]any{
			"codename": d.Meta().Codename,
			"type":     cmd.DeviceType,
		})
	}

	c.log.Info("spawn complete",
		"type", cmd.DeviceType,
		"count", cmd.Count,
		"registered", c.registry.Len(),
	)

	c.respond(sender, spawnResponse{Devices: spawned})
}

func (c *Controller) buildDevice(deviceType string) device.Device {
	switch deviceType {
	case device.KindLeakDetector:
		return device.NewLeakDetector(device.LeakDetectorOptions{
			RF:      c.rf,
			Events:  c.events,
			Metrics: c.metrics,
			Rand:    c.deviceRand(),
			Logger:  c.log,
		})
	default:
		return device.NewValve(device.ValveOptions{
			RF:      c.rf,
			Events:  c.events,
			Metrics: c.metrics,
			Rand:    c.deviceRand(),
			Logger:  c.log,
		})
	}
}

// deviceRand derives a private random source for one device. The engine
// goroutine draws from it during behaviour events, so sharing the
// dispatcher's source would race; the derivation itself stays on the
// dispatcher, keeping spawns deterministic for a fixed seed.
func (c *Controller) deviceRand() *rand.Rand {
	return rand.New(rand.NewSource(c.rng.Int63()))
}

// respond sends the spawn response; delivery failures are logged, never
// retried. A response too large for one UDP datagram is dropped rather
// than sent truncated.
func (c *Controller) respond(sender *net.UDPAddr, resp spawnResponse) {
	if c.responder == nil {
		return
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		c.log.Error("encoding spawn response failed", "error", err)
		return
	}

	if len(payload) > MaxResponseSize {
		c.log.Error("spawn response exceeds datagram limit, not sent",
			"bytes", len(payload),
			"devices", len(resp.Devices),
		)
		return
	}

	if err := c.responder.Respond(sender, payload); err != nil {
		c.log.Warn("sending spawn response failed",
			"error", err,
			"sender", sender.String(),
		)
	}
}

// handleList logs every device's wire document in spawn order.
func (c *Controller) handleList() {
	all := c.registry.All()

	c.log.Info("listing devices", "count", len(all))

	for i, d := range all {
		doc, err := json.Marshal(d.Snapshot())
		if err != nil {
			c.log.Error("encoding device document failed",
				"instance", d.InstanceName(),
				"error", err,
			)
			continue
		}

		c.log.Info("device",
			"index", i,
			"document", json.RawMessage(doc),
		)
	}
}

func (c *Controller) handleRun(cmd RunCommand) {
	if err := c.runner.Run(cmd.Until); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			c.log.Warn("run ignored, simulation already running")
			return
		}
		c.log.Error("starting simulation failed", "error", err)
		return
	}

	c.log.Info("simulation started", "until", cmd.Until)
}

func (c *Controller) handleKill(ctx context.Context) {
	if err := c.runner.Kill(); err != nil {
		if errors.Is(err, ErrNotRunning) {
			c.log.Info("kill ignored, simulation not running")
			return
		}
		c.log.Error("killing simulation failed", "error", err)
		return
	}

	c.log.Warn("simulation killed")
	c.record(ctx, categoryLifecycle, "", map[string]any{"reason": ReasonKilled})
}

// handleAddLeakDetector spawns a detector paired to an existing valve
// controller.
func (c *Controller) handleAddLeakDetector(ctx context.Context, cmd AddLeakDetectorCommand) {
	target, err := c.registry.FindByName(cmd.ValveController)
	if err != nil {
		c.log.Warn("valve controller not found",
			"valve_controller", cmd.ValveController,
		)
		c.record(ctx, categoryLookupMiss, cmd.ValveController, nil)
		return
	}

	holder, ok := target.(device.SubDeviceHolder)
	if !ok {
		c.log.Warn("target cannot hold sub-devices",
			"valve_controller", cmd.ValveController,
			"codename", target.Meta().Codename,
		)
		return
	}

	detector := device.NewLeakDetector(device.LeakDetectorOptions{
		RF:      c.rf,
		Events:  c.events,
		Metrics: c.metrics,
		Rand:    c.deviceRand(),
		Logger:  c.log,
	})

	if err := holder.AttachSubDevice(detector); err != nil {
		c.log.Error("pairing detector failed",
			"valve_controller", cmd.ValveController,
			"error", err,
		)
		return
	}

	c.registry.Append(detector)
	c.runner.Admit(detector)

	c.log.Info("leak detector paired",
		"valve_controller", cmd.ValveController,
		"instance", detector.InstanceName(),
	)
	c.record(ctx, categorySpawn, detector.InstanceName(), map[string]any{
		"codename":  detector.Meta().Codename,
		"paired_to": cmd.ValveController,
	})
}

func (c *Controller) handleListSubDevices(ctx context.Context, cmd ListSubDevicesCommand) {
	target, err := c.registry.FindByName(cmd.ValveController)
	if err != nil {
		c.log.Warn("valve controller not found",
			"valve_controller", cmd.ValveController,
		)
		c.record(ctx, categoryLookupMiss, cmd.ValveController, nil)
		return
	}

	holder, ok := target.(device.SubDeviceHolder)
	if !ok {
		c.log.Warn("target has no sub-devices",
			"valve_controller", cmd.ValveController,
		)
		return
	}

	subs := holder.SubDevices()
	c.log.Info("listing sub-devices",
		"valve_controller", cmd.ValveController,
		"count", len(subs),
	)

	for i, d := range subs {
		doc, err := json.Marshal(d.Snapshot())
		if err != nil {
			c.log.Error("encoding device document failed",
				"instance", d.InstanceName(),
				"error", err,
			)
			continue
		}

		c.log.Info("sub-device",
			"index", i,
			"document", json.RawMessage(doc),
		)
	}
}

// record journals a control-plane event, logging on failure.
func (c *Controller) record(ctx context.Context, category, instance string, detail map[string]any) {
	if err := c.recorder.RecordEvent(ctx, category, instance, detail); err != nil {
		c.log.Warn("journalling event failed", "category", category, "error", err)
	}
}
