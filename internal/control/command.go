package control

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/guardiansim/ges-core/internal/device"
	"github.com/guardiansim/ges-core/internal/simulation"
)

// Command kind strings accepted on the wire.
const (
	cmdSpawn           = "spawn"
	cmdList            = "list"
	cmdRun             = "run"
	cmdKill            = "kill"
	cmdAddLeakDetector = "add_leak_detector"
	cmdListSubDevices  = "list_sub_devices"

	// cmdListLeakDetector is the historical alias for list_sub_devices;
	// existing clients still send it.
	cmdListLeakDetector = "list_leak_detectors"
)

// Command is a fully validated protocol command. The set of
// implementations is closed: dispatch is an exhaustive type switch and
// new kinds must be added here, not bolted on at call sites.
type Command interface {
	isCommand()
}

// SpawnCommand creates Count devices of DeviceType. The only command
// that answers the sender.
type SpawnCommand struct {
	DeviceType string
	Count      int
}

// ListCommand logs every registered device's wire document.
type ListCommand struct{}

// RunCommand starts the simulation, bounded at Until simulation seconds
// (simulation.NoLimit for unbounded).
type RunCommand struct {
	Until int64
}

// KillCommand hard-stops the running simulation.
type KillCommand struct{}

// AddLeakDetectorCommand spawns a detector paired to the named valve
// controller.
type AddLeakDetectorCommand struct {
	ValveController string
}

// ListSubDevicesCommand logs the sub-devices paired to the named valve
// controller.
type ListSubDevicesCommand struct {
	ValveController string
}

func (SpawnCommand) isCommand()           {}
func (ListCommand) isCommand()            {}
func (RunCommand) isCommand()             {}
func (KillCommand) isCommand()            {}
func (AddLeakDetectorCommand) isCommand() {}
func (ListSubDevicesCommand) isCommand()  {}

// envelope is the raw JSON shape of every datagram. Pointer fields
// distinguish absent from zero.
type envelope struct {
	Command         string `json:"command"`
	Type            string `json:"type"`
	Count           *int   `json:"count"`
	Until           *int64 `json:"until"`
	ValveController string `json:"valve_controller"`
}

// ParseCommand decodes and validates one datagram payload.
//
// Decoding happens exactly once, at this protocol boundary; everything
// past ParseCommand works with typed values. Validation failures return
// one of the package's named protocol errors, wrapped with the offending
// detail.
//
// Parameters:
//   - payload: Raw datagram bytes, at most MaxDatagramSize
//
// Returns:
//   - Command: The validated command
//   - error: A named protocol error describing the rejection
func ParseCommand(payload []byte) (Command, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, ErrEmptyPayload
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if env.Command == "" {
		return nil, ErrMissingCommand
	}

	switch env.Command {
	case cmdSpawn:
		return parseSpawn(env)

	case cmdList:
		return ListCommand{}, nil

	case cmdRun:
		until := simulation.NoLimit
		if env.Until != nil {
			if *env.Until < 0 {
				return nil, fmt.Errorf("%w: until must not be negative", ErrInvalidField)
			}
			until = *env.Until
		}
		return RunCommand{Until: until}, nil

	case cmdKill:
		return KillCommand{}, nil

	case cmdAddLeakDetector:
		if env.ValveController == "" {
			return nil, fmt.Errorf("%w: valve_controller", ErrMissingField)
		}
		return AddLeakDetectorCommand{ValveController: env.ValveController}, nil

	case cmdListSubDevices, cmdListLeakDetector:
		if env.ValveController == "" {
			return nil, fmt.Errorf("%w: valve_controller", ErrMissingField)
		}
		return ListSubDevicesCommand{ValveController: env.ValveController}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Command)
	}
}

func parseSpawn(env envelope) (Command, error) {
	if env.Type == "" {
		return nil, fmt.Errorf("%w: type", ErrMissingField)
	}

	switch env.Type {
	case device.KindValve, device.KindLeakDetector:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDeviceType, env.Type)
	}

	if env.Count == nil {
		return nil, fmt.Errorf("%w: count", ErrMissingField)
	}
	if *env.Count < 0 {
		return nil, fmt.Errorf("%w: count must not be negative", ErrInvalidField)
	}

	return SpawnCommand{DeviceType: env.Type, Count: *env.Count}, nil
}
