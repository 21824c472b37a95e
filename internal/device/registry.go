package device

import (
	"fmt"

	"github.com/guardiansim/ges-core/internal/infrastructure/logging"
)

// Registry holds every spawned device in spawn order.
//
// The registry is append-only: devices are never removed for the life of
// the daemon.
//
// Thread Safety:
//   - NOT safe for concurrent use. All access happens on the command
//     dispatcher goroutine, which fully handles one datagram before the
//     next is read.
type Registry struct {
	devices []Device
	log     *logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logging.Logger) *Registry {
	if log == nil {
		log = logging.Default()
	}

	return &Registry{
		log: log.With("component", "registry"),
	}
}

// Append adds a device, preserving spawn order.
//
// Instance names are derived from random MACs and can collide; a
// collision is flagged because name lookups resolve to the first match
// only.
func (r *Registry) Append(d Device) {
	for _, existing := range r.devices {
		if existing.InstanceName() == d.InstanceName() {
			r.log.Warn("duplicate instance name registered, lookups resolve to the first match",
				"instance", d.InstanceName(),
			)
			break
		}
	}

	r.devices = append(r.devices, d)
	r.log.Info("device registered",
		"instance", d.InstanceName(),
		"codename", d.Meta().Codename,
		"total", len(r.devices),
	)
}

// All returns the devices in spawn order. The slice is a copy; the
// devices are shared.
func (r *Registry) All() []Device {
	out := make([]Device, len(r.devices))
	copy(out, r.devices)
	return out
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	return len(r.devices)
}

// FindByName returns the first device with the given instance name.
//
// Returns:
//   - Device: The first match in spawn order
//   - error: ErrNotFound (wrapped with the name) when nothing matches
func (r *Registry) FindByName(name string) (Device, error) {
	var found Device
	matches := 0

	for _, d := range r.devices {
		if d.InstanceName() == name {
			if found == nil {
				found = d
			}
			matches++
		}
	}

	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if matches > 1 {
		r.log.Warn("ambiguous instance name, returning first match",
			"instance", name,
			"matches", matches,
		)
	}

	return found, nil
}
