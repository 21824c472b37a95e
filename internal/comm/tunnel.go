package comm

import (
	"sync"
	"time"

	"github.com/guardiansim/ges-core/internal/infrastructure/logging"
	"github.com/guardiansim/ges-core/internal/simulation"
)

// Medium identifies the physical layer a tunnel models.
type Medium string

const (
	// MediumRF is the short-range radio link between field devices.
	MediumRF Medium = "rf"

	// MediumIPNetwork is the local IP network between controllers.
	MediumIPNetwork Medium = "ip"
)

// Receiver is anything that can be attached to a tunnel.
type Receiver interface {
	// InstanceName identifies the receiver; a broadcast is not
	// delivered back to the instance that sent it.
	InstanceName() string

	// ReceivePacket handles a delivered packet. It runs on the engine
	// goroutine and may schedule follow-up events.
	ReceivePacket(env *simulation.Environment, pkt Packet)
}

// Tunnel is a broadcast medium connecting attached receivers.
//
// Thread Safety:
//   - Attach is safe from any goroutine: devices spawned mid-run
//     attach from the dispatcher while the engine broadcasts.
//   - Send must be called from the engine goroutine, since it
//     schedules delivery events on the environment.
type Tunnel struct {
	medium Medium
	log    *logging.Logger

	mu        sync.RWMutex
	receivers []Receiver
}

// NewTunnel creates an empty tunnel for the given medium.
func NewTunnel(medium Medium, log *logging.Logger) *Tunnel {
	if log == nil {
		log = logging.Default()
	}

	return &Tunnel{
		medium: medium,
		log:    log.With("component", "comm", "medium", string(medium)),
	}
}

// Medium returns the tunnel's physical layer.
func (t *Tunnel) Medium() Medium {
	return t.medium
}

// Attach registers a receiver for future broadcasts.
func (t *Tunnel) Attach(r Receiver) {
	t.mu.Lock()
	t.receivers = append(t.receivers, r)
	t.mu.Unlock()

	t.log.Debug("receiver attached", "instance", r.InstanceName())
}

// Send broadcasts a packet to every attached receiver except the sender.
//
// Delivery is performed by scheduling one event per receiver at the
// current simulation time, so receivers handle the packet inside the
// event loop. A send with no eligible receivers is dropped.
func (t *Tunnel) Send(env *simulation.Environment, pkt Packet) {
	pkt.SentAt = env.Now()
	if pkt.CreatedAt.IsZero() {
		pkt.CreatedAt = time.Now().UTC()
	}

	t.mu.RLock()
	receivers := make([]Receiver, len(t.receivers))
	copy(receivers, t.receivers)
	t.mu.RUnlock()

	delivered := 0
	for _, r := range receivers {
		if r.InstanceName() == pkt.SentBy {
			continue
		}
		env.Schedule(&deliveryEvent{at: env.Now(), receiver: r, packet: pkt})
		delivered++
	}

	if delivered == 0 {
		t.log.Debug("packet dropped, no attached receivers",
			"sent_by", pkt.SentBy,
			"event", pkt.Event(),
		)
		return
	}

	t.log.Debug("packet broadcast",
		"sent_by", pkt.SentBy,
		"event", pkt.Event(),
		"receivers", delivered,
	)
}

// deliveryEvent hands a packet to one receiver at its delivery time.
type deliveryEvent struct {
	at       int64
	receiver Receiver
	packet   Packet
}

func (e *deliveryEvent) At() int64 { return e.at }

func (e *deliveryEvent) Execute(env *simulation.Environment) {
	e.receiver.ReceivePacket(env, e.packet)
}
