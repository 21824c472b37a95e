package comm

import (
	"context"
	"testing"

	"github.com/guardiansim/ges-core/internal/simulation"
)

// stubReceiver records every delivered packet.
type stubReceiver struct {
	name    string
	packets []Packet
}

func (r *stubReceiver) InstanceName() string { return r.name }

func (r *stubReceiver) ReceivePacket(_ *simulation.Environment, pkt Packet) {
	r.packets = append(r.packets, pkt)
}

// sendEvent broadcasts a packet when executed.
type sendEvent struct {
	at     int64
	tunnel *Tunnel
	packet Packet
}

func (e *sendEvent) At() int64 { return e.at }

func (e *sendEvent) Execute(env *simulation.Environment) {
	e.tunnel.Send(env, e.packet)
}

func TestSend_BroadcastsToAllButSender(t *testing.T) {
	env := simulation.NewEnvironment(simulation.Options{})
	tunnel := NewTunnel(MediumRF, nil)

	sender := &stubReceiver{name: "Device-aaaa"}
	peer1 := &stubReceiver{name: "Device-bbbb"}
	peer2 := &stubReceiver{name: "Device-cccc"}
	tunnel.Attach(sender)
	tunnel.Attach(peer1)
	tunnel.Attach(peer2)

	env.Schedule(&sendEvent{at: 5, tunnel: tunnel, packet: Packet{
		SentBy: "Device-aaaa",
		Data:   map[string]any{KeyEvent: "leak_detected"},
	}})

	if err := env.Run(context.Background(), simulation.NoLimit); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(sender.packets) != 0 {
		t.Errorf("sender received its own broadcast (%d packets)", len(sender.packets))
	}

	for _, peer := range []*stubReceiver{peer1, peer2} {
		if len(peer.packets) != 1 {
			t.Fatalf("%s received %d packets, want 1", peer.name, len(peer.packets))
		}

		pkt := peer.packets[0]
		if pkt.SentAt != 5 {
			t.Errorf("SentAt = %d, want 5", pkt.SentAt)
		}
		if pkt.Event() != "leak_detected" {
			t.Errorf("Event() = %q, want %q", pkt.Event(), "leak_detected")
		}
		if pkt.CreatedAt.IsZero() {
			t.Error("CreatedAt was not stamped")
		}
	}
}

func TestSend_NoReceiversDropsPacket(t *testing.T) {
	env := simulation.NewEnvironment(simulation.Options{})
	tunnel := NewTunnel(MediumRF, nil)

	env.Schedule(&sendEvent{at: 1, tunnel: tunnel, packet: Packet{SentBy: "Device-aaaa"}})

	// Must not panic or schedule anything.
	if err := env.Run(context.Background(), simulation.NoLimit); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if env.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", env.Pending())
	}
}

func TestPacket_Event(t *testing.T) {
	tests := []struct {
		name   string
		packet Packet
		want   string
	}{
		{
			name:   "event present",
			packet: Packet{Data: map[string]any{KeyEvent: "heartbeat"}},
			want:   "heartbeat",
		},
		{
			name:   "nil data",
			packet: Packet{},
			want:   "",
		},
		{
			name:   "event missing",
			packet: Packet{Data: map[string]any{"other": 1}},
			want:   "",
		},
		{
			name:   "event not a string",
			packet: Packet{Data: map[string]any{KeyEvent: 7}},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.packet.Event(); got != tt.want {
				t.Errorf("Event() = %q, want %q", got, tt.want)
			}
		})
	}
}
