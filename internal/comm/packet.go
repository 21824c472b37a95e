package comm

import "time"

// Well-known payload keys.
const (
	// KeyEvent names the event a packet announces, e.g. "leak_detected".
	KeyEvent = "event"
)

// Packet is a single transmission over a tunnel.
//
// SentAt is simulation time; CreatedAt is wall-clock time, recorded so
// operators can correlate simulated traffic with the daemon's logs.
type Packet struct {
	SentAt    int64          `json:"sent_at"`
	CreatedAt time.Time      `json:"created_at"`
	SentBy    string         `json:"sent_by"`
	SentTo    string         `json:"sent_to"`
	Data      map[string]any `json:"data"`
}

// Event returns the packet's event name, or "" when the payload carries
// none.
func (p Packet) Event() string {
	if p.Data == nil {
		return ""
	}
	if v, ok := p.Data[KeyEvent].(string); ok {
		return v
	}
	return ""
}
