package uplink

import (
	"encoding/json"
	"fmt"
	"time"
)

// Maximum payload size for uplink messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// publishAsync validates and fires a publish without waiting for broker
// acknowledgment. The sinks call it from the engine goroutine, which
// must never stall on a lagging broker; acknowledgment failures are
// reported through the logger from a separate goroutine.
//
// Validation and connection-state failures are still returned
// synchronously, so callers can log the drop with their own context.
func (c *Client) publishAsync(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	go func() {
		if !token.WaitTimeout(defaultPublishTimeout) {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("publish unacknowledged", "topic", topic, "timeout", defaultPublishTimeout)
			}
			return
		}
		if err := token.Error(); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("publish failed", "topic", topic, "error", err)
			}
		}
	}()

	return nil
}

// eventMessage is the JSON shape of a device event on the wire.
type eventMessage struct {
	Instance  string         `json:"instance"`
	Event     string         `json:"event"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// DeviceEvent publishes one device event to ges/event/<instance>.
//
// It implements the device package's EventSink, which forbids blocking:
// the publish is fired asynchronously and failures are logged and
// dropped, so neither a broker outage nor a lagging broker ever stalls
// the simulation.
func (c *Client) DeviceEvent(instance, event string, data map[string]any) {
	payload, err := json.Marshal(eventMessage{
		Instance:  instance,
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	})
	if err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Error("encoding device event failed", "instance", instance, "error", err)
		}
		return
	}

	topic := Topics{}.DeviceEvent(instance)
	if err := c.publishAsync(topic, payload, byte(c.cfg.QoS), false); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("publishing device event failed",
				"instance", instance,
				"event", event,
				"error", err,
			)
		}
	}
}

// lifecycleMessage is the JSON shape of a daemon lifecycle notice.
type lifecycleMessage struct {
	Event     string         `json:"event"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Lifecycle publishes a daemon-level notice (runner transitions, spawns)
// to ges/system/lifecycle. Like DeviceEvent it never waits on the
// broker; failures are logged and dropped.
func (c *Client) Lifecycle(event string, data map[string]any) {
	payload, err := json.Marshal(lifecycleMessage{
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	})
	if err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Error("encoding lifecycle notice failed", "event", event, "error", err)
		}
		return
	}

	topic := Topics{}.SystemLifecycle()
	if err := c.publishAsync(topic, payload, byte(c.cfg.QoS), false); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("publishing lifecycle notice failed",
				"event", event,
				"error", err,
			)
		}
	}
}
