package uplink

import "fmt"

// Topic prefixes for the GES cloud uplink.
//
// All topics use the flat scheme: ges/{category}/...
const (
	// TopicPrefix is the base for all uplink topics.
	TopicPrefix = "ges"

	// TopicPrefixSystem is the base for daemon-level topics.
	TopicPrefixSystem = "ges/system"
)

// Topics provides builders for uplink topics. Using these helpers keeps
// topic naming consistent across the codebase.
//
//	topics := uplink.Topics{}
//	eventTopic := topics.DeviceEvent("Device-93BC")
//	// Returns: "ges/event/Device-93BC"
type Topics struct{}

// DeviceEvent returns the topic carrying one device's events.
//
// Example: ges/event/Device-93BC
func (Topics) DeviceEvent(instance string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, instance)
}

// SystemStatus returns the daemon status topic (online/offline, LWT).
//
// Example: ges/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemLifecycle returns the topic for runner transitions and spawns.
//
// Example: ges/system/lifecycle
func (Topics) SystemLifecycle() string {
	return fmt.Sprintf("%s/lifecycle", TopicPrefixSystem)
}
