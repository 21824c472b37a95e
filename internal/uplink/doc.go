// Package uplink publishes simulation traffic to the cloud over MQTT.
//
// The uplink mirrors what the physical fleet would report: every device
// event (heartbeats, leaks, valve motion) goes to ges/event/<instance>,
// runner transitions and spawns go to ges/system/lifecycle, and the
// daemon's own liveness is a retained message on ges/system/status with
// an LWT for crash detection.
//
// The client is publish-only and entirely optional: with the uplink
// disabled in config the daemon substitutes no-op sinks and the
// simulation is unaffected.
//
// # Usage
//
//	client, err := uplink.Connect(cfg.Uplink)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.SetLogger(logger)
//	client.DeviceEvent("Device-93BC", "leak_detected", nil)
package uplink
