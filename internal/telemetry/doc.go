// Package telemetry streams device readings to InfluxDB.
//
// Every numeric sample a simulated device produces (battery voltage,
// temperature, motor current) is recorded as a point in the
// device_metrics measurement, tagged by instance name and field. Writes
// go through the client library's batched non-blocking API so the
// simulation loop never waits on the database.
//
// Telemetry is optional: with it disabled in config the daemon
// substitutes a no-op sink and devices behave identically.
//
// # Usage
//
//	client, err := telemetry.Connect(cfg.Telemetry)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.DeviceMetric("Device-93BC", "battery_voltage", 3598.4)
package telemetry
