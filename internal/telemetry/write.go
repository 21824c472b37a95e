package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// DeviceMetric writes a single device reading to InfluxDB.
//
// It implements the device package's MetricSink. The write is
// non-blocking; points are batched and sent asynchronously.
//
// Parameters:
//   - instance: The device's instance name (e.g., "Device-93BC")
//   - field: The reading name (e.g., "battery_voltage", "motor_current")
//   - value: The numeric value to record
//
// Example:
//
//	client.DeviceMetric("Device-93BC", "battery_voltage", 3598.4)
//	client.DeviceMetric("Device-A1F0", "motor_current", 0.85)
func (c *Client) DeviceMetric(instance string, field string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_metrics",
		map[string]string{
			"instance": instance,
			"field":    field,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit DeviceMetric, such as the
// run-level statistics the daemon records on lifecycle transitions.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("simulation_runs",
//	    map[string]string{"reason": "completed"},
//	    map[string]interface{}{"clock_seconds": 43200.0})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
