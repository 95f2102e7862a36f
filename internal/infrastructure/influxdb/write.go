package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// formatID renders a numeric identifier as a tag value.
func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// WriteRoomClimate writes a room climate measurement.
//
// This is the primary method for recording per-room telemetry from a
// polling cycle. The write is non-blocking; data is batched and sent
// asynchronously.
//
// Parameters:
//   - roomID: Numeric room identifier
//   - roomName: Human-readable room name (tag, low cardinality)
//   - fields: Climate readings (e.g. "temperature_c", "humidity_pct",
//     "target_c", "heating_power_pct")
func (c *Client) WriteRoomClimate(roomID int64, roomName string, fields map[string]interface{}) {
	if !c.IsConnected() || len(fields) == 0 {
		return
	}

	point := write.NewPoint(
		"room_climate",
		map[string]string{
			"room_id":   formatID(roomID),
			"room_name": roomName,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDeviceState writes a device telemetry measurement.
//
// Used for tracking valve and sensor readings over time: measured
// temperature, applied offset, battery and connection state.
//
// Parameters:
//   - serial: Device serial number
//   - deviceType: Device classification (e.g. "valve", "sensor")
//   - fields: Telemetry values (e.g. "measured_c", "offset_c",
//     "connected", "battery_low")
func (c *Client) WriteDeviceState(serial string, deviceType string, fields map[string]interface{}) {
	if !c.IsConnected() || len(fields) == 0 {
		return
	}

	point := write.NewPoint(
		"device_state",
		map[string]string{
			"serial": serial,
			"type":   deviceType,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePresence records the home presence state as a boolean gauge.
//
// Parameters:
//   - homeID: Numeric home identifier
//   - atHome: true when the home is in HOME mode
func (c *Client) WritePresence(homeID int64, atHome bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"presence",
		map[string]string{
			"home_id": formatID(homeID),
		},
		map[string]interface{}{
			"at_home": atHome,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
