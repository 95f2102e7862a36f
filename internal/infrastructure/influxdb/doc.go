// Package influxdb provides InfluxDB connectivity for tadolink.
//
// It wraps the official influxdb-client-go v2 library with tadolink-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Room climate history (measured temperature, humidity, setpoints)
//   - Valve and sensor telemetry (measured temperature, offsets, battery)
//   - Home presence transitions
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "tadolink",
//	    Bucket: "metrics",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Write room climate readings
//	client.WriteRoomClimate(1, "Living Room", map[string]interface{}{
//	    "temperature_c": 21.3,
//	    "target_c":      22.0,
//	})
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency telemetry data.
package influxdb
