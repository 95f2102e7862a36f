package influxdb_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tadolink/tadolink/internal/infrastructure/config"
	"github.com/tadolink/tadolink/internal/infrastructure/influxdb"
)

// testConfig matches the local dev InfluxDB from docker-compose.yml.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "tadolink-dev-token",
		Org:           "tadolink",
		Bucket:        "metrics",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// errorRecorder captures async write errors race-safely.
type errorRecorder struct {
	mu  sync.Mutex
	err error
}

func (r *errorRecorder) record(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *errorRecorder) get() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// connectOrSkip connects to the dev InfluxDB or skips the test, and
// wires an error recorder into the client.
func connectOrSkip(t *testing.T) (*influxdb.Client, *errorRecorder) {
	t.Helper()

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Skip("InfluxDB not available, skipping integration test")
	}
	t.Cleanup(func() {
		client.Close() //nolint:errcheck // Test cleanup
	})

	rec := &errorRecorder{}
	client.SetOnError(rec.record)
	return client, rec
}

// flushAndCheck flushes pending writes and fails the test if the
// error callback fired.
func flushAndCheck(t *testing.T, client *influxdb.Client, rec *errorRecorder) {
	t.Helper()

	client.Flush()
	time.Sleep(100 * time.Millisecond)

	if err := rec.get(); err != nil {
		t.Errorf("write error = %v", err)
	}
}

// ===== Connection =====

func TestConnect(t *testing.T) {
	client, _ := connectOrSkip(t)

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999"

	if _, err := influxdb.Connect(cfg); err == nil {
		t.Fatal("Connect() should fail for an unreachable server")
	}
}

func TestConnect_BatchSettingDefaults(t *testing.T) {
	// Zero and negative batch settings fall back to defaults rather
	// than panicking in the uint conversion.
	for _, batchSize := range []int{0, -5} {
		cfg := testConfig()
		cfg.BatchSize = batchSize
		cfg.FlushInterval = batchSize

		client, err := influxdb.Connect(cfg)
		if err != nil {
			t.Skip("InfluxDB not available, skipping integration test")
		}
		if !client.IsConnected() {
			t.Errorf("IsConnected() = false with batch size %d", batchSize)
		}
		client.Close() //nolint:errcheck // Test cleanup
	}
}

// ===== Health =====

func TestHealthCheck(t *testing.T) {
	client, _ := connectOrSkip(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestHealthCheck_CancelledContext(t *testing.T) {
	client, _ := connectOrSkip(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() should fail with a cancelled context")
	}
}

// ===== Writes =====

func TestWriteRoomClimate(t *testing.T) {
	client, rec := connectOrSkip(t)

	client.WriteRoomClimate(1, "Living Room", map[string]interface{}{
		"temperature_c": 21.3,
		"target_c":      22.0,
		"humidity_pct":  48.0,
	})
	flushAndCheck(t, client, rec)
}

func TestWriteRoomClimate_EmptyFields(t *testing.T) {
	client, rec := connectOrSkip(t)

	// An empty field set is dropped without writing.
	client.WriteRoomClimate(2, "Bedroom", map[string]interface{}{})
	flushAndCheck(t, client, rec)
}

func TestWriteDeviceState(t *testing.T) {
	client, rec := connectOrSkip(t)

	client.WriteDeviceState("VA1234567890", "valve", map[string]interface{}{
		"measured_c": 19.8,
		"offset_c":   1.5,
		"connected":  true,
	})
	flushAndCheck(t, client, rec)
}

func TestWritePresence(t *testing.T) {
	client, rec := connectOrSkip(t)

	client.WritePresence(1234, true)
	flushAndCheck(t, client, rec)
}

func TestWritePoint(t *testing.T) {
	client, rec := connectOrSkip(t)

	client.WritePoint(
		"poll_duration",
		map[string]string{"source": "test"},
		map[string]interface{}{"seconds": 1.2, "steps": 5},
	)
	flushAndCheck(t, client, rec)
}

func TestWritePointWithTime(t *testing.T) {
	client, rec := connectOrSkip(t)

	client.WritePointWithTime(
		"poll_duration",
		map[string]string{"source": "test-backfill"},
		map[string]interface{}{"seconds": 0.8},
		time.Now().Add(-1*time.Hour),
	)
	flushAndCheck(t, client, rec)
}

// ===== Close =====

func TestClose(t *testing.T) {
	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Skip("InfluxDB not available, skipping integration test")
	}

	client.WriteDeviceState("VA0000000001", "valve", map[string]interface{}{
		"measured_c": 20.0,
	})

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}
