package bridge

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tadolink/tadolink/internal/infrastructure/mqtt"
)

// DefaultReferenceMaxAge is how long a reference reading stays usable.
// Readings older than this are treated as missing so that a dead sensor
// stops driving offset corrections.
const DefaultReferenceMaxAge = 15 * time.Minute

// ReferenceCache holds the latest temperature reading per external
// reference sensor, fed from MQTT. It implements the offset-sync
// controller's reference source.
//
// Payloads may be a bare number ("21.3") or JSON with a temperature
// field ({"temperature": 21.3}); anything else is dropped.
type ReferenceCache struct {
	maxAge time.Duration
	logger Logger

	mu       sync.RWMutex
	readings map[string]referenceReading

	// now is swappable for tests.
	now func() time.Time
}

type referenceReading struct {
	temp float64
	at   time.Time
}

// NewReferenceCache builds a cache. A zero or negative maxAge selects
// DefaultReferenceMaxAge; a nil logger disables logging.
func NewReferenceCache(maxAge time.Duration, logger Logger) *ReferenceCache {
	if maxAge <= 0 {
		maxAge = DefaultReferenceMaxAge
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &ReferenceCache{
		maxAge:   maxAge,
		logger:   logger,
		readings: make(map[string]referenceReading),
		now:      time.Now,
	}
}

// Subscribe attaches the cache to the broker's reference topics.
func (rc *ReferenceCache) Subscribe(client MQTTClient) error {
	return client.Subscribe(mqtt.Topics{}.AllReferences(), stateQoS, rc.handleReading)
}

// handleReading stores one sensor reading. The sensor id is the last
// topic segment.
func (rc *ReferenceCache) handleReading(topic string, payload []byte) error {
	sensorID := topic[strings.LastIndexByte(topic, '/')+1:]
	if sensorID == "" {
		return nil
	}

	temp, ok := parseTemperature(payload)
	if !ok {
		rc.logger.Warn("unparseable reference reading", "topic", topic)
		return nil
	}

	rc.mu.Lock()
	rc.readings[sensorID] = referenceReading{temp: temp, at: rc.now()}
	rc.mu.Unlock()
	return nil
}

// ReferenceTemperature returns the sensor's latest reading, or ok=false
// when the sensor is unknown or its reading has gone stale.
func (rc *ReferenceCache) ReferenceTemperature(_ context.Context, sensorID string) (float64, bool) {
	rc.mu.RLock()
	reading, ok := rc.readings[sensorID]
	rc.mu.RUnlock()

	if !ok || rc.now().Sub(reading.at) > rc.maxAge {
		return 0, false
	}
	return reading.temp, true
}

// parseTemperature accepts a bare number or a JSON object with a
// "temperature" field.
func parseTemperature(payload []byte) (float64, bool) {
	text := strings.TrimSpace(string(payload))
	if text == "" {
		return 0, false
	}

	if v, err := strconv.ParseFloat(text, 64); err == nil {
		return v, true
	}

	var obj struct {
		Temperature *float64 `json:"temperature"`
	}
	if err := json.Unmarshal(payload, &obj); err != nil || obj.Temperature == nil {
		return 0, false
	}
	return *obj.Temperature, true
}
