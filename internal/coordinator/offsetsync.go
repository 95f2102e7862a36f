package coordinator

import (
	"context"
	"math"
)

// Offset bounds. The automatic path runs unattended and gets a tighter
// clamp than the manual API bound.
const (
	AutoOffsetLimit   = 3.0
	ManualOffsetLimit = 9.9
)

// DefaultHysteresis is the minimum offset change worth writing. Smaller
// deltas are measurement noise and would cause oscillating writes.
const DefaultHysteresis = 0.3

// ReferenceReader supplies the external reference temperature for a
// configured sensor. ok is false when the sensor is unknown or has no
// current measurement.
type ReferenceReader interface {
	ReferenceTemperature(ctx context.Context, sensorID string) (temp float64, ok bool)
}

// SerialResolver maps a configured device identifier to a hardware
// serial. ok is false when the identifier is unknown.
type SerialResolver interface {
	ResolveSerial(deviceID string) (serial string, ok bool)
}

// RoomMapping pairs a reference sensor with the device it corrects.
type RoomMapping struct {
	ReferenceSensorID string
	DeviceID          string
}

// OffsetSync computes per-device offset corrections from a snapshot.
//
// Each cycle it compares the reference temperature against the device's
// raw measurement, rounds the difference to one decimal, clamps it to
// AutoOffsetLimit, and queues the write only when it moves beyond the
// hysteresis deadband. A mapping whose sensor or device is unavailable
// is skipped for the cycle, never escalated.
type OffsetSync struct {
	mappings   []RoomMapping
	refs       ReferenceReader
	resolver   SerialResolver
	hysteresis float64
	logger     Logger
}

// NewOffsetSync creates a controller over the given mappings. A zero or
// negative hysteresis selects DefaultHysteresis.
func NewOffsetSync(mappings []RoomMapping, refs ReferenceReader, resolver SerialResolver, hysteresis float64, logger Logger) *OffsetSync {
	if hysteresis <= 0 {
		hysteresis = DefaultHysteresis
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &OffsetSync{
		mappings:   mappings,
		refs:       refs,
		resolver:   resolver,
		hysteresis: hysteresis,
		logger:     logger,
	}
}

// Plan returns the offset writes due this cycle, keyed by serial.
func (s *OffsetSync) Plan(ctx context.Context, snap *Snapshot) map[string]float64 {
	plan := make(map[string]float64)

	for _, m := range s.mappings {
		serial, ok := s.resolver.ResolveSerial(m.DeviceID)
		if !ok {
			s.logger.Debug("offset sync: unknown device, skipping", "device_id", m.DeviceID)
			continue
		}

		dev := snap.Device(serial)
		if dev == nil || dev.MeasuredTemperature == nil {
			s.logger.Debug("offset sync: no measurement, skipping", "serial", serial)
			continue
		}

		ref, ok := s.refs.ReferenceTemperature(ctx, m.ReferenceSensorID)
		if !ok {
			s.logger.Debug("offset sync: reference unavailable, skipping",
				"sensor_id", m.ReferenceSensorID, "serial", serial)
			continue
		}

		desired := clampOffset(round1(ref-*dev.MeasuredTemperature), AutoOffsetLimit)
		if math.Abs(desired-dev.TemperatureOffset) <= s.hysteresis {
			continue
		}

		s.logger.Info("offset sync: correction due",
			"serial", serial,
			"reference", ref,
			"measured", *dev.MeasuredTemperature,
			"current_offset", dev.TemperatureOffset,
			"desired_offset", desired,
		)
		plan[serial] = desired
	}

	return plan
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// clampOffset bounds v to [-limit, +limit].
func clampOffset(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
