package influxdb

import "errors"

// Sentinel errors, checked with errors.Is.
var (
	// ErrNotConnected means the client is closed or never connected.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed means the initial connect or ping failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed covers synchronous write validation failures.
	// Batched write errors arrive through the SetOnError callback
	// instead.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrDisabled means the influxdb config section is disabled.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
