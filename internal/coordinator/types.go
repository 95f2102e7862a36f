package coordinator

import (
	"strings"
	"time"
)

// DeviceType is the classified hardware role of a device.
type DeviceType string

// Known device types. Classification is by the model-code prefix the
// vendor assigns per hardware line.
const (
	DeviceValve      DeviceType = "valve"
	DeviceSensor     DeviceType = "sensor"
	DeviceThermostat DeviceType = "thermostat"
	DeviceBridge     DeviceType = "bridge"
	DeviceOther      DeviceType = "other"
)

// deviceTypeOf classifies a raw model code such as "VA04" or "TR02".
func deviceTypeOf(model string) DeviceType {
	switch {
	case strings.HasPrefix(model, "VA"):
		return DeviceValve
	case strings.HasPrefix(model, "SU"):
		return DeviceSensor
	case strings.HasPrefix(model, "TR"):
		return DeviceThermostat
	case strings.HasPrefix(model, "IB"):
		return DeviceBridge
	default:
		return DeviceOther
	}
}

// Device is the canonical per-device state. A device either belongs to
// exactly one room (RoomID nonzero) or is unassociated.
type Device struct {
	Serial              string     `json:"serial"`
	Type                DeviceType `json:"type"`
	Model               string     `json:"model"`
	FirmwareVersion     string     `json:"firmware_version"`
	ConnectionState     string     `json:"connection_state"`
	BatteryState        string     `json:"battery_state,omitempty"`
	MeasuredTemperature *float64   `json:"measured_temperature,omitempty"`
	TemperatureOffset   float64    `json:"temperature_offset"`
	MountingState       string     `json:"mounting_state,omitempty"`
	ChildLockEnabled    bool       `json:"child_lock_enabled"`
	RoomID              int64      `json:"room_id,omitempty"`
	RoomName            string     `json:"room_name,omitempty"`
}

// ManualControlState describes an active manual override on a room.
type ManualControlState struct {
	Active           bool   `json:"active"`
	Type             string `json:"type,omitempty"`
	RemainingSeconds *int   `json:"remaining_seconds,omitempty"`
}

// NextChange is the room's next scheduled setting switch.
type NextChange struct {
	Start       *time.Time `json:"start,omitempty"`
	Temperature *float64   `json:"temperature,omitempty"`
}

// Room is the canonical per-room state. Optional measurements stay nil
// when the cloud payload omits them.
type Room struct {
	ID                  int64              `json:"id"`
	Name                string             `json:"name"`
	CurrentTemperature  *float64           `json:"current_temperature,omitempty"`
	TargetTemperature   *float64           `json:"target_temperature,omitempty"`
	Humidity            *float64           `json:"humidity,omitempty"`
	HeatingPowerPercent int                `json:"heating_power_percent"`
	Power               string             `json:"power"`
	ConnectionState     string             `json:"connection_state"`
	ManualControl       ManualControlState `json:"manual_control"`
	BoostModeActive     bool               `json:"boost_mode_active"`
	OpenWindowDetected  bool               `json:"open_window_detected"`
	NextScheduleChange  NextChange         `json:"next_schedule_change"`
	Devices             []*Device          `json:"devices"`
}

// Snapshot is one home's complete state as of a single poll cycle.
//
// It is immutable after publication. Devices is a flat index over the
// same *Device values embedded in Rooms, so a device reachable through
// a room is always reachable by serial and vice versa.
type Snapshot struct {
	HomeID       int64              `json:"home_id"`
	HomeName     string             `json:"home_name"`
	Presence     string             `json:"presence"`
	Rooms        map[int64]*Room    `json:"rooms"`
	Devices      map[string]*Device `json:"devices"`
	OtherDevices []*Device          `json:"other_devices"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Room returns the snapshot's room by id, or nil.
func (s *Snapshot) Room(id int64) *Room {
	if s == nil {
		return nil
	}
	return s.Rooms[id]
}

// Device returns the snapshot's device by serial, or nil.
func (s *Snapshot) Device(serial string) *Device {
	if s == nil {
		return nil
	}
	return s.Devices[serial]
}
