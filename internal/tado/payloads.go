package tado

// Wire types for the two REST surfaces. Nested optional objects are
// pointers so a missing sub-object decodes to nil instead of a zero
// value that is indistinguishable from real data.

// Presence values for a home.
const (
	PresenceHome = "HOME"
	PresenceAway = "AWAY"
)

// Me is the account endpoint's response. Homes is embedded in the user
// record rather than being a separate resource.
type Me struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Homes []Home `json:"homes"`
}

// Home identifies one home on the account.
type Home struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// HomeState is the presence state of a home.
type HomeState struct {
	Presence string `json:"presence"`
}

// MobileDevice is a phone registered to the account, used for
// geofencing decisions.
type MobileDevice struct {
	ID       int64                 `json:"id"`
	Name     string                `json:"name"`
	Settings MobileDeviceSettings  `json:"settings"`
	Location *MobileDeviceLocation `json:"location"`
}

// MobileDeviceSettings carries the per-device tracking opt-in.
type MobileDeviceSettings struct {
	GeoTrackingEnabled bool `json:"geoTrackingEnabled"`
}

// MobileDeviceLocation is reported only for devices with tracking
// enabled and a recent fix.
type MobileDeviceLocation struct {
	AtHome bool `json:"atHome"`
}

// Room is the live per-room state payload.
type Room struct {
	ID                       int64               `json:"id"`
	Name                     string              `json:"name"`
	SensorDataPoints         *SensorDataPoints   `json:"sensorDataPoints"`
	Setting                  *RoomSetting        `json:"setting"`
	ManualControlTermination *ManualTermination  `json:"manualControlTermination"`
	BoostMode                *BoostMode          `json:"boostMode"`
	OpenWindow               *OpenWindow         `json:"openWindow"`
	NextScheduleChange       *NextScheduleChange `json:"nextScheduleChange"`
	HeatingPower             *HeatingPower       `json:"heatingPower"`
	Connection               *Connection         `json:"connection"`
}

// SensorDataPoints carries the room's measured climate values.
type SensorDataPoints struct {
	InsideTemperature *Temperature `json:"insideTemperature"`
	Humidity          *Humidity    `json:"humidity"`
}

// Temperature is a single temperature value in °C.
type Temperature struct {
	Value float64 `json:"value"`
}

// Humidity is a relative humidity percentage.
type Humidity struct {
	Percentage float64 `json:"percentage"`
}

// RoomSetting is the room's active power/target setting.
type RoomSetting struct {
	Power       string       `json:"power"`
	Temperature *Temperature `json:"temperature"`
}

// ManualTermination describes an active manual-control override.
// Its presence alone marks manual control as active.
type ManualTermination struct {
	Type                   string `json:"type"`
	RemainingTimeInSeconds *int   `json:"remainingTimeInSeconds"`
}

// BoostMode marks an active boost; its fields are unused here, only its
// presence matters.
type BoostMode struct {
	Type string `json:"type"`
}

// OpenWindow marks a detected open window; only presence matters.
type OpenWindow struct {
	ActivatedAt string `json:"activated"`
}

// NextScheduleChange describes the next scheduled setting switch.
type NextScheduleChange struct {
	Start   string       `json:"start"`
	Setting *RoomSetting `json:"setting"`
}

// HeatingPower is the current valve heating output.
type HeatingPower struct {
	Percentage int `json:"percentage"`
}

// Connection is the cloud connectivity state of a room or device.
type Connection struct {
	State string `json:"state"`
}

// RoomsAndDevices is the home topology payload: rooms with their member
// devices, plus devices not assigned to any room.
type RoomsAndDevices struct {
	Rooms        []RoomDevices `json:"rooms"`
	OtherDevices []Device      `json:"otherDevices"`
}

// RoomDevices lists the devices installed in one room.
type RoomDevices struct {
	RoomID   int64    `json:"roomId"`
	RoomName string   `json:"roomName"`
	Devices  []Device `json:"devices"`
}

// Device is the raw per-device payload.
type Device struct {
	SerialNumber          string      `json:"serialNumber"`
	Type                  string      `json:"type"`
	FirmwareVersion       string      `json:"firmwareVersion"`
	Connection            *Connection `json:"connection"`
	BatteryState          string      `json:"batteryState"`
	TemperatureAsMeasured *float64    `json:"temperatureAsMeasured"`
	TemperatureOffset     *float64    `json:"temperatureOffset"`
	MountingState         string      `json:"mountingState"`
	ChildLockEnabled      bool        `json:"childLockEnabled"`
	RoomID                int64       `json:"roomId"`
}

// ManualControl is the request body for a per-room manual override.
type ManualControl struct {
	Setting     ManualSetting     `json:"setting"`
	Termination TerminationOption `json:"termination"`
}

// ManualSetting is the power/temperature part of a manual override.
// Temperature is omitted when power is OFF.
type ManualSetting struct {
	Power       string       `json:"power"`
	Temperature *Temperature `json:"temperature,omitempty"`
}

// TerminationOption controls how a manual override ends.
type TerminationOption struct {
	Type              string `json:"type"`
	DurationInSeconds int    `json:"durationInSeconds,omitempty"`
}

// Termination types for manual control.
const (
	TerminationTimer  = "TIMER"
	TerminationManual = "MANUAL"
)
