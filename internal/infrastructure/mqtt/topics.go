package mqtt

import "fmt"

// Topic prefixes for the tadolink MQTT surface.
//
// State topics are retained so new subscribers immediately see the
// current home state; command topics are not.
const (
	// TopicPrefix is the base for all tadolink topics.
	TopicPrefix = "tadolink"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "tadolink/system"

	// TopicPrefixCommand is the base for inbound command topics.
	TopicPrefixCommand = "tadolink/command"
)

// Topics provides builders for tadolink MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.RoomState(7)
//	// Returns: "tadolink/room/7/state"
type Topics struct{}

// =============================================================================
// State Topics (retained)
// =============================================================================

// Snapshot returns the topic carrying the full home snapshot.
//
// Example: tadolink/snapshot
func (Topics) Snapshot() string {
	return TopicPrefix + "/snapshot"
}

// RoomState returns the topic for one room's state.
//
// Example: tadolink/room/7/state
func (Topics) RoomState(roomID int64) string {
	return fmt.Sprintf("%s/room/%d/state", TopicPrefix, roomID)
}

// DeviceState returns the topic for one device's state.
//
// Example: tadolink/device/VA1234567890/state
func (Topics) DeviceState(serial string) string {
	return fmt.Sprintf("%s/device/%s/state", TopicPrefix, serial)
}

// Presence returns the topic carrying the home's presence mode.
//
// Example: tadolink/presence
func (Topics) Presence() string {
	return TopicPrefix + "/presence"
}

// =============================================================================
// Command Topics (inbound)
// =============================================================================

// CommandOffsets returns the topic accepting batch offset writes.
// Payload: JSON object of serial to offset.
//
// Example: tadolink/command/offsets
func (Topics) CommandOffsets() string {
	return TopicPrefixCommand + "/offsets"
}

// CommandBoost returns the topic accepting a whole-home boost request.
//
// Example: tadolink/command/boost
func (Topics) CommandBoost() string {
	return TopicPrefixCommand + "/boost"
}

// CommandResume returns the topic accepting a resume-all-schedules
// request.
//
// Example: tadolink/command/resume
func (Topics) CommandResume() string {
	return TopicPrefixCommand + "/resume"
}

// CommandPresence returns the topic accepting a presence change.
// Payload: "HOME" or "AWAY".
//
// Example: tadolink/command/presence
func (Topics) CommandPresence() string {
	return TopicPrefixCommand + "/presence"
}

// CommandRefresh returns the topic accepting an out-of-band refresh
// request. Payload is ignored.
//
// Example: tadolink/command/refresh
func (Topics) CommandRefresh() string {
	return TopicPrefixCommand + "/refresh"
}

// =============================================================================
// Reference Sensor Topics (inbound)
// =============================================================================

// Reference returns the topic on which an external sensor publishes
// its temperature reading. Payload: plain number or JSON
// {"temperature": 21.3}.
//
// Example: tadolink/reference/hall-sensor
func (Topics) Reference(sensorID string) string {
	return fmt.Sprintf("%s/reference/%s", TopicPrefix, sensorID)
}

// AllReferences returns a pattern matching every reference sensor topic.
//
// Pattern: tadolink/reference/+
func (Topics) AllReferences() string {
	return TopicPrefix + "/reference/+"
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the topic for the daemon's online status.
// Retained; also used as the Last Will topic.
//
// Example: tadolink/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// =============================================================================
// Subscription Patterns
// =============================================================================

// AllCommands returns a pattern matching every command topic.
//
// Pattern: tadolink/command/+
func (Topics) AllCommands() string {
	return TopicPrefixCommand + "/+"
}

// AllRoomStates returns a pattern matching every room state topic.
//
// Pattern: tadolink/room/+/state
func (Topics) AllRoomStates() string {
	return TopicPrefix + "/room/+/state"
}

// AllDeviceStates returns a pattern matching every device state topic.
//
// Pattern: tadolink/device/+/state
func (Topics) AllDeviceStates() string {
	return TopicPrefix + "/device/+/state"
}

// AllTopics returns a pattern matching all tadolink topics.
//
// Pattern: tadolink/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
