// Package bridge connects the polling coordinator to the MQTT broker
// and the time-series store.
//
// # Architecture
//
//	                 +-------------+
//	 snapshots  ---> |   Bridge    | ---> retained state topics
//	 (coordinator)   |             | ---> InfluxDB measurements
//	                 |             |
//	 command topics->|             | ---> offset / boost / resume /
//	                 +-------------+      presence / refresh actions
//
// The bridge is one-way per direction: coordinator snapshots flow out
// as retained MQTT state and Influx points, and inbound command topics
// translate to heating actions. It never blocks the polling loop; all
// publishing happens on the subscriber callback and failures are
// logged, not propagated.
//
// # Topics
//
// State (retained):
//   - tadolink/snapshot          full home snapshot, JSON
//   - tadolink/room/{id}/state   one room, JSON
//   - tadolink/device/{sn}/state one device, JSON
//   - tadolink/presence          "HOME" or "AWAY"
//
// Commands (inbound):
//   - tadolink/command/offsets   JSON object of serial to offset
//   - tadolink/command/boost     JSON {"room_id": 7}, empty for all rooms
//   - tadolink/command/resume    JSON {"room_id": 7}, empty for all rooms
//   - tadolink/command/presence  "HOME" or "AWAY"
//   - tadolink/command/refresh   any payload, triggers an early poll
package bridge
