package coordinator

import (
	"time"

	"github.com/tadolink/tadolink/internal/tado"
)

// buildSnapshot normalises the raw room-state and topology payloads
// into a canonical Snapshot. Every nested optional object degrades to a
// default instead of failing the cycle.
func buildSnapshot(homeID int64, homeName, presence string, states []tado.Room, topo *tado.RoomsAndDevices) *Snapshot {
	snap := &Snapshot{
		HomeID:    homeID,
		HomeName:  homeName,
		Presence:  presence,
		Rooms:     make(map[int64]*Room, len(states)),
		Devices:   make(map[string]*Device),
		UpdatedAt: time.Now().UTC(),
	}

	// Rooms first, preserving payload order for the association
	// tie-break below.
	order := make([]int64, 0, len(states))
	for i := range states {
		room := normalizeRoom(&states[i])
		snap.Rooms[room.ID] = room
		order = append(order, room.ID)
	}

	if topo == nil {
		return snap
	}

	// Attach room-assigned devices from the topology payload.
	for _, tr := range topo.Rooms {
		room := snap.Rooms[tr.RoomID]
		for i := range tr.Devices {
			dev := normalizeDevice(&tr.Devices[i])
			dev.RoomID = tr.RoomID
			dev.RoomName = tr.RoomName
			if room != nil {
				room.Devices = append(room.Devices, dev)
			}
			snap.Devices[dev.Serial] = dev
		}
	}

	// Unassigned devices last: honour a reported room id when it names
	// a known room, fall back to the densest room for wall thermostats,
	// and leave everything else unassociated.
	for i := range topo.OtherDevices {
		dev := normalizeDevice(&topo.OtherDevices[i])
		snap.Devices[dev.Serial] = dev

		if room := snap.Rooms[dev.RoomID]; room != nil {
			dev.RoomName = room.Name
			room.Devices = append(room.Devices, dev)
			continue
		}
		dev.RoomID = 0

		if dev.Type == DeviceThermostat {
			if room := densestRoom(snap, order); room != nil {
				dev.RoomID = room.ID
				dev.RoomName = room.Name
				room.Devices = append(room.Devices, dev)
				continue
			}
		}
		snap.OtherDevices = append(snap.OtherDevices, dev)
	}

	return snap
}

// densestRoom returns the room with the most devices, ties broken by
// payload order. The vendor omits the room id for wall thermostats, and
// the densest room is the best available proxy for where one is
// mounted. Returns nil when no room has any device.
func densestRoom(snap *Snapshot, order []int64) *Room {
	var best *Room
	for _, id := range order {
		room := snap.Rooms[id]
		if room == nil || len(room.Devices) == 0 {
			continue
		}
		if best == nil || len(room.Devices) > len(best.Devices) {
			best = room
		}
	}
	return best
}

func normalizeRoom(raw *tado.Room) *Room {
	room := &Room{
		ID:   raw.ID,
		Name: raw.Name,
	}

	if sdp := raw.SensorDataPoints; sdp != nil {
		if sdp.InsideTemperature != nil {
			v := sdp.InsideTemperature.Value
			room.CurrentTemperature = &v
		}
		if sdp.Humidity != nil {
			v := sdp.Humidity.Percentage
			room.Humidity = &v
		}
	}

	if setting := raw.Setting; setting != nil {
		room.Power = setting.Power
		if setting.Temperature != nil {
			v := setting.Temperature.Value
			room.TargetTemperature = &v
		}
	}

	if mct := raw.ManualControlTermination; mct != nil {
		room.ManualControl = ManualControlState{
			Active:           true,
			Type:             mct.Type,
			RemainingSeconds: mct.RemainingTimeInSeconds,
		}
	}

	room.BoostModeActive = raw.BoostMode != nil
	room.OpenWindowDetected = raw.OpenWindow != nil

	if nsc := raw.NextScheduleChange; nsc != nil {
		if t, err := time.Parse(time.RFC3339, nsc.Start); err == nil {
			room.NextScheduleChange.Start = &t
		}
		if nsc.Setting != nil && nsc.Setting.Temperature != nil {
			v := nsc.Setting.Temperature.Value
			room.NextScheduleChange.Temperature = &v
		}
	}

	if hp := raw.HeatingPower; hp != nil {
		room.HeatingPowerPercent = hp.Percentage
	}
	if conn := raw.Connection; conn != nil {
		room.ConnectionState = conn.State
	}

	return room
}

func normalizeDevice(raw *tado.Device) *Device {
	dev := &Device{
		Serial:           raw.SerialNumber,
		Type:             deviceTypeOf(raw.Type),
		Model:            raw.Type,
		FirmwareVersion:  raw.FirmwareVersion,
		BatteryState:     raw.BatteryState,
		MountingState:    raw.MountingState,
		ChildLockEnabled: raw.ChildLockEnabled,
		RoomID:           raw.RoomID,
	}

	if raw.Connection != nil {
		dev.ConnectionState = raw.Connection.State
	}
	if raw.TemperatureAsMeasured != nil {
		v := *raw.TemperatureAsMeasured
		dev.MeasuredTemperature = &v
	}
	if raw.TemperatureOffset != nil {
		dev.TemperatureOffset = *raw.TemperatureOffset
	}

	return dev
}
