package bridge

import (
	"github.com/tadolink/tadolink/internal/coordinator"
	"github.com/tadolink/tadolink/internal/tado"
)

// InfluxWriter is the time-series surface the recorder needs.
// Satisfied by *influxdb.Client.
type InfluxWriter interface {
	WriteRoomClimate(roomID int64, roomName string, fields map[string]interface{})
	WriteDeviceState(serial string, deviceType string, fields map[string]interface{})
	WritePresence(homeID int64, atHome bool)
}

// Recorder turns each snapshot into time-series points. Writes are
// batched and non-blocking inside the Influx client, so recording is
// safe on the coordinator's publish path.
type Recorder struct {
	writer InfluxWriter
}

// NewRecorder builds a snapshot recorder over the given writer.
func NewRecorder(writer InfluxWriter) *Recorder {
	return &Recorder{writer: writer}
}

// Record writes one snapshot's rooms, devices and presence.
// Rooms with no measurements and bridge devices produce no points.
func (r *Recorder) Record(snap *coordinator.Snapshot) {
	if snap == nil {
		return
	}

	for _, room := range snap.Rooms {
		fields := map[string]interface{}{
			"heating_power_pct": room.HeatingPowerPercent,
		}
		if room.CurrentTemperature != nil {
			fields["temperature_c"] = *room.CurrentTemperature
		}
		if room.TargetTemperature != nil {
			fields["target_c"] = *room.TargetTemperature
		}
		if room.Humidity != nil {
			fields["humidity_pct"] = *room.Humidity
		}
		r.writer.WriteRoomClimate(room.ID, room.Name, fields)
	}

	for serial, dev := range snap.Devices {
		if dev.Type == coordinator.DeviceBridge {
			continue
		}
		fields := map[string]interface{}{
			"offset_c":    dev.TemperatureOffset,
			"connected":   dev.ConnectionState == "CONNECTED",
			"battery_low": dev.BatteryState == "LOW",
		}
		if dev.MeasuredTemperature != nil {
			fields["measured_c"] = *dev.MeasuredTemperature
		}
		r.writer.WriteDeviceState(serial, string(dev.Type), fields)
	}

	r.writer.WritePresence(snap.HomeID, snap.Presence == tado.PresenceHome)
}
