package coordinator

import (
	"github.com/tadolink/tadolink/internal/tado"
)

// desiredPresence decides whether geofencing should flip the home's
// presence. Only devices with tracking enabled and a location fix
// count; with none of those, no change is ever made.
func desiredPresence(current string, devices []tado.MobileDevice) (string, bool) {
	tracked, atHome := 0, 0
	for _, d := range devices {
		if !d.Settings.GeoTrackingEnabled || d.Location == nil {
			continue
		}
		tracked++
		if d.Location.AtHome {
			atHome++
		}
	}
	if tracked == 0 {
		return "", false
	}

	if atHome > 0 && current == tado.PresenceAway {
		return tado.PresenceHome, true
	}
	if atHome == 0 && current == tado.PresenceHome {
		return tado.PresenceAway, true
	}
	return "", false
}
