package tado

import (
	"context"
	"fmt"
	"net/http"
)

// Power values for a room setting.
const (
	PowerOn  = "ON"
	PowerOff = "OFF"
)

// defaultManualDuration is the timer length applied when a caller does
// not specify one for a manual override.
const defaultManualDuration = 1800

// Me fetches the account record, including the list of homes.
func (c *Client) Me(ctx context.Context) (*Me, error) {
	var me Me
	if err := c.getJSON(ctx, c.myAPIURL+"/me", &me, "GET /me"); err != nil {
		return nil, err
	}
	return &me, nil
}

// Homes returns the homes on the account.
func (c *Client) Homes(ctx context.Context) ([]Home, error) {
	me, err := c.Me(ctx)
	if err != nil {
		return nil, err
	}
	return me.Homes, nil
}

// HomeState fetches the presence state of the configured home.
func (c *Client) HomeState(ctx context.Context) (*HomeState, error) {
	const op = "GET /homes/{id}/state"
	homeID, err := c.homeScope(op)
	if err != nil {
		return nil, err
	}

	var state HomeState
	url := fmt.Sprintf("%s/homes/%d/state", c.myAPIURL, homeID)
	if err := c.getJSON(ctx, url, &state, op); err != nil {
		return nil, err
	}
	return &state, nil
}

// MobileDevices fetches the mobile devices registered to the home.
func (c *Client) MobileDevices(ctx context.Context) ([]MobileDevice, error) {
	const op = "GET /homes/{id}/mobileDevices"
	homeID, err := c.homeScope(op)
	if err != nil {
		return nil, err
	}

	var devices []MobileDevice
	url := fmt.Sprintf("%s/homes/%d/mobileDevices", c.myAPIURL, homeID)
	if err := c.getJSON(ctx, url, &devices, op); err != nil {
		return nil, err
	}
	return devices, nil
}

// SetPresence sets the home presence to PresenceHome or PresenceAway.
func (c *Client) SetPresence(ctx context.Context, presence string) error {
	const op = "PUT /homes/{id}/presence"
	homeID, err := c.homeScope(op)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/homes/%d/presence", c.myAPIURL, homeID)
	_, err = c.request(ctx, http.MethodPut, url, map[string]string{"presence": presence}, op)
	return err
}

// Rooms fetches the live state of every room in the home.
func (c *Client) Rooms(ctx context.Context) ([]Room, error) {
	const op = "GET /homes/{id}/rooms"
	homeID, err := c.homeScope(op)
	if err != nil {
		return nil, err
	}

	var rooms []Room
	url := fmt.Sprintf("%s/homes/%d/rooms", c.hopsURL, homeID)
	if err := c.getJSON(ctx, url, &rooms, op); err != nil {
		return nil, err
	}
	return rooms, nil
}

// RoomsAndDevices fetches the home topology: rooms with member devices
// plus unassigned devices.
func (c *Client) RoomsAndDevices(ctx context.Context) (*RoomsAndDevices, error) {
	const op = "GET /homes/{id}/roomsAndDevices"
	homeID, err := c.homeScope(op)
	if err != nil {
		return nil, err
	}

	var rad RoomsAndDevices
	url := fmt.Sprintf("%s/homes/%d/roomsAndDevices", c.hopsURL, homeID)
	if err := c.getJSON(ctx, url, &rad, op); err != nil {
		return nil, err
	}
	return &rad, nil
}

// SetRoomTemperature applies a manual heating override to a room.
// durationSeconds is only honoured for TerminationTimer; zero selects
// the default timer length.
func (c *Client) SetRoomTemperature(ctx context.Context, roomID int64, temperature float64, terminationType string, durationSeconds int) error {
	ctl := ManualControl{
		Setting: ManualSetting{
			Power:       PowerOn,
			Temperature: &Temperature{Value: temperature},
		},
	}
	return c.setManualControl(ctx, roomID, ctl, terminationType, durationSeconds)
}

// SetRoomOff turns a room's heating off (frost protection) under manual
// control.
func (c *Client) SetRoomOff(ctx context.Context, roomID int64, terminationType string, durationSeconds int) error {
	ctl := ManualControl{
		Setting: ManualSetting{Power: PowerOff},
	}
	return c.setManualControl(ctx, roomID, ctl, terminationType, durationSeconds)
}

func (c *Client) setManualControl(ctx context.Context, roomID int64, ctl ManualControl, terminationType string, durationSeconds int) error {
	const op = "POST /rooms/{id}/manualControl"
	homeID, err := c.homeScope(op)
	if err != nil {
		return err
	}

	if terminationType == "" {
		terminationType = TerminationTimer
	}
	ctl.Termination.Type = terminationType
	if terminationType == TerminationTimer {
		if durationSeconds <= 0 {
			durationSeconds = defaultManualDuration
		}
		ctl.Termination.DurationInSeconds = durationSeconds
	}

	url := fmt.Sprintf("%s/homes/%d/rooms/%d/manualControl", c.hopsURL, homeID, roomID)
	_, err = c.request(ctx, http.MethodPost, url, ctl, op)
	return err
}

// ResumeSchedule cancels a room's manual override and returns it to the
// smart schedule.
func (c *Client) ResumeSchedule(ctx context.Context, roomID int64) error {
	const op = "DELETE /rooms/{id}/manualControl"
	homeID, err := c.homeScope(op)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/homes/%d/rooms/%d/manualControl", c.hopsURL, homeID, roomID)
	_, err = c.request(ctx, http.MethodDelete, url, nil, op)
	return err
}

// Boost activates boost mode for a single room.
func (c *Client) Boost(ctx context.Context, roomID int64) error {
	const op = "POST /rooms/{id}/boost"
	homeID, err := c.homeScope(op)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/homes/%d/rooms/%d/boost", c.hopsURL, homeID, roomID)
	_, err = c.request(ctx, http.MethodPost, url, nil, op)
	return err
}

// BoostAll activates boost mode for the whole home via the quick action.
func (c *Client) BoostAll(ctx context.Context) error {
	const op = "POST /quickActions/boost"
	homeID, err := c.homeScope(op)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/homes/%d/quickActions/boost", c.hopsURL, homeID)
	_, err = c.request(ctx, http.MethodPost, url, nil, op)
	return err
}

// ResumeAllSchedules returns every room to its smart schedule.
func (c *Client) ResumeAllSchedules(ctx context.Context) error {
	const op = "POST /quickActions/resumeSchedule"
	homeID, err := c.homeScope(op)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/homes/%d/quickActions/resumeSchedule", c.hopsURL, homeID)
	_, err = c.request(ctx, http.MethodPost, url, nil, op)
	return err
}

// SetOpenWindow activates or clears open-window mode for a room.
func (c *Client) SetOpenWindow(ctx context.Context, roomID int64, enabled bool) error {
	const op = "openWindow"
	homeID, err := c.homeScope(op)
	if err != nil {
		return err
	}

	method := http.MethodPost
	if !enabled {
		method = http.MethodDelete
	}
	url := fmt.Sprintf("%s/homes/%d/rooms/%d/openWindow", c.hopsURL, homeID, roomID)
	_, err = c.request(ctx, method, url, nil, op)
	return err
}

// SetDeviceOffset patches the temperature offset of a single device.
// Only valve and sensor devices accept an offset.
func (c *Client) SetDeviceOffset(ctx context.Context, serial string, offset float64) error {
	const op = "PATCH /roomsAndDevices/devices/{serial}"
	homeID, err := c.homeScope(op)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/homes/%d/roomsAndDevices/devices/%s", c.hopsURL, homeID, serial)
	_, err = c.request(ctx, http.MethodPatch, url, map[string]float64{"temperatureOffset": offset}, op)
	return err
}
