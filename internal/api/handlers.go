package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tadolink/tadolink/internal/coordinator"
	"github.com/tadolink/tadolink/internal/tado"
)

// =============================================================================
// Status and Snapshot
// =============================================================================

// statusResponse reports the poll loop's health.
type statusResponse struct {
	Version      string     `json:"version"`
	HasSnapshot  bool       `json:"has_snapshot"`
	SnapshotAge  *float64   `json:"snapshot_age_seconds,omitempty"`
	LastPollTime *time.Time `json:"last_poll_time,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
}

// handleStatus reports whether polling is producing snapshots and the
// most recent cycle error, if any.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{Version: s.version}

	if snap := s.ctrl.Snapshot(); snap != nil {
		resp.HasSnapshot = true
		age := time.Since(snap.UpdatedAt).Seconds()
		resp.SnapshotAge = &age
		resp.LastPollTime = &snap.UpdatedAt
	}
	if err := s.ctrl.LastError(); err != nil {
		resp.LastError = err.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleSnapshot returns the full latest snapshot.
func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap := s.ctrl.Snapshot()
	if snap == nil {
		writeUnavailable(w, "no snapshot available yet")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// =============================================================================
// Rooms
// =============================================================================

// handleListRooms returns all rooms sorted by id.
func (s *Server) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	snap := s.ctrl.Snapshot()
	if snap == nil {
		writeUnavailable(w, "no snapshot available yet")
		return
	}

	rooms := make([]*coordinator.Room, 0, len(snap.Rooms))
	for _, room := range snap.Rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })

	writeJSON(w, http.StatusOK, map[string]any{
		"rooms": rooms,
		"count": len(rooms),
	})
}

// handleGetRoom returns a single room by id.
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := s.roomID(w, r)
	if !ok {
		return
	}

	room := s.ctrl.Snapshot().Room(roomID)
	if room == nil {
		writeNotFound(w, fmt.Sprintf("room %d not found", roomID))
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// manualControlRequest is the body for PUT /rooms/{id}/manual-control.
// Termination defaults to TIMER with the default duration.
type manualControlRequest struct {
	Temperature     *float64 `json:"temperature"`
	Power           string   `json:"power"`
	TerminationType string   `json:"termination_type"`
	DurationSeconds int      `json:"duration_seconds"`
}

// handleSetManualControl applies a manual setpoint or switches the
// room off.
func (s *Server) handleSetManualControl(w http.ResponseWriter, r *http.Request) {
	roomID, ok := s.roomID(w, r)
	if !ok {
		return
	}

	var req manualControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	termType := strings.ToUpper(req.TerminationType)
	if termType != "" && termType != tado.TerminationTimer && termType != tado.TerminationManual {
		writeBadRequest(w, "termination_type must be TIMER or MANUAL")
		return
	}

	var err error
	switch {
	case strings.EqualFold(req.Power, "OFF"):
		err = s.heating.SetRoomOff(r.Context(), roomID, termType, req.DurationSeconds)
	case req.Temperature != nil:
		if *req.Temperature < s.minTemp || *req.Temperature > s.maxTemp {
			writeBadRequest(w, fmt.Sprintf("temperature must be between %.1f and %.1f", s.minTemp, s.maxTemp))
			return
		}
		err = s.heating.SetRoomTemperature(r.Context(), roomID, *req.Temperature, termType, req.DurationSeconds)
	default:
		writeBadRequest(w, "temperature or power OFF is required")
		return
	}
	if err != nil {
		s.writeHeatingError(w, err)
		return
	}

	s.ctrl.RequestRefresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleResumeRoom clears a room's manual control and resumes the
// schedule.
func (s *Server) handleResumeRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := s.roomID(w, r)
	if !ok {
		return
	}

	if err := s.heating.ResumeSchedule(r.Context(), roomID); err != nil {
		s.writeHeatingError(w, err)
		return
	}

	s.ctrl.RequestRefresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleBoostRoom boosts a single room.
func (s *Server) handleBoostRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := s.roomID(w, r)
	if !ok {
		return
	}

	if err := s.heating.Boost(r.Context(), roomID); err != nil {
		s.writeHeatingError(w, err)
		return
	}

	s.ctrl.RequestRefresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// openWindowRequest is the body for PUT /rooms/{id}/open-window.
type openWindowRequest struct {
	Enabled bool `json:"enabled"`
}

// handleOpenWindow activates or deactivates open-window mode.
func (s *Server) handleOpenWindow(w http.ResponseWriter, r *http.Request) {
	roomID, ok := s.roomID(w, r)
	if !ok {
		return
	}

	var req openWindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.heating.SetOpenWindow(r.Context(), roomID, req.Enabled); err != nil {
		s.writeHeatingError(w, err)
		return
	}

	s.ctrl.RequestRefresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleBoostAll boosts every room.
func (s *Server) handleBoostAll(w http.ResponseWriter, r *http.Request) {
	if err := s.heating.BoostAll(r.Context()); err != nil {
		s.writeHeatingError(w, err)
		return
	}

	s.ctrl.RequestRefresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleResumeAll resumes every room's schedule.
func (s *Server) handleResumeAll(w http.ResponseWriter, r *http.Request) {
	if err := s.heating.ResumeAllSchedules(r.Context()); err != nil {
		s.writeHeatingError(w, err)
		return
	}

	s.ctrl.RequestRefresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// =============================================================================
// Devices
// =============================================================================

// handleListDevices returns all devices sorted by serial, including
// devices not associated with any room.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	snap := s.ctrl.Snapshot()
	if snap == nil {
		writeUnavailable(w, "no snapshot available yet")
		return
	}

	devices := make([]*coordinator.Device, 0, len(snap.Devices))
	for _, dev := range snap.Devices {
		devices = append(devices, dev)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Serial < devices[j].Serial })

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleGetDevice returns a single device by serial.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")

	dev := s.ctrl.Snapshot().Device(serial)
	if dev == nil {
		writeNotFound(w, fmt.Sprintf("device %s not found", serial))
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// offsetRequest is the body for PUT /devices/{serial}/offset.
type offsetRequest struct {
	Offset float64 `json:"offset"`
}

// handleSetOffset writes one device's temperature offset.
func (s *Server) handleSetOffset(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")

	var req offsetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	results, err := s.ctrl.ApplyOffsets(r.Context(), map[string]float64{serial: req.Offset})
	if err != nil {
		s.writeHeatingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// handleBatchOffsets writes multiple offsets in one request. The body
// is a JSON object of serial to offset. Per-device outcomes are
// reported individually; one failure does not abort the rest.
func (s *Server) handleBatchOffsets(w http.ResponseWriter, r *http.Request) {
	var offsets map[string]float64
	if err := json.NewDecoder(r.Body).Decode(&offsets); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(offsets) == 0 {
		writeBadRequest(w, "at least one offset is required")
		return
	}

	results, err := s.ctrl.ApplyOffsets(r.Context(), offsets)
	if err != nil {
		s.writeHeatingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// =============================================================================
// Presence and Refresh
// =============================================================================

// presenceRequest is the body for PUT /presence.
type presenceRequest struct {
	Presence string `json:"presence"`
}

// handleSetPresence sets the home's presence mode.
func (s *Server) handleSetPresence(w http.ResponseWriter, r *http.Request) {
	var req presenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	presence := strings.ToUpper(req.Presence)
	if presence != tado.PresenceHome && presence != tado.PresenceAway {
		writeBadRequest(w, "presence must be HOME or AWAY")
		return
	}

	if err := s.heating.SetPresence(r.Context(), presence); err != nil {
		s.writeHeatingError(w, err)
		return
	}

	s.ctrl.RequestRefresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleRefresh triggers an early poll cycle.
func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.ctrl.RequestRefresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// =============================================================================
// Helpers
// =============================================================================

// roomID parses the {id} URL parameter, writing a 400 on failure.
func (s *Server) roomID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid room id")
		return 0, false
	}
	return id, true
}

// writeHeatingError maps cloud-call failures onto HTTP statuses.
func (s *Server) writeHeatingError(w http.ResponseWriter, err error) {
	var apiErr *tado.APIError
	switch {
	case errors.Is(err, coordinator.ErrOffsetOutOfRange):
		writeBadRequest(w, err.Error())
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound:
		writeNotFound(w, err.Error())
	case errors.As(err, &apiErr):
		writeUpstreamError(w, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
