package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/tadolink/tadolink/internal/coordinator"
	"github.com/tadolink/tadolink/internal/infrastructure/mqtt"
	"github.com/tadolink/tadolink/internal/tado"
)

// stateQoS is the QoS level for retained state publications.
const stateQoS = 1

// MQTTClient is the broker surface the bridge needs. Satisfied by
// *mqtt.Client; narrowed to an interface for testing.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// Controller is the coordinator surface the bridge drives. Satisfied
// by *coordinator.Coordinator.
type Controller interface {
	Snapshot() *coordinator.Snapshot
	RequestRefresh()
	ApplyOffsets(ctx context.Context, offsets map[string]float64) (map[string]string, error)
}

// Actions covers the direct heating actions commands can trigger.
// Satisfied by *tado.Client.
type Actions interface {
	Boost(ctx context.Context, roomID int64) error
	BoostAll(ctx context.Context) error
	ResumeSchedule(ctx context.Context, roomID int64) error
	ResumeAllSchedules(ctx context.Context) error
	SetPresence(ctx context.Context, presence string) error
}

// Logger is the subset of logging the bridge uses.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Bridge mirrors coordinator snapshots onto retained MQTT topics and
// dispatches inbound command topics to heating actions.
type Bridge struct {
	client  MQTTClient
	ctrl    Controller
	actions Actions
	topics  mqtt.Topics
	logger  Logger

	// mu guards the published-id sets used to clear retained state
	// for rooms and devices that vanish between snapshots.
	mu          sync.Mutex
	roomTopics  map[int64]struct{}
	deviceTopic map[string]struct{}
}

// New builds a bridge. A nil logger disables logging.
func New(client MQTTClient, ctrl Controller, actions Actions, logger Logger) *Bridge {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bridge{
		client:      client,
		ctrl:        ctrl,
		actions:     actions,
		logger:      logger,
		roomTopics:  map[int64]struct{}{},
		deviceTopic: map[string]struct{}{},
	}
}

// Start subscribes to the command topics. Snapshot publishing is wired
// separately: register PublishSnapshot as a coordinator subscriber.
func (b *Bridge) Start() error {
	if err := b.client.Subscribe(b.topics.AllCommands(), stateQoS, b.handleCommand); err != nil {
		return fmt.Errorf("subscribing to command topics: %w", err)
	}
	return nil
}

// PublishSnapshot publishes the snapshot and its per-room and
// per-device breakdowns as retained messages. Individual publish
// failures are logged and do not stop the remaining publications.
func (b *Bridge) PublishSnapshot(snap *coordinator.Snapshot) {
	if snap == nil || !b.client.IsConnected() {
		return
	}

	b.publishJSON(b.topics.Snapshot(), snap)
	b.publishRetained(b.topics.Presence(), []byte(snap.Presence))

	for id, room := range snap.Rooms {
		b.publishJSON(b.topics.RoomState(id), room)
	}
	for serial, dev := range snap.Devices {
		b.publishJSON(b.topics.DeviceState(serial), dev)
	}

	b.clearVanished(snap)
}

// clearVanished publishes empty retained payloads for rooms and
// devices present in the previous snapshot but absent from this one,
// so late subscribers never see retained state for removed entities.
func (b *Bridge) clearVanished(snap *coordinator.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id := range b.roomTopics {
		if _, ok := snap.Rooms[id]; !ok {
			b.publishRetained(b.topics.RoomState(id), nil)
			delete(b.roomTopics, id)
		}
	}
	for id := range snap.Rooms {
		b.roomTopics[id] = struct{}{}
	}

	for serial := range b.deviceTopic {
		if _, ok := snap.Devices[serial]; !ok {
			b.publishRetained(b.topics.DeviceState(serial), nil)
			delete(b.deviceTopic, serial)
		}
	}
	for serial := range snap.Devices {
		b.deviceTopic[serial] = struct{}{}
	}
}

func (b *Bridge) publishJSON(topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		b.logger.Error("marshalling state payload", "topic", topic, "error", err)
		return
	}
	b.publishRetained(topic, payload)
}

func (b *Bridge) publishRetained(topic string, payload []byte) {
	if err := b.client.Publish(topic, payload, stateQoS, true); err != nil {
		b.logger.Warn("publishing state", "topic", topic, "error", err)
	}
}

// =============================================================================
// Command Handling
// =============================================================================

// roomCommand is the payload for boost and resume commands. A missing
// or zero room_id targets the whole home.
type roomCommand struct {
	RoomID int64 `json:"room_id"`
}

// handleCommand dispatches one inbound command message. The returned
// error is surfaced by the MQTT client's handler wrapper.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	ctx := context.Background()

	switch topic {
	case b.topics.CommandOffsets():
		return b.handleOffsets(ctx, payload)
	case b.topics.CommandBoost():
		return b.handleBoost(ctx, payload)
	case b.topics.CommandResume():
		return b.handleResume(ctx, payload)
	case b.topics.CommandPresence():
		return b.handlePresence(ctx, payload)
	case b.topics.CommandRefresh():
		b.ctrl.RequestRefresh()
		return nil
	default:
		b.logger.Warn("unknown command topic", "topic", topic)
		return nil
	}
}

func (b *Bridge) handleOffsets(ctx context.Context, payload []byte) error {
	var offsets map[string]float64
	if err := json.Unmarshal(payload, &offsets); err != nil {
		return fmt.Errorf("decoding offsets command: %w", err)
	}
	if len(offsets) == 0 {
		return nil
	}

	results, err := b.ctrl.ApplyOffsets(ctx, offsets)
	if err != nil {
		return fmt.Errorf("applying offsets: %w", err)
	}
	for serial, status := range results {
		if status != tado.OffsetStatusSuccess {
			b.logger.Warn("offset write failed", "serial", serial, "status", status)
		}
	}
	b.logger.Info("offsets command applied", "count", len(offsets))
	return nil
}

func (b *Bridge) handleBoost(ctx context.Context, payload []byte) error {
	cmd, err := decodeRoomCommand(payload)
	if err != nil {
		return fmt.Errorf("decoding boost command: %w", err)
	}

	if cmd.RoomID == 0 {
		err = b.actions.BoostAll(ctx)
	} else {
		err = b.actions.Boost(ctx, cmd.RoomID)
	}
	if err != nil {
		return fmt.Errorf("boost command: %w", err)
	}

	b.ctrl.RequestRefresh()
	return nil
}

func (b *Bridge) handleResume(ctx context.Context, payload []byte) error {
	cmd, err := decodeRoomCommand(payload)
	if err != nil {
		return fmt.Errorf("decoding resume command: %w", err)
	}

	if cmd.RoomID == 0 {
		err = b.actions.ResumeAllSchedules(ctx)
	} else {
		err = b.actions.ResumeSchedule(ctx, cmd.RoomID)
	}
	if err != nil {
		return fmt.Errorf("resume command: %w", err)
	}

	b.ctrl.RequestRefresh()
	return nil
}

func (b *Bridge) handlePresence(ctx context.Context, payload []byte) error {
	presence := strings.ToUpper(strings.TrimSpace(string(payload)))
	if presence != tado.PresenceHome && presence != tado.PresenceAway {
		return fmt.Errorf("invalid presence command %q", presence)
	}

	if err := b.actions.SetPresence(ctx, presence); err != nil {
		return fmt.Errorf("presence command: %w", err)
	}

	b.ctrl.RequestRefresh()
	return nil
}

// decodeRoomCommand parses an optional room-scoped payload. Empty
// payloads mean "whole home".
func decodeRoomCommand(payload []byte) (roomCommand, error) {
	var cmd roomCommand
	if len(payload) == 0 {
		return cmd, nil
	}
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return cmd, err
	}
	return cmd, nil
}
