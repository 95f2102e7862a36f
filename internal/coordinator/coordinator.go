package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tadolink/tadolink/internal/tado"
)

// Poll interval bounds. Values outside the range are clamped at
// construction.
const (
	MinPollInterval = 30 * time.Second
	MaxPollInterval = 3600 * time.Second

	// DefaultPollInterval matches the vendor app's refresh cadence.
	DefaultPollInterval = 60 * time.Second
)

// API is the cloud surface the coordinator polls and writes through.
// *tado.Client satisfies it.
type API interface {
	HomeState(ctx context.Context) (*tado.HomeState, error)
	MobileDevices(ctx context.Context) ([]tado.MobileDevice, error)
	SetPresence(ctx context.Context, presence string) error
	Rooms(ctx context.Context) ([]tado.Room, error)
	RoomsAndDevices(ctx context.Context) (*tado.RoomsAndDevices, error)
	SetOffsets(ctx context.Context, offsets map[string]float64) map[string]string
}

// Logger is the narrow logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Subscriber receives each newly published snapshot. Callbacks run on
// the coordinator's goroutine and must not block.
type Subscriber func(*Snapshot)

// Config contains Coordinator construction options.
type Config struct {
	HomeID   int64
	HomeName string

	// PollInterval is clamped to [MinPollInterval, MaxPollInterval];
	// zero selects DefaultPollInterval.
	PollInterval time.Duration

	// Geofencing enables the presence auto-flip from mobile device
	// locations.
	Geofencing bool

	// OffsetSync, when non-nil, runs after each successful cycle.
	OffsetSync *OffsetSync

	Logger Logger
}

// Coordinator owns one home's poll loop and published snapshot.
type Coordinator struct {
	api        API
	homeID     int64
	homeName   string
	interval   time.Duration
	geofencing bool
	offsetSync *OffsetSync
	logger     Logger

	// refreshCh carries on-demand refresh requests. Capacity 1: a
	// trigger arriving while one is pending or a cycle is running is
	// absorbed, never queued.
	refreshCh chan struct{}

	mu          sync.RWMutex
	snap        *Snapshot
	lastErr     error
	subscribers []Subscriber
}

// New creates a Coordinator. The loop does not start until Run.
func New(apiClient API, cfg Config) *Coordinator {
	interval := cfg.PollInterval
	if interval == 0 {
		interval = DefaultPollInterval
	}
	if interval < MinPollInterval {
		interval = MinPollInterval
	}
	if interval > MaxPollInterval {
		interval = MaxPollInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Coordinator{
		api:        apiClient,
		homeID:     cfg.HomeID,
		homeName:   cfg.HomeName,
		interval:   interval,
		geofencing: cfg.Geofencing,
		offsetSync: cfg.OffsetSync,
		logger:     logger,
		refreshCh:  make(chan struct{}, 1),
	}
}

// Run executes one immediate cycle, then polls on the configured
// interval until ctx is cancelled. Exactly one cycle runs at a time.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info("coordinator started",
		"home_id", c.homeID,
		"interval", c.interval.String(),
		"geofencing", c.geofencing,
		"offset_sync", c.offsetSync != nil,
	)

	c.refreshOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("coordinator stopped")
			return ctx.Err()
		case <-ticker.C:
			c.refreshOnce(ctx)
		case <-c.refreshCh:
			c.refreshOnce(ctx)
		}
	}
}

// RequestRefresh asks for an out-of-band cycle. Non-blocking; a request
// arriving while one is already pending is coalesced.
func (c *Coordinator) RequestRefresh() {
	select {
	case c.refreshCh <- struct{}{}:
	default:
	}
}

// Snapshot returns the most recently published snapshot, or nil before
// the first successful cycle. Snapshots are immutable once returned.
func (c *Coordinator) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// LastError returns the most recent cycle's failure, or nil when the
// last cycle succeeded.
func (c *Coordinator) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Subscribe registers fn to receive every future snapshot.
func (c *Coordinator) Subscribe(fn Subscriber) {
	c.mu.Lock()
	c.subscribers = append(c.subscribers, fn)
	c.mu.Unlock()
}

// ApplyOffsets validates and writes an externally supplied offset
// mapping, then requests an out-of-band refresh so the new values are
// reflected promptly. Validation failures reject the whole batch
// before any write; individual write failures are reported per device.
func (c *Coordinator) ApplyOffsets(ctx context.Context, offsets map[string]float64) (map[string]string, error) {
	for serial, offset := range offsets {
		if offset < -ManualOffsetLimit || offset > ManualOffsetLimit {
			return nil, fmt.Errorf("%w: %s = %.1f, allowed [%.1f, %.1f]",
				ErrOffsetOutOfRange, serial, offset, -ManualOffsetLimit, ManualOffsetLimit)
		}
	}

	results := c.api.SetOffsets(ctx, offsets)
	c.RequestRefresh()
	return results, nil
}

// refreshOnce runs a single cycle and publishes the result. On failure
// the previous snapshot stays visible and the error is recorded.
func (c *Coordinator) refreshOnce(ctx context.Context) {
	snap, err := c.cycle(ctx)
	if err != nil {
		c.logger.Error("poll cycle failed", "error", err)
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.snap = snap
	c.lastErr = nil
	subs := make([]Subscriber, len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.Unlock()

	c.logger.Debug("snapshot published",
		"rooms", len(snap.Rooms),
		"devices", len(snap.Devices),
		"presence", snap.Presence,
	)
	for _, fn := range subs {
		fn(snap)
	}
}

// cycle performs one full fetch/normalize/sync pass.
func (c *Coordinator) cycle(ctx context.Context) (*Snapshot, error) {
	state, err := c.api.HomeState(ctx)
	if err != nil {
		return nil, updateErr("home state", err)
	}
	presence := state.Presence

	if c.geofencing {
		presence, err = c.applyGeofencing(ctx, presence)
		if err != nil {
			return nil, err
		}
	}

	rooms, err := c.api.Rooms(ctx)
	if err != nil {
		return nil, updateErr("rooms", err)
	}

	topo, err := c.api.RoomsAndDevices(ctx)
	if err != nil {
		return nil, updateErr("topology", err)
	}

	snap := buildSnapshot(c.homeID, c.homeName, presence, rooms, topo)

	if c.offsetSync != nil {
		c.runOffsetSync(ctx, snap)
	}

	return snap, nil
}

// applyGeofencing flips presence when the tracked mobile devices
// disagree with the current mode, returning the effective presence.
func (c *Coordinator) applyGeofencing(ctx context.Context, current string) (string, error) {
	devices, err := c.api.MobileDevices(ctx)
	if err != nil {
		return "", updateErr("mobile devices", err)
	}

	want, flip := desiredPresence(current, devices)
	if !flip {
		return current, nil
	}

	c.logger.Info("geofencing: presence mismatch", "current", current, "setting", want)
	if err := c.api.SetPresence(ctx, want); err != nil {
		return "", updateErr("set presence", err)
	}
	return want, nil
}

// runOffsetSync plans and submits this cycle's corrections. Failures
// are logged per device and never fail the cycle.
func (c *Coordinator) runOffsetSync(ctx context.Context, snap *Snapshot) {
	plan := c.offsetSync.Plan(ctx, snap)
	if len(plan) == 0 {
		return
	}

	results := c.api.SetOffsets(ctx, plan)
	for serial, status := range results {
		if status == tado.OffsetStatusSuccess {
			c.logger.Info("offset sync: applied", "serial", serial, "offset", plan[serial])
		} else {
			c.logger.Warn("offset sync: write failed", "serial", serial, "status", status)
		}
	}
}
