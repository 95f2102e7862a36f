package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tadolink/tadolink/internal/coordinator"
	"github.com/tadolink/tadolink/internal/infrastructure/config"
	"github.com/tadolink/tadolink/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Controller is the coordinator surface the server reads from and
// drives. Satisfied by *coordinator.Coordinator.
type Controller interface {
	Snapshot() *coordinator.Snapshot
	LastError() error
	RequestRefresh()
	Subscribe(fn coordinator.Subscriber)
	ApplyOffsets(ctx context.Context, offsets map[string]float64) (map[string]string, error)
}

// Heating covers the direct cloud actions the API exposes.
// Satisfied by *tado.Client.
type Heating interface {
	SetRoomTemperature(ctx context.Context, roomID int64, temperature float64, terminationType string, durationSeconds int) error
	SetRoomOff(ctx context.Context, roomID int64, terminationType string, durationSeconds int) error
	ResumeSchedule(ctx context.Context, roomID int64) error
	Boost(ctx context.Context, roomID int64) error
	BoostAll(ctx context.Context) error
	ResumeAllSchedules(ctx context.Context) error
	SetOpenWindow(ctx context.Context, roomID int64, enabled bool) error
	SetPresence(ctx context.Context, presence string) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Security   config.SecurityConfig
	Logger     *logging.Logger
	Controller Controller
	Heating    Heating
	MinTemp    float64
	MaxTemp    float64
	Version    string
}

// Server is the HTTP API server for tadolink.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg     config.APIConfig
	wsCfg   config.WebSocketConfig
	secCfg  config.SecurityConfig
	logger  *logging.Logger
	ctrl    Controller
	heating Heating
	minTemp float64
	maxTemp float64
	version string
	server  *http.Server
	hub     *Hub
	tickets *ticketStore
	cancel  context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, controller, heating)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Controller == nil {
		return nil, fmt.Errorf("coordinator is required")
	}
	if deps.Heating == nil {
		return nil, fmt.Errorf("heating client is required")
	}

	return &Server{
		cfg:     deps.Config,
		wsCfg:   deps.WS,
		secCfg:  deps.Security,
		logger:  deps.Logger,
		ctrl:    deps.Controller,
		heating: deps.Heating,
		minTemp: deps.MinTemp,
		maxTemp: deps.MaxTemp,
		version: deps.Version,
		tickets: newTicketStore(),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, registers a coordinator subscriber that
// broadcasts each snapshot to connected clients, and launches the HTTP
// listener in a background goroutine. The server is stopped with
// Close().
//
// Parameters:
//   - ctx: Context for background goroutine cancellation
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)
	go s.cleanTicketsLoop(srvCtx)

	// Broadcast every published snapshot to WebSocket subscribers.
	s.ctrl.Subscribe(func(snap *coordinator.Snapshot) {
		s.hub.Broadcast(ChannelSnapshot, snap)
		s.hub.Broadcast(ChannelPresence, map[string]string{"presence": snap.Presence})
	})

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
