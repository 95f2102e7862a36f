// tadolink - Tado X heating bridge
//
// This is the main entry point for the tadolink daemon. It polls the
// Tado X cloud API for one home's state, publishes snapshots over MQTT
// and WebSocket, records history to InfluxDB, and exposes a REST API
// for heating control.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/tadolink/tadolink/migrations"

	"github.com/tadolink/tadolink/internal/api"
	"github.com/tadolink/tadolink/internal/bridge"
	"github.com/tadolink/tadolink/internal/coordinator"
	"github.com/tadolink/tadolink/internal/infrastructure/config"
	"github.com/tadolink/tadolink/internal/infrastructure/database"
	"github.com/tadolink/tadolink/internal/infrastructure/influxdb"
	"github.com/tadolink/tadolink/internal/infrastructure/logging"
	"github.com/tadolink/tadolink/internal/infrastructure/mqtt"
	"github.com/tadolink/tadolink/internal/tado"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Returning an error allows main to handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting tadolink",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Build the Tado client over persisted credentials
	store := tado.NewSQLiteTokenStore(db.DB)
	creds, haveCreds, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	tadoClient := tado.New(tado.Config{
		ClientID:    cfg.Tado.ClientID,
		AuthURL:     cfg.Tado.AuthURL,
		TokenURL:    cfg.Tado.TokenURL,
		MyAPIURL:    cfg.Tado.APIURL,
		HopsURL:     cfg.Tado.HopsURL,
		Store:       store,
		Credentials: creds,
		Logger:      log,
	})

	// First run: walk the operator through the device-authorization flow
	if !haveCreds {
		if authErr := bootstrapAuth(ctx, tadoClient, cfg, log); authErr != nil {
			return fmt.Errorf("device authorization: %w", authErr)
		}
	}

	// Resolve the home this daemon manages
	homeID, homeName, err := resolveHome(ctx, tadoClient, store, cfg, log)
	if err != nil {
		return fmt.Errorf("resolving home: %w", err)
	}
	tadoClient.SetHomeID(homeID)
	log.Info("home resolved", "home_id", homeID, "name", homeName)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Offset sync needs reference readings, which arrive over MQTT
	var offsetSync *coordinator.OffsetSync
	if cfg.Tado.OffsetSync.Enabled {
		if mqttClient == nil {
			log.Warn("offset sync enabled but MQTT is disabled; offset sync will not run")
		} else {
			refs := bridge.NewReferenceCache(0, log)
			if subErr := refs.Subscribe(mqttClient); subErr != nil {
				return fmt.Errorf("subscribing reference cache: %w", subErr)
			}

			mappings := make([]coordinator.RoomMapping, 0, len(cfg.Tado.OffsetSync.Rooms))
			for _, m := range cfg.Tado.OffsetSync.Rooms {
				mappings = append(mappings, coordinator.RoomMapping{
					ReferenceSensorID: m.ReferenceSensor,
					DeviceID:          m.Device,
				})
			}
			offsetSync = coordinator.NewOffsetSync(mappings, refs, serialResolver{}, cfg.Tado.OffsetSync.Hysteresis, log)
			log.Info("offset sync enabled",
				"mappings", len(mappings),
				"hysteresis", cfg.Tado.OffsetSync.Hysteresis,
			)
		}
	}

	// Build the polling coordinator
	coord := coordinator.New(tadoClient, coordinator.Config{
		HomeID:       homeID,
		HomeName:     homeName,
		PollInterval: cfg.PollInterval(),
		Geofencing:   cfg.Tado.Geofencing,
		OffsetSync:   offsetSync,
		Logger:       log,
	})

	// Mirror snapshots onto MQTT and accept inbound commands
	if mqttClient != nil {
		b := bridge.New(mqttClient, coord, tadoClient, log)
		if startErr := b.Start(); startErr != nil {
			return fmt.Errorf("starting MQTT bridge: %w", startErr)
		}
		coord.Subscribe(b.PublishSnapshot)
		log.Info("MQTT bridge started")
	}

	// Record history to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		recorder := bridge.NewRecorder(influxClient)
		coord.Subscribe(recorder.Record)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the REST API and WebSocket server
	apiServer, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Security:   cfg.Security,
		Logger:     log,
		Controller: coord,
		Heating:    tadoClient,
		MinTemp:    cfg.Tado.MinTemp,
		MaxTemp:    cfg.Tado.MaxTemp,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Run the poll loop until shutdown
	coordDone := make(chan error, 1)
	go func() {
		coordDone <- coord.Run(ctx)
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	<-coordDone

	log.Info("tadolink stopped")
	return nil
}

// bootstrapAuth runs the OAuth2 device-authorization flow and blocks
// until the operator approves the device or the budget elapses.
func bootstrapAuth(ctx context.Context, client *tado.Client, cfg *config.Config, log *logging.Logger) error {
	auth, err := client.StartDeviceAuth(ctx)
	if err != nil {
		return err
	}

	// The operator needs this even when logs go elsewhere
	fmt.Fprintf(os.Stdout, "\nTo link your Tado account, visit:\n\n    %s\n\nand enter code: %s\n\n",
		auth.VerificationURIComplete, auth.UserCode)

	interval := time.Duration(auth.Interval) * time.Second
	approved, err := client.PollForToken(ctx, auth.DeviceCode, interval, cfg.DeviceAuthTimeout())
	if err != nil {
		return err
	}
	if !approved {
		return fmt.Errorf("not approved within %s", cfg.DeviceAuthTimeout())
	}

	log.Info("device authorization complete")
	return nil
}

// resolveHome returns the home id and name this daemon manages. A
// configured id wins, then the home cached from a previous start;
// otherwise the account's only home is discovered and cached, and
// multiple homes require explicit configuration.
func resolveHome(ctx context.Context, client *tado.Client, store *tado.SQLiteTokenStore, cfg *config.Config, log *logging.Logger) (int64, string, error) {
	if cfg.Home.ID != 0 {
		return cfg.Home.ID, cfg.Home.Name, nil
	}

	if id, name, ok, err := store.LoadHome(ctx); err != nil {
		return 0, "", err
	} else if ok {
		return id, name, nil
	}

	me, err := client.Me(ctx)
	if err != nil {
		return 0, "", err
	}

	switch len(me.Homes) {
	case 0:
		return 0, "", fmt.Errorf("account has no homes")
	case 1:
		home := me.Homes[0]
		if saveErr := store.SaveHome(ctx, home.ID, home.Name); saveErr != nil {
			log.Warn("caching resolved home failed", "error", saveErr)
		}
		return home.ID, home.Name, nil
	default:
		names := make([]string, len(me.Homes))
		for i, h := range me.Homes {
			names[i] = fmt.Sprintf("%s (%d)", h.Name, h.ID)
		}
		log.Error("multiple homes on account; set home.id in config", "homes", strings.Join(names, ", "))
		return 0, "", fmt.Errorf("account has %d homes; set home.id in config", len(me.Homes))
	}
}

// serialResolver treats configured device identifiers as serial
// numbers.
type serialResolver struct{}

func (serialResolver) ResolveSerial(deviceID string) (string, bool) {
	serial := strings.ToUpper(strings.TrimSpace(deviceID))
	return serial, serial != ""
}

// getConfigPath returns the configuration file path.
// Uses the TADOLINK_CONFIG environment variable if set, otherwise the
// default.
func getConfigPath() string {
	if path := os.Getenv("TADOLINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// MQTT and InfluxDB are skipped when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
