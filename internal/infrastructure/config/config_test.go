package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
home:
  id: 42
  name: "Test Home"
tado:
  poll_interval_seconds: 120
  geofencing: true
  token_url: "https://proxy.local/oauth2/token"
  offset_sync:
    enabled: true
    hysteresis: 0.3
    rooms:
      - reference_sensor: "sensor.lounge"
        device: "lounge_valve"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8080
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Home.ID != 42 {
		t.Errorf("Home.ID = %d, want 42", cfg.Home.ID)
	}

	if cfg.Tado.PollIntervalSeconds != 120 {
		t.Errorf("Tado.PollIntervalSeconds = %d, want 120", cfg.Tado.PollIntervalSeconds)
	}

	if !cfg.Tado.Geofencing {
		t.Error("Tado.Geofencing = false, want true")
	}

	if cfg.Tado.TokenURL != "https://proxy.local/oauth2/token" {
		t.Errorf("Tado.TokenURL = %q, want override", cfg.Tado.TokenURL)
	}

	if cfg.Tado.APIURL != "" {
		t.Errorf("Tado.APIURL = %q, want empty for production default", cfg.Tado.APIURL)
	}

	if len(cfg.Tado.OffsetSync.Rooms) != 1 {
		t.Fatalf("len(OffsetSync.Rooms) = %d, want 1", len(cfg.Tado.OffsetSync.Rooms))
	}

	if cfg.Tado.OffsetSync.Rooms[0].Device != "lounge_valve" {
		t.Errorf("OffsetSync.Rooms[0].Device = %q, want %q", cfg.Tado.OffsetSync.Rooms[0].Device, "lounge_valve")
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
tado:
  poll_interval_seconds: 5
database:
  path: "/tmp/test.db"
api:
  port: 8080
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for out-of-range poll interval, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	// validJWTSecret is a secret that meets the 32-character minimum requirement
	validJWTSecret := "test-secret-key-at-least-32-chars!"

	valid := func() *Config {
		return &Config{
			Tado: TadoConfig{
				PollIntervalSeconds: 60,
				MinTemp:             5.0,
				MaxTemp:             30.0,
			},
			Database: DatabaseConfig{Path: "/data/tadolink.db"},
			MQTT:     MQTTConfig{QoS: 1},
			API:      APIConfig{Port: 8080},
			Security: SecurityConfig{JWT: JWTConfig{Secret: validJWTSecret}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "poll interval too low",
			mutate:  func(c *Config) { c.Tado.PollIntervalSeconds = 10 },
			wantErr: true,
		},
		{
			name:    "poll interval too high",
			mutate:  func(c *Config) { c.Tado.PollIntervalSeconds = 7200 },
			wantErr: true,
		},
		{
			name:    "min temp above max temp",
			mutate:  func(c *Config) { c.Tado.MinTemp = 35.0 },
			wantErr: true,
		},
		{
			name: "offset sync without hysteresis",
			mutate: func(c *Config) {
				c.Tado.OffsetSync = OffsetSyncConfig{Enabled: true, Hysteresis: 0}
			},
			wantErr: true,
		},
		{
			name: "offset sync mapping missing device",
			mutate: func(c *Config) {
				c.Tado.OffsetSync = OffsetSyncConfig{
					Enabled:    true,
					Hysteresis: 0.3,
					Rooms:      []OffsetMappingConfig{{ReferenceSensor: "sensor.lounge"}},
				}
			},
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "missing JWT secret",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "" },
			wantErr: true,
		},
		{
			name:    "JWT secret too short",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "short" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	// Set environment variables
	t.Setenv("TADOLINK_DATABASE_PATH", "/custom/path.db")
	t.Setenv("TADOLINK_MQTT_HOST", "mqtt.example.com")
	t.Setenv("TADOLINK_MQTT_USERNAME", "testuser")
	t.Setenv("TADOLINK_MQTT_PASSWORD", "testpass")
	t.Setenv("TADOLINK_API_HOST", "192.168.1.1")
	t.Setenv("TADOLINK_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("TADOLINK_JWT_SECRET", "jwt-secret")
	t.Setenv("TADOLINK_API_PASSWORD", "api-pass")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}

	if cfg.Security.JWT.Secret != "jwt-secret" {
		t.Errorf("Security.JWT.Secret = %q, want %q", cfg.Security.JWT.Secret, "jwt-secret")
	}

	if cfg.Security.Auth.Password != "api-pass" {
		t.Errorf("Security.Auth.Password = %q, want %q", cfg.Security.Auth.Password, "api-pass")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}

	if cfg.Tado.PollIntervalSeconds != 60 {
		t.Errorf("defaultConfig Tado.PollIntervalSeconds = %d, want 60", cfg.Tado.PollIntervalSeconds)
	}

	if cfg.Tado.OffsetSync.Hysteresis != 0.3 {
		t.Errorf("defaultConfig OffsetSync.Hysteresis = %v, want 0.3", cfg.Tado.OffsetSync.Hysteresis)
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}
}
