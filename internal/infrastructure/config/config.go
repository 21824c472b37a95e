package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the GES daemon.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Listener   ListenerConfig   `yaml:"listener"`
	Simulation SimulationConfig `yaml:"simulation"`
	History    HistoryConfig    `yaml:"history"`
	Uplink     UplinkConfig     `yaml:"uplink"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ListenerConfig contains the UDP command listener settings.
type ListenerConfig struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

// SimulationConfig contains discrete-event engine settings.
type SimulationConfig struct {
	// Realtime paces the event loop so one simulated second takes one
	// wall-clock second. Disable for as-fast-as-possible runs.
	Realtime bool `yaml:"realtime"`

	// Seed initialises the random source used by device behaviour.
	// Zero means seed from the current time.
	Seed int64 `yaml:"seed"`
}

// HistoryConfig contains the SQLite journal settings.
type HistoryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// UplinkConfig contains MQTT broker connection settings for the cloud uplink.
type UplinkConfig struct {
	Enabled   bool                  `yaml:"enabled"`
	Broker    UplinkBrokerConfig    `yaml:"broker"`
	Auth      UplinkAuthConfig      `yaml:"auth"`
	QoS       int                   `yaml:"qos"`
	Reconnect UplinkReconnectConfig `yaml:"reconnect"`
}

// UplinkBrokerConfig contains MQTT broker connection details.
type UplinkBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// UplinkAuthConfig contains MQTT authentication credentials.
type UplinkAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// UplinkReconnectConfig contains MQTT reconnection settings.
type UplinkReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// TelemetryConfig contains InfluxDB connection settings.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
// The log file is opened in append mode so daemon restarts extend the
// existing journal rather than truncating it.
type FileLoggingConfig struct {
	Path string `yaml:"path"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GES_SECTION_KEY
// For example: GES_LISTENER_PORT, GES_HISTORY_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
//
// The daemon can run entirely from defaults: loopback listener on 7700,
// realtime simulation, history/uplink/telemetry disabled.
func Default() *Config {
	return &Config{
		Listener: ListenerConfig{
			IP:   "127.0.0.1",
			Port: 7700,
		},
		Simulation: SimulationConfig{
			Realtime: true,
		},
		History: HistoryConfig{
			Path:        "./data/ges.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Uplink: UplinkConfig{
			Broker: UplinkBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "ges-core",
			},
			QoS: 1,
			Reconnect: UplinkReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Telemetry: TelemetryConfig{
			URL:           "http://localhost:8086",
			Org:           "guardian",
			Bucket:        "devices",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GES_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Listener
	if v := os.Getenv("GES_LISTENER_IP"); v != "" {
		cfg.Listener.IP = v
	}
	if v := os.Getenv("GES_LISTENER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Listener.Port = port
		}
	}

	// History
	if v := os.Getenv("GES_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}

	// Uplink
	if v := os.Getenv("GES_UPLINK_HOST"); v != "" {
		cfg.Uplink.Broker.Host = v
	}
	if v := os.Getenv("GES_UPLINK_USERNAME"); v != "" {
		cfg.Uplink.Auth.Username = v
	}
	if v := os.Getenv("GES_UPLINK_PASSWORD"); v != "" {
		cfg.Uplink.Auth.Password = v
	}

	// Telemetry
	if v := os.Getenv("GES_TELEMETRY_TOKEN"); v != "" {
		cfg.Telemetry.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Listener validation
	if c.Listener.IP == "" {
		errs = append(errs, "listener.ip is required")
	}
	if c.Listener.Port < 1 || c.Listener.Port > 65535 {
		errs = append(errs, "listener.port must be between 1 and 65535")
	}

	// History validation
	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, "history.path is required when history is enabled")
	}

	// Uplink validation
	if c.Uplink.QoS < 0 || c.Uplink.QoS > 2 {
		errs = append(errs, "uplink.qos must be 0, 1, or 2")
	}
	if c.Uplink.Enabled && c.Uplink.Broker.Host == "" {
		errs = append(errs, "uplink.broker.host is required when uplink is enabled")
	}

	// Telemetry validation
	if c.Telemetry.Enabled {
		if c.Telemetry.URL == "" {
			errs = append(errs, "telemetry.url is required when telemetry is enabled")
		}
		if c.Telemetry.Token == "" {
			errs = append(errs, "telemetry.token is required when telemetry is enabled (set GES_TELEMETRY_TOKEN environment variable)")
		}
	}

	// Logging validation
	if strings.EqualFold(c.Logging.Output, "file") && c.Logging.File.Path == "" {
		errs = append(errs, "logging.file.path is required when logging.output is file")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Timeout returns the history busy timeout as a Duration.
func (c *HistoryConfig) Timeout() time.Duration {
	return time.Duration(c.BusyTimeout) * time.Second
}

// FlushPeriod returns the telemetry flush interval as a Duration.
func (c *TelemetryConfig) FlushPeriod() time.Duration {
	return time.Duration(c.FlushInterval) * time.Second
}
