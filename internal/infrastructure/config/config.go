package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for homebus.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Home        HomeConfig        `yaml:"home"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Profiles    []ProfileConfig   `yaml:"profiles"`
	API         APIConfig         `yaml:"api"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Database    DatabaseConfig    `yaml:"database"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Logging     LoggingConfig     `yaml:"logging"`
	Simulator   SimulatorConfig   `yaml:"simulator"`
}

// HomeConfig describes the installation.
type HomeConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// Rooms seeds the room registry. Devices registering with an unknown
	// room add it at runtime.
	Rooms []string `yaml:"rooms"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// TopicPrefix is the first segment of every homebus topic.
	TopicPrefix string `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`

	// MaxAttempts bounds the initial connection attempts. 0 means a single attempt.
	MaxAttempts int `yaml:"max_attempts"`
}

// CoordinatorConfig contains settings for the coordinator process.
type CoordinatorConfig struct {
	// Identity is the coordinator's sender name inside envelopes.
	Identity string `yaml:"identity"`

	// RequestTTL is how long (seconds) an unacknowledged command stays pending.
	// 0 keeps requests pending until shutdown.
	RequestTTL int `yaml:"request_ttl"`

	// SweepInterval is how often (seconds) expired requests are evicted.
	SweepInterval int `yaml:"sweep_interval"`

	// InitialProfile is activated once the coordinator starts.
	InitialProfile string `yaml:"initial_profile"`
}

// ProfileConfig declares a custom profile.
type ProfileConfig struct {
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description" json:"description"`
	Activation  []CommandConfig `yaml:"activation" json:"activation"`
	Thermometer []RuleConfig    `yaml:"thermometer" json:"thermometer"`
	Hygrometer  []RuleConfig    `yaml:"hygrometer" json:"hygrometer"`
	Photometer  []RuleConfig    `yaml:"photometer" json:"photometer"`
	Motion      []CommandConfig `yaml:"motion" json:"motion"`
}

// RuleConfig maps a predicate such as ">= 25" to the commands it fires.
type RuleConfig struct {
	When     string          `yaml:"when" json:"when"`
	Commands []CommandConfig `yaml:"commands" json:"commands"`
}

// CommandConfig is a single command bound to one device.
type CommandConfig struct {
	Device  string  `yaml:"device" json:"device"`
	Command string  `yaml:"command" json:"command"`
	Value   *string `yaml:"value,omitempty" json:"value,omitempty"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// DatabaseConfig contains SQLite settings for the command audit trail.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
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
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SimulatorConfig describes the simulated devices run by cmd/homesim.
type SimulatorConfig struct {
	// ReadingInterval is how often (seconds) sensors publish a reading.
	ReadingInterval int                     `yaml:"reading_interval"`
	Devices         []SimulatedDeviceConfig `yaml:"devices"`
}

// SimulatedDeviceConfig declares one simulated device.
type SimulatedDeviceConfig struct {
	Name        string  `yaml:"name"`
	Room        string  `yaml:"room"`
	Type        string  `yaml:"type"`
	Consumption float64 `yaml:"consumption"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HOMEBUS_SECTION_KEY
// For example: HOMEBUS_MQTT_HOST, HOMEBUS_API_PORT
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration, validated by construction.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Home: HomeConfig{
			ID:   "home-001",
			Name: "homebus",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "homebus-coordinator",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  5,
			},
			TopicPrefix: "homebus",
		},
		Coordinator: CoordinatorConfig{
			Identity:       "coordinator",
			RequestTTL:     0,
			SweepInterval:  30,
			InitialProfile: "Default",
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Database: DatabaseConfig{
			Enabled:     false,
			Path:        "./data/homebus.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Simulator: SimulatorConfig{
			ReadingInterval: 10,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HOMEBUS_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("HOMEBUS_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HOMEBUS_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("HOMEBUS_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HOMEBUS_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("HOMEBUS_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("HOMEBUS_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Database
	if v := os.Getenv("HOMEBUS_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("HOMEBUS_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("HOMEBUS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Home.ID == "" {
		errs = append(errs, "home.id is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Broker.ClientID == "" {
		errs = append(errs, "mqtt.broker.client_id is required")
	}
	if c.MQTT.TopicPrefix == "" || strings.ContainsAny(c.MQTT.TopicPrefix, "/+#") {
		errs = append(errs, "mqtt.topic_prefix must be a single non-wildcard topic level")
	}

	if c.Coordinator.Identity == "" {
		errs = append(errs, "coordinator.identity is required")
	}
	if c.Coordinator.RequestTTL < 0 {
		errs = append(errs, "coordinator.request_ttl cannot be negative")
	}
	if c.Coordinator.RequestTTL > 0 && c.Coordinator.SweepInterval <= 0 {
		errs = append(errs, "coordinator.sweep_interval must be positive when request_ttl is set")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when the audit database is enabled")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	seen := make(map[string]bool, len(c.Profiles))
	for i, p := range c.Profiles {
		if p.Name == "" {
			errs = append(errs, fmt.Sprintf("profiles[%d].name is required", i))
			continue
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Sprintf("profiles[%d].name %q is duplicated", i, p.Name))
		}
		seen[p.Name] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// RequestTTLDuration returns the pending-request lifetime as a Duration.
func (c CoordinatorConfig) RequestTTLDuration() time.Duration {
	return time.Duration(c.RequestTTL) * time.Second
}

// SweepIntervalDuration returns the expiry sweep period as a Duration.
func (c CoordinatorConfig) SweepIntervalDuration() time.Duration {
	return time.Duration(c.SweepInterval) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
