package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the monome daemon.
// All configuration is loaded from YAML and can be overridden by
// environment variables.
type Config struct {
	SerialOsc SerialOscConfig `yaml:"serialosc"`
	Devices   DevicesConfig   `yaml:"devices"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SerialOscConfig contains serialosc daemon connection settings.
type SerialOscConfig struct {
	// Host where serialoscd runs, normally the local machine.
	Host string `yaml:"host"`

	// DaemonPort is serialoscd's fixed UDP port.
	DaemonPort int `yaml:"daemon_port"`

	// DiscoveryPortBase starts the UDP port scan for the discovery
	// receiver.
	DiscoveryPortBase int `yaml:"discovery_port_base"`

	// DevicePortBase starts the UDP port scan for per-device receivers.
	DevicePortBase int `yaml:"device_port_base"`
}

// DevicesConfig contains defaults applied to devices without a stored
// profile.
type DevicesConfig struct {
	Prefix   string `yaml:"prefix"`
	Rotation int    `yaml:"rotation"`
}

// DatabaseConfig contains SQLite database settings for device profiles.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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
	MaxAttempts  int `yaml:"max_attempts"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment
// variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: MONOME_SECTION_KEY
// For example: MONOME_DATABASE_PATH, MONOME_MQTT_HOST
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

// defaultConfig returns a Config with sensible defaults: local
// serialoscd, profiles enabled, MQTT off until configured.
func defaultConfig() *Config {
	return &Config{
		SerialOsc: SerialOscConfig{
			Host:              "127.0.0.1",
			DaemonPort:        12002,
			DiscoveryPortBase: 13000,
			DevicePortBase:    13001,
		},
		Devices: DevicesConfig{
			Prefix:   "/monome",
			Rotation: 0,
		},
		Database: DatabaseConfig{
			Enabled:     true,
			Path:        "./data/monome.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "monome-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables follow the pattern:
// MONOME_SECTION_KEY.
func applyEnvOverrides(cfg *Config) {
	// serialosc
	if v := os.Getenv("MONOME_SERIALOSC_HOST"); v != "" {
		cfg.SerialOsc.Host = v
	}
	if v := os.Getenv("MONOME_SERIALOSC_DAEMON_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.SerialOsc.DaemonPort = port
		}
	}

	// Devices
	if v := os.Getenv("MONOME_DEVICES_PREFIX"); v != "" {
		cfg.Devices.Prefix = v
	}

	// Database
	if v := os.Getenv("MONOME_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("MONOME_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MONOME_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MONOME_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Logging
	if v := os.Getenv("MONOME_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.SerialOsc.Host == "" {
		errs = append(errs, "serialosc.host is required")
	}
	if c.SerialOsc.DaemonPort < 1 || c.SerialOsc.DaemonPort > 65535 {
		errs = append(errs, "serialosc.daemon_port must be between 1 and 65535")
	}
	if c.SerialOsc.DiscoveryPortBase < 1024 || c.SerialOsc.DiscoveryPortBase > 65535 {
		errs = append(errs, "serialosc.discovery_port_base must be between 1024 and 65535")
	}
	if c.SerialOsc.DevicePortBase < 1024 || c.SerialOsc.DevicePortBase > 65535 {
		errs = append(errs, "serialosc.device_port_base must be between 1024 and 65535")
	}

	if !strings.HasPrefix(c.Devices.Prefix, "/") {
		errs = append(errs, "devices.prefix must start with /")
	}
	if c.Devices.Rotation%90 != 0 || c.Devices.Rotation < 0 || c.Devices.Rotation > 270 {
		errs = append(errs, "devices.rotation must be 0, 90, 180 or 270")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
