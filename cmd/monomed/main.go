// monomed - monome device daemon
//
// This is the main entry point for the monome daemon. It connects to
// serialoscd, maintains a session per attached grid or arc, and
// exposes the devices over MQTT:
//   - Input events (keys, tilt, encoder deltas) are published as JSON
//   - LED commands from other processes are applied to the devices
//   - Per-device prefix and rotation profiles persist across runs
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/gridbeam/monome-core/migrations"

	"github.com/gridbeam/monome-core/internal/actor"
	"github.com/gridbeam/monome-core/internal/bridges/mqttbridge"
	"github.com/gridbeam/monome-core/internal/infrastructure/config"
	"github.com/gridbeam/monome-core/internal/infrastructure/database"
	"github.com/gridbeam/monome-core/internal/infrastructure/logging"
	"github.com/gridbeam/monome-core/internal/infrastructure/mqtt"
	"github.com/gridbeam/monome-core/internal/monome"
	"github.com/gridbeam/monome-core/internal/osc"
	"github.com/gridbeam/monome-core/internal/profile"
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
	// Local cancel so a broker shutdown request can stop the daemon.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting monomed",
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

	// Open database and build the profile store (optional)
	var profiles monome.ProfileStore
	if cfg.Database.Enabled {
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

		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database migrations complete")

		store, err := profile.NewStore(db.DB)
		if err != nil {
			return fmt.Errorf("creating profile store: %w", err)
		}
		profiles = store
	} else {
		log.Info("database disabled, device profiles will not persist")
	}

	// Device service: one actor registry shared by devices and bridges
	actors := actor.NewRegistry()
	svc := monome.NewService(monome.ServiceOptions{
		Transport:         osc.UDP(),
		Actors:            actors,
		Logger:            log,
		DaemonPort:        cfg.SerialOsc.DaemonPort,
		DiscoveryPortBase: cfg.SerialOsc.DiscoveryPortBase,
		DevicePortBase:    cfg.SerialOsc.DevicePortBase,
		DefaultPrefix:     cfg.Devices.Prefix,
		DefaultRotation:   cfg.Devices.Rotation,
		Profiles:          profiles,
	})
	svc.SetDeviceCallback(func(info monome.Info, connected bool) {
		if connected {
			log.Info("device attached",
				"id", info.ID,
				"type", info.Type,
				"kind", info.Kind.String(),
			)
		} else {
			log.Info("device detached", "id", info.ID)
		}
	})

	if err := svc.Start(cfg.SerialOsc.Host); err != nil {
		return fmt.Errorf("starting device service: %w", err)
	}
	defer func() {
		log.Info("stopping device service")
		svc.Stop()
	}()
	log.Info("device service started",
		"serialoscd", fmt.Sprintf("%s:%d", cfg.SerialOsc.Host, cfg.SerialOsc.DaemonPort),
	)

	// Connect to MQTT broker and start the bridge (optional)
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
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log.With("component", "mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		// Remote shutdown: a message on monome/system/shutdown stops the
		// daemon the same way a signal does.
		err = mqttClient.Subscribe(mqtt.Topics{}.SystemShutdown(), byte(cfg.MQTT.QoS),
			func(string, []byte) error {
				log.Info("shutdown requested over MQTT")
				cancel()
				return nil
			})
		if err != nil {
			return fmt.Errorf("subscribing to shutdown topic: %w", err)
		}

		bridge, err := mqttbridge.NewBridge(mqttbridge.BridgeOptions{
			Service:    svc,
			MQTTClient: &mqttBridgeAdapter{client: mqttClient},
			Actors:     actors,
			Logger:     log,
			QoS:        byte(cfg.MQTT.QoS),
		})
		if err != nil {
			return fmt.Errorf("creating MQTT bridge: %w", err)
		}
		if err := bridge.Start(); err != nil {
			return fmt.Errorf("starting MQTT bridge: %w", err)
		}
		defer func() {
			log.Info("stopping MQTT bridge")
			bridge.Stop()
		}()
		log.Info("MQTT bridge started")
	} else {
		log.Info("MQTT disabled")
	}

	// Verify infrastructure connections are healthy
	if err := healthCheck(ctx, mqttClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. MQTT bridge, then MQTT client
	// 2. Device service (darkens and disconnects devices)
	// 3. Database

	log.Info("monomed stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses MONOME_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("MONOME_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies infrastructure connections are healthy.
// mqttClient may be nil when MQTT is disabled.
func healthCheck(ctx context.Context, mqttClient *mqtt.Client) error {
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	return nil
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the
// bridge's MQTTClient interface. The client's Subscribe takes the
// named mqtt.MessageHandler type, so it does not satisfy the bridge
// interface directly even though the underlying signatures match.
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements mqttbridge.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements mqttbridge.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error {
	return a.client.Subscribe(topic, qos, handler)
}

// IsConnected implements mqttbridge.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}
