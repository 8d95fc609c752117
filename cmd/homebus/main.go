// homebus coordinator.
//
// The coordinator owns the device registry for one home. Devices register
// over MQTT, publish readings and acknowledge commands; the active profile
// turns sensor readings into commands. An HTTP API and WebSocket feed expose
// the registry, the profile catalogue and the command audit trail.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/homebus/internal/api"
	"github.com/nerrad567/homebus/internal/audit"
	"github.com/nerrad567/homebus/internal/automation"
	"github.com/nerrad567/homebus/internal/coordinator"
	"github.com/nerrad567/homebus/internal/device"
	"github.com/nerrad567/homebus/internal/infrastructure/config"
	"github.com/nerrad567/homebus/internal/infrastructure/database"
	"github.com/nerrad567/homebus/internal/infrastructure/influxdb"
	"github.com/nerrad567/homebus/internal/infrastructure/logging"
	"github.com/nerrad567/homebus/internal/infrastructure/metrics"
	"github.com/nerrad567/homebus/internal/infrastructure/mqtt"
	"github.com/nerrad567/homebus/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/homebus.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting homebus",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, "homebus", version)

	m := metrics.New()
	checks := make(map[string]api.HealthChecker)
	deps := coordinator.Deps{
		Metrics: m,
		Logger:  log.Component("coordinator"),
	}

	// Command audit trail (optional)
	var trail *audit.Trail
	if cfg.Database.Enabled {
		db, dbErr := database.Open(cfg.Database)
		if dbErr != nil {
			return fmt.Errorf("opening database: %w", dbErr)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		applied, migErr := db.Migrate(ctx, migrations.FS)
		if migErr != nil {
			return fmt.Errorf("running migrations: %w", migErr)
		}
		log.Info("database ready", "path", db.Path(), "migrations_applied", applied)

		trail = audit.NewTrail(db.DB, log.Component("audit"))
		deps.Commands = trail
		checks["database"] = db
	} else {
		log.Info("command audit trail disabled")
	}

	// Sensor telemetry (optional)
	if cfg.InfluxDB.Enabled {
		influx, influxErr := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Home.ID)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influx.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influx.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)

		deps.Telemetry = influx
		checks["influxdb"] = influx
	} else {
		log.Info("InfluxDB disabled")
	}

	catalogue, err := automation.LoadCatalogue(cfg.Profiles)
	if err != nil {
		return fmt.Errorf("loading profiles: %w", err)
	}
	deps.Catalogue = catalogue
	deps.Rooms = device.NewRooms(cfg.Home.Rooms...)
	deps.Registry = device.NewRegistry()
	deps.Registry.SetLogger(log.Component("registry"))

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	go hub.Run(ctx)
	deps.Hub = hub

	// Connect to MQTT with the coordinator's disconnect notice as last will
	topics := mqtt.Topics{Prefix: cfg.MQTT.TopicPrefix}
	qos := byte(cfg.MQTT.QoS) //nolint:gosec // validated to 0..2
	will, err := coordinator.Will(topics, cfg.Coordinator.Identity, qos)
	if err != nil {
		return fmt.Errorf("building last will: %w", err)
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT, will)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	checks["mqtt"] = mqttClient
	deps.Bus = mqttClient

	coord, err := coordinator.New(coordinator.Options{
		Identity:      cfg.Coordinator.Identity,
		Topics:        topics,
		QoS:           qos,
		RequestTTL:    cfg.Coordinator.RequestTTLDuration(),
		SweepInterval: cfg.Coordinator.SweepIntervalDuration(),
	}, deps)
	if err != nil {
		return fmt.Errorf("creating coordinator: %w", err)
	}
	if err := coord.Start(); err != nil {
		return fmt.Errorf("starting coordinator: %w", err)
	}
	defer coord.Stop()
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
		if err := coord.ClearWill(); err != nil {
			log.Warn("failed to clear coordinator will", "error", err)
		}
	})

	if name := cfg.Coordinator.InitialProfile; name != "" {
		if _, err := coord.ActivateProfile(ctx, name); err != nil {
			return fmt.Errorf("activating initial profile: %w", err)
		}
		log.Info("profile active", "profile", name)
	}

	if cfg.API.Enabled {
		apiDeps := api.Deps{
			Config:      cfg.API,
			WS:          cfg.WebSocket,
			Logger:      log.Component("api"),
			Coordinator: coord,
			Metrics:     m,
			Checks:      checks,
			Hub:         hub,
			Version:     version,
		}
		if trail != nil {
			apiDeps.Trail = trail
		}
		srv, srvErr := api.New(apiDeps)
		if srvErr != nil {
			return fmt.Errorf("creating API server: %w", srvErr)
		}
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	if err := coord.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("coordinator: %w", err)
	}

	// Deferred calls run in reverse: API, pending requests, MQTT (publishing
	// the will), InfluxDB, database.
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HOMEBUS_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HOMEBUS_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck runs every registered check and returns the first failure.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for name, c := range checks {
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
