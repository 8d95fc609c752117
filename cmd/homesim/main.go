// homesim runs the simulated devices declared in the simulator section of
// homebus.yaml. Each device holds its own MQTT connection whose last will
// deregisters it if the process dies.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/nerrad567/homebus/internal/device"
	"github.com/nerrad567/homebus/internal/infrastructure/config"
	"github.com/nerrad567/homebus/internal/infrastructure/logging"
	"github.com/nerrad567/homebus/internal/infrastructure/mqtt"
	"github.com/nerrad567/homebus/internal/simulator"
)

var version = "dev"

const defaultConfigPath = "configs/homebus.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logging.New(cfg.Logging, "homesim", version)

	if len(cfg.Simulator.Devices) == 0 {
		return fmt.Errorf("no simulated devices in %s", configPath)
	}

	conns := &connections{cfg: cfg.MQTT, log: log.Component("mqtt")}
	defer conns.closeAll()

	topics := mqtt.Topics{Prefix: cfg.MQTT.TopicPrefix}
	qos := byte(cfg.MQTT.QoS) //nolint:gosec // validated to 0..2
	home, err := simulator.NewHome(cfg.Simulator, topics, qos, conns.dial, getSeed(), log.Component("simulator"))
	if err != nil {
		return fmt.Errorf("building simulated home: %w", err)
	}

	log.Info("simulated home ready", "devices", len(home.Devices()), "config", configPath)
	return home.Run(ctx)
}

// connections dials one broker connection per simulated device.
type connections struct {
	cfg config.MQTTConfig
	log *logging.Logger

	mu      sync.Mutex
	clients []*mqtt.Client
}

func (c *connections) dial(id device.Identity, will mqtt.Will) (simulator.Bus, error) {
	cfg := c.cfg
	cfg.Broker.ClientID = "homesim-" + id.Name

	client, err := mqtt.Connect(cfg, will)
	if err != nil {
		return nil, err
	}
	client.SetLogger(c.log.With("device", id.Name))

	c.mu.Lock()
	c.clients = append(c.clients, client)
	c.mu.Unlock()
	return client, nil
}

func (c *connections) closeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, client := range c.clients {
		if err := client.Close(); err != nil {
			c.log.Error("error closing MQTT", "error", err)
		}
	}
	c.clients = nil
}

// getConfigPath returns HOMEBUS_CONFIG, or the default path.
func getConfigPath() string {
	if path := os.Getenv("HOMEBUS_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// getSeed returns HOMESIM_SEED for reproducible readings, or the current time.
func getSeed() uint64 {
	if v := os.Getenv("HOMESIM_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			return seed
		}
	}
	return uint64(time.Now().UnixNano()) //nolint:gosec // non-negative clock value
}
