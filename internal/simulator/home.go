package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/nerrad567/homebus/internal/device"
	"github.com/nerrad567/homebus/internal/infrastructure/config"
	"github.com/nerrad567/homebus/internal/infrastructure/mqtt"
)

// defaultReadingInterval applies when the configured interval is not positive.
const defaultReadingInterval = 5 * time.Second

// Dialer opens the broker connection for one device with its last will.
type Dialer func(id device.Identity, will mqtt.Will) (Bus, error)

// Home is a set of simulated devices ticking on a shared interval.
type Home struct {
	devices  []*Device
	interval time.Duration
	logger   Logger
}

// NewHome builds the configured devices, dialling one connection each.
//
// Parameters:
//   - cfg: Simulator section of homebus.yaml
//   - topics: Topic scheme shared with the coordinator
//   - qos: QoS for every publish and subscription
//   - dial: Opens a connection carrying the device's last will
//   - seed: Seeds the reading generators; equal seeds give equal readings
//   - logger: Optional
//
// Returns:
//   - *Home: Devices ready for Run
//   - error: For an invalid device entry or a failed dial
func NewHome(cfg config.SimulatorConfig, topics mqtt.Topics, qos byte, dial Dialer, seed uint64, logger Logger) (*Home, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	interval := time.Duration(cfg.ReadingInterval) * time.Second
	if interval <= 0 {
		interval = defaultReadingInterval
	}

	h := &Home{interval: interval, logger: logger}
	for i, dc := range cfg.Devices {
		t, err := device.ParseType(dc.Type)
		if err != nil {
			return nil, fmt.Errorf("simulator device %d (%s): %w", i, dc.Name, err)
		}
		id := device.Identity{Name: dc.Name, Room: dc.Room, Type: t, Consumption: dc.Consumption}

		will, err := Will(topics, id, qos)
		if err != nil {
			return nil, err
		}
		bus, err := dial(id, will)
		if err != nil {
			return nil, fmt.Errorf("connecting %s: %w", dc.Name, err)
		}

		rng := rand.New(rand.NewPCG(seed, uint64(i)))
		d, err := NewDevice(id, topics, qos, bus, NewGenerator(t, rng), logger)
		if err != nil {
			return nil, fmt.Errorf("simulator device %d (%s): %w", i, dc.Name, err)
		}
		h.devices = append(h.devices, d)
	}
	return h, nil
}

// Devices returns the simulated devices in configuration order.
func (h *Home) Devices() []*Device {
	return h.devices
}

// Run starts every device, ticks them until ctx is cancelled, then stops them.
func (h *Home) Run(ctx context.Context) error {
	for _, d := range h.devices {
		if err := d.Start(); err != nil {
			return err
		}
	}
	h.logger.Info("simulator running", "devices", len(h.devices), "interval", h.interval)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return h.stop()
		case <-ticker.C:
			h.tick()
		}
	}
}

func (h *Home) tick() {
	for _, d := range h.devices {
		if err := d.Tick(); err != nil {
			h.logger.Warn("simulator tick failed", "name", d.Identity().Name, "error", err)
		}
	}
}

func (h *Home) stop() error {
	var errs []error
	for _, d := range h.devices {
		if err := d.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stopping %s: %w", d.Identity().Name, err))
		}
	}
	return errors.Join(errs...)
}
