package automation

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/homebus/internal/device"
	"github.com/nerrad567/homebus/internal/protocol"
)

// Logger defines the logging interface used by the Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// DeviceSource lists registered devices. *device.Registry satisfies it.
type DeviceSource interface {
	All() []device.Device
}

// Commander delivers one command to one device.
type Commander interface {
	SendCommand(ctx context.Context, target device.Device, cmd protocol.Command) error
}

// WSHub is the interface for broadcasting WebSocket events.
type WSHub interface {
	Broadcast(channel string, payload any)
}

// ChannelProfileActivated is the WebSocket channel for activation events.
const ChannelProfileActivated = "profile.activated"

// Engine holds the active profile and dispatches activations and sensor
// notifications to it.
//
// Thread Safety: all methods are safe for concurrent use.
type Engine struct {
	catalogue *Catalogue
	devices   DeviceSource
	commander Commander
	hub       WSHub
	logger    Logger

	active Profile
	mu     sync.RWMutex
}

// NewEngine creates a profile engine with no active profile.
//
// Parameters:
//   - catalogue: Profiles available for ActivateByName
//   - devices: Source of the registered devices
//   - commander: Sends the commands profiles produce
//   - hub: WebSocket hub for activation events (may be nil)
//   - logger: Logger instance (may be nil)
func NewEngine(catalogue *Catalogue, devices DeviceSource, commander Commander, hub WSHub, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		catalogue: catalogue,
		devices:   devices,
		commander: commander,
		hub:       hub,
		logger:    logger,
	}
}

// Catalogue returns the engine's profile catalogue.
func (e *Engine) Catalogue() *Catalogue {
	return e.catalogue
}

// Active returns the active profile, or nil before the first activation.
func (e *Engine) Active() Profile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active
}

// Activate makes p the active profile and runs its activation routine.
//
// Activating a profile with the same name as the active one does nothing
// and returns false.
func (e *Engine) Activate(ctx context.Context, p Profile) bool {
	e.mu.Lock()
	if e.active != nil && e.active.Name() == p.Name() {
		e.mu.Unlock()
		return false
	}
	previous := ""
	if e.active != nil {
		previous = e.active.Name()
	}
	e.active = p
	e.mu.Unlock()

	e.logger.Info("profile activated", "profile", p.Name(), "previous", previous)
	p.OnActivate(ctx, e)

	if e.hub != nil {
		e.hub.Broadcast(ChannelProfileActivated, map[string]any{
			"profile":  p.Name(),
			"kind":     string(p.Kind()),
			"previous": previous,
		})
	}
	return true
}

// ActivateByName looks the profile up in the catalogue and activates it.
func (e *Engine) ActivateByName(ctx context.Context, name string) (bool, error) {
	p, err := e.catalogue.Get(name)
	if err != nil {
		return false, err
	}
	return e.Activate(ctx, p), nil
}

// OnSensorNotification hands a reading to the active profile.
func (e *Engine) OnSensorNotification(ctx context.Context, n Notification) error {
	if !n.Kind.IsSensor() {
		return fmt.Errorf("%w: %s is not a sensor", device.ErrUnexpectedDeviceType, n.Kind)
	}

	p := e.Active()
	if p == nil {
		return nil
	}

	e.logger.Debug("sensor notification",
		"profile", p.Name(),
		"kind", n.Kind,
		"room", n.Room,
		"value", n.Value,
		"motion", n.Motion,
	)
	p.OnNotification(ctx, e, n)
	return nil
}

// Devices implements Applier.
func (e *Engine) Devices() []device.Device {
	return e.devices.All()
}

// ApplyCommands implements Applier.
//
// Every device passing filter is offered every command in set. A command
// is sent only when its Target names the device; for any other device it
// is a no-op. Send failures are logged and do not stop the iteration.
func (e *Engine) ApplyCommands(ctx context.Context, set CommandSet, filter RoomFilter) int {
	if filter == nil {
		filter = AllRooms
	}

	sent := 0
	for _, d := range e.devices.All() {
		if !filter(d) {
			continue
		}
		for _, c := range set {
			if !c.AppliesTo(d) {
				continue
			}
			cmd := protocol.OneWay(c.Action.Name, c.Action.Value)
			if err := e.commander.SendCommand(ctx, d, cmd); err != nil {
				e.logger.Warn("profile command failed",
					"device", d.Name,
					"command", c.Action.Name,
					"error", err,
				)
				continue
			}
			sent++
		}
	}
	return sent
}
