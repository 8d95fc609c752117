package device

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/homebus/internal/protocol"
)

// Logger defines the logging interface used by the Registry.
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

// Registry holds the registered devices.
//
// Records are keyed by full Identity. All public methods are thread-safe
// and return copies.
type Registry struct {
	devices map[Identity]*Device
	seq     uint64
	mu      sync.RWMutex
	logger  Logger
	now     func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[Identity]*Device),
		logger:  noopLogger{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Add inserts a device record.
//
// Returns false, leaving the registry unchanged, when an equal identity is
// already present.
func (r *Registry) Add(id Identity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[id]; exists {
		return false
	}

	now := r.now()
	r.seq++
	r.devices[id] = &Device{
		Identity:     id,
		RegisteredAt: now,
		LastSeen:     now,
		seq:          r.seq,
	}

	r.logger.Info("device added", "name", id.Name, "room", id.Room, "type", id.Type)
	return true
}

// Contains reports whether an equal identity is registered.
func (r *Registry) Contains(id Identity) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.devices[id]
	return ok
}

// Remove deletes every record with the given name and returns how many
// were removed.
func (r *Registry) Remove(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id := range r.devices {
		if id.Name == name {
			delete(r.devices, id)
			removed++
		}
	}

	if removed > 0 {
		r.logger.Info("device removed", "name", name, "records", removed)
	}
	return removed
}

// RemoveAll empties the registry.
func (r *Registry) RemoveAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices = make(map[Identity]*Device)
	r.logger.Info("registry cleared")
}

// All returns every record in registration order.
func (r *Registry) All() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(*Device) bool { return true })
}

// InRoom returns the records in a room, in registration order.
func (r *Registry) InRoom(room string) []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(d *Device) bool { return d.Room == room })
}

// collect copies matching records sorted by registration order.
// Caller must hold at least the read lock.
func (r *Registry) collect(match func(*Device) bool) []Device {
	devices := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		if match(d) {
			devices = append(devices, *d.DeepCopy())
		}
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].seq < devices[j].seq
	})
	return devices
}

// FindByName returns the most recently registered record with the name.
func (r *Registry) FindByName(name string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d := r.findLocked(name)
	if d == nil {
		return Device{}, false
	}
	return *d.DeepCopy(), true
}

func (r *Registry) findLocked(name string) *Device {
	var found *Device
	for _, d := range r.devices {
		if d.Name == name && (found == nil || d.seq > found.seq) {
			found = d
		}
	}
	return found
}

// Count returns the number of records.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// ApplyCommand records the effect of an acknowledged command or reading.
//
// turnOn and turnOff set IsOn; setValue and update store the value. Every
// command refreshes LastSeen. Unknown command names only refresh LastSeen.
//
// Returns:
//   - Device: Copy of the updated record
//   - bool: Whether the observed state changed
//   - error: ErrDeviceNotFound if no record has the name
func (r *Registry) ApplyCommand(name, command string, value *string) (Device, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := r.findLocked(name)
	if d == nil {
		return Device{}, false, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}

	changed := false
	switch command {
	case protocol.CommandTurnOn:
		changed = !d.IsOn
		d.IsOn = true
	case protocol.CommandTurnOff:
		changed = d.IsOn
		d.IsOn = false
	case protocol.CommandSetValue, protocol.CommandUpdate:
		changed = !sameValue(d.Value, value)
		if value == nil {
			d.Value = nil
		} else {
			v := *value
			d.Value = &v
		}
	}
	d.LastSeen = r.now()

	if changed {
		r.logger.Debug("device state changed", "name", name, "command", command)
	}
	return *d.DeepCopy(), changed, nil
}

func sameValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ActiveConsumption sums the consumption of every device that is on.
// It is computed on every call because on/off state changes asynchronously.
func (r *Registry) ActiveConsumption() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total float64
	for _, d := range r.devices {
		if d.IsOn {
			total += d.Consumption
		}
	}
	return total
}

// Stats summarises the registry for monitoring.
type Stats struct {
	TotalDevices int
	DevicesOn    int
	ByType       map[Type]int
	ByRoom       map[string]int
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		TotalDevices: len(r.devices),
		ByType:       make(map[Type]int),
		ByRoom:       make(map[string]int),
	}
	for _, d := range r.devices {
		stats.ByType[d.Type]++
		stats.ByRoom[d.Room]++
		if d.IsOn {
			stats.DevicesOn++
		}
	}
	return stats
}
