package coordinator

import (
	"context"
	"time"

	"github.com/nerrad567/homebus/internal/protocol"
)

// Logger defines the logging interface used by the Coordinator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// WSHub is the interface for broadcasting WebSocket events.
type WSHub interface {
	Broadcast(channel string, payload any)
}

// Metrics receives coordinator counters and gauges.
type Metrics interface {
	ProtocolError(kind string)
	CommandSent(origin string)
	CommandAcknowledged(latency time.Duration)
	RequestsExpired(n int)
	SensorReading(kind string)
	ObserveRegistry(devices, devicesOn int, consumption float64)
	ObservePending(n int)
}

// Telemetry receives time-series points.
type Telemetry interface {
	WriteSensorReading(name, room, kind string, value float64)
	WriteConsumption(watts float64, devicesOn int)
}

// CommandLog records outbound commands and their acknowledgements.
type CommandLog interface {
	CommandSent(ctx context.Context, id protocol.CommandID, target string, cmd protocol.Command, origin string)
	CommandAcknowledged(ctx context.Context, id protocol.CommandID, reply protocol.Command)
}

// Command origins.
const (
	OriginRequest = "request"
	OriginProfile = "profile"
)

// WebSocket channels.
const (
	ChannelDeviceRegistered    = "device.registered"
	ChannelDeviceRemoved       = "device.removed"
	ChannelDeviceStateChanged  = "device.state_changed"
	ChannelCommandAcknowledged = "command.acknowledged"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopHub struct{}

func (noopHub) Broadcast(string, any) {}

type noopMetrics struct{}

func (noopMetrics) ProtocolError(string)              {}
func (noopMetrics) CommandSent(string)                {}
func (noopMetrics) CommandAcknowledged(time.Duration) {}
func (noopMetrics) RequestsExpired(int)               {}
func (noopMetrics) SensorReading(string)              {}
func (noopMetrics) ObserveRegistry(int, int, float64) {}
func (noopMetrics) ObservePending(int)                {}

type noopTelemetry struct{}

func (noopTelemetry) WriteSensorReading(string, string, string, float64) {}
func (noopTelemetry) WriteConsumption(float64, int)                      {}

type noopCommandLog struct{}

func (noopCommandLog) CommandSent(context.Context, protocol.CommandID, string, protocol.Command, string) {}
func (noopCommandLog) CommandAcknowledged(context.Context, protocol.CommandID, protocol.Command)         {}
