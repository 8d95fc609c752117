package coordinator

import (
	"context"
	"fmt"

	"github.com/nerrad567/homebus/internal/automation"
	"github.com/nerrad567/homebus/internal/device"
	"github.com/nerrad567/homebus/internal/infrastructure/mqtt"
	"github.com/nerrad567/homebus/internal/protocol"
)

// handleUpdate processes a command message a device published: a reading,
// a state echo or an acknowledgement.
func (c *Coordinator) handleUpdate(ctx context.Context, dt mqtt.DeviceTopic, payload []byte) error {
	env, err := c.decode(payload)
	if err != nil {
		return err
	}

	sender := env.Device()
	if sender == nil || sender.Name != dt.Name {
		return fmt.Errorf("%w: publish on %s/%s not sent by that device", ErrUnexpectedDevice, dt.DeviceType, dt.Name)
	}

	rec, found := c.registry.FindByName(dt.Name)
	if !found {
		return fmt.Errorf("%w: %s is not registered", ErrUnexpectedDevice, dt.Name)
	}
	if string(rec.Type) != dt.DeviceType {
		return fmt.Errorf("%w: %s is a %s, topic says %s", device.ErrUnexpectedDeviceType, dt.Name, rec.Type, dt.DeviceType)
	}

	cmd, err := protocol.ParseCommand(env.Body())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnexpectedMessage, err)
	}

	updated, changed, err := c.registry.ApplyCommand(rec.Name, cmd.Name, cmd.Value)
	if err != nil {
		return err
	}

	if cmd.AwaitsAck() {
		c.acknowledge(ctx, rec.Name, cmd)
	}

	if changed {
		c.hub.Broadcast(ChannelDeviceStateChanged, updated)
		if cmd.Name == protocol.CommandTurnOn || cmd.Name == protocol.CommandTurnOff {
			c.observeRegistry()
			c.telemetry.WriteConsumption(c.registry.ActiveConsumption(), c.registry.GetStats().DevicesOn)
		}
	}

	if rec.Type.IsSensor() && cmd.Name == protocol.CommandUpdate {
		return c.notifySensor(ctx, updated, cmd)
	}
	return nil
}

// acknowledge resolves the pending request the reply carries the id of,
// provided it was sent to name.
func (c *Coordinator) acknowledge(ctx context.Context, name string, reply protocol.Command) {
	age, _ := c.requests.Age(reply.ID)
	if !c.requests.Resolve(reply.ID, name, reply) {
		c.logger.Debug("acknowledgement for no request pending on this device", "name", name, "id", reply.ID)
		return
	}

	c.logger.Debug("request acknowledged", "name", name, "id", reply.ID, "latency", age)
	c.metrics.CommandAcknowledged(age)
	c.metrics.ObservePending(c.requests.Len())
	c.commands.CommandAcknowledged(ctx, reply.ID, reply)
	c.hub.Broadcast(ChannelCommandAcknowledged, map[string]any{
		"id":      reply.ID,
		"device":  name,
		"command": reply.Name,
		"value":   reply.Value,
	})
}

// notifySensor hands a reading to the active profile.
func (c *Coordinator) notifySensor(ctx context.Context, rec device.Device, reading protocol.Command) error {
	n, err := automation.NewNotification(rec.Type, rec.Room, reading.ValueString())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnexpectedMessage, err)
	}

	value := n.Value
	if rec.Type == device.TypeMotionSensor {
		value = 0
		if n.Motion {
			value = 1
		}
	}
	c.metrics.SensorReading(string(rec.Type))
	c.telemetry.WriteSensorReading(rec.Name, rec.Room, string(rec.Type), value)

	return c.engine.OnSensorNotification(ctx, n)
}
