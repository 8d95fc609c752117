package coordinator

import (
	"fmt"

	"github.com/nerrad567/homebus/internal/device"
	"github.com/nerrad567/homebus/internal/protocol"
)

// handleRegistration drives the per-device state machine from a message
// on the registration topic.
func (c *Coordinator) handleRegistration(payload []byte) error {
	env, err := c.decode(payload)
	if err != nil {
		return err
	}

	verb, name, ok := protocol.ParseRegistration(env.Body())
	if !ok {
		return fmt.Errorf("%w: registration body %q", ErrUnexpectedMessage, env.Body())
	}
	if verb != protocol.VerbRegister && verb != protocol.VerbDisconnected {
		return fmt.Errorf("%w: registration verb %q", ErrUnexpectedMessage, verb)
	}

	sender := env.Device()
	if sender == nil {
		return fmt.Errorf("%w: %s for %s has no device sender", ErrUnexpectedDevice, verb, name)
	}
	if sender.Name != name {
		return fmt.Errorf("%w: %s for %s sent by %s", ErrUnexpectedDevice, verb, name, sender.Name)
	}

	id, err := device.IdentityFromSender(sender)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnexpectedDevice, err)
	}

	if verb == protocol.VerbRegister {
		return c.register(id)
	}
	return c.disconnect(id)
}

// register moves a device to Registered and acknowledges it.
//
// The publish topic is subscribed before the registry changes, so a failed
// subscribe leaves a previously registered device exactly as it was.
func (c *Coordinator) register(id device.Identity) error {
	prev, found := c.registry.FindByName(id.Name)
	fresh := !found || prev.Identity != id

	topic := c.opts.Topics.DevicePublish(string(id.Type), id.Name)
	if err := c.subscribeDevice(id.Name, topic); err != nil {
		return fmt.Errorf("registering %s: %w", id.Name, err)
	}

	if fresh {
		if found {
			c.registry.Remove(id.Name)
			c.logger.Info("device re-registered with new metadata",
				"name", id.Name,
				"old_room", prev.Room,
				"room", id.Room,
				"old_type", prev.Type,
				"type", id.Type,
			)
		}
		c.registry.Add(id)
		c.rooms.Add(id.Room)
	}

	ack := c.opts.Topics.DeviceSubscribe(string(id.Type), id.Name)
	if err := c.publish(ack, protocol.RegisterSuccess, true); err != nil {
		return fmt.Errorf("acknowledging %s: %w", id.Name, err)
	}

	if !fresh {
		c.logger.Debug("device already registered, acknowledgement re-sent", "name", id.Name)
		return nil
	}

	c.logger.Info("device registered",
		"name", id.Name,
		"room", id.Room,
		"type", id.Type,
		"consumption", id.Consumption,
	)
	c.observeRegistry()
	if d, ok := c.registry.FindByName(id.Name); ok {
		c.hub.Broadcast(ChannelDeviceRegistered, d)
	}
	return nil
}

// disconnect moves a device back to Unknown.
func (c *Coordinator) disconnect(id device.Identity) error {
	removed := c.registry.Remove(id.Name)
	c.unsubscribeDevice(id.Name)

	notice := c.opts.Topics.DeviceSubscribe(string(id.Type), id.Name)
	if err := c.publish(notice, protocol.DisconnectedBody(id.Name), true); err != nil {
		c.logger.Warn("failed to publish disconnect notice", "name", id.Name, "error", err)
	}

	if removed == 0 {
		c.logger.Debug("disconnect for unregistered device", "name", id.Name)
		return nil
	}

	c.logger.Info("device disconnected", "name", id.Name, "room", id.Room)
	c.observeRegistry()
	c.telemetry.WriteConsumption(c.registry.ActiveConsumption(), c.registry.GetStats().DevicesOn)
	c.hub.Broadcast(ChannelDeviceRemoved, map[string]any{
		"name": id.Name,
		"room": id.Room,
		"type": id.Type,
	})
	return nil
}

// subscribeDevice makes topic the one subscribed for name. The new topic
// is subscribed before the old one is dropped; on error nothing changes.
func (c *Coordinator) subscribeDevice(name, topic string) error {
	current, ok := c.subscriptions[name]
	if ok && current == topic {
		return nil
	}
	if err := c.bus.Subscribe(topic, c.opts.QoS, c.HandleMessage); err != nil {
		return err
	}
	c.subscriptions[name] = topic
	if ok {
		if err := c.bus.Unsubscribe(current); err != nil {
			c.logger.Warn("failed to unsubscribe device topic", "name", name, "topic", current, "error", err)
		}
	}
	return nil
}

func (c *Coordinator) unsubscribeDevice(name string) {
	topic, ok := c.subscriptions[name]
	if !ok {
		return
	}
	delete(c.subscriptions, name)
	if err := c.bus.Unsubscribe(topic); err != nil {
		c.logger.Warn("failed to unsubscribe device topic", "name", name, "topic", topic, "error", err)
	}
}
