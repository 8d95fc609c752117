package coordinator

import (
	"context"
	"fmt"

	"github.com/nerrad567/homebus/internal/device"
	"github.com/nerrad567/homebus/internal/protocol"
)

// SendUpdate sends a command that expects an acknowledgement.
//
// Parameters:
//   - ctx: Context passed to the command log
//   - name: Registered device name
//   - command: Command name, e.g. "turnOn"
//   - value: Optional command value
//
// Returns:
//   - *Completion: Resolved when the device echoes the command id
//   - error: device.ErrDeviceNotFound for unknown names, or the publish error
func (c *Coordinator) SendUpdate(ctx context.Context, name, command string, value *string) (*Completion, error) {
	if command == "" {
		return nil, fmt.Errorf("%w: empty command for %s", ErrUnexpectedMessage, name)
	}

	target, found := c.registry.FindByName(name)
	if !found {
		return nil, fmt.Errorf("%w: %s", device.ErrDeviceNotFound, name)
	}

	completion := NewCompletion()
	id := c.requests.Add(target.Name, completion)
	cmd := protocol.Command{ID: id, Name: command, Value: value}

	if err := c.publishCommand(target, cmd); err != nil {
		c.requests.Fail(id, err)
		return nil, fmt.Errorf("sending %s to %s: %w", command, name, err)
	}

	c.logger.Debug("request sent", "name", name, "id", id, "command", command)
	c.metrics.CommandSent(OriginRequest)
	c.metrics.ObservePending(c.requests.Len())
	c.commands.CommandSent(ctx, id, name, cmd, OriginRequest)
	return completion, nil
}

// SendCommand publishes cmd to target without registering a request.
// It implements automation.Commander.
func (c *Coordinator) SendCommand(ctx context.Context, target device.Device, cmd protocol.Command) error {
	if err := c.publishCommand(target, cmd); err != nil {
		return err
	}
	c.metrics.CommandSent(OriginProfile)
	c.commands.CommandSent(ctx, cmd.ID, target.Name, cmd, OriginProfile)
	return nil
}

func (c *Coordinator) publishCommand(target device.Device, cmd protocol.Command) error {
	topic := c.opts.Topics.DeviceSubscribe(string(target.Type), target.Name)
	return c.publish(topic, cmd.String(), false)
}
