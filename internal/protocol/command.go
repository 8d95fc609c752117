package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CommandID correlates a command with its acknowledgement.
type CommandID int64

// NullCommandID marks a command that awaits no acknowledgement.
// It is encoded as JSON null.
const NullCommandID CommandID = -1

// Command vocabulary.
const (
	CommandTurnOn   = "turnOn"
	CommandTurnOff  = "turnOff"
	CommandSetValue = "setValue"

	// CommandUpdate marks a device-originated reading.
	CommandUpdate = "update"
)

// Registration message bodies.
const (
	VerbRegister     = "register"
	VerbDisconnected = "disconnected"

	// RegisterSuccess acknowledges a registration on the device subscribe topic.
	RegisterSuccess = "register_success"
)

// Command is a single device command.
type Command struct {
	ID    CommandID
	Name  string
	Value *string
}

// OneWay builds a command that expects no acknowledgement.
func OneWay(name string, value *string) Command {
	return Command{ID: NullCommandID, Name: name, Value: value}
}

// AwaitsAck reports whether the command carries a correlation id.
func (c Command) AwaitsAck() bool {
	return c.ID != NullCommandID
}

// ValueString returns the value, or "" when absent.
func (c Command) ValueString() string {
	if c.Value == nil {
		return ""
	}
	return *c.Value
}

type wireCommand struct {
	ID      *int64  `json:"id"`
	Command string  `json:"command"`
	Value   *string `json:"value"`
}

// MarshalJSON encodes NullCommandID as null.
func (c Command) MarshalJSON() ([]byte, error) {
	w := wireCommand{Command: c.Name, Value: c.Value}
	if c.ID != NullCommandID {
		id := int64(c.ID)
		w.ID = &id
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a null or missing id as NullCommandID.
func (c *Command) UnmarshalJSON(data []byte) error {
	var w wireCommand
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.ID = NullCommandID
	if w.ID != nil {
		c.ID = CommandID(*w.ID)
	}
	c.Name = w.Command
	c.Value = w.Value
	return nil
}

// String serializes the command for use as an envelope payload.
func (c Command) String() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return string(data)
}

// ParseCommand decodes an envelope payload into a Command.
func ParseCommand(payload string) (Command, error) {
	var c Command
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrMalformedCommand, err)
	}
	if c.Name == "" {
		return Command{}, fmt.Errorf("%w: missing command name", ErrMalformedCommand)
	}
	return c, nil
}

// RegisterBody returns the registration request body for a device.
func RegisterBody(name string) string {
	return VerbRegister + "_" + name
}

// DisconnectedBody returns the disconnect notice body for a device or coordinator.
func DisconnectedBody(name string) string {
	return VerbDisconnected + "_" + name
}

// ParseRegistration splits "<verb>_<name>" bodies. Names may contain
// underscores; the verb never does.
func ParseRegistration(body string) (verb, name string, ok bool) {
	verb, name, ok = strings.Cut(body, "_")
	if !ok || name == "" {
		return "", "", false
	}
	return verb, name, true
}
