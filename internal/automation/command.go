package automation

import (
	"github.com/nerrad567/homebus/internal/device"
)

// Action is a device command without a target.
type Action struct {
	Name  string  `json:"command"`
	Value *string `json:"value,omitempty"`
}

// Command binds an Action to the device named Target.
type Command struct {
	Target string `json:"device"`
	Action Action `json:"action"`
}

// AppliesTo reports whether the command targets d.
func (c Command) AppliesTo(d device.Device) bool {
	return c.Target == d.Name
}

// CommandSet is an unordered collection of bound commands.
type CommandSet []Command

// RoomFilter selects the devices a CommandSet is applied to.
type RoomFilter func(d device.Device) bool

// AllRooms passes every device.
func AllRooms(device.Device) bool { return true }

// InRoom passes devices located in room.
func InRoom(room string) RoomFilter {
	return func(d device.Device) bool { return d.Room == room }
}

// TypeActions maps a device type to the action every device of that type
// receives. Basic profiles are written in terms of TypeActions.
type TypeActions map[device.Type]Action

// Bind produces one bound Command per device whose type has an action.
func (ta TypeActions) Bind(devices []device.Device) CommandSet {
	var set CommandSet
	for _, d := range devices {
		if a, ok := ta[d.Type]; ok {
			set = append(set, Command{Target: d.Name, Action: a})
		}
	}
	return set
}
