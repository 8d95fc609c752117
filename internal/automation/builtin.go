package automation

import (
	"github.com/nerrad567/homebus/internal/device"
	"github.com/nerrad567/homebus/internal/protocol"
)

// Built-in profile names.
const (
	DefaultProfileName = "Default"
	NightProfileName   = "Night"
)

var (
	turnOn  = Action{Name: protocol.CommandTurnOn}
	turnOff = Action{Name: protocol.CommandTurnOff}
)

func closedShutter() Action {
	v := "0"
	return Action{Name: protocol.CommandSetValue, Value: &v}
}

// DefaultProfile does nothing. It is the profile a fresh coordinator starts with.
func DefaultProfile() *BasicProfile {
	return NewBasicProfile(DefaultProfileName, "Leaves every device alone", nil, nil)
}

// NightProfile switches the house to night mode.
//
// On activation lights, TVs, stereos and ovens turn off and shutters close.
// Temperature readings turn air conditioners off, humidity readings turn
// dehumidifiers on and detected motion turns lights on.
func NightProfile() *BasicProfile {
	return NewBasicProfile(NightProfileName, "Shuts the house down for the night",
		TypeActions{
			device.TypeLight:        turnOff,
			device.TypeTV:           turnOff,
			device.TypeStereoSystem: turnOff,
			device.TypeOven:         turnOff,
			device.TypeShutter:      closedShutter(),
		},
		map[device.Type]TypeActions{
			device.TypeThermometer:  {device.TypeAirConditioner: turnOff},
			device.TypeHygrometer:   {device.TypeDehumidifier: turnOn},
			device.TypeMotionSensor: {device.TypeLight: turnOn},
		},
	)
}
