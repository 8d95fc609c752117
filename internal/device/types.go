package device

import (
	"time"

	"github.com/nerrad567/homebus/internal/protocol"
)

// Type classifies a device. The string form is used on the wire and in
// topic names, so values must not change.
type Type string

// Actuator types.
const (
	TypeLight          Type = "Light"
	TypeShutter        Type = "Shutter"
	TypeAirConditioner Type = "AirConditioner"
	TypeDehumidifier   Type = "Dehumidifier"
	TypeBoiler         Type = "Boiler"
	TypeOven           Type = "Oven"
	TypeStereoSystem   Type = "StereoSystem"
	TypeTV             Type = "TV"
	TypeWashingMachine Type = "WashingMachine"
	TypeDishWasher     Type = "DishWasher"
)

// Sensor types.
const (
	TypeThermometer  Type = "Thermometer"
	TypeHygrometer   Type = "Hygrometer"
	TypePhotometer   Type = "Photometer"
	TypeMotionSensor Type = "MotionSensor"
)

// AllTypes returns every known device type.
func AllTypes() []Type {
	return []Type{
		TypeLight, TypeShutter, TypeAirConditioner, TypeDehumidifier,
		TypeBoiler, TypeOven, TypeStereoSystem, TypeTV,
		TypeWashingMachine, TypeDishWasher,
		TypeThermometer, TypeHygrometer, TypePhotometer, TypeMotionSensor,
	}
}

// IsSensor reports whether devices of this type publish readings.
func (t Type) IsSensor() bool {
	switch t {
	case TypeThermometer, TypeHygrometer, TypePhotometer, TypeMotionSensor:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (t Type) String() string {
	return string(t)
}

// Identity is the public, comparable description of a device.
type Identity struct {
	Name        string  `json:"name"`
	Room        string  `json:"room"`
	Type        Type    `json:"type"`
	Consumption float64 `json:"consumption"`
}

// Sender converts the identity into its envelope sender snapshot.
func (id Identity) Sender() *protocol.DeviceSender {
	return &protocol.DeviceSender{
		Name:        id.Name,
		Room:        id.Room,
		Type:        string(id.Type),
		Consumption: id.Consumption,
	}
}

// Device is a registered device record with its observed state.
type Device struct {
	Identity

	// IsOn follows turnOn/turnOff acknowledgements.
	IsOn bool `json:"is_on"`

	// Value is the last setValue acknowledgement or sensor reading.
	Value *string `json:"value,omitempty"`

	RegisteredAt time.Time `json:"registered_at"`
	LastSeen     time.Time `json:"last_seen"`

	seq uint64
}

// DeepCopy returns an independent copy of the record.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}
	cpy := *d
	if d.Value != nil {
		v := *d.Value
		cpy.Value = &v
	}
	return &cpy
}
