package automation

import (
	"fmt"
	"strconv"

	"github.com/nerrad567/homebus/internal/device"
)

// Notification is a sensor reading delivered to the active profile.
type Notification struct {
	Kind device.Type
	Room string

	// Value holds Thermometer, Hygrometer and Photometer readings.
	Value float64

	// Motion holds MotionSensor readings.
	Motion bool
}

// NewNotification parses a raw sensor reading for kind.
//
// Returns device.ErrUnexpectedDeviceType when kind is not a sensor and
// ErrUnexpectedValue when the reading does not parse.
func NewNotification(kind device.Type, room, raw string) (Notification, error) {
	n := Notification{Kind: kind, Room: room}

	switch kind {
	case device.TypeMotionSensor:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Notification{}, fmt.Errorf("%w: motion reading %q", ErrUnexpectedValue, raw)
		}
		n.Motion = b
	case device.TypeThermometer, device.TypeHygrometer, device.TypePhotometer:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || !isFinite(v) {
			return Notification{}, fmt.Errorf("%w: %s reading %q", ErrUnexpectedValue, kind, raw)
		}
		n.Value = v
	default:
		return Notification{}, fmt.Errorf("%w: %s is not a sensor", device.ErrUnexpectedDeviceType, kind)
	}
	return n, nil
}
