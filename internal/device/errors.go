package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when no registered device has the given name.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrUnexpectedDeviceType is returned when a device type is not recognised.
	ErrUnexpectedDeviceType = errors.New("device: unexpected type")

	// ErrInvalidDevice is returned when identity validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidName is returned when a device or room name is empty or too long.
	ErrInvalidName = errors.New("device: invalid name")
)
