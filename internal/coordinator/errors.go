package coordinator

import "errors"

// Protocol errors for the coordinator package.
//
// Inbound anomalies are reported through these sentinels, counted and
// dropped. None of them stops the coordinator:
//
//	if errors.Is(err, coordinator.ErrUnexpectedDevice) {
//	    // sender missing, not a device, or not matching the body
//	}
var (
	// ErrUnexpectedTopic is returned for messages on a topic the coordinator does not route.
	ErrUnexpectedTopic = errors.New("coordinator: unexpected topic")

	// ErrUnexpectedMessage is returned for a body that is not a known verb or command.
	ErrUnexpectedMessage = errors.New("coordinator: unexpected message")

	// ErrUnexpectedDevice is returned when the sender cannot be used as a device.
	ErrUnexpectedDevice = errors.New("coordinator: unexpected device")

	// ErrRequestExpired fails a pending request that outlived the request TTL.
	ErrRequestExpired = errors.New("coordinator: request expired")

	// ErrShutdown fails pending requests when the coordinator stops.
	ErrShutdown = errors.New("coordinator: shut down")
)
