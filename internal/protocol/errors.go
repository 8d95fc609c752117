package protocol

import "errors"

var (
	// ErrMalformedEnvelope is returned when raw bytes are not a valid envelope.
	ErrMalformedEnvelope = errors.New("protocol: malformed envelope")

	// ErrUnexpectedSender is returned when the sender kind is not recognised.
	ErrUnexpectedSender = errors.New("protocol: unexpected sender kind")

	// ErrMalformedCommand is returned when a payload is not a valid command message.
	ErrMalformedCommand = errors.New("protocol: malformed command")
)
