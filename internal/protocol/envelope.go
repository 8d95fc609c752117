package protocol

import (
	"encoding/json"
	"fmt"
)

// Envelope is a decoded bus message.
//
// Payload and Sender are nil when the encoding side passed none.
type Envelope struct {
	Payload *string
	Sender  Sender
}

type wireEnvelope struct {
	Payload *string     `json:"payload"`
	Sender  *wireSender `json:"sender"`
}

// Encode serializes a payload and its sender into envelope bytes.
//
// Parameters:
//   - payload: Message body, or nil for none
//   - sender: Message origin, or nil for none
//
// Returns:
//   - []byte: JSON envelope ready to publish
//   - error: Only if JSON encoding fails
func Encode(payload *string, sender Sender) ([]byte, error) {
	data, err := json.Marshal(wireEnvelope{
		Payload: payload,
		Sender:  toWire(sender),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding envelope: %w", err)
	}
	return data, nil
}

// EncodeString is Encode for a non-nil text payload.
func EncodeString(payload string, sender Sender) ([]byte, error) {
	return Encode(&payload, sender)
}

// Decode parses envelope bytes.
//
// Returns ErrMalformedEnvelope for invalid JSON or a sender whose body does
// not match its kind, and ErrUnexpectedSender for an unknown kind.
func Decode(raw []byte) (Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(raw, &w); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
	}

	sender, err := fromWire(w.Sender)
	if err != nil {
		return Envelope{}, err
	}

	return Envelope{Payload: w.Payload, Sender: sender}, nil
}

// DecodeSender returns the envelope's sender when it is of type T.
//
// A missing sender or a sender of another kind yields the zero value of T
// (nil) and no error. Only undecodable input is an error.
//
// Example:
//
//	dev, err := protocol.DecodeSender[*protocol.DeviceSender](raw)
//	if err == nil && dev == nil {
//	    // not sent by a device
//	}
func DecodeSender[T Sender](raw []byte) (T, error) {
	var zero T

	env, err := Decode(raw)
	if err != nil {
		return zero, err
	}

	s, ok := env.Sender.(T)
	if !ok {
		return zero, nil
	}
	return s, nil
}

// DecodePayload returns the envelope payload, or nil when it was encoded absent.
func DecodePayload(raw []byte) (*string, error) {
	env, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return env.Payload, nil
}

// Body returns the payload text, or "" when absent.
func (e Envelope) Body() string {
	if e.Payload == nil {
		return ""
	}
	return *e.Payload
}

// Device returns the sender as a device, or nil.
func (e Envelope) Device() *DeviceSender {
	d, _ := e.Sender.(*DeviceSender)
	return d
}
