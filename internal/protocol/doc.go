// Package protocol implements the homebus wire format.
//
// Every MQTT payload exchanged between the coordinator and devices is an
// Envelope: an optional text payload plus the identity of whoever sent
// it. The sender is a tagged union so a receiver can rebuild the concrete
// sender type without knowing in advance who is talking:
//
//	{"payload": "register_lamp-1",
//	 "sender": {"kind": "device",
//	            "device": {"name": "lamp-1", "room": "Kitchen", "type": "Light", "consumption": 10}}}
//
// An absent payload or sender is encoded as JSON null and decodes back to
// nil, never to an empty value.
//
// Command messages travel as the envelope payload:
//
//	{"id": 7, "command": "turnOn", "value": null}
//
// A null id (NullCommandID) marks a one-way command that expects no
// acknowledgement.
//
// The package knows nothing about topics or the device registry.
package protocol
