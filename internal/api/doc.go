// Package api implements the HTTP REST API and WebSocket server for homebus.
//
// This package provides:
//   - REST endpoints for the device registry, rooms and consumption
//   - Device commands, optionally waiting for the acknowledgement
//   - Profile listing, creation and activation
//   - The command audit trail
//   - WebSocket hub for real-time coordinator events
//   - Prometheus exposition on /metrics
//
// # Architecture
//
// The server is a thin layer over the coordinator. Reads go straight to the
// registry; commands and profile activation go through the coordinator so
// they are correlated and serialized like bus traffic. The Hub is created
// before the coordinator and injected into both, since the coordinator and
// the profile engine broadcast on it.
//
// # WebSocket
//
// Clients connect to /api/v1/ws and subscribe to channels by name, to a
// group such as "device.*", or to "*":
//
//	{"type":"subscribe","id":"1","payload":{"channels":["device.*"]}}
//
// Events arrive as {"type":"event","channel":...,"seq":...,"payload":...}.
// seq increases by one per hub event, so a gap means events were dropped
// for a slow client.
//
// # Graceful Degradation
//
// The audit trail and metrics are optional. Without them the corresponding
// endpoints answer 503 and everything else keeps working.
package api
