// Package device provides the Device Registry for homebus.
//
// The registry is the coordinator's authoritative view of which devices are
// currently registered on the bus, where they are, what they draw and what
// state they last reported.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                        Device Registry                        │
//	│                                                               │
//	│  ┌──────────────────┐  ┌──────────────────┐  ┌─────────────┐  │
//	│  │     Registry     │  │      Rooms       │  │ Validation  │  │
//	│  │  (registry.go)   │  │    (rooms.go)    │  │ (types.go,  │  │
//	│  │ • identity set   │  │ • name set       │  │ validation) │  │
//	│  │ • observed state │  │ • sorted listing │  │             │  │
//	│  └──────────────────┘  └──────────────────┘  └─────────────┘  │
//	└──────────────────────────────────────────────────────────────┘
//	         ▲                         ▲
//	         │                         │
//	   coordinator (registration,   REST API / profile engine
//	   command echoes)              (read-only copies)
//
// # Identity
//
// A record is keyed by its full Identity (name, room, type, consumption).
// Adding an equal identity twice is a no-op. Adding the same name with
// different metadata creates a second record until the first is removed;
// the coordinator removes the stale record before re-adding so the bus view
// keeps one record per name.
//
// # Thread Safety
//
// Registry and Rooms are safe for concurrent use. Every read returns copies.
package device
