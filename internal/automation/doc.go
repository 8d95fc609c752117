// Package automation provides the profile rule engine for homebus.
//
// A profile decides what the house does when it is activated and when a
// sensor reports. Exactly one profile is active at a time.
//
// Architecture:
//
//	┌───────────────────────────────────────────────────────┐
//	│                  Engine (engine.go)                    │
//	│  active profile, activation, sensor dispatch           │
//	│  ┌──────────────┐    ┌──────────────────────────┐     │
//	│  │  Catalogue   │    │  Profiles (profile.go)   │     │
//	│  │(catalogue.go)│───▶│  • Basic: type routines  │     │
//	│  └──────────────┘    │  • Custom: rule tables   │     │
//	│                      └──────────────────────────┘     │
//	│        │                                              │
//	│        ▼                                              │
//	│  ApplyCommands(set, roomFilter)                       │
//	│  for each device passing the filter, for each bound   │
//	│  command: send when Target == device name             │
//	└───────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Command: an Action bound to one target device by name
//   - Predicate: comparison of a reading against a threshold ("<", ">=", ...)
//   - Rule: Predicate plus the CommandSet it fires
//   - BasicProfile: fixed per-device-type routines (Default, Night)
//   - CustomProfile: activation set, ordered rules per sensor kind, motion set
//
// # Rule evaluation
//
// Custom rules for a sensor kind are evaluated in insertion order and the
// first matching predicate wins. Its commands apply only to devices in the
// notifying room. Motion readings of false are ignored.
//
// # Thread Safety
//
// Engine and Catalogue are safe for concurrent use.
package automation
