// Package coordinator owns the homebus message flow.
//
// The coordinator subscribes to the registration topic and to the publish
// topic of every registered device. Inbound messages are handled one at a
// time:
//
//	registration topic ──▶ register / disconnected ──▶ device.Registry
//	                                                  └▶ retained ack on <type>/<name>/subscribe
//
//	<type>/<name>/publish ──▶ Command ──▶ Registry.ApplyCommand
//	                                   ├▶ Requests.Resolve (id != null, sent to <name>)
//	                                   └▶ automation.Engine (sensor "update")
//
// Outbound commands come from SendUpdate, which allocates a correlation id
// and returns a Completion, and from the profile engine through
// SendCommand, which publishes one-way commands.
//
// Per-device states are Unknown → Registered → Unknown. Re-registering an
// identical identity only re-sends the acknowledgement. Re-registering a
// known name with new metadata replaces the record.
//
// # Thread Safety
//
// HandleMessage serializes message handling. SendUpdate and the read
// accessors may be called from any goroutine.
package coordinator
