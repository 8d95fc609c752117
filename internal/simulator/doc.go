// Package simulator runs virtual homebus devices against a real broker.
//
// Each simulated device speaks the device side of the protocol:
//
//	subscribe  <prefix>/<Type>/<name>/subscribe
//	publish    register_<name> on <prefix>/registration
//	on command echo it, id included, on <prefix>/<Type>/<name>/publish
//	on stop    publish disconnected_<name> on <prefix>/registration
//
// Sensors additionally publish one-way "update" commands carrying a reading
// on every tick. Thermometers, hygrometers and photometers follow a bounded
// random walk; motion sensors fire at random.
//
// A Device is registered with the broker using its own last will (see
// Device.Will), so a killed simulator still deregisters its devices.
package simulator
