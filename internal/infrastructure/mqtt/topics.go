package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is the first segment of every homebus topic.
const DefaultTopicPrefix = "homebus"

// Topic suffixes for per-device channels.
const (
	// SuffixSubscribe is the coordinator → device direction.
	SuffixSubscribe = "subscribe"

	// SuffixPublish is the device → coordinator direction.
	SuffixPublish = "publish"
)

// Topics builds homebus MQTT topics.
//
// Devices and the coordinator compute per-device topics independently, so
// the scheme must stay stable:
//
//	topics := mqtt.Topics{Prefix: "homebus"}
//	topics.DevicePublish("Thermometer", "thermo-1")
//	// Returns: "homebus/Thermometer/thermo-1/publish"
//
// The zero value uses DefaultTopicPrefix.
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// Registration returns the shared registration topic.
//
// Example: homebus/registration
func (t Topics) Registration() string {
	return t.prefix() + "/registration"
}

// Broadcast returns the topic carrying the coordinator's last will.
//
// Example: homebus/broadcast
func (t Topics) Broadcast() string {
	return t.prefix() + "/broadcast"
}

// DeviceSubscribe returns the topic a device listens on.
//
// Example: homebus/Light/lamp-1/subscribe
func (t Topics) DeviceSubscribe(deviceType, name string) string {
	return fmt.Sprintf("%s/%s/%s/%s", t.prefix(), deviceType, name, SuffixSubscribe)
}

// DevicePublish returns the topic a device reports on.
//
// Example: homebus/Light/lamp-1/publish
func (t Topics) DevicePublish(deviceType, name string) string {
	return fmt.Sprintf("%s/%s/%s/%s", t.prefix(), deviceType, name, SuffixPublish)
}

// AllDevicePublish matches every device publish topic.
//
// Pattern: homebus/+/+/publish
func (t Topics) AllDevicePublish() string {
	return fmt.Sprintf("%s/+/+/%s", t.prefix(), SuffixPublish)
}

// DeviceTopic is a parsed per-device topic.
type DeviceTopic struct {
	DeviceType string
	Name       string
	Suffix     string
}

// ParseDevice splits a per-device topic into its parts.
// It returns false for topics outside the prefix or with the wrong shape.
func (t Topics) ParseDevice(topic string) (DeviceTopic, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != t.prefix() {
		return DeviceTopic{}, false
	}
	if parts[1] == "" || parts[2] == "" {
		return DeviceTopic{}, false
	}
	if parts[3] != SuffixSubscribe && parts[3] != SuffixPublish {
		return DeviceTopic{}, false
	}
	return DeviceTopic{DeviceType: parts[1], Name: parts[2], Suffix: parts[3]}, true
}
