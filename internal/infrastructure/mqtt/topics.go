package mqtt

import "fmt"

// Topic prefixes for the daemon's MQTT surface.
//
// All topics use the flat scheme: monome/{category}/{device_id}/{detail}
// This matches the MQTT bridge's messages.go and all runtime subscribers.
const (
	// TopicPrefix is the base for all daemon topics.
	TopicPrefix = "monome"

	// TopicPrefixEvent is the base for device input event topics.
	TopicPrefixEvent = "monome/event"

	// TopicPrefixDevice is the base for device lifecycle topics.
	TopicPrefixDevice = "monome/device"

	// TopicPrefixLed is the base for inbound LED command topics.
	TopicPrefixLed = "monome/led"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "monome/system"
)

// Topics provides builders for the daemon's MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	keyTopic := topics.DeviceEvent("m0000045", "key")
//	// Returns: "monome/event/m0000045/key"
type Topics struct{}

// DeviceEvent returns the topic for a device input event.
//
// Example: monome/event/m0000045/key
func (Topics) DeviceEvent(deviceID, event string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixEvent, deviceID, event)
}

// DeviceAdd returns the topic announcing a newly attached device.
//
// Example: monome/device/add
func (Topics) DeviceAdd() string {
	return fmt.Sprintf("%s/add", TopicPrefixDevice)
}

// DeviceRemove returns the topic announcing a detached device.
//
// Example: monome/device/remove
func (Topics) DeviceRemove() string {
	return fmt.Sprintf("%s/remove", TopicPrefixDevice)
}

// LedCommand returns the topic for an LED command to a device.
//
// Example: monome/led/m0000045/set
func (Topics) LedCommand(deviceID, command string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixLed, deviceID, command)
}

// SystemStatus returns the daemon status topic, also used for the LWT.
//
// Example: monome/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemShutdown returns the shutdown signal topic.
//
// Example: monome/system/shutdown
func (Topics) SystemShutdown() string {
	return fmt.Sprintf("%s/shutdown", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllDeviceEvents returns a pattern matching input events from every device.
//
// Pattern: monome/event/+/+
func (Topics) AllDeviceEvents() string {
	return fmt.Sprintf("%s/+/+", TopicPrefixEvent)
}

// AllLedCommands returns a pattern matching every inbound LED command.
//
// Pattern: monome/led/#
func (Topics) AllLedCommands() string {
	return fmt.Sprintf("%s/#", TopicPrefixLed)
}

// AllDeviceLifecycle returns a pattern matching add and remove announcements.
//
// Pattern: monome/device/+
func (Topics) AllDeviceLifecycle() string {
	return fmt.Sprintf("%s/+", TopicPrefixDevice)
}

// AllTopics returns a pattern matching all daemon topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: monome/#
func (Topics) AllTopics() string {
	return "monome/#"
}
