package mqttbridge

import (
	"fmt"
	"time"
)

// Topic layout. Outbound topics carry events and lifecycle
// announcements; the single inbound pattern carries LED commands.
const (
	// eventTopicPrefix is the base for outbound device input events.
	eventTopicPrefix = "monome/event"

	// deviceTopicPrefix is the base for attach/detach announcements.
	deviceTopicPrefix = "monome/device"

	// ledTopicPrefix is the base for inbound LED commands.
	ledTopicPrefix = "monome/led"
)

// EventTopic returns the outbound topic for a device input event.
//
// Example: monome/event/m0000045/key
func EventTopic(deviceID, event string) string {
	return fmt.Sprintf("%s/%s/%s", eventTopicPrefix, deviceID, event)
}

// DeviceAddTopic returns the topic for attach announcements.
func DeviceAddTopic() string {
	return deviceTopicPrefix + "/add"
}

// DeviceRemoveTopic returns the topic for detach announcements.
func DeviceRemoveTopic() string {
	return deviceTopicPrefix + "/remove"
}

// CommandSubscribeTopic returns the wildcard pattern for inbound LED
// commands.
//
// Pattern: monome/led/#
func CommandSubscribeTopic() string {
	return ledTopicPrefix + "/#"
}

// KeyEvent is published when a grid key changes state.
// Topic: monome/event/{device_id}/key
type KeyEvent struct {
	// DeviceID is the device serial, e.g. "m0000045".
	DeviceID string `json:"device_id"`

	// Timestamp is when the event was forwarded (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// X and Y are the key coordinates, origin top-left.
	X int `json:"x"`
	Y int `json:"y"`

	// State is 1 for press, 0 for release.
	State int `json:"state"`
}

// TiltEvent is published when a grid tilt sensor reports.
// Topic: monome/event/{device_id}/tilt
type TiltEvent struct {
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`

	// Sensor is the tilt sensor index.
	Sensor int `json:"sensor"`

	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// DeltaEvent is published when an arc encoder turns.
// Topic: monome/event/{device_id}/delta
type DeltaEvent struct {
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`

	// Encoder is the ring index, 0 to 3.
	Encoder int `json:"encoder"`

	// Delta is the rotation amount, negative for counter-clockwise.
	Delta int `json:"delta"`
}

// EncoderKeyEvent is published when an arc encoder is pressed.
// Topic: monome/event/{device_id}/key
type EncoderKeyEvent struct {
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`

	Encoder int `json:"encoder"`

	// State is 1 for press, 0 for release.
	State int `json:"state"`
}

// DeviceAnnouncement is published when a device attaches or detaches.
// Topics: monome/device/add, monome/device/remove
type DeviceAnnouncement struct {
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`
}

// LedCommand is the inbound payload for all LED command topics. Fields
// are shared between grid and arc commands; each command reads the ones
// it needs. Levels are 0 to 15 and clamped by the LED buffers.
//
// Grid commands (monome/led/{device_id}/{command}):
//
//	set   {"x":3,"y":2,"level":15}
//	all   {"level":8}
//	map   {"x_offset":8,"y_offset":0,"levels":[64 values]}
//	row   {"x_offset":0,"y":2,"levels":[...]}
//	col   {"x":5,"y_offset":0,"levels":[...]}
//	clear {}
//
// Arc commands:
//
//	set      {"ring":1,"led":12,"level":15}
//	all      {"ring":1,"level":4}
//	map      {"ring":1,"levels":[64 values]}
//	range    {"ring":1,"from":60,"to":4,"level":10}
//	position {"ring":0,"position":0.5,"brightness":15,"falloff":3}
//	clear    {}
type LedCommand struct {
	X       int     `json:"x"`
	Y       int     `json:"y"`
	XOffset int     `json:"x_offset"`
	YOffset int     `json:"y_offset"`
	Level   int     `json:"level"`
	Levels  []uint8 `json:"levels"`

	Ring int `json:"ring"`
	Led  int `json:"led"`
	From int `json:"from"`
	To   int `json:"to"`

	// Position is a normalised 0..1 pointer position for the position
	// command; Brightness and Falloff shape the indicator.
	Position   float64 `json:"position"`
	Brightness int     `json:"brightness"`
	Falloff    int     `json:"falloff"`
}
