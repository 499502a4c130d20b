package mqttbridge

import "errors"

// Domain errors for the MQTT bridge package.
var (
	// ErrUnknownDevice is returned when a command names a device the
	// service has no session for.
	ErrUnknownDevice = errors.New("mqttbridge: unknown device")

	// ErrUnknownCommand is returned when a command topic names an
	// unrecognised LED command.
	ErrUnknownCommand = errors.New("mqttbridge: unknown command")

	// ErrInvalidTopic is returned when an inbound topic does not match
	// the monome/led/{device_id}/{command} shape.
	ErrInvalidTopic = errors.New("mqttbridge: invalid command topic")
)
