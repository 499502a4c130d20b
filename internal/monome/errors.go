package monome

import "errors"

// Package-level errors.
var (
	// ErrNotConnected indicates an operation on a disconnected device.
	ErrNotConnected = errors.New("monome: device not connected")
)
