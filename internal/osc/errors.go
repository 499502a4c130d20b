package osc

import "errors"

// Package-level errors for the OSC transport.
var (
	// ErrNoFreePort indicates the UDP port scan exhausted its window
	// without finding a bindable port.
	ErrNoFreePort = errors.New("osc: no free UDP port in scan window")

	// ErrClosed indicates an operation on a closed sender or receiver.
	ErrClosed = errors.New("osc: transport closed")
)
