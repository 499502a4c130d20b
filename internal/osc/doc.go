// Package osc provides the UDP/OSC transport layer for talking to
// serialoscd and to individual monome devices.
//
// The package exposes small interfaces (Transport, Sender, Receiver) so
// that higher layers never touch sockets directly. The production
// implementation is backed by github.com/hypebeast/go-osc; tests inject
// fakes that record outbound messages and feed inbound ones.
//
// Port allocation for receive sockets is handled by FreePort, which scans
// a bounded window of UDP ports starting from a caller-supplied base.
package osc
