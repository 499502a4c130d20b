// Package monome discovers and manages monome grid and arc controllers
// through the serialosc daemon.
//
// The Service talks OSC/UDP to serialoscd on port 12002: it requests
// the current device list, subscribes to hotplug notifications, and
// spins up one session per device. Each session owns its own sender
// and receiver sockets plus an actor mailbox, so input events from one
// device never block another.
//
// Grids carry a GridLedBuffer and arcs one ArcRingBuffer per encoder;
// applications draw into the buffers and call the flush methods, which
// transmit only the regions that changed since the previous flush.
//
// Input events (key presses, encoder deltas, tilt) are forwarded to a
// single listener actor path registered with SetListener, and device
// arrival and removal fire the callback registered with
// SetDeviceCallback.
package monome
