// Package mqttbridge exposes connected monome devices over MQTT.
//
// The bridge sits between the device service and the broker:
//
//   - Input events (key presses, tilt, encoder deltas) arrive from the
//     per-device actors and are published as JSON on
//     monome/event/{device_id}/{event}.
//   - Device attach and detach announcements are published on
//     monome/device/add and monome/device/remove.
//   - LED commands from other processes arrive on monome/led/# and are
//     applied to the matching grid or arc LED buffer, then flushed, so
//     only changed quadrants and rings hit the wire.
//
// The bridge registers itself as an actor in the shared registry and
// names itself as the service listener, so device events flow through
// the same mailbox discipline as everything else.
package mqttbridge
