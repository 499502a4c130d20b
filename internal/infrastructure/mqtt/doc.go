// Package mqtt connects the monome daemon to its broker: publishing
// with QoS and acknowledgment timeouts, wildcard subscriptions that
// survive reconnects, and a retained status on monome/system/status
// with an LWT so other services see the daemon die.
//
// MQTT is the daemon's outward bus. Device input events (key presses,
// encoder deltas, tilt) are published as they arrive and LED commands
// from other processes are consumed and routed to the matching grid or
// arc, with the broker decoupling the hardware from the applications
// driving it.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllLedCommands(), 1, handleCommand)
//
// Enable TLS and credentials in the broker section of config.yaml for
// anything beyond a local development broker.
package mqtt
