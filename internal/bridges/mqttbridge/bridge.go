package mqttbridge

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gridbeam/monome-core/internal/actor"
	"github.com/gridbeam/monome-core/internal/monome"
)

// ListenerPath is where the bridge registers itself in the actor
// registry. The device service forwards input events to this path.
const ListenerPath actor.Path = "bridges/mqtt"

// minTopicParts is the minimum number of parts in a valid command topic.
const minTopicParts = 4

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// DeviceService is the surface of the monome service the bridge drives.
// Satisfied by *monome.Service.
type DeviceService interface {
	// GetGrid returns the grid with the given ID, or nil.
	GetGrid(deviceID string) *monome.Grid

	// GetArc returns the arc with the given ID, or nil.
	GetArc(deviceID string) *monome.Arc

	// SetListener names the actor path input events are forwarded to.
	SetListener(path actor.Path)
}

// Logger is the structured logging interface the bridge emits through.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Service is the device service whose events and LEDs the bridge
	// exposes.
	Service DeviceService

	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// Actors is the shared registry the listener actor is registered in.
	Actors *actor.Registry

	// Logger is optional structured logger.
	Logger Logger

	// QoS applies to every publish and subscribe. Used as given, so the
	// zero value selects MQTT QoS 0.
	QoS byte
}

// Bridge translates between device actor messages and MQTT traffic.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	svc    DeviceService
	mqtt   MQTTClient
	actors *actor.Registry
	qos    byte

	listener *actor.Actor

	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Service == nil {
		return nil, fmt.Errorf("service is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Actors == nil {
		return nil, fmt.Errorf("actor registry is required")
	}

	return &Bridge{
		svc:    opts.Service,
		mqtt:   opts.MQTTClient,
		actors: opts.Actors,
		qos:    opts.QoS,
		logger: opts.Logger,
	}, nil
}

// Start begins bridge operation. It registers the listener actor,
// names it as the service's event target, and subscribes to inbound
// LED command topics.
func (b *Bridge) Start() error {
	b.listener = actor.New(b)
	b.listener.Start()
	b.actors.Register(ListenerPath, b.listener)
	b.svc.SetListener(ListenerPath)

	commandTopic := CommandSubscribeTopic()
	if err := b.mqtt.Subscribe(commandTopic, b.qos, b.HandleCommand); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("bridge started", "commands", commandTopic)

	return nil
}

// Stop detaches the bridge from the service and drains the listener.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.svc.SetListener("")
		b.actors.Remove(ListenerPath)
		if b.listener != nil {
			b.listener.Stop()
		}
		b.logInfo("bridge stopped")
	})
}

// OnMessage receives device events from the actor registry and turns
// them into MQTT publishes. It runs on the listener actor's goroutine.
func (b *Bridge) OnMessage(msg actor.Message) {
	switch msg.Path {
	case "serialosc/device/add":
		b.publishAnnouncement(DeviceAddTopic(), msg.Text)
		return
	case "serialosc/device/remove":
		b.publishAnnouncement(DeviceRemoveTopic(), msg.Text)
		return
	}

	// Input events arrive as {kind}/{device_id}/{event}.
	parts := strings.Split(string(msg.Path), "/")
	if len(parts) != 3 {
		return
	}
	kind, deviceID, event := parts[0], parts[1], parts[2]

	var payload any
	switch {
	case kind == "grid" && event == "key" && len(msg.Value) >= 3:
		payload = KeyEvent{
			DeviceID:  deviceID,
			Timestamp: time.Now().UTC(),
			X:         int(msg.Value[0]),
			Y:         int(msg.Value[1]),
			State:     int(msg.Value[2]),
		}
	case kind == "grid" && event == "tilt" && len(msg.Value) >= 4:
		payload = TiltEvent{
			DeviceID:  deviceID,
			Timestamp: time.Now().UTC(),
			Sensor:    int(msg.Value[0]),
			X:         int(msg.Value[1]),
			Y:         int(msg.Value[2]),
			Z:         int(msg.Value[3]),
		}
	case kind == "arc" && event == "delta" && len(msg.Value) >= 2:
		payload = DeltaEvent{
			DeviceID:  deviceID,
			Timestamp: time.Now().UTC(),
			Encoder:   int(msg.Value[0]),
			Delta:     int(msg.Value[1]),
		}
	case kind == "arc" && event == "key" && len(msg.Value) >= 2:
		payload = EncoderKeyEvent{
			DeviceID:  deviceID,
			Timestamp: time.Now().UTC(),
			Encoder:   int(msg.Value[0]),
			State:     int(msg.Value[1]),
		}
	default:
		return
	}

	b.publish(EventTopic(deviceID, event), payload)
}

// HandleCommand applies one inbound LED command. Exposed as the
// subscription handler; topic must look like
// monome/led/{device_id}/{command}.
func (b *Bridge) HandleCommand(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) < minTopicParts {
		b.logError("invalid command topic", fmt.Errorf("%w: %s", ErrInvalidTopic, topic))
		return ErrInvalidTopic
	}
	deviceID := parts[2]
	command := strings.Join(parts[3:], "/")

	var cmd LedCommand
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &cmd); err != nil {
			b.logError("failed to parse command", err)
			return fmt.Errorf("parsing command: %w", err)
		}
	}

	if grid := b.svc.GetGrid(deviceID); grid != nil {
		return b.runGridCommand(grid, command, cmd)
	}
	if arc := b.svc.GetArc(deviceID); arc != nil {
		return b.runArcCommand(arc, command, cmd)
	}

	b.logError("command for unknown device", fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID))
	return ErrUnknownDevice
}

// runGridCommand applies a command to the grid's LED buffer and
// flushes, so only the quadrants that changed hit the wire.
func (b *Bridge) runGridCommand(grid *monome.Grid, command string, cmd LedCommand) error {
	leds := grid.Leds()

	switch command {
	case "set":
		leds.SetLevel(cmd.X, cmd.Y, cmd.Level)
	case "all":
		leds.Fill(cmd.Level)
	case "map":
		// One 8x8 quadrant of levels, row-major.
		levels := cmd.Levels
		if len(levels) > 64 {
			levels = levels[:64]
		}
		for i, lv := range levels {
			leds.SetLevel(cmd.XOffset+i%8, cmd.YOffset+i/8, int(lv))
		}
	case "row":
		for i, lv := range cmd.Levels {
			leds.SetLevel(cmd.XOffset+i, cmd.Y, int(lv))
		}
	case "col":
		for i, lv := range cmd.Levels {
			leds.SetLevel(cmd.X, cmd.YOffset+i, int(lv))
		}
	case "clear":
		leds.Clear()
	default:
		b.logError("unknown grid command", fmt.Errorf("%w: %s", ErrUnknownCommand, command))
		return ErrUnknownCommand
	}

	grid.FlushLeds()
	return nil
}

// runArcCommand applies a command to one of the arc's ring buffers and
// flushes the affected rings.
func (b *Bridge) runArcCommand(arc *monome.Arc, command string, cmd LedCommand) error {
	switch command {
	case "set":
		arc.Ring(cmd.Ring).SetLevel(cmd.Led, cmd.Level)
	case "all":
		arc.Ring(cmd.Ring).Fill(cmd.Level)
	case "map":
		ring := arc.Ring(cmd.Ring)
		levels := cmd.Levels
		if len(levels) > monome.RingLedCount {
			levels = levels[:monome.RingLedCount]
		}
		for i, lv := range levels {
			ring.SetLevel(i, int(lv))
		}
	case "range":
		arc.Ring(cmd.Ring).FillRange(cmd.From, cmd.To, cmd.Level)
	case "position":
		arc.Ring(cmd.Ring).SetPosition(cmd.Position, cmd.Brightness, cmd.Falloff)
	case "clear":
		for ring := 0; ring < arc.EncoderCount(); ring++ {
			arc.Ring(ring).Clear()
		}
		arc.FlushRings()
		return nil
	default:
		b.logError("unknown arc command", fmt.Errorf("%w: %s", ErrUnknownCommand, command))
		return ErrUnknownCommand
	}

	arc.FlushRing(cmd.Ring)
	return nil
}

// publishAnnouncement publishes a device lifecycle announcement.
func (b *Bridge) publishAnnouncement(topic, deviceID string) {
	if deviceID == "" {
		return
	}
	b.publish(topic, DeviceAnnouncement{
		DeviceID:  deviceID,
		Timestamp: time.Now().UTC(),
	})
}

// publish marshals and publishes one payload.
func (b *Bridge) publish(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logError("failed to marshal payload", err)
		return
	}
	if err := b.mqtt.Publish(topic, data, b.qos, false); err != nil {
		b.logError("failed to publish", err)
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
}

// logInfo logs an info message if logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (b *Bridge) logError(msg string, err error) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
