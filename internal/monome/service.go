package monome

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gridbeam/monome-core/internal/actor"
	"github.com/gridbeam/monome-core/internal/osc"
)

// serialosc daemon defaults.
const (
	// DaemonPort is the fixed UDP port serialoscd listens on.
	DaemonPort = 12002

	// DefaultDiscoveryPortBase starts the scan for the discovery
	// receiver's port.
	DefaultDiscoveryPortBase = 13000

	// DefaultDevicePortBase starts the scan for per-device receiver
	// ports.
	DefaultDevicePortBase = 13001
)

// ServicePath is the actor path the service registers itself under.
const ServicePath = actor.Path("serialosc")

// DeviceCallback is notified when a device connects (true) or is
// removed (false). It runs on the discovery socket goroutine and must
// not block.
type DeviceCallback func(info Info, connected bool)

// DeviceProfile carries persisted per-device settings applied when the
// device reappears.
type DeviceProfile struct {
	Prefix   string
	Rotation int
}

// ProfileStore persists device settings and sighting metadata across
// runs. Implemented by the sqlite-backed profile package.
type ProfileStore interface {
	// Get returns the stored profile for a device, reporting whether
	// one exists.
	Get(ctx context.Context, deviceID string) (DeviceProfile, bool, error)

	// Put stores a device's profile, replacing any previous one.
	Put(ctx context.Context, deviceID string, p DeviceProfile) error

	// Record upserts sighting metadata (type, geometry, last seen) for
	// a device.
	Record(ctx context.Context, info Info) error
}

// ServiceOptions configures a Service. Transport and Actors are
// required; everything else has a usable zero value.
type ServiceOptions struct {
	// Transport opens the OSC sockets. Use osc.UDP() in production.
	Transport osc.Transport

	// Actors is the registry devices and listeners are routed through.
	Actors *actor.Registry

	// Logger is optional structured logging.
	Logger Logger

	// DaemonPort overrides the serialoscd port, for tests.
	DaemonPort int

	// DiscoveryPortBase and DevicePortBase override where the UDP port
	// scans start.
	DiscoveryPortBase int
	DevicePortBase    int

	// DefaultPrefix and DefaultRotation are applied to devices that
	// have no stored profile.
	DefaultPrefix   string
	DefaultRotation int

	// Profiles is optional persistence for per-device settings.
	Profiles ProfileStore

	// FreePort overrides port allocation, for tests. Defaults to
	// osc.FreePort.
	FreePort func(start int) (int, error)
}

// Service discovers monome devices through serialoscd and manages one
// session per device.
type Service struct {
	transport osc.Transport
	actors    *actor.Registry
	profiles  ProfileStore

	daemonPort        int
	discoveryPortBase int
	devicePortBase    int
	defaultPrefix     string
	defaultRotation   int
	freePort          func(start int) (int, error)

	mu             sync.Mutex
	running        bool
	subscribed     bool
	host           string
	localPort      int
	sender         osc.Sender
	receiver       osc.Receiver
	devices        map[string]Device
	nextDevicePort int
	listener       actor.Path
	callback       DeviceCallback

	mailbox *actor.Actor

	logger   Logger
	loggerMu sync.RWMutex
}

// NewService creates a stopped service.
func NewService(opts ServiceOptions) *Service {
	s := &Service{
		transport:         opts.Transport,
		actors:            opts.Actors,
		profiles:          opts.Profiles,
		daemonPort:        opts.DaemonPort,
		discoveryPortBase: opts.DiscoveryPortBase,
		devicePortBase:    opts.DevicePortBase,
		defaultPrefix:     opts.DefaultPrefix,
		defaultRotation:   opts.DefaultRotation,
		freePort:          opts.FreePort,
		devices:           make(map[string]Device),
		logger:            opts.Logger,
	}
	if s.daemonPort == 0 {
		s.daemonPort = DaemonPort
	}
	if s.discoveryPortBase == 0 {
		s.discoveryPortBase = DefaultDiscoveryPortBase
	}
	if s.devicePortBase == 0 {
		s.devicePortBase = DefaultDevicePortBase
	}
	if s.defaultPrefix == "" {
		s.defaultPrefix = DefaultPrefix
	}
	if s.freePort == nil {
		s.freePort = osc.FreePort
	}
	s.nextDevicePort = s.devicePortBase
	s.mailbox = actor.New(s)
	return s
}

// Start binds the discovery receiver, connects to serialoscd on host,
// subscribes to hotplug notifications and requests the current device
// list. Starting a running service is a no-op.
func (s *Service) Start(host string) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.host = host
	s.mu.Unlock()

	localPort, err := s.freePort(s.discoveryPortBase)
	if err != nil {
		return fmt.Errorf("monome: discovery port: %w", err)
	}

	receiver, err := s.transport.Listen(localPort, s.handleDiscovery)
	if err != nil {
		return fmt.Errorf("monome: discovery receiver: %w", err)
	}

	sender, err := s.transport.Dial(host, s.daemonPort)
	if err != nil {
		_ = receiver.Close()
		return fmt.Errorf("monome: dial serialoscd: %w", err)
	}

	s.mu.Lock()
	s.localPort = localPort
	s.receiver = receiver
	s.sender = sender
	s.running = true
	s.mu.Unlock()

	s.mailbox.Start()
	if s.actors != nil {
		s.actors.Register(ServicePath, s.mailbox)
	}

	s.SubscribeToNotifications()
	s.RequestDeviceList()

	s.logInfo("serialosc service started", "host", host, "port", localPort)
	return nil
}

// Stop disconnects every device and closes the discovery sockets.
// Stopping a stopped service is a no-op.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.subscribed = false
	sender, receiver := s.sender, s.receiver
	s.sender, s.receiver = nil, nil
	devices := s.devices
	s.devices = make(map[string]Device)
	s.mu.Unlock()

	for id, dev := range devices {
		dev.shutdown()
		if s.actors != nil {
			s.actors.Remove(devicePath(id))
		}
	}

	if receiver != nil {
		_ = receiver.Close()
	}
	if sender != nil {
		_ = sender.Close()
	}

	if s.actors != nil {
		s.actors.Remove(ServicePath)
	}
	s.mailbox.Stop()

	s.logInfo("serialosc service stopped", "devices_closed", len(devices))
}

// Running reports whether the service is started.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RequestDeviceList asks serialoscd to report every connected device.
// Each device arrives as a separate /serialosc/device response.
func (s *Service) RequestDeviceList() {
	s.mu.Lock()
	sender, host, port := s.sender, s.host, s.localPort
	s.mu.Unlock()
	if sender == nil {
		return
	}
	if err := sender.Send("/serialosc/list", host, port); err != nil {
		s.logError("device list request failed", err)
	}
}

// SubscribeToNotifications asks serialoscd to send hotplug add/remove
// notifications to the discovery receiver.
func (s *Service) SubscribeToNotifications() {
	s.mu.Lock()
	sender, host, port := s.sender, s.host, s.localPort
	s.mu.Unlock()
	if sender == nil {
		return
	}
	if err := sender.Send("/serialosc/notify", host, port); err != nil {
		s.logError("notification subscribe failed", err)
		return
	}
	s.mu.Lock()
	s.subscribed = true
	s.mu.Unlock()
}

// GetDevice returns the device with the given ID, or nil.
func (s *Service) GetDevice(deviceID string) Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.devices[deviceID]
}

// GetGrid returns the grid with the given ID, or nil when absent or
// not a grid.
func (s *Service) GetGrid(deviceID string) *Grid {
	if g, ok := s.GetDevice(deviceID).(*Grid); ok {
		return g
	}
	return nil
}

// GetArc returns the arc with the given ID, or nil when absent or not
// an arc.
func (s *Service) GetArc(deviceID string) *Arc {
	if a, ok := s.GetDevice(deviceID).(*Arc); ok {
		return a
	}
	return nil
}

// FirstGrid returns the connected grid with the lowest ID, or nil.
func (s *Service) FirstGrid() *Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range sortedKeys(s.devices) {
		if g, ok := s.devices[id].(*Grid); ok {
			return g
		}
	}
	return nil
}

// FirstArc returns the connected arc with the lowest ID, or nil.
func (s *Service) FirstArc() *Arc {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range sortedKeys(s.devices) {
		if a, ok := s.devices[id].(*Arc); ok {
			return a
		}
	}
	return nil
}

// DeviceIDs lists the IDs of all connected devices, sorted.
func (s *Service) DeviceIDs() []string {
	return s.idsByKind(func(Device) bool { return true })
}

// GridIDs lists the IDs of connected grids, sorted.
func (s *Service) GridIDs() []string {
	return s.idsByKind(func(d Device) bool { return d.Kind() == KindGrid })
}

// ArcIDs lists the IDs of connected arcs, sorted.
func (s *Service) ArcIDs() []string {
	return s.idsByKind(func(d Device) bool { return d.Kind() == KindArc })
}

func (s *Service) idsByKind(match func(Device) bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, dev := range s.devices {
		if match(dev) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// SetListener names the actor path device input events are forwarded
// to. Existing devices are updated.
func (s *Service) SetListener(path actor.Path) {
	s.mu.Lock()
	s.listener = path
	devices := make([]Device, 0, len(s.devices))
	for _, dev := range s.devices {
		devices = append(devices, dev)
	}
	s.mu.Unlock()

	for _, dev := range devices {
		dev.SetListener(path)
	}
}

// SetDeviceCallback registers the connect/disconnect callback.
func (s *Service) SetDeviceCallback(cb DeviceCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callback = cb
}

// SaveProfile persists the current prefix and rotation of a device.
func (s *Service) SaveProfile(ctx context.Context, deviceID string) error {
	if s.profiles == nil {
		return nil
	}
	dev := s.GetDevice(deviceID)
	if dev == nil {
		return fmt.Errorf("monome: device %s: %w", deviceID, ErrNotConnected)
	}
	return s.profiles.Put(ctx, deviceID, DeviceProfile{
		Prefix:   dev.Prefix(),
		Rotation: dev.Rotation(),
	})
}

// MsgRescan is the control message that asks the service to re-query
// serialoscd, sent to ServicePath in the Text field.
const MsgRescan = "rescan"

// OnMessage handles control messages sent to the service mailbox. A
// rescan re-arms hotplug notification and re-requests the device list;
// anything else is dropped.
func (s *Service) OnMessage(msg actor.Message) {
	switch msg.Text {
	case MsgRescan:
		s.SubscribeToNotifications()
		s.RequestDeviceList()
	}
}

// handleDiscovery runs on the discovery socket goroutine and reacts to
// serialoscd responses and notifications. Malformed messages are
// dropped.
func (s *Service) handleDiscovery(msg osc.Message) {
	switch msg.Address {
	case "/serialosc/device", "/serialosc/add":
		id, okID := stringArg(msg.Args, 0)
		typ, okType := stringArg(msg.Args, 1)
		port, okPort := intArg(msg.Args, 2)
		if okID && okType && okPort {
			s.handleDeviceAdd(id, typ, port)
		}
	case "/serialosc/remove":
		if id, ok := stringArg(msg.Args, 0); ok {
			s.handleDeviceRemove(id)
		}
	}

	// Hotplug notifications are one-shot; re-arm after each one.
	if msg.Address == "/serialosc/add" || msg.Address == "/serialosc/remove" {
		s.SubscribeToNotifications()
	}
}

// handleDeviceAdd creates, connects and registers a session for a
// newly announced device. Announcements for known IDs are ignored.
func (s *Service) handleDeviceAdd(id, typ string, port int) {
	s.mu.Lock()
	if _, exists := s.devices[id]; exists {
		s.mu.Unlock()
		return
	}
	host := s.host
	listener := s.listener
	s.mu.Unlock()

	info := ParseInfo(id, typ, port)

	dev := s.createDevice(info)
	if dev == nil {
		s.logDebug("ignoring device of unknown type", "id", id, "type", typ)
		return
	}

	prefix, rotation := s.deviceDefaults(id)
	dev.SetPrefix(prefix)
	if listener != "" {
		dev.SetListener(listener)
	}

	localPort, err := s.allocDevicePort()
	if err != nil {
		s.logError("no local port for device", err, "id", id)
		return
	}

	if err := dev.connect(s.transport, host, localPort); err != nil {
		s.logError("device connect failed", err, "id", id)
		return
	}

	// Rotation only transmits on a live connection; the prefix already
	// went out with the handshake.
	if rotation != 0 {
		dev.SetRotation(rotation)
	}

	if s.actors != nil {
		s.actors.Register(devicePath(id), dev.mailboxActor())
	}

	s.mu.Lock()
	s.devices[id] = dev
	callback := s.callback
	listener = s.listener
	s.mu.Unlock()

	if s.profiles != nil {
		if err := s.profiles.Record(context.Background(), dev.Info()); err != nil {
			s.logError("profile record failed", err, "id", id)
		}
	}

	s.logInfo("device connected",
		"id", id,
		"type", typ,
		"kind", info.Kind.String(),
		"device_port", port,
		"local_port", localPort,
	)

	if callback != nil {
		callback(info, true)
	}
	if listener != "" && s.actors != nil {
		s.actors.Send(listener, actor.Message{
			Path:  "serialosc/device/add",
			Text:  id,
			Flags: actor.FlagFromDaemon,
		})
	}
}

// handleDeviceRemove tears down the session for a departed device.
// Unknown IDs are ignored.
func (s *Service) handleDeviceRemove(id string) {
	s.mu.Lock()
	dev, exists := s.devices[id]
	if !exists {
		s.mu.Unlock()
		return
	}
	delete(s.devices, id)
	callback := s.callback
	listener := s.listener
	s.mu.Unlock()

	info := dev.Info()
	dev.shutdown()
	if s.actors != nil {
		s.actors.Remove(devicePath(id))
	}

	s.logInfo("device removed", "id", id, "kind", info.Kind.String())

	if callback != nil {
		callback(info, false)
	}
	if listener != "" && s.actors != nil {
		s.actors.Send(listener, actor.Message{
			Path:  "serialosc/device/remove",
			Text:  id,
			Flags: actor.FlagFromDaemon,
		})
	}
}

func (s *Service) createDevice(info Info) Device {
	switch info.Kind {
	case KindGrid:
		return newGrid(info, s.actors, s.currentLogger())
	case KindArc:
		return newArc(info, s.actors, s.currentLogger())
	default:
		return nil
	}
}

// deviceDefaults resolves the prefix and rotation for a device,
// preferring its stored profile over the service defaults.
func (s *Service) deviceDefaults(id string) (string, int) {
	if s.profiles != nil {
		p, ok, err := s.profiles.Get(context.Background(), id)
		if err != nil {
			s.logError("profile lookup failed", err, "id", id)
		} else if ok {
			prefix := p.Prefix
			if prefix == "" {
				prefix = s.defaultPrefix
			}
			return prefix, p.Rotation
		}
	}
	return s.defaultPrefix, s.defaultRotation
}

// allocDevicePort hands out receiver ports from a rolling cursor so
// each device scan starts past the previous allocation.
func (s *Service) allocDevicePort() (int, error) {
	s.mu.Lock()
	start := s.nextDevicePort
	s.mu.Unlock()

	port, err := s.freePort(start)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.nextDevicePort = port + 1
	s.mu.Unlock()
	return port, nil
}

func devicePath(id string) actor.Path {
	return actor.Path("serialosc/devices/" + id)
}

func sortedKeys(m map[string]Device) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Service) currentLogger() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

func (s *Service) logDebug(msg string, keysAndValues ...any) {
	if logger := s.currentLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (s *Service) logInfo(msg string, keysAndValues ...any) {
	if logger := s.currentLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (s *Service) logError(msg string, err error, keysAndValues ...any) {
	if logger := s.currentLogger(); logger != nil {
		args := append([]any{"error", err}, keysAndValues...)
		logger.Error(msg, args...)
	}
}
