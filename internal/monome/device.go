package monome

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gridbeam/monome-core/internal/actor"
	"github.com/gridbeam/monome-core/internal/osc"
)

// DefaultPrefix is the OSC address prefix devices are configured with
// unless a profile overrides it.
const DefaultPrefix = "/monome"

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Device is a connected monome controller. The only implementations
// are *Grid and *Arc; the unexported methods keep it that way, so a
// type switch over the two is exhaustive.
type Device interface {
	ID() string
	Kind() Kind
	Info() Info
	Connected() bool

	Prefix() string
	SetPrefix(prefix string)
	Rotation() int
	SetRotation(rotation int)

	// SetListener names the actor path that receives this device's
	// input events.
	SetListener(path actor.Path)

	// QueryInfo asks the device to report its /sys properties; answers
	// arrive asynchronously and update Info.
	QueryInfo()

	connect(t osc.Transport, host string, localPort int) error
	shutdown()
	mailboxActor() *actor.Actor
}

// session is the state and plumbing shared by Grid and Arc: the OSC
// sender/receiver pair, the /sys property cache, and the mailbox that
// serializes input handling.
type session struct {
	mu        sync.Mutex
	info      Info
	prefix    string
	rotation  int
	connected bool
	host      string
	localPort int
	listener  actor.Path
	sender    osc.Sender
	receiver  osc.Receiver

	mailbox *actor.Actor
	actors  *actor.Registry

	logger   Logger
	loggerMu sync.RWMutex

	// Set by Grid and Arc at construction.
	onInput func(addr string, vals []float64)
	onSize  func(width, height int)
}

func initSession(s *session, info Info, actors *actor.Registry, logger Logger) {
	s.info = info
	s.prefix = DefaultPrefix
	s.actors = actors
	s.logger = logger
	s.mailbox = actor.New(s)
}

// ID returns the device serial.
func (s *session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info.ID
}

// Kind returns the device classification.
func (s *session) Kind() Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info.Kind
}

// Info returns a snapshot of the device description.
func (s *session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Connected reports whether the OSC sockets are open.
func (s *session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Prefix returns the current OSC address prefix.
func (s *session) Prefix() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefix
}

// SetPrefix stores the prefix and, when connected, pushes it to the
// device with /sys/prefix.
func (s *session) SetPrefix(prefix string) {
	s.mu.Lock()
	s.prefix = prefix
	sender := s.sender
	s.mu.Unlock()

	if sender != nil {
		s.sendWith(sender, "/sys/prefix", prefix)
	}
}

// Rotation returns the configured rotation in degrees.
func (s *session) Rotation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotation
}

// SetRotation snaps rotation to a multiple of 90 and, when connected,
// pushes it to the device with /sys/rotation.
func (s *session) SetRotation(rotation int) {
	rotation = ((rotation / 90) % 4) * 90

	s.mu.Lock()
	s.rotation = rotation
	sender := s.sender
	s.mu.Unlock()

	if sender != nil {
		s.sendWith(sender, "/sys/rotation", rotation)
	}
}

// SetListener names the actor path input events are forwarded to.
func (s *session) SetListener(path actor.Path) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = path
}

// QueryInfo requests the device's /sys property dump.
func (s *session) QueryInfo() {
	s.mu.Lock()
	host, port := s.host, s.localPort
	sender := s.sender
	s.mu.Unlock()

	if sender != nil {
		s.sendWith(sender, "/sys/info", host, port)
	}
}

func (s *session) mailboxActor() *actor.Actor { return s.mailbox }

// connect opens the OSC sockets, points the device at our receiver and
// pushes the current prefix. Connecting a connected session is a no-op.
func (s *session) connect(t osc.Transport, host string, localPort int) error {
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return nil
	}
	id, devicePort, prefix := s.info.ID, s.info.Port, s.prefix
	s.mu.Unlock()

	sender, err := t.Dial(host, devicePort)
	if err != nil {
		return fmt.Errorf("monome: dial device %s: %w", id, err)
	}
	receiver, err := t.Listen(localPort, s.handleOSC)
	if err != nil {
		_ = sender.Close()
		return fmt.Errorf("monome: listen for device %s: %w", id, err)
	}

	s.mu.Lock()
	s.sender = sender
	s.receiver = receiver
	s.host = host
	s.localPort = localPort
	s.connected = true
	s.mu.Unlock()

	// Point the device at our receiver, then configure and query it.
	s.sendWith(sender, "/sys/host", host)
	s.sendWith(sender, "/sys/port", localPort)
	s.sendWith(sender, "/sys/prefix", prefix)
	s.sendWith(sender, "/sys/info", host, localPort)

	s.mailbox.Start()
	return nil
}

// shutdown closes the sockets and stops the mailbox. Idempotent.
func (s *session) shutdown() {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return
	}
	s.connected = false
	sender, receiver := s.sender, s.receiver
	s.sender, s.receiver = nil, nil
	s.mu.Unlock()

	if receiver != nil {
		_ = receiver.Close()
	}
	if sender != nil {
		_ = sender.Close()
	}
	s.mailbox.Stop()
}

// send transmits one message to the device, silently dropping it when
// disconnected. Send failures are logged at debug level only; LED
// output is best effort.
func (s *session) send(addr string, args ...any) {
	s.mu.Lock()
	sender := s.sender
	s.mu.Unlock()
	if sender == nil {
		return
	}
	s.sendWith(sender, addr, args...)
}

func (s *session) sendWith(sender osc.Sender, addr string, args ...any) {
	if err := sender.Send(addr, args...); err != nil {
		s.logDebug("device send failed", "address", addr, "error", err)
	}
}

// prefixed builds a device OSC address under the current prefix.
func (s *session) prefixed(suffix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefix + suffix
}

// handleOSC runs on the receiver's socket goroutine. System responses
// are applied immediately; input events are packed and enqueued on the
// mailbox so handling happens on the session goroutine.
func (s *session) handleOSC(msg osc.Message) {
	addr := strings.TrimPrefix(msg.Address, "/")

	if rest, ok := strings.CutPrefix(addr, "sys/"); ok {
		s.handleSys(rest, msg.Args)
		return
	}

	// Strip the device prefix: /monome/grid/key -> grid/key.
	prefix := strings.TrimPrefix(s.Prefix(), "/")
	if prefix != "" {
		addr = strings.TrimPrefix(addr, prefix+"/")
	}

	s.mailbox.Enqueue(actor.Message{
		Path:  actor.Path(addr),
		Value: packNumeric(msg.Args),
		Flags: actor.FlagFromDaemon,
	})
}

// handleSys applies a /sys property response. Unknown properties and
// malformed argument lists are ignored.
func (s *session) handleSys(prop string, args []any) {
	switch prop {
	case "id":
		if v, ok := stringArg(args, 0); ok {
			s.mu.Lock()
			s.info.ID = v
			s.mu.Unlock()
		}
	case "size":
		w, okW := intArg(args, 0)
		h, okH := intArg(args, 1)
		if okW && okH && w > 0 && h > 0 {
			s.mu.Lock()
			s.info.Width = w
			s.info.Height = h
			resize := s.onSize
			s.mu.Unlock()
			if resize != nil {
				resize(w, h)
			}
		}
	case "prefix":
		if v, ok := stringArg(args, 0); ok {
			s.mu.Lock()
			s.prefix = v
			s.mu.Unlock()
		}
	case "rotation":
		if v, ok := intArg(args, 0); ok {
			s.mu.Lock()
			s.rotation = v
			s.mu.Unlock()
		}
	case "host":
		if v, ok := stringArg(args, 0); ok {
			s.mu.Lock()
			s.host = v
			s.mu.Unlock()
		}
	case "port":
		if v, ok := intArg(args, 0); ok {
			s.mu.Lock()
			s.localPort = v
			s.mu.Unlock()
		}
	}
}

// OnMessage drains the mailbox: one input event at a time, on the
// session goroutine.
func (s *session) OnMessage(msg actor.Message) {
	s.mu.Lock()
	handle := s.onInput
	s.mu.Unlock()
	if handle != nil {
		handle(string(msg.Path), msg.Value)
	}
}

// forward delivers an input event to the listener actor, if one is set.
func (s *session) forward(event actor.Path, vals []float64) {
	s.mu.Lock()
	listener := s.listener
	actors := s.actors
	s.mu.Unlock()

	if listener == "" || actors == nil {
		return
	}
	actors.Send(listener, actor.Message{
		Path:  event,
		Value: vals,
		Flags: actor.FlagFromDaemon | actor.FlagDeviceEvent,
	})
}

func (s *session) logDebug(msg string, keysAndValues ...any) {
	s.loggerMu.RLock()
	logger := s.logger
	s.loggerMu.RUnlock()
	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (s *session) logInfo(msg string, keysAndValues ...any) {
	s.loggerMu.RLock()
	logger := s.logger
	s.loggerMu.RUnlock()
	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// packNumeric flattens OSC arguments into floats, dropping anything
// non-numeric. Device input payloads are all int32 on the wire.
func packNumeric(args []any) []float64 {
	vals := make([]float64, 0, len(args))
	for _, arg := range args {
		switch v := arg.(type) {
		case int32:
			vals = append(vals, float64(v))
		case int64:
			vals = append(vals, float64(v))
		case float32:
			vals = append(vals, float64(v))
		case float64:
			vals = append(vals, v)
		}
	}
	return vals
}

func intArg(args []any, i int) (int, bool) {
	if i >= len(args) {
		return 0, false
	}
	switch v := args[i].(type) {
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float32:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func stringArg(args []any, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	v, ok := args[i].(string)
	return v, ok
}
