package actor

import (
	"sync"
	"sync/atomic"
)

// Path addresses an actor in the registry or names an event a message
// describes. Components are slash separated, e.g. "app/main" or
// "grid/m0000123/key".
type Path string

// Message flags.
const (
	// FlagFromDaemon marks messages originating from serialoscd or a
	// connected device rather than from application code.
	FlagFromDaemon = 1 << 6

	// FlagDeviceEvent marks per-device input events (keys, encoder
	// deltas, tilt) as opposed to lifecycle notifications.
	FlagDeviceEvent = 1 << 7
)

// Message is the unit of actor communication: an event path, a packed
// numeric payload, and an optional text payload (device IDs travel in
// Text because OSC string arguments are not packed into Value).
type Message struct {
	Path  Path
	Value []float64
	Text  string
	Flags int
}

// Receiver handles messages delivered from an actor's mailbox. OnMessage
// runs on the actor's own goroutine, one message at a time.
type Receiver interface {
	OnMessage(msg Message)
}

// defaultQueueSize bounds a mailbox. Device input bursts (a hand swept
// across a grid) stay well below this.
const defaultQueueSize = 128

// Actor couples a Receiver with a private mailbox and the goroutine that
// drains it.
type Actor struct {
	recv Receiver

	mu      sync.Mutex
	mailbox chan Message
	done    chan struct{}
	running bool

	dropped atomic.Uint64
}

// New creates an actor for recv with the default mailbox size.
func New(recv Receiver) *Actor {
	return NewWithQueue(recv, defaultQueueSize)
}

// NewWithQueue creates an actor with an explicit mailbox capacity.
func NewWithQueue(recv Receiver, queueSize int) *Actor {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Actor{
		recv:    recv,
		mailbox: make(chan Message, queueSize),
	}
}

// Start launches the mailbox goroutine. Calling Start on a running
// actor is a no-op.
func (a *Actor) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return
	}
	a.done = make(chan struct{})
	a.running = true
	go a.run(a.mailbox, a.done)
}

// Stop shuts the mailbox goroutine down and waits for it to exit.
// Messages already queued are delivered first. Calling Stop on a
// stopped actor is a no-op.
func (a *Actor) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	done := a.done
	old := a.mailbox
	// Fresh channel so a later Start sees an empty mailbox.
	a.mailbox = make(chan Message, cap(old))
	a.mu.Unlock()

	close(old)
	<-done
}

// Enqueue places a message in the mailbox without blocking. Messages
// offered to a full or stopped mailbox are dropped and counted.
func (a *Actor) Enqueue(msg Message) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		a.dropped.Add(1)
		return false
	}
	select {
	case a.mailbox <- msg:
		return true
	default:
		a.dropped.Add(1)
		return false
	}
}

// Dropped reports how many messages were discarded because the mailbox
// was full or the actor stopped.
func (a *Actor) Dropped() uint64 {
	return a.dropped.Load()
}

func (a *Actor) run(mailbox chan Message, done chan struct{}) {
	defer close(done)
	for msg := range mailbox {
		a.recv.OnMessage(msg)
	}
}
