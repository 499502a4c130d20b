package osc

// Message is a decoded inbound OSC message: an address pattern plus its
// argument list. Argument types follow the OSC type tags the peer sent
// (int32, float32, string, bool, blob).
type Message struct {
	Address string
	Args    []any
}

// Handler consumes inbound messages. It is invoked on the receiver's
// socket goroutine, so implementations must either be fast or hand the
// message off to their own queue.
type Handler func(msg Message)

// Sender transmits OSC messages to a single remote UDP endpoint.
type Sender interface {
	// Send marshals and transmits one message. Integer arguments are
	// normalised to int32 on the wire.
	Send(address string, args ...any) error

	// Close releases the sender. Further Sends return ErrClosed.
	Close() error
}

// Receiver owns a bound UDP socket and delivers every decoded inbound
// message to the Handler it was created with.
type Receiver interface {
	// Port reports the local UDP port the receiver is bound to.
	Port() int

	// Close shuts the socket down and stops delivery.
	Close() error
}

// Transport opens senders and receivers. The production implementation
// is returned by UDP; tests substitute their own.
type Transport interface {
	Dial(host string, port int) (Sender, error)
	Listen(port int, h Handler) (Receiver, error)
}
