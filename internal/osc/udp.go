package osc

import (
	"fmt"
	"net"
	"sync"

	goosc "github.com/hypebeast/go-osc/osc"
)

// udpTransport is the production Transport backed by go-osc.
type udpTransport struct{}

// UDP returns the production UDP transport.
func UDP() Transport {
	return udpTransport{}
}

func (udpTransport) Dial(host string, port int) (Sender, error) {
	return &udpSender{client: goosc.NewClient(host, port)}, nil
}

func (udpTransport) Listen(port int, h Handler) (Receiver, error) {
	conn, err := net.ListenPacket("udp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("osc: bind port %d: %w", port, err)
	}

	r := &udpReceiver{conn: conn}
	server := &goosc.Server{Dispatcher: dispatcherFunc(func(p goosc.Packet) {
		dispatch(p, h)
	})}

	go func() {
		// Serve returns with an error once the socket is closed.
		_ = server.Serve(conn)
	}()

	return r, nil
}

// dispatcherFunc adapts a function to the go-osc Dispatcher interface.
type dispatcherFunc func(p goosc.Packet)

func (f dispatcherFunc) Dispatch(p goosc.Packet) { f(p) }

// dispatch unpacks messages and bundles, flattening bundles in order.
func dispatch(p goosc.Packet, h Handler) {
	switch pkt := p.(type) {
	case *goosc.Message:
		h(Message{Address: pkt.Address, Args: pkt.Arguments})
	case *goosc.Bundle:
		for _, msg := range pkt.Messages {
			h(Message{Address: msg.Address, Args: msg.Arguments})
		}
		for _, sub := range pkt.Bundles {
			dispatch(sub, h)
		}
	}
}

// udpSender wraps a go-osc client for a single remote endpoint.
type udpSender struct {
	mu     sync.Mutex
	client *goosc.Client
	closed bool
}

func (s *udpSender) Send(address string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	msg := goosc.NewMessage(address)
	for _, arg := range args {
		msg.Append(normalizeArg(arg))
	}
	if err := s.client.Send(msg); err != nil {
		return fmt.Errorf("osc: send %s: %w", address, err)
	}
	return nil
}

func (s *udpSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// normalizeArg maps Go integer types onto the OSC int32 tag, which is
// what serialoscd expects for every numeric protocol argument.
func normalizeArg(arg any) any {
	switch v := arg.(type) {
	case int:
		return int32(v)
	case int8:
		return int32(v)
	case int16:
		return int32(v)
	case int64:
		return int32(v)
	case uint8:
		return int32(v)
	case uint16:
		return int32(v)
	case uint32:
		return int32(v)
	case bool:
		if v {
			return int32(1)
		}
		return int32(0)
	default:
		return arg
	}
}

// udpReceiver owns the bound packet connection for one OSC server loop.
type udpReceiver struct {
	conn      net.PacketConn
	closeOnce sync.Once
}

func (r *udpReceiver) Port() int {
	if addr, ok := r.conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.Port
	}
	return 0
}

func (r *udpReceiver) Close() error {
	var err error
	r.closeOnce.Do(func() {
		err = r.conn.Close()
	})
	return err
}
