package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name    string
		builder func() string
		want    string
	}{
		{"DeviceEvent", func() string { return Topics{}.DeviceEvent("m0000045", "key") }, "monome/event/m0000045/key"},
		{"DeviceAdd", func() string { return Topics{}.DeviceAdd() }, "monome/device/add"},
		{"DeviceRemove", func() string { return Topics{}.DeviceRemove() }, "monome/device/remove"},
		{"LedCommand", func() string { return Topics{}.LedCommand("m0000045", "set") }, "monome/led/m0000045/set"},
		{"SystemStatus", func() string { return Topics{}.SystemStatus() }, "monome/system/status"},
		{"SystemShutdown", func() string { return Topics{}.SystemShutdown() }, "monome/system/shutdown"},
		{"AllDeviceEvents", func() string { return Topics{}.AllDeviceEvents() }, "monome/event/+/+"},
		{"AllLedCommands", func() string { return Topics{}.AllLedCommands() }, "monome/led/#"},
		{"AllDeviceLifecycle", func() string { return Topics{}.AllDeviceLifecycle() }, "monome/device/+"},
		{"AllTopics", func() string { return Topics{}.AllTopics() }, "monome/#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.builder(); got != tt.want {
				t.Errorf("%s() = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestPublishValidation(t *testing.T) {
	c := &Client{}

	if err := c.Publish("", []byte("x"), 1, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("monome/led/m1/set", []byte("x"), 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("qos 3 error = %v, want ErrInvalidQoS", err)
	}
	big := make([]byte, maxPayloadSize+1)
	if err := c.Publish("monome/led/m1/map", big, 1, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("oversized payload error = %v, want ErrPublishFailed", err)
	}
	if err := c.Publish("monome/led/m1/set", []byte("x"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected error = %v, want ErrNotConnected", err)
	}
}

func TestSubscribeValidation(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}
	handler := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 1, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Subscribe("monome/led/#", 3, handler); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("qos 3 error = %v, want ErrInvalidQoS", err)
	}
	if err := c.Subscribe("monome/led/#", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler error = %v, want ErrSubscribeFailed", err)
	}
	if err := c.Subscribe("monome/led/#", 1, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected error = %v, want ErrNotConnected", err)
	}
}

func TestZeroClient(t *testing.T) {
	c := &Client{}

	if c.IsConnected() {
		t.Error("IsConnected() = true on zero client")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on zero client = %v", err)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheckCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &Client{}
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() = %v, want context.Canceled", err)
	}
}

func TestStatusPayloads(t *testing.T) {
	var online statusMessage
	if err := json.Unmarshal(onlinePayload("monome-core"), &online); err != nil {
		t.Fatalf("parsing online payload: %v", err)
	}
	if online.Status != "online" || online.ClientID != "monome-core" || online.Reason != "" {
		t.Errorf("online payload = %+v", online)
	}
	if online.Timestamp.IsZero() {
		t.Error("online payload missing timestamp")
	}

	var offline statusMessage
	if err := json.Unmarshal(offlinePayload("monome-core", reasonGraceful), &offline); err != nil {
		t.Fatalf("parsing offline payload: %v", err)
	}
	if offline.Status != "offline" || offline.Reason != "graceful_shutdown" {
		t.Errorf("offline payload = %+v", offline)
	}
}

func TestSetLogger(t *testing.T) {
	c := &Client{}
	log := &recordingLogger{}

	c.SetLogger(log)
	if c.getLogger() == nil {
		t.Error("getLogger() = nil after SetLogger")
	}
	c.SetLogger(nil)
	if c.getLogger() != nil {
		t.Error("getLogger() != nil after SetLogger(nil)")
	}
}

func TestWrapHandlerRecoversPanic(t *testing.T) {
	c := &Client{}
	log := &recordingLogger{}
	c.SetLogger(log)

	h := c.wrapHandler(func(string, []byte) error { panic("bad handler") })
	h(nil, fakeMessage{topic: "monome/led/m1/set", payload: []byte("{}")})

	if len(log.errorMsgs()) != 1 {
		t.Fatalf("recovered panic not logged: %v", log.errorMsgs())
	}
}

func TestWrapHandlerLogsError(t *testing.T) {
	c := &Client{}
	log := &recordingLogger{}
	c.SetLogger(log)

	h := c.wrapHandler(func(string, []byte) error { return errors.New("unknown command") })
	h(nil, fakeMessage{topic: "monome/led/m1/nope", payload: []byte("{}")})

	if len(log.warnMsgs()) != 1 {
		t.Fatalf("handler error not logged: %v", log.warnMsgs())
	}
}

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	mu     sync.Mutex
	errorM []string
	warnM  []string
}

func (l *recordingLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	l.errorM = append(l.errorM, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	l.warnM = append(l.warnM, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) errorMsgs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errorM...)
}

func (l *recordingLogger) warnMsgs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warnM...)
}

// fakeMessage satisfies paho's Message interface for handler tests.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}
