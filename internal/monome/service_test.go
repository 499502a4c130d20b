package monome

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gridbeam/monome-core/internal/actor"
	"github.com/gridbeam/monome-core/internal/osc"
)

// sentMsg records one outbound OSC message.
type sentMsg struct {
	addr string
	args []any
}

// fakeSender records everything sent to one endpoint.
type fakeSender struct {
	mu   sync.Mutex
	sent []sentMsg
}

func (f *fakeSender) Send(address string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMsg{addr: address, args: args})
	return nil
}

func (f *fakeSender) Close() error { return nil }

func (f *fakeSender) messages() []sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMsg, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeSender) addresses() []string {
	var addrs []string
	for _, m := range f.messages() {
		addrs = append(addrs, m.addr)
	}
	return addrs
}

// fakeReceiver hands inbound messages to the registered handler.
type fakeReceiver struct {
	port    int
	handler osc.Handler
}

func (f *fakeReceiver) Port() int    { return f.port }
func (f *fakeReceiver) Close() error { return nil }

// fakeTransport indexes senders by remote port and receivers by local
// port so tests can inspect traffic and inject responses.
type fakeTransport struct {
	mu        sync.Mutex
	senders   map[int]*fakeSender
	receivers map[int]*fakeReceiver
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		senders:   make(map[int]*fakeSender),
		receivers: make(map[int]*fakeReceiver),
	}
}

func (t *fakeTransport) Dial(host string, port int) (osc.Sender, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &fakeSender{}
	t.senders[port] = s
	return s, nil
}

func (t *fakeTransport) Listen(port int, h osc.Handler) (osc.Receiver, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := &fakeReceiver{port: port, handler: h}
	t.receivers[port] = r
	return r, nil
}

func (t *fakeTransport) senderTo(port int) *fakeSender {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.senders[port]
}

// inject delivers a message to the receiver bound on localPort.
func (t *fakeTransport) inject(localPort int, addr string, args ...any) {
	t.mu.Lock()
	r := t.receivers[localPort]
	t.mu.Unlock()
	if r == nil {
		panic(fmt.Sprintf("no receiver on port %d", localPort))
	}
	r.handler(osc.Message{Address: addr, Args: args})
}

// memProfiles is an in-memory ProfileStore.
type memProfiles struct {
	mu       sync.Mutex
	profiles map[string]DeviceProfile
	recorded []Info
}

func newMemProfiles() *memProfiles {
	return &memProfiles{profiles: make(map[string]DeviceProfile)}
}

func (m *memProfiles) Get(ctx context.Context, id string) (DeviceProfile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	return p, ok, nil
}

func (m *memProfiles) Put(ctx context.Context, id string, p DeviceProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[id] = p
	return nil
}

func (m *memProfiles) Record(ctx context.Context, info Info) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded = append(m.recorded, info)
	return nil
}

func fixedPorts(start int) (int, error) { return start, nil }

func newTestService(t *testing.T, tr *fakeTransport, opts func(*ServiceOptions)) *Service {
	t.Helper()
	o := ServiceOptions{
		Transport: tr,
		Actors:    actor.NewRegistry(),
		FreePort:  fixedPorts,
	}
	if opts != nil {
		opts(&o)
	}
	svc := NewService(o)
	if err := svc.Start("127.0.0.1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func announceGrid(tr *fakeTransport, id string) {
	tr.inject(DefaultDiscoveryPortBase, "/serialosc/device", id, "monome 128", int32(14656))
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestServiceStartTalksToDaemon(t *testing.T) {
	tr := newFakeTransport()
	newTestService(t, tr, nil)

	daemon := tr.senderTo(DaemonPort)
	if daemon == nil {
		t.Fatal("no sender opened to serialoscd")
	}

	msgs := daemon.messages()
	if len(msgs) != 2 {
		t.Fatalf("daemon got %d messages, want 2: %v", len(msgs), msgs)
	}
	if msgs[0].addr != "/serialosc/notify" || msgs[1].addr != "/serialosc/list" {
		t.Errorf("daemon messages = %v", msgs)
	}
	for _, m := range msgs {
		if len(m.args) != 2 || m.args[0] != "127.0.0.1" || m.args[1] != DefaultDiscoveryPortBase {
			t.Errorf("%s args = %v, want [127.0.0.1 %d]", m.addr, m.args, DefaultDiscoveryPortBase)
		}
	}
}

func TestServiceDeviceAddConnectsGrid(t *testing.T) {
	tr := newFakeTransport()
	svc := newTestService(t, tr, nil)

	announceGrid(tr, "m0000123")

	g := svc.GetGrid("m0000123")
	if g == nil {
		t.Fatal("grid not registered after announcement")
	}
	if !g.Connected() {
		t.Error("grid should be connected")
	}

	dev := tr.senderTo(14656)
	if dev == nil {
		t.Fatal("no sender opened to device port")
	}

	want := []string{"/sys/host", "/sys/port", "/sys/prefix", "/sys/info"}
	got := dev.addresses()
	if len(got) < len(want) {
		t.Fatalf("device handshake = %v, want %v", got, want)
	}
	for i, addr := range want {
		if got[i] != addr {
			t.Errorf("handshake message %d = %s, want %s", i, got[i], addr)
		}
	}

	// /sys/port must carry the allocated local port.
	portMsg := dev.messages()[1]
	if portMsg.args[0] != DefaultDevicePortBase {
		t.Errorf("/sys/port arg = %v, want %d", portMsg.args[0], DefaultDevicePortBase)
	}
}

func TestServiceDuplicateAddIgnored(t *testing.T) {
	tr := newFakeTransport()
	svc := newTestService(t, tr, nil)

	announceGrid(tr, "m0000123")
	first := len(tr.senderTo(14656).messages())
	announceGrid(tr, "m0000123")

	if got := len(tr.senderTo(14656).messages()); got != first {
		t.Errorf("duplicate announcement re-ran the handshake (%d -> %d messages)", first, got)
	}
	if ids := svc.DeviceIDs(); len(ids) != 1 {
		t.Errorf("DeviceIDs = %v, want one entry", ids)
	}
}

func TestServiceUnknownTypeIgnored(t *testing.T) {
	tr := newFakeTransport()
	svc := newTestService(t, tr, nil)

	tr.inject(DefaultDiscoveryPortBase, "/serialosc/device", "x1", "mystery box", int32(15000))

	if dev := svc.GetDevice("x1"); dev != nil {
		t.Error("unknown device type should not be registered")
	}
}

func TestServiceMalformedDiscoveryDropped(t *testing.T) {
	tr := newFakeTransport()
	svc := newTestService(t, tr, nil)

	// Wrong arity and wrong types must be ignored without effect.
	tr.inject(DefaultDiscoveryPortBase, "/serialosc/device", "m1")
	tr.inject(DefaultDiscoveryPortBase, "/serialosc/device", int32(1), int32(2), int32(3))
	tr.inject(DefaultDiscoveryPortBase, "/serialosc/remove")

	if ids := svc.DeviceIDs(); len(ids) != 0 {
		t.Errorf("DeviceIDs = %v, want empty", ids)
	}
}

func TestServiceDeviceRemove(t *testing.T) {
	tr := newFakeTransport()
	svc := newTestService(t, tr, nil)

	var events []bool
	var eventsMu sync.Mutex
	svc.SetDeviceCallback(func(info Info, connected bool) {
		eventsMu.Lock()
		events = append(events, connected)
		eventsMu.Unlock()
	})

	announceGrid(tr, "m0000123")
	dev := tr.senderTo(14656)

	tr.inject(DefaultDiscoveryPortBase, "/serialosc/remove", "m0000123")

	if svc.GetDevice("m0000123") != nil {
		t.Error("device should be gone after removal")
	}

	// Teardown darkens the grid.
	addrs := dev.addresses()
	if addrs[len(addrs)-1] != DefaultPrefix+"/grid/led/all" {
		t.Errorf("last device message = %s, want led/all", addrs[len(addrs)-1])
	}

	eventsMu.Lock()
	defer eventsMu.Unlock()
	if len(events) != 2 || events[0] != true || events[1] != false {
		t.Errorf("callback events = %v, want [true false]", events)
	}

	// Removing again is a no-op.
	tr.inject(DefaultDiscoveryPortBase, "/serialosc/remove", "m0000123")
}

func TestServiceAllocatesDistinctDevicePorts(t *testing.T) {
	tr := newFakeTransport()
	svc := newTestService(t, tr, nil)

	tr.inject(DefaultDiscoveryPortBase, "/serialosc/device", "m1", "monome 64", int32(15001))
	tr.inject(DefaultDiscoveryPortBase, "/serialosc/device", "m2", "monome 64", int32(15002))

	p1 := tr.senderTo(15001).messages()[1].args[0]
	p2 := tr.senderTo(15002).messages()[1].args[0]
	if p1 == p2 {
		t.Errorf("both devices got local port %v", p1)
	}
	if len(svc.GridIDs()) != 2 {
		t.Errorf("GridIDs = %v", svc.GridIDs())
	}
}

func TestServiceLookupsAndIDs(t *testing.T) {
	tr := newFakeTransport()
	svc := newTestService(t, tr, nil)

	tr.inject(DefaultDiscoveryPortBase, "/serialosc/device", "g1", "monome 128", int32(15001))
	tr.inject(DefaultDiscoveryPortBase, "/serialosc/device", "a1", "monome arc 4", int32(15002))

	if svc.FirstGrid() == nil || svc.FirstGrid().ID() != "g1" {
		t.Error("FirstGrid should find g1")
	}
	if svc.FirstArc() == nil || svc.FirstArc().ID() != "a1" {
		t.Error("FirstArc should find a1")
	}
	if svc.GetArc("g1") != nil || svc.GetGrid("a1") != nil {
		t.Error("kind-checked lookups should reject mismatched kinds")
	}

	if ids := svc.DeviceIDs(); len(ids) != 2 || ids[0] != "a1" || ids[1] != "g1" {
		t.Errorf("DeviceIDs = %v, want sorted [a1 g1]", ids)
	}
	if ids := svc.ArcIDs(); len(ids) != 1 || ids[0] != "a1" {
		t.Errorf("ArcIDs = %v", ids)
	}
}

func TestServiceForwardsGridInput(t *testing.T) {
	tr := newFakeTransport()
	svc := newTestService(t, tr, nil)

	c := &collectorActor{}
	a := actor.New(c)
	a.Start()
	defer a.Stop()
	svc.actors.Register("app/main", a)
	svc.SetListener("app/main")

	announceGrid(tr, "m0000123")

	// Key press arrives on the device's local receiver with the prefix.
	tr.inject(DefaultDevicePortBase, DefaultPrefix+"/grid/key", int32(3), int32(2), int32(1))

	waitUntil(t, func() bool { return len(c.snapshot()) == 1 })

	msg := c.snapshot()[0]
	if msg.Path != "grid/m0000123/key" {
		t.Errorf("event path = %s", msg.Path)
	}
	if len(msg.Value) != 3 || msg.Value[0] != 3 || msg.Value[1] != 2 || msg.Value[2] != 1 {
		t.Errorf("event value = %v, want [3 2 1]", msg.Value)
	}
	if msg.Flags&actor.FlagDeviceEvent == 0 || msg.Flags&actor.FlagFromDaemon == 0 {
		t.Errorf("event flags = %d", msg.Flags)
	}
}

func TestServiceForwardsArcInput(t *testing.T) {
	tr := newFakeTransport()
	svc := newTestService(t, tr, nil)

	c := &collectorActor{}
	a := actor.New(c)
	a.Start()
	defer a.Stop()
	svc.actors.Register("app/main", a)
	svc.SetListener("app/main")

	tr.inject(DefaultDiscoveryPortBase, "/serialosc/device", "a1", "monome arc 4", int32(15002))

	tr.inject(DefaultDevicePortBase, DefaultPrefix+"/enc/delta", int32(1), int32(-3))
	tr.inject(DefaultDevicePortBase, DefaultPrefix+"/enc/key", int32(0), int32(1))

	waitUntil(t, func() bool { return len(c.snapshot()) == 2 })

	msgs := c.snapshot()
	if msgs[0].Path != "arc/a1/delta" || msgs[0].Value[1] != -3 {
		t.Errorf("delta event = %+v", msgs[0])
	}
	if msgs[1].Path != "arc/a1/key" || msgs[1].Value[1] != 1 {
		t.Errorf("key event = %+v", msgs[1])
	}
}

func TestServiceDeviceAddNotifiesListener(t *testing.T) {
	tr := newFakeTransport()
	svc := newTestService(t, tr, nil)

	c := &collectorActor{}
	a := actor.New(c)
	a.Start()
	defer a.Stop()
	svc.actors.Register("app/main", a)
	svc.SetListener("app/main")

	announceGrid(tr, "m0000123")
	tr.inject(DefaultDiscoveryPortBase, "/serialosc/remove", "m0000123")

	waitUntil(t, func() bool { return len(c.snapshot()) == 2 })

	msgs := c.snapshot()
	if msgs[0].Path != "serialosc/device/add" || msgs[0].Text != "m0000123" {
		t.Errorf("add notification = %+v", msgs[0])
	}
	if msgs[1].Path != "serialosc/device/remove" || msgs[1].Text != "m0000123" {
		t.Errorf("remove notification = %+v", msgs[1])
	}
}

func TestServiceHotplugReSubscribes(t *testing.T) {
	tr := newFakeTransport()
	newTestService(t, tr, nil)

	daemon := tr.senderTo(DaemonPort)
	before := countAddr(daemon.addresses(), "/serialosc/notify")

	tr.inject(DefaultDiscoveryPortBase, "/serialosc/add", "m1", "monome 64", int32(15001))

	after := countAddr(daemon.addresses(), "/serialosc/notify")
	if after != before+1 {
		t.Errorf("notify count %d -> %d, want re-subscribe after hotplug event", before, after)
	}
}

func TestServiceRescanMessage(t *testing.T) {
	tr := newFakeTransport()
	actors := actor.NewRegistry()
	newTestService(t, tr, func(o *ServiceOptions) { o.Actors = actors })

	daemon := tr.senderTo(DaemonPort)
	lists := countAddr(daemon.addresses(), "/serialosc/list")
	notifies := countAddr(daemon.addresses(), "/serialosc/notify")

	if !actors.Send(ServicePath, actor.Message{Text: MsgRescan}) {
		t.Fatal("service mailbox not registered")
	}

	waitUntil(t, func() bool {
		return countAddr(daemon.addresses(), "/serialosc/list") == lists+1 &&
			countAddr(daemon.addresses(), "/serialosc/notify") == notifies+1
	})

	// Unrecognized control text is dropped.
	actors.Send(ServicePath, actor.Message{Text: "reboot"})
	time.Sleep(20 * time.Millisecond)
	if n := countAddr(daemon.addresses(), "/serialosc/list"); n != lists+1 {
		t.Errorf("list count = %d after unknown message, want %d", n, lists+1)
	}
}

func TestServiceAppliesStoredProfile(t *testing.T) {
	tr := newFakeTransport()
	profiles := newMemProfiles()
	profiles.profiles["m0000123"] = DeviceProfile{Prefix: "/beam", Rotation: 180}

	svc := newTestService(t, tr, func(o *ServiceOptions) {
		o.Profiles = profiles
	})

	announceGrid(tr, "m0000123")

	g := svc.GetGrid("m0000123")
	if g.Prefix() != "/beam" {
		t.Errorf("prefix = %s, want /beam", g.Prefix())
	}
	if g.Rotation() != 180 {
		t.Errorf("rotation = %d, want 180", g.Rotation())
	}

	// The handshake pushes the stored prefix; rotation follows once the
	// connection is up.
	dev := tr.senderTo(14656)
	var sawRotation bool
	for _, m := range dev.messages() {
		switch m.addr {
		case "/sys/prefix":
			if m.args[0] != "/beam" {
				t.Errorf("/sys/prefix sent %v, want /beam", m.args[0])
			}
		case "/sys/rotation":
			sawRotation = true
			if m.args[0] != 180 {
				t.Errorf("/sys/rotation sent %v, want 180", m.args[0])
			}
		}
	}
	if !sawRotation {
		t.Error("stored rotation was never transmitted")
	}

	profiles.mu.Lock()
	recorded := len(profiles.recorded)
	profiles.mu.Unlock()
	if recorded != 1 {
		t.Errorf("recorded %d sightings, want 1", recorded)
	}
}

func TestServiceSaveProfile(t *testing.T) {
	tr := newFakeTransport()
	profiles := newMemProfiles()
	svc := newTestService(t, tr, func(o *ServiceOptions) {
		o.Profiles = profiles
	})

	announceGrid(tr, "m0000123")
	g := svc.GetGrid("m0000123")
	g.SetPrefix("/live")
	g.SetRotation(90)

	if err := svc.SaveProfile(context.Background(), "m0000123"); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	p, ok, _ := profiles.Get(context.Background(), "m0000123")
	if !ok || p.Prefix != "/live" || p.Rotation != 90 {
		t.Errorf("saved profile = %+v, ok=%v", p, ok)
	}

	if err := svc.SaveProfile(context.Background(), "nope"); err == nil {
		t.Error("SaveProfile for unknown device should fail")
	}
}

func TestServiceStopClosesDevices(t *testing.T) {
	tr := newFakeTransport()
	svc := newTestService(t, tr, nil)

	announceGrid(tr, "m0000123")
	g := svc.GetGrid("m0000123")

	svc.Stop()

	if g.Connected() {
		t.Error("device should be disconnected after Stop")
	}
	if svc.Running() {
		t.Error("service should not be running after Stop")
	}
	// Stop again is a no-op.
	svc.Stop()
}

func countAddr(addrs []string, addr string) int {
	n := 0
	for _, a := range addrs {
		if a == addr {
			n++
		}
	}
	return n
}

// collectorActor records forwarded messages.
type collectorActor struct {
	mu   sync.Mutex
	msgs []actor.Message
}

func (c *collectorActor) OnMessage(msg actor.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *collectorActor) snapshot() []actor.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]actor.Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}
