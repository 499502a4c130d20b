package monome

import (
	"testing"

	"github.com/gridbeam/monome-core/internal/actor"
)

func connectArc(t *testing.T, tr *fakeTransport, typ string) *Arc {
	t.Helper()
	a := newArc(ParseInfo("a0000042", typ, 14700), actor.NewRegistry(), nil)
	if err := a.connect(tr, "127.0.0.1", 13001); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(a.shutdown)
	return a
}

func TestArcEncoderCount(t *testing.T) {
	tr := newFakeTransport()
	if got := connectArc(t, tr, "monome arc 2").EncoderCount(); got != 2 {
		t.Errorf("arc 2 count = %d", got)
	}

	tr2 := newFakeTransport()
	if got := connectArc(t, tr2, "monome arc").EncoderCount(); got != 4 {
		t.Errorf("bare arc count = %d, want default 4", got)
	}
}

func TestArcRawRingCommands(t *testing.T) {
	tr := newFakeTransport()
	a := connectArc(t, tr, "monome arc 4")
	dev := tr.senderTo(14700)
	handshake := len(dev.messages())

	a.RingSet(0, 12, 15)
	a.RingAll(1, 4)
	a.RingRange(2, 60, 4, 8)

	msgs := dev.messages()[handshake:]
	want := []string{"/monome/ring/set", "/monome/ring/all", "/monome/ring/range"}
	for i, addr := range want {
		if msgs[i].addr != addr {
			t.Errorf("command %d = %s, want %s", i, msgs[i].addr, addr)
		}
	}
	rng := msgs[2]
	if len(rng.args) != 4 || rng.args[1] != 60 || rng.args[2] != 4 {
		t.Errorf("ring range args = %v", rng.args)
	}
}

func TestArcRingClampsIndex(t *testing.T) {
	tr := newFakeTransport()
	a := connectArc(t, tr, "monome arc 4")

	if a.Ring(-1) != a.Ring(0) {
		t.Error("negative ring index should clamp to 0")
	}
	if a.Ring(99) != a.Ring(MaxEncoders-1) {
		t.Error("oversized ring index should clamp to the last ring")
	}
}

func TestArcFlushRingSendsMapWhenDirty(t *testing.T) {
	tr := newFakeTransport()
	a := connectArc(t, tr, "monome arc 4")
	dev := tr.senderTo(14700)
	handshake := len(dev.messages())

	a.Ring(1).SetPosition(0.25, 15, 2)
	a.FlushRing(1)

	msgs := dev.messages()[handshake:]
	if len(msgs) != 1 {
		t.Fatalf("flush sent %d messages, want 1", len(msgs))
	}
	m := msgs[0]
	if m.addr != "/monome/ring/map" {
		t.Errorf("flush used %s", m.addr)
	}
	// Ring index plus 64 levels.
	if len(m.args) != 65 || m.args[0] != 1 {
		t.Errorf("ring map args = %d args, ring %v", len(m.args), m.args[0])
	}

	// Clean ring flushes nothing.
	a.FlushRing(1)
	if got := len(dev.messages()[handshake:]); got != 1 {
		t.Errorf("clean flush sent %d extra messages", got-1)
	}

	// Out-of-range flushes are ignored.
	a.FlushRing(-1)
	a.FlushRing(MaxEncoders)
}

func TestArcFlushRingsCoversEncoderCount(t *testing.T) {
	tr := newFakeTransport()
	a := connectArc(t, tr, "monome arc 2")
	dev := tr.senderTo(14700)
	handshake := len(dev.messages())

	a.Ring(0).Fill(3)
	a.Ring(1).Fill(5)
	// Ring 2 is beyond the encoder count; dirtying it must not flush.
	a.Ring(2).Fill(7)

	a.FlushRings()

	msgs := dev.messages()[handshake:]
	if len(msgs) != 2 {
		t.Errorf("FlushRings sent %d messages, want 2", len(msgs))
	}
}
