package monome

import "github.com/gridbeam/monome-core/internal/actor"

// MaxEncoders is the most encoders any arc model carries.
const MaxEncoders = 4

// Arc is a monome arc controller: raw ring LED commands, one buffered
// ring per encoder, and encoder delta/key input forwarding.
type Arc struct {
	session
	rings [MaxEncoders]ArcRingBuffer
}

func newArc(info Info, actors *actor.Registry, logger Logger) *Arc {
	a := &Arc{}
	initSession(&a.session, info, actors, logger)
	a.onInput = a.handleInput
	return a
}

// EncoderCount returns the number of encoders, defaulting to 4 when
// the type string carried no count.
func (a *Arc) EncoderCount() int {
	if n := a.Info().Encoders; n > 0 {
		return n
	}
	return defaultArcEncoders
}

// RingSet writes one LED on a ring, bypassing the buffer.
func (a *Arc) RingSet(ring, led, level int) {
	a.send(a.prefixed("/ring/set"), ring, led, level)
}

// RingAll writes every LED on a ring to the same level.
func (a *Arc) RingAll(ring, level int) {
	a.send(a.prefixed("/ring/all"), ring, level)
}

// RingMap writes all 64 LED levels of a ring.
func (a *Arc) RingMap(ring int, levels [RingLedCount]uint8) {
	args := make([]any, 0, RingLedCount+1)
	args = append(args, ring)
	for _, lv := range levels {
		args = append(args, lv)
	}
	a.send(a.prefixed("/ring/map"), args...)
}

// RingRange writes a range of LEDs, wrapping past LED 63 when start
// exceeds end.
func (a *Arc) RingRange(ring, start, end, level int) {
	a.send(a.prefixed("/ring/range"), ring, start, end, level)
}

// Ring returns the buffer for one ring; out-of-range indices clamp to
// the nearest valid ring.
func (a *Arc) Ring(ring int) *ArcRingBuffer {
	if ring < 0 {
		ring = 0
	}
	if ring >= MaxEncoders {
		ring = MaxEncoders - 1
	}
	return &a.rings[ring]
}

// FlushRing transmits one ring's buffer as a map command when dirty.
func (a *Arc) FlushRing(ring int) {
	if ring < 0 || ring >= MaxEncoders {
		return
	}
	buf := &a.rings[ring]
	if !buf.Dirty() {
		return
	}
	a.RingMap(ring, buf.Levels())
	buf.ClearDirty()
}

// FlushRings transmits every dirty ring buffer.
func (a *Arc) FlushRings() {
	for i := 0; i < a.EncoderCount(); i++ {
		a.FlushRing(i)
	}
}

// handleInput routes device input arriving on the session goroutine.
func (a *Arc) handleInput(addr string, vals []float64) {
	switch {
	case addr == "enc/delta" && len(vals) >= 2:
		a.forward(actor.Path("arc/"+a.ID()+"/delta"), vals[:2])
	case addr == "enc/key" && len(vals) >= 2:
		a.forward(actor.Path("arc/"+a.ID()+"/key"), vals[:2])
	}
}
