package monome

import "math"

// RingLedCount is the number of LEDs on one arc ring.
const RingLedCount = 64

// ArcRingBuffer holds desired LED state for a single arc ring. Dirty
// tracking is a single flag because a ring always flushes as one map
// command.
//
// Like GridLedBuffer it is confined to the owning session's goroutine.
type ArcRingBuffer struct {
	levels [RingLedCount]uint8
	dirty  bool
}

// SetLevel writes one LED level, clamped to 0..MaxLevel. Out-of-range
// indices are ignored; the ring is marked dirty only on actual change.
func (b *ArcRingBuffer) SetLevel(led, level int) {
	if led < 0 || led >= RingLedCount {
		return
	}
	v := clampLevel(level)
	if b.levels[led] != v {
		b.levels[led] = v
		b.dirty = true
	}
}

// Level reads one LED level; out-of-range indices read as 0.
func (b *ArcRingBuffer) Level(led int) int {
	if led < 0 || led >= RingLedCount {
		return 0
	}
	return int(b.levels[led])
}

// Fill sets every LED to level.
func (b *ArcRingBuffer) Fill(level int) {
	v := clampLevel(level)
	for i := range b.levels {
		if b.levels[i] != v {
			b.levels[i] = v
			b.dirty = true
		}
	}
}

// FillRange sets LEDs start..end inclusive to level, wrapping past LED
// 63 when start exceeds end. Indices are reduced modulo the ring size,
// negative values included.
func (b *ArcRingBuffer) FillRange(start, end, level int) {
	v := clampLevel(level)
	start = wrapLed(start)
	end = wrapLed(end)

	setOne := func(i int) {
		if b.levels[i] != v {
			b.levels[i] = v
			b.dirty = true
		}
	}

	if start <= end {
		for i := start; i <= end; i++ {
			setOne(i)
		}
		return
	}
	for i := start; i < RingLedCount; i++ {
		setOne(i)
	}
	for i := 0; i <= end; i++ {
		setOne(i)
	}
}

// Clear turns every LED off.
func (b *ArcRingBuffer) Clear() { b.Fill(0) }

// Dirty reports whether the ring changed since ClearDirty.
func (b *ArcRingBuffer) Dirty() bool { return b.dirty }

// ClearDirty resets the dirty flag.
func (b *ArcRingBuffer) ClearDirty() { b.dirty = false }

// Levels returns a copy of all 64 LED levels for a ring map command.
func (b *ArcRingBuffer) Levels() [RingLedCount]uint8 { return b.levels }

// SetPosition clears the ring and draws a position indicator: one LED at
// brightness on the normalized position (wrapped into 0..1), with
// dimmer LEDs spreading falloff steps to either side.
func (b *ArcRingBuffer) SetPosition(pos float64, brightness, falloff int) {
	b.Clear()
	pos = pos - math.Floor(pos)
	center := int(pos*RingLedCount) % RingLedCount

	b.SetLevel(center, brightness)

	for i := 1; i <= falloff; i++ {
		dim := brightness * (falloff - i + 1) / (falloff + 2)
		b.SetLevel(wrapLed(center-i), dim)
		b.SetLevel(wrapLed(center+i), dim)
	}
}

// SetRange clears the ring and lights the arc from startNorm to endNorm
// (both normalized, wrapped into 0..1) at level.
func (b *ArcRingBuffer) SetRange(startNorm, endNorm float64, level int) {
	b.Clear()
	startNorm = startNorm - math.Floor(startNorm)
	endNorm = endNorm - math.Floor(endNorm)

	start := int(startNorm*RingLedCount) % RingLedCount
	end := int(endNorm*RingLedCount) % RingLedCount

	b.FillRange(start, end, level)
}

func wrapLed(i int) int {
	return ((i % RingLedCount) + RingLedCount) % RingLedCount
}
