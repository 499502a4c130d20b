package monome

// Grid buffer dimensions.
const (
	// MaxGridWidth is the widest grid the buffer backs (a monome 256 is 16x16).
	MaxGridWidth = 16

	// MaxGridHeight is the tallest grid the buffer backs.
	MaxGridHeight = 16

	// QuadrantSize is the edge length of the 8x8 tiles the protocol's map
	// commands operate on.
	QuadrantSize = 8

	// MaxLevel is the brightest LED level.
	MaxLevel = 15
)

// GridLedBuffer holds desired LED state for a grid with per-quadrant
// dirty tracking, so a flush only transmits the 8x8 tiles that changed.
// The backing store is always 16x16; Width and Height bound the logical
// region writes and reads touch. The zero value is not usable, call
// NewGridLedBuffer.
//
// GridLedBuffer is not safe for concurrent use; each device session
// owns its buffers and accesses them from one goroutine at a time.
type GridLedBuffer struct {
	width  int
	height int

	// Row-major levels, one byte per LED, fixed 16x16 stride.
	levels [MaxGridWidth * MaxGridHeight]uint8

	// One bit per 8x8 quadrant: bit index qy*2+qx.
	dirtyMask uint8
}

// NewGridLedBuffer creates a buffer for a width x height grid with all
// LEDs off and no quadrants dirty.
func NewGridLedBuffer(width, height int) *GridLedBuffer {
	return &GridLedBuffer{width: width, height: height}
}

// Width returns the logical grid width.
func (b *GridLedBuffer) Width() int { return b.width }

// Height returns the logical grid height.
func (b *GridLedBuffer) Height() int { return b.height }

// Resize changes the logical dimensions and discards all prior state:
// every LED reads as off and no quadrant is dirty afterwards.
func (b *GridLedBuffer) Resize(width, height int) {
	*b = GridLedBuffer{width: width, height: height}
}

// SetLevel writes one LED level, clamped to 0..MaxLevel. Out-of-bounds
// coordinates are ignored. The containing quadrant is marked dirty only
// when the stored value actually changes.
func (b *GridLedBuffer) SetLevel(x, y, level int) {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return
	}
	v := clampLevel(level)
	idx := y*MaxGridWidth + x
	if b.levels[idx] != v {
		b.levels[idx] = v
		b.markDirty(x, y)
	}
}

// Level reads one LED level; out-of-bounds coordinates read as 0.
func (b *GridLedBuffer) Level(x, y int) int {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return 0
	}
	return int(b.levels[y*MaxGridWidth+x])
}

// Fill sets every LED in the logical region to level.
func (b *GridLedBuffer) Fill(level int) {
	v := clampLevel(level)
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			idx := y*MaxGridWidth + x
			if b.levels[idx] != v {
				b.levels[idx] = v
				b.markDirty(x, y)
			}
		}
	}
}

// FillRect sets the intersection of the given rectangle and the logical
// region to level.
func (b *GridLedBuffer) FillRect(x0, y0, w, h, level int) {
	v := clampLevel(level)
	for y := y0; y < y0+h && y < b.height; y++ {
		for x := x0; x < x0+w && x < b.width; x++ {
			if x < 0 || y < 0 {
				continue
			}
			idx := y*MaxGridWidth + x
			if b.levels[idx] != v {
				b.levels[idx] = v
				b.markDirty(x, y)
			}
		}
	}
}

// Set writes an LED in binary form: on maps to MaxLevel, off to 0.
func (b *GridLedBuffer) Set(x, y int, on bool) {
	if on {
		b.SetLevel(x, y, MaxLevel)
		return
	}
	b.SetLevel(x, y, 0)
}

// Get reports whether an LED is lit at any level.
func (b *GridLedBuffer) Get(x, y int) bool { return b.Level(x, y) > 0 }

// Toggle flips an LED between off and full brightness.
func (b *GridLedBuffer) Toggle(x, y int) { b.Set(x, y, !b.Get(x, y)) }

// Clear turns every LED in the logical region off.
func (b *GridLedBuffer) Clear() { b.Fill(0) }

// Dirty reports whether any quadrant has changed since ClearDirty.
func (b *GridLedBuffer) Dirty() bool { return b.dirtyMask != 0 }

// ClearDirty resets all quadrant dirty bits.
func (b *GridLedBuffer) ClearDirty() { b.dirtyMask = 0 }

// QuadrantDirty reports whether the 8x8 quadrant at quadrant
// coordinates (qx, qy) has changed since ClearDirty.
func (b *GridLedBuffer) QuadrantDirty(qx, qy int) bool {
	return b.dirtyMask&(1<<quadrantIndex(qx, qy)) != 0
}

// Quadrant identifies an 8x8 tile by quadrant coordinates.
type Quadrant struct {
	X int
	Y int
}

// DirtyQuadrants lists the quadrants covering the logical region that
// have changed since ClearDirty, in row-major order.
func (b *GridLedBuffer) DirtyQuadrants() []Quadrant {
	var result []Quadrant
	quadsX := (b.width + QuadrantSize - 1) / QuadrantSize
	quadsY := (b.height + QuadrantSize - 1) / QuadrantSize
	for qy := 0; qy < quadsY; qy++ {
		for qx := 0; qx < quadsX; qx++ {
			if b.QuadrantDirty(qx, qy) {
				result = append(result, Quadrant{X: qx, Y: qy})
			}
		}
	}
	return result
}

// QuadrantLevels returns the 64 row-major levels of one quadrant for a
// level map command. Cells outside the logical region read as 0.
func (b *GridLedBuffer) QuadrantLevels(qx, qy int) [64]uint8 {
	var result [64]uint8
	xOff := qx * QuadrantSize
	yOff := qy * QuadrantSize
	for row := 0; row < QuadrantSize; row++ {
		for col := 0; col < QuadrantSize; col++ {
			x := xOff + col
			y := yOff + row
			if x < b.width && y < b.height {
				result[row*QuadrantSize+col] = b.levels[y*MaxGridWidth+x]
			}
		}
	}
	return result
}

// QuadrantBitmask returns one byte per quadrant row, bit N set when
// column N is lit, for a binary map command.
func (b *GridLedBuffer) QuadrantBitmask(qx, qy int) [8]uint8 {
	var result [8]uint8
	xOff := qx * QuadrantSize
	yOff := qy * QuadrantSize
	for row := 0; row < QuadrantSize; row++ {
		var bits uint8
		for col := 0; col < QuadrantSize; col++ {
			x := xOff + col
			y := yOff + row
			if x < b.width && y < b.height && b.levels[y*MaxGridWidth+x] > 0 {
				bits |= 1 << col
			}
		}
		result[row] = bits
	}
	return result
}

// RowLevels copies up to count levels of row y into out. A row outside
// the logical region leaves out untouched.
func (b *GridLedBuffer) RowLevels(y int, out []uint8, count int) {
	if y < 0 || y >= b.height {
		return
	}
	for x := 0; x < count && x < b.width && x < len(out); x++ {
		out[x] = b.levels[y*MaxGridWidth+x]
	}
}

// ColLevels copies up to count levels of column x into out.
func (b *GridLedBuffer) ColLevels(x int, out []uint8, count int) {
	if x < 0 || x >= b.width {
		return
	}
	for y := 0; y < count && y < b.height && y < len(out); y++ {
		out[y] = b.levels[y*MaxGridWidth+x]
	}
}

func (b *GridLedBuffer) markDirty(x, y int) {
	b.dirtyMask |= 1 << quadrantIndex(x/QuadrantSize, y/QuadrantSize)
}

func quadrantIndex(qx, qy int) int { return qy*2 + qx }

func clampLevel(level int) uint8 {
	if level < 0 {
		return 0
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return uint8(level)
}
